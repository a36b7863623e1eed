package codec

import (
	"encoding/binary"
	"math"
)

const (
	// tagModelPixelScale はGeoTIFFのModelPixelScaleTagです（ScaleX, ScaleY, ScaleZ）。
	tagModelPixelScale = 33550
	tiffTypeDouble     = 12
	tiffEntrySize      = 12
)

// readPixelScale はTIFFの先頭IFDからModelPixelScaleTagを読み取ります。
// タグがない、またはファイルがTIFFでない場合はok=falseを返します。
func readPixelScale(data []byte) (sx, sy float64, ok bool) {
	if len(data) < 8 {
		return 0, 0, false
	}

	var order binary.ByteOrder
	switch string(data[:2]) {
	case "II":
		order = binary.LittleEndian
	case "MM":
		order = binary.BigEndian
	default:
		return 0, 0, false
	}
	// BigTIFF(43)は非対応
	if order.Uint16(data[2:4]) != 42 {
		return 0, 0, false
	}

	ifd := int(order.Uint32(data[4:8]))
	if ifd <= 0 || ifd+2 > len(data) {
		return 0, 0, false
	}
	n := int(order.Uint16(data[ifd : ifd+2]))
	for i := 0; i < n; i++ {
		e := ifd + 2 + i*tiffEntrySize
		if e+tiffEntrySize > len(data) {
			return 0, 0, false
		}
		if order.Uint16(data[e:e+2]) != tagModelPixelScale {
			continue
		}
		typ := order.Uint16(data[e+2 : e+4])
		count := int(order.Uint32(data[e+4 : e+8]))
		if typ != tiffTypeDouble || count < 2 {
			return 0, 0, false
		}
		off := int(order.Uint32(data[e+8 : e+12]))
		if off < 0 || off+16 > len(data) {
			return 0, 0, false
		}
		sx = math.Float64frombits(order.Uint64(data[off : off+8]))
		sy = math.Float64frombits(order.Uint64(data[off+8 : off+16]))
		return sx, sy, true
	}
	return 0, 0, false
}
