// Package codec は衛星画像（GeoTIFF/TIFF・PNG・JPEG）のデコーダーを提供します。
package codec

import (
	"bytes"
	"fmt"
	"image"
	_ "image/jpeg" // JPEGデコーダーを登録
	_ "image/png"  // PNGデコーダーを登録

	_ "golang.org/x/image/tiff" // TIFFデコーダーを登録

	"helioscope/internal/feature/imagery/usecase"
)

// Decoder は標準のimageレジストリでデコードし、GeoTIFFの画素スケールも読み取ります。
type Decoder struct{}

// DecoderがImageDecoderを実装していることをコンパイル時に検証します。
var _ usecase.ImageDecoder = (*Decoder)(nil)

// NewDecoder はDecoderの新しいインスタンスを生成します。
func NewDecoder() *Decoder {
	return &Decoder{}
}

// Decode は画像バイト列をデコードします。
func (d *Decoder) Decode(data []byte) (*usecase.DecodedImage, error) {
	// 展開前にヘッダーだけで寸法を確認し、巨大画像でのメモリ枯渇を避ける
	cfg, _, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	if cfg.Width <= 0 || cfg.Height <= 0 {
		return nil, fmt.Errorf("image header reports %dx%d", cfg.Width, cfg.Height)
	}
	if int64(cfg.Width)*int64(cfg.Height) > usecase.MaxPixels {
		return nil, fmt.Errorf("image has %dx%d pixels, exceeds maximum of %d", cfg.Width, cfg.Height, usecase.MaxPixels)
	}

	img, format, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", format, err)
	}

	out := &usecase.DecodedImage{Image: img, Format: format}
	if format == "tiff" {
		if sx, sy, ok := readPixelScale(data); ok {
			out.PixelScaleX, out.PixelScaleY = sx, sy
		}
	}
	return out, nil
}
