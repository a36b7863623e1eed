// Package usecase はimageryフィーチャー（Imagery Loader）のビジネスロジックを実装します。
package usecase

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"image"
	"image/color"
	"io"
	"log/slog"
	"math"
	"os"

	"helioscope/internal/feature/imagery/domain"
	"helioscope/internal/feature/imagery/domain/entity"
)

const (
	// MaxImageSize は画像入力の最大サイズ（64MB）です。
	MaxImageSize = 64 * 1024 * 1024
	// MaxPixels は画像の最大画素数です。
	MaxPixels int64 = 50_000_000

	// GeoTIFFのスケールがメートル単位とみなせる範囲。度単位（地理座標系）はこれを下回ります。
	minPlausibleGSD = 0.01
	maxPlausibleGSD = 1000.0
)

// DecodedImage はデコーダーが返す中間表現です。
type DecodedImage struct {
	Image       image.Image
	Format      string
	PixelScaleX float64 // GeoTIFF ModelPixelScaleTag（存在しない場合は0）
	PixelScaleY float64
}

// ImageDecoder は画像バイト列をデコードするインターフェースです。
// Goの慣例に従い、インターフェースは利用者（usecase）側で定義します。
type ImageDecoder interface {
	Decode(data []byte) (*DecodedImage, error)
}

// loaderUsecase は画像を正規化済みRasterImageに変換します。
type loaderUsecase struct {
	decoder ImageDecoder
}

// NewLoaderUsecase はloaderUsecaseの新しいインスタンスを生成します。
func NewLoaderUsecase(d ImageDecoder) *loaderUsecase {
	return &loaderUsecase{decoder: d}
}

// LoadFile はファイルパスから画像を読み込みます。
func (u *loaderUsecase) LoadFile(ctx context.Context, path string, meta entity.Metadata) (*entity.RasterImage, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, &domain.InvalidImageError{Reason: "cannot open " + path, Err: err}
	}
	defer func() {
		if err := f.Close(); err != nil {
			slog.Warn("failed to close image file", "path", path, "error", err)
		}
	}()
	return u.LoadReader(ctx, f, path, meta)
}

// LoadReader はストリームから画像を読み込みます。MaxImageSizeを超える入力は拒否します。
func (u *loaderUsecase) LoadReader(ctx context.Context, r io.Reader, name string, meta entity.Metadata) (*entity.RasterImage, error) {
	data, err := io.ReadAll(io.LimitReader(r, MaxImageSize+1))
	if err != nil {
		return nil, &domain.InvalidImageError{Reason: "read failed", Err: err}
	}
	return u.Load(ctx, entity.Source{Data: data, Filename: name, Metadata: meta})
}

// Load は画像バイト列をデコード・正規化し、地上分解能を確定したRasterImageを返します。
func (u *loaderUsecase) Load(ctx context.Context, src entity.Source) (*entity.RasterImage, error) {
	if len(src.Data) == 0 {
		return nil, &domain.InvalidImageError{Reason: "image data is empty"}
	}
	if len(src.Data) > MaxImageSize {
		return nil, &domain.InvalidImageError{Reason: fmt.Sprintf("image size exceeds maximum of %d bytes", MaxImageSize)}
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	decoded, err := u.decoder.Decode(src.Data)
	if err != nil {
		return nil, &domain.InvalidImageError{Reason: "decode failed", Err: err}
	}
	b := decoded.Image.Bounds()
	if b.Dx() <= 0 || b.Dy() <= 0 {
		return nil, &domain.InvalidImageError{Reason: fmt.Sprintf("decoded image has %dx%d pixels", b.Dx(), b.Dy())}
	}

	gsd, err := resolveGSD(src.Metadata.GSD, decoded)
	if err != nil {
		return nil, err
	}

	geo := entity.GeoTag{LocationID: src.Metadata.LocationID}
	if src.Metadata.Latitude != nil && src.Metadata.Longitude != nil {
		geo.Latitude = *src.Metadata.Latitude
		geo.Longitude = *src.Metadata.Longitude
		geo.HasCoordinates = true
	}

	sum := sha256.Sum256(src.Data)
	raster, err := entity.NewRasterImage(entity.RasterSpec{
		Width:      b.Dx(),
		Height:     b.Dy(),
		Pix:        normalizeRGB(decoded.Image),
		GSD:        gsd,
		Geo:        geo,
		Elevation:  src.Metadata.Elevation,
		SourceHash: hex.EncodeToString(sum[:]),
	})
	if err != nil {
		return nil, err
	}

	slog.Debug("image loaded",
		"file", src.Filename,
		"format", decoded.Format,
		"width", raster.Width(),
		"height", raster.Height(),
		"gsd", gsd,
		"elevation", raster.HasElevation())
	return raster, nil
}

// resolveGSD はメタデータを優先し、なければGeoTIFFの画素スケールから地上分解能を決定します。
func resolveGSD(metaGSD float64, d *DecodedImage) (float64, error) {
	if metaGSD != 0 {
		if math.IsNaN(metaGSD) || math.IsInf(metaGSD, 0) || metaGSD < 0 {
			return 0, &domain.MissingScaleError{Reason: fmt.Sprintf("metadata ground-sample distance %v is not a positive number", metaGSD)}
		}
		return metaGSD, nil
	}

	sx, sy := math.Abs(d.PixelScaleX), math.Abs(d.PixelScaleY)
	if sx == 0 || sy == 0 {
		return 0, &domain.MissingScaleError{Reason: "no ground-sample distance in metadata and no GeoTIFF pixel scale tag"}
	}
	if sx < minPlausibleGSD || sy < minPlausibleGSD || sx > maxPlausibleGSD || sy > maxPlausibleGSD {
		return 0, &domain.MissingScaleError{
			Reason: fmt.Sprintf("GeoTIFF pixel scale (%g, %g) is not in metres; supply ground-sample distance explicitly", sx, sy),
		}
	}
	// 非正方画素でもピクセル面積が sx*sy になるよう幾何平均を使う
	return math.Sqrt(sx * sy), nil
}

// normalizeRGB は任意のimage.Imageを8bit RGBのインターリーブ配列に変換します。
// アルファは乗算を戻してから破棄し、16bit入力は上位8bitを使います。
func normalizeRGB(img image.Image) []uint8 {
	b := img.Bounds()
	w, h := b.Dx(), b.Dy()
	out := make([]uint8, 0, w*h*entity.RGBChannels)

	switch src := img.(type) {
	case *image.RGBA:
		for y := b.Min.Y; y < b.Max.Y; y++ {
			row := src.Pix[src.PixOffset(b.Min.X, y):src.PixOffset(b.Max.X, y)]
			for i := 0; i < len(row); i += 4 {
				if row[i+3] == 0xff {
					out = append(out, row[i], row[i+1], row[i+2])
					continue
				}
				r, g, bb, a := color.RGBA{R: row[i], G: row[i+1], B: row[i+2], A: row[i+3]}.RGBA()
				out = appendUnpremultiplied(out, r, g, bb, a)
			}
		}
	case *image.Gray:
		for y := b.Min.Y; y < b.Max.Y; y++ {
			for x := b.Min.X; x < b.Max.X; x++ {
				v := src.GrayAt(x, y).Y
				out = append(out, v, v, v)
			}
		}
	default:
		for y := b.Min.Y; y < b.Max.Y; y++ {
			for x := b.Min.X; x < b.Max.X; x++ {
				r, g, bb, a := img.At(x, y).RGBA()
				out = appendUnpremultiplied(out, r, g, bb, a)
			}
		}
	}
	return out
}

// appendUnpremultiplied はアルファ乗算済みの16bit値を元に戻し、8bitで追加します。
func appendUnpremultiplied(out []uint8, r, g, b, a uint32) []uint8 {
	if a != 0 && a != 0xffff {
		r = r * 0xffff / a
		g = g * 0xffff / a
		b = b * 0xffff / a
	}
	return append(out, uint8(r>>8), uint8(g>>8), uint8(b>>8))
}
