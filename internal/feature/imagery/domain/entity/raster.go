// Package entity はimageryフィーチャーのドメインモデルを定義します。
package entity

import (
	"fmt"
	"image"
	"math"

	"helioscope/internal/feature/imagery/domain"
)

// RGBChannels は正規化後のチャンネル数です（8bit RGB）。
const RGBChannels = 3

// GeoTag は画像の地理情報タグを表します。
type GeoTag struct {
	LocationID     string  // 対象地域の識別子（例: "Phoenix, AZ"）
	Latitude       float64 // 緯度（HasCoordinatesがtrueの場合のみ有効）
	Longitude      float64 // 経度（HasCoordinatesがtrueの場合のみ有効）
	HasCoordinates bool
}

// RasterSpec はRasterImageを生成するための入力値です。
type RasterSpec struct {
	Width      int
	Height     int
	Pix        []uint8   // RGBインターリーブ、行優先
	GSD        float64   // 地上分解能（m/pixel）
	Geo        GeoTag    // 任意
	Elevation  []float32 // 任意の標高バンド（m）、Width*Height要素
	SourceHash string    // 元データのSHA-256（16進）
}

// RasterImage はパイプライン1回分が排他的に所有する正規化済み画像です。
// 生成後は変更できません。
type RasterImage struct {
	width     int
	height    int
	pix       []uint8
	gsd       float64
	geo       GeoTag
	elevation []float32
	hash      string
}

// NewRasterImage は入力値を検証してRasterImageを生成します。
// スライスはコピーされるため、呼び出し元が後から変更しても影響しません。
func NewRasterImage(s RasterSpec) (*RasterImage, error) {
	if s.Width <= 0 || s.Height <= 0 {
		return nil, &domain.InvalidImageError{Reason: fmt.Sprintf("non-positive dimensions %dx%d", s.Width, s.Height)}
	}
	if len(s.Pix) != s.Width*s.Height*RGBChannels {
		return nil, &domain.InvalidImageError{
			Reason: fmt.Sprintf("pixel buffer has %d bytes, want %d for %dx%d RGB", len(s.Pix), s.Width*s.Height*RGBChannels, s.Width, s.Height),
		}
	}
	if s.Elevation != nil && len(s.Elevation) != s.Width*s.Height {
		return nil, &domain.InvalidImageError{
			Reason: fmt.Sprintf("elevation band has %d samples, want %d", len(s.Elevation), s.Width*s.Height),
		}
	}
	if math.IsNaN(s.GSD) || math.IsInf(s.GSD, 0) || s.GSD <= 0 {
		return nil, &domain.MissingScaleError{Reason: fmt.Sprintf("ground-sample distance %v is not a positive finite number", s.GSD)}
	}

	r := &RasterImage{
		width:  s.Width,
		height: s.Height,
		pix:    append([]uint8(nil), s.Pix...),
		gsd:    s.GSD,
		geo:    s.Geo,
		hash:   s.SourceHash,
	}
	if s.Elevation != nil {
		r.elevation = append([]float32(nil), s.Elevation...)
	}
	return r, nil
}

// Width は画像の幅（pixel）を返します。
func (r *RasterImage) Width() int { return r.width }

// Height は画像の高さ（pixel）を返します。
func (r *RasterImage) Height() int { return r.height }

// Channels はチャンネル数を返します。
func (r *RasterImage) Channels() int { return RGBChannels }

// GSD は地上分解能（m/pixel）を返します。
func (r *RasterImage) GSD() float64 { return r.gsd }

// PixelArea は1ピクセルが表す地上面積（m²）を返します。
func (r *RasterImage) PixelArea() float64 { return r.gsd * r.gsd }

// Geo は地理情報タグを返します。
func (r *RasterImage) Geo() GeoTag { return r.geo }

// Hash は元データのハッシュを返します。
func (r *RasterImage) Hash() string { return r.hash }

// InBounds は座標が画像内にあるかを返します。
func (r *RasterImage) InBounds(x, y int) bool {
	return x >= 0 && y >= 0 && x < r.width && y < r.height
}

// RGB は指定座標の画素値を返します。
func (r *RasterImage) RGB(x, y int) (uint8, uint8, uint8) {
	i := (y*r.width + x) * RGBChannels
	return r.pix[i], r.pix[i+1], r.pix[i+2]
}

// Luminance はITU-R BT.601の重みで輝度（0-255）を返します。
func (r *RasterImage) Luminance(x, y int) uint8 {
	cr, cg, cb := r.RGB(x, y)
	return uint8((299*uint32(cr) + 587*uint32(cg) + 114*uint32(cb) + 500) / 1000)
}

// HasElevation は標高バンドを持つかを返します。
func (r *RasterImage) HasElevation() bool { return r.elevation != nil }

// Elevation は指定座標の標高（m）を返します。標高バンドがない場合はNaNです。
func (r *RasterImage) Elevation(x, y int) float64 {
	if r.elevation == nil {
		return math.NaN()
	}
	return float64(r.elevation[y*r.width+x])
}

// ToRGBA は画像のコピーをimage.RGBAとして返します。モデル入力のエンコード用です。
func (r *RasterImage) ToRGBA() *image.RGBA {
	return r.SubImage(image.Rect(0, 0, r.width, r.height))
}

// SubImage は指定矩形（画像範囲でクリップ）をimage.RGBAとしてコピーします。
// 戻り値の原点は(0,0)です。
func (r *RasterImage) SubImage(rect image.Rectangle) *image.RGBA {
	rect = rect.Intersect(image.Rect(0, 0, r.width, r.height))
	out := image.NewRGBA(image.Rect(0, 0, rect.Dx(), rect.Dy()))
	for y := rect.Min.Y; y < rect.Max.Y; y++ {
		for x := rect.Min.X; x < rect.Max.X; x++ {
			cr, cg, cb := r.RGB(x, y)
			o := out.PixOffset(x-rect.Min.X, y-rect.Min.Y)
			out.Pix[o] = cr
			out.Pix[o+1] = cg
			out.Pix[o+2] = cb
			out.Pix[o+3] = 0xff
		}
	}
	return out
}
