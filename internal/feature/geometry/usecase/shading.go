package usecase

import (
	"gonum.org/v1/gonum/stat"

	imgentity "helioscope/internal/feature/imagery/domain/entity"
	segentity "helioscope/internal/feature/segmentation/domain/entity"
)

// medianLuminance は画像全体の輝度中央値を256ビンのヒストグラムから求めます。
func medianLuminance(img *imgentity.RasterImage) float64 {
	var hist [256]int
	for y := 0; y < img.Height(); y++ {
		for x := 0; x < img.Width(); x++ {
			hist[img.Luminance(x, y)]++
		}
	}
	half := (img.Width()*img.Height() + 1) / 2
	seen := 0
	for v, c := range hist {
		seen += c
		if seen >= half {
			return float64(v)
		}
	}
	return 0
}

// shading は領域の平均輝度と、影とみなす画素（輝度 < ratio × 画像中央値）の割合を返します。
func shading(img *imgentity.RasterImage, pixels []segentity.Pixel, median, ratio float64) (mean, shadedFraction float64) {
	if len(pixels) == 0 {
		return 0, 0
	}
	lum := make([]float64, len(pixels))
	cutoff := ratio * median
	shadow := 0
	for i, p := range pixels {
		lum[i] = float64(img.Luminance(p.X, p.Y))
		if lum[i] < cutoff {
			shadow++
		}
	}
	return stat.Mean(lum, nil), float64(shadow) / float64(len(pixels))
}
