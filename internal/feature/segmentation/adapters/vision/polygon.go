package vision

import (
	"math"

	"helioscope/internal/feature/segmentation/domain/entity"
)

// point は画素座標系の頂点です。
type point struct {
	X, Y float64
}

// contains は偶奇規則で点が多角形の内側にあるかを判定します。
func contains(poly []point, x, y float64) bool {
	in := false
	for i, j := 0, len(poly)-1; i < len(poly); j, i = i, i+1 {
		a, b := poly[i], poly[j]
		if (a.Y > y) != (b.Y > y) && x < (b.X-a.X)*(y-a.Y)/(b.Y-a.Y)+a.X {
			in = !in
		}
	}
	return in
}

// fillPolygon は画素中心が多角形内にある画素へscoreを書き込みます。既存値の方が大きい場合は維持します。
func fillPolygon(probs *entity.ProbabilityMap, poly []point, score float32) {
	if len(poly) < 3 {
		return
	}
	minX, minY := math.Inf(1), math.Inf(1)
	maxX, maxY := math.Inf(-1), math.Inf(-1)
	for _, p := range poly {
		minX, maxX = math.Min(minX, p.X), math.Max(maxX, p.X)
		minY, maxY = math.Min(minY, p.Y), math.Max(maxY, p.Y)
	}
	x0, x1 := max(0, int(math.Floor(minX))), min(probs.Width-1, int(math.Ceil(maxX)))
	y0, y1 := max(0, int(math.Floor(minY))), min(probs.Height-1, int(math.Ceil(maxY)))

	for y := y0; y <= y1; y++ {
		for x := x0; x <= x1; x++ {
			if !contains(poly, float64(x)+0.5, float64(y)+0.5) {
				continue
			}
			if score > probs.At(x, y) {
				probs.Set(x, y, score)
			}
		}
	}
}
