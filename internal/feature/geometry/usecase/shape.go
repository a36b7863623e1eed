package usecase

import (
	"math"

	"gonum.org/v1/gonum/mat"

	"helioscope/internal/feature/geometry/domain/entity"
	segentity "helioscope/internal/feature/segmentation/domain/entity"
)

// pixelVariance は1画素の一様分布の分散（1/12）です。1画素や一直線の領域でも固有値が0にならないよう加えます。
const pixelVariance = 1.0 / 12

// describeShape は画素座標の2×2共分散行列の固有分解から形状記述子を求めます。
func describeShape(pixels []segentity.Pixel) (entity.Shape, error) {
	n := float64(len(pixels))
	var sx, sy float64
	for _, p := range pixels {
		sx += float64(p.X)
		sy += float64(p.Y)
	}
	cx, cy := sx/n, sy/n

	var cxx, cxy, cyy float64
	for _, p := range pixels {
		dx, dy := float64(p.X)-cx, float64(p.Y)-cy
		cxx += dx * dx
		cxy += dx * dy
		cyy += dy * dy
	}
	cov := mat.NewSymDense(2, []float64{
		cxx/n + pixelVariance, cxy / n,
		cxy / n, cyy/n + pixelVariance,
	})

	var eig mat.EigenSym
	if ok := eig.Factorize(cov, true); !ok {
		return entity.Shape{}, errEigenFailed
	}
	// 固有値は昇順
	vals := eig.Values(nil)
	var vecs mat.Dense
	eig.VectorsTo(&vecs)
	vx, vy := vecs.At(0, 1), vecs.At(1, 1)

	// 画像座標はyが下（南）向き。北から時計回りの角度に変換し、向きのない軸として[0,180)に畳む
	axis := math.Mod(math.Atan2(vx, -vy)*180/math.Pi+360, 180)

	return entity.Shape{
		CentroidX:    cx,
		CentroidY:    cy,
		Elongation:   math.Sqrt(vals[1] / vals[0]),
		RidgeAxisDeg: axis,
	}, nil
}
