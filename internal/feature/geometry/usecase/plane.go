package usecase

import (
	"errors"
	"math"

	"gonum.org/v1/gonum/mat"

	"helioscope/internal/feature/geometry/domain/entity"
	imgentity "helioscope/internal/feature/imagery/domain/entity"
	segentity "helioscope/internal/feature/segmentation/domain/entity"
)

const (
	flatTiltDeg  = 5.0
	steepTiltDeg = 25.0
)

var (
	errEigenFailed   = errors.New("eigen decomposition failed")
	errTooFewSamples = errors.New("too few elevation samples for plane fit")
)

// sectors は北から時計回りの8方位です。
var sectors = [8]entity.Facing{
	entity.FacingN, entity.FacingNE, entity.FacingE, entity.FacingSE,
	entity.FacingS, entity.FacingSW, entity.FacingW, entity.FacingNW,
}

// plane は z = a·east + b·south + c の係数です。
type plane struct {
	a, b float64
}

// fitPlane はマスク内の標高に最小二乗平面を当てはめます。
// 正規方程式を重心まわりで組み立て、コレスキー分解で解きます。
func fitPlane(img *imgentity.RasterImage, pixels []segentity.Pixel) (plane, error) {
	gsd := img.GSD()

	type sample struct{ e, s, z float64 }
	samples := make([]sample, 0, len(pixels))
	var me, ms, mz float64
	for _, p := range pixels {
		z := img.Elevation(p.X, p.Y)
		if math.IsNaN(z) || math.IsInf(z, 0) {
			continue
		}
		e, s := float64(p.X)*gsd, float64(p.Y)*gsd
		samples = append(samples, sample{e, s, z})
		me += e
		ms += s
		mz += z
	}
	if len(samples) < 3 {
		return plane{}, errTooFewSamples
	}
	n := float64(len(samples))
	me, ms, mz = me/n, ms/n, mz/n

	var see, ses, sss, sez, ssz float64
	for _, q := range samples {
		de, ds, dz := q.e-me, q.s-ms, q.z-mz
		see += de * de
		ses += de * ds
		sss += ds * ds
		sez += de * dz
		ssz += ds * dz
	}

	var chol mat.Cholesky
	if ok := chol.Factorize(mat.NewSymDense(2, []float64{see, ses, ses, sss})); !ok {
		// 一直線上の画素など、平面が定まらない
		return plane{}, errTooFewSamples
	}
	var coef mat.VecDense
	if err := chol.SolveVecTo(&coef, mat.NewVecDense(2, []float64{sez, ssz})); err != nil {
		return plane{}, err
	}
	return plane{a: coef.AtVec(0), b: coef.AtVec(1)}, nil
}

// orientationFromPlane は平面の勾配から傾斜と方位を求めます。
func orientationFromPlane(pl plane) entity.Orientation {
	tilt := math.Atan(math.Hypot(pl.a, pl.b)) * 180 / math.Pi
	o := entity.Orientation{
		Confidence: entity.ConfidenceHigh,
		TiltDeg:    &tilt,
		TiltClass:  classifyTilt(tilt),
	}
	if o.TiltClass == entity.TiltFlat {
		o.Facing = entity.FacingFlat
		return o
	}
	// 下り勾配は -(a, b)。東成分 -a、北成分 b
	aspect := math.Mod(math.Atan2(-pl.a, pl.b)*180/math.Pi+360, 360)
	o.AspectDeg = &aspect
	o.Facing = facingOf(aspect)
	return o
}

func classifyTilt(deg float64) entity.TiltClass {
	switch {
	case deg < flatTiltDeg:
		return entity.TiltFlat
	case deg <= steepTiltDeg:
		return entity.TiltLow
	default:
		return entity.TiltSteep
	}
}

func facingOf(aspect float64) entity.Facing {
	return sectors[int(math.Floor((aspect+22.5)/45))%8]
}

// unknownOrientation は標高情報がない場合の向きです。方位は推定しません。
func unknownOrientation() entity.Orientation {
	return entity.Orientation{
		Facing:     entity.FacingUnknown,
		TiltClass:  entity.TiltUnknown,
		Confidence: entity.ConfidenceLow,
	}
}
