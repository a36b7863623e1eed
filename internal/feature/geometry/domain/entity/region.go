// Package entity はgeometryフィーチャーのドメインモデルを定義します。
package entity

import "image"

// TiltClass は屋根の傾斜区分です。
type TiltClass string

const (
	TiltUnknown TiltClass = "unknown"
	TiltFlat    TiltClass = "flat"  // 5°未満
	TiltLow     TiltClass = "low"   // 5°以上25°以下
	TiltSteep   TiltClass = "steep" // 25°超
)

// Facing は屋根面の向き（下り勾配の方位）です。
type Facing string

const (
	FacingUnknown Facing = "unknown"
	FacingFlat    Facing = "flat"
	FacingN       Facing = "N"
	FacingNE      Facing = "NE"
	FacingE       Facing = "E"
	FacingSE      Facing = "SE"
	FacingS       Facing = "S"
	FacingSW      Facing = "SW"
	FacingW       Facing = "W"
	FacingNW      Facing = "NW"
)

// NorthFacing は北寄り（N, NE, NW）の向きかを返します。
func (f Facing) NorthFacing() bool {
	return f == FacingN || f == FacingNE || f == FacingNW
}

// Confidence は向き・傾斜推定の信頼度です。
type Confidence string

const (
	ConfidenceLow  Confidence = "low"
	ConfidenceHigh Confidence = "high"
)

// ViabilityReason は設置不適と判定された理由です。
type ViabilityReason string

const (
	ReasonAreaBelowMinimum ViabilityReason = "area_below_minimum"
	ReasonShaded           ViabilityReason = "shaded"
	ReasonSteepNorthFacing ViabilityReason = "steep_north_facing"
)

// Shape は画素座標の主成分分析から得た形状記述子です。
type Shape struct {
	CentroidX float64
	CentroidY float64
	// Elongation は主軸と副軸の標準偏差の比（1以上）です。
	Elongation float64
	// RidgeAxisDeg は主軸の向き（北から時計回り、0以上180未満）です。向きを持たない軸です。
	RidgeAxisDeg float64
}

// Orientation は屋根面の向きと傾斜です。
// 標高情報がない場合はFacingUnknown・ConfidenceLowとなり、方位は推定しません。
type Orientation struct {
	Facing     Facing
	TiltClass  TiltClass
	Confidence Confidence
	TiltDeg    *float64 // 標高情報がある場合のみ
	AspectDeg  *float64 // 北から時計回り。標高情報があり、平屋根でない場合のみ
}

// RooftopRegion はマスクから導出した屋根領域です。生成後は変更されません。
type RooftopRegion struct {
	MaskID         int
	PixelCount     int
	AreaM2         float64
	Bounds         image.Rectangle
	Shape          Shape
	Orientation    Orientation
	MeanLuminance  float64
	ShadedFraction float64
	Shaded         bool
	Viable         bool
	Reasons        []ViabilityReason
}

// ViabilityPolicy は実行可能性判定のしきい値です。
type ViabilityPolicy struct {
	MinRegionArea        float64 // m²
	MaxShadedFraction    float64 // 影画素の割合がこれ以上なら日陰
	ShadowLuminanceRatio float64 // 画像の輝度中央値に対する比率
}
