// Package entity はsegmentationフィーチャーのドメインモデルを定義します。
package entity

import (
	"fmt"
	"image"
	"time"
)

// Pixel はラスター上の画素座標です。
type Pixel struct {
	X int
	Y int
}

// RooftopMask は1つの屋根候補を構成する画素集合です。
// 同一のセグメンテーション結果に含まれるマスク同士は互いに素です。
type RooftopMask struct {
	ID     int
	Pixels []Pixel
	Bounds image.Rectangle // 外接矩形（Maxは排他的）
}

// PixelCount はマスクの画素数を返します。
func (m RooftopMask) PixelCount() int { return len(m.Pixels) }

// ProbabilityMap は画素ごとの「屋根」クラス確率（0.0 ~ 1.0）です。行優先で格納します。
type ProbabilityMap struct {
	Width  int
	Height int
	Values []float32
}

// NewProbabilityMap はゼロ初期化された確率マップを生成します。
func NewProbabilityMap(w, h int) *ProbabilityMap {
	return &ProbabilityMap{Width: w, Height: h, Values: make([]float32, w*h)}
}

// At は指定座標の確率を返します。
func (p *ProbabilityMap) At(x, y int) float32 { return p.Values[y*p.Width+x] }

// Set は指定座標の確率を設定します。
func (p *ProbabilityMap) Set(x, y int, v float32) { p.Values[y*p.Width+x] = v }

// Validate は寸法と値域を検証します。
func (p *ProbabilityMap) Validate(w, h int) error {
	if p.Width != w || p.Height != h {
		return fmt.Errorf("probability map is %dx%d, raster is %dx%d", p.Width, p.Height, w, h)
	}
	if len(p.Values) != w*h {
		return fmt.Errorf("probability map has %d values, want %d", len(p.Values), w*h)
	}
	for i, v := range p.Values {
		// NaNは比較が常にfalseになるため、範囲内条件の否定で弾く
		if !(v >= 0 && v <= 1) {
			return fmt.Errorf("probability %v at index %d is outside [0,1]", v, i)
		}
	}
	return nil
}

// Params はセグメンテーション1回分のパラメータです。
type Params struct {
	Threshold        float64       // 屋根と判定する確率の下限
	MinRegionPixels  int           // これ未満の連結成分は破棄
	InferenceTimeout time.Duration // 0以下の場合はタイムアウトなし
}

// Segmentation はセグメンテーションの結果です。
// Masksが空でエラーがない場合は「屋根が存在しない画像」を意味します。
type Segmentation struct {
	Backend          string
	Width            int
	Height           int
	Masks            []RooftopMask
	RooftopPixels    int // 閾値を超えた画素の総数（破棄された小成分を含む）
	DiscardedRegions int
	InferenceTime    time.Duration
}
