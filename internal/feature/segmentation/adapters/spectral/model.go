// Package spectral は学習済みモデルを使わない色情報ベースの屋根推定バックエンドを提供します。
// オフライン実行やテスト用途で、モデルサーバーやクラウドAPIが使えない環境でもパイプラインを通せます。
package spectral

import (
	"context"

	imgentity "helioscope/internal/feature/imagery/domain/entity"
	"helioscope/internal/feature/segmentation/domain/entity"
	"helioscope/internal/feature/segmentation/usecase"
)

// HeuristicModel は輝度と植生指標（Excess Green）から屋根らしさを推定します。
// 明るく、緑の少ない画素ほど高い確率になります。
type HeuristicModel struct {
	// MinLuminance 未満の暗い画素（影や水面）は確率0とします。
	MinLuminance uint8
}

// HeuristicModelがRooftopModelを実装していることをコンパイル時に検証します。
var _ usecase.RooftopModel = (*HeuristicModel)(nil)

// NewHeuristicModel はHeuristicModelの新しいインスタンスを生成します。
func NewHeuristicModel() *HeuristicModel {
	return &HeuristicModel{MinLuminance: 40}
}

// Name はバックエンド名を返します。
func (m *HeuristicModel) Name() string { return "spectral" }

// Infer は画素ごとに lum × (1 − ExG) を計算します。
func (m *HeuristicModel) Infer(ctx context.Context, img *imgentity.RasterImage) (*entity.ProbabilityMap, error) {
	probs := entity.NewProbabilityMap(img.Width(), img.Height())
	for y := 0; y < img.Height(); y++ {
		// 大きな画像でもキャンセルに応答する
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		for x := 0; x < img.Width(); x++ {
			lum := img.Luminance(x, y)
			if lum < m.MinLuminance {
				continue
			}
			r, g, b := img.RGB(x, y)
			exg := (2*float32(g) - float32(r) - float32(b)) / 255
			if exg < 0 {
				exg = 0
			}
			p := float32(lum) / 255 * (1 - min(exg, 1))
			probs.Set(x, y, p)
		}
	}
	return probs, nil
}
