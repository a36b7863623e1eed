// Package usecase はgeometryフィーチャー（Region Geometry Resolver）のビジネスロジックを実装します。
package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"math"

	"helioscope/internal/feature/geometry/domain"
	"helioscope/internal/feature/geometry/domain/entity"
	imgentity "helioscope/internal/feature/imagery/domain/entity"
	segentity "helioscope/internal/feature/segmentation/domain/entity"
)

// resolverUsecase はマスクを面積・形状・向き・日陰・実行可能性を持つ屋根領域に変換します。
// 状態を持たないため、複数のゴルーチンから同時に利用できます。
type resolverUsecase struct{}

// NewResolverUsecase はresolverUsecaseの新しいインスタンスを生成します。
func NewResolverUsecase() *resolverUsecase {
	return &resolverUsecase{}
}

// validatePolicy はポリシーの値域を検証します。
func validatePolicy(p entity.ViabilityPolicy) error {
	switch {
	case math.IsNaN(p.MinRegionArea) || p.MinRegionArea < 0:
		return fmt.Errorf("%w: minimum region area %v", domain.ErrInvalidPolicy, p.MinRegionArea)
	case !(p.MaxShadedFraction > 0 && p.MaxShadedFraction <= 1):
		return fmt.Errorf("%w: max shaded fraction %v must be in (0,1]", domain.ErrInvalidPolicy, p.MaxShadedFraction)
	case !(p.ShadowLuminanceRatio > 0 && p.ShadowLuminanceRatio <= 1):
		return fmt.Errorf("%w: shadow luminance ratio %v must be in (0,1]", domain.ErrInvalidPolicy, p.ShadowLuminanceRatio)
	}
	return nil
}

// Resolve はセグメンテーション結果の全マスクを屋根領域に変換します。
// 設置不適な領域も理由付きで返します。戻り値の順序はマスクの順序と同じです。
func (u *resolverUsecase) Resolve(ctx context.Context, img *imgentity.RasterImage, masks []segentity.RooftopMask, policy entity.ViabilityPolicy) ([]entity.RooftopRegion, error) {
	if err := validatePolicy(policy); err != nil {
		return nil, err
	}
	if len(masks) == 0 {
		return []entity.RooftopRegion{}, nil
	}

	median := medianLuminance(img)
	regions := make([]entity.RooftopRegion, 0, len(masks))
	for _, m := range masks {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		r, err := u.resolveOne(img, m, median, policy)
		if err != nil {
			return nil, err
		}
		regions = append(regions, r)
	}

	viable := 0
	for _, r := range regions {
		if r.Viable {
			viable++
		}
	}
	slog.Info("regions resolved", "regions", len(regions), "viable", viable, "median_luminance", median)
	return regions, nil
}

// resolveOne は1つのマスクを屋根領域に変換します。
func (u *resolverUsecase) resolveOne(img *imgentity.RasterImage, m segentity.RooftopMask, median float64, policy entity.ViabilityPolicy) (entity.RooftopRegion, error) {
	if len(m.Pixels) == 0 {
		return entity.RooftopRegion{}, fmt.Errorf("%w: mask %d is empty", domain.ErrInvalidMask, m.ID)
	}
	for _, p := range m.Pixels {
		if !img.InBounds(p.X, p.Y) {
			return entity.RooftopRegion{}, fmt.Errorf("%w: mask %d pixel (%d,%d) outside %dx%d", domain.ErrInvalidMask, m.ID, p.X, p.Y, img.Width(), img.Height())
		}
	}

	shape, err := describeShape(m.Pixels)
	if err != nil {
		return entity.RooftopRegion{}, fmt.Errorf("shape of mask %d: %w", m.ID, err)
	}

	orientation := unknownOrientation()
	if img.HasElevation() {
		pl, err := fitPlane(img, m.Pixels)
		if err == nil {
			orientation = orientationFromPlane(pl)
		} else {
			slog.Debug("plane fit skipped", "mask", m.ID, "error", err)
		}
	}

	mean, shadedFraction := shading(img, m.Pixels, median, policy.ShadowLuminanceRatio)

	r := entity.RooftopRegion{
		MaskID:         m.ID,
		PixelCount:     len(m.Pixels),
		AreaM2:         float64(len(m.Pixels)) * img.PixelArea(),
		Bounds:         m.Bounds,
		Shape:          shape,
		Orientation:    orientation,
		MeanLuminance:  mean,
		ShadedFraction: shadedFraction,
		Shaded:         shadedFraction >= policy.MaxShadedFraction,
	}
	r.Reasons = viabilityReasons(r, policy)
	r.Viable = len(r.Reasons) == 0
	return r, nil
}

// viabilityReasons は設置不適の理由を列挙します。空なら設置可能です。
func viabilityReasons(r entity.RooftopRegion, policy entity.ViabilityPolicy) []entity.ViabilityReason {
	var reasons []entity.ViabilityReason
	if r.AreaM2 < policy.MinRegionArea {
		reasons = append(reasons, entity.ReasonAreaBelowMinimum)
	}
	if r.Shaded {
		reasons = append(reasons, entity.ReasonShaded)
	}
	// 方位は標高情報がある場合（信頼度high）のみ判定に使う
	o := r.Orientation
	if o.Confidence == entity.ConfidenceHigh && o.TiltClass == entity.TiltSteep && o.Facing.NorthFacing() {
		reasons = append(reasons, entity.ReasonSteepNorthFacing)
	}
	return reasons
}
