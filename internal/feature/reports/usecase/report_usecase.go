// Package usecase はreportsフィーチャーのビジネスロジックを実装します。
package usecase

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	estentity "helioscope/internal/feature/estimation/domain/entity"
	estusecase "helioscope/internal/feature/estimation/usecase"
	"helioscope/internal/feature/reports/domain"
	"helioscope/internal/feature/reports/domain/entity"
)

// ReportRepository はレポートの永続化を担うリポジトリインターフェースです。
// Goの慣例に従い、インターフェースは利用者（usecase）側で定義します。
type ReportRepository interface {
	Save(ctx context.Context, r *entity.Report) error
	// FindByID は存在しない場合domain.ErrReportNotFoundを返します。
	FindByID(ctx context.Context, id uuid.UUID) (*entity.Report, error)
}

// reportUsecase は推定結果の要約を保存・取得します。
type reportUsecase struct {
	repo ReportRepository
}

// パイプラインの保存先として使えることをコンパイル時に検証します。
var _ estusecase.ReportRecorder = (*reportUsecase)(nil)

// NewReportUsecase はreportUsecaseの新しいインスタンスを生成します。
func NewReportUsecase(repo ReportRepository) *reportUsecase {
	return &reportUsecase{repo: repo}
}

// Record は推定結果を要約して保存します。
func (u *reportUsecase) Record(ctx context.Context, result *estentity.EstimationResult) error {
	if result == nil || result.RunID == uuid.Nil {
		return fmt.Errorf("%w: missing run id", domain.ErrInvalidReport)
	}
	r := Summarize(result)
	if err := u.repo.Save(ctx, r); err != nil {
		return fmt.Errorf("failed to save report %s: %w", r.ID, err)
	}
	return nil
}

// Get はIDでレポートを取得します。
func (u *reportUsecase) Get(ctx context.Context, id uuid.UUID) (*entity.Report, error) {
	if id == uuid.Nil {
		return nil, domain.ErrReportNotFound
	}
	return u.repo.FindByID(ctx, id)
}

// Summarize は推定結果からレポートを作ります。
func Summarize(result *estentity.EstimationResult) *entity.Report {
	return &entity.Report{
		ID:                  result.RunID,
		LocationID:          result.Assumptions.LocationID,
		ImageHash:           result.ImageHash,
		RegionCount:         result.Totals.RegionCount,
		ViableCount:         result.Totals.ViableCount,
		ViableAreaM2:        result.Totals.ViableAreaM2,
		AnnualEnergyKWh:     result.Totals.AnnualEnergyKWh,
		CarbonOffsetKg:      result.Totals.CarbonOffsetKg,
		NetCost:             result.Financials.NetCost,
		BreakEvenAchievable: result.Financials.BreakEven.Achievable,
		BreakEvenYears:      result.Financials.BreakEven.Years,
		Backend:             result.Assumptions.SegmentationBackend,
		CreatedAt:           result.CreatedAt,
	}
}
