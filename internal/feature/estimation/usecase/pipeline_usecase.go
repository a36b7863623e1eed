// Package usecase はestimationフィーチャー（Energy & Impact Estimator / Financial Projector）と
// パイプライン全体の調停を実装します。
package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"helioscope/internal/config"
	"helioscope/internal/feature/estimation/domain"
	"helioscope/internal/feature/estimation/domain/entity"
	geoentity "helioscope/internal/feature/geometry/domain/entity"
	imgentity "helioscope/internal/feature/imagery/domain/entity"
	irrentity "helioscope/internal/feature/irradiance/domain/entity"
	segentity "helioscope/internal/feature/segmentation/domain/entity"
)

// ImageLoader は画像ソースをラスターに変換します。
type ImageLoader interface {
	Load(ctx context.Context, src imgentity.Source) (*imgentity.RasterImage, error)
}

// SiteResolver は地点IDから日射量・排出係数・料金を解決します。
type SiteResolver interface {
	Conditions(ctx context.Context, locationID string) (*irrentity.SiteConditions, error)
}

// Segmenter はラスターから屋根マスクを抽出します。
type Segmenter interface {
	Segment(ctx context.Context, img *imgentity.RasterImage, p segentity.Params) (*segentity.Segmentation, error)
}

// RegionResolver はマスクを屋根領域に変換します。
type RegionResolver interface {
	Resolve(ctx context.Context, img *imgentity.RasterImage, masks []segentity.RooftopMask, policy geoentity.ViabilityPolicy) ([]geoentity.RooftopRegion, error)
}

// Narrator は推定結果の平易な説明文を生成します。
type Narrator interface {
	Narrate(ctx context.Context, result *entity.EstimationResult) (string, error)
}

// StageRecorder は段階ごとの所要時間と成否を記録します（メトリクス用）。
type StageRecorder interface {
	ObserveStage(stage string, elapsed time.Duration, err error)
}

// ReportRecorder は推定結果の要約を保存します。失敗してもパイプラインの結果は変わりません。
type ReportRecorder interface {
	Record(ctx context.Context, result *entity.EstimationResult) error
}

// pipelineUsecase は読み込みから経済性試算までの全段階を順に実行します。
// 実行ごとの状態は持たないため、複数の実行を並行して処理できます。
type pipelineUsecase struct {
	loader    ImageLoader
	sites     SiteResolver
	segmenter Segmenter
	resolver  RegionResolver
	narrator  Narrator
	recorder  StageRecorder
	reports   ReportRecorder
}

// Option はpipelineUsecaseの任意の依存を設定します。
type Option func(*pipelineUsecase)

// WithNarrator は説明文の生成器を設定します。
func WithNarrator(n Narrator) Option { return func(u *pipelineUsecase) { u.narrator = n } }

// WithStageRecorder はメトリクスの記録先を設定します。
func WithStageRecorder(r StageRecorder) Option { return func(u *pipelineUsecase) { u.recorder = r } }

// WithReportRecorder はレポートの保存先を設定します。
func WithReportRecorder(r ReportRecorder) Option { return func(u *pipelineUsecase) { u.reports = r } }

// NewPipelineUsecase はpipelineUsecaseの新しいインスタンスを生成します。
func NewPipelineUsecase(loader ImageLoader, sites SiteResolver, segmenter Segmenter, resolver RegionResolver, opts ...Option) *pipelineUsecase {
	u := &pipelineUsecase{loader: loader, sites: sites, segmenter: segmenter, resolver: resolver}
	for _, opt := range opts {
		opt(u)
	}
	return u
}

// EstimateOption は1回の推定の振る舞いを変更します。
type EstimateOption func(*estimateOptions)

type estimateOptions struct {
	narrate bool
}

// WithNarrative は結果に説明文を付けます。生成に失敗しても推定自体は成功します。
func WithNarrative() EstimateOption { return func(o *estimateOptions) { o.narrate = true } }

// stage は1段階を実行し、所要時間を記録してエラーをStageErrorで包みます。
func (u *pipelineUsecase) stage(s domain.Stage, fn func() error) error {
	start := time.Now()
	err := fn()
	if u.recorder != nil {
		u.recorder.ObserveStage(string(s), time.Since(start), err)
	}
	if err != nil {
		return &domain.StageError{Stage: s, Err: err}
	}
	return nil
}

// Estimate は画像と地点から推定結果を生成します。
// locationIDが空の場合は画像メタデータの地点を使います。
// 地点は画像の読み込み直後に解決するため、対応外の地点でセグメンテーションが実行されることはありません。
func (u *pipelineUsecase) Estimate(ctx context.Context, src imgentity.Source, locationID string, cfg *config.PipelineConfig, opts ...EstimateOption) (*entity.EstimationResult, error) {
	var o estimateOptions
	for _, opt := range opts {
		opt(&o)
	}
	if cfg == nil {
		cfg = config.DefaultPipelineConfig()
	}
	start := time.Now()

	if err := u.stage(domain.StageConfigure, cfg.Validate); err != nil {
		return nil, err
	}

	var img *imgentity.RasterImage
	if err := u.stage(domain.StageLoad, func() (err error) {
		img, err = u.loader.Load(ctx, src)
		return err
	}); err != nil {
		return nil, err
	}

	if locationID == "" {
		locationID = img.Geo().LocationID
	}
	var site *irrentity.SiteConditions
	if err := u.stage(domain.StageLocate, func() (err error) {
		site, err = u.sites.Conditions(ctx, locationID)
		return err
	}); err != nil {
		return nil, err
	}

	var seg *segentity.Segmentation
	if err := u.stage(domain.StageSegment, func() (err error) {
		seg, err = u.segmenter.Segment(ctx, img, segentity.Params{
			Threshold:        cfg.SegmentationThreshold,
			MinRegionPixels:  cfg.MinRegionPixels,
			InferenceTimeout: cfg.InferenceTimeout,
		})
		return err
	}); err != nil {
		return nil, err
	}

	var regions []geoentity.RooftopRegion
	if err := u.stage(domain.StageResolve, func() (err error) {
		regions, err = u.resolver.Resolve(ctx, img, seg.Masks, geoentity.ViabilityPolicy{
			MinRegionArea:        cfg.MinRegionArea,
			MaxShadedFraction:    cfg.MaxShadedFraction,
			ShadowLuminanceRatio: cfg.ShadowLuminanceRatio,
		})
		return err
	}); err != nil {
		return nil, err
	}

	assumptions := buildAssumptions(cfg, site, seg.Backend)

	var (
		estimates []entity.RegionEstimate
		totals    entity.Totals
	)
	if err := u.stage(domain.StageEstimate, func() (err error) {
		estimates, totals, err = estimateEnergy(regions, energyParams{
			AnnualIrradiance: site.Profile.AnnualKWhPerM2,
			Efficiency:       assumptions.PanelEfficiency,
			PerformanceRatio: assumptions.PerformanceRatio,
			EmissionsFactor:  assumptions.EmissionsFactor,
			MonthlyFractions: site.Profile.MonthlyFractions(),
		})
		return err
	}); err != nil {
		return nil, err
	}

	var fin entity.Financials
	if err := u.stage(domain.StageProject, func() (err error) {
		fin, err = project(totals.ViableAreaM2, totals.AnnualEnergyKWh, financialParams{
			InstalledCostPerWatt: assumptions.InstalledCostPerWatt,
			WattageDensityPerM2:  assumptions.WattageDensityPerM2,
			ElectricityPrice:     assumptions.ElectricityPrice,
			IncentiveFraction:    assumptions.IncentiveFraction,
		})
		return err
	}); err != nil {
		return nil, err
	}

	result := &entity.EstimationResult{
		RunID:            uuid.New(),
		ImageHash:        img.Hash(),
		Width:            img.Width(),
		Height:           img.Height(),
		GSD:              img.GSD(),
		Regions:          estimates,
		Totals:           totals,
		Financials:       fin,
		Assumptions:      assumptions,
		DiscardedRegions: seg.DiscardedRegions,
		CreatedAt:        time.Now().UTC(),
	}

	if o.narrate && u.narrator != nil {
		text, err := u.narrator.Narrate(ctx, result)
		if err != nil {
			slog.Warn("narrative generation failed", "run_id", result.RunID, "error", err)
		} else {
			result.Narrative = text
		}
	}
	result.Elapsed = time.Since(start)

	if u.reports != nil {
		if err := u.reports.Record(ctx, result); err != nil {
			slog.Warn("failed to record report", "run_id", result.RunID, "error", err)
		}
	}

	slog.Info("estimation complete",
		"run_id", result.RunID,
		"location", assumptions.LocationID,
		"regions", totals.RegionCount,
		"viable", totals.ViableCount,
		"annual_kwh", totals.AnnualEnergyKWh,
		"elapsed", result.Elapsed)
	return result, nil
}

// buildAssumptions は設定値と地点の既定値から実際に使う前提を決めます。
// 排出係数・電気料金・設置単価は設定が0の場合に地点の既定値を使います。
func buildAssumptions(cfg *config.PipelineConfig, site *irrentity.SiteConditions, backend string) entity.Assumptions {
	a := entity.Assumptions{
		LocationID:            site.Profile.LocationID,
		LocationName:          site.Profile.DisplayName,
		AnnualIrradiance:      site.Profile.AnnualKWhPerM2,
		PanelEfficiency:       cfg.PanelEfficiency,
		PerformanceRatio:      cfg.PerformanceRatio,
		EmissionsFactor:       site.EmissionsFactor,
		ElectricityPrice:      site.Tariff.ElectricityPrice,
		InstalledCostPerWatt:  site.Tariff.InstalledCostPerWatt,
		WattageDensityPerM2:   cfg.WattageDensityPerM2,
		IncentiveFraction:     cfg.IncentiveFraction,
		SegmentationBackend:   backend,
		SegmentationThreshold: cfg.SegmentationThreshold,
		MinRegionArea:         cfg.MinRegionArea,
	}
	if cfg.EmissionsFactor > 0 {
		a.EmissionsFactor = cfg.EmissionsFactor
	}
	if cfg.ElectricityPrice > 0 {
		a.ElectricityPrice = cfg.ElectricityPrice
	}
	if cfg.InstalledCostPerWatt > 0 {
		a.InstalledCostPerWatt = cfg.InstalledCostPerWatt
	}
	return a
}

// BatchJob はEstimateBatchの入力1件です。
type BatchJob struct {
	Source     imgentity.Source
	LocationID string
}

// BatchResult はEstimateBatchの出力1件です。入力と同じ順序で返されます。
type BatchResult struct {
	Result *entity.EstimationResult
	Err    error
}

// EstimateBatch は複数の画像をcfg.BatchConcurrencyを上限に並行して推定します。
// 1件の失敗は他の件に影響しません。ctxがキャンセルされた場合、未着手の件はctxのエラーになります。
func (u *pipelineUsecase) EstimateBatch(ctx context.Context, jobs []BatchJob, cfg *config.PipelineConfig, opts ...EstimateOption) ([]BatchResult, error) {
	if cfg == nil {
		cfg = config.DefaultPipelineConfig()
	}
	if err := cfg.Validate(); err != nil {
		return nil, &domain.StageError{Stage: domain.StageConfigure, Err: err}
	}

	results := make([]BatchResult, len(jobs))
	var g errgroup.Group
	g.SetLimit(cfg.BatchConcurrency)
	for i, job := range jobs {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				results[i] = BatchResult{Err: err}
				return nil
			}
			res, err := u.Estimate(ctx, job.Source, job.LocationID, cfg, opts...)
			results[i] = BatchResult{Result: res, Err: err}
			return nil
		})
	}
	_ = g.Wait()

	failed := 0
	for _, r := range results {
		if r.Err != nil {
			failed++
		}
	}
	slog.Info("batch estimation complete", "jobs", len(jobs), "failed", failed)
	return results, nil
}

// IsNoRooftops は結果に屋根領域が1つもないかを返します。エラーとは区別されます。
func IsNoRooftops(result *entity.EstimationResult) bool {
	return result != nil && result.Totals.RegionCount == 0
}

// Describe はエラーを利用者向けの「どの段階で何が起きたか」に変換します。
func Describe(err error) string {
	if err == nil {
		return ""
	}
	if s := domain.StageOf(err); s != "" {
		var se *domain.StageError
		errors.As(err, &se)
		return fmt.Sprintf("%s: %v", s, se.Err)
	}
	return err.Error()
}
