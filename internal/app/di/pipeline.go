package di

import (
	"context"
	"errors"
	"log/slog"

	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	"helioscope/internal/config"
	"helioscope/internal/feature/estimation/adapters/gemini"
	estimationhandler "helioscope/internal/feature/estimation/transport/handler"
	estimationusecase "helioscope/internal/feature/estimation/usecase"
	geometryusecase "helioscope/internal/feature/geometry/usecase"
	"helioscope/internal/feature/imagery/adapters/codec"
	imageryusecase "helioscope/internal/feature/imagery/usecase"
	"helioscope/internal/feature/irradiance/adapters/static"
	irradianceusecase "helioscope/internal/feature/irradiance/usecase"
	reportadapters "helioscope/internal/feature/reports/adapters"
	reporthandler "helioscope/internal/feature/reports/transport/handler"
	reportusecase "helioscope/internal/feature/reports/usecase"
	segmentationusecase "helioscope/internal/feature/segmentation/usecase"
	"helioscope/internal/platform/cache"
	"helioscope/internal/platform/metrics"
)

// Pipeline is the estimation entry point used by the HTTP handler and the CLI.
type Pipeline interface {
	estimationhandler.EstimationUsecase
	EstimateBatch(ctx context.Context, jobs []estimationusecase.BatchJob, cfg *config.PipelineConfig, opts ...estimationusecase.EstimateOption) ([]estimationusecase.BatchResult, error)
}

// Sites resolves and lists supported locations.
type Sites interface {
	estimationusecase.SiteResolver
	estimationhandler.LocationUsecase
}

// Options selects the optional infrastructure. Nil Redis/DB/Metrics disable the
// corresponding feature.
type Options struct {
	Config  *config.PipelineConfig
	Backend string
	Redis   *redis.Client
	DB      *gorm.DB
	Metrics *metrics.Recorder
	// Narrator enables Gemini narratives. Failing to create the client is logged, not fatal.
	Narrator bool
}

// Components holds the assembled application graph.
type Components struct {
	Pipeline Pipeline
	Sites    Sites
	Reports  reporthandler.ReportUsecase // nil without a database
	Backend  string

	closers []func() error
}

// Close releases backend clients.
func (c *Components) Close() error {
	var errs []error
	for _, fn := range c.closers {
		errs = append(errs, fn())
	}
	return errors.Join(errs...)
}

// NewComponents wires loader, location catalog, segmentation engine, geometry
// resolver and estimator into a pipeline.
func NewComponents(ctx context.Context, opts Options) (*Components, error) {
	cfg := opts.Config
	if cfg == nil {
		cfg = config.DefaultPipelineConfig()
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	backend := opts.Backend
	if backend == "" {
		backend = BackendFromEnv()
	}

	model, closeModel, err := NewRooftopModel(ctx, backend, cfg.InferenceConcurrency)
	if err != nil {
		return nil, err
	}
	c := &Components{Backend: backend, closers: []func() error{closeModel}}

	// Location catalog, optionally behind Redis
	catalog := static.NewCatalog()
	var profiles irradianceusecase.ProfileRepository = catalog
	if opts.Redis != nil {
		cached := cache.NewCachingProfileRepository(opts.Redis, 0, catalog, "")
		if err := cached.Purge(ctx); err != nil {
			slog.Warn("failed to purge irradiance cache", "error", err)
		}
		profiles = cached
	}
	sites := irradianceusecase.NewIrradianceUsecase(profiles, catalog, catalog)
	c.Sites = sites

	var pipelineOpts []estimationusecase.Option
	if opts.Metrics != nil {
		pipelineOpts = append(pipelineOpts, estimationusecase.WithStageRecorder(opts.Metrics))
	}
	if opts.DB != nil {
		reports := reportusecase.NewReportUsecase(reportadapters.NewReportRepository(opts.DB))
		pipelineOpts = append(pipelineOpts, estimationusecase.WithReportRecorder(reports))
		c.Reports = reports
	}
	if opts.Narrator {
		n, err := gemini.NewGeminiNarrator(ctx)
		if err != nil {
			slog.Warn("narratives disabled", "error", err)
		} else {
			pipelineOpts = append(pipelineOpts, estimationusecase.WithNarrator(n))
		}
	}

	c.Pipeline = estimationusecase.NewPipelineUsecase(
		imageryusecase.NewLoaderUsecase(codec.NewDecoder()),
		sites,
		segmentationusecase.NewSegmentationUsecase(model, cfg.InferenceConcurrency),
		geometryusecase.NewResolverUsecase(),
		pipelineOpts...,
	)

	slog.Info("pipeline assembled",
		"backend", backend,
		"cache", opts.Redis != nil,
		"reports", opts.DB != nil,
		"metrics", opts.Metrics != nil)
	return c, nil
}
