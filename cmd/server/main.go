package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	redisv9 "github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	"helioscope/internal/app/di"
	"helioscope/internal/app/router"
	"helioscope/internal/config"
	estimationhandler "helioscope/internal/feature/estimation/transport/handler"
	reporthandler "helioscope/internal/feature/reports/transport/handler"
	infradb "helioscope/internal/platform/db"
	"helioscope/internal/platform/http/handler"
	jwtmw "helioscope/internal/platform/jwt"
	"helioscope/internal/platform/metrics"
	infraredis "helioscope/internal/platform/redis"
)

func main() {
	// .env はローカル開発用。本番では環境変数を直接設定する
	_ = godotenv.Load()

	level := slog.LevelInfo
	if err := level.UnmarshalText([]byte(os.Getenv("LOG_LEVEL"))); err != nil {
		level = slog.LevelInfo
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: level})))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load(os.Getenv("HELIOSCOPE_CONFIG"))
	if err != nil {
		slog.Error("failed to load pipeline config", "error", err)
		os.Exit(1)
	}

	checks := map[string]handler.Check{}

	// Redis
	var rdb *redisv9.Client
	if tmp, err := infraredis.NewRedisClient(ctx, infraredis.LoadConfig()); err != nil {
		slog.Warn("redis unavailable, running without cache", "error", err)
	} else {
		rdb = tmp
		checks["redis"] = func(ctx context.Context) error { return rdb.Ping(ctx).Err() }
		defer func() {
			if err := rdb.Close(); err != nil {
				slog.Error("failed to close redis client", "error", err)
			}
		}()
	}

	// db
	var db *gorm.DB
	if tmp, err := infradb.OpenDB(infradb.LoadConfigFromEnv()); err != nil {
		slog.Warn("database unavailable, reports disabled", "error", err)
	} else {
		db = tmp
		checks["database"] = func(ctx context.Context) error {
			sqlDB, err := db.DB()
			if err != nil {
				return err
			}
			return sqlDB.PingContext(ctx)
		}
	}

	recorder := metrics.NewRecorder()
	components, err := di.NewComponents(ctx, di.Options{
		Config:   cfg,
		Redis:    rdb,
		DB:       db,
		Metrics:  recorder,
		Narrator: os.Getenv("GEMINI_NARRATIVE") == "true",
	})
	if err != nil {
		slog.Error("failed to assemble pipeline", "error", err)
		os.Exit(1)
	}
	defer func() {
		if err := components.Close(); err != nil {
			slog.Error("failed to close components", "error", err)
		}
	}()

	h := router.Handlers{
		Estimate: estimationhandler.NewEstimateHandler(components.Pipeline, components.Sites, cfg),
		Metrics:  recorder,
		Checks:   checks,

		CORSOrigins: splitList(os.Getenv("CORS_ALLOW_ORIGINS")),
	}
	if components.Reports != nil {
		h.Reports = reporthandler.NewReportHandler(components.Reports)
	}
	r := router.NewRouter(h)

	// JWT_SECRETチェック（開発中の注意喚起）
	if !jwtmw.Enabled() {
		slog.Warn("JWT_SECRET is not set, /v1 is unauthenticated")
	}

	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}
	srv := &http.Server{
		Addr:              ":" + port,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			slog.Error("graceful shutdown failed", "error", err)
		}
	}()

	slog.Info("server starting", "port", port, "backend", components.Backend)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		slog.Error("server stopped", "error", err)
		os.Exit(1)
	}
}

func splitList(s string) []string {
	var out []string
	for _, v := range strings.Split(s, ",") {
		if v = strings.TrimSpace(v); v != "" {
			out = append(out, v)
		}
	}
	return out
}
