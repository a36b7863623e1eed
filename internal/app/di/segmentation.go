// Package di provides dependency injection factories for creating application components.
package di

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"time"

	"helioscope/internal/feature/segmentation/adapters/remote"
	"helioscope/internal/feature/segmentation/adapters/spectral"
	"helioscope/internal/feature/segmentation/adapters/vision"
	"helioscope/internal/feature/segmentation/usecase"
	infrahttp "helioscope/internal/platform/http"
	"helioscope/internal/shared/ratelimiter"
)

// Segmentation backend names accepted by SEGMENTATION_BACKEND.
const (
	BackendRemote   = "remote"
	BackendVision   = "vision"
	BackendSpectral = "spectral"
)

// defaultVisionRatePerMinute keeps Vision API usage under the default project quota.
const defaultVisionRatePerMinute = 60

// BackendFromEnv returns SEGMENTATION_BACKEND, defaulting to the remote model server
// when MODEL_SERVER_URL is set and to the offline spectral heuristic otherwise.
func BackendFromEnv() string {
	if b := os.Getenv("SEGMENTATION_BACKEND"); b != "" {
		return b
	}
	if os.Getenv("MODEL_SERVER_URL") != "" {
		return BackendRemote
	}
	return BackendSpectral
}

// NewRooftopModel creates the model backend by name. The returned closer releases
// backend resources and is never nil.
func NewRooftopModel(ctx context.Context, backend string, inferenceConcurrency int) (usecase.RooftopModel, func() error, error) {
	noop := func() error { return nil }

	switch backend {
	case BackendRemote:
		cfg := remote.LoadConfig()
		if cfg.BaseURL == "" {
			return nil, noop, fmt.Errorf("segmentation backend %q requires MODEL_SERVER_URL", backend)
		}
		client := infrahttp.NewHTTPClient(cfg.Timeout, inferenceConcurrency)
		return remote.NewModelServer(cfg, client), noop, nil

	case BackendVision:
		perMinute := defaultVisionRatePerMinute
		if v, err := strconv.Atoi(os.Getenv("VISION_RATE_PER_MINUTE")); err == nil {
			perMinute = v
		}
		m, err := vision.NewVisionRooftopModel(ctx, ratelimiter.NewRateLimiter(perMinute, time.Minute))
		if err != nil {
			return nil, noop, err
		}
		return m, m.Close, nil

	case BackendSpectral:
		return spectral.NewHeuristicModel(), noop, nil
	}
	return nil, noop, fmt.Errorf("unknown segmentation backend %q (want %s, %s or %s)", backend, BackendRemote, BackendVision, BackendSpectral)
}
