// Package handler はestimationフィーチャーのHTTPハンドラーを提供します。
package handler

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"helioscope/internal/api"
	"helioscope/internal/config"
	"helioscope/internal/feature/estimation/domain"
	"helioscope/internal/feature/estimation/domain/entity"
	"helioscope/internal/feature/estimation/usecase"
	imgdomain "helioscope/internal/feature/imagery/domain"
	imgentity "helioscope/internal/feature/imagery/domain/entity"
	imgusecase "helioscope/internal/feature/imagery/usecase"
	irrdomain "helioscope/internal/feature/irradiance/domain"
	irrentity "helioscope/internal/feature/irradiance/domain/entity"
	segdomain "helioscope/internal/feature/segmentation/domain"
)

// EstimationUsecase は推定パイプラインのユースケースインターフェースを定義します。
// Goの慣例に従い、インターフェースは利用者（handler）側で定義します。
type EstimationUsecase interface {
	Estimate(ctx context.Context, src imgentity.Source, locationID string, cfg *config.PipelineConfig, opts ...usecase.EstimateOption) (*entity.EstimationResult, error)
}

// LocationUsecase は対応地点の一覧を返すユースケースインターフェースです。
type LocationUsecase interface {
	Locations(ctx context.Context) ([]irrentity.SiteConditions, error)
}

// EstimateHandler は推定・地点一覧のHTTPリクエストを処理します。
type EstimateHandler struct {
	uc        EstimationUsecase
	locations LocationUsecase
	base      *config.PipelineConfig
}

// NewEstimateHandler はEstimateHandlerの新しいインスタンスを生成します。
// baseはリクエストごとの上書きの起点となる設定で、変更されません。
func NewEstimateHandler(uc EstimationUsecase, locations LocationUsecase, base *config.PipelineConfig) *EstimateHandler {
	if base == nil {
		base = config.DefaultPipelineConfig()
	}
	return &EstimateHandler{uc: uc, locations: locations, base: base}
}

// Estimate は画像をアップロードして屋根の太陽光発電ポテンシャルを推定します。
//
// エンドポイント: POST /v1/estimates
// Content-Type: multipart/form-data
// フィールド: image（必須）, location, gsd, latitude, longitude, narrate,
// および設定キー（panelEfficiency など）による上書き
func (h *EstimateHandler) Estimate(c *gin.Context) {
	file, err := c.FormFile("image")
	if err != nil {
		slog.Warn("image file missing", "error", err, "remote_addr", c.ClientIP())
		c.JSON(http.StatusBadRequest, api.ErrorResponse{Error: "image file is required", Stage: string(domain.StageLoad)})
		return
	}
	if file.Size > imgusecase.MaxImageSize {
		c.JSON(http.StatusBadRequest, api.ErrorResponse{
			Error: fmt.Sprintf("image size exceeds maximum of %d bytes", imgusecase.MaxImageSize),
			Stage: string(domain.StageLoad),
		})
		return
	}

	f, err := file.Open()
	if err != nil {
		slog.Error("failed to open image file", "error", err)
		c.JSON(http.StatusInternalServerError, api.ErrorResponse{Error: "failed to read image"})
		return
	}
	defer func() {
		if err := f.Close(); err != nil {
			slog.Warn("failed to close image file", "error", err)
		}
	}()

	data, err := io.ReadAll(f)
	if err != nil {
		slog.Error("failed to read image data", "error", err)
		c.JSON(http.StatusInternalServerError, api.ErrorResponse{Error: "failed to read image"})
		return
	}

	meta, err := parseMetadata(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, api.ErrorResponse{Error: err.Error(), Stage: string(domain.StageLoad)})
		return
	}
	cfg, err := h.requestConfig(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, api.ErrorResponse{Error: err.Error(), Stage: string(domain.StageConfigure)})
		return
	}

	var opts []usecase.EstimateOption
	if narrate, _ := strconv.ParseBool(c.PostForm("narrate")); narrate {
		opts = append(opts, usecase.WithNarrative())
	}

	src := imgentity.Source{Data: data, Filename: file.Filename, Metadata: meta}
	result, err := h.uc.Estimate(c.Request.Context(), src, c.PostForm("location"), cfg, opts...)
	if err != nil {
		status, body := errorResponse(err)
		if status >= http.StatusInternalServerError {
			slog.Error("estimation failed", "error", err, "stage", body.Stage)
		} else {
			slog.Warn("estimation rejected", "error", err, "stage", body.Stage)
		}
		c.JSON(status, body)
		return
	}

	c.JSON(http.StatusOK, ToEstimateResponse(result))
}

// Locations は対応地点の一覧を返します。
//
// エンドポイント: GET /v1/locations
func (h *EstimateHandler) Locations(c *gin.Context) {
	locs, err := h.locations.Locations(c.Request.Context())
	if err != nil {
		slog.Error("failed to list locations", "error", err)
		c.JSON(http.StatusInternalServerError, api.ErrorResponse{Error: "failed to list locations"})
		return
	}
	out := make([]api.LocationResponse, 0, len(locs))
	for _, l := range locs {
		out = append(out, ToLocationResponse(l))
	}
	c.JSON(http.StatusOK, out)
}

// parseMetadata はgsd・緯度経度のフォームフィールドを読み取ります。
func parseMetadata(c *gin.Context) (imgentity.Metadata, error) {
	var meta imgentity.Metadata
	if v := c.PostForm("gsd"); v != "" {
		gsd, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return meta, fmt.Errorf("gsd must be a number: %q", v)
		}
		meta.GSD = gsd
	}
	for _, f := range []struct {
		name string
		dst  **float64
	}{{"latitude", &meta.Latitude}, {"longitude", &meta.Longitude}} {
		v := c.PostForm(f.name)
		if v == "" {
			continue
		}
		x, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return meta, fmt.Errorf("%s must be a number: %q", f.name, v)
		}
		*f.dst = &x
	}
	return meta, nil
}

// serverOnlyKeys はパイプライン構築時に固定される設定で、リクエストごとには変更できません。
var serverOnlyKeys = map[string]bool{
	"inferenceConcurrency": true,
	"batchConcurrency":     true,
}

// requestConfig は基本設定を複製し、フォームで指定されたキーだけを上書きします。
// 推論タイムアウトは短くすることだけを許可します。
func (h *EstimateHandler) requestConfig(c *gin.Context) (*config.PipelineConfig, error) {
	cfg := h.base.Clone()
	for _, key := range config.Keys {
		v, ok := c.GetPostForm(key)
		if !ok {
			continue
		}
		if serverOnlyKeys[key] {
			return nil, fmt.Errorf("%w: %s cannot be set per request", config.ErrInvalidConfig, key)
		}
		if err := cfg.Set(key, v); err != nil {
			return nil, err
		}
	}
	if _, ok := c.GetPostForm("inferenceTimeout"); ok && (cfg.InferenceTimeout <= 0 || (h.base.InferenceTimeout > 0 && cfg.InferenceTimeout > h.base.InferenceTimeout)) {
		return nil, fmt.Errorf("%w: inferenceTimeout=%s must be in (0, %s]", config.ErrInvalidConfig, cfg.InferenceTimeout, h.base.InferenceTimeout)
	}
	return cfg, nil
}

// errorResponse はパイプラインのエラーをHTTPステータスとレスポンスに変換します。
func errorResponse(err error) (int, api.ErrorResponse) {
	body := api.ErrorResponse{Error: err.Error(), Stage: string(domain.StageOf(err))}
	var se *domain.StageError
	if errors.As(err, &se) {
		body.Error = se.Err.Error()
	}

	var unsupported *irrdomain.UnsupportedLocationError
	switch {
	case errors.As(err, &unsupported):
		body.Supported = unsupported.Supported
		return http.StatusBadRequest, body
	case errors.Is(err, imgdomain.ErrInvalidImage),
		errors.Is(err, imgdomain.ErrMissingScale),
		errors.Is(err, config.ErrInvalidConfig):
		return http.StatusBadRequest, body
	case errors.Is(err, segdomain.ErrSegmentationUnavailable):
		return http.StatusServiceUnavailable, body
	default:
		return http.StatusInternalServerError, body
	}
}
