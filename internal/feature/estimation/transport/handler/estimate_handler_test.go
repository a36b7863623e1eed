package handler_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"helioscope/internal/api"
	"helioscope/internal/config"
	"helioscope/internal/feature/estimation/domain"
	"helioscope/internal/feature/estimation/domain/entity"
	"helioscope/internal/feature/estimation/transport/handler"
	"helioscope/internal/feature/estimation/usecase"
	geoentity "helioscope/internal/feature/geometry/domain/entity"
	imgdomain "helioscope/internal/feature/imagery/domain"
	imgentity "helioscope/internal/feature/imagery/domain/entity"
	irrdomain "helioscope/internal/feature/irradiance/domain"
	irrentity "helioscope/internal/feature/irradiance/domain/entity"
	segdomain "helioscope/internal/feature/segmentation/domain"
)

// mockEstimationUsecase はEstimationUsecaseインターフェースのモック実装です。
type mockEstimationUsecase struct {
	EstimateFunc func(ctx context.Context, src imgentity.Source, locationID string, cfg *config.PipelineConfig, opts ...usecase.EstimateOption) (*entity.EstimationResult, error)
}

func (m *mockEstimationUsecase) Estimate(ctx context.Context, src imgentity.Source, locationID string, cfg *config.PipelineConfig, opts ...usecase.EstimateOption) (*entity.EstimationResult, error) {
	if m.EstimateFunc != nil {
		return m.EstimateFunc(ctx, src, locationID, cfg, opts...)
	}
	return nil, errors.New("EstimateFunc is not implemented")
}

// mockLocationUsecase はLocationUsecaseインターフェースのモック実装です。
type mockLocationUsecase struct {
	LocationsFunc func(ctx context.Context) ([]irrentity.SiteConditions, error)
}

func (m *mockLocationUsecase) Locations(ctx context.Context) ([]irrentity.SiteConditions, error) {
	return m.LocationsFunc(ctx)
}

// createEstimateRequest はテスト用のマルチパートリクエストを生成するヘルパー関数です。
func createEstimateRequest(t *testing.T, image []byte, fields map[string]string) *http.Request {
	t.Helper()

	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)
	if image != nil {
		part, err := writer.CreateFormFile("image", "roof.png")
		require.NoError(t, err)
		_, err = part.Write(image)
		require.NoError(t, err)
	}
	for k, v := range fields {
		require.NoError(t, writer.WriteField(k, v))
	}
	require.NoError(t, writer.Close())

	req, err := http.NewRequest(http.MethodPost, "/v1/estimates", body)
	require.NoError(t, err)
	req.Header.Set("Content-Type", writer.FormDataContentType())
	return req
}

func phoenixResult() *entity.EstimationResult {
	tilt := 18.0
	return &entity.EstimationResult{
		RunID:     uuid.MustParse("7b0f4c3e-2d7a-4f53-9a52-5a2f0a1c9e11"),
		ImageHash: "9f86d081",
		Width:     20, Height: 20, GSD: 0.5,
		Regions: []entity.RegionEstimate{{
			Region: geoentity.RooftopRegion{
				MaskID: 1, PixelCount: 100, AreaM2: 25, Viable: true,
				Orientation: geoentity.Orientation{Facing: geoentity.FacingS, TiltClass: geoentity.TiltLow, Confidence: geoentity.ConfidenceHigh, TiltDeg: &tilt},
			},
			AnnualEnergyKWh: 8400,
			CarbonOffsetKg:  3360,
		}},
		Totals: entity.Totals{RegionCount: 1, ViableCount: 1, TotalAreaM2: 25, ViableAreaM2: 25, AnnualEnergyKWh: 8400, CarbonOffsetKg: 3360},
		Financials: entity.Financials{
			SystemSizeW: 5000, Panels: 1, GrossCost: 5750, NetCost: 5750, AnnualSavings: 1176,
			BreakEven: entity.BreakEven{Achievable: true, Years: 5750.0 / 1176.0},
			AnnualROI: 1176.0 / 5750.0,
		},
		Assumptions: entity.Assumptions{LocationID: "phoenix-az", LocationName: "Phoenix, AZ", AnnualIrradiance: 2100},
		Elapsed:     1500 * time.Millisecond,
	}
}

func TestEstimateHandler_Estimate(t *testing.T) {
	gin.SetMode(gin.TestMode)

	var (
		gotSrc      imgentity.Source
		gotLocation string
		gotCfg      *config.PipelineConfig
		gotOpts     int
	)
	uc := &mockEstimationUsecase{EstimateFunc: func(ctx context.Context, src imgentity.Source, locationID string, cfg *config.PipelineConfig, opts ...usecase.EstimateOption) (*entity.EstimationResult, error) {
		gotSrc, gotLocation, gotCfg, gotOpts = src, locationID, cfg, len(opts)
		return phoenixResult(), nil
	}}
	base := config.DefaultPipelineConfig()
	h := handler.NewEstimateHandler(uc, nil, base)
	router := gin.New()
	router.POST("/v1/estimates", h.Estimate)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, createEstimateRequest(t, []byte("png-bytes"), map[string]string{
		"location":        "Phoenix",
		"gsd":             "0.5",
		"latitude":        "33.45",
		"panelEfficiency": "0.22",
		"emissionsFactor": "0.4",
		"narrate":         "true",
	}))

	require.Equal(t, http.StatusOK, w.Code)
	var resp api.EstimateResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "7b0f4c3e-2d7a-4f53-9a52-5a2f0a1c9e11", resp.RunID.String())
	assert.InDelta(t, 8400, resp.Totals.AnnualEnergyKWh, 1e-9)
	assert.InDelta(t, 5.0, resp.Financials.SystemSizeKW, 1e-9)
	assert.Equal(t, 1, resp.Financials.Panels)
	require.NotNil(t, resp.Financials.BreakEvenYears)
	assert.InDelta(t, 5750.0/1176.0, *resp.Financials.BreakEvenYears, 1e-9)
	require.Len(t, resp.Regions, 1)
	assert.Equal(t, "S", resp.Regions[0].Orientation.Facing)
	assert.False(t, resp.NoRooftops)
	assert.Equal(t, int64(1500), resp.ElapsedMs)

	assert.Equal(t, []byte("png-bytes"), gotSrc.Data)
	assert.Equal(t, "roof.png", gotSrc.Filename)
	assert.InDelta(t, 0.5, gotSrc.Metadata.GSD, 1e-12)
	require.NotNil(t, gotSrc.Metadata.Latitude)
	assert.InDelta(t, 33.45, *gotSrc.Metadata.Latitude, 1e-12)
	assert.Nil(t, gotSrc.Metadata.Longitude)
	assert.Equal(t, "Phoenix", gotLocation)
	assert.InDelta(t, 0.22, gotCfg.PanelEfficiency, 1e-12)
	assert.InDelta(t, 0.4, gotCfg.EmissionsFactor, 1e-12)
	assert.InDelta(t, 0.20, base.PanelEfficiency, 1e-12, "base config must not be modified")
	assert.Equal(t, 1, gotOpts)
}

func TestEstimateHandler_Estimate_NotAchievableHasNullYears(t *testing.T) {
	gin.SetMode(gin.TestMode)

	uc := &mockEstimationUsecase{EstimateFunc: func(ctx context.Context, src imgentity.Source, locationID string, cfg *config.PipelineConfig, opts ...usecase.EstimateOption) (*entity.EstimationResult, error) {
		return &entity.EstimationResult{RunID: uuid.New()}, nil
	}}
	h := handler.NewEstimateHandler(uc, nil, nil)
	router := gin.New()
	router.POST("/v1/estimates", h.Estimate)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, createEstimateRequest(t, []byte("x"), nil))

	require.Equal(t, http.StatusOK, w.Code)
	var raw map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &raw))
	assert.Equal(t, true, raw["no_rooftops"])
	fin := raw["financials"].(map[string]any)
	assert.Nil(t, fin["break_even_years"])
	assert.Equal(t, false, fin["break_even_achievable"])
}

func TestEstimateHandler_Estimate_Errors(t *testing.T) {
	gin.SetMode(gin.TestMode)

	stageErr := func(s domain.Stage, err error) error { return &domain.StageError{Stage: s, Err: err} }

	tests := []struct {
		name           string
		image          []byte
		fields         map[string]string
		ucErr          error
		expectedStatus int
		expectedBody   string
	}{
		{
			name:           "error: no image field",
			expectedStatus: http.StatusBadRequest,
			expectedBody:   `{"error":"image file is required","stage":"load"}`,
		},
		{
			name:           "error: malformed gsd",
			image:          []byte("x"),
			fields:         map[string]string{"gsd": "half"},
			expectedStatus: http.StatusBadRequest,
			expectedBody:   `{"error":"gsd must be a number: \"half\"","stage":"load"}`,
		},
		{
			name:           "error: malformed override",
			image:          []byte("x"),
			fields:         map[string]string{"minRegionPixels": "many"},
			expectedStatus: http.StatusBadRequest,
		},
		{
			name:           "error: inference concurrency is fixed by the server",
			image:          []byte("x"),
			fields:         map[string]string{"inferenceConcurrency": "64"},
			expectedStatus: http.StatusBadRequest,
		},
		{
			name:           "error: batch concurrency is fixed by the server",
			image:          []byte("x"),
			fields:         map[string]string{"batchConcurrency": "8"},
			expectedStatus: http.StatusBadRequest,
		},
		{
			name:           "error: unbounded inference timeout",
			image:          []byte("x"),
			fields:         map[string]string{"inferenceTimeout": "0s"},
			expectedStatus: http.StatusBadRequest,
		},
		{
			name:           "error: inference timeout above server limit",
			image:          []byte("x"),
			fields:         map[string]string{"inferenceTimeout": "10m"},
			expectedStatus: http.StatusBadRequest,
		},
		{
			name:           "error: unsupported location lists supported",
			image:          []byte("x"),
			ucErr:          stageErr(domain.StageLocate, &irrdomain.UnsupportedLocationError{Requested: "Unknown City", Supported: []string{"Austin, TX", "Phoenix, AZ"}}),
			expectedStatus: http.StatusBadRequest,
			expectedBody:   `{"error":"unsupported location \"Unknown City\" (supported: Austin, TX, Phoenix, AZ)","stage":"locate","supported":["Austin, TX","Phoenix, AZ"]}`,
		},
		{
			name:           "error: invalid image",
			image:          []byte("x"),
			ucErr:          stageErr(domain.StageLoad, &imgdomain.InvalidImageError{Reason: "unknown format"}),
			expectedStatus: http.StatusBadRequest,
			expectedBody:   `{"error":"invalid image: unknown format","stage":"load"}`,
		},
		{
			name:           "error: missing scale",
			image:          []byte("x"),
			ucErr:          stageErr(domain.StageLoad, &imgdomain.MissingScaleError{Reason: "no gsd"}),
			expectedStatus: http.StatusBadRequest,
			expectedBody:   `{"error":"missing ground-sample distance: no gsd","stage":"load"}`,
		},
		{
			name:           "error: segmentation unavailable",
			image:          []byte("x"),
			ucErr:          stageErr(domain.StageSegment, &segdomain.SegmentationUnavailableError{Backend: "remote", Reason: "timed out"}),
			expectedStatus: http.StatusServiceUnavailable,
		},
		{
			name:           "error: invariant violation",
			image:          []byte("x"),
			ucErr:          stageErr(domain.StageEstimate, &domain.InvariantViolationError{Quantity: "annual energy", Value: -1}),
			expectedStatus: http.StatusInternalServerError,
			expectedBody:   `{"error":"invariant violation: annual energy = -1","stage":"estimate"}`,
		},
		{
			name:           "error: invalid config",
			image:          []byte("x"),
			ucErr:          stageErr(domain.StageConfigure, config.ErrInvalidConfig),
			expectedStatus: http.StatusBadRequest,
			expectedBody:   `{"error":"invalid configuration","stage":"configure"}`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			uc := &mockEstimationUsecase{EstimateFunc: func(ctx context.Context, src imgentity.Source, locationID string, cfg *config.PipelineConfig, opts ...usecase.EstimateOption) (*entity.EstimationResult, error) {
				return nil, tt.ucErr
			}}
			h := handler.NewEstimateHandler(uc, nil, nil)
			router := gin.New()
			router.POST("/v1/estimates", h.Estimate)

			w := httptest.NewRecorder()
			router.ServeHTTP(w, createEstimateRequest(t, tt.image, tt.fields))

			assert.Equal(t, tt.expectedStatus, w.Code)
			if tt.expectedBody != "" {
				assert.JSONEq(t, tt.expectedBody, w.Body.String())
			}
		})
	}
}

func TestEstimateHandler_Locations(t *testing.T) {
	gin.SetMode(gin.TestMode)

	tests := []struct {
		name           string
		mockFunc       func(ctx context.Context) ([]irrentity.SiteConditions, error)
		expectedStatus int
		expectedLen    int
	}{
		{
			name: "success: lists locations",
			mockFunc: func(ctx context.Context) ([]irrentity.SiteConditions, error) {
				return []irrentity.SiteConditions{
					{Profile: irrentity.IrradianceProfile{LocationID: "phoenix-az", DisplayName: "Phoenix, AZ", AnnualKWhPerM2: 2100}, EmissionsFactor: 0.36},
					{Profile: irrentity.IrradianceProfile{LocationID: "austin-tx", DisplayName: "Austin, TX", AnnualKWhPerM2: 1974.65}, EmissionsFactor: 0.37},
				}, nil
			},
			expectedStatus: http.StatusOK,
			expectedLen:    2,
		},
		{
			name: "error: lookup fails",
			mockFunc: func(ctx context.Context) ([]irrentity.SiteConditions, error) {
				return nil, errors.New("catalog unavailable")
			},
			expectedStatus: http.StatusInternalServerError,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := handler.NewEstimateHandler(nil, &mockLocationUsecase{LocationsFunc: tt.mockFunc}, nil)
			router := gin.New()
			router.GET("/v1/locations", h.Locations)

			w := httptest.NewRecorder()
			req, _ := http.NewRequest(http.MethodGet, "/v1/locations", nil)
			router.ServeHTTP(w, req)

			assert.Equal(t, tt.expectedStatus, w.Code)
			if tt.expectedStatus == http.StatusOK {
				var out []api.LocationResponse
				require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out))
				assert.Len(t, out, tt.expectedLen)
				assert.Equal(t, "phoenix-az", out[0].ID)
				assert.InDelta(t, 0.36, out[0].EmissionsFactor, 1e-12)
			}
		})
	}
}
