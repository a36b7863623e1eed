package di

import (
	"bytes"
	"context"
	"image"
	"image/color"
	"image/png"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"helioscope/internal/config"
	imgentity "helioscope/internal/feature/imagery/domain/entity"
	reportadapters "helioscope/internal/feature/reports/adapters"
	"helioscope/internal/platform/metrics"
)

// roofPNG は緑地の中央に明るい灰色の20x20画素の屋根がある40x40のPNGを生成します。
func roofPNG(t *testing.T) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 40, 40))
	for y := 0; y < 40; y++ {
		for x := 0; x < 40; x++ {
			c := color.RGBA{R: 40, G: 160, B: 40, A: 255}
			if x >= 10 && x < 30 && y >= 10 && y < 30 {
				c = color.RGBA{R: 200, G: 200, B: 200, A: 255}
			}
			img.Set(x, y, c)
		}
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func TestBackendFromEnv(t *testing.T) {
	tests := []struct {
		name     string
		backend  string
		modelURL string
		want     string
	}{
		{"explicit backend wins", "vision", "http://model:8501", BackendVision},
		{"model server configured", "", "http://model:8501", BackendRemote},
		{"offline default", "", "", BackendSpectral},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("SEGMENTATION_BACKEND", tt.backend)
			t.Setenv("MODEL_SERVER_URL", tt.modelURL)

			assert.Equal(t, tt.want, BackendFromEnv())
		})
	}
}

func TestNewRooftopModel(t *testing.T) {
	t.Run("success: spectral", func(t *testing.T) {
		m, closeFn, err := NewRooftopModel(context.Background(), BackendSpectral, 2)
		require.NoError(t, err)
		assert.Equal(t, "spectral", m.Name())
		assert.NoError(t, closeFn())
	})

	t.Run("success: remote", func(t *testing.T) {
		t.Setenv("MODEL_SERVER_URL", "http://model:8501")
		m, _, err := NewRooftopModel(context.Background(), BackendRemote, 2)
		require.NoError(t, err)
		assert.Equal(t, "remote", m.Name())
	})

	t.Run("error: remote without url", func(t *testing.T) {
		t.Setenv("MODEL_SERVER_URL", "")
		_, closeFn, err := NewRooftopModel(context.Background(), BackendRemote, 2)
		assert.ErrorContains(t, err, "MODEL_SERVER_URL")
		assert.NotNil(t, closeFn)
	})

	t.Run("error: unknown backend", func(t *testing.T) {
		_, _, err := NewRooftopModel(context.Background(), "tensorflow", 2)
		assert.ErrorContains(t, err, "unknown segmentation backend")
	})
}

func TestNewComponents_InvalidConfig(t *testing.T) {
	cfg := config.DefaultPipelineConfig()
	cfg.PerformanceRatio = 2

	_, err := NewComponents(context.Background(), Options{Config: cfg, Backend: BackendSpectral})

	assert.ErrorIs(t, err, config.ErrInvalidConfig)
}

func TestNewComponents_EndToEnd(t *testing.T) {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&reportadapters.ReportModel{}))

	c, err := NewComponents(context.Background(), Options{
		Backend: BackendSpectral,
		DB:      db,
		Metrics: metrics.NewRecorder(),
	})
	require.NoError(t, err)
	defer func() { assert.NoError(t, c.Close()) }()

	src := imgentity.Source{Data: roofPNG(t), Filename: "roof.png", Metadata: imgentity.Metadata{GSD: 0.5}}
	res, err := c.Pipeline.Estimate(context.Background(), src, "Phoenix, AZ", nil)
	require.NoError(t, err)

	require.Equal(t, 1, res.Totals.RegionCount)
	assert.Equal(t, 1, res.Totals.ViableCount)
	// 400 px × 0.25 m² = 100 m²、× 2100 × 0.20 × 0.80 = 33600 kWh
	assert.InDelta(t, 100.0, res.Totals.ViableAreaM2, 1e-9)
	assert.InDelta(t, 33600.0, res.Totals.AnnualEnergyKWh, 1e-6)
	assert.Equal(t, "spectral", res.Assumptions.SegmentationBackend)
	assert.True(t, res.Financials.BreakEven.Achievable)

	require.NotNil(t, c.Reports)
	report, err := c.Reports.Get(context.Background(), res.RunID)
	require.NoError(t, err)
	assert.Equal(t, "phoenix-az", report.LocationID)
	assert.InDelta(t, 33600.0, report.AnnualEnergyKWh, 1e-6)

	locs, err := c.Sites.Locations(context.Background())
	require.NoError(t, err)
	assert.Len(t, locs, 5)
}
