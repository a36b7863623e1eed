package usecase_test

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/color"
	"image/png"
	"math"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"helioscope/internal/feature/imagery/adapters/codec"
	"helioscope/internal/feature/imagery/domain"
	"helioscope/internal/feature/imagery/domain/entity"
	"helioscope/internal/feature/imagery/usecase"
)

// mockImageDecoder はImageDecoderインターフェースのモック実装です。
type mockImageDecoder struct {
	DecodeFunc  func(data []byte) (*usecase.DecodedImage, error)
	DecodeCalls int
}

func (m *mockImageDecoder) Decode(data []byte) (*usecase.DecodedImage, error) {
	m.DecodeCalls++
	if m.DecodeFunc != nil {
		return m.DecodeFunc(data)
	}
	return nil, errors.New("DecodeFunc is not implemented")
}

// encodePNG はテスト用に単色のPNGを生成するヘルパー関数です。
func encodePNG(t *testing.T, w, h int, c color.Color) []byte {
	t.Helper()
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, c)
		}
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func TestLoaderUsecase_Load(t *testing.T) {
	ctx := context.Background()
	pngData := encodePNG(t, 4, 3, color.NRGBA{R: 200, G: 100, B: 50, A: 255})

	testCases := []struct {
		name        string
		src         entity.Source
		wantErr     error
		errContains string
		verify      func(t *testing.T, r *entity.RasterImage)
	}{
		{
			name: "success: png with metadata gsd",
			src:  entity.Source{Data: pngData, Metadata: entity.Metadata{GSD: 0.3, LocationID: "Austin, TX"}},
			verify: func(t *testing.T, r *entity.RasterImage) {
				assert.Equal(t, 4, r.Width())
				assert.Equal(t, 3, r.Height())
				assert.Equal(t, 3, r.Channels())
				assert.InDelta(t, 0.3, r.GSD(), 1e-12)
				assert.InDelta(t, 0.09, r.PixelArea(), 1e-12)
				assert.Equal(t, "Austin, TX", r.Geo().LocationID)
				assert.False(t, r.Geo().HasCoordinates)
				cr, cg, cb := r.RGB(2, 1)
				assert.Equal(t, []uint8{200, 100, 50}, []uint8{cr, cg, cb})
				assert.Len(t, r.Hash(), 64)
			},
		},
		{
			name:        "error: empty image data",
			src:         entity.Source{},
			wantErr:     domain.ErrInvalidImage,
			errContains: "image data is empty",
		},
		{
			name:        "error: undecodable bytes",
			src:         entity.Source{Data: []byte("not an image"), Metadata: entity.Metadata{GSD: 0.5}},
			wantErr:     domain.ErrInvalidImage,
			errContains: "decode failed",
		},
		{
			name:        "error: missing scale",
			src:         entity.Source{Data: pngData},
			wantErr:     domain.ErrMissingScale,
			errContains: "no GeoTIFF pixel scale",
		},
		{
			name:        "error: negative metadata gsd",
			src:         entity.Source{Data: pngData, Metadata: entity.Metadata{GSD: -1}},
			wantErr:     domain.ErrMissingScale,
			errContains: "not a positive number",
		},
		{
			name:        "error: elevation band with inconsistent dimensions",
			src:         entity.Source{Data: pngData, Metadata: entity.Metadata{GSD: 0.5, Elevation: make([]float32, 5)}},
			wantErr:     domain.ErrInvalidImage,
			errContains: "elevation band",
		},
	}

	uc := usecase.NewLoaderUsecase(codec.NewDecoder())
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			r, err := uc.Load(ctx, tc.src)

			if tc.wantErr != nil {
				require.Error(t, err)
				assert.ErrorIs(t, err, tc.wantErr)
				assert.Contains(t, err.Error(), tc.errContains)
				assert.Nil(t, r)
				return
			}
			require.NoError(t, err)
			tc.verify(t, r)
		})
	}
}

func TestLoaderUsecase_Load_TooLarge(t *testing.T) {
	dec := &mockImageDecoder{}
	uc := usecase.NewLoaderUsecase(dec)

	_, err := uc.Load(context.Background(), entity.Source{Data: make([]byte, usecase.MaxImageSize+1)})

	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrInvalidImage)
	assert.Equal(t, 0, dec.DecodeCalls, "decoder must not run on oversized input")
}

func TestLoaderUsecase_Load_GeoTIFFScale(t *testing.T) {
	img := image.NewGray(image.Rect(0, 0, 2, 2))
	img.Pix = []uint8{10, 20, 30, 40}

	testCases := []struct {
		name    string
		sx, sy  float64
		wantGSD float64
		wantErr error
	}{
		{name: "success: square pixels", sx: 0.5, sy: 0.5, wantGSD: 0.5},
		{name: "success: non-square pixels use geometric mean", sx: 0.25, sy: 1.0, wantGSD: 0.5},
		{name: "error: degree-based scale rejected", sx: 2.7e-6, sy: 2.7e-6, wantErr: domain.ErrMissingScale},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			dec := &mockImageDecoder{
				DecodeFunc: func(data []byte) (*usecase.DecodedImage, error) {
					return &usecase.DecodedImage{Image: img, Format: "tiff", PixelScaleX: tc.sx, PixelScaleY: tc.sy}, nil
				},
			}
			uc := usecase.NewLoaderUsecase(dec)

			r, err := uc.Load(context.Background(), entity.Source{Data: []byte("tiff")})

			if tc.wantErr != nil {
				assert.ErrorIs(t, err, tc.wantErr)
				return
			}
			require.NoError(t, err)
			assert.InDelta(t, tc.wantGSD, r.GSD(), 1e-12)
			// グレースケールはRGBに複製される
			cr, cg, cb := r.RGB(1, 1)
			assert.Equal(t, []uint8{40, 40, 40}, []uint8{cr, cg, cb})
		})
	}
}

func TestLoaderUsecase_LoadReader(t *testing.T) {
	lat, lon := 33.45, -112.07
	data := encodePNG(t, 2, 2, color.White)
	uc := usecase.NewLoaderUsecase(codec.NewDecoder())

	r, err := uc.LoadReader(context.Background(), bytes.NewReader(data), "tile.png", entity.Metadata{
		GSD:       1,
		Latitude:  &lat,
		Longitude: &lon,
		Elevation: []float32{1, 2, 3, 4},
	})

	require.NoError(t, err)
	assert.True(t, r.Geo().HasCoordinates)
	assert.InDelta(t, 33.45, r.Geo().Latitude, 1e-9)
	assert.True(t, r.HasElevation())
	assert.InDelta(t, 4.0, r.Elevation(1, 1), 1e-9)
}

func TestLoaderUsecase_LoadFile_NotFound(t *testing.T) {
	uc := usecase.NewLoaderUsecase(codec.NewDecoder())

	_, err := uc.LoadFile(context.Background(), "/nonexistent/helioscope.tif", entity.Metadata{GSD: 1})

	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrInvalidImage)
	assert.True(t, strings.Contains(err.Error(), "cannot open"))
}

func TestNewRasterImage_Immutable(t *testing.T) {
	pix := []uint8{1, 2, 3}
	r, err := entity.NewRasterImage(entity.RasterSpec{Width: 1, Height: 1, Pix: pix, GSD: 1})
	require.NoError(t, err)

	pix[0] = 99
	cr, _, _ := r.RGB(0, 0)
	assert.Equal(t, uint8(1), cr, "raster must not alias caller's buffer")
	assert.True(t, math.IsNaN(r.Elevation(0, 0)))
}
