package vision

import (
	"context"
	"errors"
	"testing"

	visionpb "cloud.google.com/go/vision/v2/apiv1/visionpb"
	"github.com/googleapis/gax-go/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/genproto/googleapis/rpc/status"

	imgentity "helioscope/internal/feature/imagery/domain/entity"
)

// mockAnnotator はimageAnnotatorインターフェースのモック実装です。
type mockAnnotator struct {
	BatchAnnotateImagesFunc func(ctx context.Context, req *visionpb.BatchAnnotateImagesRequest) (*visionpb.BatchAnnotateImagesResponse, error)
	LastRequest             *visionpb.BatchAnnotateImagesRequest
}

func (m *mockAnnotator) BatchAnnotateImages(ctx context.Context, req *visionpb.BatchAnnotateImagesRequest, _ ...gax.CallOption) (*visionpb.BatchAnnotateImagesResponse, error) {
	m.LastRequest = req
	if m.BatchAnnotateImagesFunc != nil {
		return m.BatchAnnotateImagesFunc(ctx, req)
	}
	return nil, errors.New("BatchAnnotateImagesFunc is not implemented")
}

func (m *mockAnnotator) Close() error { return nil }

// mockLimiter はWaitの呼び出し回数を数えます。
type mockLimiter struct {
	err   error
	calls int
}

func (l *mockLimiter) Wait(ctx context.Context) error {
	l.calls++
	return l.err
}

func newRaster(t *testing.T, w, h int) *imgentity.RasterImage {
	t.Helper()
	r, err := imgentity.NewRasterImage(imgentity.RasterSpec{Width: w, Height: h, Pix: make([]uint8, w*h*3), GSD: 0.3})
	require.NoError(t, err)
	return r
}

func box(name string, score float32, x0, y0, x1, y1 float32) *visionpb.LocalizedObjectAnnotation {
	return &visionpb.LocalizedObjectAnnotation{
		Name:  name,
		Score: score,
		BoundingPoly: &visionpb.BoundingPoly{NormalizedVertices: []*visionpb.NormalizedVertex{
			{X: x0, Y: y0}, {X: x1, Y: y0}, {X: x1, Y: y1}, {X: x0, Y: y1},
		}},
	}
}

func TestVisionRooftopModel_Infer(t *testing.T) {
	annotator := &mockAnnotator{
		BatchAnnotateImagesFunc: func(ctx context.Context, req *visionpb.BatchAnnotateImagesRequest) (*visionpb.BatchAnnotateImagesResponse, error) {
			return &visionpb.BatchAnnotateImagesResponse{Responses: []*visionpb.AnnotateImageResponse{{
				LocalizedObjectAnnotations: []*visionpb.LocalizedObjectAnnotation{
					box("House", 0.9, 0, 0, 0.5, 0.5),
					box("Car", 0.99, 0.5, 0.5, 1, 1),
					box("Roof", 0.7, 0.25, 0.25, 0.75, 0.75),
				},
			}}}, nil
		},
	}
	limiter := &mockLimiter{}
	m := &VisionRooftopModel{client: annotator, limiter: limiter}

	probs, err := m.Infer(context.Background(), newRaster(t, 20, 20))

	require.NoError(t, err)
	require.NoError(t, probs.Validate(20, 20))
	assert.Equal(t, 1, limiter.calls)
	assert.Equal(t, visionpb.Feature_OBJECT_LOCALIZATION, annotator.LastRequest.Requests[0].Features[0].Type)
	assert.NotEmpty(t, annotator.LastRequest.Requests[0].Image.Content)

	assert.InDelta(t, 0.9, probs.At(2, 2), 1e-6)   // House
	assert.InDelta(t, 0.9, probs.At(7, 7), 1e-6)   // House と Roof の重なりは大きい方
	assert.InDelta(t, 0.7, probs.At(12, 12), 1e-6) // Roof のみ
	assert.InDelta(t, 0.0, probs.At(18, 18), 1e-6) // Car は無視
}

func TestVisionRooftopModel_Infer_Errors(t *testing.T) {
	testCases := []struct {
		name     string
		annotate func(ctx context.Context, req *visionpb.BatchAnnotateImagesRequest) (*visionpb.BatchAnnotateImagesResponse, error)
		limitErr error
	}{
		{
			name: "error: api call fails",
			annotate: func(ctx context.Context, req *visionpb.BatchAnnotateImagesRequest) (*visionpb.BatchAnnotateImagesResponse, error) {
				return nil, errors.New("unavailable")
			},
		},
		{
			name: "error: per-image error",
			annotate: func(ctx context.Context, req *visionpb.BatchAnnotateImagesRequest) (*visionpb.BatchAnnotateImagesResponse, error) {
				return &visionpb.BatchAnnotateImagesResponse{Responses: []*visionpb.AnnotateImageResponse{{
					Error: &status.Status{Code: 3, Message: "bad image"},
				}}}, nil
			},
		},
		{
			name:     "error: rate limiter cancelled",
			limitErr: context.Canceled,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			m := &VisionRooftopModel{client: &mockAnnotator{BatchAnnotateImagesFunc: tc.annotate}, limiter: &mockLimiter{err: tc.limitErr}}

			probs, err := m.Infer(context.Background(), newRaster(t, 4, 4))

			assert.Error(t, err)
			assert.Nil(t, probs)
		})
	}
}

func TestVisionRooftopModel_Infer_NoResponses(t *testing.T) {
	m := &VisionRooftopModel{client: &mockAnnotator{
		BatchAnnotateImagesFunc: func(ctx context.Context, req *visionpb.BatchAnnotateImagesRequest) (*visionpb.BatchAnnotateImagesResponse, error) {
			return &visionpb.BatchAnnotateImagesResponse{}, nil
		},
	}, limiter: &mockLimiter{}}

	probs, err := m.Infer(context.Background(), newRaster(t, 3, 3))

	assert.ErrorContains(t, err, "0 responses")
	assert.Nil(t, probs)
}

func TestVisionRooftopModel_Infer_NoObjects(t *testing.T) {
	m := &VisionRooftopModel{client: &mockAnnotator{
		BatchAnnotateImagesFunc: func(ctx context.Context, req *visionpb.BatchAnnotateImagesRequest) (*visionpb.BatchAnnotateImagesResponse, error) {
			return &visionpb.BatchAnnotateImagesResponse{Responses: []*visionpb.AnnotateImageResponse{{}}}, nil
		},
	}, limiter: &mockLimiter{}}

	probs, err := m.Infer(context.Background(), newRaster(t, 3, 3))

	require.NoError(t, err)
	for _, v := range probs.Values {
		assert.Zero(t, v)
	}
}

func TestContains(t *testing.T) {
	tri := []point{{0, 0}, {10, 0}, {0, 10}}

	assert.True(t, contains(tri, 1, 1))
	assert.False(t, contains(tri, 9, 9))
	assert.False(t, contains(tri, -1, 5))
}
