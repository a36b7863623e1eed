// Package vision はGoogle Cloud Vision APIの物体検出を使った屋根セグメンテーションバックエンドを提供します。
package vision

import (
	"bytes"
	"context"
	"fmt"
	"image/png"
	"strings"

	gvision "cloud.google.com/go/vision/v2/apiv1"
	visionpb "cloud.google.com/go/vision/v2/apiv1/visionpb"
	"github.com/googleapis/gax-go/v2"

	imgentity "helioscope/internal/feature/imagery/domain/entity"
	"helioscope/internal/feature/segmentation/domain/entity"
	"helioscope/internal/feature/segmentation/usecase"
	"helioscope/internal/shared/ratelimiter"
)

// rooftopLabels は屋根として扱う物体ラベルです（小文字）。
var rooftopLabels = map[string]bool{
	"building": true,
	"house":    true,
	"roof":     true,
	"rooftop":  true,
}

// imageAnnotator はVision APIクライアントのうち本パッケージが使う部分です。
type imageAnnotator interface {
	BatchAnnotateImages(ctx context.Context, req *visionpb.BatchAnnotateImagesRequest, opts ...gax.CallOption) (*visionpb.BatchAnnotateImagesResponse, error)
	Close() error
}

// VisionRooftopModel はVision APIの物体検出ポリゴンを確率マップへ塗りつぶします。
type VisionRooftopModel struct {
	client  imageAnnotator
	limiter ratelimiter.Limiter
}

// VisionRooftopModelがRooftopModelを実装していることをコンパイル時に検証します。
var _ usecase.RooftopModel = (*VisionRooftopModel)(nil)

// NewVisionRooftopModel はADCを使用してVisionRooftopModelの新しいインスタンスを生成します。
func NewVisionRooftopModel(ctx context.Context, limiter ratelimiter.Limiter) (*VisionRooftopModel, error) {
	client, err := gvision.NewImageAnnotatorClient(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to create vision client: %w", err)
	}
	return &VisionRooftopModel{client: client, limiter: limiter}, nil
}

// Close はVision APIクライアントを解放します。
func (v *VisionRooftopModel) Close() error {
	return v.client.Close()
}

// Name はバックエンド名を返します。
func (v *VisionRooftopModel) Name() string { return "vision" }

// Infer は画像をVision APIへ送り、屋根ラベルの検出領域をスコアで塗った確率マップを返します。
func (v *VisionRooftopModel) Infer(ctx context.Context, img *imgentity.RasterImage) (*entity.ProbabilityMap, error) {
	if v.limiter != nil {
		if err := v.limiter.Wait(ctx); err != nil {
			return nil, err
		}
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, img.ToRGBA()); err != nil {
		return nil, fmt.Errorf("encode image: %w", err)
	}

	req := &visionpb.BatchAnnotateImagesRequest{
		Requests: []*visionpb.AnnotateImageRequest{
			{
				Image: &visionpb.Image{Content: buf.Bytes()},
				Features: []*visionpb.Feature{
					{Type: visionpb.Feature_OBJECT_LOCALIZATION, MaxResults: 100},
				},
			},
		},
	}

	resp, err := v.client.BatchAnnotateImages(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("vision API request failed: %w", err)
	}

	// 1画像のリクエストに対して応答が1件でない場合は、屋根なしではなくAPIの異常とみなす
	if len(resp.Responses) != 1 {
		return nil, fmt.Errorf("vision API returned %d responses for 1 image", len(resp.Responses))
	}
	probs := entity.NewProbabilityMap(img.Width(), img.Height())
	if resp.Responses[0].Error != nil {
		return nil, fmt.Errorf("vision API error: %s", resp.Responses[0].Error.Message)
	}

	for _, obj := range resp.Responses[0].LocalizedObjectAnnotations {
		if !rooftopLabels[strings.ToLower(obj.Name)] || obj.BoundingPoly == nil {
			continue
		}
		poly := make([]point, 0, len(obj.BoundingPoly.NormalizedVertices))
		for _, nv := range obj.BoundingPoly.NormalizedVertices {
			poly = append(poly, point{X: float64(nv.X) * float64(img.Width()), Y: float64(nv.Y) * float64(img.Height())})
		}
		fillPolygon(probs, poly, clamp01(obj.Score))
	}
	return probs, nil
}

func clamp01(v float32) float32 {
	switch {
	case v < 0:
		return 0
	case v > 1:
		return 1
	}
	return v
}
