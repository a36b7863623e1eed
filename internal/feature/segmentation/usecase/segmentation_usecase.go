// Package usecase はsegmentationフィーチャー（Rooftop Segmentation Engine）のビジネスロジックを実装します。
package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/semaphore"

	imgentity "helioscope/internal/feature/imagery/domain/entity"
	"helioscope/internal/feature/segmentation/domain"
	"helioscope/internal/feature/segmentation/domain/entity"
)

// DefaultInferenceConcurrency は同時に実行できる推論数のデフォルトです。
const DefaultInferenceConcurrency = 2

// RooftopModel は画素ごとの屋根確率を推論するモデルのインターフェースです。
// この契約を満たすバックエンドであれば差し替え可能です。
// Goの慣例に従い、インターフェースは利用者（usecase）側で定義します。
type RooftopModel interface {
	// Name はログやエラーに使うバックエンド名を返します。
	Name() string
	// Infer はラスターと同じ寸法の確率マップを返します。
	Infer(ctx context.Context, img *imgentity.RasterImage) (*entity.ProbabilityMap, error)
}

// segmentationUsecase は推論・閾値処理・連結成分ラベリングを行います。
// 推論は上限付きのスロットで実行され、遅いモデルが他のリクエストを塞がないようにします。
type segmentationUsecase struct {
	model RooftopModel
	slots *semaphore.Weighted
}

// NewSegmentationUsecase はsegmentationUsecaseの新しいインスタンスを生成します。
// concurrencyが0以下の場合はDefaultInferenceConcurrencyを使います。
func NewSegmentationUsecase(model RooftopModel, concurrency int) *segmentationUsecase {
	if concurrency <= 0 {
		concurrency = DefaultInferenceConcurrency
	}
	return &segmentationUsecase{model: model, slots: semaphore.NewWeighted(int64(concurrency))}
}

// inferResult は推論ゴルーチンの結果です。
type inferResult struct {
	probs *entity.ProbabilityMap
	err   error
}

// Segment は画像から互いに素な屋根マスクを抽出します。
// インフラ側の失敗はErrSegmentationUnavailableとして返し、空の結果とは区別します。
func (u *segmentationUsecase) Segment(ctx context.Context, img *imgentity.RasterImage, p entity.Params) (*entity.Segmentation, error) {
	if img == nil {
		return nil, fmt.Errorf("segment: raster image is nil")
	}
	if !(p.Threshold > 0 && p.Threshold <= 1) {
		return nil, fmt.Errorf("segment: threshold %v must be in (0,1]", p.Threshold)
	}
	if p.MinRegionPixels < 1 {
		return nil, fmt.Errorf("segment: minimum region pixels %d must be at least 1", p.MinRegionPixels)
	}
	if u.model == nil {
		return nil, &domain.SegmentationUnavailableError{Backend: "none", Reason: "no segmentation model configured"}
	}
	backend := u.model.Name()

	var (
		ictx   context.Context
		cancel context.CancelFunc
	)
	if p.InferenceTimeout > 0 {
		ictx, cancel = context.WithTimeout(ctx, p.InferenceTimeout)
	} else {
		ictx, cancel = context.WithCancel(ctx)
	}
	defer cancel()

	if err := u.slots.Acquire(ictx, 1); err != nil {
		return nil, &domain.SegmentationUnavailableError{Backend: backend, Reason: "no inference slot available", Err: err}
	}

	start := time.Now()
	done := make(chan inferResult, 1)
	go func() {
		// スロットはモデル呼び出しが実際に終わるまで保持する
		defer u.slots.Release(1)
		defer func() {
			if r := recover(); r != nil {
				done <- inferResult{err: fmt.Errorf("model panicked: %v", r)}
			}
		}()
		probs, err := u.model.Infer(ictx, img)
		done <- inferResult{probs: probs, err: err}
	}()

	var res inferResult
	select {
	case res = <-done:
	case <-ictx.Done():
		reason := "inference cancelled"
		if errors.Is(ictx.Err(), context.DeadlineExceeded) {
			reason = fmt.Sprintf("inference timed out after %s", p.InferenceTimeout)
		}
		slog.Warn("segmentation aborted", "backend", backend, "reason", reason)
		return nil, &domain.SegmentationUnavailableError{Backend: backend, Reason: reason, Err: ictx.Err()}
	}
	elapsed := time.Since(start)

	if res.err != nil {
		slog.Error("inference failed", "backend", backend, "error", res.err)
		return nil, &domain.SegmentationUnavailableError{Backend: backend, Reason: "inference failed", Err: res.err}
	}
	if res.probs == nil {
		return nil, &domain.SegmentationUnavailableError{Backend: backend, Reason: "model returned no probability map"}
	}
	if err := res.probs.Validate(img.Width(), img.Height()); err != nil {
		return nil, &domain.SegmentationUnavailableError{Backend: backend, Reason: "malformed probability map", Err: err}
	}

	masks, above, discarded := labelComponents(res.probs, float32(p.Threshold), p.MinRegionPixels)
	slog.Info("segmentation complete",
		"backend", backend,
		"masks", len(masks),
		"discarded", discarded,
		"rooftop_pixels", above,
		"elapsed", elapsed)

	return &entity.Segmentation{
		Backend:          backend,
		Width:            img.Width(),
		Height:           img.Height(),
		Masks:            masks,
		RooftopPixels:    above,
		DiscardedRegions: discarded,
		InferenceTime:    elapsed,
	}, nil
}
