package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"image"
	"image/png"
	"log/slog"
	"math"
	"net/http"
	"strings"

	imgentity "helioscope/internal/feature/imagery/domain/entity"
	"helioscope/internal/feature/segmentation/adapters/remote/dto"
	"helioscope/internal/feature/segmentation/domain/entity"
	"helioscope/internal/feature/segmentation/usecase"
)

// ModelServer はHTTP推論サーバーに画像パッチを送り、屋根確率を受け取るRooftopModel実装です。
type ModelServer struct {
	cfg    Config
	client *http.Client
}

// ModelServerがRooftopModelを実装していることをコンパイル時に検証します。
var _ usecase.RooftopModel = (*ModelServer)(nil)

// NewModelServer は指定された設定とHTTPクライアントでModelServerの新しいインスタンスを生成します。
func NewModelServer(cfg Config, client *http.Client) *ModelServer {
	if cfg.PatchSize <= 0 {
		cfg.PatchSize = DefaultPatchSize
	}
	return &ModelServer{cfg: cfg, client: client}
}

// Name はバックエンド名を返します。
func (m *ModelServer) Name() string { return "remote" }

// tileOrigins は長さnをsize幅のタイルで覆う開始位置を返します。
// 末尾のタイルは画像内に収まるよう手前にずらすため、端の画素も必ず推論されます。
func tileOrigins(n, size int) []int {
	if n <= size {
		return []int{0}
	}
	var starts []int
	for s := 0; s+size < n; s += size {
		starts = append(starts, s)
	}
	return append(starts, n-size)
}

// Infer は画像をパッチに分割して推論サーバーへ送り、確率マップを組み立てます。
func (m *ModelServer) Infer(ctx context.Context, img *imgentity.RasterImage) (*entity.ProbabilityMap, error) {
	if m.cfg.BaseURL == "" {
		return nil, fmt.Errorf("model server url is not configured")
	}

	size := m.cfg.PatchSize
	body := dto.PredictRequest{Classes: []string{"background", "rooftop"}}
	for _, y := range tileOrigins(img.Height(), size) {
		for _, x := range tileOrigins(img.Width(), size) {
			w, h := min(size, img.Width()), min(size, img.Height())
			sub := img.SubImage(image.Rect(x, y, x+w, y+h))
			var buf bytes.Buffer
			if err := png.Encode(&buf, sub); err != nil {
				return nil, fmt.Errorf("encode patch (%d,%d): %w", x, y, err)
			}
			body.Patches = append(body.Patches, dto.Patch{X: x, Y: y, Width: w, Height: h, PNG: buf.Bytes()})
		}
	}

	payload, err := json.Marshal(body)
	if err != nil {
		return nil, err
	}

	// リクエストオブジェクトを作成
	u := strings.TrimRight(m.cfg.BaseURL, "/") + "/v1/predict"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, u, bytes.NewReader(payload))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	if m.cfg.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+m.cfg.APIKey)
	}

	// リクエストを実行
	res, err := m.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer func() {
		if err := res.Body.Close(); err != nil {
			slog.Warn("failed to close response body", "error", err)
		}
	}()

	if res.StatusCode >= 400 {
		return nil, fmt.Errorf("model server http %d", res.StatusCode)
	}

	// JSONレスポンスをDTOにデコード
	var out dto.PredictResponse
	if err := json.NewDecoder(res.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("decode model server response: %w", err)
	}
	if out.Error != "" {
		return nil, fmt.Errorf("model server: %s", out.Error)
	}
	if len(out.Predictions) != len(body.Patches) {
		return nil, fmt.Errorf("model server returned %d predictions for %d patches", len(out.Predictions), len(body.Patches))
	}

	// 各予測は送ったパッチと1対1で対応しなければならない。欠けたタイルは0のままになり、屋根なしと区別できなくなる
	pending := make(map[tile]bool, len(body.Patches))
	for _, p := range body.Patches {
		pending[tile{p.X, p.Y, p.Width, p.Height}] = true
	}
	probs := entity.NewProbabilityMap(img.Width(), img.Height())
	for _, p := range out.Predictions {
		key := tile{p.X, p.Y, p.Width, p.Height}
		if !pending[key] {
			return nil, fmt.Errorf("prediction tile (%d,%d %dx%d) was not requested or is duplicated", p.X, p.Y, p.Width, p.Height)
		}
		delete(pending, key)
		if err := stitch(probs, p); err != nil {
			return nil, err
		}
	}
	slog.Debug("remote inference complete", "model", out.Model, "patches", len(out.Predictions))
	return probs, nil
}

// tile はパッチの位置と大きさです。
type tile struct{ x, y, w, h int }

// stitch はパッチの確率を全体マップへ書き込みます。重なった画素は大きい方を採用します。
// 有限でない値や[0,1]外の値は推論の失敗として扱います。
func stitch(probs *entity.ProbabilityMap, p dto.PatchPrediction) error {
	if p.X < 0 || p.Y < 0 || p.X+p.Width > probs.Width || p.Y+p.Height > probs.Height {
		return fmt.Errorf("prediction tile (%d,%d %dx%d) is outside the image", p.X, p.Y, p.Width, p.Height)
	}
	if len(p.Probabilities) != p.Width*p.Height {
		return fmt.Errorf("prediction tile (%d,%d) has %d values, want %d", p.X, p.Y, len(p.Probabilities), p.Width*p.Height)
	}
	for ty := 0; ty < p.Height; ty++ {
		for tx := 0; tx < p.Width; tx++ {
			v := p.Probabilities[ty*p.Width+tx]
			if math.IsNaN(float64(v)) || v < 0 || v > 1 {
				return fmt.Errorf("prediction tile (%d,%d) has probability %v at (%d,%d)", p.X, p.Y, v, tx, ty)
			}
			if v > probs.At(p.X+tx, p.Y+ty) {
				probs.Set(p.X+tx, p.Y+ty, v)
			}
		}
	}
	return nil
}
