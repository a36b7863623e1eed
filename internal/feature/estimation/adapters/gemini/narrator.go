// Package gemini はGoogle Gemini APIを使用した推定結果の説明文生成クライアントを提供します。
package gemini

import (
	"context"
	"fmt"
	"strings"

	"google.golang.org/genai"

	"helioscope/internal/feature/estimation/domain/entity"
	"helioscope/internal/feature/estimation/usecase"
)

const (
	// DefaultModel はGemini APIのデフォルトモデルです。
	DefaultModel = "gemini-2.5-flash"
)

// contentGenerator はgenai.Modelsのうち本パッケージが使うメソッドです。
type contentGenerator interface {
	GenerateContent(ctx context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error)
}

// GeminiNarrator はGoogle Gemini APIを使用して推定結果の平易な要約を生成します。
type GeminiNarrator struct {
	models contentGenerator
	model  string
}

// GeminiNarratorがNarratorを実装していることをコンパイル時に検証します。
var _ usecase.Narrator = (*GeminiNarrator)(nil)

// NewGeminiNarrator はADCを使用してGeminiNarratorの新しいインスタンスを生成します。
// 環境変数 GOOGLE_GENAI_USE_VERTEXAI, GOOGLE_CLOUD_PROJECT, GOOGLE_CLOUD_LOCATION が必要です。
func NewGeminiNarrator(ctx context.Context) (*GeminiNarrator, error) {
	client, err := genai.NewClient(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create gemini client: %w", err)
	}
	return &GeminiNarrator{models: client.Models, model: DefaultModel}, nil
}

// Narrate は推定結果から住宅所有者向けの短い説明文を生成します。
func (g *GeminiNarrator) Narrate(ctx context.Context, result *entity.EstimationResult) (string, error) {
	resp, err := g.models.GenerateContent(ctx, g.model, genai.Text(buildPrompt(result)), nil)
	if err != nil {
		return "", fmt.Errorf("gemini API request failed: %w", err)
	}
	text := strings.TrimSpace(resp.Text())
	if text == "" {
		return "", fmt.Errorf("gemini returned an empty narrative")
	}
	return text, nil
}

// buildPrompt は数値をすべてプロンプトに埋め込みます。モデルには計算させません。
func buildPrompt(r *entity.EstimationResult) string {
	var b strings.Builder
	b.WriteString("Summarize this rooftop solar assessment for a homeowner in three short sentences. ")
	b.WriteString("Use only the figures given and do not invent new ones.\n\n")
	fmt.Fprintf(&b, "Location: %s\n", r.Assumptions.LocationName)
	fmt.Fprintf(&b, "Rooftop regions found: %d (%d suitable for panels)\n", r.Totals.RegionCount, r.Totals.ViableCount)
	fmt.Fprintf(&b, "Suitable roof area: %.1f m2\n", r.Totals.ViableAreaM2)
	fmt.Fprintf(&b, "Estimated annual generation: %.0f kWh\n", r.Totals.AnnualEnergyKWh)
	fmt.Fprintf(&b, "Estimated annual CO2 avoided: %.0f kg\n", r.Totals.CarbonOffsetKg)
	fmt.Fprintf(&b, "Estimated installed cost after incentives: $%.0f\n", r.Financials.NetCost)
	fmt.Fprintf(&b, "Estimated annual savings: $%.0f\n", r.Financials.AnnualSavings)
	if r.Financials.BreakEven.Achievable {
		fmt.Fprintf(&b, "Payback period: %.1f years\n", r.Financials.BreakEven.Years)
	} else {
		b.WriteString("Payback period: not achievable with these assumptions\n")
	}
	return b.String()
}
