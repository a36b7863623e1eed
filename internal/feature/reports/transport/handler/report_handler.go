// Package handler はreportsフィーチャーのHTTPハンドラーを提供します。
package handler

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"helioscope/internal/api"
	"helioscope/internal/feature/reports/domain"
	"helioscope/internal/feature/reports/domain/entity"
)

// ReportUsecase はレポート取得のユースケースインターフェースを定義します。
// Goの慣例に従い、インターフェースは利用者（handler）側で定義します。
type ReportUsecase interface {
	Get(ctx context.Context, id uuid.UUID) (*entity.Report, error)
}

// ReportHandler は保存済みレポートのHTTPリクエストを処理します。
type ReportHandler struct {
	uc ReportUsecase
}

// NewReportHandler はReportHandlerの新しいインスタンスを生成します。
func NewReportHandler(uc ReportUsecase) *ReportHandler {
	return &ReportHandler{uc: uc}
}

// Get は推定レポートの要約を返します。
//
// エンドポイント: GET /v1/estimates/:id
func (h *ReportHandler) Get(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, api.ErrorResponse{Error: "invalid report id"})
		return
	}

	r, err := h.uc.Get(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, domain.ErrReportNotFound) {
			c.JSON(http.StatusNotFound, api.ErrorResponse{Error: "report not found"})
			return
		}
		slog.Error("failed to load report", "id", id, "error", err)
		c.JSON(http.StatusInternalServerError, api.ErrorResponse{Error: "failed to load report"})
		return
	}

	c.JSON(http.StatusOK, toResponse(r))
}

func toResponse(r *entity.Report) api.ReportResponse {
	out := api.ReportResponse{
		ID:              r.ID,
		LocationID:      r.LocationID,
		ImageHash:       r.ImageHash,
		RegionCount:     r.RegionCount,
		ViableCount:     r.ViableCount,
		ViableAreaM2:    r.ViableAreaM2,
		AnnualEnergyKWh: r.AnnualEnergyKWh,
		CarbonOffsetKg:  r.CarbonOffsetKg,
		NetCost:         r.NetCost,
		Achievable:      r.BreakEvenAchievable,
		Backend:         r.Backend,
		CreatedAt:       r.CreatedAt.UTC().Format(time.RFC3339),
	}
	if r.BreakEvenAchievable {
		years := r.BreakEvenYears
		out.BreakEvenYears = &years
	}
	return out
}
