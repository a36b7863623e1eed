// Package entity はreportsフィーチャーのエンティティを定義します。
package entity

import (
	"time"

	"github.com/google/uuid"
)

// Report は推定1回分の要約です。画像や領域ごとの詳細は保持しません。
type Report struct {
	ID                  uuid.UUID
	LocationID          string
	ImageHash           string
	RegionCount         int
	ViableCount         int
	ViableAreaM2        float64
	AnnualEnergyKWh     float64
	CarbonOffsetKg      float64
	NetCost             float64
	BreakEvenAchievable bool
	BreakEvenYears      float64 // BreakEvenAchievableがfalseの場合は0
	Backend             string
	CreatedAt           time.Time
}
