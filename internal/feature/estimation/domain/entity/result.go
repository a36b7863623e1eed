// Package entity はestimationフィーチャーのドメインモデルを定義します。
package entity

import (
	"time"

	"github.com/google/uuid"

	geoentity "helioscope/internal/feature/geometry/domain/entity"
)

// RegionEstimate は1つの屋根領域の推定値です。設置不適な領域の発電量は0です。
type RegionEstimate struct {
	Region           geoentity.RooftopRegion
	AnnualEnergyKWh  float64
	CarbonOffsetKg   float64
	MonthlyEnergyKWh [12]float64
}

// Totals は画像（建物群）全体の集計です。
type Totals struct {
	RegionCount      int
	ViableCount      int
	TotalAreaM2      float64
	ViableAreaM2     float64
	AnnualEnergyKWh  float64
	CarbonOffsetKg   float64
	MonthlyEnergyKWh [12]float64
}

// BreakEven は投資回収年数です。Achievableがfalseの場合Yearsは0で意味を持ちません。
type BreakEven struct {
	Achievable bool
	Years      float64
}

// Financials は経済性の試算です。
type Financials struct {
	SystemSizeW float64
	// Panels は有効面積に収まるパネル枚数です（端数切り捨て）。
	Panels        int
	GrossCost     float64
	NetCost       float64
	AnnualSavings float64
	BreakEven     BreakEven
	// AnnualROI は年間節約額 / 正味費用です（正味費用が0の場合は0）。
	AnnualROI float64
}

// Assumptions は推定に使った前提条件です。結果の再現や説明に使います。
type Assumptions struct {
	LocationID            string
	LocationName          string
	AnnualIrradiance      float64 // kWh/m²/year
	PanelEfficiency       float64
	PerformanceRatio      float64
	EmissionsFactor       float64 // kg CO2e/kWh
	ElectricityPrice      float64 // $/kWh
	InstalledCostPerWatt  float64 // $/W
	WattageDensityPerM2   float64
	IncentiveFraction     float64
	SegmentationBackend   string
	SegmentationThreshold float64
	MinRegionArea         float64
}

// EstimationResult は1回のパイプライン実行の結果です。生成後は変更されません。
type EstimationResult struct {
	RunID       uuid.UUID
	ImageHash   string
	Width       int
	Height      int
	GSD         float64
	Regions     []RegionEstimate
	Totals      Totals
	Financials  Financials
	Assumptions Assumptions
	// DiscardedRegions は最小画素数未満で破棄された連結成分の数です。
	DiscardedRegions int
	Narrative        string
	CreatedAt        time.Time
	Elapsed          time.Duration
}
