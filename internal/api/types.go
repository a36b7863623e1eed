// Package api はHTTP APIのリクエスト・レスポンス型を定義します。
package api

import (
	openapi_types "github.com/oapi-codegen/runtime/types"
)

// ErrorResponse はエラー時のレスポンスです。
type ErrorResponse struct {
	Error     string   `json:"error"`
	Stage     string   `json:"stage,omitempty"`
	Supported []string `json:"supported,omitempty"`
}

// LocationResponse は対応地点1件のレスポンスです。
type LocationResponse struct {
	ID                   string      `json:"id"`
	Name                 string      `json:"name"`
	AnnualKWhPerM2       float64     `json:"annual_kwh_per_m2"`
	MonthlyDailyKWhPerM2 [12]float64 `json:"monthly_daily_kwh_per_m2"`
	EmissionsFactor      float64     `json:"emissions_factor"`
	ElectricityPrice     float64     `json:"electricity_price"`
	InstalledCostPerWatt float64     `json:"installed_cost_per_watt"`
}

// OrientationResponse は屋根面の向きです。
type OrientationResponse struct {
	Facing     string   `json:"facing"`
	TiltClass  string   `json:"tilt_class"`
	Confidence string   `json:"confidence"`
	TiltDeg    *float64 `json:"tilt_deg,omitempty"`
	AspectDeg  *float64 `json:"aspect_deg,omitempty"`
}

// BoundsResponse は外接矩形（画素座標、MaxX/MaxYは含まない）です。
type BoundsResponse struct {
	MinX int `json:"min_x"`
	MinY int `json:"min_y"`
	MaxX int `json:"max_x"`
	MaxY int `json:"max_y"`
}

// RegionResponse は屋根領域1件の推定結果です。
type RegionResponse struct {
	MaskID           int                 `json:"mask_id"`
	PixelCount       int                 `json:"pixel_count"`
	AreaM2           float64             `json:"area_m2"`
	Bounds           BoundsResponse      `json:"bounds"`
	Elongation       float64             `json:"elongation"`
	RidgeAxisDeg     float64             `json:"ridge_axis_deg"`
	Orientation      OrientationResponse `json:"orientation"`
	ShadedFraction   float64             `json:"shaded_fraction"`
	Viable           bool                `json:"viable"`
	Reasons          []string            `json:"reasons,omitempty"`
	AnnualEnergyKWh  float64             `json:"annual_energy_kwh"`
	CarbonOffsetKg   float64             `json:"carbon_offset_kg"`
	MonthlyEnergyKWh [12]float64         `json:"monthly_energy_kwh"`
}

// TotalsResponse は全領域の合計です。
type TotalsResponse struct {
	RegionCount      int         `json:"region_count"`
	ViableCount      int         `json:"viable_count"`
	TotalAreaM2      float64     `json:"total_area_m2"`
	ViableAreaM2     float64     `json:"viable_area_m2"`
	AnnualEnergyKWh  float64     `json:"annual_energy_kwh"`
	CarbonOffsetKg   float64     `json:"carbon_offset_kg"`
	MonthlyEnergyKWh [12]float64 `json:"monthly_energy_kwh"`
}

// FinancialsResponse は経済性試算の結果です。回収不能の場合BreakEvenYearsはnullです。
type FinancialsResponse struct {
	SystemSizeKW   float64  `json:"system_size_kw"`
	Panels         int      `json:"panels"`
	GrossCost      float64  `json:"gross_cost"`
	NetCost        float64  `json:"net_cost"`
	AnnualSavings  float64  `json:"annual_savings"`
	Achievable     bool     `json:"break_even_achievable"`
	BreakEvenYears *float64 `json:"break_even_years"`
	AnnualROI      float64  `json:"annual_roi"`
}

// AssumptionsResponse は推定に使った前提値です。
type AssumptionsResponse struct {
	LocationID            string  `json:"location_id"`
	LocationName          string  `json:"location_name"`
	AnnualIrradiance      float64 `json:"annual_irradiance_kwh_per_m2"`
	PanelEfficiency       float64 `json:"panel_efficiency"`
	PerformanceRatio      float64 `json:"performance_ratio"`
	EmissionsFactor       float64 `json:"emissions_factor"`
	ElectricityPrice      float64 `json:"electricity_price"`
	InstalledCostPerWatt  float64 `json:"installed_cost_per_watt"`
	WattageDensityPerM2   float64 `json:"wattage_density_per_m2"`
	IncentiveFraction     float64 `json:"incentive_fraction"`
	SegmentationBackend   string  `json:"segmentation_backend"`
	SegmentationThreshold float64 `json:"segmentation_threshold"`
	MinRegionArea         float64 `json:"min_region_area_m2"`
}

// EstimateResponse は POST /v1/estimates のレスポンスです。
type EstimateResponse struct {
	RunID            openapi_types.UUID  `json:"run_id"`
	ImageHash        string              `json:"image_hash"`
	Width            int                 `json:"width"`
	Height           int                 `json:"height"`
	GSD              float64             `json:"gsd"`
	NoRooftops       bool                `json:"no_rooftops"`
	Regions          []RegionResponse    `json:"regions"`
	Totals           TotalsResponse      `json:"totals"`
	Financials       FinancialsResponse  `json:"financials"`
	Assumptions      AssumptionsResponse `json:"assumptions"`
	DiscardedRegions int                 `json:"discarded_regions"`
	Narrative        string              `json:"narrative,omitempty"`
	ElapsedMs        int64               `json:"elapsed_ms"`
}

// ReportResponse は GET /v1/estimates/:id のレスポンスです。
type ReportResponse struct {
	ID              openapi_types.UUID `json:"id"`
	LocationID      string             `json:"location_id"`
	ImageHash       string             `json:"image_hash"`
	RegionCount     int                `json:"region_count"`
	ViableCount     int                `json:"viable_count"`
	ViableAreaM2    float64            `json:"viable_area_m2"`
	AnnualEnergyKWh float64            `json:"annual_energy_kwh"`
	CarbonOffsetKg  float64            `json:"carbon_offset_kg"`
	NetCost         float64            `json:"net_cost"`
	Achievable      bool               `json:"break_even_achievable"`
	BreakEvenYears  *float64           `json:"break_even_years"`
	Backend         string             `json:"segmentation_backend"`
	CreatedAt       string             `json:"created_at"`
}
