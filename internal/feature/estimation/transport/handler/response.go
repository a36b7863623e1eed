package handler

import (
	"helioscope/internal/api"
	"helioscope/internal/feature/estimation/domain/entity"
	"helioscope/internal/feature/estimation/usecase"
	irrentity "helioscope/internal/feature/irradiance/domain/entity"
)

// ToEstimateResponse は推定結果をAPIレスポンスに変換します。CLIのJSON出力でも使います。
func ToEstimateResponse(r *entity.EstimationResult) api.EstimateResponse {
	out := api.EstimateResponse{
		RunID:            r.RunID,
		ImageHash:        r.ImageHash,
		Width:            r.Width,
		Height:           r.Height,
		GSD:              r.GSD,
		NoRooftops:       usecase.IsNoRooftops(r),
		Regions:          make([]api.RegionResponse, 0, len(r.Regions)),
		DiscardedRegions: r.DiscardedRegions,
		Narrative:        r.Narrative,
		ElapsedMs:        r.Elapsed.Milliseconds(),
		Totals: api.TotalsResponse{
			RegionCount:      r.Totals.RegionCount,
			ViableCount:      r.Totals.ViableCount,
			TotalAreaM2:      r.Totals.TotalAreaM2,
			ViableAreaM2:     r.Totals.ViableAreaM2,
			AnnualEnergyKWh:  r.Totals.AnnualEnergyKWh,
			CarbonOffsetKg:   r.Totals.CarbonOffsetKg,
			MonthlyEnergyKWh: r.Totals.MonthlyEnergyKWh,
		},
		Financials: api.FinancialsResponse{
			SystemSizeKW:  r.Financials.SystemSizeW / 1000,
			Panels:        r.Financials.Panels,
			GrossCost:     r.Financials.GrossCost,
			NetCost:       r.Financials.NetCost,
			AnnualSavings: r.Financials.AnnualSavings,
			Achievable:    r.Financials.BreakEven.Achievable,
			AnnualROI:     r.Financials.AnnualROI,
		},
		Assumptions: api.AssumptionsResponse{
			LocationID:            r.Assumptions.LocationID,
			LocationName:          r.Assumptions.LocationName,
			AnnualIrradiance:      r.Assumptions.AnnualIrradiance,
			PanelEfficiency:       r.Assumptions.PanelEfficiency,
			PerformanceRatio:      r.Assumptions.PerformanceRatio,
			EmissionsFactor:       r.Assumptions.EmissionsFactor,
			ElectricityPrice:      r.Assumptions.ElectricityPrice,
			InstalledCostPerWatt:  r.Assumptions.InstalledCostPerWatt,
			WattageDensityPerM2:   r.Assumptions.WattageDensityPerM2,
			IncentiveFraction:     r.Assumptions.IncentiveFraction,
			SegmentationBackend:   r.Assumptions.SegmentationBackend,
			SegmentationThreshold: r.Assumptions.SegmentationThreshold,
			MinRegionArea:         r.Assumptions.MinRegionArea,
		},
	}
	if r.Financials.BreakEven.Achievable {
		years := r.Financials.BreakEven.Years
		out.Financials.BreakEvenYears = &years
	}

	for _, e := range r.Regions {
		reg := e.Region
		rr := api.RegionResponse{
			MaskID:     reg.MaskID,
			PixelCount: reg.PixelCount,
			AreaM2:     reg.AreaM2,
			Bounds: api.BoundsResponse{
				MinX: reg.Bounds.Min.X, MinY: reg.Bounds.Min.Y,
				MaxX: reg.Bounds.Max.X, MaxY: reg.Bounds.Max.Y,
			},
			Elongation:   reg.Shape.Elongation,
			RidgeAxisDeg: reg.Shape.RidgeAxisDeg,
			Orientation: api.OrientationResponse{
				Facing:     string(reg.Orientation.Facing),
				TiltClass:  string(reg.Orientation.TiltClass),
				Confidence: string(reg.Orientation.Confidence),
				TiltDeg:    reg.Orientation.TiltDeg,
				AspectDeg:  reg.Orientation.AspectDeg,
			},
			ShadedFraction:   reg.ShadedFraction,
			Viable:           reg.Viable,
			AnnualEnergyKWh:  e.AnnualEnergyKWh,
			CarbonOffsetKg:   e.CarbonOffsetKg,
			MonthlyEnergyKWh: e.MonthlyEnergyKWh,
		}
		for _, reason := range reg.Reasons {
			rr.Reasons = append(rr.Reasons, string(reason))
		}
		out.Regions = append(out.Regions, rr)
	}
	return out
}

// ToLocationResponse は地点条件をAPIレスポンスに変換します。
func ToLocationResponse(s irrentity.SiteConditions) api.LocationResponse {
	return api.LocationResponse{
		ID:                   s.Profile.LocationID,
		Name:                 s.Profile.DisplayName,
		AnnualKWhPerM2:       s.Profile.AnnualKWhPerM2,
		MonthlyDailyKWhPerM2: s.Profile.MonthlyDaily,
		EmissionsFactor:      s.EmissionsFactor,
		ElectricityPrice:     s.Tariff.ElectricityPrice,
		InstalledCostPerWatt: s.Tariff.InstalledCostPerWatt,
	}
}
