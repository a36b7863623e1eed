package usecase

import (
	"math"

	"helioscope/internal/feature/estimation/domain/entity"
)

// PanelAreaM2 はパネル1枚あたりの設置面積 (m²) です。
const PanelAreaM2 = 20.0

// financialParams は経済性試算の前提です。
type financialParams struct {
	InstalledCostPerWatt float64 // $/W
	WattageDensityPerM2  float64 // W/m²
	ElectricityPrice     float64 // $/kWh
	IncentiveFraction    float64 // 0〜1
}

// project はシステム容量・費用・年間節約額・回収年数を計算します。
// 年間節約額が0以下の場合は除算せず「回収不能」とします。
func project(viableArea, annualEnergy float64, p financialParams) (entity.Financials, error) {
	for _, q := range []quantity{
		{"viable area", viableArea},
		{"annual energy", annualEnergy},
		{"installed cost per watt", p.InstalledCostPerWatt},
		{"wattage density", p.WattageDensityPerM2},
		{"electricity price", p.ElectricityPrice},
		{"incentive fraction", p.IncentiveFraction},
		{"incentive share retained", 1 - p.IncentiveFraction},
	} {
		if err := checkQuantity(q.name, q.v); err != nil {
			return entity.Financials{}, err
		}
	}

	f := entity.Financials{
		SystemSizeW: viableArea * p.WattageDensityPerM2,
		Panels:      int(math.Floor(viableArea / PanelAreaM2)),
	}
	f.GrossCost = f.SystemSizeW * p.InstalledCostPerWatt
	f.NetCost = f.GrossCost * (1 - p.IncentiveFraction)
	f.AnnualSavings = annualEnergy * p.ElectricityPrice

	for _, q := range []quantity{
		{"system size", f.SystemSizeW},
		{"gross cost", f.GrossCost},
		{"net cost", f.NetCost},
		{"annual savings", f.AnnualSavings},
	} {
		if err := checkQuantity(q.name, q.v); err != nil {
			return entity.Financials{}, err
		}
	}

	if f.AnnualSavings > 0 {
		f.BreakEven = entity.BreakEven{Achievable: true, Years: f.NetCost / f.AnnualSavings}
		if f.NetCost > 0 {
			f.AnnualROI = f.AnnualSavings / f.NetCost
		}
	}
	return f, nil
}
