package usecase

import (
	"math"

	"helioscope/internal/feature/estimation/domain"
	"helioscope/internal/feature/estimation/domain/entity"
	geoentity "helioscope/internal/feature/geometry/domain/entity"
)

// energyParams は発電量・排出削減量の計算に使う値です。
type energyParams struct {
	AnnualIrradiance float64 // kWh/m²/year
	Efficiency       float64
	PerformanceRatio float64
	EmissionsFactor  float64 // kg CO2e/kWh
	MonthlyFractions [12]float64
}

// quantity は検証対象の名前付きの値です。
type quantity struct {
	name string
	v    float64
}

// checkQuantity は物理量が有限かつ非負であることを確認します。
func checkQuantity(name string, v float64) error {
	if math.IsNaN(v) || math.IsInf(v, 0) || v < 0 {
		return &domain.InvariantViolationError{Quantity: name, Value: v}
	}
	return nil
}

// estimateEnergy は設置可能な領域ごとに年間発電量と排出削減量を計算し、合計します。
// 年間発電量 = 面積 × 年間日射量 × 変換効率 × パフォーマンス比
func estimateEnergy(regions []geoentity.RooftopRegion, p energyParams) ([]entity.RegionEstimate, entity.Totals, error) {
	for _, q := range []quantity{
		{"annual irradiance", p.AnnualIrradiance},
		{"panel efficiency", p.Efficiency},
		{"performance ratio", p.PerformanceRatio},
		{"emissions factor", p.EmissionsFactor},
	} {
		if err := checkQuantity(q.name, q.v); err != nil {
			return nil, entity.Totals{}, err
		}
	}

	estimates := make([]entity.RegionEstimate, 0, len(regions))
	totals := entity.Totals{RegionCount: len(regions)}
	for _, r := range regions {
		if err := checkQuantity("region area", r.AreaM2); err != nil {
			return nil, entity.Totals{}, err
		}
		est := entity.RegionEstimate{Region: r}
		totals.TotalAreaM2 += r.AreaM2

		if r.Viable {
			est.AnnualEnergyKWh = r.AreaM2 * p.AnnualIrradiance * p.Efficiency * p.PerformanceRatio
			est.CarbonOffsetKg = est.AnnualEnergyKWh * p.EmissionsFactor
			for m, f := range p.MonthlyFractions {
				est.MonthlyEnergyKWh[m] = est.AnnualEnergyKWh * f
			}
			if err := checkQuantity("annual energy", est.AnnualEnergyKWh); err != nil {
				return nil, entity.Totals{}, err
			}
			if err := checkQuantity("carbon offset", est.CarbonOffsetKg); err != nil {
				return nil, entity.Totals{}, err
			}

			totals.ViableCount++
			totals.ViableAreaM2 += r.AreaM2
			totals.AnnualEnergyKWh += est.AnnualEnergyKWh
			totals.CarbonOffsetKg += est.CarbonOffsetKg
			for m := range totals.MonthlyEnergyKWh {
				totals.MonthlyEnergyKWh[m] += est.MonthlyEnergyKWh[m]
			}
		}
		estimates = append(estimates, est)
	}

	for _, v := range totals.MonthlyEnergyKWh {
		if err := checkQuantity("monthly energy", v); err != nil {
			return nil, entity.Totals{}, err
		}
	}
	return estimates, totals, nil
}
