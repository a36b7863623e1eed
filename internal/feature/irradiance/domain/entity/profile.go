// Package entity はirradianceフィーチャーのドメインモデルを定義します。
package entity

// daysInMonth は平年の月ごとの日数です。
var daysInMonth = [12]float64{31, 28, 31, 30, 31, 30, 31, 31, 30, 31, 30, 31}

// IrradianceProfile は地点ごとの日射量です。単位はkWh/m²。
type IrradianceProfile struct {
	LocationID     string      `json:"location_id"`
	DisplayName    string      `json:"display_name"`
	AnnualKWhPerM2 float64     `json:"annual_kwh_per_m2"`
	DailyKWhPerM2  float64     `json:"daily_kwh_per_m2"`
	MonthlyDaily   [12]float64 `json:"monthly_daily_kwh_per_m2"` // 1月から12月の日平均
}

// MonthlyFractions は年間日射量に占める各月の割合を返します（合計1）。
// 月別データがない場合は日数で按分します。
func (p IrradianceProfile) MonthlyFractions() [12]float64 {
	var out [12]float64
	var total float64
	for m, d := range p.MonthlyDaily {
		out[m] = d * daysInMonth[m]
		total += out[m]
	}
	if total <= 0 {
		for m := range out {
			out[m] = daysInMonth[m] / 365
		}
		return out
	}
	for m := range out {
		out[m] /= total
	}
	return out
}

// Tariff は地点ごとの電気料金と設置単価です。
type Tariff struct {
	ElectricityPrice     float64 `json:"electricity_price"`       // $/kWh
	InstalledCostPerWatt float64 `json:"installed_cost_per_watt"` // $/W
}

// Location はカタログの1地点です。
type Location struct {
	ID              string
	DisplayName     string
	Aliases         []string
	Profile         IrradianceProfile
	EmissionsFactor float64 // kg CO2e/kWh
	Tariff          Tariff
}

// SiteConditions は推定に必要な地点依存の値をまとめたものです。
type SiteConditions struct {
	Profile         IrradianceProfile `json:"profile"`
	EmissionsFactor float64           `json:"emissions_factor"`
	Tariff          Tariff            `json:"tariff"`
}
