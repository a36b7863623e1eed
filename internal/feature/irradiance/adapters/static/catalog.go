// Package static はコードに埋め込んだ地点カタログを提供します。
package static

import (
	"context"
	"strings"

	"helioscope/internal/feature/irradiance/domain"
	"helioscope/internal/feature/irradiance/domain/entity"
	"helioscope/internal/feature/irradiance/usecase"
)

// DefaultLocations は組み込みの対応地点です。日射量はkWh/m²/日、料金は$/kWh、設置単価は$/Wです。
var DefaultLocations = []entity.Location{
	{
		ID:          "washington-dc",
		DisplayName: "Washington, D.C.",
		Aliases:     []string{"washington", "dc", "washington dc"},
		Profile: entity.IrradianceProfile{
			DailyKWhPerM2: 4.7,
			MonthlyDaily:  [12]float64{2.3, 3.1, 4.1, 5.1, 5.8, 6.3, 6.2, 5.5, 4.6, 3.4, 2.4, 2.0},
		},
		EmissionsFactor: 0.31,
		Tariff:          entity.Tariff{ElectricityPrice: 0.13, InstalledCostPerWatt: 1.30},
	},
	{
		ID:          "houston-tx",
		DisplayName: "Houston, TX",
		Aliases:     []string{"houston"},
		Profile: entity.IrradianceProfile{
			DailyKWhPerM2: 5.27,
			MonthlyDaily:  [12]float64{3.0, 3.8, 4.6, 5.4, 6.0, 6.4, 6.4, 6.0, 5.3, 4.6, 3.5, 2.9},
		},
		EmissionsFactor: 0.37,
		Tariff:          entity.Tariff{ElectricityPrice: 0.11, InstalledCostPerWatt: 1.10},
	},
	{
		ID:          "dallas-tx",
		DisplayName: "Dallas, TX",
		Aliases:     []string{"dallas"},
		Profile: entity.IrradianceProfile{
			DailyKWhPerM2: 5.47,
			MonthlyDaily:  [12]float64{3.0, 3.9, 5.0, 5.8, 6.4, 7.1, 7.0, 6.4, 5.5, 4.5, 3.4, 2.8},
		},
		EmissionsFactor: 0.37,
		Tariff:          entity.Tariff{ElectricityPrice: 0.12, InstalledCostPerWatt: 1.05},
	},
	{
		ID:          "austin-tx",
		DisplayName: "Austin, TX",
		Aliases:     []string{"austin"},
		Profile: entity.IrradianceProfile{
			DailyKWhPerM2: 5.41,
			MonthlyDaily:  [12]float64{3.3, 4.1, 5.0, 5.6, 6.1, 6.8, 6.9, 6.4, 5.5, 4.6, 3.6, 3.1},
		},
		EmissionsFactor: 0.37,
		Tariff:          entity.Tariff{ElectricityPrice: 0.12, InstalledCostPerWatt: 1.00},
	},
	{
		ID:          "phoenix-az",
		DisplayName: "Phoenix, AZ",
		Aliases:     []string{"phoenix"},
		Profile: entity.IrradianceProfile{
			AnnualKWhPerM2: 2100,
			MonthlyDaily:   [12]float64{3.3, 4.3, 5.6, 7.0, 7.9, 8.2, 7.4, 6.9, 6.1, 4.9, 3.7, 3.1},
		},
		EmissionsFactor: 0.36,
		Tariff:          entity.Tariff{ElectricityPrice: 0.14, InstalledCostPerWatt: 1.15},
	},
}

// Catalog は地点の日射量・排出係数・料金を保持する読み取り専用のテーブルです。
type Catalog struct {
	locations map[string]*entity.Location // 正規ID → 地点
	keys      map[string]string           // 正規化した名前・別名 → 正規ID
	ids       []string
}

// Catalogが各参照インターフェースを実装していることをコンパイル時に検証します。
var (
	_ usecase.ProfileRepository = (*Catalog)(nil)
	_ usecase.EmissionsLookup   = (*Catalog)(nil)
	_ usecase.TariffLookup      = (*Catalog)(nil)
)

// NewCatalog は組み込みの地点でCatalogを生成します。
func NewCatalog() *Catalog {
	return NewCatalogFrom(DefaultLocations)
}

// NewCatalogFrom は指定した地点でCatalogを生成します。
// 年間日射量と日平均のどちらか一方しかない場合は、もう一方を365日で換算します。
func NewCatalogFrom(locs []entity.Location) *Catalog {
	c := &Catalog{
		locations: make(map[string]*entity.Location, len(locs)),
		keys:      make(map[string]string),
	}
	for i := range locs {
		loc := locs[i]
		loc.Aliases = append([]string(nil), loc.Aliases...)
		p := &loc.Profile
		p.LocationID = loc.ID
		p.DisplayName = loc.DisplayName
		switch {
		case p.AnnualKWhPerM2 == 0:
			p.AnnualKWhPerM2 = p.DailyKWhPerM2 * 365
		case p.DailyKWhPerM2 == 0:
			p.DailyKWhPerM2 = p.AnnualKWhPerM2 / 365
		}

		c.locations[loc.ID] = &loc
		c.ids = append(c.ids, loc.ID)
		for _, name := range append([]string{loc.ID, loc.DisplayName}, loc.Aliases...) {
			c.keys[normalize(name)] = loc.ID
		}
	}
	return c
}

// normalize は大文字小文字・前後の空白・句読点の違いを吸収した照合キーを返します。
// "Phoenix, AZ" と "phoenix-az" は同じキーになります。
func normalize(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	s = strings.NewReplacer(".", "", ",", " ", "-", " ", "_", " ").Replace(s)
	return strings.Join(strings.Fields(s), "-")
}

func (c *Catalog) lookup(locationID string) (*entity.Location, error) {
	if id, ok := c.keys[normalize(locationID)]; ok {
		return c.locations[id], nil
	}
	return nil, &domain.UnsupportedLocationError{Requested: locationID, Supported: c.displayNames()}
}

func (c *Catalog) displayNames() []string {
	out := make([]string, 0, len(c.ids))
	for _, id := range c.ids {
		out = append(out, c.locations[id].DisplayName)
	}
	return out
}

// Resolve は地点の日射量プロファイルを返します。
func (c *Catalog) Resolve(ctx context.Context, locationID string) (*entity.IrradianceProfile, error) {
	loc, err := c.lookup(locationID)
	if err != nil {
		return nil, err
	}
	p := loc.Profile
	return &p, nil
}

// Supported は対応地点の正規IDを登録順に返します。
func (c *Catalog) Supported(ctx context.Context) ([]string, error) {
	return append([]string(nil), c.ids...), nil
}

// EmissionsFactor は地点の排出係数を返します。
func (c *Catalog) EmissionsFactor(ctx context.Context, locationID string) (float64, error) {
	loc, err := c.lookup(locationID)
	if err != nil {
		return 0, err
	}
	return loc.EmissionsFactor, nil
}

// Tariff は地点の電気料金と設置単価を返します。
func (c *Catalog) Tariff(ctx context.Context, locationID string) (*entity.Tariff, error) {
	loc, err := c.lookup(locationID)
	if err != nil {
		return nil, err
	}
	t := loc.Tariff
	return &t, nil
}
