// Package usecase はirradianceフィーチャー（Irradiance Lookup）のビジネスロジックを実装します。
package usecase

import (
	"context"
	"fmt"

	"helioscope/internal/feature/irradiance/domain/entity"
)

// ProfileRepository は地点IDから日射量プロファイルを解決します。
// 対応外の地点はUnsupportedLocationErrorを返す必要があります。
type ProfileRepository interface {
	Resolve(ctx context.Context, locationID string) (*entity.IrradianceProfile, error)
	Supported(ctx context.Context) ([]string, error)
}

// EmissionsLookup は地点の系統電力の排出係数（kg CO2e/kWh）を返します。
type EmissionsLookup interface {
	EmissionsFactor(ctx context.Context, locationID string) (float64, error)
}

// TariffLookup は地点の電気料金と設置単価を返します。
type TariffLookup interface {
	Tariff(ctx context.Context, locationID string) (*entity.Tariff, error)
}

// irradianceUsecase は日射量・排出係数・料金を1つの地点条件にまとめます。
type irradianceUsecase struct {
	profiles  ProfileRepository
	emissions EmissionsLookup
	tariffs   TariffLookup
}

// NewIrradianceUsecase はirradianceUsecaseの新しいインスタンスを生成します。
func NewIrradianceUsecase(profiles ProfileRepository, emissions EmissionsLookup, tariffs TariffLookup) *irradianceUsecase {
	return &irradianceUsecase{profiles: profiles, emissions: emissions, tariffs: tariffs}
}

// Conditions は地点IDから推定に必要な条件を解決します。
// 日射量の解決が最初に行われるため、対応外の地点はここでUnsupportedLocationErrorになります。
func (u *irradianceUsecase) Conditions(ctx context.Context, locationID string) (*entity.SiteConditions, error) {
	profile, err := u.profiles.Resolve(ctx, locationID)
	if err != nil {
		return nil, err
	}
	ef, err := u.emissions.EmissionsFactor(ctx, profile.LocationID)
	if err != nil {
		return nil, fmt.Errorf("emissions factor for %s: %w", profile.LocationID, err)
	}
	tariff, err := u.tariffs.Tariff(ctx, profile.LocationID)
	if err != nil {
		return nil, fmt.Errorf("tariff for %s: %w", profile.LocationID, err)
	}
	return &entity.SiteConditions{Profile: *profile, EmissionsFactor: ef, Tariff: *tariff}, nil
}

// Locations は対応地点すべての条件を返します。
func (u *irradianceUsecase) Locations(ctx context.Context) ([]entity.SiteConditions, error) {
	ids, err := u.profiles.Supported(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]entity.SiteConditions, 0, len(ids))
	for _, id := range ids {
		c, err := u.Conditions(ctx, id)
		if err != nil {
			return nil, err
		}
		out = append(out, *c)
	}
	return out, nil
}
