// Package adapters はreportsフィーチャーのリポジトリ実装を提供します。
package adapters

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"helioscope/internal/feature/reports/domain"
	"helioscope/internal/feature/reports/domain/entity"
	"helioscope/internal/feature/reports/usecase"
)

// reportGorm はReportRepositoryインターフェースのGORM実装です（PostgreSQL/SQLite）。
type reportGorm struct {
	db *gorm.DB
}

var _ usecase.ReportRepository = (*reportGorm)(nil)

// NewReportRepository は指定されたDB接続でreportGormリポジトリの新しいインスタンスを生成します。
func NewReportRepository(db *gorm.DB) *reportGorm {
	return &reportGorm{db: db}
}

// ReportModel はestimation_reportsテーブルの行です。
type ReportModel struct {
	ID                  string  `gorm:"primaryKey;size:36"`
	LocationID          string  `gorm:"size:64;not null;index"`
	ImageHash           string  `gorm:"size:64;not null;index"`
	RegionCount         int     `gorm:"not null;default:0"`
	ViableCount         int     `gorm:"not null;default:0"`
	ViableAreaM2        float64 `gorm:"not null;default:0"`
	AnnualEnergyKWh     float64 `gorm:"not null;default:0"`
	CarbonOffsetKg      float64 `gorm:"not null;default:0"`
	NetCost             float64 `gorm:"not null;default:0"`
	BreakEvenAchievable bool    `gorm:"not null;default:false"`
	BreakEvenYears      float64 `gorm:"not null;default:0"`
	Backend             string  `gorm:"size:32;not null"`
	CreatedAt           time.Time
}

func (ReportModel) TableName() string {
	return "estimation_reports"
}

func toModel(r *entity.Report) ReportModel {
	return ReportModel{
		ID:                  r.ID.String(),
		LocationID:          r.LocationID,
		ImageHash:           r.ImageHash,
		RegionCount:         r.RegionCount,
		ViableCount:         r.ViableCount,
		ViableAreaM2:        r.ViableAreaM2,
		AnnualEnergyKWh:     r.AnnualEnergyKWh,
		CarbonOffsetKg:      r.CarbonOffsetKg,
		NetCost:             r.NetCost,
		BreakEvenAchievable: r.BreakEvenAchievable,
		BreakEvenYears:      r.BreakEvenYears,
		Backend:             r.Backend,
		CreatedAt:           r.CreatedAt,
	}
}

func toEntity(m ReportModel) (*entity.Report, error) {
	id, err := uuid.Parse(m.ID)
	if err != nil {
		return nil, err
	}
	return &entity.Report{
		ID:                  id,
		LocationID:          m.LocationID,
		ImageHash:           m.ImageHash,
		RegionCount:         m.RegionCount,
		ViableCount:         m.ViableCount,
		ViableAreaM2:        m.ViableAreaM2,
		AnnualEnergyKWh:     m.AnnualEnergyKWh,
		CarbonOffsetKg:      m.CarbonOffsetKg,
		NetCost:             m.NetCost,
		BreakEvenAchievable: m.BreakEvenAchievable,
		BreakEvenYears:      m.BreakEvenYears,
		Backend:             m.Backend,
		CreatedAt:           m.CreatedAt.UTC(),
	}, nil
}

// Save はレポートを保存します。同じIDが既にあれば上書きします。
func (r *reportGorm) Save(ctx context.Context, rep *entity.Report) error {
	m := toModel(rep)
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "id"}},
		UpdateAll: true,
	}).Create(&m).Error
}

// FindByID はIDでレポートを取得します。
func (r *reportGorm) FindByID(ctx context.Context, id uuid.UUID) (*entity.Report, error) {
	var m ReportModel
	if err := r.db.WithContext(ctx).Where("id = ?", id.String()).First(&m).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrReportNotFound
		}
		return nil, err
	}
	return toEntity(m)
}
