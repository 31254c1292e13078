package persistence

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/agrocredit/backend/internal/domain/inspection"
	"github.com/agrocredit/backend/internal/infrastructure/persistence/models"
)

// GormInspectionRepository implements inspection.Repository using GORM
type GormInspectionRepository struct {
	db *gorm.DB
}

// NewGormInspectionRepository creates a new GormInspectionRepository
func NewGormInspectionRepository(db *gorm.DB) *GormInspectionRepository {
	return &GormInspectionRepository{db: db}
}

// FindByID finds an inspection by ID
func (r *GormInspectionRepository) FindByID(ctx context.Context, id uuid.UUID) (*inspection.Inspection, error) {
	return r.findOne(r.db.WithContext(ctx), id)
}

// FindByIDForUpdate finds an inspection and locks its row (SELECT ... FOR UPDATE)
func (r *GormInspectionRepository) FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*inspection.Inspection, error) {
	return r.findOne(r.db.WithContext(ctx).Clauses(clause.Locking{Strength: "UPDATE"}), id)
}

func (r *GormInspectionRepository) findOne(db *gorm.DB, id uuid.UUID) (*inspection.Inspection, error) {
	var model models.InspectionModel
	if err := db.Where("id = ?", id).First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, translateError(err, "find inspection")
	}
	return model.ToDomain()
}

// FindAll lists inspections, newest first
func (r *GormInspectionRepository) FindAll(ctx context.Context, filter inspection.Filter) ([]inspection.Inspection, int64, error) {
	query := r.db.WithContext(ctx).Model(&models.InspectionModel{})
	if filter.ParcelID != nil {
		query = query.Where("parcel_id = ?", *filter.ParcelID)
	}
	if filter.FarmerID != nil {
		query = query.Where("farmer_id = ?", *filter.FarmerID)
	}
	if filter.Status != nil {
		query = query.Where("status = ?", *filter.Status)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, translateError(err, "count inspections")
	}

	var rows []models.InspectionModel
	page := filter.Page.Normalize()
	if err := query.Order("created_at DESC, id DESC").Offset(page.Offset()).Limit(page.Size).Find(&rows).Error; err != nil {
		return nil, 0, translateError(err, "list inspections")
	}

	result := make([]inspection.Inspection, 0, len(rows))
	for i := range rows {
		insp, err := rows[i].ToDomain()
		if err != nil {
			return nil, 0, err
		}
		result = append(result, *insp)
	}
	return result, total, nil
}

// FindLatestByParcels returns the most recent inspection of each parcel
func (r *GormInspectionRepository) FindLatestByParcels(ctx context.Context, parcelIDs []uuid.UUID) (map[uuid.UUID]*inspection.Inspection, error) {
	latest := make(map[uuid.UUID]*inspection.Inspection, len(parcelIDs))
	if len(parcelIDs) == 0 {
		return latest, nil
	}

	var rows []models.InspectionModel
	if err := r.db.WithContext(ctx).
		Where("parcel_id IN ?", parcelIDs).
		Order("parcel_id, created_at DESC, id DESC").
		Find(&rows).Error; err != nil {
		return nil, translateError(err, "find latest inspections")
	}

	for i := range rows {
		insp, err := rows[i].ToDomain()
		if err != nil {
			return nil, err
		}
		if insp.IsLatestFor(latest[insp.ParcelID]) {
			latest[insp.ParcelID] = insp
		}
	}
	return latest, nil
}

// Create inserts a new inspection
func (r *GormInspectionRepository) Create(ctx context.Context, i *inspection.Inspection) error {
	model, err := models.InspectionModelFromDomain(i)
	if err != nil {
		return err
	}
	return translateError(r.db.WithContext(ctx).Create(model).Error, "create inspection")
}

// SaveWithLock updates the inspection if its stored version is unchanged
func (r *GormInspectionRepository) SaveWithLock(ctx context.Context, i *inspection.Inspection) error {
	model, err := models.InspectionModelFromDomain(i)
	if err != nil {
		return err
	}
	model.Version = i.Version + 1

	result := r.db.WithContext(ctx).
		Model(&models.InspectionModel{}).
		Where("id = ? AND version = ?", i.ID, i.Version).
		Select("*").Omit("id", "created_at").
		Updates(model)
	if result.Error != nil {
		return translateError(result.Error, "save inspection")
	}
	if result.RowsAffected == 0 {
		return conflict("inspection")
	}
	i.Version++
	return nil
}

var _ inspection.Repository = (*GormInspectionRepository)(nil)
