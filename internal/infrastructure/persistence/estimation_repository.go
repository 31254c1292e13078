package persistence

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/agrocredit/backend/internal/domain/eligibility"
	"github.com/agrocredit/backend/internal/infrastructure/persistence/models"
)

// GormEstimationRepository implements eligibility.EstimationRepository using GORM
type GormEstimationRepository struct {
	db *gorm.DB
}

// NewGormEstimationRepository creates a new GormEstimationRepository
func NewGormEstimationRepository(db *gorm.DB) *GormEstimationRepository {
	return &GormEstimationRepository{db: db}
}

// Upsert writes the parcel's estimation. An existing row computed later than
// e is kept, so a redelivered older approval cannot overwrite a newer one.
func (r *GormEstimationRepository) Upsert(ctx context.Context, e *eligibility.ParcelEstimation) error {
	err := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "parcel_id"}},
			DoUpdates: clause.AssignmentColumns([]string{"subject_id", "inspection_id", "estimated_harvest_value", "computed_at"}),
			Where: clause.Where{Exprs: []clause.Expression{
				clause.Expr{SQL: "parcel_estimations.computed_at <= excluded.computed_at"},
			}},
		}).
		Create(models.ParcelEstimationModelFromDomain(e)).Error
	return translateError(err, "upsert parcel estimation")
}

// FindByParcel returns the current estimation of a parcel, or nil
func (r *GormEstimationRepository) FindByParcel(ctx context.Context, parcelID uuid.UUID) (*eligibility.ParcelEstimation, error) {
	var model models.ParcelEstimationModel
	if err := r.db.WithContext(ctx).Where("parcel_id = ?", parcelID).First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, translateError(err, "find parcel estimation")
	}
	return model.ToDomain(), nil
}

// FindBySubject lists the current estimations of a subject's parcels
func (r *GormEstimationRepository) FindBySubject(ctx context.Context, subjectID uuid.UUID) ([]eligibility.ParcelEstimation, error) {
	var rows []models.ParcelEstimationModel
	if err := r.db.WithContext(ctx).Where("subject_id = ?", subjectID).Order("parcel_id").Find(&rows).Error; err != nil {
		return nil, translateError(err, "list parcel estimations")
	}
	result := make([]eligibility.ParcelEstimation, len(rows))
	for i := range rows {
		result[i] = *rows[i].ToDomain()
	}
	return result, nil
}

var _ eligibility.EstimationRepository = (*GormEstimationRepository)(nil)
