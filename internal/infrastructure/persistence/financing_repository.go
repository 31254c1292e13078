package persistence

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/agrocredit/backend/internal/domain/financing"
	"github.com/agrocredit/backend/internal/infrastructure/persistence/models"
)

// openStates are the states whose principal still counts as exposure
var openStates = []financing.State{financing.StateActivo, financing.StateEnSeguimiento}

// GormFinancingRepository implements financing.Repository using GORM
type GormFinancingRepository struct {
	db *gorm.DB
}

// NewGormFinancingRepository creates a new GormFinancingRepository
func NewGormFinancingRepository(db *gorm.DB) *GormFinancingRepository {
	return &GormFinancingRepository{db: db}
}

// FindByID finds a financing by ID
func (r *GormFinancingRepository) FindByID(ctx context.Context, id uuid.UUID) (*financing.Financing, error) {
	return r.findOne(r.db.WithContext(ctx), id)
}

// FindByIDForUpdate finds a financing and locks its row
func (r *GormFinancingRepository) FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*financing.Financing, error) {
	return r.findOne(r.db.WithContext(ctx).Clauses(clause.Locking{Strength: "UPDATE"}), id)
}

func (r *GormFinancingRepository) findOne(db *gorm.DB, id uuid.UUID) (*financing.Financing, error) {
	var model models.FinancingModel
	if err := db.Where("id = ?", id).First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, translateError(err, "find financing")
	}
	return model.ToDomain()
}

// FindAll lists financings, newest first
func (r *GormFinancingRepository) FindAll(ctx context.Context, filter financing.Filter) ([]financing.Financing, int64, error) {
	query := r.db.WithContext(ctx).Model(&models.FinancingModel{})
	if len(filter.States) > 0 {
		query = query.Where("state IN ?", filter.States)
	}
	if filter.SubjectID != nil {
		query = query.Where("subject_id = ?", *filter.SubjectID)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, translateError(err, "count financings")
	}

	var rows []models.FinancingModel
	page := filter.Page.Normalize()
	if err := query.Order("created_at DESC, id DESC").Offset(page.Offset()).Limit(page.Size).Find(&rows).Error; err != nil {
		return nil, 0, translateError(err, "list financings")
	}
	result, err := financingsToDomain(rows)
	if err != nil {
		return nil, 0, err
	}
	return result, total, nil
}

// SumOpenPrincipal sums the principal of the subject's open financings
func (r *GormFinancingRepository) SumOpenPrincipal(ctx context.Context, subjectID uuid.UUID) (decimal.Decimal, error) {
	var sum struct {
		Total decimal.Decimal
	}
	err := r.db.WithContext(ctx).
		Model(&models.FinancingModel{}).
		Select("COALESCE(SUM(principal), 0) AS total").
		Where("subject_id = ? AND state IN ?", subjectID, openStates).
		Scan(&sum).Error
	if err != nil {
		return decimal.Zero, translateError(err, "sum open principal")
	}
	return sum.Total, nil
}

// CountByState counts financings per lifecycle state
func (r *GormFinancingRepository) CountByState(ctx context.Context) (map[string]int64, error) {
	var rows []struct {
		State string
		Count int64
	}
	err := r.db.WithContext(ctx).
		Model(&models.FinancingModel{}).
		Select("state, COUNT(*) AS count").
		Group("state").
		Scan(&rows).Error
	if err != nil {
		return nil, translateError(err, "count financings by state")
	}
	counts := make(map[string]int64, len(rows))
	for _, row := range rows {
		counts[row.State] = row.Count
	}
	return counts, nil
}

// FindOpenCreatedBefore returns open financings originated before the cutoff
func (r *GormFinancingRepository) FindOpenCreatedBefore(ctx context.Context, before time.Time, after *financing.ScanCursor, limit int) ([]financing.Financing, error) {
	var rows []models.FinancingModel
	query := r.db.WithContext(ctx).
		Where("state IN ? AND created_at < ?", openStates, before)
	if after != nil {
		query = query.Where("(created_at > ? OR (created_at = ? AND id > ?))", after.CreatedAt, after.CreatedAt, after.ID)
	}
	err := query.
		Order("created_at ASC, id ASC").
		Limit(limit).
		Find(&rows).Error
	if err != nil {
		return nil, translateError(err, "find overdue candidates")
	}
	return financingsToDomain(rows)
}

// Create inserts a new financing
func (r *GormFinancingRepository) Create(ctx context.Context, f *financing.Financing) error {
	model, err := models.FinancingModelFromDomain(f)
	if err != nil {
		return err
	}
	return translateError(r.db.WithContext(ctx).Create(model).Error, "create financing")
}

// SaveWithLock updates the financing if its stored version is unchanged
func (r *GormFinancingRepository) SaveWithLock(ctx context.Context, f *financing.Financing) error {
	model, err := models.FinancingModelFromDomain(f)
	if err != nil {
		return err
	}
	model.Version = f.Version + 1

	result := r.db.WithContext(ctx).
		Model(&models.FinancingModel{}).
		Where("id = ? AND version = ?", f.ID, f.Version).
		Select("*").Omit("id", "created_at").
		Updates(model)
	if result.Error != nil {
		return translateError(result.Error, "save financing")
	}
	if result.RowsAffected == 0 {
		return conflict("financing")
	}
	f.Version++
	return nil
}

func financingsToDomain(rows []models.FinancingModel) ([]financing.Financing, error) {
	result := make([]financing.Financing, 0, len(rows))
	for i := range rows {
		f, err := rows[i].ToDomain()
		if err != nil {
			return nil, err
		}
		result = append(result, *f)
	}
	return result, nil
}

var _ financing.Repository = (*GormFinancingRepository)(nil)
