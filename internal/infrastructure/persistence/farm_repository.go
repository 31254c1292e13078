package persistence

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/agrocredit/backend/internal/domain/farm"
	"github.com/agrocredit/backend/internal/domain/shared"
	"github.com/agrocredit/backend/internal/infrastructure/persistence/models"
)

// GormFarmerRepository implements farm.FarmerRepository using GORM
type GormFarmerRepository struct {
	db *gorm.DB
}

// NewGormFarmerRepository creates a new GormFarmerRepository
func NewGormFarmerRepository(db *gorm.DB) *GormFarmerRepository {
	return &GormFarmerRepository{db: db}
}

// FindByID finds a farmer by ID
func (r *GormFarmerRepository) FindByID(ctx context.Context, id uuid.UUID) (*farm.Farmer, error) {
	var model models.FarmerModel
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, translateError(err, "find farmer")
	}
	return model.ToDomain()
}

// FindByIdentityNumber finds a farmer by normalized identity number
func (r *GormFarmerRepository) FindByIdentityNumber(ctx context.Context, identityNumber string) (*farm.Farmer, error) {
	var model models.FarmerModel
	if err := r.db.WithContext(ctx).Where("identity_number = ?", identityNumber).First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, translateError(err, "find farmer")
	}
	return model.ToDomain()
}

// FindAll lists farmers, optionally filtered by a name or identity number fragment
func (r *GormFarmerRepository) FindAll(ctx context.Context, filter farm.FarmerFilter) ([]farm.Farmer, int64, error) {
	query := r.db.WithContext(ctx).Model(&models.FarmerModel{})
	if s := strings.TrimSpace(filter.Search); s != "" {
		like := "%" + strings.ToLower(s) + "%"
		query = query.Where("LOWER(name) LIKE ? OR LOWER(identity_number) LIKE ?", like, like)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, translateError(err, "count farmers")
	}

	var rows []models.FarmerModel
	page := filter.Page.Normalize()
	order := ValidateSortField(filter.OrderBy, FarmerSortFields, "name") + " " + ValidateSortOrder(filter.OrderDir)
	if err := query.Order(order + ", id ASC").Offset(page.Offset()).Limit(page.Size).Find(&rows).Error; err != nil {
		return nil, 0, translateError(err, "list farmers")
	}

	farmers := make([]farm.Farmer, 0, len(rows))
	for i := range rows {
		f, err := rows[i].ToDomain()
		if err != nil {
			return nil, 0, err
		}
		farmers = append(farmers, *f)
	}
	return farmers, total, nil
}

// Save inserts a new farmer or updates an existing one with a version check
func (r *GormFarmerRepository) Save(ctx context.Context, f *farm.Farmer) error {
	model := models.FarmerModelFromDomain(f)
	return saveVersioned(r.db.WithContext(ctx), model, &model.AggregateModel, &f.BaseAggregateRoot, "farmer")
}

// GormParcelRepository implements farm.ParcelRepository using GORM
type GormParcelRepository struct {
	db *gorm.DB
}

// NewGormParcelRepository creates a new GormParcelRepository
func NewGormParcelRepository(db *gorm.DB) *GormParcelRepository {
	return &GormParcelRepository{db: db}
}

// FindByID finds a parcel by ID
func (r *GormParcelRepository) FindByID(ctx context.Context, id uuid.UUID) (*farm.Parcel, error) {
	var model models.ParcelModel
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, translateError(err, "find parcel")
	}
	return model.ToDomain(), nil
}

// FindByFarmer lists the parcels of a farmer
func (r *GormParcelRepository) FindByFarmer(ctx context.Context, farmerID uuid.UUID) ([]farm.Parcel, error) {
	var rows []models.ParcelModel
	if err := r.db.WithContext(ctx).Where("farmer_id = ?", farmerID).Order("name ASC, id ASC").Find(&rows).Error; err != nil {
		return nil, translateError(err, "list parcels")
	}
	parcels := make([]farm.Parcel, len(rows))
	for i := range rows {
		parcels[i] = *rows[i].ToDomain()
	}
	return parcels, nil
}

// Save inserts a new parcel or updates an existing one with a version check
func (r *GormParcelRepository) Save(ctx context.Context, p *farm.Parcel) error {
	model := models.ParcelModelFromDomain(p)
	return saveVersioned(r.db.WithContext(ctx), model, &model.AggregateModel, &p.BaseAggregateRoot, "parcel")
}

// saveVersioned inserts model when no row has its ID, otherwise updates the
// row whose version still matches agg and bumps agg.Version
func saveVersioned(db *gorm.DB, model any, base *models.AggregateModel, agg *shared.BaseAggregateRoot, entity string) error {
	var count int64
	if err := db.Model(model).Where("id = ?", agg.ID).Count(&count).Error; err != nil {
		return translateError(err, "save "+entity)
	}
	if count == 0 {
		return translateError(db.Create(model).Error, "create "+entity)
	}

	base.Version = agg.Version + 1
	result := db.Model(model).
		Where("id = ? AND version = ?", agg.ID, agg.Version).
		Select("*").Omit("id", "created_at").
		Updates(model)
	if result.Error != nil {
		return translateError(result.Error, "save "+entity)
	}
	if result.RowsAffected == 0 {
		return conflict(entity)
	}
	agg.Version++
	return nil
}

var (
	_ farm.FarmerRepository = (*GormFarmerRepository)(nil)
	_ farm.ParcelRepository = (*GormParcelRepository)(nil)
)
