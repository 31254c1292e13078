package persistence

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/agrocredit/backend/internal/domain/subject"
	"github.com/agrocredit/backend/internal/infrastructure/persistence/models"
)

// GormSubjectRepository implements subject.Repository using GORM
type GormSubjectRepository struct {
	db *gorm.DB
}

// NewGormSubjectRepository creates a new GormSubjectRepository
func NewGormSubjectRepository(db *gorm.DB) *GormSubjectRepository {
	return &GormSubjectRepository{db: db}
}

// FindByID finds a subject by ID
func (r *GormSubjectRepository) FindByID(ctx context.Context, id uuid.UUID) (*subject.ProductiveSubject, error) {
	return r.findOne(r.db.WithContext(ctx).Where("id = ?", id))
}

// FindByIDForUpdate finds a subject and locks its row
func (r *GormSubjectRepository) FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*subject.ProductiveSubject, error) {
	return r.findOne(r.db.WithContext(ctx).Clauses(clause.Locking{Strength: "UPDATE"}).Where("id = ?", id))
}

// FindByIdentityNumberForUpdate finds the subject of an identity number and locks its row
func (r *GormSubjectRepository) FindByIdentityNumberForUpdate(ctx context.Context, identityNumber string) (*subject.ProductiveSubject, error) {
	return r.findOne(r.db.WithContext(ctx).Clauses(clause.Locking{Strength: "UPDATE"}).Where("identity_number = ?", identityNumber))
}

func (r *GormSubjectRepository) findOne(query *gorm.DB) (*subject.ProductiveSubject, error) {
	var model models.ProductiveSubjectModel
	if err := query.First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, translateError(err, "find productive subject")
	}
	return model.ToDomain()
}

// InsertIfAbsent inserts the subject unless its identity number is taken.
// INSERT ... ON CONFLICT (identity_number) DO NOTHING never fails on a
// concurrent insert of the same identity number.
func (r *GormSubjectRepository) InsertIfAbsent(ctx context.Context, s *subject.ProductiveSubject) (bool, error) {
	result := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "identity_number"}},
			DoNothing: true,
		}).
		Create(models.ProductiveSubjectModelFromDomain(s))
	if result.Error != nil {
		return false, translateError(result.Error, "insert productive subject")
	}
	return result.RowsAffected == 1, nil
}

// SaveWithLock updates the subject if its stored version is unchanged.
// The identity number column is never written.
func (r *GormSubjectRepository) SaveWithLock(ctx context.Context, s *subject.ProductiveSubject) error {
	model := models.ProductiveSubjectModelFromDomain(s)
	model.Version = s.Version + 1

	result := r.db.WithContext(ctx).
		Model(&models.ProductiveSubjectModel{}).
		Where("id = ? AND version = ?", s.ID, s.Version).
		Select("*").Omit("id", "created_at", "identity_number").
		Updates(model)
	if result.Error != nil {
		return translateError(result.Error, "save productive subject")
	}
	if result.RowsAffected == 0 {
		return conflict("productive subject")
	}
	s.Version++
	return nil
}

var _ subject.Repository = (*GormSubjectRepository)(nil)
