package models

import (
	"fmt"

	"github.com/agrocredit/backend/internal/domain/shared/valueobject"
	"github.com/agrocredit/backend/internal/domain/subject"
)

// ProductiveSubjectModel is the persistence model for productive subjects
type ProductiveSubjectModel struct {
	AggregateModel
	IdentityNumber string `gorm:"type:varchar(32);not null;uniqueIndex:idx_productive_subjects_identity_number"`
	Name           string `gorm:"type:varchar(200)"`
	Phone          string `gorm:"type:varchar(50)"`
	Email          string `gorm:"type:varchar(200)"`
	Address        string `gorm:"type:text"`
}

// TableName returns the table name for GORM
func (ProductiveSubjectModel) TableName() string {
	return "productive_subjects"
}

// ToDomain converts the persistence model to a domain ProductiveSubject
func (m *ProductiveSubjectModel) ToDomain() (*subject.ProductiveSubject, error) {
	id, err := valueobject.NewIdentityNumber(m.IdentityNumber)
	if err != nil {
		return nil, fmt.Errorf("subject %s has a corrupt identity number: %w", m.ID, err)
	}
	return subject.Reconstruct(m.ToDomainAggregateRoot(), id, m.Name, m.Phone, m.Email, m.Address), nil
}

// ProductiveSubjectModelFromDomain creates a persistence model from a domain ProductiveSubject
func ProductiveSubjectModelFromDomain(s *subject.ProductiveSubject) *ProductiveSubjectModel {
	m := &ProductiveSubjectModel{
		IdentityNumber: s.IdentityNumber().String(),
		Name:           s.Name,
		Phone:          s.Phone,
		Email:          s.Email,
		Address:        s.Address,
	}
	m.FromDomainAggregateRoot(s.BaseAggregateRoot)
	return m
}
