package models

import (
	"fmt"

	"github.com/google/uuid"

	"github.com/agrocredit/backend/internal/domain/farm"
	"github.com/agrocredit/backend/internal/domain/shared/valueobject"
)

// FarmerModel is the persistence model for farmers
type FarmerModel struct {
	AggregateModel
	IdentityNumber string `gorm:"type:varchar(32);not null;uniqueIndex:idx_farmers_identity_number"`
	Name           string `gorm:"type:varchar(200);not null"`
	Phone          string `gorm:"type:varchar(50)"`
	Email          string `gorm:"type:varchar(200)"`
	Address        string `gorm:"type:text"`
}

// TableName returns the table name for GORM
func (FarmerModel) TableName() string {
	return "farmers"
}

// ToDomain converts the persistence model to a domain Farmer
func (m *FarmerModel) ToDomain() (*farm.Farmer, error) {
	id, err := valueobject.NewIdentityNumber(m.IdentityNumber)
	if err != nil {
		return nil, fmt.Errorf("farmer %s has a corrupt identity number: %w", m.ID, err)
	}
	return &farm.Farmer{
		BaseAggregateRoot: m.ToDomainAggregateRoot(),
		IdentityNumber:    id,
		Contact: farm.Contact{
			Name:    m.Name,
			Phone:   m.Phone,
			Email:   m.Email,
			Address: m.Address,
		},
	}, nil
}

// FarmerModelFromDomain creates a persistence model from a domain Farmer
func FarmerModelFromDomain(f *farm.Farmer) *FarmerModel {
	m := &FarmerModel{
		IdentityNumber: f.IdentityNumber.String(),
		Name:           f.Name,
		Phone:          f.Phone,
		Email:          f.Email,
		Address:        f.Address,
	}
	m.FromDomainAggregateRoot(f.BaseAggregateRoot)
	return m
}

// ParcelModel is the persistence model for parcels
type ParcelModel struct {
	AggregateModel
	FarmerID     uuid.UUID `gorm:"type:uuid;not null;index"`
	Name         string    `gorm:"type:varchar(200);not null"`
	Crop         string    `gorm:"type:varchar(100)"`
	Location     string    `gorm:"type:text"`
	AreaHectares float64   `gorm:"type:decimal(12,4);not null;default:0"`
}

// TableName returns the table name for GORM
func (ParcelModel) TableName() string {
	return "parcels"
}

// ToDomain converts the persistence model to a domain Parcel
func (m *ParcelModel) ToDomain() *farm.Parcel {
	return &farm.Parcel{
		BaseAggregateRoot: m.ToDomainAggregateRoot(),
		FarmerID:          m.FarmerID,
		Name:              m.Name,
		Crop:              m.Crop,
		Location:          m.Location,
		AreaHectares:      m.AreaHectares,
	}
}

// ParcelModelFromDomain creates a persistence model from a domain Parcel
func ParcelModelFromDomain(p *farm.Parcel) *ParcelModel {
	m := &ParcelModel{
		FarmerID:     p.FarmerID,
		Name:         p.Name,
		Crop:         p.Crop,
		Location:     p.Location,
		AreaHectares: p.AreaHectares,
	}
	m.FromDomainAggregateRoot(p.BaseAggregateRoot)
	return m
}
