package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/agrocredit/backend/internal/domain/financing"
)

// FinancingModel is the persistence model for financings
type FinancingModel struct {
	AggregateModel
	SubjectID             uuid.UUID       `gorm:"type:uuid;not null;index"`
	ParcelID              uuid.UUID       `gorm:"type:uuid;not null;index"`
	Principal             decimal.Decimal `gorm:"type:decimal(18,4);not null"`
	Rate                  decimal.Decimal `gorm:"type:decimal(9,6);not null"`
	NumberOfHarvestCycles int             `gorm:"not null"`
	Purpose               string          `gorm:"type:varchar(500);not null"`
	State                 financing.State `gorm:"type:varchar(20);not null;default:'ACTIVO';index"`
	TotalRepaid           decimal.Decimal `gorm:"type:decimal(18,4);not null;default:0"`
	StateChangedAt        time.Time       `gorm:"not null"`
	CreatedBy             *uuid.UUID      `gorm:"type:uuid"`
	Metadata              []byte          `gorm:"type:jsonb"`
}

// TableName returns the table name for GORM
func (FinancingModel) TableName() string {
	return "financings"
}

// ToDomain converts the persistence model to a domain Financing
func (m *FinancingModel) ToDomain() (*financing.Financing, error) {
	meta, err := decodePayload[financing.MetadataV1](m.Metadata)
	if err != nil {
		return nil, err
	}
	return &financing.Financing{
		BaseAggregateRoot:     m.ToDomainAggregateRoot(),
		SubjectID:             m.SubjectID,
		ParcelID:              m.ParcelID,
		Principal:             m.Principal,
		Rate:                  m.Rate,
		NumberOfHarvestCycles: m.NumberOfHarvestCycles,
		Purpose:               m.Purpose,
		State:                 m.State,
		TotalRepaid:           m.TotalRepaid,
		StateChangedAt:        m.StateChangedAt,
		CreatedBy:             m.CreatedBy,
		Metadata:              meta,
	}, nil
}

// FinancingModelFromDomain creates a persistence model from a domain Financing
func FinancingModelFromDomain(f *financing.Financing) (*FinancingModel, error) {
	meta, err := encodePayload(f.Metadata)
	if err != nil {
		return nil, err
	}
	m := &FinancingModel{
		SubjectID:             f.SubjectID,
		ParcelID:              f.ParcelID,
		Principal:             f.Principal,
		Rate:                  f.Rate,
		NumberOfHarvestCycles: f.NumberOfHarvestCycles,
		Purpose:               f.Purpose,
		State:                 f.State,
		TotalRepaid:           f.TotalRepaid,
		StateChangedAt:        f.StateChangedAt,
		CreatedBy:             f.CreatedBy,
		Metadata:              meta,
	}
	m.FromDomainAggregateRoot(f.BaseAggregateRoot)
	return m, nil
}

// PaymentModel is the persistence model for the append-only payment ledger
type PaymentModel struct {
	ID             uuid.UUID               `gorm:"type:uuid;primaryKey"`
	SubjectID      uuid.UUID               `gorm:"type:uuid;not null;index"`
	FinancingID    uuid.UUID               `gorm:"type:uuid;not null;index"`
	Date           time.Time               `gorm:"not null;index"`
	SaleAmount     decimal.Decimal         `gorm:"type:decimal(18,4);not null"`
	RetainedAmount decimal.Decimal         `gorm:"type:decimal(18,4);not null"`
	FarmerProfit   decimal.Decimal         `gorm:"type:decimal(18,4);not null"`
	Method         financing.PaymentMethod `gorm:"type:varchar(30);not null"`
	Reference      *string                 `gorm:"type:varchar(100)"`
	RecordedBy     *uuid.UUID              `gorm:"type:uuid"`
	CreatedAt      time.Time               `gorm:"not null"`
}

// TableName returns the table name for GORM
func (PaymentModel) TableName() string {
	return "payments"
}

// ToDomain converts the persistence model to a domain Payment
func (m *PaymentModel) ToDomain() *financing.Payment {
	return &financing.Payment{
		ID:             m.ID,
		SubjectID:      m.SubjectID,
		FinancingID:    m.FinancingID,
		Date:           m.Date,
		SaleAmount:     m.SaleAmount,
		RetainedAmount: m.RetainedAmount,
		FarmerProfit:   m.FarmerProfit,
		Method:         m.Method,
		Reference:      m.Reference,
		RecordedBy:     m.RecordedBy,
		CreatedAt:      m.CreatedAt,
	}
}

// PaymentModelFromDomain creates a persistence model from a domain Payment
func PaymentModelFromDomain(p *financing.Payment) *PaymentModel {
	return &PaymentModel{
		ID:             p.ID,
		SubjectID:      p.SubjectID,
		FinancingID:    p.FinancingID,
		Date:           p.Date,
		SaleAmount:     p.SaleAmount,
		RetainedAmount: p.RetainedAmount,
		FarmerProfit:   p.FarmerProfit,
		Method:         p.Method,
		Reference:      p.Reference,
		RecordedBy:     p.RecordedBy,
		CreatedAt:      p.CreatedAt,
	}
}
