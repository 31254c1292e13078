package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/agrocredit/backend/internal/domain/eligibility"
	"github.com/agrocredit/backend/internal/domain/inspection"
)

// InspectionModel is the persistence model for inspections
type InspectionModel struct {
	AggregateModel
	ParcelID              uuid.UUID         `gorm:"type:uuid;not null;index:idx_inspections_parcel_created,priority:1"`
	FarmerID              uuid.UUID         `gorm:"type:uuid;not null;index"`
	InspectorID           *uuid.UUID        `gorm:"type:uuid"`
	Status                inspection.Status `gorm:"type:varchar(20);not null;default:'PENDING';index"`
	ScheduledFor          *time.Time
	StartedAt             *time.Time
	ApprovedAt            *time.Time
	CancelledAt           *time.Time
	DecidedBy             *uuid.UUID       `gorm:"type:uuid"`
	Notes                 string           `gorm:"type:text"`
	RejectionReason       string           `gorm:"type:varchar(500)"`
	EstimatedHarvestValue *decimal.Decimal `gorm:"type:decimal(18,4)"`
	FormData              []byte           `gorm:"type:jsonb"`
}

// TableName returns the table name for GORM
func (InspectionModel) TableName() string {
	return "inspections"
}

// ToDomain converts the persistence model to a domain Inspection
func (m *InspectionModel) ToDomain() (*inspection.Inspection, error) {
	form, err := decodePayload[inspection.FormDataV1](m.FormData)
	if err != nil {
		return nil, err
	}
	return &inspection.Inspection{
		BaseAggregateRoot:     m.ToDomainAggregateRoot(),
		ParcelID:              m.ParcelID,
		FarmerID:              m.FarmerID,
		InspectorID:           m.InspectorID,
		Status:                m.Status,
		ScheduledFor:          m.ScheduledFor,
		StartedAt:             m.StartedAt,
		ApprovedAt:            m.ApprovedAt,
		CancelledAt:           m.CancelledAt,
		DecidedBy:             m.DecidedBy,
		Notes:                 m.Notes,
		RejectionReason:       m.RejectionReason,
		EstimatedHarvestValue: m.EstimatedHarvestValue,
		FormData:              form,
	}, nil
}

// InspectionModelFromDomain creates a persistence model from a domain Inspection
func InspectionModelFromDomain(i *inspection.Inspection) (*InspectionModel, error) {
	form, err := encodePayload(i.FormData)
	if err != nil {
		return nil, err
	}
	m := &InspectionModel{
		ParcelID:              i.ParcelID,
		FarmerID:              i.FarmerID,
		InspectorID:           i.InspectorID,
		Status:                i.Status,
		ScheduledFor:          i.ScheduledFor,
		StartedAt:             i.StartedAt,
		ApprovedAt:            i.ApprovedAt,
		CancelledAt:           i.CancelledAt,
		DecidedBy:             i.DecidedBy,
		Notes:                 i.Notes,
		RejectionReason:       i.RejectionReason,
		EstimatedHarvestValue: i.EstimatedHarvestValue,
		FormData:              form,
	}
	m.FromDomainAggregateRoot(i.BaseAggregateRoot)
	return m, nil
}

// ParcelEstimationModel holds the current harvest estimate of a parcel.
// The parcel ID is the primary key so a re-inspection overwrites the row.
type ParcelEstimationModel struct {
	ParcelID              uuid.UUID       `gorm:"type:uuid;primaryKey"`
	SubjectID             uuid.UUID       `gorm:"type:uuid;not null;index"`
	InspectionID          uuid.UUID       `gorm:"type:uuid;not null"`
	EstimatedHarvestValue decimal.Decimal `gorm:"type:decimal(18,4);not null"`
	ComputedAt            time.Time       `gorm:"not null"`
}

// TableName returns the table name for GORM
func (ParcelEstimationModel) TableName() string {
	return "parcel_estimations"
}

// ToDomain converts the persistence model to a domain ParcelEstimation
func (m *ParcelEstimationModel) ToDomain() *eligibility.ParcelEstimation {
	return &eligibility.ParcelEstimation{
		ParcelID:              m.ParcelID,
		SubjectID:             m.SubjectID,
		InspectionID:          m.InspectionID,
		EstimatedHarvestValue: m.EstimatedHarvestValue,
		ComputedAt:            m.ComputedAt,
	}
}

// ParcelEstimationModelFromDomain creates a persistence model from a domain ParcelEstimation
func ParcelEstimationModelFromDomain(e *eligibility.ParcelEstimation) *ParcelEstimationModel {
	return &ParcelEstimationModel{
		ParcelID:              e.ParcelID,
		SubjectID:             e.SubjectID,
		InspectionID:          e.InspectionID,
		EstimatedHarvestValue: e.EstimatedHarvestValue,
		ComputedAt:            e.ComputedAt,
	}
}
