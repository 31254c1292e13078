// Package eligibility computes how much credit a productive subject may be
// granted from the harvest estimates of its approved parcels.
package eligibility

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/agrocredit/backend/internal/domain/shared"
	"github.com/agrocredit/backend/internal/domain/shared/valueobject"
)

// ParcelEstimation is the current harvest estimate of a parcel. A parcel has
// at most one; a later approval supersedes it.
type ParcelEstimation struct {
	ParcelID              uuid.UUID
	SubjectID             uuid.UUID
	InspectionID          uuid.UUID
	EstimatedHarvestValue decimal.Decimal
	ComputedAt            time.Time
}

// NewParcelEstimation validates and builds an estimation
func NewParcelEstimation(parcelID, subjectID, inspectionID uuid.UUID, value decimal.Decimal, computedAt time.Time) (*ParcelEstimation, error) {
	if parcelID == uuid.Nil || subjectID == uuid.Nil || inspectionID == uuid.Nil {
		return nil, shared.NewValidationError("INVALID_ESTIMATION", "estimation needs parcel, subject and inspection")
	}
	if err := valueobject.RequireNonNegative("ESTIMATED_HARVEST_VALUE", value); err != nil {
		return nil, err
	}
	if computedAt.IsZero() {
		computedAt = time.Now()
	}
	return &ParcelEstimation{
		ParcelID:              parcelID,
		SubjectID:             subjectID,
		InspectionID:          inspectionID,
		EstimatedHarvestValue: valueobject.RoundAmount(value),
		ComputedAt:            computedAt.UTC(),
	}, nil
}

// Supersedes reports whether e should replace current as the parcel's estimate
func (e *ParcelEstimation) Supersedes(current *ParcelEstimation) bool {
	if current == nil {
		return true
	}
	return !e.ComputedAt.Before(current.ComputedAt)
}

// EstimationRepository persists parcel estimations
type EstimationRepository interface {
	// Upsert writes the estimation, replacing the parcel's previous one only
	// if it is not newer than e
	Upsert(ctx context.Context, e *ParcelEstimation) error
	FindByParcel(ctx context.Context, parcelID uuid.UUID) (*ParcelEstimation, error)
	FindBySubject(ctx context.Context, subjectID uuid.UUID) ([]ParcelEstimation, error)
}
