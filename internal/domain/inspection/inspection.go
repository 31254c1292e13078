// Package inspection implements the field inspection state machine.
package inspection

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/agrocredit/backend/internal/domain/shared"
	"github.com/agrocredit/backend/internal/domain/shared/valueobject"
)

// AggregateTypeInspection is the aggregate type for Inspection
const AggregateTypeInspection = "Inspection"

// Status represents the lifecycle status of an inspection
type Status string

const (
	StatusPending    Status = "PENDING"
	StatusScheduled  Status = "SCHEDULED"
	StatusInProgress Status = "IN_PROGRESS"
	StatusCompleted  Status = "COMPLETED" // approved
	StatusCancelled  Status = "CANCELLED" // rejected
)

// IsValid checks if the status is a valid Status
func (s Status) IsValid() bool {
	switch s {
	case StatusPending, StatusScheduled, StatusInProgress, StatusCompleted, StatusCancelled:
		return true
	}
	return false
}

// String returns the string representation of Status
func (s Status) String() string {
	return string(s)
}

// IsTerminal returns true for approved and rejected inspections
func (s Status) IsTerminal() bool {
	return s == StatusCompleted || s == StatusCancelled
}

// IsApproved reports whether the inspection passed
func (s Status) IsApproved() bool {
	return s == StatusCompleted
}

// CanSchedule returns true if the inspection can be scheduled
func (s Status) CanSchedule() bool {
	return s == StatusPending
}

// CanStart returns true if the field visit can begin
func (s Status) CanStart() bool {
	return s == StatusScheduled
}

// CanDecide returns true if the inspection can be approved or rejected
func (s Status) CanDecide() bool {
	return s == StatusScheduled || s == StatusInProgress
}

// FormDataV1 is the schema version 1 body of the inspection form
type FormDataV1 struct {
	Crop            string          `json:"crop,omitempty"`
	PlantedHectares decimal.Decimal `json:"planted_hectares"`
	ExpectedYieldKg decimal.Decimal `json:"expected_yield_kg"`
	PricePerKg      decimal.Decimal `json:"price_per_kg"`
	Observations    string          `json:"observations,omitempty"`
}

// FormData is the versioned form attachment of an inspection
type FormData = shared.Payload[FormDataV1]

// Inspection is a field visit to one parcel. It is never deleted, only
// transitioned.
type Inspection struct {
	shared.BaseAggregateRoot
	ParcelID              uuid.UUID
	FarmerID              uuid.UUID
	InspectorID           *uuid.UUID
	Status                Status
	ScheduledFor          *time.Time
	StartedAt             *time.Time
	ApprovedAt            *time.Time
	CancelledAt           *time.Time
	DecidedBy             *uuid.UUID
	Notes                 string
	RejectionReason       string
	EstimatedHarvestValue *decimal.Decimal
	FormData              FormData
}

// NewInspection opens a pending inspection for a parcel
func NewInspection(parcelID, farmerID uuid.UUID, notes string) (*Inspection, error) {
	if parcelID == uuid.Nil {
		return nil, shared.NewValidationError("INVALID_PARCEL", "parcel ID cannot be empty")
	}
	if farmerID == uuid.Nil {
		return nil, shared.NewValidationError("INVALID_FARMER", "farmer ID cannot be empty")
	}
	return &Inspection{
		BaseAggregateRoot: shared.NewBaseAggregateRoot(),
		ParcelID:          parcelID,
		FarmerID:          farmerID,
		Status:            StatusPending,
		Notes:             strings.TrimSpace(notes),
	}, nil
}

func (i *Inspection) transitionError(to Status) error {
	return shared.NewInvalidTransitionError("inspection", i.Status, to)
}

// Schedule assigns a visit date and inspector
func (i *Inspection) Schedule(at time.Time, inspectorID *uuid.UUID) error {
	if !i.Status.CanSchedule() {
		return i.transitionError(StatusScheduled)
	}
	if at.IsZero() {
		return shared.NewValidationError("INVALID_SCHEDULE", "scheduled date is required")
	}
	at = at.UTC()
	i.Status = StatusScheduled
	i.ScheduledFor = &at
	i.InspectorID = inspectorID
	i.Touch(time.Now().UTC())
	return nil
}

// Start marks the field visit as begun
func (i *Inspection) Start() error {
	if !i.Status.CanStart() {
		return i.transitionError(StatusInProgress)
	}
	now := time.Now().UTC()
	i.Status = StatusInProgress
	i.StartedAt = &now
	i.Touch(now)
	return nil
}

// Approve completes the inspection with a harvest estimate and raises
// InspectionApprovedEvent, whose handler registers the productive subject and
// the parcel estimation.
func (i *Inspection) Approve(notes string, estimatedHarvestValue decimal.Decimal, form FormData, by *uuid.UUID) error {
	if !i.Status.CanDecide() {
		return i.transitionError(StatusCompleted)
	}
	if err := valueobject.RequireNonNegative("ESTIMATED_HARVEST_VALUE", estimatedHarvestValue); err != nil {
		return err
	}
	now := time.Now().UTC()
	value := valueobject.RoundAmount(estimatedHarvestValue)
	i.Status = StatusCompleted
	i.ApprovedAt = &now
	i.DecidedBy = by
	i.EstimatedHarvestValue = &value
	if n := strings.TrimSpace(notes); n != "" {
		i.Notes = n
	}
	if !form.IsEmpty() {
		i.FormData = form
	}
	i.Touch(now)

	i.AddDomainEvent(NewInspectionApprovedEvent(i))
	return nil
}

// Reject cancels the inspection with a reason. Rejection has no side effects.
func (i *Inspection) Reject(reason string, by *uuid.UUID) error {
	if !i.Status.CanDecide() {
		return i.transitionError(StatusCancelled)
	}
	reason = strings.TrimSpace(reason)
	if reason == "" {
		return shared.NewValidationError("REASON_REQUIRED", "rejection reason is required")
	}
	now := time.Now().UTC()
	i.Status = StatusCancelled
	i.CancelledAt = &now
	i.DecidedBy = by
	i.RejectionReason = reason
	i.Touch(now)

	i.AddDomainEvent(NewInspectionRejectedEvent(i))
	return nil
}

// IsLatestFor reports whether i is newer than other for the same parcel.
// Ties on creation time are broken by ID so the order is total.
func (i *Inspection) IsLatestFor(other *Inspection) bool {
	if other == nil {
		return true
	}
	if !i.CreatedAt.Equal(other.CreatedAt) {
		return i.CreatedAt.After(other.CreatedAt)
	}
	return i.ID.String() > other.ID.String()
}

// NewFormData wraps a version 1 form body
func NewFormData(v FormDataV1) FormData {
	return shared.NewPayloadV1(v)
}
