package inspection

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/agrocredit/backend/internal/domain/shared"
)

// Event type constants for inspections
const (
	EventTypeInspectionApproved = "InspectionApproved"
	EventTypeInspectionRejected = "InspectionRejected"
)

// InspectionApprovedEvent carries what the registrar needs to turn the
// approval into a productive subject and a parcel estimation.
type InspectionApprovedEvent struct {
	shared.BaseDomainEvent
	InspectionID          uuid.UUID       `json:"inspection_id"`
	ParcelID              uuid.UUID       `json:"parcel_id"`
	FarmerID              uuid.UUID       `json:"farmer_id"`
	EstimatedHarvestValue decimal.Decimal `json:"estimated_harvest_value"`
	ApprovedAt            time.Time       `json:"approved_at"`
	ApprovedBy            *uuid.UUID      `json:"approved_by,omitempty"`
}

// EventType returns the event type name
func (e *InspectionApprovedEvent) EventType() string {
	return EventTypeInspectionApproved
}

// NewInspectionApprovedEvent creates the event from an approved inspection
func NewInspectionApprovedEvent(i *Inspection) *InspectionApprovedEvent {
	ev := &InspectionApprovedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeInspectionApproved, AggregateTypeInspection, i.ID),
		InspectionID:    i.ID,
		ParcelID:        i.ParcelID,
		FarmerID:        i.FarmerID,
		ApprovedBy:      i.DecidedBy,
	}
	if i.EstimatedHarvestValue != nil {
		ev.EstimatedHarvestValue = *i.EstimatedHarvestValue
	}
	if i.ApprovedAt != nil {
		ev.ApprovedAt = *i.ApprovedAt
	}
	return ev
}

// InspectionRejectedEvent is raised when an inspection is cancelled
type InspectionRejectedEvent struct {
	shared.BaseDomainEvent
	InspectionID uuid.UUID `json:"inspection_id"`
	ParcelID     uuid.UUID `json:"parcel_id"`
	Reason       string    `json:"reason"`
}

// EventType returns the event type name
func (e *InspectionRejectedEvent) EventType() string {
	return EventTypeInspectionRejected
}

// NewInspectionRejectedEvent creates the event from a rejected inspection
func NewInspectionRejectedEvent(i *Inspection) *InspectionRejectedEvent {
	return &InspectionRejectedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeInspectionRejected, AggregateTypeInspection, i.ID),
		InspectionID:    i.ID,
		ParcelID:        i.ParcelID,
		Reason:          i.RejectionReason,
	}
}
