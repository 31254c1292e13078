package financing

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/agrocredit/backend/internal/domain/shared"
)

// Event type constants for financings
const (
	EventTypeFinancingCreated      = "FinancingCreated"
	EventTypeFinancingStateChanged = "FinancingStateChanged"
	EventTypePaymentRegistered     = "PaymentRegistered"
)

// FinancingCreatedEvent is raised when a financing is originated
type FinancingCreatedEvent struct {
	shared.BaseDomainEvent
	FinancingID uuid.UUID       `json:"financing_id"`
	SubjectID   uuid.UUID       `json:"subject_id"`
	ParcelID    uuid.UUID       `json:"parcel_id"`
	Principal   decimal.Decimal `json:"principal"`
	Cycles      int             `json:"number_of_harvest_cycles"`
}

// EventType returns the event type name
func (e *FinancingCreatedEvent) EventType() string {
	return EventTypeFinancingCreated
}

// NewFinancingCreatedEvent creates the event for a new financing
func NewFinancingCreatedEvent(f *Financing) *FinancingCreatedEvent {
	return &FinancingCreatedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeFinancingCreated, AggregateTypeFinancing, f.ID),
		FinancingID:     f.ID,
		SubjectID:       f.SubjectID,
		ParcelID:        f.ParcelID,
		Principal:       f.Principal,
		Cycles:          f.NumberOfHarvestCycles,
	}
}

// FinancingStateChangedEvent is raised on every state edge
type FinancingStateChangedEvent struct {
	shared.BaseDomainEvent
	FinancingID uuid.UUID       `json:"financing_id"`
	SubjectID   uuid.UUID       `json:"subject_id"`
	From        State           `json:"from"`
	To          State           `json:"to"`
	Reason      string          `json:"reason,omitempty"`
	TotalRepaid decimal.Decimal `json:"total_repaid"`
	ChangedAt   time.Time       `json:"changed_at"`
}

// EventType returns the event type name
func (e *FinancingStateChangedEvent) EventType() string {
	return EventTypeFinancingStateChanged
}

// NewFinancingStateChangedEvent creates the event for a state edge
func NewFinancingStateChangedEvent(f *Financing, from State, reason string) *FinancingStateChangedEvent {
	return &FinancingStateChangedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeFinancingStateChanged, AggregateTypeFinancing, f.ID),
		FinancingID:     f.ID,
		SubjectID:       f.SubjectID,
		From:            from,
		To:              f.State,
		Reason:          reason,
		TotalRepaid:     f.TotalRepaid,
		ChangedAt:       f.StateChangedAt,
	}
}

// PaymentRegisteredEvent is raised for every ledger entry
type PaymentRegisteredEvent struct {
	shared.BaseDomainEvent
	PaymentID      uuid.UUID       `json:"payment_id"`
	FinancingID    uuid.UUID       `json:"financing_id"`
	SubjectID      uuid.UUID       `json:"subject_id"`
	SaleAmount     decimal.Decimal `json:"sale_amount"`
	RetainedAmount decimal.Decimal `json:"retained_amount"`
	FarmerProfit   decimal.Decimal `json:"farmer_profit"`
	Method         PaymentMethod   `json:"method"`
}

// EventType returns the event type name
func (e *PaymentRegisteredEvent) EventType() string {
	return EventTypePaymentRegistered
}

// NewPaymentRegisteredEvent creates the event for a payment
func NewPaymentRegisteredEvent(f *Financing, p *Payment) *PaymentRegisteredEvent {
	return &PaymentRegisteredEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypePaymentRegistered, AggregateTypeFinancing, f.ID),
		PaymentID:       p.ID,
		FinancingID:     f.ID,
		SubjectID:       f.SubjectID,
		SaleAmount:      p.SaleAmount,
		RetainedAmount:  p.RetainedAmount,
		FarmerProfit:    p.FarmerProfit,
		Method:          p.Method,
	}
}
