// Package financing implements financing origination, its state table and
// the retained-repayment split applied to harvest sales.
package financing

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/agrocredit/backend/internal/domain/shared"
	"github.com/agrocredit/backend/internal/domain/shared/valueobject"
)

// AggregateTypeFinancing is the aggregate type for Financing
const AggregateTypeFinancing = "Financing"

// MetadataV1 is the schema version 1 body of financing metadata
type MetadataV1 struct {
	Notes          string   `json:"notes,omitempty"`
	InputsSupplier string   `json:"inputs_supplier,omitempty"`
	Tags           []string `json:"tags,omitempty"`
}

// Metadata is the versioned metadata attachment of a financing
type Metadata = shared.Payload[MetadataV1]

// NewMetadata wraps a version 1 metadata body
func NewMetadata(v MetadataV1) Metadata {
	return shared.NewPayloadV1(v)
}

// Terms are the caller-supplied parameters of a new financing
type Terms struct {
	SubjectID             uuid.UUID
	ParcelID              uuid.UUID
	Principal             decimal.Decimal
	Rate                  decimal.Decimal
	NumberOfHarvestCycles int
	Purpose               string
	Metadata              Metadata
}

// RateScale is the number of fractional digits a rate is stored with
const RateScale = 6

// Validate rejects malformed terms before any eligibility lookup. Amounts
// are judged at their stored scale.
func (t Terms) Validate() error {
	if t.SubjectID == uuid.Nil {
		return shared.NewValidationError("INVALID_SUBJECT", "subject ID is required")
	}
	if t.ParcelID == uuid.Nil {
		return shared.NewValidationError("INVALID_PARCEL", "parcel ID is required")
	}
	if err := valueobject.RequirePositiveAmount("PRINCIPAL", t.Principal); err != nil {
		return err
	}
	if err := valueobject.RequirePositive("RATE", t.Rate.Round(RateScale)); err != nil {
		return err
	}
	if t.NumberOfHarvestCycles < 1 {
		return shared.NewValidationError("INVALID_CYCLES", "number of harvest cycles must be at least 1")
	}
	if strings.TrimSpace(t.Purpose) == "" {
		return shared.NewValidationError("INVALID_PURPOSE", "purpose cannot be empty")
	}
	return nil
}

// Financing is short-term credit repaid out of harvest sales.
//
// TotalRepaid always equals the sum of RetainedAmount over the financing's
// payments and never exceeds Principal.
type Financing struct {
	shared.BaseAggregateRoot
	SubjectID             uuid.UUID
	ParcelID              uuid.UUID
	Principal             decimal.Decimal
	Rate                  decimal.Decimal
	NumberOfHarvestCycles int
	Purpose               string
	State                 State
	TotalRepaid           decimal.Decimal
	StateChangedAt        time.Time
	CreatedBy             *uuid.UUID
	Metadata              Metadata
}

// NewFinancing originates a financing in state Activo. Eligibility is checked
// by the caller inside the creating transaction.
func NewFinancing(terms Terms, createdBy *uuid.UUID) (*Financing, error) {
	if err := terms.Validate(); err != nil {
		return nil, err
	}
	f := &Financing{
		BaseAggregateRoot:     shared.NewBaseAggregateRoot(),
		SubjectID:             terms.SubjectID,
		ParcelID:              terms.ParcelID,
		Principal:             valueobject.RoundAmount(terms.Principal),
		Rate:                  terms.Rate.Round(RateScale),
		NumberOfHarvestCycles: terms.NumberOfHarvestCycles,
		Purpose:               strings.TrimSpace(terms.Purpose),
		State:                 StateActivo,
		TotalRepaid:           decimal.Zero,
		CreatedBy:             createdBy,
		Metadata:              terms.Metadata,
	}
	f.StateChangedAt = f.CreatedAt
	f.AddDomainEvent(NewFinancingCreatedEvent(f))
	return f, nil
}

// Outstanding returns max(0, Principal - TotalRepaid)
func (f *Financing) Outstanding() decimal.Decimal {
	return valueobject.FloorZero(f.Principal.Sub(f.TotalRepaid))
}

// IsFullyRepaid reports whether the principal has been recovered
func (f *Financing) IsFullyRepaid() bool {
	return f.TotalRepaid.GreaterThanOrEqual(f.Principal)
}

// UpdateStatus moves the financing along a permitted edge
func (f *Financing) UpdateStatus(target State, reason string) error {
	if !target.IsValid() {
		return shared.NewValidationError("INVALID_STATE", "unknown financing state: "+target.String())
	}
	if !f.State.CanTransitionTo(target) {
		return shared.NewInvalidTransitionError("financing", f.State, target)
	}
	f.moveTo(target, reason, time.Now().UTC())
	return nil
}

func (f *Financing) moveTo(target State, reason string, at time.Time) {
	from := f.State
	f.State = target
	f.StateChangedAt = at
	f.Touch(at)
	f.AddDomainEvent(NewFinancingStateChangedEvent(f, from, reason))
}

// ApplyPayment splits a harvest sale, appends it to the ledger and advances
// the state: reaching the principal settles the financing, otherwise the
// first payment moves Activo to EnSeguimiento.
func (f *Financing) ApplyPayment(in PaymentInput) (*Payment, error) {
	if err := in.Validate(); err != nil {
		return nil, err
	}
	if !f.State.AcceptsPayments() {
		return nil, shared.NewDomainError(shared.KindFinancingNotActive, shared.ErrFinancingNotActive.Code,
			"financing is "+f.State.String()+" and does not accept payments")
	}

	sale := valueobject.RoundAmount(in.SaleAmount)
	split := ComputeSplit(f.Principal, f.TotalRepaid, sale)
	now := time.Now().UTC()

	p := &Payment{
		ID:             uuid.New(),
		SubjectID:      f.SubjectID,
		FinancingID:    f.ID,
		Date:           in.Date.UTC(),
		SaleAmount:     sale,
		RetainedAmount: split.RetainedAmount,
		FarmerProfit:   split.FarmerProfit,
		Method:         in.Method,
		Reference:      in.reference(),
		RecordedBy:     in.RecordedBy,
		CreatedAt:      now,
	}

	f.TotalRepaid = f.TotalRepaid.Add(split.RetainedAmount)
	f.Touch(now)
	f.AddDomainEvent(NewPaymentRegisteredEvent(f, p))

	switch {
	case f.IsFullyRepaid():
		f.moveTo(StateCosechado, "principal fully repaid", now)
	case f.State == StateActivo:
		f.moveTo(StateEnSeguimiento, "first payment registered", now)
	}
	return p, nil
}
