// Package txscope defines the unit of work shared by the application services.
package txscope

import (
	"context"

	"github.com/agrocredit/backend/internal/domain/eligibility"
	"github.com/agrocredit/backend/internal/domain/farm"
	"github.com/agrocredit/backend/internal/domain/financing"
	"github.com/agrocredit/backend/internal/domain/inspection"
	"github.com/agrocredit/backend/internal/domain/shared"
	"github.com/agrocredit/backend/internal/domain/subject"
)

// TransactionScope runs a function inside one database transaction.
// If the function returns an error, the transaction is rolled back.
type TransactionScope interface {
	Execute(ctx context.Context, fn func(repos Repositories) error) error
}

// Repositories gives access to every repository within a transaction.
// All repositories returned share the same underlying transaction, so the
// aggregate write, the ledger row and the outbox entries commit together.
type Repositories interface {
	Inspections() inspection.Repository
	Subjects() subject.Repository
	Estimations() eligibility.EstimationRepository
	Financings() financing.Repository
	Payments() financing.PaymentRepository
	Farmers() farm.FarmerRepository
	Parcels() farm.ParcelRepository
	// Events writes domain events to the outbox of the current transaction
	Events() EventRecorder
}

// EventRecorder stores domain events for asynchronous delivery
type EventRecorder interface {
	Record(ctx context.Context, events ...shared.DomainEvent) error
}

// RecordPending writes and clears the events raised by an aggregate
func RecordPending(ctx context.Context, rec EventRecorder, agg shared.AggregateRoot) error {
	events := agg.GetDomainEvents()
	if len(events) == 0 {
		return nil
	}
	if err := rec.Record(ctx, events...); err != nil {
		return err
	}
	agg.ClearDomainEvents()
	return nil
}
