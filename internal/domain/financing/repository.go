package financing

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/agrocredit/backend/internal/domain/shared"
)

// Filter narrows financing listings
type Filter struct {
	shared.Page
	States    []State
	SubjectID *uuid.UUID
}

// ScanCursor marks the last financing seen by a batched scan
type ScanCursor struct {
	CreatedAt time.Time
	ID        uuid.UUID
}

// CursorAfter returns the cursor positioned on f
func CursorAfter(f *Financing) *ScanCursor {
	return &ScanCursor{CreatedAt: f.CreatedAt, ID: f.ID}
}

// Repository persists financings
type Repository interface {
	// FindByID returns nil, nil when absent
	FindByID(ctx context.Context, id uuid.UUID) (*Financing, error)

	// FindByIDForUpdate loads and row-locks the financing for the rest of the
	// transaction
	FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*Financing, error)

	FindAll(ctx context.Context, filter Filter) ([]Financing, int64, error)

	// SumOpenPrincipal returns the principal of the subject's financings
	// that are neither settled nor defaulted
	SumOpenPrincipal(ctx context.Context, subjectID uuid.UUID) (decimal.Decimal, error)

	// FindOpenCreatedBefore returns non-terminal financings originated before
	// the cutoff, oldest first, resuming after the cursor when it is set
	FindOpenCreatedBefore(ctx context.Context, before time.Time, after *ScanCursor, limit int) ([]Financing, error)

	Create(ctx context.Context, f *Financing) error

	// SaveWithLock updates f if the stored version equals f.Version, then
	// increments f.Version. A mismatch returns a ConcurrencyConflict error
	SaveWithLock(ctx context.Context, f *Financing) error
}

// LedgerFilter narrows the payment ledger. Nil fields do not filter.
type LedgerFilter struct {
	shared.Page
	From        *time.Time
	To          *time.Time
	SubjectID   *uuid.UUID
	FinancingID *uuid.UUID
}

// PaymentRepository persists the append-only payment ledger
type PaymentRepository interface {
	Create(ctx context.Context, p *Payment) error
	FindAll(ctx context.Context, filter LedgerFilter) ([]Payment, int64, error)
	// SumRetained returns Σ retained_amount of a financing's payments
	SumRetained(ctx context.Context, financingID uuid.UUID) (decimal.Decimal, error)
}
