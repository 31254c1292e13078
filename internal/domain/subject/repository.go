package subject

import (
	"context"

	"github.com/google/uuid"
)

// Repository persists productive subjects
type Repository interface {
	// FindByID returns nil, nil when absent
	FindByID(ctx context.Context, id uuid.UUID) (*ProductiveSubject, error)

	// FindByIDForUpdate locks the subject row for the rest of the transaction.
	// Financing creation uses it to serialize eligibility checks per subject.
	FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*ProductiveSubject, error)

	// FindByIdentityNumberForUpdate loads and locks the subject of an identity number
	FindByIdentityNumberForUpdate(ctx context.Context, identityNumber string) (*ProductiveSubject, error)

	// InsertIfAbsent inserts s unless a subject with the same identity number
	// exists. It reports whether the row was inserted; a concurrent insert of
	// the same identity number makes it return false instead of failing.
	InsertIfAbsent(ctx context.Context, s *ProductiveSubject) (bool, error)

	// SaveWithLock updates s if the stored version equals s.Version, then
	// increments s.Version
	SaveWithLock(ctx context.Context, s *ProductiveSubject) error
}
