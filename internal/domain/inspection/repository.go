package inspection

import (
	"context"

	"github.com/google/uuid"

	"github.com/agrocredit/backend/internal/domain/shared"
)

// Filter narrows inspection listings
type Filter struct {
	shared.Page
	ParcelID *uuid.UUID
	FarmerID *uuid.UUID
	Status   *Status
}

// Repository persists inspections
type Repository interface {
	// FindByID returns nil, nil when absent
	FindByID(ctx context.Context, id uuid.UUID) (*Inspection, error)

	// FindByIDForUpdate loads the inspection holding a row lock until the
	// surrounding transaction ends
	FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*Inspection, error)

	FindAll(ctx context.Context, filter Filter) ([]Inspection, int64, error)

	// FindLatestByParcels returns the most recent inspection of each parcel,
	// keyed by parcel ID. Parcels without inspections are absent.
	FindLatestByParcels(ctx context.Context, parcelIDs []uuid.UUID) (map[uuid.UUID]*Inspection, error)

	// Create inserts a new inspection
	Create(ctx context.Context, i *Inspection) error

	// SaveWithLock writes the inspection only if the stored version still
	// equals i.Version, then increments i.Version. A mismatch returns a
	// ConcurrencyConflict error
	SaveWithLock(ctx context.Context, i *Inspection) error
}
