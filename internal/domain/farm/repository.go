package farm

import (
	"context"

	"github.com/google/uuid"

	"github.com/agrocredit/backend/internal/domain/shared"
)

// FarmerFilter narrows farmer listings
type FarmerFilter struct {
	shared.Page
	Search   string
	OrderBy  string
	OrderDir string
}

// FarmerRepository persists farmers
type FarmerRepository interface {
	// FindByID returns nil, nil when absent
	FindByID(ctx context.Context, id uuid.UUID) (*Farmer, error)
	FindByIdentityNumber(ctx context.Context, identityNumber string) (*Farmer, error)
	FindAll(ctx context.Context, filter FarmerFilter) ([]Farmer, int64, error)
	// Save inserts new farmers and updates existing ones with a version check
	Save(ctx context.Context, farmer *Farmer) error
}

// ParcelRepository persists parcels
type ParcelRepository interface {
	FindByID(ctx context.Context, id uuid.UUID) (*Parcel, error)
	FindByFarmer(ctx context.Context, farmerID uuid.UUID) ([]Parcel, error)
	Save(ctx context.Context, parcel *Parcel) error
}
