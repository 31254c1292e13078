// Package farm holds the registry of farmers and their parcels that
// inspections and financings refer to.
package farm

import (
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/agrocredit/backend/internal/domain/shared"
	"github.com/agrocredit/backend/internal/domain/shared/valueobject"
)

// Contact is the mutable contact data of a person
type Contact struct {
	Name    string
	Phone   string
	Email   string
	Address string
}

// Farmer is a person who owns parcels
type Farmer struct {
	shared.BaseAggregateRoot
	IdentityNumber valueobject.IdentityNumber
	Contact
}

// NewFarmer creates a new farmer
func NewFarmer(identityNumber string, contact Contact) (*Farmer, error) {
	id, err := valueobject.NewIdentityNumber(identityNumber)
	if err != nil {
		return nil, err
	}
	contact.Name = strings.TrimSpace(contact.Name)
	if contact.Name == "" {
		return nil, shared.NewValidationError("INVALID_NAME", "farmer name cannot be empty")
	}
	if len(contact.Name) > 200 {
		return nil, shared.NewValidationError("INVALID_NAME", "farmer name cannot exceed 200 characters")
	}
	return &Farmer{
		BaseAggregateRoot: shared.NewBaseAggregateRoot(),
		IdentityNumber:    id,
		Contact:           contact,
	}, nil
}

// UpdateContact replaces the contact data; the identity number never changes
func (f *Farmer) UpdateContact(contact Contact) error {
	contact.Name = strings.TrimSpace(contact.Name)
	if contact.Name == "" {
		return shared.NewValidationError("INVALID_NAME", "farmer name cannot be empty")
	}
	f.Contact = contact
	f.Touch(time.Now().UTC())
	return nil
}

// Parcel is a plot of land owned by a farmer
type Parcel struct {
	shared.BaseAggregateRoot
	FarmerID     uuid.UUID
	Name         string
	Crop         string
	Location     string
	AreaHectares float64
}

// NewParcel creates a parcel for a farmer
func NewParcel(farmerID uuid.UUID, name, crop, location string, areaHectares float64) (*Parcel, error) {
	if farmerID == uuid.Nil {
		return nil, shared.NewValidationError("INVALID_FARMER", "parcel must belong to a farmer")
	}
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, shared.NewValidationError("INVALID_NAME", "parcel name cannot be empty")
	}
	if areaHectares < 0 {
		return nil, shared.NewValidationError("INVALID_AREA", "parcel area cannot be negative")
	}
	return &Parcel{
		BaseAggregateRoot: shared.NewBaseAggregateRoot(),
		FarmerID:          farmerID,
		Name:              name,
		Crop:              strings.TrimSpace(crop),
		Location:          strings.TrimSpace(location),
		AreaHectares:      areaHectares,
	}, nil
}
