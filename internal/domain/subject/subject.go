// Package subject models the productive subject: the financeable identity of
// a farmer, unique per national identity number.
package subject

import (
	"strings"
	"time"

	"github.com/agrocredit/backend/internal/domain/shared"
	"github.com/agrocredit/backend/internal/domain/shared/valueobject"
)

// AggregateTypeSubject is the aggregate type for ProductiveSubject
const AggregateTypeSubject = "ProductiveSubject"

// Attributes are the mutable contact fields. Nil fields are left untouched
// when merged into an existing subject.
type Attributes struct {
	Name    *string
	Phone   *string
	Email   *string
	Address *string
}

// IsEmpty reports whether no attribute is set
func (a Attributes) IsEmpty() bool {
	return a.Name == nil && a.Phone == nil && a.Email == nil && a.Address == nil
}

// ProductiveSubject is the financeable identity of a farmer
type ProductiveSubject struct {
	shared.BaseAggregateRoot
	identityNumber valueobject.IdentityNumber
	Name           string
	Phone          string
	Email          string
	Address        string
}

// NewProductiveSubject creates a subject for an identity number
func NewProductiveSubject(identityNumber valueobject.IdentityNumber, attrs Attributes) (*ProductiveSubject, error) {
	if identityNumber.IsZero() {
		return nil, shared.NewValidationError("IDENTITY_REQUIRED", "identity number is required")
	}
	s := &ProductiveSubject{
		BaseAggregateRoot: shared.NewBaseAggregateRoot(),
		identityNumber:    identityNumber,
	}
	s.apply(attrs)
	return s, nil
}

// Reconstruct rebuilds a subject from storage
func Reconstruct(base shared.BaseAggregateRoot, identityNumber valueobject.IdentityNumber, name, phone, email, address string) *ProductiveSubject {
	return &ProductiveSubject{
		BaseAggregateRoot: base,
		identityNumber:    identityNumber,
		Name:              name,
		Phone:             phone,
		Email:             email,
		Address:           address,
	}
}

// IdentityNumber returns the immutable identity number
func (s *ProductiveSubject) IdentityNumber() valueobject.IdentityNumber {
	return s.identityNumber
}

// Merge applies the non-nil attributes, last write wins. It reports whether
// anything changed.
func (s *ProductiveSubject) Merge(attrs Attributes) bool {
	before := [4]string{s.Name, s.Phone, s.Email, s.Address}
	s.apply(attrs)
	changed := before != [4]string{s.Name, s.Phone, s.Email, s.Address}
	if changed {
		s.Touch(time.Now().UTC())
	}
	return changed
}

func (s *ProductiveSubject) apply(attrs Attributes) {
	set := func(dst *string, v *string) {
		if v != nil {
			*dst = strings.TrimSpace(*v)
		}
	}
	set(&s.Name, attrs.Name)
	set(&s.Phone, attrs.Phone)
	set(&s.Email, attrs.Email)
	set(&s.Address, attrs.Address)
}
