package identity

import (
	"github.com/google/uuid"

	"github.com/agrocredit/backend/internal/domain/shared"
)

// Actor is the authenticated caller of an engine operation. It is built once
// at the transport boundary and passed explicitly into every service call.
type Actor struct {
	UserID uuid.UUID
	Role   Role
	// SubjectID links a Farmer to their productive subject; nil for staff.
	SubjectID *uuid.UUID
}

// NewActor validates the role and builds an actor
func NewActor(userID uuid.UUID, role Role, subjectID *uuid.UUID) (Actor, error) {
	if userID == uuid.Nil {
		return Actor{}, shared.NewDomainError(shared.KindUnauthorized, "MISSING_USER", "user id is required")
	}
	if !role.IsValid() {
		return Actor{}, shared.NewDomainError(shared.KindUnauthorized, "UNKNOWN_ROLE", "unknown role: "+role.String())
	}
	if role == RoleFarmer && subjectID == nil {
		return Actor{}, shared.NewDomainError(shared.KindUnauthorized, "MISSING_SUBJECT", "farmer tokens must carry a subject id")
	}
	return Actor{UserID: userID, Role: role, SubjectID: subjectID}, nil
}

// SystemActor is used by background delivery of outbox events and by
// reconciliation tooling. It has Admin rights.
func SystemActor() Actor {
	return Actor{UserID: uuid.Nil, Role: RoleAdmin}
}

// IsSystem reports whether the actor is the internal system actor
func (a Actor) IsSystem() bool {
	return a.UserID == uuid.Nil && a.Role == RoleAdmin
}

// Require returns a Forbidden error unless the actor holds p
func (a Actor) Require(p Permission) error {
	if a.Role.Grants(p) {
		return nil
	}
	return shared.NewDomainError(shared.KindForbidden, "FORBIDDEN",
		"role "+a.Role.String()+" lacks permission "+string(p))
}

// CanReadSubject reports whether the actor may see data of the given subject.
// Staff see everything; farmers only their own subject.
func (a Actor) CanReadSubject(subjectID uuid.UUID) bool {
	if a.Role.Grants(PermLedgerReadAll) {
		return true
	}
	return a.SubjectID != nil && *a.SubjectID == subjectID
}

// RecordedBy returns the user id to stamp on written records, nil for the system actor
func (a Actor) RecordedBy() *uuid.UUID {
	if a.UserID == uuid.Nil {
		return nil
	}
	id := a.UserID
	return &id
}

// ScopeSubject narrows a listing filter to what the actor may read. Staff
// keep the requested subject (nil means all); a farmer is pinned to their
// own subject and asking for another one is Forbidden.
func (a Actor) ScopeSubject(requested *uuid.UUID) (*uuid.UUID, error) {
	if a.Role.Grants(PermLedgerReadAll) {
		return requested, nil
	}
	if a.SubjectID == nil {
		return nil, shared.NewDomainError(shared.KindForbidden, "FORBIDDEN", "no productive subject linked to this account")
	}
	if requested != nil && *requested != *a.SubjectID {
		return nil, shared.NewDomainError(shared.KindForbidden, "FORBIDDEN", "subject belongs to another farmer")
	}
	own := *a.SubjectID
	return &own, nil
}
