package shared

import (
	"time"

	"github.com/google/uuid"
)

// BaseEntity is the identity and audit stamp shared by farmers, parcels,
// inspections, subjects and financings
type BaseEntity struct {
	ID        uuid.UUID
	CreatedAt time.Time
	UpdatedAt time.Time
}

// NewBaseEntity assigns a fresh ID stamped now, in UTC
func NewBaseEntity() BaseEntity {
	now := time.Now().UTC()
	return BaseEntity{ID: uuid.New(), CreatedAt: now, UpdatedAt: now}
}

// Touch records a mutation
func (e *BaseEntity) Touch(at time.Time) {
	e.UpdatedAt = at
}
