// Package identity models the caller on whose behalf an engine operation runs.
package identity

import (
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/agrocredit/backend/internal/domain/shared"
)

// Role is the closed set of roles the engine understands
type Role string

const (
	RoleAdmin    Role = "ADMIN"
	RoleOperator Role = "OPERATOR"
	RoleFarmer   Role = "FARMER"
)

var roleAliases = map[string]Role{
	"admin":         RoleAdmin,
	"administrator": RoleAdmin,
	"administrador": RoleAdmin,
	"operator":      RoleOperator,
	"operador":      RoleOperator,
	"inspector":     RoleOperator,
	"farmer":        RoleFarmer,
	"productor":     RoleFarmer,
	"agricultor":    RoleFarmer,
}

var fold = cases.Fold()

// ParseRole normalizes a free-form role string from a token or header.
func ParseRole(s string) (Role, error) {
	key := fold.String(strings.TrimSpace(s))
	if r, ok := roleAliases[key]; ok {
		return r, nil
	}
	return "", shared.NewDomainError(shared.KindUnauthorized, "UNKNOWN_ROLE", "unknown role: "+s)
}

// IsValid checks if the role is one of the known roles
func (r Role) IsValid() bool {
	switch r {
	case RoleAdmin, RoleOperator, RoleFarmer:
		return true
	}
	return false
}

// String returns the string representation of Role
func (r Role) String() string {
	return string(r)
}

// DisplayName returns a title-cased label for UIs and logs
func (r Role) DisplayName() string {
	return cases.Title(language.Und).String(strings.ToLower(string(r)))
}
