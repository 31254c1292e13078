// Package valueobject holds small immutable values shared by several aggregates.
package valueobject

import (
	"regexp"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"golang.org/x/text/unicode/norm"

	"github.com/agrocredit/backend/internal/domain/shared"
)

// identity numbers look like V12345678, E-8123456 or J-30123456-7
var identityNumberPattern = regexp.MustCompile(`^[A-Z]{0,2}[0-9][0-9-]{3,18}[0-9A-Z]$`)

var upper = cases.Upper(language.Und)

// IdentityNumber is a normalized national identity number. Two spellings of
// the same document ("v-12.345.678", "V12345678") normalize to the same value.
type IdentityNumber struct {
	value string
}

// NewIdentityNumber normalizes and validates raw input
func NewIdentityNumber(raw string) (IdentityNumber, error) {
	s := norm.NFKC.String(strings.TrimSpace(raw))
	s = upper.String(s)
	s = strings.NewReplacer(" ", "", ".", "").Replace(s)
	// a single dash after the letter prefix is cosmetic
	if len(s) > 2 && s[1] == '-' && s[0] >= 'A' && s[0] <= 'Z' {
		s = s[:1] + s[2:]
	}
	if s == "" {
		return IdentityNumber{}, shared.NewValidationError("IDENTITY_REQUIRED", "identity number is required")
	}
	if !identityNumberPattern.MatchString(s) {
		return IdentityNumber{}, shared.NewValidationError("INVALID_IDENTITY_NUMBER", "identity number has an invalid format: "+raw)
	}
	return IdentityNumber{value: s}, nil
}

// MustIdentityNumber panics on invalid input; for tests and fixtures.
func MustIdentityNumber(raw string) IdentityNumber {
	id, err := NewIdentityNumber(raw)
	if err != nil {
		panic(err)
	}
	return id
}

// String returns the normalized value
func (n IdentityNumber) String() string {
	return n.value
}

// IsZero reports whether the value is unset
func (n IdentityNumber) IsZero() bool {
	return n.value == ""
}

// Equals compares two identity numbers
func (n IdentityNumber) Equals(other IdentityNumber) bool {
	return n.value == other.value
}
