package valueobject

import (
	"github.com/shopspring/decimal"

	"github.com/agrocredit/backend/internal/domain/shared"
)

// AmountScale is the number of fractional digits money is stored with
const AmountScale = 4

// RequirePositive rejects zero and negative amounts with a ValidationError
func RequirePositive(field string, d decimal.Decimal) error {
	if !d.IsPositive() {
		return shared.NewValidationError("INVALID_"+field, field+" must be greater than zero")
	}
	return nil
}

// RequirePositiveAmount rejects money that is not positive at the stored
// scale, so a value that would be written as zero never passes validation
func RequirePositiveAmount(field string, d decimal.Decimal) error {
	if !RoundAmount(d).IsPositive() {
		return shared.NewValidationError("INVALID_"+field, field+" must be at least 0.0001")
	}
	return nil
}

// RequireNonNegative rejects negative amounts with a ValidationError
func RequireNonNegative(field string, d decimal.Decimal) error {
	if d.IsNegative() {
		return shared.NewValidationError("INVALID_"+field, field+" cannot be negative")
	}
	return nil
}

// FloorZero returns max(0, d)
func FloorZero(d decimal.Decimal) decimal.Decimal {
	if d.IsNegative() {
		return decimal.Zero
	}
	return d
}

// RoundAmount rounds to the stored scale
func RoundAmount(d decimal.Decimal) decimal.Decimal {
	return d.Round(AmountScale)
}
