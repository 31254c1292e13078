package financing

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/agrocredit/backend/internal/domain/shared"
	"github.com/agrocredit/backend/internal/domain/shared/valueobject"
)

// PaymentMethod is how the harvest sale was settled
type PaymentMethod string

const (
	PaymentMethodCash          PaymentMethod = "CASH"
	PaymentMethodBankTransfer  PaymentMethod = "BANK_TRANSFER"
	PaymentMethodMobilePayment PaymentMethod = "MOBILE_PAYMENT"
	PaymentMethodCheck         PaymentMethod = "CHECK"
	PaymentMethodInKind        PaymentMethod = "IN_KIND" // produce delivered to the lender
	PaymentMethodOther         PaymentMethod = "OTHER"
)

// IsValid checks if the payment method is valid
func (m PaymentMethod) IsValid() bool {
	switch m {
	case PaymentMethodCash, PaymentMethodBankTransfer, PaymentMethodMobilePayment,
		PaymentMethodCheck, PaymentMethodInKind, PaymentMethodOther:
		return true
	}
	return false
}

// String returns the string representation of PaymentMethod
func (m PaymentMethod) String() string {
	return string(m)
}

// RepaymentSplit is how one sale divides between the lender and the farmer
type RepaymentSplit struct {
	Outstanding    decimal.Decimal
	RetainedAmount decimal.Decimal
	FarmerProfit   decimal.Decimal
}

// ComputeSplit retains at most what is still owed:
//
//	outstanding = max(0, principal - totalRepaid)
//	retained    = min(sale, outstanding)
//	profit      = sale - retained
func ComputeSplit(principal, totalRepaid, sale decimal.Decimal) RepaymentSplit {
	outstanding := principal.Sub(totalRepaid)
	if outstanding.IsNegative() {
		outstanding = decimal.Zero
	}
	retained := decimal.Min(sale, outstanding)
	return RepaymentSplit{
		Outstanding:    outstanding,
		RetainedAmount: retained,
		FarmerProfit:   sale.Sub(retained),
	}
}

// Payment is an append-only ledger entry for one harvest sale. It is never
// mutated after creation.
type Payment struct {
	ID             uuid.UUID
	SubjectID      uuid.UUID
	FinancingID    uuid.UUID
	Date           time.Time
	SaleAmount     decimal.Decimal
	RetainedAmount decimal.Decimal
	FarmerProfit   decimal.Decimal
	Method         PaymentMethod
	Reference      *string
	RecordedBy     *uuid.UUID
	CreatedAt      time.Time
}

// IsBalanced reports retained + profit == sale
func (p *Payment) IsBalanced() bool {
	return p.RetainedAmount.Add(p.FarmerProfit).Equal(p.SaleAmount)
}

// PaymentInput is a harvest sale to register
type PaymentInput struct {
	Date       time.Time
	SaleAmount decimal.Decimal
	Method     PaymentMethod
	Reference  string
	RecordedBy *uuid.UUID
}

// Validate checks the input before any state is read
func (in PaymentInput) Validate() error {
	if err := valueobject.RequirePositiveAmount("SALE_AMOUNT", in.SaleAmount); err != nil {
		return err
	}
	if !in.Method.IsValid() {
		return shared.NewValidationError("INVALID_PAYMENT_METHOD", "invalid payment method: "+in.Method.String())
	}
	if in.Date.IsZero() {
		return shared.NewValidationError("INVALID_PAYMENT_DATE", "payment date is required")
	}
	if len(in.Reference) > 100 {
		return shared.NewValidationError("INVALID_REFERENCE", "reference cannot exceed 100 characters")
	}
	return nil
}

func (in PaymentInput) reference() *string {
	ref := strings.TrimSpace(in.Reference)
	if ref == "" {
		return nil
	}
	return &ref
}
