// Package kpi projects the payment ledger into reporting totals.
package kpi

import (
	"context"

	"github.com/shopspring/decimal"

	"github.com/agrocredit/backend/internal/domain/financing"
)

// Totals summarizes a slice of the payment ledger
type Totals struct {
	TotalIncome       decimal.Decimal
	TotalRetained     decimal.Decimal
	TotalFarmerProfit decimal.Decimal
	PaymentCount      int64
}

// ZeroTotals returns totals over an empty ledger
func ZeroTotals() Totals {
	return Totals{
		TotalIncome:       decimal.Zero,
		TotalRetained:     decimal.Zero,
		TotalFarmerProfit: decimal.Zero,
	}
}

// Accumulate folds payments into totals
func Accumulate(payments []financing.Payment) Totals {
	t := ZeroTotals()
	for i := range payments {
		t = t.Add(&payments[i])
	}
	return t
}

// Add returns t with one more payment counted
func (t Totals) Add(p *financing.Payment) Totals {
	t.TotalIncome = t.TotalIncome.Add(p.SaleAmount)
	t.TotalRetained = t.TotalRetained.Add(p.RetainedAmount)
	t.TotalFarmerProfit = t.TotalFarmerProfit.Add(p.FarmerProfit)
	t.PaymentCount++
	return t
}

// IsBalanced reports retained + profit == income
func (t Totals) IsBalanced() bool {
	return t.TotalRetained.Add(t.TotalFarmerProfit).Equal(t.TotalIncome)
}

// Equal compares totals by value
func (t Totals) Equal(o Totals) bool {
	return t.PaymentCount == o.PaymentCount &&
		t.TotalIncome.Equal(o.TotalIncome) &&
		t.TotalRetained.Equal(o.TotalRetained) &&
		t.TotalFarmerProfit.Equal(o.TotalFarmerProfit)
}

// Repository computes totals in the store
type Repository interface {
	// Totals sums the ledger rows matching filter. Paging fields are ignored.
	Totals(ctx context.Context, filter financing.LedgerFilter) (Totals, error)
}
