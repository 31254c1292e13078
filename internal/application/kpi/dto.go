package kpi

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/agrocredit/backend/internal/domain/kpi"
)

// TotalsResponse is the API view of ledger totals
type TotalsResponse struct {
	TotalIncome       decimal.Decimal `json:"total_income"`
	TotalRetained     decimal.Decimal `json:"total_retained"`
	TotalFarmerProfit decimal.Decimal `json:"total_farmer_profit"`
	PaymentCount      int64           `json:"payment_count"`
}

// ToTotalsResponse converts totals to their API view
func ToTotalsResponse(t kpi.Totals) TotalsResponse {
	return TotalsResponse{
		TotalIncome:       t.TotalIncome,
		TotalRetained:     t.TotalRetained,
		TotalFarmerProfit: t.TotalFarmerProfit,
		PaymentCount:      t.PaymentCount,
	}
}

// SelfCheckResponse compares the SQL totals with a projection of the
// ledger rows themselves
type SelfCheckResponse struct {
	Stored     TotalsResponse `json:"stored"`
	Projected  TotalsResponse `json:"projected"`
	Consistent bool           `json:"consistent"`
	Balanced   bool           `json:"balanced"`
	Repaid     *RepaidCheck   `json:"repaid,omitempty"`
}

// RepaidCheck compares a financing's stored TotalRepaid with the sum of
// RetainedAmount over its payments
type RepaidCheck struct {
	FinancingID   uuid.UUID       `json:"financing_id"`
	TotalRepaid   decimal.Decimal `json:"total_repaid"`
	TotalRetained decimal.Decimal `json:"total_retained"`
	Consistent    bool            `json:"consistent"`
}
