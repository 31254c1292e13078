package kpi

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"

	"github.com/agrocredit/backend/internal/domain/financing"
)

func TestAccumulate(t *testing.T) {
	payments := []financing.Payment{
		{SaleAmount: decimal.NewFromInt(5000), RetainedAmount: decimal.NewFromInt(5000), FarmerProfit: decimal.Zero},
		{SaleAmount: decimal.NewFromInt(5000), RetainedAmount: decimal.NewFromInt(3000), FarmerProfit: decimal.NewFromInt(2000)},
	}

	got := Accumulate(payments)
	assert.True(t, decimal.NewFromInt(10000).Equal(got.TotalIncome))
	assert.True(t, decimal.NewFromInt(8000).Equal(got.TotalRetained))
	assert.True(t, decimal.NewFromInt(2000).Equal(got.TotalFarmerProfit))
	assert.Equal(t, int64(2), got.PaymentCount)
	assert.True(t, got.IsBalanced())

	assert.True(t, Accumulate(nil).Equal(ZeroTotals()))
	assert.False(t, got.Equal(ZeroTotals()))
}
