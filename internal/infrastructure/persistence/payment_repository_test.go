package persistence

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agrocredit/backend/internal/domain/financing"
	"github.com/agrocredit/backend/internal/domain/kpi"
	"github.com/agrocredit/backend/internal/domain/shared"
)

type ledgerFixture struct {
	payments *GormPaymentRepository
	kpis     *GormKPIRepository
	subjectA uuid.UUID
	financeA *financing.Financing
	financeB *financing.Financing
	march    time.Time
	recorded []*financing.Payment
}

// seedLedger records three sales: two against financing A in March and April,
// one against financing B (another subject) in April
func seedLedger(t *testing.T) ledgerFixture {
	t.Helper()
	db := newTestDB(t)
	ctx := context.Background()
	fx := ledgerFixture{
		payments: NewGormPaymentRepository(db),
		kpis:     NewGormKPIRepository(db),
		subjectA: uuid.New(),
		march:    time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC),
	}
	fx.financeA = newFinancing(t, fx.subjectA, "5000")
	fx.financeB = newFinancing(t, uuid.New(), "1000")

	sales := []struct {
		f    *financing.Financing
		date time.Time
		sale string
	}{
		{fx.financeA, fx.march, "3000"},
		{fx.financeA, fx.march.AddDate(0, 1, 0), "4000"},
		{fx.financeB, fx.march.AddDate(0, 1, 0), "600"},
	}
	for _, s := range sales {
		p, err := s.f.ApplyPayment(financing.PaymentInput{
			Date:       s.date,
			SaleAmount: dec(s.sale),
			Method:     financing.PaymentMethodCash,
		})
		require.NoError(t, err)
		require.NoError(t, fx.payments.Create(ctx, p))
		fx.recorded = append(fx.recorded, p)
	}
	return fx
}

func TestGormPaymentRepository_FindAll(t *testing.T) {
	fx := seedLedger(t)
	ctx := context.Background()

	all, total, err := fx.payments.FindAll(ctx, financing.LedgerFilter{Page: shared.DefaultPage()})
	require.NoError(t, err)
	assert.Equal(t, int64(3), total)
	require.Len(t, all, 3)
	assert.False(t, all[0].Date.Before(all[2].Date), "most recent sale first")

	from := fx.march
	to := fx.march.AddDate(0, 0, 1)
	march, total, err := fx.payments.FindAll(ctx, financing.LedgerFilter{Page: shared.DefaultPage(), From: &from, To: &to})
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)
	require.Len(t, march, 1)
	assert.Equal(t, fx.recorded[0].ID, march[0].ID)

	bySubject, total, err := fx.payments.FindAll(ctx, financing.LedgerFilter{Page: shared.DefaultPage(), SubjectID: &fx.subjectA})
	require.NoError(t, err)
	assert.Equal(t, int64(2), total)
	assert.Len(t, bySubject, 2)
}

func TestGormPaymentRepository_SumRetained(t *testing.T) {
	fx := seedLedger(t)

	sum, err := fx.payments.SumRetained(context.Background(), fx.financeA.ID)
	require.NoError(t, err)
	assert.True(t, dec("5000").Equal(sum), "retained never exceeds the principal, got %s", sum)
	assert.True(t, fx.financeA.TotalRepaid.Equal(sum))
}

func TestGormKPIRepository_Totals(t *testing.T) {
	fx := seedLedger(t)
	ctx := context.Background()

	totals, err := fx.kpis.Totals(ctx, financing.LedgerFilter{})
	require.NoError(t, err)
	assert.Equal(t, int64(3), totals.PaymentCount)
	assert.True(t, dec("7600").Equal(totals.TotalIncome))
	assert.True(t, dec("5600").Equal(totals.TotalRetained))
	assert.True(t, dec("2000").Equal(totals.TotalFarmerProfit))
	assert.True(t, totals.IsBalanced())

	all, _, err := fx.payments.FindAll(ctx, financing.LedgerFilter{Page: shared.DefaultPage()})
	require.NoError(t, err)
	assert.True(t, kpi.Accumulate(all).Equal(totals), "store totals match the in-memory fold")

	financeB := fx.financeB.ID
	onlyB, err := fx.kpis.Totals(ctx, financing.LedgerFilter{FinancingID: &financeB})
	require.NoError(t, err)
	assert.Equal(t, int64(1), onlyB.PaymentCount)
	assert.True(t, dec("600").Equal(onlyB.TotalRetained))

	nobody := uuid.New()
	empty, err := fx.kpis.Totals(ctx, financing.LedgerFilter{SubjectID: &nobody})
	require.NoError(t, err)
	assert.True(t, empty.Equal(kpi.ZeroTotals()))
}
