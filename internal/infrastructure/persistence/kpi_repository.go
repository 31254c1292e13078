package persistence

import (
	"context"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/agrocredit/backend/internal/domain/financing"
	"github.com/agrocredit/backend/internal/domain/kpi"
	"github.com/agrocredit/backend/internal/infrastructure/persistence/models"
)

// GormKPIRepository implements kpi.Repository with a single aggregate query
type GormKPIRepository struct {
	db *gorm.DB
}

// NewGormKPIRepository creates a new GormKPIRepository
func NewGormKPIRepository(db *gorm.DB) *GormKPIRepository {
	return &GormKPIRepository{db: db}
}

type totalsRow struct {
	TotalIncome       decimal.Decimal
	TotalRetained     decimal.Decimal
	TotalFarmerProfit decimal.Decimal
	PaymentCount      int64
}

// Totals sums the ledger rows matching filter
func (r *GormKPIRepository) Totals(ctx context.Context, filter financing.LedgerFilter) (kpi.Totals, error) {
	var row totalsRow
	err := ledgerScope(r.db.WithContext(ctx).Model(&models.PaymentModel{}), filter).
		Select(`COALESCE(SUM(sale_amount), 0) AS total_income,
			COALESCE(SUM(retained_amount), 0) AS total_retained,
			COALESCE(SUM(farmer_profit), 0) AS total_farmer_profit,
			COUNT(*) AS payment_count`).
		Scan(&row).Error
	if err != nil {
		return kpi.ZeroTotals(), translateError(err, "compute totals")
	}
	return kpi.Totals{
		TotalIncome:       row.TotalIncome,
		TotalRetained:     row.TotalRetained,
		TotalFarmerProfit: row.TotalFarmerProfit,
		PaymentCount:      row.PaymentCount,
	}, nil
}

var _ kpi.Repository = (*GormKPIRepository)(nil)
