package persistence

import (
	"context"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/agrocredit/backend/internal/domain/financing"
	"github.com/agrocredit/backend/internal/infrastructure/persistence/models"
)

// GormPaymentRepository implements financing.PaymentRepository using GORM.
// Payments are only ever inserted.
type GormPaymentRepository struct {
	db *gorm.DB
}

// NewGormPaymentRepository creates a new GormPaymentRepository
func NewGormPaymentRepository(db *gorm.DB) *GormPaymentRepository {
	return &GormPaymentRepository{db: db}
}

// Create appends a payment to the ledger
func (r *GormPaymentRepository) Create(ctx context.Context, p *financing.Payment) error {
	return translateError(r.db.WithContext(ctx).Create(models.PaymentModelFromDomain(p)).Error, "create payment")
}

// FindAll returns a page of the ledger, most recent sale first
func (r *GormPaymentRepository) FindAll(ctx context.Context, filter financing.LedgerFilter) ([]financing.Payment, int64, error) {
	query := ledgerScope(r.db.WithContext(ctx).Model(&models.PaymentModel{}), filter)

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, translateError(err, "count payments")
	}

	var rows []models.PaymentModel
	page := filter.Page.Normalize()
	if err := query.Order("date DESC, created_at DESC, id DESC").Offset(page.Offset()).Limit(page.Size).Find(&rows).Error; err != nil {
		return nil, 0, translateError(err, "list payments")
	}

	result := make([]financing.Payment, len(rows))
	for i := range rows {
		result[i] = *rows[i].ToDomain()
	}
	return result, total, nil
}

// SumRetained sums the retained amount of a financing's payments
func (r *GormPaymentRepository) SumRetained(ctx context.Context, financingID uuid.UUID) (decimal.Decimal, error) {
	var sum struct {
		Total decimal.Decimal
	}
	err := r.db.WithContext(ctx).
		Model(&models.PaymentModel{}).
		Select("COALESCE(SUM(retained_amount), 0) AS total").
		Where("financing_id = ?", financingID).
		Scan(&sum).Error
	if err != nil {
		return decimal.Zero, translateError(err, "sum retained")
	}
	return sum.Total, nil
}

// ledgerScope applies the non-paging ledger filters. Both date bounds are inclusive.
func ledgerScope(query *gorm.DB, filter financing.LedgerFilter) *gorm.DB {
	if filter.From != nil {
		query = query.Where("date >= ?", *filter.From)
	}
	if filter.To != nil {
		query = query.Where("date <= ?", *filter.To)
	}
	if filter.SubjectID != nil {
		query = query.Where("subject_id = ?", *filter.SubjectID)
	}
	if filter.FinancingID != nil {
		query = query.Where("financing_id = ?", *filter.FinancingID)
	}
	return query
}

var _ financing.PaymentRepository = (*GormPaymentRepository)(nil)
