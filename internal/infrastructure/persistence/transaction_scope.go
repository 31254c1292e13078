package persistence

import (
	"context"

	"gorm.io/gorm"

	"github.com/agrocredit/backend/internal/application/txscope"
	"github.com/agrocredit/backend/internal/domain/eligibility"
	"github.com/agrocredit/backend/internal/domain/farm"
	"github.com/agrocredit/backend/internal/domain/financing"
	"github.com/agrocredit/backend/internal/domain/inspection"
	"github.com/agrocredit/backend/internal/domain/shared"
	"github.com/agrocredit/backend/internal/domain/subject"
	"github.com/agrocredit/backend/internal/infrastructure/event"
)

// GormTransactionScope implements txscope.TransactionScope using GORM transactions
type GormTransactionScope struct {
	db        *gorm.DB
	publisher *event.OutboxPublisher
}

// NewGormTransactionScope creates a new GormTransactionScope. Events recorded
// inside a transaction are written to the outbox through publisher.
func NewGormTransactionScope(db *gorm.DB, publisher *event.OutboxPublisher) *GormTransactionScope {
	return &GormTransactionScope{db: db, publisher: publisher}
}

// Execute runs fn within a database transaction. An error from fn, or a
// panic, rolls the transaction back.
func (s *GormTransactionScope) Execute(ctx context.Context, fn func(repos txscope.Repositories) error) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&gormTransactionalRepositories{tx: tx, publisher: s.publisher})
	})
}

type gormTransactionalRepositories struct {
	tx        *gorm.DB
	publisher *event.OutboxPublisher
}

func (r *gormTransactionalRepositories) Inspections() inspection.Repository {
	return NewGormInspectionRepository(r.tx)
}

func (r *gormTransactionalRepositories) Subjects() subject.Repository {
	return NewGormSubjectRepository(r.tx)
}

func (r *gormTransactionalRepositories) Estimations() eligibility.EstimationRepository {
	return NewGormEstimationRepository(r.tx)
}

func (r *gormTransactionalRepositories) Financings() financing.Repository {
	return NewGormFinancingRepository(r.tx)
}

func (r *gormTransactionalRepositories) Payments() financing.PaymentRepository {
	return NewGormPaymentRepository(r.tx)
}

func (r *gormTransactionalRepositories) Farmers() farm.FarmerRepository {
	return NewGormFarmerRepository(r.tx)
}

func (r *gormTransactionalRepositories) Parcels() farm.ParcelRepository {
	return NewGormParcelRepository(r.tx)
}

func (r *gormTransactionalRepositories) Events() txscope.EventRecorder {
	return outboxRecorder{tx: r.tx, publisher: r.publisher}
}

// outboxRecorder writes events through the transaction of its repositories
type outboxRecorder struct {
	tx        *gorm.DB
	publisher *event.OutboxPublisher
}

func (o outboxRecorder) Record(ctx context.Context, events ...shared.DomainEvent) error {
	return o.publisher.PublishWithTx(ctx, o.tx, events...)
}

var (
	_ txscope.TransactionScope = (*GormTransactionScope)(nil)
	_ txscope.Repositories     = (*gormTransactionalRepositories)(nil)
)
