package main

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	eligibilityapp "github.com/agrocredit/backend/internal/application/eligibility"
	eventapp "github.com/agrocredit/backend/internal/application/event"
	farmapp "github.com/agrocredit/backend/internal/application/farm"
	financingapp "github.com/agrocredit/backend/internal/application/financing"
	inspectionapp "github.com/agrocredit/backend/internal/application/inspection"
	kpiapp "github.com/agrocredit/backend/internal/application/kpi"
	"github.com/agrocredit/backend/internal/application/repayment"
	subjectapp "github.com/agrocredit/backend/internal/application/subject"
	"github.com/agrocredit/backend/internal/domain/financing"
	"github.com/agrocredit/backend/internal/domain/shared"
	"github.com/agrocredit/backend/internal/infrastructure/cache"
	"github.com/agrocredit/backend/internal/infrastructure/config"
	"github.com/agrocredit/backend/internal/infrastructure/event"
	"github.com/agrocredit/backend/internal/infrastructure/export"
	"github.com/agrocredit/backend/internal/infrastructure/persistence"
	"github.com/agrocredit/backend/internal/infrastructure/storage"
	"github.com/agrocredit/backend/internal/infrastructure/telemetry"
	"github.com/agrocredit/backend/internal/interfaces/http/handler"
	"github.com/agrocredit/backend/internal/interfaces/http/router"
)

// application holds what main needs after assembly
type application struct {
	handlers      router.Handlers
	processor     *event.OutboxProcessor
	financingRepo *persistence.GormFinancingRepository

	inspections *inspectionapp.Service
	financings  *financingapp.Service
	payments    *repayment.Service
}

func (a *application) setBusinessMetrics(bm *telemetry.BusinessMetrics) {
	a.inspections.SetBusinessMetrics(bm)
	a.financings.SetBusinessMetrics(bm)
	a.payments.SetBusinessMetrics(bm)
}

func buildApp(ctx context.Context, cfg *config.Config, db *persistence.Database, log *zap.Logger) (*application, error) {
	inspectionRepo := persistence.NewGormInspectionRepository(db.DB)
	subjectRepo := persistence.NewGormSubjectRepository(db.DB)
	estimationRepo := persistence.NewGormEstimationRepository(db.DB)
	financingRepo := persistence.NewGormFinancingRepository(db.DB)
	paymentRepo := persistence.NewGormPaymentRepository(db.DB)
	farmerRepo := persistence.NewGormFarmerRepository(db.DB)
	parcelRepo := persistence.NewGormParcelRepository(db.DB)
	kpiRepo := persistence.NewGormKPIRepository(db.DB)
	outboxRepo := event.NewGormOutboxRepository(db.DB)

	retry := shared.RetryPolicy{
		MaxAttempts: cfg.Event.MaxRetries,
		BaseBackoff: cfg.Event.BaseBackoff,
		MaxBackoff:  cfg.Event.MaxBackoff,
	}

	serializer := event.NewEventSerializer()
	event.RegisterAllEvents(serializer)
	publisher := event.NewOutboxPublisher(serializer, retry)
	scope := persistence.NewGormTransactionScope(db.DB, publisher)

	calculator := eligibilityapp.Calculator{SubtractOutstanding: cfg.Eligibility.SubtractOutstanding}

	inspectionService := inspectionapp.NewService(scope, inspectionRepo, parcelRepo, log)
	registrar := subjectapp.NewRegistrar(scope, subjectRepo, log)
	eligibilityService := eligibilityapp.NewService(eligibilityapp.Sources{
		Estimations: estimationRepo,
		Inspections: inspectionRepo,
		Financings:  financingRepo,
	}, calculator, log)
	financingService := financingapp.NewService(scope, financingRepo, calculator,
		financingapp.CycleReconcileConfig(financing.CycleOverduePolicy{
			CycleLength: cfg.Financing.CycleLength,
			GracePeriod: cfg.Financing.GracePeriod,
		}, cfg.Financing.ReconcileBatchSize),
		log,
	)

	paymentOpts := []repayment.Option{repayment.WithLedgerWriter(export.NewXLSXLedgerWriter())}
	if cfg.Storage.Enabled {
		objects, err := storage.NewS3ObjectStorage(&cfg.Storage, storage.WithLogger(log))
		if err != nil {
			return nil, fmt.Errorf("object storage: %w", err)
		}
		if err := objects.EnsureBucket(ctx); err != nil {
			return nil, fmt.Errorf("object storage bucket: %w", err)
		}
		paymentOpts = append(paymentOpts, repayment.WithUploader(objects))
	}
	paymentService := repayment.NewService(scope, paymentRepo, repayment.RetryConfig{
		MaxRetries: cfg.Repayment.MaxRetries,
		Backoff:    cfg.Repayment.RetryBackoff,
	}, log, paymentOpts...)

	kpiService := kpiapp.NewService(kpiRepo, financingRepo, paymentRepo, log)
	farmService := farmapp.NewService(scope, farmerRepo, parcelRepo, log)
	outboxService := eventapp.NewOutboxService(outboxRepo, log, eventapp.WithClaimTimeout(cfg.Event.ClaimTimeout))

	// Subject registration from approved inspections runs off the outbox.
	// Delivery is at-least-once, so applied event IDs are recorded and
	// redeliveries skipped.
	store, err := cache.NewIdempotencyStoreFactory(cfg.Redis, cache.WithLogger(log)).CreateStore(ctx)
	if err != nil {
		return nil, fmt.Errorf("idempotency store: %w", err)
	}
	bus := event.NewInMemoryEventBus(log)
	bus.Subscribe(event.NewIdempotentHandler(
		subjectapp.NewInspectionApprovedHandler(scope, log),
		store,
		log,
		event.WithIdempotencyConfig(shared.IdempotencyConfig{Enabled: true, TTL: cfg.Event.IdempotencyTTL}),
	))

	processor := event.NewOutboxProcessor(outboxRepo, bus, serializer, event.OutboxProcessorConfig{
		BatchSize:        cfg.Event.BatchSize,
		PollInterval:     cfg.Event.PollInterval,
		Retry:            retry,
		ClaimTimeout:     cfg.Event.ClaimTimeout,
		CleanupEnabled:   cfg.Event.CleanupEnabled,
		CleanupRetention: cfg.Event.CleanupRetention,
		CleanupInterval:  event.DefaultOutboxProcessorConfig().CleanupInterval,
	}, log)

	checks := map[string]handler.HealthCheck{
		"database": db.Ping,
	}

	return &application{
		handlers: router.Handlers{
			System:     handler.NewSystemHandler(cfg.App.Name, telemetry.ServiceVersion, checks),
			Inspection: handler.NewInspectionHandler(inspectionService),
			Subject:    handler.NewSubjectHandler(registrar, eligibilityService),
			Financing:  handler.NewFinancingHandler(financingService),
			Payment:    handler.NewPaymentHandler(paymentService),
			KPI:        handler.NewKPIHandler(kpiService),
			Farmer:     handler.NewFarmerHandler(farmService),
			Outbox:     handler.NewOutboxHandler(outboxService),
		},
		processor:     processor,
		financingRepo: financingRepo,
		inspections:   inspectionService,
		financings:    financingService,
		payments:      paymentService,
	}, nil
}
