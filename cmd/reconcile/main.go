// Command reconcile marks overdue financings as defaulted in one pass, for
// running from cron alongside or instead of the HTTP endpoint.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"go.uber.org/zap"

	eligibilityapp "github.com/agrocredit/backend/internal/application/eligibility"
	financingapp "github.com/agrocredit/backend/internal/application/financing"
	"github.com/agrocredit/backend/internal/domain/financing"
	"github.com/agrocredit/backend/internal/domain/identity"
	"github.com/agrocredit/backend/internal/domain/shared"
	"github.com/agrocredit/backend/internal/infrastructure/config"
	"github.com/agrocredit/backend/internal/infrastructure/event"
	"github.com/agrocredit/backend/internal/infrastructure/logger"
	"github.com/agrocredit/backend/internal/infrastructure/persistence"
)

func main() {
	var (
		asOf    string
		timeout time.Duration
	)
	flag.StringVar(&asOf, "as-of", "", "Evaluate overdue state at this RFC3339 instant instead of now")
	flag.DurationVar(&timeout, "timeout", 10*time.Minute, "Abort the run after this long")
	flag.Parse()

	now := time.Now().UTC()
	if asOf != "" {
		t, err := time.Parse(time.RFC3339, asOf)
		if err != nil {
			fmt.Fprintf(os.Stderr, "invalid -as-of %q: %v\n", asOf, err)
			os.Exit(2)
		}
		now = t.UTC()
	}

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	log, err := logger.New(&logger.Config{
		Level:  cfg.Log.Level,
		Format: cfg.Log.Format,
		Output: cfg.Log.Output,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync(log)

	db, err := persistence.NewDatabase(&cfg.Database, logger.NewGormLogger(log, logger.MapGormLogLevel(cfg.Log.Level)))
	if err != nil {
		log.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer db.Close()

	serializer := event.NewEventSerializer()
	event.RegisterAllEvents(serializer)
	publisher := event.NewOutboxPublisher(serializer, shared.RetryPolicy{
		MaxAttempts: cfg.Event.MaxRetries,
		BaseBackoff: cfg.Event.BaseBackoff,
		MaxBackoff:  cfg.Event.MaxBackoff,
	})
	financingRepo := persistence.NewGormFinancingRepository(db.DB)

	service := financingapp.NewService(
		persistence.NewGormTransactionScope(db.DB, publisher),
		financingRepo,
		eligibilityapp.Calculator{SubtractOutstanding: cfg.Eligibility.SubtractOutstanding},
		financingapp.CycleReconcileConfig(financing.CycleOverduePolicy{
			CycleLength: cfg.Financing.CycleLength,
			GracePeriod: cfg.Financing.GracePeriod,
		}, cfg.Financing.ReconcileBatchSize),
		log,
	)

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	result, err := service.ReconcileOverdue(ctx, identity.SystemActor(), now)
	if err != nil {
		log.Fatal("Reconcile failed", zap.Error(err))
	}

	log.Info("Reconcile finished",
		zap.Time("as_of", result.AsOf),
		zap.Int("scanned", result.Scanned),
		zap.Int("defaulted", len(result.Defaulted)),
		zap.Int("failed", len(result.Failed)),
	)
	if len(result.Failed) > 0 {
		os.Exit(1)
	}
}
