package event

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/agrocredit/backend/internal/domain/shared"
	"github.com/agrocredit/backend/internal/infrastructure/telemetry"
)

type OutboxProcessorConfig struct {
	BatchSize    int
	PollInterval time.Duration
	Retry        shared.RetryPolicy
	// ClaimTimeout is how long a claimed row may stay PROCESSING before it
	// is treated as abandoned and retried
	ClaimTimeout time.Duration
	// Sent rows older than CleanupRetention are purged every CleanupInterval
	CleanupEnabled   bool
	CleanupRetention time.Duration
	CleanupInterval  time.Duration
}

func DefaultOutboxProcessorConfig() OutboxProcessorConfig {
	return OutboxProcessorConfig{
		BatchSize:        100,
		PollInterval:     5 * time.Second,
		Retry:            shared.DefaultRetryPolicy(),
		ClaimTimeout:     shared.DefaultClaimTimeout,
		CleanupEnabled:   true,
		CleanupRetention: 7 * 24 * time.Hour,
		CleanupInterval:  time.Hour,
	}
}

// OutboxProcessor moves committed outbox rows onto the event bus. Rows are
// claimed before delivery so two processors never hand the same row to a
// handler at once. A claim left behind by a crashed worker expires after
// ClaimTimeout and the row is delivered again.
type OutboxProcessor struct {
	repo       shared.OutboxRepository
	bus        shared.EventPublisher
	serializer *EventSerializer
	config     OutboxProcessorConfig
	logger     *zap.Logger

	cancel context.CancelFunc
	group  *errgroup.Group
}

func NewOutboxProcessor(repo shared.OutboxRepository, bus shared.EventPublisher, serializer *EventSerializer, config OutboxProcessorConfig, logger *zap.Logger) *OutboxProcessor {
	return &OutboxProcessor{
		repo:       repo,
		bus:        bus,
		serializer: serializer,
		config:     config,
		logger:     logger,
	}
}

// Start runs delivery, and cleanup when enabled, until Stop or ctx ends
func (p *OutboxProcessor) Start(ctx context.Context) error {
	ctx, p.cancel = context.WithCancel(ctx)
	p.group, ctx = errgroup.WithContext(ctx)

	p.group.Go(func() error {
		every(ctx, p.config.PollInterval, func() { p.ProcessOnce(ctx) })
		return nil
	})
	if p.config.CleanupEnabled {
		p.group.Go(func() error {
			every(ctx, p.config.CleanupInterval, func() { p.cleanup(ctx) })
			return nil
		})
	}

	p.logger.Info("Outbox processor started",
		zap.Int("batch_size", p.config.BatchSize),
		zap.Duration("poll_interval", p.config.PollInterval),
		zap.Bool("cleanup", p.config.CleanupEnabled),
	)
	return nil
}

// Stop cancels the loops and waits for the batch in flight, or for ctx
func (p *OutboxProcessor) Stop(ctx context.Context) error {
	if p.cancel == nil {
		return nil
	}
	p.cancel()

	done := make(chan struct{})
	go func() {
		_ = p.group.Wait()
		close(done)
	}()
	select {
	case <-done:
		p.logger.Info("Outbox processor stopped")
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// every calls fn on each tick of interval until ctx ends
func every(ctx context.Context, interval time.Duration, fn func()) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			fn()
		}
	}
}

// ProcessOnce expires abandoned claims, then delivers one batch of new rows
// and one batch of retries that are due. It returns how many rows it claimed.
func (p *OutboxProcessor) ProcessOnce(ctx context.Context) int {
	p.expireClaims(ctx)

	pending, err := p.repo.FindPending(ctx, p.config.BatchSize)
	if err != nil {
		p.logger.Error("Failed to load pending outbox rows", zap.Error(err))
		return 0
	}
	claimed := p.deliverAll(ctx, pending)

	due, err := p.repo.FindRetryable(ctx, time.Now().UTC(), p.config.BatchSize)
	if err != nil {
		p.logger.Error("Failed to load outbox retries", zap.Error(err))
		return claimed
	}
	return claimed + p.deliverAll(ctx, due)
}

func (p *OutboxProcessor) expireClaims(ctx context.Context) {
	if p.config.ClaimTimeout <= 0 {
		return
	}
	cutoff := time.Now().UTC().Add(-p.config.ClaimTimeout)
	n, err := p.repo.ExpireClaims(ctx, cutoff, p.config.BatchSize, p.config.Retry)
	if err != nil {
		p.logger.Error("Failed to expire outbox claims", zap.Error(err))
		return
	}
	if n > 0 {
		p.logger.Warn("Expired abandoned outbox claims", zap.Int("count", n), zap.Time("claimed_before", cutoff))
	}
}

func (p *OutboxProcessor) deliverAll(ctx context.Context, entries []*shared.OutboxEntry) int {
	if len(entries) == 0 {
		return 0
	}
	ids := make([]uuid.UUID, 0, len(entries))
	for _, e := range entries {
		ids = append(ids, e.ID)
	}
	// another processor may have claimed some of them in the meantime
	claimed, err := p.repo.MarkProcessing(ctx, ids)
	if err != nil {
		p.logger.Error("Failed to claim outbox rows", zap.Error(err))
		return 0
	}
	for _, entry := range claimed {
		p.deliver(ctx, entry)
	}
	return len(claimed)
}

func (p *OutboxProcessor) deliver(ctx context.Context, entry *shared.OutboxEntry) {
	ctx, span := telemetry.StartServiceSpan(ctx, "outbox", "deliver",
		telemetry.WithAttribute("event.type", entry.EventType),
		telemetry.WithAttribute("event.id", entry.EventID),
		telemetry.WithAttribute(telemetry.SpanAttrAttempt, entry.RetryCount+1),
	)
	defer span.End()

	log := p.logger.With(
		zap.String("event_id", entry.EventID.String()),
		zap.String("event_type", entry.EventType),
	)

	event, err := p.serializer.Deserialize(entry.EventType, entry.Payload)
	if err == nil {
		err = p.bus.Publish(ctx, event)
	}

	// the outcome is written even if ctx was cancelled mid-delivery
	store := context.WithoutCancel(ctx)
	switch {
	case err != nil && ctx.Err() != nil:
		entry.Release()
		if uerr := p.repo.Update(store, entry); uerr != nil {
			log.Error("Failed to release interrupted delivery", zap.Error(uerr))
		}
		log.Info("Delivery interrupted, event returned to the queue", zap.Error(err))
		return
	case err != nil:
		telemetry.RecordError(span, err)
		p.retryLater(store, log, entry, err)
		return
	}

	entry.MarkSent()
	if err := p.repo.Update(store, entry); err != nil {
		// the claim expires after ClaimTimeout and the event is redelivered
		log.Error("Failed to mark outbox row sent", zap.Error(err))
		return
	}
	telemetry.SetOK(span)
	log.Debug("Event delivered")
}

func (p *OutboxProcessor) retryLater(ctx context.Context, log *zap.Logger, entry *shared.OutboxEntry, cause error) {
	entry.MarkFailed(cause.Error(), p.config.Retry)
	if entry.IsDead() {
		log.Warn("Event moved to dead letters",
			zap.String("aggregate_type", entry.AggregateType),
			zap.String("aggregate_id", entry.AggregateID.String()),
			zap.Int("attempts", entry.RetryCount),
			zap.Error(cause),
		)
	} else {
		log.Error("Event delivery failed", zap.Int("attempts", entry.RetryCount), zap.Error(cause))
	}
	if err := p.repo.Update(ctx, entry); err != nil {
		log.Error("Failed to record delivery failure", zap.Error(err))
	}
}

func (p *OutboxProcessor) cleanup(ctx context.Context) {
	cutoff := time.Now().UTC().Add(-p.config.CleanupRetention)
	deleted, err := p.repo.DeleteSentBefore(ctx, cutoff)
	if err != nil {
		p.logger.Error("Failed to purge sent outbox rows", zap.Error(err))
		return
	}
	if deleted > 0 {
		p.logger.Info("Purged sent outbox rows", zap.Int64("deleted", deleted), zap.Time("cutoff", cutoff))
	}
}
