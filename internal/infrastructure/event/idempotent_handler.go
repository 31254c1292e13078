package event

import (
	"context"
	"sync/atomic"

	"go.uber.org/zap"

	"github.com/agrocredit/backend/internal/domain/shared"
)

// DeliveryCounts tallies what an IdempotentHandler did with each delivery.
// One value may be shared by several handlers.
type DeliveryCounts struct {
	applied    atomic.Int64
	duplicates atomic.Int64
	failures   atomic.Int64
}

// DeliveryStats is a point-in-time copy of DeliveryCounts
type DeliveryStats struct {
	Applied    int64 `json:"applied"`
	Duplicates int64 `json:"duplicates"`
	Failures   int64 `json:"failures"`
}

func (c *DeliveryCounts) Snapshot() DeliveryStats {
	return DeliveryStats{
		Applied:    c.applied.Load(),
		Duplicates: c.duplicates.Load(),
		Failures:   c.failures.Load(),
	}
}

// IdempotentHandler skips event IDs that were already applied. The ID is
// recorded only after the wrapped handler succeeds, so a crash or a failed
// apply leaves the event deliverable again. Wrapped handlers must tolerate a
// second apply of an event whose record was lost; the approval handler
// upserts.
type IdempotentHandler struct {
	next   shared.EventHandler
	store  shared.IdempotencyStore
	config shared.IdempotencyConfig
	counts *DeliveryCounts
	logger *zap.Logger
}

type IdempotentHandlerOption func(*IdempotentHandler)

func WithIdempotencyConfig(config shared.IdempotencyConfig) IdempotentHandlerOption {
	return func(h *IdempotentHandler) { h.config = config }
}

// WithDeliveryCounts shares counts between handlers
func WithDeliveryCounts(counts *DeliveryCounts) IdempotentHandlerOption {
	return func(h *IdempotentHandler) { h.counts = counts }
}

func NewIdempotentHandler(next shared.EventHandler, store shared.IdempotencyStore, logger *zap.Logger, opts ...IdempotentHandlerOption) *IdempotentHandler {
	h := &IdempotentHandler{
		next:   next,
		store:  store,
		config: shared.DefaultIdempotencyConfig(),
		counts: &DeliveryCounts{},
		logger: logger,
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

func (h *IdempotentHandler) EventTypes() []string {
	return h.next.EventTypes()
}

// Handle runs the wrapped handler unless the event ID is already recorded
func (h *IdempotentHandler) Handle(ctx context.Context, event shared.DomainEvent) error {
	if !h.config.Enabled {
		return h.next.Handle(ctx, event)
	}

	key := event.EventID().String()
	log := h.logger.With(zap.String("event_id", key), zap.String("event_type", event.EventType()))

	done, err := h.store.IsProcessed(ctx, key)
	switch {
	case err != nil:
		log.Warn("Idempotency store unavailable, applying event anyway", zap.Error(err))
	case done:
		h.counts.duplicates.Add(1)
		log.Debug("Duplicate delivery skipped")
		return nil
	}

	if err := h.next.Handle(ctx, event); err != nil {
		h.counts.failures.Add(1)
		log.Error("Event handler failed", zap.Error(err))
		return err
	}
	h.counts.applied.Add(1)

	// the apply is committed; record it even when the delivery ctx is gone
	if _, err := h.store.MarkProcessed(context.WithoutCancel(ctx), key, h.config.TTL); err != nil {
		log.Warn("Failed to record applied event", zap.Error(err))
	}
	return nil
}

func (h *IdempotentHandler) Stats() DeliveryStats {
	return h.counts.Snapshot()
}

var _ shared.EventHandler = (*IdempotentHandler)(nil)
