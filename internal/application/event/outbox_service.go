// Package event exposes outbox administration: dead-letter inspection and
// manual re-queueing of events whose handlers kept failing.
package event

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/agrocredit/backend/internal/domain/identity"
	"github.com/agrocredit/backend/internal/domain/shared"
	"github.com/agrocredit/backend/internal/infrastructure/telemetry"
)

// requeueBatch bounds how many dead letters are reset per round trip
const requeueBatch = 100

// OutboxService lets an administrator see and unblock event delivery. Every
// operation requires the outbox:admin permission.
type OutboxService struct {
	repo         shared.OutboxRepository
	claimTimeout time.Duration
	logger       *zap.Logger
}

type OutboxServiceOption func(*OutboxService)

// WithClaimTimeout sets how old a PROCESSING claim must be before an
// administrator may requeue it
func WithClaimTimeout(d time.Duration) OutboxServiceOption {
	return func(s *OutboxService) {
		if d > 0 {
			s.claimTimeout = d
		}
	}
}

func NewOutboxService(repo shared.OutboxRepository, logger *zap.Logger, opts ...OutboxServiceOption) *OutboxService {
	s := &OutboxService{repo: repo, claimTimeout: shared.DefaultClaimTimeout, logger: logger}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *OutboxService) staleBefore() time.Time {
	return time.Now().UTC().Add(-s.claimTimeout)
}

// DeadLetters lists events whose delivery gave up
func (s *OutboxService) DeadLetters(ctx context.Context, actor identity.Actor, query DeadLetterQuery) (*shared.Paginated[EntryResponse], error) {
	if err := actor.Require(identity.PermOutboxAdmin); err != nil {
		return nil, err
	}
	p := query.page()
	entries, total, err := s.repo.FindDead(ctx, p.Number, p.Size)
	if err != nil {
		return nil, fmt.Errorf("failed to list dead letters: %w", err)
	}
	out := make([]EntryResponse, len(entries))
	for i, e := range entries {
		out[i] = toEntryResponse(e)
	}
	page := shared.NewPaginated(out, total, p)
	return &page, nil
}

// Entry returns one outbox row
func (s *OutboxService) Entry(ctx context.Context, actor identity.Actor, id uuid.UUID) (*EntryResponse, error) {
	if err := actor.Require(identity.PermOutboxAdmin); err != nil {
		return nil, err
	}
	e, err := s.find(ctx, id)
	if err != nil {
		return nil, err
	}
	resp := toEntryResponse(e)
	return &resp, nil
}

// Requeue puts one dead letter, or a row whose delivery claim was abandoned,
// back in the queue with a fresh attempt budget.
func (s *OutboxService) Requeue(ctx context.Context, actor identity.Actor, id uuid.UUID) (*EntryResponse, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "outbox", "requeue")
	defer span.End()

	if err := actor.Require(identity.PermOutboxAdmin); err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}
	e, err := s.find(ctx, id)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}
	if err := e.ResetForRetry(s.staleBefore()); err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}
	if err := s.repo.Update(ctx, e); err != nil {
		telemetry.RecordError(span, err)
		return nil, fmt.Errorf("failed to requeue outbox entry: %w", err)
	}

	telemetry.SetOK(span)
	s.logger.Info("Outbox entry requeued",
		zap.String("id", id.String()),
		zap.String("event_type", e.EventType),
		zap.String("by", actor.UserID.String()),
	)
	resp := toEntryResponse(e)
	return &resp, nil
}

// RequeueAllDead requeues every dead letter. Requeued rows leave the dead
// set, so the first page always holds whatever is left.
func (s *OutboxService) RequeueAllDead(ctx context.Context, actor identity.Actor) (*RequeueResult, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "outbox", "requeue_all")
	defer span.End()

	if err := actor.Require(identity.PermOutboxAdmin); err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}

	result := &RequeueResult{}
	for {
		entries, _, err := s.repo.FindDead(ctx, 1, requeueBatch)
		if err != nil {
			telemetry.RecordError(span, err)
			return result, fmt.Errorf("failed to list dead letters: %w", err)
		}
		for _, e := range entries {
			if e.ResetForRetry(s.staleBefore()) != nil {
				continue
			}
			if err := s.repo.Update(ctx, e); err != nil {
				telemetry.RecordError(span, err)
				return result, fmt.Errorf("failed to requeue outbox entry %s: %w", e.ID, err)
			}
			result.Requeued++
		}
		if len(entries) < requeueBatch {
			break
		}
	}

	telemetry.SetOK(span)
	s.logger.Info("Dead letters requeued", zap.Int64("count", result.Requeued))
	return result, nil
}

// Stats counts rows per delivery status
func (s *OutboxService) Stats(ctx context.Context, actor identity.Actor) (*StatsResponse, error) {
	if err := actor.Require(identity.PermOutboxAdmin); err != nil {
		return nil, err
	}
	counts, err := s.repo.CountByStatus(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to count outbox entries: %w", err)
	}
	stats := &StatsResponse{
		Pending:    counts[shared.OutboxStatusPending],
		Processing: counts[shared.OutboxStatusProcessing],
		Sent:       counts[shared.OutboxStatusSent],
		Failed:     counts[shared.OutboxStatusFailed],
		Dead:       counts[shared.OutboxStatusDead],
	}
	for _, n := range counts {
		stats.Total += n
	}
	stats.Backlog = stats.Pending + stats.Processing + stats.Failed
	return stats, nil
}

func (s *OutboxService) find(ctx context.Context, id uuid.UUID) (*shared.OutboxEntry, error) {
	e, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to load outbox entry: %w", err)
	}
	if e == nil {
		return nil, shared.NewNotFoundError("outbox entry")
	}
	return e, nil
}
