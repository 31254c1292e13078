// Package financing originates financings, enforces their state table and
// runs the overdue reconciliation hook.
package financing

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/agrocredit/backend/internal/application/eligibility"
	"github.com/agrocredit/backend/internal/application/txscope"
	"github.com/agrocredit/backend/internal/domain/financing"
	"github.com/agrocredit/backend/internal/domain/identity"
	"github.com/agrocredit/backend/internal/domain/shared"
	"github.com/agrocredit/backend/internal/infrastructure/telemetry"
)

const defaultReconcileBatchSize = 100

// ReconcileConfig drives ReconcileOverdue
type ReconcileConfig struct {
	Policy financing.OverduePolicy
	// MinAge is the youngest a financing can be and still be overdue; it
	// bounds the candidate scan
	MinAge    time.Duration
	BatchSize int
}

// CycleReconcileConfig builds a ReconcileConfig around CycleOverduePolicy.
// Every financing has at least one cycle, so nothing younger than one cycle
// plus the grace period can be overdue.
func CycleReconcileConfig(policy financing.CycleOverduePolicy, batchSize int) ReconcileConfig {
	return ReconcileConfig{
		Policy:    policy,
		MinAge:    policy.CycleLength + policy.GracePeriod,
		BatchSize: batchSize,
	}
}

// Service handles financing operations
type Service struct {
	scope           txscope.TransactionScope
	financings      financing.Repository
	calculator      eligibility.Calculator
	reconcile       ReconcileConfig
	logger          *zap.Logger
	businessMetrics *telemetry.BusinessMetrics
}

// NewService creates a new financing Service
func NewService(
	scope txscope.TransactionScope,
	financings financing.Repository,
	calculator eligibility.Calculator,
	reconcile ReconcileConfig,
	logger *zap.Logger,
) *Service {
	if reconcile.BatchSize <= 0 {
		reconcile.BatchSize = defaultReconcileBatchSize
	}
	return &Service{
		scope:      scope,
		financings: financings,
		calculator: calculator,
		reconcile:  reconcile,
		logger:     logger,
	}
}

// SetBusinessMetrics sets the business metrics collector
func (s *Service) SetBusinessMetrics(bm *telemetry.BusinessMetrics) {
	s.businessMetrics = bm
}

// Create originates a financing in state ACTIVO.
//
// The subject row is locked before eligibility is evaluated, so concurrent
// requests for the same subject check and insert one after the other and
// cannot jointly exceed the eligible amount.
func (s *Service) Create(ctx context.Context, actor identity.Actor, req CreateFinancingRequest) (*FinancingResponse, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "financing", "create",
		telemetry.WithAttribute(telemetry.SpanAttrSubjectID, req.SubjectID.String()),
		telemetry.WithAttribute(telemetry.SpanAttrAmount, req.Principal.String()),
	)
	defer span.End()

	if err := actor.Require(identity.PermFinancingCreate); err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}
	terms := req.terms()
	if err := terms.Validate(); err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}

	var created *financing.Financing
	err := s.scope.Execute(ctx, func(repos txscope.Repositories) error {
		subj, err := repos.Subjects().FindByIDForUpdate(ctx, terms.SubjectID)
		if err != nil {
			return err
		}
		if subj == nil {
			return shared.NewNotFoundError("productive subject")
		}

		f, err := financing.NewFinancing(terms, actor.RecordedBy())
		if err != nil {
			return err
		}
		res, err := s.calculator.Evaluate(ctx, eligibility.Sources{
			Estimations: repos.Estimations(),
			Inspections: repos.Inspections(),
			Financings:  repos.Financings(),
		}, subj.ID)
		if err != nil {
			return err
		}
		if f.Principal.GreaterThan(res.Amount) {
			return shared.NewDomainError(shared.KindExceedsEligibility, shared.ErrExceedsEligibility.Code,
				fmt.Sprintf("principal %s exceeds the eligible amount %s", f.Principal, res.Amount))
		}

		if err := repos.Financings().Create(ctx, f); err != nil {
			return err
		}
		if err := txscope.RecordPending(ctx, repos.Events(), f); err != nil {
			return err
		}
		created = f
		return nil
	})
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}

	telemetry.SetAttribute(span, telemetry.SpanAttrFinancingID, created.ID.String())
	telemetry.SetOK(span)
	s.businessMetrics.RecordFinancingCreated(ctx, created.Principal)
	s.logger.Info("Financing created",
		zap.String("financing_id", created.ID.String()),
		zap.String("subject_id", created.SubjectID.String()),
		zap.String("principal", created.Principal.String()),
		zap.Int("harvest_cycles", created.NumberOfHarvestCycles),
	)
	resp := ToFinancingResponse(created)
	return &resp, nil
}

// UpdateStatus applies a manual state change. Only permitted edges succeed;
// settled and defaulted financings never change again.
func (s *Service) UpdateStatus(ctx context.Context, actor identity.Actor, id uuid.UUID, req UpdateStatusRequest) (*FinancingResponse, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "financing", "update_status",
		telemetry.WithAttribute(telemetry.SpanAttrFinancingID, id.String()),
		telemetry.WithAttribute(telemetry.SpanAttrState, req.State),
	)
	defer span.End()

	if err := actor.Require(identity.PermFinancingStatus); err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}
	target, err := financing.ParseState(req.State)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}

	var (
		updated *financing.Financing
		from    financing.State
	)
	err = s.scope.Execute(ctx, func(repos txscope.Repositories) error {
		f, err := repos.Financings().FindByIDForUpdate(ctx, id)
		if err != nil {
			return err
		}
		if f == nil {
			return shared.NewNotFoundError("financing")
		}
		from = f.State
		if err := f.UpdateStatus(target, req.Reason); err != nil {
			return err
		}
		if err := repos.Financings().SaveWithLock(ctx, f); err != nil {
			return err
		}
		if err := txscope.RecordPending(ctx, repos.Events(), f); err != nil {
			return err
		}
		updated = f
		return nil
	})
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}

	telemetry.SetOK(span)
	s.businessMetrics.RecordFinancingTransition(ctx, from.String(), target.String())
	s.logger.Info("Financing status updated",
		zap.String("financing_id", id.String()),
		zap.String("from", from.String()),
		zap.String("to", target.String()),
		zap.String("by", actor.UserID.String()),
	)
	resp := ToFinancingResponse(updated)
	return &resp, nil
}

// Get returns one financing. Farmers may only read their own.
func (s *Service) Get(ctx context.Context, actor identity.Actor, id uuid.UUID) (*FinancingResponse, error) {
	f, err := s.financings.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if f == nil {
		return nil, shared.NewNotFoundError("financing")
	}
	if !actor.CanReadSubject(f.SubjectID) {
		return nil, shared.NewDomainError(shared.KindForbidden, "FORBIDDEN", "financing belongs to another farmer")
	}
	resp := ToFinancingResponse(f)
	return &resp, nil
}

// GetByStates lists financings in any of the given states, all states when
// none are given. Farmers only see their own subject's financings.
func (s *Service) GetByStates(ctx context.Context, actor identity.Actor, query ListFinancingsQuery) (*shared.Paginated[FinancingResponse], error) {
	filter, err := query.toFilter()
	if err != nil {
		return nil, err
	}
	if filter.SubjectID, err = actor.ScopeSubject(filter.SubjectID); err != nil {
		return nil, err
	}

	items, total, err := s.financings.FindAll(ctx, filter)
	if err != nil {
		return nil, err
	}
	page := shared.NewPaginated(ToFinancingResponses(items), total, filter.Page)
	return &page, nil
}

// ReconcileOverdue moves every overdue financing to INCUMPLIDO. It is safe to
// run repeatedly: each candidate is re-checked under its row lock, and
// financings already defaulted or settled are left alone. A failure on one
// financing is logged and reported without stopping the run.
func (s *Service) ReconcileOverdue(ctx context.Context, actor identity.Actor, now time.Time) (*ReconcileResult, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "financing", "reconcile_overdue")
	defer span.End()

	if err := actor.Require(identity.PermFinancingStatus); err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}
	if s.reconcile.Policy == nil {
		err := shared.NewDomainError(shared.KindInternal, "NO_OVERDUE_POLICY", "no overdue policy configured")
		telemetry.RecordError(span, err)
		return nil, err
	}

	now = now.UTC()
	result := &ReconcileResult{AsOf: now, Defaulted: []uuid.UUID{}}
	cutoff := now.Add(-s.reconcile.MinAge)
	var cursor *financing.ScanCursor
	for {
		batch, err := s.financings.FindOpenCreatedBefore(ctx, cutoff, cursor, s.reconcile.BatchSize)
		if err != nil {
			telemetry.RecordError(span, err)
			return nil, err
		}
		for i := range batch {
			result.Scanned++
			if !s.reconcile.Policy.IsOverdue(&batch[i], now) {
				continue
			}
			defaulted, err := s.markDefaulted(ctx, batch[i].ID, now)
			if err != nil {
				s.logger.Warn("failed to default overdue financing",
					zap.String("financing_id", batch[i].ID.String()),
					zap.Error(err),
				)
				result.Failed = append(result.Failed, batch[i].ID)
				continue
			}
			if defaulted {
				result.Defaulted = append(result.Defaulted, batch[i].ID)
			}
		}
		if len(batch) < s.reconcile.BatchSize {
			break
		}
		cursor = financing.CursorAfter(&batch[len(batch)-1])
	}

	telemetry.SetAttributes(span, "scanned", result.Scanned, "defaulted", len(result.Defaulted))
	telemetry.SetOK(span)
	s.logger.Info("Overdue reconciliation finished",
		zap.Time("as_of", now),
		zap.Int("scanned", result.Scanned),
		zap.Int("defaulted", len(result.Defaulted)),
		zap.Int("failed", len(result.Failed)),
	)
	return result, nil
}

func (s *Service) markDefaulted(ctx context.Context, id uuid.UUID, now time.Time) (bool, error) {
	var (
		defaulted bool
		from      financing.State
	)
	err := s.scope.Execute(ctx, func(repos txscope.Repositories) error {
		f, err := repos.Financings().FindByIDForUpdate(ctx, id)
		if err != nil {
			return err
		}
		// a payment may have landed since the scan
		if f == nil || !s.reconcile.Policy.IsOverdue(f, now) {
			return nil
		}
		from = f.State
		if err := f.UpdateStatus(financing.StateIncumplido, "overdue as of "+now.Format(time.RFC3339)); err != nil {
			return err
		}
		if err := repos.Financings().SaveWithLock(ctx, f); err != nil {
			return err
		}
		if err := txscope.RecordPending(ctx, repos.Events(), f); err != nil {
			return err
		}
		defaulted = true
		return nil
	})
	if err == nil && defaulted {
		s.businessMetrics.RecordFinancingTransition(ctx, from.String(), financing.StateIncumplido.String())
	}
	return defaulted, err
}
