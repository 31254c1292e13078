// Package kpi reports totals over the payment ledger.
package kpi

import (
	"context"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/agrocredit/backend/internal/application/repayment"
	"github.com/agrocredit/backend/internal/domain/financing"
	"github.com/agrocredit/backend/internal/domain/identity"
	"github.com/agrocredit/backend/internal/domain/kpi"
	"github.com/agrocredit/backend/internal/domain/shared"
	"github.com/agrocredit/backend/internal/infrastructure/telemetry"
)

// Service computes ledger totals
type Service struct {
	totals     kpi.Repository
	financings financing.Repository
	payments   financing.PaymentRepository
	logger     *zap.Logger
}

// NewService creates a new KPI Service
func NewService(totals kpi.Repository, financings financing.Repository, payments financing.PaymentRepository, logger *zap.Logger) *Service {
	return &Service{
		totals:     totals,
		financings: financings,
		payments:   payments,
		logger:     logger,
	}
}

// Totals sums the ledger rows matching the query. Paging is ignored.
func (s *Service) Totals(ctx context.Context, actor identity.Actor, query repayment.LedgerQuery) (*TotalsResponse, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "kpi", "totals")
	defer span.End()

	filter, err := s.filter(actor, query)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}
	t, err := s.totals.Totals(ctx, filter)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}
	telemetry.SetOK(span)
	resp := ToTotalsResponse(t)
	return &resp, nil
}

// SelfCheck recomputes the totals in memory from the ledger rows and
// compares them with the SQL aggregate. When the query names a financing
// its running TotalRepaid is also checked against the retained sum of its
// payments. A divergence is logged as an error.
func (s *Service) SelfCheck(ctx context.Context, actor identity.Actor, query repayment.LedgerQuery) (*SelfCheckResponse, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "kpi", "self_check")
	defer span.End()

	filter, err := s.filter(actor, query)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}
	stored, err := s.totals.Totals(ctx, filter)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}

	projected := kpi.ZeroTotals()
	filter.Page = shared.Page{Number: 1, Size: shared.MaxPageSize}
	for {
		items, _, err := s.payments.FindAll(ctx, filter)
		if err != nil {
			telemetry.RecordError(span, err)
			return nil, err
		}
		for i := range items {
			projected = projected.Add(&items[i])
		}
		if len(items) < filter.Page.Size {
			break
		}
		filter.Page.Number++
	}

	resp := &SelfCheckResponse{
		Stored:     ToTotalsResponse(stored),
		Projected:  ToTotalsResponse(projected),
		Consistent: stored.Equal(projected),
		Balanced:   stored.IsBalanced() && projected.IsBalanced(),
	}
	if !resp.Consistent || !resp.Balanced {
		s.logger.Error("ledger totals diverge",
			zap.String("stored_income", stored.TotalIncome.String()),
			zap.String("projected_income", projected.TotalIncome.String()),
			zap.Int64("stored_count", stored.PaymentCount),
			zap.Int64("projected_count", projected.PaymentCount),
			zap.Bool("balanced", resp.Balanced),
		)
	}

	if filter.FinancingID != nil {
		repaid, err := s.checkRepaid(ctx, *filter.FinancingID)
		if err != nil {
			telemetry.RecordError(span, err)
			return nil, err
		}
		resp.Repaid = repaid
	}

	telemetry.SetAttributes(span, "consistent", resp.Consistent, "balanced", resp.Balanced)
	telemetry.SetOK(span)
	return resp, nil
}

// checkRepaid returns nil when the financing does not exist
func (s *Service) checkRepaid(ctx context.Context, financingID uuid.UUID) (*RepaidCheck, error) {
	f, err := s.financings.FindByID(ctx, financingID)
	if err != nil || f == nil {
		return nil, err
	}
	retained, err := s.payments.SumRetained(ctx, financingID)
	if err != nil {
		return nil, err
	}
	check := &RepaidCheck{
		FinancingID:   financingID,
		TotalRepaid:   f.TotalRepaid,
		TotalRetained: retained,
		Consistent:    f.TotalRepaid.Equal(retained),
	}
	if !check.Consistent {
		s.logger.Error("financing repaid total diverges from its ledger",
			zap.String("financing_id", financingID.String()),
			zap.String("total_repaid", f.TotalRepaid.String()),
			zap.String("total_retained", retained.String()),
		)
	}
	return check, nil
}

func (s *Service) filter(actor identity.Actor, query repayment.LedgerQuery) (financing.LedgerFilter, error) {
	if err := actor.Require(identity.PermReportRead); err != nil {
		return financing.LedgerFilter{}, err
	}
	return query.Filter(actor)
}
