package eligibility

import (
	"context"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/agrocredit/backend/internal/domain/eligibility"
	"github.com/agrocredit/backend/internal/domain/identity"
	"github.com/agrocredit/backend/internal/domain/shared"
	"github.com/agrocredit/backend/internal/infrastructure/telemetry"
)

// Service exposes eligibility queries. Reads take no locks; the
// authoritative check runs again when a financing is created.
type Service struct {
	sources    Sources
	calculator Calculator
	logger     *zap.Logger
}

// NewService creates a new eligibility Service
func NewService(sources Sources, calculator Calculator, logger *zap.Logger) *Service {
	return &Service{
		sources:    sources,
		calculator: calculator,
		logger:     logger,
	}
}

// EligibleAmount returns how much the subject may still be financed. A
// subject with no approved estimations has zero.
func (s *Service) EligibleAmount(ctx context.Context, actor identity.Actor, subjectID uuid.UUID) (decimal.Decimal, error) {
	res, err := s.evaluate(ctx, actor, subjectID)
	if err != nil {
		return decimal.Zero, err
	}
	return res.Amount, nil
}

// ListEligibleParcels returns the parcels that count towards the eligible
// amount, one entry per parcel, ordered by parcel ID.
func (s *Service) ListEligibleParcels(ctx context.Context, actor identity.Actor, subjectID uuid.UUID) (*EligibilityResponse, error) {
	res, err := s.evaluate(ctx, actor, subjectID)
	if err != nil {
		return nil, err
	}
	resp := ToEligibilityResponse(subjectID, res)
	return &resp, nil
}

func (s *Service) evaluate(ctx context.Context, actor identity.Actor, subjectID uuid.UUID) (eligibility.Result, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "eligibility", "evaluate",
		telemetry.WithAttribute(telemetry.SpanAttrSubjectID, subjectID.String()),
	)
	defer span.End()

	if !actor.CanReadSubject(subjectID) {
		err := shared.NewDomainError(shared.KindForbidden, "FORBIDDEN", "subject belongs to another farmer")
		telemetry.RecordError(span, err)
		return eligibility.Result{}, err
	}
	res, err := s.calculator.Evaluate(ctx, s.sources, subjectID)
	if err != nil {
		telemetry.RecordError(span, err)
		s.logger.Error("eligibility evaluation failed",
			zap.String("subject_id", subjectID.String()),
			zap.Error(err),
		)
		return eligibility.Result{}, err
	}
	telemetry.SetAttribute(span, telemetry.SpanAttrAmount, res.Amount.String())
	telemetry.SetOK(span)
	return res, nil
}
