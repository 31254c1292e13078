package subject

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/agrocredit/backend/internal/application/txscope"
	"github.com/agrocredit/backend/internal/domain/eligibility"
	"github.com/agrocredit/backend/internal/domain/inspection"
	"github.com/agrocredit/backend/internal/domain/shared"
	"github.com/agrocredit/backend/internal/domain/subject"
)

// InspectionApprovedHandler handles InspectionApprovedEvent: it registers the
// farmer as a productive subject and records the parcel's harvest estimate.
// Both writes share one transaction, so a failed delivery leaves nothing
// behind and the outbox retries it.
type InspectionApprovedHandler struct {
	scope  txscope.TransactionScope
	logger *zap.Logger
}

// NewInspectionApprovedHandler creates a new handler for inspection approvals
func NewInspectionApprovedHandler(scope txscope.TransactionScope, logger *zap.Logger) *InspectionApprovedHandler {
	return &InspectionApprovedHandler{
		scope:  scope,
		logger: logger,
	}
}

// EventTypes returns the event types this handler is interested in
func (h *InspectionApprovedHandler) EventTypes() []string {
	return []string{inspection.EventTypeInspectionApproved}
}

// Handle processes an InspectionApprovedEvent
func (h *InspectionApprovedHandler) Handle(ctx context.Context, event shared.DomainEvent) error {
	approved, ok := event.(*inspection.InspectionApprovedEvent)
	if !ok {
		h.logger.Error("unexpected event type",
			zap.String("expected", inspection.EventTypeInspectionApproved),
			zap.String("actual", event.EventType()),
		)
		return fmt.Errorf("unexpected event type: expected %s, got %s",
			inspection.EventTypeInspectionApproved, event.EventType())
	}

	var (
		registered *subject.ProductiveSubject
		created    bool
	)
	err := h.scope.Execute(ctx, func(repos txscope.Repositories) error {
		farmer, err := repos.Farmers().FindByID(ctx, approved.FarmerID)
		if err != nil {
			return fmt.Errorf("failed to load farmer: %w", err)
		}
		if farmer == nil {
			return shared.NewNotFoundError("farmer")
		}

		attrs := subject.Attributes{
			Name:    nonEmpty(farmer.Name),
			Phone:   nonEmpty(farmer.Phone),
			Email:   nonEmpty(farmer.Email),
			Address: nonEmpty(farmer.Address),
		}
		registered, created, err = UpsertInTx(ctx, repos, farmer.IdentityNumber, attrs)
		if err != nil {
			return err
		}

		estimation, err := eligibility.NewParcelEstimation(
			approved.ParcelID,
			registered.ID,
			approved.InspectionID,
			approved.EstimatedHarvestValue,
			approved.ApprovedAt,
		)
		if err != nil {
			return err
		}
		return repos.Estimations().Upsert(ctx, estimation)
	})
	if err != nil {
		h.logger.Error("failed to register inspection approval",
			zap.String("inspection_id", approved.InspectionID.String()),
			zap.String("farmer_id", approved.FarmerID.String()),
			zap.Error(err),
		)
		return err
	}

	h.logger.Info("inspection approval registered",
		zap.String("inspection_id", approved.InspectionID.String()),
		zap.String("parcel_id", approved.ParcelID.String()),
		zap.String("subject_id", registered.ID.String()),
		zap.Bool("subject_created", created),
		zap.String("estimated_harvest_value", approved.EstimatedHarvestValue.String()),
	)
	return nil
}

func nonEmpty(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

// Ensure InspectionApprovedHandler implements shared.EventHandler
var _ shared.EventHandler = (*InspectionApprovedHandler)(nil)
