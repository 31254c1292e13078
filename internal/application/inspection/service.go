// Package inspection runs the inspection workflow: scheduling, field visits
// and the approve/reject decision whose side effects travel through the outbox.
package inspection

import (
	"context"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/agrocredit/backend/internal/application/txscope"
	"github.com/agrocredit/backend/internal/domain/farm"
	"github.com/agrocredit/backend/internal/domain/identity"
	"github.com/agrocredit/backend/internal/domain/inspection"
	"github.com/agrocredit/backend/internal/domain/shared"
	"github.com/agrocredit/backend/internal/infrastructure/telemetry"
)

// Service handles inspection operations
type Service struct {
	scope           txscope.TransactionScope
	inspections     inspection.Repository
	parcels         farm.ParcelRepository
	logger          *zap.Logger
	businessMetrics *telemetry.BusinessMetrics
}

// NewService creates a new inspection Service
func NewService(
	scope txscope.TransactionScope,
	inspections inspection.Repository,
	parcels farm.ParcelRepository,
	logger *zap.Logger,
) *Service {
	return &Service{
		scope:       scope,
		inspections: inspections,
		parcels:     parcels,
		logger:      logger,
	}
}

// SetBusinessMetrics sets the business metrics collector
func (s *Service) SetBusinessMetrics(bm *telemetry.BusinessMetrics) {
	s.businessMetrics = bm
}

// Create opens a pending inspection for a registered parcel
func (s *Service) Create(ctx context.Context, actor identity.Actor, req CreateInspectionRequest) (*InspectionResponse, error) {
	if err := actor.Require(identity.PermInspectionWrite); err != nil {
		return nil, err
	}
	parcel, err := s.parcels.FindByID(ctx, req.ParcelID)
	if err != nil {
		return nil, err
	}
	if parcel == nil {
		return nil, shared.NewNotFoundError("parcel")
	}

	insp, err := inspection.NewInspection(parcel.ID, parcel.FarmerID, req.Notes)
	if err != nil {
		return nil, err
	}
	if err := s.inspections.Create(ctx, insp); err != nil {
		return nil, err
	}

	resp := ToInspectionResponse(insp)
	return &resp, nil
}

// Schedule sets the visit date of a pending inspection
func (s *Service) Schedule(ctx context.Context, actor identity.Actor, id uuid.UUID, req ScheduleInspectionRequest) (*InspectionResponse, error) {
	return s.transition(ctx, actor, identity.PermInspectionWrite, "schedule", id, func(i *inspection.Inspection) error {
		return i.Schedule(req.ScheduledFor, req.InspectorID)
	})
}

// Start marks a scheduled inspection as in progress
func (s *Service) Start(ctx context.Context, actor identity.Actor, id uuid.UUID) (*InspectionResponse, error) {
	return s.transition(ctx, actor, identity.PermInspectionWrite, "start", id, func(i *inspection.Inspection) error {
		return i.Start()
	})
}

// Approve completes the inspection. The status change and the
// InspectionApproved outbox entry commit together; registering the subject
// and the parcel estimation happens when the event is delivered.
func (s *Service) Approve(ctx context.Context, actor identity.Actor, id uuid.UUID, req ApproveInspectionRequest) (*InspectionResponse, error) {
	var form inspection.FormData
	if req.FormData != nil {
		form = inspection.NewFormData(*req.FormData)
	}
	resp, err := s.transition(ctx, actor, identity.PermInspectionApprove, "approve", id, func(i *inspection.Inspection) error {
		return i.Approve(req.Notes, req.EstimatedHarvestValue, form, actor.RecordedBy())
	})
	if err != nil {
		return nil, err
	}
	s.businessMetrics.RecordInspectionDecided(ctx, "approved")
	s.logger.Info("Inspection approved",
		zap.String("inspection_id", id.String()),
		zap.String("parcel_id", resp.ParcelID.String()),
		zap.String("estimated_harvest_value", req.EstimatedHarvestValue.String()),
	)
	return resp, nil
}

// Reject cancels the inspection. Rejection has no side effects beyond the
// InspectionRejected event.
func (s *Service) Reject(ctx context.Context, actor identity.Actor, id uuid.UUID, req RejectInspectionRequest) (*InspectionResponse, error) {
	resp, err := s.transition(ctx, actor, identity.PermInspectionApprove, "reject", id, func(i *inspection.Inspection) error {
		return i.Reject(req.Reason, actor.RecordedBy())
	})
	if err != nil {
		return nil, err
	}
	s.businessMetrics.RecordInspectionDecided(ctx, "rejected")
	return resp, nil
}

// Get returns one inspection
func (s *Service) Get(ctx context.Context, actor identity.Actor, id uuid.UUID) (*InspectionResponse, error) {
	if err := actor.Require(identity.PermInspectionWrite); err != nil {
		return nil, err
	}
	insp, err := s.inspections.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if insp == nil {
		return nil, shared.NewNotFoundError("inspection")
	}
	resp := ToInspectionResponse(insp)
	return &resp, nil
}

// List returns a page of inspections
func (s *Service) List(ctx context.Context, actor identity.Actor, query ListInspectionsQuery) (*shared.Paginated[InspectionResponse], error) {
	if err := actor.Require(identity.PermInspectionWrite); err != nil {
		return nil, err
	}
	filter := query.toFilter()
	items, total, err := s.inspections.FindAll(ctx, filter)
	if err != nil {
		return nil, err
	}
	page := shared.NewPaginated(ToInspectionResponses(items), total, filter.Page)
	return &page, nil
}

// transition loads the inspection under a row lock, applies fn and saves it
// with its events in one transaction.
func (s *Service) transition(
	ctx context.Context,
	actor identity.Actor,
	perm identity.Permission,
	op string,
	id uuid.UUID,
	fn func(*inspection.Inspection) error,
) (*InspectionResponse, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "inspection", op,
		telemetry.WithAttribute(telemetry.SpanAttrInspectionID, id.String()),
		telemetry.WithAttribute(telemetry.SpanAttrActorRole, actor.Role.String()),
	)
	defer span.End()

	if err := actor.Require(perm); err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}

	var updated *inspection.Inspection
	err := s.scope.Execute(ctx, func(repos txscope.Repositories) error {
		insp, err := repos.Inspections().FindByIDForUpdate(ctx, id)
		if err != nil {
			return err
		}
		if insp == nil {
			return shared.NewNotFoundError("inspection")
		}
		if err := fn(insp); err != nil {
			return err
		}
		if err := repos.Inspections().SaveWithLock(ctx, insp); err != nil {
			return err
		}
		if err := txscope.RecordPending(ctx, repos.Events(), insp); err != nil {
			return err
		}
		updated = insp
		return nil
	})
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}

	telemetry.SetAttribute(span, "inspection.status", updated.Status.String())
	telemetry.SetOK(span)
	resp := ToInspectionResponse(updated)
	return &resp, nil
}
