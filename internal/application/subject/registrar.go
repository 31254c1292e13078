// Package subject registers productive subjects: one per identity number,
// created on first sight and merged afterwards.
package subject

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/agrocredit/backend/internal/application/txscope"
	"github.com/agrocredit/backend/internal/domain/identity"
	"github.com/agrocredit/backend/internal/domain/shared"
	"github.com/agrocredit/backend/internal/domain/shared/valueobject"
	"github.com/agrocredit/backend/internal/domain/subject"
	"github.com/agrocredit/backend/internal/infrastructure/telemetry"
)

// Registrar creates and updates productive subjects
type Registrar struct {
	scope    txscope.TransactionScope
	subjects subject.Repository
	logger   *zap.Logger
}

// NewRegistrar creates a new Registrar
func NewRegistrar(scope txscope.TransactionScope, subjects subject.Repository, logger *zap.Logger) *Registrar {
	return &Registrar{
		scope:    scope,
		subjects: subjects,
		logger:   logger,
	}
}

// Upsert creates the subject of an identity number or merges the given
// attributes into the existing one.
func (r *Registrar) Upsert(ctx context.Context, actor identity.Actor, req UpsertSubjectRequest) (*UpsertSubjectResponse, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "subject", "upsert",
		telemetry.WithAttribute(telemetry.SpanAttrActorRole, actor.Role.String()),
	)
	defer span.End()

	if err := actor.Require(identity.PermSubjectWrite); err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}
	idNum, err := valueobject.NewIdentityNumber(req.IdentityNumber)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}

	var (
		result  *subject.ProductiveSubject
		created bool
	)
	err = r.scope.Execute(ctx, func(repos txscope.Repositories) error {
		var err error
		result, created, err = UpsertInTx(ctx, repos, idNum, req.attributes())
		return err
	})
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}

	telemetry.SetAttribute(span, telemetry.SpanAttrSubjectID, result.ID.String())
	telemetry.SetOK(span)
	r.logger.Info("Productive subject upserted",
		zap.String("subject_id", result.ID.String()),
		zap.Bool("created", created),
	)
	return &UpsertSubjectResponse{SubjectResponse: ToSubjectResponse(result), Created: created}, nil
}

// Get returns one subject. Farmers may only read their own.
func (r *Registrar) Get(ctx context.Context, actor identity.Actor, id uuid.UUID) (*SubjectResponse, error) {
	if !actor.CanReadSubject(id) {
		return nil, shared.NewDomainError(shared.KindForbidden, "FORBIDDEN", "subject belongs to another farmer")
	}
	s, err := r.subjects.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if s == nil {
		return nil, shared.NewNotFoundError("productive subject")
	}
	resp := ToSubjectResponse(s)
	return &resp, nil
}

// UpsertInTx runs the insert-or-merge against the repositories of an open
// transaction. A concurrent insert of the same identity number makes
// InsertIfAbsent report false, and the loser merges into the winner's row.
func UpsertInTx(ctx context.Context, repos txscope.Repositories, idNum valueobject.IdentityNumber, attrs subject.Attributes) (*subject.ProductiveSubject, bool, error) {
	candidate, err := subject.NewProductiveSubject(idNum, attrs)
	if err != nil {
		return nil, false, err
	}
	inserted, err := repos.Subjects().InsertIfAbsent(ctx, candidate)
	if err != nil {
		return nil, false, err
	}
	if inserted {
		return candidate, true, nil
	}

	existing, err := repos.Subjects().FindByIdentityNumberForUpdate(ctx, idNum.String())
	if err != nil {
		return nil, false, err
	}
	if existing == nil {
		return nil, false, fmt.Errorf("subject %s vanished after insert conflict", idNum)
	}
	if existing.Merge(attrs) {
		if err := repos.Subjects().SaveWithLock(ctx, existing); err != nil {
			return nil, false, err
		}
	}
	return existing, false, nil
}
