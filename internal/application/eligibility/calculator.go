// Package eligibility answers how much credit a productive subject may
// receive right now. Results are recomputed from the store on every call.
package eligibility

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/agrocredit/backend/internal/domain/eligibility"
	"github.com/agrocredit/backend/internal/domain/financing"
	"github.com/agrocredit/backend/internal/domain/inspection"
)

// Sources are the repositories an evaluation reads from. Inside a financing
// transaction they are the transaction's own repositories.
type Sources struct {
	Estimations eligibility.EstimationRepository
	Inspections inspection.Repository
	Financings  financing.Repository
}

// Calculator evaluates eligibility from a snapshot of the store
type Calculator struct {
	// SubtractOutstanding deducts the principal of the subject's open
	// financings from the gross eligible amount
	SubtractOutstanding bool
}

// Evaluate loads the subject's estimations and the latest inspection of each
// parcel and applies eligibility.Evaluate.
func (c Calculator) Evaluate(ctx context.Context, src Sources, subjectID uuid.UUID) (eligibility.Result, error) {
	estimations, err := src.Estimations.FindBySubject(ctx, subjectID)
	if err != nil {
		return eligibility.Result{}, fmt.Errorf("failed to load estimations: %w", err)
	}

	var latest map[uuid.UUID]*inspection.Inspection
	if len(estimations) > 0 {
		latest, err = src.Inspections.FindLatestByParcels(ctx, eligibility.ParcelIDs(estimations))
		if err != nil {
			return eligibility.Result{}, fmt.Errorf("failed to load latest inspections: %w", err)
		}
	}

	committed := decimal.Zero
	if c.SubtractOutstanding {
		committed, err = src.Financings.SumOpenPrincipal(ctx, subjectID)
		if err != nil {
			return eligibility.Result{}, fmt.Errorf("failed to sum open principal: %w", err)
		}
	}

	return eligibility.Evaluate(estimations, latest, committed), nil
}
