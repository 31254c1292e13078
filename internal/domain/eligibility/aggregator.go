package eligibility

import (
	"sort"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/agrocredit/backend/internal/domain/inspection"
	"github.com/agrocredit/backend/internal/domain/shared/valueobject"
)

// EligibleParcel is one parcel counted towards a subject's eligible amount
type EligibleParcel struct {
	ParcelID              uuid.UUID
	EstimatedHarvestValue decimal.Decimal
}

// Result is the outcome of an eligibility evaluation
type Result struct {
	Parcels []EligibleParcel
	// Gross is the sum of eligible estimates
	Gross decimal.Decimal
	// Committed is the principal deducted for outstanding financings
	Committed decimal.Decimal
	// Amount is what may still be financed: max(0, Gross-Committed)
	Amount decimal.Decimal
}

// Evaluate computes the eligible parcels of a subject from a snapshot of its
// estimations and the latest inspection of each parcel.
//
// A parcel counts iff its latest inspection is approved, its estimation was
// produced by that inspection and the estimation is positive. Each parcel is
// counted once: if several estimations share a parcel the most recent one
// wins. committed is subtracted from the gross total and may be zero.
func Evaluate(estimations []ParcelEstimation, latest map[uuid.UUID]*inspection.Inspection, committed decimal.Decimal) Result {
	current := make(map[uuid.UUID]*ParcelEstimation, len(estimations))
	for idx := range estimations {
		e := &estimations[idx]
		if e.Supersedes(current[e.ParcelID]) {
			current[e.ParcelID] = e
		}
	}

	res := Result{Gross: decimal.Zero, Committed: valueobject.FloorZero(committed)}
	for parcelID, e := range current {
		insp := latest[parcelID]
		if insp == nil || !insp.Status.IsApproved() {
			continue
		}
		// an older inspection approved late does not speak for the parcel
		if e.InspectionID != insp.ID {
			continue
		}
		if !e.EstimatedHarvestValue.IsPositive() {
			continue
		}
		res.Parcels = append(res.Parcels, EligibleParcel{
			ParcelID:              parcelID,
			EstimatedHarvestValue: e.EstimatedHarvestValue,
		})
		res.Gross = res.Gross.Add(e.EstimatedHarvestValue)
	}
	sort.Slice(res.Parcels, func(i, j int) bool {
		return res.Parcels[i].ParcelID.String() < res.Parcels[j].ParcelID.String()
	})
	res.Amount = valueobject.FloorZero(res.Gross.Sub(res.Committed))
	return res
}

// ParcelIDs returns the distinct parcels referenced by estimations
func ParcelIDs(estimations []ParcelEstimation) []uuid.UUID {
	seen := make(map[uuid.UUID]struct{}, len(estimations))
	ids := make([]uuid.UUID, 0, len(estimations))
	for _, e := range estimations {
		if _, ok := seen[e.ParcelID]; ok {
			continue
		}
		seen[e.ParcelID] = struct{}{}
		ids = append(ids, e.ParcelID)
	}
	return ids
}
