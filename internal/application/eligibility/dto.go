package eligibility

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/agrocredit/backend/internal/domain/eligibility"
)

// EligibleParcelResponse is one parcel counted towards the eligible amount
type EligibleParcelResponse struct {
	ParcelID              uuid.UUID       `json:"parcel_id"`
	EstimatedHarvestValue decimal.Decimal `json:"estimated_harvest_value"`
}

// EligibilityResponse summarizes a subject's eligibility
type EligibilityResponse struct {
	SubjectID      uuid.UUID                `json:"subject_id"`
	Parcels        []EligibleParcelResponse `json:"parcels"`
	GrossAmount    decimal.Decimal          `json:"gross_amount"`
	Committed      decimal.Decimal          `json:"committed"`
	EligibleAmount decimal.Decimal          `json:"eligible_amount"`
}

// ToEligibilityResponse converts an evaluation result
func ToEligibilityResponse(subjectID uuid.UUID, res eligibility.Result) EligibilityResponse {
	parcels := make([]EligibleParcelResponse, len(res.Parcels))
	for i, p := range res.Parcels {
		parcels[i] = EligibleParcelResponse{
			ParcelID:              p.ParcelID,
			EstimatedHarvestValue: p.EstimatedHarvestValue,
		}
	}
	return EligibilityResponse{
		SubjectID:      subjectID,
		Parcels:        parcels,
		GrossAmount:    res.Gross,
		Committed:      res.Committed,
		EligibleAmount: res.Amount,
	}
}
