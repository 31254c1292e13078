package financing

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/agrocredit/backend/internal/domain/financing"
	"github.com/agrocredit/backend/internal/domain/shared"
)

// CreateFinancingRequest originates a financing for a productive subject
type CreateFinancingRequest struct {
	SubjectID             uuid.UUID             `json:"subject_id" binding:"required"`
	ParcelID              uuid.UUID             `json:"parcel_id" binding:"required"`
	Principal             decimal.Decimal       `json:"principal" binding:"required"`
	Rate                  decimal.Decimal       `json:"rate" binding:"required"`
	NumberOfHarvestCycles int                   `json:"number_of_harvest_cycles" binding:"required,min=1"`
	Purpose               string                `json:"purpose" binding:"required,max=500"`
	Metadata              *financing.MetadataV1 `json:"metadata"`
}

func (r CreateFinancingRequest) terms() financing.Terms {
	t := financing.Terms{
		SubjectID:             r.SubjectID,
		ParcelID:              r.ParcelID,
		Principal:             r.Principal,
		Rate:                  r.Rate,
		NumberOfHarvestCycles: r.NumberOfHarvestCycles,
		Purpose:               r.Purpose,
	}
	if r.Metadata != nil {
		t.Metadata = financing.NewMetadata(*r.Metadata)
	}
	return t
}

// UpdateStatusRequest moves a financing along a permitted edge
type UpdateStatusRequest struct {
	State  string `json:"state" binding:"required,oneof=ACTIVO EN_SEGUIMIENTO COSECHADO INCUMPLIDO"`
	Reason string `json:"reason" binding:"max=500"`
}

// ListFinancingsQuery selects financings by state. No state means all.
type ListFinancingsQuery struct {
	States    []string   `form:"state"`
	SubjectID *uuid.UUID `form:"subject_id"`
	Page      int        `form:"page" binding:"omitempty,min=1"`
	PageSize  int        `form:"page_size" binding:"omitempty,min=1,max=100"`
}

func (q ListFinancingsQuery) toFilter() (financing.Filter, error) {
	f := financing.Filter{
		Page:      shared.Page{Number: q.Page, Size: q.PageSize}.Normalize(),
		SubjectID: q.SubjectID,
	}
	for _, raw := range q.States {
		st, err := financing.ParseState(raw)
		if err != nil {
			return financing.Filter{}, err
		}
		f.States = append(f.States, st)
	}
	return f, nil
}

// FinancingResponse is the API view of a financing
type FinancingResponse struct {
	ID                    uuid.UUID           `json:"id"`
	SubjectID             uuid.UUID           `json:"subject_id"`
	ParcelID              uuid.UUID           `json:"parcel_id"`
	Principal             decimal.Decimal     `json:"principal"`
	Rate                  decimal.Decimal     `json:"rate"`
	NumberOfHarvestCycles int                 `json:"number_of_harvest_cycles"`
	Purpose               string              `json:"purpose"`
	State                 string              `json:"state"`
	TotalRepaid           decimal.Decimal     `json:"total_repaid"`
	Outstanding           decimal.Decimal     `json:"outstanding"`
	StateChangedAt        time.Time           `json:"state_changed_at"`
	CreatedBy             *uuid.UUID          `json:"created_by,omitempty"`
	Metadata              *financing.Metadata `json:"metadata,omitempty"`
	Version               int                 `json:"version"`
	CreatedAt             time.Time           `json:"created_at"`
	UpdatedAt             time.Time           `json:"updated_at"`
}

// ToFinancingResponse converts the aggregate to its API view
func ToFinancingResponse(f *financing.Financing) FinancingResponse {
	resp := FinancingResponse{
		ID:                    f.ID,
		SubjectID:             f.SubjectID,
		ParcelID:              f.ParcelID,
		Principal:             f.Principal,
		Rate:                  f.Rate,
		NumberOfHarvestCycles: f.NumberOfHarvestCycles,
		Purpose:               f.Purpose,
		State:                 f.State.String(),
		TotalRepaid:           f.TotalRepaid,
		Outstanding:           f.Outstanding(),
		StateChangedAt:        f.StateChangedAt,
		CreatedBy:             f.CreatedBy,
		Version:               f.Version,
		CreatedAt:             f.CreatedAt,
		UpdatedAt:             f.UpdatedAt,
	}
	if !f.Metadata.IsEmpty() {
		md := f.Metadata
		resp.Metadata = &md
	}
	return resp
}

// ToFinancingResponses converts a page of financings
func ToFinancingResponses(items []financing.Financing) []FinancingResponse {
	out := make([]FinancingResponse, len(items))
	for i := range items {
		out[i] = ToFinancingResponse(&items[i])
	}
	return out
}

// ReconcileResult reports what an overdue reconciliation run did
type ReconcileResult struct {
	Scanned   int         `json:"scanned"`
	Defaulted []uuid.UUID `json:"defaulted"`
	Failed    []uuid.UUID `json:"failed,omitempty"`
	AsOf      time.Time   `json:"as_of"`
}
