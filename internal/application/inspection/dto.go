package inspection

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/agrocredit/backend/internal/domain/inspection"
	"github.com/agrocredit/backend/internal/domain/shared"
)

// CreateInspectionRequest opens an inspection for a parcel
type CreateInspectionRequest struct {
	ParcelID uuid.UUID `json:"parcel_id" binding:"required"`
	Notes    string    `json:"notes" binding:"max=2000"`
}

// ScheduleInspectionRequest sets the visit date
type ScheduleInspectionRequest struct {
	ScheduledFor time.Time  `json:"scheduled_for" binding:"required"`
	InspectorID  *uuid.UUID `json:"inspector_id"`
}

// ApproveInspectionRequest completes an inspection with a harvest estimate
type ApproveInspectionRequest struct {
	Notes                 string                 `json:"notes" binding:"max=2000"`
	EstimatedHarvestValue decimal.Decimal        `json:"estimated_harvest_value" binding:"required"`
	FormData              *inspection.FormDataV1 `json:"form_data"`
}

// RejectInspectionRequest cancels an inspection
type RejectInspectionRequest struct {
	Reason string `json:"reason" binding:"required,max=500"`
}

// ListInspectionsQuery filters the inspection list
type ListInspectionsQuery struct {
	ParcelID *uuid.UUID `form:"parcel_id"`
	FarmerID *uuid.UUID `form:"farmer_id"`
	Status   string     `form:"status" binding:"omitempty,oneof=PENDING SCHEDULED IN_PROGRESS COMPLETED CANCELLED"`
	Page     int        `form:"page" binding:"omitempty,min=1"`
	PageSize int        `form:"page_size" binding:"omitempty,min=1,max=100"`
}

// InspectionResponse is the API view of an inspection
type InspectionResponse struct {
	ID                    uuid.UUID            `json:"id"`
	ParcelID              uuid.UUID            `json:"parcel_id"`
	FarmerID              uuid.UUID            `json:"farmer_id"`
	InspectorID           *uuid.UUID           `json:"inspector_id,omitempty"`
	Status                string               `json:"status"`
	ScheduledFor          *time.Time           `json:"scheduled_for,omitempty"`
	StartedAt             *time.Time           `json:"started_at,omitempty"`
	ApprovedAt            *time.Time           `json:"approved_at,omitempty"`
	CancelledAt           *time.Time           `json:"cancelled_at,omitempty"`
	DecidedBy             *uuid.UUID           `json:"decided_by,omitempty"`
	Notes                 string               `json:"notes,omitempty"`
	RejectionReason       string               `json:"rejection_reason,omitempty"`
	EstimatedHarvestValue *decimal.Decimal     `json:"estimated_harvest_value,omitempty"`
	FormData              *inspection.FormData `json:"form_data,omitempty"`
	Version               int                  `json:"version"`
	CreatedAt             time.Time            `json:"created_at"`
	UpdatedAt             time.Time            `json:"updated_at"`
}

// ToInspectionResponse converts the aggregate to its API view
func ToInspectionResponse(i *inspection.Inspection) InspectionResponse {
	resp := InspectionResponse{
		ID:                    i.ID,
		ParcelID:              i.ParcelID,
		FarmerID:              i.FarmerID,
		InspectorID:           i.InspectorID,
		Status:                i.Status.String(),
		ScheduledFor:          i.ScheduledFor,
		StartedAt:             i.StartedAt,
		ApprovedAt:            i.ApprovedAt,
		CancelledAt:           i.CancelledAt,
		DecidedBy:             i.DecidedBy,
		Notes:                 i.Notes,
		RejectionReason:       i.RejectionReason,
		EstimatedHarvestValue: i.EstimatedHarvestValue,
		Version:               i.Version,
		CreatedAt:             i.CreatedAt,
		UpdatedAt:             i.UpdatedAt,
	}
	if !i.FormData.IsEmpty() {
		form := i.FormData
		resp.FormData = &form
	}
	return resp
}

// ToInspectionResponses converts a page of inspections
func ToInspectionResponses(items []inspection.Inspection) []InspectionResponse {
	out := make([]InspectionResponse, len(items))
	for idx := range items {
		out[idx] = ToInspectionResponse(&items[idx])
	}
	return out
}

func (q ListInspectionsQuery) toFilter() inspection.Filter {
	f := inspection.Filter{
		Page:     shared.Page{Number: q.Page, Size: q.PageSize}.Normalize(),
		ParcelID: q.ParcelID,
		FarmerID: q.FarmerID,
	}
	if q.Status != "" {
		status := inspection.Status(q.Status)
		f.Status = &status
	}
	return f
}
