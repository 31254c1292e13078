package farm

import (
	"time"

	"github.com/google/uuid"

	"github.com/agrocredit/backend/internal/domain/farm"
	"github.com/agrocredit/backend/internal/domain/shared"
	"github.com/agrocredit/backend/internal/infrastructure/csvimport"
)

// CreateFarmerRequest registers a farmer
type CreateFarmerRequest struct {
	IdentityNumber string `json:"identity_number" binding:"required,identity_number"`
	Name           string `json:"name" binding:"required,max=200"`
	Phone          string `json:"phone" binding:"omitempty,max=50"`
	Email          string `json:"email" binding:"omitempty,email,max=200"`
	Address        string `json:"address" binding:"omitempty,max=500"`
}

// UpdateFarmerRequest replaces the contact data of a farmer
type UpdateFarmerRequest struct {
	Name    string `json:"name" binding:"required,max=200"`
	Phone   string `json:"phone" binding:"omitempty,max=50"`
	Email   string `json:"email" binding:"omitempty,email,max=200"`
	Address string `json:"address" binding:"omitempty,max=500"`
}

// ListFarmersQuery is the query string of a farmer listing
type ListFarmersQuery struct {
	Search   string `form:"search" binding:"omitempty,max=100"`
	OrderBy  string `form:"order_by" binding:"omitempty,oneof=name identity_number created_at"`
	OrderDir string `form:"order_dir" binding:"omitempty,oneof=asc desc"`
	Page     int    `form:"page" binding:"omitempty,min=1"`
	PageSize int    `form:"page_size" binding:"omitempty,min=1,max=200"`
}

func (q ListFarmersQuery) toFilter() farm.FarmerFilter {
	return farm.FarmerFilter{
		Page:     shared.Page{Number: q.Page, Size: q.PageSize}.Normalize(),
		Search:   q.Search,
		OrderBy:  q.OrderBy,
		OrderDir: q.OrderDir,
	}
}

// CreateParcelRequest adds a parcel to a farmer
type CreateParcelRequest struct {
	Name         string  `json:"name" binding:"required,max=200"`
	Crop         string  `json:"crop" binding:"omitempty,max=100"`
	Location     string  `json:"location" binding:"omitempty,max=500"`
	AreaHectares float64 `json:"area_hectares" binding:"gte=0"`
}

// FarmerResponse is the API view of a farmer
type FarmerResponse struct {
	ID             uuid.UUID `json:"id"`
	IdentityNumber string    `json:"identity_number"`
	Name           string    `json:"name"`
	Phone          string    `json:"phone,omitempty"`
	Email          string    `json:"email,omitempty"`
	Address        string    `json:"address,omitempty"`
	Version        int       `json:"version"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// ToFarmerResponse converts a farmer to its API view
func ToFarmerResponse(f *farm.Farmer) FarmerResponse {
	return FarmerResponse{
		ID:             f.ID,
		IdentityNumber: f.IdentityNumber.String(),
		Name:           f.Name,
		Phone:          f.Phone,
		Email:          f.Email,
		Address:        f.Address,
		Version:        f.Version,
		CreatedAt:      f.CreatedAt,
		UpdatedAt:      f.UpdatedAt,
	}
}

// ParcelResponse is the API view of a parcel
type ParcelResponse struct {
	ID           uuid.UUID `json:"id"`
	FarmerID     uuid.UUID `json:"farmer_id"`
	Name         string    `json:"name"`
	Crop         string    `json:"crop,omitempty"`
	Location     string    `json:"location,omitempty"`
	AreaHectares float64   `json:"area_hectares"`
	CreatedAt    time.Time `json:"created_at"`
}

// ToParcelResponse converts a parcel to its API view
func ToParcelResponse(p *farm.Parcel) ParcelResponse {
	return ParcelResponse{
		ID:           p.ID,
		FarmerID:     p.FarmerID,
		Name:         p.Name,
		Crop:         p.Crop,
		Location:     p.Location,
		AreaHectares: p.AreaHectares,
		CreatedAt:    p.CreatedAt,
	}
}

// ImportResult summarizes a farmer CSV import
type ImportResult struct {
	TotalRows   int                  `json:"total_rows"`
	Created     int                  `json:"created"`
	Skipped     int                  `json:"skipped"`
	Errors      []csvimport.RowError `json:"errors,omitempty"`
	TotalErrors int                  `json:"total_errors,omitempty"`
	IsTruncated bool                 `json:"is_truncated,omitempty"`
}
