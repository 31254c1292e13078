package subject

import (
	"time"

	"github.com/google/uuid"

	"github.com/agrocredit/backend/internal/domain/subject"
)

// UpsertSubjectRequest registers or updates a productive subject. Omitted
// attributes keep their stored value.
type UpsertSubjectRequest struct {
	IdentityNumber string  `json:"identity_number" binding:"required,identity_number"`
	Name           *string `json:"name" binding:"omitempty,max=200"`
	Phone          *string `json:"phone" binding:"omitempty,max=50"`
	Email          *string `json:"email" binding:"omitempty,email,max=200"`
	Address        *string `json:"address" binding:"omitempty,max=500"`
}

func (r UpsertSubjectRequest) attributes() subject.Attributes {
	return subject.Attributes{
		Name:    r.Name,
		Phone:   r.Phone,
		Email:   r.Email,
		Address: r.Address,
	}
}

// SubjectResponse is the API view of a productive subject
type SubjectResponse struct {
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

// UpsertSubjectResponse reports the subject and whether it was created
type UpsertSubjectResponse struct {
	SubjectResponse
	Created bool `json:"created"`
}

// ToSubjectResponse converts the aggregate to its API view
func ToSubjectResponse(s *subject.ProductiveSubject) SubjectResponse {
	return SubjectResponse{
		ID:             s.ID,
		IdentityNumber: s.IdentityNumber().String(),
		Name:           s.Name,
		Phone:          s.Phone,
		Email:          s.Email,
		Address:        s.Address,
		Version:        s.Version,
		CreatedAt:      s.CreatedAt,
		UpdatedAt:      s.UpdatedAt,
	}
}
