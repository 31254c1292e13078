package event

import (
	"time"

	"github.com/google/uuid"

	"github.com/agrocredit/backend/internal/domain/shared"
)

// EntryResponse is one outbox row as shown to administrators
type EntryResponse struct {
	ID            uuid.UUID  `json:"id"`
	EventID       uuid.UUID  `json:"event_id"`
	EventType     string     `json:"event_type"`
	AggregateID   uuid.UUID  `json:"aggregate_id"`
	AggregateType string     `json:"aggregate_type"`
	Status        string     `json:"status"`
	Attempts      int        `json:"attempts"`
	MaxAttempts   int        `json:"max_attempts"`
	LastError     string     `json:"last_error,omitempty"`
	NextRetryAt   *time.Time `json:"next_retry_at,omitempty"`
	DeliveredAt   *time.Time `json:"delivered_at,omitempty"`
	CreatedAt     time.Time  `json:"created_at"`
	UpdatedAt     time.Time  `json:"updated_at"`
}

func toEntryResponse(e *shared.OutboxEntry) EntryResponse {
	return EntryResponse{
		ID:            e.ID,
		EventID:       e.EventID,
		EventType:     e.EventType,
		AggregateID:   e.AggregateID,
		AggregateType: e.AggregateType,
		Status:        string(e.Status),
		Attempts:      e.RetryCount,
		MaxAttempts:   e.MaxRetries,
		LastError:     e.LastError,
		NextRetryAt:   e.NextRetryAt,
		DeliveredAt:   e.ProcessedAt,
		CreatedAt:     e.CreatedAt,
		UpdatedAt:     e.UpdatedAt,
	}
}

// DeadLetterQuery pages through undeliverable events
type DeadLetterQuery struct {
	Page     int `form:"page" binding:"omitempty,min=1"`
	PageSize int `form:"page_size" binding:"omitempty,min=1,max=100"`
}

func (q DeadLetterQuery) page() shared.Page {
	p := shared.Page{Number: q.Page, Size: q.PageSize}.Normalize()
	if p.Size > 100 {
		p.Size = 100
	}
	return p
}

// StatsResponse counts outbox rows by delivery status. Backlog is everything
// not yet delivered and not given up on; a growing backlog means approvals
// are not turning into productive subjects.
type StatsResponse struct {
	Pending    int64 `json:"pending"`
	Processing int64 `json:"processing"`
	Sent       int64 `json:"sent"`
	Failed     int64 `json:"failed"`
	Dead       int64 `json:"dead"`
	Total      int64 `json:"total"`
	Backlog    int64 `json:"backlog"`
}

// RequeueResult reports how many dead letters were put back in the queue
type RequeueResult struct {
	Requeued int64 `json:"requeued"`
}
