package repayment

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/agrocredit/backend/internal/domain/financing"
	"github.com/agrocredit/backend/internal/domain/identity"
	"github.com/agrocredit/backend/internal/domain/shared"
)

// RegisterPaymentRequest records one harvest sale against a financing
type RegisterPaymentRequest struct {
	FinancingID uuid.UUID       `json:"financing_id" binding:"required"`
	Date        time.Time       `json:"date" binding:"required"`
	SaleAmount  decimal.Decimal `json:"sale_amount" binding:"required"`
	Method      string          `json:"method" binding:"required,oneof=CASH BANK_TRANSFER MOBILE_PAYMENT CHECK IN_KIND OTHER"`
	Reference   string          `json:"reference" binding:"max=100"`
}

func (r RegisterPaymentRequest) input(recordedBy *uuid.UUID) financing.PaymentInput {
	return financing.PaymentInput{
		Date:       r.Date,
		SaleAmount: r.SaleAmount,
		Method:     financing.PaymentMethod(r.Method),
		Reference:  r.Reference,
		RecordedBy: recordedBy,
	}
}

// LedgerQuery filters the payment ledger. From and To are calendar days and
// both are inclusive.
type LedgerQuery struct {
	From        *time.Time `form:"from" time_format:"2006-01-02"`
	To          *time.Time `form:"to" time_format:"2006-01-02"`
	SubjectID   *uuid.UUID `form:"subject_id"`
	FinancingID *uuid.UUID `form:"financing_id"`
	Page        int        `form:"page" binding:"omitempty,min=1"`
	PageSize    int        `form:"page_size" binding:"omitempty,min=1,max=100"`
}

// Filter converts the query into a ledger filter the actor is allowed to
// run. Farmers are pinned to their own subject.
func (q LedgerQuery) Filter(actor identity.Actor) (financing.LedgerFilter, error) {
	if q.From != nil && q.To != nil && q.To.Before(*q.From) {
		return financing.LedgerFilter{}, shared.NewValidationError("INVALID_DATE_RANGE", "to must not be before from")
	}
	subjectID, err := actor.ScopeSubject(q.SubjectID)
	if err != nil {
		return financing.LedgerFilter{}, err
	}
	f := financing.LedgerFilter{
		Page:        shared.Page{Number: q.Page, Size: q.PageSize}.Normalize(),
		SubjectID:   subjectID,
		FinancingID: q.FinancingID,
	}
	if q.From != nil {
		from := startOfDay(*q.From)
		f.From = &from
	}
	if q.To != nil {
		to := startOfDay(*q.To).Add(24*time.Hour - time.Nanosecond)
		f.To = &to
	}
	return f, nil
}

func startOfDay(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// PaymentResponse is the API view of a ledger entry
type PaymentResponse struct {
	ID             uuid.UUID       `json:"id"`
	SubjectID      uuid.UUID       `json:"subject_id"`
	FinancingID    uuid.UUID       `json:"financing_id"`
	Date           time.Time       `json:"date"`
	SaleAmount     decimal.Decimal `json:"sale_amount"`
	RetainedAmount decimal.Decimal `json:"retained_amount"`
	FarmerProfit   decimal.Decimal `json:"farmer_profit"`
	Method         string          `json:"method"`
	Reference      *string         `json:"reference,omitempty"`
	RecordedBy     *uuid.UUID      `json:"recorded_by,omitempty"`
	CreatedAt      time.Time       `json:"created_at"`
}

// ToPaymentResponse converts a ledger entry to its API view
func ToPaymentResponse(p *financing.Payment) PaymentResponse {
	return PaymentResponse{
		ID:             p.ID,
		SubjectID:      p.SubjectID,
		FinancingID:    p.FinancingID,
		Date:           p.Date,
		SaleAmount:     p.SaleAmount,
		RetainedAmount: p.RetainedAmount,
		FarmerProfit:   p.FarmerProfit,
		Method:         p.Method.String(),
		Reference:      p.Reference,
		RecordedBy:     p.RecordedBy,
		CreatedAt:      p.CreatedAt,
	}
}

// ToPaymentResponses converts a page of ledger entries
func ToPaymentResponses(items []financing.Payment) []PaymentResponse {
	out := make([]PaymentResponse, len(items))
	for i := range items {
		out[i] = ToPaymentResponse(&items[i])
	}
	return out
}

// FinancingBalance is the financing's position after a payment
type FinancingBalance struct {
	ID          uuid.UUID       `json:"id"`
	State       string          `json:"state"`
	Principal   decimal.Decimal `json:"principal"`
	TotalRepaid decimal.Decimal `json:"total_repaid"`
	Outstanding decimal.Decimal `json:"outstanding"`
	Version     int             `json:"version"`
}

// RegisterPaymentResponse returns the ledger entry and the updated balance
type RegisterPaymentResponse struct {
	Payment   PaymentResponse  `json:"payment"`
	Financing FinancingBalance `json:"financing"`
}

func toRegisterPaymentResponse(p *financing.Payment, f *financing.Financing) *RegisterPaymentResponse {
	return &RegisterPaymentResponse{
		Payment: ToPaymentResponse(p),
		Financing: FinancingBalance{
			ID:          f.ID,
			State:       f.State.String(),
			Principal:   f.Principal,
			TotalRepaid: f.TotalRepaid,
			Outstanding: f.Outstanding(),
			Version:     f.Version,
		},
	}
}

// LedgerExport is a rendered ledger
type LedgerExport struct {
	Filename    string
	ContentType string
	Data        []byte
	// ObjectKey and the download link are set when the export was archived
	ObjectKey     string
	DownloadURL   string
	LinkExpiresAt time.Time
	PaymentCount  int
}
