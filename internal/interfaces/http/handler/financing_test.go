package handler

import (
	"net/http"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/agrocredit/backend/internal/application/eligibility"
	financingapp "github.com/agrocredit/backend/internal/application/financing"
	"github.com/agrocredit/backend/internal/application/repayment"
	domaineligibility "github.com/agrocredit/backend/internal/domain/eligibility"
	"github.com/agrocredit/backend/internal/domain/financing"
	"github.com/agrocredit/backend/internal/domain/identity"
	"github.com/agrocredit/backend/internal/domain/shared/valueobject"
	"github.com/agrocredit/backend/internal/domain/subject"
	"github.com/agrocredit/backend/internal/infrastructure/export"
	"github.com/agrocredit/backend/tests/testutil"
)

func newFinancingRouter(actor *identity.Actor) (*gin.Engine, *testutil.FakeScope) {
	scope := testutil.NewFakeScope()
	svc := financingapp.NewService(scope, scope.FinancingRepo, eligibility.Calculator{},
		financingapp.CycleReconcileConfig(financing.CycleOverduePolicy{
			CycleLength: 120 * 24 * time.Hour,
			GracePeriod: 30 * 24 * time.Hour,
		}, 50),
		zap.NewNop())
	h := NewFinancingHandler(svc)

	r := newTestRouter(actor)
	r.POST("/financings", h.Create)
	r.GET("/financings", h.List)
	r.GET("/financings/:id", h.Get)
	r.PATCH("/financings/:id/status", h.UpdateStatus)
	r.POST("/financings/reconcile-overdue", h.ReconcileOverdue)
	return r, scope
}

func activeFinancing(t *testing.T, subjectID uuid.UUID) *financing.Financing {
	t.Helper()
	f, err := financing.NewFinancing(financing.Terms{
		SubjectID:             subjectID,
		ParcelID:              uuid.New(),
		Principal:             decimal.NewFromInt(1000),
		Rate:                  decimal.NewFromFloat(0.3),
		NumberOfHarvestCycles: 2,
		Purpose:               "seed and fertilizer",
	}, nil)
	require.NoError(t, err)
	f.ClearDomainEvents()
	return f
}

func TestFinancingHandler_Create_ExceedsEligibility(t *testing.T) {
	r, scope := newFinancingRouter(&operator)
	subj, err := subject.NewProductiveSubject(valueobject.MustIdentityNumber("V12345678"), subject.Attributes{Name: ptr("Ana Pérez")})
	require.NoError(t, err)

	scope.SubjectRepo.On("FindByIDForUpdate", mock.Anything, subj.ID).Return(subj, nil)
	scope.EstimationRepo.On("FindBySubject", mock.Anything, subj.ID).Return([]domaineligibility.ParcelEstimation{}, nil)

	w := perform(r, http.MethodPost, "/financings", map[string]any{
		"subject_id":               subj.ID,
		"parcel_id":                uuid.New(),
		"principal":                "500.00",
		"rate":                     "0.30",
		"number_of_harvest_cycles": 1,
		"purpose":                  "inputs",
	})

	assert.Equal(t, http.StatusUnprocessableEntity, w.Code, w.Body.String())
	assert.Equal(t, "EXCEEDS_ELIGIBILITY", decode(t, w).Error.Code)
	assert.Empty(t, scope.CommittedEvents())
}

func TestFinancingHandler_UpdateStatus(t *testing.T) {
	t.Run("admin moves to follow-up", func(t *testing.T) {
		r, scope := newFinancingRouter(&admin)
		f := activeFinancing(t, uuid.New())
		scope.FinancingRepo.On("FindByIDForUpdate", mock.Anything, f.ID).Return(f, nil)
		scope.FinancingRepo.On("SaveWithLock", mock.Anything, f).Return(nil)

		w := perform(r, http.MethodPatch, "/financings/"+f.ID.String()+"/status", map[string]any{"state": "EN_SEGUIMIENTO"})

		require.Equal(t, http.StatusOK, w.Code, w.Body.String())
		var resp financingapp.FinancingResponse
		decodeData(t, w, &resp)
		assert.Equal(t, "EN_SEGUIMIENTO", resp.State)
	})

	t.Run("operator is forbidden", func(t *testing.T) {
		r, scope := newFinancingRouter(&operator)
		w := perform(r, http.MethodPatch, "/financings/"+uuid.NewString()+"/status", map[string]any{"state": "INCUMPLIDO"})
		assert.Equal(t, http.StatusForbidden, w.Code)
		assert.Zero(t, scope.Executions())
	})

	t.Run("unknown state fails binding", func(t *testing.T) {
		r, _ := newFinancingRouter(&admin)
		w := perform(r, http.MethodPatch, "/financings/"+uuid.NewString()+"/status", map[string]any{"state": "PAID"})
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})
}

func TestFinancingHandler_Get_OtherFarmer(t *testing.T) {
	r, scope := newFinancingRouter(&farmer)
	f := activeFinancing(t, uuid.New())
	scope.FinancingRepo.On("FindByID", mock.Anything, f.ID).Return(f, nil)

	w := perform(r, http.MethodGet, "/financings/"+f.ID.String(), nil)
	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestFinancingHandler_List_FarmerScoped(t *testing.T) {
	r, scope := newFinancingRouter(&farmer)
	own := activeFinancing(t, *farmer.SubjectID)
	scope.FinancingRepo.On("FindAll", mock.Anything, mock.MatchedBy(func(f financing.Filter) bool {
		return f.SubjectID != nil && *f.SubjectID == *farmer.SubjectID
	})).Return([]financing.Financing{*own}, int64(1), nil)

	w := perform(r, http.MethodGet, "/financings?state=ACTIVO", nil)

	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var items []financingapp.FinancingResponse
	decodeData(t, w, &items)
	require.Len(t, items, 1)
	assert.Equal(t, own.ID, items[0].ID)
}

func TestFinancingHandler_ReconcileOverdue_Forbidden(t *testing.T) {
	r, _ := newFinancingRouter(&operator)
	w := perform(r, http.MethodPost, "/financings/reconcile-overdue", nil)
	assert.Equal(t, http.StatusForbidden, w.Code)
}

func newPaymentRouter(actor *identity.Actor, opts ...repayment.Option) (*gin.Engine, *testutil.FakeScope) {
	scope := testutil.NewFakeScope()
	svc := repayment.NewService(scope, scope.PaymentRepo, repayment.RetryConfig{MaxRetries: 3}, zap.NewNop(), opts...)
	h := NewPaymentHandler(svc)

	r := newTestRouter(actor)
	r.POST("/payments", h.Register)
	r.GET("/payments", h.Ledger)
	r.GET("/payments/export", h.Export)
	return r, scope
}

func TestPaymentHandler_Register(t *testing.T) {
	r, scope := newPaymentRouter(&operator)
	f := activeFinancing(t, uuid.New())
	scope.FinancingRepo.On("FindByIDForUpdate", mock.Anything, f.ID).Return(f, nil)
	scope.PaymentRepo.On("Create", mock.Anything, mock.AnythingOfType("*financing.Payment")).Return(nil)
	scope.FinancingRepo.On("SaveWithLock", mock.Anything, f).Return(nil)

	w := perform(r, http.MethodPost, "/payments", map[string]any{
		"financing_id": f.ID,
		"date":         "2026-03-01T00:00:00Z",
		"sale_amount":  "400",
		"method":       "CASH",
	})

	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var resp repayment.RegisterPaymentResponse
	decodeData(t, w, &resp)
	assert.True(t, resp.Payment.SaleAmount.Equal(decimal.NewFromInt(400)))
	assert.True(t, resp.Payment.RetainedAmount.Add(resp.Payment.FarmerProfit).Equal(resp.Payment.SaleAmount))
	assert.True(t, resp.Financing.TotalRepaid.Equal(resp.Payment.RetainedAmount))
}

func TestPaymentHandler_Register_NotActive(t *testing.T) {
	r, scope := newPaymentRouter(&operator)
	f := activeFinancing(t, uuid.New())
	require.NoError(t, f.UpdateStatus(financing.StateIncumplido, "missed harvest"))
	f.ClearDomainEvents()
	scope.FinancingRepo.On("FindByIDForUpdate", mock.Anything, f.ID).Return(f, nil)

	w := perform(r, http.MethodPost, "/payments", map[string]any{
		"financing_id": f.ID,
		"date":         "2026-03-01T00:00:00Z",
		"sale_amount":  "400",
		"method":       "CASH",
	})

	assert.Equal(t, http.StatusUnprocessableEntity, w.Code, w.Body.String())
	assert.Equal(t, 1, scope.Executions())
}

func TestPaymentHandler_Ledger(t *testing.T) {
	t.Run("farmer sees own subject", func(t *testing.T) {
		r, scope := newPaymentRouter(&farmer)
		scope.PaymentRepo.On("FindAll", mock.Anything, mock.MatchedBy(func(f financing.LedgerFilter) bool {
			return f.SubjectID != nil && *f.SubjectID == *farmer.SubjectID && f.From != nil && f.To != nil
		})).Return([]financing.Payment{}, int64(0), nil)

		w := perform(r, http.MethodGet, "/payments?from=2026-01-01&to=2026-01-31", nil)
		require.Equal(t, http.StatusOK, w.Code, w.Body.String())
		assert.Equal(t, int64(0), decode(t, w).Meta.Total)
	})

	t.Run("inverted range", func(t *testing.T) {
		r, _ := newPaymentRouter(&operator)
		w := perform(r, http.MethodGet, "/payments?from=2026-02-01&to=2026-01-01", nil)
		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Equal(t, "INVALID_DATE_RANGE", decode(t, w).Error.Code)
	})
}

func TestPaymentHandler_Export_Disabled(t *testing.T) {
	r, _ := newPaymentRouter(&operator)
	w := perform(r, http.MethodGet, "/payments/export", nil)
	assert.Equal(t, http.StatusInternalServerError, w.Code)
}

func TestPaymentHandler_Export(t *testing.T) {
	r, scope := newPaymentRouter(&operator, repayment.WithLedgerWriter(export.NewXLSXLedgerWriter()))
	scope.PaymentRepo.On("FindAll", mock.Anything, mock.Anything).Return([]financing.Payment{}, int64(0), nil).Once()

	w := perform(r, http.MethodGet, "/payments/export?from=2026-01-01", nil)

	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, export.ContentTypeXLSX, w.Header().Get("Content-Type"))
	assert.Contains(t, w.Header().Get("Content-Disposition"), ".xlsx")
	assert.Equal(t, "0", w.Header().Get("X-Payment-Count"))
	// xlsx files are zip archives
	assert.Equal(t, "PK", w.Body.String()[:2])
}
