//go:build integration

package integration

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	eligibilityapp "github.com/agrocredit/backend/internal/application/eligibility"
	eventapp "github.com/agrocredit/backend/internal/application/event"
	farmapp "github.com/agrocredit/backend/internal/application/farm"
	financingapp "github.com/agrocredit/backend/internal/application/financing"
	inspectionapp "github.com/agrocredit/backend/internal/application/inspection"
	kpiapp "github.com/agrocredit/backend/internal/application/kpi"
	"github.com/agrocredit/backend/internal/application/repayment"
	subjectapp "github.com/agrocredit/backend/internal/application/subject"
	"github.com/agrocredit/backend/internal/domain/financing"
	"github.com/agrocredit/backend/internal/domain/identity"
	"github.com/agrocredit/backend/internal/domain/shared"
	"github.com/agrocredit/backend/internal/infrastructure/auth"
	"github.com/agrocredit/backend/internal/infrastructure/cache"
	"github.com/agrocredit/backend/internal/infrastructure/config"
	"github.com/agrocredit/backend/internal/infrastructure/event"
	"github.com/agrocredit/backend/internal/infrastructure/export"
	"github.com/agrocredit/backend/internal/infrastructure/persistence"
	"github.com/agrocredit/backend/internal/interfaces/http/handler"
	"github.com/agrocredit/backend/internal/interfaces/http/middleware"
	"github.com/agrocredit/backend/internal/interfaces/http/router"
	"github.com/agrocredit/backend/tests/testutil"
)

func init() {
	gin.SetMode(gin.TestMode)
	middleware.SetupValidator()
}

// testApp is the full HTTP stack over a migrated database. The outbox is
// drained explicitly with deliver so tests control when approvals land.
type testApp struct {
	db         *TestDB
	engine     *gin.Engine
	jwt        *auth.JWTService
	processor  *event.OutboxProcessor
	financings *financingapp.Service
	operator   *testutil.APIClient
	admin      *testutil.APIClient
}

type appOptions struct {
	subtractOutstanding bool
	policy              financing.CycleOverduePolicy
}

func newTestApp(t *testing.T, opts appOptions) *testApp {
	t.Helper()

	tdb := NewTestDB(t)
	log := zap.NewNop()

	if opts.policy.CycleLength == 0 {
		opts.policy = financing.CycleOverduePolicy{CycleLength: 90 * 24 * time.Hour, GracePeriod: 30 * 24 * time.Hour}
	}

	inspectionRepo := persistence.NewGormInspectionRepository(tdb.DB)
	subjectRepo := persistence.NewGormSubjectRepository(tdb.DB)
	estimationRepo := persistence.NewGormEstimationRepository(tdb.DB)
	financingRepo := persistence.NewGormFinancingRepository(tdb.DB)
	paymentRepo := persistence.NewGormPaymentRepository(tdb.DB)
	farmerRepo := persistence.NewGormFarmerRepository(tdb.DB)
	parcelRepo := persistence.NewGormParcelRepository(tdb.DB)
	outboxRepo := event.NewGormOutboxRepository(tdb.DB)

	retry := shared.RetryPolicy{MaxAttempts: 3, BaseBackoff: time.Millisecond, MaxBackoff: 10 * time.Millisecond}
	serializer := event.NewEventSerializer()
	event.RegisterAllEvents(serializer)
	scope := persistence.NewGormTransactionScope(tdb.DB, event.NewOutboxPublisher(serializer, retry))

	calculator := eligibilityapp.Calculator{SubtractOutstanding: opts.subtractOutstanding}
	financingService := financingapp.NewService(scope, financingRepo, calculator,
		financingapp.CycleReconcileConfig(opts.policy, 50), log)
	paymentService := repayment.NewService(scope, paymentRepo,
		repayment.RetryConfig{MaxRetries: 10, Backoff: 5 * time.Millisecond}, log,
		repayment.WithLedgerWriter(export.NewXLSXLedgerWriter()))

	store, err := cache.NewIdempotencyStoreFactory(config.RedisConfig{}).CreateStore(context.Background())
	require.NoError(t, err)
	bus := event.NewInMemoryEventBus(log)
	bus.Subscribe(event.NewIdempotentHandler(subjectapp.NewInspectionApprovedHandler(scope, log), store, log))
	cfg := event.DefaultOutboxProcessorConfig()
	cfg.Retry = retry
	cfg.CleanupEnabled = false
	processor := event.NewOutboxProcessor(outboxRepo, bus, serializer, cfg, log)

	engine := gin.New()
	engine.Use(middleware.RequestID())
	jwtService := auth.NewJWTService(config.JWTConfig{
		Secret:                "integration-test-secret-with-enough-bytes",
		Issuer:                "agrocredit-test",
		AccessTokenExpiration: time.Hour,
	})
	router.RegisterAPI(engine, router.Handlers{
		System:     handler.NewSystemHandler("agrocredit", "test", map[string]handler.HealthCheck{"database": persistence.NewDatabaseFromGorm(tdb.DB).Ping}),
		Inspection: handler.NewInspectionHandler(inspectionapp.NewService(scope, inspectionRepo, parcelRepo, log)),
		Subject: handler.NewSubjectHandler(
			subjectapp.NewRegistrar(scope, subjectRepo, log),
			eligibilityapp.NewService(eligibilityapp.Sources{
				Estimations: estimationRepo,
				Inspections: inspectionRepo,
				Financings:  financingRepo,
			}, calculator, log),
		),
		Financing: handler.NewFinancingHandler(financingService),
		Payment:   handler.NewPaymentHandler(paymentService),
		KPI:       handler.NewKPIHandler(kpiapp.NewService(persistence.NewGormKPIRepository(tdb.DB), financingRepo, paymentRepo, log)),
		Farmer:    handler.NewFarmerHandler(farmapp.NewService(scope, farmerRepo, parcelRepo, log)),
		Outbox:    handler.NewOutboxHandler(eventapp.NewOutboxService(outboxRepo, log)),
	}, router.APIConfig{
		Auth: middleware.Authenticate(middleware.JWTConfig{Validator: jwtService, Logger: log}),
	})

	app := &testApp{
		db:         tdb,
		engine:     engine,
		jwt:        jwtService,
		processor:  processor,
		financings: financingService,
	}
	app.operator = testutil.NewAPIClient(t, engine, app.token(t, testutil.OperatorActor()))
	app.admin = testutil.NewAPIClient(t, engine, app.token(t, testutil.AdminActor()))
	return app
}

func (a *testApp) token(t *testing.T, actor identity.Actor) string {
	t.Helper()
	tok, _, err := a.jwt.GenerateToken(auth.GenerateTokenInput{
		UserID:    actor.UserID,
		Role:      actor.Role,
		SubjectID: actor.SubjectID,
	})
	require.NoError(t, err)
	return tok
}

// client returns an API client authenticated as actor
func (a *testApp) client(t *testing.T, actor identity.Actor) *testutil.APIClient {
	return a.operator.WithToken(a.token(t, actor))
}

// deliver drains the outbox until nothing is left to claim
func (a *testApp) deliver(t *testing.T) {
	t.Helper()
	ctx := testutil.ContextWithTimeout(t, 30*time.Second)
	for i := 0; i < 10; i++ {
		if a.processor.ProcessOnce(ctx) == 0 {
			return
		}
	}
}

type farmerDTO struct {
	ID             uuid.UUID `json:"id"`
	IdentityNumber string    `json:"identity_number"`
}

type parcelDTO struct {
	ID uuid.UUID `json:"id"`
}

type inspectionDTO struct {
	ID     uuid.UUID `json:"id"`
	Status string    `json:"status"`
}

type subjectDTO struct {
	ID      uuid.UUID `json:"id"`
	Created bool      `json:"created"`
}

type eligibilityDTO struct {
	Parcels []struct {
		ParcelID              uuid.UUID       `json:"parcel_id"`
		EstimatedHarvestValue decimal.Decimal `json:"estimated_harvest_value"`
	} `json:"parcels"`
	EligibleAmount decimal.Decimal `json:"eligible_amount"`
}

type financingDTO struct {
	ID          uuid.UUID       `json:"id"`
	State       string          `json:"state"`
	Principal   decimal.Decimal `json:"principal"`
	TotalRepaid decimal.Decimal `json:"total_repaid"`
	Outstanding decimal.Decimal `json:"outstanding"`
}

type paymentDTO struct {
	Payment struct {
		ID             uuid.UUID       `json:"id"`
		SaleAmount     decimal.Decimal `json:"sale_amount"`
		RetainedAmount decimal.Decimal `json:"retained_amount"`
		FarmerProfit   decimal.Decimal `json:"farmer_profit"`
	} `json:"payment"`
	Financing financingDTO `json:"financing"`
}

type totalsDTO struct {
	TotalIncome       decimal.Decimal `json:"total_income"`
	TotalRetained     decimal.Decimal `json:"total_retained"`
	TotalFarmerProfit decimal.Decimal `json:"total_farmer_profit"`
	PaymentCount      int64           `json:"payment_count"`
}

func (a *testApp) createFarmer(t *testing.T, identityNumber, name string) farmerDTO {
	t.Helper()
	resp := a.operator.Do(http.MethodPost, "/api/v1/farmers", map[string]any{
		"identity_number": identityNumber,
		"name":            name,
		"phone":           "+58 414 555 0101",
	})
	resp.AssertStatus(t, http.StatusCreated)
	return testutil.DecodeData[farmerDTO](t, resp)
}

func (a *testApp) createParcel(t *testing.T, farmerID uuid.UUID, name string) parcelDTO {
	t.Helper()
	resp := a.operator.Do(http.MethodPost, "/api/v1/farmers/"+farmerID.String()+"/parcels", map[string]any{
		"name":          name,
		"crop":          "maize",
		"area_hectares": 4.5,
	})
	resp.AssertStatus(t, http.StatusCreated)
	return testutil.DecodeData[parcelDTO](t, resp)
}

// scheduledInspection creates an inspection for parcelID and schedules it,
// leaving it ready for a decision
func (a *testApp) scheduledInspection(t *testing.T, parcelID uuid.UUID) inspectionDTO {
	t.Helper()
	resp := a.operator.Do(http.MethodPost, "/api/v1/inspections", map[string]any{"parcel_id": parcelID})
	resp.AssertStatus(t, http.StatusCreated)
	created := testutil.DecodeData[inspectionDTO](t, resp)

	resp = a.operator.Do(http.MethodPost, "/api/v1/inspections/"+created.ID.String()+"/schedule", map[string]any{
		"scheduled_for": time.Now().Add(24 * time.Hour).UTC().Format(time.RFC3339),
	})
	resp.AssertStatus(t, http.StatusOK)
	return testutil.DecodeData[inspectionDTO](t, resp)
}

func (a *testApp) approve(t *testing.T, inspectionID uuid.UUID, value string) *testutil.APIResponse {
	t.Helper()
	return a.operator.Do(http.MethodPost, "/api/v1/inspections/"+inspectionID.String()+"/approve", map[string]any{
		"notes":                   "crop in good condition",
		"estimated_harvest_value": value,
	})
}

func (a *testApp) subjectFor(t *testing.T, identityNumber string) subjectDTO {
	t.Helper()
	resp := a.operator.Do(http.MethodPut, "/api/v1/subjects", map[string]any{"identity_number": identityNumber})
	require.Equal(t, http.StatusOK, resp.Status, "subject should already exist: %s", resp.Body)
	return testutil.DecodeData[subjectDTO](t, resp)
}

func (a *testApp) eligibility(t *testing.T, subjectID uuid.UUID) eligibilityDTO {
	t.Helper()
	resp := a.operator.Do(http.MethodGet, "/api/v1/subjects/"+subjectID.String()+"/eligible-parcels", nil)
	resp.AssertStatus(t, http.StatusOK)
	return testutil.DecodeData[eligibilityDTO](t, resp)
}

func financingRequest(subjectID, parcelID uuid.UUID, principal string) map[string]any {
	return map[string]any{
		"subject_id":               subjectID,
		"parcel_id":                parcelID,
		"principal":                principal,
		"rate":                     "0.1",
		"number_of_harvest_cycles": 3,
		"purpose":                  "insumos",
	}
}

func paymentRequest(financingID uuid.UUID, sale string) map[string]any {
	return map[string]any{
		"financing_id": financingID,
		"date":         time.Now().UTC().Format(time.RFC3339),
		"sale_amount":  sale,
		"method":       "BANK_TRANSFER",
	}
}

func (a *testApp) getFinancing(t *testing.T, id uuid.UUID) financingDTO {
	t.Helper()
	resp := a.operator.Do(http.MethodGet, "/api/v1/financings/"+id.String(), nil)
	resp.AssertStatus(t, http.StatusOK)
	return testutil.DecodeData[financingDTO](t, resp)
}

func assertDecimal(t *testing.T, want string, got decimal.Decimal) {
	t.Helper()
	assert.True(t, decimal.RequireFromString(want).Equal(got), "want %s, got %s", want, got.String())
}
