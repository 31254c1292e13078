package telemetry

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.uber.org/zap"
)

// ErrMeterNil is returned when no meter is supplied
var ErrMeterNil = errors.New("NewBusinessMetrics: meter cannot be nil")

// FinancingStateCounter reports how many financings sit in each state
type FinancingStateCounter interface {
	CountByState(ctx context.Context) (map[string]int64, error)
}

// BusinessMetrics counts engine activity. All Record methods are safe on a
// nil receiver so services can run without metrics.
type BusinessMetrics struct {
	logger *zap.Logger

	inspectionsDecided   *Counter
	financingsCreated    *Counter
	principalOriginated  *FloatCounter
	financingTransitions *Counter
	paymentsRegistered   *Counter
	saleAmount           *FloatCounter
	retainedAmount       *FloatCounter
	conflictRetries      *Counter
	financingsByState    *Gauge

	states   FinancingStateCounter
	stopChan chan struct{}
	stopOnce sync.Once
	runOnce  sync.Once
}

// BusinessMetricsConfig holds configuration for business metrics.
type BusinessMetricsConfig struct {
	Meter  metric.Meter
	Logger *zap.Logger
	// States feeds the financings-by-state gauge; optional
	States FinancingStateCounter
}

// NewBusinessMetrics creates the engine's counters and gauges
func NewBusinessMetrics(cfg BusinessMetricsConfig) (*BusinessMetrics, error) {
	if cfg.Meter == nil {
		return nil, ErrMeterNil
	}
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	bm := &BusinessMetrics{logger: logger, states: cfg.States, stopChan: make(chan struct{})}

	var err error
	counters := []struct {
		dst              **Counter
		name, desc, unit string
	}{
		{&bm.inspectionsDecided, "agro_inspection_decided_total", "Inspections approved or rejected", "{inspection}"},
		{&bm.financingsCreated, "agro_financing_created_total", "Financings originated", "{financing}"},
		{&bm.financingTransitions, "agro_financing_transition_total", "Financing state changes", "{transition}"},
		{&bm.paymentsRegistered, "agro_payment_registered_total", "Harvest-sale payments registered", "{payment}"},
		{&bm.conflictRetries, "agro_conflict_retry_total", "Transactions retried after a version conflict", "{retry}"},
	}
	for _, c := range counters {
		if *c.dst, err = NewCounter(cfg.Meter, c.name, c.desc, c.unit); err != nil {
			return nil, err
		}
	}

	amounts := []struct {
		dst        **FloatCounter
		name, desc string
	}{
		{&bm.principalOriginated, "agro_financing_principal_total", "Principal originated"},
		{&bm.saleAmount, "agro_payment_sale_amount_total", "Harvest-sale income registered"},
		{&bm.retainedAmount, "agro_payment_retained_amount_total", "Amount retained toward repayment"},
	}
	for _, a := range amounts {
		if *a.dst, err = NewFloatCounter(cfg.Meter, a.name, a.desc, "{currency}"); err != nil {
			return nil, err
		}
	}

	bm.financingsByState, err = NewGauge(cfg.Meter, "agro_financing_state_count", "Financings per lifecycle state", "{financing}")
	if err != nil {
		return nil, err
	}
	return bm, nil
}

// RecordInspectionDecided counts an approval or rejection
func (bm *BusinessMetrics) RecordInspectionDecided(ctx context.Context, outcome string) {
	if bm == nil {
		return
	}
	bm.inspectionsDecided.Inc(ctx, AttrOutcome.String(outcome))
}

// RecordFinancingCreated counts an originated financing and its principal
func (bm *BusinessMetrics) RecordFinancingCreated(ctx context.Context, principal decimal.Decimal) {
	if bm == nil {
		return
	}
	bm.financingsCreated.Inc(ctx)
	bm.principalOriginated.Add(ctx, principal.InexactFloat64())
}

// RecordFinancingTransition counts a lifecycle edge
func (bm *BusinessMetrics) RecordFinancingTransition(ctx context.Context, from, to string) {
	if bm == nil {
		return
	}
	bm.financingTransitions.Inc(ctx, AttrFromState.String(from), AttrFinancingState.String(to))
}

// RecordPayment counts a registered payment and its split
func (bm *BusinessMetrics) RecordPayment(ctx context.Context, method string, sale, retained decimal.Decimal, settled bool) {
	if bm == nil {
		return
	}
	attrs := []attribute.KeyValue{AttrPaymentMethod.String(method), AttrPaymentSettled.Bool(settled)}
	bm.paymentsRegistered.Inc(ctx, attrs...)
	bm.saleAmount.Add(ctx, sale.InexactFloat64(), attrs...)
	bm.retainedAmount.Add(ctx, retained.InexactFloat64(), attrs...)
}

// RecordConflictRetry counts a transaction replayed after ConcurrencyConflict
func (bm *BusinessMetrics) RecordConflictRetry(ctx context.Context, operation string) {
	if bm == nil {
		return
	}
	bm.conflictRetries.Inc(ctx, AttrConflictRetryOp.String(operation))
}

// StartPeriodicCollection samples the financings-by-state gauge every
// interval until Stop is called or ctx ends. Non-blocking.
func (bm *BusinessMetrics) StartPeriodicCollection(ctx context.Context, interval time.Duration) {
	if bm == nil || bm.states == nil {
		return
	}
	bm.runOnce.Do(func() {
		if interval <= 0 {
			interval = 5 * time.Minute
		}
		go bm.runPeriodicCollection(ctx, interval)
	})
}

func (bm *BusinessMetrics) runPeriodicCollection(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	bm.collect(ctx)
	for {
		select {
		case <-bm.stopChan:
			return
		case <-ctx.Done():
			return
		case <-ticker.C:
			bm.collect(ctx)
		}
	}
}

func (bm *BusinessMetrics) collect(ctx context.Context) {
	counts, err := bm.states.CountByState(ctx)
	if err != nil {
		bm.logger.Warn("Failed to count financings by state", zap.Error(err))
		return
	}
	for state, n := range counts {
		bm.financingsByState.Record(ctx, n, AttrFinancingState.String(state))
	}
}

// Stop stops the periodic collection.
func (bm *BusinessMetrics) Stop() {
	if bm == nil {
		return
	}
	bm.stopOnce.Do(func() { close(bm.stopChan) })
}
