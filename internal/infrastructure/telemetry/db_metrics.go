package telemetry

import (
	"context"
	"database/sql"
	"strings"
	"sync"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// DBMetricsConfig controls statement and pool metrics
type DBMetricsConfig struct {
	Enabled            bool
	SlowQueryThreshold time.Duration
	PoolStatsInterval  time.Duration
}

func DefaultDBMetricsConfig() DBMetricsConfig {
	return DBMetricsConfig{
		Enabled:            true,
		SlowQueryThreshold: 200 * time.Millisecond,
		PoolStatsInterval:  15 * time.Second,
	}
}

const dbMetricsStartKey = "telemetry:db_metrics_start"

// DBMetrics records statement latency and pool pressure. Financing creation
// and payments hold row locks, so waits on the pool show up here first.
type DBMetrics struct {
	poolConnections *Gauge
	poolWaits       *Counter
	queryTotal      *Counter
	slowQueryTotal  *Counter
	queryDuration   *Histogram

	config    DBMetricsConfig
	logger    *zap.Logger
	sqlDB     *sql.DB
	lastWaits int64

	stop     chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup
}

func NewDBMetrics(meter metric.Meter, cfg DBMetricsConfig, logger *zap.Logger) (*DBMetrics, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	defaults := DefaultDBMetricsConfig()
	if cfg.SlowQueryThreshold <= 0 {
		cfg.SlowQueryThreshold = defaults.SlowQueryThreshold
	}
	if cfg.PoolStatsInterval <= 0 {
		cfg.PoolStatsInterval = defaults.PoolStatsInterval
	}

	m := &DBMetrics{config: cfg, logger: logger, stop: make(chan struct{})}
	var err error
	if m.poolConnections, err = NewGauge(meter, "db_pool_connections", "Connections in the pool by state", "{connection}"); err != nil {
		return nil, err
	}
	if m.poolWaits, err = NewCounter(meter, "db_pool_wait_total", "Connection requests that had to wait", "{wait}"); err != nil {
		return nil, err
	}
	if m.queryTotal, err = NewCounter(meter, "db_query_total", "Database statements by operation", "{query}"); err != nil {
		return nil, err
	}
	if m.slowQueryTotal, err = NewCounter(meter, "db_slow_query_total", "Statements slower than the threshold", "{query}"); err != nil {
		return nil, err
	}
	if m.queryDuration, err = NewHistogram(meter, HistogramOpts{
		Name:        "db_query_duration_seconds",
		Description: "Database statement latency",
		Unit:        "s",
		Boundaries:  DBDurationBuckets,
	}); err != nil {
		return nil, err
	}
	return m, nil
}

// RecordQuery records one finished statement
func (m *DBMetrics) RecordQuery(ctx context.Context, operation, table string, took time.Duration) {
	attrs := []attribute.KeyValue{AttrDBOperation.String(operation), AttrDBTable.String(table)}
	m.queryTotal.Inc(ctx, attrs...)
	m.queryDuration.RecordDuration(ctx, took, attrs...)
	if took > m.config.SlowQueryThreshold {
		m.slowQueryTotal.Inc(ctx, attrs...)
	}
}

// StartPoolStatsCollection samples pool stats every PoolStatsInterval until
// ctx ends or Stop is called
func (m *DBMetrics) StartPoolStatsCollection(ctx context.Context) {
	if m.sqlDB == nil {
		return
	}
	m.wg.Add(1)
	go func() {
		defer m.wg.Done()
		ticker := time.NewTicker(m.config.PoolStatsInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-m.stop:
				return
			case <-ticker.C:
				m.collectPoolStats(ctx)
			}
		}
	}()
}

func (m *DBMetrics) collectPoolStats(ctx context.Context) {
	stats := m.sqlDB.Stats()
	for state, n := range map[string]int{
		"in_use": stats.InUse,
		"idle":   stats.Idle,
		"max":    stats.MaxOpenConnections,
	} {
		m.poolConnections.Record(ctx, int64(n), AttrDBState.String(state))
	}
	// WaitCount is cumulative; export the growth since the last sample
	if delta := stats.WaitCount - m.lastWaits; delta > 0 {
		m.poolWaits.Add(ctx, delta)
	}
	m.lastWaits = stats.WaitCount
}

// Stop ends sampling; safe to call more than once
func (m *DBMetrics) Stop() {
	m.stopOnce.Do(func() { close(m.stop) })
	m.wg.Wait()
}

func (m *DBMetrics) before(db *gorm.DB) {
	db.InstanceSet(dbMetricsStartKey, time.Now())
}

func (m *DBMetrics) after(db *gorm.DB) {
	v, ok := db.InstanceGet(dbMetricsStartKey)
	if !ok {
		return
	}
	start, ok := v.(time.Time)
	if !ok {
		return
	}
	ctx := db.Statement.Context
	if ctx == nil {
		ctx = context.Background()
	}
	m.RecordQuery(ctx, detectOperationType(db.Statement.SQL.String()), db.Statement.Table, time.Since(start))
}

// detectOperationType classifies a statement by its first keyword
func detectOperationType(stmt string) string {
	fields := strings.Fields(stmt)
	if len(fields) == 0 {
		return "OTHER"
	}
	switch op := strings.ToUpper(fields[0]); op {
	case "SELECT", "INSERT", "UPDATE", "DELETE":
		return op
	default:
		return "OTHER"
	}
}

// RegisterDBMetrics attaches statement metrics to db. It returns nil when
// metrics are off; callers Stop the returned collector on shutdown.
func RegisterDBMetrics(db *gorm.DB, meterProvider *MeterProvider, cfg DBMetricsConfig, logger *zap.Logger) (*DBMetrics, error) {
	if !cfg.Enabled || !meterProvider.IsEnabled() {
		return nil, nil
	}
	m, err := NewDBMetrics(meterProvider.Meter("db.client"), cfg, logger)
	if err != nil {
		return nil, err
	}
	if m.sqlDB, err = db.DB(); err != nil {
		return nil, err
	}
	if err := registerAround(db, "db_metrics", m.before, m.after); err != nil {
		return nil, err
	}
	return m, nil
}
