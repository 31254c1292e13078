package telemetry

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/contrib/bridges/otelzap"
	"go.opentelemetry.io/otel/exporters/otlp/otlplog/otlploggrpc"
	"go.opentelemetry.io/otel/log/global"
	sdklog "go.opentelemetry.io/otel/sdk/log"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// LogsConfig configures shipping of application logs over OTLP
type LogsConfig struct {
	Enabled   bool
	Collector Collector
	// ExportInterval is how often batched records are flushed; zero keeps
	// the SDK default.
	ExportInterval time.Duration
}

// LoggerProvider owns the OTLP log pipeline. A disabled provider is valid and
// bridges nothing.
type LoggerProvider struct {
	provider    *sdklog.LoggerProvider
	serviceName string
	logger      *zap.Logger
}

// NewLoggerProvider starts the OTLP log exporter when cfg.Enabled and installs
// it as the global provider. bootLog reports the pipeline's own lifecycle and
// must not itself be bridged.
func NewLoggerProvider(ctx context.Context, cfg LogsConfig, bootLog *zap.Logger) (*LoggerProvider, error) {
	lp := &LoggerProvider{serviceName: cfg.Collector.ServiceName, logger: bootLog}
	if !cfg.Enabled {
		return lp, nil
	}

	opts := []otlploggrpc.Option{otlploggrpc.WithEndpoint(cfg.Collector.Endpoint)}
	if cfg.Collector.Insecure {
		opts = append(opts, otlploggrpc.WithInsecure())
	}
	exporter, err := otlploggrpc.New(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create OTLP logs exporter: %w", err)
	}

	res, err := cfg.Collector.resource()
	if err != nil {
		return nil, err
	}

	var batchOpts []sdklog.BatchProcessorOption
	if cfg.ExportInterval > 0 {
		batchOpts = append(batchOpts, sdklog.WithExportInterval(cfg.ExportInterval))
	}
	lp.provider = sdklog.NewLoggerProvider(
		sdklog.WithResource(res),
		sdklog.WithProcessor(sdklog.NewBatchProcessor(exporter, batchOpts...)),
	)
	global.SetLoggerProvider(lp.provider)

	bootLog.Info("OTLP log export enabled",
		zap.String("collector_endpoint", cfg.Collector.Endpoint),
		zap.String("service_name", cfg.Collector.ServiceName),
	)
	return lp, nil
}

// IsEnabled reports whether records are actually exported
func (lp *LoggerProvider) IsEnabled() bool {
	return lp != nil && lp.provider != nil
}

// Core returns a zap core that forwards entries at or above min to the OTLP
// pipeline, or a no-op core when export is disabled. Add it to the
// application logger with logger.New(cfg, lp.Core(level)).
func (lp *LoggerProvider) Core(min zapcore.Level) zapcore.Core {
	if !lp.IsEnabled() {
		return zapcore.NewNopCore()
	}
	core := otelzap.NewCore(lp.serviceName, otelzap.WithLoggerProvider(lp.provider))
	if min <= zapcore.DebugLevel {
		return core
	}
	return &minLevelCore{Core: core, min: min}
}

// Shutdown flushes buffered records and stops the exporter
func (lp *LoggerProvider) Shutdown(ctx context.Context) error {
	if !lp.IsEnabled() {
		return nil
	}
	if err := shutdown(ctx, "logger", lp.provider.Shutdown); err != nil {
		return err
	}
	lp.logger.Info("OTLP log export stopped")
	return nil
}

// minLevelCore drops entries below min; the otelzap core has no level of
// its own.
type minLevelCore struct {
	zapcore.Core
	min zapcore.Level
}

func (c *minLevelCore) Enabled(lvl zapcore.Level) bool {
	return lvl >= c.min && c.Core.Enabled(lvl)
}

func (c *minLevelCore) Check(e zapcore.Entry, ce *zapcore.CheckedEntry) *zapcore.CheckedEntry {
	if !c.Enabled(e.Level) {
		return ce
	}
	return c.Core.Check(e, ce)
}

func (c *minLevelCore) With(fields []zapcore.Field) zapcore.Core {
	return &minLevelCore{Core: c.Core.With(fields), min: c.min}
}
