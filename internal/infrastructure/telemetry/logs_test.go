package telemetry

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestLoggerProvider_DisabledBridgesNothing(t *testing.T) {
	lp, err := NewLoggerProvider(context.Background(), LogsConfig{Collector: Collector{ServiceName: "agrocredit"}}, zap.NewNop())
	require.NoError(t, err)

	assert.False(t, lp.IsEnabled())
	assert.False(t, lp.Core(zapcore.DebugLevel).Enabled(zapcore.ErrorLevel))
	assert.NoError(t, lp.Shutdown(context.Background()))

	var none *LoggerProvider
	assert.False(t, none.IsEnabled())
	assert.False(t, none.Core(zapcore.InfoLevel).Enabled(zapcore.ErrorLevel))
}

func TestMinLevelCore(t *testing.T) {
	inner, logs := observer.New(zapcore.DebugLevel)
	core := &minLevelCore{Core: inner, min: zapcore.WarnLevel}
	log := zap.New(core).With(zap.String("component", "repayment"))

	log.Info("payment applied")
	log.Warn("retrying payment after version conflict")
	log.Error("payment failed")

	assert.False(t, core.Enabled(zapcore.InfoLevel))
	assert.True(t, core.Enabled(zapcore.WarnLevel))
	entries := logs.All()
	if assert.Len(t, entries, 2) {
		assert.Equal(t, "retrying payment after version conflict", entries[0].Message)
		assert.Equal(t, "repayment", entries[0].ContextMap()["component"])
	}
}
