package telemetry

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
	"go.opentelemetry.io/otel/trace"
)

// useRecorder installs a recording global tracer provider for one test
func useRecorder(t *testing.T) *tracetest.SpanRecorder {
	t.Helper()
	recorder := tracetest.NewSpanRecorder()
	provider := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder))
	previous := otel.GetTracerProvider()
	otel.SetTracerProvider(provider)
	t.Cleanup(func() {
		otel.SetTracerProvider(previous)
		_ = provider.Shutdown(context.Background())
	})
	return recorder
}

func attrMap(kvs []attribute.KeyValue) map[string]attribute.Value {
	out := make(map[string]attribute.Value, len(kvs))
	for _, kv := range kvs {
		out[string(kv.Key)] = kv.Value
	}
	return out
}

func TestStartServiceSpan(t *testing.T) {
	recorder := useRecorder(t)
	id := uuid.New()

	_, span := StartServiceSpan(context.Background(), "repayment", "register_payment",
		WithAttribute(SpanAttrFinancingID, id),
		WithAttribute(SpanAttrAttempt, 2),
		WithSpanKind(trace.SpanKindServer),
	)
	SetAttributes(span, SpanAttrState, "ACTIVE", 42, "ignored", SpanAttrAmount, 12.5)
	SetAttribute(span, "settled", true)
	AddEvent(span, "retained", SpanAttrAmount, 3.75)
	SetOK(span)
	span.End()

	ended := recorder.Ended()
	require.Len(t, ended, 1)
	got := ended[0]
	assert.Equal(t, "repayment.register_payment", got.Name())
	assert.Equal(t, trace.SpanKindServer, got.SpanKind())
	assert.Equal(t, codes.Ok, got.Status().Code)

	attrs := attrMap(got.Attributes())
	assert.Equal(t, id.String(), attrs[SpanAttrFinancingID].AsString())
	assert.Equal(t, int64(2), attrs[SpanAttrAttempt].AsInt64())
	assert.Equal(t, "ACTIVE", attrs[SpanAttrState].AsString())
	assert.Equal(t, 12.5, attrs[SpanAttrAmount].AsFloat64())
	assert.True(t, attrs["settled"].AsBool())
	assert.NotContains(t, attrs, "ignored")

	require.Len(t, got.Events(), 1)
	assert.Equal(t, "retained", got.Events()[0].Name)
}

func TestRecordError(t *testing.T) {
	recorder := useRecorder(t)

	_, span := StartSpan(context.Background(), "financing.create")
	RecordError(span, nil)
	RecordError(span, errors.New("subject has no eligible amount"))
	span.End()

	got := recorder.Ended()[0]
	assert.Equal(t, codes.Error, got.Status().Code)
	assert.Equal(t, "subject has no eligible amount", got.Status().Description)
	require.Len(t, got.Events(), 1)
	assert.Equal(t, "exception", got.Events()[0].Name)
}

func TestHelpers_NilSpan(t *testing.T) {
	assert.NotPanics(t, func() {
		SetAttributes(nil, "k", "v")
		SetAttribute(nil, "k", "v")
		RecordError(nil, errors.New("x"))
		SetOK(nil)
		AddEvent(nil, "e")
	})
}

func TestToAttribute(t *testing.T) {
	tests := []struct {
		name  string
		value any
		want  attribute.Value
	}{
		{"string", "a", attribute.StringValue("a")},
		{"int", 3, attribute.IntValue(3)},
		{"int64", int64(4), attribute.Int64Value(4)},
		{"float", 1.5, attribute.Float64Value(1.5)},
		{"bool", true, attribute.BoolValue(true)},
		{"strings", []string{"a", "b"}, attribute.StringSliceValue([]string{"a", "b"})},
		{"decimal", decimal.RequireFromString("1250.50"), attribute.StringValue("1250.5")},
		{"stringer", uuid.Nil, attribute.StringValue(uuid.Nil.String())},
		{"fallback", struct{ N int }{7}, attribute.StringValue("{7}")},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, toAttribute("k", tt.value).Value)
		})
	}
}
