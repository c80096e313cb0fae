package telemetry_test

import (
	"context"
	"errors"
	"testing"

	"github.com/erp/ledger/internal/infrastructure/telemetry"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
	"go.uber.org/zap/zaptest"
)

func setupTestTracer(t *testing.T) *tracetest.SpanRecorder {
	t.Helper()

	sr := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(sr))
	original := otel.GetTracerProvider()
	otel.SetTracerProvider(tp)
	t.Cleanup(func() {
		otel.SetTracerProvider(original)
		_ = tp.Shutdown(context.Background())
	})
	return sr
}

func attrMap(attrs []attribute.KeyValue) map[string]string {
	m := make(map[string]string, len(attrs))
	for _, a := range attrs {
		m[string(a.Key)] = a.Value.Emit()
	}
	return m
}

func TestNewTracerProvider_Disabled(t *testing.T) {
	ctx := context.Background()
	cfg := telemetry.Config{ServiceName: "due-ledger-test", SamplingRatio: 1}

	tp, err := telemetry.NewTracerProvider(ctx, cfg, zaptest.NewLogger(t))
	require.NoError(t, err)

	assert.False(t, tp.IsEnabled())
	assert.Equal(t, "due-ledger-test", tp.GetConfig().ServiceName)
	assert.NotNil(t, tp.Tracer("test"))
	assert.NoError(t, tp.ForceFlush(ctx))
	assert.NoError(t, tp.Shutdown(ctx))
}

func TestNewMeterProvider_Disabled(t *testing.T) {
	ctx := context.Background()

	mp, err := telemetry.NewMeterProvider(ctx, telemetry.MetricsConfig{ServiceName: "due-ledger-test"}, zaptest.NewLogger(t))
	require.NoError(t, err)

	assert.False(t, mp.IsEnabled())
	assert.NotNil(t, mp.Meter("test"))
	assert.NoError(t, mp.Shutdown(ctx))
}

func TestStartServiceSpan(t *testing.T) {
	sr := setupTestTracer(t)
	paymentID := uuid.New()

	ctx, span := telemetry.StartServiceSpan(context.Background(), "due_payment", "record",
		telemetry.WithAttribute(telemetry.SpanAttrPaymentID, paymentID),
		telemetry.WithAttribute(telemetry.SpanAttrAmount, decimal.RequireFromString("30.50")),
	)
	telemetry.SetAttributes(span, telemetry.SpanAttrAllocations, 2, telemetry.SpanAttrAutoAllocate, true, 42, "skipped")
	telemetry.AddEvent(span, "orders_locked", "count", 2)

	assert.NotEmpty(t, telemetry.GetTraceID(ctx))
	assert.NotEmpty(t, telemetry.GetSpanID(ctx))
	span.End()

	spans := sr.Ended()
	require.Len(t, spans, 1)
	assert.Equal(t, "due_payment.record", spans[0].Name())

	attrs := attrMap(spans[0].Attributes())
	assert.Equal(t, paymentID.String(), attrs[telemetry.SpanAttrPaymentID])
	assert.Equal(t, "30.5", attrs[telemetry.SpanAttrAmount])
	assert.Equal(t, "2", attrs[telemetry.SpanAttrAllocations])
	assert.Equal(t, "true", attrs[telemetry.SpanAttrAutoAllocate])
	assert.Len(t, attrs, 4)

	require.Len(t, spans[0].Events(), 1)
	assert.Equal(t, "orders_locked", spans[0].Events()[0].Name)
}

func TestRecordError(t *testing.T) {
	sr := setupTestTracer(t)

	_, span := telemetry.StartSpan(context.Background(), "due_payment.delete")
	telemetry.RecordError(span, errors.New("payment not found"))
	telemetry.RecordError(span, nil)
	span.End()

	spans := sr.Ended()
	require.Len(t, spans, 1)
	assert.Equal(t, codes.Error, spans[0].Status().Code)
	assert.Equal(t, "payment not found", spans[0].Status().Description)
}

func TestGetTraceID_NoSpan(t *testing.T) {
	assert.Empty(t, telemetry.GetTraceID(context.Background()))
	assert.Empty(t, telemetry.GetSpanID(context.Background()))
}
