package logger

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestNew(t *testing.T) {
	t.Run("builds a json logger at the requested level", func(t *testing.T) {
		l, err := New(&Config{Level: "warn", Format: "json", Output: "stderr"})
		require.NoError(t, err)
		assert.False(t, l.Core().Enabled(zapcore.InfoLevel))
		assert.True(t, l.Core().Enabled(zapcore.WarnLevel))
	})

	t.Run("nil config uses defaults", func(t *testing.T) {
		l, err := New(nil)
		require.NoError(t, err)
		assert.True(t, l.Core().Enabled(zapcore.InfoLevel))
	})

	t.Run("writes to a file", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "ledger.log")
		l, err := New(&Config{Level: "info", Format: "json", Output: path})
		require.NoError(t, err)
		l.Info("hello")
		assert.NoError(t, l.Sync())
		assert.FileExists(t, path)
	})

	t.Run("fails on an unwritable file", func(t *testing.T) {
		_, err := New(&Config{Output: filepath.Join(t.TempDir(), "missing", "dir", "x.log")})
		assert.Error(t, err)
	})
}

func TestParseLevel(t *testing.T) {
	assert.Equal(t, zapcore.DebugLevel, ParseLevel("DEBUG"))
	assert.Equal(t, zapcore.WarnLevel, ParseLevel("warning"))
	assert.Equal(t, zapcore.ErrorLevel, ParseLevel("error"))
	assert.Equal(t, zapcore.InfoLevel, ParseLevel("bogus"))
}

func TestContextHelpers(t *testing.T) {
	core, recorded := observer.New(zapcore.InfoLevel)
	base := zap.New(core)

	t.Run("FromContext falls back to a no-op logger", func(t *testing.T) {
		assert.NotNil(t, FromContext(context.Background()))
	})

	t.Run("request and branch ids travel in context and fields", func(t *testing.T) {
		ctx, l := WithRequestID(context.Background(), base, "req-1")
		ctx, l = WithBranchID(ctx, l, "branch-9")
		assert.Equal(t, "req-1", GetRequestID(ctx))
		assert.Equal(t, "branch-9", GetBranchID(ctx))

		L(ctx).Info("payment recorded")
		entries := recorded.TakeAll()
		require.Len(t, entries, 1)
		fields := entries[0].ContextMap()
		assert.Equal(t, "req-1", fields["request_id"])
		assert.Equal(t, "branch-9", fields["branch_id"])
		assert.NotContains(t, fields, "trace_id")
	})

	t.Run("trace ids are added for a valid span", func(t *testing.T) {
		sc := trace.NewSpanContext(trace.SpanContextConfig{
			TraceID:    trace.TraceID{1, 2, 3},
			SpanID:     trace.SpanID{4, 5, 6},
			TraceFlags: trace.FlagsSampled,
		})
		ctx := trace.ContextWithSpanContext(WithContext(context.Background(), base), sc)

		L(ctx).Info("traced")
		entries := recorded.TakeAll()
		require.Len(t, entries, 1)
		assert.Equal(t, sc.TraceID().String(), entries[0].ContextMap()["trace_id"])
	})
}
