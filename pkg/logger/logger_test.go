package logger

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestContextWithCorrelationID(t *testing.T) {
	ctx := ContextWithCorrelationID(context.Background(), "test-id")
	assert.Equal(t, "test-id", CorrelationIDFromContext(ctx))
}

func TestCorrelationIDFromContext_Nil(t *testing.T) {
	assert.Empty(t, CorrelationIDFromContext(nil))
}

func TestWithContextAddsFields(t *testing.T) {
	core, recorded := observer.New(zapcore.InfoLevel)
	original := log
	log = zap.New(core)
	defer func() { log = original }()

	ctx := ContextWithCorrelationID(context.Background(), "context-id")
	ctx = ContextWithScreen(ctx, "rider")

	WithContext(ctx).Info("test message", BookingID("b-1"))

	entries := recorded.All()
	require.Len(t, entries, 1)

	fields := entries[0].ContextMap()
	assert.Equal(t, "context-id", fields["correlation_id"])
	assert.Equal(t, "rider", fields["screen"])
	assert.Equal(t, "b-1", fields["booking_id"])
}

func TestInit_InvalidLevel(t *testing.T) {
	original := log
	defer func() { log = original }()

	require.Error(t, Init("development", "loud"))
	require.NoError(t, Init("production", "warn"))
	assert.False(t, Get().Core().Enabled(zapcore.InfoLevel))
}
