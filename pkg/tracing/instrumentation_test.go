package tracing

import (
	"context"
	"errors"
	"testing"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestInitTracer_Disabled(t *testing.T) {
	tp, err := InitTracer(Config{Enabled: false}, zap.NewNop())
	require.NoError(t, err)
	assert.Nil(t, tp)
	assert.NoError(t, Shutdown(context.Background()))
}

func TestTraceHTTPClient_PassesThrough(t *testing.T) {
	status, err := TraceHTTPClient(context.Background(), "test", "GET", "http://x/api", func(ctx context.Context) (int, error) {
		require.NotNil(t, ctx)
		return 404, nil
	})
	require.NoError(t, err)
	assert.Equal(t, 404, status)

	boom := errors.New("boom")
	_, err = TraceHTTPClient(context.Background(), "test", "GET", "http://x/api", func(context.Context) (int, error) {
		return 0, boom
	})
	assert.ErrorIs(t, err, boom)
}

func TestTraceRedisCommand_MissIsReturned(t *testing.T) {
	err := TraceRedisCommand(context.Background(), "test", "GET", "k", func(context.Context) error {
		return redis.Nil
	})
	assert.ErrorIs(t, err, redis.Nil)
}

func TestBookingAttributes_SkipsEmpty(t *testing.T) {
	assert.Empty(t, BookingAttributes("", "", 0))
	assert.Len(t, BookingAttributes("b1", "", 617), 2)
	assert.Len(t, BookingAttributes("b1", "d1", 0), 2)
}
