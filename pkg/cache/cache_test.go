package cache

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/go-redis/redismock/v9"
	redisclient "github.com/richxcame/ride-booking-client/pkg/redis"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type place struct {
	Label string  `json:"label"`
	Lat   float64 `json:"lat"`
}

func newManager(t *testing.T) (*Manager, redismock.ClientMock) {
	t.Helper()
	db, mock := redismock.NewClientMock()
	return NewManager(redisclient.Wrap(db)), mock
}

func TestManager_SetThenGet(t *testing.T) {
	m, mock := newManager(t)
	ctx := context.Background()

	mock.ExpectSet("geocode:search:lk:galle", `[{"label":"Galle","lat":6.05}]`, time.Hour).SetVal("OK")
	mock.ExpectGet("geocode:search:lk:galle").SetVal(`[{"label":"Galle","lat":6.05}]`)

	require.NoError(t, m.Set(ctx, "geocode:search:lk:galle", []place{{Label: "Galle", Lat: 6.05}}, time.Hour))

	var got []place
	hit, err := m.Get(ctx, "geocode:search:lk:galle", &got)
	require.NoError(t, err)
	assert.True(t, hit)
	assert.Equal(t, []place{{Label: "Galle", Lat: 6.05}}, got)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestManager_Get(t *testing.T) {
	tests := []struct {
		name    string
		setup   func(mock redismock.ClientMock)
		wantHit bool
		wantErr bool
	}{
		{
			name:  "miss",
			setup: func(mock redismock.ClientMock) { mock.ExpectGet("k").RedisNil() },
		},
		{
			name:    "store failure",
			setup:   func(mock redismock.ClientMock) { mock.ExpectGet("k").SetErr(errors.New("connection refused")) },
			wantErr: true,
		},
		{
			name:    "corrupt value",
			setup:   func(mock redismock.ClientMock) { mock.ExpectGet("k").SetVal("{not json") },
			wantErr: true,
		},
		{
			name:    "hit",
			setup:   func(mock redismock.ClientMock) { mock.ExpectGet("k").SetVal(`"Pettah"`) },
			wantHit: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m, mock := newManager(t)
			tt.setup(mock)

			var name string
			hit, err := m.Get(context.Background(), "k", &name)
			assert.Equal(t, tt.wantHit, hit)
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
			assert.NoError(t, mock.ExpectationsWereMet())
		})
	}
}

func TestManager_NonPositiveTTLSkipsWrite(t *testing.T) {
	m, mock := newManager(t)

	require.NoError(t, m.Set(context.Background(), "k", "v", 0))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestManager_Delete(t *testing.T) {
	m, mock := newManager(t)
	mock.ExpectDel("a", "b").SetVal(2)

	require.NoError(t, m.Delete(context.Background(), "a", "b"))
	require.NoError(t, m.Delete(context.Background()))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestManager_NilIsEmpty(t *testing.T) {
	m := NewManager(nil)
	assert.Nil(t, m)
	assert.False(t, m.Enabled())

	var v string
	hit, err := m.Get(context.Background(), "k", &v)
	assert.False(t, hit)
	assert.NoError(t, err)
	assert.NoError(t, m.Set(context.Background(), "k", "v", time.Minute))
	assert.NoError(t, m.Delete(context.Background(), "k"))
}
