package redis

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/go-redis/redismock/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClient_SetAndGet(t *testing.T) {
	db, mock := redismock.NewClientMock()
	client := Wrap(db)
	ctx := context.Background()

	mock.ExpectSet("geocode:search:lk:colombo", `[{"name":"Colombo"}]`, time.Hour).SetVal("OK")
	mock.ExpectGet("geocode:search:lk:colombo").SetVal(`[{"name":"Colombo"}]`)

	require.NoError(t, client.SetWithExpiration(ctx, "geocode:search:lk:colombo", `[{"name":"Colombo"}]`, time.Hour))

	got, err := client.GetString(ctx, "geocode:search:lk:colombo")
	require.NoError(t, err)
	assert.Equal(t, `[{"name":"Colombo"}]`, got)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestClient_GetMiss(t *testing.T) {
	db, mock := redismock.NewClientMock()
	client := Wrap(db)

	mock.ExpectGet("missing").RedisNil()

	_, err := client.GetString(context.Background(), "missing")
	require.Error(t, err)
	assert.True(t, IsMiss(err))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestClient_GetError(t *testing.T) {
	db, mock := redismock.NewClientMock()
	client := Wrap(db)

	mock.ExpectGet("k").SetErr(errors.New("connection refused"))

	_, err := client.GetString(context.Background(), "k")
	require.Error(t, err)
	assert.False(t, IsMiss(err))
}

func TestClient_Delete(t *testing.T) {
	db, mock := redismock.NewClientMock()
	client := Wrap(db)

	mock.ExpectDel("a", "b").SetVal(2)

	require.NoError(t, client.Delete(context.Background(), "a", "b"))
	assert.NoError(t, mock.ExpectationsWereMet())
}
