package httpclient

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/richxcame/ride-booking-client/pkg/logger"
	"github.com/richxcame/ride-booking-client/pkg/resilience"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClient_PostSendsJSONAndHeaders(t *testing.T) {
	var gotBody map[string]interface{}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/api/bookings", r.URL.Path)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		assert.Equal(t, "Bearer tok", r.Header.Get("Authorization"))
		assert.Equal(t, "corr-1", r.Header.Get(CorrelationIDHeader))
		assert.Equal(t, "test-agent", r.Header.Get("User-Agent"))
		assert.NotEmpty(t, r.Header.Get("Idempotency-Key"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotBody))
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"bookingId":"b1"}`))
	}))
	defer server.Close()

	client := NewClient(server.URL+"/", time.Second, WithUserAgent("test-agent"))
	ctx := logger.ContextWithCorrelationID(context.Background(), "corr-1")

	body, err := client.Post(ctx, "/api/bookings", map[string]string{"a": "b"}, IdempotencyKey(Bearer("tok")))
	require.NoError(t, err)
	assert.JSONEq(t, `{"bookingId":"b1"}`, string(body))
	assert.Equal(t, "b", gotBody["a"])
}

func TestClient_ErrorStatusReturnsHTTPError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"message":"booking not found"}`))
	}))
	defer server.Close()

	client := NewClient(server.URL, time.Second)
	_, err := client.Get(context.Background(), "/api/bookings/x/status", nil)

	require.Error(t, err)
	assert.True(t, IsNotFound(err))
	assert.False(t, IsTimeout(err))
	assert.Equal(t, http.StatusNotFound, StatusCode(err))
	assert.Equal(t, "booking not found", ServerMessage(err))
}

func TestClient_TimeoutIsDetected(t *testing.T) {
	release := make(chan struct{})
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer server.Close()
	defer close(release)

	client := NewClient(server.URL, 0)
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err := client.Get(ctx, "/slow", nil)
	require.Error(t, err)
	assert.True(t, IsTimeout(err))
}

func TestClient_RetriesRetryableStatus(t *testing.T) {
	var calls int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) == 1 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		_, _ = w.Write([]byte(`{"ok":true}`))
	}))
	defer server.Close()

	client := NewClient(server.URL, time.Second, WithRetry(resilience.RetryConfig{
		MaxAttempts:    3,
		InitialBackoff: time.Millisecond,
	}))

	body, err := client.Get(context.Background(), "/api/drivers/d1", nil)
	require.NoError(t, err)
	assert.JSONEq(t, `{"ok":true}`, string(body))
	assert.Equal(t, int32(2), atomic.LoadInt32(&calls))
}

func TestClient_DoesNotRetryClientErrors(t *testing.T) {
	var calls int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusBadRequest)
	}))
	defer server.Close()

	client := NewClient(server.URL, time.Second, WithRetry(resilience.RetryConfig{
		MaxAttempts:    3,
		InitialBackoff: time.Millisecond,
	}))

	_, err := client.Get(context.Background(), "/x", nil)
	require.Error(t, err)
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
}

func TestServerMessage(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want string
	}{
		{"message key", &HTTPError{StatusCode: 400, Body: `{"message":"bad fare"}`}, "bad fare"},
		{"error key", &HTTPError{StatusCode: 400, Body: `{"error":"no drivers"}`}, "no drivers"},
		{"msg key", &HTTPError{StatusCode: 500, Body: `{"msg":"oops"}`}, "oops"},
		{"priority", &HTTPError{StatusCode: 400, Body: `{"msg":"c","error":"b","message":"a"}`}, "a"},
		{"blank message falls through", &HTTPError{StatusCode: 400, Body: `{"message":" ","error":"b"}`}, "b"},
		{"non json", &HTTPError{StatusCode: 502, Body: `<html>`}, ""},
		{"not http", errors.New("dial tcp"), ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ServerMessage(tt.err))
		})
	}
}
