package ops

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/richxcame/ride-booking-client/pkg/health"
	"github.com/richxcame/ride-booking-client/pkg/middleware"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHealthz(t *testing.T) {
	router := NewRouter("rider", "1.2.3", health.DefaultCheckerConfig(), map[string]health.Checker{
		"backend": func(context.Context) error { return nil },
		"cache":   func(context.Context) error { return errors.New("connection refused") },
	})

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	require.Equal(t, http.StatusOK, w.Code)
	assert.NotEmpty(t, w.Header().Get(middleware.CorrelationIDHeader))

	var body HealthResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "degraded", body.Status)
	assert.Equal(t, "rider", body.Service)
	assert.Equal(t, "1.2.3", body.Version)
	require.Len(t, body.Checks, 2)
	assert.Equal(t, "connection refused", body.Checks[1].Message)
}

func TestMetrics(t *testing.T) {
	router := NewRouter("driver", "dev", health.DefaultCheckerConfig(), nil)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "go_goroutines")
}
