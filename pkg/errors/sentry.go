package errors

import (
	"context"
	"fmt"
	"time"

	"github.com/getsentry/sentry-go"
	"github.com/richxcame/ride-booking-client/pkg/common"
	"github.com/richxcame/ride-booking-client/pkg/logger"
)

// SentryConfig holds configuration for Sentry integration
type SentryConfig struct {
	DSN              string
	Environment      string
	Release          string
	SampleRate       float64
	ServerName       string
	AttachStacktrace bool
}

// Reporter receives failures worth a human's attention.
type Reporter interface {
	Capture(ctx context.Context, err error, extras map[string]interface{})
}

// NopReporter discards everything; used when no DSN is configured.
type NopReporter struct{}

// Capture implements Reporter.
func (NopReporter) Capture(context.Context, error, map[string]interface{}) {}

// SentryReporter sends reportable errors through a Sentry hub.
type SentryReporter struct {
	hub *sentry.Hub
}

// InitSentry initializes the Sentry SDK and returns a reporter bound to the
// current hub. An empty DSN yields a NopReporter.
func InitSentry(config SentryConfig) (Reporter, error) {
	if config.DSN == "" {
		return NopReporter{}, nil
	}

	err := sentry.Init(sentry.ClientOptions{
		Dsn:              config.DSN,
		Environment:      config.Environment,
		Release:          config.Release,
		SampleRate:       config.SampleRate,
		ServerName:       config.ServerName,
		AttachStacktrace: config.AttachStacktrace,
		BeforeSend:       beforeSend,
		BeforeBreadcrumb: beforeBreadcrumb,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize sentry: %w", err)
	}

	return NewSentryReporter(sentry.CurrentHub()), nil
}

// NewSentryReporter wraps an existing hub.
func NewSentryReporter(hub *sentry.Hub) *SentryReporter {
	return &SentryReporter{hub: hub}
}

// Capture implements Reporter. Errors that are part of normal screen flow
// (preconditions, timeouts, fallbacks) are not sent.
func (r *SentryReporter) Capture(ctx context.Context, err error, extras map[string]interface{}) {
	if r == nil || r.hub == nil || !ShouldReport(err) {
		return
	}

	r.hub.WithScope(func(scope *sentry.Scope) {
		scope.SetTag("kind", string(common.KindOf(err)))
		if correlationID := logger.CorrelationIDFromContext(ctx); correlationID != "" {
			scope.SetTag("correlation_id", correlationID)
		}
		for key, value := range extras {
			scope.SetExtra(key, value)
		}
		r.hub.CaptureException(err)
	})
}

// Flush flushes the Sentry buffer
func Flush(timeout time.Duration) bool {
	return sentry.Flush(timeout)
}

// AddBreadcrumbForRequest records an outbound HTTP call
func AddBreadcrumbForRequest(method, url string, statusCode int, duration time.Duration) {
	sentry.AddBreadcrumb(&sentry.Breadcrumb{
		Type:      "http",
		Category:  "http.request",
		Level:     sentry.LevelInfo,
		Message:   fmt.Sprintf("%s %s", method, url),
		Timestamp: time.Now(),
		Data: map[string]interface{}{
			"method":      method,
			"url":         url,
			"status_code": statusCode,
			"duration_ms": duration.Milliseconds(),
		},
	})
}

// SetUser attaches the session identity to subsequent events
func SetUser(userID string) {
	sentry.ConfigureScope(func(scope *sentry.Scope) {
		scope.SetUser(sentry.User{ID: userID})
	})
}

// ShouldReport determines if an error should be reported to Sentry
func ShouldReport(err error) bool {
	if err == nil {
		return false
	}
	switch common.KindOf(err) {
	case common.KindBackend, common.KindMissingIdentifier:
		return true
	default:
		return false
	}
}

func beforeSend(event *sentry.Event, _ *sentry.EventHint) *sentry.Event {
	if event.Level == sentry.LevelInfo || event.Level == sentry.LevelDebug {
		return nil
	}
	return event
}

func beforeBreadcrumb(breadcrumb *sentry.Breadcrumb, _ *sentry.BreadcrumbHint) *sentry.Breadcrumb {
	if breadcrumb.Category == "http" && breadcrumb.Data != nil {
		delete(breadcrumb.Data, "Authorization")
		delete(breadcrumb.Data, "Cookie")
	}
	return breadcrumb
}
