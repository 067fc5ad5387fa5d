// Package app wires the shared runtime of the terminal front-ends.
package app

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/richxcame/ride-booking-client/internal/backend"
	"github.com/richxcame/ride-booking-client/internal/geocoding"
	"github.com/richxcame/ride-booking-client/internal/location"
	"github.com/richxcame/ride-booking-client/internal/ops"
	"github.com/richxcame/ride-booking-client/internal/routing"
	"github.com/richxcame/ride-booking-client/internal/session"
	"github.com/richxcame/ride-booking-client/pkg/config"
	apperrors "github.com/richxcame/ride-booking-client/pkg/errors"
	"github.com/richxcame/ride-booking-client/pkg/health"
	"github.com/richxcame/ride-booking-client/pkg/logger"
	redisClient "github.com/richxcame/ride-booking-client/pkg/redis"
	"github.com/richxcame/ride-booking-client/pkg/resilience"
	"github.com/richxcame/ride-booking-client/pkg/tracing"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.uber.org/zap"
)

// Upstream names used for breaker overrides and health checks
const (
	geocoderService = "nominatim"
	routerService   = "osrm"
)

// Runtime holds everything a screen needs besides its presenter.
type Runtime struct {
	Name     string
	Config   *config.Config
	Reporter apperrors.Reporter
	Sessions *session.Store
	Backend  *backend.Client
	Geocoder *geocoding.Client
	Router   *routing.Client
	Resolver *location.Resolver

	cache    *redisClient.Client
	tracer   *sdktrace.TracerProvider
	ops      *ops.Server
	breakers map[string]*resilience.CircuitBreaker
}

// Bootstrap loads configuration and builds the runtime of the named client.
// On failure everything already started is closed again.
func Bootstrap(name string) (_ *Runtime, err error) {
	cfg, err := config.Load(name)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	if err := logger.Init(cfg.Client.Environment, cfg.Client.LogLevel); err != nil {
		return nil, fmt.Errorf("init logger: %w", err)
	}

	logger.Info("Starting client",
		zap.String("client", name),
		zap.String("version", cfg.Client.Version),
		zap.String("backend", cfg.Backend.BaseURL),
	)

	rt := &Runtime{Name: name, Config: cfg, breakers: map[string]*resilience.CircuitBreaker{}}
	defer func() {
		if err != nil {
			rt.Close()
		}
	}()

	reporter, err := apperrors.InitSentry(apperrors.SentryConfig{
		DSN:              cfg.Sentry.DSN,
		Environment:      cfg.Client.Environment,
		Release:          cfg.Client.Version,
		SampleRate:       cfg.Sentry.SampleRate,
		ServerName:       name,
		AttachStacktrace: true,
	})
	if err != nil {
		logger.Warn("Failed to initialize Sentry, continuing without error tracking", zap.Error(err))
		reporter = apperrors.NopReporter{}
	}
	rt.Reporter = reporter

	tp, err := tracing.InitTracer(tracing.Config{
		ServiceName:    name,
		ServiceVersion: cfg.Client.Version,
		Environment:    cfg.Client.Environment,
		OTLPEndpoint:   cfg.Tracing.OTLPEndpoint,
		SampleRate:     cfg.Tracing.SampleRate,
		Enabled:        cfg.Tracing.Enabled,
	}, logger.Get())
	if err != nil {
		logger.Warn("Failed to initialize tracer, continuing without tracing", zap.Error(err))
	}
	rt.tracer = tp

	var cache redisClient.ClientInterface
	if cfg.Redis.Enabled {
		client, err := redisClient.NewRedisClient(&cfg.Redis)
		if err != nil {
			logger.Warn("Redis unavailable, geocoding results will not be cached", zap.Error(err))
		} else {
			rt.cache = client
			cache = client
			logger.Info("Connected to Redis", zap.String("addr", cfg.Redis.RedisAddr()))
		}
	}

	rt.Geocoder = geocoding.NewClient(geocoding.Config{
		BaseURL:           cfg.Geocoding.BaseURL,
		CountryCode:       cfg.Geocoding.CountryCode,
		Limit:             cfg.Geocoding.ResultLimit,
		UserAgent:         cfg.Geocoding.UserAgent,
		RequestsPerSecond: cfg.Geocoding.RequestsPerSecond,
		Timeout:           cfg.Geocoding.Timeout,
		ForwardCacheTTL:   cfg.Geocoding.ForwardCacheTTL,
		ReverseCacheTTL:   cfg.Geocoding.ReverseCacheTTL,
	}, cache, rt.breaker(geocoderService))

	rt.Router = routing.NewClient(routing.Config{
		BaseURL: cfg.Routing.BaseURL,
		Profile: cfg.Routing.Profile,
		Timeout: cfg.Routing.Timeout,
	}, rt.breaker(routerService))

	rt.Backend = backend.NewClient(cfg.Backend.BaseURL)

	fallback, err := location.NewCoordinate(cfg.Location.FallbackLatitude, cfg.Location.FallbackLongitude)
	if err != nil {
		return nil, fmt.Errorf("fallback position: %w", err)
	}
	var locator location.Locator = location.UnavailableLocator{}
	if cfg.Location.DevicePosition != "" {
		pos, err := location.ParseCoordinate(cfg.Location.DevicePosition)
		if err != nil {
			logger.Warn("Ignoring invalid DEVICE_POSITION", zap.Error(err))
		} else {
			locator = location.StaticLocator{Position: pos}
		}
	}
	rt.Resolver = location.NewResolver(locator, rt.Geocoder, fallback)

	path := cfg.Session.Path
	if path == "" {
		if path, err = session.DefaultPath(); err != nil {
			return nil, err
		}
	}
	rt.Sessions = session.NewStore(path)
	if sess := rt.Sessions.Current(); sess.UserID != "" {
		apperrors.SetUser(sess.UserID)
	}

	if cfg.Metrics.Addr != "" {
		rt.ops = ops.NewServer(cfg.Metrics.Addr, ops.NewRouter(name, cfg.Client.Version, health.DefaultCheckerConfig(), rt.healthChecks()))
		rt.ops.Start()
	}

	return rt, nil
}

// breaker builds the breaker of an upstream, nil when breakers are disabled.
func (rt *Runtime) breaker(service string) *resilience.CircuitBreaker {
	cb := rt.Config.Resilience.CircuitBreaker
	if !cb.Enabled {
		return nil
	}
	s := cb.SettingsFor(service)
	breaker := resilience.NewCircuitBreaker(
		resilience.BuildSettings(fmt.Sprintf("%s-%s", rt.Name, service), s.IntervalSeconds, s.TimeoutSeconds, s.FailureThreshold, s.SuccessThreshold),
	)
	rt.breakers[service] = breaker
	logger.Info("Circuit breaker enabled", zap.String("upstream", service))
	return breaker
}

func (rt *Runtime) healthChecks() map[string]health.Checker {
	checks := map[string]health.Checker{
		"backend": health.NewCachedChecker(health.HTTPEndpointChecker(rt.Config.Backend.BaseURL, health.DefaultCheckerConfig()), 10*time.Second).Check,
	}
	for service, breaker := range rt.breakers {
		checks[service] = health.BreakerChecker(breaker)
	}
	if rt.cache != nil {
		checks["redis"] = health.RedisChecker(rt.cache.Client)
	}
	return checks
}

// Context returns a context cancelled on SIGINT or SIGTERM.
func (rt *Runtime) Context() (context.Context, context.CancelFunc) {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	return logger.ContextWithScreen(ctx, rt.Name), stop
}

// CommandContext tags ctx with a fresh correlation id.
func CommandContext(ctx context.Context) context.Context {
	return logger.ContextWithCorrelationID(ctx, uuid.NewString())
}

// Login stores the session from "login <token> <user-id> [driver-id]" args.
func (rt *Runtime) Login(args []string) error {
	if len(args) < 2 || len(args) > 3 {
		return fmt.Errorf("usage: login <token> <user-id> [driver-id]")
	}
	sess := session.Session{Token: args[0], UserID: args[1]}
	if len(args) == 3 {
		sess.DriverID = args[2]
	}
	if sess.Expired(time.Now()) {
		return fmt.Errorf("token has expired")
	}
	if err := rt.Sessions.Save(sess); err != nil {
		return err
	}
	apperrors.SetUser(sess.UserID)
	logger.Info("Session stored", zap.String("path", rt.Sessions.Path()), zap.String("user_id", sess.UserID))
	return nil
}

// Logout removes the stored session.
func (rt *Runtime) Logout() error {
	return rt.Sessions.Clear()
}

// Close flushes telemetry and releases connections.
func (rt *Runtime) Close() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if rt.ops != nil {
		if err := rt.ops.Shutdown(ctx); err != nil {
			logger.Warn("Failed to stop ops server", zap.Error(err))
		}
	}
	if rt.tracer != nil {
		if err := rt.tracer.Shutdown(ctx); err != nil {
			logger.Warn("Failed to shutdown tracer", zap.Error(err))
		}
	}
	if rt.cache != nil {
		_ = rt.cache.Close()
	}
	apperrors.Flush(2 * time.Second)
	_ = logger.Sync()
}

// Fatal prints err and exits.
func Fatal(err error) {
	fmt.Fprintln(os.Stderr, strings.TrimSpace(err.Error()))
	os.Exit(1)
}
