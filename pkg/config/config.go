package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all client configuration
type Config struct {
	Client     ClientConfig
	Backend    BackendConfig
	Geocoding  GeocodingConfig
	Routing    RoutingConfig
	Location   LocationConfig
	Polling    PollingConfig
	Tariff     TariffConfig
	Redis      RedisConfig
	Session    SessionConfig
	Resilience ResilienceConfig
	Metrics    MetricsConfig
	Tracing    TracingConfig
	Sentry     SentryConfig
}

// ClientConfig identifies the running front-end
type ClientConfig struct {
	Name        string
	Version     string
	Environment string
	LogLevel    string
}

// BackendConfig points at the booking/driver REST API
type BackendConfig struct {
	BaseURL        string
	RequestTimeout time.Duration
}

// GeocodingConfig configures the Nominatim-compatible geocoder
type GeocodingConfig struct {
	BaseURL           string
	CountryCode       string
	ResultLimit       int
	UserAgent         string
	RequestsPerSecond float64
	Timeout           time.Duration
	DebounceDelay     time.Duration
	ForwardCacheTTL   time.Duration
	ReverseCacheTTL   time.Duration
}

// RoutingConfig configures the OSRM-compatible router
type RoutingConfig struct {
	BaseURL string
	Profile string
	Timeout time.Duration
}

// LocationConfig holds the fallback position and, optionally, a fixed device
// position used in place of a positioning capability.
type LocationConfig struct {
	FallbackLatitude  float64
	FallbackLongitude float64
	DevicePosition    string
}

// PollingConfig holds every poll cadence
type PollingConfig struct {
	StatusInterval       time.Duration
	RequestTimeout       time.Duration
	AvailabilityBaseline time.Duration
	AvailabilityActive   time.Duration
	AvailabilityIdle     time.Duration
}

// TariffConfig holds the flat fare rate
type TariffConfig struct {
	RatePerKm float64
}

// RedisConfig holds Redis configuration for the geocode cache
type RedisConfig struct {
	Enabled  bool
	Host     string
	Port     string
	Password string
	DB       int
}

// SessionConfig locates the persisted session file
type SessionConfig struct {
	Path string
}

// ResilienceConfig groups runtime resilience controls
type ResilienceConfig struct {
	CircuitBreaker CircuitBreakerConfig
}

// CircuitBreakerConfig captures default and per-service breaker tuning
type CircuitBreakerConfig struct {
	Enabled          bool
	FailureThreshold int
	SuccessThreshold int
	TimeoutSeconds   int
	IntervalSeconds  int
	ServiceOverrides map[string]CircuitBreakerSettings
}

// CircuitBreakerSettings overrides defaults for a specific upstream service
type CircuitBreakerSettings struct {
	FailureThreshold int `json:"failure_threshold"`
	SuccessThreshold int `json:"success_threshold"`
	TimeoutSeconds   int `json:"timeout_seconds"`
	IntervalSeconds  int `json:"interval_seconds"`
}

// MetricsConfig enables the ops listener when Addr is set
type MetricsConfig struct {
	Addr string
}

// TracingConfig holds OpenTelemetry exporter settings
type TracingConfig struct {
	Enabled      bool
	OTLPEndpoint string
	SampleRate   float64
}

// SentryConfig holds error reporting settings
type SentryConfig struct {
	DSN        string
	SampleRate float64
}

// Load loads configuration from environment variables
func Load(clientName string) (*Config, error) {
	// Load .env file if it exists
	_ = godotenv.Load()

	cfg := &Config{
		Client: ClientConfig{
			Name:        clientName,
			Version:     getEnv("CLIENT_VERSION", "dev"),
			Environment: getEnv("ENVIRONMENT", "development"),
			LogLevel:    getEnv("LOG_LEVEL", "info"),
		},
		Backend: BackendConfig{
			BaseURL:        strings.TrimRight(getEnv("BACKEND_URL", "http://localhost:3000"), "/"),
			RequestTimeout: getEnvAsDuration("BACKEND_TIMEOUT", 8*time.Second),
		},
		Geocoding: GeocodingConfig{
			BaseURL:           strings.TrimRight(getEnv("GEOCODER_URL", "https://nominatim.openstreetmap.org"), "/"),
			CountryCode:       strings.ToLower(getEnv("GEOCODER_COUNTRY", "lk")),
			ResultLimit:       getEnvAsInt("GEOCODER_LIMIT", 5),
			UserAgent:         getEnv("GEOCODER_USER_AGENT", "ride-booking-client/1.0"),
			RequestsPerSecond: getEnvAsFloat("GEOCODER_RPS", 1),
			Timeout:           getEnvAsDuration("GEOCODER_TIMEOUT", 10*time.Second),
			DebounceDelay:     getEnvAsDuration("SEARCH_DEBOUNCE", 500*time.Millisecond),
			ForwardCacheTTL:   getEnvAsDuration("GEOCODER_SEARCH_CACHE_TTL", time.Hour),
			ReverseCacheTTL:   getEnvAsDuration("GEOCODER_REVERSE_CACHE_TTL", 24*time.Hour),
		},
		Routing: RoutingConfig{
			BaseURL: strings.TrimRight(getEnv("ROUTER_URL", "https://router.project-osrm.org"), "/"),
			Profile: getEnv("ROUTER_PROFILE", "driving"),
			Timeout: getEnvAsDuration("ROUTER_TIMEOUT", 10*time.Second),
		},
		Location: LocationConfig{
			FallbackLatitude:  getEnvAsFloat("FALLBACK_LATITUDE", 6.9271),
			FallbackLongitude: getEnvAsFloat("FALLBACK_LONGITUDE", 79.8612),
			DevicePosition:    getEnv("DEVICE_POSITION", ""),
		},
		Polling: PollingConfig{
			StatusInterval:       getEnvAsDuration("STATUS_POLL_INTERVAL", 3*time.Second),
			RequestTimeout:       getEnvAsDuration("POLL_REQUEST_TIMEOUT", 8*time.Second),
			AvailabilityBaseline: getEnvAsDuration("RIDES_POLL_BASELINE", 5*time.Second),
			AvailabilityActive:   getEnvAsDuration("RIDES_POLL_ACTIVE", time.Second),
			AvailabilityIdle:     getEnvAsDuration("RIDES_POLL_IDLE", 10*time.Second),
		},
		Tariff: TariffConfig{
			RatePerKm: getEnvAsFloat("FARE_RATE_PER_KM", 50),
		},
		Redis: RedisConfig{
			Enabled:  getEnvAsBool("REDIS_ENABLED", false),
			Host:     getEnv("REDIS_HOST", "localhost"),
			Port:     getEnv("REDIS_PORT", "6379"),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getEnvAsInt("REDIS_DB", 0),
		},
		Session: SessionConfig{
			Path: getEnv("SESSION_FILE", ""),
		},
		Resilience: ResilienceConfig{
			CircuitBreaker: CircuitBreakerConfig{
				Enabled:          getEnvAsBool("CB_ENABLED", true),
				FailureThreshold: getEnvAsInt("CB_FAILURE_THRESHOLD", 5),
				SuccessThreshold: getEnvAsInt("CB_SUCCESS_THRESHOLD", 1),
				TimeoutSeconds:   getEnvAsInt("CB_TIMEOUT_SECONDS", 30),
				IntervalSeconds:  getEnvAsInt("CB_INTERVAL_SECONDS", 60),
			},
		},
		Metrics: MetricsConfig{
			Addr: getEnv("METRICS_ADDR", ""),
		},
		Tracing: TracingConfig{
			Enabled:      getEnvAsBool("TRACING_ENABLED", false),
			OTLPEndpoint: getEnv("OTEL_EXPORTER_OTLP_ENDPOINT", "localhost:4317"),
			SampleRate:   getEnvAsFloat("OTEL_TRACE_SAMPLE_RATE", 1),
		},
		Sentry: SentryConfig{
			DSN:        getEnv("SENTRY_DSN", ""),
			SampleRate: getEnvAsFloat("SENTRY_SAMPLE_RATE", 1),
		},
	}

	if breakerOverrides := getEnv("CB_SERVICE_OVERRIDES", ""); breakerOverrides != "" {
		var serviceConfig map[string]CircuitBreakerSettings
		if err := json.Unmarshal([]byte(breakerOverrides), &serviceConfig); err != nil {
			return nil, fmt.Errorf("invalid CB_SERVICE_OVERRIDES value: %w", err)
		}
		cfg.Resilience.CircuitBreaker.ServiceOverrides = serviceConfig
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate checks ranges that would otherwise surface as confusing runtime failures.
func (c *Config) Validate() error {
	var errs []error

	if c.Location.FallbackLatitude < -90 || c.Location.FallbackLatitude > 90 {
		errs = append(errs, fmt.Errorf("FALLBACK_LATITUDE must be within [-90, 90], got %v", c.Location.FallbackLatitude))
	}
	if c.Location.FallbackLongitude < -180 || c.Location.FallbackLongitude > 180 {
		errs = append(errs, fmt.Errorf("FALLBACK_LONGITUDE must be within [-180, 180], got %v", c.Location.FallbackLongitude))
	}
	if c.Geocoding.ResultLimit <= 0 || c.Geocoding.ResultLimit > 50 {
		errs = append(errs, fmt.Errorf("GEOCODER_LIMIT must be within [1, 50], got %d", c.Geocoding.ResultLimit))
	}
	if c.Geocoding.RequestsPerSecond <= 0 {
		errs = append(errs, fmt.Errorf("GEOCODER_RPS must be positive, got %v", c.Geocoding.RequestsPerSecond))
	}
	if c.Geocoding.UserAgent == "" {
		errs = append(errs, errors.New("GEOCODER_USER_AGENT must not be empty"))
	}
	if c.Tariff.RatePerKm < 0 {
		errs = append(errs, fmt.Errorf("FARE_RATE_PER_KM must not be negative, got %v", c.Tariff.RatePerKm))
	}

	durations := map[string]time.Duration{
		"BACKEND_TIMEOUT":      c.Backend.RequestTimeout,
		"SEARCH_DEBOUNCE":      c.Geocoding.DebounceDelay,
		"STATUS_POLL_INTERVAL": c.Polling.StatusInterval,
		"POLL_REQUEST_TIMEOUT": c.Polling.RequestTimeout,
		"RIDES_POLL_BASELINE":  c.Polling.AvailabilityBaseline,
		"RIDES_POLL_ACTIVE":    c.Polling.AvailabilityActive,
		"RIDES_POLL_IDLE":      c.Polling.AvailabilityIdle,
	}
	for _, key := range []string{
		"BACKEND_TIMEOUT", "SEARCH_DEBOUNCE", "STATUS_POLL_INTERVAL", "POLL_REQUEST_TIMEOUT",
		"RIDES_POLL_BASELINE", "RIDES_POLL_ACTIVE", "RIDES_POLL_IDLE",
	} {
		if durations[key] <= 0 {
			errs = append(errs, fmt.Errorf("%s must be positive, got %s", key, durations[key]))
		}
	}

	return errors.Join(errs...)
}

// SettingsFor returns effective breaker settings for a specific upstream service name
func (c CircuitBreakerConfig) SettingsFor(service string) CircuitBreakerSettings {
	settings := CircuitBreakerSettings{
		FailureThreshold: c.FailureThreshold,
		SuccessThreshold: c.SuccessThreshold,
		TimeoutSeconds:   c.TimeoutSeconds,
		IntervalSeconds:  c.IntervalSeconds,
	}

	if override, ok := c.ServiceOverrides[service]; ok {
		if override.FailureThreshold > 0 {
			settings.FailureThreshold = override.FailureThreshold
		}
		if override.SuccessThreshold > 0 {
			settings.SuccessThreshold = override.SuccessThreshold
		}
		if override.TimeoutSeconds > 0 {
			settings.TimeoutSeconds = override.TimeoutSeconds
		}
		if override.IntervalSeconds > 0 {
			settings.IntervalSeconds = override.IntervalSeconds
		}
	}

	if settings.SuccessThreshold <= 0 {
		settings.SuccessThreshold = 1
	}
	if settings.FailureThreshold <= 0 {
		settings.FailureThreshold = 5
	}
	if settings.TimeoutSeconds <= 0 {
		settings.TimeoutSeconds = 30
	}
	if settings.IntervalSeconds <= 0 {
		settings.IntervalSeconds = 60
	}

	return settings
}

// RedisAddr returns the Redis address
func (c *RedisConfig) RedisAddr() string {
	return fmt.Sprintf("%s:%s", c.Host, c.Port)
}

// Helper functions
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := getEnv(key, "")
	if value, err := strconv.Atoi(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	valueStr := getEnv(key, "")
	if value, err := strconv.ParseFloat(valueStr, 64); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := getEnv(key, "")
	if value, err := strconv.ParseBool(valueStr); err == nil {
		return value
	}
	return defaultValue
}

// getEnvAsDuration accepts Go duration strings ("750ms") or bare seconds ("8").
func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return defaultValue
	}
	if value, err := time.ParseDuration(valueStr); err == nil {
		return value
	}
	if seconds, err := strconv.Atoi(valueStr); err == nil {
		return time.Duration(seconds) * time.Second
	}
	return defaultValue
}
