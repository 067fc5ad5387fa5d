// Package health checks the reachability of the services the screens use.
package health

import (
	"context"
	"fmt"
	"net/http"
	"sort"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/richxcame/ride-booking-client/pkg/resilience"
)

// Checker returns an error if the dependency is unhealthy
type Checker func(ctx context.Context) error

// CheckerConfig holds configuration for health checkers
type CheckerConfig struct {
	Timeout time.Duration
}

// DefaultCheckerConfig returns default configuration for health checkers
func DefaultCheckerConfig() CheckerConfig {
	return CheckerConfig{
		Timeout: 2 * time.Second,
	}
}

// RedisChecker pings the geocode cache.
func RedisChecker(client *redis.Client) Checker {
	return func(ctx context.Context) error {
		if client == nil {
			return fmt.Errorf("redis client is nil")
		}
		if err := client.Ping(ctx).Err(); err != nil {
			return fmt.Errorf("redis ping failed: %w", err)
		}
		return nil
	}
}

// HTTPEndpointChecker returns a health check function for HTTP endpoints.
// Any response below 500 counts as reachable.
func HTTPEndpointChecker(url string, cfg CheckerConfig) Checker {
	client := &http.Client{
		Timeout: cfg.Timeout,
		CheckRedirect: func(req *http.Request, via []*http.Request) error {
			return http.ErrUseLastResponse // Don't follow redirects
		},
	}

	return func(ctx context.Context) error {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
		if err != nil {
			return fmt.Errorf("failed to create request: %w", err)
		}

		resp, err := client.Do(req)
		if err != nil {
			return fmt.Errorf("http request failed: %w", err)
		}
		defer resp.Body.Close()

		if resp.StatusCode >= 500 {
			return fmt.Errorf("unhealthy status code: %d", resp.StatusCode)
		}
		return nil
	}
}

// BreakerChecker fails while the breaker is open.
func BreakerChecker(breaker *resilience.CircuitBreaker) Checker {
	return func(context.Context) error {
		if !breaker.Allow() {
			return fmt.Errorf("%s: %w", breaker.Name(), resilience.ErrCircuitOpen)
		}
		return nil
	}
}

// CachedChecker caches the result of a health check for a given duration
type CachedChecker struct {
	checker  Checker
	cacheTTL time.Duration

	mu         sync.Mutex
	lastCheck  time.Time
	lastResult error
}

// NewCachedChecker creates a new cached health checker
func NewCachedChecker(checker Checker, cacheTTL time.Duration) *CachedChecker {
	return &CachedChecker{
		checker:  checker,
		cacheTTL: cacheTTL,
	}
}

// Check runs the health check, using cached result if still valid
func (c *CachedChecker) Check(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := time.Now()
	if !c.lastCheck.IsZero() && now.Sub(c.lastCheck) < c.cacheTTL {
		return c.lastResult
	}

	c.lastResult = c.checker(ctx)
	c.lastCheck = now
	return c.lastResult
}

// CheckStatus represents the status of a single health check
type CheckStatus struct {
	Name     string `json:"name"`
	Status   string `json:"status"`
	Message  string `json:"message,omitempty"`
	Duration string `json:"duration"`
}

// Report is the outcome of Run.
type Report struct {
	Status string        `json:"status"`
	Checks []CheckStatus `json:"checks,omitempty"`
}

// Healthy reports whether every check passed.
func (r Report) Healthy() bool {
	return r.Status == "healthy"
}

// Run executes the checks in parallel, each bounded by cfg.Timeout. A
// failing check makes the report "degraded".
func Run(ctx context.Context, cfg CheckerConfig, checks map[string]Checker) Report {
	type checkResult struct {
		name     string
		err      error
		duration time.Duration
	}

	resultChan := make(chan checkResult, len(checks))
	var wg sync.WaitGroup

	for name, checker := range checks {
		wg.Add(1)
		go func(n string, check Checker) {
			defer wg.Done()
			checkCtx, cancel := context.WithTimeout(ctx, cfg.Timeout)
			defer cancel()
			start := time.Now()
			err := check(checkCtx)
			resultChan <- checkResult{name: n, err: err, duration: time.Since(start)}
		}(name, checker)
	}

	wg.Wait()
	close(resultChan)

	report := Report{Status: "healthy"}
	for result := range resultChan {
		status := CheckStatus{Name: result.name, Status: "healthy", Duration: result.duration.String()}
		if result.err != nil {
			status.Status = "unhealthy"
			status.Message = result.err.Error()
			report.Status = "degraded"
		}
		report.Checks = append(report.Checks, status)
	}
	sort.Slice(report.Checks, func(i, j int) bool { return report.Checks[i].Name < report.Checks[j].Name })
	return report
}
