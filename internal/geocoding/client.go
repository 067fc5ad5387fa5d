package geocoding

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/richxcame/ride-booking-client/internal/location"
	"github.com/richxcame/ride-booking-client/pkg/cache"
	"github.com/richxcame/ride-booking-client/pkg/common"
	"github.com/richxcame/ride-booking-client/pkg/httpclient"
	"github.com/richxcame/ride-booking-client/pkg/logger"
	redisClient "github.com/richxcame/ride-booking-client/pkg/redis"
	"github.com/richxcame/ride-booking-client/pkg/resilience"
	"github.com/richxcame/ride-booking-client/pkg/tracing"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

const (
	tracerName  = "geocoding"
	serviceName = "nominatim"
)

// Config configures a Nominatim-compatible geocoder.
type Config struct {
	BaseURL           string
	CountryCode       string
	Limit             int
	UserAgent         string
	RequestsPerSecond float64
	Timeout           time.Duration
	ForwardCacheTTL   time.Duration
	ReverseCacheTTL   time.Duration
}

// Place is one forward geocoding candidate.
type Place struct {
	Label       string              `json:"label"`
	DisplayName string              `json:"display_name"`
	Position    location.Coordinate `json:"position"`
}

// Client performs forward and reverse geocoding.
type Client struct {
	http    *httpclient.Client
	cfg     Config
	limiter *rate.Limiter
	cache   *cache.Manager
	breaker *resilience.CircuitBreaker
}

// NewClient builds a geocoder. store and breaker are optional.
func NewClient(cfg Config, store redisClient.ClientInterface, breaker *resilience.CircuitBreaker) *Client {
	limit := rate.Inf
	if cfg.RequestsPerSecond > 0 {
		limit = rate.Limit(cfg.RequestsPerSecond)
	}
	return &Client{
		http:    httpclient.NewClient(cfg.BaseURL, cfg.Timeout, httpclient.WithUserAgent(cfg.UserAgent)),
		cfg:     cfg,
		limiter: rate.NewLimiter(limit, 1),
		cache:   cache.NewManager(store),
		breaker: breaker,
	}
}

type searchEntry struct {
	Name        string            `json:"name"`
	DisplayName string            `json:"display_name"`
	Lat         string            `json:"lat"`
	Lon         string            `json:"lon"`
	Address     map[string]string `json:"address"`
}

type reverseResponse struct {
	Name        string            `json:"name"`
	DisplayName string            `json:"display_name"`
	Address     map[string]string `json:"address"`
	Error       string            `json:"error"`
}

// Search returns up to Limit places matching query in the configured
// country, in the service's rank order. While the breaker is open it
// returns no places and no error, and nothing is cached.
func (c *Client) Search(ctx context.Context, query string) ([]Place, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, nil
	}

	cacheKey := c.searchCacheKey(query)
	var cached []Place
	if c.cacheGet(ctx, cacheKey, &cached) {
		return cached, nil
	}

	params := url.Values{}
	params.Set("q", query)
	params.Set("format", "jsonv2")
	params.Set("addressdetails", "1")
	params.Set("limit", strconv.Itoa(c.cfg.Limit))
	if c.cfg.CountryCode != "" {
		params.Set("countrycodes", c.cfg.CountryCode)
	}

	if err := c.limiter.Wait(ctx); err != nil {
		return nil, common.NewExternalError("destination search failed", err)
	}

	degraded := false
	places, err := resilience.CallWithFallback(ctx, c.breaker, func(ctx context.Context) ([]Place, error) {
		return c.search(ctx, "/search?"+params.Encode())
	}, func(ctx context.Context, err error) ([]Place, error) {
		degraded = true
		logger.DebugContext(ctx, "geocoder circuit open, no suggestions", zap.String("query", query), zap.Error(err))
		return []Place{}, nil
	})
	if err != nil {
		return nil, common.NewExternalError("destination search failed", err)
	}

	if !degraded {
		c.cacheSet(ctx, cacheKey, places, c.cfg.ForwardCacheTTL)
	}
	return places, nil
}

func (c *Client) search(ctx context.Context, path string) ([]Place, error) {
	var places []Place
	err := tracing.TraceExternalAPI(ctx, tracerName, serviceName, "search", func(ctx context.Context) error {
		body, err := c.http.Get(ctx, path, nil)
		if err != nil {
			return err
		}

		var entries []searchEntry
		if err := json.Unmarshal(body, &entries); err != nil {
			return fmt.Errorf("decode search response: %w", err)
		}

		places = make([]Place, 0, len(entries))
		for _, e := range entries {
			place, ok := e.toPlace()
			if !ok {
				continue
			}
			places = append(places, place)
			if c.cfg.Limit > 0 && len(places) == c.cfg.Limit {
				break
			}
		}
		return nil
	})
	return places, err
}

// Reverse names a coordinate: the place name, then address parts, then the
// full display name.
func (c *Client) Reverse(ctx context.Context, coord location.Coordinate) (string, error) {
	cacheKey := c.reverseCacheKey(coord)
	var name string
	if cacheKey != "" && c.cacheGet(ctx, cacheKey, &name) && name != "" {
		return name, nil
	}

	params := url.Values{}
	params.Set("lat", strconv.FormatFloat(coord.Latitude, 'f', 6, 64))
	params.Set("lon", strconv.FormatFloat(coord.Longitude, 'f', 6, 64))
	params.Set("format", "jsonv2")

	err := tracing.TraceExternalAPI(ctx, tracerName, serviceName, "reverse", func(ctx context.Context) error {
		body, err := c.get(ctx, "/reverse?"+params.Encode())
		if err != nil {
			return err
		}

		var resp reverseResponse
		if err := json.Unmarshal(body, &resp); err != nil {
			return fmt.Errorf("decode reverse response: %w", err)
		}
		if resp.Error != "" {
			return fmt.Errorf("reverse geocoding: %s", resp.Error)
		}

		name = placeName(resp.Name, resp.Address, resp.DisplayName)
		if name == "" {
			return fmt.Errorf("reverse geocoding returned no name for %s", coord)
		}
		return nil
	})
	if err != nil {
		return "", common.NewExternalError("reverse geocoding failed", err)
	}

	if cacheKey != "" {
		c.cacheSet(ctx, cacheKey, name, c.cfg.ReverseCacheTTL)
	}
	return name, nil
}

func (c *Client) get(ctx context.Context, path string) ([]byte, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}
	return resilience.Call(ctx, c.breaker, func(ctx context.Context) ([]byte, error) {
		return c.http.Get(ctx, path, nil)
	})
}

func (e searchEntry) toPlace() (Place, bool) {
	lat, err := strconv.ParseFloat(e.Lat, 64)
	if err != nil {
		return Place{}, false
	}
	lon, err := strconv.ParseFloat(e.Lon, 64)
	if err != nil {
		return Place{}, false
	}
	position, err := location.NewCoordinate(lat, lon)
	if err != nil {
		return Place{}, false
	}

	label := placeName(e.Name, e.Address, e.DisplayName)
	return Place{Label: label, DisplayName: e.DisplayName, Position: position}, true
}

var addressParts = []string{"road", "suburb", "neighbourhood", "city", "town", "village"}

func placeName(name string, address map[string]string, displayName string) string {
	if name = strings.TrimSpace(name); name != "" {
		return name
	}

	parts := make([]string, 0, 2)
	for _, key := range addressParts {
		if v := strings.TrimSpace(address[key]); v != "" {
			parts = append(parts, v)
		}
		if len(parts) == 2 {
			break
		}
	}
	if len(parts) > 0 {
		return strings.Join(parts, ", ")
	}

	return strings.TrimSpace(displayName)
}

func (c *Client) cacheGet(ctx context.Context, key string, dst interface{}) bool {
	hit, err := c.cache.Get(ctx, key, dst)
	if err != nil {
		logger.WarnContext(ctx, "geocode cache read failed", zap.String("key", key), zap.Error(err))
	}
	return hit
}

func (c *Client) cacheSet(ctx context.Context, key string, value interface{}, ttl time.Duration) {
	if err := c.cache.Set(ctx, key, value, ttl); err != nil {
		logger.WarnContext(ctx, "geocode cache write failed", zap.String("key", key), zap.Error(err))
	}
}
