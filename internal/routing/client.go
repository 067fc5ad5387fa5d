package routing

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"net/url"
	"time"

	"github.com/richxcame/ride-booking-client/internal/location"
	"github.com/richxcame/ride-booking-client/pkg/common"
	"github.com/richxcame/ride-booking-client/pkg/httpclient"
	"github.com/richxcame/ride-booking-client/pkg/resilience"
	"github.com/richxcame/ride-booking-client/pkg/tracing"
)

const tracerName = "routing"

// ErrNoRoute is returned when the router finds no path between the points.
var ErrNoRoute = errors.New("no route found")

// Estimate is the first route candidate between two points.
type Estimate struct {
	DistanceKm  float64
	DurationMin int
	Geometry    []location.Coordinate
}

// Config configures an OSRM-compatible router.
type Config struct {
	BaseURL string
	Profile string
	Timeout time.Duration
}

// Client queries /route/v1/{profile}/{lon},{lat};{lon},{lat}.
type Client struct {
	http    *httpclient.Client
	profile string
	breaker *resilience.CircuitBreaker
}

// NewClient creates a router client. breaker may be nil.
func NewClient(cfg Config, breaker *resilience.CircuitBreaker) *Client {
	profile := cfg.Profile
	if profile == "" {
		profile = "driving"
	}
	return &Client{
		http:    httpclient.NewClient(cfg.BaseURL, cfg.Timeout),
		profile: profile,
		breaker: breaker,
	}
}

type routeResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Routes  []struct {
		Distance float64 `json:"distance"`
		Duration float64 `json:"duration"`
		Geometry struct {
			Coordinates [][]float64 `json:"coordinates"`
		} `json:"geometry"`
	} `json:"routes"`
}

// Route returns the estimate for the first candidate route.
func (c *Client) Route(ctx context.Context, from, to location.Coordinate) (*Estimate, error) {
	path := fmt.Sprintf("/route/v1/%s/%.6f,%.6f;%.6f,%.6f?%s",
		url.PathEscape(c.profile),
		from.Longitude, from.Latitude, to.Longitude, to.Latitude,
		url.Values{"overview": {"full"}, "geometries": {"geojson"}}.Encode(),
	)

	var estimate *Estimate
	err := tracing.TraceExternalAPI(ctx, tracerName, "osrm", "route", func(ctx context.Context) error {
		body, err := resilience.Call(ctx, c.breaker, func(ctx context.Context) ([]byte, error) {
			return c.http.Get(ctx, path, nil)
		})
		if err != nil {
			// OSRM answers NoRoute with a 400 and a JSON body
			if httpclient.StatusCode(err) == 400 && isNoRouteBody(err) {
				return ErrNoRoute
			}
			return err
		}

		var resp routeResponse
		if err := json.Unmarshal(body, &resp); err != nil {
			return fmt.Errorf("decode route response: %w", err)
		}
		if resp.Code != "Ok" || len(resp.Routes) == 0 {
			return ErrNoRoute
		}

		first := resp.Routes[0]
		estimate = &Estimate{
			DistanceKm:  DistanceKm(first.Distance),
			DurationMin: DurationMinutes(first.Duration),
			Geometry:    geometry(first.Geometry.Coordinates),
		}
		return nil
	})
	if errors.Is(err, ErrNoRoute) {
		return nil, ErrNoRoute
	}
	if err != nil {
		return nil, common.NewExternalError("route estimate failed", err)
	}
	return estimate, nil
}

func isNoRouteBody(err error) bool {
	var httpErr *httpclient.HTTPError
	if !errors.As(err, &httpErr) {
		return false
	}
	var resp routeResponse
	return json.Unmarshal([]byte(httpErr.Body), &resp) == nil && resp.Code == "NoRoute"
}

// geometry converts GeoJSON [lon, lat] pairs.
func geometry(coords [][]float64) []location.Coordinate {
	out := make([]location.Coordinate, 0, len(coords))
	for _, pair := range coords {
		if len(pair) < 2 {
			continue
		}
		out = append(out, location.Coordinate{Latitude: pair[1], Longitude: pair[0]})
	}
	return out
}

// DistanceKm converts meters to kilometers rounded to two decimals.
func DistanceKm(meters float64) float64 {
	if meters <= 0 {
		return 0
	}
	return math.Round(meters/10) / 100
}

// DurationMinutes converts seconds to whole minutes, rounding up.
func DurationMinutes(seconds float64) int {
	if seconds <= 0 {
		return 0
	}
	return int(math.Ceil(seconds / 60))
}
