package location

import (
	"context"

	"github.com/richxcame/ride-booking-client/pkg/common"
	"github.com/richxcame/ride-booking-client/pkg/logger"
	"go.uber.org/zap"
)

// UnknownLocation is shown when a position cannot be named.
const UnknownLocation = "Unknown Location"

// Locator answers a single current-position query.
type Locator interface {
	Locate(ctx context.Context) (Coordinate, error)
}

// ReverseGeocoder names a coordinate.
type ReverseGeocoder interface {
	Reverse(ctx context.Context, c Coordinate) (string, error)
}

// StaticLocator reports a fixed device position.
type StaticLocator struct {
	Position Coordinate
}

// Locate implements Locator.
func (s StaticLocator) Locate(ctx context.Context) (Coordinate, error) {
	if err := ctx.Err(); err != nil {
		return Coordinate{}, err
	}
	return s.Position, nil
}

// UnavailableLocator models a device without positioning.
type UnavailableLocator struct{}

// Locate implements Locator.
func (UnavailableLocator) Locate(context.Context) (Coordinate, error) {
	return Coordinate{}, common.ErrUnavailable
}

// Resolution is the outcome of Resolve.
type Resolution struct {
	Position  Coordinate
	PlaceName string
	// Fallback is true when the configured fallback position was used.
	Fallback bool
}

// Resolver determines the starting position of a screen.
type Resolver struct {
	locator  Locator
	geocoder ReverseGeocoder
	fallback Coordinate
}

// NewResolver creates a resolver. A nil locator behaves as UnavailableLocator.
func NewResolver(locator Locator, geocoder ReverseGeocoder, fallback Coordinate) *Resolver {
	if locator == nil {
		locator = UnavailableLocator{}
	}
	return &Resolver{locator: locator, geocoder: geocoder, fallback: fallback}
}

// Resolve makes one positioning attempt. On failure the fallback coordinate is
// returned and no reverse lookup is made. It never returns an error.
func (r *Resolver) Resolve(ctx context.Context) Resolution {
	position, err := r.locator.Locate(ctx)
	if err != nil {
		logger.DebugContext(ctx, "device position unavailable, using fallback",
			zap.Error(err),
			zap.Stringer("fallback", r.fallback),
		)
		return Resolution{Position: r.fallback, Fallback: true}
	}

	return Resolution{
		Position:  position,
		PlaceName: r.PlaceName(ctx, position),
	}
}

// PlaceName reverse geocodes c, degrading to UnknownLocation.
func (r *Resolver) PlaceName(ctx context.Context, c Coordinate) string {
	if r.geocoder == nil {
		return UnknownLocation
	}
	name, err := r.geocoder.Reverse(ctx, c)
	if err != nil || name == "" {
		logger.WarnContext(ctx, "reverse geocoding failed", zap.Stringer("position", c), zap.Error(err))
		return UnknownLocation
	}
	return name
}
