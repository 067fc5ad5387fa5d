package location

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/richxcame/ride-booking-client/pkg/validation"
)

// Coordinate is a WGS84 point. Construct through NewCoordinate to get range checks.
type Coordinate struct {
	Latitude  float64 `json:"lat"`
	Longitude float64 `json:"lng"`
}

// NewCoordinate validates lat/lng ranges.
func NewCoordinate(latitude, longitude float64) (Coordinate, error) {
	if err := validation.ValidateCoordinates(latitude, longitude); err != nil {
		return Coordinate{}, err
	}
	return Coordinate{Latitude: latitude, Longitude: longitude}, nil
}

// ParseCoordinate parses "lat,lng".
func ParseCoordinate(s string) (Coordinate, error) {
	parts := strings.Split(s, ",")
	if len(parts) != 2 {
		return Coordinate{}, fmt.Errorf("coordinate %q: expected \"lat,lng\"", s)
	}
	lat, err := strconv.ParseFloat(strings.TrimSpace(parts[0]), 64)
	if err != nil {
		return Coordinate{}, fmt.Errorf("coordinate %q: latitude: %w", s, err)
	}
	lng, err := strconv.ParseFloat(strings.TrimSpace(parts[1]), 64)
	if err != nil {
		return Coordinate{}, fmt.Errorf("coordinate %q: longitude: %w", s, err)
	}
	return NewCoordinate(lat, lng)
}

// Equal reports whether both points are identical.
func (c Coordinate) Equal(other Coordinate) bool {
	return c.Latitude == other.Latitude && c.Longitude == other.Longitude
}

func (c Coordinate) String() string {
	return fmt.Sprintf("%.6f,%.6f", c.Latitude, c.Longitude)
}
