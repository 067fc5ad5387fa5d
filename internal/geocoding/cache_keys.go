package geocoding

import (
	"strings"

	"github.com/richxcame/ride-booking-client/internal/location"
	"github.com/uber/h3-go/v4"
)

const (
	cachePrefix = "geocode:"

	// ReverseCellResolution groups coordinates ~65m apart under one reverse
	// lookup (H3 resolution 10).
	ReverseCellResolution = 10
)

func (c *Client) searchCacheKey(query string) string {
	normalized := strings.Join(strings.Fields(strings.ToLower(query)), " ")
	return cachePrefix + "search:" + c.cfg.CountryCode + ":" + normalized
}

// reverseCacheKey returns "" when the coordinate cannot be indexed.
func (c *Client) reverseCacheKey(coord location.Coordinate) string {
	cell, err := h3.LatLngToCell(h3.NewLatLng(coord.Latitude, coord.Longitude), ReverseCellResolution)
	if err != nil {
		return ""
	}
	return cachePrefix + "reverse:" + cell.String()
}
