// Package pricing computes the displayed fare estimate. The backend remains
// the fare authority; this value is sent with the booking request.
package pricing

import "math"

// DefaultRatePerKm is the flat per-kilometer rate.
const DefaultRatePerKm = 50.0

// Tariff is a flat distance-based rate.
type Tariff struct {
	RatePerKm float64
}

// DefaultTariff returns the standard tariff.
func DefaultTariff() Tariff {
	return Tariff{RatePerKm: DefaultRatePerKm}
}

// Fare returns round(distanceKm, 2) × rate, rounded to two decimals and never negative.
func (t Tariff) Fare(distanceKm float64) float64 {
	if distanceKm <= 0 || t.RatePerKm <= 0 {
		return 0
	}
	return Round2(Round2(distanceKm) * t.RatePerKm)
}

// Round2 rounds to two decimal places.
func Round2(v float64) float64 {
	return math.Round(v*100) / 100
}
