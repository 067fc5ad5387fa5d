package pricing

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTariff_Fare(t *testing.T) {
	tariff := DefaultTariff()

	tests := []struct {
		name       string
		distanceKm float64
		want       float64
	}{
		{"booking scenario", 12.34, 617.00},
		{"zero", 0, 0},
		{"negative clamps", -3.5, 0},
		{"rounds distance first", 1.004, 50.00},
		{"one km", 1, 50},
		{"long trip", 115.67, 5783.50},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, tariff.Fare(tt.distanceKm), 1e-9)
		})
	}
}

func TestTariff_ZeroRate(t *testing.T) {
	assert.Zero(t, Tariff{}.Fare(10))
}

func TestFare_NeverNegative(t *testing.T) {
	tariff := DefaultTariff()
	for d := -10.0; d <= 10; d += 0.37 {
		assert.GreaterOrEqual(t, tariff.Fare(d), 0.0)
	}
}
