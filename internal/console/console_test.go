package console

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/richxcame/ride-booking-client/internal/backend"
	"github.com/richxcame/ride-booking-client/internal/driver"
	"github.com/richxcame/ride-booking-client/internal/geocoding"
	"github.com/richxcame/ride-booking-client/internal/location"
	"github.com/richxcame/ride-booking-client/internal/rider"
	"github.com/richxcame/ride-booking-client/internal/routing"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse(t *testing.T) {
	tests := []struct {
		line string
		want Command
		ok   bool
	}{
		{"", Command{}, false},
		{"   ", Command{}, false},
		{"quit", Command{Name: "quit", Args: []string{}}, true},
		{"Search  Galle   Face", Command{Name: "search", Args: []string{"Galle", "Face"}, Rest: "Galle   Face"}, true},
		{"accept r1", Command{Name: "accept", Args: []string{"r1"}, Rest: "r1"}, true},
	}
	for _, tt := range tests {
		t.Run(tt.line, func(t *testing.T) {
			got, ok := Parse(tt.line)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestRun_StopsOnHandlerAndEOF(t *testing.T) {
	var seen []string
	err := Run(context.Background(), strings.NewReader("one\n\ntwo\nquit\nthree\n"), nil, func(_ context.Context, cmd Command) bool {
		seen = append(seen, cmd.Name)
		return cmd.Name != "quit"
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"one", "two", "quit"}, seen)

	seen = nil
	err = Run(context.Background(), strings.NewReader("a\nb"), nil, func(_ context.Context, cmd Command) bool {
		seen = append(seen, cmd.Name)
		return true
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, seen)
}

func TestConsole_Presenter(t *testing.T) {
	var buf bytes.Buffer
	c := New(&buf)

	c.Alert("Please choose a destination first.")
	c.Redirect(rider.LoginPath)
	c.Recenter(location.Coordinate{Latitude: 6.9271, Longitude: 79.8612})
	require.NoError(t, c.DrawRoute([]location.Coordinate{{}, {}, {}}))
	assert.Equal(t, 3, c.RouteLen())
	require.NoError(t, c.ClearRoute())
	assert.Zero(t, c.RouteLen())

	out := buf.String()
	assert.Contains(t, out, "! Please choose a destination first.")
	assert.Contains(t, out, "login <token>")
	assert.Contains(t, out, "map centred on 6.927100,79.861200")
	assert.Contains(t, out, "route drawn with 3 points")
}

func TestConsole_RiderState(t *testing.T) {
	var buf bytes.Buffer
	c := New(&buf)
	pos := location.Coordinate{Latitude: 6.9271, Longitude: 79.8612}
	dest := location.Coordinate{Latitude: 7.2906, Longitude: 80.6337}

	c.RiderState(rider.State{
		Position:        &pos,
		PlaceName:       "Fort",
		Destination:     &dest,
		DestinationName: "Kandy",
		Estimate:        &routing.Estimate{DistanceKm: 12.34, DurationMin: 25},
		Fare:            617,
		BookingID:       "b1",
		Status:          backend.StatusPending,
		Poll:            rider.StatePolling,
	})

	out := buf.String()
	assert.Contains(t, out, "from: Fort (6.927100,79.861200)")
	assert.Contains(t, out, "to:   Kandy")
	assert.Contains(t, out, "trip: 12.34 km, 25 min, fare 617.00")
	assert.Contains(t, out, "booking b1: PENDING (polling)")
}

func TestConsole_DriverStateAndSuggestions(t *testing.T) {
	var buf bytes.Buffer
	c := New(&buf)

	c.DriverState(driver.State{
		Profile:   &backend.DriverProfile{Name: "Nimal"},
		Available: true,
		Poll:      driver.StatePolling,
		Rides:     []backend.Booking{{ID: "r1", StartLocation: "Fort", EndLocation: "Kandy", Distance: 1.5, EstimatedFare: 75}},
	})
	c.Suggestions("Col", []geocoding.Place{{Label: "Colombo"}, {Label: "Colombo 7"}})
	c.Suggestions("zzz", nil)

	out := buf.String()
	assert.Contains(t, out, "Nimal is online (poller polling)")
	assert.Contains(t, out, "[r1] Fort -> Kandy, 1.50 km, 0 min, fare 75.00")
	assert.Contains(t, out, "  2. Colombo 7")
	assert.Contains(t, out, `no places match "zzz"`)
}
