package rider

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/richxcame/ride-booking-client/internal/backend"
	"github.com/richxcame/ride-booking-client/internal/geocoding"
	"github.com/richxcame/ride-booking-client/internal/location"
	"github.com/richxcame/ride-booking-client/internal/routing"
	"github.com/stretchr/testify/mock"
)

type mockFetcher struct {
	mock.Mock
	statusCalls atomic.Int32
	getCalls    atomic.Int32
}

func (m *mockFetcher) BookingStatus(ctx context.Context, token, id string) (*backend.Booking, error) {
	m.statusCalls.Add(1)
	args := m.Called(ctx, token, id)
	b, _ := args.Get(0).(*backend.Booking)
	return b, args.Error(1)
}

func (m *mockFetcher) GetBooking(ctx context.Context, token, id string) (*backend.Booking, error) {
	m.getCalls.Add(1)
	args := m.Called(ctx, token, id)
	b, _ := args.Get(0).(*backend.Booking)
	return b, args.Error(1)
}

type mockBookings struct {
	mockFetcher
}

func (m *mockBookings) CreateBooking(ctx context.Context, token string, req backend.CreateBookingRequest) (string, error) {
	args := m.Called(ctx, token, req)
	return args.String(0), args.Error(1)
}

type mockRouter struct {
	mock.Mock
}

func (m *mockRouter) Route(ctx context.Context, from, to location.Coordinate) (*routing.Estimate, error) {
	args := m.Called(ctx, from, to)
	e, _ := args.Get(0).(*routing.Estimate)
	return e, args.Error(1)
}

type stubGeocoder struct{}

func (stubGeocoder) Search(context.Context, string) ([]geocoding.Place, error) { return nil, nil }

type stubReverse struct{ name string }

func (s stubReverse) Reverse(context.Context, location.Coordinate) (string, error) {
	return s.name, nil
}

type recorder struct {
	mu        sync.Mutex
	alerts    []string
	redirects []string
	centers   []location.Coordinate
	drawn     int
	cleared   int
	clearErr  error
}

func (r *recorder) Alert(msg string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.alerts = append(r.alerts, msg)
}

func (r *recorder) Redirect(path string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.redirects = append(r.redirects, path)
}

func (r *recorder) Recenter(c location.Coordinate) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.centers = append(r.centers, c)
}

func (r *recorder) DrawRoute([]location.Coordinate) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.drawn++
	return nil
}

func (r *recorder) ClearRoute() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.cleared++
	return r.clearErr
}

func (r *recorder) Alerts() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.alerts...)
}

type captureReporter struct {
	mu     sync.Mutex
	errors []error
}

func (c *captureReporter) Capture(_ context.Context, err error, _ map[string]interface{}) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.errors = append(c.errors, err)
}

func (c *captureReporter) count() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.errors)
}
