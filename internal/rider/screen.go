// Package rider implements the rider screen: destination search, route and
// fare estimate, booking submission and driver assignment polling.
package rider

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/richxcame/ride-booking-client/internal/backend"
	"github.com/richxcame/ride-booking-client/internal/geocoding"
	"github.com/richxcame/ride-booking-client/internal/location"
	"github.com/richxcame/ride-booking-client/internal/pricing"
	"github.com/richxcame/ride-booking-client/internal/routing"
	"github.com/richxcame/ride-booking-client/internal/search"
	"github.com/richxcame/ride-booking-client/internal/session"
	"github.com/richxcame/ride-booking-client/pkg/common"
	apperrors "github.com/richxcame/ride-booking-client/pkg/errors"
	"github.com/richxcame/ride-booking-client/pkg/logger"
	"go.uber.org/zap"
)

// LoginPath is where the presenter is sent when the session is rejected.
const LoginPath = "/login"

// User-facing messages
const (
	msgChooseDestination = "Please choose a destination first."
	msgEstimatePending   = "The route estimate is not ready yet."
	msgLoginRequired     = "Please log in to book a ride."
	msgSubmitInProgress  = "Your booking is already being submitted."
	msgBookingActive     = "You already have a booking in progress."
	msgMissingBookingID  = "Booking failed: the server did not return a booking reference."
	msgBookingTimeout    = "The booking request timed out. Please try again."
	msgBookingFailed     = "Failed to create booking. Please try again."
	msgSessionExpired    = "Your session has expired. Please log in again."
)

// Notifier shows messages and navigates.
type Notifier interface {
	Alert(message string)
	Redirect(path string)
}

// MapView draws the map overlays of the screen.
type MapView interface {
	Recenter(c location.Coordinate)
	DrawRoute(path []location.Coordinate) error
	ClearRoute() error
}

// Router estimates a route between two points.
type Router interface {
	Route(ctx context.Context, from, to location.Coordinate) (*routing.Estimate, error)
}

// Bookings is the backend surface used by the rider screen.
type Bookings interface {
	StatusFetcher
	CreateBooking(ctx context.Context, token string, req backend.CreateBookingRequest) (string, error)
}

// Config holds the rider screen timings.
type Config struct {
	SearchDelay   time.Duration
	SubmitTimeout time.Duration
	PollInterval  time.Duration
	PollTimeout   time.Duration
	Tariff        pricing.Tariff
}

// DefaultConfig returns the standard timings.
func DefaultConfig() Config {
	return Config{
		SearchDelay:   500 * time.Millisecond,
		SubmitTimeout: 8 * time.Second,
		PollInterval:  3 * time.Second,
		PollTimeout:   8 * time.Second,
		Tariff:        pricing.DefaultTariff(),
	}
}

// Deps are the collaborators of a Screen. Reporter may be nil.
type Deps struct {
	Resolver *location.Resolver
	Geocoder search.Geocoder
	Router   Router
	Bookings Bookings
	Sessions session.Provider
	Notifier Notifier
	View     MapView
	Reporter apperrors.Reporter
}

// State is a snapshot of the screen for rendering.
type State struct {
	Position        *location.Coordinate
	PlaceName       string
	FallbackUsed    bool
	Query           string
	Suggestions     []geocoding.Place
	Destination     *location.Coordinate
	DestinationName string
	Estimate        *routing.Estimate
	Calculating     bool
	Fare            float64
	BookingID       string
	Status          backend.BookingStatus
	Poll            PollState
	Driver          *backend.DriverContact
	Submitting      bool
}

// Screen is the rider screen controller.
type Screen struct {
	cfg      Config
	deps     Deps
	searcher *search.Searcher
	poller   *StatusPoller

	mu              sync.Mutex
	position        *location.Coordinate
	placeName       string
	fallbackUsed    bool
	destination     *location.Coordinate
	destinationName string
	estimate        *routing.Estimate
	calculating     bool
	routeSeq        uint64
	bookingID       string
	status          backend.BookingStatus
	driver          *backend.DriverContact
	submitting      bool
}

// NewScreen wires a rider screen. onSuggestions, when set, is called with
// every suggestion list update.
func NewScreen(cfg Config, deps Deps, onSuggestions search.UpdateFunc) *Screen {
	if deps.Reporter == nil {
		deps.Reporter = apperrors.NopReporter{}
	}
	s := &Screen{cfg: cfg, deps: deps}
	s.searcher = search.NewSearcher(deps.Geocoder, cfg.SearchDelay, onSuggestions)
	s.poller = NewStatusPoller(deps.Bookings, deps.Sessions, cfg.PollInterval, cfg.PollTimeout, Hooks{
		OnStatus:   s.onStatus,
		OnFound:    s.onFound,
		OnFinished: s.onFinished,
	})
	return s
}

// Initialize resolves the starting position and recenters the map on it.
func (s *Screen) Initialize(ctx context.Context) location.Resolution {
	res := s.deps.Resolver.Resolve(ctx)

	s.mu.Lock()
	pos := res.Position
	s.position = &pos
	s.placeName = res.PlaceName
	s.fallbackUsed = res.Fallback
	s.mu.Unlock()

	s.deps.View.Recenter(res.Position)
	s.updateRoute(ctx)
	return res
}

// SetQuery updates the destination search text.
func (s *Screen) SetQuery(query string) {
	s.searcher.SetQuery(query)
}

// Suggestions returns the current destination candidates.
func (s *Screen) Suggestions() []geocoding.Place {
	return s.searcher.Suggestions()
}

// Select makes place the destination, clears the search box, recenters the
// map and estimates the route.
func (s *Screen) Select(ctx context.Context, place geocoding.Place) {
	s.mu.Lock()
	dest := place.Position
	s.destination = &dest
	s.destinationName = place.Label
	s.mu.Unlock()

	s.searcher.Clear()
	s.deps.View.Recenter(place.Position)
	s.updateRoute(ctx)
}

// SelectIndex selects the i-th current suggestion.
func (s *Screen) SelectIndex(ctx context.Context, i int) error {
	suggestions := s.searcher.Suggestions()
	if i < 0 || i >= len(suggestions) {
		return common.NewPreconditionError(fmt.Sprintf("no suggestion number %d", i+1))
	}
	s.Select(ctx, suggestions[i])
	return nil
}

// updateRoute recomputes the estimate when both endpoints are set. A failed
// lookup leaves the estimate unset.
func (s *Screen) updateRoute(ctx context.Context) {
	s.mu.Lock()
	if s.position == nil || s.destination == nil {
		s.mu.Unlock()
		return
	}
	from, to := *s.position, *s.destination
	s.routeSeq++
	seq := s.routeSeq
	s.estimate = nil
	s.calculating = true
	s.mu.Unlock()

	if err := s.deps.View.ClearRoute(); err != nil {
		logger.WarnContext(ctx, "failed to remove previous route overlay", zap.Error(err))
	}

	estimate, err := s.deps.Router.Route(ctx, from, to)

	s.mu.Lock()
	if seq != s.routeSeq {
		s.mu.Unlock()
		return
	}
	if err != nil {
		s.mu.Unlock()
		logger.WarnContext(ctx, "route estimate unavailable",
			zap.Stringer("from", from),
			zap.Stringer("to", to),
			zap.Error(err),
		)
		return
	}
	s.estimate = estimate
	s.calculating = false
	s.mu.Unlock()

	if err := s.deps.View.DrawRoute(estimate.Geometry); err != nil {
		logger.WarnContext(ctx, "failed to draw route", zap.Error(err))
	}
}

// Fare is the fare of the current estimate, 0 when none.
func (s *Screen) Fare() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.fareLocked()
}

func (s *Screen) fareLocked() float64 {
	if s.estimate == nil {
		return 0
	}
	return s.cfg.Tariff.Fare(s.estimate.DistanceKm)
}

// Submit creates a booking for the current trip and starts status polling.
// Every failure is also alerted to the user.
func (s *Screen) Submit(ctx context.Context) error {
	sess := s.deps.Sessions.Current()

	s.mu.Lock()
	req, err := s.prepareLocked(sess)
	if err != nil {
		s.mu.Unlock()
		s.deps.Notifier.Alert(common.UserMessage(err, msgBookingFailed))
		return err
	}
	s.submitting = true
	s.mu.Unlock()

	submitCtx, cancel := context.WithTimeout(ctx, s.cfg.SubmitTimeout)
	defer cancel()

	logger.InfoContext(ctx, "submitting booking",
		zap.Float64("distance_km", req.Distance),
		zap.Float64("fare", req.EstimatedFare),
	)
	id, err := s.deps.Bookings.CreateBooking(submitCtx, sess.Token, req)

	s.mu.Lock()
	s.submitting = false
	if err == nil {
		s.bookingID = id
		s.status = backend.StatusPending
		s.driver = nil
	}
	s.mu.Unlock()

	if err != nil {
		s.submitFailed(ctx, err)
		return err
	}

	logger.InfoContext(ctx, "booking created", logger.BookingID(id))
	s.poller.Start(id)
	return nil
}

func (s *Screen) prepareLocked(sess session.Session) (backend.CreateBookingRequest, error) {
	switch {
	case s.submitting:
		return backend.CreateBookingRequest{}, common.NewPreconditionError(msgSubmitInProgress)
	case s.bookingID != "":
		return backend.CreateBookingRequest{}, common.NewPreconditionError(msgBookingActive)
	case s.position == nil || s.destination == nil:
		return backend.CreateBookingRequest{}, common.NewPreconditionError(msgChooseDestination)
	case s.estimate == nil || s.estimate.DistanceKm <= 0:
		return backend.CreateBookingRequest{}, common.NewPreconditionError(msgEstimatePending)
	case !sess.HasToken():
		return backend.CreateBookingRequest{}, common.NewPreconditionError(msgLoginRequired)
	}

	start := s.placeName
	if start == "" {
		start = s.position.String()
	}
	return backend.CreateBookingRequest{
		UserID:        sess.UserID,
		StartLocation: start,
		EndLocation:   s.destinationName,
		Distance:      s.estimate.DistanceKm,
		EstimatedTime: s.estimate.DurationMin,
		EstimatedFare: s.fareLocked(),
		PickupCoords:  backend.CoordsOf(*s.position),
		DropoffCoords: backend.CoordsOf(*s.destination),
	}, nil
}

func (s *Screen) submitFailed(ctx context.Context, err error) {
	switch common.KindOf(err) {
	case common.KindMissingIdentifier:
		logger.ErrorContext(ctx, "booking response had no identifier", zap.Error(err))
		s.deps.Reporter.Capture(ctx, err, map[string]interface{}{"operation": "create_booking"})
		s.deps.Notifier.Alert(msgMissingBookingID)
	case common.KindTimeout:
		logger.WarnContext(ctx, "booking request timed out", zap.Error(err))
		s.deps.Notifier.Alert(msgBookingTimeout)
	case common.KindUnauthenticated:
		logger.WarnContext(ctx, "booking rejected: unauthenticated", zap.Error(err))
		s.deps.Notifier.Alert(common.UserMessage(err, msgSessionExpired))
		s.deps.Notifier.Redirect(LoginPath)
	case common.KindPrecondition:
		s.deps.Notifier.Alert(common.UserMessage(err, msgBookingFailed))
	default:
		logger.ErrorContext(ctx, "booking request failed", zap.Error(err))
		s.deps.Reporter.Capture(ctx, err, map[string]interface{}{"operation": "create_booking"})
		s.deps.Notifier.Alert(common.UserMessage(err, msgBookingFailed))
	}
}

func (s *Screen) onStatus(b *backend.Booking) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if b.ID == "" || b.ID == s.bookingID {
		s.status = b.Status
	}
}

func (s *Screen) onFound(b *backend.Booking) {
	s.mu.Lock()
	s.resetTripLocked()
	s.status = b.Status
	s.driver = b.Driver
	s.mu.Unlock()

	if err := s.deps.View.ClearRoute(); err != nil {
		logger.Warn("failed to remove route overlay", zap.Error(err))
	}
	s.deps.Notifier.Alert(describeDriver(b.Driver))
}

func (s *Screen) onFinished(b *backend.Booking) {
	s.mu.Lock()
	s.bookingID = ""
	s.status = b.Status
	s.mu.Unlock()

	s.deps.Notifier.Alert("Your booking is " + strings.ToLower(string(b.Status)) + ".")
}

func (s *Screen) resetTripLocked() {
	s.routeSeq++
	s.destination = nil
	s.destinationName = ""
	s.estimate = nil
	s.calculating = false
	s.bookingID = ""
	s.status = ""
	s.driver = nil
}

func describeDriver(d *backend.DriverContact) string {
	if d == nil || d.Name == "" {
		return "A driver has accepted your ride."
	}
	parts := []string{"Driver " + d.Name + " is on the way"}
	if d.Phone != "" {
		parts = append(parts, "phone "+d.Phone)
	}
	vehicle := strings.TrimSpace(d.Vehicle + " " + d.PlateNumber)
	if vehicle != "" {
		parts = append(parts, "vehicle "+vehicle)
	}
	return strings.Join(parts, ", ") + "."
}

// Reset abandons the current trip and stops polling.
func (s *Screen) Reset() {
	s.poller.Reset()
	s.searcher.Clear()

	s.mu.Lock()
	s.resetTripLocked()
	s.mu.Unlock()

	if err := s.deps.View.ClearRoute(); err != nil {
		logger.Warn("failed to remove route overlay", zap.Error(err))
	}
}

// Close releases the timers and in-flight requests of the screen.
func (s *Screen) Close() {
	s.searcher.Close()
	s.poller.Close()
}

// Poller exposes the status poller.
func (s *Screen) Poller() *StatusPoller {
	return s.poller
}

// State returns a snapshot for rendering.
func (s *Screen) State() State {
	query := s.searcher.Query()
	suggestions := s.searcher.Suggestions()
	pollState := s.poller.State()

	s.mu.Lock()
	defer s.mu.Unlock()
	return State{
		Position:        s.position,
		PlaceName:       s.placeName,
		FallbackUsed:    s.fallbackUsed,
		Query:           query,
		Suggestions:     suggestions,
		Destination:     s.destination,
		DestinationName: s.destinationName,
		Estimate:        s.estimate,
		Calculating:     s.calculating,
		Fare:            s.fareLocked(),
		BookingID:       s.bookingID,
		Status:          s.status,
		Poll:            pollState,
		Driver:          s.driver,
		Submitting:      s.submitting,
	}
}
