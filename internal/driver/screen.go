// Package driver implements the driver screen: availability toggle, pending
// ride polling, and accept/decline actions.
package driver

import (
	"context"
	"sync"
	"time"

	"github.com/richxcame/ride-booking-client/internal/backend"
	"github.com/richxcame/ride-booking-client/internal/session"
	"github.com/richxcame/ride-booking-client/pkg/common"
	apperrors "github.com/richxcame/ride-booking-client/pkg/errors"
	"github.com/richxcame/ride-booking-client/pkg/logger"
	"go.uber.org/zap"
)

// LoginPath is the login entry point.
const LoginPath = "/login"

const (
	msgProfileFailed      = "Failed to load your driver profile."
	msgAvailabilityFailed = "Failed to update your availability."
	msgAcceptFailed       = "Failed to accept the ride."
	msgDeclineFailed      = "Failed to decline the ride."
	msgToggleInProgress   = "Your availability is already being updated."
)

// Notifier shows messages and navigates.
type Notifier interface {
	Alert(message string)
	Redirect(path string)
}

// Drivers is the backend surface used by the driver screen.
type Drivers interface {
	RideFetcher
	GetDriver(ctx context.Context, token, id string) (*backend.DriverProfile, error)
	SetAvailability(ctx context.Context, token, id string, available bool) (*backend.DriverProfile, error)
	AcceptBooking(ctx context.Context, token, id, driverID string) error
	DeclineBooking(ctx context.Context, token, id, driverID string) error
}

// Config holds the driver screen timings.
type Config struct {
	Intervals     Intervals
	ActionTimeout time.Duration
}

// DefaultConfig returns the standard timings.
func DefaultConfig() Config {
	return Config{Intervals: DefaultIntervals(), ActionTimeout: 8 * time.Second}
}

// State is a snapshot of the screen for rendering.
type State struct {
	Profile   *backend.DriverProfile
	Available bool
	Poll      PollState
	Period    time.Duration
	Rides     []backend.Booking
	Toggling  bool
}

// Screen is the driver screen controller.
type Screen struct {
	cfg      Config
	drivers  Drivers
	sessions session.Provider
	notifier Notifier
	reporter apperrors.Reporter
	poller   *AvailabilityPoller

	mu        sync.Mutex
	profile   *backend.DriverProfile
	available bool
	toggling  bool
}

// NewScreen wires a driver screen. reporter may be nil; onRides, when set,
// receives every ride list change.
func NewScreen(cfg Config, drivers Drivers, sessions session.Provider, notifier Notifier, reporter apperrors.Reporter, onRides func([]backend.Booking)) *Screen {
	if reporter == nil {
		reporter = apperrors.NopReporter{}
	}
	return &Screen{
		cfg:      cfg,
		drivers:  drivers,
		sessions: sessions,
		notifier: notifier,
		reporter: reporter,
		poller:   NewAvailabilityPoller(drivers, sessions, cfg.Intervals, onRides),
	}
}

// identity returns the stored session, redirecting to login when it lacks
// a token or a driver id.
func (s *Screen) identity() (session.Session, error) {
	sess := s.sessions.Current()
	if !sess.HasToken() || sess.DriverID == "" {
		s.notifier.Redirect(LoginPath)
		return sess, session.ErrLoginRequired
	}
	return sess, nil
}

// LoadProfile fetches the driver profile. A driver who is already available
// starts polling for rides.
func (s *Screen) LoadProfile(ctx context.Context) (*backend.DriverProfile, error) {
	sess, err := s.identity()
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(ctx, s.cfg.ActionTimeout)
	defer cancel()

	profile, err := s.drivers.GetDriver(ctx, sess.Token, sess.DriverID)
	if err != nil {
		s.fail(ctx, "load driver profile", err, msgProfileFailed)
		return nil, err
	}

	logger.InfoContext(ctx, "driver profile loaded",
		logger.DriverID(profile.ID),
		zap.Bool("available", profile.IsAvailable),
	)
	s.apply(profile)
	return profile, nil
}

// SetAvailable asks the backend to change availability. Local state follows
// the acknowledged value, which may differ from the requested one.
func (s *Screen) SetAvailable(ctx context.Context, available bool) error {
	sess, err := s.identity()
	if err != nil {
		return err
	}

	s.mu.Lock()
	if s.toggling {
		s.mu.Unlock()
		s.notifier.Alert(msgToggleInProgress)
		return common.NewPreconditionError(msgToggleInProgress)
	}
	s.toggling = true
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		s.toggling = false
		s.mu.Unlock()
	}()

	ctx, cancel := context.WithTimeout(ctx, s.cfg.ActionTimeout)
	defer cancel()

	profile, err := s.drivers.SetAvailability(ctx, sess.Token, sess.DriverID, available)
	if err != nil {
		s.fail(ctx, "set availability", err, msgAvailabilityFailed)
		return err
	}

	if profile.IsAvailable != available {
		logger.WarnContext(ctx, "server acknowledged a different availability",
			logger.DriverID(sess.DriverID),
			zap.Bool("requested", available),
			zap.Bool("acknowledged", profile.IsAvailable),
		)
	}
	s.apply(profile)
	return nil
}

// Toggle flips availability.
func (s *Screen) Toggle(ctx context.Context) error {
	s.mu.Lock()
	want := !s.available
	s.mu.Unlock()
	return s.SetAvailable(ctx, want)
}

func (s *Screen) apply(profile *backend.DriverProfile) {
	s.mu.Lock()
	was := s.available
	s.profile = profile
	s.available = profile.IsAvailable
	s.mu.Unlock()

	switch {
	case profile.IsAvailable && !was:
		s.poller.Start()
	case !profile.IsAvailable:
		s.poller.Stop()
	}
}

// Accept accepts a pending ride and removes it from the list.
func (s *Screen) Accept(ctx context.Context, rideID string) error {
	return s.act(ctx, rideID, "accept ride", s.drivers.AcceptBooking, msgAcceptFailed)
}

// Decline declines a pending ride and removes it from the list.
func (s *Screen) Decline(ctx context.Context, rideID string) error {
	return s.act(ctx, rideID, "decline ride", s.drivers.DeclineBooking, msgDeclineFailed)
}

type rideAction func(ctx context.Context, token, id, driverID string) error

func (s *Screen) act(ctx context.Context, rideID, op string, action rideAction, fallback string) error {
	sess, err := s.identity()
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(ctx, s.cfg.ActionTimeout)
	defer cancel()

	if err := action(ctx, sess.Token, rideID, sess.DriverID); err != nil {
		s.fail(ctx, op, err, fallback)
		return err
	}

	logger.InfoContext(ctx, op, logger.BookingID(rideID), logger.DriverID(sess.DriverID))
	s.poller.Remove(rideID)
	return nil
}

func (s *Screen) fail(ctx context.Context, op string, err error, fallback string) {
	logger.WarnContext(ctx, op+" failed", zap.Error(err))
	s.reporter.Capture(ctx, err, map[string]interface{}{"operation": op})

	if common.KindOf(err) == common.KindUnauthenticated {
		s.notifier.Redirect(LoginPath)
		return
	}
	s.notifier.Alert(common.UserMessage(err, fallback))
}

// Rides returns the pending ride list.
func (s *Screen) Rides() []backend.Booking {
	return s.poller.Rides()
}

// Poller exposes the availability poller.
func (s *Screen) Poller() *AvailabilityPoller {
	return s.poller
}

// State returns a snapshot for rendering.
func (s *Screen) State() State {
	s.mu.Lock()
	profile, available, toggling := s.profile, s.available, s.toggling
	s.mu.Unlock()

	return State{
		Profile:   profile,
		Available: available,
		Poll:      s.poller.State(),
		Period:    s.poller.Period(),
		Rides:     s.poller.Rides(),
		Toggling:  toggling,
	}
}

// Close stops polling and forgets the profile.
func (s *Screen) Close() {
	s.poller.Stop()

	s.mu.Lock()
	s.profile = nil
	s.available = false
	s.mu.Unlock()
}
