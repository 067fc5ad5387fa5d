package driver

import (
	"context"
	"sync"
	"time"

	"github.com/richxcame/ride-booking-client/internal/backend"
	"github.com/richxcame/ride-booking-client/internal/poll"
	"github.com/richxcame/ride-booking-client/internal/session"
	"github.com/richxcame/ride-booking-client/pkg/async"
	"github.com/richxcame/ride-booking-client/pkg/common"
	"github.com/richxcame/ride-booking-client/pkg/logger"
	"go.uber.org/zap"
)

const pollerName = "pending_rides"

// PollState is the state of the availability poller.
type PollState string

const (
	StateIdle    PollState = "idle"
	StatePolling PollState = "polling"
	StatePaused  PollState = "paused"
)

// RideFetcher lists ride requests waiting for a driver.
type RideFetcher interface {
	PendingBookings(ctx context.Context, token string) ([]backend.Booking, error)
}

// Intervals are the poll periods of an online driver.
type Intervals struct {
	// Baseline is used for the first cycle after going online.
	Baseline time.Duration
	// Active is used while rides are waiting.
	Active time.Duration
	// Idle is used while nothing is waiting.
	Idle time.Duration
	// Timeout bounds each request.
	Timeout time.Duration
}

// DefaultIntervals returns 5s baseline, 1s active, 10s idle and an 8s timeout.
func DefaultIntervals() Intervals {
	return Intervals{
		Baseline: 5 * time.Second,
		Active:   time.Second,
		Idle:     10 * time.Second,
		Timeout:  8 * time.Second,
	}
}

// AvailabilityPoller polls pending rides while the driver is online and
// adapts its period to whether rides are waiting.
type AvailabilityPoller struct {
	fetcher   RideFetcher
	sessions  session.Provider
	intervals Intervals
	onChange  func(rides []backend.Booking)

	loop     *poll.Loop
	inflight poll.Inflight

	mu     sync.Mutex
	active bool
	state  PollState
	rides  []backend.Booking
}

// NewAvailabilityPoller creates an idle poller. onChange, when set, receives
// the ride list after every change; it runs without poller locks held.
func NewAvailabilityPoller(fetcher RideFetcher, sessions session.Provider, intervals Intervals, onChange func([]backend.Booking)) *AvailabilityPoller {
	p := &AvailabilityPoller{
		fetcher:   fetcher,
		sessions:  sessions,
		intervals: intervals,
		onChange:  onChange,
		state:     StateIdle,
	}
	p.loop = poll.NewLoop(pollerName, p.tick)
	return p
}

// Start resets the period to the baseline and fetches immediately.
func (p *AvailabilityPoller) Start() {
	p.mu.Lock()
	p.inflight.Abort()
	p.active = true
	p.state = StatePolling
	p.mu.Unlock()

	logger.Info("ride request polling started", zap.Duration("interval", p.intervals.Baseline))
	p.loop.Start(p.intervals.Baseline)
}

// Stop clears the timer, aborts the in-flight request and empties the list.
// Safe to call repeatedly.
func (p *AvailabilityPoller) Stop() {
	p.loop.Stop()

	p.mu.Lock()
	p.inflight.Abort()
	wasActive := p.active
	p.active = false
	p.state = StateIdle
	p.rides = nil
	p.mu.Unlock()

	if wasActive {
		logger.Info("ride request polling stopped")
		p.notify(nil)
	}
}

func (p *AvailabilityPoller) tick() {
	p.mu.Lock()
	if !p.active {
		p.mu.Unlock()
		return
	}
	ctx, seq, cancel := p.inflight.Begin(context.Background(), p.intervals.Timeout)
	p.mu.Unlock()

	async.Go(ctx, pollerName, func(ctx context.Context) {
		defer cancel()
		p.fetch(ctx, seq)
	})
}

func (p *AvailabilityPoller) fetch(ctx context.Context, seq uint64) {
	rides, err := p.fetcher.PendingBookings(ctx, p.sessions.Current().Token)

	p.mu.Lock()
	if !p.active || !p.inflight.Current(seq) {
		p.mu.Unlock()
		poll.RecordOutcome(pollerName, poll.OutcomeStale)
		return
	}

	if err != nil {
		if common.KindOf(err) == common.KindTimeout {
			p.state = StatePaused
			poll.RecordOutcome(pollerName, poll.OutcomeTimeout)
			logger.DebugContext(ctx, "pending rides request timed out", zap.Error(err))
		} else {
			poll.RecordOutcome(pollerName, poll.OutcomeError)
			logger.WarnContext(ctx, "pending rides request failed", zap.Error(err))
		}
		p.rides = nil
		p.mu.Unlock()
		p.notify(nil)
		return
	}

	poll.RecordOutcome(pollerName, poll.OutcomeOK)
	p.state = StatePolling
	p.rides = rides
	next := p.intervals.Idle
	if len(rides) > 0 {
		next = p.intervals.Active
	}
	if p.loop.Reset(next) {
		logger.DebugContext(ctx, "ride request poll interval changed",
			zap.Duration("interval", next),
			zap.Int("rides", len(rides)),
		)
	}
	snapshot := cloneRides(rides)
	p.mu.Unlock()

	p.notify(snapshot)
}

func (p *AvailabilityPoller) notify(rides []backend.Booking) {
	if p.onChange != nil {
		p.onChange(rides)
	}
}

// Remove drops the ride with id from the local list and reports whether it
// was present.
func (p *AvailabilityPoller) Remove(id string) bool {
	p.mu.Lock()
	removed := false
	kept := p.rides[:0:0]
	for _, r := range p.rides {
		if r.ID == id {
			removed = true
			continue
		}
		kept = append(kept, r)
	}
	if removed {
		p.rides = kept
	}
	snapshot := cloneRides(p.rides)
	p.mu.Unlock()

	if removed {
		p.notify(snapshot)
	}
	return removed
}

// Rides returns a copy of the pending ride list.
func (p *AvailabilityPoller) Rides() []backend.Booking {
	p.mu.Lock()
	defer p.mu.Unlock()
	return cloneRides(p.rides)
}

// State returns the current state.
func (p *AvailabilityPoller) State() PollState {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.state
}

// Period returns the live timer period, 0 when stopped.
func (p *AvailabilityPoller) Period() time.Duration {
	return p.loop.Period()
}

// Running reports whether the timer is live.
func (p *AvailabilityPoller) Running() bool {
	return p.loop.Running()
}

func cloneRides(rides []backend.Booking) []backend.Booking {
	if rides == nil {
		return nil
	}
	out := make([]backend.Booking, len(rides))
	copy(out, rides)
	return out
}
