package rider

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

const pollerName = "booking_status"

// PollState is the state of the booking status poller.
type PollState string

const (
	StateIdle    PollState = "idle"
	StatePolling PollState = "polling"
	StateTimeout PollState = "timeout"
	StateFound   PollState = "found"
)

// StatusFetcher reads booking state from the backend.
type StatusFetcher interface {
	BookingStatus(ctx context.Context, token, id string) (*backend.Booking, error)
	GetBooking(ctx context.Context, token, id string) (*backend.Booking, error)
}

// Hooks receive poller events. They run without poller locks held and any
// of them may be nil.
type Hooks struct {
	OnStatus   func(b *backend.Booking)
	OnFound    func(b *backend.Booking)
	OnFinished func(b *backend.Booking)
}

// StatusPoller polls a booking until a driver is assigned or the ride ends.
type StatusPoller struct {
	fetcher  StatusFetcher
	sessions session.Provider
	interval time.Duration
	timeout  time.Duration
	hooks    Hooks

	loop     *poll.Loop
	inflight poll.Inflight

	mu        sync.Mutex
	state     PollState
	bookingID string
	last      *backend.Booking
}

// NewStatusPoller creates an idle poller.
func NewStatusPoller(fetcher StatusFetcher, sessions session.Provider, interval, timeout time.Duration, hooks Hooks) *StatusPoller {
	p := &StatusPoller{
		fetcher:  fetcher,
		sessions: sessions,
		interval: interval,
		timeout:  timeout,
		hooks:    hooks,
		state:    StateIdle,
	}
	p.loop = poll.NewLoop(pollerName, p.tick)
	return p
}

// Start begins polling bookingID, replacing any previous cycle. The first
// request is issued immediately.
func (p *StatusPoller) Start(bookingID string) {
	p.mu.Lock()
	p.inflight.Abort()
	p.bookingID = bookingID
	p.last = nil
	p.state = StatePolling
	p.mu.Unlock()

	logger.Info("booking status polling started", logger.BookingID(bookingID), zap.Duration("interval", p.interval))
	p.loop.Start(p.interval)
}

// Reset stops the timer and aborts the in-flight request. Safe to call
// repeatedly.
func (p *StatusPoller) Reset() {
	p.loop.Stop()

	p.mu.Lock()
	defer p.mu.Unlock()
	p.inflight.Abort()
	p.bookingID = ""
	p.last = nil
	p.state = StateIdle
}

// Close is Reset.
func (p *StatusPoller) Close() {
	p.Reset()
}

// State returns the current state.
func (p *StatusPoller) State() PollState {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.state
}

// BookingID returns the booking being polled, empty when none.
func (p *StatusPoller) BookingID() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.bookingID
}

// Last returns the most recent booking snapshot.
func (p *StatusPoller) Last() *backend.Booking {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.last
}

// Running reports whether the timer is live.
func (p *StatusPoller) Running() bool {
	return p.loop.Running()
}

func (p *StatusPoller) tick() {
	p.mu.Lock()
	id := p.bookingID
	if id == "" {
		p.mu.Unlock()
		return
	}
	ctx, seq, cancel := p.inflight.Begin(context.Background(), p.timeout)
	p.mu.Unlock()

	async.Go(ctx, pollerName, func(ctx context.Context) {
		defer cancel()
		p.fetch(ctx, seq, id)
	})
}

type pollResult int

const (
	resultPending pollResult = iota
	resultFound
	resultFinished
)

func (p *StatusPoller) fetch(ctx context.Context, seq uint64, id string) {
	token := p.sessions.Current().Token
	log := logger.WithContext(ctx).With(logger.BookingID(id))

	booking, err := p.fetcher.BookingStatus(ctx, token, id)
	fromFallback := false
	if err != nil && common.KindOf(err) == common.KindNotFound {
		poll.RecordOutcome(pollerName, poll.OutcomeNotFound)
		log.Debug("status endpoint returned 404, fetching booking")
		booking, err = p.fetcher.GetBooking(ctx, token, id)
		fromFallback = true
	}

	p.mu.Lock()
	if !p.inflight.Current(seq) || p.bookingID != id {
		p.mu.Unlock()
		poll.RecordOutcome(pollerName, poll.OutcomeStale)
		return
	}

	if err != nil {
		switch {
		case common.KindOf(err) == common.KindTimeout:
			p.state = StateTimeout
			poll.RecordOutcome(pollerName, poll.OutcomeTimeout)
			log.Debug("booking status request timed out", zap.Error(err))
		case fromFallback:
			// the timer keeps running; a later tick may still succeed
			p.state = StateIdle
			poll.RecordOutcome(pollerName, poll.OutcomeError)
			log.Warn("booking fallback fetch failed", zap.Error(err))
		default:
			poll.RecordOutcome(pollerName, poll.OutcomeError)
			log.Warn("booking status request failed", zap.Error(err))
		}
		p.mu.Unlock()
		return
	}

	poll.RecordOutcome(pollerName, poll.OutcomeOK)
	p.last = booking

	var result pollResult
	switch {
	case booking.Status.IsTerminal():
		result = resultFinished
	case fromFallback && booking.Status == backend.StatusAccepted:
		result = resultFound
	case !fromFallback && booking.Status.IsAssigned():
		result = resultFound
	}

	switch result {
	case resultFound:
		p.state = StateFound
		p.finishLocked()
	case resultFinished:
		p.state = StateIdle
		p.finishLocked()
	default:
		p.state = StatePolling
	}
	p.mu.Unlock()

	if p.hooks.OnStatus != nil {
		p.hooks.OnStatus(booking)
	}
	switch result {
	case resultFound:
		log.Info("driver assigned", zap.String("status", string(booking.Status)))
		if p.hooks.OnFound != nil {
			p.hooks.OnFound(booking)
		}
	case resultFinished:
		log.Info("booking ended", zap.String("status", string(booking.Status)))
		if p.hooks.OnFinished != nil {
			p.hooks.OnFinished(booking)
		}
	}
}

// finishLocked ends the cycle; later ticks find no booking and do nothing.
func (p *StatusPoller) finishLocked() {
	p.bookingID = ""
	p.inflight.Abort()
	p.loop.Stop()
}
