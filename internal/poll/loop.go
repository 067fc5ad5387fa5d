// Package poll owns the recurring timer and the in-flight request of a poller.
package poll

import (
	"sync"
	"time"
)

// Loop runs tick on a fixed period. At most one generation of the timer is
// live at a time: Start and Reset always retire the previous one first.
type Loop struct {
	name string
	tick func()

	mu     sync.Mutex
	period time.Duration
	done   chan struct{}
}

// NewLoop creates a stopped loop.
func NewLoop(name string, tick func()) *Loop {
	return &Loop{name: name, tick: tick}
}

// Start stops any running generation, ticks immediately, then ticks every period.
func (l *Loop) Start(period time.Duration) {
	checkPeriod(period)

	l.mu.Lock()
	defer l.mu.Unlock()
	l.restartLocked(period, true)
}

// Reset switches a running loop to period without an immediate tick. It is
// a no-op when the loop is stopped or already on that period, and reports
// whether the timer was restarted.
func (l *Loop) Reset(period time.Duration) bool {
	checkPeriod(period)

	l.mu.Lock()
	defer l.mu.Unlock()
	if l.done == nil || l.period == period {
		return false
	}
	l.restartLocked(period, false)
	return true
}

func checkPeriod(period time.Duration) {
	if period <= 0 {
		panic("poll: non-positive period")
	}
}

// restartLocked retires the current generation and starts a new one.
// l.mu must be held.
func (l *Loop) restartLocked(period time.Duration, immediate bool) {
	if l.done != nil {
		close(l.done)
	}
	done := make(chan struct{})
	l.done = done
	l.period = period

	setInterval(l.name, period)
	go l.run(done, period, immediate)
}

// Stop retires the running generation. Safe to call repeatedly.
func (l *Loop) Stop() {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.done != nil {
		close(l.done)
		l.done = nil
		setInterval(l.name, 0)
	}
}

// Period returns the period of the running generation, or 0 when stopped.
func (l *Loop) Period() time.Duration {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.done == nil {
		return 0
	}
	return l.period
}

// Running reports whether a generation is live.
func (l *Loop) Running() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.done != nil
}

func (l *Loop) run(done <-chan struct{}, period time.Duration, immediate bool) {
	if immediate {
		l.fire(done)
	}

	ticker := time.NewTicker(period)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			l.fire(done)
		case <-done:
			return
		}
	}
}

func (l *Loop) fire(done <-chan struct{}) {
	select {
	case <-done:
		return
	default:
	}
	recordTick(l.name)
	l.tick()
}
