package poll

import (
	"context"
	"sync"
	"time"
)

// Inflight tracks the single outstanding request of a poller. Beginning a
// new request cancels the previous one; results are matched back by
// sequence number so that a superseded response can be discarded.
type Inflight struct {
	mu     sync.Mutex
	seq    uint64
	cancel context.CancelFunc
}

// Begin cancels the outstanding request and starts a new one bounded by timeout.
// The returned cancel func must be called once the request completes.
func (f *Inflight) Begin(parent context.Context, timeout time.Duration) (context.Context, uint64, context.CancelFunc) {
	ctx, cancel := context.WithTimeout(parent, timeout)

	f.mu.Lock()
	if f.cancel != nil {
		f.cancel()
	}
	f.seq++
	seq := f.seq
	f.cancel = cancel
	f.mu.Unlock()

	return ctx, seq, cancel
}

// Current reports whether seq is still the latest request.
func (f *Inflight) Current(seq uint64) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.seq == seq
}

// Abort cancels the outstanding request and invalidates its result.
func (f *Inflight) Abort() {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.cancel != nil {
		f.cancel()
		f.cancel = nil
	}
	f.seq++
}
