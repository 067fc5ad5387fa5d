package rider

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/richxcame/ride-booking-client/internal/backend"
	"github.com/richxcame/ride-booking-client/internal/session"
	"github.com/richxcame/ride-booking-client/pkg/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

const testInterval = 20 * time.Millisecond

var testSession = session.Static{Token: "tok", UserID: "u1"}

func pending() *backend.Booking {
	return &backend.Booking{ID: "b1", Status: backend.StatusPending}
}

func notFound() error {
	return common.NewAppError(common.KindNotFound, "", errors.New("404"))
}

func TestStatusPoller_FoundStopsPolling(t *testing.T) {
	m := &mockFetcher{}
	assigned := &backend.Booking{ID: "b1", Status: backend.StatusDriverAssigned, Driver: &backend.DriverContact{Name: "Nimal"}}
	m.On("BookingStatus", mock.Anything, "tok", "b1").Return(pending(), nil).Once()
	m.On("BookingStatus", mock.Anything, "tok", "b1").Return(assigned, nil).Once()

	var found atomic.Int32
	p := NewStatusPoller(m, testSession, testInterval, time.Second, Hooks{
		OnFound: func(b *backend.Booking) {
			assert.Equal(t, "Nimal", b.Driver.Name)
			found.Add(1)
		},
	})
	defer p.Close()

	p.Start("b1")
	require.Eventually(t, func() bool { return p.State() == StateFound }, time.Second, 5*time.Millisecond)

	time.Sleep(5 * testInterval)
	m.AssertNumberOfCalls(t, "BookingStatus", 2)
	assert.Equal(t, int32(1), found.Load())
	assert.False(t, p.Running())
	assert.Empty(t, p.BookingID())
}

func TestStatusPoller_PendingKeepsPolling(t *testing.T) {
	m := &mockFetcher{}
	m.On("BookingStatus", mock.Anything, "tok", "b1").Return(pending(), nil)

	p := NewStatusPoller(m, testSession, testInterval, time.Second, Hooks{})
	defer p.Close()

	p.Start("b1")
	require.Eventually(t, func() bool { return m.statusCalls.Load() >= 3 }, time.Second, 5*time.Millisecond)
	assert.Equal(t, StatePolling, p.State())
	assert.True(t, p.Running())
}

func TestStatusPoller_TerminalGoesIdle(t *testing.T) {
	m := &mockFetcher{}
	m.On("BookingStatus", mock.Anything, "tok", "b1").Return(&backend.Booking{ID: "b1", Status: backend.StatusCancelled}, nil).Once()

	finished := make(chan backend.BookingStatus, 1)
	p := NewStatusPoller(m, testSession, testInterval, time.Second, Hooks{
		OnFinished: func(b *backend.Booking) { finished <- b.Status },
	})
	defer p.Close()

	p.Start("b1")
	select {
	case status := <-finished:
		assert.Equal(t, backend.StatusCancelled, status)
	case <-time.After(time.Second):
		t.Fatal("no finish event")
	}
	assert.Equal(t, StateIdle, p.State())
	time.Sleep(3 * testInterval)
	m.AssertNumberOfCalls(t, "BookingStatus", 1)
}

func TestStatusPoller_TimeoutKeepsInterval(t *testing.T) {
	m := &mockFetcher{}
	m.On("BookingStatus", mock.Anything, "tok", "b1").
		Run(func(args mock.Arguments) { <-args.Get(0).(context.Context).Done() }).
		Return(nil, context.DeadlineExceeded)

	p := NewStatusPoller(m, testSession, 50*time.Millisecond, 10*time.Millisecond, Hooks{})
	defer p.Close()

	p.Start("b1")
	require.Eventually(t, func() bool { return p.State() == StateTimeout }, time.Second, 5*time.Millisecond)
	assert.True(t, p.Running())
	require.Eventually(t, func() bool { return m.statusCalls.Load() >= 2 }, time.Second, 5*time.Millisecond)
}

func TestStatusPoller_NotFoundFallsBackOnce(t *testing.T) {
	tests := []struct {
		name      string
		fallback  *backend.Booking
		fbErr     error
		wantState PollState
		running   bool
	}{
		{"accepted is found", &backend.Booking{ID: "b1", Status: backend.StatusAccepted}, nil, StateFound, false},
		{"completed is terminal", &backend.Booking{ID: "b1", Status: backend.StatusCompleted}, nil, StateIdle, false},
		{"pending keeps polling", pending(), nil, StatePolling, true},
		{"fallback failure idles but keeps timer", nil, errors.New("boom"), StateIdle, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := &mockFetcher{}
			m.On("BookingStatus", mock.Anything, "tok", "b1").Return(nil, notFound())
			m.On("GetBooking", mock.Anything, "tok", "b1").Return(tt.fallback, tt.fbErr)

			p := NewStatusPoller(m, testSession, time.Hour, time.Second, Hooks{})
			defer p.Close()

			p.Start("b1")
			require.Eventually(t, func() bool { return m.getCalls.Load() == 1 }, time.Second, 5*time.Millisecond)
			time.Sleep(20 * time.Millisecond)
			assert.Equal(t, tt.wantState, p.State())

			m.AssertNumberOfCalls(t, "BookingStatus", 1)
			m.AssertNumberOfCalls(t, "GetBooking", 1)
			assert.Equal(t, tt.running, p.Running())
		})
	}
}

func TestStatusPoller_OtherErrorKeepsState(t *testing.T) {
	m := &mockFetcher{}
	m.On("BookingStatus", mock.Anything, "tok", "b1").Return(nil, common.NewBackendError("server error", nil))

	p := NewStatusPoller(m, testSession, time.Hour, time.Second, Hooks{})
	defer p.Close()

	p.Start("b1")
	require.Eventually(t, func() bool { return m.statusCalls.Load() == 1 }, time.Second, 5*time.Millisecond)
	time.Sleep(20 * time.Millisecond)
	assert.Equal(t, StatePolling, p.State())
	m.AssertNotCalled(t, "GetBooking", mock.Anything, mock.Anything, mock.Anything)
}

func TestStatusPoller_ResetDiscardsInflightResult(t *testing.T) {
	release := make(chan struct{})
	m := &mockFetcher{}
	m.On("BookingStatus", mock.Anything, "tok", "b1").
		Run(func(mock.Arguments) { <-release }).
		Return(&backend.Booking{ID: "b1", Status: backend.StatusAccepted}, nil)

	var found atomic.Int32
	p := NewStatusPoller(m, testSession, time.Hour, time.Second, Hooks{
		OnFound: func(*backend.Booking) { found.Add(1) },
	})

	p.Start("b1")
	require.Eventually(t, func() bool { return m.statusCalls.Load() == 1 }, time.Second, 5*time.Millisecond)

	p.Reset()
	p.Reset()
	close(release)
	time.Sleep(30 * time.Millisecond)

	assert.Equal(t, StateIdle, p.State())
	assert.Equal(t, int32(0), found.Load())
	assert.False(t, p.Running())
}
