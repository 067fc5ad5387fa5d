package async

import (
	"context"
	"runtime/debug"
	"time"

	"github.com/richxcame/ride-booking-client/pkg/logger"
	"go.uber.org/zap"
)

// Go runs fn in a goroutine with the caller's context and panic recovery.
// The context is passed through unchanged so cancelling it still reaches fn.
//
// Usage:
//
//	async.Go(ctx, "booking-status", func(ctx context.Context) {
//	    poller.fetch(ctx, seq, id)
//	})
func Go(ctx context.Context, taskName string, fn func(ctx context.Context)) {
	go Run(ctx, taskName, fn)
}

// Run is the synchronous form of Go. It returns true when fn completed
// without panicking.
func Run(ctx context.Context, taskName string, fn func(ctx context.Context)) (ok bool) {
	start := time.Now()
	defer func() {
		if r := recover(); r != nil {
			logger.ErrorContext(ctx, "async task panicked",
				zap.String("task", taskName),
				zap.Any("panic", r),
				zap.String("stack", string(debug.Stack())),
			)
			ok = false
		}
	}()

	fn(ctx)

	logger.DebugContext(ctx, "async task completed",
		zap.String("task", taskName),
		zap.Duration("duration", time.Since(start)),
	)
	return true
}
