package resilience

import "context"

// FallbackFunc answers a request the breaker rejected. err wraps ErrCircuitOpen.
type FallbackFunc[T any] func(ctx context.Context, err error) (T, error)
