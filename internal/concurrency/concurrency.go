package concurrency

import (
	"context"

	"github.com/sourcegraph/conc/pool"
)

// NewPool returns a pool whose tasks all observe ctx. Unlike an
// error-cancelling pool, one task failing does not tear down its siblings;
// Wait() reports the first error seen.
func NewPool(ctx context.Context, maxGoroutines int) *pool.ContextPool {
	return pool.New().
		WithContext(ctx).
		WithFirstError().
		WithMaxGoroutines(maxGoroutines)
}

// TrySendThroughChannel attempts to send msg through channel without ever
// blocking past context cancellation. Returns false if the context was
// already done or became done while waiting for channel capacity.
func TrySendThroughChannel[T any](ctx context.Context, msg T, channel chan<- T) bool {
	if ctx.Err() != nil {
		return false
	}
	select {
	case <-ctx.Done():
		return false
	case channel <- msg:
		return true
	}
}

// TryDropSendThroughChannel is the non-blocking variant: if the channel has
// no capacity right now, the message is dropped rather than waited on.
func TryDropSendThroughChannel[T any](ctx context.Context, msg T, channel chan<- T) bool {
	if ctx.Err() != nil {
		return false
	}
	select {
	case <-ctx.Done():
		return false
	case channel <- msg:
		return true
	default:
		return false
	}
}
