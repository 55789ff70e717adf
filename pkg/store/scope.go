package store

import (
	"context"
	"errors"
	"sync"

	"github.com/sourcegraph/conc/pool"
	"go.uber.org/zap"

	"github.com/statekit/statekit/internal/concurrency"
	"github.com/statekit/statekit/pkg/id"
	"github.com/statekit/statekit/pkg/logger"
)

// Scope is the cancellable execution context bound one-to-one to a
// middleware registration. All asynchronous work a middleware starts must go
// through Scope.Go so that removing the middleware deterministically stops
// the work from spawning further dispatches.
type Scope struct {
	handle id.Handle
	ctx    context.Context
	cancel context.CancelFunc
	pool   *pool.ContextPool
	logger logger.Logger

	mu     sync.Mutex
	closed bool

	closeOnce sync.Once
}

func newScope(parent context.Context, handle id.Handle, maxGoroutines int, log logger.Logger) *Scope {
	ctx, cancel := context.WithCancel(parent)
	return &Scope{
		handle: handle,
		ctx:    ctx,
		cancel: cancel,
		pool:   concurrency.NewPool(ctx, maxGoroutines),
		logger: log,
	}
}

// Context returns the scope's context. It is cancelled when the owning
// middleware is removed or the store is closed.
func (s *Scope) Context() context.Context {
	return s.ctx
}

// Go schedules fn on the scope's pool. It reports false, without running fn,
// if the scope has already been cancelled.
func (s *Scope) Go(fn func(ctx context.Context) error) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed || s.ctx.Err() != nil {
		return false
	}
	s.pool.Go(fn)
	return true
}

// close cancels the scope exactly once and waits for in-flight tasks to
// finish. Cancellation is signalled before the wait, so tasks that have not
// yet started never will, and running tasks observe ctx.Done. A panic from a
// task resurfaces here.
func (s *Scope) close() {
	s.closeOnce.Do(func() {
		s.cancel()

		s.mu.Lock()
		s.closed = true
		s.mu.Unlock()

		if err := s.pool.Wait(); err != nil && !errors.Is(err, context.Canceled) {
			s.logger.Warn("middleware scope finished with error",
				zap.String("middleware", s.handle.String()),
				zap.Error(err),
			)
		}
	})
}
