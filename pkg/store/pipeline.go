package store

import (
	"fmt"

	statekitErrors "github.com/statekit/statekit/internal/errors"
)

// buildPipeline right-folds the middleware snapshot onto the terminal step:
// the continuation of middleware k invokes middleware k+1, and the innermost
// continuation is the terminal step. Full dispatch uses reducer application
// as the terminal; middleware-only dispatch uses a no-op.
func (s *Store[S]) buildPipeline(entries []*middlewareEntry[S], terminal Next) Next {
	next := terminal
	for i := len(entries) - 1; i >= 0; i-- {
		entry := entries[i]
		downstream := next
		next = func(action Action) {
			s.invokeMiddleware(entry, action, downstream)
		}
	}
	return next
}

func (s *Store[S]) invokeMiddleware(entry *middlewareEntry[S], action Action, next Next) {
	s.mu.Lock()
	scope, ok := s.middlewares.scope(entry.handle)
	listed := s.middlewares.contains(entry.handle)
	state := s.state
	s.mu.Unlock()

	if !ok {
		if listed {
			// The list and the scope registry are mutated together; a listed
			// middleware without a scope means they diverged.
			panic(statekitErrors.With(ErrMissingExecutionContext, fmt.Errorf("middleware %s", entry.handle)))
		}
		// Removed while this round was in flight. The middleware no longer
		// exists, so the action passes straight through to its continuation.
		next(action)
		return
	}

	forwarded := false
	wrappedNext := func(forwardedAction Action) {
		forwarded = true
		s.emit(Event{
			Kind:          EventActionForwarded,
			ActionKind:    action.Kind(),
			ForwardedKind: forwardedAction.Kind(),
		})
		next(forwardedAction)
	}

	entry.fn(scope, action, state, wrappedNext, s.Dispatch)

	if !forwarded {
		s.emit(Event{Kind: EventActionDropped, ActionKind: action.Kind()})
	}
}
