package store

import (
	"testing"

	"github.com/stretchr/testify/require"
)

type collectingSink struct {
	events []Event
}

func (c *collectingSink) Publish(event Event) {
	c.events = append(c.events, event)
}

func (c *collectingSink) kinds() []EventKind {
	kinds := make([]EventKind, 0, len(c.events))
	for _, e := range c.events {
		kinds = append(kinds, e.Kind)
	}
	return kinds
}

func TestEventStreamForTransformRound(t *testing.T) {
	sink := &collectingSink{}
	s := New(counterState{}, WithEventSink[counterState](sink))
	t.Cleanup(s.Close)

	_, err := s.AddReducer(func(_ Action, state counterState) counterState {
		return state
	})
	require.NoError(t, err)

	_, err = s.AddMiddleware(func(_ *Scope, action Action, _ counterState, next Next, _ Dispatch) {
		next(testAction("rewritten"))
	})
	require.NoError(t, err)

	sink.events = nil
	require.NoError(t, s.Dispatch(testAction("original")))

	require.Equal(t, []EventKind{
		EventActionDispatched,
		EventActionForwarded,
		EventStatePublished,
	}, sink.kinds())

	forwarded := sink.events[1]
	require.Equal(t, "original", forwarded.ActionKind)
	require.Equal(t, "rewritten", forwarded.ForwardedKind)

	published := sink.events[2]
	require.Equal(t, "rewritten", published.ActionKind)
	require.False(t, published.At.IsZero())
}

func TestEventStreamForDroppedAction(t *testing.T) {
	sink := &collectingSink{}
	s := New(counterState{}, WithEventSink[counterState](sink))
	t.Cleanup(s.Close)

	_, err := s.AddMiddleware(func(*Scope, Action, counterState, Next, Dispatch) {})
	require.NoError(t, err)

	sink.events = nil
	require.NoError(t, s.Dispatch(testAction("swallowed")))

	require.Equal(t, []EventKind{
		EventActionDispatched,
		EventActionDropped,
	}, sink.kinds())
}

func TestEventStreamForRegistrationLifecycle(t *testing.T) {
	sink := &collectingSink{}
	s := New(counterState{}, WithEventSink[counterState](sink))
	t.Cleanup(s.Close)

	rh, err := s.AddReducer(func(_ Action, state counterState) counterState {
		return state
	})
	require.NoError(t, err)
	mh, err := s.AddMiddlewareWithTag(func(_ *Scope, a Action, _ counterState, next Next, _ Dispatch) {
		next(a)
	}, "audit")
	require.NoError(t, err)

	require.NoError(t, s.RemoveMiddleware(mh))
	require.NoError(t, s.RemoveReducer(rh))
	// Removing again emits nothing.
	require.NoError(t, s.RemoveReducer(rh))

	require.Equal(t, []EventKind{
		EventReducerAdded,
		EventMiddlewareAdded,
		EventMiddlewareRemoved,
		EventReducerRemoved,
	}, sink.kinds())

	added := sink.events[1]
	require.Equal(t, "audit", added.Tag)
	require.Equal(t, 1, added.Middlewares)

	removed := sink.events[2]
	require.Equal(t, "audit", removed.Tag)
	require.Zero(t, removed.Middlewares)
}

func TestStateUnchangedEvent(t *testing.T) {
	sink := &collectingSink{}
	s := New(counterState{},
		WithEventSink[counterState](sink),
		WithDuplicateSuppression(StructuralEquality[counterState]()),
	)
	t.Cleanup(s.Close)

	_, err := s.AddReducer(func(_ Action, state counterState) counterState {
		return state
	})
	require.NoError(t, err)

	sink.events = nil
	require.NoError(t, s.Dispatch(testAction("noop")))

	require.Equal(t, []EventKind{
		EventActionDispatched,
		EventStateUnchanged,
	}, sink.kinds())
}
