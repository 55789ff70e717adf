package store

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func newCounterStore(t *testing.T, opts ...Option[counterState]) *Store[counterState] {
	t.Helper()

	s := New(counterState{}, opts...)
	t.Cleanup(s.Close)

	_, err := s.AddReducer(func(action Action, state counterState) counterState {
		if action.Kind() == "increment" {
			return counterState{Count: state.Count + 1}
		}
		return state
	})
	require.NoError(t, err)
	return s
}

func TestSubscribeReceivesInitialSnapshot(t *testing.T) {
	s := New(counterState{Count: 42})
	t.Cleanup(s.Close)

	var got []counterState
	sub := s.Subscribe(func(state counterState) {
		got = append(got, state)
	})
	t.Cleanup(sub.Cancel)

	require.Equal(t, []counterState{{Count: 42}}, got)
}

func TestSubscriberReentrancy(t *testing.T) {
	s := newCounterStore(t)

	var fromS2 []int
	var s2 *Subscription

	s1 := s.Subscribe(func(state counterState) {
		if state.Count == 1 && s2 == nil {
			s2 = s.Subscribe(func(state counterState) {
				fromS2 = append(fromS2, state.Count)
			})
			// S2 is buffered until the round completes; only S1 is live.
			require.Equal(t, 1, s.Subscribers())
		}
	})
	t.Cleanup(s1.Cancel)

	require.NoError(t, s.Dispatch(testAction("increment")))

	require.NotNil(t, s2)
	t.Cleanup(s2.Cancel)
	require.Equal(t, 2, s.Subscribers())

	// S2 got its initial snapshot at subscribe time, and receives the next
	// published state as a live observer.
	require.Equal(t, []int{1}, fromS2)
	require.NoError(t, s.Dispatch(testAction("increment")))
	require.Equal(t, []int{1, 2}, fromS2)
}

func TestUnsubscribeDuringNotification(t *testing.T) {
	s := newCounterStore(t)

	var s2 *Subscription
	s1 := s.Subscribe(func(state counterState) {
		if state.Count == 1 {
			s2.Cancel()
		}
	})
	t.Cleanup(s1.Cancel)

	var s2Calls int
	s2 = s.Subscribe(func(counterState) {
		s2Calls++
	})
	require.Equal(t, 1, s2Calls) // initial snapshot

	require.NoError(t, s.Dispatch(testAction("increment")))
	require.NoError(t, s.Dispatch(testAction("increment")))

	// S2 was removed mid-round; it saw nothing after its initial snapshot.
	require.Equal(t, 1, s2Calls)
	require.Equal(t, 1, s.Subscribers())
}

func TestUnsubscribeAfterNestedDispatchInCallback(t *testing.T) {
	s := newCounterStore(t)

	var s2 *Subscription
	var s2Calls int
	nested := false

	// S1 re-enters through the reducer-only entry point before cancelling
	// S2. The nested dispatch must queue behind the round in flight, not run
	// inline, or the registry's round bookkeeping would reset and the
	// cancellation would miss the remainder of the outer round.
	s1 := s.Subscribe(func(state counterState) {
		if state.Count == 1 && !nested {
			nested = true
			require.NoError(t, s.DispatchToReducers(testAction("noop")))
			s2.Cancel()
		}
	})
	t.Cleanup(s1.Cancel)

	s2 = s.Subscribe(func(counterState) {
		s2Calls++
	})
	require.Equal(t, 1, s2Calls) // initial snapshot

	require.NoError(t, s.Dispatch(testAction("increment")))

	require.Equal(t, 1, s2Calls)
	require.Equal(t, 1, s.Subscribers())
}

func TestSubscribeThenCancelWithinRoundNeverFires(t *testing.T) {
	s := newCounterStore(t)

	var lateCalls int
	s1 := s.Subscribe(func(state counterState) {
		if state.Count != 1 {
			return
		}
		late := s.Subscribe(func(state counterState) {
			if state.Count > 1 {
				lateCalls++
			}
		})
		late.Cancel()
	})
	t.Cleanup(s1.Cancel)

	require.NoError(t, s.Dispatch(testAction("increment")))
	require.Equal(t, 1, s.Subscribers())

	require.NoError(t, s.Dispatch(testAction("increment")))
	require.Zero(t, lateCalls)
}

func TestCancelIsIdempotent(t *testing.T) {
	s := newCounterStore(t)

	sub := s.Subscribe(func(counterState) {})
	require.Equal(t, 1, s.Subscribers())

	sub.Cancel()
	sub.Cancel()
	require.Zero(t, s.Subscribers())
}

func TestWatch(t *testing.T) {
	t.Cleanup(func() {
		goleak.VerifyNone(t)
	})

	s := newCounterStore(t)

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	ch := s.Watch(ctx, 8)

	require.NoError(t, s.Dispatch(testAction("increment")))
	require.NoError(t, s.Dispatch(testAction("increment")))

	var got []int
	for len(got) < 3 {
		state := <-ch
		got = append(got, state.Count)
	}
	require.Equal(t, []int{0, 1, 2}, got)
}

func TestWatchDropsWhenFull(t *testing.T) {
	t.Cleanup(func() {
		goleak.VerifyNone(t)
	})

	s := newCounterStore(t)

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	// Buffer of one: the initial snapshot fills it, later publications drop
	// instead of blocking the dispatch path.
	ch := s.Watch(ctx, 1)
	require.NoError(t, s.Dispatch(testAction("increment")))
	require.NoError(t, s.Dispatch(testAction("increment")))

	state := <-ch
	require.Equal(t, 0, state.Count)
	require.Empty(t, ch)
}

func TestDuplicateSuppression(t *testing.T) {
	var testcases = map[string]struct {
		suppress      bool
		wantPublishes int
	}{
		`suppressed`: {
			suppress:      true,
			wantPublishes: 1, // initial snapshot only
		},
		`always_notify`: {
			suppress:      false,
			wantPublishes: 3,
		},
	}

	for name, tc := range testcases {
		t.Run(name, func(t *testing.T) {
			var opts []Option[counterState]
			if tc.suppress {
				opts = append(opts, WithDuplicateSuppression(StructuralEquality[counterState]()))
			}
			s := newCounterStore(t, opts...)

			var publishes int
			sub := s.Subscribe(func(counterState) {
				publishes++
			})
			t.Cleanup(sub.Cancel)

			// "noop" reaches the reducer but produces an identical state.
			require.NoError(t, s.Dispatch(testAction("noop")))
			require.NoError(t, s.Dispatch(testAction("noop")))

			require.Equal(t, tc.wantPublishes, publishes)
		})
	}
}
