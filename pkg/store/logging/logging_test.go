package logging

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/statekit/statekit/pkg/logger"
	"github.com/statekit/statekit/pkg/store"
)

type counterState struct {
	Count int
}

type incrementAction struct{}

func (incrementAction) Kind() string { return "increment" }

func TestSinkLogsDispatchRound(t *testing.T) {
	t.Cleanup(func() {
		goleak.VerifyNone(t)
	})

	log, logs := logger.NewObserverLogger("debug")
	sink := NewSink(log)

	s := store.New(counterState{}, store.WithEventSink[counterState](sink))
	t.Cleanup(s.Close)

	_, err := s.AddReducer(func(_ store.Action, state counterState) counterState {
		return counterState{Count: state.Count + 1}
	})
	require.NoError(t, err)

	require.NoError(t, s.Dispatch(incrementAction{}))
	sink.Close()

	var messages []string
	for _, entry := range logs.All() {
		messages = append(messages, entry.Message)
	}
	require.Contains(t, messages, "reducer_added")
	require.Contains(t, messages, "action dispatched")
	require.Contains(t, messages, "state published")
}

func TestSinkNeverBlocks(t *testing.T) {
	t.Cleanup(func() {
		goleak.VerifyNone(t)
	})

	log, _ := logger.NewObserverLogger("debug")
	sink := NewSink(log, WithBufferSize(1))
	t.Cleanup(sink.Close)

	done := make(chan struct{})
	go func() {
		defer close(done)
		for i := 0; i < 10_000; i++ {
			sink.Publish(store.Event{Kind: store.EventActionDispatched, ActionKind: "flood"})
		}
	}()

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("Publish blocked")
	}
}

func TestPublishAfterCloseIsDropped(t *testing.T) {
	log, logs := logger.NewObserverLogger("debug")
	sink := NewSink(log)
	sink.Close()

	require.NotPanics(t, func() {
		sink.Publish(store.Event{Kind: store.EventActionDispatched, ActionKind: "late"})
	})
	require.Zero(t, logs.Len())
}
