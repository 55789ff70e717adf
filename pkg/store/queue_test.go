package store

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func queuedRound(kind string) round {
	return round{action: testAction(kind)}
}

func TestDispatchQueue(t *testing.T) {
	t.Run("first_push_claims_the_drain", func(t *testing.T) {
		q := newDispatchQueue()

		require.True(t, q.push(queuedRound("a")))
		require.False(t, q.push(queuedRound("b")))
		require.Equal(t, 2, q.depth())
	})

	t.Run("pop_is_fifo", func(t *testing.T) {
		q := newDispatchQueue()
		q.push(queuedRound("a"))
		q.push(queuedRound("b"))

		first, ok := q.pop()
		require.True(t, ok)
		require.Equal(t, "a", first.action.Kind())

		second, ok := q.pop()
		require.True(t, ok)
		require.Equal(t, "b", second.action.Kind())
	})

	t.Run("empty_pop_releases_the_drain", func(t *testing.T) {
		q := newDispatchQueue()
		require.True(t, q.push(queuedRound("a")))

		_, ok := q.pop()
		require.True(t, ok)
		_, ok = q.pop()
		require.False(t, ok)

		// The drain was released, so the next push claims it again.
		require.True(t, q.push(queuedRound("b")))
	})

	t.Run("fault_keeps_queued_rounds", func(t *testing.T) {
		q := newDispatchQueue()
		require.True(t, q.push(queuedRound("a")))
		require.False(t, q.push(queuedRound("b")))

		_, ok := q.pop()
		require.True(t, ok)
		q.fault()

		require.True(t, q.push(queuedRound("c")))
		require.Equal(t, 2, q.depth())

		next, ok := q.pop()
		require.True(t, ok)
		require.Equal(t, "b", next.action.Kind())
	})
}
