package store

import (
	"sync"

	"github.com/emirpasic/gods/queues/linkedlistqueue"
)

// round is one queued unit of dispatch work: the action plus the terminal
// behavior of its entry point (full pipeline, middlewares only, or reducers
// only). Every entry point enqueues a round, so all three share the same
// serialization.
type round struct {
	action Action
	run    func(Action)
}

// dispatchQueue serializes dispatch rounds. It is a FIFO of not-yet-processed
// rounds plus a draining flag claiming the single drain loop. Safe for
// concurrent use: middleware async work may re-enter push from any goroutine.
type dispatchQueue struct {
	mu       sync.Mutex
	pending  *linkedlistqueue.Queue
	draining bool
}

func newDispatchQueue() *dispatchQueue {
	return &dispatchQueue{
		pending: linkedlistqueue.New(),
	}
}

// push appends r and reports whether the caller has become the drainer.
// When a drain loop is already in flight, the round is picked up by that
// loop once the current round finishes.
func (q *dispatchQueue) push(r round) bool {
	q.mu.Lock()
	defer q.mu.Unlock()

	q.pending.Enqueue(r)
	if q.draining {
		return false
	}
	q.draining = true
	return true
}

// pop hands the drainer the next round. When the queue is empty the
// draining flag is released atomically with the emptiness check, so a
// concurrent push either sees the flag still set or claims the loop itself.
func (q *dispatchQueue) pop() (round, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	v, ok := q.pending.Dequeue()
	if !ok {
		q.draining = false
		return round{}, false
	}
	return v.(round), true
}

// fault releases the draining flag after a panic unwound the drain loop.
// Queued rounds are kept; the next push resumes draining them.
func (q *dispatchQueue) fault() {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.draining = false
}

func (q *dispatchQueue) depth() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.pending.Size()
}
