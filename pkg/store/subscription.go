package store

import (
	"slices"
	"sync"

	"github.com/emirpasic/gods/sets/hashset"

	"github.com/statekit/statekit/pkg/id"
)

// Subscription is the handle returned by Store.Subscribe. Cancel is safe to
// call from any goroutine, including from inside a notification callback,
// and more than once.
type Subscription struct {
	handle id.Handle
	cancel func()
	once   sync.Once
}

// ID returns the subscription's handle.
func (s *Subscription) ID() id.Handle {
	return s.handle
}

// Cancel removes the subscriber. If a notification round is in progress the
// removal is buffered and applied once the round completes; the subscriber
// is not invoked again within that round.
func (s *Subscription) Cancel() {
	s.once.Do(s.cancel)
}

type subscriberEntry[S any] struct {
	handle id.Handle
	fn     Subscriber[S]
}

// subscriberRegistry is a reentrant-safe observer set. While a notification
// round is iterating the live list, subscribes and unsubscribes land in the
// pending buffers and are merged after the round, so callbacks can freely
// mutate the observer set in reaction to a state value.
type subscriberRegistry[S any] struct {
	mu            sync.Mutex
	live          []*subscriberEntry[S]
	pendingAdd    []*subscriberEntry[S]
	pendingRemove *hashset.Set
	notifying     bool
}

func newSubscriberRegistry[S any]() *subscriberRegistry[S] {
	return &subscriberRegistry[S]{
		pendingRemove: hashset.New(),
	}
}

func (r *subscriberRegistry[S]) subscribe(fn Subscriber[S]) *subscriberEntry[S] {
	entry := &subscriberEntry[S]{
		handle: id.New(),
		fn:     fn,
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if r.notifying {
		r.pendingAdd = append(r.pendingAdd, entry)
	} else {
		r.live = append(r.live, entry)
	}
	return entry
}

func (r *subscriberRegistry[S]) unsubscribe(handle id.Handle) {
	r.mu.Lock()
	defer r.mu.Unlock()

	// An add immediately followed by a remove within the same round must not
	// fire, so the pending-add buffer is purged eagerly.
	r.pendingAdd = slices.DeleteFunc(r.pendingAdd, func(e *subscriberEntry[S]) bool {
		return e.handle == handle
	})

	if r.notifying {
		r.pendingRemove.Add(handle)
		return
	}
	r.live = slices.DeleteFunc(r.live, func(e *subscriberEntry[S]) bool {
		return e.handle == handle
	})
}

// notify invokes every observer that was live when the round began and has
// not been removed mid-round. Callbacks run without the registry lock held.
// Rounds never nest: the dispatch queue serializes all state publication.
func (r *subscriberRegistry[S]) notify(state S) {
	r.mu.Lock()
	r.notifying = true
	snapshot := slices.Clone(r.live)
	r.mu.Unlock()

	for _, entry := range snapshot {
		r.mu.Lock()
		removed := r.pendingRemove.Contains(entry.handle)
		r.mu.Unlock()
		if removed {
			continue
		}
		entry.fn(state)
	}

	r.mu.Lock()
	r.notifying = false
	r.live = append(r.live, r.pendingAdd...)
	r.pendingAdd = nil
	if r.pendingRemove.Size() > 0 {
		r.live = slices.DeleteFunc(r.live, func(e *subscriberEntry[S]) bool {
			return r.pendingRemove.Contains(e.handle)
		})
		r.pendingRemove.Clear()
	}
	r.mu.Unlock()
}

// count reports the live list size. Pending additions are not counted until
// their round completes.
func (r *subscriberRegistry[S]) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.live)
}
