package store

import "time"

// EventKind discriminates the entries of the store's raw event stream.
type EventKind string

const (
	EventActionDispatched  EventKind = "action_dispatched"
	EventActionForwarded   EventKind = "action_forwarded"
	EventActionDropped     EventKind = "action_dropped"
	EventStatePublished    EventKind = "state_published"
	EventStateUnchanged    EventKind = "state_unchanged"
	EventMiddlewareAdded   EventKind = "middleware_added"
	EventMiddlewareRemoved EventKind = "middleware_removed"
	EventReducerAdded      EventKind = "reducer_added"
	EventReducerRemoved    EventKind = "reducer_removed"
)

// Event is one entry of the store's raw event stream: a passive, copy-only
// view of what the dispatch engine did. Events carry action kinds rather
// than the actions themselves.
type Event struct {
	Kind EventKind

	// ActionKind is set for action-related events.
	ActionKind string

	// ForwardedKind is the kind handed to the next pipeline stage. It differs
	// from ActionKind when a middleware substituted the action.
	ForwardedKind string

	// Tag is set for tagged middleware lifecycle events.
	Tag string

	// Middlewares and Reducers are list-size snapshots at emission time.
	Middlewares int
	Reducers    int

	At time.Time
}

// EventSink receives the store's event stream. Publish is called
// synchronously from the dispatch path and therefore must never block;
// implementations buffer or drop.
type EventSink interface {
	Publish(Event)
}
