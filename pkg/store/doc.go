// Package store implements a unidirectional-data-flow state container.
//
// A Store owns a single current state value that is only ever replaced by
// dispatching actions through a serialized pipeline: an ordered middleware
// chain followed by an ordered list of pure reducers. Middlewares can
// observe, transform, or drop actions, and can spawn asynchronous side
// effects inside a cancellable per-middleware execution scope whose lifetime
// is bound to the middleware's registration.
//
// Dispatch rounds are strictly serialized. Dispatching from inside a
// middleware or reducer appends to the in-flight round's queue rather than
// recursing, so reducers always observe actions in the exact order Dispatch
// was called. Subscribers are notified after every completed reducer pass
// and may subscribe or unsubscribe other observers from inside their own
// callback without corrupting the notification round.
package store
