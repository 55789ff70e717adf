package store

// Action is an immutable value describing an intent to change state. Kind is
// the action's discriminator: reducers and middlewares switch on it instead
// of inspecting the concrete type.
type Action interface {
	Kind() string
}

// Reducer is a pure function computing the next state from the current state
// and an action. Reducers run in addition order; the output of reducer i is
// the input of reducer i+1.
type Reducer[S any] func(action Action, state S) S

// Next forwards an action to the next pipeline stage. A middleware that
// never calls Next drops the action: no later middleware and no reducer
// sees it. Calling Next with a different action substitutes it for the
// remainder of the chain.
type Next func(Action)

// Dispatch re-enters the store's dispatch queue with a new action. Each call
// enqueues an independent round; it is never spliced into the current one.
type Dispatch func(Action) error

// Middleware intercepts an action before the reducers run. It receives its
// own execution scope for asynchronous side effects, a snapshot of the state
// taken at invocation time, the Next continuation, and a Dispatch callback.
type Middleware[S any] func(scope *Scope, action Action, state S, next Next, dispatch Dispatch)

// Subscriber receives every published state, starting with an initial
// snapshot at subscription time.
type Subscriber[S any] func(state S)
