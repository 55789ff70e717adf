package store

import (
	"context"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/google/go-cmp/cmp"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/statekit/statekit/internal/concurrency"
	statekitErrors "github.com/statekit/statekit/internal/errors"
	"github.com/statekit/statekit/internal/utils"
	"github.com/statekit/statekit/pkg/id"
	"github.com/statekit/statekit/pkg/logger"
)

var tracer = otel.Tracer("statekit/pkg/store")

const defaultMaxScopeGoroutines = 10

// AffinityFunc reports whether the calling context may mutate the store. It
// is evaluated on every mutating entry point; read-only access is never
// checked. A nil predicate allows every caller.
type AffinityFunc func() bool

type reducerEntry[S any] struct {
	handle id.Handle
	fn     Reducer[S]
}

// Store is a single mutable state cell updated only through a serialized
// pipeline of middlewares and pure reducers. The zero value is not usable;
// construct with New.
type Store[S any] struct {
	mu          sync.Mutex
	state       S
	reducers    []*reducerEntry[S]
	middlewares *middlewareRegistry[S]

	queue       *dispatchQueue
	subscribers *subscriberRegistry[S]

	// ctx parents every middleware scope; cancelled on Close.
	ctx    context.Context
	cancel context.CancelFunc

	logger             logger.Logger
	affinity           AffinityFunc
	sink               EventSink
	equal              func(prev, next S) bool
	maxScopeGoroutines int
}

// Option configures a Store at construction time.
type Option[S any] func(*Store[S])

// WithLogger sets the store's logger. Defaults to a noop logger.
func WithLogger[S any](l logger.Logger) Option[S] {
	return func(s *Store[S]) {
		s.logger = l
	}
}

// WithAffinity installs the predicate evaluated on every mutating call.
func WithAffinity[S any](fn AffinityFunc) Option[S] {
	return func(s *Store[S]) {
		s.affinity = fn
	}
}

// WithEventSink attaches a sink for the store's raw event stream.
func WithEventSink[S any](sink EventSink) Option[S] {
	return func(s *Store[S]) {
		s.sink = sink
	}
}

// WithDuplicateSuppression skips subscriber notification when equal reports
// the freshly reduced state identical to the prior one. Without this option
// every completed reducer pass notifies, changed or not.
func WithDuplicateSuppression[S any](equal func(prev, next S) bool) Option[S] {
	return func(s *Store[S]) {
		s.equal = equal
	}
}

// WithMaxScopeGoroutines caps the goroutines of each middleware's execution
// scope.
func WithMaxScopeGoroutines[S any](n int) Option[S] {
	return func(s *Store[S]) {
		s.maxScopeGoroutines = n
	}
}

// StructuralEquality returns a structural state comparison built on go-cmp,
// suitable for WithDuplicateSuppression. Pass cmp options as needed for
// unexported fields.
func StructuralEquality[S any](opts ...cmp.Option) func(S, S) bool {
	return func(prev, next S) bool {
		return cmp.Equal(prev, next, opts...)
	}
}

// New constructs a Store holding initial as its current state.
func New[S any](initial S, opts ...Option[S]) *Store[S] {
	ctx, cancel := context.WithCancel(context.Background())
	s := &Store[S]{
		state:              initial,
		middlewares:        newMiddlewareRegistry[S](),
		queue:              newDispatchQueue(),
		subscribers:        newSubscriberRegistry[S](),
		ctx:                ctx,
		cancel:             cancel,
		logger:             logger.NewNoopLogger(),
		maxScopeGoroutines: defaultMaxScopeGoroutines,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Store[S]) checkAffinity(op string) error {
	if s.affinity == nil || s.affinity() {
		return nil
	}
	return statekitErrors.With(ErrAffinityViolation, fmt.Errorf("%s", op))
}

func (s *Store[S]) emit(event Event) {
	if s.sink == nil {
		return
	}
	event.At = time.Now()
	s.sink.Publish(event)
}

// Dispatch runs action through the full pipeline: every middleware in
// addition order, then the reducer list. Calls made while a round is already
// draining, including from inside middlewares and reducers, are appended to
// the queue and processed by the in-flight loop in FIFO order.
//
// A panic out of a middleware or reducer propagates to the caller uncaught.
// Rounds still queued at that point are kept and drained by the next call
// to any dispatch entry point.
func (s *Store[S]) Dispatch(action Action) error {
	if err := s.checkAffinity("Dispatch"); err != nil {
		return err
	}
	dispatchedActionsCounter.WithLabelValues("dispatch").Inc()
	s.emit(Event{Kind: EventActionDispatched, ActionKind: action.Kind()})

	s.enqueue(round{action: action, run: s.fullRound})
	return nil
}

// DispatchToMiddlewares runs action through the middleware chain with a
// no-op terminal step: side effects fire, state is untouched. It shares the
// dispatch queue with every other entry point, so a call made while a round
// is in flight is queued behind it.
func (s *Store[S]) DispatchToMiddlewares(action Action) error {
	if err := s.checkAffinity("DispatchToMiddlewares"); err != nil {
		return err
	}
	dispatchedActionsCounter.WithLabelValues("middlewares_only").Inc()
	s.emit(Event{Kind: EventActionDispatched, ActionKind: action.Kind()})

	s.enqueue(round{action: action, run: s.middlewaresOnlyRound})
	return nil
}

// DispatchToReducers feeds action directly to the reducer list, bypassing
// the middleware chain entirely. It shares the dispatch queue with every
// other entry point, so a call made while a round is in flight is queued
// behind it.
func (s *Store[S]) DispatchToReducers(action Action) error {
	if err := s.checkAffinity("DispatchToReducers"); err != nil {
		return err
	}
	dispatchedActionsCounter.WithLabelValues("reducers_only").Inc()
	s.emit(Event{Kind: EventActionDispatched, ActionKind: action.Kind()})

	s.enqueue(round{action: action, run: s.applyReducers})
	return nil
}

func (s *Store[S]) fullRound(action Action) {
	s.runRound(action, s.applyReducers)
}

func (s *Store[S]) middlewaresOnlyRound(action Action) {
	s.runRound(action, func(Action) {})
}

// enqueue appends r and drains the queue if no drain loop is in flight.
// Exactly one drainer runs at a time, so every round, whichever entry point
// produced it, is serialized against every other.
func (s *Store[S]) enqueue(r round) {
	drainer := s.queue.push(r)
	queueDepthGauge.Set(float64(s.queue.depth()))
	if drainer {
		s.drain()
	}
}

func (s *Store[S]) drain() {
	defer func() {
		if r := recover(); r != nil {
			// User code panicked mid-round. Release the drain claim so a
			// later dispatch resumes the remaining queued rounds, then let
			// the panic keep unwinding.
			s.queue.fault()
			panic(r)
		}
	}()

	for {
		r, ok := s.queue.pop()
		queueDepthGauge.Set(float64(s.queue.depth()))
		if !ok {
			return
		}
		r.run(r.action)
	}
}

func (s *Store[S]) runRound(action Action, terminal Next) {
	start := time.Now()
	_, span := tracer.Start(s.ctx, "dispatchRound", trace.WithAttributes(
		attribute.String("action_kind", action.Kind()),
	))
	defer span.End()

	s.mu.Lock()
	entries := s.middlewares.snapshot()
	s.mu.Unlock()

	s.buildPipeline(entries, terminal)(action)
	dispatchDurationHistogram.Observe(float64(time.Since(start).Milliseconds()))
}

// applyReducers folds action through the reducer list in addition order and
// installs the result as the current state. By the time this returns, the
// new state is already observable through State.
func (s *Store[S]) applyReducers(action Action) {
	s.mu.Lock()
	reducers := slices.Clone(s.reducers)
	prev := s.state
	s.mu.Unlock()

	next := utils.Reduce(reducers, prev, func(state S, entry *reducerEntry[S]) S {
		return entry.fn(action, state)
	})

	s.mu.Lock()
	s.state = next
	s.mu.Unlock()

	s.publishState(prev, next, action)
}

func (s *Store[S]) publishState(prev, next S, action Action) {
	if s.equal != nil && s.equal(prev, next) {
		suppressedPublishesCounter.Inc()
		s.logger.Debug("state unchanged, notification suppressed",
			zap.String("action_kind", action.Kind()),
		)
		s.emit(Event{Kind: EventStateUnchanged, ActionKind: action.Kind()})
		return
	}

	s.emit(Event{Kind: EventStatePublished, ActionKind: action.Kind()})
	s.subscribers.notify(next)
}

// AddReducer appends r to the reducer list and returns its handle.
func (s *Store[S]) AddReducer(r Reducer[S]) (id.Handle, error) {
	if err := s.checkAffinity("AddReducer"); err != nil {
		return "", err
	}

	handle := id.New()
	s.mu.Lock()
	s.reducers = append(s.reducers, &reducerEntry[S]{handle: handle, fn: r})
	size := len(s.reducers)
	s.mu.Unlock()

	s.emit(Event{Kind: EventReducerAdded, Reducers: size})
	s.logger.Debug("reducer added", zap.String("handle", handle.String()))
	return handle, nil
}

// RemoveReducer removes the reducer registered under handle. Removing an
// unknown handle is a no-op.
func (s *Store[S]) RemoveReducer(handle id.Handle) error {
	if err := s.checkAffinity("RemoveReducer"); err != nil {
		return err
	}

	s.mu.Lock()
	before := len(s.reducers)
	s.reducers = slices.DeleteFunc(s.reducers, func(e *reducerEntry[S]) bool {
		return e.handle == handle
	})
	size := len(s.reducers)
	s.mu.Unlock()

	if size != before {
		s.emit(Event{Kind: EventReducerRemoved, Reducers: size})
		s.logger.Debug("reducer removed", zap.String("handle", handle.String()))
	}
	return nil
}

// AddMiddleware appends m to the middleware chain and allocates its
// execution scope.
func (s *Store[S]) AddMiddleware(m Middleware[S]) (id.Handle, error) {
	return s.addMiddleware(m, "", false)
}

// AddMiddlewareWithTag appends m under tag for bulk lifecycle management.
// Tags are case-sensitive strings; empty and whitespace tags are valid and
// distinct keys.
func (s *Store[S]) AddMiddlewareWithTag(m Middleware[S], tag string) (id.Handle, error) {
	return s.addMiddleware(m, tag, true)
}

func (s *Store[S]) addMiddleware(m Middleware[S], tag string, tagged bool) (id.Handle, error) {
	if err := s.checkAffinity("AddMiddleware"); err != nil {
		return "", err
	}

	handle := id.New()
	scope := newScope(s.ctx, handle, s.maxScopeGoroutines, s.logger)
	entry := &middlewareEntry[S]{handle: handle, fn: m, tag: tag, tagged: tagged}

	s.mu.Lock()
	s.middlewares.add(entry, scope)
	size := s.middlewares.size()
	s.mu.Unlock()

	s.emit(Event{Kind: EventMiddlewareAdded, Tag: tag, Middlewares: size})
	s.logger.Debug("middleware added",
		zap.String("handle", handle.String()),
		zap.String("tag", tag),
	)
	return handle, nil
}

// RemoveMiddleware removes the middleware registered under handle and
// cancels its execution scope: queued-but-unstarted scope work never runs,
// and in-flight work that has not yet observed cancellation may still
// complete. Removing an unknown handle is a no-op.
func (s *Store[S]) RemoveMiddleware(handle id.Handle) error {
	if err := s.checkAffinity("RemoveMiddleware"); err != nil {
		return err
	}
	s.removeMiddleware(handle)
	return nil
}

func (s *Store[S]) removeMiddleware(handle id.Handle) {
	s.mu.Lock()
	entry, scope := s.middlewares.remove(handle)
	size := s.middlewares.size()
	s.mu.Unlock()
	if entry == nil {
		return
	}

	// Outside the store lock: scope work may be re-entering Dispatch right
	// now, and close waits for it.
	scope.close()

	s.emit(Event{Kind: EventMiddlewareRemoved, Tag: entry.tag, Middlewares: size})
	s.logger.Debug("middleware removed", zap.String("handle", handle.String()))
}

// RemoveMiddlewaresByTag removes every middleware currently under tag, in
// addition order, cancelling each scope. An unknown or empty tag is a no-op.
func (s *Store[S]) RemoveMiddlewaresByTag(tag string) error {
	if err := s.checkAffinity("RemoveMiddlewaresByTag"); err != nil {
		return err
	}

	s.mu.Lock()
	handles := s.middlewares.membersOf(tag)
	s.mu.Unlock()

	for _, handle := range handles {
		s.removeMiddleware(handle)
	}
	return nil
}

// HasMiddlewaresForTag reports whether tag currently has members.
func (s *Store[S]) HasMiddlewaresForTag(tag string) (bool, error) {
	if err := s.checkAffinity("HasMiddlewaresForTag"); err != nil {
		return false, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	return s.middlewares.hasTag(tag), nil
}

// State returns the current state. Callable from any goroutine; never
// affinity-checked.
func (s *Store[S]) State() S {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Subscribe registers fn as an observer of every published state and
// immediately invokes it once with the current state. Safe to call from any
// goroutine, including from inside another subscriber's callback.
func (s *Store[S]) Subscribe(fn Subscriber[S]) *Subscription {
	entry := s.subscribers.subscribe(fn)
	liveSubscribersGauge.Set(float64(s.subscribers.count()))

	fn(s.State())

	return &Subscription{
		handle: entry.handle,
		cancel: func() {
			s.subscribers.unsubscribe(entry.handle)
			liveSubscribersGauge.Set(float64(s.subscribers.count()))
		},
	}
}

// Watch projects the publish stream onto a channel: the current state first,
// then every subsequent publication. Sends never block the dispatch path; a
// state is dropped when the buffer is full. The subscription ends when ctx
// is cancelled. The channel is never closed, so receivers should select on
// ctx.Done alongside it.
func (s *Store[S]) Watch(ctx context.Context, buffer int) <-chan S {
	if buffer < 1 {
		buffer = 1
	}
	ch := make(chan S, buffer)

	sub := s.Subscribe(func(state S) {
		if !concurrency.TryDropSendThroughChannel(ctx, state, ch) && ctx.Err() == nil {
			droppedWatchSendsCounter.Inc()
			s.logger.Warn("watch channel full, state dropped")
		}
	})

	go func() {
		<-ctx.Done()
		sub.Cancel()
	}()
	return ch
}

// Subscribers reports the live observer count. Additions buffered during an
// in-progress notification round are not counted until the round completes.
func (s *Store[S]) Subscribers() int {
	return s.subscribers.count()
}

// Close cancels every middleware execution scope and the store's root
// context, then waits for outstanding scope work to finish. The store must
// not be used after Close.
func (s *Store[S]) Close() {
	s.mu.Lock()
	scopes := s.middlewares.allScopes()
	s.mu.Unlock()

	s.cancel()
	for _, scope := range scopes {
		scope.close()
	}
}
