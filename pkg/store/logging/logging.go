// Package logging provides a store.EventSink that writes the store's event
// stream to a structured logger without ever blocking the dispatch path.
package logging

import (
	"sync"

	"go.uber.org/zap"

	"github.com/statekit/statekit/pkg/logger"
	"github.com/statekit/statekit/pkg/store"
)

const defaultBufferSize = 1024

// Sink buffers events on a channel and logs them from a single background
// goroutine. When the buffer is full the event is dropped rather than
// stalling a dispatch round.
type Sink struct {
	logger logger.Logger
	events chan store.Event

	quit      chan struct{}
	done      chan struct{}
	closeOnce sync.Once
}

var _ store.EventSink = (*Sink)(nil)

// SinkOpt configures a Sink.
type SinkOpt func(*Sink)

// WithBufferSize overrides the event buffer size.
func WithBufferSize(n int) SinkOpt {
	return func(s *Sink) {
		s.events = make(chan store.Event, n)
	}
}

// NewSink constructs a Sink logging to l and starts its drain goroutine.
func NewSink(l logger.Logger, opts ...SinkOpt) *Sink {
	s := &Sink{
		logger: l,
		events: make(chan store.Event, defaultBufferSize),
		quit:   make(chan struct{}),
		done:   make(chan struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}
	go s.run()
	return s
}

// Publish hands the event to the drain goroutine. Never blocks; events
// published after Close, or while the buffer is full, are dropped.
func (s *Sink) Publish(event store.Event) {
	select {
	case <-s.quit:
	case s.events <- event:
	default:
		// buffer full, event dropped
	}
}

// Close flushes buffered events and stops the drain goroutine.
func (s *Sink) Close() {
	s.closeOnce.Do(func() {
		close(s.quit)
		<-s.done
	})
}

func (s *Sink) run() {
	defer close(s.done)
	for {
		select {
		case <-s.quit:
			for {
				select {
				case event := <-s.events:
					s.log(event)
				default:
					return
				}
			}
		case event := <-s.events:
			s.log(event)
		}
	}
}

func (s *Sink) log(event store.Event) {
	fields := []zap.Field{
		zap.Time("at", event.At),
	}
	if event.ActionKind != "" {
		fields = append(fields, zap.String("action_kind", event.ActionKind))
	}

	switch event.Kind {
	case store.EventActionDispatched:
		s.logger.Debug("action dispatched", fields...)
	case store.EventActionForwarded:
		if event.ForwardedKind != event.ActionKind {
			fields = append(fields, zap.String("forwarded_kind", event.ForwardedKind))
			s.logger.Info("action transformed", fields...)
			return
		}
		s.logger.Debug("action forwarded", fields...)
	case store.EventActionDropped:
		s.logger.Info("action dropped by middleware", fields...)
	case store.EventStatePublished:
		s.logger.Debug("state published", fields...)
	case store.EventStateUnchanged:
		s.logger.Debug("state unchanged, notification suppressed", fields...)
	case store.EventMiddlewareAdded, store.EventMiddlewareRemoved:
		fields = append(fields,
			zap.String("tag", event.Tag),
			zap.Int("middlewares", event.Middlewares),
		)
		s.logger.Info(string(event.Kind), fields...)
	case store.EventReducerAdded, store.EventReducerRemoved:
		fields = append(fields, zap.Int("reducers", event.Reducers))
		s.logger.Info(string(event.Kind), fields...)
	default:
		s.logger.Warn("unknown store event", zap.String("kind", string(event.Kind)))
	}
}
