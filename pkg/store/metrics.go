package store

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/statekit/statekit/internal/build"
)

var (
	dispatchedActionsCounter = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: build.ProjectName,
		Name:      "dispatched_actions_total",
		Help:      "Number of actions accepted by each dispatch entry point",
	}, []string{"entrypoint"})

	dispatchDurationHistogram = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace:                       build.ProjectName,
		Name:                            "dispatch_round_duration_ms",
		Help:                            "Time spent running one action through the middleware chain and reducers",
		Buckets:                         []float64{0.1, 0.5, 1, 3, 5, 10, 25, 50, 100, 1000},
		NativeHistogramBucketFactor:     1.1,
		NativeHistogramMaxBucketNumber:  100,
		NativeHistogramMinResetDuration: time.Hour,
	})

	queueDepthGauge = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: build.ProjectName,
		Name:      "dispatch_queue_depth",
		Help:      "Actions waiting in the dispatch queue",
	})

	liveSubscribersGauge = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: build.ProjectName,
		Name:      "live_subscribers",
		Help:      "Observers currently on the live subscription list",
	})

	suppressedPublishesCounter = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: build.ProjectName,
		Name:      "suppressed_publishes_total",
		Help:      "Reducer passes whose notification was skipped because the state was unchanged",
	})

	droppedWatchSendsCounter = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: build.ProjectName,
		Name:      "dropped_watch_sends_total",
		Help:      "States dropped because a Watch channel had no capacity",
	})
)
