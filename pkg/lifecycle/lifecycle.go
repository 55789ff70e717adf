// Package lifecycle translates host lifecycle transitions into marker
// actions. The adapter imposes nothing beyond normal dispatch semantics:
// hosts call the hook matching each transition, and reducers or middlewares
// interested in lifecycle edges match on the marker kinds.
package lifecycle

import (
	"github.com/statekit/statekit/pkg/store"
)

// Stage names one host lifecycle transition.
type Stage string

const (
	StageStarted Stage = "started"
	StageResumed Stage = "resumed"
	StagePaused  Stage = "paused"
	StageStopped Stage = "stopped"
)

// StageAction is the marker action dispatched for a lifecycle transition.
type StageAction struct {
	Stage Stage
}

var _ store.Action = StageAction{}

func (a StageAction) Kind() string {
	return "lifecycle/" + string(a.Stage)
}

// Dispatcher is the slice of the store surface the adapter needs.
type Dispatcher interface {
	Dispatch(store.Action) error
}

// Adapter dispatches a StageAction per host lifecycle callback.
type Adapter struct {
	dispatcher Dispatcher
}

func NewAdapter(d Dispatcher) *Adapter {
	return &Adapter{dispatcher: d}
}

func (a *Adapter) OnStarted() error { return a.dispatch(StageStarted) }
func (a *Adapter) OnResumed() error { return a.dispatch(StageResumed) }
func (a *Adapter) OnPaused() error  { return a.dispatch(StagePaused) }
func (a *Adapter) OnStopped() error { return a.dispatch(StageStopped) }

func (a *Adapter) dispatch(stage Stage) error {
	return a.dispatcher.Dispatch(StageAction{Stage: stage})
}
