// Package demo contains the command to run a demonstration counter store.
package demo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/statekit/statekit/pkg/lifecycle"
	"github.com/statekit/statekit/pkg/logger"
	"github.com/statekit/statekit/pkg/store"
	storelogging "github.com/statekit/statekit/pkg/store/logging"
)

type demoState struct {
	Count     int
	Saved     bool
	Lifecycle []string
}

type incrementAction struct{}

func (incrementAction) Kind() string { return "increment" }

type bumpAction struct{}

func (bumpAction) Kind() string { return "bump" }

type saveAction struct{}

func (saveAction) Kind() string { return "save" }

type savedAction struct{}

func (savedAction) Kind() string { return "saved" }

// mustBindPFlag attempts to bind a specific key to a pflag (as used by cobra)
// and panics if the binding fails with a non-nil error.
func mustBindPFlag(key string, flag *pflag.Flag) {
	if err := viper.BindPFlag(key, flag); err != nil {
		panic("failed to bind pflag: " + err.Error())
	}
}

func mustBindEnv(input ...string) {
	if err := viper.BindEnv(input...); err != nil {
		panic("failed to bind env key: " + err.Error())
	}
}

func NewDemoCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "demo",
		Short: "Run a demonstration counter store",
		Long:  "Run a demonstration counter store exercising the middleware pipeline, tagged middleware lifecycle, and asynchronous scope work.",
		RunE:  runDemo,
		Args:  cobra.NoArgs,
	}

	flags := cmd.Flags()

	flags.String("log-format", "text", "the log format (text or json)")
	mustBindPFlag("log.format", flags.Lookup("log-format"))
	mustBindEnv("log.format", "STATEKIT_LOG_FORMAT")

	flags.String("log-level", "info", "the log level (none, debug, info, warn, error)")
	mustBindPFlag("log.level", flags.Lookup("log-level"))
	mustBindEnv("log.level", "STATEKIT_LOG_LEVEL")

	flags.Int("iterations", 5, "the number of increment actions to dispatch")
	mustBindPFlag("iterations", flags.Lookup("iterations"))
	mustBindEnv("iterations", "STATEKIT_ITERATIONS")

	flags.Bool("suppress-unchanged", false, "skip subscriber notification when a reducer pass leaves the state unchanged")
	mustBindPFlag("suppress.unchanged", flags.Lookup("suppress-unchanged"))
	mustBindEnv("suppress.unchanged", "STATEKIT_SUPPRESS_UNCHANGED")

	return cmd
}

func runDemo(_ *cobra.Command, _ []string) error {
	log, err := logger.NewLogger(viper.GetString("log.format"), viper.GetString("log.level"))
	if err != nil {
		return err
	}

	sink := storelogging.NewSink(log)
	defer sink.Close()

	opts := []store.Option[demoState]{
		store.WithLogger[demoState](log),
		store.WithEventSink[demoState](sink),
	}
	if viper.GetBool("suppress.unchanged") {
		opts = append(opts, store.WithDuplicateSuppression(store.StructuralEquality[demoState]()))
	}

	s := store.New(demoState{}, opts...)
	defer s.Close()

	if _, err := s.AddReducer(demoReducer); err != nil {
		return err
	}

	// Rewrites "bump" into "increment" so the reducer only ever matches one
	// kind.
	if _, err := s.AddMiddlewareWithTag(func(_ *store.Scope, action store.Action, _ demoState, next store.Next, _ store.Dispatch) {
		if action.Kind() == "bump" {
			next(incrementAction{})
			return
		}
		next(action)
	}, "demo"); err != nil {
		return err
	}

	// Simulates persisting the state to flaky storage: the save runs inside
	// the middleware's scope and retries with exponential backoff before
	// reporting completion through a fresh dispatch.
	attempts := 0
	flakySave := func() error {
		attempts++
		if attempts < 3 {
			return errors.New("storage not ready")
		}
		return nil
	}
	if _, err := s.AddMiddlewareWithTag(func(scope *store.Scope, action store.Action, _ demoState, next store.Next, dispatch store.Dispatch) {
		if action.Kind() == "save" {
			scope.Go(func(ctx context.Context) error {
				bo := backoff.NewExponentialBackOff()
				bo.InitialInterval = 10 * time.Millisecond
				if err := backoff.Retry(flakySave, backoff.WithContext(bo, ctx)); err != nil {
					return err
				}
				return dispatch(savedAction{})
			})
		}
		next(action)
	}, "demo"); err != nil {
		return err
	}

	sub := s.Subscribe(func(state demoState) {
		log.Info("state published",
			zap.Int("count", state.Count),
			zap.Bool("saved", state.Saved),
		)
	})
	defer sub.Cancel()

	adapter := lifecycle.NewAdapter(s)
	if err := adapter.OnStarted(); err != nil {
		return err
	}

	for i := 0; i < viper.GetInt("iterations"); i++ {
		if err := s.Dispatch(bumpAction{}); err != nil {
			return err
		}
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	watch := s.Watch(ctx, 16)

	if err := s.Dispatch(saveAction{}); err != nil {
		return err
	}

	for !s.State().Saved {
		select {
		case <-watch:
		case <-ctx.Done():
			return errors.New("timed out waiting for the save to complete")
		}
	}

	if err := s.RemoveMiddlewaresByTag("demo"); err != nil {
		return err
	}
	if err := adapter.OnStopped(); err != nil {
		return err
	}

	final := s.State()
	fmt.Printf("final state: count=%d saved=%t lifecycle=%v\n", final.Count, final.Saved, final.Lifecycle)
	return nil
}

func demoReducer(action store.Action, state demoState) demoState {
	switch action.Kind() {
	case "increment":
		state.Count++
	case "saved":
		state.Saved = true
	case "lifecycle/started", "lifecycle/stopped":
		state.Lifecycle = append(state.Lifecycle, action.Kind())
	}
	return state
}
