// Package engine wires together the matcher, dispatcher, retry, and
// actor-runtime packages into the running process described by §4.9:
// a pool of MatcherActors sharing one atomically-swapped compiled
// Tree, a Dispatcher publishing matched actions onto an EventBus, and
// RetryActor-wrapped executors subscribed to receive them.
package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/tornadohq/tornado/internal/configstore"
	"github.com/tornadohq/tornado/internal/dispatcher"
	"github.com/tornadohq/tornado/internal/event"
	"github.com/tornadohq/tornado/internal/executor"
	"github.com/tornadohq/tornado/internal/matcher"
	"github.com/tornadohq/tornado/internal/matcherconfig"
	"github.com/tornadohq/tornado/internal/retry"
	"github.com/tornadohq/tornado/internal/telemetry/metrics"
	"github.com/tornadohq/tornado/internal/validator"
)

// ErrNoConfig is returned by New when the ConfigStore has nothing
// deployed yet, since an engine with no MatcherTree cannot process
// events.
var ErrNoConfig = fmt.Errorf("engine: no deployed configuration")

// Config sizes and rate-limits the actor runtime a new Engine builds.
type Config struct {
	MailboxCapacity   int
	MatcherPoolSize   int
	RestartsPerSecond float64
	RestartBurst      int

	// CircuitBreakerMaxFailures and CircuitBreakerResetTimeout configure
	// the breaker RegisterExecutor wraps around every registered
	// executor's Retrier, so a persistently-failing executor stops being
	// retried on every single event and instead fails fast until it has
	// had resetTimeout to recover.
	CircuitBreakerMaxFailures  int
	CircuitBreakerResetTimeout time.Duration
}

// DefaultConfig returns conservative defaults suitable for development.
func DefaultConfig() Config {
	return Config{
		MailboxCapacity:            256,
		MatcherPoolSize:            4,
		RestartsPerSecond:          1,
		RestartBurst:               5,
		CircuitBreakerMaxFailures:  5,
		CircuitBreakerResetTimeout: 30 * time.Second,
	}
}

// Engine is the running process's core: it owns the compiled
// MatcherTree, the MatcherActor pool evaluating events against it, and
// the Dispatcher/EventBus pipeline that routes matched actions to
// executors. ProcessEvent and ProcessAndDispatch may be called
// concurrently; Reconfigure swaps the tree without pausing either.
type Engine struct {
	tree atomic.Pointer[matcher.Tree]

	pool       *matcherPool
	dispatcher *dispatcher.Dispatcher
	bus        dispatcher.EventBus
	store      configstore.Store

	circuitBreakerMaxFailures  int
	circuitBreakerResetTimeout time.Duration

	logger  *slog.Logger
	metrics *metrics.Registry
}

// New constructs an Engine, loading and compiling the ConfigStore's
// currently deployed MatcherConfig before returning. It fails if no
// config is deployed or the deployed config does not compile, since an
// Engine with no Tree cannot usefully exist (§4.9).
func New(ctx context.Context, cfg Config, store configstore.Store, bus dispatcher.EventBus, reg *metrics.Registry, logger *slog.Logger) (*Engine, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if reg == nil {
		reg = metrics.New()
	}

	maxFailures := cfg.CircuitBreakerMaxFailures
	if maxFailures <= 0 {
		maxFailures = DefaultConfig().CircuitBreakerMaxFailures
	}
	resetTimeout := cfg.CircuitBreakerResetTimeout
	if resetTimeout <= 0 {
		resetTimeout = DefaultConfig().CircuitBreakerResetTimeout
	}

	e := &Engine{
		dispatcher:                 dispatcher.New(bus),
		bus:                        bus,
		store:                      store,
		circuitBreakerMaxFailures:  maxFailures,
		circuitBreakerResetTimeout: resetTimeout,
		logger:                     logger,
		metrics:                    reg,
	}

	root, err := store.GetConfig(ctx)
	if err != nil {
		return nil, fmt.Errorf("engine: load initial configuration: %w", err)
	}
	tree, err := compileAndValidate(root)
	if err != nil {
		return nil, fmt.Errorf("engine: initial configuration: %w", err)
	}
	e.tree.Store(tree)

	e.pool = newMatcherPool(
		cfg.MatcherPoolSize,
		cfg.MailboxCapacity,
		&e.tree,
		e.onMatcherResult,
		cfg.RestartsPerSecond,
		cfg.RestartBurst,
		logger,
	)

	return e, nil
}

func compileAndValidate(root *matcherconfig.Node) (*matcher.Tree, error) {
	if root == nil {
		return nil, ErrNoConfig
	}
	if errs := validator.Validate(root); errs.HasErrors() {
		return nil, errs
	}
	tree, compileErrs := matcher.Compile(root)
	if len(compileErrs) > 0 {
		return nil, fmt.Errorf("%d compile errors (first: %w)", len(compileErrs), compileErrs[0])
	}
	return tree, nil
}

// onMatcherResult is the MatcherPool's fire-and-forget callback for the
// production path: dispatch whatever actions the event matched.
func (e *Engine) onMatcherResult(pe matcher.ProcessedEvent) {
	for _, action := range pe.MatchedActions() {
		e.metrics.DispatchTotal.WithLabelValues(action.ID).Inc()
	}
	e.dispatcher.Dispatch(pe)
}

// ProcessEvent evaluates ev against the current MatcherTree and returns
// the full ProcessedEvent tree, for the preview/send_event path (§4.9,
// §6.3) — it does not dispatch any matched actions.
func (e *Engine) ProcessEvent(ctx context.Context, ev event.Event) (matcher.ProcessedEvent, error) {
	respond := make(chan matcher.ProcessedEvent, 1)
	job := matcherJob{ie: event.NewInternalEvent(ev), includeMetadata: true, respond: respond}
	if !e.pool.submit(job) {
		return matcher.ProcessedEvent{}, fmt.Errorf("engine: matcher pool saturated, event dropped")
	}
	select {
	case pe := <-respond:
		return pe, nil
	case <-ctx.Done():
		return matcher.ProcessedEvent{}, ctx.Err()
	}
}

// ProcessAndDispatch evaluates ev asynchronously and dispatches any
// matched actions to their registered executors, per §4.9's production
// path. It returns once the event is queued, not once it is processed;
// ctx bounds only the enqueue step, since submit never blocks.
func (e *Engine) ProcessAndDispatch(ctx context.Context, ev event.Event) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	job := matcherJob{ie: event.NewInternalEvent(ev), includeMetadata: false}
	if !e.pool.submit(job) {
		return fmt.Errorf("engine: matcher pool saturated, event dropped")
	}
	return nil
}

// Reconfigure re-reads the deployed config from the ConfigStore,
// validates and compiles it, and atomically swaps the live Tree on
// success. On any failure the current Tree is left untouched and the
// error is returned, so the engine never runs with a half-applied
// configuration.
func (e *Engine) Reconfigure(ctx context.Context) error {
	root, err := e.store.GetConfig(ctx)
	if err != nil {
		return fmt.Errorf("engine: reconfigure: load configuration: %w", err)
	}
	tree, err := compileAndValidate(root)
	if err != nil {
		e.logger.Error("engine: reconfigure rejected, keeping previous configuration", "error", err)
		return fmt.Errorf("engine: reconfigure: %w", err)
	}
	e.tree.Store(tree)
	e.logger.Info("engine: configuration reloaded", "root", tree.Root())
	return nil
}

// RegisterExecutor subscribes exec on the EventBus for actionID, wrapping
// it with a retry.Retrier per strategy and, around that, a
// retry.CircuitBreaker: once actionID has failed
// CircuitBreakerMaxFailures times in a row, further events for it fail
// fast with ErrCircuitBreakerOpen instead of running the full retry
// strategy against an executor that is currently down. The bus's own
// per-id subscriber goroutine serializes calls into exec, which doubles
// as both the §4.9 ExecutorActor and RetryActor: the Retrier's Run is a
// direct call, not a further actor hop, since that goroutine already
// gives it single-threaded execution.
func (e *Engine) RegisterExecutor(actionID string, exec executor.Executor, strategy retry.Strategy) {
	retrier := retry.NewRetrier(exec, strategy, e.logger)
	breaker := retry.NewCircuitBreaker(e.circuitBreakerMaxFailures, e.circuitBreakerResetTimeout)
	e.bus.Subscribe(actionID, func(action event.Action) {
		outcome := "success"
		err := breaker.Call(func() error {
			return retrier.Run(context.Background(), &action)
		})
		if err != nil {
			outcome = "failure"
			if errors.Is(err, retry.ErrCircuitBreakerOpen) {
				e.logger.Warn("action dropped, circuit breaker open", "action_id", actionID)
			}
		}
		e.metrics.RetryAttempts.WithLabelValues(actionID, outcome).Inc()
	})
}

// Tree returns the currently active compiled MatcherTree, for callers
// (e.g. the CLI's check-config path) that need read access without
// going through ProcessEvent.
func (e *Engine) Tree() *matcher.Tree {
	return e.tree.Load()
}
