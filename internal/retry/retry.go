package retry

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/tornadohq/tornado/internal/event"
	"github.com/tornadohq/tornado/internal/executor"
)

// canRetrier is satisfied by executor.Error; detected via errors.As so a
// plain error (no CanRetry opinion) is treated as retryable by default,
// per §7's propagation policy.
type canRetrier interface {
	CanRetry() bool
}

// Retrier wraps an Executor with a Strategy, retrying failed attempts
// according to its RetryPolicy and waiting between attempts according to
// its BackoffPolicy. It corresponds to §4.7's RetryActor, flattened from
// an actor into a direct call since the surrounding actor runtime
// already serializes per-mailbox execution.
type Retrier struct {
	exec     executor.Executor
	strategy Strategy
	logger   *slog.Logger
}

// NewRetrier wraps exec with strategy. A nil logger falls back to
// slog.Default().
func NewRetrier(exec executor.Executor, strategy Strategy, logger *slog.Logger) *Retrier {
	if logger == nil {
		logger = slog.Default()
	}
	return &Retrier{exec: exec, strategy: strategy, logger: logger}
}

// Run executes action, retrying per the wrapped Strategy until it
// succeeds, the policy is exhausted, a fatal error is returned, or ctx is
// canceled. It returns the last error on exhaustion or a fatal error,
// ctx.Err() when ctx is canceled during a backoff wait, or nil on success.
func (r *Retrier) Run(ctx context.Context, action *event.Action) error {
	var lastErr error
	failedAttempts := 0

	for r.strategy.ShouldRetry(failedAttempts) {
		if failedAttempts > 0 {
			delay := time.Duration(r.strategy.DelayMs(failedAttempts)) * time.Millisecond
			if delay > 0 {
				r.logger.Warn("action failed, retrying after backoff",
					"action_id", action.ID, "attempt", failedAttempts+1, "delay", delay, "error", lastErr)
				if !sleepWithContext(ctx, delay) {
					return ctx.Err()
				}
			}
		}

		err := r.exec.Execute(action)
		if err == nil {
			if failedAttempts > 0 {
				r.logger.Info("action succeeded after retry", "action_id", action.ID, "attempts", failedAttempts+1)
			}
			return nil
		}

		lastErr = err
		failedAttempts++

		var cr canRetrier
		if errors.As(err, &cr) && !cr.CanRetry() {
			r.logger.Error("action failed with a fatal error, not retrying", "action_id", action.ID, "error", err)
			return err
		}
	}

	r.logger.Error("action dropped after exhausting retries", "action_id", action.ID, "attempts", failedAttempts, "error", lastErr)
	return lastErr
}

func sleepWithContext(ctx context.Context, d time.Duration) bool {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return true
	case <-ctx.Done():
		return false
	}
}
