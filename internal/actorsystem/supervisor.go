package actorsystem

import (
	"context"
	"fmt"
	"log/slog"

	"golang.org/x/time/rate"
)

// Task is a supervised unit of work: it runs until ctx is canceled or it
// fails, returning the failure as an error (a panic inside Task is also
// converted to an error by Supervisor.Run).
type Task func(ctx context.Context) error

// Supervisor restarts a Task on fatal error, rate-limited so a
// crash-looping actor cannot spin the CPU — the "watchdog loop that
// recreates the task on fatal error" of §9's actor-port design note.
type Supervisor struct {
	name    string
	task    Task
	limiter *rate.Limiter
	logger  *slog.Logger
}

// NewSupervisor wraps task, allowing at most one restart per
// 1/restartsPerSecond, with an initial burst of burst immediate restarts
// before throttling kicks in.
func NewSupervisor(name string, task Task, restartsPerSecond rate.Limit, burst int, logger *slog.Logger) *Supervisor {
	if logger == nil {
		logger = slog.Default()
	}
	return &Supervisor{
		name:    name,
		task:    task,
		limiter: rate.NewLimiter(restartsPerSecond, burst),
		logger:  logger,
	}
}

// Run executes the supervised task, restarting it whenever it returns a
// non-nil error or panics, until ctx is canceled. A successful (nil
// error) return also restarts — a Task is expected to run until ctx is
// canceled; returning nil early is treated the same as crashing, since
// neither case means the actor is done supervising.
func (s *Supervisor) Run(ctx context.Context) {
	for {
		if ctx.Err() != nil {
			return
		}

		if err := s.limiter.Wait(ctx); err != nil {
			return
		}

		err := s.runOnce(ctx)
		if ctx.Err() != nil {
			return
		}
		if err != nil {
			s.logger.Error("actorsystem: supervised task failed, restarting", "actor", s.name, "error", err)
		} else {
			s.logger.Warn("actorsystem: supervised task exited early, restarting", "actor", s.name)
		}
	}
}

func (s *Supervisor) runOnce(ctx context.Context) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("actorsystem: %s panicked: %v", s.name, r)
		}
	}()
	return s.task(ctx)
}
