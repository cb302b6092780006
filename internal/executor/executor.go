// Package executor implements §4.8: the uniform contract every action
// executor satisfies, plus two concrete executors (Archive, ForEach)
// grounded on Tornado's own reference implementations.
package executor

import (
	"github.com/tornadohq/tornado/internal/event"
)

// Executor is a mutable, non-reentrant action sink, run inside a bounded
// worker pool (§5). Implementations may hold per-invocation state (e.g. a
// single open file handle) since the runtime guarantees serialized calls.
type Executor interface {
	Execute(action *event.Action) error
}

// StatelessExecutor is a re-entrant action sink safe to call concurrently
// from multiple goroutines without external synchronization.
type StatelessExecutor interface {
	Execute(action *event.Action) error
}

// ExecutorFunc adapts a plain function to the Executor interface, the way
// http.HandlerFunc adapts a function to http.Handler.
type ExecutorFunc func(action *event.Action) error

func (f ExecutorFunc) Execute(action *event.Action) error { return f(action) }
