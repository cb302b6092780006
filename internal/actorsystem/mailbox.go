// Package actorsystem provides the bounded-mailbox, message-passing
// runtime glue shared by the engine's MatcherActor pool, DispatcherActor,
// and per-executor actors (§5), grounded on the bounded worker-pool shape
// already used for webhook processing.
package actorsystem

import (
	"context"
	"log/slog"
)

const defaultCapacity = 256

// Mailbox is a bounded, single-consumer message queue. Send never
// blocks: a full mailbox logs and drops the message (§5's load-shedding
// rule), mirroring Rust's try_send semantics.
type Mailbox[T any] struct {
	ch       chan T
	name     string
	logger   *slog.Logger
}

// NewMailbox constructs a Mailbox named name (used only in log lines)
// with the given bounded capacity. capacity <= 0 uses defaultCapacity.
func NewMailbox[T any](name string, capacity int, logger *slog.Logger) *Mailbox[T] {
	if capacity <= 0 {
		capacity = defaultCapacity
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Mailbox[T]{ch: make(chan T, capacity), name: name, logger: logger}
}

// Send enqueues msg without blocking, returning false if the mailbox was
// full and the message was dropped.
func (m *Mailbox[T]) Send(msg T) bool {
	select {
	case m.ch <- msg:
		return true
	default:
		m.logger.Error("actorsystem: mailbox full, dropping message", "mailbox", m.name)
		return false
	}
}

// Close signals no more messages will be sent, allowing Run's range loop
// to terminate once drained.
func (m *Mailbox[T]) Close() { close(m.ch) }

// Run drains the mailbox, calling handle for each message in arrival
// order, until ctx is canceled or the mailbox is closed and drained.
// Messages are processed serially, giving the actor its single-threaded
// handler semantics (§5).
func (m *Mailbox[T]) Run(ctx context.Context, handle func(T)) {
	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-m.ch:
			if !ok {
				return
			}
			handle(msg)
		}
	}
}

// Len reports the number of messages currently queued, for metrics.
func (m *Mailbox[T]) Len() int { return len(m.ch) }

// Cap reports the mailbox's bounded capacity.
func (m *Mailbox[T]) Cap() int { return cap(m.ch) }
