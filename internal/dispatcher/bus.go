// Package dispatcher implements §4.6: routing a ProcessedEvent's matched
// actions onto an EventBus keyed by action id, and §6.5's EventBus
// interface plus two concrete bindings.
package dispatcher

import (
	"github.com/tornadohq/tornado/internal/event"
)

// Handler receives one action published for the id it subscribed to.
type Handler func(action event.Action)

// EventBus is §6.5's external interface: a routing table from action id
// to recipient, immutable for the life of the process (§5). Publication
// is non-blocking; an unknown id is logged and dropped, never an error
// returned to the caller, matching §4.6's "unknown ids are logged and
// dropped (non-fatal)" contract.
type EventBus interface {
	// Subscribe registers handler as the recipient for id. Only one
	// handler may be registered per id; a second Subscribe for the same
	// id replaces the first.
	Subscribe(id string, handler Handler)
	// Publish routes action to its id's handler, or logs and drops it
	// if no handler is registered.
	Publish(action event.Action)
}
