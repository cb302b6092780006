package dispatcher

import (
	"github.com/tornadohq/tornado/internal/matcher"
)

// Dispatcher walks a ProcessedEvent's matched rules in traversal order
// and publishes each action onto an EventBus, per §4.6.
type Dispatcher struct {
	bus EventBus
}

// New constructs a Dispatcher publishing onto bus.
func New(bus EventBus) *Dispatcher {
	return &Dispatcher{bus: bus}
}

// Dispatch publishes every Matched rule's actions from pe, in the
// traversal order matcher.ProcessedEvent.MatchedActions already
// produces (depth-first, configuration order).
func (d *Dispatcher) Dispatch(pe matcher.ProcessedEvent) {
	for _, action := range pe.MatchedActions() {
		d.bus.Publish(action)
	}
}
