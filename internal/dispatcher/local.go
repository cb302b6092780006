package dispatcher

import (
	"log/slog"
	"sync"

	"github.com/tornadohq/tornado/internal/event"
)

const defaultMailboxCapacity = 256

// LocalEventBus is an in-process EventBus: each subscribed id gets its
// own bounded mailbox and a single goroutine draining it into the
// registered Handler, giving per-id ordering without serializing across
// ids (§5's "dedicated actor... per executor id").
type LocalEventBus struct {
	mu        sync.RWMutex
	mailboxes map[string]chan event.Action
	capacity  int
	logger    *slog.Logger
}

// NewLocalEventBus constructs an empty bus. capacity <= 0 uses
// defaultMailboxCapacity.
func NewLocalEventBus(capacity int, logger *slog.Logger) *LocalEventBus {
	if capacity <= 0 {
		capacity = defaultMailboxCapacity
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &LocalEventBus{
		mailboxes: make(map[string]chan event.Action),
		capacity:  capacity,
		logger:    logger,
	}
}

// Subscribe registers handler for id, spawning its mailbox's drain
// goroutine. Calling Subscribe again for the same id replaces the
// mailbox; the old one is abandoned to drain or be garbage collected.
func (b *LocalEventBus) Subscribe(id string, handler Handler) {
	mailbox := make(chan event.Action, b.capacity)

	b.mu.Lock()
	b.mailboxes[id] = mailbox
	b.mu.Unlock()

	go func() {
		for action := range mailbox {
			handler(action)
		}
	}()
}

// Publish enqueues action into its id's mailbox without blocking; a full
// mailbox or an unknown id is logged and the action dropped, per §4.6.
func (b *LocalEventBus) Publish(action event.Action) {
	b.mu.RLock()
	mailbox, ok := b.mailboxes[action.ID]
	b.mu.RUnlock()

	if !ok {
		b.logger.Warn("dispatcher: dropping action for unknown id", "action_id", action.ID)
		return
	}

	select {
	case mailbox <- action:
	default:
		b.logger.Error("dispatcher: mailbox full, dropping action", "action_id", action.ID)
	}
}
