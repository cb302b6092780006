package dispatcher

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/tornadohq/tornado/internal/event"
)

const redisKeyPrefix = "tornado:actions:"

// RedisEventBus publishes each Action onto a Redis list keyed by its
// action id, for a multi-process executor fleet where the publisher and
// the consuming worker may be different processes. Subscribe starts a
// BLPOP polling loop local to this process; multiple processes calling
// Subscribe for the same id compete for list entries like a work queue.
type RedisEventBus struct {
	client *redis.Client
	logger *slog.Logger

	mu       sync.RWMutex
	known    map[string]bool
	cancel   map[string]context.CancelFunc
}

// NewRedisEventBus wraps an existing go-redis client.
func NewRedisEventBus(client *redis.Client, logger *slog.Logger) *RedisEventBus {
	if logger == nil {
		logger = slog.Default()
	}
	return &RedisEventBus{
		client: client,
		logger: logger,
		known:  make(map[string]bool),
		cancel: make(map[string]context.CancelFunc),
	}
}

// Subscribe starts a goroutine BLPOP-ing redisKeyPrefix+id and invoking
// handler for each popped Action. Calling Subscribe again for the same
// id stops the previous poller first.
func (b *RedisEventBus) Subscribe(id string, handler Handler) {
	b.mu.Lock()
	if cancel, ok := b.cancel[id]; ok {
		cancel()
	}
	ctx, cancel := context.WithCancel(context.Background())
	b.known[id] = true
	b.cancel[id] = cancel
	b.mu.Unlock()

	key := redisKeyPrefix + id
	go b.pollLoop(ctx, key, handler)
}

func (b *RedisEventBus) pollLoop(ctx context.Context, key string, handler Handler) {
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		result, err := b.client.BLPop(ctx, 5*time.Second, key).Result()
		if err == redis.Nil {
			continue
		}
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			b.logger.Error("dispatcher: redis blpop failed", "key", key, "error", err)
			time.Sleep(time.Second)
			continue
		}

		// result is [key, value]; BLPop returns exactly one list entry.
		if len(result) != 2 {
			continue
		}
		var action event.Action
		if err := json.Unmarshal([]byte(result[1]), &action); err != nil {
			b.logger.Error("dispatcher: redis action undecodable", "key", key, "error", err)
			continue
		}
		handler(action)
	}
}

// Publish RPUSHes action onto its id's Redis list; an unknown id (never
// Subscribed to in this process) is logged and dropped, matching §4.6's
// contract even though another process's subscriber could in principle
// still be present — this binding trusts local subscription state.
func (b *RedisEventBus) Publish(action event.Action) {
	b.mu.RLock()
	known := b.known[action.ID]
	b.mu.RUnlock()

	if !known {
		b.logger.Warn("dispatcher: dropping action for unknown id", "action_id", action.ID)
		return
	}

	data, err := json.Marshal(action)
	if err != nil {
		b.logger.Error("dispatcher: cannot encode action", "action_id", action.ID, "error", err)
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := b.client.RPush(ctx, redisKeyPrefix+action.ID, data).Err(); err != nil {
		b.logger.Error("dispatcher: redis rpush failed", "action_id", action.ID, "error", err)
	}
}

// Close stops every active poller.
func (b *RedisEventBus) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, cancel := range b.cancel {
		cancel()
	}
}
