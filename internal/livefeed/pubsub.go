package livefeed

import (
	"context"
	"encoding/json"

	"wangsammo/backend/internal/models"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// Subscriber opens the Redis subscription on the feed channel.
type Subscriber interface {
	SubscribeEvents(ctx context.Context) (*redis.PubSub, error)
}

// StartRelay subscribes to the feed channel and relays every message to the
// local clients until ctx is done.
func (h *Hub) StartRelay(ctx context.Context, sub Subscriber) error {
	pubsub, err := sub.SubscribeEvents(ctx)
	if err != nil {
		return err
	}
	// Receive blocks until the subscription is confirmed.
	if _, err := pubsub.Receive(ctx); err != nil {
		_ = pubsub.Close()
		return err
	}

	go func() {
		defer pubsub.Close()
		h.Relay(ctx, pubsub.Channel())
	}()
	return nil
}

// Relay decodes messages and broadcasts them until ctx is done or msgs closes.
func (h *Hub) Relay(ctx context.Context, msgs <-chan *redis.Message) {
	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-msgs:
			if !ok {
				return
			}
			var ev models.FeedEvent
			if err := json.Unmarshal([]byte(msg.Payload), &ev); err != nil {
				h.logger.Warn("dropping malformed feed message", zap.Error(err))
				continue
			}
			h.Broadcast(ev)
		}
	}
}
