package livefeed

import (
	"context"
	"sync/atomic"

	"wangsammo/backend/internal/models"

	"go.uber.org/zap"
)

// Publisher relays an event to every instance, usually via Redis.
type Publisher interface {
	PublishEvent(ctx context.Context, ev models.FeedEvent) error
}

// Hub owns the set of connected clients. All mutations go through its
// channels and are applied by the Run loop.
type Hub struct {
	clients map[string]Client

	RegisterCh   chan Client
	UnregisterCh chan Client
	broadcastCh  chan models.FeedEvent

	publisher Publisher
	logger    *zap.Logger
	count     atomic.Int64
	done      chan struct{}
}

// NewHub creates a hub. With a nil publisher events are delivered to local
// clients only.
func NewHub(publisher Publisher, logger *zap.Logger) *Hub {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Hub{
		clients:      make(map[string]Client),
		RegisterCh:   make(chan Client),
		UnregisterCh: make(chan Client),
		broadcastCh:  make(chan models.FeedEvent, 64),
		publisher:    publisher,
		logger:       logger,
		done:         make(chan struct{}),
	}
}

// Run processes registrations and broadcasts until ctx is done, then closes
// every remaining client.
func (h *Hub) Run(ctx context.Context) {
	defer func() {
		for id, c := range h.clients {
			c.Close()
			delete(h.clients, id)
		}
		h.count.Store(0)
		close(h.done)
	}()

	for {
		select {
		case <-ctx.Done():
			return

		case c := <-h.RegisterCh:
			h.clients[c.GetID()] = c
			h.count.Store(int64(len(h.clients)))
			h.logger.Debug("feed client registered", zap.String("client_id", c.GetID()))

		case c := <-h.UnregisterCh:
			h.remove(c)

		case ev := <-h.broadcastCh:
			for _, c := range h.clients {
				select {
				case c.GetSendChannel() <- ev:
				default:
					// Slow consumer: drop it rather than stall the feed.
					h.logger.Warn("feed client too slow, disconnecting", zap.String("client_id", c.GetID()))
					h.remove(c)
				}
			}
		}
	}
}

func (h *Hub) remove(c Client) {
	if current, ok := h.clients[c.GetID()]; ok && current == c {
		delete(h.clients, c.GetID())
		c.Close()
		h.count.Store(int64(len(h.clients)))
	}
}

// Register adds a client unless the hub has stopped.
func (h *Hub) Register(c Client) bool {
	select {
	case h.RegisterCh <- c:
		return true
	case <-h.done:
		return false
	}
}

// Unregister removes a client. It never blocks after the hub has stopped.
func (h *Hub) Unregister(c Client) {
	select {
	case h.UnregisterCh <- c:
	case <-h.done:
	}
}

// Broadcast delivers ev to this instance's clients.
func (h *Hub) Broadcast(ev models.FeedEvent) {
	select {
	case h.broadcastCh <- ev:
	case <-h.done:
	}
}

// Publish implements the complaint event sink. With a publisher the event
// takes the Redis round trip and comes back through the relay; without one
// it is broadcast locally.
func (h *Hub) Publish(ctx context.Context, ev models.FeedEvent) error {
	if h.publisher != nil {
		return h.publisher.PublishEvent(ctx, ev)
	}
	h.Broadcast(ev)
	return nil
}

// ClientCount returns the number of registered clients.
func (h *Hub) ClientCount() int {
	return int(h.count.Load())
}

// Done is closed when Run has returned.
func (h *Hub) Done() <-chan struct{} {
	return h.done
}
