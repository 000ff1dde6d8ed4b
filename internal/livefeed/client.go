// Package livefeed pushes complaint events to connected officials'
// dashboards. Events published on any instance reach every instance through
// Redis pub/sub; each instance fans them out to its own connections.
package livefeed

import "wangsammo/backend/internal/models"

// Client is one dashboard connection.
type Client interface {
	// GetID returns a unique identifier of the connection.
	GetID() string
	// GetSendChannel returns the channel the hub delivers events on.
	GetSendChannel() chan<- models.FeedEvent
	// Run starts the connection's pumps.
	Run()
	// Close stops delivery. The hub calls it exactly once per client.
	Close()
}
