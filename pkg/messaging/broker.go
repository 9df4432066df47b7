package messaging

import (
	"context"
)

// Broker publishes relayed outbox events. Consumers live outside this
// service and subscribe to the channels directly.
type Broker interface {
	Publish(ctx context.Context, channel string, message interface{}) error
	Close() error
}

// Message is the envelope relayed for every outbox event.
type Message struct {
	ID      string      `json:"id"`
	Type    string      `json:"type"`
	Payload interface{} `json:"payload"`
}
