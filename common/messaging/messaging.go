// Package messaging lets the gateway publish events to a broker without
// depending on a concrete client.
package messaging

import (
	"context"
	"time"
)

// Message is an outbound message with optional headers.
type Message struct {
	Subject   string
	Data      []byte
	Metadata  map[string]string
	Timestamp time.Time
}

// Publisher publishes fire-and-forget messages.
type Publisher interface {
	Publish(ctx context.Context, subject string, data []byte) error
	PublishMsg(ctx context.Context, msg *Message) error
	Close() error
}
