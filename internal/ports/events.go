package ports

import "context"

// EventPublisher delivers run lifecycle events to the broker.
type EventPublisher interface {
	Publish(ctx context.Context, eventType string, payload []byte, partitionKey string) error
}
