package messaging

import (
	"context"
)

// Broker defines the interface for message brokers
type Broker interface {
	Publish(ctx context.Context, channel string, message interface{}) error
	Subscribe(ctx context.Context, channel string) (<-chan []byte, error)
	Close() error
}

// Publisher defines the interface for publishing messages
type Publisher interface {
	Publish(ctx context.Context, channel string, message interface{}) error
}

// Consume delivers every message on channel to handler until ctx ends.
// Handler errors are passed to onErr and do not stop consumption.
func Consume(ctx context.Context, broker Broker, channel string, handler func([]byte) error, onErr func(error)) error {
	msgChan, err := broker.Subscribe(ctx, channel)
	if err != nil {
		return err
	}

	go func() {
		for msg := range msgChan {
			if err := handler(msg); err != nil && onErr != nil {
				onErr(err)
			}
		}
	}()

	return nil
}
