package messaging

import (
	"context"
	"fmt"
)

// Handler processes one raw message.
type Handler func(ctx context.Context, payload []byte) error

// Consume subscribes to channel and feeds every message to handle until ctx
// is done or the subscription closes. Handler errors go to onError, if set,
// and never stop consumption.
func Consume(ctx context.Context, broker Broker, channel string, handle Handler, onError func(error)) error {
	msgChan, err := broker.Subscribe(ctx, channel)
	if err != nil {
		return fmt.Errorf("failed to subscribe to %s: %w", channel, err)
	}

	for {
		select {
		case <-ctx.Done():
			return nil
		case msg, ok := <-msgChan:
			if !ok {
				return nil
			}
			if err := handle(ctx, msg); err != nil && onError != nil {
				onError(err)
			}
		}
	}
}
