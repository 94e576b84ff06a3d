package realtime

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// Subscriber streams the envelopes published to a room. The returned channel
// is closed once ctx is done or the underlying subscription ends.
type Subscriber interface {
	Subscribe(ctx context.Context, room string) (<-chan Envelope, error)
}

type RedisSubscriber struct {
	client *redis.Client
	prefix string
	logger *zap.Logger
}

func NewRedisSubscriber(client *redis.Client, prefix string, logger *zap.Logger) *RedisSubscriber {
	return &RedisSubscriber{
		client: client,
		prefix: prefix,
		logger: logger,
	}
}

func (s *RedisSubscriber) Subscribe(ctx context.Context, room string) (<-chan Envelope, error) {
	channel := ChannelName(s.prefix, room)
	pubsub := s.client.Subscribe(ctx, channel)

	// Wait for confirmation so that publishes after this call are not missed.
	if _, err := pubsub.Receive(ctx); err != nil {
		pubsub.Close()
		return nil, fmt.Errorf("subscribing to %s: %w", channel, err)
	}

	out := make(chan Envelope, 16)
	go func() {
		defer close(out)
		defer pubsub.Close()

		ch := pubsub.Channel()
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-ch:
				if !ok {
					return
				}

				var env Envelope
				if err := json.Unmarshal([]byte(msg.Payload), &env); err != nil {
					s.logger.Warn("dropping malformed realtime message", zap.String("channel", msg.Channel), zap.Error(err))
					continue
				}

				select {
				case out <- env:
				case <-ctx.Done():
					return
				}
			}
		}
	}()

	return out, nil
}
