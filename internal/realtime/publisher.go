package realtime

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const (
	EventOrderUpdated = "orderUpdated"

	BroadcastRoom = "broadcast"
)

func CustomerRoom(customerID string) string {
	return "customer:" + customerID
}

// Publisher delivers events to the subscribers of a room. It is fire and
// forget: there is no acknowledgement and no retry, and an event nobody is
// listening for is dropped. An empty room broadcasts.
type Publisher interface {
	Publish(ctx context.Context, event string, payload any, room string)
}

// Envelope is what subscribers receive.
type Envelope struct {
	Event     string          `json:"event"`
	Room      string          `json:"room"`
	Payload   json.RawMessage `json:"payload"`
	EmittedAt time.Time       `json:"emittedAt"`
}

// RedisPublisher publishes envelopes over Redis Pub/Sub, one channel per
// room.
type RedisPublisher struct {
	client *redis.Client
	prefix string
	logger *zap.Logger
	now    func() time.Time
}

func NewRedisPublisher(client *redis.Client, prefix string, logger *zap.Logger) *RedisPublisher {
	return &RedisPublisher{
		client: client,
		prefix: prefix,
		logger: logger,
		now:    time.Now,
	}
}

func (p *RedisPublisher) Channel(room string) string {
	return ChannelName(p.prefix, room)
}

func ChannelName(prefix, room string) string {
	if room == "" {
		room = BroadcastRoom
	}
	return prefix + room
}

func (p *RedisPublisher) Publish(ctx context.Context, event string, payload any, room string) {
	if room == "" {
		room = BroadcastRoom
	}

	data, err := marshalEnvelope(event, payload, room, p.now())
	if err != nil {
		p.logger.Error("failed to marshal realtime event", zap.String("event", event), zap.String("room", room), zap.Error(err))
		return
	}

	channel := p.Channel(room)
	receivers, err := p.client.Publish(ctx, channel, data).Result()
	if err != nil {
		p.logger.Error("failed to publish realtime event", zap.String("event", event), zap.String("channel", channel), zap.Error(err))
		return
	}

	p.logger.Debug("published realtime event",
		zap.String("event", event),
		zap.String("channel", channel),
		zap.Int64("receivers", receivers),
	)
}

func marshalEnvelope(event string, payload any, room string, at time.Time) ([]byte, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return json.Marshal(Envelope{
		Event:     event,
		Room:      room,
		Payload:   raw,
		EmittedAt: at.UTC(),
	})
}

// LogPublisher stands in when no Redis is configured. It only logs.
type LogPublisher struct {
	logger *zap.Logger
}

func NewLogPublisher(logger *zap.Logger) *LogPublisher {
	return &LogPublisher{logger: logger}
}

func (p *LogPublisher) Publish(ctx context.Context, event string, payload any, room string) {
	if room == "" {
		room = BroadcastRoom
	}
	p.logger.Debug("realtime event dropped, no transport configured", zap.String("event", event), zap.String("room", room))
}
