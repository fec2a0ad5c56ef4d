package realtime

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/spec-kit/helpdesk/internal/events"
)

type relayMessage struct {
	InstanceID string          `json:"instance_id"`
	Topic      string          `json:"topic"`
	Event      json.RawMessage `json:"event"`
}

// RedisRelay forwards events to hubs of other instances through Redis Pub/Sub.
type RedisRelay struct {
	client     *redis.Client
	channel    string
	instanceID string
	hub        *Hub
	logger     *zap.Logger
}

// NewRedisRelay builds a relay delivering remote events into hub.
func NewRedisRelay(client *redis.Client, channel string, hub *Hub, logger *zap.Logger) *RedisRelay {
	return &RedisRelay{
		client:     client,
		channel:    channel,
		instanceID: uuid.NewString(),
		hub:        hub,
		logger:     logger,
	}
}

// Publish sends event to the other instances. Local sessions are served by the hub directly.
func (r *RedisRelay) Publish(ctx context.Context, topic string, event events.Event) error {
	body, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal live event: %w", err)
	}
	data, err := json.Marshal(relayMessage{InstanceID: r.instanceID, Topic: topic, Event: body})
	if err != nil {
		return fmt.Errorf("marshal relay message: %w", err)
	}
	if err := r.client.Publish(ctx, r.channel, data).Err(); err != nil {
		return fmt.Errorf("publish live event: %w", err)
	}
	return nil
}

// Run subscribes until ctx is cancelled, reconnecting with backoff.
func (r *RedisRelay) Run(ctx context.Context) error {
	backoff := time.Second
	const maxBackoff = 30 * time.Second

	for {
		err := r.subscribe(ctx)
		if ctx.Err() != nil {
			return ctx.Err()
		}
		r.logger.Warn("live relay disconnected, reconnecting",
			zap.String("channel", r.channel),
			zap.Error(err),
			zap.Duration("backoff", backoff))

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(backoff):
		}
		backoff = min(backoff*2, maxBackoff)
	}
}

func (r *RedisRelay) subscribe(ctx context.Context) error {
	pubsub := r.client.Subscribe(ctx, r.channel)
	defer pubsub.Close()

	if _, err := pubsub.Receive(ctx); err != nil {
		return fmt.Errorf("subscribe %s: %w", r.channel, err)
	}
	r.logger.Info("live relay subscribed", zap.String("channel", r.channel))

	ch := pubsub.Channel()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case msg, ok := <-ch:
			if !ok {
				return nil
			}
			r.handle(msg.Payload)
		}
	}
}

func (r *RedisRelay) handle(payload string) {
	var msg relayMessage
	if err := json.Unmarshal([]byte(payload), &msg); err != nil {
		r.logger.Warn("dropping malformed relay message", zap.Error(err))
		return
	}
	if msg.InstanceID == r.instanceID {
		return
	}
	r.hub.Deliver(msg.Topic, msg.Event)
}
