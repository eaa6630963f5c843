package fanout

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"wachat-server/internal/domain/message"
	"wachat-server/internal/domain/status"
)

const (
	// GlobalChannel receives every event.
	GlobalChannel = "chat.events"
	// conversationChannelPrefix scopes events to one conversation.
	conversationChannelPrefix = "chat.conversation."
)

// ConversationChannel returns the Redis channel for a waID.
func ConversationChannel(waID string) string {
	return conversationChannelPrefix + waID
}

// RedisPublisher implements message.Publisher over Redis pub/sub so fanout
// reaches subscribers on every node of a multi-instance deployment.
type RedisPublisher struct {
	client redis.UniversalClient
	log    zerolog.Logger
}

// NewRedisPublisher connects to Redis and verifies connectivity.
func NewRedisPublisher(redisURL string, log zerolog.Logger) (*RedisPublisher, error) {
	if redisURL == "" {
		return nil, fmt.Errorf("redis URL must be provided")
	}

	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("parse redis URL: %w", err)
	}
	client := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("connect to redis: %w", err)
	}

	log.Info().Msg("connected to redis for fanout")
	return &RedisPublisher{
		client: client,
		log:    log.With().Str("component", "fanout-redis").Logger(),
	}, nil
}

// PublishNewMessage implements message.Publisher.
func (p *RedisPublisher) PublishNewMessage(ctx context.Context, msg *message.Message) error {
	event := Event{Type: EventNewMessage, Message: msg, WaID: msg.WaID}
	if err := p.publish(ctx, GlobalChannel, event); err != nil {
		return err
	}
	return p.publish(ctx, ConversationChannel(msg.WaID), event)
}

// PublishStatusUpdate implements message.Publisher.
func (p *RedisPublisher) PublishStatusUpdate(ctx context.Context, msg *message.Message, newStatus status.Status) error {
	if err := p.publish(ctx, GlobalChannel, Event{
		Type:    EventStatusUpdate,
		Message: msg,
		WaID:    msg.WaID,
	}); err != nil {
		return err
	}
	return p.publish(ctx, ConversationChannel(msg.WaID), Event{
		Type:   EventStatusUpdate,
		Status: &message.StatusEvent{MessageID: msg.MessageID, Status: newStatus},
		WaID:   msg.WaID,
	})
}

func (p *RedisPublisher) publish(ctx context.Context, channel string, event Event) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal fanout event: %w", err)
	}
	if err := p.client.Publish(ctx, channel, payload).Err(); err != nil {
		return fmt.Errorf("publish to %s: %w", channel, err)
	}
	return nil
}

// Close releases the Redis connection.
func (p *RedisPublisher) Close() error {
	return p.client.Close()
}
