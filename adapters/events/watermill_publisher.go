package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill-redisstream/pkg/redisstream"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/layer-3/carbx/ports"
)

// LogoutEvent represents a logout event
type LogoutEvent struct {
	Wallet     string    `json:"wallet"`
	OccurredAt time.Time `json:"occurred_at"`
}

// Topics names the topics events are published to
type Topics struct {
	Logout     string
	Redemption string
}

// WatermillPublisher implements the EventPublisher interface using Watermill
type WatermillPublisher struct {
	publisher message.Publisher
	topics    Topics
}

// NewWatermillPublisher creates a new Watermill publisher
func NewWatermillPublisher(publisher message.Publisher, topics Topics) ports.EventPublisher {
	return &WatermillPublisher{
		publisher: publisher,
		topics:    topics,
	}
}

// NewMessagePublisher returns a Redis stream publisher, or an in-process channel when no client is given
func NewMessagePublisher(client redis.UniversalClient, logger watermill.LoggerAdapter) (message.Publisher, error) {
	if client == nil {
		return gochannel.NewGoChannel(gochannel.Config{}, logger), nil
	}

	publisher, err := redisstream.NewPublisher(
		redisstream.PublisherConfig{
			Client: client,
		},
		logger,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create redis publisher: %w", err)
	}
	return publisher, nil
}

// PublishLogout publishes a logout event
func (p *WatermillPublisher) PublishLogout(ctx context.Context, walletAddress string) error {
	return p.publish(ctx, p.topics.Logout, uuid.NewString(), LogoutEvent{
		Wallet:     walletAddress,
		OccurredAt: time.Now().UTC(),
	})
}

// PublishRedemption publishes a settled redemption attempt
func (p *WatermillPublisher) PublishRedemption(ctx context.Context, event ports.RedemptionEvent) error {
	id := event.AttemptID
	if id == "" {
		id = uuid.NewString()
	}
	return p.publish(ctx, p.topics.Redemption, id, event)
}

func (p *WatermillPublisher) publish(ctx context.Context, topic, id string, event any) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	msg := message.NewMessage(id, payload)
	msg.SetContext(ctx)

	if err := p.publisher.Publish(topic, msg); err != nil {
		return fmt.Errorf("failed to publish event: %w", err)
	}

	return nil
}
