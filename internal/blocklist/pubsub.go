package blocklist

import (
	"context"
	"fmt"
	"time"

	"cloud.google.com/go/pubsub/v2"
	"github.com/rs/zerolog"
)

// Subscriber applies block-list updates published to a Pub/Sub subscription.
// Each message body is an Update document; a valid message replaces the list.
type Subscriber struct {
	client           *pubsub.Client
	subscriber       *pubsub.Subscriber
	subscriptionName string
	store            Store
	logger           zerolog.Logger
}

// SubscriberConfig holds configuration for the Subscriber.
type SubscriberConfig struct {
	ProjectID        string
	SubscriptionName string
	Store            Store
	Logger           zerolog.Logger
}

// NewSubscriber creates a Pub/Sub client bound to the configured subscription.
func NewSubscriber(ctx context.Context, cfg SubscriberConfig) (*Subscriber, error) {
	client, err := pubsub.NewClient(ctx, cfg.ProjectID)
	if err != nil {
		return nil, fmt.Errorf("creating pubsub client: %w", err)
	}

	subscriber := client.Subscriber(cfg.SubscriptionName)

	// Updates replace each other, so there is nothing to gain from parallel handling.
	subscriber.ReceiveSettings.MaxOutstandingMessages = 1
	subscriber.ReceiveSettings.NumGoroutines = 1

	return &Subscriber{
		client:           client,
		subscriber:       subscriber,
		subscriptionName: cfg.SubscriptionName,
		store:            cfg.Store,
		logger:           cfg.Logger,
	}, nil
}

// Start blocks receiving messages until ctx is cancelled.
func (s *Subscriber) Start(ctx context.Context) error {
	s.logger.Info().
		Str("subscription", s.subscriptionName).
		Msg("starting block-list subscriber")

	return s.subscriber.Receive(ctx, func(ctx context.Context, msg *pubsub.Message) {
		logger := s.logger.With().
			Str("message_id", msg.ID).
			Str("publish_time", msg.PublishTime.Format(time.RFC3339)).
			Logger()

		if s.apply(ctx, msg.Data, logger) {
			msg.Ack()
			return
		}
		msg.Nack()
	})
}

// Close closes the Pub/Sub client.
func (s *Subscriber) Close() error {
	return s.client.Close()
}

// apply reports whether the message should be acked.
// Malformed messages are acked; redelivery cannot fix them.
func (s *Subscriber) apply(ctx context.Context, data []byte, logger zerolog.Logger) bool {
	ids, err := DecodeUpdate(data)
	if err != nil {
		logger.Error().Err(err).Msg("dropping malformed block-list update")
		return true
	}

	if err := s.store.Replace(ctx, ids); err != nil {
		logger.Error().Err(err).Msg("failed to apply block-list update")
		return false
	}

	logger.Info().Int("entries", len(ids)).Msg("block list replaced from subscription")
	return true
}

// Publisher pushes replacement lists to a Pub/Sub topic for every Subscriber to apply.
type Publisher struct {
	client    *pubsub.Client
	publisher *pubsub.Publisher
	topic     string
}

// NewPublisher creates a Pub/Sub client bound to topic.
func NewPublisher(ctx context.Context, projectID, topic string) (*Publisher, error) {
	client, err := pubsub.NewClient(ctx, projectID)
	if err != nil {
		return nil, fmt.Errorf("creating pubsub client: %w", err)
	}
	return &Publisher{
		client:    client,
		publisher: client.Publisher(topic),
		topic:     topic,
	}, nil
}

// Publish sends ids as one Update and waits for the server-assigned message id.
func (p *Publisher) Publish(ctx context.Context, ids []string) (string, error) {
	data, err := EncodeUpdate(ids)
	if err != nil {
		return "", err
	}
	id, err := p.publisher.Publish(ctx, &pubsub.Message{Data: data}).Get(ctx)
	if err != nil {
		return "", fmt.Errorf("publishing to %s: %w", p.topic, err)
	}
	return id, nil
}

// Close flushes pending messages and closes the client.
func (p *Publisher) Close() error {
	p.publisher.Stop()
	return p.client.Close()
}
