package fcm

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	firebase "firebase.google.com/go/v4"
	"firebase.google.com/go/v4/messaging"
	"github.com/rs/zerolog"
	"google.golang.org/api/option"

	"github.com/olahtaxi/taxirelay/internal/notify"
)

// MessagingClient is the subset of the Firebase Messaging API the SDK dispatcher uses.
// *messaging.Client satisfies it.
type MessagingClient interface {
	Send(ctx context.Context, msg *messaging.Message) (string, error)
}

// NewMessagingClient builds a Firebase Messaging client from a service account.
// The private key is parsed up front; the SDK would otherwise defer that to the first send.
func NewMessagingClient(ctx context.Context, sa *ServiceAccount) (*messaging.Client, error) {
	if _, err := sa.RSAKey(); err != nil {
		return nil, err
	}
	creds, err := sa.JSON()
	if err != nil {
		return nil, fmt.Errorf("encode credentials: %w", err)
	}

	app, err := firebase.NewApp(ctx, &firebase.Config{ProjectID: sa.ProjectID}, option.WithCredentialsJSON(creds))
	if err != nil {
		return nil, fmt.Errorf("initialize firebase app: %w", err)
	}

	client, err := app.Messaging(ctx)
	if err != nil {
		return nil, fmt.Errorf("create messaging client: %w", err)
	}
	return client, nil
}

// SDKDispatcher sends messages through the Firebase Admin SDK.
type SDKDispatcher struct {
	client  MessagingClient
	topic   string
	timeout time.Duration
	logger  zerolog.Logger
}

// NewSDKDispatcher creates a new SDKDispatcher. An empty topic selects DefaultTopic.
func NewSDKDispatcher(client MessagingClient, topic string, logger zerolog.Logger) *SDKDispatcher {
	if topic == "" {
		topic = DefaultTopic
	}
	return &SDKDispatcher{
		client: client,
		topic:  topic,
		logger: logger.With().Str("component", "fcm_sdk").Logger(),
	}
}

// WithTimeout bounds each Send. Zero leaves the caller's deadline alone.
func (d *SDKDispatcher) WithTimeout(timeout time.Duration) *SDKDispatcher {
	d.timeout = timeout
	return d
}

// Dispatch sends one message. The result body mirrors the HTTP API: {"name": "<message id>"}.
func (d *SDKDispatcher) Dispatch(ctx context.Context, payload notify.Payload) (*Result, error) {
	if d.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, d.timeout)
		defer cancel()
	}
	id, err := d.client.Send(ctx, &messaging.Message{
		Topic: d.topic,
		Notification: &messaging.Notification{
			Title: payload.Title,
			Body:  payload.Body,
		},
		Data: payload.Data,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrBackendRejected, err)
	}

	body, err := json.Marshal(map[string]string{"name": id})
	if err != nil {
		return nil, fmt.Errorf("%w: encode result: %w", ErrBackendRejected, err)
	}

	d.logger.Debug().Str("topic", d.topic).Str("message_id", id).Msg("message sent")
	return &Result{Response: body}, nil
}
