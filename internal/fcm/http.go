package fcm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/rs/zerolog"

	"github.com/olahtaxi/taxirelay/internal/notify"
	"github.com/olahtaxi/taxirelay/internal/provider/resilience"
)

// DefaultEndpoint is the FCM API origin.
const DefaultEndpoint = "https://fcm.googleapis.com"

const maxSendBody = 1 << 20

// HTTPDispatcherConfig holds configuration for the HTTPDispatcher.
type HTTPDispatcherConfig struct {
	ProjectID string

	// Endpoint is the API origin.
	// Default: DefaultEndpoint
	Endpoint string

	// Topic receives every message.
	// Default: DefaultTopic
	Topic string

	// Tokens supplies the bearer token. Required.
	Tokens TokenProvider

	// Client performs the send. Required.
	Client *resilience.Client

	Logger zerolog.Logger
}

// HTTPDispatcher sends messages through the FCM HTTP v1 API.
type HTTPDispatcher struct {
	sendURL string
	topic   string
	tokens  TokenProvider
	client  *resilience.Client
	logger  zerolog.Logger
}

// NewHTTPDispatcher creates a new HTTPDispatcher.
func NewHTTPDispatcher(cfg HTTPDispatcherConfig) *HTTPDispatcher {
	endpoint := strings.TrimRight(cfg.Endpoint, "/")
	if endpoint == "" {
		endpoint = DefaultEndpoint
	}
	topic := cfg.Topic
	if topic == "" {
		topic = DefaultTopic
	}
	client := cfg.Client
	if client == nil {
		client = resilience.NewClient(resilience.DefaultClientConfig("fcm-send"))
	}

	return &HTTPDispatcher{
		sendURL: endpoint + "/v1/projects/" + url.PathEscape(cfg.ProjectID) + "/messages:send",
		topic:   topic,
		tokens:  cfg.Tokens,
		client:  client,
		logger:  cfg.Logger.With().Str("component", "fcm_http").Logger(),
	}
}

type sendRequest struct {
	Message message `json:"message"`
}

type message struct {
	Topic        string            `json:"topic"`
	Notification notification      `json:"notification"`
	Data         map[string]string `json:"data,omitempty"`
}

type notification struct {
	Title string `json:"title"`
	Body  string `json:"body"`
}

// Dispatch performs one token lookup and one send.
func (d *HTTPDispatcher) Dispatch(ctx context.Context, payload notify.Payload) (*Result, error) {
	token, err := d.tokens.Token(ctx)
	if err != nil {
		return nil, err
	}

	body, err := json.Marshal(sendRequest{Message: message{
		Topic:        d.topic,
		Notification: notification{Title: payload.Title, Body: payload.Body},
		Data:         payload.Data,
	}})
	if err != nil {
		return nil, fmt.Errorf("%w: encode message: %w", ErrBackendRejected, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, d.sendURL, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("%w: build request: %w", ErrBackendRejected, err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := d.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrBackendRejected, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, maxSendBody))
	if err != nil {
		return nil, fmt.Errorf("%w: read response: %w", ErrBackendRejected, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &BackendError{StatusCode: resp.StatusCode, Body: string(respBody)}
	}

	d.logger.Debug().
		Str("topic", d.topic).
		RawJSON("fcm_response", jsonOrString(respBody)).
		Msg("message sent")

	return &Result{Response: jsonOrString(respBody)}, nil
}

// jsonOrString passes valid JSON through and quotes anything else.
func jsonOrString(b []byte) json.RawMessage {
	if len(b) > 0 && json.Valid(b) {
		return json.RawMessage(b)
	}
	quoted, _ := json.Marshal(string(b))
	return quoted
}
