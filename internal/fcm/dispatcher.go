// Package fcm delivers notifications to Firebase Cloud Messaging topics.
//
// HTTPDispatcher speaks the HTTP v1 API directly: it exchanges a signed
// service-account assertion for an OAuth access token, then posts one message.
// SDKDispatcher does the same through the Firebase Admin SDK.
// Neither retries; a failed dispatch is reported to the caller once.
package fcm

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/olahtaxi/taxirelay/internal/notify"
)

// DefaultTopic is the topic dispatch apps subscribe to.
const DefaultTopic = "requests"

// Dispatch errors.
var (
	// ErrAuthExchange means no access token could be obtained.
	ErrAuthExchange = errors.New("fcm: token exchange failed")

	// ErrBackendRejected means the send call failed or returned a non-2xx status.
	ErrBackendRejected = errors.New("fcm: backend rejected message")
)

// BackendError carries the backend's reply to a rejected send.
type BackendError struct {
	StatusCode int
	Body       string
}

func (e *BackendError) Error() string {
	return fmt.Sprintf("fcm backend status %d: %s", e.StatusCode, e.Body)
}

// Unwrap lets errors.Is match ErrBackendRejected.
func (e *BackendError) Unwrap() error {
	return ErrBackendRejected
}

// Result is the backend's response to a successful send.
type Result struct {
	// Response is the backend response body, passed through to the device.
	Response json.RawMessage
}

// Dispatcher sends one notification to the configured topic.
type Dispatcher interface {
	Dispatch(ctx context.Context, payload notify.Payload) (*Result, error)
}
