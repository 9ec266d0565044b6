// Package relay turns authenticated device requests into topic notifications.
package relay

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/olahtaxi/taxirelay/internal/auth"
	"github.com/olahtaxi/taxirelay/internal/blocklist"
	"github.com/olahtaxi/taxirelay/internal/fcm"
	"github.com/olahtaxi/taxirelay/internal/notify"
	"github.com/olahtaxi/taxirelay/internal/telemetry"
)

// Credentials are the values a device presents in x-api-key and x-timestamp.
type Credentials struct {
	APIKey    string
	Timestamp string
}

// DeviceRequest is the body of a taxi request.
type DeviceRequest struct {
	Serial   string `json:"serial"`
	Location string `json:"location"`
	Type     string `json:"type"`
}

// Validate reports ErrMissingField naming every absent field.
func (r DeviceRequest) Validate() error {
	var missing []string
	if r.Serial == "" {
		missing = append(missing, "serial")
	}
	if r.Location == "" {
		missing = append(missing, "location")
	}
	if r.Type == "" {
		missing = append(missing, "type")
	}
	if len(missing) > 0 {
		return fmt.Errorf("%w: %s", ErrMissingField, strings.Join(missing, ", "))
	}
	return nil
}

// Admitter decides whether presented credentials are accepted.
type Admitter interface {
	Admit(key, timestamp string) error
}

// Config holds the collaborators of a Service.
type Config struct {
	Gate       Admitter
	Blocklist  blocklist.Store
	Composer   *notify.Composer
	Dispatcher fcm.Dispatcher
	Metrics    *telemetry.RelayMetrics
	Logger     zerolog.Logger

	// Now returns the time stamped on notifications. Defaults to time.Now.
	Now func() time.Time
}

// Service runs the relay pipeline.
type Service struct {
	gate       Admitter
	blocklist  blocklist.Store
	composer   *notify.Composer
	dispatcher fcm.Dispatcher
	metrics    *telemetry.RelayMetrics
	logger     zerolog.Logger
	now        func() time.Time
}

// NewService creates a new relay service.
func NewService(cfg Config) *Service {
	composer := cfg.Composer
	if composer == nil {
		composer = notify.NewComposer(notify.DefaultConfig())
	}
	now := cfg.Now
	if now == nil {
		now = time.Now
	}
	return &Service{
		gate:       cfg.Gate,
		blocklist:  cfg.Blocklist,
		composer:   composer,
		dispatcher: cfg.Dispatcher,
		metrics:    cfg.Metrics,
		logger:     cfg.Logger.With().Str("component", "relay").Logger(),
		now:        now,
	}
}

// HandleRequest validates, authenticates and filters req, then dispatches its notification.
// Errors are the field errors of this package, the auth admission errors,
// ErrDeviceBlocked, or a wrapped store or dispatch failure.
func (s *Service) HandleRequest(ctx context.Context, creds Credentials, req DeviceRequest) (*fcm.Result, error) {
	if err := req.Validate(); err != nil {
		s.metrics.RecordOutcome(ctx, telemetry.OutcomeRejected, "MissingField")
		return nil, err
	}

	if err := s.gate.Admit(creds.APIKey, creds.Timestamp); err != nil {
		s.metrics.RecordOutcome(ctx, telemetry.OutcomeRejected, admissionReason(err))
		return nil, err
	}

	blocked, err := s.blocklist.IsBlocked(ctx, req.Serial)
	if err != nil {
		s.metrics.RecordOutcome(ctx, telemetry.OutcomeFailed, "Blocklist")
		return nil, fmt.Errorf("check block list: %w", err)
	}
	if blocked {
		s.logger.Warn().Str("serial", req.Serial).Msg("request from blocked device rejected")
		s.metrics.RecordOutcome(ctx, telemetry.OutcomeBlocked, "")
		return nil, ErrDeviceBlocked
	}

	payload := s.composer.Compose(notify.Request{
		Serial:   req.Serial,
		Location: req.Location,
		Type:     req.Type,
	}, s.now())

	start := time.Now()
	result, err := s.dispatcher.Dispatch(ctx, payload)
	s.metrics.RecordDispatch(ctx, time.Since(start), err == nil)
	if err != nil {
		s.logDispatchFailure(req, err)
		s.metrics.RecordOutcome(ctx, telemetry.OutcomeFailed, dispatchReason(err))
		return nil, fmt.Errorf("dispatch: %w", err)
	}

	s.logger.Info().
		Str("serial", req.Serial).
		Str("type", req.Type).
		Msg("taxi request dispatched")
	s.metrics.RecordOutcome(ctx, telemetry.OutcomeDispatched, "")

	return result, nil
}

// UpdateBlockList replaces the block list with raw, which must be a JSON array of strings.
func (s *Service) UpdateBlockList(ctx context.Context, raw json.RawMessage) error {
	ids, err := blocklist.DecodeList(raw)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidFormat, err)
	}
	return s.ReplaceBlockList(ctx, ids)
}

// ReplaceBlockList installs ids as the block list.
func (s *Service) ReplaceBlockList(ctx context.Context, ids []string) error {
	if err := s.blocklist.Replace(ctx, ids); err != nil {
		return fmt.Errorf("replace block list: %w", err)
	}

	s.logger.Info().Strs("list", ids).Msg("block list updated")
	s.metrics.RecordBlocklistUpdate(ctx, len(ids))
	return nil
}

// BlockList returns the current block list.
func (s *Service) BlockList(ctx context.Context) ([]string, error) {
	ids, err := s.blocklist.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list block list: %w", err)
	}
	return ids, nil
}

// Ready reports whether the block-list store is reachable.
func (s *Service) Ready(ctx context.Context) error {
	return blocklist.Ping(ctx, s.blocklist)
}

func (s *Service) logDispatchFailure(req DeviceRequest, err error) {
	event := s.logger.Error().Err(err).Str("serial", req.Serial)

	var backendErr *fcm.BackendError
	if errors.As(err, &backendErr) {
		event = event.Int("fcm_status", backendErr.StatusCode).Str("fcm_body", backendErr.Body)
	}
	event.Msg("dispatch failed")
}

func admissionReason(err error) string {
	switch {
	case errors.Is(err, auth.ErrMissingCredential):
		return "MissingCredential"
	case errors.Is(err, auth.ErrUnknownKey):
		return "UnknownKey"
	case errors.Is(err, auth.ErrMalformedTimestamp):
		return "MalformedTimestamp"
	case errors.Is(err, auth.ErrStaleTimestamp):
		return "StaleTimestamp"
	default:
		return "Unknown"
	}
}

func dispatchReason(err error) string {
	switch {
	case errors.Is(err, fcm.ErrAuthExchange):
		return "AuthExchange"
	case errors.Is(err, fcm.ErrBackendRejected):
		return "BackendRejected"
	default:
		return "Dispatch"
	}
}
