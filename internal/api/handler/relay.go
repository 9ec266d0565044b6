// Package handler provides HTTP handlers for the taxi relay API.
package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/rs/zerolog"

	"github.com/olahtaxi/taxirelay/internal/api/middleware"
	"github.com/olahtaxi/taxirelay/internal/api/models"
	"github.com/olahtaxi/taxirelay/internal/api/response"
	"github.com/olahtaxi/taxirelay/internal/auth"
	"github.com/olahtaxi/taxirelay/internal/fcm"
	"github.com/olahtaxi/taxirelay/internal/relay"
)

// TimestampHeader carries the device's Unix timestamp in seconds.
const TimestampHeader = "X-Timestamp"

// RequestService is the part of the relay service behind POST /request.
type RequestService interface {
	HandleRequest(ctx context.Context, creds relay.Credentials, req relay.DeviceRequest) (*fcm.Result, error)
}

// RelayHandler handles taxi requests from in-car devices.
type RelayHandler struct {
	service RequestService
	logger  zerolog.Logger
}

// NewRelayHandler creates a new RelayHandler.
func NewRelayHandler(service RequestService, logger zerolog.Logger) *RelayHandler {
	return &RelayHandler{service: service, logger: logger}
}

// CreateRequest handles POST /request.
func (h *RelayHandler) CreateRequest(w http.ResponseWriter, r *http.Request) {
	var body models.TaxiRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		response.BadRequest(w, r, models.CodeInvalidFormat, "Invalid request body")
		return
	}

	creds := relay.Credentials{
		APIKey:    r.Header.Get(middleware.APIKeyHeader),
		Timestamp: r.Header.Get(TimestampHeader),
	}
	req := relay.DeviceRequest{Serial: body.Serial, Location: body.Location, Type: body.Type}

	result, err := h.service.HandleRequest(r.Context(), creds, req)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	response.JSON(w, r, http.StatusOK, models.TaxiResponse{OK: true, FCM: result.Response})
}

func (h *RelayHandler) writeError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, relay.ErrMissingField):
		response.BadRequest(w, r, models.CodeMissingField, "Missing fields")
	case errors.Is(err, relay.ErrInvalidFormat):
		response.BadRequest(w, r, models.CodeInvalidFormat, "Invalid request body")
	case errors.Is(err, auth.ErrMissingCredential):
		response.BadRequest(w, r, models.CodeMissingCredential, "Missing auth headers")
	case errors.Is(err, auth.ErrMalformedTimestamp):
		response.BadRequest(w, r, models.CodeMalformedTimestamp, "Invalid timestamp")
	case errors.Is(err, auth.ErrUnknownKey):
		response.Unauthorized(w, r, models.CodeUnknownKey, "Invalid API key")
	case errors.Is(err, auth.ErrStaleTimestamp):
		response.Unauthorized(w, r, models.CodeStaleTimestamp, "Stale timestamp")
	case errors.Is(err, relay.ErrDeviceBlocked):
		response.Forbidden(w, r, models.CodeDeviceBlocked, "Device blocked")
	default:
		// The service already logged the downstream detail; keep it off the wire.
		h.logger.Debug().Err(err).Str("request_id", middleware.GetRequestID(r.Context())).Msg("request failed")
		response.InternalError(w, r, "Notification could not be sent")
	}
}
