package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/rs/zerolog"

	"github.com/olahtaxi/taxirelay/internal/api/models"
	"github.com/olahtaxi/taxirelay/internal/api/response"
	"github.com/olahtaxi/taxirelay/internal/relay"
)

// BlockListUpdated is the plain-text body returned after a replacement.
const BlockListUpdated = "Blocked list updated successfully"

// BlockListService is the part of the relay service that manages the block list.
type BlockListService interface {
	UpdateBlockList(ctx context.Context, raw json.RawMessage) error
	BlockList(ctx context.Context) ([]string, error)
}

// BlockListHandler handles block list administration.
type BlockListHandler struct {
	service BlockListService
	logger  zerolog.Logger
}

// NewBlockListHandler creates a new BlockListHandler.
func NewBlockListHandler(service BlockListService, logger zerolog.Logger) *BlockListHandler {
	return &BlockListHandler{service: service, logger: logger}
}

// UpdateBlockList handles POST /update-blocked.
func (h *BlockListHandler) UpdateBlockList(w http.ResponseWriter, r *http.Request) {
	var body models.BlockListUpdate
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		response.BadRequest(w, r, models.CodeInvalidFormat, "Invalid list format")
		return
	}

	if err := h.service.UpdateBlockList(r.Context(), body.List); err != nil {
		if errors.Is(err, relay.ErrInvalidFormat) {
			response.BadRequest(w, r, models.CodeInvalidFormat, "Invalid list format")
			return
		}
		h.logger.Error().Err(err).Msg("block list update failed")
		response.InternalError(w, r, "Block list could not be updated")
		return
	}

	response.Text(w, r, http.StatusOK, BlockListUpdated)
}

// GetBlockList handles GET /blocked.
func (h *BlockListHandler) GetBlockList(w http.ResponseWriter, r *http.Request) {
	ids, err := h.service.BlockList(r.Context())
	if err != nil {
		h.logger.Error().Err(err).Msg("block list read failed")
		response.InternalError(w, r, "Block list unavailable")
		return
	}
	if ids == nil {
		ids = []string{}
	}
	response.JSON(w, r, http.StatusOK, models.BlockList{List: ids})
}
