package job

import (
	"context"
	"encoding/json"
	"fmt"

	"catalog-backend/internal/domains/catalog/service"
	"catalog-backend/internal/shared"

	"github.com/hibiken/asynq"
	"github.com/rs/zerolog/log"
)

// MediaTransferHandler moves product images from their source URLs into
// object storage, decoupled from the import request.
type MediaTransferHandler struct {
	mediaService service.MediaServiceInterface
}

func NewMediaTransferHandler(mediaService service.MediaServiceInterface) *MediaTransferHandler {
	return &MediaTransferHandler{mediaService: mediaService}
}

// ProcessTask handles one catalog:transfer_media task.
func (h *MediaTransferHandler) ProcessTask(ctx context.Context, task *asynq.Task) error {
	var payload shared.MediaTransferPayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		log.Error().Err(err).Msg("Failed to unmarshal media transfer payload")
		return fmt.Errorf("unmarshal payload: %w", err)
	}

	log.Info().
		Int64("entity_id", payload.EntityID).
		Str("sku", payload.SKU).
		Int("images", len(payload.ImageURLs)).
		Msg("Transferring product media")

	if err := h.mediaService.TransferImages(ctx, payload.EntityID, payload.SKU, payload.ImageURLs); err != nil {
		log.Error().
			Err(err).
			Int64("entity_id", payload.EntityID).
			Msg("Media transfer failed")
		return fmt.Errorf("transfer media: %w", err)
	}
	return nil
}
