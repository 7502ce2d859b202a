package job

import (
	"context"
	"fmt"

	"catalog-backend/internal/domains/catalog/service"

	"github.com/hibiken/asynq"
	"github.com/rs/zerolog/log"
)

// MetadataRefreshHandler periodically re-reads the catalog schema so
// long-running workers see attributes and categories created elsewhere.
type MetadataRefreshHandler struct {
	importService service.ImportServiceInterface
}

func NewMetadataRefreshHandler(importService service.ImportServiceInterface) *MetadataRefreshHandler {
	return &MetadataRefreshHandler{importService: importService}
}

// ProcessTask handles one catalog:refresh_metadata task.
func (h *MetadataRefreshHandler) ProcessTask(ctx context.Context, task *asynq.Task) error {
	if err := h.importService.RefreshMetadata(ctx); err != nil {
		log.Error().Err(err).Msg("Scheduled metadata refresh failed")
		return fmt.Errorf("refresh metadata: %w", err)
	}
	log.Info().Msg("Catalog metadata refreshed")
	return nil
}
