package main

import (
	"github.com/hibiken/asynq"

	catalogJob "catalog-backend/internal/domains/catalog/job"
	"catalog-backend/internal/shared"
	"catalog-backend/pkg/container"
)

// HandlerRegistry holds the job handlers.
type HandlerRegistry struct {
	mediaTransfer   *catalogJob.MediaTransferHandler
	metadataRefresh *catalogJob.MetadataRefreshHandler
}

func initializeHandlers(c *container.Container) *HandlerRegistry {
	return &HandlerRegistry{
		mediaTransfer:   catalogJob.NewMediaTransferHandler(c.MediaService),
		metadataRefresh: catalogJob.NewMetadataRefreshHandler(c.ImportService),
	}
}

// RegisterHandlers wires every handler into the mux.
func (h *HandlerRegistry) RegisterHandlers(mux *asynq.ServeMux) {
	mux.HandleFunc(shared.TypeTransferProductMedia, h.mediaTransfer.ProcessTask)
	mux.HandleFunc(shared.TypeRefreshMetadata, h.metadataRefresh.ProcessTask)
}
