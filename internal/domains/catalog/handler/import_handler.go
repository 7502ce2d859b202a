package handler

import (
	"errors"
	"net/http"

	"catalog-backend/internal/domains/catalog/model"
	"catalog-backend/internal/domains/catalog/service"
	"catalog-backend/internal/shared/response"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
)

// ImportHandler exposes the catalog import pipeline over HTTP. All routes
// sit behind the admin middleware.
type ImportHandler struct {
	service service.ImportServiceInterface
	reader  *service.BatchReader
}

// NewImportHandler creates the handler.
func NewImportHandler(svc service.ImportServiceInterface, reader *service.BatchReader) *ImportHandler {
	return &ImportHandler{service: svc, reader: reader}
}

// ImportProducts - POST /api/v1/admin/import/products
// JSON batch body; per-request config overrides allowed.
func (h *ImportHandler) ImportProducts(c *gin.Context) {
	var req model.ImportRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request body: "+err.Error())
		return
	}
	h.run(c, &req)
}

// ImportCSV - POST /api/v1/admin/import/products/csv
// Multipart upload, field "file".
func (h *ImportHandler) ImportCSV(c *gin.Context) {
	file, err := c.FormFile("file")
	if err != nil {
		response.BadRequest(c, "file is required (multipart/form-data)")
		return
	}
	src, err := file.Open()
	if err != nil {
		log.Error().Err(err).Str("file_name", file.Filename).Msg("Failed to open uploaded file")
		response.InternalServerError(c, "failed to open uploaded file")
		return
	}
	defer src.Close()

	products, err := h.reader.ReadCSV(src)
	if err != nil {
		response.BadRequest(c, err.Error())
		return
	}
	h.run(c, &model.ImportRequest{Products: products})
}

// ImportXLSX - POST /api/v1/admin/import/products/xlsx
// Multipart upload, field "file"; first sheet is read.
func (h *ImportHandler) ImportXLSX(c *gin.Context) {
	file, err := c.FormFile("file")
	if err != nil {
		response.BadRequest(c, "file is required (multipart/form-data)")
		return
	}
	src, err := file.Open()
	if err != nil {
		log.Error().Err(err).Str("file_name", file.Filename).Msg("Failed to open uploaded file")
		response.InternalServerError(c, "failed to open uploaded file")
		return
	}
	defer src.Close()

	products, err := h.reader.ReadXLSX(src)
	if err != nil {
		response.BadRequest(c, err.Error())
		return
	}
	h.run(c, &model.ImportRequest{Products: products})
}

// RefreshMetadata - POST /api/v1/admin/import/metadata/refresh
func (h *ImportHandler) RefreshMetadata(c *gin.Context) {
	if err := h.service.RefreshMetadata(c.Request.Context()); err != nil {
		log.Error().Err(err).Msg("Metadata refresh failed")
		response.InternalServerError(c, err.Error())
		return
	}
	response.Success(c, http.StatusOK, gin.H{"refreshed": true})
}

func (h *ImportHandler) run(c *gin.Context, req *model.ImportRequest) {
	result, err := h.service.ImportProducts(c.Request.Context(), req)
	if err != nil {
		if errors.Is(err, model.ErrEmptyBatch) {
			response.BadRequest(c, "no products in request")
			return
		}
		log.Error().Err(err).Msg("Import failed")
		response.InternalServerError(c, err.Error())
		return
	}

	// Partial failures are a 200: per-row outcomes carry the details.
	response.Success(c, http.StatusOK, result)
}
