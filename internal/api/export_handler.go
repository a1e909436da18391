package api

import (
	"net/http"

	"github.com/content-collections/internal/models"
	"github.com/content-collections/internal/service"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
)

// ExportHandler handles export endpoints
type ExportHandler struct {
	services *service.Services
	log      zerolog.Logger
}

// NewExportHandler creates a new ExportHandler
func NewExportHandler(services *service.Services, log zerolog.Logger) *ExportHandler {
	return &ExportHandler{
		services: services,
		log:      log.With().Str("handler", "export").Logger(),
	}
}

// StreamExport handles GET /v1/exports?collection=...&format=...
// Streams the export directly to the response
func (h *ExportHandler) StreamExport(c *gin.Context) {
	ctx := c.Request.Context()

	name := c.Query("collection")
	if name == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "collection parameter is required (blog, docs, pages)"})
		return
	}
	kind, ok := models.ParseKind(name)
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": "collection must be one of: blog, docs, pages"})
		return
	}

	format := c.DefaultQuery("format", service.FormatNDJSON)
	switch format {
	case service.FormatNDJSON, service.FormatJSON, service.FormatCSV, service.FormatMarkdown:
	default:
		c.JSON(http.StatusBadRequest, gin.H{"error": "format must be one of: ndjson, json, csv, markdown"})
		return
	}

	h.log.Info().
		Str("collection", string(kind)).
		Str("format", format).
		Msg("Starting streaming export")

	if err := h.services.Export.StreamCollection(ctx, c.Writer, kind, format); err != nil {
		h.log.Error().Err(err).Str("collection", string(kind)).Msg("Export failed")
		// Can't return error JSON after streaming has started
		if !c.Writer.Written() {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "export failed"})
		}
	}
}
