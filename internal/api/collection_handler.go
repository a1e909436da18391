package api

import (
	"errors"
	"io"
	"net/http"

	"github.com/content-collections/internal/models"
	"github.com/content-collections/internal/service"
	"github.com/content-collections/internal/validation"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
)

// CollectionHandler serves schema descriptions and record validation
type CollectionHandler struct {
	services *service.Services
	log      zerolog.Logger
}

// NewCollectionHandler creates a new CollectionHandler
func NewCollectionHandler(services *service.Services, log zerolog.Logger) *CollectionHandler {
	return &CollectionHandler{
		services: services,
		log:      log.With().Str("handler", "collection").Logger(),
	}
}

// ListSchemas handles GET /v1/collections
func (h *CollectionHandler) ListSchemas(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"collections": h.services.Validate.Schemas()})
}

// GetSchema handles GET /v1/collections/:kind
func (h *CollectionHandler) GetSchema(c *gin.Context) {
	kind, ok := models.ParseKind(c.Param("kind"))
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "unknown collection"})
		return
	}
	for _, spec := range h.services.Validate.Schemas() {
		if spec.Kind == kind {
			c.JSON(http.StatusOK, spec)
			return
		}
	}
	c.JSON(http.StatusNotFound, gin.H{"error": "unknown collection"})
}

// Validate handles POST /v1/collections/:kind/validate.
// The body is the raw front-matter of one document as a JSON object.
func (h *CollectionHandler) Validate(c *gin.Context) {
	kind, ok := models.ParseKind(c.Param("kind"))
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "unknown collection"})
		return
	}

	var raw map[string]interface{}
	if err := c.ShouldBindJSON(&raw); err != nil {
		msg := "request body must be a JSON object"
		if errors.Is(err, io.EOF) {
			msg = "request body is required"
		}
		c.JSON(http.StatusBadRequest, gin.H{"error": msg})
		return
	}

	res, err := h.services.Validate.ValidateRecord(c.Request.Context(), kind, c.Query("document"), raw)
	if err != nil {
		if errors.Is(err, validation.ErrUnknownCollection) {
			c.JSON(http.StatusNotFound, gin.H{"error": "unknown collection"})
			return
		}
		h.log.Error().Err(err).Str("kind", string(kind)).Msg("Validation failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "validation failed"})
		return
	}

	if !res.Valid {
		c.JSON(http.StatusUnprocessableEntity, res)
		return
	}
	c.JSON(http.StatusOK, res)
}
