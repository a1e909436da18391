package api

import (
	"encoding/csv"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/content-collections/internal/config"
	"github.com/content-collections/internal/models"
	"github.com/content-collections/internal/service"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// ImportHandler handles import endpoints
type ImportHandler struct {
	services *service.Services
	cfg      *config.Config
	log      zerolog.Logger
}

// NewImportHandler creates a new ImportHandler
func NewImportHandler(services *service.Services, cfg *config.Config, log zerolog.Logger) *ImportHandler {
	return &ImportHandler{
		services: services,
		cfg:      cfg,
		log:      log.With().Str("handler", "import").Logger(),
	}
}

// uploadFormat maps an upload file extension to its import format
func uploadFormat(filename string) (models.SourceFormat, bool) {
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".ndjson", ".jsonl", ".json":
		return models.SourceFormatNDJSON, true
	case ".md", ".mdx", ".markdown":
		return models.SourceFormatMarkdown, true
	default:
		return "", false
	}
}

// CreateImport handles POST /v1/imports.
// Accepts a multipart upload: an NDJSON file of documents, or a single markdown
// document together with a collection field.
func (h *ImportHandler) CreateImport(c *gin.Context) {
	ctx := c.Request.Context()

	idempotencyKey := c.GetHeader("Idempotency-Key")
	if idempotencyKey != "" {
		existingJob, err := h.services.Job.GetJobByIdempotencyKey(ctx, idempotencyKey)
		if err != nil {
			h.log.Error().Err(err).Msg("Failed to check idempotency key")
		}
		if existingJob != nil {
			h.log.Info().Str("job_id", existingJob.ID).Msg("Returning existing job for idempotency key")
			c.JSON(http.StatusOK, existingJob)
			return
		}
	}

	file, header, err := c.Request.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "file upload is required"})
		return
	}
	defer file.Close()

	if header.Size > h.cfg.Import.MaxUploadSize {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": fmt.Sprintf("file too large, max size is %d MB", h.cfg.Import.MaxUploadSize/(1024*1024)),
		})
		return
	}

	format, ok := uploadFormat(header.Filename)
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": "file must be .ndjson or a markdown document (.md, .mdx)"})
		return
	}

	collection := c.PostForm("collection")
	if collection == "" {
		collection = c.Query("collection")
	}
	if collection != "" {
		kind, ok := models.ParseKind(collection)
		if !ok {
			c.JSON(http.StatusBadRequest, gin.H{"error": "collection must be one of: blog, docs, pages"})
			return
		}
		collection = string(kind)
	}
	if format == models.SourceFormatMarkdown && collection == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "collection is required for markdown uploads"})
		return
	}

	// Each upload gets its own directory so the document keeps its file name
	dir := filepath.Join(h.cfg.Import.UploadDir, uuid.New().String()[:8])
	if err := os.MkdirAll(dir, 0755); err != nil {
		h.log.Error().Err(err).Msg("Failed to create upload directory")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to save file"})
		return
	}
	filePath := filepath.Join(dir, filepath.Base(header.Filename))

	dst, err := os.Create(filePath)
	if err != nil {
		h.log.Error().Err(err).Msg("Failed to create file")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to save file"})
		return
	}
	defer dst.Close()

	if _, err := io.Copy(dst, file); err != nil {
		h.log.Error().Err(err).Msg("Failed to copy file")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to save file"})
		return
	}

	req := &models.ImportRequest{
		Collection:     collection,
		Format:         format,
		IdempotencyKey: idempotencyKey,
	}

	job, err := h.services.Import.CreateImportJob(ctx, req, filePath)
	if err != nil {
		h.log.Error().Err(err).Msg("Failed to create import job")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to create import job"})
		return
	}

	h.log.Info().
		Str("job_id", job.ID).
		Str("collection", collection).
		Str("file", header.Filename).
		Int64("size_bytes", header.Size).
		Msg("Import job created")

	c.JSON(http.StatusAccepted, gin.H{
		"job_id":     job.ID,
		"status":     job.Status,
		"format":     job.Format,
		"collection": job.Collection,
		"message":    "Import job created and queued for processing",
	})
}

// GetImportStatus handles GET /v1/imports/:job_id
func (h *ImportHandler) GetImportStatus(c *gin.Context) {
	ctx := c.Request.Context()
	jobID := c.Param("job_id")

	job, err := h.services.Job.GetJob(ctx, jobID)
	if err != nil {
		h.log.Error().Err(err).Str("job_id", jobID).Msg("Failed to get job")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to get job status"})
		return
	}
	if job == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "job not found"})
		return
	}

	c.JSON(http.StatusOK, job)
}

// GetImportErrors handles GET /v1/imports/:job_id/errors
func (h *ImportHandler) GetImportErrors(c *gin.Context) {
	ctx := c.Request.Context()
	jobID := c.Param("job_id")

	errors, err := h.services.Job.GetJobErrors(ctx, jobID)
	if err != nil {
		h.log.Error().Err(err).Str("job_id", jobID).Msg("Failed to get job errors")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to get errors"})
		return
	}

	format := c.DefaultQuery("format", "json")

	if format == "csv" {
		c.Header("Content-Type", "text/csv")
		c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=errors_%s.csv", jobID))
		writer := csv.NewWriter(c.Writer)
		writer.Write([]string{"line", "document", "field", "code", "message", "value"})
		for _, e := range errors {
			value := ""
			if e.Value != nil {
				value = fmt.Sprintf("%v", e.Value)
			}
			writer.Write([]string{strconv.Itoa(e.Line), e.Document, e.Field, e.Code, e.Message, value})
		}
		writer.Flush()
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"job_id":      jobID,
		"error_count": len(errors),
		"errors":      errors,
	})
}
