package service

import (
	"bufio"
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/content-collections/internal/config"
	"github.com/content-collections/internal/content"
	"github.com/content-collections/internal/events"
	"github.com/content-collections/internal/models"
	"github.com/content-collections/internal/repository"
	"github.com/content-collections/internal/validation"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// Codes of import failures that happen before schema validation
const (
	CodeInvalidJSON        = "invalid_json"
	CodeUnknownCollection  = "unknown_collection"
	CodeMalformedDocument  = "malformed_document"
	CodeMissingPath        = string(validation.CodeMissingRequiredField)
	defaultImportBatchSize = 500
)

// importService is the concrete implementation of ImportService
type importService struct {
	repos *repository.Repositories
	deps  Deps
	cfg   *config.Config
	log   zerolog.Logger
}

// newImportService creates a new ImportService
func newImportService(repos *repository.Repositories, deps Deps, cfg *config.Config, log zerolog.Logger) *importService {
	deps.withDefaults()
	return &importService{
		repos: repos,
		deps:  deps,
		cfg:   cfg,
		log:   log.With().Str("service", "import").Logger(),
	}
}

// CreateImportJob creates a new import job
func (s *importService) CreateImportJob(ctx context.Context, req *models.ImportRequest, filePath string) (*models.Job, error) {
	format := req.Format
	if format == "" {
		format = formatOf(filePath)
	}
	if format == models.SourceFormatMarkdown {
		if _, ok := models.ParseKind(req.Collection); !ok {
			return nil, fmt.Errorf("%w: %q", validation.ErrUnknownCollection, req.Collection)
		}
	}

	job := &models.Job{
		ID:             uuid.New().String(),
		Type:           models.JobTypeImport,
		Collection:     strings.ToLower(strings.TrimSpace(req.Collection)),
		Format:         format,
		Status:         models.JobStatusPending,
		IdempotencyKey: req.IdempotencyKey,
		FilePath:       filePath,
		CreatedAt:      time.Now(),
	}

	if err := s.repos.Job.Create(ctx, job); err != nil {
		return nil, err
	}

	s.log.Info().
		Str("job_id", job.ID).
		Str("collection", job.Collection).
		Str("format", string(job.Format)).
		Str("file", filePath).
		Msg("Import job created")

	return job, nil
}

// ProcessImport processes an import job
func (s *importService) ProcessImport(ctx context.Context, job *models.Job) error {
	s.deps.Metrics.JobsActive.Inc()
	defer s.deps.Metrics.JobsActive.Dec()

	startTime := time.Now()
	now := startTime
	job.Status = models.JobStatusProcessing
	job.StartedAt = &now
	if err := s.repos.Job.Update(ctx, job); err != nil {
		s.log.Warn().Err(err).Str("job_id", job.ID).Msg("Failed to mark job as processing")
	}

	s.log.Info().
		Str("job_id", job.ID).
		Str("format", string(job.Format)).
		Msg("Starting import processing")

	var err error
	switch job.Format {
	case models.SourceFormatNDJSON:
		err = s.processNDJSON(ctx, job)
	case models.SourceFormatMarkdown:
		err = s.processMarkdown(ctx, job)
	default:
		err = fmt.Errorf("unknown import format: %s", job.Format)
	}

	// Calculate metrics
	duration := time.Since(startTime)
	job.DurationMs = duration.Milliseconds()
	if job.ProcessedCount > 0 && duration.Seconds() > 0 {
		job.RowsPerSec = float64(job.ProcessedCount) / duration.Seconds()
	}

	completedAt := time.Now()
	job.CompletedAt = &completedAt

	var errorRate float64
	if job.TotalRecords > 0 {
		errorRate = float64(job.FailedCount) / float64(job.TotalRecords) * 100
	}
	s.deps.Metrics.RecordImport(job.SuccessfulCount, job.FailedCount)

	if err != nil {
		job.Status = models.JobStatusFailed
		s.log.Error().Err(err).Str("job_id", job.ID).Msg("Import failed")
	} else {
		job.Status = models.JobStatusCompleted
		s.log.Info().
			Str("job_id", job.ID).
			Int("total", job.TotalRecords).
			Int("successful", job.SuccessfulCount).
			Int("failed", job.FailedCount).
			Float64("error_rate_pct", errorRate).
			Int64("duration_ms", job.DurationMs).
			Float64("rows_per_sec", job.RowsPerSec).
			Msg("Import completed")
	}

	if uerr := s.repos.Job.Update(ctx, job); uerr != nil {
		s.log.Error().Err(uerr).Str("job_id", job.ID).Msg("Failed to store job result")
	}

	return err
}

// importBatch accumulates entries and errors of a running job
type importBatch struct {
	s       *importService
	job     *models.Job
	size    int
	entries []*models.Entry
	errors  []models.ValidationError
}

func (b *importBatch) reject(ctx context.Context, line int, document string, errs ...models.ValidationError) {
	b.job.FailedCount++
	b.job.ProcessedCount++
	for _, e := range errs {
		e.Line = line
		e.Document = document
		b.errors = append(b.errors, e)
	}
	// Flush errors periodically to prevent unbounded memory growth
	if len(b.errors) >= errorFlushThreshold {
		b.s.flushValidationErrors(ctx, b.job.ID, &b.errors)
	}
}

func (b *importBatch) accept(ctx context.Context, entry *models.Entry) {
	b.entries = append(b.entries, entry)
	if len(b.entries) >= b.size {
		b.flush(ctx)
	}
}

func (b *importBatch) flush(ctx context.Context) {
	if len(b.entries) == 0 {
		return
	}
	if _, err := b.s.repos.Entry.BatchUpsert(ctx, b.entries); err != nil {
		b.s.log.Error().Err(err).Int("batch_size", len(b.entries)).Msg("Batch upsert failed")
		b.job.FailedCount += len(b.entries)
	} else {
		// Duplicate slugs within a batch collapse into one row but count per line
		b.job.SuccessfulCount += len(b.entries)
		for _, e := range b.entries {
			b.s.publishStored(ctx, e)
		}
	}
	b.job.ProcessedCount += len(b.entries)
	b.entries = b.entries[:0]
}

func (b *importBatch) close(ctx context.Context) {
	b.flush(ctx)
	b.s.flushValidationErrors(ctx, b.job.ID, &b.errors)
}

func (s *importService) newBatch(job *models.Job) *importBatch {
	size := s.cfg.Import.BatchSize
	if size <= 0 {
		size = defaultImportBatchSize
	}
	return &importBatch{s: s, job: job, size: size}
}

// processNDJSON imports one document per line
func (s *importService) processNDJSON(ctx context.Context, job *models.Job) error {
	file, err := os.Open(job.FilePath)
	if err != nil {
		return err
	}
	defer file.Close()

	scanner := bufio.NewScanner(file)
	// A line carries a whole document body
	buf := make([]byte, 0, 64*1024)
	scanner.Buffer(buf, int(s.maxLineSize()))

	batch := s.newBatch(job)
	defer batch.close(ctx)

	lineNum := 0
	for scanner.Scan() {
		lineNum++
		line := scanner.Bytes()

		if len(bytes.TrimSpace(line)) == 0 {
			continue
		}

		job.TotalRecords++

		// Respect context cancellation for long-running imports
		if lineNum%1000 == 0 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			default:
			}
		}

		var doc models.EntryNDJSON
		if err := json.Unmarshal(line, &doc); err != nil {
			batch.reject(ctx, lineNum, "", models.ValidationError{
				Field:   "json",
				Code:    CodeInvalidJSON,
				Message: fmt.Sprintf("invalid JSON: %v", err),
			})
			continue
		}

		kindName := doc.Kind
		if kindName == "" {
			kindName = job.Collection
		}
		kind, ok := models.ParseKind(kindName)
		if !ok {
			batch.reject(ctx, lineNum, doc.Path, models.ValidationError{
				Field:   "kind",
				Code:    CodeUnknownCollection,
				Message: "unknown collection",
				Value:   doc.Kind,
			})
			continue
		}

		if strings.TrimSpace(doc.Path) == "" {
			batch.reject(ctx, lineNum, "", models.ValidationError{
				Field:   "path",
				Code:    CodeMissingPath,
				Message: "missing required field",
			})
			continue
		}
		docPath := documentPath(kind, doc.Path)

		rec, err := s.deps.Validator.ValidateDocument(kind, docPath, doc.Frontmatter)
		if err != nil {
			batch.reject(ctx, lineNum, docPath, toValidationErrors(err)...)
			continue
		}

		sum := sha256.Sum256(line)
		entry, err := newEntry(kind, docPath, rec, []byte(doc.Body), hex.EncodeToString(sum[:]))
		if err != nil {
			batch.reject(ctx, lineNum, docPath, models.ValidationError{
				Code:    CodeMalformedDocument,
				Message: err.Error(),
			})
			continue
		}
		batch.accept(ctx, entry)
	}

	return scanner.Err()
}

// processMarkdown imports a single uploaded document into job.Collection
func (s *importService) processMarkdown(ctx context.Context, job *models.Job) error {
	kind, ok := models.ParseKind(job.Collection)
	if !ok {
		return fmt.Errorf("%w: %q", validation.ErrUnknownCollection, job.Collection)
	}

	file, err := os.Open(job.FilePath)
	if err != nil {
		return err
	}
	defer file.Close()

	batch := s.newBatch(job)
	defer batch.close(ctx)

	job.TotalRecords = 1
	name := path.Join(string(kind), filepath.Base(job.FilePath))

	if limit := s.cfg.Content.MaxDocumentSize; limit > 0 {
		if info, err := file.Stat(); err == nil && info.Size() > limit {
			batch.reject(ctx, 1, name, models.ValidationError{
				Code:    CodeMalformedDocument,
				Message: content.ErrDocumentTooLarge.Error(),
			})
			return nil
		}
	}

	doc, err := content.ParseDocument(name, file)
	if err != nil {
		batch.reject(ctx, 1, name, models.ValidationError{
			Code:    CodeMalformedDocument,
			Message: err.Error(),
		})
		return nil
	}

	rec, err := s.deps.Validator.ValidateDocument(kind, doc.Path, doc.Frontmatter)
	if err != nil {
		batch.reject(ctx, 1, doc.Path, toValidationErrors(err)...)
		return nil
	}

	entry, err := newEntry(kind, doc.Path, rec, doc.Body, doc.Hash)
	if err != nil {
		return err
	}
	batch.accept(ctx, entry)
	return nil
}

func (s *importService) maxLineSize() int64 {
	size := s.cfg.Content.MaxDocumentSize
	if size < 1024*1024 {
		size = 1024 * 1024
	}
	// Room for JSON escaping of the body
	return size * 2
}

func (s *importService) publishStored(ctx context.Context, e *models.Entry) {
	if s.deps.Publisher == nil {
		return
	}
	var fm map[string]interface{}
	if err := json.Unmarshal(e.Frontmatter, &fm); err != nil {
		return
	}
	event := &events.EntryEvent{
		Kind:        e.Kind,
		Path:        e.SourcePath,
		Slug:        e.Slug,
		Hash:        e.ContentHash,
		Frontmatter: fm,
		OccurredAt:  time.Now().UTC(),
	}
	if err := s.deps.Publisher.PublishValidated(ctx, event); err != nil {
		s.log.Warn().Err(err).Str("path", e.SourcePath).Msg("Failed to publish entry event")
	}
}

// flushValidationErrors writes accumulated errors to the database and resets the slice.
const errorFlushThreshold = 1000

func (s *importService) flushValidationErrors(ctx context.Context, jobID string, errors *[]models.ValidationError) {
	if len(*errors) == 0 {
		return
	}
	if err := s.repos.Job.AddErrors(ctx, jobID, *errors); err != nil {
		s.log.Error().Err(err).Int("count", len(*errors)).Msg("Failed to flush validation errors")
	}
	*errors = (*errors)[:0]
}

// Helper functions

func newEntry(kind models.Kind, docPath string, rec models.Record, body []byte, hash string) (*models.Entry, error) {
	fm, err := json.Marshal(rec.Frontmatter())
	if err != nil {
		return nil, fmt.Errorf("failed to encode front-matter: %w", err)
	}
	stats := content.ComputeStats(body)
	return &models.Entry{
		Kind:           kind,
		Slug:           content.Slug(docPath),
		SourcePath:     docPath,
		ContentHash:    hash,
		Frontmatter:    fm,
		Body:           string(body),
		WordCount:      stats.Words,
		ReadingMinutes: stats.ReadingMinutes,
	}, nil
}

// documentPath places p under the collection directory of kind
func documentPath(kind models.Kind, p string) string {
	p = path.Clean(strings.TrimPrefix(strings.ReplaceAll(p, "\\", "/"), "/"))
	if strings.HasPrefix(p, string(kind)+"/") {
		return p
	}
	return path.Join(string(kind), p)
}

func toValidationErrors(err error) []models.ValidationError {
	se, ok := validation.AsSchemaError(err)
	if !ok {
		return []models.ValidationError{{Code: CodeMalformedDocument, Message: err.Error()}}
	}
	out := make([]models.ValidationError, len(se.Errors))
	for i, fe := range se.Errors {
		out[i] = models.ValidationError{
			Field:   fe.Field,
			Code:    string(fe.Code),
			Message: fe.Message,
			Value:   fe.Value,
		}
	}
	return out
}

func formatOf(filePath string) models.SourceFormat {
	switch strings.ToLower(filepath.Ext(filePath)) {
	case ".md", ".mdx", ".markdown":
		return models.SourceFormatMarkdown
	default:
		return models.SourceFormatNDJSON
	}
}
