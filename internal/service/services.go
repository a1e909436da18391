package service

import (
	"context"
	"io"
	"net/http"

	"github.com/content-collections/internal/cache"
	"github.com/content-collections/internal/config"
	"github.com/content-collections/internal/content"
	"github.com/content-collections/internal/events"
	"github.com/content-collections/internal/metrics"
	"github.com/content-collections/internal/models"
	"github.com/content-collections/internal/repository"
	"github.com/content-collections/internal/validation"
	"github.com/rs/zerolog"
)

// CheckService defines the interface for collection-wide checks
type CheckService interface {
	Check(ctx context.Context, docs []*content.Document) (*CheckReport, error)
	CheckDir(ctx context.Context, root string) (*CheckReport, error)
}

// ValidateService defines the interface for single record validation
type ValidateService interface {
	ValidateRecord(ctx context.Context, kind models.Kind, document string, raw map[string]interface{}) (*ValidationResult, error)
	Schemas() []models.CollectionSpec
}

// ImportService defines the interface for import operations
type ImportService interface {
	CreateImportJob(ctx context.Context, req *models.ImportRequest, filePath string) (*models.Job, error)
	ProcessImport(ctx context.Context, job *models.Job) error
}

// ExportService defines the interface for export operations
type ExportService interface {
	StreamCollection(ctx context.Context, w http.ResponseWriter, kind models.Kind, format string) error
	WriteArchive(ctx context.Context, w io.Writer, kind models.Kind) (int, error)
	GetCounts(ctx context.Context) (map[models.Kind]int, error)
}

// JobService defines the interface for job management
type JobService interface {
	StartProcessor(ctx context.Context)
	StopProcessor()
	GetJob(ctx context.Context, id string) (*models.JobResponse, error)
	GetJobByIdempotencyKey(ctx context.Context, key string) (*models.Job, error)
	GetJobErrors(ctx context.Context, id string) ([]models.ValidationError, error)
	SetImportService(importService ImportService)
}

// Services holds all service interfaces
type Services struct {
	Check    CheckService
	Validate ValidateService
	Import   ImportService
	Export   ExportService
	Job      JobService
}

// Deps are the shared collaborators of the services
type Deps struct {
	Validator *validation.Validator
	Cache     cache.ResultCache
	Publisher events.Publisher
	Metrics   *metrics.Metrics
}

func (d *Deps) withDefaults() {
	if d.Validator == nil {
		d.Validator = validation.NewValidator()
	}
	if d.Cache == nil {
		d.Cache = cache.Nop{}
	}
	if d.Metrics == nil {
		d.Metrics = metrics.DefaultMetrics
	}
}

// NewServices creates all services
func NewServices(repos *repository.Repositories, cfg *config.Config, deps Deps, log zerolog.Logger) *Services {
	deps.withDefaults()

	jobSvc := newJobService(repos.Job, cfg.Import.MaxWorkers, log)
	importSvc := newImportService(repos, deps, cfg, log)
	exportSvc := newExportService(repos, log)
	checkSvc := NewCheckService(content.NewLoader(log, cfg.Content.MaxDocumentSize), deps, cfg.Content.Concurrency, log)

	// Wire up job processor to import service
	jobSvc.SetImportService(importSvc)

	return &Services{
		Check:    checkSvc,
		Validate: NewValidateService(deps, log),
		Import:   importSvc,
		Export:   exportSvc,
		Job:      jobSvc,
	}
}
