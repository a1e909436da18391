package mocks

import (
	"context"
	"io"
	"net/http"
	"sync"

	"github.com/content-collections/internal/content"
	"github.com/content-collections/internal/events"
	"github.com/content-collections/internal/models"
	"github.com/content-collections/internal/service"
)

// MockCheckService is a mock implementation of CheckService
type MockCheckService struct {
	Report *service.CheckReport
	Err    error
	Roots  []string
}

// Verify interface compliance
var _ service.CheckService = (*MockCheckService)(nil)

func (m *MockCheckService) Check(ctx context.Context, docs []*content.Document) (*service.CheckReport, error) {
	if m.Err != nil {
		return nil, m.Err
	}
	if m.Report != nil {
		return m.Report, nil
	}
	return &service.CheckReport{Total: len(docs), Valid: len(docs)}, nil
}

func (m *MockCheckService) CheckDir(ctx context.Context, root string) (*service.CheckReport, error) {
	m.Roots = append(m.Roots, root)
	return m.Check(ctx, nil)
}

// MockImportService is a mock implementation of ImportService
type MockImportService struct {
	CreateJobFunc func(ctx context.Context, req *models.ImportRequest, filePath string) (*models.Job, error)
	ProcessFunc   func(ctx context.Context, job *models.Job) error
	ProcessedJobs []*models.Job
	CreatedJobs   []*models.Job
	FilePaths     []string
}

// Verify interface compliance
var _ service.ImportService = (*MockImportService)(nil)

func NewMockImportService() *MockImportService {
	return &MockImportService{
		ProcessedJobs: make([]*models.Job, 0),
		CreatedJobs:   make([]*models.Job, 0),
	}
}

func (m *MockImportService) CreateImportJob(ctx context.Context, req *models.ImportRequest, filePath string) (*models.Job, error) {
	m.FilePaths = append(m.FilePaths, filePath)
	if m.CreateJobFunc != nil {
		return m.CreateJobFunc(ctx, req, filePath)
	}
	job := &models.Job{
		ID:         "test-job-id",
		Type:       models.JobTypeImport,
		Collection: req.Collection,
		Format:     req.Format,
		Status:     models.JobStatusPending,
	}
	m.CreatedJobs = append(m.CreatedJobs, job)
	return job, nil
}

func (m *MockImportService) ProcessImport(ctx context.Context, job *models.Job) error {
	if m.ProcessFunc != nil {
		return m.ProcessFunc(ctx, job)
	}
	m.ProcessedJobs = append(m.ProcessedJobs, job)
	job.Status = models.JobStatusCompleted
	return nil
}

// MockExportService is a mock implementation of ExportService
type MockExportService struct {
	StreamFunc func(ctx context.Context, w http.ResponseWriter, kind models.Kind, format string) error
	Counts     map[models.Kind]int
	Streamed   []models.Kind
}

// Verify interface compliance
var _ service.ExportService = (*MockExportService)(nil)

func NewMockExportService() *MockExportService {
	return &MockExportService{
		Counts: map[models.Kind]int{
			models.KindBlog:  0,
			models.KindDocs:  0,
			models.KindPages: 0,
		},
	}
}

func (m *MockExportService) StreamCollection(ctx context.Context, w http.ResponseWriter, kind models.Kind, format string) error {
	m.Streamed = append(m.Streamed, kind)
	if m.StreamFunc != nil {
		return m.StreamFunc(ctx, w, kind, format)
	}
	return nil
}

func (m *MockExportService) WriteArchive(ctx context.Context, w io.Writer, kind models.Kind) (int, error) {
	return 0, nil
}

func (m *MockExportService) GetCounts(ctx context.Context) (map[models.Kind]int, error) {
	return m.Counts, nil
}

// MockJobService is a mock implementation of JobService
type MockJobService struct {
	Jobs          map[string]*models.JobResponse
	Errors        map[string][]models.ValidationError
	ImportService service.ImportService
}

// Verify interface compliance
var _ service.JobService = (*MockJobService)(nil)

func NewMockJobService() *MockJobService {
	return &MockJobService{
		Jobs:   make(map[string]*models.JobResponse),
		Errors: make(map[string][]models.ValidationError),
	}
}

func (m *MockJobService) StartProcessor(ctx context.Context) {}

func (m *MockJobService) StopProcessor() {}

func (m *MockJobService) GetJob(ctx context.Context, id string) (*models.JobResponse, error) {
	return m.Jobs[id], nil
}

func (m *MockJobService) GetJobByIdempotencyKey(ctx context.Context, key string) (*models.Job, error) {
	for _, job := range m.Jobs {
		if job.IdempotencyKey == key {
			return &job.Job, nil
		}
	}
	return nil, nil
}

func (m *MockJobService) GetJobErrors(ctx context.Context, id string) ([]models.ValidationError, error) {
	return m.Errors[id], nil
}

func (m *MockJobService) SetImportService(importService service.ImportService) {
	m.ImportService = importService
}

// RecordingPublisher records published entry events
type RecordingPublisher struct {
	mu        sync.Mutex
	Validated []*events.EntryEvent
	Rejected  []*events.EntryEvent
	Err       error
}

// Verify interface compliance
var _ events.Publisher = (*RecordingPublisher)(nil)

func (p *RecordingPublisher) PublishValidated(ctx context.Context, event *events.EntryEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	event.Type = events.EventValidated
	p.Validated = append(p.Validated, event)
	return p.Err
}

func (p *RecordingPublisher) PublishRejected(ctx context.Context, event *events.EntryEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	event.Type = events.EventRejected
	p.Rejected = append(p.Rejected, event)
	return p.Err
}

func (p *RecordingPublisher) Close() error { return nil }
