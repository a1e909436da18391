package mocks

import (
	"context"
	"sort"
	"sync"

	"github.com/content-collections/internal/models"
	"github.com/content-collections/internal/repository"
)

// Verify interface compliance
var (
	_ repository.EntryRepository = (*MockEntryRepository)(nil)
	_ repository.JobRepository   = (*MockJobRepository)(nil)
)

// MockEntryRepository is a mock implementation of EntryRepository
type MockEntryRepository struct {
	mu               sync.Mutex
	Entries          map[string]*models.Entry
	UpsertError      error
	BatchUpsertFunc  func(ctx context.Context, entries []*models.Entry) (int, error)
	BatchUpsertCalls int
}

func NewMockEntryRepository() *MockEntryRepository {
	return &MockEntryRepository{
		Entries: make(map[string]*models.Entry),
	}
}

func entryKey(kind models.Kind, slug string) string {
	return string(kind) + "/" + slug
}

func (m *MockEntryRepository) Upsert(ctx context.Context, entry *models.Entry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.UpsertError != nil {
		return m.UpsertError
	}
	m.Entries[entryKey(entry.Kind, entry.Slug)] = entry
	return nil
}

func (m *MockEntryRepository) BatchUpsert(ctx context.Context, entries []*models.Entry) (int, error) {
	m.mu.Lock()
	m.BatchUpsertCalls++
	m.mu.Unlock()
	if m.BatchUpsertFunc != nil {
		return m.BatchUpsertFunc(ctx, entries)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.UpsertError != nil {
		return 0, m.UpsertError
	}
	for _, e := range entries {
		m.Entries[entryKey(e.Kind, e.Slug)] = e
	}
	return len(entries), nil
}

func (m *MockEntryRepository) GetBySlug(ctx context.Context, kind models.Kind, slug string) (*models.Entry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.Entries[entryKey(kind, slug)], nil
}

func (m *MockEntryRepository) Delete(ctx context.Context, kind models.Kind, slug string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	key := entryKey(kind, slug)
	_, exists := m.Entries[key]
	delete(m.Entries, key)
	return exists, nil
}

func (m *MockEntryRepository) Count(ctx context.Context) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.Entries), nil
}

func (m *MockEntryRepository) CountByKind(ctx context.Context) (map[models.Kind]int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	counts := make(map[models.Kind]int)
	for _, k := range models.Kinds() {
		counts[k] = 0
	}
	for _, e := range m.Entries {
		counts[e.Kind]++
	}
	return counts, nil
}

func (m *MockEntryRepository) StreamByKind(ctx context.Context, kind models.Kind, callback func(*models.Entry) error) error {
	m.mu.Lock()
	var entries []*models.Entry
	for _, e := range m.Entries {
		if e.Kind == kind {
			entries = append(entries, e)
		}
	}
	m.mu.Unlock()

	sort.Slice(entries, func(i, j int) bool { return entries[i].Slug < entries[j].Slug })
	for _, e := range entries {
		if err := callback(e); err != nil {
			return err
		}
	}
	return nil
}

// MockJobRepository is a mock implementation of JobRepository
type MockJobRepository struct {
	mu              sync.Mutex
	Jobs            map[string]*models.Job
	IdempotencyJobs map[string]*models.Job
	Errors          map[string][]models.ValidationError
	Statuses        map[string]models.JobStatus
	CreateError     error
	UpdateError     error
}

func NewMockJobRepository() *MockJobRepository {
	return &MockJobRepository{
		Jobs:            make(map[string]*models.Job),
		IdempotencyJobs: make(map[string]*models.Job),
		Errors:          make(map[string][]models.ValidationError),
		Statuses:        make(map[string]models.JobStatus),
	}
}

// StatusOf returns the status recorded by the last Create, Update or MarkJobAsProcessing
func (m *MockJobRepository) StatusOf(id string) models.JobStatus {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.Statuses[id]
}

func (m *MockJobRepository) Create(ctx context.Context, job *models.Job) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.CreateError != nil {
		return m.CreateError
	}
	stored := *job
	m.Jobs[job.ID] = &stored
	m.Statuses[job.ID] = job.Status
	if job.IdempotencyKey != "" {
		m.IdempotencyJobs[job.IdempotencyKey] = &stored
	}
	return nil
}

func (m *MockJobRepository) Update(ctx context.Context, job *models.Job) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.UpdateError != nil {
		return m.UpdateError
	}
	stored := *job
	m.Jobs[job.ID] = &stored
	m.Statuses[job.ID] = job.Status
	return nil
}

func (m *MockJobRepository) GetByID(ctx context.Context, id string) (*models.Job, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return copyJob(m.Jobs[id]), nil
}

func (m *MockJobRepository) GetByIdempotencyKey(ctx context.Context, key string) (*models.Job, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return copyJob(m.IdempotencyJobs[key]), nil
}

func (m *MockJobRepository) GetPendingJobs(ctx context.Context) ([]*models.Job, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var pending []*models.Job
	for _, job := range m.Jobs {
		if job.Status == models.JobStatusPending {
			pending = append(pending, copyJob(job))
		}
	}
	sort.Slice(pending, func(i, j int) bool { return pending[i].CreatedAt.Before(pending[j].CreatedAt) })
	return pending, nil
}

// copyJob keeps callers from sharing the stored job with the mock
func copyJob(job *models.Job) *models.Job {
	if job == nil {
		return nil
	}
	cp := *job
	return &cp
}

func (m *MockJobRepository) MarkJobAsProcessing(ctx context.Context, jobID string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	job, exists := m.Jobs[jobID]
	if !exists || job.Status != models.JobStatusPending {
		return false, nil
	}
	job.Status = models.JobStatusProcessing
	m.Statuses[jobID] = job.Status
	return true, nil
}

func (m *MockJobRepository) AddErrors(ctx context.Context, jobID string, errors []models.ValidationError) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Errors[jobID] = append(m.Errors[jobID], errors...)
	return nil
}

func (m *MockJobRepository) GetErrors(ctx context.Context, jobID string, limit int) ([]models.ValidationError, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	errors := m.Errors[jobID]
	if limit > 0 && len(errors) > limit {
		return errors[:limit], nil
	}
	return errors, nil
}
