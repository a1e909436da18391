package repository

import (
	"context"

	"github.com/content-collections/internal/database"
	"github.com/content-collections/internal/models"
)

// EntryRepository defines the interface for stored entry operations
type EntryRepository interface {
	Upsert(ctx context.Context, entry *models.Entry) error
	BatchUpsert(ctx context.Context, entries []*models.Entry) (int, error)
	GetBySlug(ctx context.Context, kind models.Kind, slug string) (*models.Entry, error)
	Delete(ctx context.Context, kind models.Kind, slug string) (bool, error)
	Count(ctx context.Context) (int, error)
	CountByKind(ctx context.Context) (map[models.Kind]int, error)
	StreamByKind(ctx context.Context, kind models.Kind, callback func(*models.Entry) error) error
}

// JobRepository defines the interface for job data operations
type JobRepository interface {
	Create(ctx context.Context, job *models.Job) error
	Update(ctx context.Context, job *models.Job) error
	GetByID(ctx context.Context, id string) (*models.Job, error)
	GetByIdempotencyKey(ctx context.Context, key string) (*models.Job, error)
	GetPendingJobs(ctx context.Context) ([]*models.Job, error)
	MarkJobAsProcessing(ctx context.Context, jobID string) (bool, error)
	AddErrors(ctx context.Context, jobID string, errors []models.ValidationError) error
	GetErrors(ctx context.Context, jobID string, limit int) ([]models.ValidationError, error)
}

// Repositories holds all repository interfaces
type Repositories struct {
	Entry EntryRepository
	Job   JobRepository
}

// New creates all repositories with the given database connection
func New(db *database.DB) *Repositories {
	return &Repositories{
		Entry: NewEntryRepo(db),
		Job:   NewJobRepo(db),
	}
}
