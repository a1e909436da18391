package service

import (
	"context"
	"fmt"
	"runtime"
	"sync"
	"time"

	"github.com/content-collections/internal/models"
	"github.com/content-collections/internal/repository"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
)

const defaultPollInterval = 2 * time.Second

// jobService is the concrete implementation of JobService
type jobService struct {
	jobRepo       repository.JobRepository
	importService ImportService
	workers       int
	pollInterval  time.Duration
	log           zerolog.Logger

	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
}

// newJobService creates a new JobService. Import jobs are I/O-bound (file reads,
// COPY into postgres), so the pool defaults to several workers per CPU.
func newJobService(jobRepo repository.JobRepository, maxWorkers int, log zerolog.Logger) *jobService {
	if maxWorkers <= 0 {
		maxWorkers = runtime.NumCPU() * 4
		if maxWorkers < 4 {
			maxWorkers = 4
		}
		if maxWorkers > 32 {
			maxWorkers = 32 // Cap to avoid excessive connections
		}
	}

	log = log.With().Str("service", "job").Logger()
	log.Info().Int("max_workers", maxWorkers).Msg("Initializing job service worker pool")

	return &jobService{
		jobRepo:      jobRepo,
		workers:      maxWorkers,
		pollInterval: defaultPollInterval,
		log:          log,
	}
}

// SetImportService sets the import service for job processing
func (s *jobService) SetImportService(importService ImportService) {
	s.importService = importService
}

// StartProcessor polls for pending jobs until ctx is cancelled or StopProcessor
// is called. At most workers jobs run at once; the poll loop blocks while the
// pool is full.
func (s *jobService) StartProcessor(ctx context.Context) {
	s.mu.Lock()
	if s.cancel != nil {
		s.mu.Unlock()
		return
	}
	ctx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})
	s.cancel, s.done = cancel, done
	s.mu.Unlock()

	defer close(done)

	var g errgroup.Group
	g.SetLimit(s.workers)

	s.log.Info().Dur("poll_interval", s.pollInterval).Msg("Job processor started")

	ticker := time.NewTicker(s.pollInterval)
	defer ticker.Stop()

	for {
		s.dispatchPending(ctx, &g)

		select {
		case <-ctx.Done():
			s.log.Info().Msg("Job processor stopping, waiting for running jobs")
			g.Wait()
			return
		case <-ticker.C:
		}
	}
}

// StopProcessor cancels the processor and waits for running jobs to return
func (s *jobService) StopProcessor() {
	s.mu.Lock()
	cancel, done := s.cancel, s.done
	s.cancel, s.done = nil, nil
	s.mu.Unlock()

	if cancel == nil {
		return
	}
	cancel()
	<-done
	s.log.Info().Msg("Job processor stopped")
}

// dispatchPending hands every pending job to the worker group
func (s *jobService) dispatchPending(ctx context.Context, g *errgroup.Group) {
	jobs, err := s.jobRepo.GetPendingJobs(ctx)
	if err != nil {
		if ctx.Err() == nil {
			s.log.Error().Err(err).Msg("Failed to get pending jobs")
		}
		return
	}

	for _, job := range jobs {
		if ctx.Err() != nil {
			return
		}
		job := job
		g.Go(func() error {
			s.runJob(ctx, job)
			return nil
		})
	}
}

// runJob claims job and processes it. A job claimed elsewhere is skipped.
func (s *jobService) runJob(ctx context.Context, job *models.Job) {
	if ctx.Err() != nil {
		s.log.Warn().Str("job_id", job.ID).Msg("Job left pending due to shutdown")
		return
	}

	marked, err := s.jobRepo.MarkJobAsProcessing(ctx, job.ID)
	if err != nil {
		s.log.Error().Err(err).Str("job_id", job.ID).Msg("Failed to claim job")
		return
	}
	if !marked {
		return
	}

	log := s.log.With().
		Str("job_id", job.ID).
		Str("type", string(job.Type)).
		Str("format", string(job.Format)).
		Str("collection", job.Collection).
		Logger()

	defer func() {
		if r := recover(); r != nil {
			log.Error().Interface("panic", r).Msg("Job processing panicked - recovered")
			s.failJob(job, fmt.Errorf("panic: %v", r))
		}
	}()

	log.Info().Msg("Processing job")

	switch job.Type {
	case models.JobTypeImport:
		if s.importService == nil {
			s.failJob(job, fmt.Errorf("no import service configured"))
			return
		}
		if err := s.importService.ProcessImport(ctx, job); err != nil {
			log.Error().Err(err).Msg("Import processing failed")
		}
	default:
		log.Warn().Msg("Unknown job type")
		s.failJob(job, fmt.Errorf("unknown job type %q", job.Type))
	}
}

// failJob records a terminal failure outside of the import path. It uses a
// fresh context so the status survives shutdown.
func (s *jobService) failJob(job *models.Job, cause error) {
	now := time.Now()
	job.Status = models.JobStatusFailed
	job.CompletedAt = &now

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := s.jobRepo.Update(ctx, job); err != nil {
		s.log.Error().Err(err).AnErr("cause", cause).Str("job_id", job.ID).Msg("Failed to mark job as failed")
	}
}

// GetJob retrieves a job by ID with errors
func (s *jobService) GetJob(ctx context.Context, id string) (*models.JobResponse, error) {
	job, err := s.jobRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if job == nil {
		return nil, nil
	}

	// First 100 errors inline, the rest through the error report
	errors, err := s.jobRepo.GetErrors(ctx, id, 100)
	if err != nil {
		s.log.Error().Err(err).Str("job_id", id).Msg("Failed to get job errors")
	}

	response := &models.JobResponse{
		Job:        *job,
		Errors:     errors,
		ErrorCount: job.FailedCount,
	}

	// Add error report URL if there are errors
	if job.FailedCount > 0 {
		response.ErrorReport = "/v1/imports/" + job.ID + "/errors"
	}

	return response, nil
}

// GetJobByIdempotencyKey retrieves a job by idempotency key
func (s *jobService) GetJobByIdempotencyKey(ctx context.Context, key string) (*models.Job, error) {
	return s.jobRepo.GetByIdempotencyKey(ctx, key)
}

// GetJobErrors retrieves all validation errors for a job
func (s *jobService) GetJobErrors(ctx context.Context, id string) ([]models.ValidationError, error) {
	return s.jobRepo.GetErrors(ctx, id, 0)
}
