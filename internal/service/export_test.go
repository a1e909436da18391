package service

import (
	"time"

	"github.com/rs/zerolog"

	"github.com/content-collections/internal/repository"
)

// Test-only accessors for jobService internals, used by the external
// service_test package (which cannot be an internal test because it
// imports internal/mocks, and mocks imports this package).

type JobServiceForTest = jobService

func NewJobServiceForTest(jobRepo repository.JobRepository, maxWorkers int, log zerolog.Logger) *JobServiceForTest {
	return newJobService(jobRepo, maxWorkers, log)
}

func (s *jobService) SetPollIntervalForTest(d time.Duration) {
	s.pollInterval = d
}

func (s *jobService) ProcessorStartedForTest() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cancel != nil
}

func (s *jobService) WorkersForTest() int {
	return s.workers
}
