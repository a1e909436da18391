package service_test

import (
	"context"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/content-collections/internal/mocks"
	"github.com/content-collections/internal/models"
	"github.com/content-collections/internal/service"
)

func waitForStatus(t *testing.T, repo *mocks.MockJobRepository, id string, want models.JobStatus) {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for repo.StatusOf(id) != want {
		if time.Now().After(deadline) {
			t.Fatalf("job %s: expected status %s, got %s", id, want, repo.StatusOf(id))
		}
		time.Sleep(10 * time.Millisecond)
	}
}

func startProcessor(t *testing.T, s *service.JobServiceForTest) {
	t.Helper()
	s.SetPollIntervalForTest(10 * time.Millisecond)
	done := make(chan struct{})
	go func() {
		s.StartProcessor(context.Background())
		close(done)
	}()
	t.Cleanup(func() {
		// StopProcessor is a no-op until the loop has registered itself
		deadline := time.Now().Add(2 * time.Second)
		for {
			started := s.ProcessorStartedForTest()
			if started || time.Now().After(deadline) {
				break
			}
			time.Sleep(time.Millisecond)
		}
		s.StopProcessor()
		<-done
	})
}

func TestJobService_UnknownTypeFails(t *testing.T) {
	repo := mocks.NewMockJobRepository()
	repo.Create(context.Background(), &models.Job{
		ID:        "reindex-1",
		Type:      models.JobType("reindex"),
		Status:    models.JobStatusPending,
		CreatedAt: time.Now(),
	})

	s := service.NewJobServiceForTest(repo, 2, zerolog.Nop())
	s.SetImportService(mocks.NewMockImportService())
	startProcessor(t, s)

	waitForStatus(t, repo, "reindex-1", models.JobStatusFailed)
}

func TestJobService_RecoversPanics(t *testing.T) {
	repo := mocks.NewMockJobRepository()
	for _, id := range []string{"boom", "fine"} {
		repo.Create(context.Background(), &models.Job{
			ID:        id,
			Type:      models.JobTypeImport,
			Status:    models.JobStatusPending,
			CreatedAt: time.Now(),
		})
	}

	importer := mocks.NewMockImportService()
	importer.ProcessFunc = func(ctx context.Context, job *models.Job) error {
		if job.ID == "boom" {
			panic("corrupt upload")
		}
		job.Status = models.JobStatusCompleted
		return repo.Update(ctx, job)
	}

	s := service.NewJobServiceForTest(repo, 1, zerolog.Nop())
	s.SetImportService(importer)
	startProcessor(t, s)

	waitForStatus(t, repo, "boom", models.JobStatusFailed)
	waitForStatus(t, repo, "fine", models.JobStatusCompleted)
}

func TestJobService_StopWithoutStart(t *testing.T) {
	s := service.NewJobServiceForTest(mocks.NewMockJobRepository(), 0, zerolog.Nop())
	s.StopProcessor()

	if s.WorkersForTest() < 4 || s.WorkersForTest() > 32 {
		t.Errorf("expected default pool between 4 and 32 workers, got %d", s.WorkersForTest())
	}
}
