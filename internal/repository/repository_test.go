package repository_test

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"runtime"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/content-collections/internal/config"
	"github.com/content-collections/internal/database"
	"github.com/content-collections/internal/mocks"
	"github.com/content-collections/internal/models"
	"github.com/content-collections/internal/repository"
)

func TestMockEntryRepository_BatchUpsert(t *testing.T) {
	repo := mocks.NewMockEntryRepository()
	ctx := context.Background()

	entries := []*models.Entry{
		{Kind: models.KindBlog, Slug: "a", Frontmatter: json.RawMessage(`{"title":"A"}`)},
		{Kind: models.KindBlog, Slug: "b", Frontmatter: json.RawMessage(`{"title":"B"}`)},
		{Kind: models.KindDocs, Slug: "a", Frontmatter: json.RawMessage(`{"title":"Docs A"}`)},
	}

	inserted, err := repo.BatchUpsert(ctx, entries)
	if err != nil {
		t.Fatalf("BatchUpsert failed: %v", err)
	}
	if inserted != 3 {
		t.Errorf("Expected 3 inserted, got %d", inserted)
	}

	// Same slug in another collection is a different entry
	blogA, _ := repo.GetBySlug(ctx, models.KindBlog, "a")
	docsA, _ := repo.GetBySlug(ctx, models.KindDocs, "a")
	if blogA == nil || docsA == nil || blogA == docsA {
		t.Fatal("entries should be keyed by kind and slug")
	}

	counts, _ := repo.CountByKind(ctx)
	if counts[models.KindBlog] != 2 || counts[models.KindDocs] != 1 || counts[models.KindPages] != 0 {
		t.Errorf("unexpected counts %v", counts)
	}

	var slugs []string
	repo.StreamByKind(ctx, models.KindBlog, func(e *models.Entry) error {
		slugs = append(slugs, e.Slug)
		return nil
	})
	if len(slugs) != 2 || slugs[0] != "a" || slugs[1] != "b" {
		t.Errorf("expected slug order [a b], got %v", slugs)
	}

	deleted, _ := repo.Delete(ctx, models.KindBlog, "a")
	if !deleted {
		t.Error("Delete should report an existing entry")
	}
	deleted, _ = repo.Delete(ctx, models.KindBlog, "a")
	if deleted {
		t.Error("Delete should report a missing entry")
	}
}

func TestMockJobRepository_PendingJobs(t *testing.T) {
	repo := mocks.NewMockJobRepository()
	ctx := context.Background()

	jobs := []*models.Job{
		{ID: "job-1", Status: models.JobStatusPending, Collection: "blog"},
		{ID: "job-2", Status: models.JobStatusProcessing, Collection: "docs"},
		{ID: "job-3", Status: models.JobStatusPending, Collection: "pages"},
		{ID: "job-4", Status: models.JobStatusCompleted, Collection: "blog"},
	}
	for _, job := range jobs {
		repo.Create(ctx, job)
	}

	pending, err := repo.GetPendingJobs(ctx)
	if err != nil {
		t.Fatalf("GetPendingJobs failed: %v", err)
	}
	if len(pending) != 2 {
		t.Errorf("Expected 2 pending jobs, got %d", len(pending))
	}
}

func TestMockJobRepository_MarkAsProcessing(t *testing.T) {
	repo := mocks.NewMockJobRepository()
	ctx := context.Background()

	repo.Create(ctx, &models.Job{ID: "job-1", Status: models.JobStatusPending})

	marked, err := repo.MarkJobAsProcessing(ctx, "job-1")
	if err != nil {
		t.Fatalf("MarkJobAsProcessing failed: %v", err)
	}
	if !marked {
		t.Error("Job should be marked as processing")
	}

	// Already processing
	marked, _ = repo.MarkJobAsProcessing(ctx, "job-1")
	if marked {
		t.Error("Job should not be marked again")
	}
}

func TestMockJobRepository_ValidationErrors(t *testing.T) {
	repo := mocks.NewMockJobRepository()
	ctx := context.Background()

	repo.AddErrors(ctx, "job-1", []models.ValidationError{
		{Line: 1, Document: "blog/a.md", Field: "title", Code: "missing_required_field"},
		{Line: 2, Document: "blog/b.md", Field: "created_at", Code: "unparsable_date"},
		{Line: 3, Document: "blog/c.md", Field: "tags", Code: "type_mismatch"},
	})

	all, _ := repo.GetErrors(ctx, "job-1", 0)
	if len(all) != 3 {
		t.Errorf("Expected 3 errors, got %d", len(all))
	}
	limited, _ := repo.GetErrors(ctx, "job-1", 2)
	if len(limited) != 2 {
		t.Errorf("Expected 2 errors with limit, got %d", len(limited))
	}
}

// --- PostgreSQL ---

// testDB connects to the database named by the DB_* variables when
// INTEGRATION_DB is set, and applies the migrations
func testDB(t *testing.T) *database.DB {
	t.Helper()
	if os.Getenv("INTEGRATION_DB") == "" {
		t.Skip("INTEGRATION_DB not set")
	}

	cfg, err := config.Load()
	if err != nil {
		t.Fatalf("config.Load failed: %v", err)
	}
	db, err := database.New(&cfg.Database, zerolog.Nop())
	if err != nil {
		t.Skipf("database not reachable: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	_, currentFile, _, _ := runtime.Caller(0)
	migrations := filepath.Join(filepath.Dir(filepath.Dir(filepath.Dir(currentFile))), "migrations")
	if err := db.RunMigrations(migrations); err != nil {
		t.Fatalf("RunMigrations failed: %v", err)
	}
	return db
}

func TestEntryRepo_Postgres(t *testing.T) {
	db := testDB(t)
	repos := repository.New(db)
	ctx := context.Background()

	slug := "it-" + uuid.New().String()[:8]
	t.Cleanup(func() {
		repos.Entry.Delete(ctx, models.KindBlog, slug)
		repos.Entry.Delete(ctx, models.KindBlog, slug+"-2")
	})

	entries := []*models.Entry{
		{Kind: models.KindBlog, Slug: slug, SourcePath: "blog/" + slug + ".md", Frontmatter: json.RawMessage(`{"title":"First"}`), Body: "one"},
		{Kind: models.KindBlog, Slug: slug + "-2", SourcePath: "blog/" + slug + "-2.md", Frontmatter: json.RawMessage(`{"title":"Other"}`)},
		{Kind: models.KindBlog, Slug: slug, SourcePath: "blog/" + slug + ".md", Frontmatter: json.RawMessage(`{"title":"Second"}`), Body: "two"},
	}
	n, err := repos.Entry.BatchUpsert(ctx, entries)
	if err != nil {
		t.Fatalf("BatchUpsert failed: %v", err)
	}
	if n != 2 {
		t.Errorf("duplicate slugs should collapse, got %d rows", n)
	}

	got, err := repos.Entry.GetBySlug(ctx, models.KindBlog, slug)
	if err != nil || got == nil {
		t.Fatalf("GetBySlug failed: %v", err)
	}
	var fm map[string]string
	json.Unmarshal(got.Frontmatter, &fm)
	if fm["title"] != "Second" || got.Body != "two" {
		t.Errorf("later entry should win, got %v %q", fm, got.Body)
	}

	// Upsert keeps the row id
	id := got.ID
	update := &models.Entry{Kind: models.KindBlog, Slug: slug, Frontmatter: json.RawMessage(`{"title":"Third"}`)}
	if err := repos.Entry.Upsert(ctx, update); err != nil {
		t.Fatalf("Upsert failed: %v", err)
	}
	if update.ID != id {
		t.Errorf("Upsert should keep id %s, got %s", id, update.ID)
	}

	counts, err := repos.Entry.CountByKind(ctx)
	if err != nil || counts[models.KindBlog] < 2 {
		t.Errorf("CountByKind = %v, %v", counts, err)
	}

	missing, err := repos.Entry.GetBySlug(ctx, models.KindBlog, slug+"-missing")
	if err != nil || missing != nil {
		t.Errorf("expected nil for missing entry, got %v, %v", missing, err)
	}
}

func TestJobRepo_Postgres(t *testing.T) {
	db := testDB(t)
	repos := repository.New(db)
	ctx := context.Background()

	job := &models.Job{
		ID:             uuid.New().String(),
		Type:           models.JobTypeImport,
		Format:         models.SourceFormatNDJSON,
		Status:         models.JobStatusPending,
		IdempotencyKey: "it-" + uuid.New().String(),
		CreatedAt:      time.Now(),
	}
	if err := repos.Job.Create(ctx, job); err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	marked, err := repos.Job.MarkJobAsProcessing(ctx, job.ID)
	if err != nil || !marked {
		t.Fatalf("MarkJobAsProcessing = %v, %v", marked, err)
	}

	errs := []models.ValidationError{
		{Line: 2, Document: "blog/b.md", Field: "created_at", Code: "unparsable_date", Message: "unparsable date", Value: "soon"},
		{Line: 1, Document: "blog/a.md", Field: "image.alt", Code: "missing_required_field", Message: "missing required field"},
	}
	if err := repos.Job.AddErrors(ctx, job.ID, errs); err != nil {
		t.Fatalf("AddErrors failed: %v", err)
	}

	stored, err := repos.Job.GetErrors(ctx, job.ID, 0)
	if err != nil {
		t.Fatalf("GetErrors failed: %v", err)
	}
	if len(stored) != 2 || stored[0].Line != 1 || stored[1].Value != "soon" {
		t.Errorf("unexpected stored errors %+v", stored)
	}

	found, err := repos.Job.GetByIdempotencyKey(ctx, job.IdempotencyKey)
	if err != nil || found == nil || found.ID != job.ID || found.Status != models.JobStatusProcessing {
		t.Errorf("GetByIdempotencyKey = %+v, %v", found, err)
	}
}
