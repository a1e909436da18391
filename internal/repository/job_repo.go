package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/content-collections/internal/database"
	"github.com/content-collections/internal/models"
	"github.com/lib/pq"
)

const jobColumns = `id, type, collection, format, status, idempotency_key, total_records,
	processed_count, successful_count, failed_count, duration_ms, rows_per_sec,
	file_path, created_at, started_at, completed_at`

// jobRepo is the concrete implementation of JobRepository
type jobRepo struct {
	db *database.DB
}

// NewJobRepo creates a new job repository
func NewJobRepo(db *database.DB) JobRepository {
	return &jobRepo{db: db}
}

// Create inserts a new job
func (r *jobRepo) Create(ctx context.Context, job *models.Job) error {
	query := `
		INSERT INTO jobs (id, type, collection, format, status, idempotency_key, total_records,
			processed_count, successful_count, failed_count, file_path, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
	`
	_, err := r.db.ExecContext(ctx, query,
		job.ID, job.Type, nullString(job.Collection), job.Format, job.Status,
		nullString(job.IdempotencyKey), job.TotalRecords, job.ProcessedCount,
		job.SuccessfulCount, job.FailedCount, nullString(job.FilePath), job.CreatedAt,
	)
	return err
}

// Update updates job status and counters
func (r *jobRepo) Update(ctx context.Context, job *models.Job) error {
	query := `
		UPDATE jobs SET
			status = $1, total_records = $2, processed_count = $3, successful_count = $4,
			failed_count = $5, duration_ms = $6, rows_per_sec = $7, started_at = $8,
			completed_at = $9
		WHERE id = $10
	`
	_, err := r.db.ExecContext(ctx, query,
		job.Status, job.TotalRecords, job.ProcessedCount, job.SuccessfulCount,
		job.FailedCount, job.DurationMs, job.RowsPerSec, job.StartedAt, job.CompletedAt,
		job.ID,
	)
	return err
}

// GetByID retrieves a job by ID
func (r *jobRepo) GetByID(ctx context.Context, id string) (*models.Job, error) {
	return r.getOne(ctx, `SELECT `+jobColumns+` FROM jobs WHERE id = $1`, id)
}

// GetByIdempotencyKey retrieves a job by idempotency key
func (r *jobRepo) GetByIdempotencyKey(ctx context.Context, key string) (*models.Job, error) {
	return r.getOne(ctx, `SELECT `+jobColumns+` FROM jobs WHERE idempotency_key = $1`, key)
}

func (r *jobRepo) getOne(ctx context.Context, query string, arg any) (*models.Job, error) {
	job, err := scanJob(r.db.QueryRowContext(ctx, query, arg))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return job, nil
}

// GetPendingJobs retrieves all pending jobs
func (r *jobRepo) GetPendingJobs(ctx context.Context) ([]*models.Job, error) {
	query := `
		SELECT ` + jobColumns + `
		FROM jobs WHERE status = 'pending'
		ORDER BY created_at
		FOR UPDATE SKIP LOCKED
	`
	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var jobs []*models.Job
	for rows.Next() {
		job, err := scanJob(rows)
		if err != nil {
			return nil, err
		}
		jobs = append(jobs, job)
	}

	return jobs, rows.Err()
}

// MarkJobAsProcessing atomically marks a pending job as processing
func (r *jobRepo) MarkJobAsProcessing(ctx context.Context, jobID string) (bool, error) {
	query := `
		UPDATE jobs SET status = 'processing', started_at = $1
		WHERE id = $2 AND status = 'pending'
	`
	result, err := r.db.ExecContext(ctx, query, time.Now(), jobID)
	if err != nil {
		return false, err
	}
	rows, _ := result.RowsAffected()
	return rows > 0, nil
}

// AddErrors stores field errors using the COPY protocol; an import of a large
// NDJSON file can reject tens of thousands of documents
func (r *jobRepo) AddErrors(ctx context.Context, jobID string, errs []models.ValidationError) error {
	if len(errs) == 0 {
		return nil
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, pq.CopyIn("job_errors",
		"job_id", "line_number", "document", "field", "code", "message", "value",
	))
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, e := range errs {
		if _, err := stmt.ExecContext(ctx,
			jobID, e.Line, e.Document, e.Field, e.Code, e.Message, valueString(e.Value),
		); err != nil {
			return err
		}
	}

	// Flush the COPY buffer
	if _, err := stmt.ExecContext(ctx); err != nil {
		return err
	}

	return tx.Commit()
}

// GetErrors retrieves validation errors for a job ordered by line
func (r *jobRepo) GetErrors(ctx context.Context, jobID string, limit int) ([]models.ValidationError, error) {
	query := `SELECT line_number, document, field, code, message, value
		FROM job_errors WHERE job_id = $1 ORDER BY line_number, id`
	args := []any{jobID}
	if limit > 0 {
		query += " LIMIT $2"
		args = append(args, limit)
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.ValidationError
	for rows.Next() {
		var e models.ValidationError
		var value sql.NullString
		if err := rows.Scan(&e.Line, &e.Document, &e.Field, &e.Code, &e.Message, &value); err != nil {
			return nil, err
		}
		if value.Valid {
			e.Value = value.String
		}
		out = append(out, e)
	}

	return out, rows.Err()
}

func scanJob(row rowScanner) (*models.Job, error) {
	var job models.Job
	var collection, idempotencyKey, filePath sql.NullString
	var startedAt, completedAt sql.NullTime

	err := row.Scan(
		&job.ID, &job.Type, &collection, &job.Format, &job.Status, &idempotencyKey,
		&job.TotalRecords, &job.ProcessedCount, &job.SuccessfulCount, &job.FailedCount,
		&job.DurationMs, &job.RowsPerSec, &filePath, &job.CreatedAt, &startedAt, &completedAt,
	)
	if err != nil {
		return nil, err
	}

	job.Collection = collection.String
	job.IdempotencyKey = idempotencyKey.String
	job.FilePath = filePath.String
	if startedAt.Valid {
		job.StartedAt = &startedAt.Time
	}
	if completedAt.Valid {
		job.CompletedAt = &completedAt.Time
	}
	return &job, nil
}

// valueString renders an offending value for the value column
func valueString(v interface{}) sql.NullString {
	switch x := v.(type) {
	case nil:
		return sql.NullString{}
	case string:
		return sql.NullString{String: x, Valid: true}
	default:
		return sql.NullString{String: fmt.Sprint(x), Valid: true}
	}
}

// helper to convert empty string to NULL
func nullString(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}
