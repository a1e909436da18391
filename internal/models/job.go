package models

import (
	"time"
)

// JobStatus represents the status of an import job
type JobStatus string

const (
	JobStatusPending    JobStatus = "pending"
	JobStatusProcessing JobStatus = "processing"
	JobStatusCompleted  JobStatus = "completed"
	JobStatusFailed     JobStatus = "failed"
	JobStatusCancelled  JobStatus = "cancelled"
)

// JobType represents the type of job
type JobType string

const (
	JobTypeImport JobType = "import"
)

// SourceFormat is the layout of an uploaded import file
type SourceFormat string

const (
	SourceFormatNDJSON   SourceFormat = "ndjson"
	SourceFormatMarkdown SourceFormat = "markdown"
)

// Job represents an import job: a batch of documents validated and stored together
type Job struct {
	ID              string       `json:"job_id" db:"id"`
	Type            JobType      `json:"type" db:"type"`
	Collection      string       `json:"collection,omitempty" db:"collection"`
	Format          SourceFormat `json:"format" db:"format"`
	Status          JobStatus    `json:"status" db:"status"`
	IdempotencyKey  string       `json:"idempotency_key,omitempty" db:"idempotency_key"`
	TotalRecords    int          `json:"total_records" db:"total_records"`
	ProcessedCount  int          `json:"processed" db:"processed_count"`
	SuccessfulCount int          `json:"successful" db:"successful_count"`
	FailedCount     int          `json:"failed" db:"failed_count"`
	DurationMs      int64        `json:"duration_ms,omitempty" db:"duration_ms"`
	RowsPerSec      float64      `json:"rows_per_sec,omitempty" db:"rows_per_sec"`
	FilePath        string       `json:"-" db:"file_path"`
	CreatedAt       time.Time    `json:"created_at" db:"created_at"`
	StartedAt       *time.Time   `json:"started_at,omitempty" db:"started_at"`
	CompletedAt     *time.Time   `json:"completed_at,omitempty" db:"completed_at"`
}

// ValidationError is a persisted field failure of a single document
type ValidationError struct {
	Line     int         `json:"line"`
	Document string      `json:"document"`
	Field    string      `json:"field"`
	Code     string      `json:"code"`
	Message  string      `json:"message"`
	Value    interface{} `json:"value,omitempty"`
}

// JobResponse is the API response for job status
type JobResponse struct {
	Job
	Errors      []ValidationError `json:"errors,omitempty"`
	ErrorCount  int               `json:"error_count,omitempty"`
	ErrorReport string            `json:"error_report_url,omitempty"`
}

// ImportRequest represents an import job request
type ImportRequest struct {
	Collection     string       `json:"collection" form:"collection"` // required for single markdown uploads
	Format         SourceFormat `json:"format"`
	IdempotencyKey string       `json:"-"` // From header
}
