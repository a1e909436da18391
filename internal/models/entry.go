package models

import (
	"encoding/json"
	"time"
)

// Entry is a validated document stored for the rendering pipeline
type Entry struct {
	ID             string          `json:"id" db:"id"`
	Kind           Kind            `json:"kind" db:"kind"`
	Slug           string          `json:"slug" db:"slug"`
	SourcePath     string          `json:"source_path" db:"source_path"`
	ContentHash    string          `json:"content_hash" db:"content_hash"`
	Frontmatter    json.RawMessage `json:"frontmatter" db:"frontmatter"`
	Body           string          `json:"body,omitempty" db:"body"`
	WordCount      int             `json:"word_count" db:"word_count"`
	ReadingMinutes int             `json:"reading_minutes" db:"reading_minutes"`
	CreatedAt      time.Time       `json:"created_at" db:"created_at"`
	UpdatedAt      time.Time       `json:"updated_at" db:"updated_at"`
}

// EntryNDJSON is a document line of an NDJSON import file
type EntryNDJSON struct {
	Kind        string         `json:"kind"`
	Path        string         `json:"path"`
	Frontmatter map[string]any `json:"frontmatter"`
	Body        string         `json:"body,omitempty"`
}
