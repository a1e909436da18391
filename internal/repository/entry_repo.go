package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/content-collections/internal/database"
	"github.com/content-collections/internal/models"
	"github.com/google/uuid"
	"github.com/lib/pq"
)

const entryColumns = `id, kind, slug, source_path, content_hash, frontmatter, body,
	word_count, reading_minutes, created_at, updated_at`

// entryRepo is the concrete implementation of EntryRepository
type entryRepo struct {
	db *database.DB
}

// NewEntryRepo creates a new entry repository
func NewEntryRepo(db *database.DB) EntryRepository {
	return &entryRepo{db: db}
}

// Upsert inserts an entry or replaces the one stored under the same kind and slug
func (r *entryRepo) Upsert(ctx context.Context, entry *models.Entry) error {
	if entry.ID == "" {
		entry.ID = uuid.New().String()
	}
	now := time.Now()
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = now
	}
	entry.UpdatedAt = now

	query := `
		INSERT INTO entries (` + entryColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		ON CONFLICT (kind, slug) DO UPDATE SET
			source_path = EXCLUDED.source_path,
			content_hash = EXCLUDED.content_hash,
			frontmatter = EXCLUDED.frontmatter,
			body = EXCLUDED.body,
			word_count = EXCLUDED.word_count,
			reading_minutes = EXCLUDED.reading_minutes,
			updated_at = EXCLUDED.updated_at
		RETURNING id, created_at
	`
	return r.db.QueryRowContext(ctx, query,
		entry.ID, entry.Kind, entry.Slug, entry.SourcePath, entry.ContentHash,
		string(frontmatterJSON(entry)), entry.Body, entry.WordCount, entry.ReadingMinutes,
		entry.CreatedAt, entry.UpdatedAt,
	).Scan(&entry.ID, &entry.CreatedAt)
}

// BatchUpsert stages entries with COPY and merges them into entries in one statement.
// When a batch names the same kind and slug twice, the later entry wins.
func (r *entryRepo) BatchUpsert(ctx context.Context, entries []*models.Entry) (int, error) {
	entries = dedupe(entries)
	if len(entries) == 0 {
		return 0, nil
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx,
		`CREATE TEMP TABLE entries_stage (LIKE entries INCLUDING DEFAULTS) ON COMMIT DROP`,
	); err != nil {
		return 0, err
	}

	stmt, err := tx.PrepareContext(ctx, pq.CopyIn("entries_stage",
		"id", "kind", "slug", "source_path", "content_hash", "frontmatter", "body",
		"word_count", "reading_minutes", "created_at", "updated_at",
	))
	if err != nil {
		return 0, err
	}

	now := time.Now()
	for _, e := range entries {
		if e.ID == "" {
			e.ID = uuid.New().String()
		}
		if e.CreatedAt.IsZero() {
			e.CreatedAt = now
		}
		e.UpdatedAt = now

		if _, err := stmt.ExecContext(ctx,
			e.ID, string(e.Kind), e.Slug, e.SourcePath, e.ContentHash,
			string(frontmatterJSON(e)), e.Body, e.WordCount, e.ReadingMinutes,
			e.CreatedAt, e.UpdatedAt,
		); err != nil {
			stmt.Close()
			return 0, err
		}
	}

	// Flush the COPY buffer
	if _, err := stmt.ExecContext(ctx); err != nil {
		stmt.Close()
		return 0, err
	}
	if err := stmt.Close(); err != nil {
		return 0, err
	}

	result, err := tx.ExecContext(ctx, `
		INSERT INTO entries (`+entryColumns+`)
		SELECT `+entryColumns+` FROM entries_stage
		ON CONFLICT (kind, slug) DO UPDATE SET
			source_path = EXCLUDED.source_path,
			content_hash = EXCLUDED.content_hash,
			frontmatter = EXCLUDED.frontmatter,
			body = EXCLUDED.body,
			word_count = EXCLUDED.word_count,
			reading_minutes = EXCLUDED.reading_minutes,
			updated_at = EXCLUDED.updated_at
	`)
	if err != nil {
		return 0, err
	}
	affected, _ := result.RowsAffected()

	if err := tx.Commit(); err != nil {
		return 0, err
	}

	return int(affected), nil
}

// GetBySlug retrieves an entry of a collection by slug
func (r *entryRepo) GetBySlug(ctx context.Context, kind models.Kind, slug string) (*models.Entry, error) {
	query := `SELECT ` + entryColumns + ` FROM entries WHERE kind = $1 AND slug = $2`

	entry, err := scanEntry(r.db.QueryRowContext(ctx, query, kind, slug))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return entry, nil
}

// Delete removes an entry; it reports whether one existed
func (r *entryRepo) Delete(ctx context.Context, kind models.Kind, slug string) (bool, error) {
	result, err := r.db.ExecContext(ctx, `DELETE FROM entries WHERE kind = $1 AND slug = $2`, kind, slug)
	if err != nil {
		return false, err
	}
	rows, _ := result.RowsAffected()
	return rows > 0, nil
}

// Count returns the total number of entries
func (r *entryRepo) Count(ctx context.Context) (int, error) {
	var count int
	err := r.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM entries").Scan(&count)
	return count, err
}

// CountByKind returns the number of entries per collection
func (r *entryRepo) CountByKind(ctx context.Context) (map[models.Kind]int, error) {
	rows, err := r.db.QueryContext(ctx, "SELECT kind, COUNT(*) FROM entries GROUP BY kind")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	counts := make(map[models.Kind]int)
	for _, k := range models.Kinds() {
		counts[k] = 0
	}
	for rows.Next() {
		var kind string
		var n int
		if err := rows.Scan(&kind, &n); err != nil {
			return nil, err
		}
		counts[models.Kind(kind)] = n
	}
	return counts, rows.Err()
}

// StreamByKind streams the entries of a collection ordered by slug
func (r *entryRepo) StreamByKind(ctx context.Context, kind models.Kind, callback func(*models.Entry) error) error {
	query := `SELECT ` + entryColumns + ` FROM entries WHERE kind = $1 ORDER BY slug`
	rows, err := r.db.QueryContext(ctx, query, kind)
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		entry, err := scanEntry(rows)
		if err != nil {
			return err
		}
		if err := callback(entry); err != nil {
			return err
		}
	}

	return rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanEntry(row rowScanner) (*models.Entry, error) {
	var e models.Entry
	var kind string
	var fm []byte
	err := row.Scan(
		&e.ID, &kind, &e.Slug, &e.SourcePath, &e.ContentHash, &fm, &e.Body,
		&e.WordCount, &e.ReadingMinutes, &e.CreatedAt, &e.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	e.Kind = models.Kind(kind)
	e.Frontmatter = fm
	return &e, nil
}

func frontmatterJSON(e *models.Entry) []byte {
	if len(e.Frontmatter) == 0 {
		return []byte("{}")
	}
	return e.Frontmatter
}

func dedupe(entries []*models.Entry) []*models.Entry {
	index := make(map[string]int, len(entries))
	out := make([]*models.Entry, 0, len(entries))
	for _, e := range entries {
		key := string(e.Kind) + "/" + e.Slug
		if i, ok := index[key]; ok {
			out[i] = e
			continue
		}
		index[key] = len(out)
		out = append(out, e)
	}
	return out
}
