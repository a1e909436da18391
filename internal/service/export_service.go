package service

import (
	"archive/zip"
	"context"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"path"
	"strconv"
	"strings"

	"github.com/content-collections/internal/content"
	"github.com/content-collections/internal/models"
	"github.com/content-collections/internal/repository"
	"github.com/rs/zerolog"
)

// Export formats
const (
	FormatNDJSON   = "ndjson"
	FormatJSON     = "json"
	FormatCSV      = "csv"
	FormatMarkdown = "markdown"
)

// exportService is the concrete implementation of ExportService
type exportService struct {
	repos *repository.Repositories
	log   zerolog.Logger
}

// newExportService creates a new ExportService
func newExportService(repos *repository.Repositories, log zerolog.Logger) *exportService {
	return &exportService{
		repos: repos,
		log:   log.With().Str("service", "export").Logger(),
	}
}

// StreamCollection streams the stored entries of kind in the specified format
func (s *exportService) StreamCollection(ctx context.Context, w http.ResponseWriter, kind models.Kind, format string) error {
	s.log.Info().Str("collection", string(kind)).Str("format", format).Msg("Starting export")

	switch format {
	case FormatNDJSON:
		return s.streamNDJSON(ctx, w, kind)
	case FormatJSON:
		return s.streamJSON(ctx, w, kind)
	case FormatCSV:
		return s.streamCSV(ctx, w, kind)
	case FormatMarkdown:
		w.Header().Set("Content-Type", "application/zip")
		w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%s.zip", kind))
		_, err := s.WriteArchive(ctx, w, kind)
		return err
	default:
		return fmt.Errorf("unsupported format: %s", format)
	}
}

// streamNDJSON writes one import line per entry, so an export can be imported again
func (s *exportService) streamNDJSON(ctx context.Context, w http.ResponseWriter, kind models.Kind) error {
	w.Header().Set("Content-Type", "application/x-ndjson")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%s.ndjson", kind))

	flusher, _ := w.(http.Flusher)
	enc := json.NewEncoder(w)
	count := 0

	err := s.repos.Entry.StreamByKind(ctx, kind, func(e *models.Entry) error {
		line, err := toNDJSON(e)
		if err != nil {
			return err
		}
		if err := enc.Encode(line); err != nil {
			return err
		}
		count++

		// Flush every 100 records for streaming
		if count%100 == 0 && flusher != nil {
			flusher.Flush()
		}
		return nil
	})

	s.log.Info().Str("collection", string(kind)).Int("count", count).Msg("Export completed")
	return err
}

func (s *exportService) streamJSON(ctx context.Context, w http.ResponseWriter, kind models.Kind) error {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%s.json", kind))

	if _, err := io.WriteString(w, "["); err != nil {
		return err
	}
	first := true

	err := s.repos.Entry.StreamByKind(ctx, kind, func(e *models.Entry) error {
		if !first {
			if _, err := io.WriteString(w, ","); err != nil {
				return err
			}
		}
		first = false

		data, err := json.Marshal(e)
		if err != nil {
			return err
		}
		_, err = w.Write(data)
		return err
	})

	if _, werr := io.WriteString(w, "]"); err == nil {
		err = werr
	}
	return err
}

// streamCSV writes one summary row per entry
func (s *exportService) streamCSV(ctx context.Context, w http.ResponseWriter, kind models.Kind) error {
	w.Header().Set("Content-Type", "text/csv")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%s.csv", kind))

	writer := csv.NewWriter(w)
	defer writer.Flush()

	if err := writer.Write([]string{"slug", "path", "title", "word_count", "reading_minutes", "updated_at"}); err != nil {
		return err
	}

	return s.repos.Entry.StreamByKind(ctx, kind, func(e *models.Entry) error {
		var fm struct {
			Title string `json:"title"`
		}
		_ = json.Unmarshal(e.Frontmatter, &fm)
		return writer.Write([]string{
			e.Slug,
			e.SourcePath,
			fm.Title,
			strconv.Itoa(e.WordCount),
			strconv.Itoa(e.ReadingMinutes),
			e.UpdatedAt.UTC().Format(models.DateLayout),
		})
	})
}

// WriteArchive writes the entries of kind as a zip of markdown documents laid
// out like a content directory; it returns the number of documents written
func (s *exportService) WriteArchive(ctx context.Context, w io.Writer, kind models.Kind) (int, error) {
	zw := zip.NewWriter(w)
	count := 0

	err := s.repos.Entry.StreamByKind(ctx, kind, func(e *models.Entry) error {
		var fm map[string]interface{}
		if err := json.Unmarshal(e.Frontmatter, &fm); err != nil {
			return fmt.Errorf("entry %s/%s: %w", e.Kind, e.Slug, err)
		}
		doc, err := content.MarshalDocument(fm, []byte(e.Body))
		if err != nil {
			return err
		}

		f, err := zw.CreateHeader(&zip.FileHeader{
			Name:     archiveName(e),
			Method:   zip.Deflate,
			Modified: e.UpdatedAt,
		})
		if err != nil {
			return err
		}
		if _, err := f.Write(doc); err != nil {
			return err
		}
		count++
		return nil
	})
	if err != nil {
		zw.Close()
		return count, err
	}

	s.log.Info().Str("collection", string(kind)).Int("count", count).Msg("Archive export completed")
	return count, zw.Close()
}

// GetCounts returns the number of stored entries per collection
func (s *exportService) GetCounts(ctx context.Context) (map[models.Kind]int, error) {
	return s.repos.Entry.CountByKind(ctx)
}

func toNDJSON(e *models.Entry) (*models.EntryNDJSON, error) {
	var fm map[string]interface{}
	if err := json.Unmarshal(e.Frontmatter, &fm); err != nil {
		return nil, fmt.Errorf("entry %s/%s: %w", e.Kind, e.Slug, err)
	}
	return &models.EntryNDJSON{
		Kind:        string(e.Kind),
		Path:        e.SourcePath,
		Frontmatter: fm,
		Body:        e.Body,
	}, nil
}

// archiveName keeps the source layout when it is a clean path inside the collection
func archiveName(e *models.Entry) string {
	p := path.Clean(e.SourcePath)
	if strings.HasPrefix(p, string(e.Kind)+"/") && !strings.Contains(p, "..") {
		return p
	}
	return path.Join(string(e.Kind), e.Slug+".md")
}
