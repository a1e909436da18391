package content

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/rs/zerolog"

	"github.com/content-collections/internal/models"
)

// Extensions lists the file extensions treated as content documents
var Extensions = map[string]bool{
	".md":  true,
	".mdx": true,
}

// Loader reads content documents from a collections root. Each top-level
// directory of the root is a collection.
type Loader struct {
	log     zerolog.Logger
	maxSize int64
}

// NewLoader creates a loader. maxSize bounds a single file; zero disables the check.
func NewLoader(log zerolog.Logger, maxSize int64) *Loader {
	return &Loader{
		log:     log.With().Str("component", "content_loader").Logger(),
		maxSize: maxSize,
	}
}

// Load walks root and returns every document under a declared collection,
// sorted by path. Documents that cannot be decoded are returned with Err set.
func (l *Loader) Load(ctx context.Context, root string) ([]*Document, error) {
	info, err := os.Stat(root)
	if err != nil {
		return nil, fmt.Errorf("content root: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("content root %s is not a directory", root)
	}

	var docs []*Document
	skipped := make(map[string]bool)

	walkErr := filepath.WalkDir(root, func(p string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			return fmt.Errorf("error accessing path '%s' during walk: %w", p, walkErr)
		}
		if err := ctx.Err(); err != nil {
			return err
		}

		rel, err := filepath.Rel(root, p)
		if err != nil {
			return err
		}
		rel = filepath.ToSlash(rel)

		if d.IsDir() {
			if rel == "." || strings.Contains(rel, "/") {
				return nil
			}
			if _, ok := models.ParseKind(rel); !ok {
				if !skipped[rel] {
					l.log.Warn().Str("dir", rel).Msg("Skipping directory outside declared collections")
					skipped[rel] = true
				}
				return filepath.SkipDir
			}
			return nil
		}

		if !Extensions[strings.ToLower(filepath.Ext(p))] || !strings.Contains(rel, "/") {
			return nil
		}

		doc, err := l.LoadFile(root, p)
		if err != nil {
			l.log.Warn().Err(err).Str("path", rel).Msg("Could not parse document")
			doc = &Document{Kind: kindOf(rel), Path: rel, Slug: Slug(rel), Err: err}
		}
		docs = append(docs, doc)
		return nil
	})
	if walkErr != nil {
		return nil, walkErr
	}

	sort.Slice(docs, func(i, j int) bool { return docs[i].Path < docs[j].Path })

	l.log.Debug().Int("documents", len(docs)).Str("root", root).Msg("Content loaded")
	return docs, nil
}

// LoadFile reads a single document below root
func (l *Loader) LoadFile(root, p string) (*Document, error) {
	rel, err := filepath.Rel(root, p)
	if err != nil {
		return nil, err
	}
	rel = filepath.ToSlash(rel)

	info, err := os.Stat(p)
	if err != nil {
		return nil, err
	}
	if l.maxSize > 0 && info.Size() > l.maxSize {
		return nil, fmt.Errorf("%s: %w (%d bytes, limit %d)", rel, ErrDocumentTooLarge, info.Size(), l.maxSize)
	}

	raw, err := os.ReadFile(p)
	if err != nil {
		return nil, fmt.Errorf("failed to read file '%s': %w", rel, err)
	}
	return parseBytes(rel, raw)
}

func kindOf(rel string) models.Kind {
	kind, _ := models.ParseKind(strings.SplitN(rel, "/", 2)[0])
	return kind
}
