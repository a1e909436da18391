package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/content-collections/internal/config"
	"github.com/content-collections/internal/models"
	"github.com/content-collections/internal/validation"
)

// Result is a cached validation outcome of a single document
type Result struct {
	Kind     models.Kind             `json:"kind"`
	Valid    bool                    `json:"valid"`
	Record   json.RawMessage         `json:"record,omitempty"`
	Errors   []validation.FieldError `json:"errors,omitempty"`
	CachedAt time.Time               `json:"cached_at"`
}

// ResultCache stores validation outcomes keyed by Key
type ResultCache interface {
	Get(ctx context.Context, key string) (*Result, bool, error)
	Put(ctx context.Context, key string, r *Result) error
	Close() error
}

// Key identifies a document revision under a schema revision
func Key(kind models.Kind, schemaVersion, contentHash string) string {
	return strings.Join([]string{string(kind), schemaVersion, contentHash}, ":")
}

// New opens the backend selected by cfg
func New(ctx context.Context, cfg config.CacheConfig, log zerolog.Logger) (ResultCache, error) {
	log = log.With().Str("component", "cache").Str("backend", cfg.Backend).Logger()

	switch cfg.Backend {
	case "", config.CacheNone:
		return Nop{}, nil
	case config.CacheSQLite:
		return NewSQLite(ctx, cfg.SQLitePath, cfg.TTL, log)
	case config.CacheRedis:
		return NewRedis(ctx, cfg, log)
	default:
		return nil, fmt.Errorf("unknown cache backend %q", cfg.Backend)
	}
}

// Nop is a cache that never hits
type Nop struct{}

func (Nop) Get(context.Context, string) (*Result, bool, error) { return nil, false, nil }
func (Nop) Put(context.Context, string, *Result) error { return nil }
func (Nop) Close() error { return nil }
