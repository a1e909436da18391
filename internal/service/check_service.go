package service

import (
	"context"
	"encoding/json"
	"errors"
	"sort"
	"time"

	"github.com/content-collections/internal/cache"
	"github.com/content-collections/internal/content"
	"github.com/content-collections/internal/events"
	"github.com/content-collections/internal/models"
	"github.com/content-collections/internal/validation"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
)

// DocumentResult is the outcome of checking one document
type DocumentResult struct {
	Kind        models.Kind             `json:"kind"`
	Path        string                  `json:"path"`
	Slug        string                  `json:"slug"`
	Hash        string                  `json:"hash"`
	Valid       bool                    `json:"valid"`
	Cached      bool                    `json:"cached,omitempty"`
	Frontmatter map[string]interface{}  `json:"frontmatter,omitempty"`
	Errors      []validation.FieldError `json:"errors,omitempty"`

	// Error is set when the document could not be read or belongs to no collection
	Error string `json:"error,omitempty"`
}

// CollectionSummary totals the results of a collection
type CollectionSummary struct {
	Kind    models.Kind `json:"kind"`
	Total   int         `json:"total"`
	Valid   int         `json:"valid"`
	Invalid int         `json:"invalid"`
}

// CheckReport lists every checked document in input order
type CheckReport struct {
	Results     []DocumentResult    `json:"results"`
	Collections []CollectionSummary `json:"collections"`
	Total       int                 `json:"total"`
	Valid       int                 `json:"valid"`
	Invalid     int                 `json:"invalid"`
	CacheHits   int                 `json:"cache_hits"`
	DurationMs  int64               `json:"duration_ms"`
}

// OK reports whether every document passed
func (r *CheckReport) OK() bool {
	return r.Invalid == 0
}

// Failures returns the results that did not pass
func (r *CheckReport) Failures() []DocumentResult {
	var out []DocumentResult
	for _, res := range r.Results {
		if !res.Valid {
			out = append(out, res)
		}
	}
	return out
}

// checkService is the concrete implementation of CheckService
type checkService struct {
	loader      *content.Loader
	deps        Deps
	useCache    bool
	concurrency int
	log         zerolog.Logger
}

// NewCheckService creates a CheckService validating up to concurrency documents at once
func NewCheckService(loader *content.Loader, deps Deps, concurrency int, log zerolog.Logger) CheckService {
	deps.withDefaults()
	if concurrency < 1 {
		concurrency = 1
	}
	_, nop := deps.Cache.(cache.Nop)

	return &checkService{
		loader:      loader,
		deps:        deps,
		useCache:    !nop,
		concurrency: concurrency,
		log:         log.With().Str("service", "check").Logger(),
	}
}

// CheckDir loads every collection under root and checks it
func (s *checkService) CheckDir(ctx context.Context, root string) (*CheckReport, error) {
	docs, err := s.loader.Load(ctx, root)
	if err != nil {
		return nil, err
	}
	return s.Check(ctx, docs)
}

// Check validates docs in parallel. Results keep the order of docs; only
// cancellation of ctx fails the whole check.
func (s *checkService) Check(ctx context.Context, docs []*content.Document) (*CheckReport, error) {
	start := time.Now()
	results := make([]DocumentResult, len(docs))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.concurrency)

	for i, doc := range docs {
		i, doc := i, doc
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			results[i] = s.checkOne(gctx, doc)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	duration := time.Since(start)
	report := buildReport(results, duration)
	s.deps.Metrics.RecordCheck(len(docs), duration.Seconds())

	s.log.Info().
		Int("documents", report.Total).
		Int("valid", report.Valid).
		Int("invalid", report.Invalid).
		Int("cache_hits", report.CacheHits).
		Int64("duration_ms", report.DurationMs).
		Msg("Check completed")

	return report, nil
}

func (s *checkService) checkOne(ctx context.Context, doc *content.Document) DocumentResult {
	res := DocumentResult{Kind: doc.Kind, Path: doc.Path, Slug: doc.Slug, Hash: doc.Hash}

	switch {
	case doc.Err != nil:
		res.Error = doc.Err.Error()
	case !models.ValidKinds[doc.Kind]:
		res.Error = "no collection for " + doc.Path
	}
	if res.Error != "" {
		s.deps.Metrics.RecordValidation(string(doc.Kind), false, nil)
		s.publish(ctx, &res)
		return res
	}

	key := cache.Key(doc.Kind, s.deps.Validator.SchemaVersion(), doc.Hash)
	if s.useCache {
		cached, ok, err := s.deps.Cache.Get(ctx, key)
		switch {
		case err != nil:
			s.deps.Metrics.RecordCacheError()
			s.log.Warn().Err(err).Str("path", doc.Path).Msg("Cache lookup failed")
		case ok:
			s.deps.Metrics.RecordCacheLookup(true)
			if res.fromCache(cached) {
				s.finish(ctx, &res)
				return res
			}
		default:
			s.deps.Metrics.RecordCacheLookup(false)
		}
	}

	rec, err := s.deps.Validator.ValidateDocument(doc.Kind, doc.Path, doc.Frontmatter)
	if err != nil {
		se, ok := validation.AsSchemaError(err)
		if !ok {
			res.Error = err.Error()
			s.finish(ctx, &res)
			return res
		}
		res.Errors = se.Errors
	} else {
		res.Valid = true
		res.Frontmatter = rec.Frontmatter()
	}

	if s.useCache {
		if err := s.deps.Cache.Put(ctx, key, res.toCache()); err != nil {
			s.deps.Metrics.RecordCacheError()
			s.log.Warn().Err(err).Str("path", doc.Path).Msg("Cache store failed")
		}
	}

	s.finish(ctx, &res)
	return res
}

func (s *checkService) finish(ctx context.Context, res *DocumentResult) {
	codes := make([]string, len(res.Errors))
	for i, fe := range res.Errors {
		codes[i] = string(fe.Code)
	}
	s.deps.Metrics.RecordValidation(string(res.Kind), res.Valid, codes)
	s.publish(ctx, res)
}

func (s *checkService) publish(ctx context.Context, res *DocumentResult) {
	if s.deps.Publisher == nil {
		return
	}

	event := &events.EntryEvent{
		Kind:        res.Kind,
		Path:        res.Path,
		Slug:        res.Slug,
		Hash:        res.Hash,
		Frontmatter: res.Frontmatter,
		Errors:      res.Errors,
		OccurredAt:  time.Now().UTC(),
	}

	var err error
	if res.Valid {
		err = s.deps.Publisher.PublishValidated(ctx, event)
	} else {
		err = s.deps.Publisher.PublishRejected(ctx, event)
	}
	if err != nil && !errors.Is(err, context.Canceled) {
		s.log.Warn().Err(err).Str("path", res.Path).Msg("Failed to publish entry event")
	}
}

// fromCache fills res from a cached outcome; it reports false when the entry is unusable
func (res *DocumentResult) fromCache(c *cache.Result) bool {
	if c.Kind != res.Kind {
		return false
	}
	if c.Valid {
		var fm map[string]interface{}
		if err := json.Unmarshal(c.Record, &fm); err != nil {
			return false
		}
		res.Frontmatter = fm
	}
	res.Valid = c.Valid
	res.Errors = c.Errors
	res.Cached = true
	return true
}

func (res *DocumentResult) toCache() *cache.Result {
	out := &cache.Result{
		Kind:     res.Kind,
		Valid:    res.Valid,
		Errors:   res.Errors,
		CachedAt: time.Now().UTC(),
	}
	if res.Valid {
		// Frontmatter holds only JSON-encodable values
		out.Record, _ = json.Marshal(res.Frontmatter)
	}
	return out
}

func buildReport(results []DocumentResult, duration time.Duration) *CheckReport {
	report := &CheckReport{
		Results:    results,
		Total:      len(results),
		DurationMs: duration.Milliseconds(),
	}

	byKind := make(map[models.Kind]*CollectionSummary)
	for _, k := range models.Kinds() {
		byKind[k] = &CollectionSummary{Kind: k}
	}

	for _, res := range results {
		sum, ok := byKind[res.Kind]
		if !ok {
			sum = &CollectionSummary{Kind: res.Kind}
			byKind[res.Kind] = sum
		}
		sum.Total++
		if res.Valid {
			sum.Valid++
			report.Valid++
		} else {
			sum.Invalid++
			report.Invalid++
		}
		if res.Cached {
			report.CacheHits++
		}
	}

	for _, sum := range byKind {
		report.Collections = append(report.Collections, *sum)
	}
	sort.Slice(report.Collections, func(i, j int) bool {
		return report.Collections[i].Kind < report.Collections[j].Kind
	})

	return report
}
