package service

import (
	"context"

	"github.com/content-collections/internal/models"
	"github.com/content-collections/internal/validation"
	"github.com/rs/zerolog"
)

// ValidationResult is the outcome of validating one record
type ValidationResult struct {
	Kind   models.Kind             `json:"kind"`
	Valid  bool                    `json:"valid"`
	Record map[string]interface{}  `json:"record,omitempty"`
	Errors []validation.FieldError `json:"errors,omitempty"`
}

// validateService is the concrete implementation of ValidateService
type validateService struct {
	deps Deps
	log  zerolog.Logger
}

// NewValidateService creates a ValidateService
func NewValidateService(deps Deps, log zerolog.Logger) ValidateService {
	deps.withDefaults()
	return &validateService{
		deps: deps,
		log:  log.With().Str("service", "validate").Logger(),
	}
}

// ValidateRecord validates raw against the schema of kind. A rejected record is
// a result, not an error; the error return is reserved for unknown collections.
func (s *validateService) ValidateRecord(ctx context.Context, kind models.Kind, document string, raw map[string]interface{}) (*ValidationResult, error) {
	if raw == nil {
		raw = map[string]interface{}{}
	}

	rec, err := s.deps.Validator.ValidateDocument(kind, document, raw)
	if err != nil {
		se, ok := validation.AsSchemaError(err)
		if !ok {
			return nil, err
		}

		codes := make([]string, len(se.Errors))
		for i, fe := range se.Errors {
			codes[i] = string(fe.Code)
		}
		s.deps.Metrics.RecordValidation(string(kind), false, codes)
		s.log.Debug().Str("kind", string(kind)).Str("document", document).Err(se).Msg("Record rejected")

		return &ValidationResult{Kind: kind, Errors: se.Errors}, nil
	}

	s.deps.Metrics.RecordValidation(string(kind), true, nil)
	return &ValidationResult{Kind: kind, Valid: true, Record: rec.Frontmatter()}, nil
}

// Schemas describes every collection
func (s *validateService) Schemas() []models.CollectionSpec {
	return s.deps.Validator.Schemas()
}
