package validation

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"

	"github.com/content-collections/internal/models"
)

// Validator checks raw front-matter against the declared collection schemas.
// It holds no mutable state and is safe for concurrent use.
type Validator struct {
	docs    DocsSchema
	version string
}

// Option configures a Validator
type Option func(*Validator)

// WithDocsSchema replaces the docs theme schema
func WithDocsSchema(s DocsSchema) Option {
	return func(v *Validator) {
		if s != nil {
			v.docs = s
		}
	}
}

// NewValidator creates a new validator instance
func NewValidator(opts ...Option) *Validator {
	v := &Validator{docs: ThemeSchema{}}
	for _, opt := range opts {
		opt(v)
	}
	v.version = schemaVersion(v.Schemas())
	return v
}

var defaultValidator = NewValidator()

// Validate checks raw against the schema of kind using the default docs theme
func Validate(kind models.Kind, raw map[string]interface{}) (models.Record, error) {
	return defaultValidator.Validate(kind, raw)
}

// Validate returns the validated, type-coerced record or a *SchemaError listing
// every failing field. Unknown kinds fail with ErrUnknownCollection.
func (v *Validator) Validate(kind models.Kind, raw map[string]interface{}) (models.Record, error) {
	switch kind {
	case models.KindBlog:
		post, errs := validateBlog(raw)
		if err := errs.err(kind); err != nil {
			return nil, err
		}
		return post, nil

	case models.KindDocs:
		page, errs := v.docs.Validate(raw)
		if err := fieldErrors(errs).err(kind); err != nil {
			return nil, err
		}
		return page, nil

	case models.KindPages:
		return validatePage(raw), nil

	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownCollection, kind)
	}
}

// ValidateDocument is Validate with failures attributed to the named document
func (v *Validator) ValidateDocument(kind models.Kind, document string, raw map[string]interface{}) (models.Record, error) {
	rec, err := v.Validate(kind, raw)
	if se, ok := AsSchemaError(err); ok {
		return nil, se.WithDocument(document)
	}
	return rec, err
}

// Schemas describes the declared collections
func (v *Validator) Schemas() []models.CollectionSpec {
	return []models.CollectionSpec{
		describeBlog(),
		v.docs.Describe(),
		describePages(),
	}
}

// Schema describes a single collection
func (v *Validator) Schema(kind models.Kind) (models.CollectionSpec, bool) {
	for _, s := range v.Schemas() {
		if s.Kind == kind {
			return s, true
		}
	}
	return models.CollectionSpec{}, false
}

// SchemaVersion fingerprints the declared schemas. Cached results are keyed by it.
func (v *Validator) SchemaVersion() string {
	return v.version
}

func schemaVersion(specs []models.CollectionSpec) string {
	data, err := json.Marshal(specs)
	if err != nil {
		return "unversioned"
	}
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:8])
}
