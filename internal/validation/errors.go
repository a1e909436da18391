package validation

import (
	"errors"
	"fmt"
	"strings"

	"github.com/content-collections/internal/models"
)

// Code classifies a field failure
type Code string

const (
	CodeMissingRequiredField  Code = "missing_required_field"
	CodeTypeMismatch          Code = "type_mismatch"
	CodeUnparsableDate        Code = "unparsable_date"
	CodeMalformedNestedObject Code = "malformed_nested_object"
)

var (
	ErrMissingRequiredField  = errors.New("missing required field")
	ErrTypeMismatch          = errors.New("type mismatch")
	ErrUnparsableDate        = errors.New("unparsable date")
	ErrMalformedNestedObject = errors.New("malformed nested object")
	ErrUnknownCollection     = errors.New("unknown collection")
)

var codeSentinels = map[Code]error{
	CodeMissingRequiredField:  ErrMissingRequiredField,
	CodeTypeMismatch:          ErrTypeMismatch,
	CodeUnparsableDate:        ErrUnparsableDate,
	CodeMalformedNestedObject: ErrMalformedNestedObject,
}

// FieldError represents a single violated field constraint
type FieldError struct {
	Field   string      `json:"field"`
	Code    Code        `json:"code"`
	Message string      `json:"message"`
	Value   interface{} `json:"value,omitempty"`
}

func (e FieldError) Error() string {
	return e.Field + ": " + e.Message
}

// Unwrap returns the sentinel error matching the field's code
func (e FieldError) Unwrap() error {
	return codeSentinels[e.Code]
}

// SchemaError rejects a record. It enumerates every field that failed.
type SchemaError struct {
	Kind     models.Kind  `json:"kind"`
	Document string       `json:"document,omitempty"`
	Errors   []FieldError `json:"errors"`
}

func (e *SchemaError) Error() string {
	prefix := e.Document
	if prefix == "" {
		prefix = string(e.Kind)
	}
	if len(e.Errors) == 1 {
		return prefix + ": " + e.Errors[0].Error()
	}

	parts := make([]string, len(e.Errors))
	for i, fe := range e.Errors {
		parts[i] = fe.Error()
	}
	return fmt.Sprintf("%s: %d field errors: %s", prefix, len(e.Errors), strings.Join(parts, "; "))
}

// Is reports whether any field failed with the code behind target
func (e *SchemaError) Is(target error) bool {
	for _, fe := range e.Errors {
		if codeSentinels[fe.Code] == target {
			return true
		}
	}
	return false
}

// Field returns the first failure recorded for the named field
func (e *SchemaError) Field(name string) (FieldError, bool) {
	for _, fe := range e.Errors {
		if fe.Field == name {
			return fe, true
		}
	}
	return FieldError{}, false
}

// WithDocument returns a copy of e naming the offending document
func (e *SchemaError) WithDocument(doc string) *SchemaError {
	cp := *e
	cp.Document = doc
	return &cp
}

// AsSchemaError unwraps err into a *SchemaError
func AsSchemaError(err error) (*SchemaError, bool) {
	var se *SchemaError
	if errors.As(err, &se) {
		return se, true
	}
	return nil, false
}

// fieldErrors accumulates failures while a record is checked
type fieldErrors []FieldError

func (fe *fieldErrors) missing(field string) {
	*fe = append(*fe, FieldError{Field: field, Code: CodeMissingRequiredField, Message: "missing required field"})
}

func (fe *fieldErrors) mismatch(field, want string, value interface{}) {
	*fe = append(*fe, FieldError{
		Field:   field,
		Code:    CodeTypeMismatch,
		Message: fmt.Sprintf("expected %s, got %s", want, typeName(value)),
		Value:   value,
	})
}

func (fe *fieldErrors) badDate(field string, value interface{}) {
	*fe = append(*fe, FieldError{
		Field:   field,
		Code:    CodeUnparsableDate,
		Message: fmt.Sprintf("unparsable date %q", fmt.Sprint(value)),
		Value:   value,
	})
}

func (fe *fieldErrors) malformed(field string, value interface{}) {
	*fe = append(*fe, FieldError{
		Field:   field,
		Code:    CodeMalformedNestedObject,
		Message: fmt.Sprintf("expected object, got %s", typeName(value)),
		Value:   value,
	})
}

func (fe fieldErrors) err(kind models.Kind) error {
	if len(fe) == 0 {
		return nil
	}
	return &SchemaError{Kind: kind, Errors: fe}
}

func typeName(v interface{}) string {
	switch v.(type) {
	case nil:
		return "null"
	case string:
		return "string"
	case bool:
		return "boolean"
	case int, int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64, float32, float64:
		return "number"
	case []interface{}, []string:
		return "array"
	case map[string]interface{}, map[interface{}]interface{}:
		return "object"
	default:
		return fmt.Sprintf("%T", v)
	}
}
