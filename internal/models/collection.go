package models

import (
	"strings"
)

// Kind names a content collection
type Kind string

const (
	KindBlog  Kind = "blog"
	KindDocs  Kind = "docs"
	KindPages Kind = "pages"
)

// ValidKinds defines the declared collections
var ValidKinds = map[Kind]bool{
	KindBlog:  true,
	KindDocs:  true,
	KindPages: true,
}

// Kinds returns the declared collections in a stable order
func Kinds() []Kind {
	return []Kind{KindBlog, KindDocs, KindPages}
}

// ParseKind resolves a collection name, ignoring case and surrounding space
func ParseKind(s string) (Kind, bool) {
	k := Kind(strings.ToLower(strings.TrimSpace(s)))
	if !ValidKinds[k] {
		return "", false
	}
	return k, true
}

// Record is a validated, type-coerced front-matter record.
// Frontmatter re-serializes the record into the raw shape accepted by validation,
// so that validating it again yields an identical record.
type Record interface {
	Kind() Kind
	Frontmatter() map[string]any
}

// FieldSpec describes a single declared field of a collection schema
type FieldSpec struct {
	Name     string      `json:"name"`
	Type     string      `json:"type"`
	Required bool        `json:"required"`
	Default  interface{} `json:"default,omitempty"`
	Fields   []FieldSpec `json:"fields,omitempty"`
}

// CollectionSpec is the externally visible description of a collection schema
type CollectionSpec struct {
	Kind        Kind        `json:"kind"`
	Description string      `json:"description"`
	Fields      []FieldSpec `json:"fields"`
}
