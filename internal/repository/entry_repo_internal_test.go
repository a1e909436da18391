package repository

import (
	"testing"

	"github.com/content-collections/internal/models"
)

func TestDedupe(t *testing.T) {
	a1 := &models.Entry{Kind: models.KindBlog, Slug: "a", Body: "first"}
	b := &models.Entry{Kind: models.KindBlog, Slug: "b"}
	docsA := &models.Entry{Kind: models.KindDocs, Slug: "a"}
	a2 := &models.Entry{Kind: models.KindBlog, Slug: "a", Body: "second"}

	got := dedupe([]*models.Entry{a1, b, docsA, a2})
	if len(got) != 3 {
		t.Fatalf("expected 3 entries, got %d", len(got))
	}
	if got[0] != a2 || got[1] != b || got[2] != docsA {
		t.Errorf("later duplicate should replace the earlier one in place: %+v", got)
	}
}

func TestValueString(t *testing.T) {
	tests := []struct {
		in    interface{}
		want  string
		valid bool
	}{
		{nil, "", false},
		{"x", "x", true},
		{42, "42", true},
		{true, "true", true},
	}
	for _, tt := range tests {
		got := valueString(tt.in)
		if got.Valid != tt.valid || got.String != tt.want {
			t.Errorf("valueString(%v) = %+v", tt.in, got)
		}
	}
}
