package validation

import (
	"bufio"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"

	"github.com/content-collections/internal/models"
)

func testdataPath(t *testing.T, filename string) string {
	t.Helper()
	_, currentFile, _, ok := runtime.Caller(0)
	if !ok {
		t.Fatal("cannot determine test file path")
	}
	projectRoot := filepath.Dir(filepath.Dir(filepath.Dir(currentFile)))
	path := filepath.Join(projectRoot, "testdata", filename)
	if _, err := os.Stat(path); os.IsNotExist(err) {
		t.Skipf("testdata file not found: %s", path)
	}
	return path
}

func TestValidate_RealNDJSONData(t *testing.T) {
	filePath := testdataPath(t, "entries.ndjson")

	file, err := os.Open(filePath)
	if err != nil {
		t.Fatal(err)
	}
	defer file.Close()

	validator := NewValidator()
	scanner := bufio.NewScanner(file)
	totalValid, totalFailed, totalUnknown := 0, 0, 0
	failedFields := make(map[string][]string)

	for scanner.Scan() {
		line := scanner.Text()
		if strings.TrimSpace(line) == "" {
			continue
		}

		var entry models.EntryNDJSON
		if err := json.Unmarshal([]byte(line), &entry); err != nil {
			t.Fatalf("invalid testdata line: %v", err)
		}

		kind, ok := models.ParseKind(entry.Kind)
		if !ok {
			kind = models.Kind(entry.Kind)
		}
		_, err := validator.ValidateDocument(kind, entry.Path, entry.Frontmatter)
		switch {
		case err == nil:
			totalValid++
		case errors.Is(err, ErrUnknownCollection):
			totalUnknown++
		default:
			se, ok := AsSchemaError(err)
			if !ok {
				t.Fatalf("%s: unexpected error type %T", entry.Path, err)
			}
			if se.Document != entry.Path {
				t.Errorf("expected document %q, got %q", entry.Path, se.Document)
			}
			for _, fe := range se.Errors {
				failedFields[entry.Path] = append(failedFields[entry.Path], fe.Field)
			}
			totalFailed++
		}
	}
	if err := scanner.Err(); err != nil {
		t.Fatal(err)
	}

	t.Logf("Processed testdata: %d valid, %d failed, %d unknown collection", totalValid, totalFailed, totalUnknown)

	if totalValid != 6 || totalFailed != 4 || totalUnknown != 1 {
		t.Errorf("expected 6 valid, 4 failed, 1 unknown; got %d, %d, %d", totalValid, totalFailed, totalUnknown)
	}

	want := map[string][]string{
		"blog/no-alt.md":        {"image.alt"},
		"blog/bad-date.md":      {"created_at"},
		"blog/untitled.md":      {"title", "tags"},
		"docs/guides/broken.md": {"title", "template", "draft"},
	}
	for path, fields := range want {
		got := failedFields[path]
		if strings.Join(got, ",") != strings.Join(fields, ",") {
			t.Errorf("%s: expected failing fields %v, got %v", path, fields, got)
		}
	}
}
