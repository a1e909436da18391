package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/MarvinJWendt/testza"
	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog"

	"github.com/content-collections/internal/models"
	"github.com/content-collections/internal/service"
)

func testdataContent(t *testing.T) string {
	t.Helper()
	_, currentFile, _, ok := runtime.Caller(0)
	if !ok {
		t.Fatal("cannot determine test file path")
	}
	root := filepath.Join(filepath.Dir(filepath.Dir(filepath.Dir(currentFile))), "testdata", "content")
	if _, err := os.Stat(root); os.IsNotExist(err) {
		t.Skipf("testdata not found: %s", root)
	}
	return root
}

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out, errOut bytes.Buffer
	cmd := NewRootCommand(&out, &errOut)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func writeDoc(t *testing.T, root, rel, src string) {
	t.Helper()
	p := filepath.Join(root, filepath.FromSlash(rel))
	testza.AssertNoError(t, os.MkdirAll(filepath.Dir(p), 0o755))
	testza.AssertNoError(t, os.WriteFile(p, []byte(src), 0o644))
}

func TestCheck_Report(t *testing.T) {
	out, err := run(t, "check", testdataContent(t))
	testza.AssertTrue(t, errors.Is(err, ErrCheckFailed), "got %v", err)

	testza.AssertContains(t, out, "Blog (2 documents, 1 invalid)")
	testza.AssertContains(t, out, "Docs (2 documents, 0 invalid)")
	testza.AssertContains(t, out, "FAIL blog/missing-alt.md")
	testza.AssertContains(t, out, "image.alt: missing required field [missing_required_field]")
	testza.AssertContains(t, out, "ok   pages/about.md")
	testza.AssertContains(t, out, "6 documents checked, 5 valid, 1 invalid")
}

func TestCheck_JSON(t *testing.T) {
	out, err := run(t, "check", "--json", "--concurrency", "2", testdataContent(t))
	testza.AssertTrue(t, errors.Is(err, ErrCheckFailed))

	var report service.CheckReport
	testza.AssertNoError(t, json.Unmarshal([]byte(out), &report))
	testza.AssertEqual(t, 6, report.Total)
	testza.AssertEqual(t, 1, report.Invalid)
	testza.AssertEqual(t, "blog/missing-alt.md", report.Failures()[0].Path)
}

func TestCheck_AllValid(t *testing.T) {
	root := t.TempDir()
	writeDoc(t, root, "docs/intro.md", "---\ntitle: Intro\n---\nHello.\n")
	writeDoc(t, root, "pages/about.md", "Just a page.\n")

	out, err := run(t, "check", root)
	testza.AssertNoError(t, err)
	testza.AssertContains(t, out, "2 documents checked, 2 valid, 0 invalid")
}

func TestCheck_SQLiteCache(t *testing.T) {
	dir := t.TempDir()
	cfgPath := filepath.Join(dir, "contentctl.yaml")
	cfg := "cache:\n  sqlite_path: " + filepath.ToSlash(filepath.Join(dir, "cache.db")) + "\n"
	testza.AssertNoError(t, os.WriteFile(cfgPath, []byte(cfg), 0o644))

	root := testdataContent(t)
	args := []string{"--config", cfgPath, "--cache", "sqlite", "check", "--json", root}

	_, err := run(t, args...)
	testza.AssertTrue(t, errors.Is(err, ErrCheckFailed))

	out, err := run(t, args...)
	testza.AssertTrue(t, errors.Is(err, ErrCheckFailed))

	var report service.CheckReport
	testza.AssertNoError(t, json.Unmarshal([]byte(out), &report))
	testza.AssertEqual(t, 6, report.CacheHits)
	testza.AssertEqual(t, 1, report.Invalid)
}

func TestCheck_MissingDir(t *testing.T) {
	_, err := run(t, "check", filepath.Join(t.TempDir(), "nope"))
	testza.AssertNotNil(t, err)
	testza.AssertFalse(t, errors.Is(err, ErrCheckFailed))
}

func TestCheck_BadCacheFlag(t *testing.T) {
	_, err := run(t, "--cache", "memcached", "check", testdataContent(t))
	testza.AssertNotNil(t, err)
	testza.AssertContains(t, err.Error(), "unknown cache backend")
}

func TestSchema(t *testing.T) {
	out, err := run(t, "schema")
	testza.AssertNoError(t, err)
	testza.AssertTrue(t, strings.HasPrefix(out, "blog:\n"), out)
	testza.AssertContains(t, out, "\ndocs:\n")
	testza.AssertContains(t, out, "\npages:\n")
	testza.AssertContains(t, out, "name: alt")

	out, err = run(t, "schema", "--json", "Docs")
	testza.AssertNoError(t, err)
	var specs []models.CollectionSpec
	testza.AssertNoError(t, json.Unmarshal([]byte(out), &specs))
	testza.AssertEqual(t, 1, len(specs))
	testza.AssertEqual(t, models.KindDocs, specs[0].Kind)

	_, err = run(t, "schema", "newsletter")
	testza.AssertNotNil(t, err)
}

func TestMigrate_InvalidVersion(t *testing.T) {
	_, err := run(t, "migrate", "goto", "latest")
	testza.AssertNotNil(t, err)
	testza.AssertContains(t, err.Error(), "invalid migration version")
}

func TestParseVersion(t *testing.T) {
	v, err := parseVersion("2")
	testza.AssertNoError(t, err)
	testza.AssertEqual(t, uint(2), v)

	_, err = parseVersion("-1")
	testza.AssertNotNil(t, err)
}

func TestWatchLoop_Debounces(t *testing.T) {
	root := t.TempDir()
	testza.AssertNoError(t, os.MkdirAll(filepath.Join(root, "blog"), 0o755))

	watcher, err := fsnotify.NewWatcher()
	testza.AssertNoError(t, err)
	defer watcher.Close()
	testza.AssertNoError(t, addWatches(watcher, root, zerolog.Nop()))

	var runs atomic.Int32
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		watchLoop(ctx, watcher, 100*time.Millisecond, func() { runs.Add(1) }, zerolog.Nop())
		close(done)
	}()

	for i := 0; i < 5; i++ {
		writeDoc(t, root, "blog/post.md", "---\ntitle: draft "+string(rune('a'+i))+"\n---\n")
	}

	deadline := time.Now().Add(5 * time.Second)
	for runs.Load() == 0 && time.Now().Before(deadline) {
		time.Sleep(20 * time.Millisecond)
	}
	testza.AssertEqual(t, int32(1), runs.Load(), "a burst of writes should trigger one run")

	cancel()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("watch loop did not stop on cancel")
	}
}

func TestResetTimer_DropsUnreceivedFire(t *testing.T) {
	timer := time.NewTimer(time.Millisecond)
	defer timer.Stop()
	time.Sleep(20 * time.Millisecond)

	resetTimer(timer, 200*time.Millisecond)

	select {
	case <-timer.C:
		t.Fatal("stale fire was delivered after reset")
	case <-time.After(50 * time.Millisecond):
	}

	select {
	case <-timer.C:
	case <-time.After(2 * time.Second):
		t.Fatal("timer did not fire after reset")
	}
}

func TestAddWatches_MissingRoot(t *testing.T) {
	watcher, err := fsnotify.NewWatcher()
	testza.AssertNoError(t, err)
	defer watcher.Close()

	testza.AssertNotNil(t, addWatches(watcher, filepath.Join(t.TempDir(), "nope"), zerolog.Nop()))
}
