package fluxion

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func writeScripts(t *testing.T, sources map[string]string) []string {
	t.Helper()
	dir := t.TempDir()
	paths := make([]string, 0, len(sources))
	for name, src := range sources {
		path := filepath.Join(dir, name)
		if err := os.WriteFile(path, []byte(src), 0o644); err != nil {
			t.Fatal(err)
		}
		paths = append(paths, path)
	}
	return paths
}

func TestConcurrentRunFiles(t *testing.T) {
	paths := writeScripts(t, map[string]string{
		"a.flx": "return 1 + 1",
		"b.flx": "return 2 * 2",
		"c.flx": "return 3 * 3",
	})
	cr := NewConcurrentRunner(nil, 2)
	results := cr.RunFiles(context.Background(), paths, nil)
	if len(results) != 3 {
		t.Fatalf("got %d results", len(results))
	}
	for i, r := range results {
		if r.Path != paths[i] {
			t.Errorf("result %d out of order: %s", i, r.Path)
		}
		if r.Err != nil {
			t.Errorf("%s failed: %v", r.Path, r.Err)
		}
	}
}

func TestConcurrentRunsAreIsolated(t *testing.T) {
	paths := writeScripts(t, map[string]string{
		"a.flx": "echo run=\"a\"",
		"b.flx": "echo run=\"b\"",
	})
	cr := NewConcurrentRunner(NewRunner(NewStdRegistry()), 2)
	results := cr.RunFiles(context.Background(), paths, nil)
	for _, r := range results {
		if r.Err != nil {
			t.Fatalf("%s failed: %v", r.Path, r.Err)
		}
		if len(r.Result.Echoes) != 1 {
			t.Errorf("%s echoes = %v, runs bled together", r.Path, r.Result.Echoes)
		}
	}
}

func TestRunAllCollectsFailures(t *testing.T) {
	paths := writeScripts(t, map[string]string{
		"good.flx":   "return 1",
		"broken.flx": "let = nonsense",
	})
	cr := NewConcurrentRunner(nil, 2)
	_, err := cr.RunAll(context.Background(), paths, nil)
	if err == nil {
		t.Fatal("expected failure for the broken script")
	}
	var merr *MultiError
	if !errors.As(err, &merr) {
		t.Fatalf("expected MultiError, got %T", err)
	}
	if len(merr.Errors) != 1 {
		t.Errorf("got %d errors, want 1", len(merr.Errors))
	}
}

func TestConcurrentCancelledContext(t *testing.T) {
	paths := writeScripts(t, map[string]string{"a.flx": "return 1"})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	cr := NewConcurrentRunner(nil, 1)
	results := cr.RunFiles(ctx, paths, nil)
	if results[0].Err == nil {
		t.Error("expected context error")
	}
}
