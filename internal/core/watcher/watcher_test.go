package watcher

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"layered/internal/shared/util"
)

func TestNewWatcher_RejectsNilCallback(t *testing.T) {
	w, err := NewWatcher(Options{Debounce: 100 * time.Millisecond}, nil)
	if err == nil {
		t.Fatal("expected error for nil callback")
	}
	if !errors.Is(err, os.ErrInvalid) {
		t.Fatalf("expected os.ErrInvalid, got %v", err)
	}
	if w != nil {
		t.Fatal("expected nil watcher when callback is invalid")
	}
}

func waitFor(t *testing.T, ch <-chan []string, want string, timeout time.Duration) {
	t.Helper()
	deadline := time.After(timeout)
	for {
		select {
		case paths := <-ch:
			for _, p := range paths {
				if p == want {
					return
				}
			}
		case <-deadline:
			t.Fatalf("timed out waiting for %s", want)
		}
	}
}

func TestWatcher(t *testing.T) {
	tmpDir := t.TempDir()
	if err := os.MkdirAll(filepath.Join(tmpDir, ".layered"), 0o755); err != nil {
		t.Fatal(err)
	}

	changedFiles := make(chan []string, 8)
	w, err := NewWatcher(Options{
		Debounce:     100 * time.Millisecond,
		ExcludeDirs:  []string{".layered"},
		ExcludeFiles: []string{".tmp-*"},
	}, func(paths []string) {
		changedFiles <- paths
	})
	if err != nil {
		t.Fatal(err)
	}
	defer w.Close()

	if err := w.Watch([]string{tmpDir}); err != nil {
		t.Fatal(err)
	}

	summary := filepath.Join(tmpDir, "AGENTS.md")
	if err := os.WriteFile(summary, []byte("# root\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	waitFor(t, changedFiles, summary, 2*time.Second)

	// Excluded file and directory contents.
	_ = os.WriteFile(filepath.Join(tmpDir, ".tmp-abc"), []byte("x"), 0o644)
	_ = os.WriteFile(filepath.Join(tmpDir, ".layered", "history.db"), []byte("x"), 0o644)
	select {
	case paths := <-changedFiles:
		for _, p := range paths {
			base := filepath.Base(p)
			if base == ".tmp-abc" || base == "history.db" {
				t.Errorf("excluded path triggered event: %s", p)
			}
		}
	case <-time.After(500 * time.Millisecond):
	}

	// New directories are reported and then watched.
	subdir := filepath.Join(tmpDir, "newdir")
	if err := os.MkdirAll(subdir, 0o755); err != nil {
		t.Fatal(err)
	}
	waitFor(t, changedFiles, subdir, 2*time.Second)

	nested := filepath.Join(subdir, "nested.md")
	if err := os.WriteFile(nested, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
	waitFor(t, changedFiles, nested, 2*time.Second)
}

func TestWatcher_RenameTriggersChange(t *testing.T) {
	tmpDir := t.TempDir()

	changedFiles := make(chan []string, 8)
	w, err := NewWatcher(Options{Debounce: 100 * time.Millisecond}, func(paths []string) {
		changedFiles <- paths
	})
	if err != nil {
		t.Fatal(err)
	}
	defer w.Close()

	if err := w.Watch([]string{tmpDir}); err != nil {
		t.Fatal(err)
	}

	oldPath := filepath.Join(tmpDir, "old.md")
	newPath := filepath.Join(tmpDir, "new.md")
	if err := os.WriteFile(oldPath, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.Rename(oldPath, newPath); err != nil {
		t.Fatal(err)
	}
	waitFor(t, changedFiles, newPath, 2*time.Second)
}

func TestWatcher_DebounceBatchesChanges(t *testing.T) {
	tmpDir := t.TempDir()

	changedFiles := make(chan []string, 8)
	w, err := NewWatcher(Options{
		Debounce: 200 * time.Millisecond,
		Limiter:  util.NewLimiter(100, 1),
	}, func(paths []string) {
		changedFiles <- paths
	})
	if err != nil {
		t.Fatal(err)
	}
	defer w.Close()
	if err := w.Watch([]string{tmpDir}); err != nil {
		t.Fatal(err)
	}

	a := filepath.Join(tmpDir, "a.md")
	b := filepath.Join(tmpDir, "b.md")
	_ = os.WriteFile(a, []byte("a"), 0o644)
	_ = os.WriteFile(b, []byte("b"), 0o644)

	select {
	case paths := <-changedFiles:
		seen := map[string]bool{}
		for _, p := range paths {
			seen[p] = true
		}
		if !seen[a] || !seen[b] {
			t.Errorf("expected one batch with both files, got %v", paths)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for batch")
	}
}
