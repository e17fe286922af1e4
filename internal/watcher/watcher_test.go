package watcher

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"go.uber.org/zap"
)

type changeRecorder struct {
	mu    sync.Mutex
	calls [][]string
}

func (c *changeRecorder) onChange(changed []string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.calls = append(c.calls, changed)
}

func (c *changeRecorder) snapshot() [][]string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([][]string(nil), c.calls...)
}

func (c *changeRecorder) paths() []string {
	var all []string
	for _, call := range c.snapshot() {
		all = append(all, call...)
	}
	return all
}

// waitFor polls cond until it holds or the deadline passes.
func waitFor(t *testing.T, cond func() bool) bool {
	t.Helper()
	deadline := time.Now().Add(3 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return true
		}
		time.Sleep(20 * time.Millisecond)
	}
	return cond()
}

func startWatcher(t *testing.T, root string, exts []string, debounce time.Duration) (*Watcher, *changeRecorder) {
	t.Helper()
	rec := &changeRecorder{}
	w := NewWatcher(root, exts, rec.onChange, WithDebounce(debounce), WithLogger(zap.NewNop()))
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	if err := w.Start(ctx); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(w.Stop)
	return w, rec
}

func TestWatcher_burstIsCoalesced(t *testing.T) {
	dir := t.TempDir()
	_, rec := startWatcher(t, dir, []string{".pdf"}, 300*time.Millisecond)

	for _, name := range []string{"a.pdf", "b.pdf", "c.pdf"} {
		if err := writeFile(filepath.Join(dir, name), "content"); err != nil {
			t.Fatal(err)
		}
	}
	if !waitFor(t, func() bool { return len(rec.snapshot()) >= 1 }) {
		t.Fatal("expected a rebuild request")
	}
	time.Sleep(500 * time.Millisecond)
	calls := rec.snapshot()
	if len(calls) != 1 {
		t.Fatalf("expected one coalesced callback, got %d: %v", len(calls), calls)
	}
	if len(calls[0]) != 3 || !strings.HasSuffix(calls[0][0], "a.pdf") {
		t.Errorf("changed = %v", calls[0])
	}
}

func TestWatcher_extensionFilter(t *testing.T) {
	dir := t.TempDir()
	_, rec := startWatcher(t, dir, []string{".pdf"}, 50*time.Millisecond)

	if err := writeFile(filepath.Join(dir, "notes.xyz"), "skip"); err != nil {
		t.Fatal(err)
	}
	time.Sleep(300 * time.Millisecond)
	if n := len(rec.snapshot()); n != 0 {
		t.Errorf("non-matching file triggered %d callbacks", n)
	}

	if err := writeFile(filepath.Join(dir, "Chapter1.PDF"), "doc"); err != nil {
		t.Fatal(err)
	}
	if !waitFor(t, func() bool { return len(rec.snapshot()) == 1 }) {
		t.Error("matching file should trigger a callback")
	}
}

func TestWatcher_removeTriggers(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "old.pdf")
	if err := writeFile(path, "doc"); err != nil {
		t.Fatal(err)
	}
	_, rec := startWatcher(t, dir, []string{".pdf"}, 50*time.Millisecond)

	if err := os.Remove(path); err != nil {
		t.Fatal(err)
	}
	if !waitFor(t, func() bool { return len(rec.paths()) > 0 }) {
		t.Fatal("removal should trigger a callback")
	}
	if got := rec.paths(); got[0] != path {
		t.Errorf("changed = %v, want %s", got, path)
	}
}

func TestWatcher_newDirectoryIsWatched(t *testing.T) {
	dir := t.TempDir()
	w, rec := startWatcher(t, dir, []string{".pdf", ".md"}, 100*time.Millisecond)

	nested := filepath.Join(dir, "class10", "science")
	if err := mkdirAll(nested); err != nil {
		t.Fatal(err)
	}
	if !waitFor(t, func() bool {
		for _, d := range w.Directories() {
			if d == nested {
				return true
			}
		}
		return false
	}) {
		t.Fatalf("nested directory not watched: %v", w.Directories())
	}

	if err := writeFile(filepath.Join(nested, "cells.pdf"), "deep content"); err != nil {
		t.Fatal(err)
	}
	if err := writeFile(filepath.Join(nested, "ignore.xyz"), "skip"); err != nil {
		t.Fatal(err)
	}
	found := waitFor(t, func() bool {
		for _, p := range rec.paths() {
			if strings.HasSuffix(p, "cells.pdf") {
				return true
			}
		}
		return false
	})
	if !found {
		t.Errorf("expected cells.pdf in changes, got %v", rec.paths())
	}
	for _, p := range rec.paths() {
		if strings.HasSuffix(p, "ignore.xyz") {
			t.Errorf("ignore.xyz should not be reported")
		}
	}
}

func TestWatcher_Start_createsMissingRoot(t *testing.T) {
	root := filepath.Join(t.TempDir(), "uploads", "study-materials")
	w, _ := startWatcher(t, root, nil, 50*time.Millisecond)
	if _, err := os.Stat(root); err != nil {
		t.Errorf("root directory should exist after Start: %v", err)
	}
	if dirs := w.Directories(); len(dirs) != 1 || dirs[0] != root {
		t.Errorf("Directories() = %v", dirs)
	}
}

func TestWatcher_Stop(t *testing.T) {
	dir := t.TempDir()
	w, rec := startWatcher(t, dir, nil, 200*time.Millisecond)
	if err := writeFile(filepath.Join(dir, "a.pdf"), "x"); err != nil {
		t.Fatal(err)
	}
	time.Sleep(50 * time.Millisecond)
	w.Stop()
	w.Stop()
	time.Sleep(400 * time.Millisecond)
	if n := len(rec.snapshot()); n != 0 {
		t.Errorf("pending burst should be dropped on Stop, got %d callbacks", n)
	}
}

func TestMatchExtension(t *testing.T) {
	tests := []struct {
		path       string
		extensions []string
		want       bool
	}{
		{"/a/b.pdf", []string{".pdf"}, true},
		{"/a/b.PDF", []string{".pdf"}, true},
		{"/a/b.pdf", []string{"pdf"}, true},
		{"/a/b.md", []string{".pdf"}, false},
		{"/a/b", []string{".pdf"}, false},
		{"/a/b", nil, true},
	}
	for _, tt := range tests {
		got := matchExtension(tt.path, tt.extensions)
		if got != tt.want {
			t.Errorf("matchExtension(%q, %v) = %v, want %v", tt.path, tt.extensions, got, tt.want)
		}
	}
}

func TestInDir(t *testing.T) {
	tests := []struct {
		dir  string
		path string
		want bool
	}{
		{"/tmp/a", "/tmp/a", true},
		{"/tmp/a", "/tmp/a/b.pdf", true},
		{"/tmp/a", "/tmp/b", false},
		{"/tmp/a", "/tmp/a/../b", false},
	}
	for _, tt := range tests {
		got := inDir(tt.dir, tt.path)
		if got != tt.want {
			t.Errorf("inDir(%q, %q) = %v, want %v", tt.dir, tt.path, got, tt.want)
		}
	}
}

func mkdirAll(path string) error {
	return os.MkdirAll(path, 0755)
}

func writeFile(path, content string) error {
	return os.WriteFile(path, []byte(content), 0600)
}
