package indexer

import (
	"context"
	"errors"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/hyperjump/modulator/internal/config"
	"github.com/hyperjump/modulator/internal/models"
	"go.uber.org/zap"
)

// fakeExtractor returns file content as text. Content starting with "CORRUPT"
// fails, "PANIC" panics and "BLOCK" waits until release is closed.
type fakeExtractor struct {
	release chan struct{}
}

func (f *fakeExtractor) ExtractBytes(content []byte, ext string) (string, error) {
	s := string(content)
	switch {
	case strings.HasPrefix(s, "CORRUPT"):
		return "", errors.New("invalid document structure")
	case strings.HasPrefix(s, "PANIC"):
		panic("parser exploded")
	case strings.HasPrefix(s, "BLOCK"):
		<-f.release
		return "", errors.New("released")
	}
	return s, nil
}

type memoryRecorder struct {
	mu      sync.Mutex
	reports []*models.BuildReport
}

func (m *memoryRecorder) RecordBuild(_ context.Context, r *models.BuildReport) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.reports = append(m.reports, r)
	return nil
}

func testConfig(root string) *config.MaterialsConfig {
	return &config.MaterialsConfig{
		Root:           root,
		Extensions:     []string{".pdf"},
		ChunkSize:      100,
		ChunkOverlap:   20,
		MinChunkLength: 10,
		Workers:        3,
	}
}

func newTestIndex(t *testing.T, cfg *config.MaterialsConfig, opts ...IndexOption) (*Index, *fakeExtractor) {
	t.Helper()
	ext := &fakeExtractor{release: make(chan struct{})}
	opts = append([]IndexOption{WithLogger(zap.NewNop())}, opts...)
	idx, err := NewIndex(cfg, ext, opts...)
	if err != nil {
		t.Fatal(err)
	}
	return idx, ext
}

func sentence(topic string, n int) string {
	return strings.Repeat("This chapter explains "+topic+" in detail. ", n)
}

func TestNewIndex_invalidChunking(t *testing.T) {
	cfg := testConfig(t.TempDir())
	cfg.ChunkOverlap = cfg.ChunkSize
	if _, err := NewIndex(cfg, &fakeExtractor{}); !errors.Is(err, ErrInvalidChunking) {
		t.Errorf("expected ErrInvalidChunking, got %v", err)
	}
}

func TestIndex_emptyBeforeBuild(t *testing.T) {
	idx, _ := newTestIndex(t, testConfig(t.TempDir()))
	if idx.Len() != 0 || idx.Chunks() == nil {
		t.Errorf("new index should be empty and non-nil, got %d", idx.Len())
	}
	if idx.Ready() {
		t.Error("index should not be ready before the first build")
	}
	if idx.LastReport() != nil {
		t.Error("no report expected before the first build")
	}
}

func TestBuild_missingDirectory(t *testing.T) {
	rec := &memoryRecorder{}
	idx, _ := newTestIndex(t, testConfig(filepath.Join(t.TempDir(), "not-there")), WithRecorder(rec))
	report, err := idx.Build(context.Background())
	if err != nil {
		t.Fatalf("missing directory must not fail the build: %v", err)
	}
	if report.Files != 0 || report.Chunks != 0 || idx.Len() != 0 {
		t.Errorf("expected empty index, got report=%+v len=%d", report, idx.Len())
	}
	if !idx.Ready() {
		t.Error("a completed build over an empty corpus is still ready")
	}
	if len(rec.reports) != 1 || rec.reports[0].ID != report.ID {
		t.Errorf("build should be recorded once, got %d", len(rec.reports))
	}
}

func TestBuild_chunksWithSourceBaseName(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "science", "plants.pdf"), sentence("photosynthesis", 10))
	idx, _ := newTestIndex(t, testConfig(root))

	report, err := idx.Build(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if report.Files != 1 || report.Indexed != 1 || len(report.Failed) != 0 {
		t.Errorf("unexpected report: %+v", report)
	}
	chunks := idx.Chunks()
	if len(chunks) == 0 || report.Chunks != len(chunks) {
		t.Fatalf("chunks = %d, report says %d", len(chunks), report.Chunks)
	}
	for i, ch := range chunks {
		if ch.Source != "plants.pdf" {
			t.Errorf("chunk %d source = %q", i, ch.Source)
		}
		if len(ch.Text) > 100 {
			t.Errorf("chunk %d longer than chunk size: %d", i, len(ch.Text))
		}
		if ch.Text != Normalize(ch.Text) {
			t.Errorf("chunk %d is not normalized: %q", i, ch.Text)
		}
	}
	if !strings.HasPrefix(chunks[0].Text, "This chapter explains photosynthesis") {
		t.Errorf("first chunk = %q", chunks[0].Text)
	}
}

func TestBuild_minimumLengthFilter(t *testing.T) {
	root := t.TempDir()
	// 110 characters after normalization: one 100-char chunk and a 30-char tail.
	writeFile(t, filepath.Join(root, "a.pdf"), strings.Repeat("abcdefghij", 11))
	writeFile(t, filepath.Join(root, "tiny.pdf"), "too short")
	cfg := testConfig(root)
	cfg.MinChunkLength = 30
	idx, _ := newTestIndex(t, cfg)

	report, err := idx.Build(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	for _, ch := range idx.Chunks() {
		if len(ch.Text) <= cfg.MinChunkLength {
			t.Errorf("chunk of length %d survived the %d filter", len(ch.Text), cfg.MinChunkLength)
		}
	}
	if idx.Len() != 1 {
		t.Errorf("expected only the full-size chunk, got %d", idx.Len())
	}
	if report.Indexed != 2 {
		t.Errorf("files without surviving chunks still count as indexed; got %d", report.Indexed)
	}
}

func TestBuild_partialFailure(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "algebra.pdf"), sentence("linear equations", 5))
	writeFile(t, filepath.Join(root, "broken.pdf"), "CORRUPT not really a pdf")
	writeFile(t, filepath.Join(root, "history.pdf"), sentence("the industrial revolution", 5))
	idx, _ := newTestIndex(t, testConfig(root))

	report, err := idx.Build(context.Background())
	if err != nil {
		t.Fatalf("one bad document must not fail the build: %v", err)
	}
	if report.Files != 3 || report.Indexed != 2 {
		t.Errorf("files=%d indexed=%d, want 3/2", report.Files, report.Indexed)
	}
	if len(report.Failed) != 1 || filepath.Base(report.Failed[0].Path) != "broken.pdf" {
		t.Fatalf("failed = %+v", report.Failed)
	}
	if !strings.Contains(report.Failed[0].Error, "invalid document structure") {
		t.Errorf("failure error = %q", report.Failed[0].Error)
	}
	sources := map[string]bool{}
	for _, ch := range idx.Chunks() {
		sources[ch.Source] = true
	}
	if !sources["algebra.pdf"] || !sources["history.pdf"] || sources["broken.pdf"] {
		t.Errorf("sources = %v", sources)
	}
}

func TestBuild_extractorPanicIsContained(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "bad.pdf"), "PANIC")
	writeFile(t, filepath.Join(root, "good.pdf"), sentence("fractions", 5))
	idx, _ := newTestIndex(t, testConfig(root))

	report, err := idx.Build(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if report.Indexed != 1 || len(report.Failed) != 1 {
		t.Errorf("indexed=%d failed=%d", report.Indexed, len(report.Failed))
	}
}

func TestBuild_extractTimeout(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "stuck.pdf"), "BLOCK")
	writeFile(t, filepath.Join(root, "fine.pdf"), sentence("magnetism", 5))
	cfg := testConfig(root)
	idx, ext := newTestIndex(t, cfg)
	defer close(ext.release)
	idx.extractTimeout = 50 * time.Millisecond

	report, err := idx.Build(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if report.Indexed != 1 || len(report.Failed) != 1 {
		t.Fatalf("indexed=%d failed=%+v", report.Indexed, report.Failed)
	}
	if !strings.Contains(report.Failed[0].Error, context.DeadlineExceeded.Error()) {
		t.Errorf("expected deadline error, got %q", report.Failed[0].Error)
	}
}

func TestBuild_deterministicOrder(t *testing.T) {
	root := t.TempDir()
	names := []string{"a.pdf", "b.pdf", "c.pdf", "d.pdf", "e.pdf", "f.pdf"}
	for _, n := range names {
		writeFile(t, filepath.Join(root, n), sentence(n, 8))
	}
	cfg := testConfig(root)
	cfg.Workers = 4
	idx, _ := newTestIndex(t, cfg)
	if _, err := idx.Build(context.Background()); err != nil {
		t.Fatal(err)
	}
	first := idx.Chunks()
	for run := 0; run < 5; run++ {
		if _, err := idx.Build(context.Background()); err != nil {
			t.Fatal(err)
		}
		again := idx.Chunks()
		if len(again) != len(first) {
			t.Fatalf("run %d: %d chunks, want %d", run, len(again), len(first))
		}
		for i := range first {
			if again[i] != first[i] {
				t.Fatalf("run %d: chunk %d differs", run, i)
			}
		}
	}
	prev := ""
	for _, ch := range first {
		if ch.Source < prev {
			t.Fatalf("chunks out of discovery order: %s after %s", ch.Source, prev)
		}
		prev = ch.Source
	}
}

func TestBuild_failureKeepsPreviousIndex(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "keep.pdf"), sentence("gravity", 5))
	rec := &memoryRecorder{}
	idx, _ := newTestIndex(t, testConfig(root), WithRecorder(rec))
	if _, err := idx.Build(context.Background()); err != nil {
		t.Fatal(err)
	}
	before := idx.Len()

	// Point the index at a regular file so enumeration fails.
	idx.root = filepath.Join(root, "keep.pdf")
	report, err := idx.Build(context.Background())
	if err == nil {
		t.Fatal("expected enumeration failure")
	}
	if report.Succeeded() || report.Err == "" {
		t.Errorf("report should carry the error: %+v", report)
	}
	if idx.Len() != before {
		t.Errorf("index changed after failed build: %d -> %d", before, idx.Len())
	}
	if last := idx.LastReport(); last == nil || last.ID != report.ID {
		t.Error("failed build should be the last report")
	}
	if len(rec.reports) != 2 {
		t.Errorf("both builds should be recorded, got %d", len(rec.reports))
	}
}

func TestBuild_cancelledContextKeepsPreviousIndex(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "one.pdf"), sentence("acids", 5))
	idx, _ := newTestIndex(t, testConfig(root))
	if _, err := idx.Build(context.Background()); err != nil {
		t.Fatal(err)
	}
	before := idx.Len()

	writeFile(t, filepath.Join(root, "two.pdf"), sentence("bases", 5))
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := idx.Build(ctx); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if idx.Len() != before {
		t.Errorf("index changed after cancelled build: %d -> %d", before, idx.Len())
	}
}

func TestBuild_concurrentReadersSeeCompleteSnapshots(t *testing.T) {
	root := t.TempDir()
	for _, n := range []string{"a.pdf", "b.pdf", "c.pdf"} {
		writeFile(t, filepath.Join(root, n), sentence(n, 20))
	}
	idx, _ := newTestIndex(t, testConfig(root))
	if _, err := idx.Build(context.Background()); err != nil {
		t.Fatal(err)
	}
	want := idx.Len()

	var wg sync.WaitGroup
	stop := make(chan struct{})
	for r := 0; r < 4; r++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for {
				select {
				case <-stop:
					return
				default:
				}
				if n := len(idx.Chunks()); n != want {
					t.Errorf("reader saw partial index: %d chunks, want %d", n, want)
					return
				}
			}
		}()
	}
	for i := 0; i < 10; i++ {
		if _, err := idx.Build(context.Background()); err != nil {
			t.Error(err)
		}
	}
	close(stop)
	wg.Wait()
}

func TestBuildInBackground(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "bg.pdf"), sentence("volcanoes", 5))
	idx, _ := newTestIndex(t, testConfig(root))

	select {
	case report := <-idx.BuildInBackground(context.Background()):
		if report == nil || report.Indexed != 1 {
			t.Errorf("unexpected report: %+v", report)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("background build did not finish")
	}
	if !idx.Ready() || idx.Len() == 0 {
		t.Error("index should be ready after background build")
	}
}
