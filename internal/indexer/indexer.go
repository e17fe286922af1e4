package indexer

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/hyperjump/modulator/internal/config"
	"github.com/hyperjump/modulator/internal/models"
	"go.uber.org/zap"
)

// TextExtractor turns raw document bytes into text. ext includes the leading dot.
type TextExtractor interface {
	ExtractBytes(content []byte, ext string) (string, error)
}

// BuildRecorder persists build reports.
type BuildRecorder interface {
	RecordBuild(ctx context.Context, report *models.BuildReport) error
}

// Index is the in-memory chunk index over a materials directory. Build is the
// only writer and replaces the whole chunk set at once; readers always see
// either the previous or the new complete snapshot. Until the first build
// finishes the index is empty.
type Index struct {
	root           string
	extensions     []string
	chunker        *Chunker
	minChunkLength int
	workers        int
	extractTimeout time.Duration
	extractor      TextExtractor
	recorder       BuildRecorder
	logger         *zap.Logger

	chunks  atomic.Pointer[[]models.Chunk]
	ready   atomic.Bool
	buildMu sync.Mutex

	reportMu   sync.RWMutex
	lastReport *models.BuildReport
}

// IndexOption configures an Index.
type IndexOption func(*Index)

// WithLogger sets the logger for build progress and per-file failures.
func WithLogger(l *zap.Logger) IndexOption {
	return func(idx *Index) { idx.logger = l }
}

// WithRecorder records every finished build, successful or not.
func WithRecorder(r BuildRecorder) IndexOption {
	return func(idx *Index) { idx.recorder = r }
}

// NewIndex creates an empty index over cfg.Root using extractor for document text.
// Returns an error if the chunking parameters are invalid.
func NewIndex(cfg *config.MaterialsConfig, extractor TextExtractor, opts ...IndexOption) (*Index, error) {
	chunker, err := NewChunker(cfg.ChunkSize, cfg.ChunkOverlap)
	if err != nil {
		return nil, err
	}
	workers := cfg.Workers
	if workers <= 0 {
		workers = 1
	}
	idx := &Index{
		root:           cfg.Root,
		extensions:     append([]string(nil), cfg.Extensions...),
		chunker:        chunker,
		minChunkLength: cfg.MinChunkLength,
		workers:        workers,
		extractTimeout: cfg.ExtractTimeout(),
		extractor:      extractor,
		logger:         zap.NewNop(),
	}
	for _, opt := range opts {
		opt(idx)
	}
	empty := []models.Chunk{}
	idx.chunks.Store(&empty)
	return idx, nil
}

// Root returns the materials directory the index is built from.
func (idx *Index) Root() string {
	return idx.root
}

// Chunks returns the current snapshot. The slice is shared and must not be modified.
func (idx *Index) Chunks() []models.Chunk {
	return *idx.chunks.Load()
}

// Len returns the number of chunks in the current snapshot.
func (idx *Index) Len() int {
	return len(idx.Chunks())
}

// Ready reports whether at least one build has completed successfully.
func (idx *Index) Ready() bool {
	return idx.ready.Load()
}

// LastReport returns a copy of the most recent build report, or nil before the first build.
func (idx *Index) LastReport() *models.BuildReport {
	idx.reportMu.RLock()
	defer idx.reportMu.RUnlock()
	if idx.lastReport == nil {
		return nil
	}
	r := *idx.lastReport
	r.Failed = append([]models.FileFailure(nil), idx.lastReport.Failed...)
	return &r
}

// Build scans the materials directory and replaces the index with the result.
// Per-file read or extraction failures are logged, listed in the report and skipped.
// A missing directory produces an empty index. If the directory cannot be
// enumerated or ctx is cancelled, the previous index is kept and an error is
// returned together with the report. Concurrent calls are serialized.
func (idx *Index) Build(ctx context.Context) (*models.BuildReport, error) {
	idx.buildMu.Lock()
	defer idx.buildMu.Unlock()

	report := &models.BuildReport{
		ID:        uuid.NewString(),
		Root:      idx.root,
		StartedAt: time.Now(),
	}
	idx.logger.Info("building study material index",
		zap.String("build_id", report.ID),
		zap.String("root", idx.root))

	chunks, err := idx.collect(ctx, report)
	report.FinishedAt = time.Now()
	if err != nil {
		report.Err = err.Error()
		idx.logger.Error("index build failed, keeping previous index",
			zap.String("build_id", report.ID),
			zap.Error(err))
		idx.finish(ctx, report)
		return report, err
	}

	idx.chunks.Store(&chunks)
	idx.ready.Store(true)
	report.Chunks = len(chunks)
	idx.logger.Info("study material index built",
		zap.String("build_id", report.ID),
		zap.Int("files", report.Files),
		zap.Int("indexed", report.Indexed),
		zap.Int("failed", len(report.Failed)),
		zap.Int("chunks", report.Chunks),
		zap.Duration("duration", report.Duration()))
	idx.finish(ctx, report)
	return report, nil
}

// BuildInBackground runs Build on its own goroutine. The returned channel
// receives the report once and is then closed.
func (idx *Index) BuildInBackground(ctx context.Context) <-chan *models.BuildReport {
	done := make(chan *models.BuildReport, 1)
	go func() {
		defer close(done)
		report, _ := idx.Build(ctx)
		done <- report
	}()
	return done
}

func (idx *Index) finish(ctx context.Context, report *models.BuildReport) {
	idx.reportMu.Lock()
	idx.lastReport = report
	idx.reportMu.Unlock()
	if idx.recorder == nil {
		return
	}
	if err := idx.recorder.RecordBuild(context.WithoutCancel(ctx), report); err != nil {
		idx.logger.Warn("failed to record index build", zap.String("build_id", report.ID), zap.Error(err))
	}
}

type fileResult struct {
	chunks []models.Chunk
	err    error
}

// collect discovers and processes every document. Documents are processed on a
// bounded worker pool and reassembled in discovery order.
func (idx *Index) collect(ctx context.Context, report *models.BuildReport) ([]models.Chunk, error) {
	files, skipped, err := Discover(idx.root, idx.extensions)
	if err != nil {
		return nil, err
	}
	report.Files = len(files)
	report.Failed = append(report.Failed, skipped...)
	chunks := []models.Chunk{}
	if len(files) == 0 {
		idx.logger.Info("no study materials found", zap.String("root", idx.root))
		return chunks, nil
	}

	results := make([]fileResult, len(files))
	jobs := make(chan int)
	workers := idx.workers
	if workers > len(files) {
		workers = len(files)
	}
	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range jobs {
				results[i] = idx.processFile(ctx, files[i])
			}
		}()
	}
feed:
	for i := range files {
		select {
		case jobs <- i:
		case <-ctx.Done():
			break feed
		}
	}
	close(jobs)
	wg.Wait()
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("build cancelled: %w", err)
	}

	for i, res := range results {
		if res.err != nil {
			idx.logger.Warn("skipping study material",
				zap.String("path", files[i]),
				zap.Error(res.err))
			report.Failed = append(report.Failed, models.FileFailure{Path: files[i], Error: res.err.Error()})
			continue
		}
		idx.logger.Debug("indexed study material",
			zap.String("path", files[i]),
			zap.Int("chunks", len(res.chunks)))
		report.Indexed++
		chunks = append(chunks, res.chunks...)
	}
	return chunks, nil
}

func (idx *Index) processFile(ctx context.Context, path string) fileResult {
	content, err := os.ReadFile(path)
	if err != nil {
		return fileResult{err: fmt.Errorf("read file: %w", err)}
	}
	text, err := idx.extract(ctx, content, filepath.Ext(path))
	if err != nil {
		return fileResult{err: err}
	}
	source := filepath.Base(path)
	var chunks []models.Chunk
	for _, piece := range idx.chunker.Split(Normalize(text)) {
		if utf8.RuneCountInString(piece) <= idx.minChunkLength {
			continue
		}
		chunks = append(chunks, models.Chunk{Source: source, Text: piece})
	}
	return fileResult{chunks: chunks}
}

// extract runs the extractor with the per-file timeout. A parser stuck past the
// timeout is abandoned; its goroutine finishes on its own.
func (idx *Index) extract(ctx context.Context, content []byte, ext string) (string, error) {
	if idx.extractTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, idx.extractTimeout)
		defer cancel()
	}
	type result struct {
		text string
		err  error
	}
	done := make(chan result, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				done <- result{err: fmt.Errorf("extractor panic: %v", r)}
			}
		}()
		text, err := idx.extractor.ExtractBytes(content, ext)
		if err != nil {
			err = fmt.Errorf("extract text: %w", err)
		}
		done <- result{text: text, err: err}
	}()
	select {
	case r := <-done:
		return r.text, r.err
	case <-ctx.Done():
		return "", fmt.Errorf("extract text: %w", ctx.Err())
	}
}
