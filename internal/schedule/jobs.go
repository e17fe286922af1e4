package schedule

import (
	"context"

	"github.com/hyperjump/modulator/internal/models"
	"go.uber.org/zap"
)

// Builder rebuilds the index. *indexer.Index implements it.
type Builder interface {
	Build(ctx context.Context) (*models.BuildReport, error)
}

// RebuildJob rebuilds the study material index.
type RebuildJob struct {
	builder Builder
}

// NewRebuildJob returns a job that calls builder.Build.
func NewRebuildJob(builder Builder) *RebuildJob {
	return &RebuildJob{builder: builder}
}

func (j *RebuildJob) Name() string { return "rebuild_index" }

func (j *RebuildJob) Run(ctx context.Context) error {
	_, err := j.builder.Build(ctx)
	return err
}

// Pruner drops old build history. *storage.SQLiteBuildStore implements it.
type Pruner interface {
	PruneBuilds(ctx context.Context, keep int) (int64, error)
}

// PruneJob keeps only the newest builds in the history store.
type PruneJob struct {
	pruner Pruner
	keep   int
	logger *zap.Logger
}

// NewPruneJob returns a job that keeps the keep newest builds.
func NewPruneJob(pruner Pruner, keep int, logger *zap.Logger) *PruneJob {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &PruneJob{pruner: pruner, keep: keep, logger: logger}
}

func (j *PruneJob) Name() string { return "prune_builds" }

func (j *PruneJob) Run(ctx context.Context) error {
	n, err := j.pruner.PruneBuilds(ctx, j.keep)
	if err != nil {
		return err
	}
	if n > 0 {
		j.logger.Info("pruned build history", zap.Int64("removed", n), zap.Int("kept", j.keep))
	}
	return nil
}
