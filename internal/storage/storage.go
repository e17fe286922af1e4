// Package storage persists the history of index builds.
package storage

import (
	"context"
	"errors"

	"github.com/hyperjump/modulator/internal/models"
)

// ErrNotFound is returned when a requested build does not exist.
var ErrNotFound = errors.New("build not found")

// BuildStore records index build reports.
type BuildStore interface {
	RecordBuild(ctx context.Context, report *models.BuildReport) error
	GetBuild(ctx context.Context, id string) (*models.BuildReport, error)
	// LatestBuild returns the most recently started build.
	LatestBuild(ctx context.Context) (*models.BuildReport, error)
	// ListBuilds returns up to limit builds, newest first.
	ListBuilds(ctx context.Context, limit int) ([]*models.BuildReport, error)
	CountBuilds(ctx context.Context) (int64, error)
	// PruneBuilds deletes all but the keep newest builds and returns how many were removed.
	PruneBuilds(ctx context.Context, keep int) (int64, error)

	Close() error
}
