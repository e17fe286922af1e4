package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	_ "github.com/mattn/go-sqlite3"

	"github.com/hyperjump/modulator/internal/models"
)

// SQLiteBuildStore implements BuildStore using SQLite.
type SQLiteBuildStore struct {
	db *sql.DB
}

// NewSQLiteBuildStore opens or creates a SQLite database at dbPath and initializes the schema.
// Parent directories are created if they do not exist.
func NewSQLiteBuildStore(dbPath string) (*SQLiteBuildStore, error) {
	if dir := filepath.Dir(dbPath); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}
	db, err := sql.Open("sqlite3", dbPath+"?_foreign_keys=on")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// A single connection keeps ":memory:" databases shared and serializes writers.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to enable WAL: %w", err)
	}

	if err := initSchema(db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return &SQLiteBuildStore{db: db}, nil
}

func initSchema(db *sql.DB) error {
	schema := `
	CREATE TABLE IF NOT EXISTS index_builds (
		id TEXT PRIMARY KEY,
		root TEXT NOT NULL,
		started_at TIMESTAMP NOT NULL,
		finished_at TIMESTAMP,
		files INTEGER NOT NULL DEFAULT 0,
		indexed INTEGER NOT NULL DEFAULT 0,
		chunks INTEGER NOT NULL DEFAULT 0,
		error TEXT NOT NULL DEFAULT ''
	);

	CREATE INDEX IF NOT EXISTS idx_builds_started_at ON index_builds(started_at);

	CREATE TABLE IF NOT EXISTS index_build_failures (
		build_id TEXT NOT NULL,
		position INTEGER NOT NULL,
		path TEXT NOT NULL,
		error TEXT NOT NULL,
		PRIMARY KEY (build_id, position),
		FOREIGN KEY (build_id) REFERENCES index_builds(id) ON DELETE CASCADE
	);
	`
	_, err := db.Exec(schema)
	return err
}

// RecordBuild inserts a build report and its per-file failures in one transaction.
func (s *SQLiteBuildStore) RecordBuild(ctx context.Context, report *models.BuildReport) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx,
		`INSERT INTO index_builds (id, root, started_at, finished_at, files, indexed, chunks, error)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		report.ID, report.Root, report.StartedAt, report.FinishedAt,
		report.Files, report.Indexed, report.Chunks, report.Err,
	)
	if err != nil {
		return fmt.Errorf("failed to insert build: %w", err)
	}

	if len(report.Failed) > 0 {
		stmt, err := tx.PrepareContext(ctx,
			`INSERT INTO index_build_failures (build_id, position, path, error) VALUES (?, ?, ?, ?)`,
		)
		if err != nil {
			return err
		}
		defer stmt.Close()
		for i, f := range report.Failed {
			if _, err := stmt.ExecContext(ctx, report.ID, i, f.Path, f.Error); err != nil {
				return fmt.Errorf("failed to insert build failure: %w", err)
			}
		}
	}
	return tx.Commit()
}

const selectBuild = `SELECT id, root, started_at, finished_at, files, indexed, chunks, error FROM index_builds`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanBuild(row rowScanner) (*models.BuildReport, error) {
	var r models.BuildReport
	var finished sql.NullTime
	if err := row.Scan(&r.ID, &r.Root, &r.StartedAt, &finished, &r.Files, &r.Indexed, &r.Chunks, &r.Err); err != nil {
		return nil, err
	}
	if finished.Valid {
		r.FinishedAt = finished.Time
	}
	return &r, nil
}

// GetBuild returns the build with the given ID.
func (s *SQLiteBuildStore) GetBuild(ctx context.Context, id string) (*models.BuildReport, error) {
	r, err := scanBuild(s.db.QueryRowContext(ctx, selectBuild+` WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	if err != nil {
		return nil, err
	}
	if err := s.loadFailures(ctx, r); err != nil {
		return nil, err
	}
	return r, nil
}

// LatestBuild returns the most recently started build.
func (s *SQLiteBuildStore) LatestBuild(ctx context.Context) (*models.BuildReport, error) {
	r, err := scanBuild(s.db.QueryRowContext(ctx, selectBuild+` ORDER BY started_at DESC, rowid DESC LIMIT 1`))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	if err := s.loadFailures(ctx, r); err != nil {
		return nil, err
	}
	return r, nil
}

// ListBuilds returns up to limit builds, newest first.
func (s *SQLiteBuildStore) ListBuilds(ctx context.Context, limit int) ([]*models.BuildReport, error) {
	rows, err := s.db.QueryContext(ctx,
		selectBuild+` ORDER BY started_at DESC, rowid DESC LIMIT ?`, limit,
	)
	if err != nil {
		return nil, err
	}
	var builds []*models.BuildReport
	for rows.Next() {
		r, err := scanBuild(rows)
		if err != nil {
			rows.Close()
			return nil, err
		}
		builds = append(builds, r)
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return nil, err
	}
	rows.Close()

	for _, r := range builds {
		if err := s.loadFailures(ctx, r); err != nil {
			return nil, err
		}
	}
	return builds, nil
}

func (s *SQLiteBuildStore) loadFailures(ctx context.Context, r *models.BuildReport) error {
	rows, err := s.db.QueryContext(ctx,
		`SELECT path, error FROM index_build_failures WHERE build_id = ? ORDER BY position`, r.ID,
	)
	if err != nil {
		return err
	}
	defer rows.Close()
	for rows.Next() {
		var f models.FileFailure
		if err := rows.Scan(&f.Path, &f.Error); err != nil {
			return err
		}
		r.Failed = append(r.Failed, f)
	}
	return rows.Err()
}

// CountBuilds returns the total number of recorded builds.
func (s *SQLiteBuildStore) CountBuilds(ctx context.Context) (int64, error) {
	var count int64
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM index_builds`).Scan(&count)
	return count, err
}

// PruneBuilds deletes all but the keep newest builds. Failures go with their build.
func (s *SQLiteBuildStore) PruneBuilds(ctx context.Context, keep int) (int64, error) {
	if keep < 0 {
		keep = 0
	}
	result, err := s.db.ExecContext(ctx,
		`DELETE FROM index_builds WHERE id NOT IN (
			SELECT id FROM index_builds ORDER BY started_at DESC, rowid DESC LIMIT ?
		)`, keep,
	)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

// Close closes the database connection.
func (s *SQLiteBuildStore) Close() error {
	return s.db.Close()
}
