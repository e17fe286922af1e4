package storage

import (
	"io/fs"
	"os"
	"path/filepath"
)

// DiskUsage is the size of a file tree.
type DiskUsage struct {
	Files int   `json:"files"`
	Bytes int64 `json:"bytes"`
}

// PathUsage returns the number of regular files under path and their total
// size. path may be a file or a directory. A missing path has zero usage.
func PathUsage(path string) (DiskUsage, error) {
	var u DiskUsage
	if path == "" {
		return u, nil
	}
	err := filepath.WalkDir(path, func(_ string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.Type().IsRegular() {
			return nil
		}
		info, err := d.Info()
		if err != nil {
			return err
		}
		u.Files++
		u.Bytes += info.Size()
		return nil
	})
	if os.IsNotExist(err) {
		return DiskUsage{}, nil
	}
	return u, err
}

// DatabaseUsage returns the on-disk size of a SQLite database including its
// WAL and shared-memory files.
func DatabaseUsage(dbPath string) (DiskUsage, error) {
	var total DiskUsage
	for _, p := range []string{dbPath, dbPath + "-wal", dbPath + "-shm"} {
		u, err := PathUsage(p)
		if err != nil {
			return DiskUsage{}, err
		}
		total.Files += u.Files
		total.Bytes += u.Bytes
	}
	return total, nil
}
