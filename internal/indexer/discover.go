package indexer

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/hyperjump/modulator/internal/models"
)

// Discover walks root recursively and returns every regular file whose extension is
// in exts (case-insensitive), in lexical walk order. A missing root is an empty corpus
// and returns no files and no error. Failures to read the root itself are returned;
// unreadable subdirectories are skipped and reported in skipped.
func Discover(root string, exts []string) (files []string, skipped []models.FileFailure, err error) {
	info, err := os.Stat(root)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil, nil
		}
		return nil, nil, fmt.Errorf("stat materials root: %w", err)
	}
	if !info.IsDir() {
		return nil, nil, fmt.Errorf("materials root is not a directory: %s", root)
	}
	err = filepath.WalkDir(root, func(path string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			if path == root {
				return walkErr
			}
			skipped = append(skipped, models.FileFailure{Path: path, Error: walkErr.Error()})
			if d != nil && d.IsDir() {
				return fs.SkipDir
			}
			return nil
		}
		if d.IsDir() || !extensionAllowed(filepath.Ext(path), exts) {
			return nil
		}
		if !d.Type().IsRegular() {
			// Resolve symlinks so only regular files are indexed.
			finfo, statErr := os.Stat(path)
			if statErr != nil || !finfo.Mode().IsRegular() {
				return nil
			}
		}
		files = append(files, path)
		return nil
	})
	if err != nil {
		return nil, nil, fmt.Errorf("walk materials root: %w", err)
	}
	return files, skipped, nil
}

func extensionAllowed(ext string, allowed []string) bool {
	extNorm := strings.ToLower(strings.TrimPrefix(ext, "."))
	if extNorm == "" {
		return false
	}
	for _, a := range allowed {
		if strings.ToLower(strings.TrimPrefix(a, ".")) == extNorm {
			return true
		}
	}
	return false
}
