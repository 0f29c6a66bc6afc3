package scanner

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"path/filepath"
	"strings"
)

// ErrPathTraversal is returned when a relative path escapes the root
var ErrPathTraversal = errors.New("path traversal attempt detected")

// Scanner finds .eml files under a mail export directory
type Scanner struct {
	rootPath string
}

// NewScanner creates a new scanner for the given root path
func NewScanner(rootPath string) *Scanner {
	return &Scanner{
		rootPath: rootPath,
	}
}

// GetRootPath returns the root path for resolving relative paths
func (s *Scanner) GetRootPath() string {
	return s.rootPath
}

// Scan recursively scans for .eml files and returns paths relative to
// rootPath using forward slashes. Hidden directories are skipped.
func (s *Scanner) Scan(ctx context.Context) ([]string, error) {
	var emlFiles []string

	absRoot, err := filepath.Abs(s.rootPath)
	if err != nil {
		return nil, fmt.Errorf("failed to get absolute root path: %w", err)
	}

	err = filepath.WalkDir(absRoot, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return fmt.Errorf("error accessing path %s: %w", path, err)
		}
		if err := ctx.Err(); err != nil {
			return err
		}

		if d.IsDir() {
			if path != absRoot && strings.HasPrefix(d.Name(), ".") {
				return filepath.SkipDir
			}
			return nil
		}

		if !IsEML(path) {
			return nil
		}

		relPath, err := filepath.Rel(absRoot, path)
		if err != nil {
			return fmt.Errorf("failed to get relative path for %s: %w", path, err)
		}
		emlFiles = append(emlFiles, filepath.ToSlash(relPath))
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to scan directory: %w", err)
	}

	return emlFiles, nil
}

// ScanWithCallback scans for .eml files and calls callback for each one
// with its 1-based index and the total count
func (s *Scanner) ScanWithCallback(ctx context.Context, callback func(path string, index, total int) error) error {
	files, err := s.Scan(ctx)
	if err != nil {
		return err
	}

	total := len(files)
	for i, file := range files {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := callback(file, i+1, total); err != nil {
			return fmt.Errorf("callback error for file %s: %w", file, err)
		}
	}

	return nil
}

// CountEMLFiles counts .eml files under the root without collecting paths
func (s *Scanner) CountEMLFiles(ctx context.Context) (int, error) {
	count := 0

	err := filepath.WalkDir(s.rootPath, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		if d.IsDir() {
			if path != s.rootPath && strings.HasPrefix(d.Name(), ".") {
				return filepath.SkipDir
			}
			return nil
		}
		if IsEML(path) {
			count++
		}
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("failed to count files: %w", err)
	}

	return count, nil
}

// Resolve turns a path returned by Scan back into a filesystem path. Paths
// that are absolute or climb out of the root are rejected.
func (s *Scanner) Resolve(relPath string) (string, error) {
	native := filepath.FromSlash(relPath)
	if filepath.IsAbs(native) || !filepath.IsLocal(native) {
		return "", fmt.Errorf("%w: %s", ErrPathTraversal, relPath)
	}
	return filepath.Join(s.rootPath, native), nil
}

// IsEML reports whether path has an .eml extension, case-insensitively
func IsEML(path string) bool {
	return strings.EqualFold(filepath.Ext(path), ".eml")
}
