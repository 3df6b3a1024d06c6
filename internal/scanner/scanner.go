// Package scanner lists the immediate entries of a directory. It never
// recurses; callers that need a second level call Scan again.
package scanner

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
)

// DirEntry is one immediate child of a scanned directory
type DirEntry struct {
	Name        string
	IsDirectory bool
}

// NotFoundError reports a scanned path that does not exist
type NotFoundError struct {
	Path string
	Err  error
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("directory not found: %s", e.Path)
}

func (e *NotFoundError) Unwrap() error { return e.Err }

// PermissionError reports a scanned path the process may not read
type PermissionError struct {
	Path string
	Err  error
}

func (e *PermissionError) Error() string {
	return fmt.Sprintf("permission denied: %s", e.Path)
}

func (e *PermissionError) Unwrap() error { return e.Err }

// Scan returns the entries of dir sorted by name.
func Scan(dir string) ([]DirEntry, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, classify(dir, err)
	}

	result := make([]DirEntry, 0, len(entries))
	for _, entry := range entries {
		result = append(result, DirEntry{
			Name:        entry.Name(),
			IsDirectory: entry.IsDir(),
		})
	}
	return result, nil
}

func classify(path string, err error) error {
	switch {
	case errors.Is(err, fs.ErrNotExist):
		return &NotFoundError{Path: path, Err: err}
	case errors.Is(err, fs.ErrPermission):
		return &PermissionError{Path: path, Err: err}
	default:
		return fmt.Errorf("failed to read directory %s: %w", path, err)
	}
}
