// Package loader resolves module files inside trusted search directories, loads them
// into handler modules and caches the result until evicted.
package loader

import (
	"errors"
	"path/filepath"

	"github.com/stacklok/flagpole/internal/module"
)

// ErrNotFound is returned when no search directory contains the requested file.
var ErrNotFound = errors.New("file not found in any search directory")

// Loader locates, loads and caches handler modules.
type Loader interface {
	// Search returns the first ResolveSafe(fileName, dir) that exists, trying dirs in order.
	Search(fileName string, searchDirs []string) (string, error)
	// Load returns the module stored at path. Repeated loads of the same path return
	// the same instance until Evict is called.
	Load(path string) (module.Module, error)
	// Evict forgets the cached module for path so the next Load reads it again.
	Evict(path string)
	// ReadFile returns the raw content of path.
	ReadFile(path string) ([]byte, error)
}

// ResolveSafe joins fileName onto baseDir so that the result cannot leave baseDir.
// Parent-directory segments that would climb above baseDir are dropped, and an
// absolute fileName is treated as relative to baseDir.
func ResolveSafe(fileName, baseDir string) string {
	rel := filepath.Clean(string(filepath.Separator) + filepath.FromSlash(fileName))
	return filepath.Join(baseDir, rel)
}

// within reports whether path is baseDir or lies below it.
func within(path, baseDir string) bool {
	rel, err := filepath.Rel(baseDir, path)
	if err != nil {
		return false
	}
	return filepath.IsLocal(rel) || rel == "."
}
