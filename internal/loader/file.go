package loader

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/stacklok/flagpole/internal/logger"
	"github.com/stacklok/flagpole/internal/module"
)

// FileLoader loads modules from the local filesystem.
//
// Files ending in .yaml, .yml or .json are module descriptors; files ending in .so
// are Go plugins exporting a "Module" symbol.
type FileLoader struct {
	mu    sync.Mutex
	cache map[string]module.Module
}

var _ Loader = (*FileLoader)(nil)

// NewFileLoader returns a FileLoader with an empty cache.
func NewFileLoader() *FileLoader {
	return &FileLoader{cache: make(map[string]module.Module)}
}

// Search implements Loader. Files that resolve, through symlinks, to a location
// outside their search directory are skipped.
func (l *FileLoader) Search(fileName string, searchDirs []string) (string, error) {
	for _, dir := range searchDirs {
		candidate := ResolveSafe(fileName, dir)

		info, err := os.Stat(candidate)
		if err != nil || info.IsDir() {
			continue
		}
		if !resolvesWithin(candidate, dir) {
			logger.Warnf("Ignoring %s: it resolves outside search directory %s", candidate, dir)
			continue
		}
		return candidate, nil
	}
	return "", fmt.Errorf("%w: %s", ErrNotFound, fileName)
}

// Load implements Loader.
func (l *FileLoader) Load(path string) (module.Module, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if m, ok := l.cache[path]; ok {
		return m, nil
	}

	m, err := l.load(path)
	if err != nil {
		return nil, err
	}
	l.cache[path] = m
	logger.Debugf("Loaded module %s", path)
	return m, nil
}

// Evict implements Loader.
func (l *FileLoader) Evict(path string) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if _, ok := l.cache[path]; ok {
		delete(l.cache, path)
		logger.Debugf("Evicted module %s from cache", path)
	}
}

// ReadFile implements Loader.
func (*FileLoader) ReadFile(path string) ([]byte, error) {
	return os.ReadFile(filepath.Clean(path))
}

// Cached reports whether path currently has a cached module.
func (l *FileLoader) Cached(path string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	_, ok := l.cache[path]
	return ok
}

func (l *FileLoader) load(path string) (module.Module, error) {
	if strings.EqualFold(filepath.Ext(path), ".so") {
		return loadPlugin(path)
	}

	data, err := l.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read module %s: %w", path, err)
	}

	baseDir := filepath.Dir(path)
	readFile := func(name string) ([]byte, error) {
		target := ResolveSafe(name, baseDir)
		if !resolvesWithin(target, baseDir) {
			return nil, fmt.Errorf("%s resolves outside %s", name, baseDir)
		}
		return os.ReadFile(target)
	}

	m, err := buildDescriptor(path, data, readFile)
	if err != nil {
		return nil, fmt.Errorf("failed to load module %s: %w", path, err)
	}
	return m, nil
}

// resolvesWithin reports whether path, after following symlinks, stays inside dir.
func resolvesWithin(path, dir string) bool {
	realDir, err := filepath.EvalSymlinks(dir)
	if err != nil {
		return false
	}
	realPath, err := filepath.EvalSymlinks(path)
	if err != nil {
		// Missing files are caught by the caller's read.
		return within(path, dir)
	}
	absDir, err := filepath.Abs(realDir)
	if err != nil {
		return false
	}
	absPath, err := filepath.Abs(realPath)
	if err != nil {
		return false
	}
	return within(absPath, absDir)
}
