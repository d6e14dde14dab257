package loader

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/stacklok/flagpole/internal/module"
)

// Memory is an in-memory Loader. Paths are registered with AddModule or AddFile;
// files are parsed as module descriptors on Load, exactly like FileLoader does.
type Memory struct {
	mu      sync.Mutex
	modules map[string]module.Module
	files   map[string][]byte
	cache   map[string]module.Module
	loads   map[string]int
}

var _ Loader = (*Memory)(nil)

// NewMemory returns an empty in-memory loader.
func NewMemory() *Memory {
	return &Memory{
		modules: make(map[string]module.Module),
		files:   make(map[string][]byte),
		cache:   make(map[string]module.Module),
		loads:   make(map[string]int),
	}
}

// AddModule stores a ready-made module at path.
func (l *Memory) AddModule(path string, m module.Module) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.modules[filepath.Clean(path)] = m
}

// AddFile stores raw file content at path.
func (l *Memory) AddFile(path string, data []byte) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.files[filepath.Clean(path)] = data
}

// Search implements Loader.
func (l *Memory) Search(fileName string, searchDirs []string) (string, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	for _, dir := range searchDirs {
		candidate := ResolveSafe(fileName, dir)
		if l.exists(candidate) {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("%w: %s", ErrNotFound, fileName)
}

// Load implements Loader.
func (l *Memory) Load(path string) (module.Module, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	path = filepath.Clean(path)
	if m, ok := l.cache[path]; ok {
		return m, nil
	}

	l.loads[path]++
	var m module.Module
	if mod, ok := l.modules[path]; ok {
		m = mod
	} else if data, ok := l.files[path]; ok {
		var err error
		m, err = buildDescriptor(path, data, l.readRelative(filepath.Dir(path)))
		if err != nil {
			return nil, err
		}
	} else {
		return nil, fmt.Errorf("failed to load module %s: %w", path, os.ErrNotExist)
	}

	l.cache[path] = m
	return m, nil
}

// Evict implements Loader.
func (l *Memory) Evict(path string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.cache, filepath.Clean(path))
}

// ReadFile implements Loader.
func (l *Memory) ReadFile(path string) ([]byte, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	data, ok := l.files[filepath.Clean(path)]
	if !ok {
		return nil, fmt.Errorf("open %s: %w", path, os.ErrNotExist)
	}
	return data, nil
}

// Loads returns how many times path was read from its backing store (cache misses).
func (l *Memory) Loads(path string) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.loads[filepath.Clean(path)]
}

// Cached reports whether path currently has a cached module.
func (l *Memory) Cached(path string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	_, ok := l.cache[filepath.Clean(path)]
	return ok
}

func (l *Memory) exists(path string) bool {
	if _, ok := l.modules[path]; ok {
		return true
	}
	_, ok := l.files[path]
	return ok
}

// readRelative must be called with l.mu held; the returned func is invoked while
// the descriptor is built, still under that lock.
func (l *Memory) readRelative(baseDir string) func(string) ([]byte, error) {
	return func(name string) ([]byte, error) {
		data, ok := l.files[ResolveSafe(name, baseDir)]
		if !ok {
			return nil, fmt.Errorf("open %s: %w", name, os.ErrNotExist)
		}
		return data, nil
	}
}
