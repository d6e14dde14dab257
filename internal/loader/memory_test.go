package loader

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stacklok/flagpole/internal/module"
)

func TestMemory(t *testing.T) {
	t.Parallel()

	base := filepath.FromSlash("/apis")
	l := NewMemory()
	direct := module.Static{{RequestType: module.RequestGet, Path: "/x"}}
	l.AddModule(filepath.Join(base, "direct.so"), direct)
	l.AddFile(filepath.Join(base, "dog.yaml"), []byte(dogDescriptor))
	l.AddFile(filepath.Join(base, "apis.json"), []byte(`{"apis":[]}`))

	t.Run("search", func(t *testing.T) {
		t.Parallel()

		got, err := l.Search("../dog.yaml", []string{filepath.FromSlash("/other"), base})
		require.NoError(t, err)
		assert.Equal(t, filepath.Join(base, "dog.yaml"), got)

		_, err = l.Search("cat.yaml", []string{base})
		require.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("read file", func(t *testing.T) {
		t.Parallel()

		data, err := l.ReadFile(filepath.Join(base, "apis.json"))
		require.NoError(t, err)
		assert.Equal(t, `{"apis":[]}`, string(data))

		_, err = l.ReadFile(filepath.Join(base, "nope.json"))
		require.ErrorIs(t, err, os.ErrNotExist)
	})

	t.Run("load missing", func(t *testing.T) {
		t.Parallel()

		_, err := l.Load(filepath.Join(base, "nope.yaml"))
		require.ErrorIs(t, err, os.ErrNotExist)
	})
}

func TestMemory_CacheAndEvict(t *testing.T) {
	t.Parallel()

	path := filepath.FromSlash("/apis/dog.yaml")
	l := NewMemory()
	l.AddFile(path, []byte(dogDescriptor))

	m1, err := l.Load(path)
	require.NoError(t, err)
	m2, err := l.Load(path)
	require.NoError(t, err)
	assert.Same(t, m1, m2)
	assert.Equal(t, 1, l.Loads(path))
	assert.True(t, l.Cached(path))

	l.Evict(path)
	assert.False(t, l.Cached(path))

	m3, err := l.Load(path)
	require.NoError(t, err)
	assert.NotSame(t, m1, m3)
	assert.Equal(t, 2, l.Loads(path))
}
