package loader

import (
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stacklok/flagpole/internal/module"
)

const dogDescriptor = `routes:
  - requestType: get
    path: /woof
    handler:
      kind: static
      body: Called woof! version 1.0.0
`

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
}

func body(t *testing.T, m module.Module, idx int) string {
	t.Helper()
	rr := httptest.NewRecorder()
	m.Bindings()[idx].Handler.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/", nil))
	data, err := io.ReadAll(rr.Body)
	require.NoError(t, err)
	return string(data)
}

func TestResolveSafe(t *testing.T) {
	t.Parallel()

	base := filepath.FromSlash("/srv/apis")
	tests := []struct {
		name     string
		fileName string
		want     string
	}{
		{name: "plain", fileName: "dog_1.0.0.yaml", want: "/srv/apis/dog_1.0.0.yaml"},
		{name: "dot prefix", fileName: "./api/dog.yaml", want: "/srv/apis/api/dog.yaml"},
		{name: "leading traversal", fileName: "../../etc/passwd", want: "/srv/apis/etc/passwd"},
		{name: "inner traversal", fileName: "api/../../../etc/passwd", want: "/srv/apis/etc/passwd"},
		{name: "absolute", fileName: "/etc/passwd", want: "/srv/apis/etc/passwd"},
		{name: "only traversal", fileName: "../..", want: "/srv/apis"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			got := ResolveSafe(tt.fileName, base)
			assert.Equal(t, filepath.FromSlash(tt.want), got)
			assert.True(t, within(got, base), "%s escaped %s", got, base)
		})
	}
}

func TestFileLoader_Search(t *testing.T) {
	t.Parallel()

	first := t.TempDir()
	second := t.TempDir()
	writeFile(t, filepath.Join(second, "api", "dog.yaml"), dogDescriptor)
	writeFile(t, filepath.Join(first, "api", "cat.yaml"), dogDescriptor)
	writeFile(t, filepath.Join(second, "api", "cat.yaml"), dogDescriptor)
	require.NoError(t, os.MkdirAll(filepath.Join(first, "api", "dir.yaml"), 0o755))

	l := NewFileLoader()
	dirs := []string{first, second}

	got, err := l.Search("./api/dog.yaml", dirs)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(second, "api", "dog.yaml"), got)

	got, err = l.Search("api/cat.yaml", dirs)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(first, "api", "cat.yaml"), got, "first directory wins")

	_, err = l.Search("api/missing.yaml", dirs)
	require.ErrorIs(t, err, ErrNotFound)

	_, err = l.Search("api/dir.yaml", dirs)
	require.ErrorIs(t, err, ErrNotFound, "directories are not modules")

	got, err = l.Search("../"+filepath.Base(second)+"/api/dog.yaml", []string{first})
	require.ErrorIs(t, err, ErrNotFound, "traversal into a sibling directory must not resolve: %s", got)
}

func TestFileLoader_SearchSkipsSymlinkEscape(t *testing.T) {
	t.Parallel()
	if runtime.GOOS == "windows" {
		t.Skip("symlinks need privileges on windows")
	}

	outside := t.TempDir()
	dir := t.TempDir()
	writeFile(t, filepath.Join(outside, "secret.yaml"), dogDescriptor)
	require.NoError(t, os.Symlink(filepath.Join(outside, "secret.yaml"), filepath.Join(dir, "link.yaml")))

	_, err := NewFileLoader().Search("link.yaml", []string{dir})
	require.ErrorIs(t, err, ErrNotFound)
}

func TestFileLoader_LoadCachesUntilEvicted(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	path := filepath.Join(dir, "dog.yaml")
	writeFile(t, path, dogDescriptor)

	l := NewFileLoader()
	m1, err := l.Load(path)
	require.NoError(t, err)
	assert.IsType(t, module.Static{}, m1)
	require.Len(t, m1.Bindings(), 1)
	assert.Equal(t, module.RequestType("get"), m1.Bindings()[0].RequestType)
	assert.Equal(t, "/woof", m1.Bindings()[0].Path)
	assert.True(t, l.Cached(path))

	// Changing the file has no effect while the module is cached.
	writeFile(t, path, `routes:
  - requestType: get
    path: /woof
    handler: {kind: static, body: reloaded}
`)
	m2, err := l.Load(path)
	require.NoError(t, err)
	assert.Same(t, m1, m2)
	assert.Equal(t, "Called woof! version 1.0.0", body(t, m2, 0))

	l.Evict(path)
	assert.False(t, l.Cached(path))
	l.Evict(path) // no-op

	m3, err := l.Load(path)
	require.NoError(t, err)
	assert.NotSame(t, m1, m3)
	assert.Equal(t, "reloaded", body(t, m3, 0))
}

func TestFileLoader_LoadErrors(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "bad-schema.yaml"), "routes:\n  - path: /x\n")
	writeFile(t, filepath.Join(dir, "bad-kind.json"), `{"routes":[{"requestType":"get","path":"/x","handler":{"kind":"nope"}}]}`)
	writeFile(t, filepath.Join(dir, "bad-syntax.json"), `{"routes": [`)
	writeFile(t, filepath.Join(dir, "escape.yaml"), `routes:
  - requestType: get
    path: /x
    handler: {kind: json, file: ../../outside.json}
`)

	l := NewFileLoader()
	for _, name := range []string{"bad-schema.yaml", "bad-kind.json", "bad-syntax.json", "escape.yaml", "missing.yaml"} {
		t.Run(name, func(t *testing.T) {
			t.Parallel()
			_, err := l.Load(filepath.Join(dir, name))
			require.Error(t, err)
			assert.False(t, l.Cached(filepath.Join(dir, name)))
		})
	}
}

func TestFileLoader_DescriptorDataFile(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "data", "dogs.json"), `{"dogs":["rex","fido"]}`)
	writeFile(t, filepath.Join(dir, "dogs.jsonc"), `{
  // served from a data file next to the descriptor
  "routes": [
    {"requestType": "get", "path": "/dogs", "handler": {"kind": "json", "file": "data/dogs.json", "query": "dogs"}},
  ],
}`)

	m, err := NewFileLoader().Load(filepath.Join(dir, "dogs.jsonc"))
	require.NoError(t, err)
	assert.JSONEq(t, `["rex","fido"]`, body(t, m, 0))
}

func TestFileLoader_ReadFile(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "apis.json"), `{"apis":[]}`)

	data, err := NewFileLoader().ReadFile(filepath.Join(dir, "apis.json"))
	require.NoError(t, err)
	assert.Equal(t, `{"apis":[]}`, string(data))
}

type stubModule struct{}

func (stubModule) Bindings() []module.PathBinding { return nil }

func TestPluginModule(t *testing.T) {
	t.Parallel()

	var asInterface module.Module = stubModule{}
	var nilInterface module.Module

	tests := []struct {
		name    string
		sym     any
		wantErr bool
	}{
		{name: "pointer to interface variable", sym: &asInterface},
		{name: "value implementing module", sym: stubModule{}},
		{name: "constructor", sym: func() module.Module { return stubModule{} }},
		{name: "nil variable", sym: &nilInterface, wantErr: true},
		{name: "wrong type", sym: 42, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			m, err := pluginModule("test.so", tt.sym)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.NotNil(t, m)
		})
	}
}

func TestFileLoader_LoadPluginFailure(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	path := filepath.Join(dir, "not-a-plugin.so")
	writeFile(t, path, "garbage")

	_, err := NewFileLoader().Load(path)
	require.Error(t, err)
}
