package registry

import (
	"context"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stacklok/flagpole/internal/loader"
)

const testAPIDescriptor = `routes:
  - requestType: get
    path: /test
    handler:
      kind: static
      body: test 1.0.0
`

func TestRegistry_LoadAPIConfig(t *testing.T) {
	t.Parallel()

	mem := loader.NewMemory()
	mem.AddFile("/apis/apis.json", []byte(`{
  // versions are registered in order
  "apis": [
    {
      "name": "test",
      "descriptiveName": "Test API",
      "versions": [
        { "ver": "1.0.0", "fileName": "api/testapi_1.0.0.yaml" },
        { "ver": "2.0.0", "fileName": "api/testapi_2.0.0.yaml" },
      ]
    },
    { "name": "never", "versions": [ { "ver": "1", "fileName": "api/testapi_1.0.0.yaml" } ] }
  ]
}`))
	mem.AddFile("/apis/api/testapi_1.0.0.yaml", []byte(testAPIDescriptor))

	r, mux := newRegistry(t, WithLoader(mem), WithSearchDirs("/apis"))

	err := r.LoadAPIConfig(context.Background(), "apis.json")
	require.ErrorIs(t, err, ErrFileLoad)
	assert.Contains(t, err.Error(), "api/testapi_2.0.0.yaml")

	apis := r.Query()
	require.Len(t, apis, 1)
	assert.Equal(t, "test:1.0.0", apis[0].Token)
	assert.Equal(t, "Test API", apis[0].DescriptiveName)

	_, body := serve(t, mux, http.MethodGet, "/test", "")
	assert.Equal(t, "test 1.0.0", body)
}

func TestRegistry_LoadAPIConfig_YAML(t *testing.T) {
	t.Parallel()

	mem := loader.NewMemory()
	mem.AddFile("/apis/apis.yaml", []byte(`apis:
  - name: test
    description: Sample
    versions:
      - ver: "1.0.0"
        fileName: api/testapi_1.0.0.yaml
  - name: other
    versions:
      - ver: "1"
        fileName: api/testapi_1.0.0.yaml
`))
	mem.AddFile("/apis/api/testapi_1.0.0.yaml", []byte(testAPIDescriptor))

	r, _ := newRegistry(t, WithLoader(mem), WithSearchDirs("/apis"))
	require.NoError(t, r.LoadAPIConfig(context.Background(), "apis.yaml"))

	assert.Equal(t, []string{"test:1.0.0", "other:1"}, tokens(r.Query()))
	assert.Equal(t, "Sample", r.Query()[0].Description)
}

func TestRegistry_LoadAPIConfig_Errors(t *testing.T) {
	t.Parallel()

	mem := loader.NewMemory()
	mem.AddFile("/apis/broken.json", []byte(`{"apis": [`))
	mem.AddFile("/apis/noapis.json", []byte(`{"versions": []}`))
	mem.AddFile("/apis/badver.json", []byte(`{"apis": [{"name": "x", "versions": [{"ver": "1.x", "fileName": "x.yaml"}]}]}`))

	r, _ := newRegistry(t, WithLoader(mem), WithSearchDirs("/apis"))

	tests := []struct {
		name     string
		manifest string
		wantErr  error
	}{
		{name: "empty name", manifest: " ", wantErr: ErrBadArgument},
		{name: "missing manifest", manifest: "missing.json", wantErr: ErrFileLoad},
		{name: "unparseable", manifest: "broken.json", wantErr: ErrConfigParse},
		{name: "schema violation", manifest: "noapis.json", wantErr: ErrConfigParse},
		{name: "invalid version", manifest: "badver.json", wantErr: ErrBadArgument},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			require.ErrorIs(t, r.LoadAPIConfig(context.Background(), tt.manifest), tt.wantErr)
		})
	}
	assert.Empty(t, r.Query())
}
