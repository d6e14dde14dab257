package app

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stacklok/flagpole/internal/api"
	"github.com/stacklok/flagpole/internal/config"
	"github.com/stacklok/flagpole/internal/management"
	"github.com/stacklok/flagpole/internal/router"
	"github.com/stacklok/flagpole/internal/telemetry"
)

const (
	dogV1 = `routes:
  - requestType: get
    path: /woof
    handler:
      kind: static
      body: Called woof! version 1.0.0
`
	dogV2 = `routes:
  - requestType: get
    path: /woof
    handler:
      kind: static
      body: Called woof! version 2.0.0
`
	dogManifest = `apis:
  - name: dog
    descriptiveName: Dog API
    versions:
      - ver: 1.0.0
        fileName: dog_1.0.0.yaml
      - ver: 2.0.0
        fileName: dog_2.0.0.yaml
`
)

// writeAPIs populates a search directory with the dog API and its manifest.
func writeAPIs(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	for name, content := range map[string]string{
		"dog_1.0.0.yaml": dogV1,
		"dog_2.0.0.yaml": dogV2,
		"apis.yaml":      dogManifest,
	} {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0o600))
	}
	return dir
}

func get(t *testing.T, h http.Handler, path, acceptVersion string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	if acceptVersion != "" {
		req.Header.Set(router.AcceptVersionHeader, acceptVersion)
	}
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	return rr
}

func TestLoadConfig(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		values  map[string]any
		wantErr string
		check   func(t *testing.T, cfg *config.Config)
	}{
		{
			name: "defaults",
			check: func(t *testing.T, cfg *config.Config) {
				t.Helper()
				assert.Equal(t, config.DefaultAddress, cfg.Address)
				assert.True(t, cfg.Management.Enabled)
				assert.Empty(t, cfg.APIs)
				assert.Nil(t, cfg.Metrics)
			},
		},
		{
			name: "flag overrides",
			values: map[string]any{
				"address":      "127.0.0.1:9000",
				"search-dirs":  []string{"/srv/apis"},
				"manifest":     "apis.yaml",
				"watch":        true,
				"debounce":     "1s",
				"management":   false,
				"metrics":      true,
				"metrics-path": "/internal/metrics",
			},
			check: func(t *testing.T, cfg *config.Config) {
				t.Helper()
				assert.Equal(t, "127.0.0.1:9000", cfg.Address)
				assert.Equal(t, []string{"/srv/apis"}, cfg.SearchDirs)
				assert.Equal(t, "apis.yaml", cfg.Manifest)
				assert.True(t, cfg.Watch.Enabled)
				assert.Equal(t, time.Second, cfg.Watch.GetDebounce())
				assert.False(t, cfg.Management.Enabled)
				require.NotNil(t, cfg.Metrics)
				assert.True(t, cfg.Metrics.Enabled)
				assert.Equal(t, "/internal/metrics", cfg.Metrics.GetPath())
			},
		},
		{
			name:   "api flags",
			values: map[string]any{"api": []string{"dog@1.0.0=dog_1.0.0.yaml", "cat@2.1.0=cat.yaml"}},
			check: func(t *testing.T, cfg *config.Config) {
				t.Helper()
				require.Len(t, cfg.APIs, 2)
				assert.Equal(t, config.APIConfig{Name: "dog", Version: "1.0.0", FileName: "dog_1.0.0.yaml"}, cfg.APIs[0])
				assert.Equal(t, "cat", cfg.APIs[1].Name)
			},
		},
		{
			name:    "malformed api flag",
			values:  map[string]any{"api": []string{"dog=dog.yaml"}},
			wantErr: "expected name@version=file",
		},
		{
			name:    "watch without manifest",
			values:  map[string]any{"watch": true},
			wantErr: "requires manifest",
		},
		{
			name:    "bad metrics path",
			values:  map[string]any{"metrics": true, "metrics-path": "metrics"},
			wantErr: "metrics path must start with '/'",
		},
		{
			name:    "missing config file",
			values:  map[string]any{"config": "does-not-exist.yaml"},
			wantErr: "failed to load configuration",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			v := viper.New()
			for k, val := range tt.values {
				v.Set(k, val)
			}

			cfg, err := loadConfig(v)
			if tt.wantErr != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr)
				return
			}
			require.NoError(t, err)
			tt.check(t, cfg)
		})
	}
}

func TestApplication_Bootstrap(t *testing.T) {
	t.Parallel()

	dir := writeAPIs(t)
	cfg := config.Default()
	cfg.SearchDirs = []string{dir}
	cfg.Manifest = "apis.yaml"

	a, err := newApplication(context.Background(), cfg)
	require.NoError(t, err)

	rr := get(t, a.handler, "/readiness", "")
	assert.Equal(t, http.StatusServiceUnavailable, rr.Code)

	a.bootstrap(context.Background())

	rr = get(t, a.handler, "/readiness", "")
	require.Equal(t, http.StatusOK, rr.Code)
	var ready api.ReadinessResponse
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &ready))
	assert.Equal(t, 3, ready.APIs)

	rr = get(t, a.handler, "/woof", "")
	assert.Equal(t, "Called woof! version 2.0.0", rr.Body.String())
	assert.Equal(t, "2.0.0", rr.Header().Get(router.APIVersionHeader))

	rr = get(t, a.handler, "/woof", "^1.0.0")
	assert.Equal(t, "Called woof! version 1.0.0", rr.Body.String())

	rr = get(t, a.handler, "/apis", "")
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), management.DefaultName)
	assert.Contains(t, rr.Body.String(), "Dog API")

	a.shutdown()
	assert.Zero(t, a.registry.Len())
	assert.Equal(t, http.StatusNotFound, get(t, a.handler, "/woof", "").Code)
}

func TestApplication_BootstrapContinuesOnFailure(t *testing.T) {
	t.Parallel()

	dir := writeAPIs(t)
	cfg := config.Default()
	cfg.SearchDirs = []string{dir}
	cfg.Management.Enabled = false
	cfg.APIs = []config.APIConfig{
		{Name: "missing", Version: "1.0.0", FileName: "missing.yaml"},
		{Name: "dog", Version: "1.0.0", FileName: "dog_1.0.0.yaml"},
	}
	cfg.Manifest = "nope.yaml"

	a, err := newApplication(context.Background(), cfg)
	require.NoError(t, err)
	a.bootstrap(context.Background())

	assert.Equal(t, 1, a.registry.Len())
	assert.Equal(t, http.StatusOK, get(t, a.handler, "/readiness", "").Code)
	assert.Equal(t, http.StatusNotFound, get(t, a.handler, "/apis", "").Code)
	assert.Equal(t, "Called woof! version 1.0.0", get(t, a.handler, "/woof", "").Body.String())
}

func TestApplication_Metrics(t *testing.T) {
	t.Parallel()

	dir := writeAPIs(t)
	cfg := config.Default()
	cfg.SearchDirs = []string{dir}
	cfg.Manifest = "apis.yaml"
	cfg.Metrics = &telemetry.Config{Enabled: true}

	a, err := newApplication(context.Background(), cfg)
	require.NoError(t, err)
	a.bootstrap(context.Background())
	t.Cleanup(a.shutdown)

	_ = get(t, a.handler, "/woof", "")

	rr := get(t, a.handler, telemetry.DefaultMetricsPath, "")
	require.Equal(t, http.StatusOK, rr.Code)
	body, err := io.ReadAll(rr.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), "flagpole_apis_registered")
	assert.Contains(t, string(body), "flagpole_registrations")
	assert.Contains(t, string(body), "flagpole_http_requests")
}

func TestApplication_Run(t *testing.T) {
	t.Parallel()

	dir := writeAPIs(t)
	cfg := config.Default()
	cfg.Address = "127.0.0.1:0"
	cfg.SearchDirs = []string{dir}
	cfg.Manifest = "apis.yaml"
	cfg.Watch.Enabled = true

	a, err := newApplication(context.Background(), cfg)
	require.NoError(t, err)
	a.bootstrap(context.Background())
	require.Equal(t, 3, a.registry.Len())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- a.run(ctx) }()

	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(10 * time.Second):
		t.Fatal("run did not return after cancellation")
	}
	assert.Zero(t, a.registry.Len())
}

func TestApplication_RunWatchMissingManifest(t *testing.T) {
	t.Parallel()

	cfg := config.Default()
	cfg.Address = "127.0.0.1:0"
	cfg.SearchDirs = []string{t.TempDir()}
	cfg.Manifest = "apis.yaml"
	cfg.Watch.Enabled = true

	a, err := newApplication(context.Background(), cfg)
	require.NoError(t, err)

	err = a.run(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "cannot watch manifest")
}
