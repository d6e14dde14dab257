package telemetry

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestConfig_Getters(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name        string
		config      *Config
		wantName    string
		wantVersion string
		wantPath    string
	}{
		{
			name:        "defaults when empty",
			config:      &Config{},
			wantName:    DefaultServiceName,
			wantVersion: "unknown",
			wantPath:    DefaultMetricsPath,
		},
		{
			name:        "default name when whitespace only",
			config:      &Config{ServiceName: "  "},
			wantName:    DefaultServiceName,
			wantVersion: "unknown",
			wantPath:    DefaultMetricsPath,
		},
		{
			name:        "configured values",
			config:      &Config{ServiceName: "edge", ServiceVersion: "1.2.3", Path: "/internal/metrics"},
			wantName:    "edge",
			wantVersion: "1.2.3",
			wantPath:    "/internal/metrics",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.wantName, tt.config.GetServiceName())
			assert.Equal(t, tt.wantVersion, tt.config.GetServiceVersion())
			assert.Equal(t, tt.wantPath, tt.config.GetPath())
		})
	}
}

func TestConfig_Validate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		config  *Config
		wantErr bool
	}{
		{name: "nil config is valid", config: nil},
		{name: "disabled config skips validation", config: &Config{Enabled: false, Path: "metrics"}},
		{name: "enabled with default path", config: &Config{Enabled: true}},
		{name: "enabled with absolute path", config: &Config{Enabled: true, Path: "/m"}},
		{name: "relative path", config: &Config{Enabled: true, Path: "metrics"}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			err := tt.config.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}
