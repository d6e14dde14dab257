package telemetry

import (
	"fmt"
	"strings"
)

const (
	// DefaultServiceName is the default service name reported with metrics
	DefaultServiceName = "flagpole"

	// DefaultMetricsPath is where the Prometheus handler is mounted by default
	DefaultMetricsPath = "/metrics"
)

// Config represents the metrics configuration
type Config struct {
	// Enabled controls whether metrics are collected and exposed
	Enabled bool `yaml:"enabled" mapstructure:"enabled"`

	// Path is the HTTP path serving the Prometheus exposition.
	// Defaults to "/metrics" if not specified
	Path string `yaml:"path,omitempty" mapstructure:"path"`

	// ServiceName identifies the service in the metrics resource.
	// Defaults to "flagpole" if not specified
	ServiceName string `yaml:"serviceName,omitempty" mapstructure:"serviceName"`

	// ServiceVersion is the version reported in the metrics resource.
	// Defaults to "unknown" if not specified
	ServiceVersion string `yaml:"serviceVersion,omitempty" mapstructure:"serviceVersion"`
}

// GetServiceName returns the service name, using default if not specified
func (c *Config) GetServiceName() string {
	if strings.TrimSpace(c.ServiceName) == "" {
		return DefaultServiceName
	}
	return c.ServiceName
}

// GetServiceVersion returns the service version, using "unknown" if not specified
func (c *Config) GetServiceVersion() string {
	if c.ServiceVersion == "" {
		return "unknown"
	}
	return c.ServiceVersion
}

// GetPath returns the metrics path, using default if not specified
func (c *Config) GetPath() string {
	if c.Path == "" {
		return DefaultMetricsPath
	}
	return c.Path
}

// Validate validates the metrics configuration
func (c *Config) Validate() error {
	if c == nil || !c.Enabled {
		return nil
	}
	if !strings.HasPrefix(c.GetPath(), "/") {
		return fmt.Errorf("metrics path must start with '/', got %q", c.Path)
	}
	return nil
}
