// Package config provides configuration loading and management for the flagpole server.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/stacklok/flagpole/internal/management"
	"github.com/stacklok/flagpole/internal/telemetry"
	"github.com/stacklok/flagpole/internal/token"
)

const (
	// EnvPrefix is the prefix of environment variables overriding configuration
	EnvPrefix = "FLAGPOLE"

	// SearchDirsEnv lists module search directories as an OS path list
	SearchDirsEnv = "FLAGPOLE_API_SEARCH_DIRS"

	// DefaultAddress is the address the server listens on by default
	DefaultAddress = ":3000"

	// DefaultDebounce is the default quiet period before a manifest reload
	DefaultDebounce = "500ms"
)

// Option defines the interface for configuration options
type Option func(*loaderConfig) error

// loaderConfig defines the configuration for loading a configuration
type loaderConfig struct {
	path string
}

// WithConfigPath loads configuration from a YAML file
func WithConfigPath(path string) Option {
	return func(cfg *loaderConfig) error {
		if path == "" {
			return fmt.Errorf("path is required")
		}

		// Resolve symlinks to prevent symlink attacks.
		// Note that this calls filepath.Clean internally.
		realPath, err := filepath.EvalSymlinks(path)
		if err != nil {
			return fmt.Errorf("failed to evaluate symlinks: %w", err)
		}

		// Validate the path to prevent path traversal attacks
		if !filepath.IsAbs(realPath) {
			if !filepath.IsLocal(realPath) {
				return fmt.Errorf("path is not local or contains invalid traversal: %s", path)
			}
		}

		cfg.path = realPath
		return nil
	}
}

// Config represents the root configuration structure
type Config struct {
	// Address is the address the HTTP server listens on
	// Defaults to ":3000" if not specified
	Address string `yaml:"address,omitempty"`

	// SearchDirs are the trusted directories module files and manifests are looked up in,
	// in order. Each entry may be an OS path list.
	// Defaults to the current directory if not specified
	SearchDirs []string `yaml:"searchDirs,omitempty"`

	// Manifest is an API manifest loaded at startup, relative to the search directories
	Manifest string `yaml:"manifest,omitempty"`

	// APIs are registered at startup, before the manifest is loaded
	APIs []APIConfig `yaml:"apis,omitempty"`

	// Watch reloads the manifest when it changes
	Watch WatchConfig `yaml:"watch"`

	// Management configures the administrative API
	Management ManagementConfig `yaml:"management"`

	// Metrics configures the Prometheus metrics endpoint
	Metrics *telemetry.Config `yaml:"metrics,omitempty"`
}

// APIConfig registers one API version from a module file
type APIConfig struct {
	Name            string `yaml:"name"`
	DescriptiveName string `yaml:"descriptiveName,omitempty"`
	Description     string `yaml:"description,omitempty"`
	Version         string `yaml:"version"`
	FileName        string `yaml:"fileName"`
}

// WatchConfig defines manifest hot reload settings
type WatchConfig struct {
	// Enabled turns the manifest watcher on. It requires Manifest to be set.
	Enabled bool `yaml:"enabled"`

	// Debounce is how long to wait for further changes before reloading (e.g., "500ms")
	Debounce string `yaml:"debounce,omitempty"`
}

// ManagementConfig defines the identity the management API is registered under
type ManagementConfig struct {
	Enabled bool   `yaml:"enabled"`
	Name    string `yaml:"name,omitempty"`
	Version string `yaml:"version,omitempty"`
}

// Default returns the configuration used when no file is given.
func Default() *Config {
	return &Config{
		Address: DefaultAddress,
		Watch:   WatchConfig{Debounce: DefaultDebounce},
		Management: ManagementConfig{
			Enabled: true,
			Name:    management.DefaultName,
			Version: management.DefaultVersion,
		},
	}
}

// LoadConfig loads and parses configuration from a YAML file. Without WithConfigPath
// the defaults are returned. Values absent from the file keep their defaults.
func LoadConfig(opts ...Option) (*Config, error) {
	loaderCfg := &loaderConfig{}
	for _, opt := range opts {
		if err := opt(loaderCfg); err != nil {
			return nil, err
		}
	}

	config := Default()
	if loaderCfg.path == "" {
		return config, nil
	}

	data, err := os.ReadFile(loaderCfg.path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	if err := yaml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("failed to parse YAML config: %w", err)
	}

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return config, nil
}

// ParseAPIFlag parses a "name@version=fileName" startup registration.
func ParseAPIFlag(s string) (APIConfig, error) {
	ident, fileName, ok := strings.Cut(s, "=")
	if !ok {
		return APIConfig{}, fmt.Errorf("api %q: expected name@version=file", s)
	}
	name, version, ok := strings.Cut(ident, "@")
	if !ok {
		return APIConfig{}, fmt.Errorf("api %q: expected name@version=file", s)
	}
	api := APIConfig{
		Name:     strings.TrimSpace(name),
		Version:  strings.TrimSpace(version),
		FileName: strings.TrimSpace(fileName),
	}
	if err := api.validate(); err != nil {
		return APIConfig{}, fmt.Errorf("api %q: %w", s, err)
	}
	return api, nil
}

// GetDebounce returns the watch debounce, using the default if not specified
func (w *WatchConfig) GetDebounce() time.Duration {
	d, err := time.ParseDuration(w.Debounce)
	if err != nil || w.Debounce == "" {
		d, _ = time.ParseDuration(DefaultDebounce)
	}
	return d
}

// Validate performs validation on the configuration
func (c *Config) Validate() error {
	if c == nil {
		return fmt.Errorf("config cannot be nil")
	}

	if strings.TrimSpace(c.Address) == "" {
		return fmt.Errorf("address is required")
	}

	for i, api := range c.APIs {
		if err := api.validate(); err != nil {
			return fmt.Errorf("apis[%d]: %w", i, err)
		}
	}

	if c.Watch.Enabled && c.Manifest == "" {
		return fmt.Errorf("watch.enabled requires manifest to be set")
	}
	if c.Watch.Debounce != "" {
		d, err := time.ParseDuration(c.Watch.Debounce)
		if err != nil {
			return fmt.Errorf("watch.debounce must be a valid duration (e.g., '500ms', '2s'): %w", err)
		}
		if d < 0 {
			return fmt.Errorf("watch.debounce cannot be negative")
		}
	}

	if c.Management.Enabled {
		if strings.TrimSpace(c.Management.Name) == "" {
			return fmt.Errorf("management.name is required when management is enabled")
		}
		if !token.ValidVersion(c.Management.Version) {
			return fmt.Errorf("management.version %q is not a valid version", c.Management.Version)
		}
	}

	if err := c.Metrics.Validate(); err != nil {
		return fmt.Errorf("metrics: %w", err)
	}

	return nil
}

func (a *APIConfig) validate() error {
	if a.Name == "" {
		return fmt.Errorf("name is required")
	}
	if !token.ValidVersion(a.Version) {
		return fmt.Errorf("version %q is not a valid version", a.Version)
	}
	if a.FileName == "" {
		return fmt.Errorf("fileName is required")
	}
	return nil
}
