package telemetry

import (
	"context"
	"fmt"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"

	"github.com/stacklok/flagpole/internal/logger"
)

// Telemetry encapsulates the meter provider and the Prometheus registry it exports to.
type Telemetry struct {
	config        *Config
	meterProvider metric.MeterProvider
	gatherer      *prometheus.Registry
}

// New creates and initializes a new Telemetry instance based on the configuration.
// If metrics are disabled or cfg is nil, the returned Telemetry uses a no-op provider
// and Handler returns nil.
// The caller is responsible for calling Shutdown when the application exits.
func New(ctx context.Context, cfg *Config) (*Telemetry, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid metrics configuration: %w", err)
	}

	if cfg == nil || !cfg.Enabled {
		mp, err := NewMeterProvider(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to create no-op meter provider: %w", err)
		}
		return &Telemetry{config: cfg, meterProvider: mp}, nil
	}

	reg := prometheus.NewRegistry()
	mp, err := NewMeterProvider(ctx,
		WithMeterServiceName(cfg.GetServiceName()),
		WithMeterServiceVersion(cfg.GetServiceVersion()),
		WithMetricsConfig(cfg),
		WithRegisterer(reg),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create meter provider: %w", err)
	}

	return &Telemetry{config: cfg, meterProvider: mp, gatherer: reg}, nil
}

// MeterProvider returns the configured meter provider
func (t *Telemetry) MeterProvider() metric.MeterProvider {
	return t.meterProvider
}

// Meter returns a named meter from the meter provider
func (t *Telemetry) Meter(name string, opts ...metric.MeterOption) metric.Meter {
	return t.meterProvider.Meter(name, opts...)
}

// Enabled reports whether metrics are being collected.
func (t *Telemetry) Enabled() bool {
	return t.gatherer != nil
}

// Path returns where Handler should be mounted.
func (t *Telemetry) Path() string {
	if t.config == nil {
		return DefaultMetricsPath
	}
	return t.config.GetPath()
}

// Handler serves the Prometheus exposition of the collected metrics, or nil when
// metrics are disabled.
func (t *Telemetry) Handler() http.Handler {
	if t.gatherer == nil {
		return nil
	}
	return promhttp.HandlerFor(t.gatherer, promhttp.HandlerOpts{})
}

// Shutdown flushes and stops the meter provider.
func (t *Telemetry) Shutdown(ctx context.Context) error {
	mp, ok := t.meterProvider.(*sdkmetric.MeterProvider)
	if !ok {
		return nil
	}
	if err := mp.Shutdown(ctx); err != nil {
		return fmt.Errorf("failed to shutdown meter provider: %w", err)
	}
	logger.Debugf("Meter provider shutdown complete")
	return nil
}
