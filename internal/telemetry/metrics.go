// Package telemetry provides OpenTelemetry metrics for flagpole, exported in the
// Prometheus text format.
package telemetry

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const (
	// RegistryMetricsMeterName is the name used for the registry metrics meter
	RegistryMetricsMeterName = "github.com/stacklok/flagpole/registry"

	// ResultSuccess labels a registration that went live
	ResultSuccess = "success"

	// ResultFailure labels a registration that was rejected
	ResultFailure = "failure"
)

// RegistryMetrics holds the OpenTelemetry instruments for registry metrics
type RegistryMetrics struct {
	apisRegistered  metric.Int64Gauge
	registrations   metric.Int64Counter
	unregistrations metric.Int64Counter
}

// NewRegistryMetrics creates a new RegistryMetrics instance with the given meter provider.
// If provider is nil, it returns nil (no-op metrics).
func NewRegistryMetrics(provider metric.MeterProvider) (*RegistryMetrics, error) {
	if provider == nil {
		return nil, nil
	}

	meter := provider.Meter(RegistryMetricsMeterName)

	apisRegistered, err := meter.Int64Gauge(
		"flagpole_apis_registered",
		metric.WithDescription("Number of API versions currently registered"),
		metric.WithUnit("{api}"),
	)
	if err != nil {
		return nil, err
	}

	registrations, err := meter.Int64Counter(
		"flagpole_registrations_total",
		metric.WithDescription("Total number of API registration attempts"),
		metric.WithUnit("{registration}"),
	)
	if err != nil {
		return nil, err
	}

	unregistrations, err := meter.Int64Counter(
		"flagpole_unregistrations_total",
		metric.WithDescription("Total number of API versions removed"),
		metric.WithUnit("{api}"),
	)
	if err != nil {
		return nil, err
	}

	return &RegistryMetrics{
		apisRegistered:  apisRegistered,
		registrations:   registrations,
		unregistrations: unregistrations,
	}, nil
}

// RecordAPIs records the current number of registered API versions
func (m *RegistryMetrics) RecordAPIs(ctx context.Context, count int64) {
	if m == nil || m.apisRegistered == nil {
		return
	}
	m.apisRegistered.Record(ctx, count)
}

// RecordRegistration counts a registration attempt with its result
func (m *RegistryMetrics) RecordRegistration(ctx context.Context, result string) {
	if m == nil || m.registrations == nil {
		return
	}
	m.registrations.Add(ctx, 1, metric.WithAttributes(attribute.String("result", result)))
}

// RecordUnregistrations counts removed API versions, whether unregistered or overwritten
func (m *RegistryMetrics) RecordUnregistrations(ctx context.Context, count int64) {
	if m == nil || m.unregistrations == nil || count <= 0 {
		return
	}
	m.unregistrations.Add(ctx, count)
}
