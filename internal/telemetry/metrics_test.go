package telemetry

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
)

func collect(t *testing.T, reader *sdkmetric.ManualReader) map[string]metricdata.Metrics {
	t.Helper()

	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(context.Background(), &rm))

	out := make(map[string]metricdata.Metrics)
	for _, scope := range rm.ScopeMetrics {
		for _, m := range scope.Metrics {
			out[m.Name] = m
		}
	}
	return out
}

func TestNewRegistryMetrics(t *testing.T) {
	t.Parallel()

	t.Run("returns nil when provider is nil", func(t *testing.T) {
		t.Parallel()

		metrics, err := NewRegistryMetrics(nil)
		require.NoError(t, err)
		assert.Nil(t, metrics)
	})

	t.Run("creates metrics with SDK provider", func(t *testing.T) {
		t.Parallel()

		mp := sdkmetric.NewMeterProvider()
		defer func() { _ = mp.Shutdown(context.Background()) }()

		metrics, err := NewRegistryMetrics(mp)
		require.NoError(t, err)
		require.NotNil(t, metrics)
		assert.NotNil(t, metrics.apisRegistered)
		assert.NotNil(t, metrics.registrations)
		assert.NotNil(t, metrics.unregistrations)
	})
}

func TestRegistryMetrics_NilSafe(t *testing.T) {
	t.Parallel()

	var metrics *RegistryMetrics
	ctx := context.Background()

	assert.NotPanics(t, func() {
		metrics.RecordAPIs(ctx, 3)
		metrics.RecordRegistration(ctx, ResultSuccess)
		metrics.RecordUnregistrations(ctx, 2)
	})
}

func TestRegistryMetrics_Record(t *testing.T) {
	t.Parallel()

	reader := sdkmetric.NewManualReader()
	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	defer func() { _ = mp.Shutdown(context.Background()) }()

	metrics, err := NewRegistryMetrics(mp)
	require.NoError(t, err)

	ctx := context.Background()
	metrics.RecordRegistration(ctx, ResultSuccess)
	metrics.RecordRegistration(ctx, ResultSuccess)
	metrics.RecordRegistration(ctx, ResultFailure)
	metrics.RecordAPIs(ctx, 2)
	metrics.RecordUnregistrations(ctx, 1)
	metrics.RecordUnregistrations(ctx, 0)

	got := collect(t, reader)

	registrations, ok := got["flagpole_registrations_total"].Data.(metricdata.Sum[int64])
	require.True(t, ok, "expected registrations counter")
	byResult := map[string]int64{}
	for _, dp := range registrations.DataPoints {
		v, _ := dp.Attributes.Value(attribute.Key("result"))
		byResult[v.AsString()] = dp.Value
	}
	assert.Equal(t, map[string]int64{ResultSuccess: 2, ResultFailure: 1}, byResult)

	apis, ok := got["flagpole_apis_registered"].Data.(metricdata.Gauge[int64])
	require.True(t, ok, "expected apis gauge")
	require.Len(t, apis.DataPoints, 1)
	assert.Equal(t, int64(2), apis.DataPoints[0].Value)

	unregistrations, ok := got["flagpole_unregistrations_total"].Data.(metricdata.Sum[int64])
	require.True(t, ok, "expected unregistrations counter")
	require.Len(t, unregistrations.DataPoints, 1)
	assert.Equal(t, int64(1), unregistrations.DataPoints[0].Value)
}
