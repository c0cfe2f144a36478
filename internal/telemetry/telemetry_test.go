package telemetry

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"
	metricnoop "go.opentelemetry.io/otel/metric/noop"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
	tracenoop "go.opentelemetry.io/otel/trace/noop"
)

// recordGlobally routes the global providers into in-memory recorders for
// the duration of the test.
func recordGlobally(t *testing.T) (*tracetest.SpanRecorder, *sdkmetric.ManualReader) {
	t.Helper()
	t.Setenv("DM_OTEL_ENABLED", "true")
	spans := tracetest.NewSpanRecorder()
	reader := sdkmetric.NewManualReader()
	otel.SetTracerProvider(sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(spans)))
	otel.SetMeterProvider(sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader)))
	Shutdown(context.Background())
	t.Cleanup(func() {
		otel.SetTracerProvider(tracenoop.NewTracerProvider())
		otel.SetMeterProvider(metricnoop.NewMeterProvider())
		Shutdown(context.Background())
	})
	return spans, reader
}

func counterValue(t *testing.T, reader *sdkmetric.ManualReader, name string) int64 {
	t.Helper()
	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(context.Background(), &rm))
	var total int64
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			if m.Name != name {
				continue
			}
			sum, ok := m.Data.(metricdata.Sum[int64])
			require.True(t, ok, "%s is not an int64 sum", name)
			for _, dp := range sum.DataPoints {
				total += dp.Value
			}
		}
	}
	return total
}

func TestInitDisabledDoesNothing(t *testing.T) {
	t.Setenv("DM_OTEL_ENABLED", "")
	require.NoError(t, Init(context.Background(), "dm", "test"))
	assert.False(t, Enabled())
	assert.Nil(t, NewInstrument("merge"))
	Shutdown(context.Background())
}

func TestNilInstrumentIsSafe(t *testing.T) {
	t.Setenv("DM_OTEL_ENABLED", "")
	in := NewInstrument("merge", "conflicts")
	assert.Nil(t, in)

	ctx, op := in.Start(context.Background(), "merge")
	assert.NotNil(t, ctx)
	op.Add("conflicts", 3)
	op.SetAttributes()
	op.End(errors.New("boom"))
}

func TestInstrumentRecordsSpansAndCounters(t *testing.T) {
	spans, reader := recordGlobally(t)

	in := NewInstrument("history", "entries")
	require.NotNil(t, in)
	assert.Same(t, in, NewInstrument("history", "entries"))
	assert.NotSame(t, in, NewInstrument("history"))

	_, op := in.Start(context.Background(), "log")
	op.Add("entries", 2)
	op.Add("unknown", 1)
	op.End(nil)

	_, op = in.Start(context.Background(), "undo")
	op.End(errors.New("boom"))

	ended := spans.Ended()
	require.Len(t, ended, 2)
	assert.Equal(t, "history.log", ended[0].Name())
	assert.Equal(t, codes.Unset, ended[0].Status().Code)
	assert.Equal(t, "history.undo", ended[1].Name())
	assert.Equal(t, codes.Error, ended[1].Status().Code)
	assert.Equal(t, "github.com/steveyegge/docmerge/history", ended[0].InstrumentationScope().Name)

	assert.Equal(t, int64(2), counterValue(t, reader, "dm.history.entries"))
	assert.Equal(t, int64(2), counterValue(t, reader, "dm.history.operations"))
	assert.Equal(t, int64(1), counterValue(t, reader, "dm.history.errors"))
}

func TestShutdownForgetsInstruments(t *testing.T) {
	recordGlobally(t)
	first := NewInstrument("batch", "files")
	Shutdown(context.Background())
	assert.NotSame(t, first, NewInstrument("batch", "files"))
}

func TestSettingsFromEnv(t *testing.T) {
	t.Setenv("OTEL_SERVICE_NAME", "")
	t.Setenv("DM_OTEL_STDOUT", "true")
	t.Setenv("OTEL_EXPORTER_OTLP_ENDPOINT", "collector:4318")
	t.Setenv("OTEL_EXPORTER_OTLP_METRICS_ENDPOINT", "")

	s := SettingsFromEnv("dm", "1.2.3")
	assert.Equal(t, Settings{
		Service:         "dm",
		Version:         "1.2.3",
		Stdout:          true,
		Endpoint:        "collector:4318",
		MetricsEndpoint: "collector:4318",
	}, s)

	t.Setenv("OTEL_SERVICE_NAME", "docs-sync")
	t.Setenv("OTEL_EXPORTER_OTLP_METRICS_ENDPOINT", "metrics:4318")
	s = SettingsFromEnv("dm", "1.2.3")
	assert.Equal(t, "docs-sync", s.Service)
	assert.Equal(t, "metrics:4318", s.MetricsEndpoint)
}
