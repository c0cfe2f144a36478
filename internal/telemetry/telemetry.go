// Package telemetry wires OpenTelemetry spans and metrics for dm.
//
// Nothing is recorded unless DM_OTEL_ENABLED=true. Then spans and metrics go
// to an OTLP/HTTP collector when OTEL_EXPORTER_OTLP_ENDPOINT is set, and to
// stdout when DM_OTEL_STDOUT=true or no endpoint is configured.
//
//	DM_OTEL_ENABLED=true                       enable telemetry
//	DM_OTEL_STDOUT=true                        also pretty-print to stdout
//	OTEL_EXPORTER_OTLP_ENDPOINT=host:4318      OTLP/HTTP collector
//	OTEL_EXPORTER_OTLP_METRICS_ENDPOINT=...    metrics-only collector override
//	OTEL_SERVICE_NAME=...                      override the service name
package telemetry

import (
	"cmp"
	"context"
	"fmt"
	"os"
	"strings"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetrichttp"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/exporters/stdout/stdoutmetric"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/sdk/resource"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"

	"github.com/steveyegge/docmerge/internal/debug"
)

// scopePrefix is joined with an instrument prefix to form its scope name,
// e.g. github.com/steveyegge/docmerge/merge.
const scopePrefix = "github.com/steveyegge/docmerge/"

// metricInterval is how often metrics are pushed to each reader.
const metricInterval = 30 * time.Second

// Settings selects the exporters Start installs.
type Settings struct {
	Service string
	Version string
	// Stdout pretty-prints spans and metrics to stdout.
	Stdout bool
	// Endpoint is the OTLP/HTTP collector for spans and, unless
	// MetricsEndpoint is set, metrics.
	Endpoint        string
	MetricsEndpoint string
}

// Enabled reports whether DM_OTEL_ENABLED=true.
func Enabled() bool {
	return os.Getenv("DM_OTEL_ENABLED") == "true"
}

// SettingsFromEnv reads exporter settings from the environment.
func SettingsFromEnv(service, version string) Settings {
	endpoint := os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT")
	return Settings{
		Service:         cmp.Or(os.Getenv("OTEL_SERVICE_NAME"), service),
		Version:         version,
		Stdout:          os.Getenv("DM_OTEL_STDOUT") == "true",
		Endpoint:        endpoint,
		MetricsEndpoint: cmp.Or(os.Getenv("OTEL_EXPORTER_OTLP_METRICS_ENDPOINT"), endpoint),
	}
}

type shutdowner interface {
	Shutdown(context.Context) error
}

var (
	mu          sync.Mutex
	providers   []shutdowner
	instruments = map[string]*Instrument{}
)

// Init starts telemetry from the environment. It does nothing when
// telemetry is disabled.
func Init(ctx context.Context, service, version string) error {
	if !Enabled() {
		return nil
	}
	return Start(ctx, SettingsFromEnv(service, version))
}

// Start installs global tracer and meter providers for s.
func Start(ctx context.Context, s Settings) error {
	res := resource.NewWithAttributes(semconv.SchemaURL,
		semconv.ServiceName(s.Service),
		semconv.ServiceVersion(s.Version),
	)
	// Without a collector the data would go nowhere, so fall back to stdout.
	toStdout := s.Stdout || (s.Endpoint == "" && s.MetricsEndpoint == "")

	tp, err := traceProvider(ctx, res, s, toStdout)
	if err != nil {
		return fmt.Errorf("telemetry: trace provider: %w", err)
	}
	mp, err := meterProvider(ctx, res, s, toStdout)
	if err != nil {
		_ = tp.Shutdown(ctx)
		return fmt.Errorf("telemetry: metric provider: %w", err)
	}
	otel.SetTracerProvider(tp)
	otel.SetMeterProvider(mp)

	mu.Lock()
	providers = append(providers, tp, mp)
	clear(instruments)
	mu.Unlock()
	return nil
}

func traceProvider(ctx context.Context, res *resource.Resource, s Settings, toStdout bool) (*sdktrace.TracerProvider, error) {
	opts := []sdktrace.TracerProviderOption{sdktrace.WithResource(res)}
	if toStdout {
		exp, err := stdouttrace.New(stdouttrace.WithPrettyPrint())
		if err != nil {
			return nil, err
		}
		opts = append(opts, sdktrace.WithBatcher(exp))
	}
	if s.Endpoint != "" {
		exp, err := otlptracehttp.New(ctx,
			otlptracehttp.WithEndpoint(s.Endpoint),
			otlptracehttp.WithInsecure(),
		)
		if err != nil {
			return nil, fmt.Errorf("otlp trace exporter: %w", err)
		}
		opts = append(opts, sdktrace.WithBatcher(exp))
	}
	return sdktrace.NewTracerProvider(opts...), nil
}

func meterProvider(ctx context.Context, res *resource.Resource, s Settings, toStdout bool) (*sdkmetric.MeterProvider, error) {
	opts := []sdkmetric.Option{sdkmetric.WithResource(res)}
	if toStdout {
		exp, err := stdoutmetric.New()
		if err != nil {
			return nil, err
		}
		opts = append(opts, sdkmetric.WithReader(sdkmetric.NewPeriodicReader(exp, sdkmetric.WithInterval(metricInterval))))
	}
	if s.MetricsEndpoint != "" {
		exp, err := otlpmetrichttp.New(ctx,
			otlpmetrichttp.WithEndpoint(s.MetricsEndpoint),
			otlpmetrichttp.WithInsecure(),
		)
		if err != nil {
			return nil, fmt.Errorf("otlp metric exporter: %w", err)
		}
		opts = append(opts, sdkmetric.WithReader(sdkmetric.NewPeriodicReader(exp, sdkmetric.WithInterval(metricInterval))))
	}
	return sdkmetric.NewMeterProvider(opts...), nil
}

// Shutdown flushes pending spans and metrics and forgets cached instruments.
func Shutdown(ctx context.Context) {
	mu.Lock()
	ps := providers
	providers = nil
	clear(instruments)
	mu.Unlock()

	for _, p := range ps {
		if err := p.Shutdown(ctx); err != nil {
			debug.Logf("telemetry: shutdown: %v", err)
		}
	}
}

// cached returns the instrument registered for prefix and counters, building
// it on first use.
func cached(prefix string, counters []string, build func() *Instrument) *Instrument {
	key := prefix + "|" + strings.Join(counters, ",")
	mu.Lock()
	defer mu.Unlock()
	if in, ok := instruments[key]; ok {
		return in
	}
	in := build()
	instruments[key] = in
	return in
}
