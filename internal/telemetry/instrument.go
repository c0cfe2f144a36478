package telemetry

import (
	"context"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

// Instrument records a span plus dm.<prefix>.* metrics for named operations.
// A nil *Instrument is valid and records nothing; NewInstrument returns nil
// when telemetry is disabled.
type Instrument struct {
	prefix string
	tracer trace.Tracer
	ops    metric.Int64Counter
	dur    metric.Float64Histogram
	errs   metric.Int64Counter
	counts map[string]metric.Int64Counter
}

// NewInstrument returns the instrument for the given scope, e.g. "merge" or
// "history". The extra counters are registered as dm.<prefix>.<name>.
// Instruments are cached, so calling this per operation is cheap.
func NewInstrument(prefix string, counters ...string) *Instrument {
	if !Enabled() {
		return nil
	}
	return cached(prefix, counters, func() *Instrument {
		return newInstrument(prefix, counters)
	})
}

func newInstrument(prefix string, counters []string) *Instrument {
	scope := scopePrefix + prefix
	m := otel.Meter(scope)
	ops, _ := m.Int64Counter("dm."+prefix+".operations",
		metric.WithDescription("Total "+prefix+" operations executed"),
	)
	dur, _ := m.Float64Histogram("dm."+prefix+".operation.duration",
		metric.WithDescription(prefix+" operation duration in milliseconds"),
		metric.WithUnit("ms"),
	)
	errs, _ := m.Int64Counter("dm."+prefix+".errors",
		metric.WithDescription("Total "+prefix+" operation errors"),
	)
	in := &Instrument{
		prefix: prefix,
		tracer: otel.Tracer(scope),
		ops:    ops,
		dur:    dur,
		errs:   errs,
		counts: make(map[string]metric.Int64Counter, len(counters)),
	}
	for _, name := range counters {
		c, _ := m.Int64Counter("dm." + prefix + "." + name)
		in.counts[name] = c
	}
	return in
}

// Op is an in-flight instrumented operation.
type Op struct {
	in    *Instrument
	ctx   context.Context
	span  trace.Span
	start time.Time
	attrs []attribute.KeyValue
}

// Start begins the named operation.
func (in *Instrument) Start(ctx context.Context, name string, attrs ...attribute.KeyValue) (context.Context, *Op) {
	if in == nil {
		return ctx, nil
	}
	all := append([]attribute.KeyValue{attribute.String("dm.operation", name)}, attrs...)
	ctx, span := in.tracer.Start(ctx, in.prefix+"."+name, trace.WithAttributes(all...))
	in.ops.Add(ctx, 1, metric.WithAttributes(all...))
	return ctx, &Op{in: in, ctx: ctx, span: span, start: time.Now(), attrs: all}
}

// Add increments one of the extra counters registered with NewInstrument.
func (op *Op) Add(name string, n int64) {
	if op == nil || n == 0 {
		return
	}
	if c, ok := op.in.counts[name]; ok {
		c.Add(op.ctx, n, metric.WithAttributes(op.attrs...))
	}
}

// SetAttributes annotates the span.
func (op *Op) SetAttributes(attrs ...attribute.KeyValue) {
	if op == nil {
		return
	}
	op.span.SetAttributes(attrs...)
}

// End ends the span, records duration and optional error.
func (op *Op) End(err error) {
	if op == nil {
		return
	}
	ms := float64(time.Since(op.start).Milliseconds())
	op.in.dur.Record(op.ctx, ms, metric.WithAttributes(op.attrs...))
	if err != nil {
		op.span.RecordError(err)
		op.span.SetStatus(codes.Error, err.Error())
		op.in.errs.Add(op.ctx, 1, metric.WithAttributes(op.attrs...))
	}
	op.span.End()
}
