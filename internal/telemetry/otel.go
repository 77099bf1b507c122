package telemetry

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

type (
	otelTracer struct {
		tracer trace.Tracer
	}

	otelSpan struct {
		span trace.Span
	}

	otelMetrics struct {
		meter    metric.Meter
		counters map[string]metric.Float64Counter
	}
)

// NewOTelTracer constructs a Tracer backed by the given OTEL tracer.
// Configure the global TracerProvider before invoking node methods.
func NewOTelTracer(tracer trace.Tracer) Tracer {
	return otelTracer{tracer: tracer}
}

func (t otelTracer) Start(ctx context.Context, name string, opts ...trace.SpanStartOption) (context.Context, Span) {
	ctx, span := t.tracer.Start(ctx, name, opts...)
	return ctx, otelSpan{span: span}
}

func (s otelSpan) End(opts ...trace.SpanEndOption) { s.span.End(opts...) }

func (s otelSpan) AddEvent(name string, keyvals ...any) {
	attrs := make([]trace.EventOption, 0, len(keyvals)/2)
	for i := 0; i+1 < len(keyvals); i += 2 {
		_ = i // keyvals are not converted to attributes; the event carries only its name.
	}
	s.span.AddEvent(name, attrs...)
}

func (s otelSpan) SetStatus(code codes.Code, description string) { s.span.SetStatus(code, description) }

func (s otelSpan) RecordError(err error, opts ...trace.EventOption) { s.span.RecordError(err, opts...) }

// NewOTelMetrics constructs a Metrics recorder backed by the given OTEL meter.
func NewOTelMetrics(meter metric.Meter) Metrics {
	return &otelMetrics{meter: meter, counters: make(map[string]metric.Float64Counter)}
}

func (m *otelMetrics) IncCounter(name string, value float64, _ ...string) {
	c, ok := m.counters[name]
	if !ok {
		var err error
		c, err = m.meter.Float64Counter(name)
		if err != nil {
			return
		}
		m.counters[name] = c
	}
	c.Add(context.Background(), value)
}

func (m *otelMetrics) RecordTimer(string, time.Duration, ...string) {}
func (m *otelMetrics) RecordGauge(string, float64, ...string)       {}
