// Package telemetry adapts the OpenTelemetry API surface
// (go.opentelemetry.io/otel's metric/trace packages, no SDK or exporter)
// to core.Telemetry, per the Domain Stack's ambient observability entry.
// It is grounded on the teacher's telemetry/otel.go OTelProvider, scaled
// down: this engine has no service that wants to own exporter lifecycle,
// so the provider talks to whatever global TracerProvider/MeterProvider
// the embedding process has registered (otel.SetTracerProvider/
// SetMeterProvider) — a no-op SDK by default, a real backend if the host
// application wires one in main(). Nothing here requires an exporter
// dependency that isn't already used elsewhere in the pack.
package telemetry

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"github.com/LLprod39/agent-ssh-dev-sub001/core"
)

// Provider implements core.Telemetry over the OpenTelemetry API. It holds
// no exporter state of its own — tracer/meter come from whatever global
// providers are registered when New is called.
type Provider struct {
	tracer trace.Tracer
	meter  metric.Meter

	mu         sync.Mutex
	counters   map[string]metric.Float64Counter
	histograms map[string]metric.Float64Histogram
}

// New builds a Provider scoped to name (typically the binary name,
// e.g. "sshagent"). Call otel.SetTracerProvider/SetMeterProvider before
// this if a real backend is wanted; otherwise every span/metric call is
// the otel API's own no-op implementation.
func New(name string) *Provider {
	return &Provider{
		tracer:     otel.Tracer(name),
		meter:      otel.Meter(name),
		counters:   make(map[string]metric.Float64Counter),
		histograms: make(map[string]metric.Float64Histogram),
	}
}

// StartSpan starts a span named name, returning the derived context and
// a core.Span wrapping it.
func (p *Provider) StartSpan(ctx context.Context, name string) (context.Context, core.Span) {
	ctx, span := p.tracer.Start(ctx, name)
	return ctx, &otelSpan{span: span}
}

// RecordMetric routes value to a counter or histogram instrument keyed by
// name, picking the instrument kind by the same name-pattern heuristic
// the teacher's OTelProvider.RecordMetric uses: counters for cumulative
// counts, histograms for everything else (durations, gauges, sizes).
func (p *Provider) RecordMetric(name string, value float64, labels map[string]string) {
	ctx := context.Background()
	attrs := make([]attribute.KeyValue, 0, len(labels))
	for k, v := range labels {
		attrs = append(attrs, attribute.String(k, v))
	}
	opt := metric.WithAttributes(attrs...)

	if isCounterName(name) {
		if c, err := p.counterFor(name); err == nil {
			c.Add(ctx, value, opt)
		}
		return
	}
	if h, err := p.histogramFor(name); err == nil {
		h.Record(ctx, value, opt)
	}
}

func isCounterName(name string) bool {
	for _, suffix := range []string{"count", "total", "errors", "success"} {
		if strings.HasSuffix(name, suffix) {
			return true
		}
	}
	return false
}

func (p *Provider) counterFor(name string) (metric.Float64Counter, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if c, ok := p.counters[name]; ok {
		return c, nil
	}
	c, err := p.meter.Float64Counter(name)
	if err != nil {
		return nil, fmt.Errorf("create counter %q: %w", name, err)
	}
	p.counters[name] = c
	return c, nil
}

func (p *Provider) histogramFor(name string) (metric.Float64Histogram, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if h, ok := p.histograms[name]; ok {
		return h, nil
	}
	h, err := p.meter.Float64Histogram(name)
	if err != nil {
		return nil, fmt.Errorf("create histogram %q: %w", name, err)
	}
	p.histograms[name] = h
	return h, nil
}

// otelSpan wraps a trace.Span as a core.Span.
type otelSpan struct {
	span trace.Span
}

func (s *otelSpan) End() { s.span.End() }

func (s *otelSpan) SetAttribute(key string, value interface{}) {
	switch v := value.(type) {
	case string:
		s.span.SetAttributes(attribute.String(key, v))
	case int:
		s.span.SetAttributes(attribute.Int(key, v))
	case int64:
		s.span.SetAttributes(attribute.Int64(key, v))
	case float64:
		s.span.SetAttributes(attribute.Float64(key, v))
	case bool:
		s.span.SetAttributes(attribute.Bool(key, v))
	default:
		s.span.SetAttributes(attribute.String(key, fmt.Sprintf("%v", v)))
	}
}

func (s *otelSpan) RecordError(err error) {
	s.span.RecordError(err)
}
