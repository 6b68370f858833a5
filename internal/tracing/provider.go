// Package tracing mirrors load events as OpenTelemetry spans.
package tracing

import (
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"
)

// InstrumentationName identifies the tracer that records load spans.
const InstrumentationName = "github.com/torosent/loadtime"

// Provider wraps a caller-supplied TracerProvider.
type Provider struct {
	tracer trace.Tracer
}

// New returns a Provider backed by tp. A nil tp yields a no-op provider,
// so load spans cost nothing unless the host program configures tracing.
func New(tp trace.TracerProvider) *Provider {
	if tp == nil {
		return &Provider{}
	}
	return &Provider{tracer: tp.Tracer(InstrumentationName)}
}

// Tracer returns the configured tracer. Returns a no-op tracer if tracing is disabled.
func (p *Provider) Tracer() trace.Tracer {
	if p == nil || p.tracer == nil {
		return noop.NewTracerProvider().Tracer(InstrumentationName)
	}
	return p.tracer
}

// Enabled reports whether spans are sent anywhere.
func (p *Provider) Enabled() bool {
	return p != nil && p.tracer != nil
}
