package tracing

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/torosent/loadtime/internal/hook"
)

// Attribute keys set on every load span.
const (
	AttrUnit       = attribute.Key("loadtime.unit")
	AttrFile       = attribute.Key("loadtime.file")
	AttrParent     = attribute.Key("loadtime.parent")
	AttrDurationMs = attribute.Key("loadtime.duration_ms")
	AttrSession    = attribute.Key("loadtime.session")
)

// Listener returns a hook.Listener that records each load as a span whose
// start and end match the measured call. Events arrive after the load
// completed, so spans carry explicit timestamps and are not nested.
func (p *Provider) Listener(ctx context.Context, session string) hook.Listener {
	tracer := p.Tracer()
	return func(ev hook.Event) {
		_, span := StartLoadSpan(ctx, tracer, ev)
		if session != "" {
			span.SetAttributes(AttrSession.String(session))
		}
		EndSpan(span, ev)
	}
}

// StartLoadSpan starts a span for ev at the time the load was requested.
func StartLoadSpan(ctx context.Context, tracer trace.Tracer, ev hook.Event) (context.Context, trace.Span) {
	ctx, span := tracer.Start(ctx, "load "+ev.Name,
		trace.WithSpanKind(trace.SpanKindInternal),
		trace.WithTimestamp(ev.RequiredAt),
	)
	span.SetAttributes(
		AttrUnit.String(ev.Name),
		AttrFile.String(ev.Filename),
	)
	if ev.Parent != nil && ev.Parent.Name != "" {
		span.SetAttributes(AttrParent.String(ev.Parent.Name))
	}
	return ctx, span
}

// EndSpan finishes a load span, recording error status if the load failed.
func EndSpan(span trace.Span, ev hook.Event, attrs ...attribute.KeyValue) {
	span.SetAttributes(AttrDurationMs.Float64(float64(ev.Duration.Microseconds()) / 1000))
	if len(attrs) > 0 {
		span.SetAttributes(attrs...)
	}
	if ev.Err != nil {
		span.RecordError(ev.Err)
		span.SetStatus(codes.Error, ev.Err.Error())
	} else {
		span.SetStatus(codes.Ok, "")
	}
	span.End(trace.WithTimestamp(ev.RequiredAt.Add(ev.Duration)))
}
