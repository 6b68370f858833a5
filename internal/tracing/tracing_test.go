package tracing_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	"github.com/torosent/loadtime/internal/hook"
	"github.com/torosent/loadtime/internal/loader"
	"github.com/torosent/loadtime/internal/tracing"
)

func setupTestProvider(t *testing.T) (*tracetest.InMemoryExporter, *tracing.Provider) {
	t.Helper()
	exporter := tracetest.NewInMemoryExporter()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSyncer(exporter))
	t.Cleanup(func() {
		_ = tp.Shutdown(context.Background())
	})
	return exporter, tracing.New(tp)
}

func attrValue(attrs []attribute.KeyValue, key attribute.Key) (attribute.Value, bool) {
	for _, kv := range attrs {
		if kv.Key == key {
			return kv.Value, true
		}
	}
	return attribute.Value{}, false
}

func TestNilProviderIsNoop(t *testing.T) {
	p := tracing.New(nil)
	if p.Enabled() {
		t.Error("Enabled() = true, want false for nil provider")
	}

	// Must not panic.
	p.Listener(context.Background(), "s")(hook.Event{Name: "x", RequiredAt: time.Now()})

	var nilProvider *tracing.Provider
	_, span := nilProvider.Tracer().Start(context.Background(), "test")
	span.End()
	if span.SpanContext().IsValid() {
		t.Error("expected invalid span context from no-op tracer")
	}
}

func TestListenerRecordsSpanTimes(t *testing.T) {
	exporter, p := setupTestProvider(t)
	if !p.Enabled() {
		t.Fatal("Enabled() = false, want true")
	}

	start := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	p.Listener(context.Background(), "01SESSION")(hook.Event{
		Name:       "leaf",
		Filename:   "/app/leaf.js",
		Parent:     &loader.Module{Name: "mid"},
		RequiredAt: start,
		Duration:   25 * time.Millisecond,
	})

	spans := exporter.GetSpans()
	if len(spans) != 1 {
		t.Fatalf("expected 1 span, got %d", len(spans))
	}
	span := spans[0]
	if span.Name != "load leaf" {
		t.Errorf("span name = %q, want %q", span.Name, "load leaf")
	}
	if !span.StartTime.Equal(start) {
		t.Errorf("start = %v, want %v", span.StartTime, start)
	}
	if got := span.EndTime.Sub(span.StartTime); got != 25*time.Millisecond {
		t.Errorf("span length = %v, want 25ms", got)
	}
	if span.Status.Code != codes.Ok {
		t.Errorf("status = %v, want Ok", span.Status.Code)
	}

	if v, ok := attrValue(span.Attributes, tracing.AttrFile); !ok || v.AsString() != "/app/leaf.js" {
		t.Errorf("file attribute = %v", v.AsString())
	}
	if v, ok := attrValue(span.Attributes, tracing.AttrParent); !ok || v.AsString() != "mid" {
		t.Errorf("parent attribute = %v", v.AsString())
	}
	if v, ok := attrValue(span.Attributes, tracing.AttrSession); !ok || v.AsString() != "01SESSION" {
		t.Errorf("session attribute = %v", v.AsString())
	}
	if v, ok := attrValue(span.Attributes, tracing.AttrDurationMs); !ok || v.AsFloat64() != 25 {
		t.Errorf("duration attribute = %v", v.AsFloat64())
	}
}

func TestListenerRecordsFailure(t *testing.T) {
	exporter, p := setupTestProvider(t)

	p.Listener(context.Background(), "")(hook.Event{
		Name:       "broken",
		Filename:   "broken",
		Err:        errors.New("init failed"),
		RequiredAt: time.Now(),
		Duration:   time.Millisecond,
	})

	spans := exporter.GetSpans()
	if len(spans) != 1 {
		t.Fatalf("expected 1 span, got %d", len(spans))
	}
	if spans[0].Status.Code != codes.Error {
		t.Errorf("status = %v, want Error", spans[0].Status.Code)
	}
	if spans[0].Status.Description != "init failed" {
		t.Errorf("status description = %q", spans[0].Status.Description)
	}
	if len(spans[0].Events) == 0 {
		t.Error("expected recorded error event")
	}
	if _, ok := attrValue(spans[0].Attributes, tracing.AttrSession); ok {
		t.Error("session attribute set for empty session")
	}
}
