package emit

import (
	"context"
	"testing"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
	"go.opentelemetry.io/otel/trace"
)

func attributeMap(attrs []attribute.KeyValue) map[string]any {
	m := make(map[string]any, len(attrs))
	for _, a := range attrs {
		m[string(a.Key)] = a.Value.AsInterface()
	}
	return m
}

func newTestTracer(t *testing.T) (trace.Tracer, *tracetest.InMemoryExporter) {
	t.Helper()
	exporter := tracetest.NewInMemoryExporter()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSyncer(exporter))
	t.Cleanup(func() { _ = tp.Shutdown(context.Background()) })
	return tp.Tracer("test"), exporter
}

func TestOTelEmitterNodeStartedAttributes(t *testing.T) {
	tracer, exporter := newTestTracer(t)
	e := NewOTelEmitter(tracer)

	e.Emit(NodeStarted{
		RunID: "run_1", NodeID: "n1", StarID: "star.worker",
		StarType: "worker", NodeIndex: 2,
	})

	spans := exporter.GetSpans()
	if len(spans) != 1 {
		t.Fatalf("expected 1 span, got %d", len(spans))
	}
	if spans[0].Name != "node_started" {
		t.Fatalf("span name = %q, want node_started", spans[0].Name)
	}
	attrs := attributeMap(spans[0].Attributes)
	if attrs["node_id"] != "n1" || attrs["star_id"] != "star.worker" {
		t.Fatalf("unexpected attrs: %v", attrs)
	}
	if attrs["node_index"] != int64(2) {
		t.Fatalf("node_index = %v, want 2", attrs["node_index"])
	}
}

func TestOTelEmitterNodeFailedSetsErrorStatus(t *testing.T) {
	tracer, exporter := newTestTracer(t)
	e := NewOTelEmitter(tracer)

	e.Emit(NodeFailed{RunID: "run_1", NodeID: "n1", Error: "binding missing"})

	spans := exporter.GetSpans()
	if len(spans) != 1 {
		t.Fatalf("expected 1 span, got %d", len(spans))
	}
	if spans[0].Status.Code != codes.Error {
		t.Fatalf("status = %v, want Error", spans[0].Status.Code)
	}
	if spans[0].Status.Description != "binding missing" {
		t.Fatalf("status description = %q", spans[0].Status.Description)
	}
}

func TestOTelEmitterRunCompletedNoErrorStatus(t *testing.T) {
	tracer, exporter := newTestTracer(t)
	e := NewOTelEmitter(tracer)

	e.Emit(RunCompleted{RunID: "run_1", DurationMS: 10})

	spans := exporter.GetSpans()
	if len(spans) != 1 {
		t.Fatalf("expected 1 span, got %d", len(spans))
	}
	if spans[0].Status.Code == codes.Error {
		t.Fatalf("RunCompleted must not set error status")
	}
}

func TestOTelEmitterUnknownEventHasNoAttributes(t *testing.T) {
	tracer, exporter := newTestTracer(t)
	e := NewOTelEmitter(tracer)

	e.Emit("not a known event type")

	spans := exporter.GetSpans()
	if len(spans) != 1 {
		t.Fatalf("expected 1 span, got %d", len(spans))
	}
	if len(spans[0].Attributes) != 0 {
		t.Fatalf("expected no attributes for unknown event, got %v", spans[0].Attributes)
	}
}
