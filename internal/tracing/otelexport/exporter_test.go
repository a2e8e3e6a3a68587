package otelexport

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/trace"

	"github.com/strandcli/strand/internal/tracing"
)

func TestUUIDToTraceID(t *testing.T) {
	id := uuid.MustParse("550e8400-e29b-41d4-a716-446655440000")
	tid := uuidToTraceID(id)
	if tid == (trace.TraceID{}) {
		t.Error("expected non-zero trace ID")
	}
	if len(tid) != 16 {
		t.Errorf("expected 16 bytes, got %d", len(tid))
	}
}

func TestUUIDToSpanID(t *testing.T) {
	id := uuid.MustParse("550e8400-e29b-41d4-a716-446655440000")
	sid := uuidToSpanID(id)
	if sid == (trace.SpanID{}) {
		t.Error("expected non-zero span ID")
	}
	// SpanID is 8 bytes, extracted from last 8 bytes of UUID
	for i := 0; i < 8; i++ {
		if sid[i] != id[8+i] {
			t.Errorf("byte %d: expected %02x, got %02x", i, id[8+i], sid[i])
		}
	}
}

func TestUUIDToSpanID_DifferentUUIDs(t *testing.T) {
	id1 := uuid.MustParse("550e8400-e29b-41d4-a716-446655440000")
	id2 := uuid.MustParse("550e8400-e29b-41d4-b827-557766550001")
	if uuidToSpanID(id1) == uuidToSpanID(id2) {
		t.Error("different UUIDs should produce different span IDs")
	}
}

func TestNew_EmptyEndpoint(t *testing.T) {
	_, err := New(nil, Config{})
	if err == nil {
		t.Error("expected error for empty endpoint")
	}
}

func TestExporter_ExportSpans_NilExporter(t *testing.T) {
	// Should not panic
	var exp *Exporter
	exp.ExportSpans(nil, []tracing.SpanData{{
		ID:        uuid.New(),
		TraceID:   uuid.New(),
		SpanType:  tracing.SpanTypeLLM,
		Name:      "test",
		StartTime: time.Now(),
	}})
}

func TestExporter_Shutdown_NilExporter(t *testing.T) {
	var exp *Exporter
	if err := exp.Shutdown(nil); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
}
