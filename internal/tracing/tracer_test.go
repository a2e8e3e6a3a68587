package tracing

import (
	"context"
	"strings"
	"sync"
	"testing"
)

type captureExporter struct {
	mu       sync.Mutex
	spans    []SpanData
	shutdown bool
}

func (c *captureExporter) ExportSpans(ctx context.Context, spans []SpanData) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.spans = append(c.spans, spans...)
}

func (c *captureExporter) Shutdown(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.shutdown = true
	return nil
}

func TestTracer_DisabledIsNoOp(t *testing.T) {
	tr := NewTracer(nil)
	if tr.Enabled() {
		t.Error("tracer without exporter should be disabled")
	}
	// None of these should panic or block.
	tr.Start()
	tr.Emit(SpanData{SpanType: SpanTypeLLM, Name: "x"})
	tr.Stop()
}

func TestTracer_NilReceiver(t *testing.T) {
	var tr *Tracer
	if tr.Enabled() {
		t.Error("nil tracer should be disabled")
	}
}

func TestTracer_FlushOnStop(t *testing.T) {
	exp := &captureExporter{}
	tr := NewTracer(exp)
	tr.Start()

	traceID := NewTraceID()
	tr.Emit(SpanData{TraceID: traceID, SpanType: SpanTypeRun, Name: "agent_run"})
	tr.Emit(SpanData{TraceID: traceID, SpanType: SpanTypeTool, Name: "shell", ToolName: "shell"})
	tr.Stop()

	exp.mu.Lock()
	defer exp.mu.Unlock()
	if len(exp.spans) != 2 {
		t.Fatalf("expected 2 spans, got %d", len(exp.spans))
	}
	if exp.spans[0].ID == exp.spans[1].ID {
		t.Error("spans should get distinct IDs")
	}
	if exp.spans[0].StartTime.IsZero() {
		t.Error("start time should be defaulted")
	}
	if !exp.shutdown {
		t.Error("exporter should be shut down")
	}
}

func TestTracer_PreviewTruncation(t *testing.T) {
	exp := &captureExporter{}
	tr := NewTracer(exp)
	tr.Start()

	tr.Emit(SpanData{
		SpanType:      SpanTypeLLM,
		Name:          "chat",
		InputPreview:  strings.Repeat("i", 2000),
		OutputPreview: strings.Repeat("o", 2000),
	})
	tr.Stop()

	exp.mu.Lock()
	defer exp.mu.Unlock()
	if len(exp.spans) != 1 {
		t.Fatalf("expected 1 span, got %d", len(exp.spans))
	}
	if len(exp.spans[0].InputPreview) > previewMaxLen+3 {
		t.Errorf("input preview not truncated: %d bytes", len(exp.spans[0].InputPreview))
	}
	if !strings.HasSuffix(exp.spans[0].OutputPreview, "...") {
		t.Error("truncated preview should end with ellipsis")
	}
}

func TestTruncatePreview_UTF8Boundary(t *testing.T) {
	s := strings.Repeat("é", 400) // 2 bytes each
	out := truncatePreview(s)
	if !strings.HasSuffix(out, "...") {
		t.Error("expected truncation")
	}
	for _, r := range out {
		if r == '�' {
			t.Fatal("truncation split a rune")
		}
	}
}
