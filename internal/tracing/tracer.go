package tracing

import (
	"context"
	"log/slog"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
)

const (
	defaultFlushInterval = 5 * time.Second
	defaultBufferSize    = 1000
	previewMaxLen        = 500
)

// Span types emitted by the agent loop.
const (
	SpanTypeRun  = "run"
	SpanTypeLLM  = "llm_call"
	SpanTypeTool = "tool_call"
)

// SpanData is one unit of tracing output: an agent run, a model call or a
// tool call.
type SpanData struct {
	ID           uuid.UUID
	TraceID      uuid.UUID
	ParentSpanID *uuid.UUID
	SpanType     string
	Name         string

	Model        string
	Provider     string
	InputTokens  int
	OutputTokens int
	FinishReason string

	ToolName   string
	ToolCallID string

	Status        string // "ok" or "error"
	Error         string
	InputPreview  string
	OutputPreview string

	StartTime  time.Time
	EndTime    time.Time
	DurationMS int
}

// SpanExporter receives batches of spans. Keeping this as an interface lets
// the OTel dependency live in a sub-package.
type SpanExporter interface {
	ExportSpans(ctx context.Context, spans []SpanData)
	Shutdown(ctx context.Context) error
}

// Tracer buffers spans in memory and periodically flushes them to the
// attached exporter. A Tracer without an exporter is a cheap no-op, so call
// sites never need nil checks.
type Tracer struct {
	exporter SpanExporter

	spanCh chan SpanData
	stopCh chan struct{}
	wg     sync.WaitGroup

	started bool
	mu      sync.Mutex
}

// NewTracer creates a tracer. exporter may be nil to disable tracing.
func NewTracer(exporter SpanExporter) *Tracer {
	return &Tracer{
		exporter: exporter,
		spanCh:   make(chan SpanData, defaultBufferSize),
		stopCh:   make(chan struct{}),
	}
}

// Enabled reports whether spans will actually go anywhere.
func (t *Tracer) Enabled() bool {
	return t != nil && t.exporter != nil
}

// Start begins the background flush loop. No-op when disabled.
func (t *Tracer) Start() {
	if !t.Enabled() {
		return
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.started {
		return
	}
	t.started = true
	t.wg.Add(1)
	go t.flushLoop()
	slog.Debug("tracing started")
}

// Stop drains remaining spans and shuts the exporter down.
func (t *Tracer) Stop() {
	if !t.Enabled() {
		return
	}
	t.mu.Lock()
	if !t.started {
		t.mu.Unlock()
		return
	}
	t.started = false
	t.mu.Unlock()

	close(t.stopCh)
	t.wg.Wait()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := t.exporter.Shutdown(ctx); err != nil {
		slog.Warn("span exporter shutdown failed", "error", err)
	}
}

// NewTraceID returns a fresh trace ID for a run.
func NewTraceID() uuid.UUID { return uuid.New() }

// Emit enqueues a span. Non-blocking: drops the span when the buffer is full.
func (t *Tracer) Emit(span SpanData) {
	if !t.Enabled() {
		return
	}
	if span.ID == uuid.Nil {
		span.ID = uuid.New()
	}
	if span.StartTime.IsZero() {
		span.StartTime = time.Now().UTC()
	}
	span.InputPreview = truncatePreview(span.InputPreview)
	span.OutputPreview = truncatePreview(span.OutputPreview)

	select {
	case t.spanCh <- span:
	default:
		slog.Warn("span buffer full, dropping span", "span_type", span.SpanType, "name", span.Name)
	}
}

func (t *Tracer) flushLoop() {
	defer t.wg.Done()

	ticker := time.NewTicker(defaultFlushInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			t.flush()
		case <-t.stopCh:
			t.flush()
			return
		}
	}
}

func (t *Tracer) flush() {
	var spans []SpanData
	for {
		select {
		case span := <-t.spanCh:
			spans = append(spans, span)
		default:
			if len(spans) == 0 {
				return
			}
			ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			t.exporter.ExportSpans(ctx, spans)
			cancel()
			slog.Debug("flushed spans", "count", len(spans))
			return
		}
	}
}

// truncatePreview sanitizes and truncates a string to previewMaxLen bytes.
func truncatePreview(s string) string {
	s = strings.ToValidUTF8(s, "")
	if len(s) <= previewMaxLen {
		return s
	}
	maxLen := previewMaxLen
	for maxLen > 0 && !utf8.RuneStart(s[maxLen]) {
		maxLen--
	}
	return s[:maxLen] + "..."
}
