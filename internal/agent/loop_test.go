package agent

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/strandcli/strand/internal/kb"
	"github.com/strandcli/strand/internal/providers"
	"github.com/strandcli/strand/internal/tools"
)

// scriptedProvider returns canned responses in order and records the
// requests it received.
type scriptedProvider struct {
	mu        sync.Mutex
	responses []*providers.ChatResponse
	err       error
	requests  []providers.ChatRequest
	block     chan struct{}
}

func (p *scriptedProvider) Name() string { return "scripted" }

func (p *scriptedProvider) Chat(ctx context.Context, req providers.ChatRequest) (*providers.ChatResponse, error) {
	if p.block != nil {
		<-p.block
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	p.requests = append(p.requests, req)
	if p.err != nil {
		return nil, p.err
	}
	if len(p.responses) == 0 {
		return &providers.ChatResponse{Content: "done"}, nil
	}
	resp := p.responses[0]
	p.responses = p.responses[1:]
	return resp, nil
}

func (p *scriptedProvider) ChatStream(ctx context.Context, req providers.ChatRequest, onChunk func(providers.StreamChunk)) (*providers.ChatResponse, error) {
	resp, err := p.Chat(ctx, req)
	if err != nil {
		return nil, err
	}
	if resp.Content != "" {
		onChunk(providers.StreamChunk{Content: resp.Content})
	}
	onChunk(providers.StreamChunk{Done: true})
	return resp, nil
}

type echoTool struct {
	mu    sync.Mutex
	calls []map[string]interface{}
}

func (t *echoTool) Name() string        { return "echo" }
func (t *echoTool) Description() string { return "echoes input" }
func (t *echoTool) Parameters() map[string]interface{} {
	return map[string]interface{}{"type": "object", "properties": map[string]interface{}{}}
}

func (t *echoTool) Execute(ctx context.Context, args map[string]interface{}) *tools.Result {
	t.mu.Lock()
	t.calls = append(t.calls, args)
	t.mu.Unlock()
	text, _ := args["text"].(string)
	return &tools.Result{ForLLM: "echo: " + text, ForUser: "echo: " + text}
}

type memStore struct {
	mu      sync.Mutex
	results []kb.Result
	stored  chan kb.Document
	err     error
}

func (s *memStore) ID() string { return "mem-kb" }

func (s *memStore) Retrieve(ctx context.Context, query string, opts kb.RetrieveOptions) ([]kb.Result, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.results, s.err
}

func (s *memStore) StoreDocument(ctx context.Context, doc kb.Document) error {
	if s.stored != nil {
		s.stored <- doc
	}
	return nil
}

func newTestLoop(p providers.Provider, opts Options) (*Loop, *[]Event) {
	var events []Event
	var mu sync.Mutex
	opts.Provider = p
	if opts.Tools == nil {
		opts.Tools = tools.NewRegistry()
	}
	opts.OnEvent = func(e Event) {
		mu.Lock()
		events = append(events, e)
		mu.Unlock()
	}
	return New(opts), &events
}

func TestRun_SimpleResponse(t *testing.T) {
	p := &scriptedProvider{responses: []*providers.ChatResponse{
		{Content: "hello there"},
	}}
	loop, events := newTestLoop(p, Options{})

	result, err := loop.Run(context.Background(), "hi")
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if result.Response != "hello there" {
		t.Errorf("unexpected response %q", result.Response)
	}
	if result.Iterations != 1 {
		t.Errorf("expected 1 iteration, got %d", result.Iterations)
	}

	hist := loop.History()
	if len(hist) != 2 {
		t.Fatalf("expected 2 history messages, got %d", len(hist))
	}
	if hist[0].Role != "user" || hist[0].Content != "hi" {
		t.Errorf("unexpected user message %+v", hist[0])
	}
	if hist[1].Role != "assistant" || hist[1].Content != "hello there" {
		t.Errorf("unexpected assistant message %+v", hist[1])
	}

	var sawChunk, sawDone bool
	for _, e := range *events {
		switch e.Type {
		case EventModelChunk:
			sawChunk = true
		case EventDone:
			sawDone = true
		}
	}
	if !sawChunk || !sawDone {
		t.Errorf("expected model_chunk and done events, got %+v", *events)
	}
}

func TestRun_SystemPromptResolvedPerRun(t *testing.T) {
	prompt := "first prompt"
	p := &scriptedProvider{responses: []*providers.ChatResponse{
		{Content: "a"}, {Content: "b"},
	}}
	loop, _ := newTestLoop(p, Options{
		SystemPrompt: func() string { return prompt },
	})

	if _, err := loop.Run(context.Background(), "one"); err != nil {
		t.Fatal(err)
	}
	prompt = "second prompt"
	if _, err := loop.Run(context.Background(), "two"); err != nil {
		t.Fatal(err)
	}

	if len(p.requests) != 2 {
		t.Fatalf("expected 2 requests, got %d", len(p.requests))
	}
	if p.requests[0].Messages[0].Role != "system" || p.requests[0].Messages[0].Content != "first prompt" {
		t.Errorf("first request system prompt: %+v", p.requests[0].Messages[0])
	}
	if p.requests[1].Messages[0].Content != "second prompt" {
		t.Errorf("second request should see updated prompt, got %q", p.requests[1].Messages[0].Content)
	}
}

func TestRun_ModelConfigReachesProvider(t *testing.T) {
	p := &scriptedProvider{responses: []*providers.ChatResponse{
		{Content: "ok"},
	}}
	loop, _ := newTestLoop(p, Options{
		Model: "claude-x",
		ModelOptions: map[string]interface{}{
			"temperature": 0.3,
			"max_tokens":  512,
		},
	})

	if _, err := loop.Run(context.Background(), "hi"); err != nil {
		t.Fatal(err)
	}

	if len(p.requests) != 1 {
		t.Fatalf("expected 1 request, got %d", len(p.requests))
	}
	req := p.requests[0]
	if req.Model != "claude-x" {
		t.Errorf("model not threaded onto the request: %q", req.Model)
	}
	if req.Options == nil {
		t.Fatal("model options missing from the request")
	}
	if req.Options["temperature"] != 0.3 || req.Options["max_tokens"] != 512 {
		t.Errorf("options not passed through: %+v", req.Options)
	}
}

func TestRun_ToolDispatch(t *testing.T) {
	echo := &echoTool{}
	reg := tools.NewRegistry()
	reg.Register(echo)

	p := &scriptedProvider{responses: []*providers.ChatResponse{
		{ToolCalls: []providers.ToolCall{{
			ID:        "call-1",
			Name:      "echo",
			Arguments: map[string]interface{}{"text": "ping"},
		}}},
		{Content: "the tool said ping"},
	}}
	loop, events := newTestLoop(p, Options{Tools: reg})

	result, err := loop.Run(context.Background(), "use the tool")
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if result.Iterations != 2 {
		t.Errorf("expected 2 iterations, got %d", result.Iterations)
	}
	if len(echo.calls) != 1 {
		t.Fatalf("expected 1 tool call, got %d", len(echo.calls))
	}

	hist := loop.History()
	// user, assistant(tool call), tool result, assistant final
	if len(hist) != 4 {
		t.Fatalf("expected 4 history messages, got %d", len(hist))
	}
	if hist[2].Role != "tool" || hist[2].ToolCallID != "call-1" {
		t.Errorf("unexpected tool message %+v", hist[2])
	}
	if !strings.Contains(hist[2].Content, "echo: ping") {
		t.Errorf("tool message should carry tool output, got %q", hist[2].Content)
	}

	var sawStart, sawResult bool
	for _, e := range *events {
		if e.Type == EventToolStart && e.ToolName == "echo" {
			sawStart = true
		}
		if e.Type == EventToolResult && e.ToolName == "echo" {
			sawResult = true
			if !strings.Contains(e.Text, "echo: ping") {
				t.Errorf("tool result event should carry the user-facing output, got %q", e.Text)
			}
		}
	}
	if !sawStart || !sawResult {
		t.Error("expected tool_start and tool_result events")
	}
}

func TestRun_ParallelToolCallsKeepOrder(t *testing.T) {
	echo := &echoTool{}
	reg := tools.NewRegistry()
	reg.Register(echo)

	p := &scriptedProvider{responses: []*providers.ChatResponse{
		{ToolCalls: []providers.ToolCall{
			{ID: "c1", Name: "echo", Arguments: map[string]interface{}{"text": "one"}},
			{ID: "c2", Name: "echo", Arguments: map[string]interface{}{"text": "two"}},
			{ID: "c3", Name: "echo", Arguments: map[string]interface{}{"text": "three"}},
		}},
		{Content: "all done"},
	}}
	loop, _ := newTestLoop(p, Options{Tools: reg})

	if _, err := loop.Run(context.Background(), "go"); err != nil {
		t.Fatal(err)
	}

	hist := loop.History()
	// user, assistant, 3 tool results, assistant final
	if len(hist) != 6 {
		t.Fatalf("expected 6 history messages, got %d", len(hist))
	}
	want := []struct{ id, text string }{
		{"c1", "echo: one"}, {"c2", "echo: two"}, {"c3", "echo: three"},
	}
	for i, w := range want {
		msg := hist[2+i]
		if msg.ToolCallID != w.id {
			t.Errorf("result %d: expected call ID %s, got %s", i, w.id, msg.ToolCallID)
		}
		if !strings.Contains(msg.Content, w.text) {
			t.Errorf("result %d: expected %q, got %q", i, w.text, msg.Content)
		}
	}
}

func TestRun_MaxIterations(t *testing.T) {
	echo := &echoTool{}
	reg := tools.NewRegistry()
	reg.Register(echo)

	// Always asks for a tool, never finishes.
	var responses []*providers.ChatResponse
	for i := 0; i < 10; i++ {
		responses = append(responses, &providers.ChatResponse{
			ToolCalls: []providers.ToolCall{{
				ID: fmt.Sprintf("c%d", i), Name: "echo",
				Arguments: map[string]interface{}{"text": "again"},
			}},
		})
	}
	p := &scriptedProvider{responses: responses}
	loop, _ := newTestLoop(p, Options{Tools: reg, MaxIterations: 3})

	_, err := loop.Run(context.Background(), "loop forever")
	if err == nil {
		t.Fatal("expected iteration limit error")
	}
	if !strings.Contains(err.Error(), "3 iterations") {
		t.Errorf("unexpected error: %v", err)
	}
	if len(echo.calls) != 3 {
		t.Errorf("expected 3 tool calls before giving up, got %d", len(echo.calls))
	}
}

func TestRun_ModelError(t *testing.T) {
	p := &scriptedProvider{err: fmt.Errorf("backend unavailable")}
	loop, events := newTestLoop(p, Options{})

	_, err := loop.Run(context.Background(), "hi")
	if err == nil {
		t.Fatal("expected error")
	}
	if !strings.Contains(err.Error(), "backend unavailable") {
		t.Errorf("unexpected error: %v", err)
	}

	var sawError bool
	for _, e := range *events {
		if e.Type == EventError && e.IsError {
			sawError = true
		}
	}
	if !sawError {
		t.Error("expected error event")
	}
}

func TestRun_KnowledgeBaseContext(t *testing.T) {
	store := &memStore{
		results: []kb.Result{{Content: "paris is the capital of france", Score: 0.92}},
		stored:  make(chan kb.Document, 1),
	}
	p := &scriptedProvider{responses: []*providers.ChatResponse{
		{Content: "Paris."},
	}}
	loop, events := newTestLoop(p, Options{KB: store})

	if _, err := loop.Run(context.Background(), "capital of france?"); err != nil {
		t.Fatal(err)
	}

	hist := loop.History()
	if len(hist) != 3 {
		t.Fatalf("expected context + user + assistant, got %d messages", len(hist))
	}
	if !strings.Contains(hist[0].Content, "[Knowledge base context]") {
		t.Errorf("expected injected context, got %q", hist[0].Content)
	}
	if !strings.Contains(hist[0].Content, "paris is the capital") {
		t.Errorf("context should carry retrieved content, got %q", hist[0].Content)
	}

	var sawRetrieve bool
	for _, e := range *events {
		if e.Type == EventRetrieve {
			sawRetrieve = true
		}
	}
	if !sawRetrieve {
		t.Error("expected retrieve event")
	}

	select {
	case doc := <-store.stored:
		if doc.ID == "" || doc.Title == "" {
			t.Errorf("stored document missing metadata: %+v", doc)
		}
		if !strings.Contains(doc.Content, "Paris.") {
			t.Errorf("stored document should contain the response, got %q", doc.Content)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("conversation was not stored")
	}
}

func TestRun_RetrieveErrorDoesNotAbort(t *testing.T) {
	store := &memStore{err: fmt.Errorf("kb offline")}
	p := &scriptedProvider{responses: []*providers.ChatResponse{
		{Content: "fine without context"},
	}}
	loop, _ := newTestLoop(p, Options{KB: store})

	result, err := loop.Run(context.Background(), "hello")
	if err != nil {
		t.Fatalf("retrieval failure should not abort the run: %v", err)
	}
	if result.Response != "fine without context" {
		t.Errorf("unexpected response %q", result.Response)
	}
}

func TestRun_RejectsConcurrentRuns(t *testing.T) {
	block := make(chan struct{})
	p := &scriptedProvider{
		responses: []*providers.ChatResponse{{Content: "slow"}},
		block:     block,
	}
	loop, _ := newTestLoop(p, Options{})

	done := make(chan error, 1)
	go func() {
		_, err := loop.Run(context.Background(), "first")
		done <- err
	}()

	// Wait until the first run is in flight.
	deadline := time.After(2 * time.Second)
	for !loop.IsRunning() {
		select {
		case <-deadline:
			t.Fatal("first run never started")
		default:
			time.Sleep(time.Millisecond)
		}
	}

	if _, err := loop.Run(context.Background(), "second"); err == nil {
		t.Error("expected concurrent run to be rejected")
	}

	close(block)
	if err := <-done; err != nil {
		t.Fatalf("first run failed: %v", err)
	}
}

func TestSetHistory_SeedsResume(t *testing.T) {
	p := &scriptedProvider{responses: []*providers.ChatResponse{
		{Content: "I remember"},
	}}
	loop, _ := newTestLoop(p, Options{})
	loop.SetHistory([]providers.Message{
		{Role: "user", Content: "my name is ada"},
		{Role: "assistant", Content: "nice to meet you"},
	})

	if _, err := loop.Run(context.Background(), "what is my name?"); err != nil {
		t.Fatal(err)
	}

	req := p.requests[0]
	if len(req.Messages) != 3 {
		t.Fatalf("expected seeded history in request, got %d messages", len(req.Messages))
	}
	if req.Messages[0].Content != "my name is ada" {
		t.Errorf("unexpected first message %+v", req.Messages[0])
	}
}
