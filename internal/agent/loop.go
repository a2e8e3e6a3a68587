package agent

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/strandcli/strand/internal/kb"
	"github.com/strandcli/strand/internal/providers"
	"github.com/strandcli/strand/internal/sessions"
	"github.com/strandcli/strand/internal/tools"
	"github.com/strandcli/strand/internal/tracing"
)

const (
	defaultMaxIterations = 20
	storeTimeout         = 60 * time.Second
)

// Options configures a Loop.
type Options struct {
	Provider providers.Provider
	Tools    *tools.Registry

	// Model overrides the provider's configured model when set.
	Model string

	// ModelOptions is the merged model configuration passed through to the
	// provider on every request (temperature, max_tokens, top_p, num_ctx).
	ModelOptions map[string]interface{}

	// SystemPrompt is re-resolved at the start of every run so prompt file
	// and welcome text edits take effect without a restart.
	SystemPrompt func() string

	// Sessions persists the conversation when set.
	Sessions *sessions.Manager

	// KB enables retrieve-before and store-after when set.
	KB kb.Store

	Tracer        *tracing.Tracer
	MaxIterations int
	ContextWindow int
	Stream        bool
	OnEvent       func(Event)
}

// Loop drives the conversation: model calls, tool dispatch, knowledge base
// context and session persistence.
type Loop struct {
	provider      providers.Provider
	tools         *tools.Registry
	model         string
	modelOptions  map[string]interface{}
	systemPrompt  func() string
	sess          *sessions.Manager
	store         kb.Store
	tracer        *tracing.Tracer
	maxIterations int
	contextWindow int
	stream        bool
	onEvent       func(Event)

	history []providers.Message
	running atomic.Bool
}

func New(opts Options) *Loop {
	if opts.MaxIterations <= 0 {
		opts.MaxIterations = defaultMaxIterations
	}
	if opts.SystemPrompt == nil {
		opts.SystemPrompt = func() string { return "" }
	}
	if opts.OnEvent == nil {
		opts.OnEvent = func(Event) {}
	}
	if opts.Tracer == nil {
		opts.Tracer = tracing.NewTracer(nil)
	}
	return &Loop{
		provider:      opts.Provider,
		tools:         opts.Tools,
		model:         opts.Model,
		modelOptions:  opts.ModelOptions,
		systemPrompt:  opts.SystemPrompt,
		sess:          opts.Sessions,
		store:         opts.KB,
		tracer:        opts.Tracer,
		maxIterations: opts.MaxIterations,
		contextWindow: opts.ContextWindow,
		stream:        opts.Stream,
		onEvent:       opts.OnEvent,
	}
}

// SetHistory seeds the conversation, used when resuming a session.
func (l *Loop) SetHistory(msgs []providers.Message) {
	l.history = append([]providers.Message(nil), msgs...)
}

// History returns the current conversation.
func (l *Loop) History() []providers.Message {
	return l.history
}

// IsRunning reports whether a run is in progress.
func (l *Loop) IsRunning() bool { return l.running.Load() }

// Run processes one user query to completion: knowledge base retrieval,
// the model/tool iteration loop, then background conversation storage.
func (l *Loop) Run(ctx context.Context, query string) (*RunResult, error) {
	if !l.running.CompareAndSwap(false, true) {
		return nil, fmt.Errorf("agent is already running")
	}
	defer l.running.Store(false)

	traceID := tracing.NewTraceID()
	runSpanID := uuid.New()
	runStart := time.Now().UTC()

	l.retrieveContext(ctx, query)
	l.appendMessage(providers.Message{Role: "user", Content: query})

	result, err := l.iterate(ctx, traceID, runSpanID)

	status := "ok"
	errMsg := ""
	if err != nil {
		status = "error"
		errMsg = err.Error()
	}
	l.tracer.Emit(tracing.SpanData{
		ID:            runSpanID,
		TraceID:       traceID,
		SpanType:      tracing.SpanTypeRun,
		Name:          "agent_run",
		Status:        status,
		Error:         errMsg,
		InputPreview:  query,
		OutputPreview: resultPreview(result),
		StartTime:     runStart,
		EndTime:       time.Now().UTC(),
		DurationMS:    int(time.Since(runStart).Milliseconds()),
	})

	if err != nil {
		l.onEvent(Event{Type: EventError, Text: err.Error(), IsError: true})
		return nil, err
	}

	l.storeConversation(query, result)
	l.onEvent(Event{Type: EventDone})
	return result, nil
}

func (l *Loop) iterate(ctx context.Context, traceID, runSpanID uuid.UUID) (*RunResult, error) {
	sysPrompt := l.systemPrompt()
	toolDefs := l.tools.ProviderDefs()

	for iteration := 1; iteration <= l.maxIterations; iteration++ {
		l.history = pruneContextMessages(l.history, l.contextWindow)

		messages := make([]providers.Message, 0, len(l.history)+1)
		if sysPrompt != "" {
			messages = append(messages, providers.Message{Role: "system", Content: sysPrompt})
		}
		messages = append(messages, l.history...)

		resp, err := l.chat(ctx, traceID, runSpanID, providers.ChatRequest{
			Messages: messages,
			Tools:    toolDefs,
			Model:    l.model,
			Options:  l.modelOptions,
		})
		if err != nil {
			return nil, fmt.Errorf("model call failed: %w", err)
		}

		if len(resp.ToolCalls) == 0 {
			l.appendMessage(providers.Message{Role: "assistant", Content: resp.Content})
			return &RunResult{
				Response:   resp.Content,
				Reasoning:  resp.Thinking,
				Iterations: iteration,
			}, nil
		}

		l.appendMessage(providers.Message{
			Role:      "assistant",
			Content:   resp.Content,
			ToolCalls: resp.ToolCalls,
		})
		l.dispatchTools(ctx, traceID, runSpanID, resp.ToolCalls)
	}

	return nil, fmt.Errorf("no final response after %d iterations", l.maxIterations)
}

func (l *Loop) chat(ctx context.Context, traceID, parentID uuid.UUID, req providers.ChatRequest) (*providers.ChatResponse, error) {
	start := time.Now().UTC()

	var resp *providers.ChatResponse
	var err error
	if l.stream {
		resp, err = l.provider.ChatStream(ctx, req, func(chunk providers.StreamChunk) {
			if chunk.Thinking != "" {
				l.onEvent(Event{Type: EventReasoning, Text: chunk.Thinking})
			}
			if chunk.Content != "" {
				l.onEvent(Event{Type: EventModelChunk, Text: chunk.Content})
			}
		})
	} else {
		resp, err = l.provider.Chat(ctx, req)
		if err == nil && resp.Content != "" {
			l.onEvent(Event{Type: EventModelChunk, Text: resp.Content})
		}
	}

	span := tracing.SpanData{
		TraceID:      traceID,
		ParentSpanID: &parentID,
		SpanType:     tracing.SpanTypeLLM,
		Name:         "chat",
		Provider:     l.provider.Name(),
		Model:        req.Model,
		InputTokens:  estimateConversationTokens(req.Messages),
		StartTime:    start,
		EndTime:      time.Now().UTC(),
		DurationMS:   int(time.Since(start).Milliseconds()),
		Status:       "ok",
	}
	if err != nil {
		span.Status = "error"
		span.Error = err.Error()
	} else {
		span.OutputPreview = resp.Content
		span.OutputTokens = estimateTokens(resp.Content)
	}
	l.tracer.Emit(span)

	return resp, err
}

// dispatchTools executes all calls from one assistant turn concurrently and
// appends results in call order so the transcript stays deterministic.
func (l *Loop) dispatchTools(ctx context.Context, traceID, parentID uuid.UUID, calls []providers.ToolCall) {
	sessionID := ""
	if l.sess != nil {
		sessionID = l.sess.SessionID()
	}
	kbID := ""
	if l.store != nil {
		kbID = l.store.ID()
	}

	results := make([]*tools.Result, len(calls))
	g, gctx := errgroup.WithContext(ctx)
	for i, call := range calls {
		i, call := i, call
		l.onEvent(Event{Type: EventToolStart, ToolName: call.Name})
		g.Go(func() error {
			start := time.Now().UTC()
			result := l.tools.ExecuteWithContext(gctx, call.Name, call.Arguments, sessionID, kbID, nil)
			results[i] = result

			duration := time.Since(start)
			l.onEvent(Event{
				Type:     EventToolResult,
				ToolName: call.Name,
				Text:     result.ForUser,
				Duration: duration,
				IsError:  result.IsError,
			})

			status := "ok"
			errMsg := ""
			if result.IsError {
				status = "error"
				errMsg = result.ForLLM
			}
			l.tracer.Emit(tracing.SpanData{
				TraceID:       traceID,
				ParentSpanID:  &parentID,
				SpanType:      tracing.SpanTypeTool,
				Name:          call.Name,
				ToolName:      call.Name,
				ToolCallID:    call.ID,
				Status:        status,
				Error:         errMsg,
				OutputPreview: result.ForLLM,
				StartTime:     start,
				EndTime:       time.Now().UTC(),
				DurationMS:    int(duration.Milliseconds()),
			})
			return nil
		})
	}
	g.Wait()

	for i, call := range calls {
		content := ""
		if results[i] != nil {
			content = results[i].ForLLM
		}
		l.appendMessage(providers.Message{
			Role:       "tool",
			Content:    content,
			ToolCallID: call.ID,
		})
	}
}

// retrieveContext queries the knowledge base and injects matching documents
// as conversation context before the model sees the query.
func (l *Loop) retrieveContext(ctx context.Context, query string) {
	if l.store == nil {
		return
	}

	results, err := l.store.Retrieve(ctx, query, kb.RetrieveOptions{})
	if err != nil {
		slog.Warn("knowledge base retrieval failed", "kb", l.store.ID(), "error", err)
		return
	}
	if len(results) == 0 {
		return
	}

	formatted := kb.FormatResults(results)
	l.onEvent(Event{Type: EventRetrieve, Text: formatted})
	l.appendMessage(providers.Message{
		Role:    "user",
		Content: "[Knowledge base context]\n" + formatted,
	})
}

// storeConversation saves the completed exchange in the background so the
// REPL is not blocked on ingestion.
func (l *Loop) storeConversation(query string, result *RunResult) {
	if l.store == nil || result == nil {
		return
	}

	doc := kb.Document{
		ID:      kb.GenerateDocID(),
		Title:   kb.ConversationTitle(query),
		Content: kb.FormatConversation(query, result.Reasoning, result.Response),
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), storeTimeout)
		defer cancel()
		if err := l.store.StoreDocument(ctx, doc); err != nil {
			slog.Warn("failed to store conversation in knowledge base",
				"kb", l.store.ID(), "doc_id", doc.ID, "error", err)
			return
		}
		slog.Debug("stored conversation", "kb", l.store.ID(), "doc_id", doc.ID)
	}()
}

func (l *Loop) appendMessage(msg providers.Message) {
	l.history = append(l.history, msg)
	if l.sess != nil {
		if err := l.sess.Append(msg); err != nil {
			slog.Warn("failed to persist session message", "error", err)
		}
	}
}

func resultPreview(r *RunResult) string {
	if r == nil {
		return ""
	}
	return strings.TrimSpace(r.Response)
}
