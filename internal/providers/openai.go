package providers

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// OpenAIProvider talks to any server implementing the OpenAI Chat
// Completions wire format (OpenAI, OpenRouter, vLLM, llama.cpp, LM Studio).
// The provider name and base URL come from model config, so a single
// implementation covers every compatible endpoint.
type OpenAIProvider struct {
	name    string
	apiKey  string
	apiBase string
	model   string
	client  *http.Client
}

func NewOpenAIProvider(name, apiKey, apiBase, defaultModel string) *OpenAIProvider {
	return &OpenAIProvider{
		name:    name,
		apiKey:  apiKey,
		apiBase: strings.TrimRight(apiBase, "/"),
		model:   defaultModel,
		client:  &http.Client{Timeout: 5 * time.Minute},
	}
}

func (p *OpenAIProvider) Name() string { return p.name }

func (p *OpenAIProvider) Chat(ctx context.Context, req ChatRequest) (*ChatResponse, error) {
	body, err := p.do(ctx, req, false)
	if err != nil {
		return nil, err
	}
	defer body.Close()

	var wire oaResponse
	if err := json.NewDecoder(body).Decode(&wire); err != nil {
		return nil, fmt.Errorf("%s: decode response: %w", p.name, err)
	}
	if len(wire.Choices) == 0 {
		return &ChatResponse{}, nil
	}

	msg := wire.Choices[0].Message
	resp := &ChatResponse{
		Content:  msg.Content,
		Thinking: msg.ReasoningContent,
	}
	for _, tc := range msg.ToolCalls {
		call, err := decodeToolCall(tc)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", p.name, err)
		}
		resp.ToolCalls = append(resp.ToolCalls, call)
	}
	return resp, nil
}

// ChatStream reads the SSE stream, invoking onChunk per delta. Tool calls
// arrive as incremental fragments keyed by index: the first fragment carries
// the id and function name, later fragments append argument text.
func (p *OpenAIProvider) ChatStream(ctx context.Context, req ChatRequest, onChunk func(StreamChunk)) (*ChatResponse, error) {
	body, err := p.do(ctx, req, true)
	if err != nil {
		return nil, err
	}
	defer body.Close()

	var (
		content  strings.Builder
		thinking strings.Builder
		partials []oaPartialCall
	)

	scanner := bufio.NewScanner(body)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if !strings.HasPrefix(line, "data:") {
			continue
		}
		data := strings.TrimSpace(strings.TrimPrefix(line, "data:"))
		if data == "[DONE]" {
			break
		}

		var chunk oaStreamChunk
		if err := json.Unmarshal([]byte(data), &chunk); err != nil {
			return nil, fmt.Errorf("%s: parse stream chunk: %w", p.name, err)
		}
		if len(chunk.Choices) == 0 {
			continue
		}
		delta := chunk.Choices[0].Delta

		if delta.ReasoningContent != "" {
			thinking.WriteString(delta.ReasoningContent)
			if onChunk != nil {
				onChunk(StreamChunk{Thinking: delta.ReasoningContent})
			}
		}
		if delta.Content != "" {
			content.WriteString(delta.Content)
			if onChunk != nil {
				onChunk(StreamChunk{Content: delta.Content})
			}
		}
		for _, tc := range delta.ToolCalls {
			for len(partials) <= tc.Index {
				partials = append(partials, oaPartialCall{})
			}
			part := &partials[tc.Index]
			if tc.ID != "" {
				part.id = tc.ID
			}
			if tc.Function != nil {
				if tc.Function.Name != "" {
					part.name = tc.Function.Name
				}
				part.args.WriteString(tc.Function.Arguments)
			}
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("%s: read stream: %w", p.name, err)
	}
	if onChunk != nil {
		onChunk(StreamChunk{Done: true})
	}

	resp := &ChatResponse{
		Content:  content.String(),
		Thinking: thinking.String(),
	}
	for _, part := range partials {
		args := map[string]interface{}{}
		if s := part.args.String(); s != "" {
			if err := json.Unmarshal([]byte(s), &args); err != nil {
				return nil, fmt.Errorf("%s: tool call %s arguments: %w", p.name, part.name, err)
			}
		}
		resp.ToolCalls = append(resp.ToolCalls, ToolCall{ID: part.id, Name: part.name, Arguments: args})
	}
	return resp, nil
}

func (p *OpenAIProvider) do(ctx context.Context, req ChatRequest, stream bool) (io.ReadCloser, error) {
	model := req.Model
	if model == "" {
		model = p.model
	}
	wire := oaRequest{
		Model:    model,
		Messages: toWireMessages(req.Messages),
		Stream:   stream,
	}
	for _, t := range CleanToolSchemas(p.name, req.Tools) {
		wire.Tools = append(wire.Tools, oaTool{
			Type: "function",
			Function: oaToolFunction{
				Name:        t.Function.Name,
				Description: t.Function.Description,
				Parameters:  t.Function.Parameters,
			},
		})
	}
	if v, ok := optInt(req.Options, "max_tokens"); ok {
		wire.MaxTokens = v
	}
	if v, ok := optFloat(req.Options, "temperature"); ok {
		wire.Temperature = &v
	}
	if v, ok := optFloat(req.Options, "top_p"); ok {
		wire.TopP = &v
	}

	payload, err := json.Marshal(wire)
	if err != nil {
		return nil, fmt.Errorf("%s: marshal request: %w", p.name, err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost,
		p.apiBase+"/chat/completions", bytes.NewReader(payload))
	if err != nil {
		return nil, err
	}
	httpReq.Header.Set("Content-Type", "application/json")
	if p.apiKey != "" {
		httpReq.Header.Set("Authorization", "Bearer "+p.apiKey)
	}
	if stream {
		httpReq.Header.Set("Accept", "text/event-stream")
	}

	httpResp, err := p.client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("%s: request: %w", p.name, err)
	}
	if httpResp.StatusCode != http.StatusOK {
		defer httpResp.Body.Close()
		detail, _ := io.ReadAll(io.LimitReader(httpResp.Body, 4096))
		return nil, fmt.Errorf("%s: HTTP %d: %s", p.name, httpResp.StatusCode, strings.TrimSpace(string(detail)))
	}
	return httpResp.Body, nil
}

// toWireMessages converts internal messages to the wire format. Assistant
// tool calls are re-encoded with JSON-string arguments as the API expects.
func toWireMessages(messages []Message) []oaMessage {
	out := make([]oaMessage, 0, len(messages))
	for _, m := range messages {
		wm := oaMessage{Role: m.Role, Content: m.Content, ToolCallID: m.ToolCallID}
		for _, tc := range m.ToolCalls {
			args, _ := json.Marshal(tc.Arguments)
			wm.ToolCalls = append(wm.ToolCalls, oaToolCall{
				ID:   tc.ID,
				Type: "function",
				Function: oaCallFunction{
					Name:      tc.Name,
					Arguments: string(args),
				},
			})
		}
		out = append(out, wm)
	}
	return out
}

func decodeToolCall(tc oaToolCall) (ToolCall, error) {
	args := map[string]interface{}{}
	if tc.Function.Arguments != "" {
		if err := json.Unmarshal([]byte(tc.Function.Arguments), &args); err != nil {
			return ToolCall{}, fmt.Errorf("tool call %s arguments: %w", tc.Function.Name, err)
		}
	}
	return ToolCall{ID: tc.ID, Name: tc.Function.Name, Arguments: args}, nil
}

// Wire types for the Chat Completions JSON format.

type oaRequest struct {
	Model       string      `json:"model"`
	Messages    []oaMessage `json:"messages"`
	Tools       []oaTool    `json:"tools,omitempty"`
	Stream      bool        `json:"stream,omitempty"`
	MaxTokens   int         `json:"max_tokens,omitempty"`
	Temperature *float64    `json:"temperature,omitempty"`
	TopP        *float64    `json:"top_p,omitempty"`
}

type oaMessage struct {
	Role             string       `json:"role"`
	Content          string       `json:"content"`
	ToolCallID       string       `json:"tool_call_id,omitempty"`
	ToolCalls        []oaToolCall `json:"tool_calls,omitempty"`
	ReasoningContent string       `json:"reasoning_content,omitempty"`
}

type oaToolCall struct {
	ID       string         `json:"id"`
	Type     string         `json:"type"`
	Function oaCallFunction `json:"function"`
}

type oaCallFunction struct {
	Name      string `json:"name"`
	Arguments string `json:"arguments"`
}

type oaTool struct {
	Type     string         `json:"type"`
	Function oaToolFunction `json:"function"`
}

type oaToolFunction struct {
	Name        string                 `json:"name"`
	Description string                 `json:"description"`
	Parameters  map[string]interface{} `json:"parameters"`
}

type oaResponse struct {
	Choices []struct {
		Message      oaMessage `json:"message"`
		FinishReason string    `json:"finish_reason"`
	} `json:"choices"`
}

type oaStreamChunk struct {
	Choices []struct {
		Delta        oaStreamDelta `json:"delta"`
		FinishReason *string       `json:"finish_reason"`
	} `json:"choices"`
}

type oaStreamDelta struct {
	Content          string             `json:"content,omitempty"`
	ReasoningContent string             `json:"reasoning_content,omitempty"`
	ToolCalls        []oaStreamToolCall `json:"tool_calls,omitempty"`
}

type oaStreamToolCall struct {
	Index    int             `json:"index"`
	ID       string          `json:"id,omitempty"`
	Function *oaCallFunction `json:"function,omitempty"`
}

type oaPartialCall struct {
	id   string
	name string
	args strings.Builder
}
