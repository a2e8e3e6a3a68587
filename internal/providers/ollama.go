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

// OllamaProvider runs inference against a local Ollama server via its
// native /api/chat endpoint. Streaming responses are newline-delimited
// JSON objects, one delta per line.
type OllamaProvider struct {
	host   string
	model  string
	client *http.Client
}

func NewOllamaProvider(host, defaultModel string) *OllamaProvider {
	return &OllamaProvider{
		host:   strings.TrimRight(host, "/"),
		model:  defaultModel,
		client: &http.Client{Timeout: 10 * time.Minute},
	}
}

func (p *OllamaProvider) Name() string { return "ollama" }

func (p *OllamaProvider) Chat(ctx context.Context, req ChatRequest) (*ChatResponse, error) {
	body, err := p.do(ctx, req, false)
	if err != nil {
		return nil, err
	}
	defer body.Close()

	var wire ollamaChatResponse
	if err := json.NewDecoder(body).Decode(&wire); err != nil {
		return nil, fmt.Errorf("ollama: decode response: %w", err)
	}
	return ollamaToResponse(wire.Message), nil
}

func (p *OllamaProvider) ChatStream(ctx context.Context, req ChatRequest, onChunk func(StreamChunk)) (*ChatResponse, error) {
	body, err := p.do(ctx, req, true)
	if err != nil {
		return nil, err
	}
	defer body.Close()

	var (
		content   strings.Builder
		thinking  strings.Builder
		toolCalls []ToolCall
	)

	scanner := bufio.NewScanner(body)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := bytes.TrimSpace(scanner.Bytes())
		if len(line) == 0 {
			continue
		}
		var wire ollamaChatResponse
		if err := json.Unmarshal(line, &wire); err != nil {
			return nil, fmt.Errorf("ollama: parse stream line: %w", err)
		}
		if wire.Error != "" {
			return nil, fmt.Errorf("ollama: %s", wire.Error)
		}

		if wire.Message.Thinking != "" {
			thinking.WriteString(wire.Message.Thinking)
			if onChunk != nil {
				onChunk(StreamChunk{Thinking: wire.Message.Thinking})
			}
		}
		if wire.Message.Content != "" {
			content.WriteString(wire.Message.Content)
			if onChunk != nil {
				onChunk(StreamChunk{Content: wire.Message.Content})
			}
		}
		for i, tc := range wire.Message.ToolCalls {
			toolCalls = append(toolCalls, ToolCall{
				// Ollama does not assign call IDs; synthesize stable ones.
				ID:        fmt.Sprintf("call_%d_%d", len(toolCalls), i),
				Name:      tc.Function.Name,
				Arguments: tc.Function.Arguments,
			})
		}
		if wire.Done {
			break
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("ollama: read stream: %w", err)
	}
	if onChunk != nil {
		onChunk(StreamChunk{Done: true})
	}

	return &ChatResponse{
		Content:   content.String(),
		Thinking:  thinking.String(),
		ToolCalls: toolCalls,
	}, nil
}

func (p *OllamaProvider) do(ctx context.Context, req ChatRequest, stream bool) (io.ReadCloser, error) {
	model := req.Model
	if model == "" {
		model = p.model
	}
	wire := ollamaChatRequest{
		Model:    model,
		Messages: toOllamaMessages(req.Messages),
		Stream:   stream,
	}
	for _, t := range req.Tools {
		wire.Tools = append(wire.Tools, ollamaTool{
			Type: "function",
			Function: ollamaToolFunction{
				Name:        t.Function.Name,
				Description: t.Function.Description,
				Parameters:  t.Function.Parameters,
			},
		})
	}
	opts := map[string]interface{}{}
	if v, ok := optFloat(req.Options, "temperature"); ok {
		opts["temperature"] = v
	}
	if v, ok := optInt(req.Options, "max_tokens"); ok {
		opts["num_predict"] = v
	}
	if v, ok := optInt(req.Options, "num_ctx"); ok {
		opts["num_ctx"] = v
	}
	if len(opts) > 0 {
		wire.Options = opts
	}

	payload, err := json.Marshal(wire)
	if err != nil {
		return nil, fmt.Errorf("ollama: marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost,
		p.host+"/api/chat", bytes.NewReader(payload))
	if err != nil {
		return nil, err
	}
	httpReq.Header.Set("Content-Type", "application/json")

	httpResp, err := p.client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("ollama: request (is the server running at %s?): %w", p.host, err)
	}
	if httpResp.StatusCode != http.StatusOK {
		defer httpResp.Body.Close()
		detail, _ := io.ReadAll(io.LimitReader(httpResp.Body, 4096))
		return nil, fmt.Errorf("ollama: HTTP %d: %s", httpResp.StatusCode, strings.TrimSpace(string(detail)))
	}
	return httpResp.Body, nil
}

func toOllamaMessages(messages []Message) []ollamaMessage {
	out := make([]ollamaMessage, 0, len(messages))
	for _, m := range messages {
		om := ollamaMessage{Role: m.Role, Content: m.Content}
		for _, tc := range m.ToolCalls {
			om.ToolCalls = append(om.ToolCalls, ollamaToolCall{
				Function: ollamaCallFunction{Name: tc.Name, Arguments: tc.Arguments},
			})
		}
		out = append(out, om)
	}
	return out
}

func ollamaToResponse(msg ollamaMessage) *ChatResponse {
	resp := &ChatResponse{Content: msg.Content, Thinking: msg.Thinking}
	for i, tc := range msg.ToolCalls {
		resp.ToolCalls = append(resp.ToolCalls, ToolCall{
			ID:        fmt.Sprintf("call_%d", i),
			Name:      tc.Function.Name,
			Arguments: tc.Function.Arguments,
		})
	}
	return resp
}

// Wire types for Ollama's native chat API. Tool call arguments arrive as a
// decoded JSON object, not a string, unlike the OpenAI format.

type ollamaChatRequest struct {
	Model    string                 `json:"model"`
	Messages []ollamaMessage        `json:"messages"`
	Tools    []ollamaTool           `json:"tools,omitempty"`
	Stream   bool                   `json:"stream"`
	Options  map[string]interface{} `json:"options,omitempty"`
}

type ollamaMessage struct {
	Role      string           `json:"role"`
	Content   string           `json:"content"`
	Thinking  string           `json:"thinking,omitempty"`
	ToolCalls []ollamaToolCall `json:"tool_calls,omitempty"`
}

type ollamaToolCall struct {
	Function ollamaCallFunction `json:"function"`
}

type ollamaCallFunction struct {
	Name      string                 `json:"name"`
	Arguments map[string]interface{} `json:"arguments"`
}

type ollamaTool struct {
	Type     string             `json:"type"`
	Function ollamaToolFunction `json:"function"`
}

type ollamaToolFunction struct {
	Name        string                 `json:"name"`
	Description string                 `json:"description"`
	Parameters  map[string]interface{} `json:"parameters"`
}

type ollamaChatResponse struct {
	Message ollamaMessage `json:"message"`
	Done    bool          `json:"done"`
	Error   string        `json:"error,omitempty"`
}
