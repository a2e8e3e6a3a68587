// Package providers implements the model backends: Amazon Bedrock, Ollama
// and any OpenAI-compatible endpoint. All providers speak the same internal
// chat types; the registry picks one by name from configuration.
package providers

import (
	"context"
	"encoding/json"
	"fmt"
)

// Message is one turn in a conversation. Role is "system", "user",
// "assistant" or "tool"; tool messages carry the ToolCallID they answer.
type Message struct {
	Role       string     `json:"role"`
	Content    string     `json:"content"`
	ToolCallID string     `json:"tool_call_id,omitempty"`
	ToolCalls  []ToolCall `json:"tool_calls,omitempty"`
}

// ToolCall is a model-requested tool invocation with decoded arguments.
type ToolCall struct {
	ID        string                 `json:"id"`
	Name      string                 `json:"name"`
	Arguments map[string]interface{} `json:"arguments"`
}

// ToolDefinition describes a tool in the function-calling format shared by
// all backends (Bedrock translates it to toolSpec internally).
type ToolDefinition struct {
	Type     string             `json:"type"`
	Function ToolFunctionSchema `json:"function"`
}

// ToolFunctionSchema is the name, description and JSON Schema parameters of
// a tool function.
type ToolFunctionSchema struct {
	Name        string                 `json:"name"`
	Description string                 `json:"description"`
	Parameters  map[string]interface{} `json:"parameters"`
}

// ChatRequest is a single inference request. Options carries provider
// passthrough settings (max_tokens, temperature, top_p, ...).
type ChatRequest struct {
	Messages []Message
	Tools    []ToolDefinition
	Model    string
	Options  map[string]interface{}
}

// ChatResponse is the complete model output for one request.
type ChatResponse struct {
	Content   string
	Thinking  string
	ToolCalls []ToolCall
}

// StreamChunk is one streaming delta. Done marks end of stream.
type StreamChunk struct {
	Content  string
	Thinking string
	Done     bool
}

// Provider is a chat model backend.
//
// ChatStream invokes onChunk for each delta and returns the assembled
// response; implementations that cannot stream a particular request may
// fall back to Chat and synthesize chunks.
type Provider interface {
	Name() string
	Chat(ctx context.Context, req ChatRequest) (*ChatResponse, error)
	ChatStream(ctx context.Context, req ChatRequest, onChunk func(StreamChunk)) (*ChatResponse, error)
}

// optString reads a string option with a default.
func optString(opts map[string]interface{}, key, def string) string {
	if opts == nil {
		return def
	}
	if v, ok := opts[key].(string); ok && v != "" {
		return v
	}
	return def
}

// optFloat reads a numeric option, tolerating both float64 and int values
// (YAML and JSON decode numbers differently).
func optFloat(opts map[string]interface{}, key string) (float64, bool) {
	if opts == nil {
		return 0, false
	}
	switch v := opts[key].(type) {
	case float64:
		return v, true
	case int:
		return float64(v), true
	}
	return 0, false
}

// decodeJSONArgs parses accumulated tool-call argument text. Empty text
// means the tool takes no arguments.
func decodeJSONArgs(raw string) (map[string]interface{}, error) {
	args := map[string]interface{}{}
	if raw == "" {
		return args, nil
	}
	if err := json.Unmarshal([]byte(raw), &args); err != nil {
		return nil, fmt.Errorf("decode arguments: %w", err)
	}
	return args, nil
}

// optInt reads an integer option.
func optInt(opts map[string]interface{}, key string) (int, bool) {
	f, ok := optFloat(opts, key)
	if !ok {
		return 0, false
	}
	return int(f), true
}
