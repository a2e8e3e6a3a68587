package tools

import (
	"context"
	"fmt"
	"strings"
)

const maxNestedDepth = 3

// StrandRunner executes a nested agent turn and returns its final response.
// toolNames narrows the nested agent's catalog; empty means inherit all.
// Provided by the command wiring to avoid a dependency cycle between the
// tool catalog and the agent loop.
type StrandRunner func(ctx context.Context, query, systemPrompt string, toolNames []string) (string, error)

type nestedDepthKey struct{}

func nestedDepth(ctx context.Context) int {
	d, _ := ctx.Value(nestedDepthKey{}).(int)
	return d
}

// StrandTool delegates a self-contained task to a nested agent with its own
// conversation. Useful when the model wants a sub-task handled with a
// different system prompt without polluting the main history.
type StrandTool struct {
	run StrandRunner
}

func NewStrandTool(run StrandRunner) *StrandTool {
	return &StrandTool{run: run}
}

func (t *StrandTool) Name() string { return "strand" }

func (t *StrandTool) Description() string {
	return "Delegate a task to a nested agent with a fresh conversation and an optional custom system prompt. Returns the nested agent's final response."
}

func (t *StrandTool) Parameters() map[string]interface{} {
	return map[string]interface{}{
		"type": "object",
		"properties": map[string]interface{}{
			"query": map[string]interface{}{
				"type":        "string",
				"description": "The task for the nested agent.",
			},
			"system_prompt": map[string]interface{}{
				"type":        "string",
				"description": "System prompt for the nested agent. Defaults to the parent's prompt.",
			},
			"tools": map[string]interface{}{
				"type":        "array",
				"items":       map[string]interface{}{"type": "string"},
				"description": "Tool names available to the nested agent. Defaults to all tools.",
			},
		},
		"required": []string{"query"},
	}
}

func (t *StrandTool) Execute(ctx context.Context, args map[string]interface{}) *Result {
	query, _ := args["query"].(string)
	if strings.TrimSpace(query) == "" {
		return ErrorResult("query is required")
	}
	systemPrompt, _ := args["system_prompt"].(string)

	var toolNames []string
	if raw, ok := args["tools"].([]interface{}); ok {
		for _, v := range raw {
			if name, ok := v.(string); ok && name != "" {
				toolNames = append(toolNames, name)
			}
		}
	}

	depth := nestedDepth(ctx)
	if depth >= maxNestedDepth {
		return ErrorResult(fmt.Sprintf("nested agent depth limit reached (%d)", maxNestedDepth))
	}
	ctx = context.WithValue(ctx, nestedDepthKey{}, depth+1)

	response, err := t.run(ctx, query, systemPrompt, toolNames)
	if err != nil {
		return ErrorResult(fmt.Sprintf("nested agent failed: %v", err))
	}
	if response == "" {
		response = "(nested agent returned no response)"
	}
	return NewResult(response)
}
