package tools

import (
	"context"
	"strings"
	"testing"
)

func TestStrandTool_PassesToolFilter(t *testing.T) {
	var gotQuery, gotPrompt string
	var gotTools []string
	tool := NewStrandTool(func(ctx context.Context, query, systemPrompt string, toolNames []string) (string, error) {
		gotQuery, gotPrompt, gotTools = query, systemPrompt, toolNames
		return "done", nil
	})

	res := tool.Execute(context.Background(), map[string]interface{}{
		"query":         "summarize the log",
		"system_prompt": "be terse",
		"tools":         []interface{}{"shell", "editor"},
	})
	if res.IsError {
		t.Fatalf("unexpected error: %s", res.ForLLM)
	}
	if gotQuery != "summarize the log" || gotPrompt != "be terse" {
		t.Errorf("runner got query=%q prompt=%q", gotQuery, gotPrompt)
	}
	if len(gotTools) != 2 || gotTools[0] != "shell" || gotTools[1] != "editor" {
		t.Errorf("tool filter not passed through: %v", gotTools)
	}
}

func TestStrandTool_NoFilterInheritsAll(t *testing.T) {
	var gotTools []string
	tool := NewStrandTool(func(ctx context.Context, query, systemPrompt string, toolNames []string) (string, error) {
		gotTools = toolNames
		return "done", nil
	})

	res := tool.Execute(context.Background(), map[string]interface{}{"query": "anything"})
	if res.IsError {
		t.Fatalf("unexpected error: %s", res.ForLLM)
	}
	if gotTools != nil {
		t.Errorf("absent filter should pass nil, got %v", gotTools)
	}
}

func TestStrandTool_RequiresQuery(t *testing.T) {
	tool := NewStrandTool(func(ctx context.Context, query, systemPrompt string, toolNames []string) (string, error) {
		t.Fatal("runner should not be called without a query")
		return "", nil
	})
	res := tool.Execute(context.Background(), map[string]interface{}{"query": "  "})
	if !res.IsError {
		t.Fatal("expected error for blank query")
	}
}

func TestStrandTool_DepthLimit(t *testing.T) {
	calls := 0
	var tool *StrandTool
	tool = NewStrandTool(func(ctx context.Context, query, systemPrompt string, toolNames []string) (string, error) {
		calls++
		tool.Execute(ctx, map[string]interface{}{"query": "deeper"})
		return "ok", nil
	})

	res := tool.Execute(context.Background(), map[string]interface{}{"query": "go"})
	if res.IsError {
		t.Fatalf("top-level call should succeed: %s", res.ForLLM)
	}
	if calls != maxNestedDepth {
		t.Errorf("expected %d nested runs before the limit, got %d", maxNestedDepth, calls)
	}

	// Past the limit the tool refuses without invoking the runner.
	deep := context.WithValue(context.Background(), nestedDepthKey{}, maxNestedDepth)
	res = tool.Execute(deep, map[string]interface{}{"query": "too deep"})
	if !res.IsError || !strings.Contains(res.ForLLM, "depth limit") {
		t.Errorf("expected depth limit error, got %+v", res)
	}
}
