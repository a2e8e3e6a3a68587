package tools

import (
	"context"
	"strings"
	"testing"
)

func TestJSRepl_Expression(t *testing.T) {
	tool := NewJSReplTool()
	result := tool.Execute(context.Background(), map[string]interface{}{
		"code": "1 + 2",
	})
	if result.IsError {
		t.Fatalf("unexpected error: %s", result.ForLLM)
	}
	if !strings.Contains(result.ForLLM, "=> 3") {
		t.Errorf("expected => 3, got %q", result.ForLLM)
	}
}

func TestJSRepl_ConsoleLog(t *testing.T) {
	tool := NewJSReplTool()
	result := tool.Execute(context.Background(), map[string]interface{}{
		"code": `console.log("hello", 42)`,
	})
	if result.IsError {
		t.Fatalf("unexpected error: %s", result.ForLLM)
	}
	if !strings.Contains(result.ForLLM, "hello 42") {
		t.Errorf("console output missing: %q", result.ForLLM)
	}
}

func TestJSRepl_StatePersists(t *testing.T) {
	tool := NewJSReplTool()
	tool.Execute(context.Background(), map[string]interface{}{
		"code": "var counter = 10",
	})
	result := tool.Execute(context.Background(), map[string]interface{}{
		"code": "counter + 5",
	})
	if result.IsError {
		t.Fatalf("unexpected error: %s", result.ForLLM)
	}
	if !strings.Contains(result.ForLLM, "=> 15") {
		t.Errorf("state did not persist: %q", result.ForLLM)
	}
}

func TestJSRepl_Reset(t *testing.T) {
	tool := NewJSReplTool()
	tool.Execute(context.Background(), map[string]interface{}{
		"code": "var gone = 1",
	})
	result := tool.Execute(context.Background(), map[string]interface{}{
		"code":  "typeof gone",
		"reset": true,
	})
	if result.IsError {
		t.Fatalf("unexpected error: %s", result.ForLLM)
	}
	if !strings.Contains(result.ForLLM, "undefined") {
		t.Errorf("reset did not clear state: %q", result.ForLLM)
	}
}

func TestJSRepl_SyntaxError(t *testing.T) {
	tool := NewJSReplTool()
	result := tool.Execute(context.Background(), map[string]interface{}{
		"code": "function {",
	})
	if !result.IsError {
		t.Error("expected error for invalid syntax")
	}
}

func TestJSRepl_MissingCode(t *testing.T) {
	tool := NewJSReplTool()
	result := tool.Execute(context.Background(), map[string]interface{}{})
	if !result.IsError {
		t.Error("expected error for missing code")
	}
}

func TestJSRepl_NoOutput(t *testing.T) {
	tool := NewJSReplTool()
	result := tool.Execute(context.Background(), map[string]interface{}{
		"code": "var x = 1;",
	})
	if result.IsError {
		t.Fatalf("unexpected error: %s", result.ForLLM)
	}
	if !strings.Contains(result.ForLLM, "no output") {
		t.Errorf("expected no-output placeholder, got %q", result.ForLLM)
	}
}
