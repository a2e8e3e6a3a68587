package tools

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/dop251/goja"
)

const (
	jsReplTimeout   = 30 * time.Second
	jsReplMaxOutput = 64 * 1024
)

// JSReplTool evaluates JavaScript in an embedded interpreter. The runtime
// persists across calls, so variables and functions defined in one call are
// visible in the next — reset: true starts a fresh runtime. console.log
// output is captured and returned alongside the final expression value.
type JSReplTool struct {
	mu  sync.Mutex
	vm  *goja.Runtime
	log *strings.Builder
}

func NewJSReplTool() *JSReplTool {
	t := &JSReplTool{}
	t.reset()
	return t
}

func (t *JSReplTool) Name() string { return "js_repl" }

func (t *JSReplTool) Description() string {
	return "Evaluate JavaScript in a persistent sandboxed interpreter. State carries over between calls. Use console.log for output; the last expression value is also returned. No filesystem or network access."
}

func (t *JSReplTool) Parameters() map[string]interface{} {
	return map[string]interface{}{
		"type": "object",
		"properties": map[string]interface{}{
			"code": map[string]interface{}{
				"type":        "string",
				"description": "JavaScript code to evaluate.",
			},
			"reset": map[string]interface{}{
				"type":        "boolean",
				"description": "Discard interpreter state before evaluating. Default: false.",
			},
		},
		"required": []string{"code"},
	}
}

func (t *JSReplTool) Execute(ctx context.Context, args map[string]interface{}) *Result {
	code, _ := args["code"].(string)
	if strings.TrimSpace(code) == "" {
		return ErrorResult("code is required")
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	if doReset, _ := args["reset"].(bool); doReset {
		t.reset()
	}
	t.log.Reset()

	ctx, cancel := context.WithTimeout(ctx, jsReplTimeout)
	defer cancel()

	// Interrupt the interpreter when the context expires; RunString cannot
	// be preempted any other way.
	done := make(chan struct{})
	go func() {
		select {
		case <-ctx.Done():
			t.vm.Interrupt("execution timed out")
		case <-done:
		}
	}()

	value, err := t.vm.RunString(code)
	close(done)

	if err != nil {
		if _, interrupted := err.(*goja.InterruptedError); interrupted {
			t.reset() // interpreter state is suspect after an interrupt
			return ErrorResult(fmt.Sprintf("execution timed out after %s", jsReplTimeout))
		}
		return ErrorResult(fmt.Sprintf("javascript error: %v", err))
	}

	var sb strings.Builder
	if t.log.Len() > 0 {
		sb.WriteString(t.log.String())
	}
	if value != nil && !goja.IsUndefined(value) && !goja.IsNull(value) {
		if sb.Len() > 0 {
			sb.WriteString("\n")
		}
		fmt.Fprintf(&sb, "=> %v", value.Export())
	}

	output := sb.String()
	if output == "" {
		output = "(no output)"
	}
	if len(output) > jsReplMaxOutput {
		output = output[:jsReplMaxOutput] + "\n... (output truncated)"
	}
	return NewResult(output)
}

// reset builds a fresh runtime with the console shim installed.
func (t *JSReplTool) reset() {
	t.vm = goja.New()
	t.log = &strings.Builder{}

	logFn := func(call goja.FunctionCall) goja.Value {
		parts := make([]string, 0, len(call.Arguments))
		for _, arg := range call.Arguments {
			parts = append(parts, fmt.Sprint(arg.Export()))
		}
		t.log.WriteString(strings.Join(parts, " "))
		t.log.WriteString("\n")
		return goja.Undefined()
	}
	console := t.vm.NewObject()
	console.Set("log", logFn)
	console.Set("error", logFn)
	console.Set("warn", logFn)
	console.Set("info", logFn)
	t.vm.Set("console", console)
}
