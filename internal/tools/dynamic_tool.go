package tools

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/dop251/goja"
)

const dynamicToolTimeout = 60 * time.Second

// DynamicTool is a custom tool defined in a JavaScript file. The script must
// evaluate to an object with name, description, parameters and an execute
// function:
//
//	({
//	    name: "greet",
//	    description: "Greets someone",
//	    parameters: {type: "object", properties: {who: {type: "string"}}, required: ["who"]},
//	    execute: function(args) { return "hello " + args.who; }
//	})
//
// Each tool owns its runtime; a mutex serializes calls because goja runtimes
// are not safe for concurrent use.
type DynamicTool struct {
	name        string
	description string
	params      map[string]interface{}
	source      string

	mu      sync.Mutex
	vm      *goja.Runtime
	execute goja.Callable
}

// NewDynamicTool compiles a JavaScript tool definition.
func NewDynamicTool(source string) (*DynamicTool, error) {
	t := &DynamicTool{source: source}
	if err := t.compile(); err != nil {
		return nil, err
	}
	return t, nil
}

func (t *DynamicTool) compile() error {
	vm := goja.New()
	value, err := vm.RunString(t.source)
	if err != nil {
		return fmt.Errorf("evaluate tool script: %w", err)
	}

	obj := value.ToObject(vm)
	if obj == nil {
		return fmt.Errorf("tool script must evaluate to an object")
	}

	name := obj.Get("name")
	if name == nil || goja.IsUndefined(name) || name.String() == "" {
		return fmt.Errorf("tool definition is missing a name")
	}
	t.name = name.String()
	if !isValidToolName(t.name) {
		return fmt.Errorf("invalid tool name %q (allowed: letters, digits, _ and -)", t.name)
	}

	if desc := obj.Get("description"); desc != nil && !goja.IsUndefined(desc) {
		t.description = desc.String()
	}

	t.params = map[string]interface{}{
		"type":       "object",
		"properties": map[string]interface{}{},
	}
	if params := obj.Get("parameters"); params != nil && !goja.IsUndefined(params) {
		if m, ok := params.Export().(map[string]interface{}); ok {
			t.params = m
		}
	}

	execVal := obj.Get("execute")
	execute, ok := goja.AssertFunction(execVal)
	if !ok {
		return fmt.Errorf("tool %q has no execute function", t.name)
	}

	t.vm = vm
	t.execute = execute
	return nil
}

func (t *DynamicTool) Name() string                       { return t.name }
func (t *DynamicTool) Description() string                { return t.description }
func (t *DynamicTool) Parameters() map[string]interface{} { return t.params }

func (t *DynamicTool) Execute(ctx context.Context, args map[string]interface{}) *Result {
	t.mu.Lock()
	defer t.mu.Unlock()

	ctx, cancel := context.WithTimeout(ctx, dynamicToolTimeout)
	defer cancel()

	done := make(chan struct{})
	go func() {
		select {
		case <-ctx.Done():
			t.vm.Interrupt("execution timed out")
		case <-done:
		}
	}()

	value, err := t.execute(goja.Undefined(), t.vm.ToValue(args))
	close(done)

	if err != nil {
		if _, interrupted := err.(*goja.InterruptedError); interrupted {
			// Runtime state is suspect after an interrupt; rebuild it.
			if cErr := t.compile(); cErr != nil {
				return ErrorResult(fmt.Sprintf("tool timed out and failed to reload: %v", cErr))
			}
			return ErrorResult(fmt.Sprintf("tool %s timed out after %s", t.name, dynamicToolTimeout))
		}
		return ErrorResult(fmt.Sprintf("tool %s failed: %v", t.name, err))
	}

	if value == nil || goja.IsUndefined(value) || goja.IsNull(value) {
		return NewResult("(tool returned no output)")
	}
	return NewResult(fmt.Sprint(value.Export()))
}

func isValidToolName(name string) bool {
	if name == "" || len(name) > 64 {
		return false
	}
	for _, r := range name {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '_', r == '-':
		default:
			return false
		}
	}
	return !strings.HasPrefix(name, "-")
}
