package tools

import (
	"context"
	"fmt"
	"os"
	"sort"
	"strings"
)

// Environment variables the agent may not modify. PATH changes would
// redirect every subsequent shell call; the STRAND_ variables steer the
// agent's own configuration.
var protectedEnvPrefixes = []string{"PATH", "HOME", "STRAND_", "AWS_SECRET", "AWS_SESSION"}

// EnvironmentTool lists and manages process environment variables. Values
// are visible to subsequent shell and http_request calls, so setting one is
// how the agent configures credentials-by-reference.
type EnvironmentTool struct{}

func NewEnvironmentTool() *EnvironmentTool { return &EnvironmentTool{} }

func (t *EnvironmentTool) Name() string { return "environment" }

func (t *EnvironmentTool) Description() string {
	return "List, get, set or unset environment variables of the current process. Protected variables (PATH, HOME, STRAND_*, AWS secrets) cannot be modified."
}

func (t *EnvironmentTool) Parameters() map[string]interface{} {
	return map[string]interface{}{
		"type": "object",
		"properties": map[string]interface{}{
			"action": map[string]interface{}{
				"type":        "string",
				"description": "The operation to perform.",
				"enum":        []string{"list", "get", "set", "unset"},
			},
			"name": map[string]interface{}{
				"type":        "string",
				"description": "Variable name (get, set, unset).",
			},
			"value": map[string]interface{}{
				"type":        "string",
				"description": "Variable value (set).",
			},
			"prefix": map[string]interface{}{
				"type":        "string",
				"description": "Name prefix filter for list.",
			},
		},
		"required": []string{"action"},
	}
}

func (t *EnvironmentTool) Execute(ctx context.Context, args map[string]interface{}) *Result {
	action, _ := args["action"].(string)
	name, _ := args["name"].(string)

	switch action {
	case "list":
		prefix, _ := args["prefix"].(string)
		return t.list(prefix)
	case "get":
		if name == "" {
			return ErrorResult("name is required")
		}
		value, ok := os.LookupEnv(name)
		if !ok {
			return NewResult(fmt.Sprintf("%s is not set", name))
		}
		return NewResult(fmt.Sprintf("%s=%s", name, value))
	case "set":
		if name == "" {
			return ErrorResult("name is required")
		}
		if isProtectedEnv(name) {
			return ErrorResult(fmt.Sprintf("%s is protected and cannot be modified", name))
		}
		value, _ := args["value"].(string)
		if err := os.Setenv(name, value); err != nil {
			return ErrorResult(fmt.Sprintf("set %s: %v", name, err))
		}
		return NewResult(fmt.Sprintf("Set %s", name))
	case "unset":
		if name == "" {
			return ErrorResult("name is required")
		}
		if isProtectedEnv(name) {
			return ErrorResult(fmt.Sprintf("%s is protected and cannot be modified", name))
		}
		if err := os.Unsetenv(name); err != nil {
			return ErrorResult(fmt.Sprintf("unset %s: %v", name, err))
		}
		return NewResult(fmt.Sprintf("Unset %s", name))
	default:
		return ErrorResult(fmt.Sprintf("unknown action %q (valid: list, get, set, unset)", action))
	}
}

func (t *EnvironmentTool) list(prefix string) *Result {
	env := os.Environ()
	sort.Strings(env)

	var sb strings.Builder
	count := 0
	for _, kv := range env {
		if prefix != "" && !strings.HasPrefix(kv, prefix) {
			continue
		}
		sb.WriteString(kv)
		sb.WriteString("\n")
		count++
	}
	if count == 0 {
		return NewResult("No matching environment variables.")
	}
	// Registry-level scrubbing redacts credential-shaped values on the way out.
	return NewResult(sb.String())
}

func isProtectedEnv(name string) bool {
	upper := strings.ToUpper(name)
	for _, p := range protectedEnvPrefixes {
		if strings.HasSuffix(p, "_") {
			if strings.HasPrefix(upper, p) {
				return true
			}
		} else if upper == p || strings.HasPrefix(upper, p+"_") {
			return true
		}
	}
	return false
}
