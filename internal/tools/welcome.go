package tools

import (
	"context"
	"fmt"

	"github.com/strandcli/strand/internal/prompt"
)

// WelcomeTool lets the agent view or customize the welcome text shown when
// an interactive session starts.
type WelcomeTool struct{}

func NewWelcomeTool() *WelcomeTool { return &WelcomeTool{} }

func (t *WelcomeTool) Name() string { return "welcome" }

func (t *WelcomeTool) Description() string {
	return "View or edit the welcome text shown at the start of interactive sessions. Actions: view, edit, reset."
}

func (t *WelcomeTool) Parameters() map[string]interface{} {
	return map[string]interface{}{
		"type": "object",
		"properties": map[string]interface{}{
			"action": map[string]interface{}{
				"type":        "string",
				"description": "What to do with the welcome text.",
				"enum":        []string{"view", "edit", "reset"},
			},
			"content": map[string]interface{}{
				"type":        "string",
				"description": "New welcome text (for edit).",
			},
		},
		"required": []string{"action"},
	}
}

func (t *WelcomeTool) Execute(ctx context.Context, args map[string]interface{}) *Result {
	action, _ := args["action"].(string)
	switch action {
	case "view":
		return NewResult(prompt.Welcome())
	case "edit":
		content, _ := args["content"].(string)
		if content == "" {
			return ErrorResult("content is required for edit")
		}
		if err := prompt.SetWelcome(content); err != nil {
			return ErrorResult(fmt.Sprintf("save welcome text: %v", err))
		}
		return NewResult("Welcome text updated.")
	case "reset":
		if err := prompt.ResetWelcome(); err != nil {
			return ErrorResult(fmt.Sprintf("reset welcome text: %v", err))
		}
		return NewResult("Welcome text reset to default.")
	default:
		return ErrorResult(fmt.Sprintf("unknown action %q (valid: view, edit, reset)", action))
	}
}
