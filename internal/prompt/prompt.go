// Package prompt resolves the agent's system prompt and manages the welcome
// text shown at the top of an interactive session.
package prompt

import (
	_ "embed"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/strandcli/strand/internal/config"
)

//go:embed default_prompt.md
var defaultPrompt string

// PromptFile is the per-project prompt override, read from the working
// directory on every turn so edits take effect mid-session.
const PromptFile = ".prompt"

// System returns the system prompt, in priority order: the
// STRAND_SYSTEM_PROMPT environment variable, a .prompt file in the current
// directory, then the built-in default.
func System() string {
	if v := os.Getenv("STRAND_SYSTEM_PROMPT"); v != "" {
		return v
	}
	data, err := os.ReadFile(PromptFile)
	if err != nil {
		if !os.IsNotExist(err) {
			slog.Warn("failed to read prompt file", "path", PromptFile, "error", err)
		}
		return defaultPrompt
	}
	if len(data) == 0 {
		return defaultPrompt
	}
	return string(data)
}

// Default returns the built-in system prompt.
func Default() string {
	return defaultPrompt
}

const defaultWelcome = `Welcome to Strand!

Type a request and the agent will use its tools to help. Useful extras:
  !<command>      run a shell command directly
  session info    show the active session
  session list    list stored sessions
  exit / quit     leave
`

// WelcomePath is where the customizable welcome text lives.
func WelcomePath() string {
	return filepath.Join(config.HomeDir(), "welcome.md")
}

// Welcome returns the welcome text, falling back to the built-in default
// when no custom file exists.
func Welcome() string {
	data, err := os.ReadFile(WelcomePath())
	if err != nil || len(data) == 0 {
		return defaultWelcome
	}
	return string(data)
}

// SetWelcome writes custom welcome text, creating ~/.strand as needed.
func SetWelcome(text string) error {
	path := WelcomePath()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create state dir: %w", err)
	}
	if err := os.WriteFile(path, []byte(text), 0o644); err != nil {
		return fmt.Errorf("write welcome text: %w", err)
	}
	return nil
}

// ResetWelcome removes the custom welcome text so the default shows again.
func ResetWelcome() error {
	err := os.Remove(WelcomePath())
	if err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}
