package tools

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"regexp"
	"strings"
	"time"

	"github.com/mattn/go-shellwords"
)

const (
	shellDefaultTimeout = 60 * time.Second
	shellMaxTimeout     = 15 * time.Minute
	shellMaxOutput      = 100 * 1024
)

// Commands with no legitimate use from an agent, matched against the raw
// command text before anything runs.
var shellDenyPatterns = []*regexp.Regexp{
	regexp.MustCompile(`\brm\s+(-[a-zA-Z]+\s+)*/(\s|$)`),
	regexp.MustCompile(`:\(\)\s*\{.*\|.*&.*\}`),
	regexp.MustCompile(`\bmkfs(\.\w+)?\b`),
	regexp.MustCompile(`\bdd\b.*\bof=/dev/`),
	regexp.MustCompile(`>\s*/dev/(sd|nvme|hd)`),
}

// ShellTool executes commands on the local machine. Commands run
// non-interactively: stdin is closed, so anything prompting for input fails
// fast instead of hanging the agent.
type ShellTool struct {
	workDir string
}

func NewShellTool(workDir string) *ShellTool {
	return &ShellTool{workDir: workDir}
}

func (t *ShellTool) Name() string { return "shell" }

func (t *ShellTool) Description() string {
	return "Execute a shell command and return its output. Commands run non-interactively with a timeout. Use work_dir to run in a specific directory."
}

func (t *ShellTool) Parameters() map[string]interface{} {
	return map[string]interface{}{
		"type": "object",
		"properties": map[string]interface{}{
			"command": map[string]interface{}{
				"type":        "string",
				"description": "The command to execute.",
			},
			"shell": map[string]interface{}{
				"type":        "boolean",
				"description": "Run through 'sh -c' to enable pipes, globs and redirects. Default: false.",
			},
			"work_dir": map[string]interface{}{
				"type":        "string",
				"description": "Working directory for the command.",
			},
			"timeout": map[string]interface{}{
				"type":        "number",
				"description": "Timeout in seconds. Default: 60.",
			},
		},
		"required": []string{"command"},
	}
}

func (t *ShellTool) Execute(ctx context.Context, args map[string]interface{}) *Result {
	command, _ := args["command"].(string)
	if strings.TrimSpace(command) == "" {
		return ErrorResult("command is required")
	}
	for _, pat := range shellDenyPatterns {
		if pat.MatchString(command) {
			return ErrorResult("command blocked by safety policy: " + command)
		}
	}

	timeout := shellDefaultTimeout
	if secs, ok := args["timeout"].(float64); ok && secs > 0 {
		timeout = time.Duration(secs * float64(time.Second))
		if timeout > shellMaxTimeout {
			timeout = shellMaxTimeout
		}
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	useShell, _ := args["shell"].(bool)
	var cmd *exec.Cmd
	if useShell {
		cmd = exec.CommandContext(ctx, "sh", "-c", command)
	} else {
		words, err := shellwords.Parse(command)
		if err != nil {
			return ErrorResult(fmt.Sprintf("parse command: %v", err))
		}
		if len(words) == 0 {
			return ErrorResult("command is empty after parsing")
		}
		cmd = exec.CommandContext(ctx, words[0], words[1:]...)
	}

	if wd, ok := args["work_dir"].(string); ok && wd != "" {
		cmd.Dir = wd
	} else if t.workDir != "" {
		cmd.Dir = t.workDir
	}

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	start := time.Now()
	err := cmd.Run()
	elapsed := time.Since(start)

	output := formatCommandOutput(stdout.String(), stderr.String())
	if len(output) > shellMaxOutput {
		output = output[:shellMaxOutput] + "\n... (output truncated)"
	}

	if err != nil {
		if ctx.Err() == context.DeadlineExceeded {
			return ErrorResult(fmt.Sprintf("command timed out after %s", timeout))
		}
		exitCode := -1
		if exitErr, ok := err.(*exec.ExitError); ok {
			exitCode = exitErr.ExitCode()
		}
		msg := fmt.Sprintf("exit code %d\n%s", exitCode, output)
		if output == "" {
			msg = fmt.Sprintf("exit code %d: %v", exitCode, err)
		}
		return ErrorResult(msg)
	}

	if output == "" {
		output = fmt.Sprintf("(command completed with no output in %s)", elapsed.Round(time.Millisecond))
	}
	return &Result{ForLLM: output, ForUser: output}
}

func formatCommandOutput(stdout, stderr string) string {
	var sb strings.Builder
	if stdout != "" {
		sb.WriteString(stdout)
	}
	if stderr != "" {
		if sb.Len() > 0 {
			sb.WriteString("\n")
		}
		sb.WriteString("STDERR:\n")
		sb.WriteString(stderr)
	}
	return strings.TrimRight(sb.String(), "\n")
}
