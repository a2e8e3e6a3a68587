package display

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/strandcli/strand/internal/providers"
)

const historyPreviewLimit = 10

var (
	panelStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("#5F87FF")).
			Padding(1, 3)

	headerStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#5FD7FF"))

	dimStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#626262"))

	userPrefixStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#04B575"))

	toolStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#7D56F4"))

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FF5F87"))
)

// Printer renders REPL output: panels, streamed model text and tool
// lifecycle lines.
type Printer struct {
	w         io.Writer
	streaming bool
}

func NewPrinter(w io.Writer) *Printer {
	if w == nil {
		w = os.Stdout
	}
	return &Printer{w: w}
}

// Welcome prints the start-of-session panel.
func (p *Printer) Welcome(text, providerLine string) {
	body := headerStyle.Render("Strand") + "\n\n" + strings.TrimSpace(text)
	if providerLine != "" {
		body += "\n\n" + dimStyle.Render(providerLine)
	}
	fmt.Fprintln(p.w, panelStyle.Render(body))
	fmt.Fprintln(p.w)
}

// Goodbye prints the end-of-session panel.
func (p *Printer) Goodbye() {
	fmt.Fprintln(p.w)
	fmt.Fprintln(p.w, panelStyle.Render(headerStyle.Render("Goodbye!")))
}

// ResumeHeader announces a resumed session and replays recent history.
// Only user and assistant text is replayed; tool traffic stays hidden and
// counts toward the "not shown" tally.
func (p *Printer) ResumeHeader(sessionID string, messages []providers.Message, total int) {
	shown := 0
	for _, msg := range messages {
		if replayable(msg) {
			shown++
		}
	}

	subtitle := fmt.Sprintf("Showing all %d messages", total)
	if total > shown {
		subtitle = fmt.Sprintf("%d previous messages not shown", total-shown)
	}

	body := headerStyle.Render("Resuming session: "+sessionID) + "\n" + dimStyle.Render(subtitle)
	fmt.Fprintln(p.w)
	fmt.Fprintln(p.w, panelStyle.Render(body))
	fmt.Fprintln(p.w)

	for _, msg := range messages {
		if !replayable(msg) {
			continue
		}
		if msg.Role == "user" {
			fmt.Fprintf(p.w, "%s%s\n\n", userPrefixStyle.Render("~ "), msg.Content)
		} else {
			fmt.Fprintf(p.w, "%s\n\n", msg.Content)
		}
	}
}

func replayable(msg providers.Message) bool {
	switch msg.Role {
	case "user":
		return true
	case "assistant":
		return msg.Content != ""
	}
	return false
}

// Prompt returns the styled input prompt string.
func (p *Printer) Prompt() string {
	return userPrefixStyle.Render("~ ")
}

// StreamChunk writes a piece of streamed model output.
func (p *Printer) StreamChunk(text string) {
	p.streaming = true
	fmt.Fprint(p.w, text)
}

// EndStream terminates the streamed block with a blank line.
func (p *Printer) EndStream() {
	if p.streaming {
		fmt.Fprint(p.w, "\n\n")
		p.streaming = false
	}
}

// ToolStart prints the tool invocation line.
func (p *Printer) ToolStart(name string) {
	p.EndStream()
	fmt.Fprintln(p.w, toolStyle.Render("⚙ "+name+" …"))
}

// ToolDone prints the tool completion line.
func (p *Printer) ToolDone(name string, duration time.Duration, isError bool) {
	status := "ok"
	style := dimStyle
	if isError {
		status = "error"
		style = errorStyle
	}
	fmt.Fprintln(p.w, style.Render(fmt.Sprintf("⚙ %s %s (%s)", name, status, duration.Round(time.Millisecond))))
}

// ToolOutput prints user-facing tool output, if any.
func (p *Printer) ToolOutput(text string) {
	if strings.TrimSpace(text) == "" {
		return
	}
	fmt.Fprintln(p.w, dimStyle.Render(TruncateMessage(text, 500)))
}

// Info prints a dim informational line.
func (p *Printer) Info(text string) {
	fmt.Fprintln(p.w, dimStyle.Render(text))
}

// Error prints an error line.
func (p *Printer) Error(text string) {
	p.EndStream()
	fmt.Fprintln(p.w, errorStyle.Render("Error: "+text))
}

// HistoryLimit returns how many messages to replay on resume.
func HistoryLimit() int { return historyPreviewLimit }

// TruncateMessage shortens text for inline display, collapsing the middle.
func TruncateMessage(text string, max int) string {
	text = strings.TrimSpace(text)
	if len(text) <= max {
		return text
	}
	half := max / 2
	return text[:half] + "\n… (truncated) …\n" + text[len(text)-half:]
}
