package cmd

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"

	"github.com/mattn/go-shellwords"

	"github.com/strandcli/strand/internal/agent"
	"github.com/strandcli/strand/internal/display"
	"github.com/strandcli/strand/internal/prompt"
	"github.com/strandcli/strand/internal/sessions"
	"github.com/strandcli/strand/internal/tools"
)

// runChat is the main entry point: a one-shot query when args are given,
// an interactive REPL otherwise.
func runChat(ctx context.Context, query string) error {
	if err := setupLogging(); err != nil {
		return err
	}

	printer := display.NewPrinter(os.Stdout)
	onEvent := func(e agent.Event) {
		switch e.Type {
		case agent.EventModelChunk:
			printer.StreamChunk(e.Text)
		case agent.EventToolStart:
			printer.EndStream()
			printer.ToolStart(e.ToolName)
		case agent.EventToolResult:
			printer.ToolDone(e.ToolName, e.Duration, e.IsError)
			if !e.IsError {
				printer.ToolOutput(e.Text)
			}
		case agent.EventDone:
			printer.EndStream()
		}
	}

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt)
	defer stop()

	rt, err := buildRuntime(ctx, !flagNoStream, onEvent)
	if err != nil {
		return err
	}
	defer rt.Close()

	if query != "" {
		_, err := rt.loop.Run(ctx, query)
		return err
	}
	return runREPL(ctx, rt, printer)
}

func runREPL(ctx context.Context, rt *chatRuntime, printer *display.Printer) error {
	providerLine := fmt.Sprintf("provider: %s", rt.provider.Name())
	if rt.store != nil {
		providerLine += fmt.Sprintf(" | kb: %s", rt.store.ID())
	}
	printer.Welcome(prompt.Welcome(), providerLine)

	if rt.sess != nil {
		if len(rt.resumed) > 0 {
			recent, err := rt.sess.Recent(display.HistoryLimit())
			if err == nil {
				printer.ResumeHeader(rt.sess.SessionID(), recent, rt.total)
			}
		} else {
			printer.Info("session: " + rt.sess.SessionID())
		}
	}

	scanner := bufio.NewScanner(os.Stdin)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	for {
		select {
		case <-ctx.Done():
			printer.Goodbye()
			return nil
		default:
		}

		fmt.Print(printer.Prompt())
		if !scanner.Scan() {
			printer.Goodbye()
			return scanner.Err()
		}
		input := strings.TrimSpace(scanner.Text())
		if input == "" {
			continue
		}

		switch {
		case input == "exit" || input == "quit":
			printer.Goodbye()
			return nil

		case strings.HasPrefix(input, "!"):
			sessionID := ""
			if rt.sess != nil {
				sessionID = rt.sess.SessionID()
			}
			kbID := ""
			if rt.store != nil {
				kbID = rt.store.ID()
			}
			runShellEscape(ctx, rt.registry, sessionID, kbID, strings.TrimSpace(input[1:]), os.Stdout)

		case input == "session info":
			printSessionInfo(rt, printer)

		case input == "session list":
			printSessionList(rt, printer)

		default:
			if _, err := rt.loop.Run(ctx, input); err != nil {
				printer.Error(err.Error())
			}
		}
	}
}

// runShellEscape executes "!command" input through the shell tool so the
// escape shares the tool's safety policy, timeout and output scrubbing. The
// command is parsed up front to reject unbalanced quoting before anything
// runs.
func runShellEscape(ctx context.Context, reg *tools.Registry, sessionID, kbID, command string, w io.Writer) {
	if command == "" {
		return
	}
	if _, err := shellwords.Parse(command); err != nil {
		fmt.Fprintf(w, "invalid command: %v\n", err)
		return
	}
	fmt.Fprintf(w, "$ %s\n", command)

	result := reg.ExecuteWithContext(ctx, "shell", map[string]interface{}{
		"command": command,
		"shell":   true,
	}, sessionID, kbID, nil)
	if result.IsError {
		fmt.Fprintf(w, "%s\n", result.ForLLM)
		return
	}
	if result.ForUser != "" {
		fmt.Fprintf(w, "%s\n", result.ForUser)
	}
}

func printSessionInfo(rt *chatRuntime, printer *display.Printer) {
	if rt.sess == nil {
		printer.Info("no active session (set session_path or pass --session)")
		return
	}
	info, err := sessions.GetInfo(rt.sessBase, rt.sess.SessionID())
	if err != nil {
		printer.Error(err.Error())
		return
	}
	printer.Info(fmt.Sprintf("session %s: %d messages, created %s\n  %s",
		info.SessionID, info.TotalMessages,
		info.CreatedAt.Format("2006-01-02 15:04:05"), info.Path))
}

func printSessionList(rt *chatRuntime, printer *display.Printer) {
	base := rt.sessBase
	if base == "" {
		base = sessionBase(rt.cfg)
	}
	ids := sessions.List(base)
	if len(ids) == 0 {
		printer.Info("no stored sessions in " + base)
		return
	}
	var b strings.Builder
	fmt.Fprintf(&b, "%d session(s) in %s:", len(ids), base)
	for _, id := range ids {
		b.WriteString("\n  " + id)
		if rt.sess != nil && id == rt.sess.SessionID() {
			b.WriteString(" (active)")
		}
	}
	printer.Info(b.String())
}
