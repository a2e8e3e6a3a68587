// Package logging configures the process-wide slog logger from the
// --log-level and --log-file flags. Without either flag the CLI stays quiet
// (warnings and errors only, on stderr).
package logging

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
)

// ParseLevel maps a level name (case-insensitive) to a slog.Level.
func ParseLevel(name string) (slog.Level, error) {
	switch strings.ToUpper(strings.TrimSpace(name)) {
	case "DEBUG":
		return slog.LevelDebug, nil
	case "INFO":
		return slog.LevelInfo, nil
	case "WARN", "WARNING":
		return slog.LevelWarn, nil
	case "ERROR", "CRITICAL":
		return slog.LevelError, nil
	default:
		return 0, fmt.Errorf("invalid log level: %s", name)
	}
}

// Levels lists the accepted --log-level values.
func Levels() []string {
	return []string{"DEBUG", "INFO", "WARN", "ERROR"}
}

// Configure installs the default slog handler. When logFile is non-empty the
// parent directory is created and logs go to the file; on failure it warns
// and falls back to stderr rather than aborting.
func Configure(level slog.Level, logFile string) error {
	var w io.Writer = os.Stderr

	if logFile != "" {
		if dir := filepath.Dir(logFile); dir != "." {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				fmt.Fprintf(os.Stderr, "Warning: failed to create log dir %s: %v\n", dir, err)
				fmt.Fprintln(os.Stderr, "Falling back to stderr logging")
			}
		}
		f, err := os.OpenFile(logFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Warning: failed to open log file %s: %v\n", logFile, err)
			fmt.Fprintln(os.Stderr, "Falling back to stderr logging")
		} else {
			w = f
		}
	}

	handler := slog.NewTextHandler(w, &slog.HandlerOptions{Level: level})
	slog.SetDefault(slog.New(handler))
	return nil
}

// Quiet raises the default logger threshold so only warnings and errors are
// emitted. Used when no logging flags are given.
func Quiet() {
	handler := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelWarn})
	slog.SetDefault(slog.New(handler))
}
