package cmd

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/strandcli/strand/internal/config"
	"github.com/strandcli/strand/internal/logging"
)

// Version is stamped at build time via -ldflags.
var Version = "dev"

// Global flags shared by the chat entry point.
var (
	flagConfig        string
	flagKB            string
	flagModelProvider string
	flagModelConfig   string
	flagSession       string
	flagSessionPath   string
	flagToolsDir      string
	flagMCPConfig     string
	flagLogLevel      string
	flagLogFile       string
	flagNoStream      bool
	flagListSessions  bool
)

func rootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "strand [query...]",
		Short: "A CLI agent with tools, knowledge bases and persistent sessions",
		Long: `Strand is an interactive CLI agent. Run it with no arguments for a REPL,
or pass a query for a one-shot answer.

Examples:
  strand                              # interactive REPL
  strand "what is in this directory"  # one-shot query
  strand --kb KBID123456 "notes?"     # with a Bedrock knowledge base
  strand --model-provider ollama      # local inference`,
		Args:          cobra.ArbitraryArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			if flagListSessions {
				printAllSessions(false)
				return nil
			}
			return runChat(cmd.Context(), strings.Join(args, " "))
		},
	}

	flags := cmd.PersistentFlags()
	flags.StringVar(&flagConfig, "config", "", "config file (default ~/.strand/config.yaml)")
	flags.StringVar(&flagKB, "kb", "", "knowledge base ID (or \"local\" for the SQLite store)")
	flags.StringVar(&flagKB, "knowledge-base", "", "alias for --kb")
	_ = flags.MarkHidden("knowledge-base")
	flags.StringVar(&flagModelProvider, "model-provider", "", "model provider: bedrock, ollama or openai")
	flags.StringVar(&flagModelConfig, "model-config", "", "inline JSON model config or a path to one")
	flags.StringVarP(&flagSession, "session", "s", "", "session ID to resume (default: new session)")
	flags.StringVar(&flagSessionPath, "session-path", "", "directory for session storage")
	flags.StringVar(&flagToolsDir, "tools-dir", "", "directory scanned for custom JavaScript tools")
	flags.StringVar(&flagMCPConfig, "mcp-config", "", "MCP servers config (inline JSON or a path)")
	flags.StringVar(&flagLogLevel, "log-level", "", fmt.Sprintf("log level: %s", strings.Join(logging.Levels(), ", ")))
	flags.StringVar(&flagLogFile, "log-file", "", "write logs to a file instead of stderr")
	flags.BoolVar(&flagNoStream, "no-stream", false, "disable streaming output")
	flags.BoolVar(&flagListSessions, "list-sessions", false, "list stored sessions and exit")

	cmd.AddCommand(initCmd())
	cmd.AddCommand(sessionsCmd())
	cmd.AddCommand(toolsCmd())
	cmd.AddCommand(modelsCmd())
	cmd.AddCommand(configCmd())
	cmd.AddCommand(welcomeCmd())
	cmd.AddCommand(doctorCmd())
	cmd.AddCommand(versionCmd())

	return cmd
}

// Execute runs the CLI.
func Execute() {
	if err := rootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("strand %s\n", Version)
		},
	}
}

// resolveConfigPath honors --config, then STRAND_CONFIG, then the default.
func resolveConfigPath() string {
	if flagConfig != "" {
		return config.ExpandHome(flagConfig)
	}
	if v := os.Getenv("STRAND_CONFIG"); v != "" {
		return config.ExpandHome(v)
	}
	return config.DefaultPath()
}

// setupLogging configures slog from the logging flags. Without flags the
// CLI stays quiet so the REPL output is clean.
func setupLogging() error {
	if flagLogLevel == "" && flagLogFile == "" {
		logging.Quiet()
		return nil
	}
	level, err := logging.ParseLevel(flagLogLevel)
	if flagLogLevel == "" {
		level, err = logging.ParseLevel("INFO")
	}
	if err != nil {
		return err
	}
	return logging.Configure(level, config.ExpandHome(flagLogFile))
}
