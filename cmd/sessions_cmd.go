package cmd

import (
	"encoding/json"
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/strandcli/strand/internal/config"
	"github.com/strandcli/strand/internal/sessions"
)

func sessionsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sessions",
		Short: "View and manage stored sessions",
	}
	cmd.AddCommand(sessionsListCmd())
	cmd.AddCommand(sessionsShowCmd())
	cmd.AddCommand(sessionsDeleteCmd())
	return cmd
}

func sessionsBase() string {
	cfg, err := config.Load(resolveConfigPath())
	if err != nil {
		cfg = config.Default()
	}
	if flagSessionPath != "" {
		cfg.SessionPath = flagSessionPath
	}
	return sessionBase(cfg)
}

func sessionsListCmd() *cobra.Command {
	var jsonOutput bool
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List all sessions",
		Run: func(cmd *cobra.Command, args []string) {
			printAllSessions(jsonOutput)
		},
	}
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "output as JSON")
	return cmd
}

// printAllSessions backs both `strand sessions list` and --list-sessions.
func printAllSessions(jsonOutput bool) {
	base := sessionsBase()
	ids := sessions.List(base)

	var infos []*sessions.Info
	for _, id := range ids {
		info, err := sessions.GetInfo(base, id)
		if err != nil {
			continue
		}
		infos = append(infos, info)
	}

	if jsonOutput {
		data, _ := json.MarshalIndent(infos, "", "  ")
		fmt.Println(string(data))
		return
	}

	if len(infos) == 0 {
		fmt.Printf("No sessions found in %s.\n", base)
		return
	}

	tw := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintf(tw, "SESSION\tMESSAGES\tCREATED\n")
	for _, info := range infos {
		fmt.Fprintf(tw, "%s\t%d\t%s\n",
			info.SessionID, info.TotalMessages,
			info.CreatedAt.Format(time.DateTime))
	}
	tw.Flush()
}

func sessionsShowCmd() *cobra.Command {
	var last int
	cmd := &cobra.Command{
		Use:   "show <session-id>",
		Short: "Print a session transcript",
		Args:  cobra.ExactArgs(1),
		Run: func(cmd *cobra.Command, args []string) {
			base := sessionsBase()
			if !sessions.Exists(base, args[0]) {
				fmt.Fprintf(os.Stderr, "Error: session %s not found\n", args[0])
				os.Exit(1)
			}
			mgr, err := sessions.Open(base, args[0])
			if err != nil {
				fmt.Fprintf(os.Stderr, "Error: %v\n", err)
				os.Exit(1)
			}

			msgs, err := mgr.Messages()
			if err != nil {
				fmt.Fprintf(os.Stderr, "Error: %v\n", err)
				os.Exit(1)
			}
			if last > 0 && len(msgs) > last {
				msgs = msgs[len(msgs)-last:]
			}

			for _, m := range msgs {
				switch m.Role {
				case "user":
					fmt.Printf("~ %s\n", m.Content)
				case "assistant":
					if m.Content != "" {
						fmt.Println(m.Content)
					}
					for _, tc := range m.ToolCalls {
						fmt.Printf("  [tool call] %s\n", tc.Name)
					}
				case "tool":
					fmt.Println("  [tool result]")
				}
			}
		},
	}
	cmd.Flags().IntVar(&last, "last", 0, "show only the last N messages")
	return cmd
}

func sessionsDeleteCmd() *cobra.Command {
	var force bool
	cmd := &cobra.Command{
		Use:   "delete <session-id>",
		Short: "Delete a session",
		Args:  cobra.ExactArgs(1),
		Run: func(cmd *cobra.Command, args []string) {
			base := sessionsBase()
			if !force {
				confirmed, err := promptConfirm(fmt.Sprintf("Delete session %q?", args[0]), false)
				if err != nil || !confirmed {
					fmt.Println("Cancelled.")
					return
				}
			}
			if err := sessions.Delete(base, args[0]); err != nil {
				fmt.Fprintf(os.Stderr, "Error: %v\n", err)
				os.Exit(1)
			}
			fmt.Printf("Deleted session: %s\n", args[0])
		},
	}
	cmd.Flags().BoolVar(&force, "force", false, "skip confirmation")
	return cmd
}
