package cmd

import (
	"encoding/json"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/strandcli/strand/internal/config"
	"github.com/strandcli/strand/internal/tools"
)

func toolsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "tools",
		Short: "Inspect the tool catalog",
	}
	cmd.AddCommand(toolsListCmd())
	return cmd
}

func toolsListCmd() *cobra.Command {
	var jsonOutput bool
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List built-in and custom tools",
		Run: func(cmd *cobra.Command, args []string) {
			cfg, err := config.Load(resolveConfigPath())
			if err != nil {
				fmt.Fprintf(os.Stderr, "Error loading config: %v\n", err)
				os.Exit(1)
			}
			applyFlags(cfg)

			reg := buildToolRegistry(cfg, nil, "")
			loader := tools.NewDynamicLoader(reg, config.ExpandHome(cfg.ToolsDir))
			loader.Load()
			custom := make(map[string]bool)
			for _, name := range loader.Loaded() {
				custom[name] = true
			}

			if jsonOutput {
				type entry struct {
					Name        string `json:"name"`
					Description string `json:"description"`
					Source      string `json:"source"`
				}
				var entries []entry
				for _, name := range reg.List() {
					t, _ := reg.Get(name)
					source := "builtin"
					if custom[name] {
						source = "custom"
					}
					entries = append(entries, entry{name, t.Description(), source})
				}
				data, _ := json.MarshalIndent(entries, "", "  ")
				fmt.Println(string(data))
				return
			}

			tw := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
			fmt.Fprintf(tw, "NAME\tSOURCE\tDESCRIPTION\n")
			for _, name := range reg.List() {
				t, _ := reg.Get(name)
				source := "builtin"
				if custom[name] {
					source = "custom"
				}
				fmt.Fprintf(tw, "%s\t%s\t%s\n", name, source, truncateStr(t.Description(), 70))
			}
			tw.Flush()

			fmt.Println()
			fmt.Println("Knowledge base tools (retrieve, store_in_kb) appear when --kb is set.")
			fmt.Println("MCP tools appear when servers from the MCP config are connected.")
		},
	}
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "output as JSON")
	return cmd
}

func truncateStr(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max-3] + "..."
}
