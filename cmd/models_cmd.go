package cmd

import (
	"encoding/json"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/strandcli/strand/internal/config"
	"github.com/strandcli/strand/internal/providers"
)

func modelsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "models",
		Short: "List model providers and defaults",
	}
	cmd.AddCommand(modelsListCmd())
	return cmd
}

type modelEntry struct {
	Provider string `json:"provider"`
	Model    string `json:"model"`
	Status   string `json:"status"`
}

func modelsListCmd() *cobra.Command {
	var jsonOutput bool
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List available providers and their models",
		Run: func(cmd *cobra.Command, args []string) {
			cfg, err := config.Load(resolveConfigPath())
			if err != nil {
				fmt.Fprintf(os.Stderr, "Error loading config: %v\n", err)
				os.Exit(1)
			}
			applyFlags(cfg)

			entries := buildModelList(cfg)

			if jsonOutput {
				data, _ := json.MarshalIndent(entries, "", "  ")
				fmt.Println(string(data))
				return
			}

			tw := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
			fmt.Fprintf(tw, "PROVIDER\tMODEL\tSTATUS\n")
			for _, e := range entries {
				fmt.Fprintf(tw, "%s\t%s\t%s\n", e.Provider, e.Model, e.Status)
			}
			tw.Flush()
		},
	}
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "output as JSON")
	return cmd
}

func buildModelList(cfg *config.Config) []modelEntry {
	var entries []modelEntry
	for _, name := range providers.Names() {
		model := providers.DefaultModel(name)
		status := "available"
		if name == cfg.ModelProvider {
			status = "active"
			if m, ok := cfg.ModelConfig["model_id"].(string); ok && m != "" {
				model = m
			}
		}
		entries = append(entries, modelEntry{Provider: name, Model: model, Status: status})
	}
	return entries
}
