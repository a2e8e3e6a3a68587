package cmd

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/strandcli/strand/internal/config"
	"github.com/strandcli/strand/internal/providers"
)

func initCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "init",
		Short: "Create a config file interactively",
		Run: func(cmd *cobra.Command, args []string) {
			runInit()
		},
	}
}

func runInit() {
	cfgPath := resolveConfigPath()
	if _, err := os.Stat(cfgPath); err == nil {
		overwrite, err := promptConfirm(fmt.Sprintf("Config exists at %s. Overwrite?", cfgPath), false)
		if err != nil || !overwrite {
			fmt.Println("Cancelled.")
			return
		}
	}

	cfg := config.Default()

	providerOptions := []SelectOption[string]{
		{"Amazon Bedrock", "bedrock"},
		{"Ollama (local)", "ollama"},
		{"OpenAI-compatible endpoint", "openai"},
	}
	provider, err := promptSelect("Model provider", providerOptions, 0)
	if err != nil {
		fmt.Println("Cancelled.")
		return
	}
	cfg.ModelProvider = provider
	cfg.ModelConfig = map[string]interface{}{}

	model, err := promptString("Model ID", "", providers.DefaultModel(provider))
	if err != nil {
		fmt.Println("Cancelled.")
		return
	}
	if model != "" {
		cfg.ModelConfig["model_id"] = model
	}

	switch provider {
	case "bedrock":
		region, err := promptString("AWS region", "", providers.DefaultBedrockRegion)
		if err != nil {
			fmt.Println("Cancelled.")
			return
		}
		cfg.ModelConfig["region_name"] = region

	case "ollama":
		host, err := promptString("Ollama host", "", providers.DefaultOllamaHost)
		if err != nil {
			fmt.Println("Cancelled.")
			return
		}
		cfg.ModelConfig["host"] = host

	case "openai":
		base, err := promptString("API base URL", "", providers.DefaultOpenAIBase)
		if err != nil {
			fmt.Println("Cancelled.")
			return
		}
		cfg.ModelConfig["base_url"] = base

		apiKey, err := promptPassword("API key", "Leave empty to use the OPENAI_API_KEY environment variable")
		if err != nil {
			fmt.Println("Cancelled.")
			return
		}
		if apiKey != "" {
			cfg.ModelConfig["api_key"] = apiKey
		}
	}

	kbID, err := promptString("Knowledge base ID",
		"Bedrock KB ID, \"local\" for the SQLite store, or empty to disable", "")
	if err != nil {
		fmt.Println("Cancelled.")
		return
	}
	cfg.KnowledgeBaseID = kbID

	persist, err := promptConfirm("Persist conversations to disk?", true)
	if err != nil {
		fmt.Println("Cancelled.")
		return
	}
	if persist {
		cfg.SessionPath = filepath.Join(config.HomeDir(), "sessions")
	}

	if err := config.Save(cfgPath, cfg); err != nil {
		fmt.Fprintf(os.Stderr, "Error saving config: %v\n", err)
		os.Exit(1)
	}

	fmt.Println()
	fmt.Printf("Config written to %s\n", cfgPath)
	fmt.Printf("  Provider: %s\n", cfg.ModelProvider)
	if model != "" {
		fmt.Printf("  Model:    %s\n", model)
	}
	if cfg.KnowledgeBaseID != "" {
		fmt.Printf("  KB:       %s\n", cfg.KnowledgeBaseID)
	}
	if cfg.SessionPath != "" {
		fmt.Printf("  Sessions: %s\n", cfg.SessionPath)
	}
	fmt.Println()
	fmt.Println("Run \"strand\" to start chatting.")
}
