package cmd

import (
	"fmt"
	"net/http"
	"os"
	"os/exec"
	"runtime"
	"time"

	"github.com/spf13/cobra"

	"github.com/strandcli/strand/internal/config"
	"github.com/strandcli/strand/internal/mcp"
	"github.com/strandcli/strand/internal/providers"
)

func doctorCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "doctor",
		Short: "Check environment and configuration health",
		Run: func(cmd *cobra.Command, args []string) {
			runDoctor()
		},
	}
}

func runDoctor() {
	fmt.Println("strand doctor")
	fmt.Printf("  Version:  %s\n", Version)
	fmt.Printf("  OS:       %s/%s\n", runtime.GOOS, runtime.GOARCH)
	fmt.Printf("  Go:       %s\n", runtime.Version())
	fmt.Println()

	cfgPath := resolveConfigPath()
	fmt.Printf("  Config:   %s", cfgPath)
	if _, err := os.Stat(cfgPath); err != nil {
		fmt.Println(" (NOT FOUND, using defaults)")
	} else {
		fmt.Println(" (OK)")
	}

	cfg, err := config.Load(cfgPath)
	if err != nil {
		fmt.Printf("  Config load error: %s\n", err)
		return
	}
	applyFlags(cfg)

	fmt.Println()
	fmt.Println("  Provider:")
	fmt.Printf("    %-12s %s\n", "active:", cfg.ModelProvider)
	switch cfg.ModelProvider {
	case "bedrock":
		checkEnv("AWS_ACCESS_KEY_ID")
		checkEnv("AWS_PROFILE")
		checkEnv("AWS_REGION")
	case "ollama":
		host := providers.DefaultOllamaHost
		if v, ok := cfg.ModelConfig["host"].(string); ok && v != "" {
			host = v
		}
		checkEndpoint("ollama", host+"/api/tags")
	case "openai":
		checkEnv("OPENAI_API_KEY")
	}

	fmt.Println()
	fmt.Println("  Knowledge base:")
	if cfg.KnowledgeBaseID == "" {
		fmt.Printf("    %-12s (not configured)\n", "id:")
	} else {
		fmt.Printf("    %-12s %s\n", "id:", cfg.KnowledgeBaseID)
	}

	fmt.Println()
	toolsDir := config.ExpandHome(cfg.ToolsDir)
	fmt.Printf("  Tools dir: %s", toolsDir)
	if _, err := os.Stat(toolsDir); err != nil {
		fmt.Println(" (NOT FOUND, custom tools disabled)")
	} else {
		fmt.Println(" (OK)")
	}

	fmt.Println()
	fmt.Println("  MCP:")
	configs, err := mcp.LoadConfig(cfg.MCPConfig)
	if err != nil {
		fmt.Printf("    config error: %v\n", err)
	} else if len(configs) == 0 {
		fmt.Println("    (no servers configured)")
	} else {
		for _, sc := range configs {
			fmt.Printf("    %-24s %s\n", sc.ConnectionID+":", sc.Transport)
		}
	}

	fmt.Println()
	fmt.Println("  External tools:")
	checkBinary("git")
	checkBinary("curl")

	fmt.Println()
	fmt.Println("Doctor check complete.")
}

func checkEnv(name string) {
	if os.Getenv(name) != "" {
		fmt.Printf("    %-12s set\n", name+":")
	} else {
		fmt.Printf("    %-12s (not set)\n", name+":")
	}
}

func checkEndpoint(name, url string) {
	client := &http.Client{Timeout: 2 * time.Second}
	resp, err := client.Get(url)
	if err != nil {
		fmt.Printf("    %-12s unreachable (%s)\n", name+":", url)
		return
	}
	resp.Body.Close()
	fmt.Printf("    %-12s reachable (%s)\n", name+":", url)
}

func checkBinary(name string) {
	path, err := exec.LookPath(name)
	if err != nil {
		fmt.Printf("    %-12s NOT FOUND\n", name+":")
	} else {
		fmt.Printf("    %-12s %s\n", name+":", path)
	}
}
