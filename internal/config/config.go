package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// Config holds the persistent CLI configuration from ~/.strand/config.yaml.
// Everything here can be overridden by environment variables (STRAND_*) and
// again by command-line flags; the flag always wins.
type Config struct {
	// ModelProvider selects the inference backend: "bedrock", "ollama" or "openai".
	ModelProvider string `yaml:"model_provider"`

	// ModelConfig holds provider-specific defaults (model_id, region,
	// temperature, base_url, ...). Merged under the --model-config flag.
	ModelConfig map[string]interface{} `yaml:"model_config,omitempty"`

	// KnowledgeBaseID enables retrieval/storage against a Bedrock knowledge
	// base. The special value "local" selects the SQLite backend.
	KnowledgeBaseID string `yaml:"knowledge_base_id,omitempty"`

	// SessionPath enables file-backed session persistence when set.
	SessionPath string `yaml:"session_path,omitempty"`

	// ToolsDir is scanned for custom JavaScript tools (default "./tools").
	ToolsDir string `yaml:"tools_dir,omitempty"`

	// MCPConfig is an inline JSON config or a path to one.
	MCPConfig string `yaml:"mcp_config,omitempty"`

	// LocalKBPath is the SQLite database used by the "local" knowledge base.
	LocalKBPath string `yaml:"local_kb_path,omitempty"`

	// ToolRateLimit caps tool executions per hour per session (0 = unlimited).
	ToolRateLimit int `yaml:"tool_rate_limit,omitempty"`

	// MaxIterations bounds the tool-use loop within a single turn.
	MaxIterations int `yaml:"max_iterations,omitempty"`

	// ContextWindow is the token budget used for context pruning.
	ContextWindow int `yaml:"context_window,omitempty"`

	Tracing TracingConfig `yaml:"tracing,omitempty"`
}

// TracingConfig configures optional OTLP span export.
type TracingConfig struct {
	Endpoint string `yaml:"endpoint,omitempty"` // e.g. "localhost:4317"
	Protocol string `yaml:"protocol,omitempty"` // "grpc" (default) or "http"
	Insecure bool   `yaml:"insecure,omitempty"`
}

const (
	DefaultProvider      = "bedrock"
	DefaultToolsDir      = "./tools"
	DefaultMaxIterations = 20
	DefaultContextWindow = 128000
)

// Default returns the configuration used when no config file exists.
func Default() *Config {
	return &Config{
		ModelProvider: DefaultProvider,
		ToolsDir:      DefaultToolsDir,
		MaxIterations: DefaultMaxIterations,
		ContextWindow: DefaultContextWindow,
	}
}

// HomeDir returns the strand state directory (~/.strand).
func HomeDir() string {
	return ExpandHome("~/.strand")
}

// DefaultPath returns the default config file location.
func DefaultPath() string {
	return filepath.Join(HomeDir(), "config.yaml")
}

// Load reads a config file and applies defaults and env overrides.
// A missing file is not an error: defaults (plus env) are returned.
func Load(path string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			cfg.applyEnv()
			return cfg, nil
		}
		return nil, fmt.Errorf("read config: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}

	if cfg.ModelProvider == "" {
		cfg.ModelProvider = DefaultProvider
	}
	if cfg.ToolsDir == "" {
		cfg.ToolsDir = DefaultToolsDir
	}
	if cfg.MaxIterations <= 0 {
		cfg.MaxIterations = DefaultMaxIterations
	}
	if cfg.ContextWindow <= 0 {
		cfg.ContextWindow = DefaultContextWindow
	}

	cfg.applyEnv()
	return cfg, nil
}

// Save writes the config as YAML, creating parent directories as needed.
func Save(path string, cfg *Config) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create config dir: %w", err)
	}
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}
	return os.WriteFile(path, data, 0o600)
}

// applyEnv overlays STRAND_* environment variables onto the config.
func (c *Config) applyEnv() {
	if v := os.Getenv("STRAND_MODEL_PROVIDER"); v != "" {
		c.ModelProvider = v
	}
	if v := os.Getenv("STRAND_KNOWLEDGE_BASE_ID"); v != "" {
		c.KnowledgeBaseID = v
	}
	if v := os.Getenv("STRAND_SESSION_PATH"); v != "" {
		c.SessionPath = v
	}
	if v := os.Getenv("STRAND_MCP_CONFIG_PATH"); v != "" {
		c.MCPConfig = v
	}
	if v := os.Getenv("STRAND_TOOLS_DIR"); v != "" {
		c.ToolsDir = v
	}
	if v := os.Getenv("STRAND_OTEL_ENDPOINT"); v != "" {
		c.Tracing.Endpoint = v
	}
}

// ExpandHome replaces a leading ~ with the user's home directory.
func ExpandHome(path string) string {
	if path == "~" || strings.HasPrefix(path, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return path
		}
		if path == "~" {
			return home
		}
		return filepath.Join(home, path[2:])
	}
	return path
}
