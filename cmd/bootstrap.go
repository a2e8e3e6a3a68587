package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/strandcli/strand/internal/agent"
	"github.com/strandcli/strand/internal/config"
	"github.com/strandcli/strand/internal/kb"
	"github.com/strandcli/strand/internal/mcp"
	"github.com/strandcli/strand/internal/prompt"
	"github.com/strandcli/strand/internal/providers"
	"github.com/strandcli/strand/internal/sessions"
	"github.com/strandcli/strand/internal/tools"
	"github.com/strandcli/strand/internal/tracing"
	"github.com/strandcli/strand/internal/tracing/otelexport"
)

// chatRuntime bundles everything a chat needs: the provider, the tool
// catalog, optional knowledge base and session storage, MCP connections and
// tracing.
type chatRuntime struct {
	cfg      *config.Config
	provider providers.Provider
	registry *tools.Registry
	store    kb.Store
	sess     *sessions.Manager
	sessBase string
	resumed  []providers.Message
	total    int
	mcpMgr   *mcp.Manager
	watcher  *tools.Watcher
	tracer   *tracing.Tracer
	loop     *agent.Loop
	cancel   context.CancelFunc
}

// buildRuntime assembles the agent from config and flags. Flags win over
// environment variables, which win over the config file.
func buildRuntime(ctx context.Context, stream bool, onEvent func(agent.Event)) (*chatRuntime, error) {
	cfg, err := config.Load(resolveConfigPath())
	if err != nil {
		return nil, err
	}
	applyFlags(cfg)

	modelCfg, err := mergeModelConfig(cfg.ModelConfig, flagModelConfig)
	if err != nil {
		return nil, err
	}

	provider, err := providers.Load(cfg.ModelProvider, modelCfg)
	if err != nil {
		return nil, err
	}
	modelID, _ := modelCfg["model_id"].(string)

	r := &chatRuntime{cfg: cfg, provider: provider}
	watchCtx, cancel := context.WithCancel(context.Background())
	r.cancel = cancel

	if cfg.KnowledgeBaseID != "" {
		region := optRegion(modelCfg)
		localPath := cfg.LocalKBPath
		if localPath == "" {
			localPath = filepath.Join(config.HomeDir(), "kb.db")
		}
		store, err := kb.Open(ctx, cfg.KnowledgeBaseID, region, config.ExpandHome(localPath))
		if err != nil {
			r.Close()
			return nil, fmt.Errorf("open knowledge base: %w", err)
		}
		r.store = store
	}

	if cfg.SessionPath != "" || flagSession != "" {
		base := sessionBase(cfg)
		r.sessBase = base
		existing := flagSession != "" && sessions.Exists(base, flagSession)
		sess, err := sessions.Open(base, flagSession)
		if err != nil {
			r.Close()
			return nil, fmt.Errorf("open session: %w", err)
		}
		r.sess = sess
		if existing {
			msgs, err := sess.Messages()
			if err != nil {
				slog.Warn("failed to read session history", "error", err)
			}
			r.resumed = msgs
			r.total = len(msgs)
		}
	}

	r.registry = buildToolRegistry(cfg, r.store, optRegion(modelCfg))

	toolsDir := config.ExpandHome(cfg.ToolsDir)
	loader := tools.NewDynamicLoader(r.registry, toolsDir)
	if err := loader.Load(); err != nil {
		slog.Warn("failed to load custom tools", "dir", toolsDir, "error", err)
	}
	r.watcher = tools.NewWatcher(loader)
	if err := r.watcher.Start(watchCtx); err != nil {
		slog.Warn("tool hot reload unavailable", "error", err)
	}

	mcpConfigs, err := mcp.LoadConfig(cfg.MCPConfig)
	if err != nil {
		slog.Warn("invalid MCP config", "error", err)
	} else if len(mcpConfigs) > 0 {
		r.mcpMgr = mcp.NewManager(r.registry)
		r.mcpMgr.ConnectAll(ctx, mcpConfigs)
	}

	r.tracer = buildTracer(ctx, cfg)

	r.loop = agent.New(agent.Options{
		Provider:      provider,
		Tools:         r.registry,
		Model:         modelID,
		ModelOptions:  modelCfg,
		SystemPrompt:  systemPromptWithWelcome,
		Sessions:      r.sess,
		KB:            r.store,
		Tracer:        r.tracer,
		MaxIterations: cfg.MaxIterations,
		ContextWindow: cfg.ContextWindow,
		Stream:        stream,
		OnEvent:       onEvent,
	})
	if len(r.resumed) > 0 {
		r.loop.SetHistory(r.resumed)
	}

	// The strand tool runs a nested agent with its own conversation, sharing
	// the provider but not the session or knowledge base. The catalog is a
	// clone of the parent's, narrowed to the requested tools when the caller
	// names any.
	r.registry.Register(tools.NewStrandTool(func(ctx context.Context, query, systemPrompt string, toolNames []string) (string, error) {
		catalog := r.registry.Clone()
		if len(toolNames) > 0 {
			allowed := make(map[string]bool, len(toolNames))
			for _, n := range toolNames {
				allowed[n] = true
			}
			for _, name := range catalog.List() {
				if !allowed[name] {
					catalog.Unregister(name)
				}
			}
		}
		nested := agent.New(agent.Options{
			Provider:     provider,
			Tools:        catalog,
			Model:        modelID,
			ModelOptions: modelCfg,
			SystemPrompt: func() string {
				if systemPrompt != "" {
					return systemPrompt
				}
				return prompt.System()
			},
			Tracer:        r.tracer,
			MaxIterations: cfg.MaxIterations,
			ContextWindow: cfg.ContextWindow,
		})
		result, err := nested.Run(ctx, query)
		if err != nil {
			return "", err
		}
		return result.Response, nil
	}))

	return r, nil
}

// Close releases runtime resources in reverse dependency order.
func (r *chatRuntime) Close() {
	if r.cancel != nil {
		r.cancel()
	}
	if r.watcher != nil {
		r.watcher.Stop()
	}
	if r.mcpMgr != nil {
		r.mcpMgr.DisconnectAll()
	}
	if r.tracer != nil {
		r.tracer.Stop()
	}
	if closer, ok := r.store.(interface{ Close() error }); ok {
		closer.Close()
	}
}

// applyFlags overlays command-line flags onto the loaded config.
func applyFlags(cfg *config.Config) {
	if flagKB != "" {
		cfg.KnowledgeBaseID = flagKB
	}
	if flagModelProvider != "" {
		cfg.ModelProvider = flagModelProvider
	}
	if flagSessionPath != "" {
		cfg.SessionPath = flagSessionPath
	}
	if flagToolsDir != "" {
		cfg.ToolsDir = flagToolsDir
	}
	if flagMCPConfig != "" {
		cfg.MCPConfig = flagMCPConfig
	}
}

// mergeModelConfig overlays the --model-config flag (inline JSON or a file
// path) onto the config file's model settings.
func mergeModelConfig(base map[string]interface{}, flag string) (map[string]interface{}, error) {
	merged := make(map[string]interface{}, len(base))
	for k, v := range base {
		merged[k] = v
	}

	flag = strings.TrimSpace(flag)
	if flag == "" {
		return merged, nil
	}

	raw := []byte(flag)
	if !strings.HasPrefix(flag, "{") {
		data, err := os.ReadFile(config.ExpandHome(flag))
		if err != nil {
			return nil, fmt.Errorf("read model config %s: %w", flag, err)
		}
		raw = data
	}

	var overlay map[string]interface{}
	if err := json.Unmarshal(raw, &overlay); err != nil {
		return nil, fmt.Errorf("parse model config: %w", err)
	}
	for k, v := range overlay {
		merged[k] = v
	}
	return merged, nil
}

// sessionBase resolves the session storage directory.
func sessionBase(cfg *config.Config) string {
	base := cfg.SessionPath
	if base == "" {
		base = filepath.Join(config.HomeDir(), "sessions")
	}
	return config.ExpandHome(base)
}

func optRegion(modelCfg map[string]interface{}) string {
	if v, ok := modelCfg["region_name"].(string); ok && v != "" {
		return v
	}
	if v := os.Getenv("AWS_REGION"); v != "" {
		return v
	}
	return providers.DefaultBedrockRegion
}

// buildToolRegistry registers the built-in tool catalog. Knowledge base
// tools only exist when a store is configured.
func buildToolRegistry(cfg *config.Config, store kb.Store, region string) *tools.Registry {
	reg := tools.NewRegistry()
	reg.Register(tools.NewShellTool(""))
	reg.Register(tools.NewEditorTool())
	reg.Register(tools.NewJSReplTool())
	reg.Register(tools.NewEnvironmentTool())
	reg.Register(tools.NewHTTPRequestTool())
	reg.Register(tools.NewS3Tool(region))
	reg.Register(tools.NewWelcomeTool())

	if store != nil {
		reg.Register(tools.NewRetrieveTool(store))
		reg.Register(tools.NewStoreInKBTool(store))
	}

	if cfg.ToolRateLimit > 0 {
		reg.SetRateLimiter(tools.NewToolRateLimiter(cfg.ToolRateLimit))
	}
	return reg
}

// buildTracer starts OTLP export when an endpoint is configured; otherwise
// tracing is a no-op.
func buildTracer(ctx context.Context, cfg *config.Config) *tracing.Tracer {
	if cfg.Tracing.Endpoint == "" {
		return tracing.NewTracer(nil)
	}
	exp, err := otelexport.New(ctx, otelexport.Config{
		Endpoint: cfg.Tracing.Endpoint,
		Protocol: cfg.Tracing.Protocol,
		Insecure: cfg.Tracing.Insecure,
	})
	if err != nil {
		slog.Warn("tracing disabled", "endpoint", cfg.Tracing.Endpoint, "error", err)
		return tracing.NewTracer(nil)
	}
	tr := tracing.NewTracer(exp)
	tr.Start()
	return tr
}

// systemPromptWithWelcome appends the welcome text to the system prompt so
// the model can reference what the user was shown at startup.
func systemPromptWithWelcome() string {
	return prompt.System() + "\n\nWelcome Text Reference:\n" + prompt.Welcome()
}
