package providers

import (
	"fmt"
	"log/slog"
	"os"
	"sort"
	"strings"
)

// Default models per provider, overridable via model config.
const (
	DefaultBedrockModel = "us.anthropic.claude-sonnet-4-20250514-v1:0"
	DefaultOllamaModel  = "qwen3:4b"
	DefaultOllamaHost   = "http://localhost:11434"
	DefaultOpenAIBase   = "https://api.openai.com/v1"
	DefaultOpenAIModel  = "gpt-4o"
)

// factories maps provider names to constructors. Each constructor receives
// the merged model config (file defaults overlaid with --model-config).
var factories = map[string]func(config map[string]interface{}) (Provider, error){
	"bedrock": newBedrockFromConfig,
	"ollama":  newOllamaFromConfig,
	"openai":  newOpenAIFromConfig,
}

// Names returns the registered provider names, sorted.
func Names() []string {
	names := make([]string, 0, len(factories))
	for name := range factories {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Load instantiates the named provider with the given model config.
// Unknown names error and list the valid choices.
func Load(name string, config map[string]interface{}) (Provider, error) {
	factory, ok := factories[name]
	if !ok {
		return nil, fmt.Errorf("unknown model provider %q (valid: %s)",
			name, strings.Join(Names(), ", "))
	}
	p, err := factory(config)
	if err != nil {
		return nil, fmt.Errorf("load provider %s: %w", name, err)
	}
	slog.Debug("model provider loaded", "provider", name)
	return p, nil
}

// DefaultModel returns the model used when the config names none.
func DefaultModel(providerName string) string {
	switch providerName {
	case "bedrock":
		return DefaultBedrockModel
	case "ollama":
		return DefaultOllamaModel
	case "openai":
		return DefaultOpenAIModel
	default:
		return ""
	}
}

func newOllamaFromConfig(config map[string]interface{}) (Provider, error) {
	host := optString(config, "host", DefaultOllamaHost)
	model := optString(config, "model_id", DefaultOllamaModel)
	return NewOllamaProvider(host, model), nil
}

func newOpenAIFromConfig(config map[string]interface{}) (Provider, error) {
	apiKey := optString(config, "api_key", os.Getenv("OPENAI_API_KEY"))
	if apiKey == "" {
		return nil, fmt.Errorf("openai requires api_key in model config or OPENAI_API_KEY")
	}
	base := optString(config, "base_url", DefaultOpenAIBase)
	model := optString(config, "model_id", DefaultOpenAIModel)
	return NewOpenAIProvider("openai", apiKey, base, model), nil
}
