package mcp

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/titanous/json5"
)

// ServerConfig describes one MCP server connection.
type ServerConfig struct {
	ConnectionID  string            `json:"connection_id"`
	Transport     string            `json:"transport"`
	Command       string            `json:"command"`
	Args          []string          `json:"args"`
	Env           map[string]string `json:"env"`
	ServerURL     string            `json:"server_url"`
	AutoLoadTools *bool             `json:"auto_load_tools"`
	Disabled      bool              `json:"disabled"`
	TimeoutSec    int               `json:"timeout_sec"`
}

// LoadTools reports whether the connection's tools should be registered
// automatically. Defaults to true.
func (c ServerConfig) LoadTools() bool {
	return c.AutoLoadTools == nil || *c.AutoLoadTools
}

// LoadConfig parses MCP server configurations from a JSON5 string or a path
// to a .json file. Accepted shapes: a list of server objects, a single bare
// object, or an mcpServers map (disabled entries are skipped). When config is
// empty, STRAND_MCP_CONFIG_PATH is consulted.
func LoadConfig(config string) ([]ServerConfig, error) {
	config = strings.TrimSpace(config)
	if config == "" || config == "[]" {
		path := os.Getenv("STRAND_MCP_CONFIG_PATH")
		if path == "" {
			return nil, nil
		}
		if _, err := os.Stat(path); err != nil {
			return nil, nil
		}
		config = path
	}

	raw := []byte(config)
	if strings.HasSuffix(config, ".json") {
		data, err := os.ReadFile(config)
		if err != nil {
			return nil, fmt.Errorf("read MCP config %s: %w", config, err)
		}
		raw = data
	}

	servers, err := parseServers(raw)
	if err != nil {
		return nil, err
	}

	for i := range servers {
		if servers[i].Transport == "" {
			servers[i].Transport = "stdio"
		}
		if servers[i].ConnectionID == "" {
			servers[i].ConnectionID = autoConnectionID(servers[i], i)
		}
	}
	return servers, nil
}

func parseServers(raw []byte) ([]ServerConfig, error) {
	trimmed := strings.TrimSpace(string(raw))
	if strings.HasPrefix(trimmed, "[") {
		var list []ServerConfig
		if err := json5.Unmarshal(raw, &list); err != nil {
			return nil, fmt.Errorf("parse MCP config list: %w", err)
		}
		return list, nil
	}

	// Object form: either an mcpServers map or a single server.
	var wrapper struct {
		MCPServers map[string]ServerConfig `json:"mcpServers"`
	}
	if err := json5.Unmarshal(raw, &wrapper); err != nil {
		return nil, fmt.Errorf("parse MCP config: %w", err)
	}
	if len(wrapper.MCPServers) > 0 {
		ids := make([]string, 0, len(wrapper.MCPServers))
		for id := range wrapper.MCPServers {
			ids = append(ids, id)
		}
		sort.Strings(ids)

		var servers []ServerConfig
		for _, id := range ids {
			sc := wrapper.MCPServers[id]
			if sc.Disabled {
				continue
			}
			sc.ConnectionID = id
			servers = append(servers, sc)
		}
		return servers, nil
	}

	var single ServerConfig
	if err := json5.Unmarshal(raw, &single); err != nil {
		return nil, fmt.Errorf("parse MCP config: %w", err)
	}
	if single.Command == "" && single.ServerURL == "" {
		return nil, fmt.Errorf("MCP config needs a command or server_url")
	}
	return []ServerConfig{single}, nil
}

// autoConnectionID derives a connection ID from the command basename or the
// server host, suffixed with the config index.
func autoConnectionID(sc ServerConfig, index int) string {
	if sc.Transport == "sse" {
		host := "server"
		if parsed, err := url.Parse(sc.ServerURL); err == nil && parsed.Hostname() != "" {
			host = parsed.Hostname()
		}
		host = strings.NewReplacer(".", "_", "-", "_").Replace(host)
		return fmt.Sprintf("mcp_%s_%d", host, index)
	}

	command := sc.Command
	if command == "" {
		command = "unknown"
	}
	base := strings.ReplaceAll(filepath.Base(command), ".", "_")
	return fmt.Sprintf("mcp_%s_%d", base, index)
}
