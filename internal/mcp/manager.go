package mcp

import (
	"context"
	"fmt"
	"log/slog"
	"sync/atomic"

	mcpclient "github.com/mark3labs/mcp-go/client"
	mcpgo "github.com/mark3labs/mcp-go/mcp"

	"github.com/strandcli/strand/internal/tools"
)

// connection is one live MCP client plus its registered bridge tools.
type connection struct {
	config    ServerConfig
	client    *mcpclient.Client
	connected *atomic.Bool
	toolNames []string
}

// Manager owns MCP connections for the lifetime of a run: it connects the
// configured servers, bridges their tools into the registry and tears
// everything down on shutdown.
type Manager struct {
	registry    *tools.Registry
	connections map[string]*connection
}

func NewManager(registry *tools.Registry) *Manager {
	return &Manager{
		registry:    registry,
		connections: make(map[string]*connection),
	}
}

// ConnectAll connects every configured server. A failing server logs a
// warning and is skipped; the rest still come up.
func (m *Manager) ConnectAll(ctx context.Context, configs []ServerConfig) {
	for _, sc := range configs {
		if sc.Disabled {
			continue
		}
		if err := m.Connect(ctx, sc); err != nil {
			slog.Warn("MCP connection failed", "connection_id", sc.ConnectionID, "error", err)
		}
	}
}

// Connect establishes one MCP connection and, when the config asks for it,
// registers the server's tools as "<connection_id>__<tool>".
func (m *Manager) Connect(ctx context.Context, sc ServerConfig) error {
	if _, exists := m.connections[sc.ConnectionID]; exists {
		return fmt.Errorf("connection %q already exists", sc.ConnectionID)
	}

	client, err := m.dial(ctx, sc)
	if err != nil {
		return err
	}

	initReq := mcpgo.InitializeRequest{}
	initReq.Params.ProtocolVersion = mcpgo.LATEST_PROTOCOL_VERSION
	initReq.Params.ClientInfo = mcpgo.Implementation{Name: "strand", Version: "1.0"}
	if _, err := client.Initialize(ctx, initReq); err != nil {
		client.Close()
		return fmt.Errorf("initialize %s: %w", sc.ConnectionID, err)
	}

	connected := &atomic.Bool{}
	connected.Store(true)
	conn := &connection{config: sc, client: client, connected: connected}
	m.connections[sc.ConnectionID] = conn

	slog.Info("connected to MCP server", "connection_id", sc.ConnectionID, "transport", sc.Transport)

	if sc.LoadTools() {
		if err := m.loadTools(ctx, conn); err != nil {
			slog.Warn("failed to load MCP tools", "connection_id", sc.ConnectionID, "error", err)
		}
	}
	return nil
}

func (m *Manager) dial(ctx context.Context, sc ServerConfig) (*mcpclient.Client, error) {
	switch sc.Transport {
	case "", "stdio":
		if sc.Command == "" {
			return nil, fmt.Errorf("stdio transport requires a command")
		}
		env := make([]string, 0, len(sc.Env))
		for k, v := range sc.Env {
			env = append(env, k+"="+v)
		}
		client, err := mcpclient.NewStdioMCPClient(sc.Command, env, sc.Args...)
		if err != nil {
			return nil, fmt.Errorf("start %s: %w", sc.Command, err)
		}
		return client, nil
	case "sse":
		if sc.ServerURL == "" {
			return nil, fmt.Errorf("sse transport requires a server_url")
		}
		client, err := mcpclient.NewSSEMCPClient(sc.ServerURL)
		if err != nil {
			return nil, fmt.Errorf("create SSE client: %w", err)
		}
		if err := client.Start(ctx); err != nil {
			return nil, fmt.Errorf("connect to %s: %w", sc.ServerURL, err)
		}
		return client, nil
	default:
		return nil, fmt.Errorf("unknown transport %q (valid: stdio, sse)", sc.Transport)
	}
}

func (m *Manager) loadTools(ctx context.Context, conn *connection) error {
	resp, err := conn.client.ListTools(ctx, mcpgo.ListToolsRequest{})
	if err != nil {
		return err
	}

	for _, mcpTool := range resp.Tools {
		bridge := NewBridgeTool(conn.config.ConnectionID, mcpTool, conn.client,
			conn.config.ConnectionID, conn.config.TimeoutSec, conn.connected)
		if _, exists := m.registry.Get(bridge.Name()); exists {
			slog.Warn("skipping MCP tool (name collision)", "tool", bridge.Name())
			continue
		}
		m.registry.Register(bridge)
		conn.toolNames = append(conn.toolNames, bridge.Name())
	}

	slog.Info("registered MCP tools", "connection_id", conn.config.ConnectionID,
		"count", len(conn.toolNames))
	return nil
}

// Connections returns the IDs of active connections.
func (m *Manager) Connections() []string {
	ids := make([]string, 0, len(m.connections))
	for id := range m.connections {
		ids = append(ids, id)
	}
	return ids
}

// DisconnectAll closes every connection and removes its bridge tools.
func (m *Manager) DisconnectAll() {
	for id, conn := range m.connections {
		conn.connected.Store(false)
		for _, name := range conn.toolNames {
			m.registry.Unregister(name)
		}
		if err := conn.client.Close(); err != nil {
			slog.Warn("error closing MCP connection", "connection_id", id, "error", err)
		}
		delete(m.connections, id)
		slog.Debug("disconnected MCP server", "connection_id", id)
	}
}
