package mcp

import (
	"context"
	"fmt"
	"strings"
	"sync/atomic"
	"time"

	mcpclient "github.com/mark3labs/mcp-go/client"
	mcpgo "github.com/mark3labs/mcp-go/mcp"

	"github.com/strandcli/strand/internal/tools"
)

const defaultCallTimeoutSec = 60

// BridgeTool exposes one remote MCP tool through the local tools.Tool
// interface. The registry treats it like any built-in: the agent loop never
// learns the tool lives on another process.
type BridgeTool struct {
	serverName     string
	toolName       string // name on the MCP server
	registeredName string // local name, "<prefix>__<toolName>" when prefixed
	description    string
	inputSchema    map[string]interface{}
	client         *mcpclient.Client
	timeoutSec     int
	connected      *atomic.Bool
}

// NewBridgeTool wraps an MCP tool definition. A non-empty prefix namespaces
// the local name so two servers can expose identically named tools.
func NewBridgeTool(serverName string, mcpTool mcpgo.Tool, client *mcpclient.Client, prefix string, timeoutSec int, connected *atomic.Bool) *BridgeTool {
	registered := mcpTool.Name
	if prefix != "" {
		registered = prefix + "__" + mcpTool.Name
	}
	if timeoutSec <= 0 {
		timeoutSec = defaultCallTimeoutSec
	}

	return &BridgeTool{
		serverName:     serverName,
		toolName:       mcpTool.Name,
		registeredName: registered,
		description:    mcpTool.Description,
		inputSchema:    inputSchemaToMap(mcpTool.InputSchema),
		client:         client,
		timeoutSec:     timeoutSec,
		connected:      connected,
	}
}

func (t *BridgeTool) Name() string                       { return t.registeredName }
func (t *BridgeTool) Description() string                { return t.description }
func (t *BridgeTool) Parameters() map[string]interface{} { return t.inputSchema }

// ServerName identifies the connection this tool came from.
func (t *BridgeTool) ServerName() string { return t.serverName }

// OriginalName is the tool's name on the server, without the local prefix.
func (t *BridgeTool) OriginalName() string { return t.toolName }

func (t *BridgeTool) Execute(ctx context.Context, args map[string]interface{}) *tools.Result {
	if !t.connected.Load() {
		return tools.ErrorResult(fmt.Sprintf("MCP server %q is disconnected", t.serverName))
	}

	callCtx, cancel := context.WithTimeout(ctx, time.Duration(t.timeoutSec)*time.Second)
	defer cancel()

	req := mcpgo.CallToolRequest{}
	req.Params.Name = t.toolName
	req.Params.Arguments = args

	result, err := t.client.CallTool(callCtx, req)
	if err != nil {
		if callCtx.Err() == context.DeadlineExceeded {
			return tools.ErrorResult(fmt.Sprintf("MCP tool %q timeout after %ds", t.registeredName, t.timeoutSec))
		}
		return tools.ErrorResult(fmt.Sprintf("MCP tool %q error: %v", t.registeredName, err))
	}

	text := extractTextContent(result)
	if result.IsError {
		return tools.ErrorResult(text)
	}
	return tools.NewResult(text)
}

// inputSchemaToMap flattens the typed MCP schema into the generic map the
// provider layer serializes. Servers sometimes omit the type; the
// function-calling APIs all expect "object".
func inputSchemaToMap(schema mcpgo.ToolInputSchema) map[string]interface{} {
	m := map[string]interface{}{"type": schema.Type}
	if schema.Type == "" {
		m["type"] = "object"
	}
	if len(schema.Properties) > 0 {
		m["properties"] = schema.Properties
	}
	if len(schema.Required) > 0 {
		m["required"] = schema.Required
	}
	if schema.AdditionalProperties != nil {
		m["additionalProperties"] = schema.AdditionalProperties
	}
	return m
}

// extractTextContent joins the text blocks of a call result. Non-text blocks
// are reduced to a type marker rather than dropped silently.
func extractTextContent(result *mcpgo.CallToolResult) string {
	if result == nil || len(result.Content) == 0 {
		return ""
	}

	parts := make([]string, 0, len(result.Content))
	for _, c := range result.Content {
		switch v := c.(type) {
		case mcpgo.TextContent:
			parts = append(parts, v.Text)
		case *mcpgo.TextContent:
			parts = append(parts, v.Text)
		default:
			parts = append(parts, fmt.Sprintf("[non-text content: %T]", c))
		}
	}
	return strings.Join(parts, "\n")
}
