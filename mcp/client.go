// Package mcp provides a Model Context Protocol (MCP) client.
//
// MCP is a protocol for communication between AI models and tool providers.
// This package connects to MCP servers, started as child processes or
// reached through any go-sdk transport, and calls their tools.
//
// Information Hiding:
// - Process management hidden
// - Session handshake and protocol version hidden
// - Tool result content decoding hidden

package mcp

import (
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"

	gomcp "github.com/modelcontextprotocol/go-sdk/mcp"
)

const (
	clientName    = "govsummary"
	clientVersion = "0.1.0"
)

// ErrToolFailed is wrapped by errors reported by a tool itself, as opposed
// to transport or protocol failures.
var ErrToolFailed = errors.New("tool reported an error")

// Client is a connected MCP session.
type Client struct {
	session *gomcp.ClientSession
}

// ToolInfo describes a tool available on the MCP server.
type ToolInfo struct {
	Name        string
	Description string
}

// Connect opens a session over transport.
func Connect(ctx context.Context, transport gomcp.Transport) (*Client, error) {
	client := gomcp.NewClient(&gomcp.Implementation{Name: clientName, Version: clientVersion}, nil)
	session, err := client.Connect(ctx, transport, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize MCP client: %w", err)
	}
	return &Client{session: session}, nil
}

// NewClient starts command as an MCP server speaking over stdin/stdout and
// connects to it.
func NewClient(ctx context.Context, command string, args ...string) (*Client, error) {
	return Connect(ctx, &gomcp.CommandTransport{Command: exec.CommandContext(ctx, command, args...)})
}

// ListTools returns all tools available on the MCP server.
func (c *Client) ListTools(ctx context.Context) ([]ToolInfo, error) {
	var tools []ToolInfo
	params := &gomcp.ListToolsParams{}
	for {
		result, err := c.session.ListTools(ctx, params)
		if err != nil {
			return nil, fmt.Errorf("failed to list tools: %w", err)
		}
		for _, tool := range result.Tools {
			tools = append(tools, ToolInfo{Name: tool.Name, Description: tool.Description})
		}
		if result.NextCursor == "" {
			return tools, nil
		}
		params = &gomcp.ListToolsParams{Cursor: result.NextCursor}
	}
}

// CallTool calls a tool and returns its text content. A result flagged as
// an error is returned as an error wrapping ErrToolFailed.
func (c *Client) CallTool(ctx context.Context, name string, arguments map[string]any) (string, error) {
	result, err := c.session.CallTool(ctx, &gomcp.CallToolParams{Name: name, Arguments: arguments})
	if err != nil {
		return "", fmt.Errorf("failed to call tool %s: %w", name, err)
	}

	text := resultText(result)
	if result.IsError {
		return text, fmt.Errorf("%w: %s: %s", ErrToolFailed, name, text)
	}
	return text, nil
}

// Close ends the session and stops the server process, if any.
func (c *Client) Close() error {
	return c.session.Close()
}

func resultText(result *gomcp.CallToolResult) string {
	var parts []string
	for _, content := range result.Content {
		if tc, ok := content.(*gomcp.TextContent); ok {
			parts = append(parts, tc.Text)
		}
	}
	return strings.Join(parts, "\n")
}
