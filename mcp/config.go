// MCP server configuration file support.
//
// Supports Anthropic-style MCP configuration format:
//
//	{
//	  "mcpServers": {
//	    "ssky": {
//	      "command": "docker",
//	      "args": ["run", "-i", "--rm", "-e", "SSKY_USER", "ghcr.io/simpleskyclient/ssky-mcp"],
//	      "env": {"SSKY_USER": "handle.bsky.social:app-password"}
//	    }
//	  }
//	}
package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/exec"
	"sort"
	"strings"

	gomcp "github.com/modelcontextprotocol/go-sdk/mcp"
)

// Config represents the MCP configuration file format.
type Config struct {
	MCPServers map[string]ServerConfig `json:"mcpServers"`
}

// ServerConfig represents a single MCP server configuration.
type ServerConfig struct {
	Command string            `json:"command"`
	Args    []string          `json:"args"`
	Env     map[string]string `json:"env,omitempty"`
}

// LoadConfig loads MCP configuration from a JSON file.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var config Config
	if err := json.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	return &config, nil
}

// Server returns the named server configuration.
func (c *Config) Server(name string) (ServerConfig, bool) {
	server, ok := c.MCPServers[name]
	return server, ok
}

// ServerCommands returns a list of server command strings for each configured server.
// Each command string is in the format "command arg1 arg2 ...", sorted by server name.
func (c *Config) ServerCommands() []string {
	names := make([]string, 0, len(c.MCPServers))
	for name := range c.MCPServers {
		names = append(names, name)
	}
	sort.Strings(names)

	commands := make([]string, 0, len(names))
	for _, name := range names {
		commands = append(commands, c.MCPServers[name].String())
	}
	return commands
}

// String renders the command line.
func (s ServerConfig) String() string {
	return strings.Join(append([]string{s.Command}, s.Args...), " ")
}

// Connect starts the server process with the configured environment added
// to the current one and opens a session to it.
func (s ServerConfig) Connect(ctx context.Context) (*Client, error) {
	if s.Command == "" {
		return nil, fmt.Errorf("MCP server command is empty")
	}
	cmd := exec.CommandContext(ctx, s.Command, s.Args...)
	if len(s.Env) > 0 {
		cmd.Env = os.Environ()
		keys := make([]string, 0, len(s.Env))
		for k := range s.Env {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			cmd.Env = append(cmd.Env, k+"="+s.Env[k])
		}
	}
	return Connect(ctx, &gomcp.CommandTransport{Command: cmd})
}
