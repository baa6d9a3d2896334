package mcp

import (
	"encoding/json"
	"fmt"
)

// ServerType represents the type of MCP server.
type ServerType string

// ServerTypeStdio uses stdio for communication.
const ServerTypeStdio ServerType = "stdio"

// StdioServerConfig describes how an MCP host launches this server.
type StdioServerConfig struct {
	Type    ServerType        `json:"type"`
	Command string            `json:"command"`
	Args    []string          `json:"args,omitempty"`
	Env     map[string]string `json:"env,omitempty"`
}

// ClientConfig is the "mcpServers" document MCP hosts read to register
// servers.
type ClientConfig struct {
	MCPServers map[string]*StdioServerConfig `json:"mcpServers"`
}

// NewClientConfig returns a host config registering one stdio server.
func NewClientConfig(name, command string, args []string, env map[string]string) *ClientConfig {
	return &ClientConfig{
		MCPServers: map[string]*StdioServerConfig{
			name: {
				Type:    ServerTypeStdio,
				Command: command,
				Args:    args,
				Env:     env,
			},
		},
	}
}

// JSON renders the config indented for pasting into a host's settings.
func (c *ClientConfig) JSON() ([]byte, error) {
	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshal mcp client config: %w", err)
	}

	return data, nil
}
