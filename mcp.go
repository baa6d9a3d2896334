package sidecar

import (
	"context"

	"github.com/wagiedev/sidecar-bridge-go/internal/mcp"
	"github.com/wagiedev/sidecar-bridge-go/internal/schema"
)

// MCPServer exposes worker methods as Model Context Protocol tools.
type MCPServer = mcp.Server

// NewMCPServer returns an MCP server with one tool per Catalog method,
// each forwarding its arguments to b.
func NewMCPServer(b Bridge, name, version string, opts ...Option) (*MCPServer, error) {
	registry, err := schema.DefaultRegistry()
	if err != nil {
		return nil, err
	}

	log := applyOptions(opts).Logger
	if log == nil {
		log = NopLogger()
	}

	return mcp.NewBridgeServer(log, name, version, b, registry), nil
}

// ServeMCP serves the Catalog over stdio until ctx is done or the MCP
// client disconnects.
func ServeMCP(ctx context.Context, b Bridge, name, version string, opts ...Option) error {
	server, err := NewMCPServer(b, name, version, opts...)
	if err != nil {
		return err
	}

	return server.RunStdio(ctx)
}
