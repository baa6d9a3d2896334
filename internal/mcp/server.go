package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"maps"
	"slices"
	"sync"

	"github.com/google/jsonschema-go/jsonschema"
	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/wagiedev/sidecar-bridge-go/internal/schema"
)

// Caller forwards a method call to the worker.
type Caller interface {
	Call(ctx context.Context, method string, params any) (json.RawMessage, error)
}

// Server exposes worker methods as MCP tools.
//
// Tools are held in its own registry so they can be invoked directly with
// CallTool, and are mirrored onto an official SDK server for Run.
type Server struct {
	name    string
	version string
	log     *slog.Logger

	mu    sync.RWMutex
	tools map[string]*tool

	server *mcp.Server
}

// tool holds tool metadata and handler for the internal registry.
type tool struct {
	tool    *mcp.Tool
	handler mcp.ToolHandler
}

// NewServer creates an MCP server with no tools.
func NewServer(log *slog.Logger, name, version string) *Server {
	return &Server{
		name:    name,
		version: version,
		log:     log.With("component", "mcp"),
		tools:   make(map[string]*tool, 16),
		server:  mcp.NewServer(&mcp.Implementation{Name: name, Version: version}, nil),
	}
}

// NewBridgeServer creates a server with one tool per method in registry,
// each forwarding to caller.
func NewBridgeServer(log *slog.Logger, name, version string, caller Caller, registry *schema.Registry) *Server {
	s := NewServer(log, name, version)

	for _, m := range registry.Methods() {
		t := NewTool(m.Name, m.Description, m.Params)
		if m.ReadOnly {
			t.Annotations = &mcp.ToolAnnotations{ReadOnlyHint: true}
		}

		s.AddTool(t, ForwardHandler(s.log, caller, m.Name))
	}

	return s
}

// AddTool registers a tool with the server.
func (s *Server) AddTool(t *mcp.Tool, handler mcp.ToolHandler) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.tools[t.Name] = &tool{
		tool:    t,
		handler: handler,
	}

	s.server.AddTool(t, handler)
}

// Name returns the server name.
func (s *Server) Name() string {
	return s.name
}

// Version returns the server version.
func (s *Server) Version() string {
	return s.version
}

// ListTools returns all registered tools sorted by name.
func (s *Server) ListTools() []*mcp.Tool {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]*mcp.Tool, 0, len(s.tools))
	for _, name := range slices.Sorted(maps.Keys(s.tools)) {
		result = append(result, s.tools[name].tool)
	}

	return result
}

// CallTool executes a tool by name with the given input.
// Failures are reported in the result, never as an error.
func (s *Server) CallTool(ctx context.Context, name string, input map[string]any) *mcp.CallToolResult {
	s.mu.RLock()
	t, exists := s.tools[name]
	s.mu.RUnlock()

	if !exists {
		return ErrorResult("Tool not found: " + name)
	}

	inputBytes, err := json.Marshal(input)
	if err != nil {
		return ErrorResult("Failed to marshal input: " + err.Error())
	}

	req := &mcp.CallToolRequest{
		Params: &mcp.CallToolParamsRaw{
			Name:      name,
			Arguments: inputBytes,
		},
	}

	result, err := t.handler(ctx, req)
	if err != nil {
		return ErrorResult("Tool execution failed: " + err.Error())
	}

	return result
}

// Run serves the tools over transport until ctx is done or the client
// disconnects.
func (s *Server) Run(ctx context.Context, transport mcp.Transport) error {
	s.log.Info("Serving MCP tools", "name", s.name, "tools", len(s.ListTools()))

	if err := s.server.Run(ctx, transport); err != nil {
		return fmt.Errorf("mcp server: %w", err)
	}

	return nil
}

// RunStdio serves the tools on the process's own stdin/stdout.
func (s *Server) RunStdio(ctx context.Context) error {
	return s.Run(ctx, &mcp.StdioTransport{})
}

// SDKServer returns the underlying SDK server.
func (s *Server) SDKServer() *mcp.Server {
	return s.server
}

// ForwardHandler returns a tool handler that sends the tool arguments as
// params of method and returns the worker's result as text.
func ForwardHandler(log *slog.Logger, caller Caller, method string) mcp.ToolHandler {
	return func(ctx context.Context, req *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		args, err := ParseArguments(req)
		if err != nil {
			return ErrorResult(err.Error()), nil
		}

		result, err := caller.Call(ctx, method, args)
		if err != nil {
			log.Debug("Forwarded tool call failed", "method", method, "error", err)

			return ErrorResult(err.Error()), nil
		}

		return TextResult(string(result)), nil
	}
}

// TextResult creates a CallToolResult with text content.
func TextResult(text string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			&mcp.TextContent{Text: text},
		},
	}
}

// ErrorResult creates a CallToolResult indicating an error.
func ErrorResult(message string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			&mcp.TextContent{Text: message},
		},
		IsError: true,
	}
}

// NewTool creates an mcp.Tool with the given parameters. A nil schema
// becomes an empty object schema, which the SDK requires.
func NewTool(name, description string, inputSchema *jsonschema.Schema) *mcp.Tool {
	if inputSchema == nil {
		inputSchema = schema.ObjectSchema(nil)
	}

	return &mcp.Tool{
		Name:        name,
		Description: description,
		InputSchema: inputSchema,
	}
}

// ParseArguments unmarshals CallToolRequest arguments into a map.
func ParseArguments(req *mcp.CallToolRequest) (map[string]any, error) {
	if req == nil || req.Params == nil {
		return make(map[string]any), nil
	}

	if len(req.Params.Arguments) == 0 {
		return make(map[string]any), nil
	}

	var args map[string]any
	if err := json.Unmarshal(req.Params.Arguments, &args); err != nil {
		return nil, fmt.Errorf("failed to unmarshal arguments: %w", err)
	}

	if args == nil {
		args = make(map[string]any)
	}

	return args, nil
}
