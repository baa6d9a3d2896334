package config

import (
	"log/slog"

	"github.com/google/jsonschema-go/jsonschema"
)

// Options configures the behavior of a bridge and its worker process.
type Options struct {
	// Logger is the slog logger for debug output.
	// If nil, logging is disabled (silent operation).
	Logger *slog.Logger

	// Args are extra arguments passed to the worker after the script path.
	Args []string

	// Env provides additional environment variables for the worker process.
	Env map[string]string

	// Cwd sets the working directory for the worker process.
	// If empty, the host's working directory is used.
	Cwd string

	// Stderr is a callback function for handling worker stderr output.
	// Stderr is never parsed; each line is passed through as-is.
	Stderr func(string)

	// MaxBufferSize sets the maximum bytes for a single stdout line.
	// If nil, uses the default of 1MB.
	MaxBufferSize *int

	// MethodSchemas maps method names to JSON Schemas for their params.
	// Calls to a method with a schema are validated before anything is
	// written to the worker.
	MethodSchemas map[string]*jsonschema.Schema

	// Transport allows injecting a custom transport implementation.
	// If nil, the default process transport is created on Spawn.
	Transport Transport `json:"-"`
}
