package sidecar

import (
	"log/slog"

	"github.com/google/jsonschema-go/jsonschema"

	"github.com/wagiedev/sidecar-bridge-go/internal/config"
	"github.com/wagiedev/sidecar-bridge-go/internal/schema"
)

// BridgeOptions configures a bridge and its worker process.
type BridgeOptions = config.Options

// Option configures BridgeOptions using the functional options pattern.
type Option func(*BridgeOptions)

// applyOptions applies functional options to a BridgeOptions struct.
func applyOptions(opts []Option) *BridgeOptions {
	options := &BridgeOptions{}
	for _, opt := range opts {
		opt(options)
	}

	return options
}

// WithLogger sets the logger for debug output.
// If not set, logging is disabled (silent operation).
func WithLogger(logger *slog.Logger) Option {
	return func(o *BridgeOptions) {
		o.Logger = logger
	}
}

// WithArgs passes extra arguments to the worker after the script path.
func WithArgs(args ...string) Option {
	return func(o *BridgeOptions) {
		o.Args = append(o.Args, args...)
	}
}

// WithEnv adds environment variables for the worker process.
// Multiple calls merge; later values win.
func WithEnv(env map[string]string) Option {
	return func(o *BridgeOptions) {
		if o.Env == nil {
			o.Env = make(map[string]string, len(env))
		}

		for k, v := range env {
			o.Env[k] = v
		}
	}
}

// WithCwd sets the working directory for the worker process.
func WithCwd(cwd string) Option {
	return func(o *BridgeOptions) {
		o.Cwd = cwd
	}
}

// WithStderr sets a callback receiving each line the worker writes to stderr.
func WithStderr(handler func(string)) Option {
	return func(o *BridgeOptions) {
		o.Stderr = handler
	}
}

// WithMaxBufferSize sets the maximum size of one worker output line.
func WithMaxBufferSize(size int) Option {
	return func(o *BridgeOptions) {
		o.MaxBufferSize = &size
	}
}

// WithMethodSchemas validates params of the named methods against their
// JSON Schemas before a call is sent. Multiple calls merge.
func WithMethodSchemas(schemas map[string]*jsonschema.Schema) Option {
	return func(o *BridgeOptions) {
		if o.MethodSchemas == nil {
			o.MethodSchemas = make(map[string]*jsonschema.Schema, len(schemas))
		}

		for name, s := range schemas {
			o.MethodSchemas[name] = s
		}
	}
}

// WithCatalogSchemas validates params of every method in Catalog.
func WithCatalogSchemas() Option {
	return WithMethodSchemas(schema.CatalogSchemas())
}

// WithTransport injects a custom transport instead of spawning a process.
// The executable and script passed to Spawn are then ignored.
func WithTransport(transport Transport) Option {
	return func(o *BridgeOptions) {
		o.Transport = transport
	}
}
