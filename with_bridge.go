package sidecar

import (
	"context"
	"fmt"
)

// WithBridge manages bridge lifecycle with automatic cleanup.
//
// This helper spawns the worker with the provided options, executes the
// callback function, and ensures the worker is killed and reaped via
// Close() when done.
//
// If the callback returns an error, it is returned to the caller.
// If Close() fails, a warning is logged but does not override the callback's error.
//
// Example usage:
//
//	err := sidecar.WithBridge(ctx, python, script, func(b sidecar.Bridge) error {
//	    _, err := b.Call(ctx, "speak", map[string]any{"text": "Fixed it", "lang": "en"})
//	    return err
//	},
//	    sidecar.WithLogger(log),
//	)
func WithBridge(ctx context.Context, executable, script string, fn func(Bridge) error, opts ...Option) error {
	if ctx.Err() != nil {
		return ctx.Err()
	}

	options := applyOptions(opts)

	log := options.Logger
	if log == nil {
		log = NopLogger()
	}

	b := NewBridge()
	if err := b.Spawn(ctx, executable, script, opts...); err != nil {
		return fmt.Errorf("failed to spawn bridge: %w", err)
	}

	defer func() {
		if closeErr := b.Close(); closeErr != nil {
			log.Warn("failed to close bridge", "error", closeErr)
		}
	}()

	return fn(b)
}
