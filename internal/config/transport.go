// Package config provides configuration types for the sidecar bridge.
package config

import "context"

// Transport defines the interface for worker communication.
// Implement this to provide custom transports for testing, mocking,
// or alternative communication methods.
//
// The default implementation is ProcessTransport which spawns a subprocess.
// Custom transports can be injected via Options.Transport.
type Transport interface {
	// Start launches the worker and begins reading its output.
	// Reading starts before Start returns so no output line is missed.
	Start(ctx context.Context) error

	// Lines yields one newline-delimited record of worker output at a time,
	// in order. The channel is closed when the worker closes its output.
	Lines() <-chan []byte

	// WriteLine writes one record followed by a newline and flushes it.
	// This method must be safe for concurrent use.
	WriteLine(ctx context.Context, data []byte) error

	// Exited is closed once the worker process has been reaped.
	Exited() <-chan struct{}

	// ExitErr returns the reason the worker exited, or nil while it runs
	// and after a clean exit.
	ExitErr() error

	// Close terminates the worker and blocks until it has been reaped.
	// It's safe to call Close multiple times.
	Close() error

	// IsReady returns true if the worker is running and accepts input.
	IsReady() bool
}
