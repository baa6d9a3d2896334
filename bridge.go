package sidecar

import (
	"context"
	"encoding/json"
)

// Bridge runs one worker process and multiplexes concurrent calls to it.
//
// Lifecycle: Bridges are single-use. After Close(), create a new bridge
// with NewBridge().
//
// Example usage:
//
//	bridge := sidecar.NewBridge()
//	defer bridge.Close()
//
//	err := bridge.Spawn(ctx, "python3", "sidecar/main.py",
//	    sidecar.WithLogger(slog.Default()),
//	    sidecar.WithCatalogSchemas(),
//	)
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	result, err := bridge.Call(ctx, "chat", map[string]any{"text": "my wifi is down"})
//	if err != nil {
//	    log.Fatal(err)
//	}
type Bridge interface {
	// Spawn launches "<executable> <script>" and starts routing its
	// responses. Returns SpawnError if the process cannot be started and
	// ErrAlreadyRunning if the bridge already has a worker.
	Spawn(ctx context.Context, executable, script string, opts ...Option) error

	// Call sends method with params to the worker and waits for its result.
	// Safe for concurrent use. Params may be any JSON-encodable value; nil
	// is sent as an empty object. Use ctx to bound the wait.
	//
	// Returns ErrNotRunning before Spawn or after Close, ErrDisconnected
	// if the worker goes away first, WorkerError if the worker answered
	// with an error, and ctx.Err() if ctx ends first.
	Call(ctx context.Context, method string, params any) (json.RawMessage, error)

	// Done is closed once the worker has gone away or the bridge is
	// closed. It returns nil before Spawn.
	Done() <-chan struct{}

	// Err returns why the worker went away, if it exited with an error.
	Err() error

	// IsRunning reports whether the worker is up and accepting calls.
	IsRunning() bool

	// ID returns the bridge instance id carried in its log records.
	ID() string

	// Close kills the worker and blocks until it has been reaped.
	// Pending calls fail with ErrDisconnected. Safe to call multiple times.
	Close() error
}

// CallAs calls method and decodes the result into T.
//
// Example:
//
//	type chatReply struct {
//	    Reply    string `json:"reply"`
//	    Commands []struct {
//	        Description string `json:"description"`
//	        Command     string `json:"command"`
//	        NeedsAdmin  bool   `json:"needs_admin"`
//	    } `json:"commands"`
//	}
//
//	reply, err := sidecar.CallAs[chatReply](ctx, bridge, "chat", map[string]any{"text": "hi"})
func CallAs[T any](ctx context.Context, b Bridge, method string, params any) (T, error) {
	var out T

	raw, err := b.Call(ctx, method, params)
	if err != nil {
		return out, err
	}

	if err := json.Unmarshal(raw, &out); err != nil {
		return out, &JSONDecodeError{RawData: string(raw), Err: err}
	}

	return out, nil
}
