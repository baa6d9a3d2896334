// Package subprocess provides the process-backed transport for the sidecar bridge.
//
// This package implements the Transport interface by spawning the worker
// as a child process and exchanging newline-delimited records over its
// stdin and stdout. It owns the process lifecycle: spawn, stderr draining,
// reaping, and forced termination on Close.
package subprocess
