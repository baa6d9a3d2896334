package sidecar

import "github.com/wagiedev/sidecar-bridge-go/internal/errors"

// Re-export error types from internal package

// ExecutableNotFoundError indicates the worker executable could not be resolved.
type ExecutableNotFoundError = errors.ExecutableNotFoundError

// SpawnError indicates the worker process could not be started.
type SpawnError = errors.SpawnError

// ProcessError indicates the worker process exited abnormally.
type ProcessError = errors.ProcessError

// JSONDecodeError indicates a worker output line was not valid JSON.
type JSONDecodeError = errors.JSONDecodeError

// WriteError indicates a request could not be written to the worker.
type WriteError = errors.WriteError

// WorkerError carries the error payload the worker returned for a call.
type WorkerError = errors.WorkerError

// InvalidParamsError indicates call params failed schema validation.
type InvalidParamsError = errors.InvalidParamsError

// SidecarError is the base interface for all bridge errors.
type SidecarError = errors.SidecarError

// Re-export sentinel errors from internal package.
var (
	// ErrNotRunning indicates no worker process is running.
	ErrNotRunning = errors.ErrNotRunning

	// ErrAlreadyRunning indicates Spawn was called on a running bridge.
	ErrAlreadyRunning = errors.ErrAlreadyRunning

	// ErrBridgeClosed indicates the bridge has been closed and cannot be reused.
	ErrBridgeClosed = errors.ErrBridgeClosed

	// ErrDisconnected indicates the worker went away before answering a call.
	ErrDisconnected = errors.ErrDisconnected

	// ErrScriptNotFound indicates worker script discovery failed.
	ErrScriptNotFound = errors.ErrScriptNotFound
)
