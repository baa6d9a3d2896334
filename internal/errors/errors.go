package errors

import (
	"encoding/json"
	"errors"
	"fmt"
)

// SidecarError is the base interface for all bridge errors.
type SidecarError interface {
	error
	IsSidecarError() bool
}

// Compile-time verification that all error types implement SidecarError.
var (
	_ SidecarError = (*ExecutableNotFoundError)(nil)
	_ SidecarError = (*SpawnError)(nil)
	_ SidecarError = (*ProcessError)(nil)
	_ SidecarError = (*JSONDecodeError)(nil)
	_ SidecarError = (*WriteError)(nil)
	_ SidecarError = (*WorkerError)(nil)
	_ SidecarError = (*InvalidParamsError)(nil)
)

// Sentinel errors for commonly checked conditions.
var (
	// ErrNotRunning indicates no worker process is running.
	ErrNotRunning = errors.New("sidecar not running")

	// ErrAlreadyRunning indicates Spawn was called on a bridge with a live worker.
	ErrAlreadyRunning = errors.New("sidecar already running")

	// ErrBridgeClosed indicates the bridge has been closed and cannot be reused.
	ErrBridgeClosed = errors.New("bridge closed: bridges are single-use, create a new one")

	// ErrDisconnected indicates the worker went away before answering a call.
	ErrDisconnected = errors.New("sidecar response channel closed")

	// ErrScriptNotFound indicates worker script discovery failed.
	ErrScriptNotFound = errors.New("sidecar script not found")
)

// ExecutableNotFoundError indicates the worker executable could not be resolved.
type ExecutableNotFoundError struct {
	SearchedPaths []string
}

func (e *ExecutableNotFoundError) Error() string {
	return fmt.Sprintf("sidecar executable not found in: %v", e.SearchedPaths)
}

// IsSidecarError implements SidecarError.
func (e *ExecutableNotFoundError) IsSidecarError() bool { return true }

// SpawnError indicates the worker process could not be started.
type SpawnError struct {
	Err error
}

func (e *SpawnError) Error() string {
	return fmt.Sprintf("failed to spawn sidecar: %v", e.Err)
}

func (e *SpawnError) Unwrap() error {
	return e.Err
}

// IsSidecarError implements SidecarError.
func (e *SpawnError) IsSidecarError() bool { return true }

// ProcessError indicates the worker process exited abnormally.
type ProcessError struct {
	ExitCode int
	Stderr   string
	Err      error
}

func (e *ProcessError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("sidecar process failed (exit %d): %v", e.ExitCode, e.Err)
	}

	return fmt.Sprintf("sidecar process failed (exit %d): %s", e.ExitCode, e.Stderr)
}

func (e *ProcessError) Unwrap() error {
	return e.Err
}

// IsSidecarError implements SidecarError.
func (e *ProcessError) IsSidecarError() bool { return true }

// JSONDecodeError indicates a worker output line was not valid JSON.
// This error preserves the original raw data that failed to parse.
type JSONDecodeError struct {
	RawData string
	Err     error
}

func (e *JSONDecodeError) Error() string {
	return fmt.Sprintf("failed to decode JSON from sidecar: %v", e.Err)
}

func (e *JSONDecodeError) Unwrap() error {
	return e.Err
}

// IsSidecarError implements SidecarError.
func (e *JSONDecodeError) IsSidecarError() bool { return true }

// WriteError indicates a request line could not be written or flushed.
type WriteError struct {
	Err error
}

func (e *WriteError) Error() string {
	return fmt.Sprintf("failed to write to sidecar: %v", e.Err)
}

func (e *WriteError) Unwrap() error {
	return e.Err
}

// IsSidecarError implements SidecarError.
func (e *WriteError) IsSidecarError() bool { return true }

// WorkerError carries the error payload the worker returned for a call.
//
// JSON-RPC style objects ({"code": ..., "message": ..., "data": ...}) are
// unpacked into Code, Message and Data. Any other payload is kept verbatim
// in Raw and rendered as Message.
type WorkerError struct {
	ID      uint64
	Code    int
	Message string
	Data    json.RawMessage
	Raw     json.RawMessage
}

func (e *WorkerError) Error() string {
	if e.Code != 0 {
		return fmt.Sprintf("sidecar error %d: %s", e.Code, e.Message)
	}

	return "sidecar error: " + e.Message
}

// IsSidecarError implements SidecarError.
func (e *WorkerError) IsSidecarError() bool { return true }

// NewWorkerError builds a WorkerError from a raw error payload.
func NewWorkerError(id uint64, raw json.RawMessage) *WorkerError {
	e := &WorkerError{ID: id, Raw: raw}

	var obj struct {
		Code    int             `json:"code"`
		Message string          `json:"message"`
		Data    json.RawMessage `json:"data"`
	}

	if err := json.Unmarshal(raw, &obj); err == nil && obj.Message != "" {
		e.Code = obj.Code
		e.Message = obj.Message
		e.Data = obj.Data

		return e
	}

	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		e.Message = s

		return e
	}

	e.Message = string(raw)

	return e
}

// InvalidParamsError indicates call params failed schema validation
// before anything was sent to the worker.
type InvalidParamsError struct {
	Method string
	Err    error
}

func (e *InvalidParamsError) Error() string {
	return fmt.Sprintf("invalid params for %q: %v", e.Method, e.Err)
}

func (e *InvalidParamsError) Unwrap() error {
	return e.Err
}

// IsSidecarError implements SidecarError.
func (e *InvalidParamsError) IsSidecarError() bool { return true }
