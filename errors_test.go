package sidecar

import (
	"encoding/json"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"
)

// TestExecutableNotFoundError_Creation tests ExecutableNotFoundError formatting.
func TestExecutableNotFoundError_Creation(t *testing.T) {
	err := &ExecutableNotFoundError{
		SearchedPaths: []string{"/opt/fixme/venv/bin/python3", "$PATH"},
	}

	require.Error(t, err)
	require.Contains(t, err.Error(), "sidecar executable not found")
	require.Contains(t, err.Error(), "/opt/fixme/venv/bin/python3")
}

// TestSpawnError_Unwrap tests that SpawnError exposes its cause.
func TestSpawnError_Unwrap(t *testing.T) {
	inner := &ExecutableNotFoundError{SearchedPaths: []string{"python3"}}
	err := fmt.Errorf("start: %w", &SpawnError{Err: inner})

	spawnErr, ok := errors.AsType[*SpawnError](err)
	require.True(t, ok)
	require.Contains(t, spawnErr.Error(), "failed to spawn sidecar")

	notFound, ok := errors.AsType[*ExecutableNotFoundError](err)
	require.True(t, ok)
	require.Equal(t, []string{"python3"}, notFound.SearchedPaths)
}

// TestProcessError_WithExitCodeAndStderr tests ProcessError with exit code and stderr.
func TestProcessError_WithExitCodeAndStderr(t *testing.T) {
	err := &ProcessError{
		ExitCode: 1,
		Stderr:   "ModuleNotFoundError: No module named 'anthropic'",
	}

	require.Contains(t, err.Error(), "sidecar process failed")
	require.Contains(t, err.Error(), "exit 1")
	require.Contains(t, err.Error(), "anthropic")
}

// TestWorkerError_Formatting tests both coded and bare worker errors.
func TestWorkerError_Formatting(t *testing.T) {
	coded := &WorkerError{ID: 7, Code: -32601, Message: "Unknown method: reboot"}
	require.Equal(t, "sidecar error -32601: Unknown method: reboot", coded.Error())

	bare := &WorkerError{ID: 8, Message: "microphone busy", Raw: json.RawMessage(`"microphone busy"`)}
	require.Equal(t, "sidecar error: microphone busy", bare.Error())
}

// TestSentinelErrors_Wrapped tests that sentinels survive wrapping.
func TestSentinelErrors_Wrapped(t *testing.T) {
	procErr := &ProcessError{ExitCode: 137}
	err := fmt.Errorf("%w: %w", ErrDisconnected, procErr)

	require.ErrorIs(t, err, ErrDisconnected)
	require.NotErrorIs(t, err, ErrNotRunning)

	got, ok := errors.AsType[*ProcessError](err)
	require.True(t, ok)
	require.Equal(t, 137, got.ExitCode)
}

// TestErrorTypes_ImplementSidecarError tests the marker interface.
func TestErrorTypes_ImplementSidecarError(t *testing.T) {
	for _, err := range []error{
		&ExecutableNotFoundError{},
		&SpawnError{},
		&ProcessError{},
		&JSONDecodeError{},
		&WriteError{},
		&WorkerError{},
		&InvalidParamsError{},
	} {
		sidecarErr, ok := errors.AsType[SidecarError](err)
		require.True(t, ok, "%T", err)
		require.True(t, sidecarErr.IsSidecarError())
	}
}
