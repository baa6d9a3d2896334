//go:build integration

package integration

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	sidecar "github.com/wagiedev/sidecar-bridge-go"
)

// TestLifecycle_WorkerCrash tests that a dying worker fails the in-flight
// call and later calls.
func TestLifecycle_WorkerCrash(t *testing.T) {
	b := spawnFixture(t)

	_, err := b.Call(callContext(t), "crash", map[string]any{"code": 3})
	require.ErrorIs(t, err, sidecar.ErrDisconnected)

	procErr, ok := errors.AsType[*sidecar.ProcessError](err)
	require.True(t, ok, "expected ProcessError, got %v", err)
	require.Equal(t, 3, procErr.ExitCode)
	require.Contains(t, procErr.Stderr, "crashing on purpose")

	select {
	case <-b.Done():
	case <-time.After(5 * time.Second):
		t.Fatal("Done not closed after worker exit")
	}

	require.False(t, b.IsRunning())

	_, err = b.Call(callContext(t), "ping", nil)
	require.ErrorIs(t, err, sidecar.ErrNotRunning)
}

// TestLifecycle_CloseReleasesPending tests that Close fails calls still
// waiting on the worker.
func TestLifecycle_CloseReleasesPending(t *testing.T) {
	b, err := sidecar.Spawn(context.Background(), requirePython(t), fixtureScript(t))
	require.NoError(t, err)

	errCh := make(chan error, 1)

	go func() {
		_, err := b.Call(context.Background(), "sleep", map[string]any{"seconds": 30})
		errCh <- err
	}()

	time.Sleep(200 * time.Millisecond)
	require.NoError(t, b.Close())

	select {
	case err := <-errCh:
		require.ErrorIs(t, err, sidecar.ErrDisconnected)
	case <-time.After(5 * time.Second):
		t.Fatal("pending call not released by Close")
	}
}

// TestLifecycle_StderrCallback tests that worker stderr reaches the callback.
func TestLifecycle_StderrCallback(t *testing.T) {
	var (
		mu    sync.Mutex
		lines []string
	)

	b := spawnFixture(t, sidecar.WithStderr(func(line string) {
		mu.Lock()
		defer mu.Unlock()

		lines = append(lines, line)
	}))

	_, err := b.Call(callContext(t), "ping", nil)
	require.NoError(t, err)

	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()

		for _, line := range lines {
			if line == "fixture worker ready" {
				return true
			}
		}

		return false
	}, 5*time.Second, 20*time.Millisecond)
}

// TestLifecycle_Discovered tests spawning a worker found through discovery.
func TestLifecycle_Discovered(t *testing.T) {
	python := requirePython(t)

	root := t.TempDir()
	t.Setenv("HOME", t.TempDir())

	data, err := os.ReadFile(fixtureScript(t))
	require.NoError(t, err)
	require.NoError(t, os.MkdirAll(filepath.Join(root, "sidecar"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(root, "sidecar", "main.py"), data, 0o600))

	resourceDir := filepath.Join(root, "resources", "bin")
	require.NoError(t, os.MkdirAll(resourceDir, 0o755))

	b, err := sidecar.SpawnDiscovered(context.Background(), &sidecar.DiscoveryConfig{
		ResourceDir: resourceDir,
		Python:      python,
	})
	require.NoError(t, err)

	defer b.Close()

	result, err := b.Call(callContext(t), "echo", map[string]any{"found": true})
	require.NoError(t, err)
	require.JSONEq(t, `{"found":true}`, string(result))
}
