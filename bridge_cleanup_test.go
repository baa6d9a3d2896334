package sidecar

import (
	"context"
	"os"
	"path/filepath"
	"runtime"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

// TestBridge_DroppedWithoutClose tests that an unreachable bridge still
// kills its worker.
func TestBridge_DroppedWithoutClose(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("Test requires /bin/sh")
	}

	script := filepath.Join(t.TempDir(), "worker.sh")
	require.NoError(t, os.WriteFile(script, []byte("while IFS= read -r line; do :; done\n"), 0o600))

	pid := func() int {
		b := NewBridge()
		require.NoError(t, b.Spawn(context.Background(), "/bin/sh", script))

		proc := b.(*bridgeWrapper).impl.Process()
		require.NotNil(t, proc)

		return proc.Pid
	}()

	require.True(t, processAlive(pid))

	require.Eventually(t, func() bool {
		runtime.GC()

		return !processAlive(pid)
	}, 10*time.Second, 20*time.Millisecond, "worker outlived its dropped bridge")
}

// TestBridge_CloseStopsCleanup tests that Close detaches the drop guard.
func TestBridge_CloseStopsCleanup(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("Test requires /bin/sh")
	}

	script := filepath.Join(t.TempDir(), "worker.sh")
	require.NoError(t, os.WriteFile(script, []byte("while IFS= read -r line; do :; done\n"), 0o600))

	b := NewBridge()
	require.NoError(t, b.Spawn(context.Background(), "/bin/sh", script, WithLogger(NopLogger())))

	w := b.(*bridgeWrapper)
	require.True(t, w.guarded)

	pid := w.impl.Process().Pid

	require.NoError(t, b.Close())
	require.False(t, w.guarded)
	require.False(t, processAlive(pid))
	require.NoError(t, b.Close())
}
