//go:build integration

package integration

import (
	"context"
	"os/exec"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	sidecar "github.com/wagiedev/sidecar-bridge-go"
)

// requirePython returns a python3 interpreter or skips the test.
func requirePython(t *testing.T) string {
	t.Helper()

	python, err := exec.LookPath("python3")
	if err != nil {
		t.Skip("python3 not installed")
	}

	return python
}

// fixtureScript returns the absolute path of the fixture worker.
func fixtureScript(t *testing.T) string {
	t.Helper()

	script, err := filepath.Abs(filepath.Join("testdata", "worker.py"))
	require.NoError(t, err)

	return script
}

// spawnFixture starts the fixture worker and closes it when the test ends.
func spawnFixture(t *testing.T, opts ...sidecar.Option) sidecar.Bridge {
	t.Helper()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	b, err := sidecar.Spawn(ctx, requirePython(t), fixtureScript(t), opts...)
	require.NoError(t, err)

	t.Cleanup(func() {
		require.NoError(t, b.Close())
	})

	return b
}

// callContext bounds a single call so a broken worker fails the test
// instead of hanging it.
func callContext(t *testing.T) context.Context {
	t.Helper()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	t.Cleanup(cancel)

	return ctx
}
