package sidecar

import (
	"context"
	"encoding/json"
	"os"
	"runtime"
	"sync"

	"github.com/wagiedev/sidecar-bridge-go/internal/bridge"
)

// Compile-time verification that bridgeWrapper implements Bridge.
var _ Bridge = (*bridgeWrapper)(nil)

// bridgeWrapper wraps the internal bridge and guarantees the worker dies
// even if the bridge is dropped without Close.
type bridgeWrapper struct {
	impl *bridge.Bridge

	mu      sync.Mutex
	cleanup runtime.Cleanup
	guarded bool
}

// NewBridge creates a new bridge with no worker.
func NewBridge() Bridge {
	return &bridgeWrapper{impl: bridge.New()}
}

// Spawn implements Bridge.
func (w *bridgeWrapper) Spawn(ctx context.Context, executable, script string, opts ...Option) error {
	if err := w.impl.Spawn(ctx, executable, script, applyOptions(opts)); err != nil {
		return err
	}

	if proc := w.impl.Process(); proc != nil {
		w.mu.Lock()
		w.cleanup = runtime.AddCleanup(w, killOrphan, proc)
		w.guarded = true
		w.mu.Unlock()
	}

	return nil
}

// killOrphan kills a worker whose bridge became unreachable unclosed.
func killOrphan(proc *os.Process) {
	_ = proc.Kill()
}

// Call implements Bridge.
func (w *bridgeWrapper) Call(ctx context.Context, method string, params any) (json.RawMessage, error) {
	return w.impl.Call(ctx, method, params)
}

// Done implements Bridge.
func (w *bridgeWrapper) Done() <-chan struct{} {
	return w.impl.Done()
}

// Err implements Bridge.
func (w *bridgeWrapper) Err() error {
	return w.impl.Err()
}

// IsRunning implements Bridge.
func (w *bridgeWrapper) IsRunning() bool {
	return w.impl.IsRunning()
}

// ID implements Bridge.
func (w *bridgeWrapper) ID() string {
	return w.impl.ID()
}

// Close implements Bridge.
func (w *bridgeWrapper) Close() error {
	w.mu.Lock()
	if w.guarded {
		w.cleanup.Stop()
		w.guarded = false
	}
	w.mu.Unlock()

	return w.impl.Close()
}

// Spawn creates a bridge and spawns its worker in one step.
func Spawn(ctx context.Context, executable, script string, opts ...Option) (Bridge, error) {
	b := NewBridge()
	if err := b.Spawn(ctx, executable, script, opts...); err != nil {
		return nil, err
	}

	return b, nil
}
