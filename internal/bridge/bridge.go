package bridge

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"sync"

	"github.com/oklog/ulid/v2"
	"golang.org/x/sync/errgroup"

	"github.com/wagiedev/sidecar-bridge-go/internal/config"
	"github.com/wagiedev/sidecar-bridge-go/internal/errors"
	"github.com/wagiedev/sidecar-bridge-go/internal/protocol"
	"github.com/wagiedev/sidecar-bridge-go/internal/schema"
	"github.com/wagiedev/sidecar-bridge-go/internal/subprocess"
)

// processHolder is implemented by transports that own an OS process.
type processHolder interface {
	Process() *os.Process
}

// Bridge owns one worker process and the protocol controller talking to it.
type Bridge struct {
	id         ulid.ULID
	log        *slog.Logger
	transport  config.Transport
	controller *protocol.Controller

	// Errgroup for goroutine management
	eg *errgroup.Group

	// Lifecycle management
	mu        sync.Mutex
	running   bool
	closed    bool
	closeOnce sync.Once
}

// New creates a bridge with no worker.
//
// Call Spawn to start the worker; calls made before that fail with
// ErrNotRunning.
func New() *Bridge {
	return &Bridge{
		id:  ulid.Make(),
		log: slog.New(slog.DiscardHandler),
	}
}

// ID returns the bridge instance id carried in its log records.
func (b *Bridge) ID() string {
	return b.id.String()
}

// Spawn launches script with executable and starts routing its responses.
//
// The worker is not bound to ctx; it lives until Close. Returns
// ErrBridgeClosed after Close, ErrAlreadyRunning on a second Spawn and a
// SpawnError if the process cannot be started.
func (b *Bridge) Spawn(ctx context.Context, executable, script string, options *config.Options) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return errors.ErrBridgeClosed
	}

	if b.running {
		return errors.ErrAlreadyRunning
	}

	if options == nil {
		options = &config.Options{}
	}

	log := options.Logger
	if log == nil {
		log = slog.New(slog.DiscardHandler)
	}

	b.log = log.With("component", "bridge", "bridge_id", b.id.String())

	var controllerOpts []protocol.ControllerOption

	if len(options.MethodSchemas) > 0 {
		registry := schema.NewRegistry()
		if err := registry.RegisterSchemas(options.MethodSchemas); err != nil {
			return fmt.Errorf("register method schemas: %w", err)
		}

		controllerOpts = append(controllerOpts, protocol.WithValidator(registry))
	}

	var transport config.Transport

	if options.Transport != nil {
		transport = options.Transport

		b.log.Debug("Using injected custom transport")
	} else {
		transport = subprocess.NewProcessTransport(b.log, executable, script, options)
	}

	if err := transport.Start(ctx); err != nil {
		b.log.Error("Failed to spawn sidecar", "executable", executable, "script", script, "error", err)

		return err
	}

	b.transport = transport
	b.controller = protocol.NewController(b.log, transport, controllerOpts...)
	b.controller.Start()

	b.eg = &errgroup.Group{}
	b.eg.Go(b.watch)

	b.running = true
	b.log.Info("Sidecar spawned", "executable", executable, "script", script)

	return nil
}

// watch logs the worker going away on its own.
func (b *Bridge) watch() error {
	<-b.controller.Done()

	b.mu.Lock()
	closed := b.closed
	b.mu.Unlock()

	if closed {
		return nil
	}

	if err := b.controller.FatalError(); err != nil {
		b.log.Warn("Sidecar exited", "error", err)
	} else {
		b.log.Warn("Sidecar closed its output")
	}

	return nil
}

// Call sends method with params to the worker and waits for its result.
// It is safe for concurrent use.
func (b *Bridge) Call(ctx context.Context, method string, params any) (json.RawMessage, error) {
	b.mu.Lock()
	controller := b.controller
	closed := b.closed
	b.mu.Unlock()

	if controller == nil || closed {
		return nil, errors.ErrNotRunning
	}

	return controller.Call(ctx, method, params)
}

// Done returns a channel closed once the worker has gone away or the
// bridge is closed. It returns nil before Spawn.
func (b *Bridge) Done() <-chan struct{} {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.controller == nil {
		return nil
	}

	return b.controller.Done()
}

// Err returns why the worker went away, if it exited with an error.
func (b *Bridge) Err() error {
	b.mu.Lock()
	controller := b.controller
	b.mu.Unlock()

	if controller == nil {
		return nil
	}

	return controller.FatalError()
}

// IsRunning reports whether the worker is spawned and has not gone away.
func (b *Bridge) IsRunning() bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	if !b.running || b.closed {
		return false
	}

	select {
	case <-b.controller.Done():
		return false
	default:
		return true
	}
}

// Process returns the worker process, or nil when the transport does not
// own one.
func (b *Bridge) Process() *os.Process {
	b.mu.Lock()
	transport := b.transport
	b.mu.Unlock()

	if holder, ok := transport.(processHolder); ok {
		return holder.Process()
	}

	return nil
}

// Close terminates the worker and waits until it has been reaped.
//
// Pending calls fail with ErrDisconnected. After Close the bridge cannot be
// reused. This method is safe to call multiple times.
func (b *Bridge) Close() error {
	var closeErr error

	b.closeOnce.Do(func() {
		b.mu.Lock()
		b.closed = true
		wasRunning := b.running
		b.running = false
		b.mu.Unlock()

		if !wasRunning {
			return
		}

		b.log.Info("Closing sidecar bridge")

		b.controller.Stop()

		closeErr = b.transport.Close()

		if err := b.eg.Wait(); err != nil && closeErr == nil {
			closeErr = err
		}

		b.log.Info("Sidecar bridge closed")
	})

	return closeErr
}
