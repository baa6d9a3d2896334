package protocol

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/wagiedev/sidecar-bridge-go/internal/errors"
)

// exitGracePeriod is how long the dispatcher waits, after the worker closes
// its output, for the exit status so it can be attached to failed calls.
const exitGracePeriod = 250 * time.Millisecond

// Transport defines the minimal interface needed for protocol operations.
//
// This interface is satisfied by the ProcessTransport but allows for testing
// with mock transports.
type Transport interface {
	Lines() <-chan []byte
	WriteLine(ctx context.Context, data []byte) error
	Exited() <-chan struct{}
	ExitErr() error
}

// ParamsValidator checks call params before they are sent.
type ParamsValidator interface {
	ValidateParams(method string, params any) error
}

// ControllerOption configures a Controller.
type ControllerOption func(*Controller)

// WithValidator validates params of every call before it is written.
func WithValidator(v ParamsValidator) ControllerOption {
	return func(c *Controller) {
		c.validator = v
	}
}

// Controller correlates calls written to the worker with the responses it
// emits.
//
// The Controller handles:
//   - Allocating monotonically increasing request ids, starting at 1
//   - Writing one request line per call
//   - Routing response lines to the waiting caller by id, in any order
//   - Failing every waiting caller once the worker output ends
//
// The Controller must be started with Start() before use and manages its own
// goroutine for reading and routing responses.
type Controller struct {
	log       *slog.Logger
	transport Transport
	validator ParamsValidator

	nextID  atomic.Uint64
	pending *pendingTable
	started atomic.Bool

	// Fatal error handling - stores error and broadcasts via done channel
	errMu    sync.RWMutex
	fatalErr error

	// Lifecycle management
	closeOnce sync.Once
	startOnce sync.Once
	done      chan struct{}
	wg        sync.WaitGroup
}

// NewController creates a new protocol controller.
//
// The logger will receive debug, info, warn, and error messages during
// protocol operations. The transport must be started before calling Start().
func NewController(log *slog.Logger, transport Transport, opts ...ControllerOption) *Controller {
	c := &Controller{
		log:       log.With("component", "protocol"),
		transport: transport,
		pending:   newPendingTable(),
		done:      make(chan struct{}),
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

// closeDone safely closes the done channel exactly once.
func (c *Controller) closeDone() {
	c.closeOnce.Do(func() {
		close(c.done)
	})
}

// SetFatalError stores a fatal error and broadcasts to all waiters by closing done.
func (c *Controller) SetFatalError(err error) {
	c.errMu.Lock()

	if c.fatalErr == nil {
		c.fatalErr = err
	}

	c.errMu.Unlock()

	c.closeDone()
}

// FatalError returns the fatal error if one occurred.
func (c *Controller) FatalError() error {
	c.errMu.RLock()
	defer c.errMu.RUnlock()

	return c.fatalErr
}

// Done returns a channel that is closed when the controller stops.
func (c *Controller) Done() <-chan struct{} {
	return c.done
}

// Start launches the dispatcher goroutine.
//
// The dispatcher reads every line the transport yields and routes responses
// to waiting calls. It stops when the transport's output ends or Stop is
// called. Calling Start more than once has no effect.
func (c *Controller) Start() {
	c.startOnce.Do(func() {
		c.log.Debug("Starting protocol controller")

		lines := c.transport.Lines()

		c.wg.Add(1)

		go c.readLoop(lines)

		c.started.Store(true)

		c.log.Info("Protocol controller started")
	})
}

// Stop shuts down the dispatcher and waits for it to exit.
//
// Calls still waiting for a response fail with ErrDisconnected. It's safe to
// call Stop multiple times.
func (c *Controller) Stop() {
	c.log.Debug("Stopping protocol controller")

	c.closeDone()
	c.wg.Wait()

	c.log.Info("Protocol controller stopped")
}

// Call sends method with params to the worker and waits for its response.
//
// Call is safe for concurrent use. It returns the raw JSON result on
// success. Failures:
//   - ErrNotRunning when the controller is not started or has stopped
//   - InvalidParamsError when params fail validation (nothing is written)
//   - WriteError when the request line cannot be written
//   - ErrDisconnected when the worker goes away before answering
//   - WorkerError when the worker answers with an error payload
//   - ctx.Err() when ctx ends first; a late response is dropped
func (c *Controller) Call(ctx context.Context, method string, params any) (json.RawMessage, error) {
	if !c.started.Load() {
		return nil, errors.ErrNotRunning
	}

	select {
	case <-c.done:
		if err := c.FatalError(); err != nil {
			return nil, fmt.Errorf("%w: %w", errors.ErrNotRunning, err)
		}

		return nil, errors.ErrNotRunning
	default:
	}

	if c.validator != nil {
		if err := c.validator.ValidateParams(method, params); err != nil {
			return nil, &errors.InvalidParamsError{Method: method, Err: err}
		}
	}

	id := c.nextID.Add(1)

	data, err := json.Marshal(NewRequest(id, method, params))
	if err != nil {
		c.log.Error("Failed to marshal request", "method", method, "error", err)

		return nil, fmt.Errorf("marshal request: %w", err)
	}

	slot := c.pending.register(id)

	c.log.Debug("Sending sidecar request", "id", id, "method", method)

	if err := c.transport.WriteLine(ctx, data); err != nil {
		c.pending.remove(id)

		switch {
		case stderrors.Is(err, errors.ErrNotRunning):
			return nil, err
		case ctx.Err() != nil:
			return nil, ctx.Err()
		case c.stopped():
			// Close killed the worker under a blocked write.
			return nil, c.disconnected()
		default:
			c.log.Error("Failed to send sidecar request", "id", id, "error", err)

			return nil, &errors.WriteError{Err: err}
		}
	}

	select {
	case resp := <-slot:
		return c.result(resp)

	case <-c.done:
		// A response delivered just before the dispatcher stopped still wins.
		select {
		case resp := <-slot:
			return c.result(resp)
		default:
		}

		c.pending.remove(id)

		if err := c.FatalError(); err != nil {
			c.log.Warn("Sidecar exited during call", "id", id, "method", method, "error", err)
		} else {
			c.log.Debug("Controller stopped during call", "id", id, "method", method)
		}

		return nil, c.disconnected()

	case <-ctx.Done():
		c.pending.remove(id)

		c.log.Debug("Call abandoned by caller", "id", id, "method", method, "error", ctx.Err())

		return nil, ctx.Err()
	}
}

func (c *Controller) stopped() bool {
	select {
	case <-c.done:
		return true
	default:
		return false
	}
}

// disconnected is the error for a call cut off by the dispatcher stopping.
func (c *Controller) disconnected() error {
	if err := c.FatalError(); err != nil {
		return fmt.Errorf("%w: %w", errors.ErrDisconnected, err)
	}

	return errors.ErrDisconnected
}

// result converts a routed response into Call's return values.
func (c *Controller) result(resp *Response) (json.RawMessage, error) {
	if resp.IsError() {
		werr := errors.NewWorkerError(resp.ID, resp.Error)
		c.log.Debug("Sidecar returned error", "id", resp.ID, "error", werr.Message)

		return nil, werr
	}

	c.log.Debug("Received sidecar response", "id", resp.ID)

	return resp.Result, nil
}

// readLoop is the dispatcher: it routes every response line until the
// worker output ends or the controller stops.
func (c *Controller) readLoop(lines <-chan []byte) {
	defer c.wg.Done()
	defer c.log.Debug("Protocol read loop stopped")

	for {
		select {
		case line, ok := <-lines:
			if !ok {
				c.log.Debug("Sidecar output closed")
				c.handleEOF()

				return
			}

			c.dispatch(line)

		case <-c.done:
			c.log.Debug("Protocol controller stop signal received")

			return
		}
	}
}

// dispatch routes one line of worker output. Lines that cannot be routed
// are dropped; they never stop the loop.
func (c *Controller) dispatch(line []byte) {
	resp, err := decodeResponse(line)
	if err != nil {
		c.log.Debug("Discarding sidecar output", "error", err, "line", truncate(line, 200))

		return
	}

	if !c.pending.resolve(resp.ID, resp) {
		c.log.Debug("No pending call for response", "id", resp.ID)
	}
}

// handleEOF records why the worker went away and releases all waiters.
func (c *Controller) handleEOF() {
	var exitErr error

	select {
	case <-c.transport.Exited():
		exitErr = c.transport.ExitErr()
	case <-time.After(exitGracePeriod):
	case <-c.done:
	}

	if exitErr != nil {
		c.SetFatalError(exitErr)

		return
	}

	c.closeDone()
}

func truncate(line []byte, n int) string {
	if len(line) <= n {
		return string(line)
	}

	return string(line[:n]) + "..."
}
