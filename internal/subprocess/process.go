package subprocess

import (
	"bufio"
	"bytes"
	"context"
	stderrors "errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/exec"
	"strings"
	"sync"

	"github.com/wagiedev/sidecar-bridge-go/internal/config"
	"github.com/wagiedev/sidecar-bridge-go/internal/errors"
)

const (
	// maxScanTokenSize is the longest worker output line delivered; longer
	// lines are discarded up to their newline.
	maxScanTokenSize = 1024 * 1024 // 1MB
	// readBufferSize is the bufio.Reader size used for worker output.
	readBufferSize = 64 * 1024
	// maxStderrBufferSize is the maximum size for the stderr buffer.
	// Stderr reading continues indefinitely (callback receives all lines),
	// but the buffer stops growing after this limit to prevent unbounded memory usage.
	maxStderrBufferSize = 10 * 1024 * 1024 // 10MB
	// linesBufferSize is the capacity of the channel between the stdout reader and the dispatcher.
	linesBufferSize = 64
)

// ProcessTransport implements config.Transport by spawning a worker subprocess.
//
// The worker is launched as "<executable> <script> [args...]". Its stdin
// carries requests, its stdout carries responses and its stderr is drained
// for diagnostics only.
type ProcessTransport struct {
	log            *slog.Logger
	options        *config.Options
	executable     string
	script         string
	cmd            *exec.Cmd
	cancel         context.CancelFunc
	stdin          io.WriteCloser
	writer         *bufio.Writer
	stdout         io.ReadCloser
	stderr         io.ReadCloser
	stderrCallback func(string) // Callback for streaming stderr output
	maxLineSize    int

	lines  chan []byte   // stdout records, closed at EOF
	stop   chan struct{} // closed by Close to release the stdout reader
	exited chan struct{} // closed once the process has been reaped

	stderrMu  sync.Mutex
	stderrBuf strings.Builder

	errMu   sync.RWMutex
	exitErr error

	// writeSlot is held by the goroutine writing one line, from the first
	// byte until the flush returns, even if its caller stopped waiting.
	writeSlot chan struct{}

	mu          sync.Mutex // Protects process state; never held across I/O
	closing     bool       // Whether Close() has been called (intentional shutdown)
	stdinClosed bool       // Whether stdin was closed (e.g., due to context cancellation)
	closeOnce   sync.Once
	closeErr    error
}

// Compile-time verification that ProcessTransport implements the Transport interface.
var _ config.Transport = (*ProcessTransport)(nil)

// NewProcessTransport creates a transport that will run script with executable.
//
// The logger is used for operation tracking and debugging. Nothing is
// spawned until Start is called.
func NewProcessTransport(
	log *slog.Logger,
	executable string,
	script string,
	options *config.Options,
) *ProcessTransport {
	if options == nil {
		options = &config.Options{}
	}

	maxLineSize := maxScanTokenSize
	if options.MaxBufferSize != nil && *options.MaxBufferSize > 0 {
		maxLineSize = *options.MaxBufferSize
	}

	return &ProcessTransport{
		log:            log.With("component", "process_transport"),
		options:        options,
		executable:     executable,
		script:         script,
		stderrCallback: options.Stderr,
		maxLineSize:    maxLineSize,
		lines:          make(chan []byte, linesBufferSize),
		writeSlot:      make(chan struct{}, 1),
		stop:           make(chan struct{}),
		exited:         make(chan struct{}),
	}
}

// Start spawns the worker subprocess.
//
// It sets up stdin, stdout, and stderr pipes and starts reading stdout and
// stderr before returning, so no output line can be missed.
//
// The process is not bound to ctx: it lives until Close is called or it
// exits on its own. ctx only guards the spawn itself.
//
// Returns a SpawnError (wrapping ExecutableNotFoundError when the executable
// cannot be resolved) if the process cannot be started.
func (t *ProcessTransport) Start(ctx context.Context) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.cmd != nil {
		return errors.ErrAlreadyRunning
	}

	if t.closing {
		return errors.ErrNotRunning
	}

	if err := ctx.Err(); err != nil {
		return err
	}

	t.log.Info("Starting sidecar subprocess", "executable", t.executable, "script", t.script)

	path, err := exec.LookPath(t.executable)
	if err != nil {
		t.log.Error("Sidecar executable not found", "executable", t.executable, "error", err)

		return &errors.SpawnError{Err: &errors.ExecutableNotFoundError{SearchedPaths: []string{t.executable}}}
	}

	args := make([]string, 0, len(t.options.Args)+1)
	if t.script != "" {
		args = append(args, t.script)
	}

	args = append(args, t.options.Args...)

	procCtx, cancel := context.WithCancel(context.Background())

	//nolint:gosec // G204: Subprocess launching with dynamic args is expected for worker invocation
	cmd := exec.CommandContext(procCtx, path, args...)
	cmd.Dir = t.options.Cwd
	cmd.Env = buildEnvironment(t.options.Env)
	setProcAttr(cmd)

	stdin, err := cmd.StdinPipe()
	if err != nil {
		cancel()
		t.log.Error("Failed to create stdin pipe", "error", err)

		return &errors.SpawnError{Err: fmt.Errorf("stdin pipe: %w", err)}
	}

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		cancel()
		t.log.Error("Failed to create stdout pipe", "error", err)

		return &errors.SpawnError{Err: fmt.Errorf("stdout pipe: %w", err)}
	}

	stderr, err := cmd.StderrPipe()
	if err != nil {
		cancel()
		t.log.Error("Failed to create stderr pipe", "error", err)

		return &errors.SpawnError{Err: fmt.Errorf("stderr pipe: %w", err)}
	}

	if err := cmd.Start(); err != nil {
		cancel()
		t.log.Error("Failed to start sidecar process", "error", err)

		return &errors.SpawnError{Err: fmt.Errorf("start process: %w", err)}
	}

	t.cmd = cmd
	t.cancel = cancel
	t.stdin = stdin
	t.writer = bufio.NewWriter(stdin)
	t.stdout = stdout
	t.stderr = stderr

	t.startReaders()

	t.log.Info("Sidecar subprocess started successfully", "pid", cmd.Process.Pid)

	return nil
}

// startReaders launches the stdout reader, the stderr drain and the reaper.
func (t *ProcessTransport) startReaders() {
	var readers sync.WaitGroup

	// Always drain stderr so the worker never blocks on a full pipe.
	// See: https://pkg.go.dev/os/exec#Cmd.StderrPipe
	readers.Go(func() {
		err := scanLines(t.stderr, t.maxLineSize, func(record []byte) bool {
			line := string(record)

			t.stderrMu.Lock()

			if t.stderrBuf.Len() < maxStderrBufferSize {
				if t.stderrBuf.Len() > 0 {
					t.stderrBuf.WriteString("\n")
				}

				t.stderrBuf.WriteString(line)
			}

			t.stderrMu.Unlock()

			if t.stderrCallback != nil {
				t.stderrCallback(line)
			}

			return true
		}, func(size int) {
			t.log.Debug("Discarding oversize sidecar stderr line", "bytes", size, "limit", t.maxLineSize)
		})
		if err != nil {
			t.log.Debug("Stderr reader error", "error", err)
		}
	})

	readers.Go(func() {
		defer close(t.lines)
		defer t.log.Debug("Stdout reader stopped")

		err := scanLines(t.stdout, t.maxLineSize, func(line []byte) bool {
			select {
			case t.lines <- line:
				return true
			case <-t.stop:
				return false
			}
		}, func(size int) {
			t.log.Debug("Discarding oversize sidecar output line", "bytes", size, "limit", t.maxLineSize)
		})
		if err != nil {
			t.log.Debug("Stdout reader error", "error", err)
		}
	})

	go func() {
		defer close(t.exited)

		readers.Wait()

		t.log.Debug("Waiting for sidecar process to exit")

		err := t.cmd.Wait()

		t.mu.Lock()
		isClosing := t.closing
		t.stdinClosed = true
		t.mu.Unlock()

		if err == nil {
			t.log.Info("Sidecar process exited successfully")

			return
		}

		if isClosing {
			t.log.Debug("Sidecar process terminated during shutdown")

			return
		}

		exitCode := -1
		if exitErr, ok := stderrors.AsType[*exec.ExitError](err); ok {
			exitCode = exitErr.ExitCode()
		}

		stderrOutput := t.stderrOutput()

		t.log.Error("Sidecar process exited with error", "exit_code", exitCode, "stderr", stderrOutput)

		t.errMu.Lock()
		t.exitErr = &errors.ProcessError{
			ExitCode: exitCode,
			Stderr:   stderrOutput,
			Err:      err,
		}
		t.errMu.Unlock()
	}()
}

// scanLines reads newline-delimited records from r and hands each non-blank
// record, minus trailing whitespace, to emit. Records are copied, so emit may
// retain them.
//
// A record longer than maxLineSize is read through to its newline and
// dropped; discard, if set, receives its size. Scanning stops at EOF, on a
// read error, or when emit returns false.
func scanLines(r io.Reader, maxLineSize int, emit func([]byte) bool, discard func(size int)) error {
	reader := bufio.NewReaderSize(r, min(readBufferSize, max(maxLineSize, 16)))

	var (
		record    []byte
		dropping  bool
		dropped int
	)

	for {
		chunk, err := reader.ReadSlice('\n')

		complete := err == nil
		if complete {
			chunk = chunk[:len(chunk)-1]
		}

		switch {
		case dropping:
			dropped += len(chunk)
		case len(record)+len(chunk) > maxLineSize:
			dropping = true
			dropped = len(record) + len(chunk)
			record = record[:0]
		default:
			record = append(record, chunk...)
		}

		atEOF := stderrors.Is(err, io.EOF)

		if complete || atEOF {
			if dropping {
				if discard != nil {
					discard(dropped)
				}

				dropping = false
				dropped = 0
			} else if len(bytes.TrimSpace(record)) > 0 {
				if !emit(bytes.Clone(bytes.TrimRight(record, " \t\r"))) {
					return nil
				}
			}

			record = record[:0]
		}

		switch {
		case complete, stderrors.Is(err, bufio.ErrBufferFull):
			continue
		case atEOF:
			return nil
		default:
			return err
		}
	}
}

// Lines returns the stream of worker output records.
func (t *ProcessTransport) Lines() <-chan []byte {
	return t.lines
}

// WriteLine writes one record to the worker stdin and flushes it.
//
// A newline is appended if data does not end with one. This method is safe
// for concurrent use; records are never interleaved.
//
// ctx bounds waiting for the previous write and for this one. A record that
// has started is always written whole: when ctx ends mid-write WriteLine
// returns ctx.Err() and the write finishes in the background, holding off
// later writes until it does.
func (t *ProcessTransport) WriteLine(ctx context.Context, data []byte) error {
	select {
	case t.writeSlot <- struct{}{}:
	case <-ctx.Done():
		return ctx.Err()
	}

	release := func() { <-t.writeSlot }

	if err := ctx.Err(); err != nil {
		release()

		return err
	}

	t.mu.Lock()

	if t.stdin == nil || t.stdinClosed {
		t.mu.Unlock()
		release()

		return errors.ErrNotRunning
	}

	if t.writer == nil {
		t.writer = bufio.NewWriter(t.stdin)
	}

	writer := t.writer

	t.mu.Unlock()

	// Use explicit copy to avoid mutating caller's backing array if slice has spare capacity
	if len(data) == 0 || data[len(data)-1] != '\n' {
		newData := make([]byte, len(data)+1)
		copy(newData, data)
		newData[len(data)] = '\n'
		data = newData
	}

	t.log.Debug("Writing line to sidecar", "data_len", len(data))

	done := make(chan error, 1)

	go func() {
		defer release()

		_, err := writer.Write(data)
		if err == nil {
			err = writer.Flush()
		}

		if err != nil {
			t.log.Debug("Sidecar line write failed", "error", err)
		}

		done <- err
	}()

	select {
	case err := <-done:
		if err != nil {
			t.log.Error("Failed to write line to sidecar", "error", err)

			return fmt.Errorf("write to stdin: %w", err)
		}

		return nil

	case <-ctx.Done():
		t.log.Debug("Caller stopped waiting, line write continues", "data_len", len(data))

		return ctx.Err()
	}
}

// Exited returns a channel closed once the worker has been reaped.
func (t *ProcessTransport) Exited() <-chan struct{} {
	return t.exited
}

// ExitErr returns the worker's abnormal exit as a ProcessError.
// It is nil while the worker runs, after a clean exit, and after Close.
func (t *ProcessTransport) ExitErr() error {
	t.errMu.RLock()
	defer t.errMu.RUnlock()

	return t.exitErr
}

// Process returns the running worker process, or nil before Start.
func (t *ProcessTransport) Process() *os.Process {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.cmd == nil {
		return nil
	}

	return t.cmd.Process
}

// IsReady checks if the transport is ready for communication.
//
// Returns true if the worker process is running and stdin is open.
func (t *ProcessTransport) IsReady() bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	return t.cmd != nil && t.cmd.Process != nil && t.stdin != nil && !t.stdinClosed
}

// Close terminates the worker process and waits for it to be reaped.
//
// This forcefully kills the worker using SIGKILL and blocks until the OS
// confirms it has exited. Errors from a process that already exited are
// ignored. It's safe to call Close multiple times or before Start.
func (t *ProcessTransport) Close() error {
	t.closeOnce.Do(func() {
		t.mu.Lock()

		t.closing = true
		stdin := t.stdin
		t.stdinClosed = true
		close(t.stop)

		cmd := t.cmd

		t.mu.Unlock()

		if cmd == nil {
			close(t.lines)
			close(t.exited)

			return
		}

		t.log.Debug("Killing sidecar process", "pid", cmd.Process.Pid)

		if err := cmd.Process.Kill(); err != nil && !stderrors.Is(err, os.ErrProcessDone) {
			t.closeErr = fmt.Errorf("kill sidecar process (pid %d): %w", cmd.Process.Pid, err)
		}

		// Releases a write still blocked on a full pipe.
		if stdin != nil {
			_ = stdin.Close()
		}

		// Closing the read ends releases the readers even if a grandchild
		// inherited the pipes and keeps them open.
		_ = t.stdout.Close()
		_ = t.stderr.Close()

		<-t.exited

		t.cancel()

		t.log.Debug("Sidecar process reaped", "pid", cmd.Process.Pid)
	})

	return t.closeErr
}

// stderrOutput returns the buffered stderr, trimmed.
func (t *ProcessTransport) stderrOutput() string {
	t.stderrMu.Lock()
	defer t.stderrMu.Unlock()

	return strings.TrimSpace(t.stderrBuf.String())
}

const pythonUnbuffered = "PYTHONUNBUFFERED"

// buildEnvironment merges extra variables into the host environment.
func buildEnvironment(extra map[string]string) []string {
	env := os.Environ()
	for k, v := range extra {
		env = append(env, k+"="+v)
	}

	// Python buffers stdout when it is not a terminal; responses must not
	// wait. An explicit setting wins.
	if _, ok := extra[pythonUnbuffered]; !ok {
		if _, ok := os.LookupEnv(pythonUnbuffered); !ok {
			env = append(env, pythonUnbuffered+"=1")
		}
	}

	return env
}
