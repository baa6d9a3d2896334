// Package sidecar runs a long-lived worker process and lets any number of
// goroutines call methods on it concurrently.
//
// The worker speaks line-delimited JSON-RPC over its stdin and stdout: one
// request object per line in, one response object per line out, matched by
// id. Responses may arrive in any order. Anything the worker writes to
// stderr is passed through for debugging and never parsed.
//
// # Basic Usage
//
//	ctx := context.Background()
//	bridge, err := sidecar.Spawn(ctx, "python3", "sidecar/main.py",
//	    sidecar.WithLogger(slog.Default()),
//	)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer bridge.Close()
//
//	result, err := bridge.Call(ctx, "diagnose", nil)
//	if err != nil {
//	    log.Fatal(err)
//	}
//
// Bound each call with ctx; a call whose context ends returns ctx.Err()
// and its late response is dropped.
//
// # Locating the Worker
//
// Discover finds sidecar/main.py and a Python interpreter using the same
// search a desktop host uses for its bundled worker:
//
//	bridge, err := sidecar.SpawnDiscovered(ctx, &sidecar.DiscoveryConfig{
//	    ResourceDir: resourceDir,
//	})
//
// # Error Handling
//
// Spawn failures return *SpawnError. Calls return ErrNotRunning before
// Spawn or after Close, ErrDisconnected (wrapping *ProcessError when the
// worker exited abnormally) when the worker goes away mid-call,
// *WorkerError when the worker answered with an error payload, and
// *InvalidParamsError when params fail a schema registered with
// WithMethodSchemas or WithCatalogSchemas.
//
//	var werr *sidecar.WorkerError
//	if errors.As(err, &werr) {
//	    fmt.Println(werr.Code, werr.Message)
//	}
//
// # Cleanup
//
// Close kills the worker and waits for it to be reaped. A bridge dropped
// without Close still kills its worker once garbage collected, and on Linux
// the worker is killed if the host process dies.
package sidecar
