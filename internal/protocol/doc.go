// Package protocol implements request/response correlation for the sidecar worker.
//
// The protocol package provides a Controller that writes line-delimited
// JSON-RPC requests to the worker and routes its responses back to the
// waiting callers by id.
//
// The Controller handles:
//   - Allocating unique, increasing request ids
//   - Writing requests through the transport, one line each
//   - Dispatching responses in whatever order the worker produces them
//   - Dropping malformed or unroutable output without stopping
//   - Failing waiting calls once the worker exits
//
// Example usage:
//
//	transport := subprocess.NewProcessTransport(log, "python3", "sidecar/main.py", options)
//	transport.Start(ctx)
//
//	controller := protocol.NewController(log, transport)
//	controller.Start()
//
//	result, err := controller.Call(ctx, "diagnose", map[string]any{"text": "no wifi"})
package protocol
