// Package bridge ties a worker process transport to the protocol controller.
//
// A Bridge is spawned once, accepts any number of concurrent calls and is
// closed once. Close kills the worker and blocks until it has been reaped,
// so no worker outlives its bridge.
package bridge
