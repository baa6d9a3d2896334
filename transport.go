package sidecar

import "github.com/wagiedev/sidecar-bridge-go/internal/config"

// Transport defines the interface for worker communication.
// Implement this to provide custom transports for testing, mocking,
// or alternative communication methods.
//
// The default implementation spawns the worker as a subprocess.
// Custom transports can be injected via WithTransport.
type Transport = config.Transport
