package sidecar

import (
	"context"

	"github.com/wagiedev/sidecar-bridge-go/internal/discovery"
)

// DiscoveryConfig controls where Discover looks for the worker.
type DiscoveryConfig = discovery.Config

// DiscoveryResult is a located worker script and its interpreter.
type DiscoveryResult = discovery.Result

// Discover locates the worker script sidecar/main.py and the Python
// interpreter to run it with.
//
// The script is searched in the resource dir, up to five of its ancestors,
// then ~/Developer/<app>, ~/projects/<app> and ~/<app>. The interpreter is
// the project's virtualenv if present, then a well-known virtualenv under
// $HOME, then python3 from PATH. Returns an error wrapping
// ErrScriptNotFound when no script exists.
func Discover(ctx context.Context, cfg *DiscoveryConfig) (*DiscoveryResult, error) {
	return discovery.NewDiscoverer(cfg).Discover(ctx)
}

// SpawnDiscovered discovers the worker and spawns a bridge running it.
func SpawnDiscovered(ctx context.Context, cfg *DiscoveryConfig, opts ...Option) (Bridge, error) {
	found, err := Discover(ctx, cfg)
	if err != nil {
		return nil, err
	}

	return Spawn(ctx, found.Python, found.Script, opts...)
}
