// Package discovery locates the worker script and the Python interpreter
// that runs it.
//
//	d := discovery.NewDiscoverer(&discovery.Config{
//	    ResourceDir: resourceDir,
//	    Logger:      slog.Default(),
//	})
//	found, err := d.Discover(ctx)
//
// The script sidecar/main.py is searched in the following order:
//  1. Config.Script (if provided)
//  2. The resource dir and up to five of its ancestors
//  3. ~/Developer/<app>, ~/projects/<app> and ~/<app>
//
// The interpreter is searched in the following order:
//  1. Config.Python (if provided)
//  2. venv/bin/python3 and venv/Scripts/python.exe under the project root
//  3. The venv of each well-known project dir, then ~/.<app>/venv
//  4. python3 from PATH
//
// A warning is logged when the interpreter is older than
// MinimumPythonVersion. Discovery never fails on the version alone.
package discovery
