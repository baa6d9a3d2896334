// Command sidecar drives a line-delimited JSON-RPC worker from the shell.
//
//	sidecar discover                       # where is the worker?
//	sidecar methods                        # what does it serve?
//	sidecar call chat '{"text":"wifi is down"}'
//	sidecar call ping --count 10           # ten concurrent calls
//	sidecar mcp                            # serve the methods as MCP tools on stdio
//	sidecar mcp --print-config             # host registration snippet
//
// Settings are read from ~/.config/sidecar/config.toml or ./sidecar.toml
// and can be overridden with flags.
package main
