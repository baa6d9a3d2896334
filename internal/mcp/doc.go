// Package mcp exposes worker methods as Model Context Protocol tools.
//
// Each tool forwards its arguments as the params of one bridge call and
// returns the worker's JSON result as text. Worker and validation failures
// come back as error results rather than protocol errors, so an MCP client
// can show them to the model.
//
// The server maintains a thread-safe registry of tools for direct
// invocation and serves the same tools over stdio with the official SDK.
package mcp
