package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	sidecar "github.com/wagiedev/sidecar-bridge-go"
	"github.com/wagiedev/sidecar-bridge-go/internal/mcp"
)

// version is reported to MCP clients.
var version = "dev"

func newMCPCommand(ctx *commandContext) *cobra.Command {
	var printConfig bool
	var name string

	cmd := &cobra.Command{
		Use:   "mcp",
		Short: "Serve the worker methods as MCP tools on stdio",
		Long: "mcp spawns the worker and serves every catalog method as a Model Context Protocol\n" +
			"tool over stdin/stdout until the client disconnects. Logs go to stderr.",
		RunE: func(cmd *cobra.Command, args []string) error {
			if printConfig {
				return printClientConfig(cmd, ctx, name)
			}
			return ctx.withBridge(cmd.Context(), func(b sidecar.Bridge) error {
				return sidecar.ServeMCP(cmd.Context(), b, name, version, sidecar.WithLogger(ctx.log()))
			})
		},
	}

	cmd.Flags().BoolVar(&printConfig, "print-config", false, "Print an mcpServers entry for registering this server with a host")
	cmd.Flags().StringVar(&name, "name", "fixme", "Server name reported to MCP clients")

	return cmd
}

func printClientConfig(cmd *cobra.Command, ctx *commandContext, name string) error {
	exe, err := os.Executable()
	if err != nil {
		return fmt.Errorf("resolve executable: %w", err)
	}
	exe, err = filepath.EvalSymlinks(exe)
	if err != nil {
		return fmt.Errorf("resolve executable: %w", err)
	}

	args := []string{"mcp", "--name", name}
	if path := ctx.flags.config; path != "" {
		abs, err := filepath.Abs(path)
		if err != nil {
			return fmt.Errorf("resolve config path: %w", err)
		}
		args = append(args, "--config", abs)
	}

	data, err := mcp.NewClientConfig(name, exe, args, ctx.configValue().Env).JSON()
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(cmd.OutOrStdout(), string(data))
	return err
}
