package main

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	sidecar "github.com/wagiedev/sidecar-bridge-go"
)

func newCallCommand(ctx *commandContext) *cobra.Command {
	var count int
	var timeout time.Duration

	cmd := &cobra.Command{
		Use:   "call <method> [params-json]",
		Short: "Call a worker method and print its result",
		Long: "Call spawns the worker, sends one call (or --count concurrent calls) and prints\n" +
			"each result as one line of JSON, in call order.",
		Args: cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			if count < 1 {
				return fmt.Errorf("--count must be at least 1 (got %d)", count)
			}
			method := args[0]
			var params any
			if len(args) == 2 {
				decoded, err := parseParams(args[1])
				if err != nil {
					return err
				}
				params = decoded
			}
			if !cmd.Flags().Changed("timeout") {
				timeout = ctx.configValue().Timeout()
			}

			return ctx.withBridge(cmd.Context(), func(b sidecar.Bridge) error {
				results, err := callConcurrently(cmd.Context(), b, method, params, count, timeout)
				if err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				for _, result := range results {
					fmt.Fprintln(out, string(result))
				}
				return nil
			})
		},
	}

	cmd.Flags().IntVarP(&count, "count", "n", 1, "Number of concurrent calls to send")
	cmd.Flags().DurationVar(&timeout, "timeout", 0, "Per-call timeout (default from config call_timeout; 0 waits forever)")

	return cmd
}

func parseParams(raw string) (any, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, nil
	}
	var params any
	if err := json.Unmarshal([]byte(raw), &params); err != nil {
		return nil, fmt.Errorf("params must be JSON: %w", err)
	}
	return params, nil
}

// callConcurrently sends count identical calls at once and returns their
// results in call order. The first failure cancels the rest.
func callConcurrently(ctx context.Context, b sidecar.Bridge, method string, params any, count int, timeout time.Duration) ([]json.RawMessage, error) {
	results := make([]json.RawMessage, count)

	g, gctx := errgroup.WithContext(ctx)
	for i := range count {
		g.Go(func() error {
			callCtx := gctx
			if timeout > 0 {
				var cancel context.CancelFunc
				callCtx, cancel = context.WithTimeout(gctx, timeout)
				defer cancel()
			}
			result, err := b.Call(callCtx, method, params)
			if err != nil {
				return fmt.Errorf("call %s #%d: %w", method, i+1, err)
			}
			results[i] = result
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}
