package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newDiscoverCommand(ctx *commandContext) *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "discover",
		Short: "Show which worker script and interpreter would be used",
		RunE: func(cmd *cobra.Command, args []string) error {
			found, err := ctx.discover(cmd.Context())
			if err != nil {
				return err
			}
			if asJSON {
				return writeJSON(cmd, found)
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Project root: %s\n", found.ProjectRoot)
			fmt.Fprintf(out, "Script:       %s\n", found.Script)
			fmt.Fprintf(out, "Python:       %s\n", found.Python)
			if found.PythonVersion != "" {
				fmt.Fprintf(out, "Version:      %s\n", found.PythonVersion)
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "Output as JSON")

	return cmd
}
