package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	sidecar "github.com/wagiedev/sidecar-bridge-go"
)

func newMethodsCommand() *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:         "methods",
		Short:       "List the methods the worker serves",
		Annotations: map[string]string{"skipConfigLoad": "true"},
		RunE: func(cmd *cobra.Command, args []string) error {
			methods := sidecar.Catalog()
			if asJSON {
				type methodView struct {
					Name        string          `json:"name"`
					Description string          `json:"description"`
					ReadOnly    bool            `json:"read_only"`
					Params      *sidecar.Schema `json:"params"`
				}
				views := make([]methodView, 0, len(methods))
				for _, m := range methods {
					views = append(views, methodView{m.Name, m.Description, m.ReadOnly, m.Params})
				}
				return writeJSON(cmd, views)
			}

			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
			for _, m := range methods {
				fmt.Fprintf(tw, "%s\t%s\n", m.Name, m.Description)
			}
			return tw.Flush()
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "Output as JSON")

	return cmd
}
