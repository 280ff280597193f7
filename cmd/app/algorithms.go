package main

import (
	"fmt"
	"text/tabwriter"

	"DemandCast/internal/services/algorithms"

	"github.com/spf13/cobra"
)

func newAlgorithmsCmd() *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "algorithms",
		Short: "List the available forecasting algorithms",
		RunE: func(cmd *cobra.Command, _ []string) error {
			catalog := algorithms.Catalog()
			if asJSON {
				return writeJSON(cmd.OutOrStdout(), "", catalog)
			}
			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "ID\tNAME")
			for _, a := range catalog {
				fmt.Fprintf(tw, "%s\t%s\n", a.ID, a.Name)
			}
			return tw.Flush()
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "print the catalog as a JSON object")
	return cmd
}
