package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"smartbudget/internal/ledger"
)

func newSchemaCmd(e *env) *cobra.Command {
	return &cobra.Command{
		Use:   "schema",
		Short: "List the accepted ledger columns",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			dates := e.analyzer.Options().Dates
			w := cmd.OutOrStdout()
			for _, f := range ledger.DefaultSchema(dates).Fields {
				need := "optional"
				if f.Required {
					need = "required"
				}
				fmt.Fprintf(w, "%-12s %-9s %s\n", f.Name, need, strings.Join(f.Aliases, ", "))
			}
			fmt.Fprintf(w, "\nday_first: %t\n", dates.DayFirst)
			return nil
		},
	}
}
