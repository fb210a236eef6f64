package cmd

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"smartbudget/internal/sample"
	"smartbudget/internal/sheets/file"
)

func newSampleCmd(e *env) *cobra.Command {
	var (
		out      string
		from, to string
		seed     uint64
		perDay   int
	)
	cmd := &cobra.Command{
		Use:   "sample",
		Short: "Generate a synthetic expense ledger",
		Long: `Sample writes a reproducible ledger with 0 to 4 expenses per day drawn
from a fixed list of concepts. The format follows the output extension.

Example:
  budgetctl sample --out gastos.xlsx
  budgetctl sample --out gastos.csv --from 2024-01-01 --to 2024-12-31 --seed 7`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := sample.DefaultConfig()
			cfg.Seed = seed
			cfg.MaxPerDay = perDay
			var err error
			if cfg.Start, err = time.Parse(time.DateOnly, from); err != nil {
				return fmt.Errorf("invalid --from: %w", err)
			}
			if cfg.End, err = time.Parse(time.DateOnly, to); err != nil {
				return fmt.Errorf("invalid --to: %w", err)
			}

			table, err := sample.Generate(cfg)
			if err != nil {
				return err
			}
			if err := file.New(out, "Gastos").WriteLedger(cmd.Context(), table); err != nil {
				return err
			}
			e.logger.Debug("Sample ledger written", "path", out, "rows", table.Len())
			fmt.Fprintf(cmd.OutOrStdout(), "Archivo '%s' creado correctamente con %d registros.\n", out, table.Len())
			return nil
		},
	}
	d := sample.DefaultConfig()
	cmd.Flags().StringVar(&out, "out", "gastos.xlsx", "output file (.xlsx or .csv)")
	cmd.Flags().StringVar(&from, "from", d.Start.Format(time.DateOnly), "first day")
	cmd.Flags().StringVar(&to, "to", d.End.Format(time.DateOnly), "last day")
	cmd.Flags().Uint64Var(&seed, "seed", d.Seed, "random seed")
	cmd.Flags().IntVar(&perDay, "max-per-day", d.MaxPerDay, "maximum expenses per day")
	return cmd
}
