package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"smartbudget/internal/backend"
	"smartbudget/internal/export"
)

func newExportCmd(e *env) *cobra.Command {
	var (
		outDir string
		sheet  string
	)
	cmd := &cobra.Command{
		Use:   "export <file>",
		Short: "Write the cleaned ledger, monthly summary and daily table as CSV",
		Long: `Export analyzes one ledger and writes gastos_limpios.csv,
resumen_mensual.csv and gasto_diario.csv into the output directory.

Example:
  budgetctl export gastos.xlsx --out salida`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			rep, err := analyzeFile(cmd.Context(), e, backend.NewFactory(e.logger), args[0], sheet)
			if err != nil {
				return err
			}
			written, err := export.WriteDir(outDir, export.Bundle{
				Transactions: rep.Transactions,
				Pivot:        rep.Pivot,
				Daily:        rep.Anomalies,
			})
			if err != nil {
				return err
			}
			for _, path := range written {
				fmt.Fprintln(cmd.OutOrStdout(), path)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&outDir, "out", ".", "output directory")
	cmd.Flags().StringVar(&sheet, "sheet", "", "worksheet to read from an XLSX file (default first)")
	return cmd
}
