package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"smartbudget/internal/backend"
	"smartbudget/internal/log"
	"smartbudget/internal/services"
)

type analyzeFlags struct {
	asJSON   bool
	parallel int
	sheet    string
}

// fileReport is the outcome for one ledger file.
type fileReport struct {
	File   string           `json:"file"`
	Report *services.Report `json:"report,omitempty"`
	Error  string           `json:"error,omitempty"`
}

func newAnalyzeCmd(e *env) *cobra.Command {
	var flags analyzeFlags
	cmd := &cobra.Command{
		Use:   "analyze <file>...",
		Short: "Run the full pipeline on one or more ledger files",
		Long: `Analyze categorizes every ledger, forecasts next month's spend and
flags unusual days. Files are processed in parallel; a failing file does not
stop the others.

Example:
  budgetctl analyze enero.csv febrero.xlsx --parallel 2
  budgetctl analyze gastos.xlsx --json > reporte.json`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			results := analyzeFiles(cmd.Context(), e, args, flags)
			if flags.asJSON {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				if err := enc.Encode(results); err != nil {
					return err
				}
			} else {
				for _, r := range results {
					printSummary(cmd.OutOrStdout(), r)
				}
			}

			failed := 0
			for _, r := range results {
				if r.Error != "" {
					failed++
				}
			}
			if failed > 0 {
				return fmt.Errorf("%d of %d ledgers failed", failed, len(results))
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&flags.asJSON, "json", false, "print reports as JSON")
	cmd.Flags().IntVar(&flags.parallel, "parallel", 4, "maximum ledgers analyzed at once")
	cmd.Flags().StringVar(&flags.sheet, "sheet", "", "worksheet to read from XLSX files (default first)")
	return cmd
}

// analyzeFiles returns one result per path, in argument order.
func analyzeFiles(ctx context.Context, e *env, paths []string, flags analyzeFlags) []fileReport {
	if ctx == nil {
		ctx = context.Background()
	}
	factory := backend.NewFactory(e.logger)
	results := make([]fileReport, len(paths))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(max(1, flags.parallel))
	for i, path := range paths {
		g.Go(func() error {
			results[i] = fileReport{File: path}
			rep, err := analyzeFile(ctx, e, factory, path, flags.sheet)
			if err != nil {
				e.logger.ErrorContext(ctx, "Analysis failed", log.FieldLocation, path, log.FieldError, err)
				results[i].Error = err.Error()
				return nil
			}
			results[i].Report = rep
			return nil
		})
	}
	_ = g.Wait()
	return results
}

func analyzeFile(ctx context.Context, e *env, factory backend.Factory, path, sheet string) (*services.Report, error) {
	src, err := factory.CreateSource(ctx, backend.Config{Type: backend.FileSource, Path: path, Sheet: sheet})
	if err != nil {
		return nil, err
	}
	if src.Cleanup != nil {
		defer src.Cleanup()
	}
	table, err := src.Source.ReadLedger(ctx)
	if err != nil {
		return nil, err
	}
	return e.analyzer.Report(ctx, table)
}

func printSummary(w io.Writer, r fileReport) {
	fmt.Fprintf(w, "\n=== %s ===\n", r.File)
	if r.Error != "" {
		fmt.Fprintf(w, "Error: %s\n", r.Error)
		return
	}
	rep := r.Report
	fmt.Fprintf(w, "Transactions:  %d (%d dropped)\n", len(rep.Transactions), rep.Quality.Dropped())
	fmt.Fprintf(w, "Months:        %d\n", rep.Pivot.Len())
	fmt.Fprintf(w, "Categories:    %s\n", strings.Join(rep.Categories.Names(), " | "))
	if rep.Forecast != nil {
		fmt.Fprintf(w, "Forecast %s: %.2f\n", rep.Forecast.Month, rep.Forecast.Value)
	} else {
		fmt.Fprintf(w, "Forecast:      (%s)\n", rep.ForecastError)
	}

	flagged := 0
	for _, d := range rep.Anomalies {
		if d.Anomaly {
			flagged++
		}
	}
	fmt.Fprintf(w, "Unusual days:  %d of %d\n", flagged, len(rep.Anomalies))
	for _, tip := range append(append([]string(nil), rep.Tips...), rep.AdvancedTips...) {
		fmt.Fprintf(w, "- %s\n", tip)
	}
}
