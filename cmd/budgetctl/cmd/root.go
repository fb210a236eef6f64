// Package cmd provides the budgetctl commands.
package cmd

import (
	"log/slog"

	"github.com/spf13/cobra"

	"smartbudget/internal/config"
	"smartbudget/internal/log"
	"smartbudget/internal/services"
)

// env is the state shared by every subcommand, built before each run.
type env struct {
	cfg      *config.Config
	logger   *log.Logger
	analyzer *services.AnalysisService
}

type rootFlags struct {
	pipeline string
	debug    bool
	dayFirst bool
}

// NewRootCmd builds the command tree.
func NewRootCmd() *cobra.Command {
	var (
		flags rootFlags
		e     env
	)

	root := &cobra.Command{
		Use:   "budgetctl",
		Short: "Analyze expense ledgers from the command line",
		Long: `budgetctl runs the SmartBudget pipeline on CSV or XLSX ledgers.

It supports:
- Categorizing, forecasting and flagging unusual days for many files at once
- Exporting the cleaned ledger, monthly summary and daily table as CSV
- Generating a synthetic sample ledger
- Queueing ledgers for the AMQP analysis worker

Example:
  budgetctl analyze gastos.xlsx otros.csv --json
  budgetctl export gastos.xlsx --out salida
  budgetctl sample --out gastos.xlsx`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return e.init(cmd, flags)
		},
	}

	root.PersistentFlags().StringVar(&flags.pipeline, "pipeline", "", "pipeline YAML file (default is $PIPELINE_CONFIG)")
	root.PersistentFlags().BoolVar(&flags.debug, "debug", false, "enable debug logging")
	root.PersistentFlags().BoolVar(&flags.dayFirst, "day-first", false, "read ambiguous dates as day/month/year")

	root.AddCommand(newAnalyzeCmd(&e))
	root.AddCommand(newExportCmd(&e))
	root.AddCommand(newSampleCmd(&e))
	root.AddCommand(newSchemaCmd(&e))
	root.AddCommand(newSubmitCmd(&e))
	return root
}

// Execute runs the command tree on os.Args.
func Execute() error {
	return NewRootCmd().Execute()
}

func (e *env) init(cmd *cobra.Command, flags rootFlags) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	if flags.pipeline != "" {
		if err := cfg.LoadPipeline(flags.pipeline); err != nil {
			return err
		}
	}
	if cmd.Flags().Changed("day-first") {
		cfg.Pipeline.DayFirst = flags.dayFirst
	}

	level := log.ParseLevel(cfg.LogLevel)
	if flags.debug {
		level = slog.LevelDebug
	}
	e.logger = log.New(log.Config{
		Level:     level,
		Format:    "text",
		Component: log.ComponentCLI,
		Output:    cmd.ErrOrStderr(),
	})
	e.cfg = cfg
	e.analyzer = services.NewAnalysisService(cfg.Pipeline.Options(), e.logger)
	return nil
}
