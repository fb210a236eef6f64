package cmd

import (
	"bytes"
	"fmt"

	"github.com/spf13/cobra"

	"smartbudget/internal/amqp"
	"smartbudget/internal/backend"
	"smartbudget/internal/sheets/file"
)

type submitFlags struct {
	spreadsheet   string
	sheet         string
	contamination float64
	topK          int
}

func newSubmitCmd(e *env) *cobra.Command {
	var flags submitFlags
	cmd := &cobra.Command{
		Use:   "submit [file]",
		Short: "Queue a ledger for the analysis worker",
		Long: `Submit publishes an analysis request to the request queue. Local files
travel inline so the worker does not need access to them; --spreadsheet
asks the worker to read a Google spreadsheet instead.

Example:
  budgetctl submit gastos.xlsx --top-k 5
  budgetctl submit --spreadsheet 1AbC...`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			msg, err := buildRequest(cmd, e, args, flags)
			if err != nil {
				return err
			}
			if err := msg.Validate(); err != nil {
				return err
			}

			client, err := amqp.NewClient(amqp.Config{
				URL:          e.cfg.AMQPURL,
				Exchange:     e.cfg.AMQPExchange,
				RequestQueue: e.cfg.AMQPRequestQueue,
				ResultQueue:  e.cfg.AMQPResultQueue,
			}, e.logger)
			if err != nil {
				return err
			}
			defer client.Close()

			if err := client.PublishRequest(cmd.Context(), msg); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), msg.JobID)
			return nil
		},
	}
	cmd.Flags().StringVar(&flags.spreadsheet, "spreadsheet", "", "Google spreadsheet ID read by the worker")
	cmd.Flags().StringVar(&flags.sheet, "sheet", "", "worksheet to read")
	cmd.Flags().Float64Var(&flags.contamination, "contamination", 0, "share of days to flag (default from worker config)")
	cmd.Flags().IntVar(&flags.topK, "top-k", 0, "number of basic tips (default from worker config)")
	return cmd
}

func buildRequest(cmd *cobra.Command, e *env, args []string, flags submitFlags) (*amqp.AnalysisRequestMessage, error) {
	var msg *amqp.AnalysisRequestMessage
	switch {
	case len(args) == 1 && flags.spreadsheet != "":
		return nil, fmt.Errorf("pass either a file or --spreadsheet, not both")
	case len(args) == 1:
		src, err := backend.NewFactory(e.logger).CreateSource(cmd.Context(), backend.Config{
			Type:  backend.FileSource,
			Path:  args[0],
			Sheet: flags.sheet,
		})
		if err != nil {
			return nil, err
		}
		table, err := src.Source.ReadLedger(cmd.Context())
		if err != nil {
			return nil, err
		}
		var buf bytes.Buffer
		if err := file.WriteCSV(&buf, table); err != nil {
			return nil, err
		}
		msg = amqp.NewAnalysisRequest("", backend.InlineSource.String(), "")
		msg.CSV = buf.String()
	case flags.spreadsheet != "":
		msg = amqp.NewAnalysisRequest("", backend.SheetsSource.String(), flags.spreadsheet)
		msg.Sheet = flags.sheet
	default:
		return nil, fmt.Errorf("pass a ledger file or --spreadsheet")
	}
	msg.Contamination = flags.contamination
	msg.TopK = flags.topK
	return msg, nil
}
