// Package worker runs ledger analyses requested over AMQP.
package worker

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"smartbudget/internal/amqp"
	"smartbudget/internal/backend"
	"smartbudget/internal/config"
	"smartbudget/internal/ledger"
	"smartbudget/internal/log"
	"smartbudget/internal/services"
)

// ResultPublisher delivers finished analyses.
type ResultPublisher interface {
	PublishResult(ctx context.Context, msg *amqp.AnalysisResultMessage) error
}

// RequestConsumer feeds analysis requests to a handler until ctx is done.
type RequestConsumer interface {
	ConsumeRequests(ctx context.Context, consumer string, handler amqp.RequestHandler) error
}

// Reporter runs the full pipeline on a ledger.
type Reporter interface {
	Report(ctx context.Context, t ledger.Table) (*services.Report, error)
}

// AnalysisWorker turns analysis requests into published results. Analysis
// failures are published as failed results; only publish failures and
// cancellation reach the consumer, which then requeues the request.
type AnalysisWorker struct {
	app         *config.Config
	sources     backend.Factory
	publisher   ResultPublisher
	newReporter func(services.Options) Reporter
	timeout     time.Duration
	logger      *log.Logger

	processed atomic.Int64
	failed    atomic.Int64
}

func NewAnalysisWorker(app *config.Config, sources backend.Factory, publisher ResultPublisher, logger *log.Logger) *AnalysisWorker {
	if logger == nil {
		logger = log.Discard()
	}
	logger = logger.WithComponent(log.ComponentWorker)
	return &AnalysisWorker{
		app:       app,
		sources:   sources,
		publisher: publisher,
		newReporter: func(opts services.Options) Reporter {
			return services.NewAnalysisService(opts, logger)
		},
		timeout: app.RequestTimeout,
		logger:  logger,
	}
}

// Stats returns the number of completed and failed jobs.
func (w *AnalysisWorker) Stats() (processed, failed int64) {
	return w.processed.Load(), w.failed.Load()
}

// Run starts n consumers and blocks until ctx is done or one of them fails.
func (w *AnalysisWorker) Run(ctx context.Context, consumer RequestConsumer, n int) error {
	if n < 1 {
		n = 1
	}
	g, ctx := errgroup.WithContext(ctx)
	for i := 0; i < n; i++ {
		name := fmt.Sprintf("smartbudget-worker-%d", i)
		g.Go(func() error {
			return consumer.ConsumeRequests(ctx, name, w.HandleRequest)
		})
	}
	w.logger.InfoContext(ctx, "Analysis worker started", "consumers", n)
	err := g.Wait()
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

// HandleRequest analyzes the requested ledger and publishes the outcome.
func (w *AnalysisWorker) HandleRequest(ctx context.Context, msg *amqp.AnalysisRequestMessage) error {
	logger := w.logger.With(log.FieldJobID, msg.JobID, log.FieldSource, msg.Source)
	start := time.Now()

	report, err := w.analyze(ctx, msg)
	if err != nil && ctx.Err() != nil {
		// shutting down: leave the request for another consumer
		return err
	}

	var result *amqp.AnalysisResultMessage
	if err != nil {
		w.failed.Add(1)
		logger.WarnContext(ctx, "Analysis failed", log.FieldError, err)
		result = amqp.NewFailedResult(msg.JobID, err)
	} else {
		w.processed.Add(1)
		logger.InfoContext(ctx, "Analysis completed",
			log.FieldTransactions, len(report.Transactions),
			log.FieldMonths, report.Pivot.Len(),
			log.FieldDuration, time.Since(start).Milliseconds())
		result = amqp.NewCompletedResult(msg.JobID, report)
	}

	if err := w.publisher.PublishResult(ctx, result); err != nil {
		return fmt.Errorf("publish result for job %s: %w", msg.JobID, err)
	}
	return nil
}

func (w *AnalysisWorker) analyze(ctx context.Context, msg *amqp.AnalysisRequestMessage) (*services.Report, error) {
	if err := msg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid request: %w", err)
	}
	if w.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, w.timeout)
		defer cancel()
	}

	location := msg.Location
	if msg.Source == backend.InlineSource.String() {
		location = msg.CSV
	}
	srcCfg, err := backend.FromAppConfig(w.app, backend.SourceType(msg.Source), location)
	if err != nil {
		return nil, err
	}
	srcCfg.Sheet = msg.Sheet
	if msg.Sheet != "" {
		srcCfg.Google.Sheet = msg.Sheet
	}

	src, err := w.sources.CreateSource(ctx, srcCfg)
	if err != nil {
		return nil, fmt.Errorf("open source: %w", err)
	}
	if src.Cleanup != nil {
		defer src.Cleanup()
	}

	table, err := src.Source.ReadLedger(ctx)
	if err != nil {
		return nil, fmt.Errorf("read ledger: %w", err)
	}

	opts := w.app.Pipeline.Options()
	if msg.Contamination > 0 {
		opts.Anomaly.Contamination = msg.Contamination
		if err := opts.Anomaly.Validate(); err != nil {
			return nil, err
		}
	}
	if msg.TopK > 0 {
		opts.TopK = msg.TopK
	}
	return w.newReporter(opts).Report(ctx, table)
}
