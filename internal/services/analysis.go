package services

import (
	"context"
	"errors"
	"fmt"

	"smartbudget/internal/aggregate"
	"smartbudget/internal/anomaly"
	"smartbudget/internal/categorize"
	"smartbudget/internal/core"
	"smartbudget/internal/forecast"
	"smartbudget/internal/ledger"
	"smartbudget/internal/log"
	"smartbudget/internal/suggest"
)

// Options configures every pipeline stage. Seeds are explicit so repeated
// runs on the same ledger give the same result.
type Options struct {
	Dates      ledger.DateOptions
	Categorize categorize.Config
	Forecast   forecast.Config
	Anomaly    anomaly.Config

	// TopK bounds the number of basic savings tips.
	TopK int
}

func DefaultOptions() Options {
	return Options{
		Categorize: categorize.DefaultConfig(),
		Forecast:   forecast.DefaultConfig(),
		Anomaly:    anomaly.DefaultConfig(),
		TopK:       3,
	}
}

// Prepared is a cleaned and categorized ledger with its summaries.
type Prepared struct {
	Transactions []core.Transaction   `json:"transactions"`
	Quality      ledger.Report        `json:"quality"`
	Categories   *categorize.Artifact `json:"categories"`
	Pivot        *aggregate.Pivot     `json:"monthly_pivot"`
	Daily        []core.PeriodTotal   `json:"daily_spend"`
	ByCategory   []core.CategoryTotal `json:"spend_by_category"`
}

// Analysis extends Prepared with the next month forecast.
type Analysis struct {
	Prepared
	Forecast *forecast.Result `json:"forecast"`
	Forest   *forecast.Forest `json:"-"`
}

// Report is the combined output of every stage. A forecast failure such as
// a short history is reported in ForecastError instead of failing the report.
type Report struct {
	Prepared
	Forecast      *forecast.Result   `json:"forecast,omitempty"`
	ForecastError string             `json:"forecast_error,omitempty"`
	Anomalies     []core.DailyRecord `json:"anomalies"`
	Tips          []string           `json:"tips"`
	AdvancedTips  []string           `json:"advanced_tips"`
}

// AnalysisService runs the budget pipeline. It holds no state between calls
// and is safe for concurrent use.
type AnalysisService struct {
	opts       Options
	normalizer *ledger.Normalizer
	logger     *log.Logger
}

func NewAnalysisService(opts Options, logger *log.Logger) *AnalysisService {
	if logger == nil {
		logger = log.FromContext(context.Background())
	}
	return &AnalysisService{
		opts:       opts,
		normalizer: ledger.NewNormalizer(ledger.DefaultSchema(opts.Dates)),
		logger:     logger.WithComponent(log.ComponentAnalysis),
	}
}

// Options returns the stage configuration.
func (s *AnalysisService) Options() Options { return s.opts }

// Prepare normalizes, categorizes and aggregates the ledger. It works with
// any amount of history.
func (s *AnalysisService) Prepare(ctx context.Context, t ledger.Table) (*Prepared, error) {
	txns, quality, err := s.normalizer.Normalize(t)
	if err != nil {
		return nil, fmt.Errorf("normalize ledger: %w", err)
	}
	if quality.Dropped() > 0 {
		s.logger.WarnContext(ctx, "Dropped ledger rows",
			log.FieldRows, quality.RowsRead,
			log.FieldDropped, quality.Dropped(),
			"invalid_date", quality.InvalidDate,
			"invalid_amount", quality.InvalidAmount,
			"empty_concept", quality.EmptyConcept)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	txns, art := categorize.Categorize(txns, s.opts.Categorize)
	if art.Fallback() {
		s.logger.WarnContext(ctx, "Using a single fallback category", log.FieldError, art.Issue())
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	p := &Prepared{
		Transactions: txns,
		Quality:      quality,
		Categories:   art,
		Pivot:        aggregate.MonthlyPivot(txns),
		Daily:        aggregate.DailyTotals(txns),
		ByCategory:   aggregate.SpendByCategory(txns),
	}
	s.logger.DebugContext(ctx, "Ledger prepared",
		log.FieldTransactions, len(txns),
		log.FieldClusters, art.K(),
		log.FieldMonths, p.Pivot.Len())
	return p, nil
}

// Analyze prepares the ledger and forecasts next month's total. Ledgers
// spanning fewer than forecast.MinHistoryMonths months fail with
// *core.InsufficientHistoryError.
func (s *AnalysisService) Analyze(ctx context.Context, t ledger.Table) (*Analysis, error) {
	p, err := s.Prepare(ctx, t)
	if err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	res, forest, err := forecast.Forecast(p.Pivot, s.opts.Forecast)
	if err != nil {
		return nil, fmt.Errorf("forecast: %w", err)
	}
	s.logger.InfoContext(ctx, "Forecast computed",
		log.FieldMonth, res.Month,
		log.FieldForecast, res.Value,
		log.FieldMonths, p.Pivot.Len())
	return &Analysis{Prepared: *p, Forecast: res, Forest: forest}, nil
}

// DetectAnomalies flags unusual spending days. contamination overrides the
// configured share when positive.
func (s *AnalysisService) DetectAnomalies(ctx context.Context, txns []core.Transaction, contamination float64) ([]core.DailyRecord, *anomaly.Detector, error) {
	if err := ctx.Err(); err != nil {
		return nil, nil, err
	}
	cfg := s.opts.Anomaly
	if contamination != 0 {
		cfg.Contamination = contamination
	}
	records, det, err := anomaly.Detect(txns, cfg)
	if err != nil {
		return nil, nil, fmt.Errorf("detect anomalies: %w", err)
	}
	flagged := 0
	for _, r := range records {
		if r.Anomaly {
			flagged++
		}
	}
	s.logger.DebugContext(ctx, "Anomalies detected", log.FieldDays, len(records), log.FieldAnomalies, flagged)
	return records, det, nil
}

// BasicSavingsTips compares last month against each category's mean.
// topK <= 0 uses the configured default.
func (s *AnalysisService) BasicSavingsTips(p *aggregate.Pivot, topK int) []string {
	if topK <= 0 {
		topK = s.opts.TopK
	}
	return suggest.SavingsTips(p, topK)
}

// AdvancedSavingsTips flags concentrated and fast growing categories.
func (s *AnalysisService) AdvancedSavingsTips(p *aggregate.Pivot) []string {
	return suggest.AdvancedTips(p)
}

// Report runs every stage. Schema errors and cancellation fail the report;
// a forecast that cannot be computed is reported inline.
func (s *AnalysisService) Report(ctx context.Context, t ledger.Table) (*Report, error) {
	p, err := s.Prepare(ctx, t)
	if err != nil {
		return nil, err
	}
	rep := &Report{Prepared: *p}

	res, _, err := forecast.Forecast(p.Pivot, s.opts.Forecast)
	var ih *core.InsufficientHistoryError
	var fe *core.ForecastError
	switch {
	case err == nil:
		rep.Forecast = res
	case errors.As(err, &ih), errors.As(err, &fe):
		s.logger.InfoContext(ctx, "Forecast skipped", log.FieldError, err)
		rep.ForecastError = err.Error()
	default:
		return nil, fmt.Errorf("forecast: %w", err)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	rep.Anomalies, _, err = s.DetectAnomalies(ctx, p.Transactions, 0)
	if err != nil {
		return nil, err
	}
	rep.Tips = s.BasicSavingsTips(p.Pivot, 0)
	rep.AdvancedTips = s.AdvancedSavingsTips(p.Pivot)
	return rep, nil
}
