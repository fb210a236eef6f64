package forecast

import (
	"fmt"

	"smartbudget/internal/aggregate"
	"smartbudget/internal/core"
)

// Result is a next month forecast.
type Result struct {
	// Month is the forecast month key, the month after the last observed one.
	Month       string       `json:"month"`
	Value       float64      `json:"value"`
	Importances []Importance `json:"importances"`
}

// Forecast fits a forest on the pivot and predicts the total spend of the
// month after the last one. It fails with *core.InsufficientHistoryError
// when the pivot is too short and *core.ForecastError when fitting fails.
func Forecast(p *aggregate.Pivot, cfg Config) (*Result, *Forest, error) {
	cfg = cfg.withDefaults()
	ds, err := BuildDataset(p)
	if err != nil {
		return nil, nil, err
	}
	forest, err := Fit(ds, cfg)
	if err != nil {
		return nil, nil, err
	}
	value, err := forest.Predict(ds.Latest)
	if err != nil {
		return nil, nil, err
	}
	month, err := core.NextMonthKey(ds.LatestMonth)
	if err != nil {
		return nil, nil, &core.ForecastError{Op: "predict", Err: fmt.Errorf("month %q: %w", ds.LatestMonth, err)}
	}

	imps := forest.Importances()
	if len(imps) > cfg.TopImportances {
		imps = imps[:cfg.TopImportances]
	}
	return &Result{Month: month, Value: value, Importances: imps}, forest, nil
}
