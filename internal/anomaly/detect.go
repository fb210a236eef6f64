package anomaly

import (
	"smartbudget/internal/aggregate"
	"smartbudget/internal/core"
)

// Detect sums spend per day and scores every day. The records are
// chronological. With fewer than two days nothing is flagged and the
// returned detector is nil.
func Detect(txns []core.Transaction, cfg Config) ([]core.DailyRecord, *Detector, error) {
	if err := cfg.Validate(); err != nil {
		return nil, nil, err
	}
	days := aggregate.DailyTotals(txns)
	records := make([]core.DailyRecord, len(days))
	values := make([]float64, len(days))
	for i, d := range days {
		records[i] = core.DailyRecord{Date: d.Start, Amount: d.Amount}
		values[i] = d.Amount
	}
	if len(days) < 2 {
		return records, nil, nil
	}

	det, err := Fit(values, cfg)
	if err != nil {
		return nil, nil, err
	}
	for i := range records {
		records[i].Score = det.Score(values[i])
		records[i].Anomaly = records[i].Score < det.threshold
	}
	return records, det, nil
}
