// Package forecast predicts next month's total spend from the monthly pivot
// with a bagged regression forest.
package forecast

import (
	"smartbudget/internal/aggregate"
	"smartbudget/internal/core"
)

// MinHistoryMonths is the shortest pivot that yields a usable training set:
// two (month, next month total) pairs.
const MinHistoryMonths = 3

// Dataset is the supervised view of a pivot. Row i of X holds the category
// amounts of month i and Y[i] the total of month i+1. Latest holds the last
// month's amounts, the input of the forecast.
type Dataset struct {
	Features    []string
	Months      []string
	X           [][]float64
	Y           []float64
	Latest      []float64
	LatestMonth string
}

// BuildDataset turns a pivot into training pairs. Pivots shorter than
// MinHistoryMonths fail with *core.InsufficientHistoryError.
func BuildDataset(p *aggregate.Pivot) (*Dataset, error) {
	n := p.Len()
	if n < MinHistoryMonths {
		return nil, &core.InsufficientHistoryError{Months: n, Required: MinHistoryMonths}
	}
	ds := &Dataset{
		Features:    append([]string(nil), p.Categories...),
		Months:      append([]string(nil), p.Months[:n-1]...),
		X:           make([][]float64, n-1),
		Y:           make([]float64, n-1),
		Latest:      append([]float64(nil), p.Row(n-1)...),
		LatestMonth: p.Months[n-1],
	}
	for m := 0; m < n-1; m++ {
		ds.X[m] = append([]float64(nil), p.Row(m)...)
		ds.Y[m] = p.Totals[m+1]
	}
	return ds, nil
}

// Len returns the number of training pairs.
func (d *Dataset) Len() int { return len(d.Y) }
