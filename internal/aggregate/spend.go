package aggregate

import (
	"fmt"
	"sort"

	"smartbudget/internal/core"
)

// Granularity selects the period used by SpendBy.
type Granularity string

const (
	Daily   Granularity = "daily"
	Weekly  Granularity = "weekly"
	Monthly Granularity = "monthly"
)

// ParseGranularity accepts daily, weekly or monthly. The empty string means monthly.
func ParseGranularity(s string) (Granularity, error) {
	switch g := Granularity(s); g {
	case Daily, Weekly, Monthly:
		return g, nil
	case "":
		return Monthly, nil
	default:
		return "", fmt.Errorf("unknown granularity %q: want daily, weekly or monthly", s)
	}
}

// DailyTotals sums amounts per calendar day in chronological order. Days
// without transactions are absent.
func DailyTotals(txns []core.Transaction) []core.PeriodTotal {
	return SpendBy(txns, Daily)
}

// SpendBy sums amounts per period. Weeks start on Monday and are labelled
// with their ISO week, months with their month key.
func SpendBy(txns []core.Transaction, g Granularity) []core.PeriodTotal {
	sums := map[core.Date]float64{}
	for _, tx := range txns {
		sums[periodStart(tx.Date, g)] += tx.Amount
	}
	out := make([]core.PeriodTotal, 0, len(sums))
	for start, amount := range sums {
		out = append(out, core.PeriodTotal{Start: start, Label: periodLabel(start, g), Amount: amount})
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].Start.Before(out[j].Start.Time)
	})
	return out
}

func periodStart(d core.Date, g Granularity) core.Date {
	switch g {
	case Weekly:
		offset := (int(d.Weekday()) + 6) % 7
		return core.DateOf(d.AddDate(0, 0, -offset))
	case Monthly:
		return core.NewDate(d.Year(), int(d.Month()), 1)
	default:
		return d
	}
}

func periodLabel(start core.Date, g Granularity) string {
	switch g {
	case Weekly:
		year, week := start.ISOWeek()
		return fmt.Sprintf("%d-W%02d", year, week)
	case Monthly:
		return start.MonthKey()
	default:
		return start.Format(core.DateLayout)
	}
}

// SpendByCategory sums amounts per category name over the whole period,
// largest first. Equal amounts are ordered by name.
func SpendByCategory(txns []core.Transaction) []core.CategoryTotal {
	sums := map[string]float64{}
	for _, tx := range txns {
		sums[tx.CategoryName] += tx.Amount
	}
	out := make([]core.CategoryTotal, 0, len(sums))
	for name, amount := range sums {
		out = append(out, core.CategoryTotal{Name: name, Amount: amount})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Amount != out[j].Amount {
			return out[i].Amount > out[j].Amount
		}
		return out[i].Name < out[j].Name
	})
	return out
}

// TopCategories returns at most n entries of SpendByCategory.
func TopCategories(txns []core.Transaction, n int) []core.CategoryTotal {
	all := SpendByCategory(txns)
	if n >= 0 && n < len(all) {
		all = all[:n]
	}
	return all
}
