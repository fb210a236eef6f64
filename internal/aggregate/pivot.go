// Package aggregate builds month by category spend tables and other
// period summaries from categorized transactions.
package aggregate

import (
	"bytes"
	"encoding/json"
	"sort"

	"gonum.org/v1/gonum/floats"

	"smartbudget/internal/core"
)

// Pivot is the month by category spend table. Months are chronological,
// Categories are sorted and Totals[m] is the sum of Values[m].
type Pivot struct {
	Months     []string
	Categories []string
	Values     [][]float64
	Totals     []float64
}

// Len returns the number of months.
func (p *Pivot) Len() int { return len(p.Months) }

// Row returns the category amounts of month m.
func (p *Pivot) Row(m int) []float64 { return p.Values[m] }

// Column returns the amounts of category c for every month.
func (p *Pivot) Column(c int) []float64 {
	out := make([]float64, len(p.Months))
	for m := range p.Months {
		out[m] = p.Values[m][c]
	}
	return out
}

// CategoryIndex returns the column of name, or -1.
func (p *Pivot) CategoryIndex(name string) int {
	i := sort.SearchStrings(p.Categories, name)
	if i < len(p.Categories) && p.Categories[i] == name {
		return i
	}
	return -1
}

// MonthlyPivot sums amounts by month and category name. Categories missing
// from a month are zero filled. Clusters sharing a name share a column.
func MonthlyPivot(txns []core.Transaction) *Pivot {
	monthSet := map[string]struct{}{}
	catSet := map[string]struct{}{}
	for _, tx := range txns {
		monthSet[tx.MonthKey] = struct{}{}
		catSet[tx.CategoryName] = struct{}{}
	}
	p := &Pivot{
		Months:     sortedKeys(monthSet),
		Categories: sortedKeys(catSet),
	}

	monthIdx := indexOf(p.Months)
	catIdx := indexOf(p.Categories)
	p.Values = make([][]float64, len(p.Months))
	for m := range p.Values {
		p.Values[m] = make([]float64, len(p.Categories))
	}
	for _, tx := range txns {
		p.Values[monthIdx[tx.MonthKey]][catIdx[tx.CategoryName]] += tx.Amount
	}
	p.Totals = make([]float64, len(p.Months))
	for m, row := range p.Values {
		p.Totals[m] = floats.Sum(row)
	}
	return p
}

// MarshalJSON renders the pivot as {"columns": [...], "rows": [{"month_key": ..., <category>: ..., "total": ...}]}.
// Row keys keep column order.
func (p *Pivot) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteString(`{"columns":`)
	cols, err := json.Marshal(append(append([]string{"month_key"}, p.Categories...), "total"))
	if err != nil {
		return nil, err
	}
	buf.Write(cols)
	buf.WriteString(`,"rows":[`)
	for m, month := range p.Months {
		if m > 0 {
			buf.WriteByte(',')
		}
		buf.WriteString(`{"month_key":`)
		writeJSON(&buf, month)
		for c, name := range p.Categories {
			buf.WriteByte(',')
			writeJSON(&buf, name)
			buf.WriteByte(':')
			writeJSON(&buf, p.Values[m][c])
		}
		buf.WriteString(`,"total":`)
		writeJSON(&buf, p.Totals[m])
		buf.WriteByte('}')
	}
	buf.WriteString("]}")
	return buf.Bytes(), nil
}

func writeJSON(buf *bytes.Buffer, v any) {
	b, _ := json.Marshal(v)
	buf.Write(b)
}

func sortedKeys(set map[string]struct{}) []string {
	out := make([]string, 0, len(set))
	for k := range set {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

func indexOf(keys []string) map[string]int {
	idx := make(map[string]int, len(keys))
	for i, k := range keys {
		idx[k] = i
	}
	return idx
}
