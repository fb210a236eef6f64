// Package ledger turns raw tabular expense data into cleaned transactions.
//
// The accepted columns, their aliases and how each raw cell is coerced are
// declared once in a Schema; the Normalizer only interprets that declaration.
package ledger

// Table is a raw ledger as read from a spreadsheet or delimited file:
// a header row followed by data rows of unparsed cell text.
type Table struct {
	Header []string
	Rows   [][]string
}

// NewTable builds a Table from a values matrix whose first row is the header.
func NewTable(values [][]string) Table {
	if len(values) == 0 {
		return Table{}
	}
	return Table{Header: values[0], Rows: values[1:]}
}

// Len returns the number of data rows.
func (t Table) Len() int {
	return len(t.Rows)
}

// cell returns row[i] or "" when the row is shorter than the header.
func cell(row []string, i int) string {
	if i < 0 || i >= len(row) {
		return ""
	}
	return row[i]
}
