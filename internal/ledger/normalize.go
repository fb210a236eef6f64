package ledger

import (
	"sort"

	"smartbudget/internal/core"
)

// Report counts what normalization kept and why rows were dropped.
// Dropped rows are a data quality tolerance, never an error.
type Report struct {
	RowsRead       int  `json:"rows_read"`
	Kept           int  `json:"kept"`
	InvalidDate    int  `json:"invalid_date"`
	InvalidAmount  int  `json:"invalid_amount"`
	EmptyConcept   int  `json:"empty_concept"`
	HasDescription bool `json:"has_description"`
}

// Dropped returns the number of rows that did not survive normalization.
func (r Report) Dropped() int {
	return r.RowsRead - r.Kept
}

// Normalizer cleans raw tables according to a Schema.
type Normalizer struct {
	schema Schema
}

func NewNormalizer(schema Schema) *Normalizer {
	return &Normalizer{schema: schema}
}

// Normalize validates the header and returns the cleaned transactions sorted by date.
// A missing required column fails with *core.SchemaError before any row is read.
func (n *Normalizer) Normalize(t Table) ([]core.Transaction, Report, error) {
	cols, err := n.schema.Resolve(t.Header)
	if err != nil {
		return nil, Report{}, err
	}

	dateField, _ := n.schema.Field(FieldDate)
	conceptField, _ := n.schema.Field(FieldConcept)
	amountField, _ := n.schema.Field(FieldAmount)
	descField, hasDescField := n.schema.Field(FieldDescription)
	descCol, hasDesc := cols[FieldDescription]
	hasDesc = hasDesc && hasDescField

	rep := Report{RowsRead: len(t.Rows), HasDescription: hasDesc}
	out := make([]core.Transaction, 0, len(t.Rows))
	for _, row := range t.Rows {
		date, ok := dateField.Coerce(cell(row, cols[FieldDate]))
		if !ok {
			rep.InvalidDate++
			continue
		}
		// Non numeric amounts count as zero and zero amounts are not expenses.
		amount, ok := amountField.Coerce(cell(row, cols[FieldAmount]))
		if !ok || amount.Number == 0 {
			rep.InvalidAmount++
			continue
		}
		concept, _ := conceptField.Coerce(cell(row, cols[FieldConcept]))
		if concept.Text == "" {
			rep.EmptyConcept++
			continue
		}
		var desc Value
		if hasDesc {
			desc, _ = descField.Coerce(cell(row, descCol))
		}

		d := core.DateOf(date.Time)
		out = append(out, core.Transaction{
			Date:        d,
			Concept:     concept.Text,
			Description: desc.Text,
			Amount:      amount.Number,
			MonthKey:    d.MonthKey(),
			Year:        d.Year(),
			MonthNumber: int(d.Month()),
		})
	}

	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Date.Before(out[j].Date.Time)
	})
	rep.Kept = len(out)
	return out, rep, nil
}

// Normalize cleans t with the default schema and month first dates.
func Normalize(t Table) ([]core.Transaction, Report, error) {
	return NewNormalizer(DefaultSchema(DateOptions{})).Normalize(t)
}
