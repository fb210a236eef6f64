// Package export writes pipeline outputs as CSV files.
package export

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"

	"smartbudget/internal/aggregate"
	"smartbudget/internal/core"
)

// Default file names of a full export.
const (
	TransactionsFile = "gastos_limpios.csv"
	PivotFile        = "resumen_mensual.csv"
	DailyFile        = "gasto_diario.csv"
)

var transactionHeader = []string{
	"fecha", "concepto", "descripcion", "monto", "mes", "anio", "mes_num", "categoria_auto", "categoria_nombre",
}

func formatAmount(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

// WriteTransactions writes the cleaned ledger, one row per transaction.
func WriteTransactions(w io.Writer, txns []core.Transaction) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(transactionHeader); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	for _, tx := range txns {
		rec := []string{
			tx.Date.String(),
			tx.Concept,
			tx.Description,
			formatAmount(tx.Amount),
			tx.MonthKey,
			strconv.Itoa(tx.Year),
			strconv.Itoa(tx.MonthNumber),
			strconv.Itoa(tx.CategoryID),
			tx.CategoryName,
		}
		if err := cw.Write(rec); err != nil {
			return fmt.Errorf("write transaction: %w", err)
		}
	}
	cw.Flush()
	return cw.Error()
}

// WritePivot writes the monthly summary: mes, one column per category, total.
func WritePivot(w io.Writer, p *aggregate.Pivot) error {
	cw := csv.NewWriter(w)
	header := append(append([]string{"mes"}, p.Categories...), "total")
	if err := cw.Write(header); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	for m, month := range p.Months {
		rec := make([]string, 0, len(header))
		rec = append(rec, month)
		for _, v := range p.Row(m) {
			rec = append(rec, formatAmount(v))
		}
		rec = append(rec, formatAmount(p.Totals[m]))
		if err := cw.Write(rec); err != nil {
			return fmt.Errorf("write month %s: %w", month, err)
		}
	}
	cw.Flush()
	return cw.Error()
}

// WriteDaily writes daily spend with its anomaly score and verdict.
func WriteDaily(w io.Writer, records []core.DailyRecord) error {
	cw := csv.NewWriter(w)
	if err := cw.Write([]string{"fecha", "monto", "score", "anomalia"}); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	for _, r := range records {
		rec := []string{
			r.Date.String(),
			formatAmount(r.Amount),
			strconv.FormatFloat(r.Score, 'f', 6, 64),
			strconv.FormatBool(r.Anomaly),
		}
		if err := cw.Write(rec); err != nil {
			return fmt.Errorf("write day %s: %w", r.Date, err)
		}
	}
	cw.Flush()
	return cw.Error()
}

// Bundle is everything a directory export writes.
type Bundle struct {
	Transactions []core.Transaction
	Pivot        *aggregate.Pivot
	Daily        []core.DailyRecord
}

// WriteDir writes the bundle into dir using the default file names and
// returns the paths written.
func WriteDir(dir string, b Bundle) ([]string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create export dir: %w", err)
	}
	files := []struct {
		name  string
		write func(io.Writer) error
	}{
		{TransactionsFile, func(w io.Writer) error { return WriteTransactions(w, b.Transactions) }},
		{PivotFile, func(w io.Writer) error { return WritePivot(w, b.Pivot) }},
		{DailyFile, func(w io.Writer) error { return WriteDaily(w, b.Daily) }},
	}

	var written []string
	for _, f := range files {
		path := filepath.Join(dir, f.name)
		if err := writeFile(path, f.write); err != nil {
			return written, err
		}
		written = append(written, path)
	}
	return written, nil
}

func writeFile(path string, write func(io.Writer) error) error {
	fh, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	if err := write(fh); err != nil {
		fh.Close()
		return fmt.Errorf("write %s: %w", path, err)
	}
	return fh.Close()
}
