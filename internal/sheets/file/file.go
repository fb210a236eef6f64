// Package file reads and writes ledgers stored as CSV or XLSX files.
package file

import (
	"bufio"
	"bytes"
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/xuri/excelize/v2"

	"smartbudget/internal/ledger"
	ports "smartbudget/internal/sheets"
)

// ErrUnsupportedFormat is returned for extensions other than csv, tsv, txt and xlsx.
var ErrUnsupportedFormat = errors.New("unsupported ledger format")

// Format identifies a ledger encoding.
type Format string

const (
	FormatCSV  Format = "csv"
	FormatXLSX Format = "xlsx"
)

// DetectFormat picks the format from the file extension.
func DetectFormat(path string) (Format, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".csv", ".tsv", ".txt":
		return FormatCSV, nil
	case ".xlsx", ".xlsm":
		return FormatXLSX, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnsupportedFormat, filepath.Ext(path))
	}
}

// Ledger is a ledger file on disk.
type Ledger struct {
	path  string
	sheet string
}

var (
	_ ports.LedgerReader = (*Ledger)(nil)
	_ ports.LedgerWriter = (*Ledger)(nil)
)

// New returns a ledger backed by path. sheet selects the XLSX worksheet;
// empty means the first one.
func New(path, sheet string) *Ledger {
	return &Ledger{path: path, sheet: sheet}
}

// Path returns the file location.
func (l *Ledger) Path() string { return l.path }

func (l *Ledger) ReadLedger(ctx context.Context) (ledger.Table, error) {
	if err := ctx.Err(); err != nil {
		return ledger.Table{}, err
	}
	format, err := DetectFormat(l.path)
	if err != nil {
		return ledger.Table{}, err
	}
	f, err := os.Open(l.path)
	if err != nil {
		return ledger.Table{}, fmt.Errorf("open ledger: %w", err)
	}
	defer f.Close()

	if format == FormatXLSX {
		return ReadXLSX(f, l.sheet)
	}
	return ReadCSV(f)
}

func (l *Ledger) WriteLedger(ctx context.Context, t ledger.Table) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	format, err := DetectFormat(l.path)
	if err != nil {
		return err
	}
	if dir := filepath.Dir(l.path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create ledger dir: %w", err)
		}
	}
	f, err := os.Create(l.path)
	if err != nil {
		return fmt.Errorf("create ledger: %w", err)
	}
	if format == FormatXLSX {
		err = WriteXLSX(f, t, l.sheet)
	} else {
		err = WriteCSV(f, t)
	}
	if err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

// ReadCSV parses delimited text. The delimiter is sniffed from the header
// line among comma, semicolon and tab; a UTF-8 byte order mark is skipped.
func ReadCSV(r io.Reader) (ledger.Table, error) {
	br := bufio.NewReader(r)
	if bom, err := br.Peek(3); err == nil && bytes.Equal(bom, []byte{0xEF, 0xBB, 0xBF}) {
		br.Discard(3)
	}
	head, _ := br.Peek(4096)
	cr := csv.NewReader(br)
	cr.Comma = sniffDelimiter(head)
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true
	cr.TrimLeadingSpace = true

	records, err := cr.ReadAll()
	if err != nil {
		return ledger.Table{}, fmt.Errorf("parse csv: %w", err)
	}
	return ledger.NewTable(records), nil
}

func sniffDelimiter(head []byte) rune {
	line := head
	if i := bytes.IndexByte(head, '\n'); i >= 0 {
		line = head[:i]
	}
	best, bestCount := ',', 0
	for _, d := range []rune{',', ';', '\t'} {
		if n := bytes.Count(line, []byte(string(d))); n > bestCount {
			best, bestCount = d, n
		}
	}
	return best
}

// WriteCSV writes t as comma separated values, header first.
func WriteCSV(w io.Writer, t ledger.Table) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(t.Header); err != nil {
		return fmt.Errorf("write csv header: %w", err)
	}
	if err := cw.WriteAll(t.Rows); err != nil {
		return fmt.Errorf("write csv rows: %w", err)
	}
	return nil
}

// ReadXLSX reads one worksheet. Cells are read as displayed, so dates keep
// the workbook's number format and are parsed leniently later.
func ReadXLSX(r io.Reader, sheet string) (ledger.Table, error) {
	wb, err := excelize.OpenReader(r)
	if err != nil {
		return ledger.Table{}, fmt.Errorf("open xlsx: %w", err)
	}
	defer wb.Close()

	if sheet == "" {
		sheets := wb.GetSheetList()
		if len(sheets) == 0 {
			return ledger.Table{}, errors.New("xlsx has no worksheets")
		}
		sheet = sheets[0]
	}
	rows, err := wb.GetRows(sheet)
	if err != nil {
		return ledger.Table{}, fmt.Errorf("read sheet %q: %w", sheet, err)
	}
	return ledger.NewTable(rows), nil
}

// WriteXLSX writes t into a new workbook. Cells that look numeric are
// stored as numbers so spreadsheets can sum them.
func WriteXLSX(w io.Writer, t ledger.Table, sheet string) error {
	wb := excelize.NewFile()
	defer wb.Close()

	if sheet == "" {
		sheet = "Sheet1"
	}
	if sheet != "Sheet1" {
		if err := wb.SetSheetName("Sheet1", sheet); err != nil {
			return fmt.Errorf("name sheet: %w", err)
		}
	}
	all := append([][]string{t.Header}, t.Rows...)
	for i, row := range all {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			return err
		}
		values := make([]interface{}, len(row))
		for j, v := range row {
			values[j] = cellValue(v, i == 0)
		}
		if err := wb.SetSheetRow(sheet, cell, &values); err != nil {
			return fmt.Errorf("write row %d: %w", i+1, err)
		}
	}
	if _, err := wb.WriteTo(w); err != nil {
		return fmt.Errorf("write xlsx: %w", err)
	}
	return nil
}

func cellValue(v string, header bool) interface{} {
	if header {
		return v
	}
	if f, ok := ledger.ParseAmount(v); ok && !strings.ContainsAny(v, "-/$€") {
		return f
	}
	return v
}
