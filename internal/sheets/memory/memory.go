// Package memory keeps ledgers in process, for inline uploads and tests.
package memory

import (
	"context"
	"errors"
	"strings"
	"sync"

	"smartbudget/internal/ledger"
	ports "smartbudget/internal/sheets"
	"smartbudget/internal/sheets/file"
)

// ErrEmpty is returned when nothing has been stored yet.
var ErrEmpty = errors.New("memory ledger is empty")

type Store struct {
	mu     sync.Mutex
	table  ledger.Table
	filled bool
	reads  int
}

var (
	_ ports.LedgerReader = (*Store)(nil)
	_ ports.LedgerWriter = (*Store)(nil)
)

func New() *Store {
	return &Store{}
}

// NewFromTable returns a store already holding t.
func NewFromTable(t ledger.Table) *Store {
	s := New()
	s.table, s.filled = cloneTable(t), true
	return s
}

// NewFromCSV parses delimited text, e.g. the payload of a queued request.
func NewFromCSV(data string) (*Store, error) {
	t, err := file.ReadCSV(strings.NewReader(data))
	if err != nil {
		return nil, err
	}
	return NewFromTable(t), nil
}

// ReadLedger returns a copy of the stored table.
func (s *Store) ReadLedger(ctx context.Context) (ledger.Table, error) {
	if err := ctx.Err(); err != nil {
		return ledger.Table{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.filled {
		return ledger.Table{}, ErrEmpty
	}
	s.reads++
	return cloneTable(s.table), nil
}

// WriteLedger replaces the stored table.
func (s *Store) WriteLedger(ctx context.Context, t ledger.Table) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.table, s.filled = cloneTable(t), true
	return nil
}

// Reads returns how many times the ledger was read.
func (s *Store) Reads() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.reads
}

func cloneTable(t ledger.Table) ledger.Table {
	out := ledger.Table{Header: append([]string(nil), t.Header...)}
	if t.Rows != nil {
		out.Rows = make([][]string, len(t.Rows))
		for i, row := range t.Rows {
			out.Rows[i] = append([]string(nil), row...)
		}
	}
	return out
}
