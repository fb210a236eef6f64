package sheets

import (
	"context"

	"smartbudget/internal/ledger"
)

// Ports for ledger sources and sinks.
type (
	// LedgerReader loads a raw ledger table from its source.
	LedgerReader interface {
		ReadLedger(ctx context.Context) (ledger.Table, error)
	}

	// LedgerWriter stores a raw ledger table, e.g. a generated sample.
	LedgerWriter interface {
		WriteLedger(ctx context.Context, t ledger.Table) error
	}
)
