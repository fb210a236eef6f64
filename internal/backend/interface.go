package backend

import (
	"context"

	"smartbudget/internal/sheets"
	gsheet "smartbudget/internal/sheets/google"
)

// Source is a ledger location the pipeline can read.
type Source interface {
	sheets.LedgerReader
}

// CleanupFunc represents a cleanup function for resources
type CleanupFunc func() error

// SourceResult contains the source instance and optional cleanup function
type SourceResult struct {
	Source  Source
	Cleanup CleanupFunc
}

// Factory creates ledger sources based on configuration
type Factory interface {
	// CreateSource creates a source instance based on the provided config
	CreateSource(ctx context.Context, config Config) (*SourceResult, error)
}

// Config holds configuration for source creation
type Config struct {
	// Source type
	Type SourceType

	// File specific
	Path  string
	Sheet string

	// Inline specific: delimited text carried by the request itself
	Inline string

	// Google Sheets specific
	Google gsheet.Config
}

// SourceType represents the kind of ledger source
type SourceType string

const (
	FileSource   SourceType = "file"
	SheetsSource SourceType = "sheets"
	InlineSource SourceType = "inline"
)

// String implements fmt.Stringer
func (st SourceType) String() string {
	return string(st)
}

// IsValid returns true if the source type is valid
func (st SourceType) IsValid() bool {
	switch st {
	case FileSource, SheetsSource, InlineSource:
		return true
	default:
		return false
	}
}
