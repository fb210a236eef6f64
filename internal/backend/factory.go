package backend

import (
	"context"
	"fmt"

	"smartbudget/internal/log"
	"smartbudget/internal/sheets/file"
	gsheet "smartbudget/internal/sheets/google"
	"smartbudget/internal/sheets/memory"
)

// DefaultFactory implements the Factory interface
type DefaultFactory struct {
	logger *log.Logger
}

// NewFactory creates a new source factory
func NewFactory(logger *log.Logger) Factory {
	if logger == nil {
		logger = log.Discard()
	}
	return &DefaultFactory{
		logger: logger.WithComponent(log.ComponentBackend),
	}
}

// CreateSource implements Factory.CreateSource
func (f *DefaultFactory) CreateSource(ctx context.Context, config Config) (*SourceResult, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	switch config.Type {
	case FileSource:
		return f.createFileSource(ctx, config)
	case SheetsSource:
		return f.createSheetsSource(ctx, config)
	case InlineSource:
		return f.createInlineSource(ctx, config)
	default:
		return nil, fmt.Errorf("unsupported source type: %s", config.Type)
	}
}

func (f *DefaultFactory) createFileSource(ctx context.Context, config Config) (*SourceResult, error) {
	if _, err := file.DetectFormat(config.Path); err != nil {
		return nil, err
	}
	f.logger.DebugContext(ctx, "Initialized file source", log.FieldLocation, config.Path)
	return &SourceResult{Source: file.New(config.Path, config.Sheet)}, nil
}

func (f *DefaultFactory) createSheetsSource(ctx context.Context, config Config) (*SourceResult, error) {
	cli, err := gsheet.New(ctx, config.Google)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize Google Sheets client: %w", err)
	}

	f.logger.InfoContext(ctx, "Initialized Google Sheets source", log.FieldLocation, cli.A1())

	return &SourceResult{Source: cli}, nil
}

func (f *DefaultFactory) createInlineSource(ctx context.Context, config Config) (*SourceResult, error) {
	store, err := memory.NewFromCSV(config.Inline)
	if err != nil {
		return nil, fmt.Errorf("parse inline ledger: %w", err)
	}
	f.logger.DebugContext(ctx, "Initialized inline source")
	return &SourceResult{Source: store}, nil
}
