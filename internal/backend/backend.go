// Package backend selects and constructs the daily-sheet source the
// worker imports from and the journal it exports paid invoices to.
package backend

import (
	"context"
	"fmt"
	"log/slog"

	"caisse/internal/config"
	"caisse/internal/sheets"
	gsheet "caisse/internal/sheets/google"
	"caisse/internal/sheets/memory"
)

// SourceType represents the configured sheet source
type SourceType string

const (
	// SourceOff disables sheet import/export entirely. The engine then
	// runs on locally stored records only.
	SourceOff SourceType = "off"
	// SourceMemory is an in-process store, used in tests and local runs.
	SourceMemory SourceType = "memory"
	// SourceGoogle reads daily sheets and payment stats from a Google
	// spreadsheet and appends paid invoices to its journal tab.
	SourceGoogle SourceType = "google"
)

// String implements fmt.Stringer
func (st SourceType) String() string {
	return string(st)
}

// IsValid returns true if the source type is valid
func (st SourceType) IsValid() bool {
	switch st {
	case SourceOff, SourceMemory, SourceGoogle:
		return true
	default:
		return false
	}
}

// Result contains the constructed source and journal. Both are nil for
// SourceOff; callers treat nil as "feature disabled", not an error.
type Result struct {
	Source  sheets.DailySheetSource
	Journal sheets.InvoiceJournal
}

// Factory creates sheet sources based on configuration
type Factory struct {
	logger *slog.Logger
}

// NewFactory creates a new sheet-source factory
func NewFactory(logger *slog.Logger) *Factory {
	if logger == nil {
		logger = slog.Default()
	}
	return &Factory{logger: logger}
}

// CreateSheetSource builds the source and journal named by the config.
func (f *Factory) CreateSheetSource(ctx context.Context, cfg *config.Config) (*Result, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config is nil")
	}

	sourceType := SourceType(cfg.SheetSource)
	if !sourceType.IsValid() {
		return nil, fmt.Errorf("invalid sheet source: %s", cfg.SheetSource)
	}

	switch sourceType {
	case SourceOff:
		f.logger.Info("Sheet source disabled, import and export are off")
		return &Result{}, nil

	case SourceMemory:
		store := memory.New()
		f.logger.Info("Initialized in-memory sheet source")
		return &Result{Source: store, Journal: store}, nil

	case SourceGoogle:
		cli, err := gsheet.NewFromEnv(ctx)
		if err != nil {
			return nil, fmt.Errorf("initialize Google Sheets client: %w", err)
		}
		f.logger.Info("Initialized Google Sheets source",
			"spreadsheet_id", cfg.GoogleSpreadsheetID,
			"daily_sheet", cfg.GoogleDailySheetName,
			"journal_sheet", cfg.GoogleJournalSheetName)
		return &Result{Source: cli, Journal: cli}, nil

	default:
		return nil, fmt.Errorf("unsupported sheet source: %s", sourceType)
	}
}
