package worker

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"caisse/internal/amqp"
	"caisse/internal/core"
	"caisse/internal/sheets"
	"caisse/internal/storage"
)

// SyncWorker exports committed invoices from SQLite to the journal
// spreadsheet and imports register daily sheets going the other way.
type SyncWorker struct {
	storage   *storage.SQLiteRepository
	journal   sheets.InvoiceJournal
	source    sheets.DailySheetSource
	batchSize int
}

func NewSyncWorker(storage *storage.SQLiteRepository, journal sheets.InvoiceJournal, source sheets.DailySheetSource, batchSize int) *SyncWorker {
	return &SyncWorker{
		storage:   storage,
		journal:   journal,
		source:    source,
		batchSize: batchSize,
	}
}

// HandleSyncMessage processes a single record sync message from AMQP
func (w *SyncWorker) HandleSyncMessage(ctx context.Context, msg *amqp.RecordSyncMessage) error {
	slog.InfoContext(ctx, "Processing sync message",
		"kind", msg.Kind,
		"id", msg.ID,
		"version", msg.Version)

	// Only invoices have a journal target; other record kinds live in
	// SQLite alone.
	if msg.Kind != amqp.KindInvoice {
		slog.InfoContext(ctx, "Record kind has no export target, skipping",
			"kind", msg.Kind, "id", msg.ID)
		return nil
	}

	return w.exportInvoice(ctx, msg.ID)
}

func (w *SyncWorker) exportInvoice(ctx context.Context, id int64) error {
	if w.journal == nil {
		slog.WarnContext(ctx, "No invoice journal configured, skipping export", "id", id)
		return nil
	}

	invoice, err := w.storage.GetInvoice(ctx, id)
	if err != nil {
		return fmt.Errorf("get invoice from storage: %w", err)
	}

	ref, err := w.journal.AppendInvoice(ctx, invoice)
	if err != nil {
		return fmt.Errorf("append invoice to journal: %w", err)
	}

	if err := w.storage.MarkSynced(ctx, id); err != nil {
		return fmt.Errorf("mark invoice synced: %w", err)
	}

	slog.InfoContext(ctx, "Invoice exported to journal",
		"id", id,
		"label", invoice.Label,
		"row_ref", ref)

	return nil
}

// ProcessPendingInvoices exports any invoices that haven't been synced yet.
// This is a backup mechanism in case AMQP messages are lost
func (w *SyncWorker) ProcessPendingInvoices(ctx context.Context) error {
	pending, err := w.storage.GetPendingSyncInvoices(ctx, w.batchSize)
	if err != nil {
		return fmt.Errorf("get pending invoices: %w", err)
	}

	if len(pending) == 0 {
		return nil
	}

	slog.InfoContext(ctx, "Processing pending invoices", "count", len(pending))

	for _, p := range pending {
		if err := w.exportInvoice(ctx, p.ID); err != nil {
			slog.ErrorContext(ctx, "Failed to export invoice", "id", p.ID, "error", err)
			if err := w.storage.MarkSyncError(ctx, p.ID); err != nil {
				slog.ErrorContext(ctx, "Failed to mark sync error", "id", p.ID, "error", err)
			}
			continue
		}
	}

	return nil
}

// StartupSyncCheck exports any pending invoices at worker startup.
// This is useful to recover from missed AMQP messages or worker downtime
func (w *SyncWorker) StartupSyncCheck(ctx context.Context) error {
	// Get a larger batch for startup check
	pending, err := w.storage.GetPendingSyncInvoices(ctx, w.batchSize*5)
	if err != nil {
		return fmt.Errorf("get pending invoices for startup check: %w", err)
	}

	if len(pending) == 0 {
		slog.InfoContext(ctx, "No pending invoices found on startup")
		return nil
	}

	slog.InfoContext(ctx, "Found pending invoices on startup, processing...",
		"count", len(pending))

	successCount := 0
	errorCount := 0

	for _, p := range pending {
		if err := w.exportInvoice(ctx, p.ID); err != nil {
			slog.ErrorContext(ctx, "Failed to export invoice during startup",
				"id", p.ID, "error", err)
			errorCount++
			continue
		}
		successCount++
	}

	slog.InfoContext(ctx, "Startup sync completed",
		"total", len(pending),
		"synced", successCount,
		"errors", errorCount)

	return nil
}

// ImportDailySheets pulls register daily sheets for the range from the
// configured source into SQLite, along with the month's payment summary
// when the source has one. Returns the number of imported sheets.
func (w *SyncWorker) ImportDailySheets(ctx context.Context, rng core.DateRange) (int, error) {
	if w.source == nil {
		slog.InfoContext(ctx, "No daily-sheet source configured, skipping import")
		return 0, nil
	}

	records, err := w.source.FetchDailySheets(ctx, rng)
	if err != nil {
		return 0, fmt.Errorf("fetch daily sheets: %w", err)
	}

	imported := 0
	for _, sheet := range records {
		if err := w.storage.UpsertDailySheet(ctx, sheet); err != nil {
			slog.ErrorContext(ctx, "Failed to upsert daily sheet",
				"date", sheet.Date.Format("2006-01-02"), "error", err)
			continue
		}
		imported++
	}

	month := rng.Month()
	stats, err := w.source.FetchPaymentStats(ctx, month)
	if err != nil {
		slog.ErrorContext(ctx, "Failed to fetch payment stats", "month", month, "error", err)
	} else if stats != nil {
		if err := w.storage.UpsertPaymentStats(ctx, month, *stats); err != nil {
			slog.ErrorContext(ctx, "Failed to upsert payment stats", "month", month, "error", err)
		}
	}

	slog.InfoContext(ctx, "Daily-sheet import completed",
		"month", month,
		"fetched", len(records),
		"imported", imported)

	return imported, nil
}

// ImportCurrentMonth imports the month containing now.
func (w *SyncWorker) ImportCurrentMonth(ctx context.Context) (int, error) {
	now := time.Now()
	start := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, now.Location())
	end := start.AddDate(0, 1, -1)
	return w.ImportDailySheets(ctx, core.DateRange{Start: start, End: end})
}
