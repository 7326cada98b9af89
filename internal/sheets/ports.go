package sheets

import (
	"context"

	"caisse/internal/core"
)

// Ports for outbound adapters.
type (
	// DailySheetSource reads register daily sheets and monthly payment
	// summaries from an external spreadsheet.
	DailySheetSource interface {
		FetchDailySheets(ctx context.Context, rng core.DateRange) ([]core.DailySheetRecord, error)
		// FetchPaymentStats returns the pre-aggregated summary for a
		// YYYY-MM month, or nil when the spreadsheet has none.
		FetchPaymentStats(ctx context.Context, month string) (*core.PaymentStats, error)
	}

	// InvoiceJournal receives exported invoices.
	InvoiceJournal interface {
		AppendInvoice(ctx context.Context, inv core.InvoiceRecord) (rowRef string, err error)
	}
)
