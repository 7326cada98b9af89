package memory

import (
	"context"
	"testing"
	"time"

	"caisse/internal/core"
)

func TestFetchDailySheetsRange(t *testing.T) {
	store := New()
	store.SeedDailySheets(
		core.DailySheetRecord{ID: 1, Date: time.Date(2026, time.March, 5, 0, 0, 0, 0, time.UTC)},
		core.DailySheetRecord{ID: 2, Date: time.Date(2026, time.April, 2, 0, 0, 0, 0, time.UTC)},
	)

	rng := core.DateRange{
		Start: time.Date(2026, time.March, 1, 0, 0, 0, 0, time.UTC),
		End:   time.Date(2026, time.March, 31, 0, 0, 0, 0, time.UTC),
	}
	sheets, err := store.FetchDailySheets(context.Background(), rng)
	if err != nil {
		t.Fatalf("FetchDailySheets: %v", err)
	}
	if len(sheets) != 1 || sheets[0].ID != 1 {
		t.Fatalf("sheets = %+v, want only the March sheet", sheets)
	}

	if _, err := store.FetchDailySheets(context.Background(), core.DateRange{}); err != core.ErrInvalidRange {
		t.Errorf("err = %v, want ErrInvalidRange", err)
	}
}

func TestFetchPaymentStats(t *testing.T) {
	store := New()
	store.SeedPaymentStats("2026-03", core.PaymentStats{GrossRevenue: core.AmountFromFloat(30000)})

	stats, err := store.FetchPaymentStats(context.Background(), "2026-03")
	if err != nil {
		t.Fatalf("FetchPaymentStats: %v", err)
	}
	if stats == nil || !stats.GrossRevenue.Equal(core.AmountFromFloat(30000).Decimal) {
		t.Fatalf("stats = %+v", stats)
	}

	stats, err = store.FetchPaymentStats(context.Background(), "2025-01")
	if err != nil {
		t.Fatalf("FetchPaymentStats absent: %v", err)
	}
	if stats != nil {
		t.Errorf("stats for absent month = %+v, want nil", stats)
	}
}

func TestAppendInvoice(t *testing.T) {
	store := New()
	ref, err := store.AppendInvoice(context.Background(), core.InvoiceRecord{ID: 7, Label: "boucherie"})
	if err != nil {
		t.Fatalf("AppendInvoice: %v", err)
	}
	if ref != "mem:1" {
		t.Errorf("ref = %q, want mem:1", ref)
	}
	journal := store.Journal()
	if len(journal) != 1 || journal[0].ID != 7 {
		t.Fatalf("journal = %+v", journal)
	}
}
