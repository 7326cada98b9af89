package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"caisse/internal/core"

	"github.com/shopspring/decimal"
)

type fakeStore struct {
	sheets     []core.DailySheetRecord
	invoices   []core.InvoiceRecord
	moves      []core.BankTransactionRecord
	remainders []core.SalaryRemainderRecord
	roster     []core.Employee
	stats      *core.PaymentStats

	statsCalls int
	failWith   error
}

func (f *fakeStore) DailySheetsInRange(_ context.Context, _ core.DateRange) ([]core.DailySheetRecord, error) {
	if f.failWith != nil {
		return nil, f.failWith
	}
	return f.sheets, nil
}

func (f *fakeStore) InvoicesInRange(_ context.Context, _ core.DateRange) ([]core.InvoiceRecord, error) {
	return f.invoices, nil
}

func (f *fakeStore) BankTransactionsInRange(_ context.Context, _ core.DateRange) ([]core.BankTransactionRecord, error) {
	return f.moves, nil
}

func (f *fakeStore) SalaryRemaindersForMonth(_ context.Context, _ string) ([]core.SalaryRemainderRecord, error) {
	return f.remainders, nil
}

func (f *fakeStore) EmployeeRoster(_ context.Context) ([]core.Employee, error) {
	return f.roster, nil
}

func (f *fakeStore) PaymentStatsForMonth(_ context.Context, _ string) (*core.PaymentStats, error) {
	f.statsCalls++
	return f.stats, nil
}

func march() core.DateRange {
	return core.DateRange{
		Start: time.Date(2026, time.March, 1, 0, 0, 0, 0, time.UTC),
		End:   time.Date(2026, time.March, 31, 0, 0, 0, 0, time.UTC),
	}
}

func marchSheet() core.DailySheetRecord {
	return core.DailySheetRecord{
		ID:            1,
		Date:          time.Date(2026, time.March, 5, 0, 0, 0, 0, time.UTC),
		GrossRevenue:  core.AmountFromFloat(1250),
		NetRemainder:  core.AmountFromFloat(1200),
		CardTotal:     core.AmountFromFloat(200),
		CashTotal:     core.AmountFromFloat(1000),
		VoucherTotal:  core.AmountFromFloat(50),
		TotalExpenses: core.AmountFromFloat(50),
	}
}

func TestSummary(t *testing.T) {
	store := &fakeStore{
		sheets: []core.DailySheetRecord{marchSheet()},
		invoices: []core.InvoiceRecord{
			{ID: 1, Amount: core.AmountFromFloat(100), PaymentMethod: core.MethodCash,
				Status: core.StatusPaid, Payer: core.PayerRiadh, Origin: core.OriginDirectExpense},
			{ID: 2, Amount: core.AmountFromFloat(500), Status: core.StatusUnpaid, Payer: core.PayerCaisse},
		},
	}
	svc := NewSnapshotService(store)

	view, err := svc.Summary(context.Background(), march(), core.FilterAll)
	if err != nil {
		t.Fatalf("Summary: %v", err)
	}
	if !view.CashBalance.Equal(decimal.NewFromInt(1000)) {
		t.Errorf("CashBalance = %s, want 1000", view.CashBalance)
	}
	if !view.RiadhExpenses.Equal(decimal.NewFromInt(100)) {
		t.Errorf("RiadhExpenses = %s, want 100", view.RiadhExpenses)
	}
	if !view.UnpaidTotal.Equal(decimal.NewFromInt(500)) {
		t.Errorf("UnpaidTotal = %s, want 500", view.UnpaidTotal)
	}
	// Sheets exist, so no fallback lookup happened.
	if store.statsCalls != 0 {
		t.Errorf("statsCalls = %d, want 0", store.statsCalls)
	}
}

func TestSummaryStatsFallback(t *testing.T) {
	store := &fakeStore{
		stats: &core.PaymentStats{
			GrossRevenue: core.AmountFromFloat(30000),
			NetRemainder: core.AmountFromFloat(27500),
			CashTotal:    core.AmountFromFloat(21000),
			TpeTotal:     core.AmountFromFloat(6000),
		},
	}
	svc := NewSnapshotService(store)

	view, err := svc.Summary(context.Background(), march(), core.FilterAll)
	if err != nil {
		t.Fatalf("Summary: %v", err)
	}
	if store.statsCalls != 1 {
		t.Fatalf("statsCalls = %d, want 1", store.statsCalls)
	}
	if !view.CashBalance.Equal(decimal.NewFromInt(21000)) {
		t.Errorf("CashBalance = %s, want 21000 from stats fallback", view.CashBalance)
	}
	if !view.NetRemainder.Equal(decimal.NewFromInt(27500)) {
		t.Errorf("NetRemainder = %s, want 27500", view.NetRemainder)
	}
}

func TestSummaryStoreError(t *testing.T) {
	boom := errors.New("disk on fire")
	svc := NewSnapshotService(&fakeStore{failWith: boom})

	_, err := svc.Summary(context.Background(), march(), core.FilterAll)
	if !errors.Is(err, boom) {
		t.Fatalf("err = %v, want wrapped store error", err)
	}
}

func TestSummaryInvalidRange(t *testing.T) {
	svc := NewSnapshotService(&fakeStore{})
	_, err := svc.Summary(context.Background(), core.DateRange{}, core.FilterAll)
	if !errors.Is(err, core.ErrInvalidRange) {
		t.Fatalf("err = %v, want ErrInvalidRange", err)
	}
}

func TestPreviewSummaryDoesNotCommit(t *testing.T) {
	store := &fakeStore{sheets: []core.DailySheetRecord{marchSheet()}}
	svc := NewSnapshotService(store)

	edit := core.PendingEdit{
		Kind:   core.PendingExpense,
		Amount: core.AmountFromFloat(250),
		Method: core.MethodCash,
	}
	previewed, err := svc.PreviewSummary(context.Background(), march(), core.FilterAll, edit)
	if err != nil {
		t.Fatalf("PreviewSummary: %v", err)
	}
	if !previewed.CashBalance.Equal(decimal.NewFromInt(750)) {
		t.Errorf("previewed CashBalance = %s, want 750", previewed.CashBalance)
	}

	committed, err := svc.Summary(context.Background(), march(), core.FilterAll)
	if err != nil {
		t.Fatalf("Summary: %v", err)
	}
	if !committed.CashBalance.Equal(decimal.NewFromInt(1000)) {
		t.Errorf("committed CashBalance = %s, want 1000 untouched by preview", committed.CashBalance)
	}
}

func TestEntryBreakdown(t *testing.T) {
	paid := time.Date(2026, time.March, 10, 0, 0, 0, 0, time.UTC)
	store := &fakeStore{
		invoices: []core.InvoiceRecord{
			{ID: 1, Label: "boucherie", Amount: core.AmountFromFloat(80), Category: core.CategorySupplier,
				PaidDate: paid, Status: core.StatusPaid, Payer: core.PayerCaisse, Origin: core.OriginDirectExpense},
			{ID: 2, Label: "boucherie", Amount: core.AmountFromFloat(40), Category: core.CategorySupplier,
				PaidDate: paid, Status: core.StatusPaid, Payer: core.PayerCaisse, Origin: core.OriginDirectExpense},
			{ID: 3, Label: "STEG", Amount: core.AmountFromFloat(200), Category: core.CategoryAdministrative,
				PaidDate: paid, Status: core.StatusPaid, Payer: core.PayerCaisse, Origin: core.OriginDirectExpense},
			{ID: 4, Label: "impayée", Amount: core.AmountFromFloat(999), Category: core.CategorySupplier,
				Status: core.StatusUnpaid, Payer: core.PayerCaisse},
		},
	}
	svc := NewSnapshotService(store)

	groups, err := svc.EntryBreakdown(context.Background(), march(), core.FilterAll, core.CategorySupplier)
	if err != nil {
		t.Fatalf("EntryBreakdown: %v", err)
	}
	if len(groups) != 1 {
		t.Fatalf("got %d groups, want 1 (only paid supplier entries)", len(groups))
	}
	if groups[0].Name != "boucherie" || !groups[0].Total.Equal(decimal.NewFromInt(120)) {
		t.Errorf("group = %+v", groups[0])
	}
}

func TestRemainderBreakdown(t *testing.T) {
	store := &fakeStore{
		remainders: []core.SalaryRemainderRecord{
			{ID: 1, EmployeeName: "sana", Amount: core.AmountFromFloat(120)},
		},
		roster: []core.Employee{
			{Name: "sana", Department: "salle"},
			{Name: "amine", Department: "cuisine"},
		},
	}
	svc := NewSnapshotService(store)

	rows, err := svc.RemainderBreakdown(context.Background(), march())
	if err != nil {
		t.Fatalf("RemainderBreakdown: %v", err)
	}
	if len(rows) != 2 {
		t.Fatalf("got %d rows, want 2", len(rows))
	}
	if rows[0].EmployeeName != "sana" || rows[1].EmployeeName != "amine" {
		t.Errorf("rows = %+v", rows)
	}
	if !rows[1].Total.IsZero() {
		t.Errorf("amine Total = %s, want 0 (rostered, nothing accrued)", rows[1].Total)
	}
}
