package core

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
)

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func testRange() DateRange {
	return DateRange{Start: day(2026, time.March, 1), End: day(2026, time.March, 31)}
}

// baseSheet is a typical register day:
// cash 1000, vouchers 50, tpe 200, cheque 0, net 1200, expenses 50.
func baseSheet() DailySheetRecord {
	return DailySheetRecord{
		ID:            1,
		Date:          day(2026, time.March, 5),
		GrossRevenue:  AmountFromFloat(1250),
		NetRemainder:  AmountFromFloat(1200),
		CardTotal:     AmountFromFloat(200),
		CashTotal:     AmountFromFloat(1000),
		VoucherTotal:  AmountFromFloat(50),
		TotalExpenses: AmountFromFloat(50),
	}
}

func mustEqual(t *testing.T, name string, got decimal.Decimal, want float64) {
	t.Helper()
	if !got.Equal(decimal.NewFromFloat(want)) {
		t.Errorf("%s = %s, want %v", name, got, want)
	}
}

func TestAggregateSingleSheet(t *testing.T) {
	in := EngineInput{
		Sheets: []DailySheetRecord{baseSheet()},
		Range:  testRange(),
		Payer:  FilterAll,
	}
	got, err := Aggregate(in)
	if err != nil {
		t.Fatalf("Aggregate: %v", err)
	}
	mustEqual(t, "CashBalance", got.CashBalance, 1000)
	mustEqual(t, "VoucherBalance", got.VoucherBalance, 50)
	mustEqual(t, "BankBalance", got.BankBalance, 200)
	mustEqual(t, "NetRemainder", got.NetRemainder, 1200)
	mustEqual(t, "TotalExpenses", got.TotalExpenses, 50)
}

func TestAggregateRiadhInvoice(t *testing.T) {
	in := EngineInput{
		Sheets: []DailySheetRecord{baseSheet()},
		Invoices: []InvoiceRecord{{
			ID:            10,
			Label:         "transporteur",
			Amount:        AmountFromFloat(100),
			PaymentMethod: MethodCash,
			PaidDate:      day(2026, time.March, 10),
			Status:        StatusPaid,
			Payer:         PayerRiadh,
			Origin:        OriginDirectExpense,
		}},
		Range: testRange(),
		Payer: FilterAll,
	}
	got, err := Aggregate(in)
	if err != nil {
		t.Fatalf("Aggregate: %v", err)
	}
	mustEqual(t, "RiadhExpenses", got.RiadhExpenses, 100)
	mustEqual(t, "TotalExpenses", got.TotalExpenses, 150)
	mustEqual(t, "NetRemainder", got.NetRemainder, 1100)
	// The riadh stream never touches the register's cash balance.
	mustEqual(t, "CashBalance", got.CashBalance, 1000)

	in.Payer = FilterRiadh
	got, err = Aggregate(in)
	if err != nil {
		t.Fatalf("Aggregate riadh filter: %v", err)
	}
	mustEqual(t, "CashBalance under riadh filter", got.CashBalance, 0)
	mustEqual(t, "RiadhExpenses under riadh filter", got.RiadhExpenses, 100)
}

func TestAggregateCaisseInvoiceStreams(t *testing.T) {
	invoices := []InvoiceRecord{
		{ID: 1, Amount: AmountFromFloat(80), PaymentMethod: MethodCash, Status: StatusPaid, Payer: PayerCaisse, Origin: OriginDirectExpense},
		{ID: 2, Amount: AmountFromFloat(60), PaymentMethod: MethodCheque, Status: StatusPaid, Payer: PayerCaisse, Origin: OriginDirectExpense},
		{ID: 3, Amount: AmountFromFloat(40), PaymentMethod: MethodCard, Status: StatusPaid, Payer: PayerCaisse, Origin: OriginDirectExpense},
		{ID: 4, Amount: AmountFromFloat(20), PaymentMethod: MethodVoucher, Status: StatusPaid, Payer: PayerCaisse, Origin: OriginDirectExpense},
		// Already inside the sheet's totals: must not be double-counted.
		{ID: 5, Amount: AmountFromFloat(30), PaymentMethod: MethodCash, Status: StatusPaid, Payer: PayerCaisse, Origin: OriginDailySheet},
		// Unpaid invoices are excluded from every committed bucket.
		{ID: 6, Amount: AmountFromFloat(999), PaymentMethod: MethodCash, Status: StatusUnpaid, Payer: PayerCaisse, Origin: OriginDirectExpense},
	}
	in := EngineInput{
		Sheets:   []DailySheetRecord{baseSheet()},
		Invoices: invoices,
		Range:    testRange(),
		Payer:    FilterAll,
	}
	got, err := Aggregate(in)
	if err != nil {
		t.Fatalf("Aggregate: %v", err)
	}
	mustEqual(t, "CashExpenses", got.CashExpenses, 80)
	mustEqual(t, "BankExpenses", got.BankExpenses, 100)
	mustEqual(t, "VoucherExpenses", got.VoucherExpenses, 20)
	mustEqual(t, "CashBalance", got.CashBalance, 920)
	mustEqual(t, "BankBalance", got.BankBalance, 100)
	mustEqual(t, "VoucherBalance", got.VoucherBalance, 30)

	unpaid := UnpaidTotal(invoices, FilterAll)
	if !unpaid.Equal(decimal.NewFromInt(999)) {
		t.Errorf("UnpaidTotal = %s, want 999", unpaid)
	}
}

func TestAggregateBankWithdrawal(t *testing.T) {
	in := EngineInput{
		Sheets: []DailySheetRecord{baseSheet()},
		BankMoves: []BankTransactionRecord{{
			ID:     1,
			Amount: AmountFromFloat(-200),
			Date:   day(2026, time.March, 12),
		}},
		Range: testRange(),
		Payer: FilterAll,
	}
	got, err := Aggregate(in)
	if err != nil {
		t.Fatalf("Aggregate: %v", err)
	}
	// Withdrawal: bank down 200, cash up 200 relative to the base sheet.
	mustEqual(t, "BankBalance", got.BankBalance, 0)
	mustEqual(t, "CashBalance", got.CashBalance, 1200)
}

func TestAggregateSalaryRemainders(t *testing.T) {
	in := EngineInput{
		Sheets: []DailySheetRecord{baseSheet()},
		Remainders: []SalaryRemainderRecord{
			{ID: 1, EmployeeName: "amine", Amount: AmountFromFloat(150), Month: "2026-03"},
			{ID: 2, EmployeeName: "global", Amount: AmountFromFloat(50), Month: "2026-03"},
		},
		Range: testRange(),
		Payer: FilterAll,
	}
	got, err := Aggregate(in)
	if err != nil {
		t.Fatalf("Aggregate: %v", err)
	}
	// Accrued liabilities count as expenses and reduce cash and net
	// before any cash actually moves.
	mustEqual(t, "PendingRemainders", got.PendingRemainders, 200)
	mustEqual(t, "TotalExpenses", got.TotalExpenses, 250)
	mustEqual(t, "NetRemainder", got.NetRemainder, 1000)
	mustEqual(t, "CashBalance", got.CashBalance, 800)
}

func TestAggregateIdempotent(t *testing.T) {
	in := EngineInput{
		Sheets: []DailySheetRecord{baseSheet()},
		Invoices: []InvoiceRecord{{
			ID: 1, Amount: AmountFromFloat(75), PaymentMethod: MethodCard,
			Status: StatusPaid, Payer: PayerRiadh, Origin: OriginDirectExpense,
		}},
		Range: testRange(),
		Payer: FilterAll,
	}
	first, err := Aggregate(in)
	if err != nil {
		t.Fatalf("first call: %v", err)
	}
	second, err := Aggregate(in)
	if err != nil {
		t.Fatalf("second call: %v", err)
	}
	if !first.NetRemainder.Equal(second.NetRemainder) ||
		!first.CashBalance.Equal(second.CashBalance) ||
		!first.BankBalance.Equal(second.BankBalance) ||
		!first.TotalExpenses.Equal(second.TotalExpenses) {
		t.Fatalf("identical inputs produced different totals:\n%+v\n%+v", first, second)
	}
}

// aggregate(all) must equal aggregate(caisse) + aggregate(riadh) for
// every bucket: the payer streams partition contribution without
// overlap.
func TestAggregatePartition(t *testing.T) {
	in := EngineInput{
		Sheets: []DailySheetRecord{baseSheet()},
		Invoices: []InvoiceRecord{
			{ID: 1, Amount: AmountFromFloat(100), PaymentMethod: MethodCash, Status: StatusPaid, Payer: PayerRiadh, Origin: OriginDirectExpense},
			{ID: 2, Amount: AmountFromFloat(60), PaymentMethod: MethodCheque, Status: StatusPaid, Payer: PayerCaisse, Origin: OriginDirectExpense},
		},
		Remainders: []SalaryRemainderRecord{{ID: 1, EmployeeName: "amine", Amount: AmountFromFloat(40)}},
		BankMoves:  []BankTransactionRecord{{ID: 1, Amount: AmountFromFloat(300)}},
		Range:      testRange(),
	}

	all, err := Aggregate(EngineInput{Sheets: in.Sheets, Invoices: in.Invoices, Remainders: in.Remainders, BankMoves: in.BankMoves, Range: in.Range, Payer: FilterAll})
	if err != nil {
		t.Fatalf("all: %v", err)
	}
	caisse, err := Aggregate(EngineInput{Sheets: in.Sheets, Invoices: in.Invoices, Remainders: in.Remainders, BankMoves: in.BankMoves, Range: in.Range, Payer: FilterCaisse})
	if err != nil {
		t.Fatalf("caisse: %v", err)
	}
	riadh, err := Aggregate(EngineInput{Sheets: in.Sheets, Invoices: in.Invoices, Remainders: in.Remainders, BankMoves: in.BankMoves, Range: in.Range, Payer: FilterRiadh})
	if err != nil {
		t.Fatalf("riadh: %v", err)
	}

	checks := []struct {
		name              string
		all, caisse, riad decimal.Decimal
	}{
		{"TotalExpenses", all.TotalExpenses, caisse.TotalExpenses, riadh.TotalExpenses},
		{"NetRemainder", all.NetRemainder, caisse.NetRemainder, riadh.NetRemainder},
		{"CashBalance", all.CashBalance, caisse.CashBalance, riadh.CashBalance},
		{"BankBalance", all.BankBalance, caisse.BankBalance, riadh.BankBalance},
		{"VoucherBalance", all.VoucherBalance, caisse.VoucherBalance, riadh.VoucherBalance},
		{"GrossRevenue", all.GrossRevenue, caisse.GrossRevenue, riadh.GrossRevenue},
		{"RiadhExpenses", all.RiadhExpenses, caisse.RiadhExpenses, riadh.RiadhExpenses},
	}
	for _, c := range checks {
		if !c.all.Equal(c.caisse.Add(c.riad)) {
			t.Errorf("%s: all=%s but caisse+riadh=%s", c.name, c.all, c.caisse.Add(c.riad))
		}
	}
}

// With no daily sheets in range, the fallback over pre-aggregated stats
// must reproduce the same final balances the primary path would have.
func TestAggregateStatsFallback(t *testing.T) {
	invoices := []InvoiceRecord{
		{ID: 1, Amount: AmountFromFloat(80), PaymentMethod: MethodCash, Status: StatusPaid, Payer: PayerCaisse, Origin: OriginDirectExpense},
		{ID: 2, Amount: AmountFromFloat(50), PaymentMethod: MethodCard, Status: StatusPaid, Payer: PayerCaisse, Origin: OriginDirectExpense},
		{ID: 3, Amount: AmountFromFloat(10), PaymentMethod: MethodVoucher, Status: StatusPaid, Payer: PayerCaisse, Origin: OriginDirectExpense},
	}

	primary, err := Aggregate(EngineInput{
		Sheets:   []DailySheetRecord{baseSheet()},
		Invoices: invoices,
		Range:    testRange(),
		Payer:    FilterAll,
	})
	if err != nil {
		t.Fatalf("primary: %v", err)
	}

	// The stats summary already has the expense streams subtracted,
	// exactly what a collaborator's pre-aggregated endpoint reports.
	stats := &PaymentStats{
		GrossRevenue:  AmountFromFloat(1250),
		TotalExpenses: AmountFromFloat(50),
		NetRemainder:  AmountFromFloat(1200),
		TpeTotal:      NewAmount(primary.TpeTotal.Sub(primary.BankExpenses)),
		ChequeTotal:   NewAmount(primary.ChequeTotal),
		CashTotal:     NewAmount(primary.GrossCash.Sub(primary.CashExpenses)),
		VoucherTotal:  NewAmount(primary.GrossVouchers.Sub(primary.VoucherExpenses)),
	}
	fallback, err := Aggregate(EngineInput{
		Invoices: invoices,
		Stats:    stats,
		Range:    testRange(),
		Payer:    FilterAll,
	})
	if err != nil {
		t.Fatalf("fallback: %v", err)
	}

	if !fallback.CashBalance.Equal(primary.CashBalance) {
		t.Errorf("fallback CashBalance = %s, want %s", fallback.CashBalance, primary.CashBalance)
	}
	if !fallback.BankBalance.Equal(primary.BankBalance) {
		t.Errorf("fallback BankBalance = %s, want %s", fallback.BankBalance, primary.BankBalance)
	}
	if !fallback.VoucherBalance.Equal(primary.VoucherBalance) {
		t.Errorf("fallback VoucherBalance = %s, want %s", fallback.VoucherBalance, primary.VoucherBalance)
	}
	if !fallback.NetRemainder.Equal(primary.NetRemainder) {
		t.Errorf("fallback NetRemainder = %s, want %s", fallback.NetRemainder, primary.NetRemainder)
	}
}

func TestAggregateInvalidRange(t *testing.T) {
	cases := []struct {
		name string
		rng  DateRange
	}{
		{"inverted", DateRange{Start: day(2026, time.March, 31), End: day(2026, time.March, 1)}},
		{"zero start", DateRange{End: day(2026, time.March, 1)}},
		{"zero end", DateRange{Start: day(2026, time.March, 1)}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Aggregate(EngineInput{Range: tc.rng, Payer: FilterAll})
			if err != ErrInvalidRange {
				t.Fatalf("err = %v, want ErrInvalidRange", err)
			}
		})
	}
}

func TestAggregateMargin(t *testing.T) {
	got, err := Aggregate(EngineInput{
		Sheets: []DailySheetRecord{baseSheet()},
		Range:  testRange(),
		Payer:  FilterAll,
	})
	if err != nil {
		t.Fatalf("Aggregate: %v", err)
	}
	mustEqual(t, "MarginPercent", got.MarginPercent, 96)

	// No revenue at all: margin must come back 0, never NaN.
	empty, err := Aggregate(EngineInput{Range: testRange(), Payer: FilterAll})
	if err != nil {
		t.Fatalf("Aggregate empty: %v", err)
	}
	if !empty.MarginPercent.IsZero() {
		t.Errorf("MarginPercent on empty range = %s, want 0", empty.MarginPercent)
	}
}
