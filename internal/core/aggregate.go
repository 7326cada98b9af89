package core

import "github.com/shopspring/decimal"

// Aggregate folds a snapshot into committed bucket totals for the
// input's range and payer filter. It is a pure function: inputs are
// never mutated and identical inputs always produce identical totals.
// A pending edit on the input is ignored here; see Preview.
//
// The payer filter partitions contribution. "caisse" keeps the
// daily-sheet stream and caisse-paid invoices; "riadh" keeps only
// riadh-paid invoices; "all" sums both without overlap, so for every
// bucket aggregate(all) equals aggregate(caisse) plus aggregate(riadh).
//
// The only error returned is ErrInvalidRange for an inverted or empty
// range; bad data never errors, it parses to zero upstream.
func Aggregate(in EngineInput) (Totals, error) {
	if err := in.Range.Validate(); err != nil {
		return Totals{}, err
	}
	filter := in.Payer
	if filter == "" {
		filter = FilterAll
	}

	var t Totals

	// Daily-sheet stream: zeroed entirely under the riadh filter.
	if filter != FilterRiadh {
		for _, s := range in.Sheets {
			t.GrossRevenue = t.GrossRevenue.Add(s.GrossRevenue.Decimal)
			t.GrossCash = t.GrossCash.Add(s.CashTotal.Decimal)
			t.GrossVouchers = t.GrossVouchers.Add(s.VoucherTotal.Decimal)
			t.TpeTotal = t.TpeTotal.Add(s.CardTotal.Decimal).Add(s.Card2Total.Decimal)
			t.ChequeTotal = t.ChequeTotal.Add(s.ChequeTotal.Decimal)
			t.DailySheetExpenses = t.DailySheetExpenses.Add(s.TotalExpenses.Decimal)
			t.NetRevenueBase = t.NetRevenueBase.Add(s.NetRemainder.Decimal)
		}
	}

	// Invoice streams. Unpaid invoices never count. Riadh-paid invoices
	// feed only the riadh bucket; caisse-paid invoices feed the
	// method-keyed expense streams that the balances subtract.
	for _, inv := range in.Invoices {
		if inv.Status != StatusPaid {
			continue
		}
		amount := inv.Amount.Decimal
		if inv.Payer == PayerRiadh {
			if filter != FilterCaisse {
				t.RiadhExpenses = t.RiadhExpenses.Add(amount)
			}
			continue
		}
		if filter == FilterRiadh {
			continue
		}
		switch inv.PaymentMethod.Bucket() {
		case BucketBank:
			t.BankExpenses = t.BankExpenses.Add(amount)
		case BucketCash:
			if inv.Origin != OriginDailySheet {
				t.CashExpenses = t.CashExpenses.Add(amount)
			}
		case BucketVoucher:
			if inv.Origin != OriginDailySheet {
				t.VoucherExpenses = t.VoucherExpenses.Add(amount)
			}
		}
	}

	if filter != FilterRiadh {
		for _, r := range in.Remainders {
			t.PendingRemainders = t.PendingRemainders.Add(r.Amount.Decimal)
		}
		for _, b := range in.BankMoves {
			t.BankDepositsNet = t.BankDepositsNet.Add(b.Amount.Decimal)
		}
	}

	// Fallback: with no daily sheets in range, the gross buckets come
	// from the pre-aggregated stats with the matching expense stream
	// added back, so subtracting that stream below reproduces the same
	// final balances as the primary path.
	if len(in.Sheets) == 0 && in.Stats != nil && filter != FilterRiadh {
		t.GrossRevenue = in.Stats.GrossRevenue.Decimal
		t.DailySheetExpenses = in.Stats.TotalExpenses.Decimal
		t.NetRevenueBase = in.Stats.NetRemainder.Decimal
		t.GrossCash = in.Stats.CashTotal.Decimal.Add(t.CashExpenses)
		t.GrossVouchers = in.Stats.VoucherTotal.Decimal.Add(t.VoucherExpenses)
		t.TpeTotal = in.Stats.TpeTotal.Decimal.Add(t.BankExpenses)
		t.ChequeTotal = in.Stats.ChequeTotal.Decimal
	}

	t.TotalExpenses = t.DailySheetExpenses.Add(t.RiadhExpenses).Add(t.PendingRemainders)
	t.NetRemainder = t.NetRevenueBase.Sub(t.RiadhExpenses).Sub(t.PendingRemainders)
	t.CashBalance = t.GrossCash.Sub(t.PendingRemainders).Sub(t.CashExpenses).Sub(t.BankDepositsNet)
	t.VoucherBalance = t.GrossVouchers.Sub(t.VoucherExpenses)
	t.BankBalance = t.TpeTotal.Add(t.BankDepositsNet).Add(t.ChequeTotal).Sub(t.BankExpenses)
	t.MarginPercent = MarginPercent(t.NetRemainder, t.GrossRevenue)

	return t, nil
}

// Preview computes committed totals and then applies the snapshot's
// pending edit, if any, as a non-mutating overlay.
func Preview(in EngineInput) (Totals, error) {
	t, err := Aggregate(in)
	if err != nil {
		return Totals{}, err
	}
	if in.Pending != nil {
		t = ApplyPending(t, *in.Pending)
	}
	return t, nil
}

// UnpaidTotal sums the invoices excluded from committed totals by their
// status, respecting the payer filter. Shown alongside the balances so
// outstanding liabilities stay visible.
func UnpaidTotal(invoices []InvoiceRecord, filter PayerFilter) decimal.Decimal {
	total := decimal.Zero
	for _, inv := range invoices {
		if inv.Status != StatusUnpaid {
			continue
		}
		switch {
		case inv.Payer == PayerRiadh && filter == FilterCaisse:
		case inv.Payer != PayerRiadh && filter == FilterRiadh:
		default:
			total = total.Add(inv.Amount.Decimal)
		}
	}
	return total
}
