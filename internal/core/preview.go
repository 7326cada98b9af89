package core

// ApplyPending overlays an uncommitted edit on committed totals and
// returns the adjusted copy. The receiver-by-value contract makes the
// overlay trivially reversible: dropping the edit and recomputing from
// the unchanged snapshot reproduces the committed totals exactly.
//
// Pending expenses and pending payments share one rule: the amount joins
// total expenses, leaves the net remainder, and the deduction routes
// into exactly one balance through the same method-to-bucket table the
// committed formulas use. A payment is keyed off the settlement method
// currently selected in the form, which the caller passes as Method.
//
// An edit whose method or direction is outside the known enums adjusts
// nothing: the committed totals come back untouched. That state is a
// defect to fix upstream, not something to guess around.
func ApplyPending(t Totals, edit PendingEdit) Totals {
	amount := edit.Amount.Decimal

	switch edit.Kind {
	case PendingExpense, PendingPayment:
		bucket := edit.Method.Bucket()
		if bucket == BucketNone {
			return t
		}
		t.TotalExpenses = t.TotalExpenses.Add(amount)
		t.NetRemainder = t.NetRemainder.Sub(amount)
		switch bucket {
		case BucketCash:
			t.CashBalance = t.CashBalance.Sub(amount)
			t.CashExpenses = t.CashExpenses.Add(amount)
		case BucketBank:
			t.BankBalance = t.BankBalance.Sub(amount)
			t.BankExpenses = t.BankExpenses.Add(amount)
		case BucketVoucher:
			t.VoucherBalance = t.VoucherBalance.Sub(amount)
			t.VoucherExpenses = t.VoucherExpenses.Add(amount)
		}
		t.MarginPercent = MarginPercent(t.NetRemainder, t.GrossRevenue)

	case PendingBankMove:
		switch edit.Direction {
		case MoveDeposit:
			t.CashBalance = t.CashBalance.Sub(amount)
			t.BankBalance = t.BankBalance.Add(amount)
			t.BankDepositsNet = t.BankDepositsNet.Add(amount)
		case MoveWithdrawal:
			t.CashBalance = t.CashBalance.Add(amount)
			t.BankBalance = t.BankBalance.Sub(amount)
			t.BankDepositsNet = t.BankDepositsNet.Sub(amount)
		}
	}

	return t
}
