package core

import (
	"encoding/json"
	"fmt"
)

// decodeList unmarshals an embedded daily-sheet list. The register
// software stored these either as a plain JSON array or as a JSON string
// containing an array, so both encodings are accepted. Any decode
// failure yields an empty list; embedded lists are never allowed to
// break an aggregation.
func decodeList[T any](raw string) []T {
	if raw == "" {
		return nil
	}
	var items []T
	if err := json.Unmarshal([]byte(raw), &items); err == nil {
		return items
	}
	var nested string
	if err := json.Unmarshal([]byte(raw), &nested); err == nil {
		if err := json.Unmarshal([]byte(nested), &items); err == nil {
			return items
		}
	}
	return nil
}

// PersonnelItems decodes one of the sheet's five personnel lists.
func (s DailySheetRecord) PersonnelItems(list SourceList) []PersonnelItem {
	switch list {
	case ListAdvances:
		return decodeList[PersonnelItem](s.Advances)
	case ListDoublings:
		return decodeList[PersonnelItem](s.Doublings)
	case ListExtras:
		return decodeList[PersonnelItem](s.Extras)
	case ListBonuses:
		return decodeList[PersonnelItem](s.Bonuses)
	case ListSettlements:
		return decodeList[PersonnelItem](s.Settlements)
	default:
		return nil
	}
}

// ExpenseItems decodes one of the sheet's three embedded expense lists.
func (s DailySheetRecord) ExpenseItems(list SourceList) []SheetExpenseItem {
	switch list {
	case ListSupplier:
		return decodeList[SheetExpenseItem](s.SupplierExpenses)
	case ListMisc:
		return decodeList[SheetExpenseItem](s.MiscExpenses)
	case ListAdministrative:
		return decodeList[SheetExpenseItem](s.AdminExpenses)
	default:
		return nil
	}
}

var personnelLists = []SourceList{ListAdvances, ListDoublings, ListExtras, ListBonuses, ListSettlements}
var expenseLists = []SourceList{ListSupplier, ListMisc, ListAdministrative}

// NormalizeSheets expands daily sheets into ledger entries: one entry
// per embedded expense item and one per personnel item. Embedded items
// that are also captured as an invoice carry the invoice's dedupe key so
// Dedupe can keep exactly one of the pair.
func NormalizeSheets(sheets []DailySheetRecord) []LedgerEntry {
	var entries []LedgerEntry
	for _, s := range sheets {
		for _, list := range expenseLists {
			for i, item := range s.ExpenseItems(list) {
				e := LedgerEntry{
					Amount:   item.Amount.Decimal,
					Date:     s.Date,
					Method:   MethodCash,
					Category: ClassifyBySource(list),
					Payer:    PayerCaisse,
					Origin:   OriginDailySheet,
					Status:   StatusPaid,
					Label:    item.Label,
				}
				if item.IsFromFacturation && item.InvoiceID != 0 {
					e.DedupeKey = invoiceDedupeKey(item.InvoiceID)
				} else {
					e.DedupeKey = fmt.Sprintf("sheet:%d:%s:%d", s.ID, list, i)
				}
				entries = append(entries, e)
			}
		}
		for _, list := range personnelLists {
			for i, item := range s.PersonnelItems(list) {
				date := item.At
				if date.IsZero() {
					date = s.Date
				}
				entries = append(entries, LedgerEntry{
					Amount:    item.Amount.Decimal,
					Date:      date,
					Method:    MethodCash,
					Category:  ClassifyBySource(list),
					Payer:     PayerCaisse,
					Origin:    OriginDailySheet,
					Status:    StatusPaid,
					Label:     item.EmployeeName,
					DedupeKey: fmt.Sprintf("sheet:%d:%s:%d", s.ID, list, i),
				})
			}
		}
	}
	return entries
}

// NormalizeInvoices converts invoices to ledger entries. The invoice's
// explicit category overrides positional classification; a missing
// category defaults to supplier.
func NormalizeInvoices(invoices []InvoiceRecord) []LedgerEntry {
	entries := make([]LedgerEntry, 0, len(invoices))
	for _, inv := range invoices {
		category := inv.Category
		if category == "" {
			category = CategorySupplier
		}
		origin := inv.Origin
		if origin == "" {
			origin = OriginDirectExpense
		}
		date := inv.PaidDate
		if date.IsZero() {
			date = inv.ReceivedDate
		}
		entries = append(entries, LedgerEntry{
			Amount:    inv.Amount.Decimal,
			Date:      date,
			Method:    inv.PaymentMethod,
			Category:  category,
			Payer:     inv.Payer,
			Origin:    origin,
			Status:    inv.Status,
			Label:     inv.Label,
			DedupeKey: invoiceDedupeKey(inv.ID),
		})
	}
	return entries
}

// NormalizeRemainders converts salary remainders to ledger entries.
func NormalizeRemainders(remainders []SalaryRemainderRecord) []LedgerEntry {
	entries := make([]LedgerEntry, 0, len(remainders))
	for _, r := range remainders {
		entries = append(entries, LedgerEntry{
			Amount:    r.Amount.Decimal,
			Date:      r.UpdatedAt,
			Method:    MethodCash,
			Category:  CategoryRemainder,
			Payer:     PayerCaisse,
			Origin:    OriginDirectExpense,
			Status:    StatusPaid,
			Label:     r.EmployeeName,
			DedupeKey: fmt.Sprintf("remainder:%d", r.ID),
		})
	}
	return entries
}

// Dedupe keeps the first entry for each dedupe key. Invoice entries must
// be passed before sheet entries so the invoice stays the source of
// truth for facts captured in both places.
func Dedupe(entries []LedgerEntry) []LedgerEntry {
	seen := make(map[string]struct{}, len(entries))
	out := entries[:0:0]
	for _, e := range entries {
		if e.DedupeKey != "" {
			if _, dup := seen[e.DedupeKey]; dup {
				continue
			}
			seen[e.DedupeKey] = struct{}{}
		}
		out = append(out, e)
	}
	return out
}

// Normalize produces the deduplicated ledger-entry view of a snapshot,
// used by the drill-down grouper. The snapshot's payer filter applies
// the same partition as the aggregation: caisse hides riadh invoices,
// riadh keeps only them (sheet and remainder entries are caisse-paid).
// The aggregation formulas read the raw records directly because they
// depend on per-sheet sub-totals that the flattened entries do not
// carry.
func Normalize(in EngineInput) []LedgerEntry {
	entries := NormalizeInvoices(in.Invoices)
	entries = append(entries, NormalizeSheets(in.Sheets)...)
	entries = append(entries, NormalizeRemainders(in.Remainders)...)
	return FilterByPayer(Dedupe(entries), in.Payer)
}

// FilterByPayer keeps the entries visible under a payer filter. An
// empty filter means all.
func FilterByPayer(entries []LedgerEntry, filter PayerFilter) []LedgerEntry {
	if filter == "" || filter == FilterAll {
		return entries
	}
	out := entries[:0:0]
	for _, e := range entries {
		switch {
		case filter == FilterCaisse && e.Payer == PayerRiadh:
		case filter == FilterRiadh && e.Payer != PayerRiadh:
		default:
			out = append(out, e)
		}
	}
	return out
}

func invoiceDedupeKey(id int64) string {
	return fmt.Sprintf("invoice:%d", id)
}
