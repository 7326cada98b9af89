package core

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
)

func TestDecodeListEncodings(t *testing.T) {
	plain := `[{"label":"légumes","amount":45.5}]`
	nested := `"[{\"label\":\"légumes\",\"amount\":45.5}]"`

	for _, tc := range []struct {
		name string
		raw  string
	}{
		{"plain array", plain},
		{"string wrapped array", nested},
	} {
		t.Run(tc.name, func(t *testing.T) {
			items := decodeList[SheetExpenseItem](tc.raw)
			if len(items) != 1 {
				t.Fatalf("got %d items, want 1", len(items))
			}
			if items[0].Label != "légumes" {
				t.Errorf("Label = %q", items[0].Label)
			}
			if !items[0].Amount.Equal(decimal.NewFromFloat(45.5)) {
				t.Errorf("Amount = %s, want 45.5", items[0].Amount)
			}
		})
	}
}

func TestDecodeListDefensive(t *testing.T) {
	cases := []struct {
		name string
		raw  string
	}{
		{"empty", ""},
		{"garbage", "not json at all"},
		{"wrong shape", `{"label":"x"}`},
		{"string wrapping garbage", `"still not an array"`},
		{"truncated", `[{"label":"x"`},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if items := decodeList[SheetExpenseItem](tc.raw); len(items) != 0 {
				t.Fatalf("got %d items, want none", len(items))
			}
		})
	}
}

func TestNormalizeSheets(t *testing.T) {
	sheet := DailySheetRecord{
		ID:   7,
		Date: day(2026, time.March, 5),
		SupplierExpenses: `[
			{"label":"boucherie","amount":80},
			{"label":"poissonnerie","amount":120,"isFromFacturation":true,"invoiceId":42}
		]`,
		MiscExpenses: `[{"label":"gaz","amount":"30,500"}]`,
		Advances:     `[{"employeeName":"amine","amount":50,"timestamp":"2026-03-05T18:00:00Z"}]`,
		Bonuses:      `[{"employeeName":"sana","amount":20}]`,
	}

	entries := NormalizeSheets([]DailySheetRecord{sheet})
	if len(entries) != 5 {
		t.Fatalf("got %d entries, want 5", len(entries))
	}

	byKey := make(map[string]LedgerEntry, len(entries))
	for _, e := range entries {
		byKey[e.DedupeKey] = e
	}

	boucherie, ok := byKey["sheet:7:supplier:0"]
	if !ok {
		t.Fatal("missing plain supplier entry")
	}
	if boucherie.Category != CategorySupplier || boucherie.Origin != OriginDailySheet || boucherie.Payer != PayerCaisse {
		t.Errorf("supplier entry = %+v", boucherie)
	}

	// Facturation-linked items carry the invoice's key so Dedupe can
	// collapse the pair.
	if _, ok := byKey["invoice:42"]; !ok {
		t.Error("facturation item did not take the invoice dedupe key")
	}

	gaz, ok := byKey["sheet:7:misc:0"]
	if !ok {
		t.Fatal("missing misc entry")
	}
	if gaz.Category != CategoryMisc {
		t.Errorf("misc Category = %s", gaz.Category)
	}
	if !gaz.Amount.Equal(decimal.NewFromFloat(30.5)) {
		t.Errorf("misc Amount = %s, want 30.5 (register decimal comma)", gaz.Amount)
	}

	advance := byKey["sheet:7:advances:0"]
	if advance.Category != CategoryAdvance || advance.Label != "amine" {
		t.Errorf("advance entry = %+v", advance)
	}
	if !advance.Date.Equal(time.Date(2026, time.March, 5, 18, 0, 0, 0, time.UTC)) {
		t.Errorf("advance Date = %s, want the item timestamp", advance.Date)
	}

	// No timestamp on the item falls back to the sheet date.
	bonus := byKey["sheet:7:bonuses:0"]
	if !bonus.Date.Equal(sheet.Date) {
		t.Errorf("bonus Date = %s, want sheet date", bonus.Date)
	}
}

func TestNormalizeInvoicesDefaults(t *testing.T) {
	entries := NormalizeInvoices([]InvoiceRecord{
		{ID: 1, Label: "STEG", Amount: AmountFromFloat(200), ReceivedDate: day(2026, time.March, 2), Status: StatusUnpaid},
		{ID: 2, Label: "fromagerie", Amount: AmountFromFloat(90), Category: CategoryMisc, PaidDate: day(2026, time.March, 9), Status: StatusPaid, Payer: PayerRiadh},
	})
	if len(entries) != 2 {
		t.Fatalf("got %d entries, want 2", len(entries))
	}

	steg := entries[0]
	if steg.Category != CategorySupplier {
		t.Errorf("missing category defaulted to %s, want %s", steg.Category, CategorySupplier)
	}
	if steg.Origin != OriginDirectExpense {
		t.Errorf("missing origin defaulted to %s, want %s", steg.Origin, OriginDirectExpense)
	}
	if !steg.Date.Equal(day(2026, time.March, 2)) {
		t.Errorf("unpaid invoice Date = %s, want received date", steg.Date)
	}
	if steg.DedupeKey != "invoice:1" {
		t.Errorf("DedupeKey = %q", steg.DedupeKey)
	}

	from := entries[1]
	if from.Category != CategoryMisc || from.Payer != PayerRiadh {
		t.Errorf("explicit fields lost: %+v", from)
	}
	if !from.Date.Equal(day(2026, time.March, 9)) {
		t.Errorf("paid invoice Date = %s, want paid date", from.Date)
	}
}

func TestNormalizeDedupe(t *testing.T) {
	in := EngineInput{
		Invoices: []InvoiceRecord{{
			ID:            42,
			Label:         "poissonnerie",
			Amount:        AmountFromFloat(120),
			PaymentMethod: MethodCheque,
			PaidDate:      day(2026, time.March, 5),
			Status:        StatusPaid,
			Payer:         PayerCaisse,
			Origin:        OriginDailySheet,
		}},
		Sheets: []DailySheetRecord{{
			ID:               7,
			Date:             day(2026, time.March, 5),
			SupplierExpenses: `[{"label":"poissonnerie","amount":120,"isFromFacturation":true,"invoiceId":42}]`,
		}},
	}

	entries := Normalize(in)
	if len(entries) != 1 {
		t.Fatalf("got %d entries, want the pair collapsed to 1", len(entries))
	}
	// The invoice wins: it carries the settlement method the embedded
	// sheet copy does not know.
	if entries[0].Method != MethodCheque {
		t.Errorf("surviving entry Method = %s, want %s", entries[0].Method, MethodCheque)
	}
	if entries[0].Origin != OriginDailySheet {
		t.Errorf("surviving entry Origin = %s", entries[0].Origin)
	}
}

func TestNormalizePayerFilter(t *testing.T) {
	in := EngineInput{
		Invoices: []InvoiceRecord{
			{ID: 1, Label: "STEG", Amount: AmountFromFloat(100), Status: StatusPaid, Payer: PayerRiadh, Origin: OriginDirectExpense},
			{ID: 2, Label: "légumes", Amount: AmountFromFloat(60), Status: StatusPaid, Payer: PayerCaisse, Origin: OriginDirectExpense},
		},
		Remainders: []SalaryRemainderRecord{{ID: 1, EmployeeName: "sana", Amount: AmountFromFloat(80)}},
	}

	in.Payer = FilterCaisse
	for _, e := range Normalize(in) {
		if e.Payer == PayerRiadh {
			t.Errorf("caisse view leaked a riadh entry: %+v", e)
		}
	}

	// Sheet and remainder streams are caisse-paid, so the riadh view
	// reduces to the riadh invoices alone.
	in.Payer = FilterRiadh
	entries := Normalize(in)
	if len(entries) != 1 || entries[0].Label != "STEG" {
		t.Fatalf("riadh view = %+v, want only the riadh invoice", entries)
	}

	in.Payer = FilterAll
	if got := len(Normalize(in)); got != 3 {
		t.Errorf("all view has %d entries, want 3", got)
	}
}

func TestDedupeKeepsKeylessEntries(t *testing.T) {
	entries := Dedupe([]LedgerEntry{
		{Label: "a", DedupeKey: "k"},
		{Label: "b", DedupeKey: "k"},
		{Label: "c"},
		{Label: "d"},
	})
	if len(entries) != 3 {
		t.Fatalf("got %d entries, want 3", len(entries))
	}
	if entries[0].Label != "a" {
		t.Errorf("first keyed entry lost, got %q", entries[0].Label)
	}
}
