package google

import (
	"fmt"
	"strings"
	"time"

	"caisse/internal/core"
)

// Daily-sheet tab header labels. The register export is hand-maintained,
// so accented and plain spellings are both accepted.
var dailyColumns = map[string][]string{
	"date":        {"Date"},
	"gross":       {"Recette", "Recette Brute"},
	"net":         {"Reste", "Recette Nette"},
	"card":        {"TPE", "Carte"},
	"card2":       {"TPE2", "Carte 2"},
	"cash":        {"Espèces", "Especes"},
	"cheque":      {"Chèques", "Cheques", "Chèque", "Cheque"},
	"voucher":     {"Tickets", "Ticket Resto"},
	"expenses":    {"Dépenses", "Depenses"},
	"suppliers":   {"Fournisseurs", "Fournisseur"},
	"misc":        {"Divers"},
	"admin":       {"Administratif"},
	"advances":    {"Avances", "Avance"},
	"doublings":   {"Doublages", "Doublage"},
	"extras":      {"Extras", "Extra"},
	"bonuses":     {"Primes", "Prime"},
	"settlements": {"Restes", "Reste Salaire", "Restes Salaires"},
}

var rowDateLayouts = []string{"2006-01-02", "02/01/2006", "2/1/2006", "02-01-2006"}

// parseDailyRows converts a values matrix (as returned by the Sheets API)
// into daily-sheet records for the given range. The first row must be a
// header row naming the columns. Returns the parsed records and the
// number of skipped data rows.
func parseDailyRows(values [][]interface{}, rng core.DateRange) ([]core.DailySheetRecord, int) {
	if len(values) < 2 {
		return nil, 0
	}
	headers := toStrings(values[0])
	col := func(key string) int { return indexOfAny(headers, dailyColumns[key]) }

	dateCol := col("date")
	if dateCol == -1 {
		return nil, len(values) - 1
	}

	var sheets []core.DailySheetRecord
	skipped := 0
	for i := 1; i < len(values); i++ {
		row := values[i]
		date, ok := parseRowDate(safeGet(row, dateCol))
		if !ok {
			skipped++
			continue
		}
		if !rng.Contains(date) {
			continue
		}

		cell := func(key string) interface{} {
			if c := col(key); c != -1 {
				return safeGet(row, c)
			}
			return nil
		}
		text := func(key string) string {
			return strings.TrimSpace(fmt.Sprint(orEmpty(cell(key))))
		}

		sheets = append(sheets, core.DailySheetRecord{
			ID:               int64(i),
			Date:             date,
			GrossRevenue:     core.NewAmount(core.ParseAmountValue(cell("gross"))),
			NetRemainder:     core.NewAmount(core.ParseAmountValue(cell("net"))),
			CardTotal:        core.NewAmount(core.ParseAmountValue(cell("card"))),
			Card2Total:       core.NewAmount(core.ParseAmountValue(cell("card2"))),
			CashTotal:        core.NewAmount(core.ParseAmountValue(cell("cash"))),
			ChequeTotal:      core.NewAmount(core.ParseAmountValue(cell("cheque"))),
			VoucherTotal:     core.NewAmount(core.ParseAmountValue(cell("voucher"))),
			TotalExpenses:    core.NewAmount(core.ParseAmountValue(cell("expenses"))),
			SupplierExpenses: text("suppliers"),
			MiscExpenses:     text("misc"),
			AdminExpenses:    text("admin"),
			Advances:         text("advances"),
			Doublings:        text("doublings"),
			Extras:           text("extras"),
			Bonuses:          text("bonuses"),
			Settlements:      text("settlements"),
		})
	}
	return sheets, skipped
}

var statsColumns = map[string][]string{
	"month":    {"Mois", "Month"},
	"gross":    {"Recette", "Recette Brute"},
	"expenses": {"Dépenses", "Depenses"},
	"net":      {"Reste", "Recette Nette"},
	"tpe":      {"TPE", "Carte"},
	"cheque":   {"Chèques", "Cheques"},
	"cash":     {"Espèces", "Especes"},
	"voucher":  {"Tickets", "Ticket Resto"},
	"riadh":    {"Riadh"},
	"unpaid":   {"Impayés", "Impayes"},
}

// parseStatsRows finds the summary row for a YYYY-MM month. Returns nil
// when the tab has no row for it.
func parseStatsRows(values [][]interface{}, month string) *core.PaymentStats {
	if len(values) < 2 {
		return nil
	}
	headers := toStrings(values[0])
	col := func(key string) int { return indexOfAny(headers, statsColumns[key]) }
	monthCol := col("month")
	if monthCol == -1 {
		return nil
	}

	for i := 1; i < len(values); i++ {
		row := values[i]
		if strings.TrimSpace(fmt.Sprint(orEmpty(safeGet(row, monthCol)))) != month {
			continue
		}
		cell := func(key string) interface{} {
			if c := col(key); c != -1 {
				return safeGet(row, c)
			}
			return nil
		}
		return &core.PaymentStats{
			GrossRevenue:  core.NewAmount(core.ParseAmountValue(cell("gross"))),
			TotalExpenses: core.NewAmount(core.ParseAmountValue(cell("expenses"))),
			NetRemainder:  core.NewAmount(core.ParseAmountValue(cell("net"))),
			TpeTotal:      core.NewAmount(core.ParseAmountValue(cell("tpe"))),
			ChequeTotal:   core.NewAmount(core.ParseAmountValue(cell("cheque"))),
			CashTotal:     core.NewAmount(core.ParseAmountValue(cell("cash"))),
			VoucherTotal:  core.NewAmount(core.ParseAmountValue(cell("voucher"))),
			RiadhExpenses: core.NewAmount(core.ParseAmountValue(cell("riadh"))),
			UnpaidTotal:   core.NewAmount(core.ParseAmountValue(cell("unpaid"))),
		}
	}
	return nil
}

func parseRowDate(v interface{}) (time.Time, bool) {
	s := strings.TrimSpace(fmt.Sprint(orEmpty(v)))
	if s == "" {
		return time.Time{}, false
	}
	for _, layout := range rowDateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

func toStrings(in []interface{}) []string {
	out := make([]string, len(in))
	for i, v := range in {
		out[i] = strings.TrimSpace(fmt.Sprint(v))
	}
	return out
}

func indexOfAny(headers []string, names []string) int {
	for i, h := range headers {
		for _, n := range names {
			if strings.EqualFold(h, n) {
				return i
			}
		}
	}
	return -1
}

func safeGet(row []interface{}, i int) interface{} {
	if i < 0 || i >= len(row) {
		return nil
	}
	return row[i]
}

func orEmpty(v interface{}) interface{} {
	if v == nil {
		return ""
	}
	return v
}
