package core

import (
	"sort"
	"time"

	"github.com/shopspring/decimal"
)

// GroupItem is one row inside a drill-down group.
type GroupItem struct {
	Label  string          `json:"label"`
	Amount decimal.Decimal `json:"amount"`
	Date   time.Time       `json:"date"`
}

// Group is a named, ranked drill-down bucket.
type Group struct {
	Name  string          `json:"name"`
	Total decimal.Decimal `json:"total"`
	Items []GroupItem     `json:"items"`
}

// GroupBy groups items by a name key, sums their amounts, and returns
// ranked groups: items within a group sorted by date descending (ties
// keep insertion order), groups sorted by total descending. Items with
// an empty key are dropped, and so are groups whose total is zero or
// negative. The key is case-sensitive.
func GroupBy[T any](items []T, name func(T) string, amount func(T) decimal.Decimal, date func(T) time.Time) []Group {
	index := make(map[string]int)
	var groups []Group
	for _, it := range items {
		key := name(it)
		if key == "" {
			continue
		}
		i, ok := index[key]
		if !ok {
			i = len(groups)
			index[key] = i
			groups = append(groups, Group{Name: key})
		}
		groups[i].Total = groups[i].Total.Add(amount(it))
		groups[i].Items = append(groups[i].Items, GroupItem{
			Label:  key,
			Amount: amount(it),
			Date:   date(it),
		})
	}

	kept := groups[:0]
	for _, g := range groups {
		if g.Total.Sign() <= 0 {
			continue
		}
		sort.SliceStable(g.Items, func(a, b int) bool {
			return g.Items[a].Date.After(g.Items[b].Date)
		})
		kept = append(kept, g)
	}
	sort.SliceStable(kept, func(a, b int) bool {
		return kept[a].Total.GreaterThan(kept[b].Total)
	})
	return kept
}

// GroupEntries ranks ledger entries by their label (supplier name,
// employee name, expense description).
func GroupEntries(entries []LedgerEntry) []Group {
	return GroupBy(entries,
		func(e LedgerEntry) string { return e.Label },
		func(e LedgerEntry) decimal.Decimal { return e.Amount },
		func(e LedgerEntry) time.Time { return e.Date },
	)
}

// CategoryChart merges every expense stream of the snapshot into ranked
// per-category groups for the summary chart: the five personnel
// sub-streams, the embedded sheet expenses, salary remainders, and paid
// riadh invoices (which bypass the sheets entirely). The snapshot's
// payer filter partitions the streams the same way Aggregate does.
func CategoryChart(in EngineInput) []Group {
	entries := Normalize(in)
	var paid []LedgerEntry
	for _, e := range entries {
		if e.Status == StatusPaid {
			paid = append(paid, e)
		}
	}
	return GroupBy(paid,
		func(e LedgerEntry) string { return string(e.Category) },
		func(e LedgerEntry) decimal.Decimal { return e.Amount },
		func(e LedgerEntry) time.Time { return e.Date },
	)
}

// RemainderRow is one line of the salary-remainder view. Unlike the
// ranked groups, this view keeps zero rows so every rostered employee
// appears even before anything accrues.
type RemainderRow struct {
	EmployeeName string          `json:"employeeName"`
	Department   string          `json:"department"`
	Total        decimal.Decimal `json:"total"`
}

// RemainderRows merges accrued remainders with the employee roster.
// Employees with no remainder yet get a zero row; "global" remainders
// and ex-employees not on the roster still get their own rows. Rows are
// sorted by total descending, then by name for stable zero-row order.
func RemainderRows(remainders []SalaryRemainderRecord, roster []Employee) []RemainderRow {
	totals := make(map[string]decimal.Decimal)
	departments := make(map[string]string)
	var order []string

	for _, emp := range roster {
		if _, ok := totals[emp.Name]; ok {
			continue
		}
		totals[emp.Name] = decimal.Zero
		departments[emp.Name] = emp.Department
		order = append(order, emp.Name)
	}
	for _, r := range remainders {
		name := r.EmployeeName
		if name == "" {
			name = "global"
		}
		if _, ok := totals[name]; !ok {
			totals[name] = decimal.Zero
			order = append(order, name)
		}
		totals[name] = totals[name].Add(r.Amount.Decimal)
	}

	rows := make([]RemainderRow, 0, len(order))
	for _, name := range order {
		rows = append(rows, RemainderRow{
			EmployeeName: name,
			Department:   departments[name],
			Total:        totals[name],
		})
	}
	sort.SliceStable(rows, func(a, b int) bool {
		if !rows[a].Total.Equal(rows[b].Total) {
			return rows[a].Total.GreaterThan(rows[b].Total)
		}
		return rows[a].EmployeeName < rows[b].EmployeeName
	})
	return rows
}
