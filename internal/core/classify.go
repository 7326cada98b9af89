package core

import "strings"

// SourceList names the embedded daily-sheet list an expense or personnel
// item was found in. Classification is positional: membership in a list
// decides the category, the item's content is never inspected.
type SourceList string

const (
	ListSupplier       SourceList = "supplier"
	ListMisc           SourceList = "misc"
	ListAdministrative SourceList = "administrative"
	ListAdvances       SourceList = "advances"
	ListDoublings      SourceList = "doublings"
	ListExtras         SourceList = "extras"
	ListBonuses        SourceList = "bonuses"
	ListSettlements    SourceList = "settlements"
)

var listCategories = map[SourceList]Category{
	ListSupplier:       CategorySupplier,
	ListMisc:           CategoryMisc,
	ListAdministrative: CategoryAdministrative,
	ListAdvances:       CategoryAdvance,
	ListDoublings:      CategoryDoubling,
	ListExtras:         CategoryExtra,
	ListBonuses:        CategoryBonus,
	ListSettlements:    CategoryRemainder,
}

// ClassifyBySource maps a source list to its category. An unknown list
// falls back to CategorySupplier; this is the documented default for
// missing classification, not an error.
func ClassifyBySource(list SourceList) Category {
	if c, ok := listCategories[list]; ok {
		return c
	}
	return CategorySupplier
}

// ClassifyInvoice resolves an invoice's explicit category field, which
// overrides positional classification for invoice-origin entries.
// Accepts the stored French labels in any casing; absent or unknown
// values default to CategorySupplier.
func ClassifyInvoice(raw string) Category {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case string(CategoryMisc):
		return CategoryMisc
	case string(CategoryAdministrative):
		return CategoryAdministrative
	default:
		return CategorySupplier
	}
}
