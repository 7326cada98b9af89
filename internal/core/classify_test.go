package core

import "testing"

func TestClassifyBySource(t *testing.T) {
	cases := []struct {
		list SourceList
		want Category
	}{
		{ListSupplier, CategorySupplier},
		{ListMisc, CategoryMisc},
		{ListAdministrative, CategoryAdministrative},
		{ListAdvances, CategoryAdvance},
		{ListDoublings, CategoryDoubling},
		{ListExtras, CategoryExtra},
		{ListBonuses, CategoryBonus},
		{ListSettlements, CategoryRemainder},
		{SourceList("mystery"), CategorySupplier},
		{SourceList(""), CategorySupplier},
	}
	for _, tc := range cases {
		if got := ClassifyBySource(tc.list); got != tc.want {
			t.Errorf("ClassifyBySource(%q) = %s, want %s", tc.list, got, tc.want)
		}
	}
}

func TestClassifyInvoice(t *testing.T) {
	cases := []struct {
		raw  string
		want Category
	}{
		{"divers", CategoryMisc},
		{"  Divers ", CategoryMisc},
		{"administratif", CategoryAdministrative},
		{"ADMINISTRATIF", CategoryAdministrative},
		{"fournisseur", CategorySupplier},
		{"", CategorySupplier},
		{"n'importe quoi", CategorySupplier},
	}
	for _, tc := range cases {
		if got := ClassifyInvoice(tc.raw); got != tc.want {
			t.Errorf("ClassifyInvoice(%q) = %s, want %s", tc.raw, got, tc.want)
		}
	}
}
