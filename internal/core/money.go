// Package core implements the reconciliation and aggregation engine:
// amount parsing, record normalization, category classification, bucket
// aggregation, preview overlays and drill-down grouping. Everything in
// this package is a pure function over immutable inputs.
package core

import (
	"bytes"
	"encoding/json"
	"strings"
	"unicode"

	"github.com/shopspring/decimal"
)

// ParseAmount converts a loosely formatted amount string to a decimal.
//
// This is the single safe-parse boundary the rest of the engine relies on:
// it is total and never errors. All whitespace (including thousands
// separators typed as spaces) is stripped, a decimal comma becomes a dot,
// and anything that still fails to parse yields zero.
//
// Examples:
//   ParseAmount("12,500")    -> 12.5
//   ParseAmount("1 200,500") -> 1200.5
//   ParseAmount("abc")       -> 0
//   ParseAmount("")          -> 0
func ParseAmount(s string) decimal.Decimal {
	s = strings.Map(func(r rune) rune {
		if unicode.IsSpace(r) {
			return -1
		}
		return r
	}, s)
	if s == "" {
		return decimal.Zero
	}
	s = strings.ReplaceAll(s, ",", ".")
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero
	}
	return d
}

// ParseAmountValue applies the safe-parse contract to a dynamically typed
// value as produced by JSON decoding or the Sheets API (nil, float64,
// int, json.Number or string).
func ParseAmountValue(v any) decimal.Decimal {
	switch x := v.(type) {
	case nil:
		return decimal.Zero
	case float64:
		return decimal.NewFromFloat(x)
	case int:
		return decimal.NewFromInt(int64(x))
	case int64:
		return decimal.NewFromInt(x)
	case json.Number:
		return ParseAmount(x.String())
	case string:
		return ParseAmount(x)
	default:
		return decimal.Zero
	}
}

// Amount is a decimal that decodes defensively from JSON: numbers,
// quoted locale strings ("1 200,50") and null are all accepted, and
// malformed input decodes as zero instead of failing the document.
type Amount struct {
	decimal.Decimal
}

func NewAmount(d decimal.Decimal) Amount { return Amount{Decimal: d} }

// AmountFromFloat is a convenience constructor, mainly for tests.
func AmountFromFloat(f float64) Amount { return Amount{Decimal: decimal.NewFromFloat(f)} }

func (a *Amount) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		a.Decimal = decimal.Zero
		return nil
	}
	s := string(data)
	if len(s) >= 2 && s[0] == '"' && s[len(s)-1] == '"' {
		s = s[1 : len(s)-1]
	}
	a.Decimal = ParseAmount(s)
	return nil
}

func (a Amount) MarshalJSON() ([]byte, error) {
	return []byte(a.Decimal.String()), nil
}

// MarginPercent returns net/gross as a percentage with a guarded
// denominator: a zero gross yields 0 rather than a division error.
func MarginPercent(net, gross decimal.Decimal) decimal.Decimal {
	if gross.IsZero() {
		return decimal.Zero
	}
	return net.Div(gross).Mul(decimal.NewFromInt(100))
}
