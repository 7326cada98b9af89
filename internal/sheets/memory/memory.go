package memory

import (
	"context"
	"fmt"
	"sync"

	"caisse/internal/core"
)

// Store is an in-memory sheet source and journal, used in development
// and in tests where no spreadsheet is reachable.
type Store struct {
	mu      sync.Mutex
	sheets  []core.DailySheetRecord
	stats   map[string]core.PaymentStats
	journal []core.InvoiceRecord
}

func New() *Store {
	return &Store{stats: make(map[string]core.PaymentStats)}
}

// SeedDailySheets loads daily sheets into the store.
func (s *Store) SeedDailySheets(sheets ...core.DailySheetRecord) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sheets = append(s.sheets, sheets...)
}

// SeedPaymentStats loads a monthly summary into the store.
func (s *Store) SeedPaymentStats(month string, stats core.PaymentStats) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stats[month] = stats
}

// FetchDailySheets returns the seeded sheets inside the range.
func (s *Store) FetchDailySheets(_ context.Context, rng core.DateRange) ([]core.DailySheetRecord, error) {
	if err := rng.Validate(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []core.DailySheetRecord
	for _, sheet := range s.sheets {
		if rng.Contains(sheet.Date) {
			out = append(out, sheet)
		}
	}
	return out, nil
}

// FetchPaymentStats returns the seeded summary for the month, or nil.
func (s *Store) FetchPaymentStats(_ context.Context, month string) (*core.PaymentStats, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if stats, ok := s.stats[month]; ok {
		out := stats
		return &out, nil
	}
	return nil, nil
}

// AppendInvoice stores the invoice and returns a synthetic row reference.
func (s *Store) AppendInvoice(_ context.Context, inv core.InvoiceRecord) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.journal = append(s.journal, inv)
	return fmt.Sprintf("mem:%d", len(s.journal)), nil
}

// Journal returns a copy of the exported invoices.
func (s *Store) Journal() []core.InvoiceRecord {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]core.InvoiceRecord(nil), s.journal...)
}
