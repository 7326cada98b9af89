package services

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"

	"caisse/internal/core"
)

// SnapshotStore is the slice of storage the snapshot service reads.
type SnapshotStore interface {
	DailySheetsInRange(ctx context.Context, rng core.DateRange) ([]core.DailySheetRecord, error)
	InvoicesInRange(ctx context.Context, rng core.DateRange) ([]core.InvoiceRecord, error)
	BankTransactionsInRange(ctx context.Context, rng core.DateRange) ([]core.BankTransactionRecord, error)
	SalaryRemaindersForMonth(ctx context.Context, month string) ([]core.SalaryRemainderRecord, error)
	EmployeeRoster(ctx context.Context) ([]core.Employee, error)
	PaymentStatsForMonth(ctx context.Context, month string) (*core.PaymentStats, error)
}

// SnapshotService assembles engine inputs from storage and runs the
// aggregation over them.
type SnapshotService struct {
	store SnapshotStore
}

func NewSnapshotService(store SnapshotStore) *SnapshotService {
	return &SnapshotService{store: store}
}

// SummaryView is the dashboard payload: committed totals plus the
// outstanding unpaid amount, which is informational and outside every
// balance.
type SummaryView struct {
	core.Totals
	UnpaidTotal core.Amount `json:"unpaidTotal"`
}

// Assemble fetches every record stream for the range concurrently and
// returns the engine input. The payment-stats fallback is only fetched
// when the range has no daily sheets.
func (s *SnapshotService) Assemble(ctx context.Context, rng core.DateRange, filter core.PayerFilter, pending *core.PendingEdit) (core.EngineInput, error) {
	if err := rng.Validate(); err != nil {
		return core.EngineInput{}, err
	}

	in := core.EngineInput{
		Range:   rng,
		Payer:   filter,
		Pending: pending,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		sheets, err := s.store.DailySheetsInRange(gctx, rng)
		if err != nil {
			return fmt.Errorf("daily sheets: %w", err)
		}
		in.Sheets = sheets
		return nil
	})
	g.Go(func() error {
		invoices, err := s.store.InvoicesInRange(gctx, rng)
		if err != nil {
			return fmt.Errorf("invoices: %w", err)
		}
		in.Invoices = invoices
		return nil
	})
	g.Go(func() error {
		moves, err := s.store.BankTransactionsInRange(gctx, rng)
		if err != nil {
			return fmt.Errorf("bank transactions: %w", err)
		}
		in.BankMoves = moves
		return nil
	})
	g.Go(func() error {
		remainders, err := s.store.SalaryRemaindersForMonth(gctx, rng.Month())
		if err != nil {
			return fmt.Errorf("salary remainders: %w", err)
		}
		in.Remainders = remainders
		return nil
	})
	g.Go(func() error {
		roster, err := s.store.EmployeeRoster(gctx)
		if err != nil {
			return fmt.Errorf("employee roster: %w", err)
		}
		in.Roster = roster
		return nil
	})
	if err := g.Wait(); err != nil {
		return core.EngineInput{}, err
	}

	if len(in.Sheets) == 0 {
		stats, err := s.store.PaymentStatsForMonth(ctx, rng.Month())
		if err != nil {
			return core.EngineInput{}, fmt.Errorf("payment stats: %w", err)
		}
		in.Stats = stats
	}

	return in, nil
}

// Summary aggregates the committed records for the range.
func (s *SnapshotService) Summary(ctx context.Context, rng core.DateRange, filter core.PayerFilter) (SummaryView, error) {
	in, err := s.Assemble(ctx, rng, filter, nil)
	if err != nil {
		return SummaryView{}, err
	}
	totals, err := core.Aggregate(in)
	if err != nil {
		return SummaryView{}, err
	}
	return SummaryView{
		Totals:      totals,
		UnpaidTotal: core.NewAmount(core.UnpaidTotal(in.Invoices, in.Payer)),
	}, nil
}

// PreviewSummary aggregates the committed records and overlays the
// pending edit without committing anything.
func (s *SnapshotService) PreviewSummary(ctx context.Context, rng core.DateRange, filter core.PayerFilter, edit core.PendingEdit) (SummaryView, error) {
	in, err := s.Assemble(ctx, rng, filter, &edit)
	if err != nil {
		return SummaryView{}, err
	}
	totals, err := core.Preview(in)
	if err != nil {
		return SummaryView{}, err
	}
	return SummaryView{
		Totals:      totals,
		UnpaidTotal: core.NewAmount(core.UnpaidTotal(in.Invoices, in.Payer)),
	}, nil
}

// CategoryBreakdown returns ranked per-category expense groups.
func (s *SnapshotService) CategoryBreakdown(ctx context.Context, rng core.DateRange, filter core.PayerFilter) ([]core.Group, error) {
	in, err := s.Assemble(ctx, rng, filter, nil)
	if err != nil {
		return nil, err
	}
	return core.CategoryChart(in), nil
}

// EntryBreakdown returns ranked drill-down groups for one category,
// grouped by label (supplier or employee name).
func (s *SnapshotService) EntryBreakdown(ctx context.Context, rng core.DateRange, filter core.PayerFilter, category core.Category) ([]core.Group, error) {
	in, err := s.Assemble(ctx, rng, filter, nil)
	if err != nil {
		return nil, err
	}
	var selected []core.LedgerEntry
	for _, e := range core.Normalize(in) {
		if e.Status == core.StatusPaid && e.Category == category {
			selected = append(selected, e)
		}
	}
	return core.GroupEntries(selected), nil
}

// RemainderBreakdown merges accrued salary remainders with the roster.
func (s *SnapshotService) RemainderBreakdown(ctx context.Context, rng core.DateRange) ([]core.RemainderRow, error) {
	if err := rng.Validate(); err != nil {
		return nil, err
	}
	g, gctx := errgroup.WithContext(ctx)
	var remainders []core.SalaryRemainderRecord
	var roster []core.Employee
	g.Go(func() error {
		var err error
		remainders, err = s.store.SalaryRemaindersForMonth(gctx, rng.Month())
		return err
	})
	g.Go(func() error {
		var err error
		roster, err = s.store.EmployeeRoster(gctx)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return core.RemainderRows(remainders, roster), nil
}
