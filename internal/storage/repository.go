package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"caisse/internal/core"

	_ "modernc.org/sqlite"
)

// ErrNotFound is returned when a record does not exist.
var ErrNotFound = errors.New("record not found")

const dateLayout = "2006-01-02"

type SQLiteRepository struct {
	db *sql.DB
}

func NewSQLiteRepository(dbPath string) (*SQLiteRepository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	// Run migrations
	if err := RunMigrations(dbPath); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &SQLiteRepository{db: db}, nil
}

func (r *SQLiteRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

func formatDate(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format(dateLayout)
}

func parseDate(s string) time.Time {
	if s == "" {
		return time.Time{}
	}
	t, err := time.Parse(dateLayout, s)
	if err != nil {
		return time.Time{}
	}
	return t
}

func amount(s string) core.Amount {
	return core.NewAmount(core.ParseAmount(s))
}

// DailySheetsInRange returns the daily sheets whose date falls inside
// the closed range, oldest first.
func (r *SQLiteRepository) DailySheetsInRange(ctx context.Context, rng core.DateRange) ([]core.DailySheetRecord, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, date, gross_revenue, net_remainder, card_total, card2_total,
		       cash_total, cheque_total, voucher_total, total_expenses,
		       supplier_expenses, misc_expenses, admin_expenses,
		       advances, doublings, extras, bonuses, settlements
		FROM daily_sheets
		WHERE date >= ? AND date <= ?
		ORDER BY date`,
		formatDate(rng.Start), formatDate(rng.End))
	if err != nil {
		return nil, fmt.Errorf("query daily sheets: %w", err)
	}
	defer rows.Close()

	var sheets []core.DailySheetRecord
	for rows.Next() {
		var s core.DailySheetRecord
		var date string
		var gross, net, card, card2, cash, cheque, voucher, expenses string
		if err := rows.Scan(&s.ID, &date, &gross, &net, &card, &card2,
			&cash, &cheque, &voucher, &expenses,
			&s.SupplierExpenses, &s.MiscExpenses, &s.AdminExpenses,
			&s.Advances, &s.Doublings, &s.Extras, &s.Bonuses, &s.Settlements); err != nil {
			return nil, fmt.Errorf("scan daily sheet: %w", err)
		}
		s.Date = parseDate(date)
		s.GrossRevenue = amount(gross)
		s.NetRemainder = amount(net)
		s.CardTotal = amount(card)
		s.Card2Total = amount(card2)
		s.CashTotal = amount(cash)
		s.ChequeTotal = amount(cheque)
		s.VoucherTotal = amount(voucher)
		s.TotalExpenses = amount(expenses)
		sheets = append(sheets, s)
	}
	return sheets, rows.Err()
}

// UpsertDailySheet inserts or replaces a sheet by its date. Imports are
// idempotent: re-importing the same day overwrites the previous copy.
func (r *SQLiteRepository) UpsertDailySheet(ctx context.Context, s core.DailySheetRecord) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO daily_sheets (
			date, gross_revenue, net_remainder, card_total, card2_total,
			cash_total, cheque_total, voucher_total, total_expenses,
			supplier_expenses, misc_expenses, admin_expenses,
			advances, doublings, extras, bonuses, settlements, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, CURRENT_TIMESTAMP)
		ON CONFLICT(date) DO UPDATE SET
			gross_revenue = excluded.gross_revenue,
			net_remainder = excluded.net_remainder,
			card_total = excluded.card_total,
			card2_total = excluded.card2_total,
			cash_total = excluded.cash_total,
			cheque_total = excluded.cheque_total,
			voucher_total = excluded.voucher_total,
			total_expenses = excluded.total_expenses,
			supplier_expenses = excluded.supplier_expenses,
			misc_expenses = excluded.misc_expenses,
			admin_expenses = excluded.admin_expenses,
			advances = excluded.advances,
			doublings = excluded.doublings,
			extras = excluded.extras,
			bonuses = excluded.bonuses,
			settlements = excluded.settlements,
			updated_at = CURRENT_TIMESTAMP`,
		formatDate(s.Date),
		s.GrossRevenue.String(), s.NetRemainder.String(),
		s.CardTotal.String(), s.Card2Total.String(),
		s.CashTotal.String(), s.ChequeTotal.String(),
		s.VoucherTotal.String(), s.TotalExpenses.String(),
		s.SupplierExpenses, s.MiscExpenses, s.AdminExpenses,
		s.Advances, s.Doublings, s.Extras, s.Bonuses, s.Settlements)
	if err != nil {
		return fmt.Errorf("upsert daily sheet: %w", err)
	}
	return nil
}

// InvoicesInRange returns invoices visible in the range: paid invoices
// by paid date, unpaid ones by received date.
func (r *SQLiteRepository) InvoicesInRange(ctx context.Context, rng core.DateRange) ([]core.InvoiceRecord, error) {
	start, end := formatDate(rng.Start), formatDate(rng.End)
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, label, amount, received_date, paid_date,
		       payment_method, status, payer, category, origin
		FROM invoices
		WHERE (status = 'paid' AND paid_date >= ? AND paid_date <= ?)
		   OR (status = 'unpaid' AND received_date >= ? AND received_date <= ?)
		ORDER BY id`,
		start, end, start, end)
	if err != nil {
		return nil, fmt.Errorf("query invoices: %w", err)
	}
	defer rows.Close()

	var invoices []core.InvoiceRecord
	for rows.Next() {
		inv, err := scanInvoice(rows)
		if err != nil {
			return nil, err
		}
		invoices = append(invoices, inv)
	}
	return invoices, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanInvoice(row rowScanner) (core.InvoiceRecord, error) {
	var inv core.InvoiceRecord
	var amt, received, paid, method, status, payer, category, origin string
	if err := row.Scan(&inv.ID, &inv.Label, &amt, &received, &paid,
		&method, &status, &payer, &category, &origin); err != nil {
		return inv, fmt.Errorf("scan invoice: %w", err)
	}
	inv.Amount = amount(amt)
	inv.ReceivedDate = parseDate(received)
	inv.PaidDate = parseDate(paid)
	inv.PaymentMethod = core.PaymentMethod(method)
	inv.Status = core.InvoiceStatus(status)
	inv.Payer = core.Payer(payer)
	inv.Category = core.Category(category)
	inv.Origin = core.Origin(origin)
	return inv, nil
}

func (r *SQLiteRepository) GetInvoice(ctx context.Context, id int64) (core.InvoiceRecord, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT id, label, amount, received_date, paid_date,
		       payment_method, status, payer, category, origin
		FROM invoices WHERE id = ?`, id)
	inv, err := scanInvoice(row)
	if errors.Is(err, sql.ErrNoRows) {
		return inv, ErrNotFound
	}
	return inv, err
}

func (r *SQLiteRepository) CreateInvoice(ctx context.Context, inv core.InvoiceRecord) (int64, error) {
	status := inv.Status
	if status == "" {
		status = core.StatusUnpaid
	}
	payer := inv.Payer
	if payer == "" {
		payer = core.PayerCaisse
	}
	category := inv.Category
	if category == "" {
		category = core.CategorySupplier
	}
	origin := inv.Origin
	if origin == "" {
		origin = core.OriginDirectExpense
	}

	res, err := r.db.ExecContext(ctx, `
		INSERT INTO invoices (label, amount, received_date, paid_date,
		                      payment_method, status, payer, category, origin)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		inv.Label, inv.Amount.String(),
		formatDate(inv.ReceivedDate), formatDate(inv.PaidDate),
		string(inv.PaymentMethod), string(status), string(payer),
		string(category), string(origin))
	if err != nil {
		return 0, fmt.Errorf("create invoice: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("invoice id: %w", err)
	}

	slog.InfoContext(ctx, "Invoice saved",
		"id", id,
		"label", inv.Label,
		"amount", inv.Amount.String(),
		"payer", string(payer),
		"status", string(status))

	return id, nil
}

// MarkInvoicePaid settles an invoice with the given method and date and
// queues it for re-sync.
func (r *SQLiteRepository) MarkInvoicePaid(ctx context.Context, id int64, method core.PaymentMethod, paidDate time.Time) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE invoices
		SET status = 'paid', payment_method = ?, paid_date = ?,
		    synced = 0, sync_error = 0, version = version + 1,
		    updated_at = CURRENT_TIMESTAMP
		WHERE id = ?`,
		string(method), formatDate(paidDate), id)
	if err != nil {
		return fmt.Errorf("mark invoice paid: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("mark invoice paid: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// InvoiceVersion returns the current version counter of an invoice.
func (r *SQLiteRepository) InvoiceVersion(ctx context.Context, id int64) (int64, error) {
	var version int64
	err := r.db.QueryRowContext(ctx, `SELECT version FROM invoices WHERE id = ?`, id).Scan(&version)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, ErrNotFound
	}
	if err != nil {
		return 0, fmt.Errorf("invoice version: %w", err)
	}
	return version, nil
}

func (r *SQLiteRepository) BankTransactionsInRange(ctx context.Context, rng core.DateRange) ([]core.BankTransactionRecord, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, amount, date FROM bank_transactions
		WHERE date >= ? AND date <= ?
		ORDER BY date, id`,
		formatDate(rng.Start), formatDate(rng.End))
	if err != nil {
		return nil, fmt.Errorf("query bank transactions: %w", err)
	}
	defer rows.Close()

	var moves []core.BankTransactionRecord
	for rows.Next() {
		var m core.BankTransactionRecord
		var amt, date string
		if err := rows.Scan(&m.ID, &amt, &date); err != nil {
			return nil, fmt.Errorf("scan bank transaction: %w", err)
		}
		m.Amount = amount(amt)
		m.Date = parseDate(date)
		moves = append(moves, m)
	}
	return moves, rows.Err()
}

func (r *SQLiteRepository) CreateBankTransaction(ctx context.Context, m core.BankTransactionRecord, label string) (int64, error) {
	res, err := r.db.ExecContext(ctx, `
		INSERT INTO bank_transactions (label, amount, date) VALUES (?, ?, ?)`,
		label, m.Amount.String(), formatDate(m.Date))
	if err != nil {
		return 0, fmt.Errorf("create bank transaction: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("bank transaction id: %w", err)
	}
	return id, nil
}

// SalaryRemaindersForMonth returns the month's unsettled wage
// liabilities.
func (r *SQLiteRepository) SalaryRemaindersForMonth(ctx context.Context, month string) ([]core.SalaryRemainderRecord, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, employee_name, amount, month, status, updated_at
		FROM salary_remainders
		WHERE month = ? AND status = 'pending'
		ORDER BY id`, month)
	if err != nil {
		return nil, fmt.Errorf("query salary remainders: %w", err)
	}
	defer rows.Close()

	var remainders []core.SalaryRemainderRecord
	for rows.Next() {
		var rec core.SalaryRemainderRecord
		var amt string
		if err := rows.Scan(&rec.ID, &rec.EmployeeName, &amt, &rec.Month, &rec.Status, &rec.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan salary remainder: %w", err)
		}
		rec.Amount = amount(amt)
		remainders = append(remainders, rec)
	}
	return remainders, rows.Err()
}

func (r *SQLiteRepository) CreateSalaryRemainder(ctx context.Context, rec core.SalaryRemainderRecord) (int64, error) {
	name := rec.EmployeeName
	if name == "" {
		name = "global"
	}
	res, err := r.db.ExecContext(ctx, `
		INSERT INTO salary_remainders (employee_name, amount, month, status)
		VALUES (?, ?, ?, 'pending')`,
		name, rec.Amount.String(), rec.Month)
	if err != nil {
		return 0, fmt.Errorf("create salary remainder: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("salary remainder id: %w", err)
	}
	return id, nil
}

// SettleSalaryRemainder marks a liability as paid out, removing it from
// future aggregations.
func (r *SQLiteRepository) SettleSalaryRemainder(ctx context.Context, id int64) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE salary_remainders
		SET status = 'settled', updated_at = CURRENT_TIMESTAMP
		WHERE id = ? AND status = 'pending'`, id)
	if err != nil {
		return fmt.Errorf("settle salary remainder: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("settle salary remainder: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *SQLiteRepository) EmployeeRoster(ctx context.Context) ([]core.Employee, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT name, department FROM employees ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("query employees: %w", err)
	}
	defer rows.Close()

	var roster []core.Employee
	for rows.Next() {
		var e core.Employee
		if err := rows.Scan(&e.Name, &e.Department); err != nil {
			return nil, fmt.Errorf("scan employee: %w", err)
		}
		roster = append(roster, e)
	}
	return roster, rows.Err()
}

func (r *SQLiteRepository) UpsertEmployee(ctx context.Context, e core.Employee) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO employees (name, department) VALUES (?, ?)
		ON CONFLICT(name) DO UPDATE SET department = excluded.department`,
		e.Name, e.Department)
	if err != nil {
		return fmt.Errorf("upsert employee: %w", err)
	}
	return nil
}

// PaymentStatsForMonth returns the imported summary for a month, or nil
// when none was imported.
func (r *SQLiteRepository) PaymentStatsForMonth(ctx context.Context, month string) (*core.PaymentStats, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT gross_revenue, total_expenses, net_remainder, tpe_total,
		       cheque_total, cash_total, voucher_total, riadh_expenses, unpaid_total
		FROM payment_stats WHERE month = ?`, month)

	var gross, expenses, net, tpe, cheque, cash, voucher, riadh, unpaid string
	err := row.Scan(&gross, &expenses, &net, &tpe, &cheque, &cash, &voucher, &riadh, &unpaid)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("scan payment stats: %w", err)
	}
	return &core.PaymentStats{
		GrossRevenue:  amount(gross),
		TotalExpenses: amount(expenses),
		NetRemainder:  amount(net),
		TpeTotal:      amount(tpe),
		ChequeTotal:   amount(cheque),
		CashTotal:     amount(cash),
		VoucherTotal:  amount(voucher),
		RiadhExpenses: amount(riadh),
		UnpaidTotal:   amount(unpaid),
	}, nil
}

func (r *SQLiteRepository) UpsertPaymentStats(ctx context.Context, month string, stats core.PaymentStats) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO payment_stats (
			month, gross_revenue, total_expenses, net_remainder, tpe_total,
			cheque_total, cash_total, voucher_total, riadh_expenses, unpaid_total, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, CURRENT_TIMESTAMP)
		ON CONFLICT(month) DO UPDATE SET
			gross_revenue = excluded.gross_revenue,
			total_expenses = excluded.total_expenses,
			net_remainder = excluded.net_remainder,
			tpe_total = excluded.tpe_total,
			cheque_total = excluded.cheque_total,
			cash_total = excluded.cash_total,
			voucher_total = excluded.voucher_total,
			riadh_expenses = excluded.riadh_expenses,
			unpaid_total = excluded.unpaid_total,
			updated_at = CURRENT_TIMESTAMP`,
		month,
		stats.GrossRevenue.String(), stats.TotalExpenses.String(),
		stats.NetRemainder.String(), stats.TpeTotal.String(),
		stats.ChequeTotal.String(), stats.CashTotal.String(),
		stats.VoucherTotal.String(), stats.RiadhExpenses.String(),
		stats.UnpaidTotal.String())
	if err != nil {
		return fmt.Errorf("upsert payment stats: %w", err)
	}
	return nil
}

// PendingSyncInvoice is an invoice queued for export to the journal.
type PendingSyncInvoice struct {
	ID        int64
	Version   int64
	CreatedAt time.Time
}

// GetPendingSyncInvoices returns invoices that need to be exported,
// oldest first.
func (r *SQLiteRepository) GetPendingSyncInvoices(ctx context.Context, limit int) ([]PendingSyncInvoice, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, version, created_at FROM invoices
		WHERE synced = 0 AND sync_error = 0
		ORDER BY created_at
		LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("get pending sync invoices: %w", err)
	}
	defer rows.Close()

	var pending []PendingSyncInvoice
	for rows.Next() {
		var p PendingSyncInvoice
		if err := rows.Scan(&p.ID, &p.Version, &p.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan pending sync invoice: %w", err)
		}
		pending = append(pending, p)
	}
	return pending, rows.Err()
}

// MarkSynced marks an invoice as successfully exported
func (r *SQLiteRepository) MarkSynced(ctx context.Context, id int64) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE invoices SET synced = 1, updated_at = CURRENT_TIMESTAMP WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("mark invoice synced: %w", err)
	}

	slog.InfoContext(ctx, "Invoice marked as synced", "id", id)
	return nil
}

// MarkSyncError marks an invoice as having export errors
func (r *SQLiteRepository) MarkSyncError(ctx context.Context, id int64) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE invoices SET sync_error = 1, updated_at = CURRENT_TIMESTAMP WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("mark invoice sync error: %w", err)
	}

	slog.InfoContext(ctx, "Invoice marked with sync error", "id", id)
	return nil
}
