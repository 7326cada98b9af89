package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"caisse/internal/amqp"
	"caisse/internal/core"
	"caisse/internal/storage"
)

// RecordService orchestrates record commits across SQLite and AMQP
type RecordService struct {
	storage    *storage.SQLiteRepository
	amqpClient *amqp.Client
}

func NewRecordService(storage *storage.SQLiteRepository, amqpClient *amqp.Client) *RecordService {
	return &RecordService{
		storage:    storage,
		amqpClient: amqpClient,
	}
}

// CreateInvoice saves an invoice locally and publishes a sync message
func (s *RecordService) CreateInvoice(ctx context.Context, inv core.InvoiceRecord) (int64, error) {
	// Save to SQLite first (fast, reliable)
	id, err := s.storage.CreateInvoice(ctx, inv)
	if err != nil {
		return 0, fmt.Errorf("save invoice: %w", err)
	}

	// Publish async sync message (non-blocking, version 1 for new invoice)
	if err := s.publishSyncMessage(ctx, amqp.KindInvoice, id, 1); err != nil {
		slog.ErrorContext(ctx, "Failed to publish sync message",
			"kind", amqp.KindInvoice, "id", id, "error", err)
		// Don't fail the request - the invoice is saved locally
	}

	return id, nil
}

// PayInvoice settles an invoice with the chosen method. From that moment
// it counts in committed totals.
func (s *RecordService) PayInvoice(ctx context.Context, id int64, method core.PaymentMethod, paidDate time.Time) error {
	if !method.IsValid() {
		return fmt.Errorf("unknown payment method %q", method)
	}
	if paidDate.IsZero() {
		paidDate = time.Now()
	}

	if err := s.storage.MarkInvoicePaid(ctx, id, method, paidDate); err != nil {
		return fmt.Errorf("pay invoice: %w", err)
	}

	version, err := s.storage.InvoiceVersion(ctx, id)
	if err != nil {
		slog.ErrorContext(ctx, "Failed to read invoice version", "id", id, "error", err)
		version = 0
	}

	if err := s.publishSyncMessage(ctx, amqp.KindInvoice, id, version); err != nil {
		slog.ErrorContext(ctx, "Failed to publish sync message",
			"kind", amqp.KindInvoice, "id", id, "error", err)
	}

	return nil
}

// CreateBankTransaction saves a signed bank movement.
func (s *RecordService) CreateBankTransaction(ctx context.Context, move core.BankTransactionRecord, label string) (int64, error) {
	if move.Date.IsZero() {
		move.Date = time.Now()
	}
	id, err := s.storage.CreateBankTransaction(ctx, move, label)
	if err != nil {
		return 0, fmt.Errorf("save bank transaction: %w", err)
	}

	slog.InfoContext(ctx, "Bank transaction saved",
		"id", id, "amount", move.Amount.String(), "label", label)

	if err := s.publishSyncMessage(ctx, amqp.KindBankTransaction, id, 1); err != nil {
		slog.ErrorContext(ctx, "Failed to publish sync message",
			"kind", amqp.KindBankTransaction, "id", id, "error", err)
	}

	return id, nil
}

// CreateSalaryRemainder accrues a wage liability for a month.
func (s *RecordService) CreateSalaryRemainder(ctx context.Context, rec core.SalaryRemainderRecord) (int64, error) {
	if rec.Month == "" {
		rec.Month = time.Now().Format("2006-01")
	}
	id, err := s.storage.CreateSalaryRemainder(ctx, rec)
	if err != nil {
		return 0, fmt.Errorf("save salary remainder: %w", err)
	}

	slog.InfoContext(ctx, "Salary remainder saved",
		"id", id, "employee", rec.EmployeeName, "amount", rec.Amount.String(), "month", rec.Month)

	if err := s.publishSyncMessage(ctx, amqp.KindSalaryRemainder, id, 1); err != nil {
		slog.ErrorContext(ctx, "Failed to publish sync message",
			"kind", amqp.KindSalaryRemainder, "id", id, "error", err)
	}

	return id, nil
}

// SettleSalaryRemainder pays out an accrued liability.
func (s *RecordService) SettleSalaryRemainder(ctx context.Context, id int64) error {
	if err := s.storage.SettleSalaryRemainder(ctx, id); err != nil {
		return fmt.Errorf("settle salary remainder: %w", err)
	}

	if err := s.publishSyncMessage(ctx, amqp.KindSalaryRemainder, id, 2); err != nil {
		slog.ErrorContext(ctx, "Failed to publish sync message",
			"kind", amqp.KindSalaryRemainder, "id", id, "error", err)
	}

	return nil
}

func (s *RecordService) publishSyncMessage(ctx context.Context, kind string, id, version int64) error {
	if s.amqpClient == nil {
		slog.WarnContext(ctx, "AMQP client not available, skipping sync message")
		return nil
	}

	return s.amqpClient.PublishRecordSync(ctx, kind, id, version)
}

// Close closes both storage and AMQP connections
func (s *RecordService) Close() error {
	var errs []error

	if s.storage != nil {
		if err := s.storage.Close(); err != nil {
			errs = append(errs, fmt.Errorf("storage: %w", err))
		}
	}

	if s.amqpClient != nil {
		if err := s.amqpClient.Close(); err != nil {
			errs = append(errs, fmt.Errorf("amqp: %w", err))
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("close record service: %v", errs)
	}

	return nil
}
