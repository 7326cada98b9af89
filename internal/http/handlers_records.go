package http

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"caisse/internal/core"
	applog "caisse/internal/log"
)

type createdResponse struct {
	ID int64 `json:"id"`
}

type statusResponse struct {
	Status string `json:"status"`
}

func parsePathID(r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	return id, err == nil && id > 0
}

type createInvoiceRequest struct {
	Label    string      `json:"label"`
	Amount   core.Amount `json:"amount"`
	Date     string      `json:"date"`
	Method   string      `json:"method"`
	Payer    string      `json:"payer"`
	Category string      `json:"category"`
}

// handleCreateInvoice records a new supplier invoice. It starts unpaid
// and stays out of committed totals until it is settled.
func (s *Server) handleCreateInvoice(w http.ResponseWriter, r *http.Request) {
	var req createInvoiceRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}

	label := sanitizeInput(req.Label)
	if label == "" {
		writeError(w, r, http.StatusUnprocessableEntity, "label is required")
		return
	}

	receivedDate, err := parseOptionalDate(req.Date)
	if err != nil {
		writeError(w, r, http.StatusBadRequest, "invalid date")
		return
	}
	if receivedDate.IsZero() {
		receivedDate = time.Now()
	}

	payer := core.PayerCaisse
	if v := strings.ToLower(strings.TrimSpace(req.Payer)); v != "" {
		payer = core.Payer(v)
		if payer != core.PayerCaisse && payer != core.PayerRiadh {
			writeError(w, r, http.StatusUnprocessableEntity, "invalid payer "+req.Payer)
			return
		}
	}

	inv := core.InvoiceRecord{
		Label:         label,
		Amount:        req.Amount,
		ReceivedDate:  receivedDate,
		PaymentMethod: core.ParsePaymentMethod(req.Method),
		Payer:         payer,
		Category:      core.ClassifyInvoice(req.Category),
		Origin:        core.OriginDirectExpense,
	}

	id, err := s.records.CreateInvoice(r.Context(), inv)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	s.invalidateCaches()
	applog.FromContext(r.Context()).InfoContext(r.Context(), "Invoice created",
		applog.FieldInvoiceID, id,
		applog.FieldLabel, label,
		applog.FieldAmount, req.Amount.String(),
		applog.FieldPayer, string(payer))
	writeJSON(w, http.StatusCreated, createdResponse{ID: id})
}

type payInvoiceRequest struct {
	Method   string `json:"method"`
	PaidDate string `json:"paidDate"`
}

// handlePayInvoice settles an invoice. From that moment it counts in
// committed totals and is queued for journal export.
func (s *Server) handlePayInvoice(w http.ResponseWriter, r *http.Request) {
	id, ok := parsePathID(r)
	if !ok {
		writeError(w, r, http.StatusBadRequest, "invalid invoice id")
		return
	}

	var req payInvoiceRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}

	method := core.ParsePaymentMethod(req.Method)
	if !method.IsValid() {
		writeError(w, r, http.StatusUnprocessableEntity, "invalid payment method "+req.Method)
		return
	}

	paidDate, err := parseOptionalDate(req.PaidDate)
	if err != nil {
		writeError(w, r, http.StatusBadRequest, "invalid paidDate")
		return
	}

	if err := s.records.PayInvoice(r.Context(), id, method, paidDate); err != nil {
		writeServiceError(w, r, err)
		return
	}

	s.invalidateCaches()
	writeJSON(w, http.StatusOK, statusResponse{Status: string(core.StatusPaid)})
}

type createBankTransactionRequest struct {
	Amount    core.Amount `json:"amount"`
	Direction string      `json:"direction"`
	Date      string      `json:"date"`
	Label     string      `json:"label"`
}

// handleCreateBankTransaction records a cash/bank movement. Deposits are
// stored positive, withdrawals negative.
func (s *Server) handleCreateBankTransaction(w http.ResponseWriter, r *http.Request) {
	var req createBankTransactionRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}

	date, err := parseOptionalDate(req.Date)
	if err != nil {
		writeError(w, r, http.StatusBadRequest, "invalid date")
		return
	}

	amount := req.Amount
	switch core.BankMoveDirection(strings.ToLower(strings.TrimSpace(req.Direction))) {
	case core.MoveDeposit:
	case core.MoveWithdrawal:
		amount = core.NewAmount(amount.Neg())
	default:
		writeError(w, r, http.StatusUnprocessableEntity, "invalid direction "+req.Direction)
		return
	}

	id, err := s.records.CreateBankTransaction(r.Context(), core.BankTransactionRecord{
		Amount: amount,
		Date:   date,
	}, sanitizeInput(req.Label))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	s.invalidateCaches()
	writeJSON(w, http.StatusCreated, createdResponse{ID: id})
}

type createSalaryRemainderRequest struct {
	Employee string      `json:"employee"`
	Amount   core.Amount `json:"amount"`
	Month    string      `json:"month"`
}

// handleCreateSalaryRemainder accrues an unpaid wage liability.
func (s *Server) handleCreateSalaryRemainder(w http.ResponseWriter, r *http.Request) {
	var req createSalaryRemainderRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}

	month := strings.TrimSpace(req.Month)
	if month != "" {
		if _, err := time.Parse("2006-01", month); err != nil {
			writeError(w, r, http.StatusBadRequest, "invalid month, expected YYYY-MM")
			return
		}
	}

	id, err := s.records.CreateSalaryRemainder(r.Context(), core.SalaryRemainderRecord{
		EmployeeName: sanitizeInput(req.Employee),
		Amount:       req.Amount,
		Month:        month,
	})
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	s.invalidateCaches()
	writeJSON(w, http.StatusCreated, createdResponse{ID: id})
}

// handleSettleSalaryRemainder pays out an accrued liability. Settling
// twice is a not-found: only pending remainders can be settled.
func (s *Server) handleSettleSalaryRemainder(w http.ResponseWriter, r *http.Request) {
	id, ok := parsePathID(r)
	if !ok {
		writeError(w, r, http.StatusBadRequest, "invalid remainder id")
		return
	}

	if err := s.records.SettleSalaryRemainder(r.Context(), id); err != nil {
		writeServiceError(w, r, err)
		return
	}

	s.invalidateCaches()
	writeJSON(w, http.StatusOK, statusResponse{Status: "settled"})
}
