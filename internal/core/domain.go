package core

import (
	"errors"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// PaymentMethod is the closed set of settlement methods. Both committed
// aggregation and the preview overlay route amounts through the same
// method-to-bucket table, so the two can never disagree.
type PaymentMethod string

const (
	MethodCash    PaymentMethod = "cash"
	MethodCheque  PaymentMethod = "cheque"
	MethodCard    PaymentMethod = "card"
	MethodVoucher PaymentMethod = "voucher"
	MethodWire    PaymentMethod = "wire_transfer"
)

// BalanceBucket identifies which running balance a deduction lands in.
type BalanceBucket int

const (
	BucketNone BalanceBucket = iota
	BucketCash
	BucketBank
	BucketVoucher
)

var methodBuckets = map[PaymentMethod]BalanceBucket{
	MethodCash:    BucketCash,
	MethodCheque:  BucketBank,
	MethodCard:    BucketBank,
	MethodWire:    BucketBank,
	MethodVoucher: BucketVoucher,
}

// Bucket returns the balance bucket a method deducts from. Unknown
// methods map to BucketNone, which downstream code treats as a no-op.
func (m PaymentMethod) Bucket() BalanceBucket {
	return methodBuckets[m]
}

func (m PaymentMethod) IsValid() bool {
	_, ok := methodBuckets[m]
	return ok
}

// ParsePaymentMethod normalizes the method labels found in imported data.
// The register software historically stored French labels.
func ParsePaymentMethod(s string) PaymentMethod {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "cash", "espece", "especes", "espèces":
		return MethodCash
	case "cheque", "chèque", "check":
		return MethodCheque
	case "card", "carte", "tpe", "cb":
		return MethodCard
	case "voucher", "ticket", "ticket resto", "ticket restaurant":
		return MethodVoucher
	case "wire_transfer", "virement", "wire":
		return MethodWire
	default:
		return PaymentMethod(strings.ToLower(strings.TrimSpace(s)))
	}
}

// Payer identifies which expense stream paid an invoice.
type Payer string

const (
	PayerCaisse Payer = "caisse"
	PayerRiadh  Payer = "riadh"
)

// PayerFilter selects which payer streams contribute to an aggregation.
type PayerFilter string

const (
	FilterAll    PayerFilter = "all"
	FilterCaisse PayerFilter = "caisse"
	FilterRiadh  PayerFilter = "riadh"
)

func (f PayerFilter) IsValid() bool {
	switch f {
	case FilterAll, FilterCaisse, FilterRiadh:
		return true
	}
	return false
}

// Category is the fixed expense taxonomy.
type Category string

const (
	CategorySupplier       Category = "fournisseur"
	CategoryMisc           Category = "divers"
	CategoryAdministrative Category = "administratif"
	CategoryAdvance        Category = "avance"
	CategoryDoubling       Category = "doublage"
	CategoryExtra          Category = "extra"
	CategoryBonus          Category = "prime"
	CategoryRemainder      Category = "reste_salaire"
)

// Origin records where a ledger entry was first captured. Entries that
// came in through a daily sheet already reduced that sheet's net
// remainder, so method-stream expense buckets must skip them.
type Origin string

const (
	OriginDailySheet    Origin = "daily_sheet"
	OriginDirectExpense Origin = "direct_expense"
)

// InvoiceStatus gates an invoice's contribution to committed totals.
type InvoiceStatus string

const (
	StatusPaid   InvoiceStatus = "paid"
	StatusUnpaid InvoiceStatus = "unpaid"
)

// ErrInvalidRange is the only error the engine surfaces for a
// structurally invalid call. Data-quality problems never error.
var ErrInvalidRange = errors.New("invalid date range: end before start")

// DateRange is a closed calendar-day interval.
type DateRange struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

func (r DateRange) Validate() error {
	if r.Start.IsZero() || r.End.IsZero() || r.End.Before(r.Start) {
		return ErrInvalidRange
	}
	return nil
}

func (r DateRange) Contains(t time.Time) bool {
	return !t.Before(r.Start) && !t.After(r.End)
}

// Month returns the YYYY-MM key of the range start, used to look up
// salary remainders which are tracked per month.
func (r DateRange) Month() string {
	return r.Start.Format("2006-01")
}

// PersonnelItem is one row of a daily sheet's embedded personnel lists
// (advances, doublings, extras, bonuses, remainder settlements).
type PersonnelItem struct {
	EmployeeName string    `json:"employeeName"`
	Amount       Amount    `json:"amount"`
	At           time.Time `json:"timestamp"`
}

// SheetExpenseItem is one row of a daily sheet's embedded expense lists.
// IsFromFacturation marks items that are also captured as an invoice:
// the invoice is then the source of truth and the embedded copy must not
// be counted a second time.
type SheetExpenseItem struct {
	Label             string `json:"label"`
	Amount            Amount `json:"amount"`
	IsFromFacturation bool   `json:"isFromFacturation"`
	InvoiceID         int64  `json:"invoiceId"`
}

// DailySheetRecord is one business day of register activity. The five
// personnel lists and three expense lists arrive as encoded JSON arrays
// and are decoded defensively by the normalizer.
type DailySheetRecord struct {
	ID            int64
	Date          time.Time
	GrossRevenue  Amount // cash-register revenue for the day
	NetRemainder  Amount // revenue minus the day's recognized expenses
	CardTotal     Amount
	Card2Total    Amount
	CashTotal     Amount
	ChequeTotal   Amount
	VoucherTotal  Amount
	TotalExpenses Amount

	// Encoded JSON array fields, decoded on demand.
	SupplierExpenses string
	MiscExpenses     string
	AdminExpenses    string
	Advances         string
	Doublings        string
	Extras           string
	Bonuses          string
	Settlements      string
}

// InvoiceRecord is a supplier or expense invoice. Unpaid invoices are
// excluded from all committed totals.
type InvoiceRecord struct {
	ID            int64
	Label         string
	Amount        Amount
	ReceivedDate  time.Time
	PaymentMethod PaymentMethod
	PaidDate      time.Time
	Status        InvoiceStatus
	Payer         Payer
	Category      Category
	Origin        Origin
}

// BankTransactionRecord is a signed bank movement: positive amounts are
// deposits (cash moved into the bank), negative are withdrawals.
type BankTransactionRecord struct {
	ID     int64
	Amount Amount
	Date   time.Time
}

// SalaryRemainderRecord is an accrued, unpaid wage liability. It counts
// as an expense and reduces cash and net remainder even though no cash
// has moved yet. EmployeeName is "global" for unattributed liabilities.
type SalaryRemainderRecord struct {
	ID           int64
	EmployeeName string
	Amount       Amount
	Month        string
	Status       string
	UpdatedAt    time.Time
}

// Employee is a roster row, used only to present zero-value remainder
// rows for employees with nothing accrued yet.
type Employee struct {
	Name       string `json:"name"`
	Department string `json:"department"`
}

// PaymentStats is the collaborator-supplied pre-aggregated summary used
// as a fallback when no daily-sheet data exists for the range.
type PaymentStats struct {
	GrossRevenue  Amount `json:"grossRevenue"`
	TotalExpenses Amount `json:"totalExpenses"`
	NetRemainder  Amount `json:"netRemainder"`
	TpeTotal      Amount `json:"tpeTotal"`
	ChequeTotal   Amount `json:"chequeTotal"`
	CashTotal     Amount `json:"cashTotal"`
	VoucherTotal  Amount `json:"voucherTotal"`
	RiadhExpenses Amount `json:"riadhExpenses"`
	UnpaidTotal   Amount `json:"unpaidTotal"`
}

// PendingKind discriminates the in-progress edit a preview reflects.
type PendingKind string

const (
	PendingExpense  PendingKind = "expense"
	PendingPayment  PendingKind = "payment"
	PendingBankMove PendingKind = "bankMove"
)

// BankMoveDirection applies to PendingBankMove edits.
type BankMoveDirection string

const (
	MoveDeposit    BankMoveDirection = "deposit"
	MoveWithdrawal BankMoveDirection = "withdrawal"
)

// PendingEdit describes an uncommitted form state feeding the preview
// overlay. For PendingPayment the Method is the settlement method
// currently selected in the form, not the invoice's stored method.
type PendingEdit struct {
	Kind      PendingKind       `json:"kind"`
	Amount    Amount            `json:"amount"`
	Method    PaymentMethod     `json:"method"`
	Direction BankMoveDirection `json:"direction"`
}

// EngineInput is the complete, immutable input of one engine invocation.
// The engine holds no state between calls: every aggregation is a pure
// function of this snapshot.
type EngineInput struct {
	Sheets     []DailySheetRecord
	Invoices   []InvoiceRecord
	BankMoves  []BankTransactionRecord
	Remainders []SalaryRemainderRecord
	Roster     []Employee
	Stats      *PaymentStats
	Range      DateRange
	Payer      PayerFilter
	Pending    *PendingEdit
}

// Totals is the aggregation result: intermediate sums plus the derived
// running balances. All fields are totals over the filtered range.
type Totals struct {
	GrossRevenue       decimal.Decimal `json:"grossRevenue"`
	GrossCash          decimal.Decimal `json:"grossCash"`
	GrossVouchers      decimal.Decimal `json:"grossVouchers"`
	TpeTotal           decimal.Decimal `json:"tpeTotal"`
	ChequeTotal        decimal.Decimal `json:"chequeTotal"`
	DailySheetExpenses decimal.Decimal `json:"dailySheetExpenses"`
	NetRevenueBase     decimal.Decimal `json:"netRevenueBase"`

	RiadhExpenses     decimal.Decimal `json:"riadhExpenses"`
	BankExpenses      decimal.Decimal `json:"bankExpenses"`
	CashExpenses      decimal.Decimal `json:"cashExpenses"`
	VoucherExpenses   decimal.Decimal `json:"voucherExpenses"`
	PendingRemainders decimal.Decimal `json:"pendingRemainders"`
	BankDepositsNet   decimal.Decimal `json:"bankDepositsNet"`

	TotalExpenses  decimal.Decimal `json:"totalExpenses"`
	NetRemainder   decimal.Decimal `json:"netRemainder"`
	CashBalance    decimal.Decimal `json:"cashBalance"`
	VoucherBalance decimal.Decimal `json:"voucherBalance"`
	BankBalance    decimal.Decimal `json:"bankBalance"`
	MarginPercent  decimal.Decimal `json:"marginPercent"`
}

// LedgerEntry is the common shape all four record kinds normalize to.
// Entries are derived on demand and never persisted.
type LedgerEntry struct {
	Amount    decimal.Decimal
	Date      time.Time
	Method    PaymentMethod
	Category  Category
	Payer     Payer
	Origin    Origin
	Status    InvoiceStatus
	Label     string
	DedupeKey string
}
