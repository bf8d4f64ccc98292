package ledger

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// TransactionType enumerates journal movement kinds.
type TransactionType string

const (
	TransactionIncome              TransactionType = "income"
	TransactionExpense             TransactionType = "expense"
	TransactionAdvancePayment      TransactionType = "advance_payment"
	TransactionAdvanceReport       TransactionType = "advance_report"
	TransactionAdvanceReturn       TransactionType = "advance_return"
	TransactionAdvanceReturnReport TransactionType = "advance_return_report"
	TransactionAdditionalAdvance   TransactionType = "additional_advance_payment"
	TransactionAdvanceAdditional   TransactionType = "advance_additional"
	TransactionTransfer            TransactionType = "transfer"
	TransactionConversion          TransactionType = "conversion"
)

// DocumentKind tags the owning document of a journal row.
type DocumentKind string

const (
	KindIncomeDocument     DocumentKind = "income_document"
	KindExpenseDocument    DocumentKind = "expense_document"
	KindAdvancePayment     DocumentKind = "advance_payment"
	KindAdvanceReport      DocumentKind = "advance_report"
	KindAdvanceReportItem  DocumentKind = "advance_report_item"
	KindAdvanceReturn      DocumentKind = "advance_return"
	KindAdditionalAdvance  DocumentKind = "additional_advance_payment"
	KindCashTransfer       DocumentKind = "cash_transfer"
	KindCurrencyConversion DocumentKind = "currency_conversion"
)

// DocumentRef identifies the owning document of a transaction as a tagged
// union instead of one nullable column per document type. Exactly one owner
// exists per transaction.
type DocumentRef struct {
	Kind DocumentKind
	ID   uuid.UUID
}

// Transaction is one immutable journal row: a signed, dated, currency-tagged
// cash movement. Money leaving a register is negative, money entering is
// positive.
type Transaction struct {
	ID             int64
	Date           time.Time
	Type           TransactionType
	Amount         decimal.Decimal
	Description    string
	CashRegisterID uuid.UUID
	CurrencyID     uuid.UUID
	ItemID         *uuid.UUID
	EmployeeID     *uuid.UUID
	Owner          DocumentRef

	// AdvancePaymentID links report-generated returns and top-ups back to
	// the advance they settle; the owning document stays the report.
	AdvancePaymentID *uuid.UUID

	CreatedAt time.Time
	CreatedBy *int64
}

// DocumentMeta carries the fields shared by every business document.
type DocumentMeta struct {
	ID        uuid.UUID
	Number    string
	Date      time.Time
	IsPosted  bool
	IsDeleted bool
	CreatedAt time.Time
	UpdatedAt time.Time
}

// IncomeDocument records money entering a cash register.
type IncomeDocument struct {
	DocumentMeta
	CashRegisterID uuid.UUID
	CurrencyID     uuid.UUID
	Amount         decimal.Decimal
	ItemID         uuid.UUID
	Description    string
	EmployeeID     *uuid.UUID
}

// ExpenseDocument records money leaving a cash register.
type ExpenseDocument struct {
	DocumentMeta
	CashRegisterID uuid.UUID
	CurrencyID     uuid.UUID
	Amount         decimal.Decimal
	ItemID         uuid.UUID
	Description    string
	EmployeeID     *uuid.UUID
}

// AdvancePayment issues cash to an employee against future expense reports.
type AdvancePayment struct {
	DocumentMeta
	EmployeeID     uuid.UUID
	CashRegisterID uuid.UUID
	CurrencyID     uuid.UUID
	Amount         decimal.Decimal
	ExpenseItemID  uuid.UUID
	Purpose        string
	IsClosed       bool
	ClosedAt       *time.Time
}

// AdditionalAdvancePayment tops up an existing advance.
type AdditionalAdvancePayment struct {
	DocumentMeta
	OriginalAdvanceID uuid.UUID
	CashRegisterID    uuid.UUID
	CurrencyID        uuid.UUID
	Amount            decimal.Decimal
	Purpose           string
}

// ReportStatus enumerates the advance report lifecycle.
type ReportStatus string

const (
	ReportStatusDraft     ReportStatus = "draft"
	ReportStatusSubmitted ReportStatus = "submitted"
	ReportStatusConfirmed ReportStatus = "confirmed"
	ReportStatusRejected  ReportStatus = "rejected"
)

// AdvanceReport accounts for how an advance was spent. Its journal rows
// exist only while the report is confirmed.
type AdvanceReport struct {
	DocumentMeta
	AdvancePaymentID        uuid.UUID
	CurrencyID              uuid.UUID
	TotalAmount             decimal.Decimal
	ReturnAmount            decimal.Decimal
	AdditionalPayment       decimal.Decimal
	ManualReturnAmount      decimal.Decimal
	ManualAdditionalPayment decimal.Decimal
	CloseAdvancePayment     bool
	Status                  ReportStatus
	ApprovedAt              *time.Time
	ApprovedBy              *int64
	Items                   []AdvanceReportItem
}

// AdvanceReportItem is one expense line inside a report; it owns at most one
// journal row while the report is confirmed.
type AdvanceReportItem struct {
	ID          uuid.UUID
	ReportID    uuid.UUID
	ItemID      uuid.UUID
	Amount      decimal.Decimal
	Description string
	Date        time.Time
}

// AdvanceReturn hands unspent advance money back to a register.
type AdvanceReturn struct {
	DocumentMeta
	AdvancePaymentID uuid.UUID
	EmployeeID       uuid.UUID
	CashRegisterID   uuid.UUID
	CurrencyID       uuid.UUID
	Amount           decimal.Decimal
	Description      string
}

// CashTransfer moves money between two registers in one currency.
type CashTransfer struct {
	DocumentMeta
	FromCashRegisterID uuid.UUID
	ToCashRegisterID   uuid.UUID
	CurrencyID         uuid.UUID
	Amount             decimal.Decimal
}

// CurrencyConversion exchanges one currency for another inside a register.
type CurrencyConversion struct {
	DocumentMeta
	FromCurrencyID uuid.UUID
	ToCurrencyID   uuid.UUID
	CashRegisterID uuid.UUID
	FromAmount     decimal.Decimal
	ToAmount       decimal.Decimal
	// ExchangeRate carries six decimal places; auto-filled from the rate
	// catalogue when left zero.
	ExchangeRate decimal.Decimal
}

// conversionTolerance bounds the allowed drift between to_amount and
// from_amount*rate quantised half-up at two decimals.
var conversionTolerance = decimal.New(1, -2)
