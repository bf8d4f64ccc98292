package ledger

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// TransactionFilter narrows the journal query surface. Nil fields are
// ignored. Soft-deleted owner chains are always excluded.
type TransactionFilter struct {
	DateFrom       *time.Time
	DateTo         *time.Time
	CashRegisterID *uuid.UUID
	CurrencyID     *uuid.UUID
	EmployeeID     *uuid.UUID
	Type           *TransactionType
}

// ReportItemFilter narrows confirmed report line queries.
type ReportItemFilter struct {
	DateFrom       *time.Time
	DateTo         *time.Time
	CashRegisterID *uuid.UUID
	CurrencyID     *uuid.UUID
}

// ItemTotal aggregates confirmed report spending per expense item.
type ItemTotal struct {
	ItemID uuid.UUID
	Total  decimal.Decimal
	Count  int
}

// Queries groups the read operations shared by the pool-backed repository
// and its in-transaction view. All monetary sums default to zero.
type Queries interface {
	// CashBalance sums signed amounts for a register+currency, owner chain
	// not soft-deleted, date <= asOf when given. exclude drops one owning
	// document's rows, used when re-validating a document being re-saved.
	CashBalance(ctx context.Context, registerID, currencyID uuid.UUID, asOf *time.Time, exclude *DocumentRef) (decimal.Decimal, error)

	GetAdvancePayment(ctx context.Context, id uuid.UUID) (AdvancePayment, error)
	GetAdvanceReport(ctx context.Context, id uuid.UUID) (AdvanceReport, error)
	ListOpenAdvances(ctx context.Context, employeeID *uuid.UUID) ([]AdvancePayment, error)

	TransactionsByOwner(ctx context.Context, owner DocumentRef) ([]Transaction, error)
	TransactionByOwnerAndType(ctx context.Context, owner DocumentRef, t TransactionType) (*Transaction, error)
	FilterTransactions(ctx context.Context, f TransactionFilter) ([]Transaction, error)
	ExpenseByItem(ctx context.Context, f ReportItemFilter) ([]ItemTotal, error)

	// Advance-scoped aggregates, all excluding soft-deleted documents.
	SumAdditionalIssued(ctx context.Context, advanceID uuid.UUID) (decimal.Decimal, error)
	SumConfirmedReportTotals(ctx context.Context, advanceID uuid.UUID) (decimal.Decimal, error)
	SumReturnDocuments(ctx context.Context, advanceID uuid.UUID, exclude *uuid.UUID) (decimal.Decimal, error)
	SumReportReturns(ctx context.Context, advanceID uuid.UUID) (decimal.Decimal, error)
	SumReportAdditionals(ctx context.Context, advanceID uuid.UUID) (decimal.Decimal, error)

	// Employee-scoped aggregates for the advance balance.
	SumAdvancesIssuedByEmployee(ctx context.Context, employeeID, currencyID uuid.UUID) (decimal.Decimal, error)
	SumAdditionalIssuedByEmployee(ctx context.Context, employeeID, currencyID uuid.UUID) (decimal.Decimal, error)
	SumConfirmedReportTotalsByEmployee(ctx context.Context, employeeID, currencyID uuid.UUID) (decimal.Decimal, error)
	SumReturnTransactionsByEmployee(ctx context.Context, employeeID, currencyID uuid.UUID) (decimal.Decimal, error)
	SumReportAdditionalsByEmployee(ctx context.Context, employeeID, currencyID uuid.UUID) (decimal.Decimal, error)

	// Integrity scan support.
	ListOrphanTransactions(ctx context.Context) ([]Transaction, error)
	ListDuplicateOwnerTransactions(ctx context.Context) ([]DocumentRef, error)
}

// TxRepository exposes mutations available within a posting transaction.
type TxRepository interface {
	Queries

	SaveIncomeDocument(ctx context.Context, doc IncomeDocument) error
	SaveExpenseDocument(ctx context.Context, doc ExpenseDocument) error
	SaveAdvancePayment(ctx context.Context, doc AdvancePayment) error
	SaveAdditionalAdvancePayment(ctx context.Context, doc AdditionalAdvancePayment) error
	SaveAdvanceReport(ctx context.Context, doc AdvanceReport) error
	SaveAdvanceReturn(ctx context.Context, doc AdvanceReturn) error
	SaveCashTransfer(ctx context.Context, doc CashTransfer) error
	SaveCurrencyConversion(ctx context.Context, doc CurrencyConversion) error

	CloseAdvancePayment(ctx context.Context, id uuid.UUID, closedAt time.Time) error

	GetAdvancePaymentForUpdate(ctx context.Context, id uuid.UUID) (AdvancePayment, error)
	GetAdvanceReportForUpdate(ctx context.Context, id uuid.UUID) (AdvanceReport, error)

	InsertTransaction(ctx context.Context, tr *Transaction) error
	UpdateTransaction(ctx context.Context, tr Transaction) error
	DeleteTransactionsByOwner(ctx context.Context, owner DocumentRef) error
	// DeleteReportTransactions removes every row owned by the report or by
	// any of its line items.
	DeleteReportTransactions(ctx context.Context, reportID uuid.UUID) error

	AcquireNumberingLock(ctx context.Context, key int64) error
	// MaxDocumentNumber parses existing PREFIX+7-digit numbers for the kind
	// and year and returns the highest numeric suffix, zero when none.
	MaxDocumentNumber(ctx context.Context, kind DocumentKind, prefix string, year int) (int, error)
}

// Repository is the ledger storage boundary.
type Repository interface {
	Queries
	WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error
}
