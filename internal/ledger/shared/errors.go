package shared

import "errors"

var (
	// ErrAmountNotPositive indicates a non-positive amount where one is required.
	ErrAmountNotPositive = errors.New("ledger: amount must be positive")
	// ErrSameRegister indicates a transfer between identical registers.
	ErrSameRegister = errors.New("ledger: source and destination registers must differ")
	// ErrSameCurrency indicates a conversion between identical currencies.
	ErrSameCurrency = errors.New("ledger: source and destination currencies must differ")
	// ErrInsufficientBalance indicates the source register cannot cover the amount.
	ErrInsufficientBalance = errors.New("ledger: insufficient cash register balance")
	// ErrRateMismatch indicates to_amount differs from from_amount*rate beyond tolerance.
	ErrRateMismatch = errors.New("ledger: destination amount does not match exchange rate")
	// ErrRateNotPositive indicates a zero or negative exchange rate.
	ErrRateNotPositive = errors.New("ledger: exchange rate must be positive")
	// ErrCategoryMismatch indicates a report line item whose category differs from the advance.
	ErrCategoryMismatch = errors.New("ledger: report line category must match the advance expense item")
	// ErrNoReportItems indicates a report confirmed without any line items.
	ErrNoReportItems = errors.New("ledger: advance report requires at least one line item")
	// ErrReturnExceedsBalance indicates a return over the unreturned advance balance.
	ErrReturnExceedsBalance = errors.New("ledger: return amount exceeds available advance balance")
	// ErrAdvanceNotFound indicates a missing source advance payment.
	ErrAdvanceNotFound = errors.New("ledger: advance payment not found")
	// ErrDocumentNotFound indicates a missing document.
	ErrDocumentNotFound = errors.New("ledger: document not found")
	// ErrNegativeReportAmount indicates a negative total/return/additional on a report.
	ErrNegativeReportAmount = errors.New("ledger: report amounts cannot be negative")

	// ErrOrphanTransaction indicates a journal row whose owning document is gone.
	// Raised only by the integrity scan; the posting invariants prevent it.
	ErrOrphanTransaction = errors.New("ledger: transaction without owning document")
	// ErrDuplicateTransaction indicates more than one journal row for a
	// single-transaction document identity.
	ErrDuplicateTransaction = errors.New("ledger: duplicate transaction for document")
)
