package refdata

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Repository encapsulates DB operations for reference data.
type Repository interface {
	CreateCurrency(ctx context.Context, c Currency) (Currency, error)
	UpdateCurrency(ctx context.Context, c Currency) error
	GetCurrency(ctx context.Context, id uuid.UUID) (Currency, error)
	GetCurrencyByCode(ctx context.Context, code string) (Currency, error)
	ListCurrencies(ctx context.Context, activeOnly bool) ([]Currency, error)

	CreateCashRegister(ctx context.Context, r CashRegister) (CashRegister, error)
	UpdateCashRegister(ctx context.Context, r CashRegister) error
	GetCashRegister(ctx context.Context, id uuid.UUID) (CashRegister, error)
	ListCashRegisters(ctx context.Context, activeOnly bool) ([]CashRegister, error)

	CreateExpenseItem(ctx context.Context, i ExpenseItem) (ExpenseItem, error)
	UpdateExpenseItem(ctx context.Context, i ExpenseItem) error
	GetExpenseItem(ctx context.Context, id uuid.UUID) (ExpenseItem, error)
	ListExpenseItems(ctx context.Context, itemType *ItemType, activeOnly bool) ([]ExpenseItem, error)

	CreateEmployee(ctx context.Context, e Employee) (Employee, error)
	UpdateEmployee(ctx context.Context, e Employee) error
	GetEmployee(ctx context.Context, id uuid.UUID) (Employee, error)
	ListEmployees(ctx context.Context, activeOnly bool) ([]Employee, error)

	CreateCurrencyRate(ctx context.Context, r CurrencyRate) (CurrencyRate, error)
	// LatestRateOnOrBefore returns the newest active rate whose date is on
	// or before the given date, or ErrRateNotFound.
	LatestRateOnOrBefore(ctx context.Context, fromCurrencyID, toCurrencyID uuid.UUID, date time.Time) (CurrencyRate, error)
}
