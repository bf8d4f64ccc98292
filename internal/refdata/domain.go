package refdata

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// ItemType enumerates income/expense item categories.
type ItemType string

const (
	ItemTypeIncome  ItemType = "income"
	ItemTypeExpense ItemType = "expense"
)

// Currency is a lookup entry with an ISO-4217-like code.
type Currency struct {
	ID        uuid.UUID `json:"id"`
	Code      string    `json:"code"`
	Name      string    `json:"name"`
	Symbol    string    `json:"symbol"`
	IsActive  bool      `json:"is_active"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// CashRegister holds no balance of its own; balances are derived from the
// journal on demand.
type CashRegister struct {
	ID        uuid.UUID `json:"id"`
	Name      string    `json:"name"`
	Code      *string   `json:"code,omitempty"`
	IsActive  bool      `json:"is_active"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// ExpenseItem is a node in the income/expense category tree.
type ExpenseItem struct {
	ID        uuid.UUID  `json:"id"`
	Name      string     `json:"name"`
	Type      ItemType   `json:"type"`
	ParentID  *uuid.UUID `json:"parent_id,omitempty"`
	IsActive  bool       `json:"is_active"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`
}

// Employee is an accountable person who can receive cash advances.
type Employee struct {
	ID         uuid.UUID `json:"id"`
	FirstName  string    `json:"first_name"`
	LastName   string    `json:"last_name"`
	MiddleName string    `json:"middle_name"`
	Position   string    `json:"position"`
	IsActive   bool      `json:"is_active"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// FullName composes "Last First Middle", skipping a blank middle name.
func (e Employee) FullName() string {
	parts := []string{e.LastName, e.FirstName}
	if e.MiddleName != "" {
		parts = append(parts, e.MiddleName)
	}
	return strings.Join(parts, " ")
}

// CurrencyRate is a dated exchange rate between two currencies, unique per
// (from, to, date). Lookups use the rate on or before the requested date.
type CurrencyRate struct {
	ID             uuid.UUID       `json:"id"`
	Name           string          `json:"name"`
	FromCurrencyID uuid.UUID       `json:"from_currency_id"`
	ToCurrencyID   uuid.UUID       `json:"to_currency_id"`
	Rate           decimal.Decimal `json:"rate"`
	Date           time.Time       `json:"date"`
	IsActive       bool            `json:"is_active"`
	CreatedAt      time.Time       `json:"created_at"`
	UpdatedAt      time.Time       `json:"updated_at"`
}

// RegisterBalance pairs a currency code with a derived balance, used for
// picker display lines.
type RegisterBalance struct {
	CurrencyCode string          `json:"currency_code"`
	Balance      decimal.Decimal `json:"balance"`
}
