package refdata

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

var (
	// ErrRateNotFound indicates no rate exists on or before the requested date.
	ErrRateNotFound = errors.New("refdata: currency rate not found")
	// ErrNotFound indicates a missing reference row.
	ErrNotFound = errors.New("refdata: not found")
)

// Service provides validated access to the reference catalogues.
type Service struct {
	repo Repository
	now  func() time.Time
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo, now: time.Now}
}

func (s *Service) WithNow(now func() time.Time) {
	if now != nil {
		s.now = now
	}
}

func (s *Service) CreateCurrency(ctx context.Context, c Currency) (Currency, error) {
	c.Code = strings.ToUpper(strings.TrimSpace(c.Code))
	if err := validateCurrency(c); err != nil {
		return Currency{}, err
	}
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	return s.repo.CreateCurrency(ctx, c)
}

func (s *Service) ListCurrencies(ctx context.Context, activeOnly bool) ([]Currency, error) {
	return s.repo.ListCurrencies(ctx, activeOnly)
}

func (s *Service) CreateCashRegister(ctx context.Context, r CashRegister) (CashRegister, error) {
	if err := validateCashRegister(r); err != nil {
		return CashRegister{}, err
	}
	if r.ID == uuid.Nil {
		r.ID = uuid.New()
	}
	return s.repo.CreateCashRegister(ctx, r)
}

func (s *Service) ListCashRegisters(ctx context.Context, activeOnly bool) ([]CashRegister, error) {
	return s.repo.ListCashRegisters(ctx, activeOnly)
}

func (s *Service) CreateExpenseItem(ctx context.Context, i ExpenseItem) (ExpenseItem, error) {
	if err := validateExpenseItem(i); err != nil {
		return ExpenseItem{}, err
	}
	if i.ID == uuid.Nil {
		i.ID = uuid.New()
	}
	return s.repo.CreateExpenseItem(ctx, i)
}

func (s *Service) ListExpenseItems(ctx context.Context, itemType *ItemType, activeOnly bool) ([]ExpenseItem, error) {
	return s.repo.ListExpenseItems(ctx, itemType, activeOnly)
}

func (s *Service) CreateEmployee(ctx context.Context, e Employee) (Employee, error) {
	if err := validateEmployee(e); err != nil {
		return Employee{}, err
	}
	if e.ID == uuid.Nil {
		e.ID = uuid.New()
	}
	return s.repo.CreateEmployee(ctx, e)
}

func (s *Service) ListEmployees(ctx context.Context, activeOnly bool) ([]Employee, error) {
	return s.repo.ListEmployees(ctx, activeOnly)
}

// CreateCurrencyRate stores a dated rate. A blank display name is filled
// from the pair and the rate rounded to two decimals, e.g. "USD - 1.23 - EUR".
func (s *Service) CreateCurrencyRate(ctx context.Context, r CurrencyRate) (CurrencyRate, error) {
	if err := validateCurrencyRate(r); err != nil {
		return CurrencyRate{}, err
	}
	if r.ID == uuid.Nil {
		r.ID = uuid.New()
	}
	if r.Name == "" {
		from, err := s.repo.GetCurrency(ctx, r.FromCurrencyID)
		if err != nil {
			return CurrencyRate{}, err
		}
		to, err := s.repo.GetCurrency(ctx, r.ToCurrencyID)
		if err != nil {
			return CurrencyRate{}, err
		}
		r.Name = fmt.Sprintf("%s - %s - %s", from.Code, r.Rate.StringFixed(2), to.Code)
	}
	return s.repo.CreateCurrencyRate(ctx, r)
}

// Rate returns the exchange rate for a currency pair effective on the given
// date, using the nearest prior rate when no exact match exists. The second
// return value reports whether a rate was found.
func (s *Service) Rate(ctx context.Context, fromCurrencyID, toCurrencyID uuid.UUID, date time.Time) (decimal.Decimal, bool, error) {
	rate, err := s.repo.LatestRateOnOrBefore(ctx, fromCurrencyID, toCurrencyID, date)
	if err != nil {
		if errors.Is(err, ErrRateNotFound) {
			return decimal.Zero, false, nil
		}
		return decimal.Zero, false, err
	}
	return rate.Rate, true, nil
}

// BalancesLine renders "USD: 1234.50, EUR: 10.00" style balance summaries
// for register pickers, skipping zero balances.
func BalancesLine(balances []RegisterBalance) string {
	parts := make([]string, 0, len(balances))
	for _, b := range balances {
		if b.Balance.IsZero() {
			continue
		}
		parts = append(parts, fmt.Sprintf("%s: %s", b.CurrencyCode, b.Balance.StringFixed(2)))
	}
	return strings.Join(parts, ", ")
}
