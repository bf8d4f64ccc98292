package refdata

import (
	"fmt"
	"strings"

	"github.com/cashdesk-erp/cashdesk/internal/platform/httpx"
)

func validateCurrency(c Currency) error {
	if len(c.Code) != 3 {
		return fmt.Errorf("%w: currency code must be three letters", httpx.ErrValidation)
	}
	if strings.TrimSpace(c.Name) == "" {
		return fmt.Errorf("%w: currency name is required", httpx.ErrValidation)
	}
	return nil
}

func validateCashRegister(r CashRegister) error {
	if strings.TrimSpace(r.Name) == "" {
		return fmt.Errorf("%w: cash register name is required", httpx.ErrValidation)
	}
	return nil
}

func validateExpenseItem(i ExpenseItem) error {
	if strings.TrimSpace(i.Name) == "" {
		return fmt.Errorf("%w: item name is required", httpx.ErrValidation)
	}
	if i.Type != ItemTypeIncome && i.Type != ItemTypeExpense {
		return fmt.Errorf("%w: item type must be income or expense", httpx.ErrValidation)
	}
	return nil
}

func validateEmployee(e Employee) error {
	if strings.TrimSpace(e.FirstName) == "" || strings.TrimSpace(e.LastName) == "" {
		return fmt.Errorf("%w: employee first and last name are required", httpx.ErrValidation)
	}
	return nil
}

func validateCurrencyRate(r CurrencyRate) error {
	if r.FromCurrencyID == r.ToCurrencyID {
		return fmt.Errorf("%w: rate currencies must differ", httpx.ErrValidation)
	}
	if !r.Rate.IsPositive() {
		return fmt.Errorf("%w: exchange rate must be positive", httpx.ErrValidation)
	}
	if r.Date.IsZero() {
		return fmt.Errorf("%w: rate date is required", httpx.ErrValidation)
	}
	return nil
}
