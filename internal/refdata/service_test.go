package refdata

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cashdesk-erp/cashdesk/internal/platform/httpx"
)

type memRepo struct {
	currencies map[uuid.UUID]Currency
	registers  map[uuid.UUID]CashRegister
	items      map[uuid.UUID]ExpenseItem
	employees  map[uuid.UUID]Employee
	rates      []CurrencyRate
}

func newMemRepo() *memRepo {
	return &memRepo{
		currencies: map[uuid.UUID]Currency{},
		registers:  map[uuid.UUID]CashRegister{},
		items:      map[uuid.UUID]ExpenseItem{},
		employees:  map[uuid.UUID]Employee{},
	}
}

func (m *memRepo) CreateCurrency(_ context.Context, c Currency) (Currency, error) {
	for _, existing := range m.currencies {
		if existing.Code == c.Code {
			return Currency{}, httpx.ErrDuplicate
		}
	}
	m.currencies[c.ID] = c
	return c, nil
}

func (m *memRepo) UpdateCurrency(_ context.Context, c Currency) error {
	if _, ok := m.currencies[c.ID]; !ok {
		return ErrNotFound
	}
	m.currencies[c.ID] = c
	return nil
}

func (m *memRepo) GetCurrency(_ context.Context, id uuid.UUID) (Currency, error) {
	c, ok := m.currencies[id]
	if !ok {
		return Currency{}, ErrNotFound
	}
	return c, nil
}

func (m *memRepo) GetCurrencyByCode(_ context.Context, code string) (Currency, error) {
	for _, c := range m.currencies {
		if c.Code == code {
			return c, nil
		}
	}
	return Currency{}, ErrNotFound
}

func (m *memRepo) ListCurrencies(_ context.Context, activeOnly bool) ([]Currency, error) {
	var out []Currency
	for _, c := range m.currencies {
		if !activeOnly || c.IsActive {
			out = append(out, c)
		}
	}
	return out, nil
}

func (m *memRepo) CreateCashRegister(_ context.Context, r CashRegister) (CashRegister, error) {
	m.registers[r.ID] = r
	return r, nil
}

func (m *memRepo) UpdateCashRegister(_ context.Context, r CashRegister) error {
	if _, ok := m.registers[r.ID]; !ok {
		return ErrNotFound
	}
	m.registers[r.ID] = r
	return nil
}

func (m *memRepo) GetCashRegister(_ context.Context, id uuid.UUID) (CashRegister, error) {
	r, ok := m.registers[id]
	if !ok {
		return CashRegister{}, ErrNotFound
	}
	return r, nil
}

func (m *memRepo) ListCashRegisters(_ context.Context, activeOnly bool) ([]CashRegister, error) {
	var out []CashRegister
	for _, r := range m.registers {
		if !activeOnly || r.IsActive {
			out = append(out, r)
		}
	}
	return out, nil
}

func (m *memRepo) CreateExpenseItem(_ context.Context, i ExpenseItem) (ExpenseItem, error) {
	m.items[i.ID] = i
	return i, nil
}

func (m *memRepo) UpdateExpenseItem(_ context.Context, i ExpenseItem) error {
	if _, ok := m.items[i.ID]; !ok {
		return ErrNotFound
	}
	m.items[i.ID] = i
	return nil
}

func (m *memRepo) GetExpenseItem(_ context.Context, id uuid.UUID) (ExpenseItem, error) {
	i, ok := m.items[id]
	if !ok {
		return ExpenseItem{}, ErrNotFound
	}
	return i, nil
}

func (m *memRepo) ListExpenseItems(_ context.Context, itemType *ItemType, activeOnly bool) ([]ExpenseItem, error) {
	var out []ExpenseItem
	for _, i := range m.items {
		if itemType != nil && i.Type != *itemType {
			continue
		}
		if activeOnly && !i.IsActive {
			continue
		}
		out = append(out, i)
	}
	return out, nil
}

func (m *memRepo) CreateEmployee(_ context.Context, e Employee) (Employee, error) {
	m.employees[e.ID] = e
	return e, nil
}

func (m *memRepo) UpdateEmployee(_ context.Context, e Employee) error {
	if _, ok := m.employees[e.ID]; !ok {
		return ErrNotFound
	}
	m.employees[e.ID] = e
	return nil
}

func (m *memRepo) GetEmployee(_ context.Context, id uuid.UUID) (Employee, error) {
	e, ok := m.employees[id]
	if !ok {
		return Employee{}, ErrNotFound
	}
	return e, nil
}

func (m *memRepo) ListEmployees(_ context.Context, activeOnly bool) ([]Employee, error) {
	var out []Employee
	for _, e := range m.employees {
		if !activeOnly || e.IsActive {
			out = append(out, e)
		}
	}
	return out, nil
}

func (m *memRepo) CreateCurrencyRate(_ context.Context, r CurrencyRate) (CurrencyRate, error) {
	m.rates = append(m.rates, r)
	return r, nil
}

func (m *memRepo) LatestRateOnOrBefore(_ context.Context, fromCurrencyID, toCurrencyID uuid.UUID, date time.Time) (CurrencyRate, error) {
	var best *CurrencyRate
	for i := range m.rates {
		r := m.rates[i]
		if r.FromCurrencyID != fromCurrencyID || r.ToCurrencyID != toCurrencyID || !r.IsActive {
			continue
		}
		if r.Date.After(date) {
			continue
		}
		if best == nil || r.Date.After(best.Date) {
			best = &m.rates[i]
		}
	}
	if best == nil {
		return CurrencyRate{}, ErrRateNotFound
	}
	return *best, nil
}

func day(s string) time.Time {
	d, err := time.Parse("2006-01-02", s)
	if err != nil {
		panic(err)
	}
	return d
}

func seedCurrency(t *testing.T, svc *Service, code string) Currency {
	t.Helper()
	c, err := svc.CreateCurrency(context.Background(), Currency{Code: code, Name: code, IsActive: true})
	require.NoError(t, err)
	return c
}

func TestCreateCurrencyNormalizesCode(t *testing.T) {
	svc := NewService(newMemRepo())

	c, err := svc.CreateCurrency(context.Background(), Currency{Code: " usd ", Name: "US Dollar"})
	require.NoError(t, err)
	assert.Equal(t, "USD", c.Code)
	assert.NotEqual(t, uuid.Nil, c.ID)
}

func TestCreateCurrencyRejectsBadCode(t *testing.T) {
	svc := NewService(newMemRepo())

	_, err := svc.CreateCurrency(context.Background(), Currency{Code: "DOLLARS", Name: "x"})
	assert.ErrorIs(t, err, httpx.ErrValidation)
}

func TestCreateCurrencyDuplicateCode(t *testing.T) {
	svc := NewService(newMemRepo())
	seedCurrency(t, svc, "USD")

	_, err := svc.CreateCurrency(context.Background(), Currency{Code: "USD", Name: "again"})
	assert.ErrorIs(t, err, httpx.ErrDuplicate)
}

func TestCreateExpenseItemRejectsUnknownType(t *testing.T) {
	svc := NewService(newMemRepo())

	_, err := svc.CreateExpenseItem(context.Background(), ExpenseItem{Name: "Travel", Type: "transfer"})
	assert.ErrorIs(t, err, httpx.ErrValidation)
}

func TestCreateRateAutoNamesFromPair(t *testing.T) {
	svc := NewService(newMemRepo())
	usd := seedCurrency(t, svc, "USD")
	eur := seedCurrency(t, svc, "EUR")

	r, err := svc.CreateCurrencyRate(context.Background(), CurrencyRate{
		FromCurrencyID: usd.ID,
		ToCurrencyID:   eur.ID,
		Rate:           decimal.RequireFromString("1.234"),
		Date:           day("2025-03-01"),
		IsActive:       true,
	})
	require.NoError(t, err)
	assert.Equal(t, "USD - 1.23 - EUR", r.Name)
}

func TestCreateRateRejectsSamePairAndZeroRate(t *testing.T) {
	svc := NewService(newMemRepo())
	usd := seedCurrency(t, svc, "USD")
	eur := seedCurrency(t, svc, "EUR")

	_, err := svc.CreateCurrencyRate(context.Background(), CurrencyRate{
		FromCurrencyID: usd.ID,
		ToCurrencyID:   usd.ID,
		Rate:           decimal.NewFromInt(1),
		Date:           day("2025-03-01"),
	})
	assert.ErrorIs(t, err, httpx.ErrValidation)

	_, err = svc.CreateCurrencyRate(context.Background(), CurrencyRate{
		FromCurrencyID: usd.ID,
		ToCurrencyID:   eur.ID,
		Rate:           decimal.Zero,
		Date:           day("2025-03-01"),
	})
	assert.ErrorIs(t, err, httpx.ErrValidation)
}

func TestRateUsesNearestPriorDate(t *testing.T) {
	svc := NewService(newMemRepo())
	usd := seedCurrency(t, svc, "USD")
	eur := seedCurrency(t, svc, "EUR")
	ctx := context.Background()

	for date, rate := range map[string]string{
		"2025-03-01": "1.10",
		"2025-03-10": "1.20",
		"2025-03-20": "1.30",
	} {
		_, err := svc.CreateCurrencyRate(ctx, CurrencyRate{
			FromCurrencyID: usd.ID,
			ToCurrencyID:   eur.ID,
			Rate:           decimal.RequireFromString(rate),
			Date:           day(date),
			IsActive:       true,
		})
		require.NoError(t, err)
	}

	rate, found, err := svc.Rate(ctx, usd.ID, eur.ID, day("2025-03-15"))
	require.NoError(t, err)
	require.True(t, found)
	assert.True(t, rate.Equal(decimal.RequireFromString("1.20")))
}

func TestRateMissingIsNotAnError(t *testing.T) {
	svc := NewService(newMemRepo())

	rate, found, err := svc.Rate(context.Background(), uuid.New(), uuid.New(), day("2025-03-15"))
	require.NoError(t, err)
	assert.False(t, found)
	assert.True(t, rate.IsZero())
}

func TestEmployeeFullName(t *testing.T) {
	e := Employee{FirstName: "Anna", LastName: "Karimova", MiddleName: "S."}
	assert.Equal(t, "Karimova Anna S.", e.FullName())

	e.MiddleName = ""
	assert.Equal(t, "Karimova Anna", e.FullName())
}

func TestBalancesLineSkipsZeroBalances(t *testing.T) {
	line := BalancesLine([]RegisterBalance{
		{CurrencyCode: "USD", Balance: decimal.RequireFromString("1234.5")},
		{CurrencyCode: "EUR", Balance: decimal.Zero},
		{CurrencyCode: "UZS", Balance: decimal.RequireFromString("10")},
	})
	assert.Equal(t, "USD: 1234.50, UZS: 10.00", line)
}
