package refdata

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/cashdesk-erp/cashdesk/internal/platform/httpx"
)

type repository struct {
	db *pgxpool.Pool
}

// NewRepository returns a Postgres-backed Repository.
func NewRepository(db *pgxpool.Pool) Repository {
	return &repository{db: db}
}

// mapUnique converts unique violations into the duplicate sentinel so the
// handler can answer 409 instead of 500.
func mapUnique(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23505" {
		return fmt.Errorf("%w: %s", httpx.ErrDuplicate, pgErr.ConstraintName)
	}
	return err
}

func (r *repository) CreateCurrency(ctx context.Context, c Currency) (Currency, error) {
	row := r.db.QueryRow(ctx, `INSERT INTO currencies (id, code, name, symbol, is_active)
VALUES ($1,$2,$3,$4,$5) RETURNING created_at, updated_at`, c.ID, c.Code, c.Name, c.Symbol, c.IsActive)
	if err := row.Scan(&c.CreatedAt, &c.UpdatedAt); err != nil {
		return Currency{}, mapUnique(err)
	}
	return c, nil
}

func (r *repository) UpdateCurrency(ctx context.Context, c Currency) error {
	_, err := r.db.Exec(ctx, `UPDATE currencies SET code=$2, name=$3, symbol=$4, is_active=$5, updated_at=NOW() WHERE id=$1`,
		c.ID, c.Code, c.Name, c.Symbol, c.IsActive)
	return err
}

func (r *repository) GetCurrency(ctx context.Context, id uuid.UUID) (Currency, error) {
	return r.scanCurrency(r.db.QueryRow(ctx, `SELECT id, code, name, symbol, is_active, created_at, updated_at FROM currencies WHERE id=$1`, id))
}

func (r *repository) GetCurrencyByCode(ctx context.Context, code string) (Currency, error) {
	return r.scanCurrency(r.db.QueryRow(ctx, `SELECT id, code, name, symbol, is_active, created_at, updated_at FROM currencies WHERE code=$1`, code))
}

func (r *repository) scanCurrency(row pgx.Row) (Currency, error) {
	var c Currency
	err := row.Scan(&c.ID, &c.Code, &c.Name, &c.Symbol, &c.IsActive, &c.CreatedAt, &c.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return Currency{}, ErrNotFound
	}
	if err != nil {
		return Currency{}, err
	}
	return c, nil
}

func (r *repository) ListCurrencies(ctx context.Context, activeOnly bool) ([]Currency, error) {
	rows, err := r.db.Query(ctx, `SELECT id, code, name, symbol, is_active, created_at, updated_at FROM currencies
WHERE (NOT $1 OR is_active) ORDER BY code`, activeOnly)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Currency
	for rows.Next() {
		var c Currency
		if err := rows.Scan(&c.ID, &c.Code, &c.Name, &c.Symbol, &c.IsActive, &c.CreatedAt, &c.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func (r *repository) CreateCashRegister(ctx context.Context, reg CashRegister) (CashRegister, error) {
	row := r.db.QueryRow(ctx, `INSERT INTO cash_registers (id, name, code, is_active)
VALUES ($1,$2,$3,$4) RETURNING created_at, updated_at`, reg.ID, reg.Name, reg.Code, reg.IsActive)
	if err := row.Scan(&reg.CreatedAt, &reg.UpdatedAt); err != nil {
		return CashRegister{}, mapUnique(err)
	}
	return reg, nil
}

func (r *repository) UpdateCashRegister(ctx context.Context, reg CashRegister) error {
	_, err := r.db.Exec(ctx, `UPDATE cash_registers SET name=$2, code=$3, is_active=$4, updated_at=NOW() WHERE id=$1`,
		reg.ID, reg.Name, reg.Code, reg.IsActive)
	return err
}

func (r *repository) GetCashRegister(ctx context.Context, id uuid.UUID) (CashRegister, error) {
	var reg CashRegister
	err := r.db.QueryRow(ctx, `SELECT id, name, code, is_active, created_at, updated_at FROM cash_registers WHERE id=$1`, id).
		Scan(&reg.ID, &reg.Name, &reg.Code, &reg.IsActive, &reg.CreatedAt, &reg.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return CashRegister{}, ErrNotFound
	}
	if err != nil {
		return CashRegister{}, err
	}
	return reg, nil
}

func (r *repository) ListCashRegisters(ctx context.Context, activeOnly bool) ([]CashRegister, error) {
	rows, err := r.db.Query(ctx, `SELECT id, name, code, is_active, created_at, updated_at FROM cash_registers
WHERE (NOT $1 OR is_active) ORDER BY name`, activeOnly)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []CashRegister
	for rows.Next() {
		var reg CashRegister
		if err := rows.Scan(&reg.ID, &reg.Name, &reg.Code, &reg.IsActive, &reg.CreatedAt, &reg.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, reg)
	}
	return out, rows.Err()
}

func (r *repository) CreateExpenseItem(ctx context.Context, i ExpenseItem) (ExpenseItem, error) {
	row := r.db.QueryRow(ctx, `INSERT INTO expense_items (id, name, type, parent_id, is_active)
VALUES ($1,$2,$3,$4,$5) RETURNING created_at, updated_at`, i.ID, i.Name, i.Type, i.ParentID, i.IsActive)
	if err := row.Scan(&i.CreatedAt, &i.UpdatedAt); err != nil {
		return ExpenseItem{}, err
	}
	return i, nil
}

func (r *repository) UpdateExpenseItem(ctx context.Context, i ExpenseItem) error {
	_, err := r.db.Exec(ctx, `UPDATE expense_items SET name=$2, type=$3, parent_id=$4, is_active=$5, updated_at=NOW() WHERE id=$1`,
		i.ID, i.Name, i.Type, i.ParentID, i.IsActive)
	return err
}

func (r *repository) GetExpenseItem(ctx context.Context, id uuid.UUID) (ExpenseItem, error) {
	var i ExpenseItem
	err := r.db.QueryRow(ctx, `SELECT id, name, type, parent_id, is_active, created_at, updated_at FROM expense_items WHERE id=$1`, id).
		Scan(&i.ID, &i.Name, &i.Type, &i.ParentID, &i.IsActive, &i.CreatedAt, &i.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return ExpenseItem{}, ErrNotFound
	}
	if err != nil {
		return ExpenseItem{}, err
	}
	return i, nil
}

func (r *repository) ListExpenseItems(ctx context.Context, itemType *ItemType, activeOnly bool) ([]ExpenseItem, error) {
	rows, err := r.db.Query(ctx, `SELECT id, name, type, parent_id, is_active, created_at, updated_at FROM expense_items
WHERE ($1::text IS NULL OR type = $1) AND (NOT $2 OR is_active) ORDER BY type, name`, itemType, activeOnly)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []ExpenseItem
	for rows.Next() {
		var i ExpenseItem
		if err := rows.Scan(&i.ID, &i.Name, &i.Type, &i.ParentID, &i.IsActive, &i.CreatedAt, &i.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, i)
	}
	return out, rows.Err()
}

func (r *repository) CreateEmployee(ctx context.Context, e Employee) (Employee, error) {
	row := r.db.QueryRow(ctx, `INSERT INTO employees (id, first_name, last_name, middle_name, position, is_active)
VALUES ($1,$2,$3,$4,$5,$6) RETURNING created_at, updated_at`, e.ID, e.FirstName, e.LastName, e.MiddleName, e.Position, e.IsActive)
	if err := row.Scan(&e.CreatedAt, &e.UpdatedAt); err != nil {
		return Employee{}, err
	}
	return e, nil
}

func (r *repository) UpdateEmployee(ctx context.Context, e Employee) error {
	_, err := r.db.Exec(ctx, `UPDATE employees SET first_name=$2, last_name=$3, middle_name=$4, position=$5, is_active=$6, updated_at=NOW() WHERE id=$1`,
		e.ID, e.FirstName, e.LastName, e.MiddleName, e.Position, e.IsActive)
	return err
}

func (r *repository) GetEmployee(ctx context.Context, id uuid.UUID) (Employee, error) {
	var e Employee
	err := r.db.QueryRow(ctx, `SELECT id, first_name, last_name, middle_name, position, is_active, created_at, updated_at FROM employees WHERE id=$1`, id).
		Scan(&e.ID, &e.FirstName, &e.LastName, &e.MiddleName, &e.Position, &e.IsActive, &e.CreatedAt, &e.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return Employee{}, ErrNotFound
	}
	if err != nil {
		return Employee{}, err
	}
	return e, nil
}

func (r *repository) ListEmployees(ctx context.Context, activeOnly bool) ([]Employee, error) {
	rows, err := r.db.Query(ctx, `SELECT id, first_name, last_name, middle_name, position, is_active, created_at, updated_at FROM employees
WHERE (NOT $1 OR is_active) ORDER BY last_name, first_name, middle_name`, activeOnly)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Employee
	for rows.Next() {
		var e Employee
		if err := rows.Scan(&e.ID, &e.FirstName, &e.LastName, &e.MiddleName, &e.Position, &e.IsActive, &e.CreatedAt, &e.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

func (r *repository) CreateCurrencyRate(ctx context.Context, rate CurrencyRate) (CurrencyRate, error) {
	row := r.db.QueryRow(ctx, `INSERT INTO currency_rates (id, name, from_currency_id, to_currency_id, rate, date, is_active)
VALUES ($1,$2,$3,$4,$5,$6,$7) RETURNING created_at, updated_at`,
		rate.ID, rate.Name, rate.FromCurrencyID, rate.ToCurrencyID, rate.Rate, rate.Date, rate.IsActive)
	if err := row.Scan(&rate.CreatedAt, &rate.UpdatedAt); err != nil {
		return CurrencyRate{}, mapUnique(err)
	}
	return rate, nil
}

func (r *repository) LatestRateOnOrBefore(ctx context.Context, fromCurrencyID, toCurrencyID uuid.UUID, date time.Time) (CurrencyRate, error) {
	var rate CurrencyRate
	var rateStr string
	err := r.db.QueryRow(ctx, `SELECT id, name, from_currency_id, to_currency_id, rate::text, date, is_active, created_at, updated_at
FROM currency_rates
WHERE from_currency_id=$1 AND to_currency_id=$2 AND date <= $3 AND is_active
ORDER BY date DESC LIMIT 1`, fromCurrencyID, toCurrencyID, date).
		Scan(&rate.ID, &rate.Name, &rate.FromCurrencyID, &rate.ToCurrencyID, &rateStr, &rate.Date, &rate.IsActive, &rate.CreatedAt, &rate.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return CurrencyRate{}, ErrRateNotFound
	}
	if err != nil {
		return CurrencyRate{}, err
	}
	rate.Rate, err = decimal.NewFromString(rateStr)
	if err != nil {
		return CurrencyRate{}, err
	}
	return rate, nil
}
