package ledger

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/cashdesk-erp/cashdesk/internal/ledger/shared"
	"github.com/cashdesk-erp/cashdesk/internal/platform/db"
)

// DBTX is satisfied by both *pgxpool.Pool and pgx.Tx so the same query code
// serves reads on the pool and reads inside a posting transaction.
type DBTX interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

type repository struct {
	pool *pgxpool.Pool
	queries
}

// NewRepository returns a Postgres-backed ledger Repository.
func NewRepository(pool *pgxpool.Pool) Repository {
	return &repository{pool: pool, queries: queries{db: pool}}
}

func (r *repository) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	return db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		return fn(ctx, &txRepository{queries: queries{db: tx}})
	})
}

type txRepository struct {
	queries
}

type queries struct {
	db DBTX
}

// ownerDocJoin resolves a transaction's owner to its governing document row:
// line items resolve through their report, everything else owns a document
// directly.
const ownerDocJoin = `
LEFT JOIN advance_report_items ri ON t.owner_kind = 'advance_report_item' AND ri.id = t.owner_id
JOIN documents d ON d.id = CASE WHEN t.owner_kind = 'advance_report_item' THEN ri.report_id ELSE t.owner_id END`

const transactionColumns = `t.id, t.date, t.type, t.amount::text, t.description, t.cash_register_id, t.currency_id,
t.item_id, t.employee_id, t.owner_kind, t.owner_id, t.advance_payment_id, t.created_at, t.created_by`

func scanTransaction(row pgx.Row) (Transaction, error) {
	var t Transaction
	var amount string
	err := row.Scan(&t.ID, &t.Date, &t.Type, &amount, &t.Description, &t.CashRegisterID, &t.CurrencyID,
		&t.ItemID, &t.EmployeeID, &t.Owner.Kind, &t.Owner.ID, &t.AdvancePaymentID, &t.CreatedAt, &t.CreatedBy)
	if err != nil {
		return Transaction{}, err
	}
	t.Amount, err = decimal.NewFromString(amount)
	if err != nil {
		return Transaction{}, err
	}
	return t, nil
}

func (q queries) sumQuery(ctx context.Context, sql string, args ...any) (decimal.Decimal, error) {
	var total string
	if err := q.db.QueryRow(ctx, sql, args...).Scan(&total); err != nil {
		return decimal.Zero, err
	}
	return decimal.NewFromString(total)
}

func (q queries) CashBalance(ctx context.Context, registerID, currencyID uuid.UUID, asOf *time.Time, exclude *DocumentRef) (decimal.Decimal, error) {
	var excludeKind *string
	var excludeID *uuid.UUID
	if exclude != nil {
		kind := string(exclude.Kind)
		excludeKind = &kind
		excludeID = &exclude.ID
	}
	return q.sumQuery(ctx, `SELECT COALESCE(SUM(t.amount), 0)::text FROM transactions t`+ownerDocJoin+`
WHERE t.cash_register_id = $1 AND t.currency_id = $2 AND NOT d.is_deleted
  AND ($3::timestamptz IS NULL OR t.date <= $3)
  AND ($4::text IS NULL OR NOT (t.owner_kind = $4 AND t.owner_id = $5))`,
		registerID, currencyID, asOf, excludeKind, excludeID)
}

func (q queries) GetAdvancePayment(ctx context.Context, id uuid.UUID) (AdvancePayment, error) {
	return q.getAdvancePayment(ctx, id, false)
}

func (q queries) getAdvancePayment(ctx context.Context, id uuid.UUID, forUpdate bool) (AdvancePayment, error) {
	sql := `SELECT d.id, d.number, d.date, d.is_posted, d.is_deleted, d.created_at, d.updated_at,
ap.employee_id, ap.cash_register_id, ap.currency_id, ap.amount::text, ap.expense_item_id, ap.purpose, ap.is_closed, ap.closed_at
FROM documents d JOIN advance_payments ap ON ap.document_id = d.id WHERE d.id = $1`
	if forUpdate {
		sql += ` FOR UPDATE`
	}
	var doc AdvancePayment
	var amount string
	err := q.db.QueryRow(ctx, sql, id).Scan(
		&doc.ID, &doc.Number, &doc.Date, &doc.IsPosted, &doc.IsDeleted, &doc.CreatedAt, &doc.UpdatedAt,
		&doc.EmployeeID, &doc.CashRegisterID, &doc.CurrencyID, &amount, &doc.ExpenseItemID, &doc.Purpose, &doc.IsClosed, &doc.ClosedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return AdvancePayment{}, shared.ErrDocumentNotFound
	}
	if err != nil {
		return AdvancePayment{}, err
	}
	doc.Amount, err = decimal.NewFromString(amount)
	if err != nil {
		return AdvancePayment{}, err
	}
	return doc, nil
}

func (q queries) GetAdvanceReport(ctx context.Context, id uuid.UUID) (AdvanceReport, error) {
	return q.getAdvanceReport(ctx, id, false)
}

func (q queries) getAdvanceReport(ctx context.Context, id uuid.UUID, forUpdate bool) (AdvanceReport, error) {
	sql := `SELECT d.id, d.number, d.date, d.is_posted, d.is_deleted, d.created_at, d.updated_at,
r.advance_payment_id, r.currency_id, r.total_amount::text, r.return_amount::text, r.additional_payment::text,
r.manual_return_amount::text, r.manual_additional_payment::text, r.close_advance_payment, r.status, r.approved_at, r.approved_by
FROM documents d JOIN advance_reports r ON r.document_id = d.id WHERE d.id = $1`
	if forUpdate {
		sql += ` FOR UPDATE`
	}
	var doc AdvanceReport
	var total, ret, add, manualRet, manualAdd string
	err := q.db.QueryRow(ctx, sql, id).Scan(
		&doc.ID, &doc.Number, &doc.Date, &doc.IsPosted, &doc.IsDeleted, &doc.CreatedAt, &doc.UpdatedAt,
		&doc.AdvancePaymentID, &doc.CurrencyID, &total, &ret, &add, &manualRet, &manualAdd,
		&doc.CloseAdvancePayment, &doc.Status, &doc.ApprovedAt, &doc.ApprovedBy)
	if errors.Is(err, pgx.ErrNoRows) {
		return AdvanceReport{}, shared.ErrDocumentNotFound
	}
	if err != nil {
		return AdvanceReport{}, err
	}
	for _, f := range []struct {
		src string
		dst *decimal.Decimal
	}{
		{total, &doc.TotalAmount}, {ret, &doc.ReturnAmount}, {add, &doc.AdditionalPayment},
		{manualRet, &doc.ManualReturnAmount}, {manualAdd, &doc.ManualAdditionalPayment},
	} {
		v, err := decimal.NewFromString(f.src)
		if err != nil {
			return AdvanceReport{}, err
		}
		*f.dst = v
	}
	rows, err := q.db.Query(ctx, `SELECT id, report_id, item_id, amount::text, description, date
FROM advance_report_items WHERE report_id = $1 ORDER BY date, id`, id)
	if err != nil {
		return AdvanceReport{}, err
	}
	defer rows.Close()
	for rows.Next() {
		var item AdvanceReportItem
		var amount string
		if err := rows.Scan(&item.ID, &item.ReportID, &item.ItemID, &amount, &item.Description, &item.Date); err != nil {
			return AdvanceReport{}, err
		}
		if item.Amount, err = decimal.NewFromString(amount); err != nil {
			return AdvanceReport{}, err
		}
		doc.Items = append(doc.Items, item)
	}
	return doc, rows.Err()
}

func (q queries) ListOpenAdvances(ctx context.Context, employeeID *uuid.UUID) ([]AdvancePayment, error) {
	rows, err := q.db.Query(ctx, `SELECT d.id, d.number, d.date, d.is_posted, d.is_deleted, d.created_at, d.updated_at,
ap.employee_id, ap.cash_register_id, ap.currency_id, ap.amount::text, ap.expense_item_id, ap.purpose, ap.is_closed, ap.closed_at
FROM documents d JOIN advance_payments ap ON ap.document_id = d.id
WHERE NOT d.is_deleted AND NOT ap.is_closed AND ($1::uuid IS NULL OR ap.employee_id = $1)
ORDER BY d.date DESC`, employeeID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []AdvancePayment
	for rows.Next() {
		var doc AdvancePayment
		var amount string
		if err := rows.Scan(&doc.ID, &doc.Number, &doc.Date, &doc.IsPosted, &doc.IsDeleted, &doc.CreatedAt, &doc.UpdatedAt,
			&doc.EmployeeID, &doc.CashRegisterID, &doc.CurrencyID, &amount, &doc.ExpenseItemID, &doc.Purpose, &doc.IsClosed, &doc.ClosedAt); err != nil {
			return nil, err
		}
		if doc.Amount, err = decimal.NewFromString(amount); err != nil {
			return nil, err
		}
		out = append(out, doc)
	}
	return out, rows.Err()
}

func (q queries) TransactionsByOwner(ctx context.Context, owner DocumentRef) ([]Transaction, error) {
	rows, err := q.db.Query(ctx, `SELECT `+transactionColumns+` FROM transactions t
WHERE t.owner_kind = $1 AND t.owner_id = $2 ORDER BY t.id`, owner.Kind, owner.ID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Transaction
	for rows.Next() {
		t, err := scanTransaction(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

func (q queries) TransactionByOwnerAndType(ctx context.Context, owner DocumentRef, tt TransactionType) (*Transaction, error) {
	t, err := scanTransaction(q.db.QueryRow(ctx, `SELECT `+transactionColumns+` FROM transactions t
WHERE t.owner_kind = $1 AND t.owner_id = $2 AND t.type = $3 LIMIT 1`, owner.Kind, owner.ID, tt))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &t, nil
}

func (q queries) FilterTransactions(ctx context.Context, f TransactionFilter) ([]Transaction, error) {
	rows, err := q.db.Query(ctx, `SELECT `+transactionColumns+` FROM transactions t`+ownerDocJoin+`
WHERE NOT d.is_deleted
  AND ($1::timestamptz IS NULL OR t.date >= $1)
  AND ($2::timestamptz IS NULL OR t.date <= $2)
  AND ($3::uuid IS NULL OR t.cash_register_id = $3)
  AND ($4::uuid IS NULL OR t.currency_id = $4)
  AND ($5::uuid IS NULL OR t.employee_id = $5)
  AND ($6::text IS NULL OR t.type = $6)
ORDER BY t.date DESC, t.id DESC`,
		f.DateFrom, f.DateTo, f.CashRegisterID, f.CurrencyID, f.EmployeeID, f.Type)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Transaction
	for rows.Next() {
		t, err := scanTransaction(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

func (q queries) ExpenseByItem(ctx context.Context, f ReportItemFilter) ([]ItemTotal, error) {
	rows, err := q.db.Query(ctx, `SELECT t.item_id, COALESCE(SUM(-t.amount), 0)::text, COUNT(*) FROM transactions t`+ownerDocJoin+`
WHERE t.type = 'advance_report' AND NOT d.is_deleted
  AND ($1::timestamptz IS NULL OR t.date >= $1)
  AND ($2::timestamptz IS NULL OR t.date <= $2)
  AND ($3::uuid IS NULL OR t.cash_register_id = $3)
  AND ($4::uuid IS NULL OR t.currency_id = $4)
GROUP BY t.item_id ORDER BY t.item_id`,
		f.DateFrom, f.DateTo, f.CashRegisterID, f.CurrencyID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []ItemTotal
	for rows.Next() {
		var row ItemTotal
		var total string
		if err := rows.Scan(&row.ItemID, &total, &row.Count); err != nil {
			return nil, err
		}
		if row.Total, err = decimal.NewFromString(total); err != nil {
			return nil, err
		}
		out = append(out, row)
	}
	return out, rows.Err()
}

func (q queries) SumAdditionalIssued(ctx context.Context, advanceID uuid.UUID) (decimal.Decimal, error) {
	return q.sumQuery(ctx, `SELECT COALESCE(SUM(a.amount), 0)::text
FROM additional_advance_payments a JOIN documents d ON d.id = a.document_id
WHERE a.original_advance_id = $1 AND NOT d.is_deleted`, advanceID)
}

func (q queries) SumConfirmedReportTotals(ctx context.Context, advanceID uuid.UUID) (decimal.Decimal, error) {
	return q.sumQuery(ctx, `SELECT COALESCE(SUM(r.total_amount), 0)::text
FROM advance_reports r JOIN documents d ON d.id = r.document_id
WHERE r.advance_payment_id = $1 AND r.status = 'confirmed' AND NOT d.is_deleted`, advanceID)
}

func (q queries) SumReturnDocuments(ctx context.Context, advanceID uuid.UUID, exclude *uuid.UUID) (decimal.Decimal, error) {
	return q.sumQuery(ctx, `SELECT COALESCE(SUM(ar.amount), 0)::text
FROM advance_returns ar JOIN documents d ON d.id = ar.document_id
WHERE ar.advance_payment_id = $1 AND NOT d.is_deleted AND ($2::uuid IS NULL OR ar.document_id <> $2)`, advanceID, exclude)
}

func (q queries) SumReportReturns(ctx context.Context, advanceID uuid.UUID) (decimal.Decimal, error) {
	return q.sumQuery(ctx, `SELECT COALESCE(SUM(t.amount), 0)::text
FROM transactions t JOIN documents d ON d.id = t.owner_id
WHERE t.advance_payment_id = $1 AND t.type = 'advance_return_report' AND NOT d.is_deleted`, advanceID)
}

func (q queries) SumReportAdditionals(ctx context.Context, advanceID uuid.UUID) (decimal.Decimal, error) {
	return q.sumQuery(ctx, `SELECT COALESCE(SUM(t.amount), 0)::text
FROM transactions t JOIN documents d ON d.id = t.owner_id
WHERE t.advance_payment_id = $1 AND t.type = 'advance_additional' AND NOT d.is_deleted`, advanceID)
}

func (q queries) SumAdvancesIssuedByEmployee(ctx context.Context, employeeID, currencyID uuid.UUID) (decimal.Decimal, error) {
	return q.sumQuery(ctx, `SELECT COALESCE(SUM(ap.amount), 0)::text
FROM advance_payments ap JOIN documents d ON d.id = ap.document_id
WHERE ap.employee_id = $1 AND ap.currency_id = $2 AND NOT d.is_deleted`, employeeID, currencyID)
}

func (q queries) SumAdditionalIssuedByEmployee(ctx context.Context, employeeID, currencyID uuid.UUID) (decimal.Decimal, error) {
	return q.sumQuery(ctx, `SELECT COALESCE(SUM(a.amount), 0)::text
FROM additional_advance_payments a
JOIN documents d ON d.id = a.document_id
JOIN advance_payments orig ON orig.document_id = a.original_advance_id
WHERE orig.employee_id = $1 AND orig.currency_id = $2 AND NOT d.is_deleted`, employeeID, currencyID)
}

func (q queries) SumConfirmedReportTotalsByEmployee(ctx context.Context, employeeID, currencyID uuid.UUID) (decimal.Decimal, error) {
	return q.sumQuery(ctx, `SELECT COALESCE(SUM(r.total_amount), 0)::text
FROM advance_reports r
JOIN documents d ON d.id = r.document_id
JOIN advance_payments ap ON ap.document_id = r.advance_payment_id
WHERE ap.employee_id = $1 AND ap.currency_id = $2 AND r.status = 'confirmed' AND NOT d.is_deleted`, employeeID, currencyID)
}

func (q queries) SumReturnTransactionsByEmployee(ctx context.Context, employeeID, currencyID uuid.UUID) (decimal.Decimal, error) {
	return q.sumQuery(ctx, `SELECT COALESCE(SUM(t.amount), 0)::text FROM transactions t`+ownerDocJoin+`
WHERE t.employee_id = $1 AND t.currency_id = $2
  AND t.type IN ('advance_return', 'advance_return_report') AND NOT d.is_deleted`, employeeID, currencyID)
}

func (q queries) SumReportAdditionalsByEmployee(ctx context.Context, employeeID, currencyID uuid.UUID) (decimal.Decimal, error) {
	return q.sumQuery(ctx, `SELECT COALESCE(SUM(t.amount), 0)::text FROM transactions t`+ownerDocJoin+`
WHERE t.employee_id = $1 AND t.currency_id = $2 AND t.type = 'advance_additional' AND NOT d.is_deleted`, employeeID, currencyID)
}

func (q queries) ListOrphanTransactions(ctx context.Context) ([]Transaction, error) {
	rows, err := q.db.Query(ctx, `SELECT `+transactionColumns+` FROM transactions t
LEFT JOIN advance_report_items ri ON t.owner_kind = 'advance_report_item' AND ri.id = t.owner_id
LEFT JOIN documents d ON d.id = CASE WHEN t.owner_kind = 'advance_report_item' THEN ri.report_id ELSE t.owner_id END
WHERE d.id IS NULL ORDER BY t.id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Transaction
	for rows.Next() {
		t, err := scanTransaction(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

func (q queries) ListDuplicateOwnerTransactions(ctx context.Context) ([]DocumentRef, error) {
	rows, err := q.db.Query(ctx, `
SELECT owner_kind, owner_id FROM transactions
WHERE owner_kind NOT IN ('cash_transfer', 'currency_conversion', 'advance_report')
GROUP BY owner_kind, owner_id HAVING COUNT(*) > 1
UNION ALL
SELECT owner_kind, owner_id FROM transactions
WHERE owner_kind IN ('cash_transfer', 'currency_conversion')
GROUP BY owner_kind, owner_id HAVING COUNT(*) > 2
UNION ALL
SELECT owner_kind, owner_id FROM transactions
WHERE owner_kind = 'advance_report'
GROUP BY owner_kind, owner_id, type HAVING COUNT(*) > 1`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []DocumentRef
	for rows.Next() {
		var ref DocumentRef
		if err := rows.Scan(&ref.Kind, &ref.ID); err != nil {
			return nil, err
		}
		out = append(out, ref)
	}
	return out, rows.Err()
}

// --- mutations, available only inside a posting transaction ---

func (r *txRepository) saveDocumentMeta(ctx context.Context, kind DocumentKind, meta DocumentMeta) error {
	_, err := r.db.Exec(ctx, `INSERT INTO documents (id, kind, number, date, is_posted, is_deleted)
VALUES ($1,$2,$3,$4,$5,$6)
ON CONFLICT (id) DO UPDATE SET number = EXCLUDED.number, date = EXCLUDED.date,
  is_posted = EXCLUDED.is_posted, is_deleted = EXCLUDED.is_deleted, updated_at = NOW()`,
		meta.ID, kind, meta.Number, meta.Date, meta.IsPosted, meta.IsDeleted)
	return err
}

func (r *txRepository) SaveIncomeDocument(ctx context.Context, doc IncomeDocument) error {
	if err := r.saveDocumentMeta(ctx, KindIncomeDocument, doc.DocumentMeta); err != nil {
		return err
	}
	_, err := r.db.Exec(ctx, `INSERT INTO income_documents (document_id, cash_register_id, currency_id, amount, item_id, description, employee_id)
VALUES ($1,$2,$3,$4,$5,$6,$7)
ON CONFLICT (document_id) DO UPDATE SET cash_register_id = EXCLUDED.cash_register_id, currency_id = EXCLUDED.currency_id,
  amount = EXCLUDED.amount, item_id = EXCLUDED.item_id, description = EXCLUDED.description, employee_id = EXCLUDED.employee_id`,
		doc.ID, doc.CashRegisterID, doc.CurrencyID, doc.Amount, doc.ItemID, doc.Description, doc.EmployeeID)
	return err
}

func (r *txRepository) SaveExpenseDocument(ctx context.Context, doc ExpenseDocument) error {
	if err := r.saveDocumentMeta(ctx, KindExpenseDocument, doc.DocumentMeta); err != nil {
		return err
	}
	_, err := r.db.Exec(ctx, `INSERT INTO expense_documents (document_id, cash_register_id, currency_id, amount, item_id, description, employee_id)
VALUES ($1,$2,$3,$4,$5,$6,$7)
ON CONFLICT (document_id) DO UPDATE SET cash_register_id = EXCLUDED.cash_register_id, currency_id = EXCLUDED.currency_id,
  amount = EXCLUDED.amount, item_id = EXCLUDED.item_id, description = EXCLUDED.description, employee_id = EXCLUDED.employee_id`,
		doc.ID, doc.CashRegisterID, doc.CurrencyID, doc.Amount, doc.ItemID, doc.Description, doc.EmployeeID)
	return err
}

func (r *txRepository) SaveAdvancePayment(ctx context.Context, doc AdvancePayment) error {
	if err := r.saveDocumentMeta(ctx, KindAdvancePayment, doc.DocumentMeta); err != nil {
		return err
	}
	_, err := r.db.Exec(ctx, `INSERT INTO advance_payments (document_id, employee_id, cash_register_id, currency_id, amount, expense_item_id, purpose, is_closed, closed_at)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)
ON CONFLICT (document_id) DO UPDATE SET employee_id = EXCLUDED.employee_id, cash_register_id = EXCLUDED.cash_register_id,
  currency_id = EXCLUDED.currency_id, amount = EXCLUDED.amount, expense_item_id = EXCLUDED.expense_item_id,
  purpose = EXCLUDED.purpose, is_closed = EXCLUDED.is_closed, closed_at = EXCLUDED.closed_at`,
		doc.ID, doc.EmployeeID, doc.CashRegisterID, doc.CurrencyID, doc.Amount, doc.ExpenseItemID, doc.Purpose, doc.IsClosed, doc.ClosedAt)
	return err
}

func (r *txRepository) SaveAdditionalAdvancePayment(ctx context.Context, doc AdditionalAdvancePayment) error {
	if err := r.saveDocumentMeta(ctx, KindAdditionalAdvance, doc.DocumentMeta); err != nil {
		return err
	}
	_, err := r.db.Exec(ctx, `INSERT INTO additional_advance_payments (document_id, original_advance_id, cash_register_id, currency_id, amount, purpose)
VALUES ($1,$2,$3,$4,$5,$6)
ON CONFLICT (document_id) DO UPDATE SET original_advance_id = EXCLUDED.original_advance_id, cash_register_id = EXCLUDED.cash_register_id,
  currency_id = EXCLUDED.currency_id, amount = EXCLUDED.amount, purpose = EXCLUDED.purpose`,
		doc.ID, doc.OriginalAdvanceID, doc.CashRegisterID, doc.CurrencyID, doc.Amount, doc.Purpose)
	return err
}

func (r *txRepository) SaveAdvanceReport(ctx context.Context, doc AdvanceReport) error {
	if err := r.saveDocumentMeta(ctx, KindAdvanceReport, doc.DocumentMeta); err != nil {
		return err
	}
	_, err := r.db.Exec(ctx, `INSERT INTO advance_reports (document_id, advance_payment_id, currency_id, total_amount, return_amount, additional_payment,
  manual_return_amount, manual_additional_payment, close_advance_payment, status, approved_at, approved_by)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12)
ON CONFLICT (document_id) DO UPDATE SET advance_payment_id = EXCLUDED.advance_payment_id, currency_id = EXCLUDED.currency_id,
  total_amount = EXCLUDED.total_amount, return_amount = EXCLUDED.return_amount, additional_payment = EXCLUDED.additional_payment,
  manual_return_amount = EXCLUDED.manual_return_amount, manual_additional_payment = EXCLUDED.manual_additional_payment,
  close_advance_payment = EXCLUDED.close_advance_payment, status = EXCLUDED.status,
  approved_at = EXCLUDED.approved_at, approved_by = EXCLUDED.approved_by`,
		doc.ID, doc.AdvancePaymentID, doc.CurrencyID, doc.TotalAmount, doc.ReturnAmount, doc.AdditionalPayment,
		doc.ManualReturnAmount, doc.ManualAdditionalPayment, doc.CloseAdvancePayment, doc.Status, doc.ApprovedAt, doc.ApprovedBy)
	if err != nil {
		return err
	}
	itemIDs := make([]uuid.UUID, 0, len(doc.Items))
	for _, item := range doc.Items {
		itemIDs = append(itemIDs, item.ID)
	}
	if _, err := r.db.Exec(ctx, `DELETE FROM advance_report_items WHERE report_id = $1 AND NOT (id = ANY($2))`, doc.ID, itemIDs); err != nil {
		return err
	}
	for _, item := range doc.Items {
		if _, err := r.db.Exec(ctx, `INSERT INTO advance_report_items (id, report_id, item_id, amount, description, date)
VALUES ($1,$2,$3,$4,$5,$6)
ON CONFLICT (id) DO UPDATE SET item_id = EXCLUDED.item_id, amount = EXCLUDED.amount,
  description = EXCLUDED.description, date = EXCLUDED.date`,
			item.ID, doc.ID, item.ItemID, item.Amount, item.Description, item.Date); err != nil {
			return err
		}
	}
	return nil
}

func (r *txRepository) SaveAdvanceReturn(ctx context.Context, doc AdvanceReturn) error {
	if err := r.saveDocumentMeta(ctx, KindAdvanceReturn, doc.DocumentMeta); err != nil {
		return err
	}
	_, err := r.db.Exec(ctx, `INSERT INTO advance_returns (document_id, advance_payment_id, employee_id, cash_register_id, currency_id, amount, description)
VALUES ($1,$2,$3,$4,$5,$6,$7)
ON CONFLICT (document_id) DO UPDATE SET advance_payment_id = EXCLUDED.advance_payment_id, employee_id = EXCLUDED.employee_id,
  cash_register_id = EXCLUDED.cash_register_id, currency_id = EXCLUDED.currency_id, amount = EXCLUDED.amount, description = EXCLUDED.description`,
		doc.ID, doc.AdvancePaymentID, doc.EmployeeID, doc.CashRegisterID, doc.CurrencyID, doc.Amount, doc.Description)
	return err
}

func (r *txRepository) SaveCashTransfer(ctx context.Context, doc CashTransfer) error {
	if err := r.saveDocumentMeta(ctx, KindCashTransfer, doc.DocumentMeta); err != nil {
		return err
	}
	_, err := r.db.Exec(ctx, `INSERT INTO cash_transfers (document_id, from_register_id, to_register_id, currency_id, amount)
VALUES ($1,$2,$3,$4,$5)
ON CONFLICT (document_id) DO UPDATE SET from_register_id = EXCLUDED.from_register_id, to_register_id = EXCLUDED.to_register_id,
  currency_id = EXCLUDED.currency_id, amount = EXCLUDED.amount`,
		doc.ID, doc.FromCashRegisterID, doc.ToCashRegisterID, doc.CurrencyID, doc.Amount)
	return err
}

func (r *txRepository) SaveCurrencyConversion(ctx context.Context, doc CurrencyConversion) error {
	if err := r.saveDocumentMeta(ctx, KindCurrencyConversion, doc.DocumentMeta); err != nil {
		return err
	}
	_, err := r.db.Exec(ctx, `INSERT INTO currency_conversions (document_id, from_currency_id, to_currency_id, cash_register_id, from_amount, to_amount, exchange_rate)
VALUES ($1,$2,$3,$4,$5,$6,$7)
ON CONFLICT (document_id) DO UPDATE SET from_currency_id = EXCLUDED.from_currency_id, to_currency_id = EXCLUDED.to_currency_id,
  cash_register_id = EXCLUDED.cash_register_id, from_amount = EXCLUDED.from_amount, to_amount = EXCLUDED.to_amount,
  exchange_rate = EXCLUDED.exchange_rate`,
		doc.ID, doc.FromCurrencyID, doc.ToCurrencyID, doc.CashRegisterID, doc.FromAmount, doc.ToAmount, doc.ExchangeRate)
	return err
}

func (r *txRepository) CloseAdvancePayment(ctx context.Context, id uuid.UUID, closedAt time.Time) error {
	_, err := r.db.Exec(ctx, `UPDATE advance_payments SET is_closed = TRUE, closed_at = $2 WHERE document_id = $1`, id, closedAt)
	return err
}

func (r *txRepository) GetAdvancePaymentForUpdate(ctx context.Context, id uuid.UUID) (AdvancePayment, error) {
	return r.getAdvancePayment(ctx, id, true)
}

func (r *txRepository) GetAdvanceReportForUpdate(ctx context.Context, id uuid.UUID) (AdvanceReport, error) {
	return r.getAdvanceReport(ctx, id, true)
}

func (r *txRepository) InsertTransaction(ctx context.Context, t *Transaction) error {
	row := r.db.QueryRow(ctx, `INSERT INTO transactions (date, type, amount, description, cash_register_id, currency_id, item_id, employee_id, owner_kind, owner_id, advance_payment_id, created_by)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12) RETURNING id, created_at`,
		t.Date, t.Type, t.Amount, t.Description, t.CashRegisterID, t.CurrencyID, t.ItemID, t.EmployeeID,
		t.Owner.Kind, t.Owner.ID, t.AdvancePaymentID, t.CreatedBy)
	return row.Scan(&t.ID, &t.CreatedAt)
}

func (r *txRepository) UpdateTransaction(ctx context.Context, t Transaction) error {
	_, err := r.db.Exec(ctx, `UPDATE transactions SET date = $2, amount = $3, description = $4, cash_register_id = $5,
  currency_id = $6, item_id = $7, employee_id = $8, advance_payment_id = $9 WHERE id = $1`,
		t.ID, t.Date, t.Amount, t.Description, t.CashRegisterID, t.CurrencyID, t.ItemID, t.EmployeeID, t.AdvancePaymentID)
	return err
}

func (r *txRepository) DeleteTransactionsByOwner(ctx context.Context, owner DocumentRef) error {
	_, err := r.db.Exec(ctx, `DELETE FROM transactions WHERE owner_kind = $1 AND owner_id = $2`, owner.Kind, owner.ID)
	return err
}

func (r *txRepository) DeleteReportTransactions(ctx context.Context, reportID uuid.UUID) error {
	_, err := r.db.Exec(ctx, `DELETE FROM transactions
WHERE (owner_kind = 'advance_report' AND owner_id = $1)
   OR (owner_kind = 'advance_report_item' AND owner_id IN (SELECT id FROM advance_report_items WHERE report_id = $1))`, reportID)
	return err
}

func (r *txRepository) AcquireNumberingLock(ctx context.Context, key int64) error {
	_, err := r.db.Exec(ctx, `SELECT pg_advisory_xact_lock($1)`, key)
	return err
}

func (r *txRepository) MaxDocumentNumber(ctx context.Context, kind DocumentKind, prefix string, year int) (int, error) {
	var max int
	err := r.db.QueryRow(ctx, `SELECT COALESCE(MAX(substring(number FROM length($2) + 1)::int), 0) FROM documents
WHERE kind = $1 AND date_part('year', date) = $3 AND number ~ ('^' || $2 || '[0-9]{7}$')`, kind, prefix, year).Scan(&max)
	return max, err
}
