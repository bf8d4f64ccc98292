package ledger

import (
	"context"
	"regexp"
	"sort"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/cashdesk-erp/cashdesk/internal/ledger/shared"
)

// fakeRepo is an in-memory Repository/TxRepository used by the posting
// engine tests. It mirrors the storage semantics the SQL layer provides:
// aggregates exclude soft-deleted owner chains, report line items resolve
// through their report.
type fakeRepo struct {
	incomes     map[uuid.UUID]IncomeDocument
	expenses    map[uuid.UUID]ExpenseDocument
	advances    map[uuid.UUID]AdvancePayment
	additionals map[uuid.UUID]AdditionalAdvancePayment
	reports     map[uuid.UUID]AdvanceReport
	returns     map[uuid.UUID]AdvanceReturn
	transfers   map[uuid.UUID]CashTransfer
	conversions map[uuid.UUID]CurrencyConversion

	transactions []Transaction
	nextTxID     int64

	itemToReport map[uuid.UUID]uuid.UUID
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{
		incomes:      map[uuid.UUID]IncomeDocument{},
		expenses:     map[uuid.UUID]ExpenseDocument{},
		advances:     map[uuid.UUID]AdvancePayment{},
		additionals:  map[uuid.UUID]AdditionalAdvancePayment{},
		reports:      map[uuid.UUID]AdvanceReport{},
		returns:      map[uuid.UUID]AdvanceReturn{},
		transfers:    map[uuid.UUID]CashTransfer{},
		conversions:  map[uuid.UUID]CurrencyConversion{},
		itemToReport: map[uuid.UUID]uuid.UUID{},
	}
}

func (f *fakeRepo) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	return fn(ctx, f)
}

func (f *fakeRepo) docMeta(kind DocumentKind, id uuid.UUID) (DocumentMeta, bool) {
	switch kind {
	case KindIncomeDocument:
		if d, ok := f.incomes[id]; ok {
			return d.DocumentMeta, true
		}
	case KindExpenseDocument:
		if d, ok := f.expenses[id]; ok {
			return d.DocumentMeta, true
		}
	case KindAdvancePayment:
		if d, ok := f.advances[id]; ok {
			return d.DocumentMeta, true
		}
	case KindAdditionalAdvance:
		if d, ok := f.additionals[id]; ok {
			return d.DocumentMeta, true
		}
	case KindAdvanceReport:
		if d, ok := f.reports[id]; ok {
			return d.DocumentMeta, true
		}
	case KindAdvanceReportItem:
		if reportID, ok := f.itemToReport[id]; ok {
			if d, ok := f.reports[reportID]; ok {
				return d.DocumentMeta, true
			}
		}
	case KindAdvanceReturn:
		if d, ok := f.returns[id]; ok {
			return d.DocumentMeta, true
		}
	case KindCashTransfer:
		if d, ok := f.transfers[id]; ok {
			return d.DocumentMeta, true
		}
	case KindCurrencyConversion:
		if d, ok := f.conversions[id]; ok {
			return d.DocumentMeta, true
		}
	}
	return DocumentMeta{}, false
}

// ownerLive reports whether a transaction's owner chain exists and is not
// soft-deleted.
func (f *fakeRepo) ownerLive(owner DocumentRef) bool {
	meta, ok := f.docMeta(owner.Kind, owner.ID)
	return ok && !meta.IsDeleted
}

func (f *fakeRepo) CashBalance(_ context.Context, registerID, currencyID uuid.UUID, asOf *time.Time, exclude *DocumentRef) (decimal.Decimal, error) {
	total := decimal.Zero
	for _, t := range f.transactions {
		if t.CashRegisterID != registerID || t.CurrencyID != currencyID {
			continue
		}
		if !f.ownerLive(t.Owner) {
			continue
		}
		if asOf != nil && t.Date.After(*asOf) {
			continue
		}
		if exclude != nil && t.Owner == *exclude {
			continue
		}
		total = total.Add(t.Amount)
	}
	return total, nil
}

func (f *fakeRepo) GetAdvancePayment(_ context.Context, id uuid.UUID) (AdvancePayment, error) {
	if d, ok := f.advances[id]; ok {
		return d, nil
	}
	return AdvancePayment{}, shared.ErrDocumentNotFound
}

func (f *fakeRepo) GetAdvanceReport(_ context.Context, id uuid.UUID) (AdvanceReport, error) {
	if d, ok := f.reports[id]; ok {
		return d, nil
	}
	return AdvanceReport{}, shared.ErrDocumentNotFound
}

func (f *fakeRepo) ListOpenAdvances(_ context.Context, employeeID *uuid.UUID) ([]AdvancePayment, error) {
	var out []AdvancePayment
	for _, d := range f.advances {
		if d.IsDeleted || d.IsClosed {
			continue
		}
		if employeeID != nil && d.EmployeeID != *employeeID {
			continue
		}
		out = append(out, d)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Date.After(out[j].Date) })
	return out, nil
}

func (f *fakeRepo) TransactionsByOwner(_ context.Context, owner DocumentRef) ([]Transaction, error) {
	var out []Transaction
	for _, t := range f.transactions {
		if t.Owner == owner {
			out = append(out, t)
		}
	}
	return out, nil
}

func (f *fakeRepo) TransactionByOwnerAndType(_ context.Context, owner DocumentRef, tt TransactionType) (*Transaction, error) {
	for _, t := range f.transactions {
		if t.Owner == owner && t.Type == tt {
			cp := t
			return &cp, nil
		}
	}
	return nil, nil
}

func (f *fakeRepo) FilterTransactions(_ context.Context, filter TransactionFilter) ([]Transaction, error) {
	var out []Transaction
	for _, t := range f.transactions {
		if !f.ownerLive(t.Owner) {
			continue
		}
		if filter.DateFrom != nil && t.Date.Before(*filter.DateFrom) {
			continue
		}
		if filter.DateTo != nil && t.Date.After(*filter.DateTo) {
			continue
		}
		if filter.CashRegisterID != nil && t.CashRegisterID != *filter.CashRegisterID {
			continue
		}
		if filter.CurrencyID != nil && t.CurrencyID != *filter.CurrencyID {
			continue
		}
		if filter.EmployeeID != nil && (t.EmployeeID == nil || *t.EmployeeID != *filter.EmployeeID) {
			continue
		}
		if filter.Type != nil && t.Type != *filter.Type {
			continue
		}
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	return out, nil
}

func (f *fakeRepo) ExpenseByItem(_ context.Context, filter ReportItemFilter) ([]ItemTotal, error) {
	totals := map[uuid.UUID]*ItemTotal{}
	for _, t := range f.transactions {
		if t.Type != TransactionAdvanceReport || t.ItemID == nil {
			continue
		}
		if !f.ownerLive(t.Owner) {
			continue
		}
		if filter.DateFrom != nil && t.Date.Before(*filter.DateFrom) {
			continue
		}
		if filter.DateTo != nil && t.Date.After(*filter.DateTo) {
			continue
		}
		if filter.CashRegisterID != nil && t.CashRegisterID != *filter.CashRegisterID {
			continue
		}
		if filter.CurrencyID != nil && t.CurrencyID != *filter.CurrencyID {
			continue
		}
		row, ok := totals[*t.ItemID]
		if !ok {
			row = &ItemTotal{ItemID: *t.ItemID}
			totals[*t.ItemID] = row
		}
		row.Total = row.Total.Add(t.Amount.Neg())
		row.Count++
	}
	var out []ItemTotal
	for _, row := range totals {
		out = append(out, *row)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ItemID.String() < out[j].ItemID.String() })
	return out, nil
}

func (f *fakeRepo) SumAdditionalIssued(_ context.Context, advanceID uuid.UUID) (decimal.Decimal, error) {
	total := decimal.Zero
	for _, d := range f.additionals {
		if d.OriginalAdvanceID == advanceID && !d.IsDeleted {
			total = total.Add(d.Amount)
		}
	}
	return total, nil
}

func (f *fakeRepo) SumConfirmedReportTotals(_ context.Context, advanceID uuid.UUID) (decimal.Decimal, error) {
	total := decimal.Zero
	for _, d := range f.reports {
		if d.AdvancePaymentID == advanceID && d.Status == ReportStatusConfirmed && !d.IsDeleted {
			total = total.Add(d.TotalAmount)
		}
	}
	return total, nil
}

func (f *fakeRepo) SumReturnDocuments(_ context.Context, advanceID uuid.UUID, exclude *uuid.UUID) (decimal.Decimal, error) {
	total := decimal.Zero
	for _, d := range f.returns {
		if d.AdvancePaymentID != advanceID || d.IsDeleted {
			continue
		}
		if exclude != nil && d.ID == *exclude {
			continue
		}
		total = total.Add(d.Amount)
	}
	return total, nil
}

func (f *fakeRepo) sumTransactions(advanceID uuid.UUID, tt TransactionType) decimal.Decimal {
	total := decimal.Zero
	for _, t := range f.transactions {
		if t.AdvancePaymentID == nil || *t.AdvancePaymentID != advanceID || t.Type != tt {
			continue
		}
		if !f.ownerLive(t.Owner) {
			continue
		}
		total = total.Add(t.Amount)
	}
	return total
}

func (f *fakeRepo) SumReportReturns(_ context.Context, advanceID uuid.UUID) (decimal.Decimal, error) {
	return f.sumTransactions(advanceID, TransactionAdvanceReturnReport), nil
}

func (f *fakeRepo) SumReportAdditionals(_ context.Context, advanceID uuid.UUID) (decimal.Decimal, error) {
	return f.sumTransactions(advanceID, TransactionAdvanceAdditional), nil
}

func (f *fakeRepo) SumAdvancesIssuedByEmployee(_ context.Context, employeeID, currencyID uuid.UUID) (decimal.Decimal, error) {
	total := decimal.Zero
	for _, d := range f.advances {
		if d.EmployeeID == employeeID && d.CurrencyID == currencyID && !d.IsDeleted {
			total = total.Add(d.Amount)
		}
	}
	return total, nil
}

func (f *fakeRepo) SumAdditionalIssuedByEmployee(_ context.Context, employeeID, currencyID uuid.UUID) (decimal.Decimal, error) {
	total := decimal.Zero
	for _, d := range f.additionals {
		if d.IsDeleted {
			continue
		}
		orig, ok := f.advances[d.OriginalAdvanceID]
		if !ok || orig.EmployeeID != employeeID || orig.CurrencyID != currencyID {
			continue
		}
		total = total.Add(d.Amount)
	}
	return total, nil
}

func (f *fakeRepo) SumConfirmedReportTotalsByEmployee(_ context.Context, employeeID, currencyID uuid.UUID) (decimal.Decimal, error) {
	total := decimal.Zero
	for _, d := range f.reports {
		if d.Status != ReportStatusConfirmed || d.IsDeleted {
			continue
		}
		advance, ok := f.advances[d.AdvancePaymentID]
		if !ok || advance.EmployeeID != employeeID || advance.CurrencyID != currencyID {
			continue
		}
		total = total.Add(d.TotalAmount)
	}
	return total, nil
}

func (f *fakeRepo) SumReturnTransactionsByEmployee(_ context.Context, employeeID, currencyID uuid.UUID) (decimal.Decimal, error) {
	total := decimal.Zero
	for _, t := range f.transactions {
		if t.EmployeeID == nil || *t.EmployeeID != employeeID || t.CurrencyID != currencyID {
			continue
		}
		if t.Type != TransactionAdvanceReturn && t.Type != TransactionAdvanceReturnReport {
			continue
		}
		if !f.ownerLive(t.Owner) {
			continue
		}
		total = total.Add(t.Amount)
	}
	return total, nil
}

func (f *fakeRepo) SumReportAdditionalsByEmployee(_ context.Context, employeeID, currencyID uuid.UUID) (decimal.Decimal, error) {
	total := decimal.Zero
	for _, t := range f.transactions {
		if t.EmployeeID == nil || *t.EmployeeID != employeeID || t.CurrencyID != currencyID {
			continue
		}
		if t.Type != TransactionAdvanceAdditional {
			continue
		}
		if !f.ownerLive(t.Owner) {
			continue
		}
		total = total.Add(t.Amount)
	}
	return total, nil
}

func (f *fakeRepo) ListOrphanTransactions(_ context.Context) ([]Transaction, error) {
	var out []Transaction
	for _, t := range f.transactions {
		if _, ok := f.docMeta(t.Owner.Kind, t.Owner.ID); !ok {
			out = append(out, t)
		}
	}
	return out, nil
}

func (f *fakeRepo) ListDuplicateOwnerTransactions(_ context.Context) ([]DocumentRef, error) {
	type key struct {
		owner DocumentRef
		tt    TransactionType
	}
	byOwner := map[DocumentRef]int{}
	byOwnerType := map[key]int{}
	for _, t := range f.transactions {
		byOwner[t.Owner]++
		byOwnerType[key{t.Owner, t.Type}]++
	}
	var out []DocumentRef
	for owner, n := range byOwner {
		switch owner.Kind {
		case KindCashTransfer, KindCurrencyConversion:
			if n > 2 {
				out = append(out, owner)
			}
		case KindAdvanceReport:
			// handled per type below
		default:
			if n > 1 {
				out = append(out, owner)
			}
		}
	}
	for k, n := range byOwnerType {
		if k.owner.Kind == KindAdvanceReport && n > 1 {
			out = append(out, k.owner)
		}
	}
	return out, nil
}

// --- mutations ---

func (f *fakeRepo) SaveIncomeDocument(_ context.Context, doc IncomeDocument) error {
	f.incomes[doc.ID] = doc
	return nil
}

func (f *fakeRepo) SaveExpenseDocument(_ context.Context, doc ExpenseDocument) error {
	f.expenses[doc.ID] = doc
	return nil
}

func (f *fakeRepo) SaveAdvancePayment(_ context.Context, doc AdvancePayment) error {
	f.advances[doc.ID] = doc
	return nil
}

func (f *fakeRepo) SaveAdditionalAdvancePayment(_ context.Context, doc AdditionalAdvancePayment) error {
	f.additionals[doc.ID] = doc
	return nil
}

func (f *fakeRepo) SaveAdvanceReport(_ context.Context, doc AdvanceReport) error {
	if old, ok := f.reports[doc.ID]; ok {
		for _, item := range old.Items {
			delete(f.itemToReport, item.ID)
		}
	}
	f.reports[doc.ID] = doc
	for _, item := range doc.Items {
		f.itemToReport[item.ID] = doc.ID
	}
	return nil
}

func (f *fakeRepo) SaveAdvanceReturn(_ context.Context, doc AdvanceReturn) error {
	f.returns[doc.ID] = doc
	return nil
}

func (f *fakeRepo) SaveCashTransfer(_ context.Context, doc CashTransfer) error {
	f.transfers[doc.ID] = doc
	return nil
}

func (f *fakeRepo) SaveCurrencyConversion(_ context.Context, doc CurrencyConversion) error {
	f.conversions[doc.ID] = doc
	return nil
}

func (f *fakeRepo) CloseAdvancePayment(_ context.Context, id uuid.UUID, closedAt time.Time) error {
	d, ok := f.advances[id]
	if !ok {
		return shared.ErrDocumentNotFound
	}
	d.IsClosed = true
	d.ClosedAt = &closedAt
	f.advances[id] = d
	return nil
}

func (f *fakeRepo) GetAdvancePaymentForUpdate(ctx context.Context, id uuid.UUID) (AdvancePayment, error) {
	return f.GetAdvancePayment(ctx, id)
}

func (f *fakeRepo) GetAdvanceReportForUpdate(ctx context.Context, id uuid.UUID) (AdvanceReport, error) {
	return f.GetAdvanceReport(ctx, id)
}

func (f *fakeRepo) InsertTransaction(_ context.Context, t *Transaction) error {
	f.nextTxID++
	t.ID = f.nextTxID
	if t.CreatedAt.IsZero() {
		t.CreatedAt = time.Now()
	}
	f.transactions = append(f.transactions, *t)
	return nil
}

func (f *fakeRepo) UpdateTransaction(_ context.Context, t Transaction) error {
	for i := range f.transactions {
		if f.transactions[i].ID == t.ID {
			f.transactions[i] = t
			return nil
		}
	}
	return shared.ErrDocumentNotFound
}

func (f *fakeRepo) DeleteTransactionsByOwner(_ context.Context, owner DocumentRef) error {
	kept := f.transactions[:0]
	for _, t := range f.transactions {
		if t.Owner != owner {
			kept = append(kept, t)
		}
	}
	f.transactions = kept
	return nil
}

func (f *fakeRepo) DeleteReportTransactions(_ context.Context, reportID uuid.UUID) error {
	kept := f.transactions[:0]
	for _, t := range f.transactions {
		owned := t.Owner == DocumentRef{Kind: KindAdvanceReport, ID: reportID}
		if !owned && t.Owner.Kind == KindAdvanceReportItem {
			owned = f.itemToReport[t.Owner.ID] == reportID
		}
		if !owned {
			kept = append(kept, t)
		}
	}
	f.transactions = kept
	return nil
}

func (f *fakeRepo) AcquireNumberingLock(_ context.Context, _ int64) error {
	return nil
}

func (f *fakeRepo) MaxDocumentNumber(_ context.Context, kind DocumentKind, prefix string, year int) (int, error) {
	re := regexp.MustCompile("^" + regexp.QuoteMeta(prefix) + `([0-9]{7})$`)
	max := 0
	scan := func(meta DocumentMeta) {
		if meta.Date.Year() != year {
			return
		}
		m := re.FindStringSubmatch(meta.Number)
		if m == nil {
			return
		}
		if n, err := strconv.Atoi(m[1]); err == nil && n > max {
			max = n
		}
	}
	switch kind {
	case KindIncomeDocument:
		for _, d := range f.incomes {
			scan(d.DocumentMeta)
		}
	case KindExpenseDocument:
		for _, d := range f.expenses {
			scan(d.DocumentMeta)
		}
	case KindAdvancePayment:
		for _, d := range f.advances {
			scan(d.DocumentMeta)
		}
	case KindAdditionalAdvance:
		for _, d := range f.additionals {
			scan(d.DocumentMeta)
		}
	case KindAdvanceReport:
		for _, d := range f.reports {
			scan(d.DocumentMeta)
		}
	case KindAdvanceReturn:
		for _, d := range f.returns {
			scan(d.DocumentMeta)
		}
	case KindCashTransfer:
		for _, d := range f.transfers {
			scan(d.DocumentMeta)
		}
	case KindCurrencyConversion:
		for _, d := range f.conversions {
			scan(d.DocumentMeta)
		}
	}
	return max, nil
}
