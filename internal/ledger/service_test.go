package ledger

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cashdesk-erp/cashdesk/internal/ledger/shared"
	internalShared "github.com/cashdesk-erp/cashdesk/internal/shared"
)

var testDay = time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC)

func newTestLedger() (*Service, *fakeRepo) {
	repo := newFakeRepo()
	svc := NewService(repo, nil, nil, nil, "SC")
	svc.WithNow(func() time.Time { return testDay })
	return svc, repo
}

type fixedRates struct {
	rate  decimal.Decimal
	found bool
}

func (f fixedRates) Rate(context.Context, uuid.UUID, uuid.UUID, time.Time) (decimal.Decimal, bool, error) {
	return f.rate, f.found, nil
}

type auditSpy struct {
	actions []string
}

func (a *auditSpy) Record(_ context.Context, log internalShared.AuditLog) error {
	a.actions = append(a.actions, log.Action)
	return nil
}

func dec(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return d
}

func TestSaveIncomePostsOnePositiveRow(t *testing.T) {
	svc, repo := newTestLedger()
	register, currency, item := uuid.New(), uuid.New(), uuid.New()

	doc, err := svc.SaveIncome(context.Background(), IncomeDocument{
		CashRegisterID: register,
		CurrencyID:     currency,
		Amount:         dec("100"),
		ItemID:         item,
	}, 7)
	require.NoError(t, err)
	assert.True(t, doc.IsPosted)
	assert.Equal(t, "SC0000001", doc.Number)

	require.Len(t, repo.transactions, 1)
	row := repo.transactions[0]
	assert.Equal(t, TransactionIncome, row.Type)
	assert.True(t, row.Amount.Equal(dec("100")))
	assert.Equal(t, DocumentRef{Kind: KindIncomeDocument, ID: doc.ID}, row.Owner)
	require.NotNil(t, row.CreatedBy)
	assert.Equal(t, int64(7), *row.CreatedBy)
}

func TestSaveIncomeIsIdempotent(t *testing.T) {
	svc, repo := newTestLedger()
	register, currency, item := uuid.New(), uuid.New(), uuid.New()

	doc, err := svc.SaveIncome(context.Background(), IncomeDocument{
		CashRegisterID: register,
		CurrencyID:     currency,
		Amount:         dec("100"),
		ItemID:         item,
	}, 1)
	require.NoError(t, err)
	firstID := repo.transactions[0].ID

	doc.Amount = dec("120")
	doc, err = svc.SaveIncome(context.Background(), doc, 1)
	require.NoError(t, err)

	require.Len(t, repo.transactions, 1)
	assert.Equal(t, firstID, repo.transactions[0].ID, "re-save must update the row in place")
	assert.True(t, repo.transactions[0].Amount.Equal(dec("120")))
	assert.Equal(t, "SC0000001", doc.Number, "number is assigned once")
}

func TestSaveExpenseRejectsNonPositiveAmount(t *testing.T) {
	svc, repo := newTestLedger()

	_, err := svc.SaveExpense(context.Background(), ExpenseDocument{
		CashRegisterID: uuid.New(),
		CurrencyID:     uuid.New(),
		Amount:         dec("0"),
		ItemID:         uuid.New(),
	}, 1)
	assert.ErrorIs(t, err, shared.ErrAmountNotPositive)
	assert.Empty(t, repo.transactions)
}

func TestSaveExpensePostsNegativeRow(t *testing.T) {
	svc, repo := newTestLedger()

	_, err := svc.SaveExpense(context.Background(), ExpenseDocument{
		CashRegisterID: uuid.New(),
		CurrencyID:     uuid.New(),
		Amount:         dec("30"),
		ItemID:         uuid.New(),
	}, 1)
	require.NoError(t, err)
	require.Len(t, repo.transactions, 1)
	assert.True(t, repo.transactions[0].Amount.Equal(dec("-30")))
}

func TestCashBalanceRoundTrip(t *testing.T) {
	svc, repo := newTestLedger()
	ctx := context.Background()
	register, other, currency, item := uuid.New(), uuid.New(), uuid.New(), uuid.New()

	_, err := svc.SaveIncome(ctx, IncomeDocument{CashRegisterID: register, CurrencyID: currency, Amount: dec("100"), ItemID: item}, 1)
	require.NoError(t, err)
	_, err = svc.SaveExpense(ctx, ExpenseDocument{CashRegisterID: register, CurrencyID: currency, Amount: dec("30"), ItemID: item}, 1)
	require.NoError(t, err)
	_, err = svc.SaveCashTransfer(ctx, CashTransfer{
		FromCashRegisterID: register,
		ToCashRegisterID:   other,
		CurrencyID:         currency,
		Amount:             dec("20"),
	}, 1)
	require.NoError(t, err)

	balance, err := repo.CashBalance(ctx, register, currency, nil, nil)
	require.NoError(t, err)
	assert.True(t, balance.Equal(dec("50")), "got %s", balance)

	destination, err := repo.CashBalance(ctx, other, currency, nil, nil)
	require.NoError(t, err)
	assert.True(t, destination.Equal(dec("20")))
}

func TestTransferRejectsSameRegister(t *testing.T) {
	svc, _ := newTestLedger()
	register := uuid.New()

	_, err := svc.SaveCashTransfer(context.Background(), CashTransfer{
		FromCashRegisterID: register,
		ToCashRegisterID:   register,
		CurrencyID:         uuid.New(),
		Amount:             dec("10"),
	}, 1)
	assert.ErrorIs(t, err, shared.ErrSameRegister)
}

func TestTransferRejectsInsufficientBalance(t *testing.T) {
	svc, _ := newTestLedger()

	_, err := svc.SaveCashTransfer(context.Background(), CashTransfer{
		FromCashRegisterID: uuid.New(),
		ToCashRegisterID:   uuid.New(),
		CurrencyID:         uuid.New(),
		Amount:             dec("10"),
	}, 1)
	assert.ErrorIs(t, err, shared.ErrInsufficientBalance)
}

func TestTransferResaveExcludesOwnRows(t *testing.T) {
	svc, repo := newTestLedger()
	ctx := context.Background()
	register, other, currency := uuid.New(), uuid.New(), uuid.New()

	_, err := svc.SaveIncome(ctx, IncomeDocument{CashRegisterID: register, CurrencyID: currency, Amount: dec("100"), ItemID: uuid.New()}, 1)
	require.NoError(t, err)

	transfer, err := svc.SaveCashTransfer(ctx, CashTransfer{
		FromCashRegisterID: register,
		ToCashRegisterID:   other,
		CurrencyID:         currency,
		Amount:             dec("80"),
	}, 1)
	require.NoError(t, err)

	// Raising the amount to the full funded balance must pass: the check
	// ignores the transfer's own previously posted outflow.
	transfer.Amount = dec("100")
	_, err = svc.SaveCashTransfer(ctx, transfer, 1)
	require.NoError(t, err)

	balance, err := repo.CashBalance(ctx, register, currency, nil, nil)
	require.NoError(t, err)
	assert.True(t, balance.IsZero(), "got %s", balance)
}

func TestConversionAutoFillsRateAndAmount(t *testing.T) {
	repo := newFakeRepo()
	svc := NewService(repo, fixedRates{rate: dec("0.5"), found: true}, nil, nil, "SC")
	svc.WithNow(func() time.Time { return testDay })
	ctx := context.Background()
	register, usd, eur := uuid.New(), uuid.New(), uuid.New()

	_, err := svc.SaveIncome(ctx, IncomeDocument{CashRegisterID: register, CurrencyID: usd, Amount: dec("100"), ItemID: uuid.New()}, 1)
	require.NoError(t, err)

	doc, err := svc.SaveCurrencyConversion(ctx, CurrencyConversion{
		FromCurrencyID: usd,
		ToCurrencyID:   eur,
		CashRegisterID: register,
		FromAmount:     dec("100"),
	}, 1)
	require.NoError(t, err)
	assert.True(t, doc.ExchangeRate.Equal(dec("0.5")))
	assert.True(t, doc.ToAmount.Equal(dec("50")))

	usdBalance, _ := repo.CashBalance(ctx, register, usd, nil, nil)
	eurBalance, _ := repo.CashBalance(ctx, register, eur, nil, nil)
	assert.True(t, usdBalance.IsZero())
	assert.True(t, eurBalance.Equal(dec("50")))
}

func TestConversionRejectsMissingCatalogueRate(t *testing.T) {
	repo := newFakeRepo()
	svc := NewService(repo, fixedRates{found: false}, nil, nil, "SC")
	svc.WithNow(func() time.Time { return testDay })
	ctx := context.Background()
	register, usd, eur := uuid.New(), uuid.New(), uuid.New()

	_, err := svc.SaveIncome(ctx, IncomeDocument{CashRegisterID: register, CurrencyID: usd, Amount: dec("100"), ItemID: uuid.New()}, 1)
	require.NoError(t, err)

	// No catalogue rate for the pair: the document keeps its zero rate and
	// is rejected by the positivity check instead of guessing.
	_, err = svc.SaveCurrencyConversion(ctx, CurrencyConversion{
		FromCurrencyID: usd,
		ToCurrencyID:   eur,
		CashRegisterID: register,
		FromAmount:     dec("100"),
	}, 1)
	assert.ErrorIs(t, err, shared.ErrRateNotPositive)
	require.Len(t, repo.transactions, 1, "only the income row may exist")
}

func TestConversionRejectsRateMismatch(t *testing.T) {
	svc, repo := newTestLedger()
	ctx := context.Background()
	register, usd, eur := uuid.New(), uuid.New(), uuid.New()

	_, err := svc.SaveIncome(ctx, IncomeDocument{CashRegisterID: register, CurrencyID: usd, Amount: dec("100"), ItemID: uuid.New()}, 1)
	require.NoError(t, err)

	_, err = svc.SaveCurrencyConversion(ctx, CurrencyConversion{
		FromCurrencyID: usd,
		ToCurrencyID:   eur,
		CashRegisterID: register,
		FromAmount:     dec("100"),
		ToAmount:       dec("60"),
		ExchangeRate:   dec("0.5"),
	}, 1)
	assert.ErrorIs(t, err, shared.ErrRateMismatch)
	require.Len(t, repo.transactions, 1, "only the income row may exist")
}

func TestConversionRejectsSameCurrency(t *testing.T) {
	svc, _ := newTestLedger()
	currency := uuid.New()

	_, err := svc.SaveCurrencyConversion(context.Background(), CurrencyConversion{
		FromCurrencyID: currency,
		ToCurrencyID:   currency,
		CashRegisterID: uuid.New(),
		FromAmount:     dec("10"),
		ExchangeRate:   dec("1"),
	}, 1)
	assert.ErrorIs(t, err, shared.ErrSameCurrency)
}

func TestDocumentNumbersAreSequentialPerKindAndYear(t *testing.T) {
	svc, _ := newTestLedger()
	ctx := context.Background()
	register, currency, item, employee := uuid.New(), uuid.New(), uuid.New(), uuid.New()

	for i := 1; i <= 3; i++ {
		doc, err := svc.SaveAdvancePayment(ctx, AdvancePayment{
			EmployeeID:     employee,
			CashRegisterID: register,
			CurrencyID:     currency,
			Amount:         dec("10"),
			ExpenseItemID:  item,
		}, 1)
		require.NoError(t, err)
		assert.Equal(t, FormatDocumentNumber("SC", i), doc.Number)
	}

	// A different kind runs its own sequence.
	income, err := svc.SaveIncome(ctx, IncomeDocument{CashRegisterID: register, CurrencyID: currency, Amount: dec("5"), ItemID: item}, 1)
	require.NoError(t, err)
	assert.Equal(t, "SC0000001", income.Number)

	// A different year restarts the sequence.
	nextYear, err := svc.SaveAdvancePayment(ctx, AdvancePayment{
		DocumentMeta:   DocumentMeta{Date: testDay.AddDate(1, 0, 0)},
		EmployeeID:     employee,
		CashRegisterID: register,
		CurrencyID:     currency,
		Amount:         dec("10"),
		ExpenseItemID:  item,
	}, 1)
	require.NoError(t, err)
	assert.Equal(t, "SC0000001", nextYear.Number)
}

func TestSoftDeleteRemovesJournalRows(t *testing.T) {
	svc, repo := newTestLedger()
	ctx := context.Background()
	register, currency := uuid.New(), uuid.New()

	doc, err := svc.SaveIncome(ctx, IncomeDocument{CashRegisterID: register, CurrencyID: currency, Amount: dec("100"), ItemID: uuid.New()}, 1)
	require.NoError(t, err)
	require.Len(t, repo.transactions, 1)

	doc.IsDeleted = true
	doc, err = svc.SaveIncome(ctx, doc, 1)
	require.NoError(t, err)
	assert.False(t, doc.IsPosted)
	assert.Empty(t, repo.transactions)

	balance, err := repo.CashBalance(ctx, register, currency, nil, nil)
	require.NoError(t, err)
	assert.True(t, balance.IsZero())
}

func TestAdvanceReturnBoundedByUnreturnedBalance(t *testing.T) {
	svc, _ := newTestLedger()
	ctx := context.Background()
	register, currency, item, employee := uuid.New(), uuid.New(), uuid.New(), uuid.New()

	advance, err := svc.SaveAdvancePayment(ctx, AdvancePayment{
		EmployeeID:     employee,
		CashRegisterID: register,
		CurrencyID:     currency,
		Amount:         dec("200"),
		ExpenseItemID:  item,
	}, 1)
	require.NoError(t, err)

	_, err = svc.SaveAdvanceReturn(ctx, AdvanceReturn{
		AdvancePaymentID: advance.ID,
		EmployeeID:       employee,
		CashRegisterID:   register,
		CurrencyID:       currency,
		Amount:           dec("150"),
	}, 1)
	require.NoError(t, err)

	_, err = svc.SaveAdvanceReturn(ctx, AdvanceReturn{
		AdvancePaymentID: advance.ID,
		EmployeeID:       employee,
		CashRegisterID:   register,
		CurrencyID:       currency,
		Amount:           dec("100"),
	}, 1)
	assert.ErrorIs(t, err, shared.ErrReturnExceedsBalance)

	_, err = svc.SaveAdvanceReturn(ctx, AdvanceReturn{
		AdvancePaymentID: advance.ID,
		EmployeeID:       employee,
		CashRegisterID:   register,
		CurrencyID:       currency,
		Amount:           dec("50"),
	}, 1)
	require.NoError(t, err)
}

func TestAdditionalAdvanceRequiresOriginal(t *testing.T) {
	svc, _ := newTestLedger()

	_, err := svc.SaveAdditionalAdvancePayment(context.Background(), AdditionalAdvancePayment{
		OriginalAdvanceID: uuid.New(),
		CashRegisterID:    uuid.New(),
		CurrencyID:        uuid.New(),
		Amount:            dec("25"),
	}, 1)
	assert.ErrorIs(t, err, shared.ErrAdvanceNotFound)
}

func TestAdditionalAdvanceInheritsEmployee(t *testing.T) {
	svc, repo := newTestLedger()
	ctx := context.Background()
	register, currency, item, employee := uuid.New(), uuid.New(), uuid.New(), uuid.New()

	advance, err := svc.SaveAdvancePayment(ctx, AdvancePayment{
		EmployeeID:     employee,
		CashRegisterID: register,
		CurrencyID:     currency,
		Amount:         dec("200"),
		ExpenseItemID:  item,
	}, 1)
	require.NoError(t, err)

	topUp, err := svc.SaveAdditionalAdvancePayment(ctx, AdditionalAdvancePayment{
		OriginalAdvanceID: advance.ID,
		CashRegisterID:    register,
		CurrencyID:        currency,
		Amount:            dec("50"),
	}, 1)
	require.NoError(t, err)

	row, err := repo.TransactionByOwnerAndType(ctx, DocumentRef{Kind: KindAdditionalAdvance, ID: topUp.ID}, TransactionAdditionalAdvance)
	require.NoError(t, err)
	require.NotNil(t, row)
	require.NotNil(t, row.EmployeeID)
	assert.Equal(t, employee, *row.EmployeeID)
	require.NotNil(t, row.AdvancePaymentID)
	assert.Equal(t, advance.ID, *row.AdvancePaymentID)
	assert.True(t, row.Amount.Equal(dec("-50")))
}

func TestAuditTrailDistinguishesSaveConfirmDelete(t *testing.T) {
	repo := newFakeRepo()
	spy := &auditSpy{}
	svc := NewService(repo, nil, spy, nil, "SC")
	svc.WithNow(func() time.Time { return testDay })
	ctx := context.Background()
	register, currency, item, employee := uuid.New(), uuid.New(), uuid.New(), uuid.New()

	income, err := svc.SaveIncome(ctx, IncomeDocument{
		CashRegisterID: register,
		CurrencyID:     currency,
		Amount:         dec("500"),
		ItemID:         item,
	}, 1)
	require.NoError(t, err)

	advance, err := svc.SaveAdvancePayment(ctx, AdvancePayment{
		EmployeeID:     employee,
		CashRegisterID: register,
		CurrencyID:     currency,
		Amount:         dec("200"),
		ExpenseItemID:  item,
	}, 1)
	require.NoError(t, err)

	_, err = svc.SaveAdvanceReport(ctx, AdvanceReport{
		AdvancePaymentID: advance.ID,
		CurrencyID:       currency,
		Status:           ReportStatusConfirmed,
		Items: []AdvanceReportItem{
			{ItemID: item, Amount: dec("200"), Description: "supplies"},
		},
	}, 1)
	require.NoError(t, err)

	income.IsDeleted = true
	_, err = svc.SaveIncome(ctx, income, 1)
	require.NoError(t, err)

	assert.Equal(t, []string{
		"document.save",
		"document.save",
		"document.confirm",
		"document.delete",
	}, spy.actions)
}
