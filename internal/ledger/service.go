package ledger

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/cashdesk-erp/cashdesk/internal/ledger/shared"
	internalShared "github.com/cashdesk-erp/cashdesk/internal/shared"
)

// RateSource resolves exchange rates from the rate catalogue.
type RateSource interface {
	Rate(ctx context.Context, fromCurrencyID, toCurrencyID uuid.UUID, date time.Time) (decimal.Decimal, bool, error)
}

// AuditPort records posting actions after a successful commit.
type AuditPort interface {
	Record(ctx context.Context, log internalShared.AuditLog) error
}

// PostingObserver counts posting cycles per document kind.
type PostingObserver interface {
	ObservePosting(kind string, err error)
}

// Service is the posting engine: it converts business documents into journal
// rows inside one storage transaction per save. Saving is idempotent; an
// unchanged document saved N times yields the same journal content as one
// save.
type Service struct {
	repo    Repository
	rates   RateSource
	audit   AuditPort
	metrics PostingObserver
	prefix  string
	now     func() time.Time
}

// NewService wires the posting engine. prefix is the two-letter document
// number prefix; rates may be nil when conversions are not used.
func NewService(repo Repository, rates RateSource, audit AuditPort, metrics PostingObserver, prefix string) *Service {
	return &Service{
		repo:    repo,
		rates:   rates,
		audit:   audit,
		metrics: metrics,
		prefix:  prefix,
		now:     time.Now,
	}
}

func (s *Service) WithNow(now func() time.Time) {
	if now != nil {
		s.now = now
	}
}

// prepareMeta assigns identity, date and number, and enforces that a deleted
// document can never remain posted.
func (s *Service) prepareMeta(ctx context.Context, tx TxRepository, kind DocumentKind, meta *DocumentMeta) error {
	if meta.ID == uuid.Nil {
		meta.ID = uuid.New()
	}
	if meta.Date.IsZero() {
		meta.Date = s.now()
	}
	if meta.IsDeleted {
		meta.IsPosted = false
	}
	if meta.Number == "" {
		number, err := nextDocumentNumber(ctx, tx, kind, s.prefix, meta.Date)
		if err != nil {
			return err
		}
		meta.Number = number
	}
	return nil
}

// syncOwned upserts the single journal row owned by a document, updating
// mutable fields in place so the row keeps its identity across saves.
func syncOwned(ctx context.Context, tx TxRepository, want Transaction) error {
	existing, err := tx.TransactionByOwnerAndType(ctx, want.Owner, want.Type)
	if err != nil {
		return err
	}
	if existing == nil {
		return tx.InsertTransaction(ctx, &want)
	}
	want.ID = existing.ID
	want.CreatedAt = existing.CreatedAt
	want.CreatedBy = existing.CreatedBy
	return tx.UpdateTransaction(ctx, want)
}

func actorRef(actor int64) *int64 {
	if actor == 0 {
		return nil
	}
	return &actor
}

func defaultDescription(description, fallback string) string {
	if description != "" {
		return description
	}
	return fallback
}

func (s *Service) observe(kind DocumentKind, err error) {
	if s.metrics != nil {
		s.metrics.ObservePosting(string(kind), err)
	}
}

// auditAction distinguishes a soft delete from an ordinary save in the trail.
func auditAction(deleted bool) string {
	if deleted {
		return "document.delete"
	}
	return "document.save"
}

func (s *Service) recordAudit(ctx context.Context, actor int64, action string, kind DocumentKind, id uuid.UUID, meta map[string]any) {
	if s.audit == nil {
		return
	}
	_ = s.audit.Record(ctx, internalShared.AuditLog{
		ActorID:  actor,
		Action:   action,
		Entity:   string(kind),
		EntityID: id.String(),
		Meta:     meta,
		At:       s.now(),
	})
}

// SaveIncome posts a cash receipt: one positive journal row.
func (s *Service) SaveIncome(ctx context.Context, doc IncomeDocument, actor int64) (IncomeDocument, error) {
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		if err := s.prepareMeta(ctx, tx, KindIncomeDocument, &doc.DocumentMeta); err != nil {
			return err
		}
		owner := DocumentRef{Kind: KindIncomeDocument, ID: doc.ID}
		if doc.IsDeleted {
			if err := tx.SaveIncomeDocument(ctx, doc); err != nil {
				return err
			}
			return tx.DeleteTransactionsByOwner(ctx, owner)
		}
		doc.IsPosted = true
		if err := tx.SaveIncomeDocument(ctx, doc); err != nil {
			return err
		}
		return syncOwned(ctx, tx, Transaction{
			Date:           doc.Date,
			Type:           TransactionIncome,
			Amount:         doc.Amount,
			Description:    defaultDescription(doc.Description, fmt.Sprintf("Cash receipt %s", doc.Number)),
			CashRegisterID: doc.CashRegisterID,
			CurrencyID:     doc.CurrencyID,
			ItemID:         &doc.ItemID,
			EmployeeID:     doc.EmployeeID,
			Owner:          owner,
			CreatedBy:      actorRef(actor),
		})
	})
	s.observe(KindIncomeDocument, err)
	if err != nil {
		return IncomeDocument{}, err
	}
	s.recordAudit(ctx, actor, auditAction(doc.IsDeleted), KindIncomeDocument, doc.ID, map[string]any{"number": doc.Number})
	return doc, nil
}

// SaveExpense posts a cash disbursement: one negative journal row.
func (s *Service) SaveExpense(ctx context.Context, doc ExpenseDocument, actor int64) (ExpenseDocument, error) {
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		if err := s.prepareMeta(ctx, tx, KindExpenseDocument, &doc.DocumentMeta); err != nil {
			return err
		}
		owner := DocumentRef{Kind: KindExpenseDocument, ID: doc.ID}
		if doc.IsDeleted {
			if err := tx.SaveExpenseDocument(ctx, doc); err != nil {
				return err
			}
			return tx.DeleteTransactionsByOwner(ctx, owner)
		}
		if !doc.Amount.IsPositive() {
			return shared.ErrAmountNotPositive
		}
		doc.IsPosted = true
		if err := tx.SaveExpenseDocument(ctx, doc); err != nil {
			return err
		}
		return syncOwned(ctx, tx, Transaction{
			Date:           doc.Date,
			Type:           TransactionExpense,
			Amount:         doc.Amount.Neg(),
			Description:    defaultDescription(doc.Description, fmt.Sprintf("Cash expense %s", doc.Number)),
			CashRegisterID: doc.CashRegisterID,
			CurrencyID:     doc.CurrencyID,
			ItemID:         &doc.ItemID,
			EmployeeID:     doc.EmployeeID,
			Owner:          owner,
			CreatedBy:      actorRef(actor),
		})
	})
	s.observe(KindExpenseDocument, err)
	if err != nil {
		return ExpenseDocument{}, err
	}
	s.recordAudit(ctx, actor, auditAction(doc.IsDeleted), KindExpenseDocument, doc.ID, map[string]any{"number": doc.Number})
	return doc, nil
}

// SaveAdvancePayment issues accountable cash to an employee: one negative row.
func (s *Service) SaveAdvancePayment(ctx context.Context, doc AdvancePayment, actor int64) (AdvancePayment, error) {
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		if err := s.prepareMeta(ctx, tx, KindAdvancePayment, &doc.DocumentMeta); err != nil {
			return err
		}
		owner := DocumentRef{Kind: KindAdvancePayment, ID: doc.ID}
		if doc.IsDeleted {
			if err := tx.SaveAdvancePayment(ctx, doc); err != nil {
				return err
			}
			return tx.DeleteTransactionsByOwner(ctx, owner)
		}
		if !doc.Amount.IsPositive() {
			return shared.ErrAmountNotPositive
		}
		doc.IsPosted = true
		if err := tx.SaveAdvancePayment(ctx, doc); err != nil {
			return err
		}
		return syncOwned(ctx, tx, Transaction{
			Date:             doc.Date,
			Type:             TransactionAdvancePayment,
			Amount:           doc.Amount.Neg(),
			Description:      fmt.Sprintf("Advance payment %s", doc.Number),
			CashRegisterID:   doc.CashRegisterID,
			CurrencyID:       doc.CurrencyID,
			ItemID:           &doc.ExpenseItemID,
			EmployeeID:       &doc.EmployeeID,
			Owner:            owner,
			AdvancePaymentID: &doc.ID,
			CreatedBy:        actorRef(actor),
		})
	})
	s.observe(KindAdvancePayment, err)
	if err != nil {
		return AdvancePayment{}, err
	}
	s.recordAudit(ctx, actor, auditAction(doc.IsDeleted), KindAdvancePayment, doc.ID, map[string]any{"number": doc.Number})
	return doc, nil
}

// SaveAdditionalAdvancePayment tops up an existing advance: one negative row
// attributed to the original advance's employee.
func (s *Service) SaveAdditionalAdvancePayment(ctx context.Context, doc AdditionalAdvancePayment, actor int64) (AdditionalAdvancePayment, error) {
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		if err := s.prepareMeta(ctx, tx, KindAdditionalAdvance, &doc.DocumentMeta); err != nil {
			return err
		}
		owner := DocumentRef{Kind: KindAdditionalAdvance, ID: doc.ID}
		if doc.IsDeleted {
			if err := tx.SaveAdditionalAdvancePayment(ctx, doc); err != nil {
				return err
			}
			return tx.DeleteTransactionsByOwner(ctx, owner)
		}
		if !doc.Amount.IsPositive() {
			return shared.ErrAmountNotPositive
		}
		advance, err := tx.GetAdvancePaymentForUpdate(ctx, doc.OriginalAdvanceID)
		if err != nil {
			return fmt.Errorf("%w: original advance", shared.ErrAdvanceNotFound)
		}
		doc.IsPosted = true
		if err := tx.SaveAdditionalAdvancePayment(ctx, doc); err != nil {
			return err
		}
		return syncOwned(ctx, tx, Transaction{
			Date:             doc.Date,
			Type:             TransactionAdditionalAdvance,
			Amount:           doc.Amount.Neg(),
			Description:      fmt.Sprintf("Additional advance %s", doc.Number),
			CashRegisterID:   doc.CashRegisterID,
			CurrencyID:       doc.CurrencyID,
			EmployeeID:       &advance.EmployeeID,
			Owner:            owner,
			AdvancePaymentID: &advance.ID,
			CreatedBy:        actorRef(actor),
		})
	})
	s.observe(KindAdditionalAdvance, err)
	if err != nil {
		return AdditionalAdvancePayment{}, err
	}
	s.recordAudit(ctx, actor, auditAction(doc.IsDeleted), KindAdditionalAdvance, doc.ID, map[string]any{"number": doc.Number})
	return doc, nil
}

// SaveAdvanceReturn takes unspent advance money back into a register: one
// positive row, bounded by the advance's unreturned balance.
func (s *Service) SaveAdvanceReturn(ctx context.Context, doc AdvanceReturn, actor int64) (AdvanceReturn, error) {
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		if err := s.prepareMeta(ctx, tx, KindAdvanceReturn, &doc.DocumentMeta); err != nil {
			return err
		}
		owner := DocumentRef{Kind: KindAdvanceReturn, ID: doc.ID}
		if doc.IsDeleted {
			if err := tx.SaveAdvanceReturn(ctx, doc); err != nil {
				return err
			}
			return tx.DeleteTransactionsByOwner(ctx, owner)
		}
		if !doc.Amount.IsPositive() {
			return shared.ErrAmountNotPositive
		}
		advance, err := tx.GetAdvancePaymentForUpdate(ctx, doc.AdvancePaymentID)
		if err != nil {
			return shared.ErrAdvanceNotFound
		}
		available, err := availableForReturn(ctx, tx, advance, &doc.ID)
		if err != nil {
			return err
		}
		if doc.Amount.GreaterThan(available) {
			return fmt.Errorf("%w: available %s", shared.ErrReturnExceedsBalance, available.StringFixed(2))
		}
		doc.IsPosted = true
		if err := tx.SaveAdvanceReturn(ctx, doc); err != nil {
			return err
		}
		return syncOwned(ctx, tx, Transaction{
			Date:             doc.Date,
			Type:             TransactionAdvanceReturn,
			Amount:           doc.Amount,
			Description:      defaultDescription(doc.Description, fmt.Sprintf("Advance return %s", doc.Number)),
			CashRegisterID:   doc.CashRegisterID,
			CurrencyID:       doc.CurrencyID,
			EmployeeID:       &doc.EmployeeID,
			Owner:            owner,
			AdvancePaymentID: &advance.ID,
			CreatedBy:        actorRef(actor),
		})
	})
	s.observe(KindAdvanceReturn, err)
	if err != nil {
		return AdvanceReturn{}, err
	}
	s.recordAudit(ctx, actor, auditAction(doc.IsDeleted), KindAdvanceReturn, doc.ID, map[string]any{"number": doc.Number})
	return doc, nil
}

// availableForReturn is issued (advance + top-ups) minus already returned
// (return documents, excluding the one being edited, plus report returns).
func availableForReturn(ctx context.Context, tx TxRepository, advance AdvancePayment, excludeReturn *uuid.UUID) (decimal.Decimal, error) {
	additional, err := tx.SumAdditionalIssued(ctx, advance.ID)
	if err != nil {
		return decimal.Zero, err
	}
	returned, err := tx.SumReturnDocuments(ctx, advance.ID, excludeReturn)
	if err != nil {
		return decimal.Zero, err
	}
	reportReturns, err := tx.SumReportReturns(ctx, advance.ID)
	if err != nil {
		return decimal.Zero, err
	}
	issued := advance.Amount.Add(additional)
	return issued.Sub(returned).Sub(reportReturns.Abs()), nil
}

// SaveCashTransfer moves cash between registers: a negative row at the
// source and a positive row at the destination, rebuilt on every save.
func (s *Service) SaveCashTransfer(ctx context.Context, doc CashTransfer, actor int64) (CashTransfer, error) {
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		if err := s.prepareMeta(ctx, tx, KindCashTransfer, &doc.DocumentMeta); err != nil {
			return err
		}
		owner := DocumentRef{Kind: KindCashTransfer, ID: doc.ID}
		if doc.IsDeleted {
			if err := tx.SaveCashTransfer(ctx, doc); err != nil {
				return err
			}
			return tx.DeleteTransactionsByOwner(ctx, owner)
		}
		if doc.FromCashRegisterID == doc.ToCashRegisterID {
			return shared.ErrSameRegister
		}
		if !doc.Amount.IsPositive() {
			return shared.ErrAmountNotPositive
		}
		// The document's own previously posted rows are excluded so that
		// re-saving a transfer does not count its own outflow against it.
		balance, err := tx.CashBalance(ctx, doc.FromCashRegisterID, doc.CurrencyID, &doc.Date, &owner)
		if err != nil {
			return err
		}
		if balance.LessThan(doc.Amount) {
			return fmt.Errorf("%w: available %s, requested %s", shared.ErrInsufficientBalance, balance.StringFixed(2), doc.Amount.StringFixed(2))
		}
		doc.IsPosted = true
		if err := tx.SaveCashTransfer(ctx, doc); err != nil {
			return err
		}
		if err := tx.DeleteTransactionsByOwner(ctx, owner); err != nil {
			return err
		}
		legs := []Transaction{
			{
				Date:           doc.Date,
				Type:           TransactionTransfer,
				Amount:         doc.Amount.Neg(),
				Description:    fmt.Sprintf("Cash transfer %s (out)", doc.Number),
				CashRegisterID: doc.FromCashRegisterID,
				CurrencyID:     doc.CurrencyID,
				Owner:          owner,
				CreatedBy:      actorRef(actor),
			},
			{
				Date:           doc.Date,
				Type:           TransactionTransfer,
				Amount:         doc.Amount,
				Description:    fmt.Sprintf("Cash transfer %s (in)", doc.Number),
				CashRegisterID: doc.ToCashRegisterID,
				CurrencyID:     doc.CurrencyID,
				Owner:          owner,
				CreatedBy:      actorRef(actor),
			},
		}
		for i := range legs {
			if err := tx.InsertTransaction(ctx, &legs[i]); err != nil {
				return err
			}
		}
		return nil
	})
	s.observe(KindCashTransfer, err)
	if err != nil {
		return CashTransfer{}, err
	}
	s.recordAudit(ctx, actor, auditAction(doc.IsDeleted), KindCashTransfer, doc.ID, map[string]any{"number": doc.Number})
	return doc, nil
}

// SaveCurrencyConversion exchanges currencies inside one register: a
// negative row in the source currency, a positive row in the target.
// A zero exchange rate is auto-filled from the rate catalogue; a zero
// to_amount is derived as from_amount*rate rounded half-up to cents.
func (s *Service) SaveCurrencyConversion(ctx context.Context, doc CurrencyConversion, actor int64) (CurrencyConversion, error) {
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		if err := s.prepareMeta(ctx, tx, KindCurrencyConversion, &doc.DocumentMeta); err != nil {
			return err
		}
		owner := DocumentRef{Kind: KindCurrencyConversion, ID: doc.ID}
		if doc.IsDeleted {
			if err := tx.SaveCurrencyConversion(ctx, doc); err != nil {
				return err
			}
			return tx.DeleteTransactionsByOwner(ctx, owner)
		}
		if doc.FromCurrencyID == doc.ToCurrencyID {
			return shared.ErrSameCurrency
		}
		if doc.ExchangeRate.IsZero() && s.rates != nil {
			rate, ok, err := s.rates.Rate(ctx, doc.FromCurrencyID, doc.ToCurrencyID, doc.Date)
			if err != nil {
				return err
			}
			if ok {
				doc.ExchangeRate = rate
			}
			// When no rate exists the document keeps a zero rate and fails
			// its own positivity validation below instead of crashing.
		}
		if doc.ExchangeRate.IsPositive() && doc.ToAmount.IsZero() {
			doc.ToAmount = doc.FromAmount.Mul(doc.ExchangeRate).Round(2)
		}
		if !doc.FromAmount.IsPositive() || !doc.ToAmount.IsPositive() {
			return shared.ErrAmountNotPositive
		}
		if !doc.ExchangeRate.IsPositive() {
			return shared.ErrRateNotPositive
		}
		expected := doc.FromAmount.Mul(doc.ExchangeRate).Round(2)
		if doc.ToAmount.Sub(expected).Abs().GreaterThan(conversionTolerance) {
			return fmt.Errorf("%w: expected %s, got %s", shared.ErrRateMismatch, expected.StringFixed(2), doc.ToAmount.StringFixed(2))
		}
		balance, err := tx.CashBalance(ctx, doc.CashRegisterID, doc.FromCurrencyID, &doc.Date, &owner)
		if err != nil {
			return err
		}
		if balance.LessThan(doc.FromAmount) {
			return fmt.Errorf("%w: available %s, requested %s", shared.ErrInsufficientBalance, balance.StringFixed(2), doc.FromAmount.StringFixed(2))
		}
		doc.IsPosted = true
		if err := tx.SaveCurrencyConversion(ctx, doc); err != nil {
			return err
		}
		if err := tx.DeleteTransactionsByOwner(ctx, owner); err != nil {
			return err
		}
		legs := []Transaction{
			{
				Date:           doc.Date,
				Type:           TransactionConversion,
				Amount:         doc.FromAmount.Neg(),
				Description:    fmt.Sprintf("Currency conversion %s (out)", doc.Number),
				CashRegisterID: doc.CashRegisterID,
				CurrencyID:     doc.FromCurrencyID,
				Owner:          owner,
				CreatedBy:      actorRef(actor),
			},
			{
				Date:           doc.Date,
				Type:           TransactionConversion,
				Amount:         doc.ToAmount,
				Description:    fmt.Sprintf("Currency conversion %s (in)", doc.Number),
				CashRegisterID: doc.CashRegisterID,
				CurrencyID:     doc.ToCurrencyID,
				Owner:          owner,
				CreatedBy:      actorRef(actor),
			},
		}
		for i := range legs {
			if err := tx.InsertTransaction(ctx, &legs[i]); err != nil {
				return err
			}
		}
		return nil
	})
	s.observe(KindCurrencyConversion, err)
	if err != nil {
		return CurrencyConversion{}, err
	}
	s.recordAudit(ctx, actor, auditAction(doc.IsDeleted), KindCurrencyConversion, doc.ID, map[string]any{"number": doc.Number})
	return doc, nil
}
