package ledger

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/cashdesk-erp/cashdesk/internal/ledger/shared"
)

// SaveAdvanceReport drives the report state machine. Journal rows exist only
// while the report is confirmed: one negative row per line item plus at most
// one return row and one top-up row. Leaving the confirmed state, or being
// soft-deleted, removes every row owned by the report or its items and
// unposts the document.
func (s *Service) SaveAdvanceReport(ctx context.Context, doc AdvanceReport, actor int64) (AdvanceReport, error) {
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		oldStatus := ReportStatus("")
		if doc.ID != uuid.Nil {
			old, err := tx.GetAdvanceReportForUpdate(ctx, doc.ID)
			switch {
			case err == nil:
				oldStatus = old.Status
				if doc.ApprovedAt == nil {
					doc.ApprovedAt = old.ApprovedAt
					doc.ApprovedBy = old.ApprovedBy
				}
			case errors.Is(err, shared.ErrDocumentNotFound):
				// first save of a caller-assigned id
			default:
				return err
			}
		}
		if err := s.prepareMeta(ctx, tx, KindAdvanceReport, &doc.DocumentMeta); err != nil {
			return err
		}
		if doc.Status == "" {
			doc.Status = ReportStatusDraft
		}
		for i := range doc.Items {
			if doc.Items[i].ID == uuid.Nil {
				doc.Items[i].ID = uuid.New()
			}
			doc.Items[i].ReportID = doc.ID
			if doc.Items[i].Date.IsZero() {
				doc.Items[i].Date = doc.Date
			}
		}

		// The advance row is locked for the whole save so that concurrent
		// reports against the same advance cannot skew total_issued.
		advance, err := tx.GetAdvancePaymentForUpdate(ctx, doc.AdvancePaymentID)
		if err != nil {
			return shared.ErrAdvanceNotFound
		}
		additionalIssued, err := tx.SumAdditionalIssued(ctx, advance.ID)
		if err != nil {
			return err
		}
		calculateReturnAndAdditional(&doc, advance.Amount, additionalIssued)
		if doc.TotalAmount.IsNegative() || doc.ReturnAmount.IsNegative() || doc.AdditionalPayment.IsNegative() {
			return shared.ErrNegativeReportAmount
		}

		if doc.IsDeleted {
			doc.IsPosted = false
			if err := tx.DeleteReportTransactions(ctx, doc.ID); err != nil {
				return err
			}
			return tx.SaveAdvanceReport(ctx, doc)
		}

		confirmed := doc.Status == ReportStatusConfirmed
		if confirmed {
			if len(doc.Items) == 0 {
				return shared.ErrNoReportItems
			}
			if advance.ExpenseItemID == uuid.Nil {
				return fmt.Errorf("%w: advance has no expense item", shared.ErrAdvanceNotFound)
			}
			for _, item := range doc.Items {
				if item.ItemID != advance.ExpenseItemID {
					return fmt.Errorf("%w: line %q", shared.ErrCategoryMismatch, item.Description)
				}
			}
			if doc.ApprovedAt == nil {
				now := s.now()
				doc.ApprovedAt = &now
				doc.ApprovedBy = actorRef(actor)
			}
		}
		doc.IsPosted = confirmed

		// Any transition away from confirmed, and every rebuild while
		// confirmed, starts from a clean slate for this report's rows. The
		// delete has to run before the save: saving prunes removed line
		// items, and item-owned rows are resolved through those items.
		if oldStatus == ReportStatusConfirmed || confirmed {
			if err := tx.DeleteReportTransactions(ctx, doc.ID); err != nil {
				return err
			}
		}
		if err := tx.SaveAdvanceReport(ctx, doc); err != nil {
			return err
		}
		if !confirmed {
			return nil
		}
		return s.postConfirmedReport(ctx, tx, doc, advance, actor)
	})
	s.observe(KindAdvanceReport, err)
	if err != nil {
		return AdvanceReport{}, err
	}
	action := auditAction(doc.IsDeleted)
	if !doc.IsDeleted && doc.Status == ReportStatusConfirmed {
		action = "document.confirm"
	}
	s.recordAudit(ctx, actor, action, KindAdvanceReport, doc.ID, map[string]any{
		"number": doc.Number,
		"status": string(doc.Status),
	})
	return doc, nil
}

// postConfirmedReport writes the report's journal rows and applies the
// closing side effects. Line items with a mismatched category were already
// rejected by validation; the skip here is defensive only.
func (s *Service) postConfirmedReport(ctx context.Context, tx TxRepository, doc AdvanceReport, advance AdvancePayment, actor int64) error {
	for _, item := range doc.Items {
		if item.ItemID != advance.ExpenseItemID {
			continue
		}
		itemID := item.ItemID
		tr := Transaction{
			Date:           item.Date,
			Type:           TransactionAdvanceReport,
			Amount:         item.Amount.Neg(),
			Description:    defaultDescription(item.Description, fmt.Sprintf("Advance report %s", doc.Number)),
			CashRegisterID: advance.CashRegisterID,
			CurrencyID:     doc.CurrencyID,
			ItemID:         &itemID,
			EmployeeID:     &advance.EmployeeID,
			Owner:          DocumentRef{Kind: KindAdvanceReportItem, ID: item.ID},
			CreatedBy:      actorRef(actor),
		}
		if err := tx.InsertTransaction(ctx, &tr); err != nil {
			return err
		}
	}

	owner := DocumentRef{Kind: KindAdvanceReport, ID: doc.ID}
	if doc.ReturnAmount.IsPositive() {
		tr := Transaction{
			Date:             doc.Date,
			Type:             TransactionAdvanceReturnReport,
			Amount:           doc.ReturnAmount,
			Description:      fmt.Sprintf("Return against advance report %s", doc.Number),
			CashRegisterID:   advance.CashRegisterID,
			CurrencyID:       doc.CurrencyID,
			EmployeeID:       &advance.EmployeeID,
			Owner:            owner,
			AdvancePaymentID: &advance.ID,
			CreatedBy:        actorRef(actor),
		}
		if err := tx.InsertTransaction(ctx, &tr); err != nil {
			return err
		}
	}
	if doc.AdditionalPayment.IsPositive() {
		tr := Transaction{
			Date:             doc.Date,
			Type:             TransactionAdvanceAdditional,
			Amount:           doc.AdditionalPayment,
			Description:      fmt.Sprintf("Top-up against advance report %s", doc.Number),
			CashRegisterID:   advance.CashRegisterID,
			CurrencyID:       doc.CurrencyID,
			EmployeeID:       &advance.EmployeeID,
			Owner:            owner,
			AdvancePaymentID: &advance.ID,
			CreatedBy:        actorRef(actor),
		}
		if err := tx.InsertTransaction(ctx, &tr); err != nil {
			return err
		}

		// Keeping the advance open with a top-up issues the difference as a
		// fresh additional advance so the employee actually receives it.
		if !doc.CloseAdvancePayment {
			if err := s.issueReportTopUp(ctx, tx, doc, advance, actor); err != nil {
				return err
			}
		}
	}

	if doc.CloseAdvancePayment {
		if err := tx.CloseAdvancePayment(ctx, advance.ID, s.now()); err != nil {
			return err
		}
	}
	return nil
}

func (s *Service) issueReportTopUp(ctx context.Context, tx TxRepository, doc AdvanceReport, advance AdvancePayment, actor int64) error {
	topUp := AdditionalAdvancePayment{
		DocumentMeta: DocumentMeta{
			ID:       uuid.New(),
			Date:     doc.Date,
			IsPosted: true,
		},
		OriginalAdvanceID: advance.ID,
		CashRegisterID:    advance.CashRegisterID,
		CurrencyID:        doc.CurrencyID,
		Amount:            doc.AdditionalPayment,
		Purpose:           fmt.Sprintf("Top-up per advance report %s", doc.Number),
	}
	number, err := nextDocumentNumber(ctx, tx, KindAdditionalAdvance, s.prefix, topUp.Date)
	if err != nil {
		return err
	}
	topUp.Number = number
	if err := tx.SaveAdditionalAdvancePayment(ctx, topUp); err != nil {
		return err
	}
	tr := Transaction{
		Date:             topUp.Date,
		Type:             TransactionAdditionalAdvance,
		Amount:           topUp.Amount.Neg(),
		Description:      fmt.Sprintf("Additional advance %s", topUp.Number),
		CashRegisterID:   topUp.CashRegisterID,
		CurrencyID:       topUp.CurrencyID,
		EmployeeID:       &advance.EmployeeID,
		Owner:            DocumentRef{Kind: KindAdditionalAdvance, ID: topUp.ID},
		AdvancePaymentID: &advance.ID,
		CreatedBy:        actorRef(actor),
	}
	return tx.InsertTransaction(ctx, &tr)
}
