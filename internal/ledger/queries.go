package ledger

import (
	"context"

	"github.com/google/uuid"
)

// Reporter is the read-only query surface over the journal consumed by the
// reporting layer.
type Reporter struct {
	repo Repository
}

func NewReporter(repo Repository) *Reporter {
	return &Reporter{repo: repo}
}

// Transactions lists journal rows matching the filter, newest first, with
// soft-deleted owner chains excluded.
func (r *Reporter) Transactions(ctx context.Context, f TransactionFilter) ([]Transaction, error) {
	return r.repo.FilterTransactions(ctx, f)
}

// ExpenseByItem groups confirmed advance report lines by expense item.
func (r *Reporter) ExpenseByItem(ctx context.Context, f ReportItemFilter) ([]ItemTotal, error) {
	return r.repo.ExpenseByItem(ctx, f)
}

// OpenAdvances lists non-deleted, non-closed advances, optionally scoped to
// one employee. Closed advances stay out of selection lists but remain
// queryable for history.
func (r *Reporter) OpenAdvances(ctx context.Context, employeeID *uuid.UUID) ([]AdvancePayment, error) {
	return r.repo.ListOpenAdvances(ctx, employeeID)
}
