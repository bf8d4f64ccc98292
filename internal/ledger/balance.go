package ledger

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"
)

// Calculator derives balances from the journal on demand. Balances are
// advisory reporting outputs: lookup failures degrade to zero instead of
// raising, with a warning in the log.
type Calculator struct {
	repo   Repository
	logger *slog.Logger
}

func NewCalculator(repo Repository, logger *slog.Logger) *Calculator {
	return &Calculator{repo: repo, logger: logger}
}

func (c *Calculator) warn(msg string, err error) {
	if c.logger != nil && err != nil {
		c.logger.Warn(msg, slog.Any("error", err))
	}
}

// CashBalance sums the register's signed journal amounts in one currency up
// to asOf (inclusive) when given. Rows whose owning document is soft-deleted
// are excluded even if the row itself has not been purged yet.
func (c *Calculator) CashBalance(ctx context.Context, registerID, currencyID uuid.UUID, asOf *time.Time) decimal.Decimal {
	balance, err := c.repo.CashBalance(ctx, registerID, currencyID, asOf, nil)
	if err != nil {
		c.warn("cash balance query failed", err)
		return decimal.Zero
	}
	return balance
}

// EmployeeAdvanceBalance is issued + top-ups − confirmed report totals −
// returns + report top-up payments, all scoped to one employee and currency.
func (c *Calculator) EmployeeAdvanceBalance(ctx context.Context, employeeID, currencyID uuid.UUID) decimal.Decimal {
	var issued, additional, confirmed, returns, topUps decimal.Decimal
	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		issued, err = c.repo.SumAdvancesIssuedByEmployee(ctx, employeeID, currencyID)
		return err
	})
	g.Go(func() (err error) {
		additional, err = c.repo.SumAdditionalIssuedByEmployee(ctx, employeeID, currencyID)
		return err
	})
	g.Go(func() (err error) {
		confirmed, err = c.repo.SumConfirmedReportTotalsByEmployee(ctx, employeeID, currencyID)
		return err
	})
	g.Go(func() (err error) {
		returns, err = c.repo.SumReturnTransactionsByEmployee(ctx, employeeID, currencyID)
		return err
	})
	g.Go(func() (err error) {
		topUps, err = c.repo.SumReportAdditionalsByEmployee(ctx, employeeID, currencyID)
		return err
	})
	if err := g.Wait(); err != nil {
		c.warn("advance balance query failed", err)
		return decimal.Zero
	}
	return issued.Add(additional).Sub(confirmed).Sub(returns.Abs()).Add(topUps)
}

// UnreportedBalance is the employee advance formula scoped to one advance:
// (amount + top-ups) − confirmed report totals − (direct returns + report
// returns) + report top-up payments. It gates new return documents and the
// open-advance selection lists.
func (c *Calculator) UnreportedBalance(ctx context.Context, advanceID uuid.UUID) decimal.Decimal {
	advance, err := c.repo.GetAdvancePayment(ctx, advanceID)
	if err != nil {
		c.warn("unreported balance query failed", err)
		return decimal.Zero
	}
	if advance.IsDeleted || advance.Amount.IsZero() {
		return decimal.Zero
	}
	var additional, confirmed, returnDocs, reportReturns, topUps decimal.Decimal
	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		additional, err = c.repo.SumAdditionalIssued(ctx, advanceID)
		return err
	})
	g.Go(func() (err error) {
		confirmed, err = c.repo.SumConfirmedReportTotals(ctx, advanceID)
		return err
	})
	g.Go(func() (err error) {
		returnDocs, err = c.repo.SumReturnDocuments(ctx, advanceID, nil)
		return err
	})
	g.Go(func() (err error) {
		reportReturns, err = c.repo.SumReportReturns(ctx, advanceID)
		return err
	})
	g.Go(func() (err error) {
		topUps, err = c.repo.SumReportAdditionals(ctx, advanceID)
		return err
	})
	if err := g.Wait(); err != nil {
		c.warn("unreported balance query failed", err)
		return decimal.Zero
	}
	issued := advance.Amount.Add(additional)
	return issued.Sub(confirmed).Sub(returnDocs.Add(reportReturns.Abs())).Add(topUps)
}
