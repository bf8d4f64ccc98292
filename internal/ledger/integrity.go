package ledger

import (
	"context"
	"log/slog"
)

// IntegrityReport lists journal rows violating the posting invariants.
// A non-empty report indicates a bug in the posting engine, not bad input.
type IntegrityReport struct {
	Orphans    []Transaction
	Duplicates []DocumentRef
}

// Clean reports whether no violations were found.
func (r IntegrityReport) Clean() bool {
	return len(r.Orphans) == 0 && len(r.Duplicates) == 0
}

// IntegrityScanner checks the journal for orphaned rows (owning document
// gone) and duplicate rows for single-transaction document identities.
type IntegrityScanner struct {
	repo   Repository
	logger *slog.Logger
}

func NewIntegrityScanner(repo Repository, logger *slog.Logger) *IntegrityScanner {
	return &IntegrityScanner{repo: repo, logger: logger}
}

func (s *IntegrityScanner) Scan(ctx context.Context) (IntegrityReport, error) {
	orphans, err := s.repo.ListOrphanTransactions(ctx)
	if err != nil {
		return IntegrityReport{}, err
	}
	duplicates, err := s.repo.ListDuplicateOwnerTransactions(ctx)
	if err != nil {
		return IntegrityReport{}, err
	}
	report := IntegrityReport{Orphans: orphans, Duplicates: duplicates}
	if s.logger != nil && !report.Clean() {
		s.logger.Error("journal integrity violations found",
			slog.Int("orphans", len(report.Orphans)),
			slog.Int("duplicates", len(report.Duplicates)))
	}
	return report, nil
}
