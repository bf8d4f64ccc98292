package ledger

import (
	"context"
	"fmt"
	"time"

	internalShared "github.com/cashdesk-erp/cashdesk/internal/shared"
)

// FormatDocumentNumber renders PREFIX + zero-padded 7-digit sequence.
func FormatDocumentNumber(prefix string, seq int) string {
	return fmt.Sprintf("%s%07d", prefix, seq)
}

// nextDocumentNumber generates the next number for a document kind within
// the calendar year of the document date. The scan-then-increment is
// serialised with an advisory lock on (kind, year); the unique index on
// (kind, number, year) backstops anything that still slips through.
func nextDocumentNumber(ctx context.Context, tx TxRepository, kind DocumentKind, prefix string, date time.Time) (string, error) {
	year := date.Year()
	if err := tx.AcquireNumberingLock(ctx, internalShared.NumberingLockKey(string(kind), year)); err != nil {
		return "", fmt.Errorf("ledger: numbering lock: %w", err)
	}
	max, err := tx.MaxDocumentNumber(ctx, kind, prefix, year)
	if err != nil {
		return "", fmt.Errorf("ledger: scan numbers: %w", err)
	}
	return FormatDocumentNumber(prefix, max+1), nil
}
