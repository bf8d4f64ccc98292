package jobs

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/hibiken/asynq"

	"github.com/cashdesk-erp/cashdesk/internal/ledger"
)

// IntegrityScanner is the subset of the ledger scanner the job depends on.
type IntegrityScanner interface {
	Scan(ctx context.Context) (ledger.IntegrityReport, error)
}

// JournalIntegrityJob runs the journal integrity scan as a background task.
type JournalIntegrityJob struct {
	scanner IntegrityScanner
	logger  *slog.Logger
}

func NewJournalIntegrityJob(scanner IntegrityScanner, logger *slog.Logger) *JournalIntegrityJob {
	return &JournalIntegrityJob{scanner: scanner, logger: logger}
}

// Handle processes TaskJournalIntegrity tasks. Violations are logged, not
// fatal: the scan is a detector, repairs stay manual.
func (j *JournalIntegrityJob) Handle(ctx context.Context, t *asynq.Task) error {
	var payload JournalIntegrityPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return asynq.SkipRetry
	}
	report, err := j.scanner.Scan(ctx)
	if err != nil {
		return err
	}
	if j.logger != nil {
		j.logger.Info("journal integrity scan finished",
			slog.String("requested", payload.Requested),
			slog.Bool("clean", report.Clean()),
			slog.Int("orphans", len(report.Orphans)),
			slog.Int("duplicates", len(report.Duplicates)))
	}
	return nil
}
