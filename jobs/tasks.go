package jobs

import (
	"encoding/json"

	"github.com/hibiken/asynq"
)

const (
	// QueueDefault is the default queue name for background jobs.
	QueueDefault = "default"
	// TaskJournalIntegrity scans the journal for posting invariant violations.
	TaskJournalIntegrity = "ledger:integrity_scan"
)

// JournalIntegrityPayload parameterises the integrity scan.
type JournalIntegrityPayload struct {
	// Requested identifies who or what asked for the scan, for log lines.
	Requested string `json:"requested"`
}

// NewJournalIntegrityTask constructs an Asynq task for the integrity scan.
func NewJournalIntegrityTask(payload JournalIntegrityPayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskJournalIntegrity, data), nil
}
