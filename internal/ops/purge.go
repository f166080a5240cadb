package ops

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/hpungsan/tally/internal/db"
	"github.com/hpungsan/tally/internal/errors"
)

// MaxPurgeDays bounds older_than_days so the cutoff stays within the
// range of a Unix timestamp.
const MaxPurgeDays = 36500

// PurgeInput contains parameters for the Purge operation.
type PurgeInput struct {
	OlderThanDays *int // optional, only purge if created_at < (now - N days)
	FailedOnly    bool // only purge evaluations that ended in an error
}

// PurgeOutput contains the result of the Purge operation.
type PurgeOutput struct {
	Purged  int    `json:"purged"`
	Message string `json:"message"`
}

// Purge permanently deletes recorded evaluations.
func Purge(ctx context.Context, database *sql.DB, input PurgeInput) (out *PurgeOutput, err error) {
	ctx, span := startSpan(ctx, "Purge")
	defer func() { endSpan(span, err) }()

	if input.OlderThanDays != nil && *input.OlderThanDays < 0 {
		return nil, errors.NewInvalidRequest("older_than_days must be non-negative")
	}
	if input.OlderThanDays != nil && *input.OlderThanDays > MaxPurgeDays {
		return nil, errors.NewInvalidRequest(fmt.Sprintf("older_than_days must be at most %d", MaxPurgeDays))
	}

	count, err := db.Purge(ctx, database, input.OlderThanDays, input.FailedOnly)
	if err != nil {
		return nil, err
	}

	return &PurgeOutput{
		Purged:  count,
		Message: formatPurgeMessage(count, input.OlderThanDays, input.FailedOnly),
	}, nil
}

// formatPurgeMessage creates a human-readable message for the purge result.
func formatPurgeMessage(count int, olderThanDays *int, failedOnly bool) string {
	if count == 0 {
		return "No evaluations to purge"
	}

	word := "evaluation"
	if count > 1 {
		word = "evaluations"
	}
	if failedOnly {
		word = "failed " + word
	}

	msg := fmt.Sprintf("Permanently deleted %d %s", count, word)
	if olderThanDays != nil {
		msg += fmt.Sprintf(" (older than %d days)", *olderThanDays)
	}
	return msg
}
