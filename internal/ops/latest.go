package ops

import (
	"context"
	"database/sql"

	"github.com/hpungsan/tally/internal/db"
)

// LatestInput contains parameters for the Latest operation.
type LatestInput struct {
	Status string // "", "ok" or "error"
}

// Latest retrieves the most recent evaluation, optionally filtered by outcome.
func Latest(ctx context.Context, database *sql.DB, input LatestInput) (out *FetchOutput, err error) {
	ctx, span := startSpan(ctx, "Latest")
	defer func() { endSpan(span, err) }()

	status, err := parseStatus(input.Status)
	if err != nil {
		return nil, err
	}

	e, err := db.Latest(ctx, database, status)
	if err != nil {
		return nil, err
	}
	return &FetchOutput{Evaluation: *e}, nil
}
