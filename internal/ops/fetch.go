package ops

import (
	"context"
	"database/sql"
	"strings"

	"go.opentelemetry.io/otel/attribute"

	"github.com/hpungsan/tally/internal/db"
	"github.com/hpungsan/tally/internal/errors"
)

// FetchInput contains parameters for the Fetch operation.
type FetchInput struct {
	ID string
}

// FetchOutput contains the result of the Fetch operation.
type FetchOutput struct {
	db.Evaluation
}

// Fetch retrieves a recorded evaluation by ID.
func Fetch(ctx context.Context, database *sql.DB, input FetchInput) (out *FetchOutput, err error) {
	id := strings.TrimSpace(input.ID)
	ctx, span := startSpan(ctx, "Fetch", attribute.String("tally.id", id))
	defer func() { endSpan(span, err) }()

	if id == "" {
		return nil, errors.NewInvalidRequest("id is required")
	}

	e, err := db.GetByID(ctx, database, id)
	if err != nil {
		return nil, err
	}
	return &FetchOutput{Evaluation: *e}, nil
}
