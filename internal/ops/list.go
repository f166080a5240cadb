package ops

import (
	"context"
	"database/sql"

	"github.com/hpungsan/tally/internal/db"
)

// ListInput contains parameters for the List operation.
type ListInput struct {
	Status string // "", "ok" or "error"
	Limit  int    // default: 20, max: 100
	Offset int    // default: 0
}

// ListOutput contains the result of the List operation.
type ListOutput struct {
	Items      []db.Evaluation `json:"items"`
	Pagination Pagination      `json:"pagination"`
	Sort       string          `json:"sort"`
}

// List retrieves recorded evaluations, newest first, with pagination.
func List(ctx context.Context, database *sql.DB, input ListInput) (out *ListOutput, err error) {
	ctx, span := startSpan(ctx, "List")
	defer func() { endSpan(span, err) }()

	status, err := parseStatus(input.Status)
	if err != nil {
		return nil, err
	}

	limit := input.Limit
	if limit <= 0 {
		limit = DefaultListLimit
	}
	if limit > MaxListLimit {
		limit = MaxListLimit
	}
	offset := max(input.Offset, 0)

	items, total, err := db.List(ctx, database, status, limit, offset)
	if err != nil {
		return nil, err
	}

	// Ensure we return an empty array rather than nil
	if items == nil {
		items = []db.Evaluation{}
	}

	return &ListOutput{
		Items: items,
		Pagination: Pagination{
			Limit:   limit,
			Offset:  offset,
			HasMore: offset+len(items) < total,
			Total:   total,
		},
		Sort: "created_at_desc",
	}, nil
}
