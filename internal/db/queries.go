package db

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/hpungsan/tally/internal/errors"
)

// Evaluation is one recorded calculation.
type Evaluation struct {
	ID           string  `json:"id"`
	Input        string  `json:"input"`
	InputChars   int     `json:"input_chars"`
	OK           bool    `json:"ok"`
	Sum          *int64  `json:"sum,omitempty"`
	ErrorCode    *string `json:"error_code,omitempty"`
	ErrorMessage *string `json:"error_message,omitempty"`
	Negatives    []int64 `json:"negatives,omitempty"`
	Source       *string `json:"source,omitempty"`
	CreatedAt    int64   `json:"created_at"`
}

// Status filters evaluations by outcome.
type Status string

const (
	StatusAll   Status = ""
	StatusOK    Status = "ok"
	StatusError Status = "error"
)

// Valid reports whether s is a known status filter.
func (s Status) Valid() bool {
	return s == StatusAll || s == StatusOK || s == StatusError
}

const selectColumns = `
	SELECT id, input, input_chars, ok, sum, error_code, error_message,
		negatives_json, source, created_at
	FROM evaluations
`

// Insert stores a new evaluation.
func Insert(ctx context.Context, db *sql.DB, e *Evaluation) error {
	var negativesJSON sql.NullString
	if len(e.Negatives) > 0 {
		data, err := json.Marshal(e.Negatives)
		if err != nil {
			return errors.NewInternal(err)
		}
		negativesJSON = sql.NullString{String: string(data), Valid: true}
	}

	var sum sql.NullInt64
	if e.Sum != nil {
		sum = sql.NullInt64{Int64: *e.Sum, Valid: true}
	}

	query := `
		INSERT INTO evaluations (
			id, input, input_chars, ok, sum, error_code, error_message,
			negatives_json, source, created_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err := db.ExecContext(ctx, query,
		e.ID, e.Input, e.InputChars, boolToInt(e.OK), sum,
		toNullString(e.ErrorCode), toNullString(e.ErrorMessage),
		negativesJSON, toNullString(e.Source), e.CreatedAt,
	)
	if err != nil {
		return errors.NewInternal(err)
	}
	return nil
}

// GetByID retrieves an evaluation by its ULID.
func GetByID(ctx context.Context, db *sql.DB, id string) (*Evaluation, error) {
	row := db.QueryRowContext(ctx, selectColumns+" WHERE id = ?", id)
	e, err := scanEvaluation(row)
	if err == sql.ErrNoRows {
		return nil, errors.NewNotFound(id)
	}
	if err != nil {
		return nil, errors.NewInternal(err)
	}
	return e, nil
}

// Latest retrieves the most recent evaluation matching status.
func Latest(ctx context.Context, db *sql.DB, status Status) (*Evaluation, error) {
	where, args := statusClause(status)
	query := selectColumns + where + " ORDER BY created_at DESC, id DESC LIMIT 1"

	e, err := scanEvaluation(db.QueryRowContext(ctx, query, args...))
	if err == sql.ErrNoRows {
		return nil, errors.NewNotFound("latest")
	}
	if err != nil {
		return nil, errors.NewInternal(err)
	}
	return e, nil
}

// List retrieves evaluations newest first, along with the total matching count.
func List(ctx context.Context, db *sql.DB, status Status, limit, offset int) ([]Evaluation, int, error) {
	where, args := statusClause(status)

	var total int
	if err := db.QueryRowContext(ctx, "SELECT COUNT(*) FROM evaluations"+where, args...).Scan(&total); err != nil {
		return nil, 0, errors.NewInternal(err)
	}

	query := selectColumns + where + " ORDER BY created_at DESC, id DESC LIMIT ? OFFSET ?"
	rows, err := db.QueryContext(ctx, query, append(args, limit, offset)...)
	if err != nil {
		return nil, 0, errors.NewInternal(err)
	}
	defer rows.Close()

	var items []Evaluation
	for rows.Next() {
		e, err := scanEvaluation(rows)
		if err != nil {
			return nil, 0, errors.NewInternal(err)
		}
		items = append(items, *e)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, errors.NewInternal(err)
	}
	return items, total, nil
}

// StreamAll calls fn for every evaluation, oldest first.
// Iteration stops at the first error returned by fn.
func StreamAll(ctx context.Context, db *sql.DB, fn func(*Evaluation) error) error {
	rows, err := db.QueryContext(ctx, selectColumns+" ORDER BY created_at ASC, id ASC")
	if err != nil {
		return errors.NewInternal(err)
	}
	defer rows.Close()

	for rows.Next() {
		e, err := scanEvaluation(rows)
		if err != nil {
			return errors.NewInternal(err)
		}
		if err := fn(e); err != nil {
			return err
		}
	}
	if err := rows.Err(); err != nil {
		return errors.NewInternal(err)
	}
	return nil
}

// Purge permanently deletes evaluations.
// olderThanDays limits deletion to rows created more than N days ago;
// failedOnly limits it to evaluations that ended in an error.
func Purge(ctx context.Context, db *sql.DB, olderThanDays *int, failedOnly bool) (int, error) {
	query := "DELETE FROM evaluations WHERE 1=1"
	var args []any

	if failedOnly {
		query += " AND ok = 0"
	}
	if olderThanDays != nil {
		cutoff := time.Now().Unix() - int64(*olderThanDays)*86400
		query += " AND created_at < ?"
		args = append(args, cutoff)
	}

	result, err := db.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, errors.NewInternal(err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return 0, errors.NewInternal(err)
	}
	return int(n), nil
}

func statusClause(status Status) (string, []any) {
	switch status {
	case StatusOK:
		return " WHERE ok = ?", []any{1}
	case StatusError:
		return " WHERE ok = ?", []any{0}
	}
	return "", nil
}

// scanner is satisfied by both *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

func scanEvaluation(s scanner) (*Evaluation, error) {
	var (
		e             Evaluation
		ok            int
		sum           sql.NullInt64
		errorCode     sql.NullString
		errorMessage  sql.NullString
		negativesJSON sql.NullString
		source        sql.NullString
	)

	err := s.Scan(&e.ID, &e.Input, &e.InputChars, &ok, &sum, &errorCode, &errorMessage,
		&negativesJSON, &source, &e.CreatedAt)
	if err != nil {
		return nil, err
	}

	e.OK = ok != 0
	if sum.Valid {
		e.Sum = &sum.Int64
	}
	e.ErrorCode = fromNullString(errorCode)
	e.ErrorMessage = fromNullString(errorMessage)
	e.Source = fromNullString(source)
	if negativesJSON.Valid {
		if err := json.Unmarshal([]byte(negativesJSON.String), &e.Negatives); err != nil {
			return nil, fmt.Errorf("decode negatives: %w", err)
		}
	}
	return &e, nil
}

func toNullString(s *string) sql.NullString {
	if s == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *s, Valid: true}
}

func fromNullString(ns sql.NullString) *string {
	if !ns.Valid {
		return nil
	}
	return &ns.String
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
