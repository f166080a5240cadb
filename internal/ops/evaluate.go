package ops

import (
	"context"
	"crypto/rand"
	"database/sql"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/oklog/ulid/v2"
	"go.opentelemetry.io/otel/attribute"

	"github.com/hpungsan/tally/internal/calc"
	"github.com/hpungsan/tally/internal/config"
	"github.com/hpungsan/tally/internal/db"
	"github.com/hpungsan/tally/internal/errors"
)

// IDs generated within the same millisecond stay ordered.
var (
	entropyMu sync.Mutex
	entropy   = ulid.Monotonic(rand.Reader, 0)
)

func newID(t time.Time) (ulid.ULID, error) {
	entropyMu.Lock()
	defer entropyMu.Unlock()
	return ulid.New(ulid.Timestamp(t), entropy)
}

// EvaluateInput contains parameters for the Evaluate operation.
type EvaluateInput struct {
	Input     string
	Source    string // e.g. "cli", "mcp", "web", "repl", "doc"
	NoHistory bool   // skip recording even if history is enabled
}

// CalcError is the client-facing form of a calculation failure.
type CalcError struct {
	Code      errors.ErrorCode `json:"code"`
	Message   string           `json:"message"`
	Negatives []int64          `json:"negatives,omitempty"`
}

// EvaluateOutput contains the result of the Evaluate operation.
// Exactly one of Sum and Error is set.
type EvaluateOutput struct {
	ID       string     `json:"id,omitempty"` // empty when not recorded
	Sum      *int64     `json:"sum,omitempty"`
	Error    *CalcError `json:"error,omitempty"`
	Recorded bool       `json:"recorded"`
}

// Evaluate runs the calculator on input and records the outcome.
//
// A calculation failure is not an operation failure: it is reported in
// EvaluateOutput.Error. The returned error is reserved for oversized input
// and storage problems. A nil database disables recording.
func Evaluate(ctx context.Context, database *sql.DB, cfg *config.Config, input EvaluateInput) (out *EvaluateOutput, err error) {
	ctx, span := startSpan(ctx, "Evaluate", attribute.String("tally.source", input.Source))
	defer func() { endSpan(span, err) }()

	if cfg == nil {
		cfg = config.DefaultConfig()
	}
	chars := utf8.RuneCountInString(input.Input)
	if cfg.MaxInputChars > 0 && chars > cfg.MaxInputChars {
		return nil, errors.NewInputTooLarge(cfg.MaxInputChars, chars)
	}

	out = &EvaluateOutput{}
	sum, calcErr := calc.Add(input.Input)
	if calcErr != nil {
		tErr, ok := errors.As(calcErr)
		if !ok {
			return nil, errors.NewInternal(calcErr)
		}
		out.Error = &CalcError{Code: tErr.Code, Message: tErr.Message, Negatives: tErr.Negatives}
		span.SetAttributes(attribute.String("tally.calc_error", string(tErr.Code)))
	} else {
		out.Sum = &sum
		span.SetAttributes(attribute.Int64("tally.sum", sum))
	}

	if database == nil || cfg.HistoryDisabled || input.NoHistory {
		return out, nil
	}

	now := time.Now()
	id, err := newID(now)
	if err != nil {
		return nil, errors.NewInternal(err)
	}

	e := &db.Evaluation{
		ID:         id.String(),
		Input:      input.Input,
		InputChars: chars,
		OK:         out.Error == nil,
		Sum:        out.Sum,
		CreatedAt:  now.Unix(),
	}
	if source := strings.TrimSpace(input.Source); source != "" {
		e.Source = &source
	}
	if out.Error != nil {
		code := string(out.Error.Code)
		e.ErrorCode = &code
		e.ErrorMessage = &out.Error.Message
		e.Negatives = out.Error.Negatives
	}

	if err := db.Insert(ctx, database, e); err != nil {
		return nil, err
	}
	out.ID = e.ID
	out.Recorded = true
	return out, nil
}
