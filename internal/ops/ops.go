package ops

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/hpungsan/tally/internal/db"
	"github.com/hpungsan/tally/internal/errors"
)

// TracerName identifies spans emitted by this package.
const TracerName = "github.com/hpungsan/tally/internal/ops"

// Pagination limits
const (
	DefaultListLimit = 20
	MaxListLimit     = 100
)

// Pagination contains pagination metadata for list operations.
type Pagination struct {
	Limit   int  `json:"limit"`
	Offset  int  `json:"offset"`
	HasMore bool `json:"has_more"`
	Total   int  `json:"total"`
}

// startSpan starts a span named "ops.<op>" from the global tracer provider.
// Read per call so tests can swap the provider.
func startSpan(ctx context.Context, op string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	return otel.Tracer(TracerName).Start(ctx, "ops."+op, trace.WithAttributes(attrs...))
}

// endSpan records err on span (if any) and ends it.
func endSpan(span trace.Span, err error) {
	if err != nil {
		if tErr, ok := errors.As(err); ok {
			span.SetAttributes(attribute.String("tally.error_code", string(tErr.Code)))
		}
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}

// parseStatus validates a status filter string.
func parseStatus(s string) (db.Status, error) {
	status := db.Status(s)
	if !status.Valid() {
		return "", errors.NewInvalidRequest("status must be one of: ok, error")
	}
	return status, nil
}
