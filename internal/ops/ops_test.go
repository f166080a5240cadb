package ops

import (
	"context"
	"database/sql"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	"github.com/hpungsan/tally/internal/config"
	"github.com/hpungsan/tally/internal/db"
	"github.com/hpungsan/tally/internal/errors"
)

// testSetup creates a temporary database and default config.
func testSetup(t *testing.T) (*sql.DB, *config.Config) {
	t.Helper()
	database, err := db.Init(t.TempDir())
	require.NoError(t, err)
	t.Cleanup(func() { database.Close() })
	return database, config.DefaultConfig()
}

// recordSpans installs an in-memory tracer provider for the duration of the test.
func recordSpans(t *testing.T) *tracetest.SpanRecorder {
	t.Helper()
	recorder := tracetest.NewSpanRecorder()
	provider := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder))
	previous := otel.GetTracerProvider()
	otel.SetTracerProvider(provider)
	t.Cleanup(func() {
		otel.SetTracerProvider(previous)
		_ = provider.Shutdown(context.Background())
	})
	return recorder
}

func intPtr(n int) *int { return &n }

func mustEvaluate(t *testing.T, database *sql.DB, cfg *config.Config, input string) *EvaluateOutput {
	t.Helper()
	out, err := Evaluate(context.Background(), database, cfg, EvaluateInput{Input: input, Source: "test"})
	require.NoError(t, err)
	return out
}

func TestParseStatus(t *testing.T) {
	for _, s := range []string{"", "ok", "error"} {
		status, err := parseStatus(s)
		require.NoError(t, err)
		assert.Equal(t, db.Status(s), status)
	}

	_, err := parseStatus("pending")
	assert.True(t, errors.Is(err, errors.ErrInvalidRequest))
}

func TestSpans(t *testing.T) {
	recorder := recordSpans(t)
	database, cfg := testSetup(t)
	ctx := context.Background()

	mustEvaluate(t, database, cfg, "1,2")
	_, err := Fetch(ctx, database, FetchInput{ID: "missing"})
	require.Error(t, err)

	spans := recorder.Ended()
	require.Len(t, spans, 2)
	assert.Equal(t, "ops.Evaluate", spans[0].Name())
	assert.Equal(t, "ops.Fetch", spans[1].Name())

	var code string
	for _, attr := range spans[1].Attributes() {
		if attr.Key == "tally.error_code" {
			code = attr.Value.AsString()
		}
	}
	assert.Equal(t, string(errors.ErrNotFound), code)
	assert.Len(t, spans[1].Events(), 1, "error should be recorded as a span event")
}
