package tracing

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
)

func restoreProvider(t *testing.T) {
	t.Helper()
	prev := otel.GetTracerProvider()
	t.Cleanup(func() { otel.SetTracerProvider(prev) })
}

func TestSetup_EmptyPathKeepsProvider(t *testing.T) {
	restoreProvider(t)
	prev := otel.GetTracerProvider()

	shutdown, err := Setup(t.TempDir(), "", "test")
	require.NoError(t, err)
	assert.Equal(t, prev, otel.GetTracerProvider())
	assert.NoError(t, shutdown(context.Background()))
}

func TestSetup_WritesSpans(t *testing.T) {
	restoreProvider(t)
	baseDir := t.TempDir()

	shutdown, err := Setup(baseDir, filepath.Join("traces", "spans.jsonl"), "1.2.3")
	require.NoError(t, err)

	_, span := otel.Tracer("tally-test").Start(context.Background(), "ops.Evaluate")
	span.End()
	require.NoError(t, shutdown(context.Background()))

	path := filepath.Join(baseDir, "traces", "spans.jsonl")
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"Name":"ops.Evaluate"`)
	assert.Contains(t, string(data), "1.2.3")

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0600), info.Mode().Perm())
}

func TestSetup_BadPath(t *testing.T) {
	restoreProvider(t)
	dir := t.TempDir()
	blocker := filepath.Join(dir, "file")
	require.NoError(t, os.WriteFile(blocker, nil, 0600))

	_, err := Setup(dir, filepath.Join(blocker, "spans.jsonl"), "test")
	assert.Error(t, err)
}
