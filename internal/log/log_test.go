package log_test

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"testing"

	"github.com/CZERTAINLY/Launcher/internal/log"
	"github.com/CZERTAINLY/Launcher/internal/log/logtest"

	"github.com/stretchr/testify/require"
)

func TestContextAttrs(t *testing.T) {
	t.Parallel()
	rec := logtest.New()
	logger := slog.New(log.NewContextHandler(rec)).With("component", "test")

	ctx := log.ContextAttrs(t.Context(), slog.String("job_name", "alpha"))
	ctx2 := log.ContextAttrs(ctx, slog.String("run_id", "42"))

	logger.InfoContext(ctx, "first")
	logger.InfoContext(ctx2, "second")
	logger.InfoContext(t.Context(), "third")

	entries := rec.Entries()
	require.Len(t, entries, 3)
	require.Equal(t, map[string]any{"component": "test", "job_name": "alpha"}, entries[0].Attrs)
	require.Equal(t, map[string]any{"component": "test", "job_name": "alpha", "run_id": "42"}, entries[1].Attrs)
	require.Equal(t, map[string]any{"component": "test"}, entries[2].Attrs)
}

func TestNew(t *testing.T) {
	t.Parallel()
	var buf bytes.Buffer
	logger := log.New(&buf, false)
	ctx := log.ContextAttrs(t.Context(), slog.String("job_name", "beta"))
	logger.DebugContext(ctx, "hidden")
	logger.InfoContext(ctx, "shown")

	var record map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &record))
	require.Equal(t, "shown", record["msg"])
	require.Equal(t, "beta", record["job_name"])

	buf.Reset()
	log.New(&buf, true).Debug("visible")
	require.Contains(t, buf.String(), `"msg":"visible"`)
}
