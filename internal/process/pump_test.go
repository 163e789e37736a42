package process_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"testing"
	"testing/iotest"

	"github.com/CZERTAINLY/Launcher/internal/log/logtest"
	"github.com/CZERTAINLY/Launcher/internal/process"

	"github.com/stretchr/testify/require"
)

func TestPump(t *testing.T) {
	t.Parallel()

	t.Run("lines", func(t *testing.T) {
		t.Parallel()
		rec := logtest.New()
		process.Pump(t.Context(), strings.NewReader("one\r\ntwo\n\nlast without newline"), rec.Logger(), 0)
		require.Equal(t, []string{"one", "two", "", "last without newline"}, rec.Strings("process output", "line"))
	})

	t.Run("empty", func(t *testing.T) {
		t.Parallel()
		rec := logtest.New()
		process.Pump(t.Context(), strings.NewReader(""), rec.Logger(), 0)
		require.Empty(t, rec.Entries())
	})

	t.Run("invalid utf8", func(t *testing.T) {
		t.Parallel()
		rec := logtest.New()
		process.Pump(t.Context(), strings.NewReader("a\xffb\n"), rec.Logger(), 0)
		require.Equal(t, []string{"a�b"}, rec.Strings("process output", "line"))
	})

	t.Run("read error", func(t *testing.T) {
		t.Parallel()
		rec := logtest.New()
		boom := errors.New("boom")
		r := io.MultiReader(strings.NewReader("one\ntwo\n"), iotest.ErrReader(boom))
		require.NotPanics(t, func() {
			process.Pump(t.Context(), r, rec.Logger(), 0)
		})
		require.Equal(t, []string{"one", "two"}, rec.Strings("process output", "line"))
		warnings := rec.Messages("reading process output failed: discarding the rest")
		require.Len(t, warnings, 1)
		require.Equal(t, slog.LevelWarn, warnings[0].Level)
		require.ErrorIs(t, warnings[0].Attrs["error"].(error), boom)
	})

	t.Run("line too long is drained", func(t *testing.T) {
		t.Parallel()
		rec := logtest.New()
		r := strings.NewReader("short\n" + strings.Repeat("x", 100) + "\nafter\n")
		process.Pump(t.Context(), r, rec.Logger(), 16)
		require.Equal(t, []string{"short"}, rec.Strings("process output", "line"))
		require.Len(t, rec.Messages("reading process output failed: discarding the rest"), 1)
		require.Zero(t, r.Len())
	})

	t.Run("panicking sink", func(t *testing.T) {
		t.Parallel()
		r := strings.NewReader("one\ntwo\n")
		require.NotPanics(t, func() {
			process.Pump(t.Context(), r, slog.New(panicHandler{}), 0)
		})
		require.Zero(t, r.Len())
	})
}

func TestPump_SinkPanicReported(t *testing.T) {
	// can't be parallel as it replaces the default logger
	rec := logtest.New()
	prev := slog.Default()
	slog.SetDefault(rec.Logger())
	t.Cleanup(func() { slog.SetDefault(prev) })

	r := strings.NewReader("one\ntwo\n")
	process.Pump(t.Context(), r, slog.New(panicHandler{}), 0)
	require.Zero(t, r.Len())

	warnings := rec.Messages("process output sink failed: discarding the rest")
	require.Len(t, warnings, 1)
	require.Equal(t, slog.LevelWarn, warnings[0].Level)
	require.Equal(t, "sink exploded", warnings[0].Attrs["panic"])

	// a default logger which panics as well is tolerated
	slog.SetDefault(slog.New(panicHandler{}))
	r = strings.NewReader("three\n")
	require.NotPanics(t, func() {
		process.Pump(t.Context(), r, slog.New(panicHandler{}), 0)
	})
	require.Zero(t, r.Len())
}

type panicHandler struct{}

func (panicHandler) Enabled(context.Context, slog.Level) bool  { return true }
func (panicHandler) Handle(context.Context, slog.Record) error { panic("sink exploded") }
func (h panicHandler) WithAttrs([]slog.Attr) slog.Handler      { return h }
func (h panicHandler) WithGroup(string) slog.Handler           { return h }
