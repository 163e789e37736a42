package process

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"unicode/utf8"
)

// Pump logs every line read from r as "process output" until r reports
// EOF. A read error or a line longer than maxLineBytes is logged as a
// warning, after which the rest of r is read and thrown away so the writer
// on the other end is never blocked. A panicking logger is reported to
// slog.Default and r is drained the same way. Pump does not return errors.
func Pump(ctx context.Context, r io.Reader, logger *slog.Logger, maxLineBytes int) {
	if maxLineBytes <= 0 {
		maxLineBytes = DefaultMaxLineBytes
	}
	defer func() {
		if p := recover(); p != nil {
			reportSinkPanic(p)
			_, _ = io.Copy(io.Discard, r)
		}
	}()

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, min(64*1024, maxLineBytes)), maxLineBytes)
	for scanner.Scan() {
		line := scanner.Text()
		if !utf8.ValidString(line) {
			line = strings.ToValidUTF8(line, "�")
		}
		logger.InfoContext(ctx, "process output", slog.String("line", line))
	}

	err := scanner.Err()
	if err == nil {
		return
	}
	logger.WarnContext(ctx, "reading process output failed: discarding the rest", "error", err)
	n, err := io.Copy(io.Discard, r)
	if err != nil {
		logger.DebugContext(ctx, "discarding process output", "error", err)
	}
	logger.DebugContext(ctx, "process output discarded", slog.Int64("bytes", n))
}

// reportSinkPanic tells the default logger that the output sink panicked.
// The default logger may be that very sink, so its failure is ignored.
func reportSinkPanic(p any) {
	defer func() {
		_ = recover()
	}()
	slog.Default().Warn("process output sink failed: discarding the rest", "panic", fmt.Sprint(p))
}
