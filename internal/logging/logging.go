// Package logging builds the structured logger shared by all commands.
package logging

import (
	"context"
	"io"
	"log/slog"
	"strings"

	"github.com/aqasim81/ddlguard/internal/rewriter"
)

// ParseLevel maps a configured level name to a slog level. Unknown names map
// to info.
func ParseLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// New returns a text logger writing to w at the given level.
func New(w io.Writer, level string) *slog.Logger {
	handler := slog.NewTextHandler(w, &slog.HandlerOptions{
		Level: ParseLevel(level),
	})

	return slog.New(handler)
}

// Discard returns a logger that drops every record.
func Discard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// Diagnostics logs rewriter diagnostics for one file, Warn diagnostics at
// warn level and Info diagnostics at debug level.
func Diagnostics(log *slog.Logger, file string, diags []rewriter.Diagnostic) {
	for _, d := range diags {
		level := slog.LevelDebug
		if d.Level == rewriter.Warn {
			level = slog.LevelWarn
		}

		log.Log(context.Background(), level, d.Message,
			slog.String("file", file),
			slog.Int("line", d.Line),
			slog.String("kind", d.Kind.String()),
			slog.String("name", d.Name),
		)
	}
}
