package logging_test

import (
	"bytes"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/aqasim81/ddlguard/internal/logging"
	"github.com/aqasim81/ddlguard/internal/rewriter"
)

func TestParseLevel(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in   string
		want slog.Level
	}{
		{"debug", slog.LevelDebug},
		{"INFO", slog.LevelInfo},
		{"warn", slog.LevelWarn},
		{"error", slog.LevelError},
		{"", slog.LevelInfo},
		{"verbose", slog.LevelInfo},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, logging.ParseLevel(tt.in))
		})
	}
}

func TestNew_filtersBelowLevel(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer

	log := logging.New(&buf, "warn")
	log.Info("hidden")
	log.Warn("shown", slog.Int("part", 3))

	out := buf.String()
	assert.NotContains(t, out, "hidden")
	assert.Contains(t, out, "level=WARN")
	assert.Contains(t, out, "msg=shown")
	assert.Contains(t, out, "part=3")
}

func TestDiagnostics(t *testing.T) {
	t.Parallel()

	diags := []rewriter.Diagnostic{
		{Level: rewriter.Info, Line: 4, Kind: rewriter.Index, Name: "idx_inner", Message: "inside block"},
		{Level: rewriter.Warn, Line: 9, Kind: rewriter.Trigger, Name: "trg", Message: "no table"},
	}

	t.Run("info level hides block reports", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		logging.Diagnostics(logging.New(&buf, "info"), "safe.sql", diags)

		out := buf.String()
		assert.NotContains(t, out, "idx_inner")
		assert.Contains(t, out, `msg="no table"`)
		assert.Contains(t, out, "file=safe.sql")
		assert.Contains(t, out, "line=9")
		assert.Contains(t, out, "kind=TRIGGER")
	})

	t.Run("debug level shows everything", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		logging.Diagnostics(logging.New(&buf, "debug"), "safe.sql", diags)

		out := buf.String()
		assert.Contains(t, out, "name=idx_inner")
		assert.Contains(t, out, "level=DEBUG")
		assert.Contains(t, out, "level=WARN")
	})
}

func TestDiscard(t *testing.T) {
	t.Parallel()

	assert.NotPanics(t, func() { logging.Discard().Error("dropped") })
}
