package cli

import (
	"fmt"
	"io"

	"github.com/charmbracelet/lipgloss"

	"github.com/aqasim81/ddlguard/internal/checker"
	"github.com/aqasim81/ddlguard/internal/rewriter"
)

//nolint:gochecknoglobals // shared terminal styles
var (
	headingStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("99"))
	successStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("82"))
	warnStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("214"))
	errorStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))
	dimStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
)

func severityLabel(s checker.Severity) string {
	return lipgloss.NewStyle().Bold(true).Foreground(s.Color()).Render("[" + s.String() + "]")
}

// printRewriteSummary prints guards inserted per kind, the already guarded
// and unresolved totals, then one line per warning.
func printRewriteSummary(out io.Writer, title string, res *rewriter.Result) {
	fmt.Fprintln(out, headingStyle.Render(title))

	for _, k := range rewriter.Kinds {
		fmt.Fprintf(out, "  %-16s %d guard(s) inserted\n", k.String(), res.Count(k, rewriter.Guarded))
	}

	already := 0
	unresolved := 0

	for _, k := range rewriter.Kinds {
		already += res.Count(k, rewriter.AlreadyGuarded)
		unresolved += res.Count(k, rewriter.Unresolved)
	}

	fmt.Fprintf(out, "  %-16s %d\n", "already guarded", already)

	line := fmt.Sprintf("  %-16s %d", "unresolved", unresolved)
	if unresolved > 0 {
		line = warnStyle.Render(line)
	}

	fmt.Fprintln(out, line)

	for _, w := range res.Warnings() {
		fmt.Fprintln(out, warnStyle.Render(fmt.Sprintf("    line %d: %s", w.Line, w.Message)))
	}

	fmt.Fprintln(out, successStyle.Render(fmt.Sprintf("Total: %d guard(s) inserted", res.Inserted())))
}
