package checker

import "github.com/aqasim81/ddlguard/internal/migration"

// Finding is one non-idempotent statement.
type Finding struct {
	Rule       string   // e.g. "unguarded-create-policy"
	Severity   Severity
	Object     string // policy, trigger, index or table name
	Table      string
	Statement  string // truncated statement text
	Message    string
	Suggestion string // the guard that would make the statement re-runnable
	StmtIndex  int    // 0-based
	Line       int    // 1-based line of the statement in the file
}

// Result holds all findings for one migration file.
type Result struct {
	Migration   *migration.Migration
	Findings    []Finding
	MaxSeverity Severity
}

// HasAtLeast reports whether any finding is at or above s.
func (r *Result) HasAtLeast(s Severity) bool {
	return len(r.Findings) > 0 && r.MaxSeverity >= s
}

// TruncateSQL truncates a SQL string to maxLen characters for display.
// Strings are returned whole when maxLen leaves no room for the ellipsis.
func TruncateSQL(sql string, maxLen int) string {
	if len(sql) <= maxLen || maxLen < 4 { //nolint:mnd // room for "..."
		return sql
	}

	return sql[:maxLen-3] + "..."
}
