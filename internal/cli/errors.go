package cli

import "errors"

// errDatabaseURLRequired is returned when no database URL is configured.
var errDatabaseURLRequired = errors.New(
	"database URL is required (set --database-url, DDLGUARD_DATABASE_URL, or database_url in config)",
)

// errUnguardedFindings is returned by check --fail-on-unguarded.
var errUnguardedFindings = errors.New("unguarded CREATE statements detected")

// errUnguardedParts is returned when apply is blocked by checker findings.
var errUnguardedParts = errors.New("apply aborted: parts contain unguarded CREATE statements (use --force to override)")

// errUnknownSource indicates a partition named a file that was not loaded.
var errUnknownSource = errors.New("unknown source file")
