package parser //nolint:revive // intentional: does not conflict with go/parser in internal package

import (
	"fmt"
	"strings"

	pg_query "github.com/pganalyze/pg_query_go/v6"
)

// ParseResult holds the parsed AST and the SQL it was parsed from.
type ParseResult struct {
	Stmts []*pg_query.RawStmt
	SQL   string
}

// Parse parses a PostgreSQL SQL string and returns the AST.
// Returns an empty result (zero statements) for empty or whitespace-only input.
// The input is parsed as given so statement locations index into SQL.
func Parse(sql string) (*ParseResult, error) {
	if strings.TrimSpace(sql) == "" {
		return &ParseResult{SQL: sql}, nil
	}

	tree, err := pg_query.Parse(sql)
	if err != nil {
		return nil, fmt.Errorf("parsing SQL: %w", err)
	}

	return &ParseResult{
		Stmts: tree.Stmts,
		SQL:   sql,
	}, nil
}

// StmtSQL returns the trimmed source text of statement idx, or "" when idx
// is out of range.
func (r *ParseResult) StmtSQL(idx int) string {
	if idx < 0 || idx >= len(r.Stmts) {
		return ""
	}

	start := int(r.Stmts[idx].StmtLocation)

	end := len(r.SQL)
	if n := int(r.Stmts[idx].StmtLen); n > 0 {
		end = start + n
	} else if idx+1 < len(r.Stmts) {
		end = int(r.Stmts[idx+1].StmtLocation)
	}

	if start > len(r.SQL) || end > len(r.SQL) || start >= end {
		return ""
	}

	return strings.TrimSpace(r.SQL[start:end])
}

// Line returns the 1-based line on which statement idx starts, skipping the
// whitespace the parser attributes to it.
func (r *ParseResult) Line(idx int) int {
	if idx < 0 || idx >= len(r.Stmts) {
		return 0
	}

	start := min(int(r.Stmts[idx].StmtLocation), len(r.SQL))
	start += len(r.SQL[start:]) - len(strings.TrimLeft(r.SQL[start:], " \t\r\n"))

	return strings.Count(r.SQL[:start], "\n") + 1
}
