package executor

import (
	"fmt"

	pg_query "github.com/pganalyze/pg_query_go/v6"

	"github.com/aqasim81/ddlguard/internal/parser"
)

// concurrentStatements returns the statements of sql one by one when any of
// them is CREATE INDEX CONCURRENTLY, and nil otherwise. Such a part cannot
// run inside a transaction, nor as a single multi-statement query, which
// PostgreSQL wraps in an implicit transaction.
func concurrentStatements(sql string) ([]string, error) {
	result, err := parser.Parse(sql)
	if err != nil {
		return nil, fmt.Errorf("parsing SQL for concurrent index detection: %w", err)
	}

	concurrent := false

	for _, stmt := range result.Stmts {
		node, ok := stmt.Stmt.Node.(*pg_query.Node_IndexStmt)
		if ok && node.IndexStmt != nil && node.IndexStmt.Concurrent {
			concurrent = true

			break
		}
	}

	if !concurrent {
		return nil, nil
	}

	stmts := make([]string, 0, len(result.Stmts))

	for i := range result.Stmts {
		if s := result.StmtSQL(i); s != "" {
			stmts = append(stmts, s)
		}
	}

	return stmts, nil
}
