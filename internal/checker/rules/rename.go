package rules

import (
	"fmt"

	pg_query "github.com/pganalyze/pg_query_go/v6"

	"github.com/aqasim81/ddlguard/internal/checker"
)

// RenameRule detects renames that fail on the second run because the old
// name no longer exists.
type RenameRule struct{}

// NewRenameRule creates a new RenameRule.
func NewRenameRule() *RenameRule { return &RenameRule{} }

// ID returns the rule identifier.
func (r *RenameRule) ID() string { return "rename-not-idempotent" }

// Check examines a statement for RENAME of a relation or column.
func (r *RenameRule) Check(stmt *pg_query.RawStmt, ctx *checker.RuleContext) []checker.Finding {
	node, ok := stmt.Stmt.Node.(*pg_query.Node_RenameStmt)
	if !ok {
		return nil
	}

	rename := node.RenameStmt
	table := checker.TableName(rename.Relation)

	switch rename.RenameType { //nolint:exhaustive // other renames are not reported
	case pg_query.ObjectType_OBJECT_COLUMN:
		// IF EXISTS on ALTER TABLE covers the table, not the column.
		return []checker.Finding{{
			Rule:       r.ID(),
			Severity:   checker.Low,
			Object:     rename.Subname,
			Table:      table,
			Message:    fmt.Sprintf("RENAME COLUMN %s fails once the column has been renamed", rename.Subname),
			Suggestion: "Wrap the rename in a DO block that checks information_schema.columns first",
			StmtIndex:  ctx.StmtIndex,
		}}
	case pg_query.ObjectType_OBJECT_TABLE, pg_query.ObjectType_OBJECT_INDEX,
		pg_query.ObjectType_OBJECT_VIEW, pg_query.ObjectType_OBJECT_SEQUENCE:
		if rename.MissingOk {
			return nil
		}

		return []checker.Finding{{
			Rule:       r.ID(),
			Severity:   checker.Low,
			Object:     table,
			Table:      table,
			Message:    fmt.Sprintf("RENAME %s to %s fails once it has been renamed", table, rename.Newname),
			Suggestion: "Use ALTER ... IF EXISTS ... RENAME TO",
			StmtIndex:  ctx.StmtIndex,
		}}
	default:
		return nil
	}
}
