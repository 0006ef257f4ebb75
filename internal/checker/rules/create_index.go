package rules

import (
	"fmt"

	pg_query "github.com/pganalyze/pg_query_go/v6"

	"github.com/aqasim81/ddlguard/internal/checker"
	"github.com/aqasim81/ddlguard/internal/rewriter"
)

// CreateIndexRule detects named CREATE INDEX statements that are neither
// IF NOT EXISTS nor preceded by DROP INDEX IF EXISTS.
type CreateIndexRule struct{}

// NewCreateIndexRule creates a new CreateIndexRule.
func NewCreateIndexRule() *CreateIndexRule { return &CreateIndexRule{} }

// ID returns the rule identifier.
func (r *CreateIndexRule) ID() string { return "unguarded-create-index" }

// Check examines a statement for an unguarded CREATE INDEX.
func (r *CreateIndexRule) Check(stmt *pg_query.RawStmt, ctx *checker.RuleContext) []checker.Finding {
	node, ok := stmt.Stmt.Node.(*pg_query.Node_IndexStmt)
	if !ok {
		return nil
	}

	idx := node.IndexStmt
	if idx.IfNotExists || idx.Idxname == "" {
		return nil
	}

	if checker.DropsIfExists(ctx.Prev, pg_query.ObjectType_OBJECT_INDEX, idx.Idxname, "") {
		return nil
	}

	kind := rewriter.Index
	if idx.Unique {
		kind = rewriter.UniqueIndex
	}

	return []checker.Finding{{
		Rule:       r.ID(),
		Severity:   checker.Medium,
		Object:     idx.Idxname,
		Table:      checker.TableName(idx.Relation),
		Message:    fmt.Sprintf("CREATE %s %q fails if the index already exists", kind, idx.Idxname),
		Suggestion: rewriter.Guard(kind, checker.QuoteIdent(idx.Idxname), ""),
		StmtIndex:  ctx.StmtIndex,
	}}
}
