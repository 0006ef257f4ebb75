package rules

import (
	"fmt"

	pg_query "github.com/pganalyze/pg_query_go/v6"

	"github.com/aqasim81/ddlguard/internal/checker"
)

// CreateTableRule detects CREATE TABLE without IF NOT EXISTS. The rewriter
// does not guard tables, so this is reported at a lower severity.
type CreateTableRule struct{}

// NewCreateTableRule creates a new CreateTableRule.
func NewCreateTableRule() *CreateTableRule { return &CreateTableRule{} }

// ID returns the rule identifier.
func (r *CreateTableRule) ID() string { return "create-table-not-idempotent" }

// Check examines a statement for CREATE TABLE without IF NOT EXISTS.
func (r *CreateTableRule) Check(stmt *pg_query.RawStmt, ctx *checker.RuleContext) []checker.Finding {
	node, ok := stmt.Stmt.Node.(*pg_query.Node_CreateStmt)
	if !ok {
		return nil
	}

	create := node.CreateStmt
	if create.IfNotExists {
		return nil
	}

	table := checker.TableName(create.Relation)

	if checker.DropsIfExists(ctx.Prev, pg_query.ObjectType_OBJECT_TABLE, create.Relation.GetRelname(), "") {
		return nil
	}

	return []checker.Finding{{
		Rule:       r.ID(),
		Severity:   checker.Low,
		Object:     table,
		Table:      table,
		Message:    fmt.Sprintf("CREATE TABLE %s fails if the table already exists", table),
		Suggestion: "Use CREATE TABLE IF NOT EXISTS",
		StmtIndex:  ctx.StmtIndex,
	}}
}
