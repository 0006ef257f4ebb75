package rules

import (
	"fmt"

	pg_query "github.com/pganalyze/pg_query_go/v6"

	"github.com/aqasim81/ddlguard/internal/checker"
	"github.com/aqasim81/ddlguard/internal/rewriter"
)

// CreateTriggerRule detects CREATE TRIGGER without a preceding DROP TRIGGER IF EXISTS.
// CREATE OR REPLACE TRIGGER is already re-runnable.
type CreateTriggerRule struct{}

// NewCreateTriggerRule creates a new CreateTriggerRule.
func NewCreateTriggerRule() *CreateTriggerRule { return &CreateTriggerRule{} }

// ID returns the rule identifier.
func (r *CreateTriggerRule) ID() string { return "unguarded-create-trigger" }

// Check examines a statement for an unguarded CREATE TRIGGER.
func (r *CreateTriggerRule) Check(stmt *pg_query.RawStmt, ctx *checker.RuleContext) []checker.Finding {
	node, ok := stmt.Stmt.Node.(*pg_query.Node_CreateTrigStmt)
	if !ok {
		return nil
	}

	trig := node.CreateTrigStmt
	if trig.Replace {
		return nil
	}

	table := checker.TableName(trig.Relation)

	if checker.DropsIfExists(ctx.Prev, pg_query.ObjectType_OBJECT_TRIGGER, trig.Trigname, table) {
		return nil
	}

	return []checker.Finding{{
		Rule:     r.ID(),
		Severity: checker.Medium,
		Object:   trig.Trigname,
		Table:    table,
		Message:  fmt.Sprintf("CREATE TRIGGER %q fails if the trigger already exists", trig.Trigname),
		Suggestion: rewriter.Guard(rewriter.Trigger,
			checker.QuoteIdent(trig.Trigname), checker.QuoteQualified(table)),
		StmtIndex: ctx.StmtIndex,
	}}
}
