package rules

import (
	"fmt"

	pg_query "github.com/pganalyze/pg_query_go/v6"

	"github.com/aqasim81/ddlguard/internal/checker"
	"github.com/aqasim81/ddlguard/internal/rewriter"
)

// CreatePolicyRule detects CREATE POLICY without a preceding DROP POLICY IF EXISTS.
type CreatePolicyRule struct{}

// NewCreatePolicyRule creates a new CreatePolicyRule.
func NewCreatePolicyRule() *CreatePolicyRule { return &CreatePolicyRule{} }

// ID returns the rule identifier.
func (r *CreatePolicyRule) ID() string { return "unguarded-create-policy" }

// Check examines a statement for an unguarded CREATE POLICY.
func (r *CreatePolicyRule) Check(stmt *pg_query.RawStmt, ctx *checker.RuleContext) []checker.Finding {
	node, ok := stmt.Stmt.Node.(*pg_query.Node_CreatePolicyStmt)
	if !ok {
		return nil
	}

	p := node.CreatePolicyStmt
	table := checker.TableName(p.Table)

	if checker.DropsIfExists(ctx.Prev, pg_query.ObjectType_OBJECT_POLICY, p.PolicyName, table) {
		return nil
	}

	return []checker.Finding{{
		Rule:     r.ID(),
		Severity: checker.Medium,
		Object:   p.PolicyName,
		Table:    table,
		Message:  fmt.Sprintf("CREATE POLICY %q fails if the policy already exists", p.PolicyName),
		Suggestion: rewriter.Guard(rewriter.Policy,
			checker.QuoteIdent(p.PolicyName), checker.QuoteQualified(table)),
		StmtIndex: ctx.StmtIndex,
	}}
}
