package rules

import (
	"fmt"

	pg_query "github.com/pganalyze/pg_query_go/v6"

	"github.com/aqasim81/ddlguard/internal/checker"
)

// AddConstraintRule detects named ADD CONSTRAINT that is not preceded by
// DROP CONSTRAINT IF EXISTS for the same name, either earlier in the same
// ALTER TABLE or in the statement before it.
type AddConstraintRule struct{}

// NewAddConstraintRule creates a new AddConstraintRule.
func NewAddConstraintRule() *AddConstraintRule { return &AddConstraintRule{} }

// ID returns the rule identifier.
func (r *AddConstraintRule) ID() string { return "add-constraint-not-idempotent" }

// Check examines a statement for an unguarded ADD CONSTRAINT.
func (r *AddConstraintRule) Check(stmt *pg_query.RawStmt, ctx *checker.RuleContext) []checker.Finding {
	node, ok := stmt.Stmt.Node.(*pg_query.Node_AlterTableStmt)
	if !ok {
		return nil
	}

	alt := node.AlterTableStmt
	table := checker.TableName(alt.Relation)
	dropped := droppedConstraints(ctx.Prev, table)

	var findings []checker.Finding

	for _, cmdNode := range alt.Cmds {
		cmd, ok := cmdNode.Node.(*pg_query.Node_AlterTableCmd)
		if !ok {
			continue
		}

		switch cmd.AlterTableCmd.Subtype { //nolint:exhaustive // only add and drop matter
		case pg_query.AlterTableType_AT_DropConstraint:
			if cmd.AlterTableCmd.MissingOk {
				dropped[cmd.AlterTableCmd.Name] = true
			}
		case pg_query.AlterTableType_AT_AddConstraint:
			con := cmd.AlterTableCmd.GetDef().GetConstraint()
			if con == nil || con.Conname == "" || dropped[con.Conname] {
				continue
			}

			findings = append(findings, checker.Finding{
				Rule:     r.ID(),
				Severity: checker.Low,
				Object:   con.Conname,
				Table:    table,
				Message:  fmt.Sprintf("ADD CONSTRAINT %s fails if the constraint already exists", con.Conname),
				Suggestion: fmt.Sprintf("ALTER TABLE %s DROP CONSTRAINT IF EXISTS %s;",
					checker.QuoteQualified(table), checker.QuoteIdent(con.Conname)),
				StmtIndex: ctx.StmtIndex,
			})
		}
	}

	return findings
}

// droppedConstraints returns the constraints prev drops with IF EXISTS when
// it is an ALTER TABLE of the same table.
func droppedConstraints(prev *pg_query.RawStmt, table string) map[string]bool {
	dropped := map[string]bool{}

	if prev == nil || prev.Stmt == nil {
		return dropped
	}

	alt := prev.Stmt.GetAlterTableStmt()
	if alt == nil || !checker.SameTable(checker.TableName(alt.Relation), table) {
		return dropped
	}

	for _, cmdNode := range alt.Cmds {
		cmd := cmdNode.GetAlterTableCmd()
		if cmd != nil && cmd.Subtype == pg_query.AlterTableType_AT_DropConstraint && cmd.MissingOk {
			dropped[cmd.Name] = true
		}
	}

	return dropped
}
