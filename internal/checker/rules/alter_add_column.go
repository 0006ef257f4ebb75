package rules

import (
	"fmt"

	pg_query "github.com/pganalyze/pg_query_go/v6"

	"github.com/aqasim81/ddlguard/internal/checker"
)

// AddColumnRule detects ALTER TABLE ... ADD COLUMN without IF NOT EXISTS.
type AddColumnRule struct{}

// NewAddColumnRule creates a new AddColumnRule.
func NewAddColumnRule() *AddColumnRule { return &AddColumnRule{} }

// ID returns the rule identifier.
func (r *AddColumnRule) ID() string { return "add-column-not-idempotent" }

// Check examines a statement for ADD COLUMN without IF NOT EXISTS.
func (r *AddColumnRule) Check(stmt *pg_query.RawStmt, ctx *checker.RuleContext) []checker.Finding {
	node, ok := stmt.Stmt.Node.(*pg_query.Node_AlterTableStmt)
	if !ok {
		return nil
	}

	alt := node.AlterTableStmt
	table := checker.TableName(alt.Relation)

	var findings []checker.Finding

	for _, cmdNode := range alt.Cmds {
		cmd, ok := cmdNode.Node.(*pg_query.Node_AlterTableCmd)
		if !ok || cmd.AlterTableCmd.Subtype != pg_query.AlterTableType_AT_AddColumn {
			continue
		}

		// MissingOk carries IF NOT EXISTS for ADD COLUMN.
		if cmd.AlterTableCmd.MissingOk {
			continue
		}

		col := cmd.AlterTableCmd.GetDef().GetColumnDef()
		if col == nil {
			continue
		}

		findings = append(findings, checker.Finding{
			Rule:       r.ID(),
			Severity:   checker.Low,
			Object:     col.Colname,
			Table:      table,
			Message:    fmt.Sprintf("ADD COLUMN %s fails if the column already exists", col.Colname),
			Suggestion: "Use ADD COLUMN IF NOT EXISTS",
			StmtIndex:  ctx.StmtIndex,
		})
	}

	return findings
}
