package rules

import (
	"fmt"
	"strings"

	pg_query "github.com/pganalyze/pg_query_go/v6"

	"github.com/aqasim81/ddlguard/internal/checker"
)

// dropKeywords names the DROP statements whose objects are plain name lists.
var dropKeywords = map[pg_query.ObjectType]string{ //nolint:gochecknoglobals // read-only lookup
	pg_query.ObjectType_OBJECT_TABLE:    "TABLE",
	pg_query.ObjectType_OBJECT_VIEW:     "VIEW",
	pg_query.ObjectType_OBJECT_MATVIEW:  "MATERIALIZED VIEW",
	pg_query.ObjectType_OBJECT_INDEX:    "INDEX",
	pg_query.ObjectType_OBJECT_SEQUENCE: "SEQUENCE",
	pg_query.ObjectType_OBJECT_POLICY:   "POLICY",
	pg_query.ObjectType_OBJECT_TRIGGER:  "TRIGGER",
	pg_query.ObjectType_OBJECT_SCHEMA:   "SCHEMA",
}

// DropObjectRule detects DROP statements without IF EXISTS, which fail on the
// second run once the object is gone.
type DropObjectRule struct{}

// NewDropObjectRule creates a new DropObjectRule.
func NewDropObjectRule() *DropObjectRule { return &DropObjectRule{} }

// ID returns the rule identifier.
func (r *DropObjectRule) ID() string { return "drop-without-if-exists" }

// Check examines a statement for DROP without IF EXISTS.
func (r *DropObjectRule) Check(stmt *pg_query.RawStmt, ctx *checker.RuleContext) []checker.Finding {
	node, ok := stmt.Stmt.Node.(*pg_query.Node_DropStmt)
	if !ok {
		return nil
	}

	drop := node.DropStmt
	if drop.MissingOk {
		return nil
	}

	keyword, ok := dropKeywords[drop.RemoveType]
	if !ok {
		return nil
	}

	var findings []checker.Finding

	for _, o := range drop.Objects {
		parts := checker.NameParts(o)
		if len(parts) == 0 {
			continue
		}

		object, table := dropTarget(drop.RemoveType, parts)

		findings = append(findings, checker.Finding{
			Rule:       r.ID(),
			Severity:   checker.Low,
			Object:     object,
			Table:      table,
			Message:    fmt.Sprintf("DROP %s %s fails if it was already dropped", keyword, object),
			Suggestion: fmt.Sprintf("Use DROP %s IF EXISTS", keyword),
			StmtIndex:  ctx.StmtIndex,
		})
	}

	return findings
}

// dropTarget splits DROP name parts into object and table. Policies and
// triggers are listed as [schema.]table.name; everything else is its own name.
func dropTarget(objType pg_query.ObjectType, parts []string) (object, table string) {
	switch objType {
	case pg_query.ObjectType_OBJECT_POLICY, pg_query.ObjectType_OBJECT_TRIGGER:
		return parts[len(parts)-1], strings.Join(parts[:len(parts)-1], ".")
	case pg_query.ObjectType_OBJECT_TABLE:
		name := strings.Join(parts, ".")

		return name, name
	default:
		return strings.Join(parts, "."), ""
	}
}
