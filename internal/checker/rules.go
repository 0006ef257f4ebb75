package checker

import (
	"regexp"
	"strings"

	pg_query "github.com/pganalyze/pg_query_go/v6"

	"github.com/aqasim81/ddlguard/internal/migration"
)

// Rule is the interface that all idempotency rules implement.
type Rule interface {
	// ID returns a unique kebab-case identifier for this rule.
	ID() string
	// Check examines a single parsed statement and returns any findings.
	Check(stmt *pg_query.RawStmt, ctx *RuleContext) []Finding
}

// RuleContext provides contextual information to rules during a check.
type RuleContext struct {
	Migration *migration.Migration
	StmtIndex int
	Line      int
	Prev      *pg_query.RawStmt // statement before this one; nil for the first
}

// Registry holds a collection of rules.
type Registry struct {
	rules []Rule
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{}
}

// Register adds a rule to the registry.
func (r *Registry) Register(rule Rule) {
	r.rules = append(r.rules, rule)
}

// Rules returns all registered rules.
func (r *Registry) Rules() []Rule {
	return r.rules
}

// TableName extracts a qualified table name from a RangeVar.
func TableName(rv *pg_query.RangeVar) string {
	if rv == nil {
		return "<unknown>"
	}

	if rv.Schemaname != "" {
		return rv.Schemaname + "." + rv.Relname
	}

	return rv.Relname
}

// DropsIfExists reports whether prev is a DROP ... IF EXISTS of objType that
// names obj. For policies and triggers table must match the ON clause too;
// pass "" for object types without one.
func DropsIfExists(prev *pg_query.RawStmt, objType pg_query.ObjectType, obj, table string) bool {
	if prev == nil || prev.Stmt == nil {
		return false
	}

	node, ok := prev.Stmt.Node.(*pg_query.Node_DropStmt)
	if !ok || !node.DropStmt.MissingOk || node.DropStmt.RemoveType != objType {
		return false
	}

	for _, o := range node.DropStmt.Objects {
		parts := NameParts(o)
		if len(parts) == 0 || parts[len(parts)-1] != obj {
			continue
		}

		if table == "" || SameTable(strings.Join(parts[:len(parts)-1], "."), table) {
			return true
		}
	}

	return false
}

// SameTable compares table names, treating an unqualified name as matching
// any schema.
func SameTable(a, b string) bool {
	if a == b {
		return true
	}

	return unqualified(a) == unqualified(b) && (!strings.Contains(a, ".") || !strings.Contains(b, "."))
}

func unqualified(name string) string {
	if i := strings.LastIndexByte(name, '.'); i >= 0 {
		return name[i+1:]
	}

	return name
}

// NameParts returns the identifiers of a possibly qualified name node, as
// found in DROP objects.
func NameParts(n *pg_query.Node) []string {
	var items []*pg_query.Node

	if list := n.GetList(); list != nil {
		items = list.Items
	} else {
		items = []*pg_query.Node{n}
	}

	parts := make([]string, 0, len(items))

	for _, item := range items {
		if s := item.GetString_(); s != nil {
			parts = append(parts, s.Sval)
		}
	}

	return parts
}

var plainIdent = regexp.MustCompile(`^[a-z_][a-z0-9_$]*$`) //nolint:gochecknoglobals // compiled once

// QuoteIdent returns name as it must be written in SQL: bare when it is a
// plain lower-case identifier, double-quoted otherwise.
func QuoteIdent(name string) string {
	if plainIdent.MatchString(name) {
		return name
	}

	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}

// QuoteQualified quotes each dot-separated part of a qualified name.
func QuoteQualified(name string) string {
	parts := strings.Split(name, ".")
	for i, p := range parts {
		parts[i] = QuoteIdent(p)
	}

	return strings.Join(parts, ".")
}
