// Package checker lints migration SQL with the PostgreSQL parser and reports
// statements that would fail when the file is applied a second time.
package checker

import (
	"fmt"

	pg_query "github.com/pganalyze/pg_query_go/v6"

	"github.com/aqasim81/ddlguard/internal/migration"
	"github.com/aqasim81/ddlguard/internal/parser"
)

const statementDisplayLen = 80

// Option configures the Checker.
type Option func(*Checker)

// Checker runs registered rules against parsed migrations.
type Checker struct {
	registry *Registry
	parseFn  func(string) (*parser.ParseResult, error)
}

// New creates a new Checker with the given options.
func New(opts ...Option) *Checker {
	c := &Checker{
		registry: NewRegistry(),
		parseFn:  parser.Parse,
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

// WithRegistry sets a custom rule registry.
func WithRegistry(r *Registry) Option {
	return func(c *Checker) { c.registry = r }
}

// WithParser overrides the SQL parser function.
func WithParser(fn func(string) (*parser.ParseResult, error)) Option {
	return func(c *Checker) { c.parseFn = fn }
}

// Check parses and checks a single migration, returning all findings.
func (c *Checker) Check(m *migration.Migration) (*Result, error) {
	parsed, err := c.parseFn(m.SQL)
	if err != nil {
		return nil, fmt.Errorf("parsing migration %s: %w", m.Filename(), err)
	}

	var findings []Finding

	maxSeverity := Safe

	var prev *pg_query.RawStmt

	for i, stmt := range parsed.Stmts {
		ctx := &RuleContext{
			Migration: m,
			StmtIndex: i,
			Line:      parsed.Line(i),
			Prev:      prev,
		}

		for _, rule := range c.registry.Rules() {
			fs := rule.Check(stmt, ctx)
			for j := range fs {
				fs[j].Statement = TruncateSQL(parsed.StmtSQL(i), statementDisplayLen)
				fs[j].Line = ctx.Line

				if fs[j].Severity > maxSeverity {
					maxSeverity = fs[j].Severity
				}
			}

			findings = append(findings, fs...)
		}

		prev = stmt
	}

	return &Result{
		Migration:   m,
		Findings:    findings,
		MaxSeverity: maxSeverity,
	}, nil
}

// CheckAll checks multiple migrations and returns results for each.
func (c *Checker) CheckAll(migrations []migration.Migration) ([]Result, error) {
	results := make([]Result, 0, len(migrations))

	for i := range migrations {
		r, err := c.Check(&migrations[i])
		if err != nil {
			return nil, err
		}

		results = append(results, *r)
	}

	return results, nil
}
