// Package rewriter makes PostgreSQL migrations safe to re-run by inserting a
// DROP ... IF EXISTS guard before each CREATE POLICY, CREATE TRIGGER and
// CREATE [UNIQUE] INDEX statement. All other text is copied unchanged.
package rewriter

import (
	"fmt"
	"sort"
	"strings"
)

// Option configures the Rewriter.
type Option func(*Rewriter)

// Rewriter applies a rule table to SQL documents.
type Rewriter struct {
	rules     []GuardRule
	enabled   map[Kind]bool
	lookahead int
}

// New creates a Rewriter with the default rules and lookahead window.
func New(opts ...Option) *Rewriter {
	r := &Rewriter{
		rules:     DefaultRules(),
		lookahead: DefaultTriggerLookahead,
	}

	for _, opt := range opts {
		opt(r)
	}

	return r
}

// WithRules replaces the rule table.
func WithRules(rules []GuardRule) Option {
	return func(r *Rewriter) { r.rules = rules }
}

// WithKinds restricts rewriting to the given kinds. No kinds means all.
func WithKinds(kinds ...Kind) Option {
	return func(r *Rewriter) {
		if len(kinds) == 0 {
			r.enabled = nil
			return
		}

		r.enabled = make(map[Kind]bool, len(kinds))
		for _, k := range kinds {
			r.enabled[k] = true
		}
	}
}

// WithTriggerLookahead sets how many lines, counting the CREATE line, are
// searched for a trigger's ON clause. Values below one keep the current window.
func WithTriggerLookahead(lines int) Option {
	return func(r *Rewriter) {
		if lines >= 1 {
			r.lookahead = lines
		}
	}
}

// Rewrite returns doc with a guard inserted before every matched statement.
func (r *Rewriter) Rewrite(doc string) *Result {
	segs, blocks := Scan(doc)
	res := &Result{}

	var out strings.Builder

	out.Grow(len(doc))

	copied := 0
	prev := ""

	for _, seg := range segs {
		text := doc[seg.Start:seg.End]

		stmt, ok := r.classify(text, seg)
		if ok {
			switch {
			case stmt.Outcome == Unresolved:
				res.Diagnostics = append(res.Diagnostics, Diagnostic{
					Level: Warn,
					Line:  stmt.Line,
					Kind:  stmt.Kind,
					Name:  stmt.Name,
					Message: fmt.Sprintf("no ON <table> clause within %d lines of CREATE %s %s; guard not emitted",
						r.lookahead, stmt.Kind, stmt.Name),
				})
			case sameStatement(prev, stmt.Guard):
				stmt.Outcome = AlreadyGuarded
			default:
				at, indent := insertionPoint(doc, seg.Start)
				out.WriteString(doc[copied:at])
				out.WriteString(indent)
				out.WriteString(stmt.Guard)
				out.WriteString(lineEnding(doc, seg.Start))
				copied = at
			}

			res.Statements = append(res.Statements, stmt)
		}

		prev = text
	}

	out.WriteString(doc[copied:])
	res.Output = out.String()

	res.Diagnostics = append(res.Diagnostics, r.blockDiagnostics(doc, blocks)...)
	sort.SliceStable(res.Diagnostics, func(i, j int) bool {
		return res.Diagnostics[i].Line < res.Diagnostics[j].Line
	})

	return res
}

// classify matches a statement against the enabled rules.
func (r *Rewriter) classify(text string, seg Segment) (Statement, bool) {
	for i := range r.rules {
		rule := &r.rules[i]
		if !r.isEnabled(rule.Kind) {
			continue
		}

		name, table, nameEnd, ok := rule.matchHead(text)
		if !ok {
			continue
		}

		stmt := Statement{
			Kind:  rule.Kind,
			Name:  name,
			Start: seg.Start,
			End:   seg.End,
			Line:  seg.Line,
		}

		switch rule.Table {
		case FromHead:
			stmt.Table = table
		case Lookahead:
			t, found := lookaheadTable(text, nameEnd, r.lookahead)
			if !found {
				stmt.Outcome = Unresolved
				return stmt, true
			}

			stmt.Table = t
		case NoTable:
		}

		stmt.Guard = rule.Guard(stmt.Name, stmt.Table)

		return stmt, true
	}

	return Statement{}, false
}

func (r *Rewriter) isEnabled(k Kind) bool {
	return r.enabled == nil || r.enabled[k]
}

// blockDiagnostics reports rule heads found inside procedural blocks, which
// are left alone, and blocks that never close.
func (r *Rewriter) blockDiagnostics(doc string, blocks []Block) []Diagnostic {
	var diags []Diagnostic

	for _, b := range blocks {
		body := doc[b.Start:b.End]

		if !b.Terminated {
			diags = append(diags, Diagnostic{
				Level:   Warn,
				Line:    b.Line,
				Kind:    Other,
				Message: fmt.Sprintf("unterminated dollar-quoted block opened on line %d", b.Line),
			})
		}

		for i := range r.rules {
			rule := &r.rules[i]
			if !r.isEnabled(rule.Kind) {
				continue
			}

			for _, m := range rule.inner.FindAllStringSubmatchIndex(body, -1) {
				name := body[m[2]:m[3]]
				if !rule.validName(name) {
					continue
				}

				diags = append(diags, Diagnostic{
					Level:   Info,
					Line:    b.Line + strings.Count(body[:m[0]], "\n"),
					Kind:    rule.Kind,
					Name:    name,
					Message: fmt.Sprintf("CREATE %s %s inside procedural block left unguarded", rule.Kind, name),
				})
			}
		}
	}

	return diags
}

// insertionPoint returns where a guard goes and the indentation to give it.
// A statement that starts its line gets the guard on the line above.
func insertionPoint(doc string, start int) (int, string) {
	lineStart := strings.LastIndexByte(doc[:start], '\n') + 1
	indent := doc[lineStart:start]

	if strings.TrimLeft(indent, " \t") == "" {
		return lineStart, indent
	}

	return start, ""
}

// lineEnding returns the line break used by the line holding pos, falling
// back to the previous line when pos is on the last line.
func lineEnding(doc string, pos int) string {
	if i := strings.IndexByte(doc[pos:], '\n'); i >= 0 {
		if i > 0 && doc[pos+i-1] == '\r' {
			return "\r\n"
		}

		return "\n"
	}

	if j := strings.LastIndexByte(doc[:pos], '\n'); j > 0 && doc[j-1] == '\r' {
		return "\r\n"
	}

	return "\n"
}

// sameStatement compares two statements ignoring case and whitespace layout.
func sameStatement(a, b string) bool {
	if a == "" || b == "" {
		return false
	}

	return strings.EqualFold(strings.Join(strings.Fields(a), " "), strings.Join(strings.Fields(b), " "))
}
