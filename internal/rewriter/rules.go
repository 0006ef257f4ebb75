package rewriter

import (
	"fmt"
	"regexp"
	"strings"
)

// TableResolution says where a rule finds the table its guard names.
type TableResolution int

const (
	// NoTable rules emit guards without an ON clause.
	NoTable TableResolution = iota
	// FromHead rules capture the table in the head pattern itself.
	FromHead
	// Lookahead rules search the following lines of the statement for ON <table>.
	Lookahead
)

// DefaultTriggerLookahead is the number of lines, counting the CREATE line,
// searched for a trigger's ON clause.
const DefaultTriggerLookahead = 15

const (
	identPattern     = `(?:"(?:[^"]|"")+"|[A-Za-z_][A-Za-z0-9_$]*)`
	qualifiedPattern = identPattern + `(?:\.` + identPattern + `)?`
)

// tableClause finds the ON <table> clause of a trigger.
var tableClause = regexp.MustCompile(`(?i)\sON\s+(` + qualifiedPattern + `)`) //nolint:gochecknoglobals // compiled once

// reservedNames are keywords a loose index head could mistake for a name.
var reservedNames = map[string]bool{"on": true, "concurrently": true, "if": true} //nolint:gochecknoglobals // read-only

// GuardRule maps one statement kind to its head pattern, table resolution
// strategy and guard template.
type GuardRule struct {
	Kind     Kind
	Table    TableResolution
	Template string // fmt template; receives name, then table when Table != NoTable

	head  *regexp.Regexp // anchored at statement start
	inner *regexp.Regexp // finds the head at any line start, for block reports
}

// NewGuardRule compiles a rule. The pattern must capture the object name as
// group 1 and, for FromHead rules, the table as group 2.
func NewGuardRule(kind Kind, pattern string, table TableResolution, template string) GuardRule {
	return GuardRule{
		Kind:     kind,
		Table:    table,
		Template: template,
		head:     regexp.MustCompile(`(?i)^` + pattern),
		inner:    regexp.MustCompile(`(?im)^[ \t]*` + pattern),
	}
}

// DefaultRules returns the rule table for POLICY, TRIGGER, UNIQUE INDEX and INDEX.
func DefaultRules() []GuardRule {
	return []GuardRule{
		NewGuardRule(Policy,
			`CREATE\s+POLICY\s+(`+identPattern+`)\s+ON\s+(`+qualifiedPattern+`)`,
			FromHead, "DROP POLICY IF EXISTS %s ON %s;"),
		NewGuardRule(Trigger,
			`CREATE\s+TRIGGER\s+(`+identPattern+`)`,
			Lookahead, "DROP TRIGGER IF EXISTS %s ON %s;"),
		NewGuardRule(UniqueIndex,
			`CREATE\s+UNIQUE\s+INDEX(?:\s+CONCURRENTLY)?\s+(`+identPattern+`)\s+ON\s`,
			NoTable, "DROP INDEX IF EXISTS %s;"),
		NewGuardRule(Index,
			`CREATE\s+INDEX(?:\s+CONCURRENTLY)?\s+(`+identPattern+`)\s+ON\s`,
			NoTable, "DROP INDEX IF EXISTS %s;"),
	}
}

// Guard renders the guard statement for a name and table.
func (g *GuardRule) Guard(name, table string) string {
	if g.Table == NoTable {
		return fmt.Sprintf(g.Template, name)
	}

	return fmt.Sprintf(g.Template, name, table)
}

// matchHead reports the name, the table captured by the head (if any) and the
// offset just past the name.
func (g *GuardRule) matchHead(text string) (name, table string, nameEnd int, ok bool) {
	m := g.head.FindStringSubmatchIndex(text)
	if m == nil {
		return "", "", 0, false
	}

	name = text[m[2]:m[3]]
	if !g.validName(name) {
		return "", "", 0, false
	}

	if g.Table == FromHead && len(m) >= 6 && m[4] >= 0 {
		table = text[m[4]:m[5]]
	}

	return name, table, m[3], true
}

// validName rejects keywords that an index head can capture in place of a
// name, as in CREATE INDEX CONCURRENTLY ON t.
func (g *GuardRule) validName(name string) bool {
	if g.Kind != Index && g.Kind != UniqueIndex {
		return true
	}

	return !reservedNames[strings.ToLower(name)]
}

// lookaheadTable searches text for ON <table>, starting after the name and
// stopping at the end of the given number of lines. Comments, string literals
// and the inside of quoted identifiers never match.
func lookaheadTable(text string, nameEnd, lines int) (string, bool) {
	masked := maskLiterals(text)
	end := len(masked)
	pos := 0

	for n := 0; n < lines; n++ {
		i := strings.IndexByte(masked[pos:], '\n')
		if i < 0 {
			end = len(masked)

			break
		}

		pos += i + 1
		end = pos
	}

	if nameEnd > end {
		return "", false
	}

	m := tableClause.FindStringSubmatchIndex(masked[nameEnd:end])
	if m == nil {
		return "", false
	}

	return text[nameEnd+m[2] : nameEnd+m[3]], true
}

// Guard renders the guard statement for a kind using the default rules.
func Guard(kind Kind, name, table string) string {
	for _, rule := range DefaultRules() {
		if rule.Kind == kind {
			return rule.Guard(name, table)
		}
	}

	return ""
}
