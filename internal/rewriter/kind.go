package rewriter

import (
	"fmt"
	"strings"
)

// Kind identifies a guarded DDL statement kind.
type Kind int

const (
	// Other is any statement no rule guards.
	Other Kind = iota
	// Policy is CREATE POLICY.
	Policy
	// Trigger is CREATE TRIGGER.
	Trigger
	// Index is CREATE INDEX.
	Index
	// UniqueIndex is CREATE UNIQUE INDEX.
	UniqueIndex
)

// Kinds lists every guarded kind in reporting order.
var Kinds = []Kind{Policy, Trigger, Index, UniqueIndex} //nolint:gochecknoglobals // read-only table

// String returns the SQL keyword for the kind.
func (k Kind) String() string {
	switch k {
	case Policy:
		return "POLICY"
	case Trigger:
		return "TRIGGER"
	case Index:
		return "INDEX"
	case UniqueIndex:
		return "UNIQUE INDEX"
	case Other:
		return "OTHER"
	default:
		return "UNKNOWN"
	}
}

// Flag returns the command-line spelling accepted by ParseKind.
func (k Kind) Flag() string {
	return strings.ReplaceAll(strings.ToLower(k.String()), " ", "-")
}

// ParseKind converts a command-line spelling ("policy", "trigger", "index",
// "unique-index") into a Kind.
func ParseKind(s string) (Kind, error) {
	want := strings.ToLower(strings.TrimSpace(s))

	for _, k := range Kinds {
		if k.Flag() == want {
			return k, nil
		}
	}

	return Other, fmt.Errorf("%w: %q", ErrUnknownKind, s)
}

// Outcome records what the rewriter did with a matched statement.
type Outcome int

const (
	// Guarded means a guard was inserted before the statement.
	Guarded Outcome = iota
	// AlreadyGuarded means the preceding statement already is the guard.
	AlreadyGuarded
	// Unresolved means the statement matched but its table could not be found.
	Unresolved
)

// String returns a lowercase label for the outcome.
func (o Outcome) String() string {
	switch o {
	case Guarded:
		return "guarded"
	case AlreadyGuarded:
		return "already guarded"
	case Unresolved:
		return "unresolved"
	default:
		return "unknown"
	}
}
