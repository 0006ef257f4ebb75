package rewriter

// Level is the importance of a Diagnostic.
type Level int

const (
	// Info marks behavior worth knowing about but expected.
	Info Level = iota
	// Warn marks a statement the rewriter could not make idempotent.
	Warn
)

// String returns the lowercase level name.
func (l Level) String() string {
	if l == Warn {
		return "warn"
	}

	return "info"
}

// Statement is a guarded-kind CREATE found in the document.
type Statement struct {
	Kind    Kind
	Name    string
	Table   string // empty for indexes and unresolved triggers
	Start   int
	End     int
	Line    int
	Guard   string // empty when Outcome is Unresolved
	Outcome Outcome
}

// Diagnostic reports something the rewriter noticed but did not change.
type Diagnostic struct {
	Level   Level
	Line    int
	Kind    Kind
	Name    string
	Message string
}

// Result holds the rewritten document and what was found in it.
type Result struct {
	Output      string
	Statements  []Statement
	Diagnostics []Diagnostic
}

// Count returns how many statements of a kind ended with the given outcome.
func (r *Result) Count(kind Kind, outcome Outcome) int {
	n := 0

	for i := range r.Statements {
		if r.Statements[i].Kind == kind && r.Statements[i].Outcome == outcome {
			n++
		}
	}

	return n
}

// Inserted returns the total number of guards inserted.
func (r *Result) Inserted() int {
	n := 0

	for _, k := range Kinds {
		n += r.Count(k, Guarded)
	}

	return n
}

// Warnings returns the diagnostics at Warn level.
func (r *Result) Warnings() []Diagnostic {
	var out []Diagnostic

	for _, d := range r.Diagnostics {
		if d.Level == Warn {
			out = append(out, d)
		}
	}

	return out
}
