package diag

import "chir/internal/chir"

// Level is the severity a Diagnostic is rendered at.
type Level string

const (
	Error   Level = "error"
	Warning Level = "warning"
	Note    Level = "note"
	Help    Level = "help"
)

// Diagnostic is one emission from an analysis or transform pass: a kind,
// a severity, the source location it applies to, a primary message, and
// optional supporting notes ("range of Int8 is -128 ~ 127").
type Diagnostic struct {
	Level   Level
	Kind    Kind
	Range   chir.Range
	Message string
	Notes   []string

	// seq breaks ties between diagnostics at the same Range when sorting;
	// it is the ksuid assigned by Reporter.Report (see Reporter.Sorted
	// for the order this gives).
	seq string
}

func levelFor(k Kind) Level {
	if k.IsWarning() {
		return Warning
	}
	return Error
}

// New builds a Diagnostic at the kind's default severity.
func New(k Kind, rng chir.Range, message string, notes ...string) Diagnostic {
	return Diagnostic{Level: levelFor(k), Kind: k, Range: rng, Message: message, Notes: notes}
}
