package diag

import "github.com/iancoleman/strcase"

// Kind identifies one diagnosable condition. Its wire string is strcase's
// snake_case form of the name recorded for it in kindNames (not of the
// Go identifier, which spells DCE where kindNames spells Dce).
type Kind int

const (
	ArithmeticOperatorOverflow Kind = iota
	DivisorIsZero
	ShiftLengthOverflow
	TypecastOverflow
	IdxOutOfBounds
	StepNonZeroRange
	DCEUnreachableBlockInExpression
	UnreachablePattern
	DCEUnreachableExpression
	UnusedVariable
	UnusedParameter
	ChirSancovIllegalUsageOfPcTable
	ChirSancovIllegalUsageOfLevel
	NoConstraint
	ConflictingConstraints
	ArgMismatch
	RetMismatch
	InternalPassFailure
)

var kindNames = map[Kind]string{
	ArithmeticOperatorOverflow:      "ArithmeticOperatorOverflow",
	DivisorIsZero:                   "DivisorIsZero",
	ShiftLengthOverflow:             "ShiftLengthOverflow",
	TypecastOverflow:                "TypecastOverflow",
	IdxOutOfBounds:                  "IdxOutOfBounds",
	StepNonZeroRange:                "StepNonZeroRange",
	DCEUnreachableBlockInExpression: "DceUnreachableBlockInExpression",
	UnreachablePattern:              "UnreachablePattern",
	DCEUnreachableExpression:        "DceUnreachableExpression",
	UnusedVariable:                  "UnusedVariable",
	UnusedParameter:                 "UnusedParameter",
	ChirSancovIllegalUsageOfPcTable: "ChirSancovIllegalUsageOfPcTable",
	ChirSancovIllegalUsageOfLevel:   "ChirSancovIllegalUsageOfLevel",
	NoConstraint:                    "NoConstraint",
	ConflictingConstraints:          "ConflictingConstraints",
	ArgMismatch:                     "ArgMismatch",
	RetMismatch:                     "RetMismatch",
	InternalPassFailure:             "InternalPassFailure",
}

var wireCache = buildWireCache()

func buildWireCache() map[Kind]string {
	m := make(map[Kind]string, len(kindNames))
	for k, name := range kindNames {
		m[k] = strcase.ToSnake(name)
	}
	return m
}

// String returns the stable snake_case wire key (e.g. "idx_out_of_bounds").
func (k Kind) String() string {
	if s, ok := wireCache[k]; ok {
		return s
	}
	return "unknown_diagnostic"
}

// IsWarning reports whether this kind is reported at warning level by
// default. Callers that need error-level reporting for the same
// condition (e.g. a SanCov config kind, which always aborts the pass)
// override Level explicitly on the Diagnostic.
func (k Kind) IsWarning() bool {
	switch k {
	case DCEUnreachableBlockInExpression, UnreachablePattern, DCEUnreachableExpression,
		UnusedVariable, UnusedParameter:
		return true
	default:
		return false
	}
}
