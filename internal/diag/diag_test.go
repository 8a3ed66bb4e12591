package diag

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"chir/internal/chir"
)

func TestKindWireStrings(t *testing.T) {
	cases := map[Kind]string{
		ArithmeticOperatorOverflow:      "arithmetic_operator_overflow",
		DivisorIsZero:                   "divisor_is_zero",
		ShiftLengthOverflow:             "shift_length_overflow",
		TypecastOverflow:                "typecast_overflow",
		IdxOutOfBounds:                  "idx_out_of_bounds",
		StepNonZeroRange:                "step_non_zero_range",
		DCEUnreachableBlockInExpression: "dce_unreachable_block_in_expression",
		UnreachablePattern:              "unreachable_pattern",
		DCEUnreachableExpression:        "dce_unreachable_expression",
		UnusedVariable:                  "unused_variable",
		UnusedParameter:                 "unused_parameter",
		ChirSancovIllegalUsageOfPcTable: "chir_sancov_illegal_usage_of_pc_table",
		ChirSancovIllegalUsageOfLevel:   "chir_sancov_illegal_usage_of_level",
		NoConstraint:                    "no_constraint",
		ConflictingConstraints:          "conflicting_constraints",
		ArgMismatch:                     "arg_mismatch",
		RetMismatch:                     "ret_mismatch",
	}
	for k, want := range cases {
		assert.Equal(t, want, k.String())
	}
}

func TestKindDefaultLevel(t *testing.T) {
	assert.Equal(t, Warning, levelFor(UnusedVariable))
	assert.Equal(t, Error, levelFor(DivisorIsZero))
	assert.Equal(t, Error, levelFor(ChirSancovIllegalUsageOfLevel))
}

func TestReporterSortsByPosition(t *testing.T) {
	r := NewReporter()
	r.Report(New(DivisorIsZero, chir.Range{File: "a.cj", Begin: chir.Position{Line: 10, Column: 1}}, "x / 0"))
	r.Report(New(IdxOutOfBounds, chir.Range{File: "a.cj", Begin: chir.Position{Line: 2, Column: 5}}, "oob"))
	r.Report(New(UnusedVariable, chir.Range{File: "a.cj", Begin: chir.Position{Line: 2, Column: 1}}, "y unused"))

	sorted := r.Sorted()
	require.Len(t, sorted, 3)
	assert.Equal(t, UnusedVariable, sorted[0].Kind)
	assert.Equal(t, IdxOutOfBounds, sorted[1].Kind)
	assert.Equal(t, DivisorIsZero, sorted[2].Kind)
}

func TestReporterTieBreakIsStable(t *testing.T) {
	r := NewReporter()
	rng := chir.Range{File: "a.cj", Begin: chir.Position{Line: 1, Column: 1}}
	r.Report(New(UnusedVariable, rng, "a"))
	r.Report(New(UnusedVariable, rng, "b"))

	first := r.Sorted()
	second := r.Sorted()
	assert.Equal(t, first, second)
}

func TestReporterConcurrentReportIsSafe(t *testing.T) {
	r := NewReporter()
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			r.Report(New(UnusedParameter, chir.Range{}, "p"))
		}(i)
	}
	wg.Wait()
	assert.Equal(t, 50, r.Len())
}

func TestReporterHasErrors(t *testing.T) {
	r := NewReporter()
	assert.False(t, r.HasErrors())
	r.Report(New(UnusedVariable, chir.Range{}, "warn only"))
	assert.False(t, r.HasErrors())
	r.Report(New(DivisorIsZero, chir.Range{}, "real error"))
	assert.True(t, r.HasErrors())
}
