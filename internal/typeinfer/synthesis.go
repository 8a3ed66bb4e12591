package typeinfer

import (
	"sort"

	"github.com/pkg/errors"

	"chir/internal/chir"
	"chir/internal/diag"
)

// LocTyArgSynArgPack bundles one generic call site's synthesis inputs,
// named directly after the original compiler's `LocTyArgSynArgPack`.
type LocTyArgSynArgPack struct {
	TyVarsToSolve []*TyVar
	ArgTys        []chir.Type
	ParamTys      []chir.Type
	ArgBlames     []Blame

	FuncRetTy *chir.Type
	RetTyUB   chir.Type
	RetBlame  Blame

	// Deterministic is carried with the pack but not read by Synthesize;
	// solving is the same whichever way it is set.
	Deterministic bool
}

// Result is the outcome of one Synthesize call: either a full
// substitution from every TyVarsToSolve to its solved Type, or a set of
// diagnostics explaining why solving failed.
type Result struct {
	Subst      map[*TyVar]chir.Type
	Diagnostics []diag.Diagnostic
}

// Synthesize runs the six-step algorithm for one call site. The
// returned error reports a malformed call (mismatched pack vectors) and
// is distinct from constraint-solving failure, which is reported through
// Result.Diagnostics instead.
func Synthesize(u *Universe, pack LocTyArgSynArgPack, reporter *diag.Reporter) (Result, error) {
	if len(pack.ArgTys) != len(pack.ParamTys) || len(pack.ArgTys) != len(pack.ArgBlames) {
		return Result{}, errors.Errorf(
			"typeinfer: ArgTys/ParamTys/ArgBlames must be parallel vectors (got %d/%d/%d)",
			len(pack.ArgTys), len(pack.ParamTys), len(pack.ArgBlames))
	}

	cs := newConstraintSet(u, pack.TyVarsToSolve)

	// Step 2: unify every (argTy, paramTy) pair.
	for i := range pack.ArgTys {
		if !cs.Unify(pack.ArgTys[i], pack.ParamTys[i], pack.ArgBlames[i]) {
			d := diag.New(diag.ArgMismatch, chir.Range{}, "argument type is not compatible with parameter type",
				string(pack.ArgBlames[i]))
			if reporter != nil {
				reporter.Report(d)
			}
			return Result{Diagnostics: []diag.Diagnostic{d}}, nil
		}
	}

	// Step 3: if the return type mentions a TyVar, unify it against its
	// upper bound too.
	if pack.FuncRetTy != nil && pack.RetTyUB != nil {
		if !cs.Unify(*pack.FuncRetTy, pack.RetTyUB, pack.RetBlame) {
			d := diag.New(diag.RetMismatch, chir.Range{}, "return type is not compatible with its expected upper bound",
				string(pack.RetBlame))
			if reporter != nil {
				reporter.Report(d)
			}
			return Result{Diagnostics: []diag.Diagnostic{d}}, nil
		}
	}

	// Step 4: solve each TyVar, processed in dependency order so a bound
	// that itself references another TyVar sees that TyVar's solution
	// first where possible.
	order := topoOrder(pack.TyVarsToSolve, cs.cs)
	subst := make(map[*TyVar]chir.Type, len(order))
	var diags []diag.Diagnostic

	for _, tv := range order {
		b := cs.cs[tv]
		solved, ok := solveOne(u, tv, b, subst)
		if !ok {
			kind, msg := diag.ConflictingConstraints, "no single type satisfies every constraint on this type parameter"
			if len(b.Lower) == 0 && len(b.Upper) == 0 {
				kind, msg = diag.NoConstraint, "no constraint was collected for this type parameter"
			}
			d := diag.New(kind, chir.Range{}, msg, blameNote(b))
			diags = append(diags, d)
			if reporter != nil {
				reporter.Report(d)
			}
			continue
		}
		subst[tv] = solved
	}

	if len(subst) == 0 && len(pack.TyVarsToSolve) > 0 && len(diags) == 0 {
		d := diag.New(diag.NoConstraint, chir.Range{}, "no constraint was collected for this type parameter")
		diags = append(diags, d)
		if reporter != nil {
			reporter.Report(d)
		}
	}

	// Step 6: concretize any ideal numeric left in the final substitution.
	for tv, t := range subst {
		subst[tv] = ConcretizeIdeal(t)
	}

	return Result{Subst: subst, Diagnostics: diags}, nil
}

// solveOne implements step 4a-4c for one TyVar.
func solveOne(u *Universe, tv *TyVar, b *TyVarBounds, partial map[*TyVar]chir.Type) (chir.Type, bool) {
	if len(b.Lower) > 0 {
		candidate := Join(u, substituteAll(b.Lower, partial))
		if isValidSolution(candidate) {
			return candidate, true
		}
		if IsNumeric(candidate) {
			return ConcretizeIdeal(candidate), true
		}
	}
	if len(b.Upper) > 0 {
		candidate := Meet(u, substituteAll(b.Upper, partial))
		if isValidSolution(candidate) {
			return candidate, true
		}
		if IsNumeric(candidate) {
			return ConcretizeIdeal(candidate), true
		}
	}
	return nil, false
}

// substituteAll replaces any already-solved TyVar (seen as a GenericType
// by name) appearing inside ts with its solution, the "two-phase
// substitution" step 4b names for bounds that reference other TyVars.
func substituteAll(ts []chir.Type, partial map[*TyVar]chir.Type) []chir.Type {
	out := make([]chir.Type, len(ts))
	for i, t := range ts {
		out[i] = substituteOne(t, partial)
	}
	return out
}

func substituteOne(t chir.Type, partial map[*TyVar]chir.Type) chir.Type {
	g, ok := t.(chir.GenericType)
	if !ok {
		return t
	}
	for tv, solved := range partial {
		if tv.Name == g.Name {
			return solved
		}
	}
	return t
}

// topoOrder orders TyVars so that a TyVar whose bounds reference another
// TyVar in vars comes after it where possible (step 4's "topologically
// order TyVars by dependency in their own bounds"). Ties (including
// cycles, which two-phase substitution in solveOne tolerates) keep
// input order.
func topoOrder(vars []*TyVar, cs Constraint) []*TyVar {
	dependsOn := func(tv *TyVar) map[*TyVar]bool {
		deps := map[*TyVar]bool{}
		mark := func(t chir.Type) {
			if g, ok := t.(chir.GenericType); ok {
				for _, other := range vars {
					if other != tv && other.Name == g.Name {
						deps[other] = true
					}
				}
			}
		}
		b := cs[tv]
		for _, t := range b.Lower {
			mark(t)
		}
		for _, t := range b.Upper {
			mark(t)
		}
		return deps
	}

	indexOf := make(map[*TyVar]int, len(vars))
	for i, v := range vars {
		indexOf[v] = i
	}
	deps := make(map[*TyVar]map[*TyVar]bool, len(vars))
	for _, v := range vars {
		deps[v] = dependsOn(v)
	}

	ordered := append([]*TyVar(nil), vars...)
	sort.SliceStable(ordered, func(i, j int) bool {
		vi, vj := ordered[i], ordered[j]
		if deps[vi][vj] {
			return false // vi depends on vj: vj first
		}
		if deps[vj][vi] {
			return true
		}
		return indexOf[vi] < indexOf[vj]
	})
	return ordered
}

func blameNote(b *TyVarBounds) string {
	if len(b.LowerBlame) > 0 {
		return string(b.LowerBlame[len(b.LowerBlame)-1])
	}
	if len(b.UpperBlame) > 0 {
		return string(b.UpperBlame[len(b.UpperBlame)-1])
	}
	return ""
}
