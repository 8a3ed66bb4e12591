package typeinfer

import "chir/internal/chir"

// memoKey is one already-attempted unification pair, recorded so
// recursive nominal bounds (e.g. a `Box<T>` constrained by a
// `Box<Box<T>>`-shaped upper bound) terminate instead of re-unifying the
// same pair forever.
type memoKey struct{ a, b string }

// constraintSet pairs a Constraint with the unification memo guarding
// recursive nominal unification, and the solving Universe needed to
// check nominal promotion.
type constraintSet struct {
	cs    Constraint
	memo  map[memoKey]bool
	univ  *Universe
	tvSet map[*TyVar]bool
}

func newConstraintSet(univ *Universe, vars []*TyVar) *constraintSet {
	tvSet := make(map[*TyVar]bool, len(vars))
	for _, v := range vars {
		tvSet[v] = true
	}
	return &constraintSet{cs: newConstraint(vars), memo: map[memoKey]bool{}, univ: univ, tvSet: tvSet}
}

func (s *constraintSet) clone() *constraintSet {
	return &constraintSet{cs: s.cs.clone(), memo: s.memo, univ: s.univ, tvSet: s.tvSet}
}

// tyVarOf reports whether t is one of the TyVars this set is solving,
// exposed as a GenericType carrying the TyVar's name (CHIR has no
// first-class TyVar type; synthesis maps a placeholder's GenericType
// name back to its *TyVar via this set before calling Unify).
func (s *constraintSet) tyVarOf(t chir.Type) *TyVar {
	g, ok := t.(chir.GenericType)
	if !ok {
		return nil
	}
	for tv := range s.tvSet {
		if tv.Name == g.Name {
			return tv
		}
	}
	return nil
}

// Unify produces new bounds in cs from requiring argTy <: paramTy,
// recording blame on any bound it adds. Returns false ("the set empties")
// once a requirement is provably impossible to satisfy, at which point
// the caller should emit ARG_MISMATCH/RET_MISMATCH and stop.
func (cs *constraintSet) Unify(argTy, paramTy chir.Type, blame Blame) bool {
	if tv := cs.tyVarOf(paramTy); tv != nil {
		return cs.bindLower(tv, argTy, blame)
	}
	if tv := cs.tyVarOf(argTy); tv != nil {
		return cs.bindUpper(tv, paramTy, blame)
	}

	switch pt := paramTy.(type) {
	case chir.UnionType:
		// A <: B∪C iff A<:B or A<:C.
		for _, m := range pt.Members {
			trial := cs.clone()
			if trial.Unify(argTy, m, blame) {
				cs.cs = trial.cs
				return true
			}
		}
		return false
	case chir.IntersectionType:
		// every member must accept argTy.
		for _, m := range pt.Members {
			if !cs.Unify(argTy, m, blame) {
				return false
			}
		}
		return true
	}
	switch at := argTy.(type) {
	case chir.IntersectionType:
		// A∩B <: C iff A<:C or B<:C.
		for _, m := range at.Members {
			trial := cs.clone()
			if trial.Unify(m, paramTy, blame) {
				cs.cs = trial.cs
				return true
			}
		}
		return false
	case chir.UnionType:
		for _, m := range at.Members {
			if !cs.Unify(m, paramTy, blame) {
				return false
			}
		}
		return true
	}

	if af, ok := argTy.(chir.FuncType); ok {
		if pf, ok := paramTy.(chir.FuncType); ok {
			return cs.unifyFunc(af, pf, blame)
		}
		return false
	}
	if at, ok := argTy.(chir.TupleType); ok {
		if pt, ok := paramTy.(chir.TupleType); ok {
			return cs.unifyTuple(at, pt, blame)
		}
		return false
	}
	if an, ok := argTy.(chir.NominalType); ok {
		if pn, ok := paramTy.(chir.NominalType); ok {
			return cs.unifyNominal(an, pn, blame)
		}
		return false
	}

	// Option-boxing: unwrap the param side one layer at a time while it
	// is a deeper Option than argTy, implementing implicit Option lifting.
	if pn, ok := paramTy.(chir.NominalType); ok && isOption(pn) {
		if an, ok := argTy.(chir.NominalType); !ok || !isOption(an) {
			return cs.Unify(argTy, pn.Args[0], blame)
		}
	}

	return IsSubtype(cs.univ, argTy, paramTy)
}

func isOption(t chir.NominalType) bool { return t.Name == "Option" && len(t.Args) == 1 }

func (cs *constraintSet) unifyFunc(arg, param chir.FuncType, blame Blame) bool {
	if len(arg.Params) != len(param.Params) {
		return false
	}
	for i := range arg.Params {
		// contravariant: the param type's own parameter must accept the
		// argument type's parameter.
		if !cs.Unify(param.Params[i], arg.Params[i], blame) {
			return false
		}
	}
	return cs.Unify(arg.Ret, param.Ret, blame) // covariant
}

func (cs *constraintSet) unifyTuple(arg, param chir.TupleType, blame Blame) bool {
	if len(arg.Elements) != len(param.Elements) {
		return false
	}
	for i := range arg.Elements {
		// invariant: unify both directions.
		if !cs.Unify(arg.Elements[i], param.Elements[i], blame) {
			return false
		}
		if !cs.Unify(param.Elements[i], arg.Elements[i], blame) {
			return false
		}
	}
	return true
}

func (cs *constraintSet) unifyNominal(arg, param chir.NominalType, blame Blame) bool {
	key := memoKey{arg.String(), param.String()}
	if cs.memo[key] {
		return true
	}
	cs.memo[key] = true

	var base *chir.NominalType
	if arg.Package == param.Package && arg.Name == param.Name {
		base = &arg
	} else {
		base = Promote(cs.univ, arg, param)
		if base == nil {
			return false
		}
	}
	if len(base.Args) != len(param.Args) {
		return false
	}
	for i := range base.Args {
		// invariant: unify both directions.
		if !cs.Unify(base.Args[i], param.Args[i], blame) {
			return false
		}
		if !cs.Unify(param.Args[i], base.Args[i], blame) {
			return false
		}
	}
	return true
}

func (cs *constraintSet) bindLower(tv *TyVar, t chir.Type, blame Blame) bool {
	b := cs.cs[tv]
	for _, up := range b.Upper {
		if !IsSubtype(cs.univ, t, up) {
			return false
		}
	}
	b.addLower(t, blame)
	return true
}

func (cs *constraintSet) bindUpper(tv *TyVar, t chir.Type, blame Blame) bool {
	b := cs.cs[tv]
	for _, lo := range b.Lower {
		if !IsSubtype(cs.univ, lo, t) {
			return false
		}
	}
	b.addUpper(t, blame)
	return true
}
