package typeinfer

import "chir/internal/chir"

// intRank gives a promotion rank within one primitive family. A
// lower rank promotes to any higher rank in the same family, across
// CHIR's Int/UInt/Float widths.
func intRank(w uint) int { return int(w) }

// IsNumeric reports whether t is one of CHIR's fixed-width numeric types
// or an ideal numeric placeholder.
func IsNumeric(t chir.Type) bool {
	switch t.(type) {
	case chir.IntType, chir.UIntType, chir.FloatType, chir.IdealIntType, chir.IdealFloatType:
		return true
	default:
		return false
	}
}

// IsSubtype reports whether sub can be used where sup is expected,
// covering primitive widening, Any/Nothing's lattice-corner behavior, and
// nominal supertype declarations (walked by Promote). This intentionally
// does not handle Func/Tuple/Union/Intersection structural subtyping —
// Unify handles those shapes directly since they need to thread bound
// updates through their members, not just answer yes/no.
func IsSubtype(u *Universe, sub, sup chir.Type) bool {
	if chir.TypesEqual(sub, sup) {
		return true
	}
	if _, ok := sub.(chir.NothingType); ok {
		return true // bottom is a subtype of everything
	}
	if _, ok := sup.(chir.AnyType); ok {
		return true // top accepts everything
	}
	switch s := sub.(type) {
	case chir.IntType:
		if t, ok := sup.(chir.IntType); ok {
			return intRank(uint(s.Width)) <= intRank(uint(t.Width))
		}
	case chir.UIntType:
		if t, ok := sup.(chir.UIntType); ok {
			return intRank(uint(s.Width)) <= intRank(uint(t.Width))
		}
	case chir.FloatType:
		if t, ok := sup.(chir.FloatType); ok {
			return intRank(uint(s.Width)) <= intRank(uint(t.Width))
		}
	case chir.IdealIntType:
		switch sup.(type) {
		case chir.IntType, chir.UIntType, chir.IdealIntType:
			return true
		}
	case chir.IdealFloatType:
		switch sup.(type) {
		case chir.FloatType, chir.IdealFloatType:
			return true
		}
	case chir.NominalType:
		if t, ok := sup.(chir.NominalType); ok {
			return Promote(u, s, t) != nil
		}
	}
	return false
}

// MoreSpecific reports whether a is a strictly more specific (narrower)
// type than b. Synthesize does not call it: each TyVar gets the single
// candidate solveOne produces, with no tie-break among several solutions.
func MoreSpecific(u *Universe, a, b chir.Type) bool {
	return IsSubtype(u, a, b) && !chir.TypesEqual(a, b)
}

// ConcretizeIdeal replaces an unresolved ideal numeric type with its
// default concretisation for an unresolved ideal numeric type.
func ConcretizeIdeal(t chir.Type) chir.Type {
	switch t.(type) {
	case chir.IdealIntType:
		return chir.IntType{Width: 64}
	case chir.IdealFloatType:
		return chir.FloatType{Width: chir.Float64}
	default:
		return t
	}
}

// isValidSolution rejects the lattice corners step 4a/b explicitly names:
// a solved type may not be Invalid, Nothing, Any, or a bare Ideal type
// (those get concretized separately), unless the caller explicitly opts
// in (e.g. a TyVar instantiated to Nothing by an always-diverging arm,
// which the caller can special-case before calling this).
func isValidSolution(t chir.Type) bool {
	switch t.(type) {
	case chir.InvalidType, chir.NothingType, chir.AnyType, chir.IdealIntType, chir.IdealFloatType:
		return false
	default:
		return true
	}
}
