// Package typeinfer implements local type-argument synthesis for a
// single generic call site — TyVar/Constraint bookkeeping, Unify,
// Promotion, and JoinAndMeet — over CHIR's signed/unsigned/float numeric
// hierarchy (see DESIGN.md's Open Question log for the constraint-solving
// details left underspecified upstream).
package typeinfer

import "chir/internal/chir"

// TyVar is a type variable introduced either by a user-written generic
// parameter or, with IsPlaceholder set, by call-site inference.
type TyVar struct {
	Name          string
	IsPlaceholder bool
}

// Blame attributes a bound or a failure to the source construct that
// produced it — here just a human-readable description, since this core
// never sees source positions (those belong to the diagnostics layer
// wrapping this package).
type Blame string

// TyVarBounds accumulates everything known about one TyVar during
// solving: its lower bounds (things that must be subtypes of it), upper
// bounds (things it must be a subtype of), and the blame for each.
type TyVarBounds struct {
	Lower      []chir.Type
	Upper      []chir.Type
	LowerBlame []Blame
	UpperBlame []Blame
}

func (b *TyVarBounds) addLower(t chir.Type, blame Blame) {
	b.Lower = append(b.Lower, t)
	b.LowerBlame = append(b.LowerBlame, blame)
}

func (b *TyVarBounds) addUpper(t chir.Type, blame Blame) {
	b.Upper = append(b.Upper, t)
	b.UpperBlame = append(b.UpperBlame, blame)
}

func (b *TyVarBounds) clone() *TyVarBounds {
	return &TyVarBounds{
		Lower:      append([]chir.Type(nil), b.Lower...),
		Upper:      append([]chir.Type(nil), b.Upper...),
		LowerBlame: append([]Blame(nil), b.LowerBlame...),
		UpperBlame: append([]Blame(nil), b.UpperBlame...),
	}
}

// Constraint maps each TyVar being solved to its accumulated bounds.
type Constraint map[*TyVar]*TyVarBounds

func newConstraint(vars []*TyVar) Constraint {
	c := make(Constraint, len(vars))
	for _, v := range vars {
		c[v] = &TyVarBounds{}
	}
	return c
}

func (c Constraint) clone() Constraint {
	out := make(Constraint, len(c))
	for v, b := range c {
		out[v] = b.clone()
	}
	return out
}
