// Package booldomain implements the four-point boolean lattice used by
// range analysis for conditions: bottom (no information reached yet),
// must-false, must-true, and top (either).
package booldomain

// State is one of the four lattice points.
type State uint8

const (
	Bottom State = iota
	False
	True
	Top
)

func (s State) String() string {
	switch s {
	case Bottom:
		return "⊥"
	case False:
		return "F"
	case True:
		return "T"
	default:
		return "⊤"
	}
}

// Domain wraps a State so it can satisfy the engine's domain-element shape
// alongside SIntDomain (range analysis values are either a BoolDomain or an
// SIntDomain).
type Domain struct {
	State State
}

func Of(s State) Domain { return Domain{State: s} }

func FromBool(b bool) Domain {
	if b {
		return Domain{State: True}
	}
	return Domain{State: False}
}

func (d Domain) IsBottom() bool { return d.State == Bottom }
func (d Domain) IsTop() bool    { return d.State == Top }
func (d Domain) IsKnown() bool  { return d.State == True || d.State == False }

// Bool returns the concrete boolean value and whether the domain is
// precise enough to have one.
func (d Domain) Bool() (bool, bool) {
	switch d.State {
	case True:
		return true, true
	case False:
		return false, true
	default:
		return false, false
	}
}

// join table: union is the lattice's least upper bound.
var joinTable = [4][4]State{
	{Bottom, False, True, Top},
	{False, False, Top, Top},
	{True, Top, True, Top},
	{Top, Top, Top, Top},
}

func (d Domain) Join(other Domain) Domain {
	return Domain{State: joinTable[d.State][other.State]}
}

// meet table: intersection is the lattice's greatest lower bound.
var meetTable = [4][4]State{
	{Bottom, Bottom, Bottom, Bottom},
	{Bottom, False, Bottom, False},
	{Bottom, Bottom, True, True},
	{Bottom, False, True, Top},
}

func (d Domain) Meet(other Domain) Domain {
	return Domain{State: meetTable[d.State][other.State]}
}

func (d Domain) Equals(other Domain) bool { return d.State == other.State }

// not table: logical negation, preserving ⊥/⊤.
var notTable = [4]State{Bottom, True, False, Top}

func (d Domain) Not() Domain { return Domain{State: notTable[d.State]} }

// LogicalAnd implements short-circuit &&: if either side is known false,
// the result is false regardless of the other side's precision.
var andTable = [4][4]State{
	{Bottom, Bottom, Bottom, Bottom},
	{Bottom, False, False, False},
	{Bottom, False, True, Top},
	{Bottom, False, Top, Top},
}

func (d Domain) LogicalAnd(other Domain) Domain {
	return Domain{State: andTable[d.State][other.State]}
}

// LogicalOr implements short-circuit ||: if either side is known true, the
// result is true regardless of the other side's precision.
var orTable = [4][4]State{
	{Bottom, Bottom, Bottom, Bottom},
	{Bottom, False, True, Top},
	{Bottom, True, True, True},
	{Bottom, Top, True, Top},
}

func (d Domain) LogicalOr(other Domain) Domain {
	return Domain{State: orTable[d.State][other.State]}
}

// And / Or are the non-short-circuit bitwise forms, matching Cangjie's
// BITAND/BITOR on Bool-typed operands: they operate directly on the state
// index's bit pattern rather than going through the logical join tables.
func (d Domain) And(other Domain) Domain { return Domain{State: State(uint8(d.State) & uint8(other.State))} }
func (d Domain) Or(other Domain) Domain  { return Domain{State: State(uint8(d.State) | uint8(other.State))} }
