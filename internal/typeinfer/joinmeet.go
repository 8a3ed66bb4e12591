package typeinfer

import "chir/internal/chir"

// Join computes the least upper bound of ts: the narrowest type every
// member of ts is a subtype of. Func/Tuple are joined structurally
// (contravariant/covariant and elementwise respectively, mirroring
// Unify's shape); nominals are joined by enumerating common supertypes
// via Promote and picking the first that dominates every member.
// Returns AnyType if no tighter common supertype is found.
func Join(u *Universe, ts []chir.Type) chir.Type {
	if len(ts) == 0 {
		return chir.AnyType{}
	}
	acc := ts[0]
	for _, t := range ts[1:] {
		acc = join2(u, acc, t)
	}
	return acc
}

func join2(u *Universe, a, b chir.Type) chir.Type {
	if chir.TypesEqual(a, b) {
		return a
	}
	if IsSubtype(u, a, b) {
		return b
	}
	if IsSubtype(u, b, a) {
		return a
	}
	if af, ok := a.(chir.FuncType); ok {
		if bf, ok := b.(chir.FuncType); ok && len(af.Params) == len(bf.Params) {
			params := make([]chir.Type, len(af.Params))
			for i := range af.Params {
				params[i] = meet2(u, af.Params[i], bf.Params[i]) // contravariant
			}
			return chir.FuncType{Params: params, Ret: join2(u, af.Ret, bf.Ret)}
		}
	}
	if at, ok := a.(chir.TupleType); ok {
		if bt, ok := b.(chir.TupleType); ok && len(at.Elements) == len(bt.Elements) {
			elems := make([]chir.Type, len(at.Elements))
			for i := range at.Elements {
				elems[i] = join2(u, at.Elements[i], bt.Elements[i])
			}
			return chir.TupleType{Elements: elems}
		}
	}
	if an, ok := a.(chir.NominalType); ok {
		if bn, ok := b.(chir.NominalType); ok {
			if common := commonSupertype(u, an, bn); common != nil {
				return *common
			}
		}
	}
	return chir.AnyType{}
}

// commonSupertype enumerates a's ancestors breadth-first (the same walk
// Promote performs) and returns the first whose (Package, Name) is also
// an ancestor of b, then verifies the match subtypes cleanly.
func commonSupertype(u *Universe, a, b chir.NominalType) *chir.NominalType {
	visited := map[string]bool{}
	var bfs func(n chir.NominalType) *chir.NominalType
	bfs = func(n chir.NominalType) *chir.NominalType {
		key := n.Package + "." + n.Name
		if visited[key] {
			return nil
		}
		visited[key] = true
		if Promote(u, b, n) != nil {
			return &n
		}
		td := u.lookup(n)
		if td == nil {
			return nil
		}
		for _, iface := range td.Interfaces {
			if r := bfs(instantiate(td, n.Args, iface)); r != nil {
				return r
			}
		}
		return nil
	}
	return bfs(a)
}

// Meet computes the greatest lower bound of ts: the widest type that is a
// subtype of every member.
func Meet(u *Universe, ts []chir.Type) chir.Type {
	if len(ts) == 0 {
		return chir.AnyType{}
	}
	acc := ts[0]
	for _, t := range ts[1:] {
		acc = meet2(u, acc, t)
	}
	return acc
}

func meet2(u *Universe, a, b chir.Type) chir.Type {
	if chir.TypesEqual(a, b) {
		return a
	}
	if IsSubtype(u, a, b) {
		return a
	}
	if IsSubtype(u, b, a) {
		return b
	}
	if af, ok := a.(chir.FuncType); ok {
		if bf, ok := b.(chir.FuncType); ok && len(af.Params) == len(bf.Params) {
			params := make([]chir.Type, len(af.Params))
			for i := range af.Params {
				params[i] = join2(u, af.Params[i], bf.Params[i])
			}
			return chir.FuncType{Params: params, Ret: meet2(u, af.Ret, bf.Ret)}
		}
	}
	if at, ok := a.(chir.TupleType); ok {
		if bt, ok := b.(chir.TupleType); ok && len(at.Elements) == len(bt.Elements) {
			elems := make([]chir.Type, len(at.Elements))
			for i := range at.Elements {
				elems[i] = meet2(u, at.Elements[i], bt.Elements[i])
			}
			return chir.TupleType{Elements: elems}
		}
	}
	// No structural relation and neither promotes to the other: the
	// meet is empty. It is returned as an Intersection of the two rather
	// than collapsed to Nothing, so a caller can still report which two
	// types conflicted.
	return chir.IntersectionType{Members: []chir.Type{a, b}}
}

// ToUserVisibleTy returns t unchanged. Join and Meet build their results
// from ordinary chir types (Meet's empty case is already a
// chir.IntersectionType), so there is no separate internal form to
// convert before rendering.
func ToUserVisibleTy(t chir.Type) chir.Type { return t }
