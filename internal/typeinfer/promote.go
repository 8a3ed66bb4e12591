package typeinfer

import "chir/internal/chir"

// Universe is the set of CustomTypeDefs Promote/JoinAndMeet can walk
// declared supertypes through. Synthesis runs per call site with no
// access to the whole Package by default, so a caller (typically the
// same driver that built the CHIR Package) registers its defs once up
// front, the same role a whole-program symbol table plays elsewhere.
type Universe struct {
	defs map[string]*chir.CustomTypeDef
}

func NewUniverse() *Universe { return &Universe{defs: map[string]*chir.CustomTypeDef{}} }

func (u *Universe) Register(td *chir.CustomTypeDef) {
	u.defs[td.Package+"."+td.Name] = td
}

func (u *Universe) RegisterAll(defs []*chir.CustomTypeDef) {
	for _, td := range defs {
		u.Register(td)
	}
}

func (u *Universe) lookup(n chir.NominalType) *chir.CustomTypeDef {
	return u.defs[n.Package+"."+n.Name]
}

// instantiate substitutes td's TypeParams with args in iface, assuming
// iface was declared in td's own generic scope.
func instantiate(td *chir.CustomTypeDef, args []chir.Type, iface chir.NominalType) chir.NominalType {
	if len(td.TypeParams) == 0 || len(args) != len(td.TypeParams) {
		return iface
	}
	subst := make(map[string]chir.Type, len(td.TypeParams))
	for i, tp := range td.TypeParams {
		subst[tp.Name] = args[i]
	}
	newArgs := make([]chir.Type, len(iface.Args))
	for i, a := range iface.Args {
		if g, ok := a.(chir.GenericType); ok {
			if r, ok := subst[g.Name]; ok {
				newArgs[i] = r
				continue
			}
		}
		newArgs[i] = a
	}
	return chir.NominalType{Kind: iface.Kind, Package: iface.Package, Name: iface.Name, Args: newArgs}
}

// Promote walks sub's declared supertype list (interfaces + superclass,
// both modeled by CustomTypeDef.Interfaces) breadth-first, instantiating
// each ancestor's type arguments along the way, collecting every
// instantiation that shares target's (Package, Name) — a breadth-first
// collection, not a single nearest-common-ancestor search. Returns the
// first match whose type arguments unify invariantly with target's, or
// nil if sub has no path to target's declaration.
func Promote(u *Universe, sub, target chir.NominalType) *chir.NominalType {
	if sub.Package == target.Package && sub.Name == target.Name {
		return &sub
	}
	type frontierEntry struct{ n chir.NominalType }
	visited := map[string]bool{sub.Package + "." + sub.Name: true}
	frontier := []frontierEntry{{sub}}
	for len(frontier) > 0 {
		var next []frontierEntry
		for _, fe := range frontier {
			td := u.lookup(fe.n)
			if td == nil {
				continue
			}
			for _, iface := range td.Interfaces {
				inst := instantiate(td, fe.n.Args, iface)
				key := inst.Package + "." + inst.Name
				if visited[key] {
					continue
				}
				visited[key] = true
				if inst.Package == target.Package && inst.Name == target.Name {
					if nominalArgsUnifyInvariant(inst.Args, target.Args) {
						return &inst
					}
					continue
				}
				next = append(next, frontierEntry{inst})
			}
		}
		frontier = next
	}
	return nil
}

func nominalArgsUnifyInvariant(a, b []chir.Type) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if !chir.TypesEqual(a[i], b[i]) {
			return false
		}
	}
	return true
}
