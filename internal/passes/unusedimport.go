package passes

import "chir/internal/chir"

// UnusedImportPruning computes the closure of reachable
// imported declarations, then drop everything outside it in three passes
// (imported values, then customTypeDefs, then orphaned virtual imported
// functions whose owning customTypeDef didn't survive pass two).
type UnusedImportPruning struct{}

func (*UnusedImportPruning) Name() string { return "UnusedImportPruning" }
func (*UnusedImportPruning) Description() string {
	return "drops imported declarations unreachable from the package's own code"
}

func (p *UnusedImportPruning) Apply(pkg *chir.Package) bool {
	reached := p.reachableImports(pkg)
	changed := false

	// Pass 1: drop unreferenced ImportedVar/ImportedFunc, except virtual
	// imported functions (kept provisionally; pass 3 revisits them once
	// pass 2 has settled which customTypeDefs survive).
	keptVars := pkg.ImportedVars[:0:0]
	for _, v := range pkg.ImportedVars {
		if reached.vars[v] {
			keptVars = append(keptVars, v)
		} else {
			changed = true
		}
	}
	pkg.ImportedVars = keptVars

	keptFuncs := pkg.ImportedFuncs[:0:0]
	for _, f := range pkg.ImportedFuncs {
		if reached.funcs[f] || f.IsVirtual {
			keptFuncs = append(keptFuncs, f)
		} else {
			changed = true
		}
	}
	pkg.ImportedFuncs = keptFuncs

	// Pass 2: drop unreachable imported customTypeDefs; keep only
	// reachable imports within the survivors.
	keptTypes := pkg.ImportedTypes[:0:0]
	survivingDefs := map[*chir.CustomTypeDef]bool{}
	for _, td := range pkg.ImportedTypes {
		if reached.types[td] {
			keptTypes = append(keptTypes, td)
			survivingDefs[td] = true
		} else {
			changed = true
		}
	}
	pkg.ImportedTypes = keptTypes

	// Pass 3: drop imported virtual functions whose parent customTypeDef
	// didn't survive pass two.
	keptFuncs2 := pkg.ImportedFuncs[:0:0]
	for _, f := range pkg.ImportedFuncs {
		if !f.IsVirtual {
			keptFuncs2 = append(keptFuncs2, f)
			continue
		}
		if reached.virtualOwner[f] == nil || survivingDefs[reached.virtualOwner[f]] {
			keptFuncs2 = append(keptFuncs2, f)
		} else {
			changed = true
		}
	}
	pkg.ImportedFuncs = keptFuncs2

	return changed
}

type reachSets struct {
	vars         map[*chir.ImportedVar]bool
	funcs        map[*chir.ImportedFunc]bool
	types        map[*chir.CustomTypeDef]bool
	virtualOwner map[*chir.ImportedFunc]*chir.CustomTypeDef
}

// reachableImports computes the closure starting from: implicit funcs
// (the package init), every source-package declaration (all Funcs,
// Classes/Structs/Enums/Extends and their methods/fields/vtables), and
// any imported declaration already referenced from there. Traversal
// follows types, supertypes, vtable entries, methods, fields, and
// expression operands.
func (p *UnusedImportPruning) reachableImports(pkg *chir.Package) reachSets {
	r := reachSets{
		vars:         map[*chir.ImportedVar]bool{},
		funcs:        map[*chir.ImportedFunc]bool{},
		types:        map[*chir.CustomTypeDef]bool{},
		virtualOwner: map[*chir.ImportedFunc]*chir.CustomTypeDef{},
	}

	ownerOf := map[*chir.Func]*chir.CustomTypeDef{}
	for _, td := range pkg.AllCustomTypeDefs() {
		for _, m := range td.Methods {
			ownerOf[m] = td
		}
		for _, impls := range td.Vtable {
			for _, vi := range impls {
				if vi.Impl != nil {
					if owner, ok := ownerOf[vi.Impl]; ok {
						_ = owner
					}
				}
			}
		}
	}

	visitValue := func(v chir.Value) {
		switch vv := v.(type) {
		case *chir.ImportedVar:
			r.vars[vv] = true
		case *chir.ImportedFunc:
			r.funcs[vv] = true
		}
	}
	visitType := func(t chir.Type) {
		if nt, ok := t.(chir.NominalType); ok {
			for _, td := range pkg.ImportedTypes {
				if td.Name == nt.Name && td.Package == nt.Package {
					r.types[td] = true
				}
			}
		}
	}

	walkFunc := func(f *chir.Func) {
		if f == nil || f.Body == nil {
			return
		}
		for _, b := range f.Body.Blocks {
			for _, e := range b.Exprs {
				for _, op := range e.Operands() {
					visitValue(op)
				}
				if res := e.Result(); res != nil {
					visitType(res.Ty)
				}
			}
			if b.Term != nil {
				for _, op := range b.Term.Operands() {
					visitValue(op)
				}
			}
		}
	}

	if pkg.InitFunc != nil {
		walkFunc(pkg.InitFunc)
	}
	for _, f := range pkg.Funcs {
		walkFunc(f)
	}
	for _, td := range pkg.AllCustomTypeDefs() {
		for _, iface := range td.Interfaces {
			visitType(iface)
		}
		for _, fi := range td.Fields {
			visitType(fi.Ty)
		}
		for _, m := range td.Methods {
			walkFunc(m)
		}
		for _, impls := range td.Vtable {
			for _, vi := range impls {
				walkFunc(vi.Impl)
			}
		}
	}

	// Imported functions already marked reachable may themselves be
	// virtual methods of an imported customTypeDef; record ownership so
	// pass 3 can check it after pass 2 prunes types.
	for _, td := range pkg.ImportedTypes {
		for _, impls := range td.Vtable {
			for _, vi := range impls {
				if vi.Impl == nil {
					continue
				}
				for _, f := range pkg.ImportedFuncs {
					if f.IsVirtual && f.Name == vi.Impl.Name && f.Package == td.Package {
						r.virtualOwner[f] = td
					}
				}
			}
		}
	}

	return r
}
