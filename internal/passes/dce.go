package passes

import (
	"fmt"

	"chir/internal/chir"
	"chir/internal/constanalysis"
	"chir/internal/diag"
	"chir/internal/interp"
)

// isPure reports whether e can be dropped outright when its Result has no
// uses. Calls/invokes only qualify once NoSideEffectMarking has set their
// NoSideEffect attribute; everything that writes through a reference
// (FieldStore, VArraySet, Allocate) never qualifies.
func isPure(e chir.Expression) bool {
	switch v := e.(type) {
	case *chir.Constant, *chir.UnaryExpr, *chir.BinaryExpr, *chir.TypeCastExpr,
		*chir.RangeCtorExpr, *chir.FieldLoadExpr, *chir.VArrayGetExpr:
		return true
	case *chir.ApplyExpr:
		return v.Attrs().NoSideEffect
	case *chir.InvokeExpr:
		return v.Attrs().NoSideEffect
	default:
		return false
	}
}

// markUses walks every Expression/Terminator operand in f's reachable
// blocks and marks the LocalVars they reference as used.
func markUses(f *chir.Func) map[*chir.LocalVar]bool {
	used := map[*chir.LocalVar]bool{}
	if f.Body == nil {
		return used
	}
	mark := func(v chir.Value) {
		if lv, ok := v.(*chir.LocalVar); ok {
			used[lv] = true
		}
	}
	for _, b := range f.Body.Blocks {
		for _, e := range b.Exprs {
			for _, op := range e.Operands() {
				mark(op)
			}
		}
		if b.Term != nil {
			for _, op := range b.Term.Operands() {
				mark(op)
			}
		}
	}
	return used
}

// UnreachableBlockElimination drops blocks not reachable from the entry
// of their owning BlockGroup and updates predecessor/successor edges.
type UnreachableBlockElimination struct{}

func (*UnreachableBlockElimination) Name() string { return "UnreachableBlockElimination" }
func (*UnreachableBlockElimination) Description() string {
	return "removes blocks unreachable from the entry of their BlockGroup"
}

func (p *UnreachableBlockElimination) Apply(pkg *chir.Package) bool {
	changed := false
	for _, f := range allFuncs(pkg) {
		if f.Body == nil || f.Body.Entry == nil {
			continue
		}
		reach := f.Body.ReachableFrom(f.Body.Entry)
		kept := f.Body.Blocks[:0:0]
		for _, b := range f.Body.Blocks {
			if reach[b] {
				kept = append(kept, b)
			} else {
				changed = true
			}
		}
		if changed {
			f.Body.Blocks = kept
			f.Body.RebuildEdges()
		}
	}
	return changed
}

// UnreachableBranchWarning flags source-visible Branches whose guard is
// provably true/false per constant analysis. Generated for-loop internals
// opt out by setting Attrs().SkipDCEWarning on the Branch terminator.
type UnreachableBranchWarning struct {
	Reporter *diag.Reporter
}

func (*UnreachableBranchWarning) Name() string { return "UnreachableBranchWarning" }
func (*UnreachableBranchWarning) Description() string {
	return "warns on branches whose guard constant analysis proved true or false"
}

func (p *UnreachableBranchWarning) Apply(pkg *chir.Package) bool {
	eng := interp.NewEngine(0)
	for _, f := range allFuncs(pkg) {
		if f.Body == nil {
			continue
		}
		ca := &constanalysis.Analysis{Stable: true}
		res := eng.Run(f, ca)
		for _, b := range f.Body.Blocks {
			br, ok := b.Term.(*chir.Branch)
			if !ok || br.Attrs().SkipDCEWarning {
				continue
			}
			bs := res.Blocks[b]
			if bs == nil || bs.TermBefore == nil {
				continue
			}
			d, ok := bs.TermBefore.(*constanalysis.Domain)
			if !ok {
				continue
			}
			c, ok := d.Get(br.Cond)
			if !ok || c.Kind != constanalysis.KBool {
				continue
			}
			if p.Reporter != nil {
				p.Reporter.Report(diag.New(diag.UnreachablePattern, br.SrcRange(),
					fmt.Sprintf("branch condition is always %v", c.Bool)))
			}
		}
	}
	return false
}

// UselessExprElimination removes pure expressions whose Result has no
// uses, iterating until no more are eligible (removing one can expose its
// operand's definition as newly unused).
type UselessExprElimination struct{}

func (*UselessExprElimination) Name() string { return "UselessExprElimination" }
func (*UselessExprElimination) Description() string {
	return "removes pure expressions whose result is never used"
}

func (p *UselessExprElimination) Apply(pkg *chir.Package) bool {
	changed := false
	for _, f := range allFuncs(pkg) {
		if f.Body == nil {
			continue
		}
		for {
			used := markUses(f)
			removedAny := false
			for _, b := range f.Body.Blocks {
				kept := b.Exprs[:0:0]
				for _, e := range b.Exprs {
					if e.Result() != nil && !used[e.Result()] && isPure(e) {
						removedAny = true
						changed = true
						continue
					}
					kept = append(kept, e)
				}
				b.Exprs = kept
			}
			if !removedAny {
				break
			}
		}
	}
	return changed
}

// NothingTypeExprElimination drops expressions that follow a
// diverging expression (one whose Result type is Nothing) within the
// same block: control never reaches them.
type NothingTypeExprElimination struct{}

func (*NothingTypeExprElimination) Name() string { return "NothingTypeExprElimination" }
func (*NothingTypeExprElimination) Description() string {
	return "drops expressions unreachable after a diverging call"
}

func (p *NothingTypeExprElimination) Apply(pkg *chir.Package) bool {
	changed := false
	for _, f := range allFuncs(pkg) {
		if f.Body == nil {
			continue
		}
		for _, b := range f.Body.Blocks {
			cut := -1
			for i, e := range b.Exprs {
				if res := e.Result(); res != nil {
					if _, isNothing := res.Ty.(chir.NothingType); isNothing {
						cut = i
						break
					}
				}
			}
			if cut >= 0 && cut < len(b.Exprs)-1 {
				b.Exprs = b.Exprs[:cut+1]
				changed = true
			}
		}
	}
	return changed
}

// UselessFuncElimination removes non-READONLY, non-exported, non-virtual
// functions with no callers, after other DCE rounds have settled.
type UselessFuncElimination struct{}

func (*UselessFuncElimination) Name() string { return "UselessFuncElimination" }
func (*UselessFuncElimination) Description() string {
	return "removes unreferenced, non-exported, non-virtual, non-readonly functions"
}

func (p *UselessFuncElimination) Apply(pkg *chir.Package) bool {
	called := map[*chir.Func]bool{}
	markCallee := func(v chir.Value) {
		if fv, ok := v.(*chir.FuncValue); ok {
			called[fv.Func] = true
		}
	}
	for _, f := range allFuncs(pkg) {
		if f.Body == nil {
			continue
		}
		for _, b := range f.Body.Blocks {
			for _, e := range b.Exprs {
				for _, op := range e.Operands() {
					markCallee(op)
				}
			}
			if b.Term != nil {
				for _, op := range b.Term.Operands() {
					markCallee(op)
				}
			}
		}
	}
	if pkg.InitFunc != nil {
		called[pkg.InitFunc] = true
	}

	changed := false
	kept := pkg.Funcs[:0:0]
	for _, f := range pkg.Funcs {
		eligible := !f.HasAttr(chir.AttrReadOnly) && !f.HasAttr(chir.AttrExported) && !f.HasAttr(chir.AttrVirtual)
		if eligible && !called[f] {
			changed = true
			continue
		}
		kept = append(kept, f)
	}
	pkg.Funcs = kept
	return changed
}

// ReportUnusedCode emits unused_variable/unused_parameter warnings for
// locals, parameters, and expressions whose result is syntactically
// discarded (never read, and not opted out via SkipDCEWarning).
type ReportUnusedCode struct {
	Reporter *diag.Reporter
}

func (*ReportUnusedCode) Name() string { return "ReportUnusedCode" }
func (*ReportUnusedCode) Description() string {
	return "warns about unused locals, parameters, and discarded expression results"
}

func (p *ReportUnusedCode) Apply(pkg *chir.Package) bool {
	if p.Reporter == nil {
		return false
	}
	for _, f := range allFuncs(pkg) {
		if f.Body == nil {
			continue
		}
		used := markUses(f)
		paramUsedByName := map[string]bool{}
		for lv := range used {
			paramUsedByName[lv.Name] = true
		}
		for _, param := range f.Params {
			if !paramUsedByName[param.Name] {
				p.Reporter.Report(diag.New(diag.UnusedParameter, chir.Range{},
					fmt.Sprintf("parameter %q is never used", param.Name)))
			}
		}
		for _, b := range f.Body.Blocks {
			for _, e := range b.Exprs {
				res := e.Result()
				if res == nil || used[res] || e.Attrs().SkipDCEWarning {
					continue
				}
				p.Reporter.Report(diag.New(diag.UnusedVariable, e.SrcRange(),
					fmt.Sprintf("result of this expression is never used")))
			}
		}
	}
	return false
}

// allFuncs returns every Func in pkg: package-level functions plus every
// CustomTypeDef's methods.
func allFuncs(pkg *chir.Package) []*chir.Func {
	out := append([]*chir.Func(nil), pkg.Funcs...)
	for _, td := range pkg.AllCustomTypeDefs() {
		out = append(out, td.Methods...)
	}
	return out
}
