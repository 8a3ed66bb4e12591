package passes

import "chir/internal/chir"

// stdNoSideEffectList names the raw mangled std functions whose calls
// downstream passes may treat as pure. Mirrors the original compiler's
// STD_NO_SIDE_EFFECT_LIST: a short, explicit allow-list rather than a
// heuristic, since treating an effectful call as pure would be unsound.
var stdNoSideEffectList = map[string]bool{
	"_CN3std4core6Array6lengthE":    true,
	"_CN3std4core6String6lengthE":   true,
	"_CN3std4core6String5emptyE":    true,
	"_CN3std4core5Range5emptyE":     true,
	"_CN3std4core6Option7isEmptyE":  true,
}

// NoSideEffectMarking marks calls as pure: for every ImportedFunc call
// whose callee package is exactly "std" (not a prefix match) and whose
// mangled name is in the allow-list, marks the call's NoSideEffect
// attribute so UselessExprElimination can drop it when unused.
type NoSideEffectMarking struct{}

func (*NoSideEffectMarking) Name() string { return "NoSideEffectMarking" }
func (*NoSideEffectMarking) Description() string {
	return "marks allow-listed std calls NO_SIDE_EFFECT"
}

func (p *NoSideEffectMarking) Apply(pkg *chir.Package) bool {
	changed := false
	for _, f := range allFuncs(pkg) {
		if f.Body == nil {
			continue
		}
		for _, b := range f.Body.Blocks {
			for _, e := range b.Exprs {
				if markIfAllowed(e) {
					changed = true
				}
			}
		}
	}
	return changed
}

func markIfAllowed(e chir.Expression) bool {
	var callee chir.Value
	switch v := e.(type) {
	case *chir.ApplyExpr:
		callee = v.Callee
	default:
		return false
	}
	imp, ok := callee.(*chir.ImportedFunc)
	if !ok || imp.Package != "std" {
		return false
	}
	if !stdNoSideEffectList[imp.Name] {
		return false
	}
	if e.Attrs().NoSideEffect {
		return false
	}
	e.Attrs().NoSideEffect = true
	return true
}
