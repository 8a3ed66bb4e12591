package passes

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"chir/internal/chir"
	"chir/internal/diag"
	"chir/internal/sint"
)

func buildFoldableFunc() *chir.Func {
	// fn f(): Int32 { let a = 2; let b = 3; let c = a + b; return c + 0 }
	entry := &chir.Block{Label: "entry"}
	a := &chir.LocalVar{Name: "a", Ty: chir.IntType{Width: sint.I32}}
	b := &chir.LocalVar{Name: "b", Ty: chir.IntType{Width: sint.I32}}
	c := &chir.LocalVar{Name: "c", Ty: chir.IntType{Width: sint.I32}}
	d := &chir.LocalVar{Name: "d", Ty: chir.IntType{Width: sint.I32}}
	eA := chir.NewConstant(1, a, chir.Range{}, chir.IntLiteral(sint.FromSigned(sint.I32, 2)))
	eB := chir.NewConstant(2, b, chir.Range{}, chir.IntLiteral(sint.FromSigned(sint.I32, 3)))
	eC := chir.NewBinaryExpr(3, c, chir.Range{}, chir.OpAdd, a, b, chir.Throwing)
	eD := chir.NewBinaryExpr(4, d, chir.Range{}, chir.OpAdd, c, chir.IntLiteral(sint.FromSigned(sint.I32, 0)), chir.Throwing)
	entry.Exprs = []chir.Expression{eA, eB, eC, eD}
	entry.Term = chir.NewExit(5, chir.Range{}, d)
	body := &chir.BlockGroup{Entry: entry, Blocks: []*chir.Block{entry}}
	body.RebuildEdges()
	return &chir.Func{Name: "f", Ret: chir.IntType{Width: sint.I32}, Body: body}
}

func TestConstRangePropagationFoldsArithmetic(t *testing.T) {
	f := buildFoldableFunc()
	p := NewConstRangePropagation(diag.NewReporter())
	changed := p.Apply(&chir.Package{Funcs: []*chir.Func{f}})
	require.True(t, changed)

	exit := f.Body.Entry.Term.(*chir.Exit)
	ret, ok := exit.Value.(*chir.LocalVar)
	require.True(t, ok, "exit still returns the local d, got %T", exit.Value)
	var folded *chir.Constant
	for _, e := range f.Body.Entry.Exprs {
		if e.Result() == ret {
			folded, _ = e.(*chir.Constant)
		}
	}
	require.NotNil(t, folded, "the expression defining the return value should fold to a Constant")
	assert.Equal(t, int64(5), folded.Value.Int.SVal())
}

func buildUnreachableBlockFunc() *chir.Func {
	live := &chir.Block{Label: "live"}
	dead := &chir.Block{Label: "dead"}
	live.Term = chir.NewExit(1, chir.Range{}, nil)
	dead.Term = chir.NewExit(2, chir.Range{}, nil)
	body := &chir.BlockGroup{Entry: live, Blocks: []*chir.Block{live, dead}}
	return &chir.Func{Name: "g", Ret: chir.UnitType{}, Body: body}
}

func TestUnreachableBlockEliminationDropsOrphans(t *testing.T) {
	f := buildUnreachableBlockFunc()
	pass := &UnreachableBlockElimination{}
	changed := pass.Apply(&chir.Package{Funcs: []*chir.Func{f}})
	require.True(t, changed)
	require.Len(t, f.Body.Blocks, 1)
	assert.Equal(t, "live", f.Body.Blocks[0].Label)
}

func buildUselessExprFunc() *chir.Func {
	entry := &chir.Block{Label: "entry"}
	unused := &chir.LocalVar{Name: "unused", Ty: chir.IntType{Width: sint.I32}}
	used := &chir.LocalVar{Name: "used", Ty: chir.IntType{Width: sint.I32}}
	eUnused := chir.NewConstant(1, unused, chir.Range{}, chir.IntLiteral(sint.FromSigned(sint.I32, 1)))
	eUsed := chir.NewConstant(2, used, chir.Range{}, chir.IntLiteral(sint.FromSigned(sint.I32, 2)))
	entry.Exprs = []chir.Expression{eUnused, eUsed}
	entry.Term = chir.NewExit(3, chir.Range{}, used)
	body := &chir.BlockGroup{Entry: entry, Blocks: []*chir.Block{entry}}
	body.RebuildEdges()
	return &chir.Func{Name: "h", Ret: chir.IntType{Width: sint.I32}, Body: body}
}

func TestUselessExprEliminationDropsUnusedPureExpr(t *testing.T) {
	f := buildUselessExprFunc()
	pass := &UselessExprElimination{}
	changed := pass.Apply(&chir.Package{Funcs: []*chir.Func{f}})
	require.True(t, changed)
	require.Len(t, f.Body.Entry.Exprs, 1)
	assert.Equal(t, "used", f.Body.Entry.Exprs[0].Result().Name)
}

func TestNothingTypeExprEliminationCutsAfterDiverge(t *testing.T) {
	entry := &chir.Block{Label: "entry"}
	diverging := &chir.LocalVar{Name: "d", Ty: chir.NothingType{}}
	after := &chir.LocalVar{Name: "a", Ty: chir.IntType{Width: sint.I32}}
	eDiverge := chir.NewApplyExpr(1, diverging, chir.Range{}, nil, nil)
	eAfter := chir.NewConstant(2, after, chir.Range{}, chir.IntLiteral(sint.FromSigned(sint.I32, 1)))
	entry.Exprs = []chir.Expression{eDiverge, eAfter}
	entry.Term = chir.NewExit(3, chir.Range{}, nil)
	body := &chir.BlockGroup{Entry: entry, Blocks: []*chir.Block{entry}}
	body.RebuildEdges()
	f := &chir.Func{Name: "k", Ret: chir.UnitType{}, Body: body}

	pass := &NothingTypeExprElimination{}
	changed := pass.Apply(&chir.Package{Funcs: []*chir.Func{f}})
	require.True(t, changed)
	require.Len(t, f.Body.Entry.Exprs, 1)
	assert.Equal(t, eDiverge, f.Body.Entry.Exprs[0])
}

func TestUselessFuncEliminationDropsUncalledPrivateFunc(t *testing.T) {
	called := &chir.Func{Name: "called", Ret: chir.UnitType{}, Body: &chir.BlockGroup{}}
	uncalled := &chir.Func{Name: "uncalled", Ret: chir.UnitType{}, Body: &chir.BlockGroup{}}

	entry := &chir.Block{Label: "entry"}
	result := &chir.LocalVar{Name: "r", Ty: chir.UnitType{}}
	call := chir.NewApplyExpr(1, result, chir.Range{}, &chir.FuncValue{Func: called}, nil)
	entry.Exprs = []chir.Expression{call}
	entry.Term = chir.NewExit(2, chir.Range{}, nil)
	caller := &chir.Func{Name: "caller", Ret: chir.UnitType{}, Body: &chir.BlockGroup{Entry: entry, Blocks: []*chir.Block{entry}}}
	caller.Body.RebuildEdges()
	caller.SetAttr(chir.AttrExported, true) // exported, so kept without a caller

	pkg := &chir.Package{Funcs: []*chir.Func{caller, called, uncalled}}
	pass := &UselessFuncElimination{}
	changed := pass.Apply(pkg)
	require.True(t, changed)

	names := map[string]bool{}
	for _, f := range pkg.Funcs {
		names[f.Name] = true
	}
	assert.True(t, names["caller"])
	assert.True(t, names["called"])
	assert.False(t, names["uncalled"])
}

func TestNoSideEffectMarkingMarksAllowlistedStdCall(t *testing.T) {
	entry := &chir.Block{Label: "entry"}
	result := &chir.LocalVar{Name: "n", Ty: chir.IntType{Width: sint.I64}}
	callee := &chir.ImportedFunc{Name: "_CN3std4core6Array6lengthE", Package: "std"}
	call := chir.NewApplyExpr(1, result, chir.Range{}, callee, nil)
	entry.Exprs = []chir.Expression{call}
	entry.Term = chir.NewExit(2, chir.Range{}, nil)
	body := &chir.BlockGroup{Entry: entry, Blocks: []*chir.Block{entry}}
	body.RebuildEdges()
	f := &chir.Func{Name: "f", Ret: chir.UnitType{}, Body: body}

	pass := &NoSideEffectMarking{}
	changed := pass.Apply(&chir.Package{Funcs: []*chir.Func{f}})
	require.True(t, changed)
	assert.True(t, call.Attrs().NoSideEffect)
}

func TestNoSideEffectMarkingIgnoresNonStdPackage(t *testing.T) {
	entry := &chir.Block{Label: "entry"}
	result := &chir.LocalVar{Name: "n", Ty: chir.IntType{Width: sint.I64}}
	callee := &chir.ImportedFunc{Name: "_CN3std4core6Array6lengthE", Package: "stdlike"}
	call := chir.NewApplyExpr(1, result, chir.Range{}, callee, nil)
	entry.Exprs = []chir.Expression{call}
	entry.Term = chir.NewExit(2, chir.Range{}, nil)
	body := &chir.BlockGroup{Entry: entry, Blocks: []*chir.Block{entry}}
	body.RebuildEdges()
	f := &chir.Func{Name: "f", Ret: chir.UnitType{}, Body: body}

	pass := &NoSideEffectMarking{}
	changed := pass.Apply(&chir.Package{Funcs: []*chir.Func{f}})
	assert.False(t, changed)
	assert.False(t, call.Attrs().NoSideEffect)
}

func TestUnusedImportPruningDropsUnreferencedImport(t *testing.T) {
	usedImport := &chir.ImportedFunc{Name: "used", Package: "foo"}
	unusedImport := &chir.ImportedFunc{Name: "unused", Package: "foo"}

	entry := &chir.Block{Label: "entry"}
	result := &chir.LocalVar{Name: "r", Ty: chir.UnitType{}}
	call := chir.NewApplyExpr(1, result, chir.Range{}, usedImport, nil)
	entry.Exprs = []chir.Expression{call}
	entry.Term = chir.NewExit(2, chir.Range{}, nil)
	body := &chir.BlockGroup{Entry: entry, Blocks: []*chir.Block{entry}}
	body.RebuildEdges()
	f := &chir.Func{Name: "f", Ret: chir.UnitType{}, Body: body}

	pkg := &chir.Package{
		Funcs:         []*chir.Func{f},
		ImportedFuncs: []*chir.ImportedFunc{usedImport, unusedImport},
	}

	pass := &UnusedImportPruning{}
	changed := pass.Apply(pkg)
	require.True(t, changed)
	require.Len(t, pkg.ImportedFuncs, 1)
	assert.Equal(t, "used", pkg.ImportedFuncs[0].Name)
}

func TestUnusedImportPruningKeepsVirtualFuncsAndReachableTypes(t *testing.T) {
	iface := chir.NominalType{Kind: chir.KindClass, Package: "foo", Name: "Iface"}
	td := &chir.CustomTypeDef{Kind: chir.DefClass, Name: "Impl", Package: "foo", Interfaces: []chir.NominalType{iface}}

	entry := &chir.Block{Label: "entry"}
	result := &chir.LocalVar{Name: "r", Ty: chir.UnitType{}}
	use := chir.NewTypeCastExpr(1, result, chir.Range{}, nil, iface)
	entry.Exprs = []chir.Expression{use}
	entry.Term = chir.NewExit(2, chir.Range{}, nil)
	body := &chir.BlockGroup{Entry: entry, Blocks: []*chir.Block{entry}}
	body.RebuildEdges()
	f := &chir.Func{Name: "f", Ret: chir.UnitType{}, Body: body}

	virtualFn := &chir.ImportedFunc{Name: "vm", Package: "foo", IsVirtual: true}
	pkg := &chir.Package{
		Funcs:         []*chir.Func{f},
		ImportedTypes: []*chir.CustomTypeDef{td},
		ImportedFuncs: []*chir.ImportedFunc{virtualFn},
	}

	pass := &UnusedImportPruning{}
	pass.Apply(pkg)
	require.Len(t, pkg.ImportedTypes, 1, "type referenced from a TypeCastExpr operand type must survive")
	require.Len(t, pkg.ImportedFuncs, 1, "unreferenced virtual funcs survive pass 1 unconditionally")
}

func TestSanCovConfigValidateRejectsPCTableWithoutCounter(t *testing.T) {
	cfg := &SanCovConfig{PCTable: true}
	diags := cfg.Validate()
	require.Len(t, diags, 1)
	assert.Equal(t, diag.ChirSancovIllegalUsageOfPcTable, diags[0].Kind)
}

func TestSanCovConfigValidateRejectsCounterWithoutLevel(t *testing.T) {
	cfg := &SanCovConfig{TracePCGuard: true, CoverageType: CoverageNone}
	diags := cfg.Validate()
	require.Len(t, diags, 1)
	assert.Equal(t, diag.ChirSancovIllegalUsageOfLevel, diags[0].Kind)
}

func TestSanCovConfigValidateAcceptsWellFormedConfig(t *testing.T) {
	cfg := &SanCovConfig{TracePCGuard: true, CoverageType: CoverageFunction}
	assert.Empty(t, cfg.Validate())
}

func TestSanitizerCoverageInsertsPCGuardPerBlock(t *testing.T) {
	entry := &chir.Block{Label: "entry"}
	entry.Term = chir.NewExit(1, chir.Range{}, nil)
	body := &chir.BlockGroup{Entry: entry, Blocks: []*chir.Block{entry}}
	body.RebuildEdges()
	f := &chir.Func{Name: "f", Package: "pkg", Ret: chir.UnitType{}, Body: body}
	pkg := &chir.Package{Name: "pkg", Funcs: []*chir.Func{f}}

	cfg := &SanCovConfig{TracePCGuard: true, CoverageType: CoverageFunction}
	pass := NewSanitizerCoverage(cfg, diag.NewReporter())
	changed := pass.Apply(pkg)
	require.True(t, changed)
	require.NotEmpty(t, f.Body.Entry.Exprs)

	call, ok := f.Body.Entry.Exprs[0].(*chir.ApplyExpr)
	require.True(t, ok)
	hook, ok := call.Callee.(*chir.ImportedFunc)
	require.True(t, ok)
	assert.Equal(t, "__sanitizer_cov_trace_pc_guard", hook.Name)

	found := false
	for _, initFn := range pkg.Funcs {
		if initFn.Name == "__sancov_init_pkg" {
			found = true
		}
	}
	assert.True(t, found, "expected a synthesized package initializer")
}
