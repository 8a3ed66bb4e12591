package constanalysis

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"chir/internal/chir"
	"chir/internal/diag"
	"chir/internal/interp"
	"chir/internal/sint"
)

func buildAddMulFunc() *chir.Func {
	// let a: Int32 = 2; let b: Int32 = 3; return a*b + 4
	entry := &chir.Block{Label: "entry"}
	a := &chir.LocalVar{Name: "a", Ty: chir.IntType{Width: sint.I32}}
	b := &chir.LocalVar{Name: "b", Ty: chir.IntType{Width: sint.I32}}
	mul := &chir.LocalVar{Name: "mul", Ty: chir.IntType{Width: sint.I32}}
	sum := &chir.LocalVar{Name: "sum", Ty: chir.IntType{Width: sint.I32}}

	eA := chir.NewConstant(1, a, chir.Range{}, chir.IntLiteral(sint.FromSigned(sint.I32, 2)))
	eB := chir.NewConstant(2, b, chir.Range{}, chir.IntLiteral(sint.FromSigned(sint.I32, 3)))
	eMul := chir.NewBinaryExpr(3, mul, chir.Range{}, chir.OpMul, a, b, chir.Throwing)
	eSum := chir.NewBinaryExpr(4, sum, chir.Range{}, chir.OpAdd, mul, chir.IntLiteral(sint.FromSigned(sint.I32, 4)), chir.Throwing)
	entry.Exprs = []chir.Expression{eA, eB, eMul, eSum}
	entry.Term = chir.NewExit(5, chir.Range{}, sum)

	body := &chir.BlockGroup{Entry: entry, Blocks: []*chir.Block{entry}}
	body.RebuildEdges()
	return &chir.Func{Name: "f", Ret: chir.IntType{Width: sint.I32}, Body: body}
}

func TestConstantFoldingArithmetic(t *testing.T) {
	f := buildAddMulFunc()
	eng := interp.NewEngine(0)
	a := &Analysis{}
	res := eng.Run(f, a)

	d := res.Blocks[f.Body.Entry]
	require.NotNil(t, d)
	sumExpr := f.Body.Entry.Exprs[3]
	after := d.ExprAfter[sumExpr].(*Domain)
	c, ok := after.Get(sumExpr.Result())
	require.True(t, ok)
	assert.Equal(t, KInt, c.Kind)
	assert.Equal(t, int64(10), c.Int.SVal())
}

func TestOverflowDiagnostic(t *testing.T) {
	// fn h(): Int8 { let a: Int8 = 127; return a + 1 } with throwing strategy
	entry := &chir.Block{Label: "entry"}
	a := &chir.LocalVar{Name: "a", Ty: chir.IntType{Width: sint.I8}}
	sum := &chir.LocalVar{Name: "sum", Ty: chir.IntType{Width: sint.I8}}
	eA := chir.NewConstant(1, a, chir.Range{}, chir.IntLiteral(sint.FromSigned(sint.I8, 127)))
	eSum := chir.NewBinaryExpr(2, sum, chir.Range{}, chir.OpAdd, a, chir.IntLiteral(sint.FromSigned(sint.I8, 1)), chir.Throwing)
	entry.Exprs = []chir.Expression{eA, eSum}
	entry.Term = chir.NewExit(3, chir.Range{}, sum)
	body := &chir.BlockGroup{Entry: entry, Blocks: []*chir.Block{entry}}
	body.RebuildEdges()
	f := &chir.Func{Name: "h", Ret: chir.IntType{Width: sint.I8}, Body: body}

	reporter := diag.NewReporter()
	eng := interp.NewEngine(0)
	a2 := &Analysis{Reporter: reporter, Stable: true}
	eng.Run(f, a2)

	require.Equal(t, 1, reporter.Len())
	d := reporter.Sorted()[0]
	assert.Equal(t, diag.ArithmeticOperatorOverflow, d.Kind)
	assert.Contains(t, d.Notes[0], "-128 ~ 127")
}

func TestArrayOutOfBounds(t *testing.T) {
	entry := &chir.Block{Label: "entry"}
	idx := chir.IntLiteral(sint.FromSigned(sint.I64, 5))
	vArr := &chir.LocalVar{Name: "varr", Ty: chir.VArrayType{Elem: chir.IntType{Width: sint.I64}, Size: 3}}
	get := chir.NewVArrayGetExpr(1, &chir.LocalVar{Name: "v", Ty: chir.IntType{Width: sint.I64}}, chir.Range{}, vArr, idx)
	entry.Exprs = []chir.Expression{get}
	entry.Term = chir.NewExit(2, chir.Range{}, nil)
	body := &chir.BlockGroup{Entry: entry, Blocks: []*chir.Block{entry}}
	body.RebuildEdges()
	f := &chir.Func{Name: "k", Ret: chir.UnitType{}, Body: body}

	reporter := diag.NewReporter()
	eng := interp.NewEngine(0)
	a := &Analysis{Reporter: reporter, Stable: true}
	eng.Run(f, a)

	require.Equal(t, 1, reporter.Len())
	assert.Equal(t, diag.IdxOutOfBounds, reporter.Sorted()[0].Kind)
}

func TestDivByZeroDiagnostic(t *testing.T) {
	entry := &chir.Block{Label: "entry"}
	a := &chir.LocalVar{Name: "a", Ty: chir.IntType{Width: sint.I32}}
	res := &chir.LocalVar{Name: "r", Ty: chir.IntType{Width: sint.I32}}
	eA := chir.NewConstant(1, a, chir.Range{}, chir.IntLiteral(sint.FromSigned(sint.I32, 10)))
	eDiv := chir.NewBinaryExpr(2, res, chir.Range{}, chir.OpDiv, a, chir.IntLiteral(sint.FromSigned(sint.I32, 0)), chir.Throwing)
	entry.Exprs = []chir.Expression{eA, eDiv}
	entry.Term = chir.NewExit(3, chir.Range{}, res)
	body := &chir.BlockGroup{Entry: entry, Blocks: []*chir.Block{entry}}
	body.RebuildEdges()
	f := &chir.Func{Name: "g", Ret: chir.IntType{Width: sint.I32}, Body: body}

	reporter := diag.NewReporter()
	eng := interp.NewEngine(0)
	an := &Analysis{Reporter: reporter, Stable: true}
	eng.Run(f, an)

	require.Equal(t, 1, reporter.Len())
	assert.Equal(t, diag.DivisorIsZero, reporter.Sorted()[0].Kind)
}

func TestUnstablePassSuppressesDiagnostics(t *testing.T) {
	entry := &chir.Block{Label: "entry"}
	a := &chir.LocalVar{Name: "a", Ty: chir.IntType{Width: sint.I8}}
	sum := &chir.LocalVar{Name: "sum", Ty: chir.IntType{Width: sint.I8}}
	eA := chir.NewConstant(1, a, chir.Range{}, chir.IntLiteral(sint.FromSigned(sint.I8, 127)))
	eSum := chir.NewBinaryExpr(2, sum, chir.Range{}, chir.OpAdd, a, chir.IntLiteral(sint.FromSigned(sint.I8, 1)), chir.Throwing)
	entry.Exprs = []chir.Expression{eA, eSum}
	entry.Term = chir.NewExit(3, chir.Range{}, sum)
	body := &chir.BlockGroup{Entry: entry, Blocks: []*chir.Block{entry}}
	body.RebuildEdges()
	f := &chir.Func{Name: "h", Ret: chir.IntType{Width: sint.I8}, Body: body}

	reporter := diag.NewReporter()
	eng := interp.NewEngine(0)
	an := &Analysis{Reporter: reporter, Stable: false}
	eng.Run(f, an)
	assert.Equal(t, 0, reporter.Len())
}

func TestRelationalSelfEquality(t *testing.T) {
	d := NewDomain()
	v := &chir.Parameter{Name: "x", Ty: chir.IntType{Width: sint.I32}}
	e := chir.NewBinaryExpr(1, &chir.LocalVar{Name: "r", Ty: chir.BoolType{}}, chir.Range{}, chir.OpEq, v, v, chir.Throwing)
	a := &Analysis{}
	out := a.TransferExpr(d, e).(*Domain)
	c, ok := out.Get(e.Result())
	require.True(t, ok)
	assert.True(t, c.Bool)
}

func TestWideningTypeCast(t *testing.T) {
	d := NewDomain()
	v := &chir.LocalVar{Name: "v", Ty: chir.IntType{Width: sint.I8}}
	d.set(v, conc(Const{Kind: KInt, Int: sint.FromSigned(sint.I8, -5)}))

	e := chir.NewTypeCastExpr(1, &chir.LocalVar{Name: "r", Ty: chir.IntType{Width: sint.I32}}, chir.Range{}, v, chir.IntType{Width: sint.I32})
	a := &Analysis{}
	require.NotPanics(t, func() {
		out := a.TransferExpr(d, e).(*Domain)
		c, ok := out.Get(e.Result())
		require.True(t, ok)
		assert.Equal(t, KInt, c.Kind)
		assert.Equal(t, int64(-5), c.Int.SVal())
	})
}

func TestWideningUnsignedTypeCast(t *testing.T) {
	d := NewDomain()
	v := &chir.LocalVar{Name: "v", Ty: chir.UIntType{Width: sint.I16}}
	d.set(v, conc(Const{Kind: KUInt, Int: sint.New(sint.I16, 40000)}))

	e := chir.NewTypeCastExpr(1, &chir.LocalVar{Name: "r", Ty: chir.UIntType{Width: sint.I64}}, chir.Range{}, v, chir.UIntType{Width: sint.I64})
	a := &Analysis{}
	out := a.TransferExpr(d, e).(*Domain)
	c, ok := out.Get(e.Result())
	require.True(t, ok)
	assert.Equal(t, KUInt, c.Kind)
	assert.Equal(t, uint64(40000), c.Int.UVal())
}

func TestUnsignedSaturatingOverflow(t *testing.T) {
	// UInt8 200 + 100, saturating strategy, must clamp to the unsigned
	// boundary (255), not the signed one.
	entry := &chir.Block{Label: "entry"}
	a := &chir.LocalVar{Name: "a", Ty: chir.UIntType{Width: sint.I8}}
	sum := &chir.LocalVar{Name: "sum", Ty: chir.UIntType{Width: sint.I8}}
	eA := chir.NewConstant(1, a, chir.Range{}, chir.UIntLiteral(sint.New(sint.I8, 200)))
	eSum := chir.NewBinaryExpr(2, sum, chir.Range{}, chir.OpAdd, a, chir.UIntLiteral(sint.New(sint.I8, 100)), chir.Saturating)
	entry.Exprs = []chir.Expression{eA, eSum}
	entry.Term = chir.NewExit(3, chir.Range{}, sum)
	body := &chir.BlockGroup{Entry: entry, Blocks: []*chir.Block{entry}}
	body.RebuildEdges()
	f := &chir.Func{Name: "satU", Ret: chir.UIntType{Width: sint.I8}, Body: body}

	eng := interp.NewEngine(0)
	an := &Analysis{}
	res := eng.Run(f, an)

	d := res.Blocks[f.Body.Entry]
	require.NotNil(t, d)
	after := d.ExprAfter[eSum].(*Domain)
	c, ok := after.Get(sum)
	require.True(t, ok)
	assert.Equal(t, KUInt, c.Kind)
	assert.Equal(t, uint64(255), c.Int.UVal())
}
