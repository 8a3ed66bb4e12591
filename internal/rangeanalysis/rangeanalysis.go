package rangeanalysis

import (
	"fmt"

	"chir/internal/booldomain"
	"chir/internal/chir"
	"chir/internal/crange"
	"chir/internal/diag"
	"chir/internal/interp"
	"chir/internal/sint"
)

// abs is one SSA name's abstract value: either a BoolDomain (conditions)
// or an SIntDomain (integers).
type abs struct {
	isBool bool
	b      booldomain.Domain
	i      SIntDomain
}

func absBool(b booldomain.Domain) abs { return abs{isBool: true, b: b} }
func absInt(i SIntDomain) abs         { return abs{i: i} }

func (a abs) join(o abs) abs {
	if a.isBool != o.isBool {
		return a
	}
	if a.isBool {
		return absBool(a.b.Join(o.b))
	}
	return absInt(a.i.Join(o.i))
}

func (a abs) equals(o abs) bool {
	if a.isBool != o.isBool {
		return false
	}
	if a.isBool {
		return a.b.Equals(o.b)
	}
	return a.i.Equals(o.i)
}

// Domain is range analysis's per-function state: an abs per SSA name.
type Domain struct {
	vals map[chir.Value]abs
}

func NewDomain() *Domain { return &Domain{vals: map[chir.Value]abs{}} }

func (d *Domain) Bottom() interp.Domain { return NewDomain() }
func (d *Domain) Top() interp.Domain    { return NewDomain() }

func (d *Domain) Copy() interp.Domain {
	out := NewDomain()
	for k, v := range d.vals {
		out.vals[k] = v
	}
	return out
}

func (d *Domain) Join(other interp.Domain) interp.Domain {
	o := other.(*Domain)
	out := NewDomain()
	for k, v := range d.vals {
		out.vals[k] = v
	}
	for k, v := range o.vals {
		if existing, ok := out.vals[k]; ok {
			out.vals[k] = existing.join(v)
		} else {
			out.vals[k] = v
		}
	}
	return out
}

func (d *Domain) Equals(other interp.Domain) bool {
	o := other.(*Domain)
	if len(d.vals) != len(o.vals) {
		return false
	}
	for k, v := range d.vals {
		ov, ok := o.vals[k]
		if !ok || !v.equals(ov) {
			return false
		}
	}
	return true
}

func (d *Domain) setInt(v chir.Value, i SIntDomain) {
	if v != nil {
		d.vals[v] = absInt(i)
	}
}

func (d *Domain) setBool(v chir.Value, b booldomain.Domain) {
	if v != nil {
		d.vals[v] = absBool(b)
	}
}

// GetInt returns v's numeric range, synthesizing a singleton for literal
// operands and a full range for anything untracked.
func (d *Domain) GetInt(v chir.Value) SIntDomain {
	if lit, ok := v.(*chir.LiteralValue); ok {
		if _, signed, ok := chir.IsIntegerType(lit.Ty); ok {
			return SIntDomain{Numeric: crange.Single(lit.Int), IsUnsigned: !signed}
		}
	}
	if a, ok := d.vals[v]; ok && !a.isBool {
		return a.i
	}
	if w, signed, ok := chir.IsIntegerType(v.Type()); ok {
		return TopSInt(w, !signed)
	}
	return SIntDomain{}
}

func (d *Domain) GetBool(v chir.Value) booldomain.Domain {
	if lit, ok := v.(*chir.LiteralValue); ok && lit.Kind == chir.LitBool {
		return booldomain.FromBool(lit.Bool)
	}
	if a, ok := d.vals[v]; ok && a.isBool {
		return a.b
	}
	return booldomain.Of(booldomain.Top)
}

// Analysis implements interp.Analysis for range analysis.
type Analysis struct {
	Reporter *diag.Reporter
	Stable   bool
}

func (a *Analysis) InitialState(f *chir.Func) interp.Domain {
	d := NewDomain()
	for _, p := range f.Params {
		if w, signed, ok := chir.IsIntegerType(p.Ty); ok {
			d.setInt(p, TopSInt(w, !signed))
		}
	}
	return d
}

func (a *Analysis) TransferExpr(state interp.Domain, expr chir.Expression) interp.Domain {
	d := state.(*Domain).Copy().(*Domain)
	res := expr.Result()

	switch e := expr.(type) {
	case *chir.Constant:
		a.transferConstant(d, e, res)
	case *chir.BinaryExpr:
		a.transferBinary(d, e, res)
	case *chir.UnaryExpr:
		a.transferUnary(d, e, res)
	case *chir.TypeCastExpr:
		a.transferCast(d, e, res)
	case *chir.VArrayGetExpr:
		a.checkBound(d, e.Base.Type(), e.Index, expr)
	case *chir.VArraySetExpr:
		a.checkBound(d, e.Base.Type(), e.Index, expr)
	}
	return d
}

func (a *Analysis) transferConstant(d *Domain, e *chir.Constant, res *chir.LocalVar) {
	if res == nil {
		return
	}
	if e.Value.Kind == chir.LitBool {
		d.setBool(res, booldomain.FromBool(e.Value.Bool))
		return
	}
	if _, signed, ok := chir.IsIntegerType(e.Value.Ty); ok {
		d.setInt(res, SIntDomain{Numeric: crange.Single(e.Value.Int), IsUnsigned: !signed})
	}
}

func (a *Analysis) checkBound(d *Domain, baseTy chir.Type, idx chir.Value, expr chir.Expression) {
	va, ok := baseTy.(chir.VArrayType)
	if !ok {
		return
	}
	idxRange := d.GetInt(idx)
	sizeW := idxRange.Numeric.Width()
	bounds := crange.NonEmpty(sint.Zero(sizeW), sint.New(sizeW, uint64(va.Size)))
	if bounds.Intersect(idxRange.Numeric, crange.Unsigned).IsEmptySet() {
		a.report(diag.IdxOutOfBounds, expr.SrcRange(),
			fmt.Sprintf("index %s is out of bounds", idxRange.Numeric),
			fmt.Sprintf("idx range is %s, size is %d", idxRange.Numeric, va.Size))
		return
	}
	if isSubsetOf(idxRange.Numeric, bounds) {
		expr.Attrs().NeedCheckArrayBound = false
	}
}

func isSubsetOf(a, b crange.Range) bool {
	return a.Intersect(b, crange.Unsigned) == a
}

func (a *Analysis) report(k diag.Kind, rng chir.Range, msg string, notes ...string) {
	if !a.Stable || a.Reporter == nil {
		return
	}
	a.Reporter.Report(diag.New(k, rng, msg, notes...))
}

func (a *Analysis) transferUnary(d *Domain, e *chir.UnaryExpr, res *chir.LocalVar) {
	if res == nil {
		return
	}
	switch e.Op {
	case chir.OpNot:
		d.setBool(res, d.GetBool(e.Operand).Not())
	case chir.OpNeg:
		r := d.GetInt(e.Operand)
		d.setInt(res, SIntDomain{Numeric: r.Numeric.Negate(), IsUnsigned: r.IsUnsigned})
	case chir.OpBitNot:
		r := d.GetInt(e.Operand)
		if single, ok := r.Numeric.GetSingleElement(); ok {
			d.setInt(res, SIntDomain{Numeric: crange.Single(single.BitNot()), IsUnsigned: r.IsUnsigned})
			return
		}
		d.setInt(res, TopSInt(r.Numeric.Width(), r.IsUnsigned))
	}
}

func (a *Analysis) transferBinary(d *Domain, e *chir.BinaryExpr, res *chir.LocalVar) {
	if res == nil {
		return
	}
	switch e.Op {
	case chir.OpAnd:
		d.setBool(res, d.GetBool(e.Left).LogicalAnd(d.GetBool(e.Right)))
		return
	case chir.OpOr:
		d.setBool(res, d.GetBool(e.Left).LogicalOr(d.GetBool(e.Right)))
		return
	case chir.OpBitAnd:
		d.setBool(res, d.GetBool(e.Left).And(d.GetBool(e.Right)))
		return
	case chir.OpBitOr:
		d.setBool(res, d.GetBool(e.Left).Or(d.GetBool(e.Right)))
		return
	case chir.OpLt, chir.OpLe, chir.OpGt, chir.OpGe, chir.OpEq, chir.OpNe:
		d.setBool(res, a.relational(d, e))
		return
	}

	if _, _, ok := chir.IsIntegerType(e.Left.Type()); !ok {
		return
	}
	l, r := d.GetInt(e.Left), d.GetInt(e.Right)

	if ls, ok := l.Numeric.GetSingleElement(); ok {
		if rs, ok := r.Numeric.GetSingleElement(); ok {
			d.setInt(res, SIntDomain{Numeric: scalarOp(e.Op, ls, rs, l.IsUnsigned), IsUnsigned: l.IsUnsigned})
			return
		}
	}

	var result crange.Range
	switch e.Op {
	case chir.OpAdd:
		result = l.Numeric.Add(r.Numeric)
	case chir.OpSub:
		result = l.Numeric.Sub(r.Numeric)
	case chir.OpMul:
		if l.IsUnsigned {
			result = l.Numeric.UMul(r.Numeric)
		} else {
			result = l.Numeric.SMul(r.Numeric)
		}
	case chir.OpDiv:
		if l.IsUnsigned {
			result = l.Numeric.UDiv(r.Numeric)
		} else {
			result = l.Numeric.SDiv(r.Numeric)
		}
	case chir.OpMod:
		if l.IsUnsigned {
			result = l.Numeric.URem(r.Numeric)
		} else {
			result = l.Numeric.SRem(r.Numeric)
		}
	default:
		result = crange.Full(l.Numeric.Width())
	}
	d.setInt(res, SIntDomain{Numeric: result, IsUnsigned: l.IsUnsigned})
}

func scalarOp(op chir.BinaryOp, l, r sint.SInt, unsigned bool) crange.Range {
	single := func(v sint.SInt) crange.Range { return crange.Single(v) }
	switch op {
	case chir.OpAdd:
		return single(l.Add(r))
	case chir.OpSub:
		return single(l.Sub(r))
	case chir.OpMul:
		return single(l.Mul(r))
	case chir.OpDiv:
		if r.IsZero() {
			return crange.Full(l.Width())
		}
		if unsigned {
			return single(l.UDiv(r))
		}
		return single(l.SDiv(r))
	case chir.OpMod:
		if r.IsZero() {
			return crange.Full(l.Width())
		}
		if unsigned {
			return single(l.URem(r))
		}
		return single(l.SRem(r))
	default:
		return crange.Full(l.Width())
	}
}

func (a *Analysis) relational(d *Domain, e *chir.BinaryExpr) booldomain.Domain {
	l, r := d.GetInt(e.Left), d.GetInt(e.Right)
	if ls, ok := l.Numeric.GetSingleElement(); ok {
		if rs, ok := r.Numeric.GetSingleElement(); ok {
			return booldomain.FromBool(evalRel(e.Op, ls, rs, l.IsUnsigned))
		}
	}
	// Disjoint ranges can still decide the comparison even when neither
	// side is a singleton.
	switch e.Op {
	case chir.OpLt:
		if rangeStrictlyBelow(l.Numeric, r.Numeric, l.IsUnsigned) {
			return booldomain.Of(booldomain.True)
		}
	case chir.OpGt:
		if rangeStrictlyBelow(r.Numeric, l.Numeric, l.IsUnsigned) {
			return booldomain.Of(booldomain.True)
		}
	}
	return booldomain.Of(booldomain.Top)
}

func rangeStrictlyBelow(a, b crange.Range, unsigned bool) bool {
	if unsigned {
		return a.UMaxValue().UVal() < b.UMinValue().UVal()
	}
	return a.SMaxValue().SVal() < b.SMinValue().SVal()
}

func evalRel(op chir.BinaryOp, l, r sint.SInt, unsigned bool) bool {
	var cmp int
	if unsigned {
		switch {
		case l.UVal() < r.UVal():
			cmp = -1
		case l.UVal() > r.UVal():
			cmp = 1
		}
	} else {
		switch {
		case l.SVal() < r.SVal():
			cmp = -1
		case l.SVal() > r.SVal():
			cmp = 1
		}
	}
	switch op {
	case chir.OpLt:
		return cmp < 0
	case chir.OpLe:
		return cmp <= 0
	case chir.OpGt:
		return cmp > 0
	case chir.OpGe:
		return cmp >= 0
	case chir.OpEq:
		return cmp == 0
	default:
		return cmp != 0
	}
}

func (a *Analysis) transferCast(d *Domain, e *chir.TypeCastExpr, res *chir.LocalVar) {
	if res == nil {
		return
	}
	src := d.GetInt(e.Operand)
	dw, dsigned, ok := chir.IsIntegerType(e.Dest)
	if !ok {
		return
	}
	numeric := ComputeTypeCastNumericBound(src.Numeric, dw, !src.IsUnsigned, dsigned)
	out := SIntDomain{Numeric: numeric, IsUnsigned: !dsigned}
	// Preserve symbolic bounds only when the cast can't change sign or
	// truncate meaningful bits.
	if dw >= src.Numeric.Width() && dsigned == !src.IsUnsigned {
		out.Symbolic = symCopy(src.Symbolic)
	}
	d.setInt(res, out)
}

// ComputeTypeCastNumericBound converts a numeric bound from its source
// width/sign to a destination width/sign.
func ComputeTypeCastNumericBound(r crange.Range, destW sint.Width, srcSigned, destSigned bool) crange.Range {
	if destW < r.Width() {
		return r.Truncate(destW)
	}
	if destW == r.Width() {
		return r
	}
	if srcSigned {
		return r.SExt(destW)
	}
	return r.ZExt(destW)
}

// TransferTerminator reports the one successor a Branch or MultiBranch
// must take when its condition is a definite bool or its selector a
// single value, and nil otherwise. Narrowing the operand ranges along
// each edge is done by NarrowEdge.
func (a *Analysis) TransferTerminator(state interp.Domain, term chir.Terminator) (interp.Domain, *chir.Block) {
	d := state.(*Domain)

	switch t := term.(type) {
	case *chir.Branch:
		return a.transferBranch(d, t)
	case *chir.MultiBranch:
		sel := d.GetInt(t.Selector)
		if single, ok := sel.Numeric.GetSingleElement(); ok {
			for _, c := range t.Cases {
				if c.Value.UVal() == single.UVal() {
					return d, c.Block
				}
			}
			return d, t.Default
		}
	}
	return d, nil
}

func (a *Analysis) transferBranch(d *Domain, t *chir.Branch) (interp.Domain, *chir.Block) {
	cond := d.GetBool(t.Cond)
	if b, ok := cond.Bool(); ok {
		if b {
			return d, t.True
		}
		return d, t.False
	}
	return d, nil
}

// NarrowEdge implements interp.EdgeNarrowingAnalysis: along the true
// successor of a Branch, intersect the condition's relational operands
// with what the condition implies; along the false successor, with its
// complement.
func (a *Analysis) NarrowEdge(exit interp.Domain, term chir.Terminator, succ *chir.Block) interp.Domain {
	br, ok := term.(*chir.Branch)
	if !ok {
		return exit
	}
	d := exit.(*Domain)
	lv, ok := br.Cond.(*chir.LocalVar)
	if !ok {
		return exit
	}
	be, ok := lv.Def.(*chir.BinaryExpr)
	if !ok || !isRelational(be.Op) {
		return exit
	}
	_, signed, ok := chir.IsIntegerType(be.Left.Type())
	if !ok {
		return exit
	}
	takeTrue := succ == br.True
	return NarrowBranch(d, be.Left, be.Right, be.Op, takeTrue, !signed)
}

func isRelational(op chir.BinaryOp) bool {
	switch op {
	case chir.OpLt, chir.OpLe, chir.OpGt, chir.OpGe, chir.OpEq, chir.OpNe:
		return true
	default:
		return false
	}
}

// NarrowBranch computes the narrowed domain for one edge out of a Branch
// whose condition is `left OP right`, intersecting both operands' ranges
// with what taking that edge implies. NarrowEdge calls it for each Branch
// edge the engine follows; it is exported so passes can also call it
// directly.
func NarrowBranch(d *Domain, left, right chir.Value, op chir.BinaryOp, takeTrue bool, unsigned bool) *Domain {
	out := d.Copy().(*Domain)
	effOp := op
	if !takeTrue {
		effOp = negateRel(op)
	}
	lr, rr := out.GetInt(left), out.GetInt(right)
	pref := crange.PreferFromBool(unsigned)

	lBound := impliedBound(effOp, rr.Numeric, unsigned)
	rBound := impliedBoundRHS(effOp, lr.Numeric, unsigned)
	out.setInt(left, SIntDomain{Numeric: lr.Numeric.Intersect(lBound, pref), IsUnsigned: unsigned})
	out.setInt(right, SIntDomain{Numeric: rr.Numeric.Intersect(rBound, pref), IsUnsigned: unsigned})
	return out
}

func negateRel(op chir.BinaryOp) chir.BinaryOp {
	switch op {
	case chir.OpLt:
		return chir.OpGe
	case chir.OpLe:
		return chir.OpGt
	case chir.OpGt:
		return chir.OpLe
	case chir.OpGe:
		return chir.OpLt
	case chir.OpEq:
		return chir.OpNe
	default:
		return chir.OpEq
	}
}

// impliedBound returns the range the left operand must lie in given
// `left OP rightRange`.
func impliedBound(op chir.BinaryOp, rightRange crange.Range, unsigned bool) crange.Range {
	rel, ok := relForFrom(op)
	if !ok {
		return crange.Full(rightRange.Width())
	}
	v, ok := rightRange.GetSingleElement()
	if !ok {
		return crange.Full(rightRange.Width())
	}
	return crange.From(rel, v, !unsigned)
}

// impliedBoundRHS returns the range the right operand must lie in given
// `leftRange OP right`, i.e. using the mirrored relation.
func impliedBoundRHS(op chir.BinaryOp, leftRange crange.Range, unsigned bool) crange.Range {
	return impliedBound(mirrorRel(op), leftRange, unsigned)
}

func mirrorRel(op chir.BinaryOp) chir.BinaryOp {
	switch op {
	case chir.OpLt:
		return chir.OpGt
	case chir.OpLe:
		return chir.OpGe
	case chir.OpGt:
		return chir.OpLt
	case chir.OpGe:
		return chir.OpLe
	default:
		return op
	}
}

func relForFrom(op chir.BinaryOp) (crange.RelationalOperation, bool) {
	switch op {
	case chir.OpLt:
		return crange.LT, true
	case chir.OpLe:
		return crange.LE, true
	case chir.OpGt:
		return crange.GT, true
	case chir.OpGe:
		return crange.GE, true
	case chir.OpEq:
		return crange.EQ, true
	case chir.OpNe:
		return crange.NE, true
	default:
		return 0, false
	}
}
