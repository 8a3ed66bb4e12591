// Package constanalysis implements per-expression constant value
// analysis: it folds arithmetic on known operands, tracks known bool/
// integer/float/rune/string values through the CFG, and diagnoses
// overflow, division-by-zero, out-of-bounds, and shift-range violations
// along the way. It is built on internal/interp's abstract-interpretation
// engine and internal/sint's width-exact arithmetic.
package constanalysis

import (
	"fmt"
	"math"

	"chir/internal/chir"
	"chir/internal/diag"
	"chir/internal/interp"
	"chir/internal/sint"
)

// Kind is the shape of a known constant value.
type Kind uint8

const (
	KUInt Kind = iota
	KInt
	KFloat
	KRune
	KBool
	KString
)

// Const is one concrete value constant analysis can track. Only the field
// matching Kind is meaningful.
type Const struct {
	Kind  Kind
	Int   sint.SInt // KInt, KUInt
	Float float64
	Rune  rune
	Bool  bool
	Str   string
}

func (c Const) Equals(o Const) bool {
	if c.Kind != o.Kind {
		return false
	}
	switch c.Kind {
	case KUInt, KInt:
		return c.Int.Width() == o.Int.Width() && c.Int.UVal() == o.Int.UVal()
	case KFloat:
		return c.Float == o.Float
	case KRune:
		return c.Rune == o.Rune
	case KBool:
		return c.Bool == o.Bool
	case KString:
		return c.Str == o.Str
	default:
		return false
	}
}

func (c Const) String() string {
	switch c.Kind {
	case KUInt:
		return fmt.Sprintf("%d", c.Int.UVal())
	case KInt:
		return fmt.Sprintf("%d", c.Int.SVal())
	case KFloat:
		return fmt.Sprintf("%g", c.Float)
	case KRune:
		return fmt.Sprintf("%q", c.Rune)
	case KBool:
		return fmt.Sprintf("%v", c.Bool)
	case KString:
		return fmt.Sprintf("%q", c.Str)
	default:
		return "?"
	}
}

// ToLiteral converts c to the LiteralValue constant-/range-propagation
// rewrites an expression's Result to. Reports ok=false for a
// Kind this package doesn't know how to materialize as a literal.
func (c Const) ToLiteral() (*chir.LiteralValue, bool) {
	switch c.Kind {
	case KUInt:
		return chir.UIntLiteral(c.Int), true
	case KInt:
		return chir.IntLiteral(c.Int), true
	case KBool:
		return chir.BoolLiteral(c.Bool), true
	case KFloat:
		return &chir.LiteralValue{Kind: chir.LitFloat, Ty: chir.FloatType{Width: chir.Float64}, Float: c.Float}, true
	case KRune:
		return &chir.LiteralValue{Kind: chir.LitRune, Ty: chir.RuneType{}, Rune: c.Rune}, true
	case KString:
		return &chir.LiteralValue{Kind: chir.LitString, Ty: chir.StringType{}, String: c.Str}, true
	default:
		return nil, false
	}
}

func ConstUInt(v sint.SInt) Const { return Const{Kind: KUInt, Int: v} }
func ConstInt(v sint.SInt) Const  { return Const{Kind: KInt, Int: v} }
func ConstFloat(v float64) Const  { return Const{Kind: KFloat, Float: v} }
func ConstRune(v rune) Const      { return Const{Kind: KRune, Rune: v} }
func ConstBool(v bool) Const      { return Const{Kind: KBool, Bool: v} }
func ConstString(v string) Const  { return Const{Kind: KString, Str: v} }

func fromLiteral(l *chir.LiteralValue) (Const, bool) {
	switch l.Kind {
	case chir.LitUInt:
		return ConstUInt(l.Int), true
	case chir.LitInt:
		return ConstInt(l.Int), true
	case chir.LitFloat:
		return ConstFloat(l.Float), true
	case chir.LitRune:
		return ConstRune(l.Rune), true
	case chir.LitBool:
		return ConstBool(l.Bool), true
	case chir.LitString:
		return ConstString(l.String), true
	default:
		return Const{}, false
	}
}

// point is one SSA name's lattice position: bottom (no info), a concrete
// Const, or top (⊤, conflicting/unknown).
type point struct {
	isTop  bool
	isBot  bool
	concrete Const
}

func bot() point { return point{isBot: true} }
func top() point { return point{isTop: true} }
func conc(c Const) point { return point{concrete: c} }

func (p point) join(o point) point {
	if p.isBot {
		return o
	}
	if o.isBot {
		return p
	}
	if p.isTop || o.isTop {
		return top()
	}
	if p.concrete.Equals(o.concrete) {
		return p
	}
	return top()
}

func (p point) equals(o point) bool {
	if p.isBot != o.isBot || p.isTop != o.isTop {
		return false
	}
	if p.isBot || p.isTop {
		return true
	}
	return p.concrete.Equals(o.concrete)
}

// Domain is constant analysis's per-function abstract state: a known
// value per SSA name plus the allocation tracking the value-analysis
// framework supplies for every concrete analysis.
type Domain struct {
	vals map[chir.Value]point
	refs *interp.RefTracker
}

func NewDomain() *Domain {
	return &Domain{vals: map[chir.Value]point{}, refs: interp.NewRefTracker()}
}

func (d *Domain) Bottom() interp.Domain { return NewDomain() }
func (d *Domain) Top() interp.Domain    { return NewDomain() }

func (d *Domain) Copy() interp.Domain {
	out := &Domain{vals: make(map[chir.Value]point, len(d.vals)), refs: d.refs.Copy()}
	for k, v := range d.vals {
		out.vals[k] = v
	}
	return out
}

func (d *Domain) Join(other interp.Domain) interp.Domain {
	o := other.(*Domain)
	out := &Domain{vals: make(map[chir.Value]point, len(d.vals)), refs: d.refs.Copy()}
	for k, v := range d.vals {
		out.vals[k] = v
	}
	for k, v := range o.vals {
		out.vals[k] = out.vals[k].join(v)
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

// Get returns the known constant bound to v, if analysis has pinned one.
func (d *Domain) Get(v chir.Value) (Const, bool) {
	if lit, ok := v.(*chir.LiteralValue); ok {
		c, ok := fromLiteral(lit)
		return c, ok
	}
	p, ok := d.vals[v]
	if !ok || p.isTop || p.isBot {
		return Const{}, false
	}
	return p.concrete, true
}

func (d *Domain) set(v chir.Value, p point) {
	if v == nil {
		return
	}
	d.vals[v] = p
}

// Analysis implements interp.Analysis for constant propagation. Reporter
// receives diagnostics; Stable gates whether they're actually emitted:
// analyses run twice, at different compiler phases, and diagnostics are
// only emitted on the final pass to avoid duplicates.
type Analysis struct {
	Reporter *diag.Reporter
	Stable   bool
	Globals  *interp.GlobalStore
}

func (a *Analysis) diag(stable bool, k diag.Kind, rng chir.Range, msg string, notes ...string) {
	if !stable || a.Reporter == nil {
		return
	}
	a.Reporter.Report(diag.New(k, rng, msg, notes...))
}

func (a *Analysis) InitialState(f *chir.Func) interp.Domain {
	d := NewDomain()
	if a.Globals != nil {
		for _, p := range collectReadGlobals(f) {
			if v, ok := a.Globals.Get(p); ok {
				if c, ok := v.(Const); ok {
					d.set(p, conc(c))
				}
			}
		}
	}
	return d
}

// collectReadGlobals is a best-effort scan for GlobalVar operands a
// function's body references, used only to decide which recorded global
// values are worth installing at entry.
func collectReadGlobals(f *chir.Func) []*chir.GlobalVar {
	var out []*chir.GlobalVar
	seen := map[*chir.GlobalVar]bool{}
	if f.Body == nil {
		return nil
	}
	visit := func(v chir.Value) {
		if g, ok := v.(*chir.GlobalVar); ok && !seen[g] {
			seen[g] = true
			out = append(out, g)
		}
	}
	for _, b := range f.Body.Blocks {
		for _, e := range b.Exprs {
			for _, op := range e.Operands() {
				visit(op)
			}
		}
	}
	return out
}

func (a *Analysis) TransferExpr(state interp.Domain, expr chir.Expression) interp.Domain {
	d := state.(*Domain).Copy().(*Domain)
	res := expr.Result()

	switch e := expr.(type) {
	case *chir.Constant:
		if c, ok := fromLiteral(e.Value); ok && res != nil {
			d.set(res, conc(c))
		}
	case *chir.UnaryExpr:
		a.transferUnary(d, e, res)
	case *chir.BinaryExpr:
		a.transferBinary(d, e, res)
	case *chir.TypeCastExpr:
		a.transferCast(d, e, res)
	case *chir.RangeCtorExpr:
		if step, ok := d.Get(e.Step); ok && (step.Kind == KInt || step.Kind == KUInt) && step.Int.IsZero() {
			a.diag(a.Stable, diag.StepNonZeroRange, e.SrcRange(), "Range step must not be zero")
		}
	case *chir.VArrayGetExpr:
		a.checkVArrayBound(d, e.Base.Type(), e.Index, expr)
	case *chir.VArraySetExpr:
		a.checkVArrayBound(d, e.Base.Type(), e.Index, expr)
	case *chir.AllocateExpr:
		if res != nil {
			d.refs.Allocate(res, e.Ty)
		}
	case *chir.FieldStoreExpr:
		if c, ok := d.Get(e.Value); ok {
			d.refs.FieldStore(e.Base, e.FieldIndex, c)
		} else {
			d.refs.FieldStore(e.Base, e.FieldIndex, nil)
		}
	case *chir.FieldLoadExpr:
		if v, ok := d.refs.FieldLoad(e.Base, e.FieldIndex); ok {
			if c, ok := v.(Const); ok && res != nil {
				d.set(res, conc(c))
			}
		}
	}
	return d
}

func (a *Analysis) checkVArrayBound(d *Domain, baseTy chir.Type, idx chir.Value, expr chir.Expression) {
	va, ok := baseTy.(chir.VArrayType)
	if !ok {
		return
	}
	c, ok := d.Get(idx)
	if !ok || (c.Kind != KInt && c.Kind != KUInt) {
		return
	}
	i := c.Int.SVal()
	if i >= 0 && i < int64(va.Size) {
		expr.Attrs().NeedCheckArrayBound = false
		return
	}
	a.diag(a.Stable, diag.IdxOutOfBounds, expr.SrcRange(),
		fmt.Sprintf("array index %d is past the end of array (which contains %d elements)", i, va.Size))
}

func (a *Analysis) transferUnary(d *Domain, e *chir.UnaryExpr, res *chir.LocalVar) {
	c, ok := d.Get(e.Operand)
	if !ok {
		if res != nil {
			d.set(res, top())
		}
		return
	}
	switch e.Op {
	case chir.OpNot:
		if c.Kind == KBool && res != nil {
			d.set(res, conc(ConstBool(!c.Bool)))
		}
	case chir.OpBitNot:
		if c.Kind == KInt || c.Kind == KUInt {
			v := c.Int.BitNot()
			if res != nil {
				d.set(res, conc(Const{Kind: c.Kind, Int: v}))
			}
		}
	case chir.OpNeg:
		switch c.Kind {
		case KFloat:
			if res != nil {
				d.set(res, conc(ConstFloat(-c.Float)))
			}
		case KInt, KUInt:
			a.negInt(d, e, c, res)
		}
	}
}

func (a *Analysis) negInt(d *Domain, e *chir.UnaryExpr, c Const, res *chir.LocalVar) {
	zero := sint.Zero(c.Int.Width())
	switch e.Strategy {
	case chir.Wrapping:
		v := zero.Sub(c.Int)
		setResultInt(d, res, c.Kind, v)
	case chir.Saturating:
		v := zero.SatSSub(c.Int)
		setResultInt(d, res, c.Kind, v)
	default: // Throwing, Checked
		v, overflow := sint.SSubOvf(zero, c.Int)
		if overflow {
			a.diag(a.Stable, diag.ArithmeticOperatorOverflow, e.SrcRange(),
				fmt.Sprintf("-%s overflows %s", c, widthName(c)),
				rangeNote(c.Int.Width(), c.Kind == KInt))
			if res != nil {
				d.set(res, top())
			}
			return
		}
		setResultInt(d, res, c.Kind, v)
	}
}

func setResultInt(d *Domain, res *chir.LocalVar, k Kind, v sint.SInt) {
	if res != nil {
		d.set(res, conc(Const{Kind: k, Int: v}))
	}
}

func widthName(c Const) string {
	if c.Kind == KUInt {
		return fmt.Sprintf("UInt%d", c.Int.Width())
	}
	return fmt.Sprintf("Int%d", c.Int.Width())
}

func rangeNote(w sint.Width, signed bool) string {
	if signed {
		return fmt.Sprintf("range of Int%d is %d ~ %d", w, sint.SMinValue(w).SVal(), sint.SMaxValue(w).SVal())
	}
	return fmt.Sprintf("range of UInt%d is 0 ~ %d", w, sint.UMaxValue(w).UVal())
}

func (a *Analysis) transferBinary(d *Domain, e *chir.BinaryExpr, res *chir.LocalVar) {
	lc, lok := d.Get(e.Left)
	rc, rok := d.Get(e.Right)

	// Short-circuit AND/OR: either side known can settle the result.
	if e.Op == chir.OpAnd || e.Op == chir.OpOr {
		a.transferShortCircuit(d, e, lc, lok, rc, rok, res)
		return
	}

	if !lok || !rok {
		// a == a / a != a needs neither side's value (floats excepted)
		if e.Left == e.Right && (e.Op == chir.OpEq || e.Op == chir.OpNe) {
			if _, isFloat := e.Left.Type().(chir.FloatType); !isFloat {
				a.transferRelational(d, e, lc, rc, res)
				return
			}
		}
		if res != nil {
			d.set(res, top())
		}
		return
	}

	switch e.Op {
	case chir.OpAdd, chir.OpSub, chir.OpMul, chir.OpDiv, chir.OpMod, chir.OpExp,
		chir.OpLShift, chir.OpRShift, chir.OpBitAnd, chir.OpBitOr, chir.OpBitXor:
		if lc.Kind == KFloat && rc.Kind == KFloat {
			a.transferFloatArith(d, e, lc, rc, res)
			return
		}
		if (lc.Kind == KInt || lc.Kind == KUInt) && lc.Kind == rc.Kind {
			a.transferIntArith(d, e, lc, rc, res)
			return
		}
		if res != nil {
			d.set(res, top())
		}
	case chir.OpLt, chir.OpLe, chir.OpGt, chir.OpGe, chir.OpEq, chir.OpNe:
		a.transferRelational(d, e, lc, rc, res)
	}
}

func (a *Analysis) transferShortCircuit(d *Domain, e *chir.BinaryExpr, lc Const, lok bool, rc Const, rok bool, res *chir.LocalVar) {
	var l, r bool
	lKnown, rKnown := lok && lc.Kind == KBool, rok && rc.Kind == KBool
	if lKnown {
		l = lc.Bool
	}
	if rKnown {
		r = rc.Bool
	}
	switch e.Op {
	case chir.OpAnd:
		if lKnown && !l {
			setBool(d, res, false)
			return
		}
		if rKnown && !r {
			setBool(d, res, false)
			return
		}
		if lKnown && rKnown {
			setBool(d, res, l && r)
			return
		}
	case chir.OpOr:
		if lKnown && l {
			setBool(d, res, true)
			return
		}
		if rKnown && r {
			setBool(d, res, true)
			return
		}
		if lKnown && rKnown {
			setBool(d, res, l || r)
			return
		}
	}
	if res != nil {
		d.set(res, top())
	}
}

func setBool(d *Domain, res *chir.LocalVar, b bool) {
	if res != nil {
		d.set(res, conc(ConstBool(b)))
	}
}

func (a *Analysis) transferFloatArith(d *Domain, e *chir.BinaryExpr, lc, rc Const, res *chir.LocalVar) {
	var v float64
	switch e.Op {
	case chir.OpAdd:
		v = lc.Float + rc.Float
	case chir.OpSub:
		v = lc.Float - rc.Float
	case chir.OpMul:
		v = lc.Float * rc.Float
	case chir.OpDiv:
		v = lc.Float / rc.Float
	case chir.OpMod:
		v = math.Mod(lc.Float, rc.Float)
	default:
		if res != nil {
			d.set(res, top())
		}
		return
	}
	if math.IsNaN(v) || math.IsInf(v, 0) {
		if res != nil {
			d.set(res, top())
		}
		return
	}
	if res != nil {
		d.set(res, conc(ConstFloat(v)))
	}
}

func (a *Analysis) transferIntArith(d *Domain, e *chir.BinaryExpr, lc, rc Const, res *chir.LocalVar) {
	w := lc.Int.Width()
	signed := lc.Kind == KInt

	// Trivial pre-folds.
	switch e.Op {
	case chir.OpMul:
		if lc.Int.IsZero() || rc.Int.IsZero() {
			setResultInt(d, res, lc.Kind, sint.Zero(w))
			return
		}
	case chir.OpDiv:
		if rc.Int.IsZero() {
			a.diag(a.Stable, diag.DivisorIsZero, e.SrcRange(), "divisor is zero")
			if res != nil {
				d.set(res, top())
			}
			return
		}
		if lc.Int.IsZero() {
			setResultInt(d, res, lc.Kind, sint.Zero(w))
			return
		}
	case chir.OpMod:
		if rc.Int.IsZero() {
			a.diag(a.Stable, diag.DivisorIsZero, e.SrcRange(), "divisor is zero")
			if res != nil {
				d.set(res, top())
			}
			return
		}
		if rc.Int.IsOne() {
			setResultInt(d, res, lc.Kind, sint.Zero(w))
			return
		}
	case chir.OpExp:
		a.transferExp(d, e, lc, rc, res)
		return
	case chir.OpLShift, chir.OpRShift:
		a.transferShift(d, e, lc, rc, res)
		return
	}

	var result sint.SInt
	var overflow bool
	switch e.Op {
	case chir.OpAdd:
		if signed {
			result, overflow = sint.SAddOvf(lc.Int, rc.Int)
		} else {
			result, overflow = sint.UAddOvf(lc.Int, rc.Int)
		}
	case chir.OpSub:
		if signed {
			result, overflow = sint.SSubOvf(lc.Int, rc.Int)
		} else {
			result, overflow = sint.USubOvf(lc.Int, rc.Int)
		}
	case chir.OpMul:
		if signed {
			result, overflow = sint.SMulOvf(lc.Int, rc.Int)
		} else {
			result, overflow = sint.UMulOvf(lc.Int, rc.Int)
		}
	case chir.OpDiv:
		if signed {
			result, overflow = sint.SDivOvf(lc.Int, rc.Int)
		} else {
			result = lc.Int.UDiv(rc.Int)
		}
	case chir.OpMod:
		if signed {
			result = lc.Int.SRem(rc.Int)
		} else {
			result = lc.Int.URem(rc.Int)
		}
	case chir.OpBitAnd:
		result = lc.Int.And(rc.Int)
	case chir.OpBitOr:
		result = lc.Int.Or(rc.Int)
	case chir.OpBitXor:
		result = lc.Int.Xor(rc.Int)
	default:
		if res != nil {
			d.set(res, top())
		}
		return
	}

	if overflow {
		a.handleOverflow(d, e, lc, rc, signed, w, res)
		return
	}
	setResultInt(d, res, lc.Kind, result)
}

func (a *Analysis) handleOverflow(d *Domain, e *chir.BinaryExpr, lc, rc Const, signed bool, w sint.Width, res *chir.LocalVar) {
	switch e.Strategy {
	case chir.Wrapping:
		setResultInt(d, res, lc.Kind, wrapOp(e.Op, lc.Int, rc.Int))
	case chir.Saturating:
		setResultInt(d, res, lc.Kind, satOp(e.Op, lc.Int, rc.Int, lc.Kind == KUInt))
	default:
		a.diag(a.Stable, diag.ArithmeticOperatorOverflow, e.SrcRange(),
			fmt.Sprintf("%s(%d) %s %s(%d) overflows", widthName(lc), lc.Int.SVal(), opSymbol(e.Op), widthName(rc), rc.Int.SVal()),
			rangeNote(w, signed))
		if res != nil {
			d.set(res, top())
		}
	}
}

func wrapOp(op chir.BinaryOp, a, b sint.SInt) sint.SInt {
	switch op {
	case chir.OpAdd:
		return a.Add(b)
	case chir.OpSub:
		return a.Sub(b)
	case chir.OpMul:
		return a.Mul(b)
	default:
		return a
	}
}

func satOp(op chir.BinaryOp, a, b sint.SInt, unsigned bool) sint.SInt {
	if unsigned {
		switch op {
		case chir.OpAdd:
			return a.SatUAdd(b)
		case chir.OpSub:
			return a.SatUSub(b)
		case chir.OpMul:
			return a.SatUMul(b)
		default:
			return a
		}
	}
	switch op {
	case chir.OpAdd:
		return a.SatSAdd(b)
	case chir.OpSub:
		return a.SatSSub(b)
	case chir.OpMul:
		return a.SatSMul(b)
	default:
		return a
	}
}

func opSymbol(op chir.BinaryOp) string {
	switch op {
	case chir.OpAdd:
		return "+"
	case chir.OpSub:
		return "-"
	case chir.OpMul:
		return "*"
	case chir.OpDiv:
		return "/"
	case chir.OpMod:
		return "%"
	default:
		return "?"
	}
}

func (a *Analysis) transferExp(d *Domain, e *chir.BinaryExpr, lc, rc Const, res *chir.LocalVar) {
	w := lc.Int.Width()
	if rc.Int.IsZero() {
		setResultInt(d, res, lc.Kind, sint.One(w))
		return
	}
	if lc.Int.IsZero() {
		setResultInt(d, res, lc.Kind, sint.Zero(w))
		return
	}
	if lc.Int.IsOne() {
		setResultInt(d, res, lc.Kind, sint.One(w))
		return
	}
	// Fast binary exponentiation with overflow detection.
	base, exp := lc.Int, rc.Int.UVal()
	result := sint.One(w)
	overflow := false
	for exp > 0 {
		if exp&1 == 1 {
			var ovf bool
			if lc.Kind == KInt {
				result, ovf = sint.SMulOvf(result, base)
			} else {
				result, ovf = sint.UMulOvf(result, base)
			}
			overflow = overflow || ovf
		}
		exp >>= 1
		if exp == 0 {
			break
		}
		var ovf bool
		if lc.Kind == KInt {
			base, ovf = sint.SMulOvf(base, base)
		} else {
			base, ovf = sint.UMulOvf(base, base)
		}
		overflow = overflow || ovf
	}
	if overflow {
		a.handleOverflow(d, e, lc, rc, lc.Kind == KInt, w, res)
		return
	}
	setResultInt(d, res, lc.Kind, result)
}

func (a *Analysis) transferShift(d *Domain, e *chir.BinaryExpr, lc, rc Const, res *chir.LocalVar) {
	w := lc.Int.Width()
	shiftAmt := rc.Int.SVal()
	if rc.Kind == KInt && shiftAmt < 0 {
		a.diag(a.Stable, diag.ShiftLengthOverflow, e.SrcRange(), "right operand can not be negative")
		if res != nil {
			d.set(res, top())
		}
		return
	}
	if uint64(rc.Int.UVal()) >= uint64(w) {
		a.diag(a.Stable, diag.ShiftLengthOverflow, e.SrcRange(),
			fmt.Sprintf("shift amount must be less than %d", w),
			fmt.Sprintf("the most bits that expected to shift are %d", w-1))
		if res != nil {
			d.set(res, top())
		}
		return
	}
	n := uint(rc.Int.UVal())
	var result sint.SInt
	if e.Op == chir.OpLShift {
		result = lc.Int.Shl(n)
	} else if lc.Kind == KInt {
		result = lc.Int.AShr(n)
	} else {
		result = lc.Int.LShr(n)
	}
	setResultInt(d, res, lc.Kind, result)
}

func (a *Analysis) transferRelational(d *Domain, e *chir.BinaryExpr, lc, rc Const, res *chir.LocalVar) {
	// a == a / a != a folds without both sides known, except for floats
	// (NaN != NaN).
	if e.Left == e.Right {
		if _, isFloat := e.Left.Type().(chir.FloatType); !isFloat {
			if e.Op == chir.OpEq {
				setBool(d, res, true)
				return
			}
			if e.Op == chir.OpNe {
				setBool(d, res, false)
				return
			}
		}
	}
	cmp, ok := compare(lc, rc)
	if !ok {
		if res != nil {
			d.set(res, top())
		}
		return
	}
	var b bool
	switch e.Op {
	case chir.OpLt:
		b = cmp < 0
	case chir.OpLe:
		b = cmp <= 0
	case chir.OpGt:
		b = cmp > 0
	case chir.OpGe:
		b = cmp >= 0
	case chir.OpEq:
		b = cmp == 0
	case chir.OpNe:
		b = cmp != 0
	}
	setBool(d, res, b)
}

func compare(lc, rc Const) (int, bool) {
	switch lc.Kind {
	case KInt:
		l, r := lc.Int.SVal(), rc.Int.SVal()
		return cmpInt64(l, r), true
	case KUInt:
		l, r := lc.Int.UVal(), rc.Int.UVal()
		return cmpUint64(l, r), true
	case KFloat:
		if lc.Float < rc.Float {
			return -1, true
		}
		if lc.Float > rc.Float {
			return 1, true
		}
		return 0, true
	case KRune:
		return cmpInt64(int64(lc.Rune), int64(rc.Rune)), true
	case KBool:
		if lc.Bool == rc.Bool {
			return 0, true
		}
		if !lc.Bool {
			return -1, true
		}
		return 1, true
	case KString:
		if lc.Str < rc.Str {
			return -1, true
		}
		if lc.Str > rc.Str {
			return 1, true
		}
		return 0, true
	default:
		return 0, false
	}
}

func cmpInt64(a, b int64) int {
	if a < b {
		return -1
	}
	if a > b {
		return 1
	}
	return 0
}

func cmpUint64(a, b uint64) int {
	if a < b {
		return -1
	}
	if a > b {
		return 1
	}
	return 0
}

func (a *Analysis) transferCast(d *Domain, e *chir.TypeCastExpr, res *chir.LocalVar) {
	c, ok := d.Get(e.Operand)
	if !ok || (c.Kind != KInt && c.Kind != KUInt) {
		if res != nil {
			d.set(res, top())
		}
		return
	}
	dw, dsigned, ok := chir.IsIntegerType(e.Dest)
	if !ok {
		if res != nil {
			d.set(res, top())
		}
		return
	}
	var v sint.SInt
	if dw > c.Int.Width() {
		if c.Kind == KInt {
			v = c.Int.SExt(dw)
		} else {
			v = c.Int.ZExt(dw)
		}
	} else {
		v = c.Int.Truncate(dw)
	}
	k := KUInt
	if dsigned {
		k = KInt
	}
	setResultInt(d, res, k, v)
}

func (a *Analysis) TransferTerminator(state interp.Domain, term chir.Terminator) (interp.Domain, *chir.Block) {
	d := state.(*Domain)

	switch t := term.(type) {
	case *chir.Branch:
		if c, ok := d.Get(t.Cond); ok && c.Kind == KBool {
			if c.Bool {
				return d, t.True
			}
			return d, t.False
		}
	case *chir.MultiBranch:
		if c, ok := d.Get(t.Selector); ok && (c.Kind == KInt || c.Kind == KUInt) {
			for _, cs := range t.Cases {
				if cs.Value.UVal() == c.Int.UVal() {
					return d, cs.Block
				}
			}
			return d, t.Default
		}
	case *chir.IntOpWithException:
		return a.transferIntOpWithException(d, t)
	case *chir.TypeCastWithException:
		return a.transferCastWithException(d, t)
	case *chir.IntrinsicWithException:
		return d, nil
	}
	return d, nil
}

func (a *Analysis) transferIntOpWithException(d *Domain, t *chir.IntOpWithException) (interp.Domain, *chir.Block) {
	lc, lok := d.Get(t.Left)
	if t.IsUnary {
		if !lok || (lc.Kind != KInt && lc.Kind != KUInt) {
			return d, nil
		}
		if t.UnOp == chir.OpNeg {
			_, overflow := sint.SSubOvf(sint.Zero(lc.Int.Width()), lc.Int)
			if overflow {
				a.diag(a.Stable, diag.ArithmeticOperatorOverflow, t.SrcRange(),
					fmt.Sprintf("-%s overflows", widthName(lc)), rangeNote(lc.Int.Width(), lc.Kind == KInt))
				return d, t.Error
			}
			return d, t.Success
		}
		return d, nil
	}
	rc, rok := d.Get(t.Right)
	if !lok || !rok || lc.Kind != rc.Kind || (lc.Kind != KInt && lc.Kind != KUInt) {
		return d, nil
	}
	signed := lc.Kind == KInt
	var overflow bool
	switch t.BinOp {
	case chir.OpAdd:
		if signed {
			_, overflow = sint.SAddOvf(lc.Int, rc.Int)
		} else {
			_, overflow = sint.UAddOvf(lc.Int, rc.Int)
		}
	case chir.OpSub:
		if signed {
			_, overflow = sint.SSubOvf(lc.Int, rc.Int)
		} else {
			_, overflow = sint.USubOvf(lc.Int, rc.Int)
		}
	case chir.OpMul:
		if signed {
			_, overflow = sint.SMulOvf(lc.Int, rc.Int)
		} else {
			_, overflow = sint.UMulOvf(lc.Int, rc.Int)
		}
	case chir.OpDiv, chir.OpMod:
		if rc.Int.IsZero() {
			a.diag(a.Stable, diag.DivisorIsZero, t.SrcRange(), "divisor is zero")
			return d, t.Error
		}
		return d, t.Success
	default:
		return d, nil
	}
	if overflow {
		a.diag(a.Stable, diag.ArithmeticOperatorOverflow, t.SrcRange(),
			fmt.Sprintf("%s %s %s overflows", widthName(lc), opSymbol(t.BinOp), widthName(rc)),
			rangeNote(lc.Int.Width(), signed))
		return d, t.Error
	}
	return d, t.Success
}

func (a *Analysis) transferCastWithException(d *Domain, t *chir.TypeCastWithException) (interp.Domain, *chir.Block) {
	c, ok := d.Get(t.Operand)
	if !ok || (c.Kind != KInt && c.Kind != KUInt) {
		return d, nil
	}
	dw, dsigned, ok := chir.IsIntegerType(t.Dest)
	if !ok {
		return d, nil
	}
	fits := c.Int.IsUIntN(uint(dw))
	if dsigned {
		fits = c.Int.IsSIntN(uint(dw))
	}
	if dw >= c.Int.Width() {
		fits = true
	}
	if !fits {
		a.diag(a.Stable, diag.TypecastOverflow, t.SrcRange(),
			fmt.Sprintf("%s(%s) can not be converted to width %d", widthName(c), c, dw),
			rangeNote(dw, dsigned))
		return d, t.Error
	}
	return d, t.Success
}
