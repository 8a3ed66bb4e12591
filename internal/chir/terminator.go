package chir

import "chir/internal/sint"

// Terminator is the last expression of a Block: every non-empty Block
// ends with exactly one. Success/error successors are positional per
// kind, not named generically, so each concrete kind exposes its own
// accessor in addition to Successors.
type Terminator interface {
	Expression
	Successors() []*Block
}

// Goto is an unconditional jump, including the rewrite target of a
// pruned Branch/MultiBranch.
type Goto struct {
	exprBase
	Target *Block
}

func (g *Goto) Operands() []Value     { return nil }
func (g *Goto) Category() ExprCategory { return CategoryTerminator }
func (g *Goto) Successors() []*Block   { return []*Block{g.Target} }

// Branch is a two-way conditional jump. Range analysis narrows the
// condition's operand range along each edge.
type Branch struct {
	exprBase
	Cond  Value
	True  *Block
	False *Block
}

func (b *Branch) Operands() []Value     { return []Value{b.Cond} }
func (b *Branch) Category() ExprCategory { return CategoryTerminator }
func (b *Branch) Successors() []*Block   { return []*Block{b.True, b.False} }

// MultiBranchCase pairs one literal selector value with its target block.
type MultiBranchCase struct {
	Value sint.SInt
	Block *Block
}

// MultiBranch is an n-way dispatch on an integer/rune selector; it's also
// where SanitizerCoverage switch instrumentation attaches per-case probes.
type MultiBranch struct {
	exprBase
	Selector Value
	Cases    []MultiBranchCase
	Default  *Block
}

func (m *MultiBranch) Operands() []Value     { return []Value{m.Selector} }
func (m *MultiBranch) Category() ExprCategory { return CategoryTerminator }
func (m *MultiBranch) Successors() []*Block {
	succs := make([]*Block, 0, len(m.Cases)+1)
	for _, c := range m.Cases {
		succs = append(succs, c.Block)
	}
	return append(succs, m.Default)
}

// Exit is a normal function return, optionally carrying a value; like
// RaiseException it has no successors.
type Exit struct {
	exprBase
	Value Value // nil for Unit-returning functions
}

func (e *Exit) Operands() []Value {
	if e.Value == nil {
		return nil
	}
	return []Value{e.Value}
}
func (e *Exit) Category() ExprCategory { return CategoryTerminator }
func (e *Exit) Successors() []*Block   { return nil }

// RaiseException unwinds to the nearest landing pad; it has no normal
// successor within the current BlockGroup.
type RaiseException struct {
	exprBase
	Exception Value
}

func (r *RaiseException) Operands() []Value     { return []Value{r.Exception} }
func (r *RaiseException) Category() ExprCategory { return CategoryTerminator }
func (r *RaiseException) Successors() []*Block   { return nil }

// ApplyWithException is a call that may raise; Success runs when the
// callee returns normally, Error when it raises.
type ApplyWithException struct {
	exprBase
	Callee       Value
	Args         []Value
	Success, Error *Block
}

func (a *ApplyWithException) Operands() []Value {
	ops := make([]Value, 0, len(a.Args)+1)
	ops = append(ops, a.Callee)
	return append(ops, a.Args...)
}
func (a *ApplyWithException) Category() ExprCategory { return CategoryTerminator }
func (a *ApplyWithException) Successors() []*Block   { return []*Block{a.Success, a.Error} }

// InvokeWithException is ApplyWithException's vtable-dispatched sibling.
type InvokeWithException struct {
	exprBase
	Receiver       Value
	MethodIndex    int
	Args           []Value
	Success, Error *Block
}

func (i *InvokeWithException) Operands() []Value {
	ops := make([]Value, 0, len(i.Args)+1)
	ops = append(ops, i.Receiver)
	return append(ops, i.Args...)
}
func (i *InvokeWithException) Category() ExprCategory { return CategoryTerminator }
func (i *InvokeWithException) Successors() []*Block   { return []*Block{i.Success, i.Error} }

// IntOpWithException is a throwing-overflow arithmetic/shift/division op:
// BinOp mirrors BinaryExpr's Op; for NEG, IsUnary is set, UnOp holds the
// op and Left is the only operand. Success continues on normal
// completion, Error diagnoses and unwinds.
type IntOpWithException struct {
	exprBase
	BinOp          BinaryOp
	IsUnary        bool
	UnOp           UnaryOp
	Left, Right    Value
	Success, Error *Block
}

func (o *IntOpWithException) Operands() []Value {
	if o.IsUnary {
		return []Value{o.Left}
	}
	return []Value{o.Left, o.Right}
}
func (o *IntOpWithException) Category() ExprCategory { return CategoryTerminator }
func (o *IntOpWithException) Successors() []*Block   { return []*Block{o.Success, o.Error} }

// TypeCastWithException is a throwing numeric cast that can diagnose a
// typecast overflow.
type TypeCastWithException struct {
	exprBase
	Operand        Value
	Dest           Type
	Success, Error *Block
}

func (t *TypeCastWithException) Operands() []Value     { return []Value{t.Operand} }
func (t *TypeCastWithException) Category() ExprCategory { return CategoryTerminator }
func (t *TypeCastWithException) Successors() []*Block   { return []*Block{t.Success, t.Error} }

// IntrinsicWithException covers the throwing intrinsics that aren't plain
// arithmetic: array get/set, Range construction with a bad step, and
// similar built-ins.
type IntrinsicWithException struct {
	exprBase
	Name           string
	Args           []Value
	Success, Error *Block
}

func (n *IntrinsicWithException) Operands() []Value     { return n.Args }
func (n *IntrinsicWithException) Category() ExprCategory { return CategoryTerminator }
func (n *IntrinsicWithException) Successors() []*Block   { return []*Block{n.Success, n.Error} }
