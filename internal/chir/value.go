package chir

import (
	"fmt"

	"chir/internal/sint"
)

// Value is the abstract supertype of every operand CHIR expressions can
// reference. A LocalVar is an expression's Result; the others name
// things defined outside the current expression stream.
type Value interface {
	Type() Type
	ValueName() string
	isValue()
}

// LocalVar is the Result of an Expression: every use of it must
// post-dominate its unique definition.
type LocalVar struct {
	Name string
	Ty   Type
	Def  Expression
}

func (v *LocalVar) Type() Type        { return v.Ty }
func (v *LocalVar) ValueName() string { return v.Name }
func (*LocalVar) isValue()            {}

type Parameter struct {
	Name string
	Ty   Type
}

func (v *Parameter) Type() Type        { return v.Ty }
func (v *Parameter) ValueName() string { return v.Name }
func (*Parameter) isValue()            {}

// GlobalVar is a package-level variable. ReadOnly globals with an
// InitFunc are evaluated at most once; InitFunc's identity is stored
// here so the value-analysis framework's single-threaded setup phase
// can find it.
type GlobalVar struct {
	Name     string
	Package  string
	Ty       Type
	ReadOnly bool
	InitFunc *Func
}

func (v *GlobalVar) Type() Type        { return v.Ty }
func (v *GlobalVar) ValueName() string { return v.Package + "." + v.Name }
func (*GlobalVar) isValue()            {}

// ImportedVar / ImportedFunc name a declaration from another package,
// reachable only through the unused-import pruning closure.
type ImportedVar struct {
	Name    string
	Package string
	Ty      Type
}

func (v *ImportedVar) Type() Type        { return v.Ty }
func (v *ImportedVar) ValueName() string { return v.Package + "." + v.Name }
func (*ImportedVar) isValue()            {}

type ImportedFunc struct {
	Name      string
	Package   string
	Ty        FuncType
	IsVirtual bool
}

func (v *ImportedFunc) Type() Type        { return v.Ty }
func (v *ImportedFunc) ValueName() string { return v.Package + "." + v.Name }
func (*ImportedFunc) isValue()            {}

// FuncValue lets a source-package Func be referenced as a first-class
// value (e.g. as a callee operand of APPLY).
type FuncValue struct{ Func *Func }

func (v *FuncValue) Type() Type        { return v.Func.Type() }
func (v *FuncValue) ValueName() string { return v.Func.Name }
func (*FuncValue) isValue()            {}

// LiteralKind enumerates the compile-time constant shapes CHIR carries.
type LiteralKind uint8

const (
	LitBool LiteralKind = iota
	LitInt
	LitUInt
	LitFloat
	LitRune
	LitString
	LitUnit
)

// LiteralValue is a typed compile-time constant. Exactly one of the
// payload fields is meaningful, selected by Kind.
type LiteralValue struct {
	Kind   LiteralKind
	Ty     Type
	Bool   bool
	Int    sint.SInt
	Float  float64
	Rune   rune
	String string
}

func (v *LiteralValue) Type() Type { return v.Ty }

func (v *LiteralValue) ValueName() string {
	switch v.Kind {
	case LitBool:
		return fmt.Sprintf("%v", v.Bool)
	case LitInt:
		return fmt.Sprintf("%d", v.Int.SVal())
	case LitUInt:
		return fmt.Sprintf("%d", v.Int.UVal())
	case LitFloat:
		return fmt.Sprintf("%g", v.Float)
	case LitRune:
		return fmt.Sprintf("%q", v.Rune)
	case LitString:
		return fmt.Sprintf("%q", v.String)
	default:
		return "()"
	}
}
func (*LiteralValue) isValue() {}

func BoolLiteral(b bool) *LiteralValue {
	return &LiteralValue{Kind: LitBool, Ty: BoolType{}, Bool: b}
}

func IntLiteral(v sint.SInt) *LiteralValue {
	return &LiteralValue{Kind: LitInt, Ty: IntType{Width: v.Width()}, Int: v}
}

func UIntLiteral(v sint.SInt) *LiteralValue {
	return &LiteralValue{Kind: LitUInt, Ty: UIntType{Width: v.Width()}, Int: v}
}

func UnitLiteral() *LiteralValue {
	return &LiteralValue{Kind: LitUnit, Ty: UnitType{}}
}
