package chir

import (
	"fmt"
	"strings"

	"chir/internal/sint"
)

// Type is the CHIR type hierarchy. Concrete types are value types that
// carry their element types by value. Types without slice fields compare
// with ==; Tuple, Func, Nominal, Union and Intersection hold slices and
// are not comparable with ==, so TypesEqual compares their String()
// renderings instead. There is no interning pass in this package
// (builder-identity interning, if ever needed, belongs to a context
// layer outside this core, not modeled here).
type Type interface {
	String() string
	isType()
}

type BoolType struct{}

func (BoolType) String() string { return "Bool" }
func (BoolType) isType()        {}

type IntType struct{ Width sint.Width }

func (t IntType) String() string { return fmt.Sprintf("Int%d", t.Width) }
func (IntType) isType()          {}

type UIntType struct{ Width sint.Width }

func (t UIntType) String() string { return fmt.Sprintf("UInt%d", t.Width) }
func (UIntType) isType()          {}

type FloatWidth int

const (
	Float16 FloatWidth = 16
	Float32 FloatWidth = 32
	Float64 FloatWidth = 64
)

type FloatType struct{ Width FloatWidth }

func (t FloatType) String() string { return fmt.Sprintf("Float%d", t.Width) }
func (FloatType) isType()          {}

type RuneType struct{}

func (RuneType) String() string { return "Rune" }
func (RuneType) isType()        {}

type UnitType struct{}

func (UnitType) String() string { return "Unit" }
func (UnitType) isType()        {}

// NothingType is the bottom type: the type of a diverging expression
// (a raised exception, an unconditional return).
type NothingType struct{}

func (NothingType) String() string { return "Nothing" }
func (NothingType) isType()        {}

type StringType struct{}

func (StringType) String() string { return "String" }
func (StringType) isType()        {}

type CStringType struct{}

func (CStringType) String() string { return "CString" }
func (CStringType) isType()        {}

type TupleType struct{ Elements []Type }

func (t TupleType) String() string {
	parts := make([]string, len(t.Elements))
	for i, e := range t.Elements {
		parts[i] = e.String()
	}
	return "(" + strings.Join(parts, ", ") + ")"
}
func (TupleType) isType() {}

type FuncType struct {
	Params []Type
	Ret    Type
}

func (t FuncType) String() string {
	parts := make([]string, len(t.Params))
	for i, p := range t.Params {
		parts[i] = p.String()
	}
	return "(" + strings.Join(parts, ", ") + ") -> " + t.Ret.String()
}
func (FuncType) isType() {}

// RefType is a pointer to a value of Base; it's how CHIR represents a
// mutable local slot, a field address, or a heap reference.
type RefType struct{ Base Type }

func (t RefType) String() string { return "Ref<" + t.Base.String() + ">" }
func (RefType) isType()          {}

type TypeKind uint8

const (
	KindClass TypeKind = iota
	KindStruct
	KindEnum
	KindInterface
)

// NominalType refers to a CustomTypeDef by name with instantiated type
// arguments (empty for non-generic definitions).
type NominalType struct {
	Kind    TypeKind
	Package string
	Name    string
	Args    []Type
}

func (t NominalType) String() string {
	base := t.Package + "." + t.Name
	if len(t.Args) == 0 {
		return base
	}
	parts := make([]string, len(t.Args))
	for i, a := range t.Args {
		parts[i] = a.String()
	}
	return base + "<" + strings.Join(parts, ", ") + ">"
}
func (NominalType) isType() {}

// RawArrayType is an unsized, heap-allocated homogeneous array.
type RawArrayType struct {
	Elem Type
	Dims int
}

func (t RawArrayType) String() string { return fmt.Sprintf("RawArray<%s>[%d]", t.Elem, t.Dims) }
func (RawArrayType) isType()          {}

// VArrayType is a statically sized value-semantics array.
type VArrayType struct {
	Elem Type
	Size int
}

func (t VArrayType) String() string { return fmt.Sprintf("VArray<%s, $%d>", t.Elem, t.Size) }
func (VArrayType) isType()          {}

type CPointerType struct{ Pointee Type }

func (t CPointerType) String() string { return "CPointer<" + t.Pointee.String() + ">" }
func (CPointerType) isType()          {}

// GenericType is an unresolved type parameter reference (e.g. a Func's own
// declared `T` before instantiation). Type-argument synthesis binds these
// to concrete types.
type GenericType struct{ Name string }

func (t GenericType) String() string { return t.Name }
func (GenericType) isType()          {}

// IdealIntType / IdealFloatType are untyped numeric literal placeholders,
// resolved to Int64/Float64 by local type-argument synthesis when no
// other constraint pins a concrete width.
type IdealIntType struct{}

func (IdealIntType) String() string { return "IdealInt" }
func (IdealIntType) isType()        {}

type IdealFloatType struct{}

func (IdealFloatType) String() string { return "IdealFloat" }
func (IdealFloatType) isType()        {}

// AnyType and InvalidType round out the lattice corners that constraint
// solving checks against when deciding whether a solved type is
// acceptable.
type AnyType struct{}

func (AnyType) String() string { return "Any" }
func (AnyType) isType()        {}

type InvalidType struct{}

func (InvalidType) String() string { return "Invalid" }
func (InvalidType) isType()        {}

// UnionType and IntersectionType are the two structural set-combinators
// local type-argument synthesis unifies against directly: `A∩B <:
// C` iff `A<:C` or `B<:C`, and dually for union on the right. Surface
// union/intersection syntax only matters for user-facing rendering; the
// solver itself treats Members as a flat set.
type UnionType struct{ Members []Type }

func (t UnionType) String() string {
	parts := make([]string, len(t.Members))
	for i, m := range t.Members {
		parts[i] = m.String()
	}
	return strings.Join(parts, " | ")
}
func (UnionType) isType() {}

type IntersectionType struct{ Members []Type }

func (t IntersectionType) String() string {
	parts := make([]string, len(t.Members))
	for i, m := range t.Members {
		parts[i] = m.String()
	}
	return strings.Join(parts, " & ")
}
func (IntersectionType) isType() {}

func TypesEqual(a, b Type) bool { return a.String() == b.String() }

// IsIntegerType reports whether t is one of the fixed-width signed or
// unsigned integer types (used throughout constant/range analysis to
// decide whether a value carries an SInt-shaped abstract value).
func IsIntegerType(t Type) (width sint.Width, signed bool, ok bool) {
	switch v := t.(type) {
	case IntType:
		return v.Width, true, true
	case UIntType:
		return v.Width, false, true
	default:
		return 0, false, false
	}
}
