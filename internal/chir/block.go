package chir

// Block is an ordered sequence of Expressions ending in exactly one
// Terminator. Predecessors/Successors are derived from the terminator
// and kept denormalized for O(1) CFG walks; RebuildEdges recomputes them
// after a pass mutates Exprs or Term.
type Block struct {
	Label string
	Group *BlockGroup
	Exprs []Expression
	Term  Terminator

	// LandingPads are the exception types this block can catch if it is
	// itself an exception-handler entry.
	LandingPads []Type

	Predecessors []*Block
	Successors   []*Block
}

func (b *Block) AllExpressions() []Expression {
	if b.Term == nil {
		return b.Exprs
	}
	return append(append([]Expression{}, b.Exprs...), b.Term)
}

// BlockGroup is an ordered collection of Blocks with a distinguished
// entry. A Func's body is one such group; nested groups appear inside
// lambda-capturing expressions.
type BlockGroup struct {
	Entry  *Block
	Blocks []*Block
}

// RebuildEdges recomputes Predecessors/Successors for every block in the
// group from each block's Terminator. Passes that rewrite terminators
// (branch pruning, GOTO rewriting, unreachable-block removal) call this
// once after their rewrite pass completes rather than maintaining edges
// incrementally mid-rewrite.
func (g *BlockGroup) RebuildEdges() {
	for _, b := range g.Blocks {
		b.Predecessors = nil
		b.Successors = nil
	}
	for _, b := range g.Blocks {
		if b.Term == nil {
			continue
		}
		for _, s := range b.Term.Successors() {
			if s == nil {
				continue
			}
			b.Successors = append(b.Successors, s)
			s.Predecessors = append(s.Predecessors, b)
		}
	}
}

// ReachableFrom returns the set of blocks reachable from entry by
// following Successors, used by the unreachable-block elimination pass.
func (g *BlockGroup) ReachableFrom(entry *Block) map[*Block]bool {
	seen := map[*Block]bool{}
	var walk func(*Block)
	walk = func(b *Block) {
		if b == nil || seen[b] {
			return
		}
		seen[b] = true
		for _, s := range b.Successors {
			walk(s)
		}
	}
	walk(entry)
	return seen
}

// FuncAttribute enumerates the flags a Func may carry.
type FuncAttribute uint8

const (
	AttrGeneric FuncAttribute = iota
	AttrNoReflectInfo
	AttrForeign
	AttrCompilerAdd
	AttrReadOnly
	AttrNoSideEffect
	AttrExported
	AttrVirtual
)

// Func has a signature, attributes, and a root BlockGroup; it may be
// generic, carrying its own type parameters.
type Func struct {
	Name        string
	Package     string
	Mangled     string
	Params      []*Parameter
	Ret         Type
	Attrs       map[FuncAttribute]bool
	TypeParams  []GenericType
	Body        *BlockGroup
	BlockLimit  int // per-function cap passed to the fixed-point solver; 0 = use default
}

func (f *Func) Type() FuncType {
	params := make([]Type, len(f.Params))
	for i, p := range f.Params {
		params[i] = p.Ty
	}
	return FuncType{Params: params, Ret: f.Ret}
}

func (f *Func) HasAttr(a FuncAttribute) bool { return f.Attrs != nil && f.Attrs[a] }

func (f *Func) SetAttr(a FuncAttribute, v bool) {
	if f.Attrs == nil {
		f.Attrs = map[FuncAttribute]bool{}
	}
	f.Attrs[a] = v
}

// VirtualFuncInfo names the concrete implementation supplying one vtable
// slot.
type VirtualFuncInfo struct {
	Impl *Func
}

// CustomTypeDefKind distinguishes the four CustomTypeDef shapes.
type CustomTypeDefKind uint8

const (
	DefClass CustomTypeDefKind = iota
	DefStruct
	DefEnum
	DefExtend
)

// FieldInfo describes one instance-member slot.
type FieldInfo struct {
	Name string
	Ty   Type
}

// CustomTypeDef is a Class/Struct/Enum/ExtendDef: identifier, package,
// declared generics, implemented interfaces, static members, instance
// layout, methods, and a vtable mapping each implemented ClassType to an
// ordered, order-preserving list of VirtualFuncInfo. The vtable is keyed
// by the parent type's String() rendering, since NominalType holds a
// slice and cannot be a map key.
type CustomTypeDef struct {
	Kind        CustomTypeDefKind
	Name        string
	Package     string
	TypeParams  []GenericType
	Interfaces  []NominalType
	StaticVars  []*GlobalVar
	Fields      []FieldInfo
	Methods     []*Func
	Vtable      map[string][]VirtualFuncInfo
	CompilerAdd bool // true for a synthesized `[COMPILER_ADD] extend T <: I {}`
}

func (d *CustomTypeDef) AsType() NominalType {
	k := KindClass
	switch d.Kind {
	case DefStruct:
		k = KindStruct
	case DefEnum:
		k = KindEnum
	}
	args := make([]Type, len(d.TypeParams))
	for i, tp := range d.TypeParams {
		args[i] = tp
	}
	return NominalType{Kind: k, Package: d.Package, Name: d.Name, Args: args}
}

// Package is a named unit owning GlobalVars, GlobalFuncs, CustomTypeDefs,
// ImportedValues, and a package-init Func.
type Package struct {
	Name           string
	GlobalVars     []*GlobalVar
	Funcs          []*Func
	Classes        []*CustomTypeDef
	Structs        []*CustomTypeDef
	Enums          []*CustomTypeDef
	Extends        []*CustomTypeDef
	ImportedVars   []*ImportedVar
	ImportedFuncs  []*ImportedFunc
	ImportedTypes  []*CustomTypeDef
	InitFunc       *Func
}

// AllCustomTypeDefs returns every Class/Struct/Enum/Extend def declared
// in the package, used by unused-import pruning's reachability walk and
// by vtable synthesis.
func (p *Package) AllCustomTypeDefs() []*CustomTypeDef {
	all := make([]*CustomTypeDef, 0, len(p.Classes)+len(p.Structs)+len(p.Enums)+len(p.Extends))
	all = append(all, p.Classes...)
	all = append(all, p.Structs...)
	all = append(all, p.Enums...)
	all = append(all, p.Extends...)
	return all
}

func (p *Package) FuncByName(name string) *Func {
	for _, f := range p.Funcs {
		if f.Name == name {
			return f
		}
	}
	return nil
}
