package chir

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"chir/internal/sint"
)

func TestTypeStrings(t *testing.T) {
	assert.Equal(t, "Int32", IntType{Width: sint.I32}.String())
	assert.Equal(t, "UInt8", UIntType{Width: sint.I8}.String())
	assert.Equal(t, "Bool", BoolType{}.String())
	assert.Equal(t, "(Int32, Bool)", TupleType{Elements: []Type{IntType{Width: sint.I32}, BoolType{}}}.String())
	assert.Equal(t, "VArray<Int64, $10>", VArrayType{Elem: IntType{Width: sint.I64}, Size: 10}.String())
}

func TestIsIntegerType(t *testing.T) {
	w, signed, ok := IsIntegerType(IntType{Width: sint.I32})
	require.True(t, ok)
	assert.Equal(t, sint.I32, w)
	assert.True(t, signed)

	_, _, ok = IsIntegerType(BoolType{})
	assert.False(t, ok)
}

func TestLiteralConstructors(t *testing.T) {
	lit := IntLiteral(sint.FromSigned(sint.I32, 42))
	assert.Equal(t, "42", lit.ValueName())
	assert.Equal(t, IntType{Width: sint.I32}, lit.Type())

	b := BoolLiteral(true)
	assert.Equal(t, "true", b.ValueName())
}

// buildDiamond builds: entry -BRANCH-> {thenB, elseB} -GOTO-> join -EXIT
func buildDiamond(t *testing.T) *Func {
	entry := &Block{Label: "entry"}
	thenB := &Block{Label: "then"}
	elseB := &Block{Label: "else"}
	join := &Block{Label: "join"}

	cond := &Parameter{Name: "cond", Ty: BoolType{}}
	entry.Term = NewBranch(1, Range{}, cond, thenB, elseB)
	thenB.Term = NewGoto(2, Range{}, join)
	elseB.Term = NewGoto(3, Range{}, join)
	join.Term = NewExit(4, Range{}, nil)

	group := &BlockGroup{Entry: entry, Blocks: []*Block{entry, thenB, elseB, join}}
	group.RebuildEdges()

	return &Func{
		Name: "f",
		Params: []*Parameter{cond},
		Ret:    UnitType{},
		Body:   group,
	}
}

func TestRebuildEdges(t *testing.T) {
	f := buildDiamond(t)
	entry := f.Body.Blocks[0]
	join := f.Body.Blocks[3]

	require.Len(t, entry.Successors, 2)
	assert.Len(t, join.Predecessors, 2)
	assert.Empty(t, join.Successors)
}

func TestReachableFromExcludesDeadBlock(t *testing.T) {
	f := buildDiamond(t)
	dead := &Block{Label: "dead", Term: NewExit(5, Range{}, nil)}
	f.Body.Blocks = append(f.Body.Blocks, dead)
	f.Body.RebuildEdges()

	reachable := f.Body.ReachableFrom(f.Body.Entry)
	assert.True(t, reachable[f.Body.Blocks[0]])
	assert.True(t, reachable[f.Body.Blocks[3]])
	assert.False(t, reachable[dead])
}

func TestFuncAttrs(t *testing.T) {
	f := &Func{Name: "g"}
	assert.False(t, f.HasAttr(AttrReadOnly))
	f.SetAttr(AttrReadOnly, true)
	assert.True(t, f.HasAttr(AttrReadOnly))
}

func TestCustomTypeDefAsType(t *testing.T) {
	d := &CustomTypeDef{Kind: DefStruct, Name: "Point", Package: "geo"}
	ty := d.AsType()
	assert.Equal(t, KindStruct, ty.Kind)
	assert.Equal(t, "geo.Point", ty.String())
}

func TestPackageAllCustomTypeDefs(t *testing.T) {
	pkg := &Package{
		Classes: []*CustomTypeDef{{Name: "C"}},
		Structs: []*CustomTypeDef{{Name: "S"}},
	}
	all := pkg.AllCustomTypeDefs()
	assert.Len(t, all, 2)
}
