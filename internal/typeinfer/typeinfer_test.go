package typeinfer

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"chir/internal/chir"
	"chir/internal/diag"
)

func TestIsSubtypeWidensNumericFamily(t *testing.T) {
	u := NewUniverse()
	assert.True(t, IsSubtype(u, chir.IntType{Width: 8}, chir.IntType{Width: 32}))
	assert.False(t, IsSubtype(u, chir.IntType{Width: 32}, chir.IntType{Width: 8}))
	assert.True(t, IsSubtype(u, chir.IdealIntType{}, chir.IntType{Width: 64}))
	assert.False(t, IsSubtype(u, chir.IntType{Width: 8}, chir.UIntType{Width: 8}))
}

func TestPromoteWalksDeclaredInterfaces(t *testing.T) {
	u := NewUniverse()
	iface := chir.NominalType{Kind: chir.KindInterface, Package: "p", Name: "Comparable"}
	impl := &chir.CustomTypeDef{Kind: chir.DefClass, Package: "p", Name: "Box",
		Interfaces: []chir.NominalType{iface}}
	u.Register(impl)

	got := Promote(u, impl.AsType(), iface)
	require.NotNil(t, got)
	assert.Equal(t, "Comparable", got.Name)
}

func TestSynthesizeSolvesSingleTyVarFromArgument(t *testing.T) {
	tv := &TyVar{Name: "T", IsPlaceholder: true}
	pack := LocTyArgSynArgPack{
		TyVarsToSolve: []*TyVar{tv},
		ArgTys:        []chir.Type{chir.IntType{Width: 32}},
		ParamTys:      []chir.Type{chir.GenericType{Name: "T"}},
		ArgBlames:     []Blame{"arg0"},
	}
	res, err := Synthesize(NewUniverse(), pack, nil)
	require.NoError(t, err)
	require.Empty(t, res.Diagnostics)
	require.Contains(t, res.Subst, tv)
	assert.Equal(t, chir.IntType{Width: 32}, res.Subst[tv])
}

func TestSynthesizeJoinsMultipleArgumentsToWidestWidth(t *testing.T) {
	tv := &TyVar{Name: "T", IsPlaceholder: true}
	pack := LocTyArgSynArgPack{
		TyVarsToSolve: []*TyVar{tv},
		ArgTys:        []chir.Type{chir.IntType{Width: 8}, chir.IntType{Width: 32}},
		ParamTys:      []chir.Type{chir.GenericType{Name: "T"}, chir.GenericType{Name: "T"}},
		ArgBlames:     []Blame{"a", "b"},
	}
	res, err := Synthesize(NewUniverse(), pack, nil)
	require.NoError(t, err)
	require.Empty(t, res.Diagnostics)
	assert.Equal(t, chir.IntType{Width: 32}, res.Subst[tv])
}

func TestSynthesizeConcretizesUnresolvedIdeal(t *testing.T) {
	tv := &TyVar{Name: "T", IsPlaceholder: true}
	pack := LocTyArgSynArgPack{
		TyVarsToSolve: []*TyVar{tv},
		ArgTys:        []chir.Type{chir.IdealIntType{}},
		ParamTys:      []chir.Type{chir.GenericType{Name: "T"}},
		ArgBlames:     []Blame{"lit"},
	}
	res, err := Synthesize(NewUniverse(), pack, nil)
	require.NoError(t, err)
	require.Empty(t, res.Diagnostics)
	assert.Equal(t, chir.IntType{Width: 64}, res.Subst[tv])
}

func TestSynthesizeReportsArgMismatch(t *testing.T) {
	// No TyVar involved on either side: Bool can never satisfy an Int32
	// parameter, so Unify must fail outright at step 2.
	pack := LocTyArgSynArgPack{
		ArgTys:    []chir.Type{chir.BoolType{}},
		ParamTys:  []chir.Type{chir.IntType{Width: 32}},
		ArgBlames: []Blame{"arg0"},
	}
	res, err := Synthesize(NewUniverse(), pack, nil)
	require.NoError(t, err)
	require.Len(t, res.Diagnostics, 1)
	assert.Equal(t, diag.ArgMismatch, res.Diagnostics[0].Kind)
}

func TestSynthesizeRejectsMismatchedPackVectors(t *testing.T) {
	pack := LocTyArgSynArgPack{
		ArgTys:    []chir.Type{chir.IntType{Width: 32}},
		ParamTys:  []chir.Type{chir.GenericType{Name: "T"}, chir.GenericType{Name: "U"}},
		ArgBlames: []Blame{"arg0"},
	}
	_, err := Synthesize(NewUniverse(), pack, nil)
	require.Error(t, err)
}

func TestJoinAndMeetPrimitives(t *testing.T) {
	u := NewUniverse()
	j := Join(u, []chir.Type{chir.IntType{Width: 8}, chir.IntType{Width: 64}})
	assert.Equal(t, chir.IntType{Width: 64}, j)

	m := Meet(u, []chir.Type{chir.IntType{Width: 8}, chir.IntType{Width: 64}})
	assert.Equal(t, chir.IntType{Width: 8}, m)
}
