package interp

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"chir/internal/chir"
	"chir/internal/sint"
)

// sign is a tiny four-point lattice used only to exercise the engine:
// unknown (bottom), negative, nonNegative, and top.
type sign int

const (
	signBottom sign = iota
	signNeg
	signNonNeg
	signTop
)

func joinSign(a, b sign) sign {
	if a == signBottom {
		return b
	}
	if b == signBottom {
		return a
	}
	if a == b {
		return a
	}
	return signTop
}

// signState is a minimal Domain: a flat map from SSA value to sign,
// with whole-state Join/Equals/Copy built from joinSign.
type signState struct {
	vals map[chir.Value]sign
}

func newSignState() *signState { return &signState{vals: map[chir.Value]sign{}} }

func (s *signState) Bottom() Domain { return newSignState() }
func (s *signState) Top() Domain    { return &signState{vals: nil} } // nil = "every value is top"

func (s *signState) Join(other Domain) Domain {
	o := other.(*signState)
	if s.vals == nil || o.vals == nil {
		return &signState{vals: nil}
	}
	out := newSignState()
	for v, sg := range s.vals {
		out.vals[v] = sg
	}
	for v, sg := range o.vals {
		out.vals[v] = joinSign(out.vals[v], sg)
	}
	return out
}

func (s *signState) Copy() Domain {
	if s.vals == nil {
		return &signState{vals: nil}
	}
	out := newSignState()
	for v, sg := range s.vals {
		out.vals[v] = sg
	}
	return out
}

func (s *signState) Equals(other Domain) bool {
	o := other.(*signState)
	if (s.vals == nil) != (o.vals == nil) {
		return false
	}
	if s.vals == nil {
		return true
	}
	if len(s.vals) != len(o.vals) {
		return false
	}
	for v, sg := range s.vals {
		if o.vals[v] != sg {
			return false
		}
	}
	return true
}

func (s *signState) get(v chir.Value) sign {
	if s.vals == nil {
		return signTop
	}
	return s.vals[v]
}

func (s *signState) set(v chir.Value, sg sign) *signState {
	s.vals[v] = sg
	return s
}

// signAnalysis propagates a literal's known sign through Constant nodes
// and leaves everything else alone; it's just enough behavior to verify
// the engine merges, re-evaluates, and terminates correctly.
type signAnalysis struct{}

func (signAnalysis) InitialState(f *chir.Func) Domain { return newSignState() }

func (signAnalysis) TransferExpr(state Domain, expr chir.Expression) Domain {
	s := state.(*signState).Copy().(*signState)
	if c, ok := expr.(*chir.Constant); ok && c.Result() != nil {
		if c.Value.Kind == chir.LitInt && c.Value.Int.SVal() < 0 {
			s.set(c.Result(), signNeg)
		} else {
			s.set(c.Result(), signNonNeg)
		}
	}
	return s
}

func (signAnalysis) TransferTerminator(state Domain, term chir.Terminator) (Domain, *chir.Block) {
	return state, nil
}

func buildSignDiamond() (*chir.Func, *chir.LocalVar) {
	entry := &chir.Block{Label: "entry"}
	thenB := &chir.Block{Label: "then"}
	elseB := &chir.Block{Label: "else"}
	join := &chir.Block{Label: "join"}

	result := &chir.LocalVar{Name: "x", Ty: chir.IntType{}}
	cond := &chir.Parameter{Name: "cond", Ty: chir.BoolType{}}

	constExpr := chir.NewConstant(1, result, chir.Range{}, chir.IntLiteral(sint.FromSigned(sint.I32, 5)))
	thenB.Exprs = []chir.Expression{constExpr}

	entry.Term = chir.NewBranch(2, chir.Range{}, cond, thenB, elseB)
	thenB.Term = chir.NewGoto(3, chir.Range{}, join)
	elseB.Term = chir.NewGoto(4, chir.Range{}, join)
	join.Term = chir.NewExit(5, chir.Range{}, nil)

	group := &chir.BlockGroup{Entry: entry, Blocks: []*chir.Block{entry, thenB, elseB, join}}
	group.RebuildEdges()

	return &chir.Func{Name: "f", Params: []*chir.Parameter{cond}, Ret: chir.UnitType{}, Body: group}, result
}

func TestEngineFixedPointOverDiamond(t *testing.T) {
	f, result := buildSignDiamond()
	eng := NewEngine(DefaultBlockLimit)
	res := eng.Run(f, signAnalysis{})

	joinBlock := f.Body.Blocks[3]
	bs := res.Blocks[joinBlock]
	require.NotNil(t, bs.Entry)

	st := bs.Entry.(*signState)
	assert.Equal(t, signNonNeg, st.get(result))
}

func TestEngineMarksUnreachableBlocks(t *testing.T) {
	f, _ := buildSignDiamond()
	dead := &chir.Block{Label: "dead", Term: chir.NewExit(6, chir.Range{}, nil)}
	f.Body.Blocks = append(f.Body.Blocks, dead)
	f.Body.RebuildEdges()

	eng := NewEngine(DefaultBlockLimit)
	res := eng.Run(f, signAnalysis{})

	assert.True(t, res.Reachable[f.Body.Entry])
	assert.False(t, res.Reachable[dead])
}

func TestVisitorSeesEveryExpression(t *testing.T) {
	f, result := buildSignDiamond()
	eng := NewEngine(DefaultBlockLimit)
	res := eng.Run(f, signAnalysis{})

	var seen []chir.Expression
	res.Visit(&recordingVisitor{before: func(d Domain, e chir.Expression, i int) {
		seen = append(seen, e)
	}})
	require.NotEmpty(t, seen)
	_ = result
}

type recordingVisitor struct {
	before func(Domain, chir.Expression, int)
}

func (v *recordingVisitor) BeforeExpr(d Domain, e chir.Expression, i int) { v.before(d, e, i) }
func (v *recordingVisitor) AfterExpr(Domain, chir.Expression, int)        {}
func (v *recordingVisitor) OnTerminator(Domain, chir.Terminator, *chir.Block) {}

func TestRefTrackerAliasSharesIdentity(t *testing.T) {
	tr := NewRefTracker()
	a := &chir.LocalVar{Name: "a"}
	b := &chir.LocalVar{Name: "b"}

	obj := tr.Allocate(a, chir.NominalType{Name: "Box"})
	tr.FieldStore(a, 0, 42)
	tr.AliasTo(a, b)

	got, ok := tr.FieldLoad(b, 0)
	require.True(t, ok)
	assert.Equal(t, 42, got)
	assert.Equal(t, obj.ID, mustObjID(t, tr, b))
}

func mustObjID(t *testing.T, tr *RefTracker, v chir.Value) ObjectID {
	obj, ok := tr.Lookup(v)
	require.True(t, ok)
	return obj.ID
}

func TestRefTrackerCopyIsIndependent(t *testing.T) {
	tr := NewRefTracker()
	a := &chir.LocalVar{Name: "a"}
	tr.Allocate(a, chir.NominalType{Name: "Box"})
	tr.FieldStore(a, 0, 1)

	snap := tr.Copy()
	tr.FieldStore(a, 0, 2)

	got, _ := snap.FieldLoad(a, 0)
	assert.Equal(t, 1, got)
}

func TestGlobalStoreInitThenGet(t *testing.T) {
	s := NewGlobalStore()
	g := &chir.GlobalVar{Name: "g", ReadOnly: true}

	_, ok := s.Get(g)
	assert.False(t, ok)

	s.Init(g, 99)
	v, ok := s.Get(g)
	require.True(t, ok)
	assert.Equal(t, 99, v)

	s.Clear()
	_, ok = s.Get(g)
	assert.False(t, ok)
}

func TestTrackedFiltersByBaseType(t *testing.T) {
	assert.True(t, Tracked(&chir.GlobalVar{Ty: chir.IntType{}}))
	assert.True(t, Tracked(&chir.GlobalVar{Ty: chir.NominalType{Kind: chir.KindStruct}}))
	assert.False(t, Tracked(&chir.GlobalVar{Ty: chir.NominalType{Kind: chir.KindClass}}))
	assert.False(t, Tracked(&chir.GlobalVar{Ty: chir.FuncType{}}))
}
