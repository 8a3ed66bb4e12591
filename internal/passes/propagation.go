package passes

import (
	deadlock "github.com/sasha-s/go-deadlock"

	"chir/internal/chir"
	"chir/internal/constanalysis"
	"chir/internal/diag"
	"chir/internal/interp"
	"chir/internal/rangeanalysis"
	"chir/internal/schedule"
)

// EffectMap links a consumed GlobalVar's qualified name to the functions
// whose propagation result depends on it, for incremental compilation to
// consult later. Guarded by go-deadlock since it's written from parallel
// per-function passes.
type EffectMap struct {
	mu      deadlock.Mutex
	byGlobal map[string][]string
}

func NewEffectMap() *EffectMap {
	return &EffectMap{byGlobal: map[string][]string{}}
}

func (m *EffectMap) record(global, fn string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, existing := range m.byGlobal[global] {
		if existing == fn {
			return
		}
	}
	m.byGlobal[global] = append(m.byGlobal[global], fn)
}

// AffectedBy returns every function recorded as depending on global.
func (m *EffectMap) AffectedBy(global string) []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.byGlobal[global]...)
}

// ConstRangePropagation re-runs constant and range analysis
// per function, rewrites known-literal Results to Constant expressions,
// folds a handful of trivial algebraic identities, and collapses
// Branch/MultiBranch terminators with a provably known successor to Goto.
type ConstRangePropagation struct {
	Reporter  *diag.Reporter
	Effects   *EffectMap
	blockLimit int
}

func NewConstRangePropagation(reporter *diag.Reporter) *ConstRangePropagation {
	return &ConstRangePropagation{Reporter: reporter, Effects: NewEffectMap()}
}

func (p *ConstRangePropagation) Name() string { return "ConstRangePropagation" }
func (p *ConstRangePropagation) Description() string {
	return "folds known-constant results, simplifies trivial identities, collapses known branches"
}

// Apply dispatches one task per eligible function (package funcs plus
// every CustomTypeDef method), weighted by block count, onto
// internal/schedule's worker pool. Each task only ever mutates its own
// Func; EffectMap is the one piece of cross-task shared state, and it
// guards itself.
func (p *ConstRangePropagation) Apply(pkg *chir.Package) bool {
	eng := interp.NewEngine(p.blockLimit)
	funcs := append([]*chir.Func(nil), pkg.Funcs...)
	for _, td := range pkg.AllCustomTypeDefs() {
		funcs = append(funcs, td.Methods...)
	}

	var mu deadlock.Mutex
	changed := false
	errs := schedule.DispatchFuncs(0, funcs, func(f *chir.Func) error {
		if p.applyFunc(eng, f) {
			mu.Lock()
			changed = true
			mu.Unlock()
		}
		return nil
	})
	for _, err := range errs {
		if p.Reporter != nil && err != nil {
			p.Reporter.Report(diag.New(diag.InternalPassFailure, chir.Range{}, err.Error()))
		}
	}
	return changed
}

func (p *ConstRangePropagation) applyFunc(eng *interp.Engine, f *chir.Func) bool {
	globals := collectReadGlobals(f)
	for _, g := range globals {
		p.Effects.record(g.ValueName(), f.Name)
	}

	ca := &constanalysis.Analysis{Reporter: p.Reporter, Stable: true}
	caRes := eng.Run(f, ca)
	ra := &rangeanalysis.Analysis{Reporter: p.Reporter, Stable: true}
	raRes := eng.Run(f, ra)

	changed := false
	subst := map[chir.Value]chir.Value{}

	for _, b := range f.Body.Blocks {
		bs := caRes.Blocks[b]
		if bs == nil || bs.Entry == nil {
			continue
		}
		for i, e := range b.Exprs {
			if foldToConstant(b, i, e, bs) {
				changed = true
				continue
			}
			if target, ok := trivialIdentity(e); ok {
				subst[e.Result()] = target
				changed = true
			}
		}
		if rewriteKnownTerminator(b, caRes, raRes) {
			changed = true
		}
	}

	if len(subst) > 0 {
		applySubstitution(f, resolveChains(subst))
	}
	if changed {
		f.Body.RebuildEdges()
	}
	return changed
}

// foldToConstant rewrites b.Exprs[i] to a Constant node carrying e's known
// value, in place, preserving e's ID/Result/SrcRange.
func foldToConstant(b *chir.Block, i int, e chir.Expression, bs *interp.BlockStates) bool {
	res := e.Result()
	if res == nil {
		return false
	}
	if _, already := e.(*chir.Constant); already {
		return false
	}
	after, ok := bs.ExprAfter[e]
	if !ok {
		return false
	}
	d, ok := after.(*constanalysis.Domain)
	if !ok {
		return false
	}
	c, ok := d.Get(res)
	if !ok {
		return false
	}
	lit, ok := c.ToLiteral()
	if !ok {
		return false
	}
	newExpr := chir.NewConstant(e.ID(), res, e.SrcRange(), lit)
	newExpr.SetBlock(b)
	res.Def = newExpr
	b.Exprs[i] = newExpr
	return true
}

// trivialIdentity recognizes the handful of algebraic identities this pass
// names explicitly: a+0→a, a-0→a, a*1→a, !(!x)→x. It reports the operand
// e's Result should be replaced by everywhere it's used.
func trivialIdentity(e chir.Expression) (chir.Value, bool) {
	switch v := e.(type) {
	case *chir.BinaryExpr:
		switch v.Op {
		case chir.OpAdd:
			if isLiteralZero(v.Right) {
				return v.Left, true
			}
			if isLiteralZero(v.Left) {
				return v.Right, true
			}
		case chir.OpSub:
			if isLiteralZero(v.Right) {
				return v.Left, true
			}
		case chir.OpMul:
			if isLiteralOne(v.Right) {
				return v.Left, true
			}
			if isLiteralOne(v.Left) {
				return v.Right, true
			}
		}
	case *chir.UnaryExpr:
		if v.Op == chir.OpNot {
			if lv, ok := v.Operand.(*chir.LocalVar); ok {
				if inner, ok := lv.Def.(*chir.UnaryExpr); ok && inner.Op == chir.OpNot {
					return inner.Operand, true
				}
			}
		}
	}
	return nil, false
}

func asLiteral(v chir.Value) (*chir.LiteralValue, bool) {
	if lit, ok := v.(*chir.LiteralValue); ok {
		return lit, true
	}
	if lv, ok := v.(*chir.LocalVar); ok {
		if c, ok := lv.Def.(*chir.Constant); ok {
			return c.Value, true
		}
	}
	return nil, false
}

func isLiteralZero(v chir.Value) bool {
	lit, ok := asLiteral(v)
	if !ok {
		return false
	}
	switch lit.Kind {
	case chir.LitInt, chir.LitUInt:
		return lit.Int.IsZero()
	case chir.LitFloat:
		return lit.Float == 0
	default:
		return false
	}
}

func isLiteralOne(v chir.Value) bool {
	lit, ok := asLiteral(v)
	if !ok {
		return false
	}
	switch lit.Kind {
	case chir.LitInt, chir.LitUInt:
		return lit.Int.IsOne()
	case chir.LitFloat:
		return lit.Float == 1
	default:
		return false
	}
}

// rewriteKnownTerminator collapses b.Term to a Goto when either analysis
// proved a single reachable successor.
func rewriteKnownTerminator(b *chir.Block, caRes, raRes *interp.Result) bool {
	if b.Term == nil {
		return false
	}
	if len(b.Term.Successors()) < 2 {
		return false
	}
	var known *chir.Block
	if bs := caRes.Blocks[b]; bs != nil {
		known = bs.KnownSucc
	}
	if known == nil {
		if bs := raRes.Blocks[b]; bs != nil {
			known = bs.KnownSucc
		}
	}
	if known == nil {
		return false
	}
	b.Term = chir.NewGoto(b.Term.ID(), b.Term.SrcRange(), known)
	return true
}

// collectReadGlobals is this package's analogue of constanalysis's
// unexported helper of the same name: a best-effort scan for GlobalVar
// operands a function's body references.
func collectReadGlobals(f *chir.Func) []*chir.GlobalVar {
	var out []*chir.GlobalVar
	if f.Body == nil {
		return nil
	}
	seen := map[*chir.GlobalVar]bool{}
	for _, b := range f.Body.Blocks {
		for _, e := range b.Exprs {
			for _, op := range e.Operands() {
				if g, ok := op.(*chir.GlobalVar); ok && !seen[g] {
					seen[g] = true
					out = append(out, g)
				}
			}
		}
	}
	return out
}
