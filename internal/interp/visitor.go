package interp

import "chir/internal/chir"

// Visitor observes the states an Engine.Run stabilized, one reachable
// block at a time in source order, the engine's result visitor. Passes
// record rewrites during these callbacks and apply them after Visit
// returns; the engine itself never mutates IR.
type Visitor interface {
	BeforeExpr(state Domain, expr chir.Expression, index int)
	AfterExpr(state Domain, expr chir.Expression, index int)
	OnTerminator(state Domain, term chir.Terminator, knownSucc *chir.Block)
}

// Visit walks every reachable block of r.Func's body in declaration
// order, replaying the recorded before/after states through v.
func (r *Result) Visit(v Visitor) {
	for _, b := range r.Func.Body.Blocks {
		if r.Reachable != nil && !r.Reachable[b] {
			continue
		}
		bs := r.Blocks[b]
		if bs == nil || bs.Entry == nil {
			continue
		}
		for i, expr := range b.Exprs {
			if before, ok := bs.ExprBefore[expr]; ok {
				v.BeforeExpr(before, expr, i)
			}
			if after, ok := bs.ExprAfter[expr]; ok {
				v.AfterExpr(after, expr, i)
			}
		}
		if b.Term != nil && bs.TermBefore != nil {
			v.OnTerminator(bs.TermBefore, b.Term, bs.KnownSucc)
		}
	}
}
