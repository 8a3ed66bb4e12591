package passes

import "chir/internal/chir"

// resolveChains follows a chain of substitutions (a→b, b→c) down to its
// final target, so propagation rounds that fire back-to-back on the same
// function don't leave a dangling intermediate reference.
func resolveChains(subst map[chir.Value]chir.Value) map[chir.Value]chir.Value {
	out := make(map[chir.Value]chir.Value, len(subst))
	for k := range subst {
		v := k
		for seen := map[chir.Value]bool{}; ; {
			next, ok := subst[v]
			if !ok || seen[v] {
				break
			}
			seen[v] = true
			v = next
		}
		out[k] = v
	}
	return out
}

func resolve(subst map[chir.Value]chir.Value, v chir.Value) chir.Value {
	if r, ok := subst[v]; ok {
		return r
	}
	return v
}

// applySubstitution rewrites every operand across f's body that appears
// as a key of subst to subst's resolved value, covering every Expression
// and Terminator kind that can reference a Value.
func applySubstitution(f *chir.Func, subst map[chir.Value]chir.Value) {
	if f.Body == nil || len(subst) == 0 {
		return
	}
	for _, b := range f.Body.Blocks {
		for _, e := range b.Exprs {
			substExpr(e, subst)
		}
		if b.Term != nil {
			substExpr(b.Term, subst)
		}
	}
}

func substExpr(e chir.Expression, subst map[chir.Value]chir.Value) {
	switch v := e.(type) {
	case *chir.UnaryExpr:
		v.Operand = resolve(subst, v.Operand)
	case *chir.BinaryExpr:
		v.Left = resolve(subst, v.Left)
		v.Right = resolve(subst, v.Right)
	case *chir.TypeCastExpr:
		v.Operand = resolve(subst, v.Operand)
	case *chir.ApplyExpr:
		v.Callee = resolve(subst, v.Callee)
		substSlice(v.Args, subst)
	case *chir.InvokeExpr:
		v.Receiver = resolve(subst, v.Receiver)
		substSlice(v.Args, subst)
	case *chir.RawArrayAllocateExpr:
		v.Size = resolve(subst, v.Size)
	case *chir.FieldLoadExpr:
		v.Base = resolve(subst, v.Base)
	case *chir.FieldStoreExpr:
		v.Base = resolve(subst, v.Base)
		v.Value = resolve(subst, v.Value)
	case *chir.VArrayGetExpr:
		v.Base = resolve(subst, v.Base)
		v.Index = resolve(subst, v.Index)
	case *chir.VArraySetExpr:
		v.Base = resolve(subst, v.Base)
		v.Index = resolve(subst, v.Index)
		v.Value = resolve(subst, v.Value)
	case *chir.RangeCtorExpr:
		v.Start = resolve(subst, v.Start)
		v.End = resolve(subst, v.End)
		v.Step = resolve(subst, v.Step)
	case *chir.Branch:
		v.Cond = resolve(subst, v.Cond)
	case *chir.MultiBranch:
		v.Selector = resolve(subst, v.Selector)
	case *chir.Exit:
		if v.Value != nil {
			v.Value = resolve(subst, v.Value)
		}
	case *chir.RaiseException:
		v.Exception = resolve(subst, v.Exception)
	case *chir.ApplyWithException:
		v.Callee = resolve(subst, v.Callee)
		substSlice(v.Args, subst)
	case *chir.InvokeWithException:
		v.Receiver = resolve(subst, v.Receiver)
		substSlice(v.Args, subst)
	case *chir.IntOpWithException:
		v.Left = resolve(subst, v.Left)
		if !v.IsUnary {
			v.Right = resolve(subst, v.Right)
		}
	case *chir.TypeCastWithException:
		v.Operand = resolve(subst, v.Operand)
	case *chir.IntrinsicWithException:
		substSlice(v.Args, subst)
	}
}

func substSlice(vs []chir.Value, subst map[chir.Value]chir.Value) {
	for i, v := range vs {
		vs[i] = resolve(subst, v)
	}
}
