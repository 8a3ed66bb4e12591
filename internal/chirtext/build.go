package chirtext

import (
	"fmt"
	"strconv"
	"strings"

	"chir/internal/chir"
	"chir/internal/sint"
)

// Build lowers a parsed Program into a *chir.Package, resolving every
// %local/parameter/global/imported reference by name within each
// function. It covers the instruction subset chirtext's grammar
// supports: const/binop/unop/call/cast plus goto/branch/exit — enough
// to drive internal/passes and internal/interp from a fixture file, not
// a full CHIR encoding (there is no memory/exception/virtual-dispatch
// surface in the text form).
func Build(prog *Program) (*chir.Package, error) {
	b := &builder{pkg: &chir.Package{Name: prog.Package}}

	for _, imp := range prog.Imports {
		switch {
		case imp.FuncImp != nil:
			pkgName, name := splitQualName(imp.FuncImp.QualName)
			params := make([]chir.Type, len(imp.FuncImp.Params))
			for i, p := range imp.FuncImp.Params {
				t, err := b.buildType(p)
				if err != nil {
					return nil, err
				}
				params[i] = t
			}
			ret := chir.Type(chir.UnitType{})
			if imp.FuncImp.Ret != nil {
				t, err := b.buildType(imp.FuncImp.Ret)
				if err != nil {
					return nil, err
				}
				ret = t
			}
			b.pkg.ImportedFuncs = append(b.pkg.ImportedFuncs, &chir.ImportedFunc{
				Name: name, Package: pkgName, Ty: chir.FuncType{Params: params, Ret: ret},
			})
		case imp.VarImp != nil:
			pkgName, name := splitQualName(imp.VarImp.QualName)
			t, err := b.buildType(imp.VarImp.Type)
			if err != nil {
				return nil, err
			}
			b.pkg.ImportedVars = append(b.pkg.ImportedVars, &chir.ImportedVar{Name: name, Package: pkgName, Ty: t})
		}
	}

	for _, g := range prog.Globals {
		t, err := b.buildType(g.Type)
		if err != nil {
			return nil, err
		}
		b.pkg.GlobalVars = append(b.pkg.GlobalVars, &chir.GlobalVar{Name: g.Name, Package: prog.Package, Ty: t, ReadOnly: g.ReadOnly})
	}

	for _, fd := range prog.Funcs {
		f, err := b.buildFunc(fd)
		if err != nil {
			return nil, err
		}
		b.pkg.Funcs = append(b.pkg.Funcs, f)
	}

	return b.pkg, nil
}

func splitQualName(qual string) (pkg, name string) {
	i := strings.LastIndex(qual, ".")
	if i < 0 {
		return "", qual
	}
	return qual[:i], qual[i+1:]
}

type builder struct {
	pkg *chir.Package
}

func (b *builder) buildType(t *TypeRef) (chir.Type, error) {
	if len(t.Args) == 0 {
		switch t.Name {
		case "Bool":
			return chir.BoolType{}, nil
		case "Rune":
			return chir.RuneType{}, nil
		case "Unit":
			return chir.UnitType{}, nil
		case "Nothing":
			return chir.NothingType{}, nil
		case "String":
			return chir.StringType{}, nil
		case "CString":
			return chir.CStringType{}, nil
		case "Any":
			return chir.AnyType{}, nil
		case "IdealInt":
			return chir.IdealIntType{}, nil
		case "IdealFloat":
			return chir.IdealFloatType{}, nil
		}
		if w, ok := intWidth(t.Name, "Int"); ok {
			return chir.IntType{Width: w}, nil
		}
		if w, ok := intWidth(t.Name, "UInt"); ok {
			return chir.UIntType{Width: w}, nil
		}
		if t.Name == "Float32" {
			return chir.FloatType{Width: chir.Float32}, nil
		}
		if t.Name == "Float64" {
			return chir.FloatType{Width: chir.Float64}, nil
		}
		return chir.GenericType{Name: t.Name}, nil
	}
	if t.Name == "Ref" && len(t.Args) == 1 {
		base, err := b.buildType(t.Args[0])
		if err != nil {
			return nil, err
		}
		return chir.RefType{Base: base}, nil
	}
	args := make([]chir.Type, len(t.Args))
	for i, a := range t.Args {
		at, err := b.buildType(a)
		if err != nil {
			return nil, err
		}
		args[i] = at
	}
	return chir.NominalType{Kind: chir.KindClass, Package: b.pkg.Name, Name: t.Name, Args: args}, nil
}

func intWidth(name, prefix string) (sint.Width, bool) {
	if !strings.HasPrefix(name, prefix) {
		return 0, false
	}
	n, err := strconv.Atoi(strings.TrimPrefix(name, prefix))
	if err != nil {
		return 0, false
	}
	return sint.FromBits(uint(n)), true
}

func (b *builder) buildFunc(fd *FuncDecl) (*chir.Func, error) {
	f := &chir.Func{Name: fd.Name, Package: b.pkg.Name}
	for _, a := range fd.Attrs {
		if attr, ok := attrByName[a]; ok {
			f.SetAttr(attr, true)
		}
	}
	for _, p := range fd.Params {
		t, err := b.buildType(p.Type)
		if err != nil {
			return nil, err
		}
		f.Params = append(f.Params, &chir.Parameter{Name: p.Name, Ty: t})
	}
	f.Ret = chir.Type(chir.UnitType{})
	if fd.Ret != nil {
		t, err := b.buildType(fd.Ret)
		if err != nil {
			return nil, err
		}
		f.Ret = t
	}

	fb := &funcBuilder{builder: b, f: f, blocksByLabel: map[string]*chir.Block{}, locals: map[string]*chir.LocalVar{}}
	for _, p := range f.Params {
		fb.params = append(fb.params, p)
	}
	group := &chir.BlockGroup{}
	for i, bd := range fd.Blocks {
		blk := &chir.Block{Label: bd.Label, Group: group}
		group.Blocks = append(group.Blocks, blk)
		fb.blocksByLabel[bd.Label] = blk
		if i == 0 {
			group.Entry = blk
		}
	}
	f.Body = group

	for _, bd := range fd.Blocks {
		blk := fb.blocksByLabel[bd.Label]
		for _, instr := range bd.Instrs {
			expr, err := fb.buildInstr(instr, blk)
			if err != nil {
				return nil, err
			}
			blk.Exprs = append(blk.Exprs, expr)
		}
		term, err := fb.buildTerm(bd.Term, blk)
		if err != nil {
			return nil, err
		}
		blk.Term = term
	}
	group.RebuildEdges()
	return f, nil
}

var attrByName = map[string]chir.FuncAttribute{
	"generic":       chir.AttrGeneric,
	"no_reflect":    chir.AttrNoReflectInfo,
	"foreign":       chir.AttrForeign,
	"compiler_add":  chir.AttrCompilerAdd,
	"readonly":      chir.AttrReadOnly,
	"no_side_effect": chir.AttrNoSideEffect,
	"exported":      chir.AttrExported,
	"virtual":       chir.AttrVirtual,
}

type funcBuilder struct {
	*builder
	f             *chir.Func
	params        []*chir.Parameter
	blocksByLabel map[string]*chir.Block
	locals        map[string]*chir.LocalVar
	nextID        int
}

func (fb *funcBuilder) resolveValue(v *Value) (chir.Value, error) {
	switch {
	case v.Local != "":
		lv, ok := fb.locals[v.Local]
		if !ok {
			return nil, fmt.Errorf("chirtext: undefined local %s", v.Local)
		}
		return lv, nil
	case v.Bool != nil:
		return chir.BoolLiteral(*v.Bool == "true"), nil
	case v.Float != nil:
		return &chir.LiteralValue{Kind: chir.LitFloat, Ty: chir.FloatType{Width: chir.Float64}, Float: *v.Float}, nil
	case v.Int != nil:
		n, err := strconv.ParseInt(*v.Int, 0, 64)
		if err != nil {
			return nil, fmt.Errorf("chirtext: bad integer literal %q: %w", *v.Int, err)
		}
		return chir.IntLiteral(sint.FromSigned(sint.I64, n)), nil
	case v.Str != nil:
		unq, err := strconv.Unquote(*v.Str)
		if err != nil {
			unq = strings.Trim(*v.Str, `"`)
		}
		return &chir.LiteralValue{Kind: chir.LitString, Ty: chir.StringType{}, String: unq}, nil
	default:
		return fb.resolveName(v.Ident)
	}
}

func (fb *funcBuilder) resolveName(name string) (chir.Value, error) {
	for _, p := range fb.params {
		if p.Name == name {
			return p, nil
		}
	}
	for _, g := range fb.pkg.GlobalVars {
		if g.Name == name {
			return g, nil
		}
	}
	for _, iv := range fb.pkg.ImportedVars {
		if iv.Name == name || iv.ValueName() == name {
			return iv, nil
		}
	}
	for _, ifn := range fb.pkg.ImportedFuncs {
		if ifn.Name == name || ifn.ValueName() == name {
			return ifn, nil
		}
	}
	for _, other := range fb.pkg.Funcs {
		if other.Name == name {
			return &chir.FuncValue{Func: other}, nil
		}
	}
	return nil, fmt.Errorf("chirtext: undefined name %q", name)
}

var binOpByName = map[string]chir.BinaryOp{
	"add": chir.OpAdd, "sub": chir.OpSub, "mul": chir.OpMul, "div": chir.OpDiv, "mod": chir.OpMod,
	"exp": chir.OpExp, "lshift": chir.OpLShift, "rshift": chir.OpRShift,
	"lt": chir.OpLt, "le": chir.OpLe, "gt": chir.OpGt, "ge": chir.OpGe,
	"eq": chir.OpEq, "ne": chir.OpNe, "and": chir.OpAnd, "or": chir.OpOr,
	"bitand": chir.OpBitAnd, "bitor": chir.OpBitOr, "bitxor": chir.OpBitXor,
}

var unOpByName = map[string]chir.UnaryOp{
	"neg": chir.OpNeg, "not": chir.OpNot, "bitnot": chir.OpBitNot,
}

// newResult creates the LocalVar an instruction assigns into. name is
// the source token including its leading "%" (used as the locals-map
// key); the LocalVar itself stores the bare identifier, matching how
// every other package in this tree names a LocalVar.
func (fb *funcBuilder) newResult(name string, ty chir.Type) *chir.LocalVar {
	lv := &chir.LocalVar{Name: strings.TrimPrefix(name, "%"), Ty: ty}
	fb.locals[name] = lv
	return lv
}

func (fb *funcBuilder) nextExprID() int {
	fb.nextID++
	return fb.nextID
}

func (fb *funcBuilder) buildInstr(instr *Instr, blk *chir.Block) (chir.Expression, error) {
	switch {
	case instr.Const != nil:
		t, err := fb.buildType(instr.Const.Type)
		if err != nil {
			return nil, err
		}
		lit, err := fb.resolveValue(instr.Const.Val)
		if err != nil {
			return nil, err
		}
		litVal, ok := lit.(*chir.LiteralValue)
		if !ok {
			return nil, fmt.Errorf("chirtext: const requires a literal operand")
		}
		result := fb.newResult(instr.Result, t)
		c := chir.NewConstant(fb.nextExprID(), result, chir.Range{}, litVal)
		c.SetBlock(blk)
		result.Def = c
		return c, nil
	case instr.Binop != nil:
		op, ok := binOpByName[instr.Binop.Op]
		if !ok {
			return nil, fmt.Errorf("chirtext: unknown binop %q", instr.Binop.Op)
		}
		left, err := fb.resolveValue(instr.Binop.Left)
		if err != nil {
			return nil, err
		}
		right, err := fb.resolveValue(instr.Binop.Right)
		if err != nil {
			return nil, err
		}
		result := fb.newResult(instr.Result, left.Type())
		e := chir.NewBinaryExpr(fb.nextExprID(), result, chir.Range{}, op, left, right, chir.Throwing)
		e.SetBlock(blk)
		result.Def = e
		return e, nil
	case instr.Unop != nil:
		op, ok := unOpByName[instr.Unop.Op]
		if !ok {
			return nil, fmt.Errorf("chirtext: unknown unop %q", instr.Unop.Op)
		}
		operand, err := fb.resolveValue(instr.Unop.Operand)
		if err != nil {
			return nil, err
		}
		result := fb.newResult(instr.Result, operand.Type())
		e := chir.NewUnaryExpr(fb.nextExprID(), result, chir.Range{}, op, operand, chir.Throwing)
		e.SetBlock(blk)
		result.Def = e
		return e, nil
	case instr.Call != nil:
		callee, err := fb.resolveName(instr.Call.Callee)
		if err != nil {
			return nil, err
		}
		args := make([]chir.Value, len(instr.Call.Args))
		for i, a := range instr.Call.Args {
			av, err := fb.resolveValue(a)
			if err != nil {
				return nil, err
			}
			args[i] = av
		}
		ft, ok := callee.Type().(chir.FuncType)
		if !ok {
			return nil, fmt.Errorf("chirtext: call target %q is not a function", instr.Call.Callee)
		}
		result := fb.newResult(instr.Result, ft.Ret)
		e := chir.NewApplyExpr(fb.nextExprID(), result, chir.Range{}, callee, args)
		e.SetBlock(blk)
		result.Def = e
		return e, nil
	case instr.Cast != nil:
		t, err := fb.buildType(instr.Cast.Type)
		if err != nil {
			return nil, err
		}
		operand, err := fb.resolveValue(instr.Cast.Operand)
		if err != nil {
			return nil, err
		}
		result := fb.newResult(instr.Result, t)
		e := chir.NewTypeCastExpr(fb.nextExprID(), result, chir.Range{}, operand, t)
		e.SetBlock(blk)
		result.Def = e
		return e, nil
	default:
		return nil, fmt.Errorf("chirtext: empty instruction")
	}
}

func (fb *funcBuilder) buildTerm(t *Term, blk *chir.Block) (chir.Terminator, error) {
	switch {
	case t.Goto != nil:
		target, ok := fb.blocksByLabel[t.Goto.Target]
		if !ok {
			return nil, fmt.Errorf("chirtext: undefined block label %q", t.Goto.Target)
		}
		g := chir.NewGoto(fb.nextExprID(), chir.Range{}, target)
		g.SetBlock(blk)
		return g, nil
	case t.Branch != nil:
		cond, err := fb.resolveValue(t.Branch.Cond)
		if err != nil {
			return nil, err
		}
		tb, ok := fb.blocksByLabel[t.Branch.True]
		if !ok {
			return nil, fmt.Errorf("chirtext: undefined block label %q", t.Branch.True)
		}
		fbk, ok := fb.blocksByLabel[t.Branch.False]
		if !ok {
			return nil, fmt.Errorf("chirtext: undefined block label %q", t.Branch.False)
		}
		br := chir.NewBranch(fb.nextExprID(), chir.Range{}, cond, tb, fbk)
		br.SetBlock(blk)
		return br, nil
	case t.Exit != nil:
		var val chir.Value
		if t.Exit.Value != nil {
			v, err := fb.resolveValue(t.Exit.Value)
			if err != nil {
				return nil, err
			}
			val = v
		}
		e := chir.NewExit(fb.nextExprID(), chir.Range{}, val)
		e.SetBlock(blk)
		return e, nil
	default:
		return nil, fmt.Errorf("chirtext: empty terminator")
	}
}
