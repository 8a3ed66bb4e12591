package chirtext

import (
	"fmt"
	"sort"
	"strings"

	"chir/internal/chir"
)

// reverseBinOp/reverseUnOp invert the builder's name tables, used to
// print a BinaryExpr/UnaryExpr back into the `binop`/`unop` mnemonic
// Build understands.
var reverseBinOp = invertBinOp()
var reverseUnOp = invertUnOp()

func invertBinOp() map[chir.BinaryOp]string {
	m := make(map[chir.BinaryOp]string, len(binOpByName))
	for name, op := range binOpByName {
		m[op] = name
	}
	return m
}

func invertUnOp() map[chir.UnaryOp]string {
	m := make(map[chir.UnaryOp]string, len(unOpByName))
	for name, op := range unOpByName {
		m[op] = name
	}
	return m
}

// Print renders pkg in chirtext notation, the inverse of Build for the
// instruction subset the grammar covers. cmd/chirtool uses this to show
// before/after IR around a pass pipeline run; it is not meant to
// round-trip memory/exception/virtual-dispatch nodes, which this
// notation doesn't model — those print as a `; unsupported: <Go type>`
// comment line instead of a parseable instruction.
func Print(pkg *chir.Package) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "package %s\n", pkg.Name)

	for _, iv := range pkg.ImportedVars {
		fmt.Fprintf(&sb, "import var %s.%s : %s\n", iv.Package, iv.Name, iv.Ty.String())
	}
	for _, ifn := range pkg.ImportedFuncs {
		fmt.Fprintf(&sb, "import fn %s.%s(%s): %s\n", ifn.Package, ifn.Name, joinTypes(ifn.Ty.Params), ifn.Ty.Ret.String())
	}
	for _, g := range pkg.GlobalVars {
		ro := ""
		if g.ReadOnly {
			ro = "readonly "
		}
		fmt.Fprintf(&sb, "global %s%s : %s\n", ro, g.Name, g.Ty.String())
	}

	names := make([]string, 0, len(pkg.Funcs))
	byName := map[string]*chir.Func{}
	for _, f := range pkg.Funcs {
		names = append(names, f.Name)
		byName[f.Name] = f
	}
	sort.Strings(names)
	for _, n := range names {
		printFunc(&sb, byName[n])
	}
	return sb.String()
}

func joinTypes(ts []chir.Type) string {
	parts := make([]string, len(ts))
	for i, t := range ts {
		parts[i] = t.String()
	}
	return strings.Join(parts, ", ")
}

// PrintFunc renders a single function in isolation, the form
// internal/chirserver hands back for a "dump analysis state for function
// F" request instead of the whole package Print produces.
func PrintFunc(f *chir.Func) string {
	var sb strings.Builder
	printFunc(&sb, f)
	return sb.String()
}

func printFunc(sb *strings.Builder, f *chir.Func) {
	attrs := attrNames(f)
	if len(attrs) > 0 {
		fmt.Fprintf(sb, "fn [%s] %s(", strings.Join(attrs, ", "), f.Name)
	} else {
		fmt.Fprintf(sb, "fn %s(", f.Name)
	}
	params := make([]string, len(f.Params))
	for i, p := range f.Params {
		params[i] = p.Name + ": " + p.Ty.String()
	}
	fmt.Fprintf(sb, "%s): %s {\n", strings.Join(params, ", "), f.Ret.String())

	if f.Body != nil {
		for _, blk := range f.Body.Blocks {
			printBlock(sb, blk)
		}
	}
	sb.WriteString("}\n")
}

var attrPrintOrder = []struct {
	attr chir.FuncAttribute
	name string
}{
	{chir.AttrGeneric, "generic"}, {chir.AttrNoReflectInfo, "no_reflect"}, {chir.AttrForeign, "foreign"},
	{chir.AttrCompilerAdd, "compiler_add"}, {chir.AttrReadOnly, "readonly"}, {chir.AttrNoSideEffect, "no_side_effect"},
	{chir.AttrExported, "exported"}, {chir.AttrVirtual, "virtual"},
}

func attrNames(f *chir.Func) []string {
	var out []string
	for _, a := range attrPrintOrder {
		if f.HasAttr(a.attr) {
			out = append(out, a.name)
		}
	}
	return out
}

func printBlock(sb *strings.Builder, blk *chir.Block) {
	fmt.Fprintf(sb, "%s:\n", blk.Label)
	for _, e := range blk.Exprs {
		sb.WriteString("  ")
		sb.WriteString(printExpr(e))
		sb.WriteString("\n")
	}
	if blk.Term != nil {
		sb.WriteString("  ")
		sb.WriteString(printTerm(blk.Term))
		sb.WriteString("\n")
	}
}

func printExpr(e chir.Expression) string {
	result := ""
	if r := e.Result(); r != nil {
		result = "%" + r.Name + " = "
	}
	switch v := e.(type) {
	case *chir.Constant:
		return result + "const " + v.Value.Type().String() + " " + v.Value.ValueName()
	case *chir.BinaryExpr:
		return result + "binop " + reverseBinOp[v.Op] + " " + v.Left.ValueName() + ", " + v.Right.ValueName()
	case *chir.UnaryExpr:
		return result + "unop " + reverseUnOp[v.Op] + " " + v.Operand.ValueName()
	case *chir.ApplyExpr:
		return result + "call " + v.Callee.ValueName() + "(" + joinValueNames(v.Args) + ")"
	case *chir.TypeCastExpr:
		return result + "cast " + v.Dest.String() + " " + v.Operand.ValueName()
	default:
		return fmt.Sprintf("; unsupported: %T", e)
	}
}

func joinValueNames(vs []chir.Value) string {
	parts := make([]string, len(vs))
	for i, v := range vs {
		parts[i] = v.ValueName()
	}
	return strings.Join(parts, ", ")
}

func printTerm(t chir.Terminator) string {
	switch v := t.(type) {
	case *chir.Goto:
		return "goto " + v.Target.Label
	case *chir.Branch:
		return "branch " + v.Cond.ValueName() + " " + v.True.Label + " " + v.False.Label
	case *chir.Exit:
		if v.Value == nil {
			return "exit"
		}
		return "exit " + v.Value.ValueName()
	default:
		return fmt.Sprintf("; unsupported terminator: %T", t)
	}
}
