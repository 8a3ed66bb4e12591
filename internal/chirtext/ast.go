package chirtext

import "github.com/alecthomas/participle/v2/lexer"

// Program is the root of one textual CHIR unit: a single package with
// its imports, globals, and function bodies, in source order. The
// grammar shape below follows a struct-tag recursive-descent style: each
// field's tag is a participle grammar fragment.
type Program struct {
	Pos     lexer.Position
	Package string        `"package" @Ident`
	Imports []*ImportDecl `@@*`
	Globals []*GlobalDecl `@@*`
	Funcs   []*FuncDecl   `@@*`
}

// ImportDecl is one `import fn ...` or `import var ...` declaration.
// Dotted package-qualified names (`std.io.println`) lex as a single
// Ident token, so the grammar need not model a separate "::"-style
// namespace path — the builder splits on the final "." instead.
type ImportDecl struct {
	Pos     lexer.Position
	FuncImp *ImportFunc `"import" ( @@`
	VarImp  *ImportVar  `          | @@ )`
}

type ImportFunc struct {
	Pos      lexer.Position
	QualName string     `"fn" @Ident "("`
	Params   []*TypeRef `[ @@ { "," @@ } ] ")"`
	Ret      *TypeRef   `[ ":" @@ ]`
}

type ImportVar struct {
	Pos      lexer.Position
	QualName string   `"var" @Ident ":"`
	Type     *TypeRef `@@`
}

// TypeRef is the textual spelling of a chir.Type: a bare name, or a
// name applied to generic/width arguments, e.g. `Int32`, `Ref<Bool>`,
// `Box<T>`.
type TypeRef struct {
	Pos  lexer.Position
	Name string     `@Ident`
	Args []*TypeRef `[ "<" @@ { "," @@ } ">" ]`
}

type GlobalDecl struct {
	Pos      lexer.Position
	ReadOnly bool     `"global" [ @"readonly" ]`
	Name     string   `@Ident ":"`
	Type     *TypeRef `@@`
	Init     *Value   `[ "=" @@ ]`
}

type Param struct {
	Pos  lexer.Position
	Name string   `@Ident ":"`
	Type *TypeRef `@@`
}

type FuncDecl struct {
	Pos    lexer.Position
	Attrs  []string `"fn" [ "[" @Ident { "," @Ident } "]" ]`
	Name   string   `@Ident "("`
	Params []*Param `[ @@ { "," @@ } ] ")"`
	Ret    *TypeRef `[ ":" @@ ]`
	Blocks []*Block `"{" @@* "}"`
}

type Block struct {
	Pos    lexer.Position
	Label  string   `@Ident ":"`
	Instrs []*Instr `@@*`
	Term   *Term    `@@`
}

// Instr is one value-producing instruction: `%result = <kind> ...`.
// Each alternative begins with a distinct keyword so the grammar never
// needs backtracking to disambiguate.
type Instr struct {
	Pos    lexer.Position
	Result string      `@Local "="`
	Const  *ConstInstr `( @@`
	Binop  *BinopInstr `| @@`
	Unop   *UnopInstr  `| @@`
	Call   *CallInstr  `| @@`
	Cast   *CastInstr  `| @@ )`
}

type ConstInstr struct {
	Pos  lexer.Position
	Type *TypeRef `"const" @@`
	Val  *Value   `@@`
}

type BinopInstr struct {
	Pos   lexer.Position
	Op    string `"binop" @Ident`
	Left  *Value `@@ ","`
	Right *Value `@@`
}

type UnopInstr struct {
	Pos     lexer.Position
	Op      string `"unop" @Ident`
	Operand *Value `@@`
}

type CallInstr struct {
	Pos    lexer.Position
	Callee string   `"call" @Ident "("`
	Args   []*Value `[ @@ { "," @@ } ] ")"`
}

type CastInstr struct {
	Pos     lexer.Position
	Type    *TypeRef `"cast" @@`
	Operand *Value   `@@`
}

// Term is a block's terminator: exactly one of goto/branch/exit.
type Term struct {
	Pos    lexer.Position
	Goto   *GotoTerm   `( @@`
	Branch *BranchTerm `| @@`
	Exit   *ExitTerm   `| @@ )`
}

type GotoTerm struct {
	Pos    lexer.Position
	Target string `"goto" @Ident`
}

type BranchTerm struct {
	Pos   lexer.Position
	Cond  *Value `"branch" @@`
	True  string `@Ident`
	False string `@Ident`
}

type ExitTerm struct {
	Pos   lexer.Position
	Value *Value `"exit" @@?`
}

// Value is either a literal, a %local reference, or a bare identifier
// naming a parameter, global, or imported declaration. Bool is tried
// before the catch-all Ident alternative so the "true"/"false" keywords
// aren't mistaken for a value name.
type Value struct {
	Pos   lexer.Position
	Local string   `  @Local`
	Bool  *string  `| @("true" | "false")`
	Float *float64 `| @Float`
	Int   *string  `| @Integer`
	Str   *string  `| @String`
	Ident string   `| @Ident`
}
