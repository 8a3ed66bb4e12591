// Package chirtext implements a small textual assembly notation for
// chir.Package/chir.Func, used only by cmd/chirtool and test fixtures.
// The analysis core never reads or writes this notation directly — it
// always works against an in-memory *chir.Package produced by whatever
// external lowering step feeds it.
package chirtext

import (
	"github.com/alecthomas/participle/v2/lexer"
)

// Lexer is a single-state rule set ordered so identifiers/keywords are
// matched before the looser punctuation/operator classes.
var Lexer = lexer.MustStateful(lexer.Rules{
	"Root": {
		{"Comment", `//[^\n]*`, nil},
		{"Ident", `[a-zA-Z_][a-zA-Z0-9_.]*`, nil},
		{"Float", `[0-9]+\.[0-9]+`, nil},
		{"Integer", `0x[0-9a-fA-F]+|[0-9]+`, nil},
		{"String", `"(\\.|[^"])*"`, nil},
		{"Local", `%[a-zA-Z_][a-zA-Z0-9_]*`, nil},
		{"Operator", `[=,:(){}<>\[\]]`, nil},
		{"Whitespace", `[ \t\r\n]+`, nil},
	},
})
