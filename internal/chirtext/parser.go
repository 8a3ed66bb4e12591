package chirtext

import (
	"fmt"
	"os"
	"strings"

	"github.com/alecthomas/participle/v2"
	"github.com/fatih/color"
)

// ParseFile reads path and parses it as one textual CHIR unit: build a
// participle parser, translate a participle.Error into a caret-style
// message on failure.
func ParseFile(path string) (*Program, error) {
	source, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("chirtext: failed to read file: %w", err)
	}
	return ParseString(path, string(source))
}

// ParseString parses src, using name only for diagnostic positions.
func ParseString(name, src string) (*Program, error) {
	parser, err := participle.Build[Program](
		participle.Lexer(Lexer),
		participle.Elide("Whitespace", "Comment"),
		participle.UseLookahead(3),
	)
	if err != nil {
		return nil, fmt.Errorf("chirtext: failed to build parser: %w", err)
	}

	program, err := parser.ParseString(name, src)
	if err != nil {
		reportParseError(src, err)
		return nil, err
	}
	return program, nil
}

// reportParseError prints a caret-style parse error.
func reportParseError(src string, err error) {
	pe, ok := err.(participle.Error)
	if !ok {
		color.Red("Unexpected error: %s", err)
		return
	}

	pos := pe.Position()
	lines := strings.Split(src, "\n")
	if pos.Line <= 0 || pos.Line > len(lines) {
		color.Red("Syntax error at unknown location: %s", err)
		return
	}

	line := lines[pos.Line-1]
	caret := strings.Repeat(" ", max(pos.Column-1, 0)) + "^"

	color.Red("Syntax error in %s at line %d, column %d:", pos.Filename, pos.Line, pos.Column)
	fmt.Println(line)
	color.HiRed(caret)
	fmt.Printf("-> %s\n", pe.Message())
}
