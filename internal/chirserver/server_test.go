package chirserver

import (
	"testing"

	"github.com/stretchr/testify/require"

	"chir/internal/chirtext"
	"chir/internal/diag"
	"chir/internal/passes"
)

const fixture = `
package demo

fn choose(a: Bool): Int32 {
entry:
  branch a then else
then:
  %one = const Int32 1
  exit %one
else:
  %two = const Int32 2
  exit %two
}
`

// newTestHandler builds a Handler with one pre-analyzed session, the way
// TextDocumentDidOpen would populate it, without going through glsp.Context
// (whose Notify call needs a live connection the tests don't have).
func newTestHandler(t *testing.T) (*Handler, string) {
	t.Helper()
	prog, err := chirtext.ParseString("fixture", fixture)
	require.NoError(t, err)
	pkg, err := chirtext.Build(prog)
	require.NoError(t, err)

	reporter := diag.NewReporter()
	passes.NewPipeline(reporter).Run(pkg)

	h := NewHandler()
	h.sessions["file:///fixture.chir"] = &session{pkg: pkg, diags: reporter.Sorted()}
	return h, "file:///fixture.chir"
}

func TestDumpFunctionReturnsWholePackageWithoutAFunctionArgument(t *testing.T) {
	h, uri := newTestHandler(t)
	out, err := h.dumpFunction([]any{map[string]any{"uri": uri}})
	require.NoError(t, err)
	m, ok := out.(map[string]any)
	require.True(t, ok)
	require.Contains(t, m["chir"], "package demo")
	require.Contains(t, m["chir"], "fn choose")
}

func TestDumpFunctionReturnsSingleFunction(t *testing.T) {
	h, uri := newTestHandler(t)
	out, err := h.dumpFunction([]any{map[string]any{"uri": uri, "function": "choose"}})
	require.NoError(t, err)
	m, ok := out.(map[string]any)
	require.True(t, ok)
	require.Contains(t, m["chir"], "fn choose")
	require.NotContains(t, m["chir"], "package demo")
}

func TestDumpFunctionRejectsUnknownFunction(t *testing.T) {
	h, uri := newTestHandler(t)
	_, err := h.dumpFunction([]any{map[string]any{"uri": uri, "function": "nope"}})
	require.Error(t, err)
}

func TestListDiagnosticsRejectsUnopenedDocument(t *testing.T) {
	h := NewHandler()
	_, err := h.listDiagnostics([]any{map[string]any{"uri": "file:///never-opened.chir"}})
	require.Error(t, err)
}

func TestShowCFGComputesImmediateDominatorsForABranch(t *testing.T) {
	h, uri := newTestHandler(t)
	out, err := h.showCFG([]any{map[string]any{"uri": uri, "function": "choose"}})
	require.NoError(t, err)
	tree, ok := out.(DominatorTree)
	require.True(t, ok)
	assert := require.New(t)
	assert.Equal("entry", tree.Entry)
	assert.Equal("entry", tree.Idom["then"])
	assert.Equal("entry", tree.Idom["else"])
}

func TestShowCFGRequiresAFunctionArgument(t *testing.T) {
	h, uri := newTestHandler(t)
	_, err := h.showCFG([]any{map[string]any{"uri": uri}})
	require.Error(t, err)
}

func TestParseCommandArgsRejectsMissingURI(t *testing.T) {
	_, err := parseCommandArgs([]any{map[string]any{"function": "f"}})
	require.Error(t, err)
}
