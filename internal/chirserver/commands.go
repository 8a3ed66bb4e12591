package chirserver

import (
	"fmt"

	"github.com/tliron/glsp"
	protocol "github.com/tliron/glsp/protocol_3_16"

	"chir/internal/chirtext"
)

// WorkspaceExecuteCommand dispatches the three introspection commands this
// server advertises: dumping a function's (or a whole package's) IR,
// listing a document's diagnostics, and computing a function's dominator
// tree. These commands have no completion/semantic-tokens analogue in a
// source-language server — they exist only because the document here is
// CHIR, not source text.
func (h *Handler) WorkspaceExecuteCommand(ctx *glsp.Context, params *protocol.ExecuteCommandParams) (any, error) {
	switch params.Command {
	case CommandDumpFunction:
		return h.dumpFunction(params.Arguments)
	case CommandListDiagnostics:
		return h.listDiagnostics(params.Arguments)
	case CommandShowCFG:
		return h.showCFG(params.Arguments)
	default:
		return nil, fmt.Errorf("chirserver: unknown command %q", params.Command)
	}
}

// commandArgs is the {uri, function} shape every command takes, function
// being optional for chir.dumpFunction (omitted dumps the whole package).
type commandArgs struct {
	URI      string
	Function string
}

func parseCommandArgs(args []any) (commandArgs, error) {
	if len(args) == 0 {
		return commandArgs{}, fmt.Errorf("chirserver: command requires a {uri, function} argument object")
	}
	m, ok := args[0].(map[string]any)
	if !ok {
		return commandArgs{}, fmt.Errorf("chirserver: command argument must be an object")
	}

	var out commandArgs
	if v, ok := m["uri"].(string); ok {
		out.URI = v
	}
	if v, ok := m["function"].(string); ok {
		out.Function = v
	}
	if out.URI == "" {
		return out, fmt.Errorf(`chirserver: command argument missing "uri"`)
	}
	return out, nil
}

func (h *Handler) dumpFunction(args []any) (any, error) {
	ca, err := parseCommandArgs(args)
	if err != nil {
		return nil, err
	}
	sess, err := h.session(ca.URI)
	if err != nil {
		return nil, err
	}

	if ca.Function == "" {
		return map[string]any{"chir": chirtext.Print(sess.pkg)}, nil
	}
	fn := sess.pkg.FuncByName(ca.Function)
	if fn == nil {
		return nil, fmt.Errorf("chirserver: no function named %q in %s", ca.Function, ca.URI)
	}
	return map[string]any{"chir": chirtext.PrintFunc(fn)}, nil
}

func (h *Handler) listDiagnostics(args []any) (any, error) {
	ca, err := parseCommandArgs(args)
	if err != nil {
		return nil, err
	}
	sess, err := h.session(ca.URI)
	if err != nil {
		return nil, err
	}

	out := make([]map[string]any, 0, len(sess.diags))
	for _, d := range sess.diags {
		out = append(out, map[string]any{
			"level":   string(d.Level),
			"kind":    d.Kind.String(),
			"range":   d.Range.String(),
			"message": d.Message,
			"notes":   d.Notes,
		})
	}
	return out, nil
}

func (h *Handler) showCFG(args []any) (any, error) {
	ca, err := parseCommandArgs(args)
	if err != nil {
		return nil, err
	}
	if ca.Function == "" {
		return nil, fmt.Errorf("chirserver: %s requires \"function\"", CommandShowCFG)
	}
	sess, err := h.session(ca.URI)
	if err != nil {
		return nil, err
	}

	fn := sess.pkg.FuncByName(ca.Function)
	if fn == nil || fn.Body == nil {
		return nil, fmt.Errorf("chirserver: no function body for %q in %s", ca.Function, ca.URI)
	}
	return dominatorTree(fn.Body), nil
}
