// Package chirserver implements a minimal JSON-RPC introspection server
// for CHIR packages: a glsp protocol.Handler lifecycle
// (Initialize/Initialized/Shutdown, textDocument/didOpen/didChange/
// didClose) over .chir assembly text, exposing workspace/executeCommand
// introspection instead of completion/semantic-tokens requests. This is
// ambient tooling around the analysis core — the core never imports this
// package, it only runs against an in-memory *chir.Package handed to it
// directly.
package chirserver

import (
	"fmt"
	"sync"

	"github.com/tliron/glsp"
	protocol "github.com/tliron/glsp/protocol_3_16"

	"chir/internal/chir"
	"chir/internal/chirtext"
	"chir/internal/diag"
	"chir/internal/passes"
)

// Version is reported in the server's InitializeResult.
const Version = "0.1.0"

// Commands this server advertises through ExecuteCommandProvider.
const (
	CommandDumpFunction    = "chir.dumpFunction"
	CommandListDiagnostics = "chir.listDiagnostics"
	CommandShowCFG         = "chir.cfg"
)

// session is one opened document's analyzed state: the built package and
// the diagnostics its default pass pipeline produced.
type session struct {
	pkg   *chir.Package
	diags []diag.Diagnostic
}

// Handler implements the server's LSP surface, keeping a fully analyzed
// *chir.Package per opened document — opening a document here means
// running the whole default pipeline over it, not just parsing it.
type Handler struct {
	mu       sync.RWMutex
	sessions map[string]*session
}

// NewHandler creates an empty Handler.
func NewHandler() *Handler {
	return &Handler{sessions: make(map[string]*session)}
}

func (h *Handler) Initialize(ctx *glsp.Context, params *protocol.InitializeParams) (any, error) {
	return &protocol.InitializeResult{
		Capabilities: protocol.ServerCapabilities{
			TextDocumentSync: &protocol.TextDocumentSyncOptions{
				OpenClose: ptrBool(true),
				Change:    ptrSyncKind(protocol.TextDocumentSyncKindFull),
			},
			ExecuteCommandProvider: &protocol.ExecuteCommandOptions{
				Commands: []string{CommandDumpFunction, CommandListDiagnostics, CommandShowCFG},
			},
		},
		ServerInfo: &protocol.InitializeResultServerInfo{
			Name:    "chirserver",
			Version: ptrString(Version),
		},
	}, nil
}

func (h *Handler) Initialized(ctx *glsp.Context, params *protocol.InitializedParams) error {
	return nil
}

func (h *Handler) Shutdown(ctx *glsp.Context) error {
	return nil
}

func (h *Handler) SetTrace(ctx *glsp.Context, params *protocol.SetTraceParams) error {
	return nil
}

// TextDocumentDidOpen parses and fully analyzes the opened .chir document,
// publishing any diagnostics the default pipeline produced.
func (h *Handler) TextDocumentDidOpen(ctx *glsp.Context, params *protocol.DidOpenTextDocumentParams) error {
	return h.analyze(ctx, params.TextDocument.URI, params.TextDocument.Text)
}

// TextDocumentDidChange re-analyzes the document from its new full text.
// The server only advertises TextDocumentSyncKindFull, so the last
// content-change event already carries the complete new text.
func (h *Handler) TextDocumentDidChange(ctx *glsp.Context, params *protocol.DidChangeTextDocumentParams) error {
	if len(params.ContentChanges) == 0 {
		return nil
	}
	change, ok := params.ContentChanges[len(params.ContentChanges)-1].(protocol.TextDocumentContentChangeEventWhole)
	if !ok {
		return fmt.Errorf("chirserver: expected full-document sync for %s", params.TextDocument.URI)
	}
	return h.analyze(ctx, params.TextDocument.URI, change.Text)
}

func (h *Handler) TextDocumentDidClose(ctx *glsp.Context, params *protocol.DidCloseTextDocumentParams) error {
	h.mu.Lock()
	delete(h.sessions, params.TextDocument.URI)
	h.mu.Unlock()
	return nil
}

func (h *Handler) analyze(ctx *glsp.Context, uri, text string) error {
	prog, err := chirtext.ParseString(uri, text)
	if err != nil {
		// ParseString has already reported its own caret-style error;
		// there is no structured program to analyze or publish against.
		return nil
	}

	pkg, err := chirtext.Build(prog)
	if err != nil {
		return fmt.Errorf("chirserver: failed to build CHIR from %s: %w", uri, err)
	}

	reporter := diag.NewReporter()
	passes.NewPipeline(reporter).Run(pkg)

	sess := &session{pkg: pkg, diags: reporter.Sorted()}

	h.mu.Lock()
	h.sessions[uri] = sess
	h.mu.Unlock()

	ctx.Notify(protocol.ServerTextDocumentPublishDiagnostics, &protocol.PublishDiagnosticsParams{
		URI:         uri,
		Diagnostics: toProtocolDiagnostics(sess.diags),
	})
	return nil
}

func (h *Handler) session(uri string) (*session, error) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	sess, ok := h.sessions[uri]
	if !ok {
		return nil, fmt.Errorf("chirserver: %s has not been opened", uri)
	}
	return sess, nil
}

func toProtocolDiagnostics(ds []diag.Diagnostic) []protocol.Diagnostic {
	out := make([]protocol.Diagnostic, 0, len(ds))
	for _, d := range ds {
		sev := severityFor(d.Level)
		out = append(out, protocol.Diagnostic{
			Range: protocol.Range{
				Start: protocol.Position{Line: line0(d.Range.Begin.Line), Character: col0(d.Range.Begin.Column)},
				End:   protocol.Position{Line: line0(d.Range.End.Line), Character: col0(d.Range.End.Column)},
			},
			Severity: &sev,
			Source:   ptrString("chir"),
			Message:  fmt.Sprintf("[%s] %s", d.Kind.String(), d.Message),
		})
	}
	return out
}

func severityFor(l diag.Level) protocol.DiagnosticSeverity {
	switch l {
	case diag.Error:
		return protocol.DiagnosticSeverityError
	case diag.Warning:
		return protocol.DiagnosticSeverityWarning
	case diag.Note:
		return protocol.DiagnosticSeverityInformation
	default:
		return protocol.DiagnosticSeverityHint
	}
}

// line0/col0 convert chir.Position's 1-based line/column into the
// 0-based values the LSP wire format requires.
func line0(line int) uint32 {
	if line <= 0 {
		return 0
	}
	return uint32(line - 1)
}

func col0(col int) uint32 {
	if col <= 0 {
		return 0
	}
	return uint32(col - 1)
}

func ptrBool(b bool) *bool { return &b }

func ptrString(s string) *string { return &s }

func ptrSyncKind(k protocol.TextDocumentSyncKind) *protocol.TextDocumentSyncKind { return &k }
