// Package langserver publishes grammar diagnostics over the Language
// Server Protocol: notation errors, ambiguity suspicion and
// left-recursion notes for ixml grammar files.
package langserver

import (
	"fmt"
	"regexp"
	"strconv"
	"sync"

	"github.com/dhamidi/ixml/grammar"
	"github.com/dhamidi/ixml/parse"

	"github.com/tliron/commonlog"
	"github.com/tliron/glsp"
	protocol "github.com/tliron/glsp/protocol_3_16"
	"github.com/tliron/glsp/server"

	_ "github.com/tliron/commonlog/simple"
)

const lsName = "ixml"

type Server struct {
	handler protocol.Handler
	server  *server.Server
	log     commonlog.Logger
	version string

	mu        sync.Mutex
	documents map[string]string
}

func New(version string) *Server {
	s := &Server{
		version:   version,
		log:       commonlog.GetLogger(lsName),
		documents: make(map[string]string),
	}

	s.handler = protocol.Handler{
		Initialize:            s.initialize,
		Initialized:           s.initialized,
		Shutdown:              s.shutdown,
		SetTrace:              s.setTrace,
		TextDocumentDidOpen:   s.textDocumentDidOpen,
		TextDocumentDidChange: s.textDocumentDidChange,
		TextDocumentDidClose:  s.textDocumentDidClose,
		TextDocumentDidSave:   s.textDocumentDidSave,
	}

	s.server = server.NewServer(&s.handler, lsName, false)

	return s
}

func (s *Server) RunStdio() error {
	return s.server.RunStdio()
}

func (s *Server) initialize(ctx *glsp.Context, params *protocol.InitializeParams) (any, error) {
	capabilities := s.handler.CreateServerCapabilities()

	capabilities.TextDocumentSync = &protocol.TextDocumentSyncOptions{
		OpenClose: boolPtr(true),
		Change:    intPtr(int(protocol.TextDocumentSyncKindFull)),
		Save: &protocol.SaveOptions{
			IncludeText: boolPtr(true),
		},
	}

	return protocol.InitializeResult{
		Capabilities: capabilities,
		ServerInfo: &protocol.InitializeResultServerInfo{
			Name:    lsName,
			Version: &s.version,
		},
	}, nil
}

func (s *Server) initialized(ctx *glsp.Context, params *protocol.InitializedParams) error {
	return nil
}

func (s *Server) shutdown(ctx *glsp.Context) error {
	return nil
}

func (s *Server) setTrace(ctx *glsp.Context, params *protocol.SetTraceParams) error {
	protocol.SetTraceValue(params.Value)
	return nil
}

func (s *Server) textDocumentDidOpen(ctx *glsp.Context, params *protocol.DidOpenTextDocumentParams) error {
	s.update(ctx, params.TextDocument.URI, params.TextDocument.Text)
	return nil
}

func (s *Server) textDocumentDidChange(ctx *glsp.Context, params *protocol.DidChangeTextDocumentParams) error {
	if len(params.ContentChanges) == 0 {
		return nil
	}
	change := params.ContentChanges[len(params.ContentChanges)-1]
	if whole, ok := change.(protocol.TextDocumentContentChangeEventWhole); ok {
		s.update(ctx, params.TextDocument.URI, whole.Text)
	}
	return nil
}

func (s *Server) textDocumentDidSave(ctx *glsp.Context, params *protocol.DidSaveTextDocumentParams) error {
	if params.Text != nil {
		s.update(ctx, params.TextDocument.URI, *params.Text)
		return nil
	}
	s.mu.Lock()
	text, ok := s.documents[params.TextDocument.URI]
	s.mu.Unlock()
	if ok {
		s.update(ctx, params.TextDocument.URI, text)
	}
	return nil
}

func (s *Server) textDocumentDidClose(ctx *glsp.Context, params *protocol.DidCloseTextDocumentParams) error {
	s.mu.Lock()
	delete(s.documents, params.TextDocument.URI)
	s.mu.Unlock()
	return nil
}

// update stores the document and publishes fresh diagnostics for it.
func (s *Server) update(ctx *glsp.Context, uri, text string) {
	s.mu.Lock()
	s.documents[uri] = text
	s.mu.Unlock()

	diagnostics := Check(text)
	s.log.Infof("checked %s: %d diagnostics", uri, len(diagnostics))

	ctx.Notify(protocol.ServerTextDocumentPublishDiagnostics, protocol.PublishDiagnosticsParams{
		URI:         uri,
		Diagnostics: diagnostics,
	})
}

// Check parses the grammar text and reports notation errors,
// ambiguity suspicion and left-recursive rules as LSP diagnostics.
// Diagnostics are never nil so that stale ones are always cleared.
func Check(text string) []protocol.Diagnostic {
	diagnostics := []protocol.Diagnostic{}

	g, err := grammar.ParseString("", text)
	if err != nil {
		diagnostics = append(diagnostics, protocol.Diagnostic{
			Range:    errorRange(err),
			Severity: severityPtr(protocol.DiagnosticSeverityError),
			Source:   strPtr(lsName),
			Message:  err.Error(),
		})
		return diagnostics
	}

	analysis := parse.Analyze(g)

	for _, name := range analysis.AmbiguousRules {
		diagnostics = append(diagnostics, protocol.Diagnostic{
			Range:    ruleRange(text, name),
			Severity: severityPtr(protocol.DiagnosticSeverityWarning),
			Source:   strPtr(lsName),
			Message:  fmt.Sprintf("rule %q may be ambiguous; output will carry ixml:state=\"ambiguous\"", name),
		})
	}

	for _, r := range g.Rules {
		if !analysis.LeftRecursive[r.Name] {
			continue
		}
		diagnostics = append(diagnostics, protocol.Diagnostic{
			Range:    ruleRange(text, r.Name),
			Severity: severityPtr(protocol.DiagnosticSeverityInformation),
			Source:   strPtr(lsName),
			Message:  fmt.Sprintf("rule %q is left-recursive; it parses by iterative seed growing", r.Name),
		})
	}

	return diagnostics
}

// positionRE matches the "line:col:" prefix the notation front end
// puts on its errors.
var positionRE = regexp.MustCompile(`(\d+):(\d+)`)

func errorRange(err error) protocol.Range {
	m := positionRE.FindStringSubmatch(err.Error())
	if m == nil {
		return protocol.Range{}
	}
	line, _ := strconv.Atoi(m[1])
	col, _ := strconv.Atoi(m[2])
	pos := protocol.Position{
		Line:      uint32(line - 1),
		Character: uint32(col - 1),
	}
	return protocol.Range{Start: pos, End: pos}
}

// ruleRange locates a rule's defining line in the grammar text by
// re-lexing it, so diagnostics point at the declaration.
func ruleRange(text, name string) protocol.Range {
	tokens, err := grammar.NewLexer("", text).Tokenize()
	if err != nil {
		return protocol.Range{}
	}
	for i, tok := range tokens {
		if tok.Kind != grammar.TokenIdent || tok.Text != name {
			continue
		}
		// A rule declaration is an identifier followed by ':' or '='.
		if i+1 < len(tokens) && (tokens[i+1].Kind == grammar.TokenColon || tokens[i+1].Kind == grammar.TokenEquals) {
			start := protocol.Position{
				Line:      uint32(tok.Position.Line - 1),
				Character: uint32(tok.Position.Column - 1),
			}
			end := protocol.Position{
				Line:      start.Line,
				Character: start.Character + uint32(len([]rune(name))),
			}
			return protocol.Range{Start: start, End: end}
		}
	}
	return protocol.Range{}
}

func boolPtr(b bool) *bool {
	return &b
}

func strPtr(s string) *string {
	return &s
}

func severityPtr(s protocol.DiagnosticSeverity) *protocol.DiagnosticSeverity {
	return &s
}

func intPtr(i int) *protocol.TextDocumentSyncKind {
	v := protocol.TextDocumentSyncKind(i)
	return &v
}
