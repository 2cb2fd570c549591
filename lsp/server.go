// Package lsp serves offload diagnostics for Java documents over the
// Language Server Protocol.
package lsp

import (
	"errors"
	"net/url"
	"path/filepath"
	"strings"
	"sync"
	"unicode/utf16"
	"unicode/utf8"

	"github.com/tliron/commonlog"
	"github.com/tliron/glsp"
	protocol "github.com/tliron/glsp/protocol_3_16"
	"github.com/tliron/glsp/server"

	"github.com/dhamidi/rapidc/catalog"
	"github.com/dhamidi/rapidc/java/parser"
	"github.com/dhamidi/rapidc/offload"
	"github.com/dhamidi/rapidc/rewrite"
)

const lsName = "rapidc"

type Server struct {
	handler  protocol.Handler
	server   *server.Server
	version  string
	rewriter *rewrite.Rewriter
	log      commonlog.Logger

	// mu serializes document updates.
	mu sync.Mutex
}

func NewServer(version string, rt offload.Runtime) *Server {
	s := &Server{
		version:  version,
		rewriter: rewrite.New(catalog.New(), rewrite.WithRuntime(rt)),
		log:      commonlog.GetLogger("rapidc.lsp"),
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
	s.publish(ctx, params.TextDocument.URI, []byte(params.TextDocument.Text))
	return nil
}

func (s *Server) textDocumentDidChange(ctx *glsp.Context, params *protocol.DidChangeTextDocumentParams) error {
	if len(params.ContentChanges) == 0 {
		return nil
	}
	change := params.ContentChanges[len(params.ContentChanges)-1]
	if whole, ok := change.(protocol.TextDocumentContentChangeEventWhole); ok {
		s.publish(ctx, params.TextDocument.URI, []byte(whole.Text))
	}
	return nil
}

func (s *Server) textDocumentDidClose(ctx *glsp.Context, params *protocol.DidCloseTextDocumentParams) error {
	ctx.Notify(protocol.ServerTextDocumentPublishDiagnostics, protocol.PublishDiagnosticsParams{
		URI:         params.TextDocument.URI,
		Diagnostics: []protocol.Diagnostic{},
	})
	return nil
}

func (s *Server) textDocumentDidSave(ctx *glsp.Context, params *protocol.DidSaveTextDocumentParams) error {
	if params.Text != nil {
		s.publish(ctx, params.TextDocument.URI, []byte(*params.Text))
	}
	return nil
}

func (s *Server) publish(ctx *glsp.Context, uri protocol.DocumentUri, text []byte) {
	path, err := uriToPath(uri)
	if err != nil {
		s.log.Warningf("bad document uri %s: %s", uri, err)
		return
	}
	ctx.Notify(protocol.ServerTextDocumentPublishDiagnostics, protocol.PublishDiagnosticsParams{
		URI:         uri,
		Diagnostics: s.Diagnostics(path, text),
	})
}

// Diagnostics returns the parse error or the recognition diagnostics for a
// document.
func (s *Server) Diagnostics(path string, src []byte) []protocol.Diagnostic {
	s.mu.Lock()
	defer s.mu.Unlock()

	diags := []protocol.Diagnostic{}
	res, err := s.rewriter.RewriteSource(path, src)
	if err != nil {
		var pe *parser.ParseError
		if errors.As(err, &pe) {
			pos := toPosition(src, pe.Pos)
			diags = append(diags, diagnostic(protocol.Range{Start: pos, End: pos}, protocol.DiagnosticSeverityError, pe.Message))
		} else {
			s.log.Errorf("%s: %s", path, err)
		}
		return diags
	}

	for _, d := range res.Diagnostics {
		sev := protocol.DiagnosticSeverityWarning
		if d.Severity == offload.SeverityError {
			sev = protocol.DiagnosticSeverityError
		}
		r := protocol.Range{Start: toPosition(src, d.Pos), End: toPosition(src, d.End)}
		diags = append(diags, diagnostic(r, sev, d.Message))
	}
	return diags
}

func diagnostic(r protocol.Range, sev protocol.DiagnosticSeverity, message string) protocol.Diagnostic {
	source := lsName
	return protocol.Diagnostic{
		Range:    r,
		Severity: &sev,
		Source:   &source,
		Message:  message,
	}
}

// toPosition converts a parser position to a zero-based LSP position whose
// character counts UTF-16 code units.
func toPosition(src []byte, pos parser.Position) protocol.Position {
	offset := min(max(pos.Offset, 0), len(src))
	lineStart := strings.LastIndexByte(string(src[:offset]), '\n') + 1
	var units int
	for b := src[lineStart:offset]; len(b) > 0; {
		r, size := utf8.DecodeRune(b)
		if n := utf16.RuneLen(r); n > 0 {
			units += n
		} else {
			units++
		}
		b = b[size:]
	}
	line := pos.Line - 1
	if line < 0 {
		line = 0
	}
	return protocol.Position{Line: protocol.UInteger(line), Character: protocol.UInteger(units)}
}

func uriToPath(uri string) (string, error) {
	if strings.HasPrefix(uri, "file://") {
		parsed, err := url.Parse(uri)
		if err != nil {
			return "", err
		}
		return filepath.Clean(parsed.Path), nil
	}
	return uri, nil
}

func boolPtr(b bool) *bool {
	return &b
}

func intPtr(i int) *protocol.TextDocumentSyncKind {
	v := protocol.TextDocumentSyncKind(i)
	return &v
}
