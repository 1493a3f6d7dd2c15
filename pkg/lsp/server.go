package lsp

import (
	"context"
	"errors"
	"strings"

	"github.com/goccy/go-json"
	lsp "github.com/sourcegraph/go-lsp"
	"github.com/sourcegraph/jsonrpc2"
	"github.com/yuin/gopher-lua/parse"
	"src.vapo.dev/pkg/logutil"
	"src.vapo.dev/pkg/script"
)

var logger = logutil.GetLogger("[lsp] ")

var (
	errMethodNotFound = &jsonrpc2.Error{
		Code: jsonrpc2.CodeMethodNotFound, Message: "method not found"}
	errInvalidParams = &jsonrpc2.Error{
		Code: jsonrpc2.CodeInvalidParams, Message: "invalid params"}
)

// Name of the namespace global, as seen by scripts.
const namespaceName = "vapo"

type server struct {
	content map[lsp.DocumentURI]string
}

func newServer() *server {
	return &server{make(map[lsp.DocumentURI]string)}
}

func handler(s *server) jsonrpc2.Handler {
	return routingHandler(map[string]method{
		"initialize":              s.initialize,
		"textDocument/didOpen":    s.didOpen,
		"textDocument/didChange":  s.didChange,
		"textDocument/didClose":   s.didClose,
		"textDocument/hover":      s.hover,
		"textDocument/completion": s.completion,

		"shutdown": noop,
		"exit":     exit,
		// Required by the protocol.
		"initialized": noop,
		// Called by clients even when the server doesn't advertise support.
		"workspace/didChangeWatchedFiles": noop,
	})
}

type method func(context.Context, jsonrpc2.JSONRPC2, []byte) (any, error)

func noop(context.Context, jsonrpc2.JSONRPC2, []byte) (any, error) {
	return nil, nil
}

func exit(_ context.Context, conn jsonrpc2.JSONRPC2, _ []byte) (any, error) {
	return nil, conn.Close()
}

func routingHandler(methods map[string]method) jsonrpc2.Handler {
	return jsonrpc2.HandlerWithError(func(ctx context.Context, conn *jsonrpc2.Conn, req *jsonrpc2.Request) (any, error) {
		fn, ok := methods[req.Method]
		if !ok {
			logger.Debugw("unsupported method", "method", req.Method)
			return nil, errMethodNotFound
		}
		var params []byte
		if req.Params != nil {
			params = *req.Params
		}
		return fn(ctx, conn, params)
	})
}

// Handler implementations. These are all called synchronously.

func (s *server) initialize(context.Context, jsonrpc2.JSONRPC2, []byte) (any, error) {
	return &lsp.InitializeResult{
		Capabilities: lsp.ServerCapabilities{
			TextDocumentSync: &lsp.TextDocumentSyncOptionsOrKind{
				Options: &lsp.TextDocumentSyncOptions{
					OpenClose: true,
					Change:    lsp.TDSKFull,
				},
			},
			CompletionProvider: &lsp.CompletionOptions{TriggerCharacters: []string{".", ":"}},
			HoverProvider:      true,
		},
	}, nil
}

func (s *server) didOpen(ctx context.Context, conn jsonrpc2.JSONRPC2, rawParams []byte) (any, error) {
	var params lsp.DidOpenTextDocumentParams
	if json.Unmarshal(rawParams, &params) != nil {
		return nil, errInvalidParams
	}

	uri, content := params.TextDocument.URI, params.TextDocument.Text
	s.content[uri] = content
	go publishDiagnostics(ctx, conn, uri, content)
	return nil, nil
}

func (s *server) didChange(ctx context.Context, conn jsonrpc2.JSONRPC2, rawParams []byte) (any, error) {
	var params lsp.DidChangeTextDocumentParams
	if json.Unmarshal(rawParams, &params) != nil || len(params.ContentChanges) == 0 {
		return nil, errInvalidParams
	}

	// ContentChanges includes full text since the server is only advertised to
	// support that; see the initialize method.
	uri, content := params.TextDocument.URI, params.ContentChanges[0].Text
	s.content[uri] = content
	go publishDiagnostics(ctx, conn, uri, content)
	return nil, nil
}

func (s *server) didClose(_ context.Context, _ jsonrpc2.JSONRPC2, rawParams []byte) (any, error) {
	var params lsp.DidCloseTextDocumentParams
	if json.Unmarshal(rawParams, &params) != nil {
		return nil, errInvalidParams
	}
	delete(s.content, params.TextDocument.URI)
	return nil, nil
}

func (s *server) hover(_ context.Context, _ jsonrpc2.JSONRPC2, rawParams []byte) (any, error) {
	var params lsp.TextDocumentPositionParams
	if json.Unmarshal(rawParams, &params) != nil {
		return nil, errInvalidParams
	}

	content := s.content[params.TextDocument.URI]
	idx := lspPositionToIdx(content, params.Position)
	from, to := wordAt(content, idx)
	word := content[from:to]
	var text string
	switch sep := separatorBefore(content, from); {
	case sep == "" && word == namespaceName:
		text = "The vapo namespace, also available as require(\"vapo\")."
	case sep != "":
		if d, ok := script.LookupDoc(word, sep == ":"); ok {
			text = d.Signature + "\n\n" + d.Summary
		}
	}
	if text == "" {
		return lsp.Hover{Contents: []lsp.MarkedString{}}, nil
	}
	r := lsp.Range{Start: lspPositionFromIdx(content, from), End: lspPositionFromIdx(content, to)}
	return lsp.Hover{Contents: []lsp.MarkedString{lsp.RawMarkedString(text)}, Range: &r}, nil
}

func (s *server) completion(_ context.Context, _ jsonrpc2.JSONRPC2, rawParams []byte) (any, error) {
	var params lsp.CompletionParams
	if json.Unmarshal(rawParams, &params) != nil {
		return nil, errInvalidParams
	}

	content := s.content[params.TextDocument.URI]
	dot := lspPositionToIdx(content, params.Position)
	from, _ := wordAt(content, dot)
	prefix := content[from:dot]
	replace := lsp.Range{
		Start: lspPositionFromIdx(content, from),
		End:   lspPositionFromIdx(content, dot),
	}

	var docs []script.Doc
	var kind lsp.CompletionItemKind
	switch separatorBefore(content, from) {
	case ".":
		docs, kind = script.NamespaceDocs, lsp.CIKFunction
	case ":":
		docs, kind = script.MethodDocs, lsp.CIKMethod
	default:
		docs = []script.Doc{{Name: namespaceName, Signature: namespaceName,
			Summary: "The vapo namespace."}}
		kind = lsp.CIKModule
	}

	items := []lsp.CompletionItem{}
	for _, d := range docs {
		if !strings.HasPrefix(d.Name, prefix) {
			continue
		}
		items = append(items, lsp.CompletionItem{
			Label:         d.Name,
			Kind:          kind,
			Detail:        d.Signature,
			Documentation: d.Summary,
			TextEdit:      &lsp.TextEdit{Range: replace, NewText: d.Name},
		})
	}
	return items, nil
}

func isIdentRune(b byte) bool {
	return b == '_' || '0' <= b && b <= '9' || 'a' <= b && b <= 'z' || 'A' <= b && b <= 'Z'
}

// Returns the boundaries of the identifier containing idx.
func wordAt(s string, idx int) (from, to int) {
	from, to = idx, idx
	for from > 0 && isIdentRune(s[from-1]) {
		from--
	}
	for to < len(s) && isIdentRune(s[to]) {
		to++
	}
	return from, to
}

// Returns "." if the identifier starting at from is a member of the vapo
// namespace, ":" if it is a method name, and "" otherwise.
func separatorBefore(s string, from int) string {
	if from == 0 {
		return ""
	}
	switch s[from-1] {
	case '.':
		if recvFrom, _ := wordAt(s, from-1); s[recvFrom:from-1] == namespaceName {
			return "."
		}
	case ':':
		return ":"
	}
	return ""
}

func publishDiagnostics(ctx context.Context, conn jsonrpc2.JSONRPC2, uri lsp.DocumentURI, content string) {
	conn.Notify(ctx, "textDocument/publishDiagnostics",
		lsp.PublishDiagnosticsParams{URI: uri, Diagnostics: diagnostics(uri, content)})
}

func diagnostics(uri lsp.DocumentURI, content string) []lsp.Diagnostic {
	_, err := parse.Parse(strings.NewReader(content), string(uri))
	if err == nil {
		return []lsp.Diagnostic{}
	}

	d := lsp.Diagnostic{Severity: lsp.Error, Source: "parse", Message: err.Error()}
	var perr *parse.Error
	if errors.As(err, &perr) {
		d.Message = perr.Message
		d.Range = errorRange(content, perr)
	}
	return []lsp.Diagnostic{d}
}

// Converts the position of a parse error into a range covering the offending
// token. The parser reports 1-based lines and 0-based columns; errors at the
// end of input have no line.
func errorRange(content string, err *parse.Error) lsp.Range {
	if err.Pos.Line < 1 {
		end := lspPositionFromIdx(content, len(content))
		return lsp.Range{Start: end, End: end}
	}
	start := lspPositionToIdx(content,
		lsp.Position{Line: err.Pos.Line - 1, Character: err.Pos.Column})
	end := start + len(err.Token)
	if end > len(content) {
		end = len(content)
	}
	return lsp.Range{
		Start: lspPositionFromIdx(content, start),
		End:   lspPositionFromIdx(content, end),
	}
}
