package lsp

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"sync"
	"time"

	"github.com/sourcegraph/jsonrpc2"
	"go.lsp.dev/protocol"

	"github.com/unkn0wn-root/httpoutline/internal/errdef"
	"github.com/unkn0wn-root/httpoutline/internal/filesvc"
	"github.com/unkn0wn-root/httpoutline/internal/outline"
	"github.com/unkn0wn-root/httpoutline/internal/parser"
	"github.com/unkn0wn-root/httpoutline/internal/session"
	"github.com/unkn0wn-root/httpoutline/internal/telemetry"
)

const (
	MethodTree                = "httpOutline/tree"
	MethodNodeAt              = "httpOutline/nodeAt"
	MethodDidChangeTree       = "httpOutline/didChangeTree"
	MethodDidChangeActiveFile = "httpOutline/didChangeActiveEditor"

	CommandReveal  = "httpOutline.reveal"
	CommandRefresh = "httpOutline.refresh"
)

type Options struct {
	Display   outline.Display
	Debounce  time.Duration
	Telemetry telemetry.Instrumenter
	Logger    *log.Logger
	Version   string
	// Fallback reads files that are not open in the editor.
	Fallback session.Reader
}

// Server exposes the outline of the active .http buffer over LSP.
type Server struct {
	logger  *log.Logger
	version string
	overlay *Overlay
	session *session.Session

	mu       sync.Mutex
	conn     *jsonrpc2.Conn
	shutdown bool
}

type TreeParams struct {
	TextDocument *protocol.TextDocumentIdentifier `json:"textDocument,omitempty"`
}

type NodeAtResult struct {
	Node  *outline.Node   `json:"node"`
	Range *protocol.Range `json:"range,omitempty"`
}

type RevealResult struct {
	URI   protocol.DocumentURI `json:"uri"`
	Range protocol.Range       `json:"range"`
}

func NewServer(opts Options) *Server {
	if opts.Logger == nil {
		opts.Logger = log.Default()
	}
	if opts.Fallback == nil {
		opts.Fallback = filesvc.Disk{}
	}
	s := &Server{
		logger:  opts.Logger,
		version: opts.Version,
		overlay: NewOverlay(opts.Fallback),
	}
	s.session = session.New(session.Options{
		Reader:    s.overlay,
		Display:   opts.Display,
		Debounce:  opts.Debounce,
		Telemetry: opts.Telemetry,
		OnError:   s.showError,
	})
	s.session.Subscribe(func() {
		s.notify(MethodDidChangeTree, nil)
	})
	return s
}

func (s *Server) Session() *session.Session {
	return s.session
}

// Serve runs the JSON-RPC loop until the peer disconnects or ctx ends.
func (s *Server) Serve(ctx context.Context, rwc io.ReadWriteCloser) error {
	stream := jsonrpc2.NewBufferedStream(rwc, jsonrpc2.VSCodeObjectCodec{})
	conn := jsonrpc2.NewConn(ctx, stream, jsonrpc2.HandlerWithError(s.handle))

	s.mu.Lock()
	s.conn = conn
	s.mu.Unlock()

	defer s.session.Close()
	select {
	case <-conn.DisconnectNotify():
		return nil
	case <-ctx.Done():
		_ = conn.Close()
		return ctx.Err()
	}
}

func (s *Server) handle(ctx context.Context, conn *jsonrpc2.Conn, req *jsonrpc2.Request) (interface{}, error) {
	s.mu.Lock()
	down := s.shutdown
	s.mu.Unlock()
	if down && req.Method != "exit" {
		if req.Notif {
			return nil, nil
		}
		return nil, &jsonrpc2.Error{Code: jsonrpc2.CodeInvalidRequest, Message: "server is shutting down"}
	}

	switch req.Method {
	case "initialize":
		return s.initialize(req)
	case "initialized":
		return nil, nil
	case "shutdown":
		s.mu.Lock()
		s.shutdown = true
		s.mu.Unlock()
		s.session.Close()
		return nil, nil
	case "exit":
		go conn.Close()
		return nil, nil
	case "textDocument/didOpen":
		return nil, s.didOpen(ctx, req)
	case "textDocument/didChange":
		return nil, s.didChange(ctx, req)
	case "textDocument/didSave":
		return nil, s.didSave(ctx, req)
	case "textDocument/didClose":
		return nil, s.didClose(req)
	case MethodDidChangeActiveFile:
		return nil, s.didChangeActiveEditor(ctx, req)
	case "textDocument/documentSymbol":
		return s.documentSymbol(ctx, req)
	case MethodTree:
		return s.tree(ctx, req)
	case MethodNodeAt:
		return s.nodeAt(ctx, req)
	case "workspace/executeCommand":
		return s.executeCommand(ctx, req)
	default:
		if req.Notif {
			return nil, nil
		}
		return nil, &jsonrpc2.Error{
			Code:    jsonrpc2.CodeMethodNotFound,
			Message: fmt.Sprintf("method %q not supported", req.Method),
		}
	}
}

func (s *Server) initialize(req *jsonrpc2.Request) (interface{}, error) {
	var params protocol.InitializeParams
	if req.Params != nil {
		if err := decode(req, &params); err != nil {
			return nil, err
		}
	}
	if params.ClientInfo != nil {
		s.logger.Printf("lsp initialize from %s %s", params.ClientInfo.Name, params.ClientInfo.Version)
	}
	return protocol.InitializeResult{
		Capabilities: protocol.ServerCapabilities{
			TextDocumentSync: protocol.TextDocumentSyncOptions{
				OpenClose: true,
				Change:    protocol.TextDocumentSyncKindFull,
				Save:      &protocol.SaveOptions{IncludeText: true},
			},
			DocumentSymbolProvider: true,
			ExecuteCommandProvider: &protocol.ExecuteCommandOptions{
				Commands: []string{CommandReveal, CommandRefresh},
			},
		},
		ServerInfo: &protocol.ServerInfo{Name: "httpoutline", Version: s.version},
	}, nil
}

func (s *Server) didOpen(ctx context.Context, req *jsonrpc2.Request) error {
	var params protocol.DidOpenTextDocumentParams
	if err := decode(req, &params); err != nil {
		return err
	}
	path := uriToPath(params.TextDocument.URI)
	s.overlay.Open(path, int32(params.TextDocument.Version), params.TextDocument.Text)
	return s.dispatch(ctx, session.ActiveFileChanged(path))
}

func (s *Server) didChange(ctx context.Context, req *jsonrpc2.Request) error {
	var params protocol.DidChangeTextDocumentParams
	if err := decode(req, &params); err != nil {
		return err
	}
	if len(params.ContentChanges) == 0 {
		return nil
	}
	path := uriToPath(params.TextDocument.URI)
	// Full sync: the last change carries the whole buffer.
	text := params.ContentChanges[len(params.ContentChanges)-1].Text
	if !s.overlay.Update(path, int32(params.TextDocument.Version), text) {
		return nil
	}
	return s.dispatch(ctx, session.ContentChanged(path))
}

func (s *Server) didSave(ctx context.Context, req *jsonrpc2.Request) error {
	var params protocol.DidSaveTextDocumentParams
	if err := decode(req, &params); err != nil {
		return err
	}
	path := uriToPath(params.TextDocument.URI)
	if params.Text != "" {
		s.overlay.Update(path, 0, params.Text)
	}
	return s.dispatch(ctx, session.ContentSaved(path))
}

func (s *Server) didClose(req *jsonrpc2.Request) error {
	var params protocol.DidCloseTextDocumentParams
	if err := decode(req, &params); err != nil {
		return err
	}
	s.overlay.Close(uriToPath(params.TextDocument.URI))
	return nil
}

func (s *Server) didChangeActiveEditor(ctx context.Context, req *jsonrpc2.Request) error {
	var params TreeParams
	if err := decode(req, &params); err != nil {
		return err
	}
	if params.TextDocument == nil {
		return nil
	}
	return s.dispatch(ctx, session.ActiveFileChanged(uriToPath(params.TextDocument.URI)))
}

func (s *Server) documentSymbol(ctx context.Context, req *jsonrpc2.Request) (interface{}, error) {
	var params protocol.DocumentSymbolParams
	if err := decode(req, &params); err != nil {
		return nil, err
	}
	path := uriToPath(params.TextDocument.URI)
	o := s.session.Outline()
	if o.Path() != path {
		if !filesvc.IsRequestFile(path) {
			return []protocol.DocumentSymbol{}, nil
		}
		text, err := s.overlay.ReadFile(ctx, path)
		if err != nil {
			return nil, rpcError(err)
		}
		o = outline.Build(path, parser.Parse(text), s.session.Display())
	}
	return documentSymbols(o.Roots()), nil
}

func (s *Server) tree(ctx context.Context, req *jsonrpc2.Request) (interface{}, error) {
	var params TreeParams
	if req.Params != nil {
		if err := decode(req, &params); err != nil {
			return nil, err
		}
	}
	if params.TextDocument != nil {
		path := uriToPath(params.TextDocument.URI)
		if filesvc.IsRequestFile(path) && path != s.session.Current() {
			if err := s.session.Handle(ctx, session.ActiveFileChanged(path)); err != nil {
				return nil, rpcError(err)
			}
		}
	}
	return s.session.Outline().Document(), nil
}

func (s *Server) nodeAt(ctx context.Context, req *jsonrpc2.Request) (interface{}, error) {
	var params protocol.TextDocumentPositionParams
	if err := decode(req, &params); err != nil {
		return nil, err
	}
	path := uriToPath(params.TextDocument.URI)
	if path != s.session.Current() {
		return NodeAtResult{}, nil
	}
	if err := s.session.Handle(ctx, session.SelectionMoved(path, toPosition(params.Position))); err != nil {
		return nil, rpcError(err)
	}
	n, ok := s.session.Selected()
	if !ok {
		return NodeAtResult{}, nil
	}
	rng := fromRange(n.Range)
	return NodeAtResult{Node: n, Range: &rng}, nil
}

func (s *Server) executeCommand(ctx context.Context, req *jsonrpc2.Request) (interface{}, error) {
	var params protocol.ExecuteCommandParams
	if err := decode(req, &params); err != nil {
		return nil, err
	}
	switch params.Command {
	case CommandReveal:
		if len(params.Arguments) != 1 {
			return nil, invalidParams("%s expects one node id", CommandReveal)
		}
		id, ok := params.Arguments[0].(string)
		if !ok {
			return nil, invalidParams("%s expects a string node id", CommandReveal)
		}
		rng, ok := s.session.Reveal(id)
		if !ok {
			return nil, invalidParams("no request node %q", id)
		}
		return RevealResult{URI: pathToURI(s.session.Current()), Range: fromRange(rng)}, nil
	case CommandRefresh:
		if err := s.session.Refresh(ctx); err != nil {
			return nil, rpcError(err)
		}
		return nil, nil
	default:
		return nil, invalidParams("unknown command %q", params.Command)
	}
}

// dispatch forwards an editor event. Read failures were already shown to
// the user through showError, so they are not returned again.
func (s *Server) dispatch(ctx context.Context, ev session.Event) error {
	err := s.session.Handle(ctx, ev)
	if err == nil || errdef.Is(err, errdef.CodeFilesystem) {
		return nil
	}
	return err
}

func (s *Server) showError(err error) {
	s.logger.Printf("outline rebuild failed: %v", err)
	s.notify("window/showMessage", protocol.ShowMessageParams{
		Type:    protocol.MessageTypeError,
		Message: errdef.Message(err),
	})
}

func (s *Server) notify(method string, params interface{}) {
	s.mu.Lock()
	conn := s.conn
	s.mu.Unlock()
	if conn == nil {
		return
	}
	if err := conn.Notify(context.Background(), method, params); err != nil {
		s.logger.Printf("lsp notify %s: %v", method, err)
	}
}

func decode(req *jsonrpc2.Request, v interface{}) error {
	if req.Params == nil {
		return invalidParams("missing params for %s", req.Method)
	}
	if err := json.Unmarshal(*req.Params, v); err != nil {
		return invalidParams("decode %s params: %v", req.Method, err)
	}
	return nil
}

func invalidParams(format string, args ...interface{}) error {
	return &jsonrpc2.Error{Code: jsonrpc2.CodeInvalidParams, Message: fmt.Sprintf(format, args...)}
}

func rpcError(err error) error {
	return &jsonrpc2.Error{Code: jsonrpc2.CodeInternalError, Message: errdef.Message(err)}
}
