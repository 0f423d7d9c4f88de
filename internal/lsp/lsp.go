// Package lsp implements the Language Server Protocol transport and
// method dispatch over stdio, wired to an internal/server.ServerContext.
//
// Grounded on
// _examples/varavelio-vdl/toolchain/internal/lsp/{lsp,transport,uri}.go:
// a hand-rolled Content-Length JSON-RPC framing (no third-party LSP SDK
// appears anywhere in the example pack) and a handleMessage dispatch
// that decodes each frame to a map, switches on its "method" field, and
// sends back whatever the handler returns.
package lsp

import (
	"bufio"
	"context"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/suoto/hdl-checker/internal/diagnostics"
	"github.com/suoto/hdl-checker/internal/server"
)

const debounceWindow = 500 * time.Millisecond

// LSP Info/StyleInfo -> Hint; StyleWarning/StyleError -> Information;
// Warning -> Warning; Error/None -> Error (spec §6 severity mapping).
const (
	severityError       = 1
	severityWarning     = 2
	severityInformation = 3
	severityHint        = 4
)

// Server runs the LSP method dispatch loop over reader/writer, backed by
// ctx for project lifecycle and diagnostics.
type Server struct {
	reader io.Reader
	writer io.Writer
	logger *slog.Logger
	ctx    *server.ServerContext

	writeMu sync.Mutex

	projectMu   sync.RWMutex
	projectFile string

	openMu sync.Mutex
	open   map[string]struct{} // open document URIs

	debounceMu sync.Mutex
	debounce   map[string]*time.Timer
}

// New builds an LSP server. logger may be nil.
func New(reader io.Reader, writer io.Writer, ctx *server.ServerContext, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	return &Server{
		reader:   reader,
		writer:   writer,
		logger:   logger.With("component", "lsp"),
		ctx:      ctx,
		open:     make(map[string]struct{}),
		debounce: make(map[string]*time.Timer),
	}
}

// Run reads and dispatches frames until the stream closes or exit is
// received.
func (s *Server) Run() error {
	scanner := bufio.NewScanner(s.reader)
	scanner.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)
	scanner.Split(scannerSplitFunc)

	for scanner.Scan() {
		shouldExit, err := s.handleMessage(scanner.Bytes())
		if err != nil {
			s.logger.Error("failed to handle message", "error", err)
			continue
		}
		if shouldExit {
			return nil
		}
	}
	return scanner.Err()
}

func (s *Server) handleMessage(raw []byte) (shouldExit bool, err error) {
	defer func() {
		if r := recover(); r != nil {
			s.logger.Error("recovered from panic handling message", "panic", r)
		}
	}()

	msg, err := decodeToMap(raw)
	if err != nil {
		return false, err
	}
	method, _ := msg["method"].(string)
	id := msg["id"]

	var result any
	var handlerErr error

	switch method {
	case "initialize":
		result, handlerErr = s.handleInitialize(msg)
	case "initialized":
		return false, nil
	case "shutdown":
		result = nil
	case "exit":
		return true, nil
	case "textDocument/didOpen":
		s.handleDidOpen(msg)
	case "textDocument/didChange":
		s.handleDidChange(msg)
	case "textDocument/didSave":
		s.handleDidSave(msg)
	case "textDocument/didClose":
		s.handleDidClose(msg)
	case "workspace/didChangeConfiguration":
		s.handleDidChangeConfiguration(msg)
	case "workspace/didChangeWatchedFiles":
		s.handleDidChangeWatchedFiles(msg)
	default:
		s.logger.Debug("unhandled method", "method", method)
	}

	if id == nil {
		return false, nil
	}
	return false, s.sendResponse(id, result, handlerErr)
}

func (s *Server) sendResponse(id, result any, handlerErr error) error {
	response := map[string]any{"jsonrpc": "2.0", "id": id}
	if handlerErr != nil {
		response["error"] = map[string]any{"code": -32603, "message": handlerErr.Error()}
	} else {
		response["result"] = result
	}
	return s.send(response)
}

func (s *Server) send(message any) error {
	encoded, err := encode(message)
	if err != nil {
		return err
	}
	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	_, err = s.writer.Write(encoded)
	return err
}

func (s *Server) handleInitialize(msg map[string]any) (any, error) {
	if params, ok := msg["params"].(map[string]any); ok {
		if opts, ok := params["initializationOptions"].(map[string]any); ok {
			if pf, ok := opts["project_file"].(string); ok && pf != "" {
				s.setProjectFile(pf)
			}
		}
	}
	return map[string]any{
		"capabilities": map[string]any{
			"textDocumentSync": 1, // Full
		},
	}, nil
}

func (s *Server) setProjectFile(pf string) {
	s.projectMu.Lock()
	s.projectFile = pf
	s.projectMu.Unlock()
}

func (s *Server) getProjectFile() string {
	s.projectMu.RLock()
	defer s.projectMu.RUnlock()
	return s.projectFile
}

func textDocumentURI(msg map[string]any) string {
	params, _ := msg["params"].(map[string]any)
	doc, _ := params["textDocument"].(map[string]any)
	uri, _ := doc["uri"].(string)
	return uri
}

func (s *Server) handleDidOpen(msg map[string]any) {
	uri := textDocumentURI(msg)
	if uri == "" {
		return
	}
	s.openMu.Lock()
	s.open[uri] = struct{}{}
	s.openMu.Unlock()
	s.scheduleLint(uri)
}

func (s *Server) handleDidChange(msg map[string]any) {
	if uri := textDocumentURI(msg); uri != "" {
		s.scheduleLint(uri)
	}
}

func (s *Server) handleDidSave(msg map[string]any) {
	if uri := textDocumentURI(msg); uri != "" {
		s.scheduleLint(uri)
	}
}

func (s *Server) handleDidClose(msg map[string]any) {
	uri := textDocumentURI(msg)
	if uri == "" {
		return
	}
	s.openMu.Lock()
	delete(s.open, uri)
	s.openMu.Unlock()

	s.debounceMu.Lock()
	if t, ok := s.debounce[uri]; ok {
		t.Stop()
		delete(s.debounce, uri)
	}
	s.debounceMu.Unlock()
}

// handleDidChangeConfiguration may update the active project_file, which
// invalidates every previously published diagnostic set since messages
// are now scoped to a different project (spec §6 workspace/didChangeConfiguration).
func (s *Server) handleDidChangeConfiguration(msg map[string]any) {
	params, _ := msg["params"].(map[string]any)
	settings, _ := params["settings"].(map[string]any)
	pf, ok := settings["project_file"].(string)
	if !ok {
		return
	}
	s.setProjectFile(pf)

	s.openMu.Lock()
	uris := make([]string, 0, len(s.open))
	for uri := range s.open {
		uris = append(uris, uri)
	}
	s.openMu.Unlock()
	for _, uri := range uris {
		s.scheduleLint(uri)
	}
}

// handleDidChangeWatchedFiles relints every open document not itself
// named by the change event, since those will already relint via
// didChange/didSave.
func (s *Server) handleDidChangeWatchedFiles(msg map[string]any) {
	params, _ := msg["params"].(map[string]any)
	changes, _ := params["changes"].([]any)
	changed := make(map[string]struct{}, len(changes))
	for _, c := range changes {
		entry, _ := c.(map[string]any)
		if uri, ok := entry["uri"].(string); ok {
			changed[uri] = struct{}{}
		}
	}

	s.openMu.Lock()
	uris := make([]string, 0, len(s.open))
	for uri := range s.open {
		if _, ok := changed[uri]; !ok {
			uris = append(uris, uri)
		}
	}
	s.openMu.Unlock()
	for _, uri := range uris {
		s.scheduleLint(uri)
	}
}

// scheduleLint debounces lint requests per URI: only the last request
// within the quiet window actually runs (spec §5 500ms debounce).
func (s *Server) scheduleLint(uri string) {
	s.debounceMu.Lock()
	defer s.debounceMu.Unlock()
	if t, ok := s.debounce[uri]; ok {
		t.Stop()
	}
	s.debounce[uri] = time.AfterFunc(debounceWindow, func() { s.lintAndPublish(uri) })
}

func (s *Server) lintAndPublish(uri string) {
	path := uriToPath(uri)
	projectFile := s.getProjectFile()

	diags, err := s.ctx.MessagesByPath(context.Background(), projectFile, path)
	if err != nil {
		s.logger.Error("failed to lint document", "uri", uri, "error", err)
		return
	}
	if err := s.publishDiagnostics(uri, diags); err != nil {
		s.logger.Error("failed to publish diagnostics", "uri", uri, "error", err)
	}
}

func (s *Server) publishDiagnostics(uri string, diags []diagnostics.Diagnostic) error {
	items := make([]map[string]any, 0, len(diags))
	for _, d := range diags {
		items = append(items, lspDiagnostic(d))
	}
	return s.send(map[string]any{
		"jsonrpc": "2.0",
		"method":  "textDocument/publishDiagnostics",
		"params": map[string]any{
			"uri":         uri,
			"diagnostics": items,
		},
	})
}

func lspDiagnostic(d diagnostics.Diagnostic) map[string]any {
	line, column := 0, 0
	if d.Line != nil {
		line = *d.Line - 1
	}
	if d.Column != nil {
		column = *d.Column - 1
	}
	if line < 0 {
		line = 0
	}
	if column < 0 {
		column = 0
	}
	return map[string]any{
		"range": map[string]any{
			"start": map[string]any{"line": line, "character": column},
			"end":   map[string]any{"line": line, "character": column},
		},
		"severity": lspSeverity(d.Severity),
		"code":     d.ErrorCode,
		"source":   d.Checker,
		"message":  d.Text,
	}
}

func lspSeverity(sev diagnostics.Severity) int {
	switch sev {
	case diagnostics.Info, diagnostics.StyleInfo:
		return severityHint
	case diagnostics.StyleWarning, diagnostics.StyleError:
		return severityInformation
	case diagnostics.Warning:
		return severityWarning
	default:
		return severityError
	}
}
