// Package httpapi exposes internal/server.ServerContext's project
// operations over plain HTTP POST endpoints, for clients that don't
// speak LSP (editors integrations, scripts, CI).
//
// Grounded on original_source/hdlcc/handlers.py's bottle app: the same
// five endpoints, the same form-encoded request fields
// (bottle.request.forms.get), and the same JSON response shapes. The
// net/http.ServeMux + per-route handler method wiring follows
// standardbeagle-lci/internal/server/server.go's registerHandlers.
package httpapi

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/suoto/hdl-checker/internal/diagnostics"
	"github.com/suoto/hdl-checker/internal/server"
)

// Handler serves the HTTP surface backed by a ServerContext.
type Handler struct {
	ctx    *server.ServerContext
	logger *slog.Logger
	onShutdown func()
}

// New builds a Handler. onShutdown, if non-nil, is invoked after the
// /shutdown response is written (the process's own exit sequence).
func New(ctx *server.ServerContext, logger *slog.Logger, onShutdown func()) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{ctx: ctx, logger: logger.With("component", "httpapi"), onShutdown: onShutdown}
}

// Mux builds the ServeMux exposing every endpoint.
func (h *Handler) Mux() *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("/get_diagnose_info", h.handleDiagnoseInfo)
	mux.HandleFunc("/get_messages_by_path", h.handleMessagesByPath)
	mux.HandleFunc("/get_ui_messages", h.handleUIMessages)
	mux.HandleFunc("/rebuild_project", h.handleRebuildProject)
	mux.HandleFunc("/shutdown", h.handleShutdown)
	return mux
}

// response is the JSON envelope every endpoint returns, matching the
// original's {messages, ui_messages, info, error} shape (only the
// fields relevant to a given endpoint are populated).
type response struct {
	Messages   []messageJSON `json:"messages,omitempty"`
	UIMessages []uiMessageJSON `json:"ui_messages,omitempty"`
	Info       []string      `json:"info,omitempty"`
	Error      string        `json:"error,omitempty"`
}

type messageJSON struct {
	Checker   string `json:"checker"`
	Path      string `json:"path,omitempty"`
	Line      *int   `json:"line,omitempty"`
	Column    *int   `json:"column,omitempty"`
	ErrorCode string `json:"error_code,omitempty"`
	Severity  string `json:"error_type"`
	Text      string `json:"error_message"`
}

type uiMessageJSON [2]string // [severity, text], mirroring the original's (severity, message) tuple

func messageOf(d diagnostics.Diagnostic) messageJSON {
	m := messageJSON{
		Checker:   d.Checker,
		ErrorCode: d.ErrorCode,
		Severity:  d.Severity.String(),
		Text:      d.Text,
		Line:      d.Line,
		Column:    d.Column,
	}
	if d.Path != nil {
		m.Path = d.Path.String()
	}
	return m
}

func writeJSON(w http.ResponseWriter, resp response) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(resp)
}

func writeError(w http.ResponseWriter, err error) {
	writeJSON(w, response{Error: err.Error()})
}

func (h *Handler) handleDiagnoseInfo(w http.ResponseWriter, r *http.Request) {
	r.ParseForm()
	projectFile := r.FormValue("project_file")

	info, err := h.ctx.DiagnoseInfo(r.Context(), projectFile)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, response{Info: info})
}

func (h *Handler) handleMessagesByPath(w http.ResponseWriter, r *http.Request) {
	r.ParseForm()
	projectFile := r.FormValue("project_file")
	path := r.FormValue("path")

	diags, err := h.ctx.MessagesByPath(r.Context(), projectFile, path)
	if err != nil {
		writeError(w, err)
		return
	}
	messages := make([]messageJSON, 0, len(diags))
	for _, d := range diags {
		messages = append(messages, messageOf(d))
	}
	writeJSON(w, response{Messages: messages})
}

func (h *Handler) handleUIMessages(w http.ResponseWriter, r *http.Request) {
	r.ParseForm()
	projectFile := r.FormValue("project_file")

	msgs, err := h.ctx.UIMessages(r.Context(), projectFile)
	if err != nil {
		writeError(w, err)
		return
	}
	uiMessages := make([]uiMessageJSON, 0, len(msgs))
	for _, m := range msgs {
		uiMessages = append(uiMessages, uiMessageJSON{m.Severity, m.Text})
	}
	writeJSON(w, response{UIMessages: uiMessages})
}

func (h *Handler) handleRebuildProject(w http.ResponseWriter, r *http.Request) {
	r.ParseForm()
	projectFile := r.FormValue("project_file")

	if err := h.ctx.RebuildProject(r.Context(), projectFile); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, response{})
}

func (h *Handler) handleShutdown(w http.ResponseWriter, r *http.Request) {
	h.logger.Info("shutdown requested")
	h.ctx.Shutdown()
	writeJSON(w, response{})
	if h.onShutdown != nil {
		h.onShutdown()
	}
}
