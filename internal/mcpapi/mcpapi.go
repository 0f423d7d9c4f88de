// Package mcpapi exposes internal/server.ServerContext's project
// operations as MCP tools, an additive transport beyond spec.md's LSP
// and HTTP surfaces (SPEC_FULL.md §4): the same diagnose/messages/
// rebuild operations, reachable from an MCP-speaking client.
//
// Grounded on standardbeagle-lci/internal/mcp/server.go's
// mcp.NewServer/AddTool wiring and handlers.go's manual
// json.Unmarshal(req.Params.Arguments, ...) parameter decoding.
package mcpapi

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/google/jsonschema-go/jsonschema"
	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/suoto/hdl-checker/internal/diagnostics"
	"github.com/suoto/hdl-checker/internal/server"
)

// Server wraps an MCP server exposing hdl-checker's project operations.
type Server struct {
	mcp    *mcp.Server
	ctx    *server.ServerContext
	logger *slog.Logger
}

// New builds the MCP server and registers its tools.
func New(ctx *server.ServerContext, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Server{
		ctx:    ctx,
		logger: logger.With("component", "mcpapi"),
	}
	s.mcp = mcp.NewServer(&mcp.Implementation{
		Name:    "hdl-checker-mcp-server",
		Version: server.Version,
	}, nil)
	s.registerTools()
	return s
}

// Run serves the MCP protocol over stdio until the transport closes.
func (s *Server) Run(ctx context.Context) error {
	return s.mcp.Run(ctx, &mcp.StdioTransport{})
}

func (s *Server) registerTools() {
	s.mcp.AddTool(&mcp.Tool{
		Name:        "hdl_diagnose_project",
		Description: "Report hdl-checker daemon status and the active builder for a project.",
		InputSchema: &jsonschema.Schema{
			Type: "object",
			Properties: map[string]*jsonschema.Schema{
				"project_file": {Type: "string", Description: "Path to the project configuration file"},
			},
		},
	}, s.handleDiagnoseProject)

	s.mcp.AddTool(&mcp.Tool{
		Name:        "hdl_get_messages",
		Description: "Get compiler and static-linter diagnostics for a source file in a project.",
		InputSchema: &jsonschema.Schema{
			Type: "object",
			Properties: map[string]*jsonschema.Schema{
				"project_file": {Type: "string", Description: "Path to the project configuration file"},
				"path":         {Type: "string", Description: "Path to the source file to check"},
			},
			Required: []string{"path"},
		},
	}, s.handleGetMessages)

	s.mcp.AddTool(&mcp.Tool{
		Name:        "hdl_rebuild_project",
		Description: "Discard a project's in-memory state, load it again from its configuration and start a new background build.",
		InputSchema: &jsonschema.Schema{
			Type: "object",
			Properties: map[string]*jsonschema.Schema{
				"project_file": {Type: "string", Description: "Path to the project configuration file"},
			},
		},
	}, s.handleRebuildProject)
}

type diagnoseParams struct {
	ProjectFile string `json:"project_file"`
}

func (s *Server) handleDiagnoseProject(ctx context.Context, req *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var params diagnoseParams
	if err := json.Unmarshal(req.Params.Arguments, &params); err != nil {
		return errorResult("hdl_diagnose_project", fmt.Errorf("invalid parameters: %w", err))
	}

	info, err := s.ctx.DiagnoseInfo(ctx, params.ProjectFile)
	if err != nil {
		return errorResult("hdl_diagnose_project", err)
	}
	return jsonResult(map[string]any{"info": info})
}

type getMessagesParams struct {
	ProjectFile string `json:"project_file"`
	Path        string `json:"path"`
}

func (s *Server) handleGetMessages(ctx context.Context, req *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var params getMessagesParams
	if err := json.Unmarshal(req.Params.Arguments, &params); err != nil {
		return errorResult("hdl_get_messages", fmt.Errorf("invalid parameters: %w", err))
	}

	diags, err := s.ctx.MessagesByPath(ctx, params.ProjectFile, params.Path)
	if err != nil {
		return errorResult("hdl_get_messages", err)
	}
	return jsonResult(map[string]any{"messages": messagesOf(diags)})
}

type rebuildParams struct {
	ProjectFile string `json:"project_file"`
}

func (s *Server) handleRebuildProject(ctx context.Context, req *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var params rebuildParams
	if err := json.Unmarshal(req.Params.Arguments, &params); err != nil {
		return errorResult("hdl_rebuild_project", fmt.Errorf("invalid parameters: %w", err))
	}

	if err := s.ctx.RebuildProject(ctx, params.ProjectFile); err != nil {
		return errorResult("hdl_rebuild_project", err)
	}
	return jsonResult(map[string]any{"success": true})
}

func messagesOf(diags []diagnostics.Diagnostic) []map[string]any {
	out := make([]map[string]any, 0, len(diags))
	for _, d := range diags {
		msg := map[string]any{
			"checker":       d.Checker,
			"error_type":    d.Severity.String(),
			"error_message": d.Text,
		}
		if d.Path != nil {
			msg["path"] = d.Path.String()
		}
		if d.Line != nil {
			msg["line"] = *d.Line
		}
		if d.Column != nil {
			msg["column"] = *d.Column
		}
		if d.ErrorCode != "" {
			msg["error_code"] = d.ErrorCode
		}
		out = append(out, msg)
	}
	return out
}

// jsonResult mirrors standardbeagle-lci's createJSONResponse: marshal
// the payload and wrap it as the tool result's single text content
// block.
func jsonResult(data any) (*mcp.CallToolResult, error) {
	content, err := json.Marshal(data)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal response data: %w", err)
	}
	return &mcp.CallToolResult{
		Content: []mcp.Content{&mcp.TextContent{Text: string(content)}},
	}, nil
}

// errorResult mirrors createErrorResponse: tool-level errors are
// reported inside the result with IsError set, per the MCP spec, not
// as a protocol-level error, so the calling model can see and
// self-correct.
func errorResult(operation string, err error) (*mcp.CallToolResult, error) {
	result, marshalErr := jsonResult(map[string]any{
		"success":   false,
		"error":     err.Error(),
		"operation": operation,
	})
	if marshalErr != nil {
		return nil, marshalErr
	}
	result.IsError = true
	return result, nil
}
