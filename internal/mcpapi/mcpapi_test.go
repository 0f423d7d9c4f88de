package mcpapi

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/suoto/hdl-checker/internal/server"
)

func newTestProject(t *testing.T) (dir, projectFile string) {
	t.Helper()
	dir = t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "foo.vhd"), []byte("entity foo is end entity;"), 0o644); err != nil {
		t.Fatal(err)
	}
	projectFile = filepath.Join(dir, "project.cfg")
	if err := os.WriteFile(projectFile, []byte("vhdl mylib foo.vhd\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	return dir, projectFile
}

func callToolRequest(t *testing.T, params any) *mcp.CallToolRequest {
	t.Helper()
	raw, err := json.Marshal(params)
	if err != nil {
		t.Fatal(err)
	}
	return &mcp.CallToolRequest{Params: &mcp.CallToolParamsRaw{Arguments: raw}}
}

func resultText(t *testing.T, result *mcp.CallToolResult) string {
	t.Helper()
	if len(result.Content) != 1 {
		t.Fatalf("expected exactly one content block, got %d", len(result.Content))
	}
	text, ok := result.Content[0].(*mcp.TextContent)
	if !ok {
		t.Fatalf("expected a TextContent block, got %T", result.Content[0])
	}
	return text.Text
}

func TestHandleDiagnoseProjectIncludesBuilder(t *testing.T) {
	_, projectFile := newTestProject(t)
	s := New(server.New(nil), nil)

	result, err := s.handleDiagnoseProject(context.Background(), callToolRequest(t, diagnoseParams{ProjectFile: projectFile}))
	if err != nil {
		t.Fatal(err)
	}
	if result.IsError {
		t.Fatalf("unexpected error result: %s", resultText(t, result))
	}
	if !strings.Contains(resultText(t, result), "Builder: fallback") {
		t.Fatalf("expected a Builder line, got %s", resultText(t, result))
	}
}

func TestHandleGetMessagesReturnsSyntheticWarningForUnknownPath(t *testing.T) {
	dir, projectFile := newTestProject(t)
	s := New(server.New(nil), nil)

	result, err := s.handleGetMessages(context.Background(), callToolRequest(t, getMessagesParams{
		ProjectFile: projectFile,
		Path:        filepath.Join(dir, "not_configured.vhd"),
	}))
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(resultText(t, result), `"error_type":"Warning"`) {
		t.Fatalf("expected a Warning severity message, got %s", resultText(t, result))
	}
}

func TestHandleGetMessagesReportsInvalidParameters(t *testing.T) {
	s := New(server.New(nil), nil)
	req := &mcp.CallToolRequest{Params: &mcp.CallToolParamsRaw{Arguments: []byte(`not json`)}}

	result, err := s.handleGetMessages(context.Background(), req)
	if err != nil {
		t.Fatal(err)
	}
	if !result.IsError {
		t.Fatal("expected an error result for malformed arguments")
	}
}

func TestHandleRebuildProjectSucceeds(t *testing.T) {
	_, projectFile := newTestProject(t)
	s := New(server.New(nil), nil)

	result, err := s.handleRebuildProject(context.Background(), callToolRequest(t, rebuildParams{ProjectFile: projectFile}))
	if err != nil {
		t.Fatal(err)
	}
	if result.IsError {
		t.Fatalf("unexpected error result: %s", resultText(t, result))
	}
	if !strings.Contains(resultText(t, result), `"success":true`) {
		t.Fatalf("expected success:true, got %s", resultText(t, result))
	}
}
