package lsp

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
)

// scannerSplitFunc is a bufio.Scanner split function for LSP's
// Content-Length framed JSON-RPC stream: "Content-Length: N\r\n\r\n"
// followed by exactly N bytes of JSON.
func scannerSplitFunc(data []byte, _ bool) (advance int, token []byte, err error) {
	if !bytes.HasPrefix(data, []byte("Content-Length: ")) {
		return len(data), nil, nil
	}
	delimiter := []byte("\r\n\r\n")
	header, content, found := bytes.Cut(data, delimiter)
	if !found {
		return 0, nil, nil
	}
	rawContentLength := bytes.TrimPrefix(header, []byte("Content-Length: "))
	rawContentLength = bytes.TrimSpace(rawContentLength)
	contentLength, err := strconv.Atoi(string(rawContentLength))
	if err != nil {
		return 0, nil, fmt.Errorf("invalid Content-Length, should be an integer: %w", err)
	}
	if len(content) < contentLength {
		return 0, nil, nil
	}
	content = content[:contentLength]
	totalLength := len(header) + len(delimiter) + len(content)
	return totalLength, content, nil
}

func encode(data any) ([]byte, error) {
	marshaled, err := json.Marshal(data)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal data: %w", err)
	}
	return fmt.Appendf(nil, "Content-Length: %d\r\n\r\n%s", len(marshaled), marshaled), nil
}

func decodeToMap(data []byte) (map[string]any, error) {
	var v map[string]any
	if err := json.Unmarshal(data, &v); err != nil {
		return nil, fmt.Errorf("failed to decode message: %w", err)
	}
	return v, nil
}
