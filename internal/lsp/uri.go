package lsp

import (
	"net/url"
	"runtime"
	"strings"
)

// uriToPath converts an LSP "file://" URI to an absolute filesystem path,
// percent-decoding it and stripping the Windows drive-letter leading
// slash where applicable.
func uriToPath(uri string) string {
	if !strings.HasPrefix(strings.ToLower(uri), "file://") {
		return uri
	}
	u, err := url.Parse(uri)
	if err != nil {
		return strings.TrimPrefix(uri, "file://")
	}
	path := u.Path
	if runtime.GOOS == "windows" && len(path) >= 3 && path[0] == '/' && path[2] == ':' {
		path = path[1:]
	}
	return filepathFromSlash(path)
}

// pathToURI converts an absolute filesystem path to a "file://" URI.
func pathToURI(path string) string {
	path = filepathToSlash(path)
	if runtime.GOOS == "windows" && len(path) >= 2 && path[1] == ':' {
		path = "/" + path
	}
	u := url.URL{Scheme: "file", Path: path}
	return u.String()
}

func filepathFromSlash(p string) string {
	if runtime.GOOS != "windows" {
		return p
	}
	return strings.ReplaceAll(p, "/", `\`)
}

func filepathToSlash(p string) string {
	if runtime.GOOS != "windows" {
		return p
	}
	return strings.ReplaceAll(p, `\`, "/")
}
