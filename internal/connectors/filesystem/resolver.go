package filesystem

import (
	"net/url"
	"path/filepath"
	"strings"
)

// ResolveWebURL converts a local path to a file:// URL.
func ResolveWebURL(path string) string {
	if path == "" {
		return ""
	}
	if strings.HasPrefix(path, "file://") {
		return path
	}
	u := url.URL{Scheme: "file", Path: filepath.ToSlash(path)}
	return u.String()
}
