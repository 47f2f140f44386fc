package filesystem

import (
	"mime"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/go-enry/go-enry/v2"
)

// knownExtensions take precedence over the platform MIME table, which varies
// between systems.
var knownExtensions = map[string]string{
	".txt":      "text/plain",
	".text":     "text/plain",
	".log":      "text/plain",
	".md":       "text/markdown",
	".markdown": "text/markdown",
	".csv":      "text/csv",
	".tsv":      "text/tab-separated-values",
	".json":     "application/json",
	".xml":      "application/xml",
	".html":     "text/html",
	".htm":      "text/html",
	".pdf":      "application/pdf",
	".docx":     "application/vnd.openxmlformats-officedocument.wordprocessingml.document",
	".yaml":     "text/yaml",
	".yml":      "text/yaml",
	".toml":     "text/toml",
}

// languageTypes maps enry language names to content types.
var languageTypes = map[string]string{
	"Go":         "text/x-go",
	"Python":     "text/x-python",
	"Java":       "text/x-java",
	"JavaScript": "text/javascript",
	"Shell":      "text/x-shellscript",
	"SQL":        "text/x-sql",
	"CSS":        "text/css",
	"Markdown":   "text/markdown",
	"HTML":       "text/html",
	"JSON":       "application/json",
	"YAML":       "text/yaml",
	"TOML":       "text/toml",
	"XML":        "application/xml",
	"Text":       "text/plain",
}

// DetectContentType returns the content type of a file from its name and, when
// the name is not conclusive, its leading bytes.
func DetectContentType(path string, head []byte) string {
	ext := strings.ToLower(filepath.Ext(path))
	if ct, ok := knownExtensions[ext]; ok {
		return ct
	}
	if ct := mime.TypeByExtension(ext); ct != "" {
		return baseType(ct)
	}

	if ct, ok := languageTypes[enry.GetLanguage(filepath.Base(path), head)]; ok {
		return ct
	}

	if len(head) == 0 {
		return "text/plain"
	}
	return baseType(http.DetectContentType(head))
}

func baseType(ct string) string {
	base, _, _ := strings.Cut(ct, ";")
	return strings.TrimSpace(base)
}
