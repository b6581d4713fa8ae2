// Package ingest loads already-textual documents (.md, .txt, .html,
// .docx) as Markdown so the pipeline can enter directly at the analysis
// stage without OCR.
package ingest

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// CanIngest reports whether path has a directly-analyzable extension.
func CanIngest(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".md", ".markdown", ".txt", ".html", ".htm", ".docx":
		return true
	}
	return false
}

// Load reads the file and converts it to Markdown text.
func Load(path string) (string, error) {
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".md", ".markdown", ".txt":
		data, err := os.ReadFile(path)
		if err != nil {
			return "", fmt.Errorf("read %s: %w", path, err)
		}
		return string(data), nil
	case ".html", ".htm":
		f, err := os.Open(path)
		if err != nil {
			return "", fmt.Errorf("open %s: %w", path, err)
		}
		defer f.Close()
		return fromHTML(f)
	case ".docx":
		return fromDOCX(path)
	default:
		return "", fmt.Errorf("unsupported document type %q (want .md, .txt, .html, .docx)", ext)
	}
}
