// Package report renders a pipeline result as a Markdown report and a
// JSON data file, with optional HTML and PDF renditions.
package report

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/dhowell3/paperscope/internal/document"
)

const maxFilenameLen = 80

// Options selects the optional renditions.
type Options struct {
	HTML bool
	PDF  bool
}

// Output lists the files one Write call produced.
type Output struct {
	Markdown string
	JSON     string
	HTML     string
	PDF      string
}

// Generator writes reports for completed pipeline runs.
type Generator struct {
	opts Options
	log  *slog.Logger
}

func NewGenerator(opts Options, log *slog.Logger) *Generator {
	return &Generator{opts: opts, log: log}
}

// Write renders <title>_report.md and <title>_analysis.json under dir,
// plus .html/.pdf renditions when enabled.
func (g *Generator) Write(result *document.Result, dir string) (Output, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return Output{}, fmt.Errorf("create report dir: %w", err)
	}
	name := document.SanitizeFilename(result.Structure.Title, maxFilenameLen)
	markdown := buildMarkdown(result)

	var out Output
	out.Markdown = filepath.Join(dir, name+"_report.md")
	if err := os.WriteFile(out.Markdown, []byte(markdown), 0o644); err != nil {
		return out, fmt.Errorf("write report markdown: %w", err)
	}

	out.JSON = filepath.Join(dir, name+"_analysis.json")
	data, err := json.MarshalIndent(buildJSON(result), "", "  ")
	if err != nil {
		return out, fmt.Errorf("marshal analysis data: %w", err)
	}
	if err := os.WriteFile(out.JSON, data, 0o644); err != nil {
		return out, fmt.Errorf("write analysis json: %w", err)
	}

	if g.opts.HTML {
		out.HTML = filepath.Join(dir, name+"_report.html")
		if err := writeHTML(markdown, result.Structure.Title, out.HTML); err != nil {
			return out, fmt.Errorf("write html rendition: %w", err)
		}
	}
	if g.opts.PDF {
		out.PDF = filepath.Join(dir, name+"_report.pdf")
		if err := writePDF(markdown, out.PDF); err != nil {
			return out, fmt.Errorf("write pdf rendition: %w", err)
		}
	}

	g.log.Info("report written", "markdown", out.Markdown, "json", out.JSON,
		"html", out.HTML != "", "pdf", out.PDF != "")
	return out, nil
}

func buildMarkdown(result *document.Result) string {
	meta := result.Metadata
	st := result.Structure

	var b strings.Builder
	fmt.Fprintf(&b, "# %s - Analysis Report\n\n", st.Title)
	fmt.Fprintf(&b, "> Generated %s\n\n", time.Now().Format("2006-01-02 15:04"))

	author := meta.Author
	if author == "" {
		author = "unknown"
	}
	b.WriteString("| Item | Value |\n|------|-------|\n")
	fmt.Fprintf(&b, "| Author | %s |\n", author)
	fmt.Fprintf(&b, "| Pages | %d |\n", meta.Pages)
	fmt.Fprintf(&b, "| Analysis mode | %s |\n", result.Analysis.Type)
	fmt.Fprintf(&b, "| Model | %s |\n", result.Analysis.Model)
	fmt.Fprintf(&b, "| Elapsed | %.1f s |\n\n", result.Elapsed.Seconds())

	if st.Abstract != "" {
		fmt.Fprintf(&b, "## Abstract\n\n%s\n\n", st.Abstract)
	}

	if len(st.Sections) > 0 {
		b.WriteString("## Document structure\n\n")
		for _, s := range st.Sections {
			fmt.Fprintf(&b, "%s- %s\n", strings.Repeat("  ", s.Level-1), s.Title)
		}
		b.WriteString("\n")
	}

	fmt.Fprintf(&b, "## Analysis\n\n%s\n\n---\n*Generated by paperscope*\n", result.Analysis.Text)
	return b.String()
}

func buildJSON(result *document.Result) map[string]any {
	st := result.Structure
	return map[string]any{
		"metadata": map[string]any{
			"title":       st.Title,
			"author":      result.Metadata.Author,
			"total_pages": result.Metadata.Pages,
			"source_file": result.Source,
		},
		"structure": map[string]any{
			"title":                 st.Title,
			"abstract":              st.Abstract,
			"sections":              st.Sections,
			"figures_count":         len(st.Figures),
			"tables_count":          len(st.Tables),
			"references_start_page": st.ReferencesPage,
		},
		"analysis": map[string]any{
			"type":        result.Analysis.Type,
			"model":       result.Analysis.Model,
			"token_count": result.Analysis.Tokens,
			"text":        result.Analysis.Text,
		},
		"processing": map[string]any{
			"time_seconds": result.Elapsed.Seconds(),
			"generated_at": time.Now().Format(time.RFC3339),
			"from_cache":   result.FromCache,
		},
	}
}
