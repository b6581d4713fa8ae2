package report

import (
	"encoding/json"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/dhowell3/paperscope/internal/document"
)

func sampleResult() *document.Result {
	return &document.Result{
		Source: "papers/graph.pdf",
		Metadata: document.Metadata{
			Title:  "Graph Sparsification at Scale",
			Author: "R. Example",
			Pages:  12,
		},
		Structure: document.Structure{
			Title:    "Graph Sparsification at Scale",
			Abstract: "We study sparsification of large graphs.",
			Sections: []document.Heading{
				{Level: 1, Title: "Introduction", Offset: 0},
				{Level: 2, Title: "Related Work", Offset: 100},
			},
		},
		Analysis: document.Analysis{
			Text:   "The paper proposes a sampling scheme.",
			Type:   document.AnalysisComprehensive,
			Model:  "qwen3-30b-a3b",
			Tokens: 9,
		},
		Pages:   12,
		Elapsed: 3 * time.Second,
	}
}

func TestWrite_MarkdownAndJSON(t *testing.T) {
	dir := t.TempDir()
	g := NewGenerator(Options{}, slog.New(slog.NewTextHandler(io.Discard, nil)))

	out, err := g.Write(sampleResult(), dir)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if filepath.Base(out.Markdown) != "Graph Sparsification at Scale_report.md" {
		t.Errorf("unexpected report filename: %s", out.Markdown)
	}
	if out.HTML != "" || out.PDF != "" {
		t.Errorf("renditions disabled but produced: html=%q pdf=%q", out.HTML, out.PDF)
	}

	md, err := os.ReadFile(out.Markdown)
	if err != nil {
		t.Fatal(err)
	}
	report := string(md)
	for _, want := range []string{
		"# Graph Sparsification at Scale - Analysis Report",
		"| Author | R. Example |",
		"| Pages | 12 |",
		"## Abstract",
		"- Introduction",
		"  - Related Work",
		"## Analysis",
		"The paper proposes a sampling scheme.",
	} {
		if !strings.Contains(report, want) {
			t.Errorf("report missing %q", want)
		}
	}

	raw, err := os.ReadFile(out.JSON)
	if err != nil {
		t.Fatal(err)
	}
	var data map[string]any
	if err := json.Unmarshal(raw, &data); err != nil {
		t.Fatalf("analysis json invalid: %v", err)
	}
	analysis, ok := data["analysis"].(map[string]any)
	if !ok {
		t.Fatal("analysis section missing")
	}
	if analysis["model"] != "qwen3-30b-a3b" {
		t.Errorf("expected model in json, got %v", analysis["model"])
	}
	st, ok := data["structure"].(map[string]any)
	if !ok {
		t.Fatal("structure section missing")
	}
	if st["title"] != "Graph Sparsification at Scale" {
		t.Errorf("expected structure title, got %v", st["title"])
	}
}

func TestWrite_Renditions(t *testing.T) {
	dir := t.TempDir()
	g := NewGenerator(Options{HTML: true, PDF: true}, slog.New(slog.NewTextHandler(io.Discard, nil)))

	out, err := g.Write(sampleResult(), dir)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	html, err := os.ReadFile(out.HTML)
	if err != nil {
		t.Fatalf("html rendition unreadable: %v", err)
	}
	if !strings.Contains(string(html), "<h1") || !strings.Contains(string(html), "Analysis Report") {
		t.Error("html rendition missing rendered heading")
	}

	pdf, err := os.ReadFile(out.PDF)
	if err != nil {
		t.Fatalf("pdf rendition unreadable: %v", err)
	}
	if !strings.HasPrefix(string(pdf), "%PDF-") {
		t.Error("pdf rendition is not a PDF file")
	}
}

func TestWrite_UntitledFallsBack(t *testing.T) {
	dir := t.TempDir()
	g := NewGenerator(Options{}, slog.New(slog.NewTextHandler(io.Discard, nil)))

	result := sampleResult()
	result.Structure.Title = ""
	out, err := g.Write(result, dir)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if filepath.Base(out.Markdown) != "paper_report.md" {
		t.Errorf("expected paper_report.md fallback, got %s", out.Markdown)
	}
}
