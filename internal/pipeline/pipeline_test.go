package pipeline

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/dhowell3/paperscope/internal/config"
	"github.com/dhowell3/paperscope/internal/document"
)

// stubGen answers every generation call with a fixed reply.
type stubGen struct {
	prompts []string
}

func (s *stubGen) Generate(_ context.Context, prompt string, _ int) (string, error) {
	s.prompts = append(s.prompts, prompt)
	return fmt.Sprintf("analysis %d", len(s.prompts)), nil
}

func testPipeline(t *testing.T, gen *stubGen) *Pipeline {
	t.Helper()
	cfg := config.Load()
	cfg.CacheDir = filepath.Join(t.TempDir(), "cache")
	cfg.OutputDir = filepath.Join(t.TempDir(), "output")
	return New(cfg, gen, nil, slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func TestRun_IngestedMarkdown(t *testing.T) {
	gen := &stubGen{}
	p := testPipeline(t, gen)

	path := filepath.Join(t.TempDir(), "paper.md")
	content := "# A Minimal but Sufficiently Long Paper Title\n\n## Abstract\n\nWe do things.\n\n## Methods\n\nCarefully.\n"
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	result, err := p.Run(context.Background(), path, Options{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(gen.prompts) != 1 {
		t.Fatalf("short document must issue exactly one generation call, got %d", len(gen.prompts))
	}
	if result.Analysis.Text != "analysis 1" {
		t.Errorf("unexpected analysis text %q", result.Analysis.Text)
	}
	if result.Structure.Title != "A Minimal but Sufficiently Long Paper Title" {
		t.Errorf("unexpected title %q", result.Structure.Title)
	}
	if result.Analysis.Type != document.AnalysisComprehensive {
		t.Errorf("expected comprehensive default, got %q", result.Analysis.Type)
	}
	if result.FromCache {
		t.Error("ingested documents never come from the pipeline cache")
	}
}

func TestRun_UnsupportedInput(t *testing.T) {
	p := testPipeline(t, &stubGen{})
	if _, err := p.Run(context.Background(), "input.xlsx", Options{}); err == nil {
		t.Fatal("expected error for unsupported input")
	}
}

func TestRun_EmptyDocument(t *testing.T) {
	p := testPipeline(t, &stubGen{})
	path := filepath.Join(t.TempDir(), "empty.md")
	if err := os.WriteFile(path, []byte("   \n"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := p.Run(context.Background(), path, Options{}); err == nil {
		t.Fatal("expected error for empty document")
	}
}

func TestCache_RoundTrip(t *testing.T) {
	dir := t.TempDir()
	cache := NewCache(filepath.Join(dir, "pipeline"))

	pdf := filepath.Join(dir, "paper.pdf")
	if err := os.WriteFile(pdf, []byte("%PDF-1.4 fake body"), 0o644); err != nil {
		t.Fatal(err)
	}

	if _, _, ok := cache.Get(pdf); ok {
		t.Fatal("expected cache miss before Put")
	}

	meta := document.Metadata{Title: "Cached Paper", Author: "A. Uthor", Pages: 7, Path: pdf}
	markdown := "# Cached Paper\n\nassembled body"
	if err := cache.Put(pdf, markdown, meta); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	gotMD, gotMeta, ok := cache.Get(pdf)
	if !ok {
		t.Fatal("expected cache hit after Put")
	}
	if gotMD != markdown {
		t.Errorf("cached markdown differs: %q", gotMD)
	}
	if gotMeta != meta {
		t.Errorf("cached metadata differs: %+v", gotMeta)
	}

	// Changing the file content invalidates the entry.
	if err := os.WriteFile(pdf, []byte("%PDF-1.4 different body"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, _, ok := cache.Get(pdf); ok {
		t.Error("expected miss after content change")
	}
}

func TestRunBatch_EmptyDir(t *testing.T) {
	p := testPipeline(t, &stubGen{})
	if _, err := p.RunBatch(context.Background(), t.TempDir(), Options{}); err == nil {
		t.Fatal("expected error for directory without PDFs")
	}
}

func TestRun_LongDocumentChunks(t *testing.T) {
	gen := &stubGen{}
	p := testPipeline(t, gen)

	var b strings.Builder
	b.WriteString("# A Long Structured Paper About Everything\n\n")
	for i := 1; i <= 3; i++ {
		fmt.Fprintf(&b, "# Section %d\n\n%s\n\n", i, strings.Repeat("lorem ipsum dolor sit amet. ", 1000))
	}
	path := filepath.Join(t.TempDir(), "long.md")
	if err := os.WriteFile(path, []byte(b.String()), 0o644); err != nil {
		t.Fatal(err)
	}

	result, err := p.Run(context.Background(), path, Options{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	// Four level-1 sections -> 4 map calls + 1 reduce.
	if len(gen.prompts) != 5 {
		t.Errorf("expected 5 generation calls for a chunked run, got %d", len(gen.prompts))
	}
	if result.Analysis.Text == "" {
		t.Error("expected non-empty analysis")
	}
}
