package analysis

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/dhowell3/paperscope/internal/document"
)

func TestEngine_SingleCallBelowThreshold(t *testing.T) {
	gen := &stubGen{}
	e := NewEngine(gen, EngineConfig{
		Model:   "test-model",
		Chunker: ChunkerConfig{MaxTextLength: 50000},
	}, testLogger())

	got, err := e.Analyze(context.Background(), "A short paper body.", document.Structure{}, document.AnalysisQuick)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(gen.prompts) != 1 {
		t.Fatalf("expected exactly 1 generation call, got %d", len(gen.prompts))
	}
	if !strings.Contains(gen.prompts[0], "A short paper body.") {
		t.Errorf("expected document in prompt, got %q", gen.prompts[0])
	}
	if got.Text != "reply 1" {
		t.Errorf("expected generator output, got %q", got.Text)
	}
	if got.Model != "test-model" || got.Type != document.AnalysisQuick {
		t.Errorf("unexpected result metadata: %+v", got)
	}
	if got.Tokens == 0 {
		t.Error("expected a non-zero token estimate")
	}
}

func TestEngine_ContextHintIncluded(t *testing.T) {
	gen := &stubGen{}
	e := NewEngine(gen, EngineConfig{Chunker: ChunkerConfig{MaxTextLength: 50000}}, testLogger())

	st := document.Structure{
		Title:    "A Paper About Things",
		Abstract: "We do things.",
		Sections: []document.Heading{
			{Level: 1, Title: "Introduction", Offset: 0},
			{Level: 2, Title: "Related work", Offset: 40},
			{Level: 3, Title: "Too deep for the hint", Offset: 80},
		},
	}
	if _, err := e.Analyze(context.Background(), "body", st, document.AnalysisComprehensive); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	prompt := gen.prompts[0]
	if !strings.Contains(prompt, "Title: A Paper About Things") {
		t.Error("expected title hint in prompt")
	}
	if !strings.Contains(prompt, "Abstract: We do things.") {
		t.Error("expected abstract hint in prompt")
	}
	if !strings.Contains(prompt, "Contents: Introduction, Related work") {
		t.Error("expected table of contents hint in prompt")
	}
	if strings.Contains(prompt, "Too deep for the hint") {
		t.Error("level-3 headings must stay out of the hint")
	}
}

func TestEngine_EmptyDocument(t *testing.T) {
	gen := &stubGen{}
	e := NewEngine(gen, EngineConfig{}, testLogger())

	_, err := e.Analyze(context.Background(), "   \n\t", document.Structure{}, document.AnalysisComprehensive)
	if !errors.Is(err, ErrNoContent) {
		t.Fatalf("expected ErrNoContent, got %v", err)
	}
	if len(gen.prompts) != 0 {
		t.Fatalf("expected no generation calls, got %d", len(gen.prompts))
	}
}

func TestEngine_ChunkedPathCallCount(t *testing.T) {
	text := "# One\n" + strings.Repeat("a", 30) + "\n# Two\n" + strings.Repeat("b", 30) + "\n# Three\n" + strings.Repeat("c", 30)
	st := document.Structure{Sections: []document.Heading{
		{Level: 1, Title: "One", Offset: strings.Index(text, "# One")},
		{Level: 1, Title: "Two", Offset: strings.Index(text, "# Two")},
		{Level: 1, Title: "Three", Offset: strings.Index(text, "# Three")},
	}}

	gen := &stubGen{}
	e := NewEngine(gen, EngineConfig{
		Strategy: StrategyHierarchical,
		Chunker:  ChunkerConfig{MaxTextLength: 50},
	}, testLogger())

	got, err := e.Analyze(context.Background(), text, st, document.AnalysisComprehensive)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	// Three section chunks each get a map call, plus one reduce.
	if len(gen.prompts) != 4 {
		t.Fatalf("expected 4 calls, got %d", len(gen.prompts))
	}
	if got.Text != "reply 4" {
		t.Errorf("expected reduce output, got %q", got.Text)
	}
}

func TestEngine_GenerationFailurePropagates(t *testing.T) {
	gen := &stubGen{failAt: 1}
	e := NewEngine(gen, EngineConfig{Chunker: ChunkerConfig{MaxTextLength: 50000}}, testLogger())

	_, err := e.Analyze(context.Background(), "body", document.Structure{}, document.AnalysisComprehensive)
	if !errors.Is(err, errGeneration) {
		t.Fatalf("expected generation error, got %v", err)
	}
}
