package analysis

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/dhowell3/paperscope/internal/document"
	"github.com/dhowell3/paperscope/internal/llm"
	"github.com/dhowell3/paperscope/internal/prompts"
)

// EngineConfig configures stage 4. Everything lives on the value, not in
// package globals, so tests can vary thresholds freely.
type EngineConfig struct {
	Model     string
	Strategy  string // strategy key, see ForName
	MaxTokens int    // output cap for whole-document and reduce calls
	MapTokens int    // output cap for per-chunk map calls
	Chunker   ChunkerConfig
}

// Engine drives the analysis stage: it decides between one whole-document
// generation call and a chunked map-reduce run.
type Engine struct {
	gen     llm.Generator
	cfg     EngineConfig
	chunker *Chunker
	log     *slog.Logger
}

func NewEngine(gen llm.Generator, cfg EngineConfig, log *slog.Logger) *Engine {
	if cfg.MaxTokens <= 0 {
		cfg.MaxTokens = 4096
	}
	if cfg.MapTokens <= 0 {
		cfg.MapTokens = 1024
	}
	if cfg.Strategy == "" {
		cfg.Strategy = StrategyHierarchical
	}
	return &Engine{
		gen:     gen,
		cfg:     cfg,
		chunker: NewChunker(cfg.Chunker, log),
		log:     log,
	}
}

// Analyze produces the analysis for one assembled document. An empty
// document returns ErrNoContent without touching the generator.
func (e *Engine) Analyze(ctx context.Context, markdown string, st document.Structure, typ document.AnalysisType) (document.Analysis, error) {
	if strings.TrimSpace(markdown) == "" {
		return document.Analysis{}, ErrNoContent
	}

	template := prompts.ForType(typ)

	var text string
	var err error
	if e.chunker.ShouldChunk(markdown) {
		chunks := e.chunker.SplitBySections(markdown, st)
		strategy := ForName(e.cfg.Strategy, Options{
			MapTokens: e.cfg.MapTokens,
			MaxTokens: e.cfg.MaxTokens,
			Log:       e.log,
		})
		e.log.Info("document exceeds single-pass budget, chunking",
			"bytes", len(markdown), "chunks", len(chunks), "strategy", strategy.Name())
		text, err = strategy.Run(ctx, e.gen, chunks, template)
	} else {
		text, err = e.analyzeWhole(ctx, markdown, st, template, typ)
	}
	if err != nil {
		return document.Analysis{}, err
	}

	return document.Analysis{
		Text:   text,
		Type:   typ,
		Model:  e.cfg.Model,
		Tokens: llm.EstimateTokens(text),
	}, nil
}

// analyzeWhole issues exactly one generation call, prefixing the document
// with a structure-derived context hint when one is available.
func (e *Engine) analyzeWhole(ctx context.Context, markdown string, st document.Structure, template string, typ document.AnalysisType) (string, error) {
	content := markdown
	if hint := contextHint(st); hint != "" {
		content = hint + "\n" + markdown
	}
	prompt := prompts.Fill(template, content)

	e.log.Info("llm analysis", "mode", string(typ), "prompt_bytes", len(prompt))
	t0 := time.Now()
	out, err := e.gen.Generate(ctx, prompt, e.cfg.MaxTokens)
	if err != nil {
		return "", fmt.Errorf("analysis: %w", err)
	}
	e.log.Info("llm analysis done", "elapsed", time.Since(t0).Round(time.Millisecond), "output_bytes", len(out))
	return out, nil
}

// contextHint summarizes the structure index so the model sees the
// document's shape before its content.
func contextHint(st document.Structure) string {
	var b strings.Builder
	if st.Title != "" {
		fmt.Fprintf(&b, "Title: %s\n", st.Title)
	}
	if st.Abstract != "" {
		fmt.Fprintf(&b, "Abstract: %s\n", truncate(st.Abstract, 500))
	}
	if len(st.Sections) > 0 {
		var toc []string
		for _, s := range st.Sections {
			if s.Level <= 2 {
				toc = append(toc, s.Title)
			}
		}
		fmt.Fprintf(&b, "Contents: %s\n", strings.Join(toc, ", "))
	}
	return b.String()
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n]
}
