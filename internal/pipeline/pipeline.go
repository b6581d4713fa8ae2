// Package pipeline orchestrates the four stages: PDF preprocessing,
// OCR, document assembly, and LLM analysis. Directly-analyzable
// documents (.md, .txt, .html, .docx) enter at the analysis stage.
package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/dhowell3/paperscope/internal/analysis"
	"github.com/dhowell3/paperscope/internal/assembly"
	"github.com/dhowell3/paperscope/internal/config"
	"github.com/dhowell3/paperscope/internal/document"
	"github.com/dhowell3/paperscope/internal/ingest"
	"github.com/dhowell3/paperscope/internal/llm"
	"github.com/dhowell3/paperscope/internal/ocr"
	"github.com/dhowell3/paperscope/internal/preprocess"
	"github.com/dhowell3/paperscope/internal/structure"
)

// Options vary per run; everything else is fixed at construction.
type Options struct {
	AnalysisType document.AnalysisType
	NoCache      bool // bypass the assembled-document cache
}

// Pipeline wires the stages together.
type Pipeline struct {
	cfg    config.Config
	pre    *preprocess.Preprocessor
	ocr    *ocr.Engine
	asm    *assembly.Assembler
	parser *structure.Parser
	engine *analysis.Engine
	cache  *Cache
	log    *slog.Logger
}

// New builds a pipeline from the configuration and the generation
// clients. visions carries one vision client per OCR host.
func New(cfg config.Config, gen llm.Generator, visions []llm.Vision, log *slog.Logger) *Pipeline {
	parser := structure.NewParser(log)
	return &Pipeline{
		cfg: cfg,
		pre: preprocess.New(preprocess.Config{
			DPI:         cfg.DPI,
			ImageFormat: cfg.ImageFormat,
		}, log),
		ocr: ocr.NewEngine(
			visions,
			ocr.NewCache(filepath.Join(cfg.CacheDir, "ocr"), cfg.OCRModel),
			ocr.Config{Workers: cfg.OCRWorkers, Rate: cfg.OCRRate, MaxTokens: cfg.OCRMaxTokens},
			log,
		),
		asm:    assembly.New(parser, log),
		parser: parser,
		engine: analysis.NewEngine(gen, analysis.EngineConfig{
			Model:     cfg.LLMModel,
			Strategy:  cfg.Strategy,
			MaxTokens: cfg.MaxTokens,
			MapTokens: cfg.MapTokens,
			Chunker: analysis.ChunkerConfig{
				MaxTextLength: cfg.MaxTextLength,
				ChunkSize:     cfg.ChunkSize,
				SplitLevel:    cfg.SplitLevel,
			},
		}, log),
		cache: NewCache(filepath.Join(cfg.CacheDir, "pipeline")),
		log:   log,
	}
}

// Run processes one input file end to end.
func (p *Pipeline) Run(ctx context.Context, path string, opts Options) (*document.Result, error) {
	t0 := time.Now()
	if opts.AnalysisType == "" {
		opts.AnalysisType = document.AnalysisComprehensive
	}
	p.log.Info("pipeline start", "path", path, "mode", string(opts.AnalysisType))

	var (
		asm       document.Assembly
		meta      document.Metadata
		fromCache bool
		err       error
	)
	switch {
	case strings.EqualFold(filepath.Ext(path), ".pdf"):
		asm, meta, fromCache, err = p.assemblePDF(ctx, path, opts)
	case ingest.CanIngest(path):
		asm, meta, err = p.assembleIngested(path)
	default:
		err = fmt.Errorf("unsupported input %q (want .pdf or an ingestible document)", path)
	}
	if err != nil {
		return nil, err
	}

	p.log.Info("stage 4: analysis", "bytes", len(asm.Markdown))
	result, err := p.engine.Analyze(ctx, asm.Markdown, asm.Structure, opts.AnalysisType)
	if err != nil {
		return nil, fmt.Errorf("analyze %s: %w", path, err)
	}

	return &document.Result{
		Source:    path,
		Metadata:  meta,
		Structure: asm.Structure,
		Analysis:  result,
		Pages:     meta.Pages,
		FromCache: fromCache,
		Elapsed:   time.Since(t0),
	}, nil
}

// assemblePDF runs stages 1-3, serving the assembled document from the
// content-hash cache when possible.
func (p *Pipeline) assemblePDF(ctx context.Context, path string, opts Options) (document.Assembly, document.Metadata, bool, error) {
	if !opts.NoCache {
		if markdown, meta, ok := p.cache.Get(path); ok {
			p.log.Info("assembled document served from cache", "path", path)
			st := p.parser.BuildIndex(nil, markdown)
			if st.Title == "" {
				st.Title = meta.Title
			}
			return document.Assembly{Markdown: markdown, Structure: st}, meta, true, nil
		}
	}

	p.log.Info("stage 1: preprocess", "path", path)
	stem := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	workDir := filepath.Join(p.cfg.CacheDir, "pages", stem)
	meta, images, err := p.pre.Run(ctx, path, workDir)
	if err != nil {
		return document.Assembly{}, document.Metadata{}, false, fmt.Errorf("preprocess %s: %w", path, err)
	}

	p.log.Info("stage 2: ocr", "pages", len(images))
	pages, err := p.ocr.ProcessPages(ctx, images)
	if err != nil {
		return document.Assembly{}, document.Metadata{}, false, fmt.Errorf("ocr %s: %w", path, err)
	}

	p.log.Info("stage 3: assembly", "pages", len(pages))
	asm, err := p.asm.Assemble(pages, meta)
	if err != nil {
		return document.Assembly{}, document.Metadata{}, false, fmt.Errorf("assemble %s: %w", path, err)
	}
	asm, err = p.asm.Write(asm, p.cfg.OutputDir)
	if err != nil {
		return document.Assembly{}, document.Metadata{}, false, err
	}

	// The resolved title is the better one to persist.
	meta.Title = asm.Structure.Title
	if err := p.cache.Put(path, asm.Markdown, meta); err != nil {
		p.log.Warn("pipeline cache write failed", "path", path, "error", err)
	}
	return asm, meta, false, nil
}

// assembleIngested loads a textual document and indexes it; the
// pipeline then enters directly at stage 4.
func (p *Pipeline) assembleIngested(path string) (document.Assembly, document.Metadata, error) {
	markdown, err := ingest.Load(path)
	if err != nil {
		return document.Assembly{}, document.Metadata{}, err
	}

	st := p.parser.BuildIndex(nil, markdown)
	meta := document.Metadata{Title: st.Title, Path: path}
	if meta.Title == "" {
		meta.Title = strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
		st.Title = meta.Title
	}
	return document.Assembly{Markdown: markdown, Structure: st}, meta, nil
}

// RunBatch processes every PDF under dir in name order, logging and
// skipping per-file failures.
func (p *Pipeline) RunBatch(ctx context.Context, dir string, opts Options) ([]*document.Result, error) {
	matches, err := filepath.Glob(filepath.Join(dir, "*.pdf"))
	if err != nil {
		return nil, fmt.Errorf("scan %s: %w", dir, err)
	}
	if len(matches) == 0 {
		return nil, fmt.Errorf("no PDF files under %s", dir)
	}
	sort.Strings(matches)

	var results []*document.Result
	for _, path := range matches {
		if err := ctx.Err(); err != nil {
			return results, err
		}
		result, err := p.Run(ctx, path, opts)
		if err != nil {
			p.log.Error("batch item failed", "path", path, "error", err)
			continue
		}
		results = append(results, result)
	}
	p.log.Info("batch finished", "total", len(matches), "succeeded", len(results))
	return results, nil
}
