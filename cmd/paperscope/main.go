// Command paperscope turns a PDF academic paper into a structured
// Markdown document and an LLM-generated analytical report.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/dhowell3/paperscope/internal/config"
	"github.com/dhowell3/paperscope/internal/document"
	"github.com/dhowell3/paperscope/internal/llm"
	"github.com/dhowell3/paperscope/internal/pipeline"
	"github.com/dhowell3/paperscope/internal/report"
)

func main() {
	var (
		input      = flag.String("input", "", "input file (.pdf, .md, .txt, .html, .docx)")
		batchDir   = flag.String("batch", "", "process every PDF in this directory")
		mode       = flag.String("mode", "", "analysis type: comprehensive, quick, methodology")
		strategy   = flag.String("strategy", "", "chunked-analysis strategy: hierarchical, anchored")
		outputDir  = flag.String("output", "", "report output directory")
		configFile = flag.String("config", "", "optional YAML config file")
		noCache    = flag.Bool("no-cache", false, "bypass the assembled-document cache")
		htmlOut    = flag.Bool("html", false, "also write an HTML rendition of the report")
		pdfOut     = flag.Bool("pdf", false, "also write a PDF rendition of the report")
		logFormat  = flag.String("log-format", "json", "log format: json or text")
	)
	flag.Parse()

	var handler slog.Handler = slog.NewJSONHandler(os.Stdout, nil)
	if *logFormat == "text" {
		handler = slog.NewTextHandler(os.Stdout, nil)
	}
	log := slog.New(handler)

	cfg := config.Load()
	if *configFile != "" {
		if err := cfg.ApplyFile(*configFile); err != nil {
			log.Error("config file error", "error", err)
			os.Exit(1)
		}
	}
	if *strategy != "" {
		cfg.Strategy = *strategy
	}
	if *mode != "" {
		cfg.AnalysisType = *mode
	}
	if *outputDir != "" {
		cfg.OutputDir = *outputDir
	}
	if err := cfg.Validate(); err != nil {
		log.Error("invalid configuration", "error", err)
		os.Exit(1)
	}
	if *input == "" && *batchDir == "" {
		fmt.Fprintln(os.Stderr, "usage: paperscope -input paper.pdf | -batch papers/")
		flag.PrintDefaults()
		os.Exit(2)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	gen := llm.NewClient(llm.ClientConfig{
		BaseURL:     cfg.BaseURL,
		APIKey:      cfg.APIKey,
		Model:       cfg.LLMModel,
		System:      "You are a professional academic paper analysis assistant.",
		Temperature: 0.7,
		TopP:        0.9,
	}, log)
	visions := visionClients(cfg, log)

	p := pipeline.New(cfg, gen, visions, log)
	reports := report.NewGenerator(report.Options{HTML: *htmlOut, PDF: *pdfOut}, log)
	opts := pipeline.Options{
		AnalysisType: document.AnalysisType(cfg.AnalysisType),
		NoCache:      *noCache,
	}

	var results []*document.Result
	if *batchDir != "" {
		var err error
		results, err = p.RunBatch(ctx, *batchDir, opts)
		if err != nil {
			log.Error("batch failed", "dir", *batchDir, "error", err)
			os.Exit(1)
		}
	} else {
		result, err := p.Run(ctx, *input, opts)
		if err != nil {
			log.Error("pipeline failed", "input", *input, "error", err)
			os.Exit(1)
		}
		results = append(results, result)
	}

	for _, result := range results {
		out, err := reports.Write(result, cfg.OutputDir)
		if err != nil {
			log.Error("report writing failed", "source", result.Source, "error", err)
			os.Exit(1)
		}
		log.Info("done",
			"source", result.Source,
			"title", result.Structure.Title,
			"report", out.Markdown,
			"from_cache", result.FromCache,
			"elapsed", result.Elapsed.Round(100*time.Millisecond),
		)
	}
}

// visionClients builds one OCR client per configured host, falling back
// to the main base URL when none are listed.
func visionClients(cfg config.Config, log *slog.Logger) []llm.Vision {
	hosts := cfg.OCRHosts
	if len(hosts) == 0 {
		hosts = []string{cfg.BaseURL}
	}
	clients := make([]llm.Vision, len(hosts))
	for i, host := range hosts {
		clients[i] = llm.NewClient(llm.ClientConfig{
			BaseURL:     host,
			APIKey:      cfg.APIKey,
			Model:       cfg.OCRModel,
			Temperature: 0,
		}, log)
	}
	return clients
}
