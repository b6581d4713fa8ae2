// Package preprocess implements stage 1: PDF validation, metadata
// extraction, and page rasterization. CPU only, no model involvement.
package preprocess

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	pdflib "github.com/ledongthuc/pdf"
	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"

	"github.com/dhowell3/paperscope/internal/document"
)

// Config controls rasterization.
type Config struct {
	DPI         int
	ImageFormat string // png or jpeg
}

// Preprocessor validates a PDF, reads its metadata, and renders one
// image per page via pdftoppm.
type Preprocessor struct {
	cfg Config
	log *slog.Logger
}

func New(cfg Config, log *slog.Logger) *Preprocessor {
	if cfg.DPI <= 0 {
		cfg.DPI = 200
	}
	if cfg.ImageFormat == "" {
		cfg.ImageFormat = "png"
	}
	return &Preprocessor{cfg: cfg, log: log}
}

// Run validates the PDF and produces its metadata plus one page image
// per page in workDir.
func (p *Preprocessor) Run(ctx context.Context, pdfPath, workDir string) (document.Metadata, []document.PageImage, error) {
	if _, err := os.Stat(pdfPath); err != nil {
		return document.Metadata{}, nil, fmt.Errorf("pdf not found: %w", err)
	}

	conf := model.NewDefaultConfiguration()
	conf.ValidationMode = model.ValidationRelaxed
	if err := api.ValidateFile(pdfPath, conf); err != nil {
		return document.Metadata{}, nil, fmt.Errorf("validate %s: %w", pdfPath, err)
	}
	pages, err := api.PageCountFile(pdfPath)
	if err != nil {
		return document.Metadata{}, nil, fmt.Errorf("page count %s: %w", pdfPath, err)
	}

	meta := p.Metadata(pdfPath)
	meta.Pages = pages

	images, err := p.rasterize(ctx, pdfPath, workDir)
	if err != nil {
		return document.Metadata{}, nil, err
	}
	p.log.Info("pdf preprocessed", "path", pdfPath, "pages", pages, "images", len(images))
	return meta, images, nil
}

// Metadata reads the PDF Info dictionary. Best effort: a missing or
// unreadable dictionary degrades to the filename stem.
func (p *Preprocessor) Metadata(pdfPath string) document.Metadata {
	meta := document.Metadata{
		Title: strings.TrimSuffix(filepath.Base(pdfPath), filepath.Ext(pdfPath)),
		Path:  pdfPath,
	}

	f, reader, err := pdflib.Open(pdfPath)
	if err != nil {
		p.log.Warn("pdf metadata unreadable, using filename", "path", pdfPath, "error", err)
		return meta
	}
	defer f.Close()

	info := reader.Trailer().Key("Info")
	if info.IsNull() {
		return meta
	}
	if title := strings.TrimSpace(info.Key("Title").Text()); title != "" {
		meta.Title = title
	}
	meta.Author = strings.TrimSpace(info.Key("Author").Text())
	return meta
}

// TextLayer pulls the embedded text of every page, joined by form
// feeds. Used when OCR is skipped or as a failure fallback; scanned
// papers typically yield an empty string.
func (p *Preprocessor) TextLayer(pdfPath string) (string, error) {
	f, reader, err := pdflib.Open(pdfPath)
	if err != nil {
		return "", fmt.Errorf("open %s: %w", pdfPath, err)
	}
	defer f.Close()

	var b strings.Builder
	for i := 1; i <= reader.NumPage(); i++ {
		page := reader.Page(i)
		if page.V.IsNull() {
			continue
		}
		text, err := page.GetPlainText(nil)
		if err != nil {
			p.log.Warn("text layer extraction failed", "page", i, "error", err)
			continue
		}
		if i > 1 {
			b.WriteString("\f")
		}
		b.WriteString(text)
	}
	return b.String(), nil
}

// rasterize shells out to pdftoppm, one image per page under workDir.
func (p *Preprocessor) rasterize(ctx context.Context, pdfPath, workDir string) ([]document.PageImage, error) {
	if _, err := exec.LookPath("pdftoppm"); err != nil {
		return nil, fmt.Errorf("pdftoppm not found in PATH (install poppler-utils): %w", err)
	}
	if err := os.MkdirAll(workDir, 0o755); err != nil {
		return nil, fmt.Errorf("create work dir: %w", err)
	}

	prefix := filepath.Join(workDir, "page")
	args := []string{"-r", strconv.Itoa(p.cfg.DPI), "-" + p.cfg.ImageFormat, pdfPath, prefix}
	cmd := exec.CommandContext(ctx, "pdftoppm", args...)
	if out, err := cmd.CombinedOutput(); err != nil {
		return nil, fmt.Errorf("pdftoppm: %w: %s", err, strings.TrimSpace(string(out)))
	}

	images, err := collectPageImages(workDir, "page", p.cfg.ImageFormat)
	if err != nil {
		return nil, err
	}
	if len(images) == 0 {
		return nil, fmt.Errorf("pdftoppm produced no %s pages under %s", p.cfg.ImageFormat, workDir)
	}
	return images, nil
}

// collectPageImages finds pdftoppm output files ("page-1.png",
// "page-07.png", ...) and returns them sorted by page number.
func collectPageImages(dir, prefix, format string) ([]document.PageImage, error) {
	matches, err := filepath.Glob(filepath.Join(dir, prefix+"-*."+format))
	if err != nil {
		return nil, fmt.Errorf("glob page images: %w", err)
	}

	var images []document.PageImage
	for _, m := range matches {
		base := strings.TrimSuffix(filepath.Base(m), "."+format)
		numPart := strings.TrimPrefix(base, prefix+"-")
		num, err := strconv.Atoi(numPart)
		if err != nil {
			continue
		}
		images = append(images, document.PageImage{Num: num, Path: m})
	}
	sort.Slice(images, func(i, j int) bool { return images[i].Num < images[j].Num })
	return images, nil
}
