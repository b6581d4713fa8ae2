// Package ocr implements stage 2: vision-model OCR over rasterized
// pages with a bounded worker pool, shared rate limiting, per-image
// caching, and rule-based element classification.
package ocr

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand"
	"os"
	"sort"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/dhowell3/paperscope/internal/document"
	"github.com/dhowell3/paperscope/internal/llm"
)

// PagePrompt asks the vision model for a faithful Markdown rendition of
// one page.
const PagePrompt = `Transcribe this academic paper page completely:
1. Recognize all text, preserving the original paragraph structure
2. Convert mathematical formulas to LaTeX (wrapped in $$)
3. Convert tables to Markdown tables
4. Describe the content and key information of any figures
5. Mark section heading levels with #, ##, ###

Output format: Markdown`

const maxAttempts = 3

// Config sizes the fan-out.
type Config struct {
	Workers   int
	Rate      float64 // vision requests per second, shared by all workers
	MaxTokens int
}

// Engine OCRs a batch of page images. Clients are assigned to pages
// round-robin so multiple Ollama instances share the load; results are
// re-sorted by page number before they are returned, restoring
// determinism regardless of completion order.
type Engine struct {
	clients    []llm.Vision
	cache      *Cache
	classifier Classifier
	limiter    *rate.Limiter
	cfg        Config
	attempts   int
	log        *slog.Logger
}

// NewEngine builds the OCR engine. clients must be non-empty; cache may
// be nil to disable caching.
func NewEngine(clients []llm.Vision, cache *Cache, cfg Config, log *slog.Logger) *Engine {
	if cfg.Workers <= 0 {
		cfg.Workers = 4
	}
	if cfg.Rate <= 0 {
		cfg.Rate = 2
	}
	if cfg.MaxTokens <= 0 {
		cfg.MaxTokens = 4096
	}
	return &Engine{
		clients:  clients,
		cache:    cache,
		limiter:  rate.NewLimiter(rate.Limit(cfg.Rate), 1),
		cfg:      cfg,
		attempts: maxAttempts,
		log:      log,
	}
}

// ProcessPages OCRs every image with bounded concurrency. A page whose
// vision call fails keeps its slot with a visible failure marker and
// confidence 0; only context cancellation fails the batch.
func (e *Engine) ProcessPages(ctx context.Context, images []document.PageImage) ([]document.Page, error) {
	if len(images) == 0 {
		return nil, nil
	}
	e.log.Info("ocr fan-out", "pages", len(images), "workers", e.cfg.Workers, "clients", len(e.clients))

	pages := make([]document.Page, len(images))
	sem := make(chan struct{}, e.cfg.Workers)
	var wg sync.WaitGroup

	for i, img := range images {
		select {
		case sem <- struct{}{}:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
		wg.Add(1)
		go func(idx int, img document.PageImage) {
			defer wg.Done()
			defer func() { <-sem }()
			pages[idx] = e.processPage(ctx, img, e.clients[idx%len(e.clients)])
		}(i, img)
	}
	wg.Wait()

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	// Completion order is nondeterministic; downstream consumers need
	// source page order.
	sort.Slice(pages, func(i, j int) bool { return pages[i].Num < pages[j].Num })

	failed := 0
	for _, p := range pages {
		if p.Confidence == 0 {
			failed++
		}
	}
	if failed > 0 {
		e.log.Warn("ocr finished with failed pages", "failed", failed, "total", len(pages))
	}
	return pages, nil
}

func (e *Engine) processPage(ctx context.Context, img document.PageImage, client llm.Vision) document.Page {
	t0 := time.Now()

	image, err := os.ReadFile(img.Path)
	if err != nil {
		e.log.Error("page image unreadable", "page", img.Num, "error", err)
		return e.failedPage(img.Num, err)
	}

	if e.cache != nil {
		if page, ok := e.cache.Get(image, img.Num); ok {
			e.log.Info("ocr cache hit", "page", img.Num)
			return page
		}
	}

	markdown, err := e.describeWithRetry(ctx, client, image, img.Num)
	if err != nil {
		e.log.Error("page ocr failed", "page", img.Num, "error", err)
		return e.failedPage(img.Num, err)
	}

	page := document.Page{
		Num:        img.Num,
		Markdown:   markdown,
		Elements:   e.classifier.Classify(markdown),
		Confidence: 1.0,
	}
	if e.cache != nil {
		if err := e.cache.Put(image, page); err != nil {
			e.log.Warn("ocr cache write failed", "page", img.Num, "error", err)
		}
	}
	e.log.Info("page ocr done", "page", img.Num, "elapsed", time.Since(t0).Round(time.Millisecond))
	return page
}

// describeWithRetry makes the vision call under the shared rate
// limiter, retrying transient failures with jittered backoff.
func (e *Engine) describeWithRetry(ctx context.Context, client llm.Vision, image []byte, pageNum int) (string, error) {
	var lastErr error
	for attempt := 0; attempt < e.attempts; attempt++ {
		if attempt > 0 {
			e.log.Warn("retrying page ocr", "page", pageNum, "attempt", attempt, "error", lastErr)
			select {
			case <-time.After(backoff(attempt)):
			case <-ctx.Done():
				return "", ctx.Err()
			}
		}
		if err := e.limiter.Wait(ctx); err != nil {
			return "", err
		}
		out, err := client.Describe(ctx, PagePrompt, image, e.cfg.MaxTokens)
		if err == nil {
			return out, nil
		}
		lastErr = err
	}
	return "", fmt.Errorf("after %d attempts: %w", e.attempts, lastErr)
}

// failedPage keeps the page's slot so assembly preserves page order.
func (e *Engine) failedPage(num int, err error) document.Page {
	return document.Page{
		Num:        num,
		Markdown:   fmt.Sprintf("[OCR failed: %v]", err),
		Elements:   []document.ElementType{document.ElementBody},
		Confidence: 0,
	}
}

// backoff returns a jittered exponential delay for attempt n (1-indexed).
func backoff(attempt int) time.Duration {
	base := time.Duration(1<<uint(attempt-1)) * time.Second
	if base > 30*time.Second {
		base = 30 * time.Second
	}
	return base + time.Duration(rand.Int63n(int64(base)/2))
}
