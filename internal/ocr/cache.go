package ocr

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/dhowell3/paperscope/internal/document"
)

// Cache stores per-page OCR results as JSON files keyed by the image's
// content hash, so re-running a paper skips all vision calls.
// Layout: <dir>/<model>/<sha256>.json.
type Cache struct {
	dir string
}

func NewCache(dir, model string) *Cache {
	// Model tags like "qwen2.5vl:7b" contain a path-hostile colon.
	safe := strings.ReplaceAll(model, ":", "_")
	return &Cache{dir: filepath.Join(dir, safe)}
}

type cacheEntry struct {
	Markdown   string                 `json:"markdown"`
	Elements   []document.ElementType `json:"elements"`
	Confidence float64                `json:"confidence"`
}

// Get returns the cached page for an image, keyed by content hash. The
// page number is supplied by the caller since the same image may appear
// at a different position in another document.
func (c *Cache) Get(image []byte, pageNum int) (document.Page, bool) {
	data, err := os.ReadFile(c.path(image))
	if err != nil {
		return document.Page{}, false
	}
	var entry cacheEntry
	if err := json.Unmarshal(data, &entry); err != nil {
		return document.Page{}, false
	}
	return document.Page{
		Num:        pageNum,
		Markdown:   entry.Markdown,
		Elements:   entry.Elements,
		Confidence: entry.Confidence,
	}, true
}

// Put stores a successful OCR result. Failed pages (confidence 0) are
// never cached so the next run retries them.
func (c *Cache) Put(image []byte, page document.Page) error {
	if page.Confidence <= 0 {
		return nil
	}
	if err := os.MkdirAll(c.dir, 0o755); err != nil {
		return fmt.Errorf("create cache dir: %w", err)
	}
	data, err := json.MarshalIndent(cacheEntry{
		Markdown:   page.Markdown,
		Elements:   page.Elements,
		Confidence: page.Confidence,
	}, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal cache entry: %w", err)
	}
	return os.WriteFile(c.path(image), data, 0o644)
}

func (c *Cache) path(image []byte) string {
	sum := sha256.Sum256(image)
	return filepath.Join(c.dir, hex.EncodeToString(sum[:])+".json")
}
