package pipeline

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/dhowell3/paperscope/internal/document"
)

// Cache persists the assembled document per source PDF, keyed by the
// PDF's content hash, so a re-run skips preprocessing, OCR, and
// assembly entirely. Layout: <dir>/<sha256>/structured.md + metadata.json.
type Cache struct {
	dir string
}

func NewCache(dir string) *Cache {
	return &Cache{dir: dir}
}

// Get returns the cached markdown and metadata for the PDF at path.
func (c *Cache) Get(path string) (string, document.Metadata, bool) {
	key, err := fileHash(path)
	if err != nil {
		return "", document.Metadata{}, false
	}
	entry := filepath.Join(c.dir, key)

	markdown, err := os.ReadFile(filepath.Join(entry, "structured.md"))
	if err != nil {
		return "", document.Metadata{}, false
	}
	raw, err := os.ReadFile(filepath.Join(entry, "metadata.json"))
	if err != nil {
		return "", document.Metadata{}, false
	}
	var meta document.Metadata
	if err := json.Unmarshal(raw, &meta); err != nil {
		return "", document.Metadata{}, false
	}
	return string(markdown), meta, true
}

// Put stores the assembled markdown and metadata for the PDF at path.
func (c *Cache) Put(path, markdown string, meta document.Metadata) error {
	key, err := fileHash(path)
	if err != nil {
		return err
	}
	entry := filepath.Join(c.dir, key)
	if err := os.MkdirAll(entry, 0o755); err != nil {
		return fmt.Errorf("create cache entry: %w", err)
	}
	if err := os.WriteFile(filepath.Join(entry, "structured.md"), []byte(markdown), 0o644); err != nil {
		return fmt.Errorf("write cached markdown: %w", err)
	}
	raw, err := json.MarshalIndent(meta, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal metadata: %w", err)
	}
	if err := os.WriteFile(filepath.Join(entry, "metadata.json"), raw, 0o644); err != nil {
		return fmt.Errorf("write cached metadata: %w", err)
	}
	return nil
}

func fileHash(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("open for hashing: %w", err)
	}
	defer f.Close()

	h := sha256.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", fmt.Errorf("hash %s: %w", path, err)
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}
