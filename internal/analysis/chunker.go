// Package analysis implements stage 4: deciding whether a document needs
// chunking, splitting it along section boundaries, and running a
// map-reduce strategy (or a single analysis call) over the result.
package analysis

import (
	"log/slog"
	"slices"
	"strings"
	"unicode/utf8"

	"github.com/dhowell3/paperscope/internal/document"
)

// ChunkerConfig holds the splitting thresholds. Sizes are byte counts, a
// deliberate proxy for model context rather than an exact token budget.
type ChunkerConfig struct {
	MaxTextLength int // documents above this size are chunked
	ChunkSize     int // window for the size-based fallback split
	SplitLevel    int // deepest heading level accepted as a split point
}

// DefaultChunkerConfig splits on level-1 headings only, which keeps a
// typical paper at 4-6 chunks (introduction, methods, results, ...).
func DefaultChunkerConfig() ChunkerConfig {
	return ChunkerConfig{
		MaxTextLength: 50000,
		ChunkSize:     30000,
		SplitLevel:    1,
	}
}

// Chunker splits a document into ordered chunks, preferring section
// boundaries and falling back to fixed-size windows.
type Chunker struct {
	cfg ChunkerConfig
	log *slog.Logger
}

func NewChunker(cfg ChunkerConfig, log *slog.Logger) *Chunker {
	def := DefaultChunkerConfig()
	if cfg.MaxTextLength <= 0 {
		cfg.MaxTextLength = def.MaxTextLength
	}
	if cfg.ChunkSize <= 0 {
		cfg.ChunkSize = def.ChunkSize
	}
	if cfg.SplitLevel <= 0 {
		cfg.SplitLevel = def.SplitLevel
	}
	return &Chunker{cfg: cfg, log: log}
}

// ShouldChunk reports whether the text exceeds the chunking threshold.
func (c *Chunker) ShouldChunk(text string) bool {
	return len(text) > c.cfg.MaxTextLength
}

// SplitBySections partitions text at the offsets of headings at or above
// the configured split level. Chunks keep source order; a preamble chunk
// covers any front matter before the first heading. Documents without
// usable sections fall back to the size-based split.
func (c *Chunker) SplitBySections(text string, st document.Structure) []string {
	if len(text) == 0 {
		return nil
	}
	if len(st.Sections) == 0 {
		return c.splitBySize(text)
	}

	var points []int
	for _, h := range st.Sections {
		if h.Level <= c.cfg.SplitLevel && h.Offset < len(text) {
			points = append(points, h.Offset)
		}
	}
	if len(points) == 0 {
		return c.splitBySize(text)
	}
	slices.Sort(points)

	var chunks []string
	for i, pos := range points {
		end := len(text)
		if i+1 < len(points) {
			end = points[i+1]
		}
		if chunk := strings.TrimSpace(text[pos:end]); chunk != "" {
			chunks = append(chunks, chunk)
		}
	}

	// Front matter (title, authors, abstract) before the first heading.
	if points[0] > 0 {
		if preamble := strings.TrimSpace(text[:points[0]]); preamble != "" {
			chunks = append([]string{preamble}, chunks...)
		}
	}

	c.log.Info("split by sections", "chunks", len(chunks))
	return chunks
}

// splitBySize walks the text in fixed windows, cutting at the last
// paragraph boundary in the second half of each window when one exists.
func (c *Chunker) splitBySize(text string) []string {
	size := c.cfg.ChunkSize
	var chunks []string
	start := 0
	for start < len(text) {
		end := start + size
		if end >= len(text) {
			if chunk := strings.TrimSpace(text[start:]); chunk != "" {
				chunks = append(chunks, chunk)
			}
			break
		}

		if b := strings.LastIndex(text[start+size/2:end], "\n\n"); b != -1 {
			end = start + size/2 + b
		} else {
			for end > start && !utf8.RuneStart(text[end]) {
				end--
			}
			// A window narrower than one rune backs off to start;
			// move forward to the next boundary so the loop progresses.
			if end == start {
				end = start + size
				for end < len(text) && !utf8.RuneStart(text[end]) {
					end++
				}
			}
		}

		if chunk := strings.TrimSpace(text[start:end]); chunk != "" {
			chunks = append(chunks, chunk)
		}
		start = end
	}

	c.log.Info("split by size", "chunks", len(chunks), "window", size)
	return chunks
}
