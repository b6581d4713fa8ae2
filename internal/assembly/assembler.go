// Package assembly implements stage 3: merging per-page OCR Markdown
// into one document, arbitrating the title, building the structure
// index, and persisting the structured Markdown file.
package assembly

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"

	"github.com/dhowell3/paperscope/internal/document"
	"github.com/dhowell3/paperscope/internal/structure"
)

// PageSeparator joins page bodies; the HTML comment survives Markdown
// rendering invisibly while keeping page boundaries greppable.
const PageSeparator = "\n\n---\n<!-- page break -->\n\n"

const maxFilenameLen = 80

// Titles that are really filenames: runs of separators, numeric IDs,
// Elsevier download stems.
var filenameLikeRe = regexp.MustCompile(`[-_\.]{2,}|^\d+-\w+-\d+|^1-s2\.`)

// Assembler merges OCR'd pages into the structured document.
type Assembler struct {
	parser *structure.Parser
	log    *slog.Logger
}

func New(parser *structure.Parser, log *slog.Logger) *Assembler {
	return &Assembler{parser: parser, log: log}
}

// Assemble merges the pages in page order, resolves the title, and
// builds the structure index over the final text. The returned
// Assembly is not yet persisted; see Write.
func (a *Assembler) Assemble(pages []document.Page, meta document.Metadata) (document.Assembly, error) {
	if len(pages) == 0 {
		return document.Assembly{}, fmt.Errorf("assemble: no pages")
	}

	sorted := make([]document.Page, len(pages))
	copy(sorted, pages)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Num < sorted[j].Num })

	parts := make([]string, len(sorted))
	for i, pg := range sorted {
		parts[i] = pg.Markdown
	}
	body := strings.Join(parts, PageSeparator)

	// First pass over the body to find a regex title candidate for
	// arbitration against the metadata title.
	bodyIndex := a.parser.BuildIndex(sorted, body)
	title := a.resolveTitle(meta.Title, bodyIndex.Title)

	var header strings.Builder
	fmt.Fprintf(&header, "# %s\n\n", title)
	if meta.Author != "" {
		fmt.Fprintf(&header, "**Author**: %s\n\n", meta.Author)
	}
	fmt.Fprintf(&header, "**Pages**: %d\n\n---\n\n", meta.Pages)

	full := header.String() + body

	// Second pass so section offsets refer to the persisted text the
	// chunker will split.
	st := a.parser.BuildIndex(sorted, full)
	st.Title = title

	a.log.Info("document assembled", "title", title, "pages", len(sorted), "bytes", len(full))
	return document.Assembly{Markdown: full, Structure: st}, nil
}

// resolveTitle prefers the upstream (vision or PDF) title unless it
// looks like a filename or DOI string and a qualifying regex-extracted
// title exists to replace it.
func (a *Assembler) resolveTitle(metaTitle, parsedTitle string) string {
	if parsedTitle != "" && len(parsedTitle) > 5 {
		if filenameLikeRe.MatchString(metaTitle) && !strings.EqualFold(parsedTitle, metaTitle) {
			a.log.Info("title corrected from document text",
				"parsed", parsedTitle, "replaced", metaTitle)
			return parsedTitle
		}
	}
	if metaTitle != "" {
		return metaTitle
	}
	return parsedTitle
}

// Write persists the assembled document as <title>_structured.md under
// dir and records the path on the returned copy.
func (a *Assembler) Write(asm document.Assembly, dir string) (document.Assembly, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return asm, fmt.Errorf("create output dir: %w", err)
	}
	name := document.SanitizeFilename(asm.Structure.Title, maxFilenameLen)
	path := filepath.Join(dir, name+"_structured.md")
	if err := os.WriteFile(path, []byte(asm.Markdown), 0o644); err != nil {
		return asm, fmt.Errorf("write structured markdown: %w", err)
	}
	asm.Path = path
	a.log.Info("structured document written", "path", path, "bytes", len(asm.Markdown))
	return asm, nil
}
