// Package structure builds the section index of an assembled document:
// headings, abstract, figure/table references, and the resolved title.
// Pure regex text analysis, no side effects beyond logging.
package structure

import (
	"log/slog"
	"regexp"
	"slices"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/dhowell3/paperscope/internal/document"
)

// Heading lines: # Title, ## Section, ### Subsection.
var headingRe = regexp.MustCompile(`(?m)^(#{1,6})\s+(.+)$`)

// Figure / Fig. / 图 references with trailing caption on the same line.
var figureRe = regexp.MustCompile(`(?m)(?:[Ff]igure|[Ff]ig\.|图)\s*(\d+)[.:：]?\s*(.*?)(?:\n|$)`)

// Table / 表 references.
var tableRe = regexp.MustCompile(`(?m)(?:[Tt]able|表)\s*(\d+)[.:：]?\s*(.*?)(?:\n|$)`)

// An "Abstract" line, either as a level 1-3 heading or bare/bold.
var abstractHeadRe = regexp.MustCompile(`(?m)^(?:#{1,3}\s*[Aa]bstract\s*|\*{0,2}[Aa]bstract\*{0,2}\s*)$`)

// Boundary that ends an abstract body: the next level 1-3 heading line.
var abstractBodyEndRe = regexp.MustCompile(`(?m)^#{1,3}\s`)

// Fallback abstract boundary: any heading or a triple newline.
var abstractFallbackEndRe = regexp.MustCompile(`\n#{1,6}\s|\n\n\n`)

// Single-word headings that are journal front-matter, not titles.
var journalMarkers = []string{"note", "letter", "communication", "article", "paper", "preprint"}

// First-page lines that can never be a title: DOI strings, URLs, running
// heads, copyright banners.
var noisePatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)^1-s2\.0-.*`),
	regexp.MustCompile(`(?i)^http.*`),
	regexp.MustCompile(`(?i)^doi:.*`),
	regexp.MustCompile(`(?i)^www\..*`),
	regexp.MustCompile(`(?i)^Downloaded from.*`),
	regexp.MustCompile(`(?i)^Journal of .*`),
	regexp.MustCompile(`(?i)^Research Article.*`),
	regexp.MustCompile(`(?i)^\d{4} Elsevier.*`),
	regexp.MustCompile(`(?i)^Available online.*`),
	regexp.MustCompile(`(?i)^[Tt]able of [Cc]ontents`),
	regexp.MustCompile(`(?i)^[Rr]eferences`),
	regexp.MustCompile(`(?i)^[Aa]bstract$`),
	regexp.MustCompile(`(?i)^#\s*(Note|Letter|Communication|Article|Paper)$`),
}

var (
	bareNumberRe = regexp.MustCompile(`^\d+$`)
	copyrightRe  = regexp.MustCompile(`© \d{4}`)
)

// Parser extracts document structure from assembled Markdown.
type Parser struct {
	log *slog.Logger
}

func NewParser(log *slog.Logger) *Parser {
	return &Parser{log: log}
}

// ParseSections scans for Markdown heading lines and returns them in
// source order with their byte offsets.
func (p *Parser) ParseSections(markdown string) []document.Heading {
	var sections []document.Heading
	for _, m := range headingRe.FindAllStringSubmatchIndex(markdown, -1) {
		sections = append(sections, document.Heading{
			Level:  m[3] - m[2],
			Title:  strings.TrimSpace(markdown[m[4]:m[5]]),
			Offset: m[0],
		})
	}
	return sections
}

// ExtractAbstract returns the abstract body, or "" when none is found.
// Primary strategy: an "Abstract" heading line followed by everything up
// to the next level 1-3 heading. Fallback: the literal word "abstract"
// within the first 3000 bytes, body capped at the next heading, a triple
// newline, or 2000 bytes.
func (p *Parser) ExtractAbstract(markdown string) string {
	for _, loc := range abstractHeadRe.FindAllStringIndex(markdown, -1) {
		rest := markdown[loc[1]:]
		// A heading on the document's final line has no body.
		if !strings.HasPrefix(rest, "\n") {
			continue
		}
		body := rest[1:]
		if end := abstractBodyEndRe.FindStringIndex(body); end != nil {
			body = body[:end[0]]
		}
		return strings.TrimSpace(body)
	}

	head := strings.ToLower(markdown[:min(3000, len(markdown))])
	idx := strings.Index(head, "abstract")
	if idx == -1 {
		return ""
	}

	// Skip the line holding the keyword itself.
	rest := markdown[idx:]
	nl := strings.Index(rest, "\n")
	if nl == -1 {
		return ""
	}
	rest = rest[nl+1:]

	if end := abstractFallbackEndRe.FindStringIndex(rest); end != nil {
		return strings.TrimSpace(rest[:end[0]])
	}
	if len(rest) > 2000 {
		end := 2000
		for end > 0 && !utf8.RuneStart(rest[end]) {
			end--
		}
		rest = rest[:end]
	}
	return strings.TrimSpace(rest)
}

func (p *Parser) extractFigures(markdown string) []document.Figure {
	var figures []document.Figure
	for _, m := range figureRe.FindAllStringSubmatchIndex(markdown, -1) {
		num, err := strconv.Atoi(markdown[m[2]:m[3]])
		if err != nil {
			continue
		}
		figures = append(figures, document.Figure{
			Number:  num,
			Caption: strings.TrimSpace(markdown[m[4]:m[5]]),
			Pos:     m[0],
		})
	}
	return figures
}

func (p *Parser) extractTables(markdown string) []document.Table {
	var tables []document.Table
	for _, m := range tableRe.FindAllStringSubmatchIndex(markdown, -1) {
		num, err := strconv.Atoi(markdown[m[2]:m[3]])
		if err != nil {
			continue
		}
		tables = append(tables, document.Table{
			Number:  num,
			Caption: strings.TrimSpace(markdown[m[4]:m[5]]),
			Pos:     m[0],
		})
	}
	return tables
}

func referencesPage(pages []document.Page) int {
	for _, pg := range pages {
		if slices.Contains(pg.Elements, document.ElementReferences) {
			return pg.Num
		}
	}
	return 0
}

// BuildIndex assembles the full structure index. Absent elements degrade
// to zero values; it never fails.
func (p *Parser) BuildIndex(pages []document.Page, markdown string) document.Structure {
	sections := p.ParseSections(markdown)
	abstract := p.ExtractAbstract(markdown)
	figures := p.extractFigures(markdown)
	tables := p.extractTables(markdown)

	refsPage := 0
	if len(pages) > 0 {
		refsPage = referencesPage(pages)
	}

	// Title: first level-1 heading that is not a journal marker and is
	// long enough to be a real title.
	title := ""
	for _, s := range sections {
		if s.Level != 1 {
			continue
		}
		candidate := strings.TrimSpace(s.Title)
		if slices.Contains(journalMarkers, strings.ToLower(candidate)) {
			continue
		}
		if utf8.RuneCountInString(candidate) > 10 {
			title = candidate
			break
		}
	}

	// No qualifying heading: scan the first page's raw lines for the
	// first non-noise line of sufficient length.
	if title == "" && len(pages) > 0 {
		title = firstPageTitle(pages[0].Markdown)
	}
	if title == "" {
		p.log.Warn("title resolution found no candidate", "sections", len(sections))
	}

	p.log.Info("structure index built",
		"title", title,
		"sections", len(sections),
		"figures", len(figures),
		"tables", len(tables),
	)
	return document.Structure{
		Title:          title,
		Abstract:       abstract,
		Sections:       sections,
		Figures:        figures,
		Tables:         tables,
		ReferencesPage: refsPage,
	}
}

func firstPageTitle(markdown string) string {
	lines := strings.Split(strings.TrimSpace(markdown), "\n")
	if len(lines) > 20 {
		lines = lines[:20]
	}
	for _, line := range lines {
		line = strings.Trim(line, "#* ·\t")
		if line == "" || utf8.RuneCountInString(line) < 5 {
			continue
		}
		if isNoiseLine(line) {
			continue
		}
		// Bare page numbers and copyright banners (e.g. "© 2024 IEEE").
		if bareNumberRe.MatchString(line) || copyrightRe.MatchString(line) {
			continue
		}
		if slices.Contains(journalMarkers, strings.ToLower(line)) {
			continue
		}
		return line
	}
	return ""
}

func isNoiseLine(line string) bool {
	for _, re := range noisePatterns {
		if re.MatchString(line) {
			return true
		}
	}
	return false
}
