// Package document defines the data model shared by the pipeline stages:
// page-level OCR output, the parsed structure index, and analysis results.
package document

import "time"

// AnalysisType selects which report template drives the analysis stage.
type AnalysisType string

const (
	AnalysisComprehensive AnalysisType = "comprehensive"
	AnalysisQuick         AnalysisType = "quick"
	AnalysisMethodology   AnalysisType = "methodology"
)

// ElementType classifies content detected on an OCR'd page.
type ElementType string

const (
	ElementTitle      ElementType = "title"
	ElementAbstract   ElementType = "abstract"
	ElementBody       ElementType = "body"
	ElementEquations  ElementType = "equations"
	ElementTables     ElementType = "tables"
	ElementFigures    ElementType = "figures"
	ElementReferences ElementType = "references"
)

// Heading is one Markdown heading found in the assembled document.
type Heading struct {
	Level  int    `json:"level"`  // 1-6, number of leading '#'
	Title  string `json:"title"`  // Heading text, trimmed
	Offset int    `json:"offset"` // Byte offset of the heading line in the full text
}

// Figure is a figure reference ("Figure 3: ...") found in the text.
type Figure struct {
	Number  int    `json:"number"`
	Caption string `json:"caption"`
	Pos     int    `json:"pos"`
}

// Table is a table reference ("Table 2: ...") found in the text.
type Table struct {
	Number  int    `json:"number"`
	Caption string `json:"caption"`
	Pos     int    `json:"pos"`
}

// Structure is the parsed index of an assembled document. Built once per
// document and consumed read-only by the chunker and the analysis stage.
type Structure struct {
	Title          string    `json:"title"`
	Abstract       string    `json:"abstract"`
	Sections       []Heading `json:"sections"`
	Figures        []Figure  `json:"figures"`
	Tables         []Table   `json:"tables"`
	ReferencesPage int       `json:"references_page"` // 1-based, 0 when not detected
}

// Metadata is what the PDF itself claims about the paper. Best effort; any
// field may be empty.
type Metadata struct {
	Title  string `json:"title"`
	Author string `json:"author"`
	Pages  int    `json:"pages"`
	Path   string `json:"path"`
}

// PageImage is one rasterized PDF page awaiting OCR.
type PageImage struct {
	Num  int    `json:"num"` // 1-based page number
	Path string `json:"path"`
}

// Page is the OCR result for a single page. A failed page keeps its slot
// with a visible failure marker in Markdown and Confidence 0, so assembly
// preserves page order.
type Page struct {
	Num        int           `json:"num"` // 1-based page number
	Markdown   string        `json:"markdown"`
	Elements   []ElementType `json:"elements"`
	Confidence float64       `json:"confidence"`
}

// Assembly is the merged document produced by stage 3.
type Assembly struct {
	Markdown  string    `json:"-"`
	Structure Structure `json:"structure"`
	Path      string    `json:"path"` // Where structured.md was written, empty if not persisted
}

// Analysis is the output of the analysis stage.
type Analysis struct {
	Text   string       `json:"text"`
	Type   AnalysisType `json:"type"`
	Model  string       `json:"model"`
	Tokens int          `json:"tokens"` // Rough output size estimate, not a billing figure
}

// Result is one complete pipeline run over a single input file.
type Result struct {
	Source    string        `json:"source"`
	Metadata  Metadata      `json:"metadata"`
	Structure Structure     `json:"structure"`
	Analysis  Analysis      `json:"analysis"`
	Pages     int           `json:"pages"`
	FromCache bool          `json:"from_cache"` // Stages 1-3 served from the assembly cache
	Elapsed   time.Duration `json:"elapsed"`
}
