package ocr

import (
	"regexp"
	"strings"

	"github.com/dhowell3/paperscope/internal/document"
)

// Classifier tags a page's Markdown with the element types it contains.
// Pure regex rules, no model involvement.
type Classifier struct{}

// Title and abstract markers live near the top of a page, so only the
// head is checked for them.
const classifierHead = 500

var (
	titlePatterns = []*regexp.Regexp{
		regexp.MustCompile(`(?m)^#\s+.{10,}`),
	}
	abstractPatterns = []*regexp.Regexp{
		regexp.MustCompile(`(?i)\babstract\b`),
		regexp.MustCompile(`摘\s*要`),
	}
	equationPatterns = []*regexp.Regexp{
		regexp.MustCompile(`(?s)\$\$.+?\$\$`),
		regexp.MustCompile(`\\begin\{equation\}`),
		regexp.MustCompile(`\\begin\{align`),
		regexp.MustCompile(`(?s)\\\(.+?\\\)`),
	}
	tablePatterns = []*regexp.Regexp{
		regexp.MustCompile(`\|.+\|.+\|`),
		regexp.MustCompile(`[Tt]able\s+\d+`),
		regexp.MustCompile(`表\s*\d+`),
	}
	figurePatterns = []*regexp.Regexp{
		regexp.MustCompile(`[Ff]igure\s+\d+`),
		regexp.MustCompile(`[Ff]ig\.\s*\d+`),
		regexp.MustCompile(`图\s*\d+`),
		regexp.MustCompile(`!\[.*?\]\(.*?\)`),
	}
	referencePatterns = []*regexp.Regexp{
		regexp.MustCompile(`(?i)\breferences\b`),
		regexp.MustCompile(`(?i)\bbibliography\b`),
		regexp.MustCompile(`参考文献`),
		regexp.MustCompile(`(?m)^\[\d+\]\s+\w`),
	}
)

// Classify returns the element types present on the page, falling back
// to body text when nothing distinctive matches.
func (Classifier) Classify(markdown string) []document.ElementType {
	if strings.TrimSpace(markdown) == "" {
		return []document.ElementType{document.ElementBody}
	}

	var elements []document.ElementType
	head := markdown[:min(classifierHead, len(markdown))]

	if matchAny(titlePatterns, head) {
		elements = append(elements, document.ElementTitle)
	}
	if matchAny(abstractPatterns, head) {
		elements = append(elements, document.ElementAbstract)
	}
	if matchAny(equationPatterns, markdown) {
		elements = append(elements, document.ElementEquations)
	}
	if matchAny(tablePatterns, markdown) {
		elements = append(elements, document.ElementTables)
	}
	if matchAny(figurePatterns, markdown) {
		elements = append(elements, document.ElementFigures)
	}
	if matchAny(referencePatterns, markdown) {
		elements = append(elements, document.ElementReferences)
	}

	if len(elements) == 0 {
		elements = append(elements, document.ElementBody)
	}
	return elements
}

func matchAny(patterns []*regexp.Regexp, s string) bool {
	for _, re := range patterns {
		if re.MatchString(s) {
			return true
		}
	}
	return false
}
