// Package prompts holds the analysis prompt templates. Every template
// carries a {content} placeholder filled with the document (or the
// combined chunk summaries) at generation time.
package prompts

import (
	"strings"

	"github.com/dhowell3/paperscope/internal/document"
)

// Comprehensive is the default full-depth analysis template.
const Comprehensive = `As a researcher in this field, analyze the paper in depth:

## Required output:

### 1. Paper overview
- What research problem does it address?
- Which subfield does it belong to?

### 2. Methodology analysis
- What is the core algorithm or model?
- What is genuinely new?
- How does it relate to established methods?

### 3. Experimental design
- Which benchmarks are used?
- Which baselines are compared against?
- What are the key results?

### 4. Takeaways
- Which ideas transfer to adjacent problems?
- Are there reusable technical components?

### 5. Limitations and future directions

The paper content follows:
{content}
`

// Quick produces a short three-point summary.
const Quick = `Quickly summarize this paper:
1. One-sentence takeaway (within 200 words)
2. Core contributions (3 points)
3. Key results

Paper content:
{content}
`

// Methodology focuses exclusively on the method sections.
const Methodology = `Focus on this paper's methodology:
1. Problem modeling (objective function, constraints)
2. Detailed steps of the solution algorithm
3. Complexity analysis
4. Parameter settings

Paper content:
{content}
`

// ChunkSummary is the plain per-section condensation template.
const ChunkSummary = "Summarize the core content of the following section (within 200 words):\n{content}"

var byType = map[document.AnalysisType]string{
	document.AnalysisComprehensive: Comprehensive,
	document.AnalysisQuick:         Quick,
	document.AnalysisMethodology:   Methodology,
}

// ForType returns the template for the analysis type. Unknown types get
// the comprehensive template.
func ForType(t document.AnalysisType) string {
	if tmpl, ok := byType[t]; ok {
		return tmpl
	}
	return Comprehensive
}

// Fill substitutes content into the template's {content} placeholder.
func Fill(template, content string) string {
	return strings.ReplaceAll(template, "{content}", content)
}
