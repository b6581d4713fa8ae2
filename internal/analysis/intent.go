package analysis

import "strings"

// Fallback goals when the final prompt's first line names none.
const (
	intentCoreContent = "core content"
	intentKeyInfo     = "key information in the text"
)

// ExtractIntent derives the analytical goal from the first line of the
// final prompt template. A line carrying a Markdown heading marker
// becomes the goal verbatim (markers stripped); a line that merely talks
// about the prompt itself maps to a generic goal; anything else means
// the caller wants the core content. Re-derived on every run, never
// cached.
func ExtractIntent(finalPrompt string) string {
	line, _, _ := strings.Cut(strings.TrimSpace(finalPrompt), "\n")
	switch {
	case strings.Contains(line, "# "):
		return strings.TrimSpace(strings.ReplaceAll(line, "#", ""))
	case strings.Contains(strings.ToLower(line), "prompt"):
		return intentKeyInfo
	default:
		return intentCoreContent
	}
}
