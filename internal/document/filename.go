package document

import (
	"strings"
	"unicode/utf8"
)

// SanitizeFilename turns a paper title into a safe filename stem:
// path separators and colons become underscores, shell-hostile
// characters are dropped, and the result is capped at maxLen bytes.
func SanitizeFilename(name string, maxLen int) string {
	r := strings.NewReplacer(
		"/", "_", "\\", "_", ":", "_",
		"?", "", "*", "", `"`, "", "<", "", ">", "", "|", "",
	)
	safe := strings.Trim(r.Replace(name), ". ")
	if safe == "" {
		safe = "paper"
	}
	if len(safe) > maxLen {
		// Back off to a rune boundary so the cut never splits UTF-8.
		end := maxLen
		for end > 0 && !utf8.RuneStart(safe[end]) {
			end--
		}
		safe = strings.Trim(safe[:end], ". ")
	}
	return safe
}
