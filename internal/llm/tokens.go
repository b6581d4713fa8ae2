package llm

// EstimateTokens gives a rough token count for sizing and reporting,
// using the common ~4 characters per token heuristic. Not a billing
// figure.
func EstimateTokens(s string) int {
	if s == "" {
		return 0
	}
	return (len(s) + 3) / 4
}
