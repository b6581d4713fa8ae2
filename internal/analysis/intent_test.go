package analysis

import "testing"

func TestExtractIntent(t *testing.T) {
	tests := []struct {
		name        string
		finalPrompt string
		want        string
	}{
		{
			name:        "heading first line",
			finalPrompt: "# Convergence behavior of local search\n\nAnalyze:\n{content}",
			want:        "Convergence behavior of local search",
		},
		{
			name:        "deep heading first line",
			finalPrompt: "## Reproducibility audit\n{content}",
			want:        "Reproducibility audit",
		},
		{
			name:        "prompt marker line",
			finalPrompt: "This prompt template drives the synthesis.\n{content}",
			want:        "key information in the text",
		},
		{
			name:        "plain instruction line",
			finalPrompt: "Summarize the paper carefully.\n{content}",
			want:        "core content",
		},
		{
			name:        "hash without space is not a heading",
			finalPrompt: "#tag driven analysis\n{content}",
			want:        "core content",
		},
		{
			name:        "empty prompt",
			finalPrompt: "",
			want:        "core content",
		},
		{
			name:        "leading whitespace ignored",
			finalPrompt: "\n\n  # Ablation focus  \nrest",
			want:        "Ablation focus",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ExtractIntent(tt.finalPrompt); got != tt.want {
				t.Fatalf("expected %q, got %q", tt.want, got)
			}
		})
	}
}
