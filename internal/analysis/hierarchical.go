package analysis

import (
	"context"
	"fmt"
	"strings"

	"github.com/dhowell3/paperscope/internal/llm"
	"github.com/dhowell3/paperscope/internal/prompts"
)

// Hierarchical is the default map-reduce strategy: each chunk is
// summarized toward the extracted goal in strict source order, then one
// reduce call synthesizes the labeled summaries into the final report.
type Hierarchical struct {
	opts Options
}

func (s *Hierarchical) Name() string { return StrategyHierarchical }

func (s *Hierarchical) Run(ctx context.Context, gen llm.Generator, chunks []string, finalPrompt string) (string, error) {
	if len(chunks) == 0 {
		return "", ErrNoContent
	}

	intent := ExtractIntent(finalPrompt)
	s.opts.Log.Info("hierarchical map-reduce", "chunks", len(chunks), "goal", intent)

	// Map: goal-directed summary of each chunk, one call at a time.
	summaries := make([]string, 0, len(chunks))
	for i, chunk := range chunks {
		s.opts.Log.Info("summarizing chunk", "chunk", i+1, "total", len(chunks), "bytes", len(chunk))
		prompt := fmt.Sprintf(
			"You are assisting with an in-depth analysis focused on \"%s\".\n"+
				"Summarize the following section, **paying special attention to details relevant to \"%s\"** (within 300 words):\n\n%s",
			intent, intent, chunk)
		summary, err := gen.Generate(ctx, prompt, s.opts.MapTokens)
		if err != nil {
			return "", fmt.Errorf("summarize chunk %d/%d: %w", i+1, len(chunks), err)
		}
		summaries = append(summaries, summary)
	}

	// Reduce: positional labels let the final report cite parts.
	var combined strings.Builder
	for i, summary := range summaries {
		if i > 0 {
			combined.WriteString("\n\n")
		}
		fmt.Fprintf(&combined, "### Part %d review\n%s", i+1, summary)
	}
	s.opts.Log.Info("combining summaries", "bytes", combined.Len())

	finalText, err := gen.Generate(ctx, prompts.Fill(finalPrompt, combined.String()), s.opts.MaxTokens)
	if err != nil {
		return "", fmt.Errorf("final synthesis: %w", err)
	}
	return finalText, nil
}
