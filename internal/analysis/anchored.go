package analysis

import (
	"context"
	"fmt"
	"strings"

	"github.com/dhowell3/paperscope/internal/llm"
	"github.com/dhowell3/paperscope/internal/prompts"
)

// Anchored is the precision variant: it first distills a global anchor
// (core problem, innovations, key definitions) from the opening chunks,
// injects that anchor into every remaining per-chunk prompt so no chunk
// is read in isolation, and closes with a consistency-checking reduce.
type Anchored struct {
	opts Options
}

func (s *Anchored) Name() string { return StrategyAnchored }

func (s *Anchored) Run(ctx context.Context, gen llm.Generator, chunks []string, finalPrompt string) (string, error) {
	if len(chunks) == 0 {
		return "", ErrNoContent
	}
	s.opts.Log.Info("anchored map-reduce", "chunks", len(chunks))

	// Phase 1: choose the anchor source. The first two chunks qualify by
	// position; later chunks qualify when their head reads like an
	// abstract or introduction. Best effort, not guaranteed.
	var anchorChunks, otherChunks []string
	for i, chunk := range chunks {
		head := strings.ToLower(chunk[:min(500, len(chunk))])
		if i <= 1 || strings.Contains(head, "abstract") || strings.Contains(head, "introduction") {
			anchorChunks = append(anchorChunks, chunk)
		} else {
			otherChunks = append(otherChunks, chunk)
		}
	}
	anchorSource := strings.Join(anchorChunks, "\n\n")
	s.opts.Log.Info("distilling global anchor", "source_bytes", len(anchorSource))

	anchorPrompt := "You are a senior academic reviewer. Extract the global anchors from the opening content of this paper.\n" +
		"The anchors must cover: 1. the core research problem; 2. the paper's key innovations; 3. the most important definitions and notation.\n" +
		"Keep the output compact; it will be carried as persistent context through the remaining passes (within 300 words).\n\n" +
		anchorSource
	anchor, err := gen.Generate(ctx, anchorPrompt, s.opts.MapTokens)
	if err != nil {
		return "", fmt.Errorf("global anchor: %w", err)
	}
	s.opts.Log.Info("global anchor ready", "bytes", len(anchor))

	insights := []string{"### Global anchor (core goals)\n" + anchor}

	// Phase 2: anchored close reading of the remaining chunks. The
	// anchor is complete before any of these calls start.
	for i, chunk := range otherChunks {
		s.opts.Log.Info("anchored reading", "chunk", i+1, "total", len(otherChunks))

		line, _, _ := strings.Cut(chunk, "\n")
		titleGuess := strings.Trim(line, "# ")

		prompt := fmt.Sprintf(
			"[Global anchor / research goals]:\n%s\n\n--- Current section: %s ---\n"+
				"Using the global anchor above, analyze this content in depth. For methodology, extract the logic and variables precisely; "+
				"for experiments, assess whether they support the anchor goals. Output dense insights (within 400 words):\n\n%s",
			anchor, titleGuess, chunk)
		insight, err := gen.Generate(ctx, prompt, s.opts.MapTokens)
		if err != nil {
			return "", fmt.Errorf("anchored chunk %d/%d: %w", i+1, len(otherChunks), err)
		}
		insights = append(insights, fmt.Sprintf("### Section analysis: %s\n%s", titleGuess, insight))
	}

	// Phase 3: final synthesis with an explicit cross-check between
	// sections.
	combined := strings.Join(insights, "\n\n")
	s.opts.Log.Info("final synthesis with consistency check", "bytes", len(combined))

	crossCheck := fmt.Sprintf(
		"You are assembling a high-precision paper analysis report. Below are the per-section insights extracted against the global anchor:\n\n%s\n\n"+
			"Complete the final report. Beyond the per-section summaries, **verify internal consistency**:\n"+
			"1. Are the modeling assumptions validated by the experiments?\n"+
			"2. Does the final conclusion resolve the core problem stated in the global anchor?\n\n"+
			"Final requirements: %s",
		combined, finalPrompt)

	finalText, err := gen.Generate(ctx, prompts.Fill(crossCheck, combined), s.opts.MaxTokens)
	if err != nil {
		return "", fmt.Errorf("final synthesis: %w", err)
	}
	return finalText, nil
}
