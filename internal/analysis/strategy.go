package analysis

import (
	"context"
	"errors"
	"io"
	"log/slog"

	"github.com/dhowell3/paperscope/internal/llm"
)

// ErrNoContent is returned when analysis is invoked on an empty document
// or an empty chunk sequence. It short-circuits before any generation
// call is made.
var ErrNoContent = errors.New("nothing to analyze")

// Strategy names accepted by ForName.
const (
	StrategyHierarchical = "hierarchical"
	StrategyAnchored     = "anchored"
)

// Options configures a strategy run. Output caps are per-call token
// limits passed through to the generator.
type Options struct {
	MapTokens int // per-chunk map calls and anchor synthesis
	MaxTokens int // final reduce call
	Log       *slog.Logger
}

// Strategy turns an ordered chunk sequence into one analysis text.
// finalPrompt is the caller's reduce template with a {content}
// placeholder. A failed generation call aborts the whole run; no partial
// results are returned.
type Strategy interface {
	Name() string
	Run(ctx context.Context, gen llm.Generator, chunks []string, finalPrompt string) (string, error)
}

var registry = map[string]func(Options) Strategy{
	StrategyHierarchical: func(o Options) Strategy { return &Hierarchical{opts: o} },
	StrategyAnchored:     func(o Options) Strategy { return &Anchored{opts: o} },
}

// ForName returns the strategy registered under name. Unknown names fall
// back to the hierarchical default with a logged warning, never an
// error.
func ForName(name string, opts Options) Strategy {
	if opts.MapTokens <= 0 {
		opts.MapTokens = 1024
	}
	if opts.MaxTokens <= 0 {
		opts.MaxTokens = 4096
	}
	if opts.Log == nil {
		opts.Log = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	if build, ok := registry[name]; ok {
		return build(opts)
	}
	opts.Log.Warn("unknown analysis strategy, using hierarchical", "strategy", name)
	return registry[StrategyHierarchical](opts)
}
