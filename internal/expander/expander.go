package expander

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"regexp"
	"strings"
	"time"

	"localrag/internal/llm"
)

const (
	// MinVariations and MaxVariations bound the configured variation count.
	MinVariations = 2
	MaxVariations = 5
	// Disabled is the variation count that turns expansion off.
	Disabled = 1

	DefaultModel         = "llama3.2"
	DefaultServiceURL    = "http://localhost:11434"
	DefaultNumVariations = 3
	DefaultTimeout       = 60 * time.Second
)

// numbered matches lines where the model echoed a label or a list number.
var numbered = regexp.MustCompile(`(?i)^(variation|query|1|2|3|4|5)[:.)]`)

// Config configures an Expander. It is copied at construction.
type Config struct {
	Model string
	// ServiceURL is the model service endpoint used by HTTP runners. The
	// subprocess runner ignores it.
	ServiceURL    string
	NumVariations int
	// Timeout bounds one model invocation; 0 disables the bound.
	Timeout time.Duration
}

// Expander broadens a query into paraphrased variations using a model.
type Expander struct {
	cfg    Config
	runner llm.Runner
	log    *slog.Logger
}

// New creates an Expander. NumVariations is clamped to
// [MinVariations, MaxVariations], except Disabled which is kept.
func New(cfg Config, runner llm.Runner, log *slog.Logger) *Expander {
	if cfg.Model == "" {
		cfg.Model = DefaultModel
	}
	cfg.NumVariations = clampVariations(cfg.NumVariations)
	if log == nil {
		log = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Expander{cfg: cfg, runner: runner, log: log.With("component", "expander")}
}

func clampVariations(n int) int {
	switch {
	case n == Disabled:
		return Disabled
	case n < MinVariations:
		return MinVariations
	case n > MaxVariations:
		return MaxVariations
	default:
		return n
	}
}

// Config returns the effective configuration.
func (e *Expander) Config() Config { return e.cfg }

// ExpandQuery returns the original query followed by model-generated
// variations, exactly NumVariations entries long. Any model failure yields
// just the original query; errors never reach the caller.
func (e *Expander) ExpandQuery(ctx context.Context, original string) []string {
	n := e.cfg.NumVariations
	if n == Disabled {
		return []string{original}
	}
	if e.runner == nil {
		e.log.Warn("query expansion unavailable, using original query", "err", errors.New("no model runner configured"))
		return []string{original}
	}
	if e.cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.cfg.Timeout)
		defer cancel()
	}

	start := time.Now()
	out, err := e.runner.RunModel(ctx, buildPrompt(original, n), e.cfg.Model)
	if err != nil {
		e.log.Warn("query expansion failed, using original query", "model", e.cfg.Model, "err", err)
		return []string{original}
	}
	variations := assemble(original, parseVariations(out), n)
	e.log.Debug("query expanded", "model", e.cfg.Model, "variations", len(variations), "duration", time.Since(start))
	return variations
}

// parseVariations returns the trimmed non-empty lines of the model output,
// dropping numbered or labelled lines.
func parseVariations(output string) []string {
	var lines []string
	for _, line := range strings.Split(output, "\n") {
		line = strings.TrimSpace(line)
		if line == "" || numbered.MatchString(line) {
			continue
		}
		lines = append(lines, line)
	}
	return lines
}

// assemble puts original first, fills from parsed and pads with original.
func assemble(original string, parsed []string, n int) []string {
	out := make([]string, 0, n)
	out = append(out, original)
	for _, p := range parsed {
		if len(out) >= n {
			break
		}
		out = append(out, p)
	}
	for len(out) < n {
		out = append(out, original)
	}
	return out[:n]
}
