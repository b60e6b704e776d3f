package embedding

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"
)

// EmbedAll embeds texts with at most workers concurrent calls and returns the
// vectors in input order. workers <= 0 means unbounded. The first error
// cancels the remaining calls.
func EmbedAll(ctx context.Context, emb Embedder, texts []string, workers int) ([]Vector, error) {
	out := make([]Vector, len(texts))
	g, gctx := errgroup.WithContext(ctx)
	if workers > 0 {
		g.SetLimit(workers)
	}
	for i, text := range texts {
		g.Go(func() error {
			vec, err := emb.Embed(gctx, text)
			if err != nil {
				return fmt.Errorf("embed text %d: %w", i, err)
			}
			out[i] = vec
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}
