package embedding

import "context"

// Dimension is the length of every vector produced by the feature embedder.
const Dimension = 384

// Vector is a dense embedding.
type Vector []float64

// Embedder converts free text into a numeric vector representation.
// Implementations are interchangeable strategies behind the same contract.
type Embedder interface {
	Name() string
	// Dimension reports the vector length, or 0 when it is only known after
	// the first call to Embed.
	Dimension() int
	Embed(ctx context.Context, text string) (Vector, error)
}
