// Package embedding defines the embedder port. Implementations wrap a
// concrete model behind a uniform text-to-vector interface.
package embedding

import "context"

// Embedder converts free text into a numeric vector representation.
// All vectors produced by one instance have identical dimensionality
// for its lifetime; a mismatch is a fatal configuration error.
type Embedder interface {
	Name() string

	// Dimension returns the vector dimensionality, or 0 when it is not
	// yet known (remote models resolve it on the first call).
	Dimension() int

	Embed(ctx context.Context, text string) ([]float32, error)

	// EmbedBatch embeds many texts at once. Results are aligned
	// positionally with the inputs.
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)
}
