package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidConfiguration indicates bad parameters (chunk sizes,
	// non-positive k, unknown metric). Rejected before any work begins.
	ErrInvalidConfiguration = errors.New("invalid configuration")

	// ErrEmbeddingUnavailable indicates the embedding model could not be
	// reached or returned a malformed result.
	ErrEmbeddingUnavailable = errors.New("embedding unavailable")

	// ErrTimeout indicates an external call exceeded its deadline.
	ErrTimeout = errors.New("timeout")

	// ErrDocumentLoad indicates the document loader failed; the cause is
	// propagated opaquely.
	ErrDocumentLoad = errors.New("document load failure")
)

// DimensionMismatchError indicates a vector's length disagrees with the
// dimensionality fixed by the index or the embedder.
type DimensionMismatchError struct {
	Expected int
	Actual   int
}

func (e *DimensionMismatchError) Error() string {
	return fmt.Sprintf("dimension mismatch: expected %d, got %d", e.Expected, e.Actual)
}
