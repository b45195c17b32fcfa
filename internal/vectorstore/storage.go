// Package vectorstore defines the vector index port and the distance
// metric contract shared by its backends.
package vectorstore

import (
	"fmt"

	"docrag/internal/domain"
)

// Metric is the distance metric a store uses for similarity search.
// It is fixed for the lifetime of the store.
type Metric int

const (
	// MetricEuclidean scores by squared L2 distance, ascending.
	MetricEuclidean Metric = iota
	// MetricCosine scores by cosine similarity, descending.
	MetricCosine
)

func (m Metric) String() string {
	switch m {
	case MetricEuclidean:
		return "euclidean"
	case MetricCosine:
		return "cosine"
	default:
		return fmt.Sprintf("unknown(%d)", int(m))
	}
}

// ParseMetric maps a configuration string to a Metric. The empty
// string selects euclidean.
func ParseMetric(s string) (Metric, error) {
	switch s {
	case "euclidean", "":
		return MetricEuclidean, nil
	case "cosine":
		return MetricCosine, nil
	default:
		return 0, fmt.Errorf("%w: unknown distance metric %q", domain.ErrInvalidConfiguration, s)
	}
}

// Storage holds (chunk, vector) entries and answers nearest-neighbor
// queries. Entries are write-once: a batch Add is visible atomically
// or not at all, and entries never change afterwards.
type Storage interface {
	// Init fixes the vector dimensionality and empties the store.
	Init(dimension int) error

	// Add inserts all entries or none. Vectors whose length disagrees
	// with the initialized dimension fail with DimensionMismatchError.
	Add(chunks []domain.Chunk, vectors [][]float32) error

	// Search returns the min(k, stored) entries nearest to the vector,
	// best first under the store's metric, ties broken by ascending
	// sequence number. k must be positive.
	Search(vector []float32, k int) ([]domain.ScoredChunk, error)

	// Clear removes all entries.
	Clear() error
}
