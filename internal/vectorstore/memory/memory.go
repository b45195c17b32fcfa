// Package memory provides a flat in-memory vector store with
// brute-force nearest-neighbor search.
package memory

import (
	"fmt"
	"math"
	"sort"
	"sync"

	"docrag/internal/domain"
	"docrag/internal/vectorstore"
)

var _ vectorstore.Storage = (*Storage)(nil)

// Storage is an exact (non-approximate) index: every query scans all
// stored vectors. Reads take a shared lock, so a built index can serve
// concurrent queries; batch adds are exclusive and all-or-nothing.
type Storage struct {
	mu        sync.RWMutex
	metric    vectorstore.Metric
	dimension int
	chunks    []domain.Chunk
	vectors   [][]float32
}

// NewStorage creates an empty store with the given metric.
func NewStorage(metric vectorstore.Metric) *Storage {
	return &Storage{metric: metric}
}

// Metric returns the store's fixed distance metric.
func (s *Storage) Metric() vectorstore.Metric { return s.metric }

// Init fixes the dimensionality and drops any stored entries.
func (s *Storage) Init(dimension int) error {
	if dimension <= 0 {
		return fmt.Errorf("%w: dimension must be positive, got %d", domain.ErrInvalidConfiguration, dimension)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.dimension = dimension
	s.chunks = nil
	s.vectors = nil
	return nil
}

// Add inserts all entries under one exclusive lock. Validation runs
// before anything is appended, so a failed batch leaves the store
// untouched.
func (s *Storage) Add(chunks []domain.Chunk, vectors [][]float32) error {
	if len(chunks) != len(vectors) {
		return fmt.Errorf("%w: %d chunks but %d vectors", domain.ErrInvalidConfiguration, len(chunks), len(vectors))
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.dimension == 0 {
		return fmt.Errorf("%w: store not initialized", domain.ErrInvalidConfiguration)
	}
	for _, v := range vectors {
		if len(v) != s.dimension {
			return &domain.DimensionMismatchError{Expected: s.dimension, Actual: len(v)}
		}
	}
	s.chunks = append(s.chunks, chunks...)
	s.vectors = append(s.vectors, vectors...)
	return nil
}

// Search scans all entries and returns the k best. Euclidean scores
// are squared L2 distances (ascending); cosine scores are similarities
// (descending). Equal scores order by ascending sequence number.
func (s *Storage) Search(vector []float32, k int) ([]domain.ScoredChunk, error) {
	if k <= 0 {
		return nil, fmt.Errorf("%w: k must be positive, got %d", domain.ErrInvalidConfiguration, k)
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.dimension == 0 {
		return nil, fmt.Errorf("%w: store not initialized", domain.ErrInvalidConfiguration)
	}
	if len(vector) != s.dimension {
		return nil, &domain.DimensionMismatchError{Expected: s.dimension, Actual: len(vector)}
	}
	scores := make([]float32, len(s.vectors))
	for i, v := range s.vectors {
		switch s.metric {
		case vectorstore.MetricCosine:
			scores[i] = cosine(v, vector)
		default:
			scores[i] = squaredL2(v, vector)
		}
	}
	idxs := make([]int, len(scores))
	for i := range idxs {
		idxs[i] = i
	}
	better := s.better()
	sort.Slice(idxs, func(a, b int) bool {
		ia, ib := idxs[a], idxs[b]
		if scores[ia] != scores[ib] {
			return better(scores[ia], scores[ib])
		}
		return s.chunks[ia].Seq < s.chunks[ib].Seq
	})
	if k > len(idxs) {
		k = len(idxs)
	}
	results := make([]domain.ScoredChunk, 0, k)
	for _, i := range idxs[:k] {
		results = append(results, domain.ScoredChunk{Chunk: s.chunks[i], Score: scores[i]})
	}
	return results, nil
}

// Len reports the number of stored entries.
func (s *Storage) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.chunks)
}

// Clear removes all entries but keeps the dimension.
func (s *Storage) Clear() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.chunks = nil
	s.vectors = nil
	return nil
}

func (s *Storage) better() func(a, b float32) bool {
	if s.metric == vectorstore.MetricCosine {
		return func(a, b float32) bool { return a > b }
	}
	return func(a, b float32) bool { return a < b }
}

func squaredL2(a, b []float32) float32 {
	var sum float32
	for i := range a {
		d := a[i] - b[i]
		sum += d * d
	}
	return sum
}

func cosine(a, b []float32) float32 {
	var dot, na, nb float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		na += float64(a[i]) * float64(a[i])
		nb += float64(b[i]) * float64(b[i])
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return float32(dot / (math.Sqrt(na) * math.Sqrt(nb)))
}
