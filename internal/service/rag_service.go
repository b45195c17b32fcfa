// Package service orchestrates the indexing and retrieval pipeline:
// normalize, chunk, embed, index at build time; embed and search at
// query time.
package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"docrag/internal/answer"
	"docrag/internal/chunker"
	"docrag/internal/domain"
	"docrag/internal/embedding"
	"docrag/internal/textnorm"
	"docrag/internal/vectorstore"
)

// Default orchestration parameters.
const (
	DefaultTopK        = 4
	DefaultConcurrency = 4
	DefaultBatchSize   = 16
)

// Options tunes the build and retrieval phases.
type Options struct {
	// TopK is the number of chunks Ask retrieves for context.
	TopK int
	// Concurrency bounds the number of in-flight embedding batches.
	Concurrency int
	// BatchSize is the number of chunks per embedding request.
	BatchSize int
	// RateLimit caps embedding requests per second; 0 means unlimited.
	RateLimit float64
	// SummaryMaxSentences sizes the ingest digest.
	SummaryMaxSentences int
}

// RAGService wires the pipeline components. Build populates the store
// once; Retrieve and Ask run against the populated store any number of
// times, concurrently.
type RAGService struct {
	chunker    *chunker.Chunker
	embedder   embedding.Embedder
	store      vectorstore.Storage
	summarizer domain.Summarizer
	answerer   answer.Answerer // nil disables Ask
	limiter    *rate.Limiter
	opts       Options
}

// NewRAGService validates the options eagerly and assembles the
// pipeline. answerer may be nil.
func NewRAGService(ch *chunker.Chunker, emb embedding.Embedder, store vectorstore.Storage, sum domain.Summarizer, ans answer.Answerer, opts Options) (*RAGService, error) {
	if opts.TopK <= 0 {
		opts.TopK = DefaultTopK
	}
	if opts.Concurrency <= 0 {
		opts.Concurrency = DefaultConcurrency
	}
	if opts.BatchSize <= 0 {
		opts.BatchSize = DefaultBatchSize
	}
	if opts.RateLimit < 0 {
		return nil, fmt.Errorf("%w: rate limit must not be negative", domain.ErrInvalidConfiguration)
	}
	s := &RAGService{
		chunker:    ch,
		embedder:   emb,
		store:      store,
		summarizer: sum,
		answerer:   ans,
		opts:       opts,
	}
	if opts.RateLimit > 0 {
		s.limiter = rate.NewLimiter(rate.Limit(opts.RateLimit), 1)
	}
	return s, nil
}

// TopK returns the configured retrieval depth.
func (s *RAGService) TopK() int { return s.opts.TopK }

// CanAnswer reports whether an answerer is configured.
func (s *RAGService) CanAnswer() bool { return s.answerer != nil }

// BuildIndex turns the document into a populated index: every page is
// normalized and chunked, all chunks are embedded in batches, and the
// whole batch is inserted at once. Sequence numbers run across the
// whole document in page order. On any failure nothing is inserted.
// Returns the ingest digest and the number of indexed chunks.
func (s *RAGService) BuildIndex(ctx context.Context, doc domain.Document) (string, int, error) {
	var chunks []domain.Chunk
	var digest strings.Builder
	for p, page := range doc.Pages {
		norm := textnorm.Normalize(page)
		chunks = append(chunks, s.chunker.Split(norm, p, len(chunks))...)
		digest.WriteString(norm)
		digest.WriteString("\n")
	}
	if len(chunks) == 0 {
		return "", 0, nil
	}
	vectors, err := s.embedAll(ctx, chunks)
	if err != nil {
		return "", 0, err
	}
	if err := s.store.Init(len(vectors[0])); err != nil {
		return "", 0, err
	}
	if err := s.store.Add(chunks, vectors); err != nil {
		return "", 0, err
	}
	summary, err := s.summarizer.Summarize(digest.String(), s.opts.SummaryMaxSentences)
	if err != nil {
		return "", 0, err
	}
	return summary, len(chunks), nil
}

// embedAll embeds all chunks in batches with bounded concurrency and
// reassembles the vectors in chunk order. Every vector must share one
// dimensionality before anything reaches the store.
func (s *RAGService) embedAll(ctx context.Context, chunks []domain.Chunk) ([][]float32, error) {
	vectors := make([][]float32, len(chunks))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.opts.Concurrency)
	for start := 0; start < len(chunks); start += s.opts.BatchSize {
		end := start + s.opts.BatchSize
		if end > len(chunks) {
			end = len(chunks)
		}
		offset := start
		texts := make([]string, 0, end-start)
		for _, ch := range chunks[start:end] {
			texts = append(texts, ch.Text)
		}
		g.Go(func() error {
			if s.limiter != nil {
				if err := s.limiter.Wait(gctx); err != nil {
					return err
				}
			}
			vecs, err := s.embedder.EmbedBatch(gctx, texts)
			if err != nil {
				return err
			}
			if len(vecs) != len(texts) {
				return fmt.Errorf("%w: expected %d vectors, got %d", domain.ErrEmbeddingUnavailable, len(texts), len(vecs))
			}
			copy(vectors[offset:], vecs)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return nil, fmt.Errorf("%w: %v", domain.ErrTimeout, err)
		}
		return nil, err
	}
	dim := len(vectors[0])
	for _, v := range vectors {
		if len(v) != dim {
			return nil, &domain.DimensionMismatchError{Expected: dim, Actual: len(v)}
		}
	}
	return vectors, nil
}

// Retrieve embeds the query with the build-time embedder and returns
// the k best chunks in ranked order.
func (s *RAGService) Retrieve(ctx context.Context, query string, k int) ([]domain.ScoredChunk, error) {
	if k <= 0 {
		return nil, fmt.Errorf("%w: k must be positive, got %d", domain.ErrInvalidConfiguration, k)
	}
	vec, err := s.embedder.Embed(ctx, query)
	if err != nil {
		return nil, err
	}
	return s.store.Search(vec, k)
}

// Ask retrieves the top chunks for the question and hands them to the
// answerer in a single bounded attempt. The retrieved chunks are
// returned alongside the answer so callers can show provenance.
func (s *RAGService) Ask(ctx context.Context, question string) (string, []domain.ScoredChunk, error) {
	if s.answerer == nil {
		return "", nil, fmt.Errorf("%w: no answerer configured", domain.ErrInvalidConfiguration)
	}
	results, err := s.Retrieve(ctx, question, s.opts.TopK)
	if err != nil {
		return "", nil, err
	}
	contexts := make([]string, 0, len(results))
	for _, r := range results {
		contexts = append(contexts, r.Chunk.Text)
	}
	ans, err := s.answerer.Answer(ctx, question, contexts)
	if err != nil {
		return "", nil, err
	}
	return ans, results, nil
}
