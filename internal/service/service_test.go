package service

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"docrag/internal/chunker"
	"docrag/internal/domain"
	"docrag/internal/embedding/hash"
	"docrag/internal/summarizer"
	"docrag/internal/vectorstore"
	"docrag/internal/vectorstore/memory"
)

func newTestService(t *testing.T, chunkSize, overlap int, opts Options) (*RAGService, *memory.Storage) {
	t.Helper()
	ch, err := chunker.New(chunkSize, overlap)
	require.NoError(t, err)
	emb, err := hash.NewEmbedder(64)
	require.NoError(t, err)
	store := memory.NewStorage(vectorstore.MetricEuclidean)
	svc, err := NewRAGService(ch, emb, store, summarizer.NewFrequencySummarizer(), nil, opts)
	require.NoError(t, err)
	return svc, store
}

func TestNewRAGServiceNegativeRateLimit(t *testing.T) {
	ch, err := chunker.New(100, 10)
	require.NoError(t, err)
	emb, err := hash.NewEmbedder(8)
	require.NoError(t, err)
	store := memory.NewStorage(vectorstore.MetricEuclidean)
	_, err = NewRAGService(ch, emb, store, summarizer.NewFrequencySummarizer(), nil, Options{RateLimit: -1})
	require.ErrorIs(t, err, domain.ErrInvalidConfiguration)
}

func TestBuildIndexAndRetrieve(t *testing.T) {
	svc, store := newTestService(t, 500, 50, Options{})
	doc := domain.Document{
		ID: "doc-1",
		Pages: []string{
			"the solar panel converts sunlight into electricity.",
			"a heat pump moves thermal energy between indoors and outdoors.",
			"wind turbines capture kinetic energy from moving air.",
		},
	}
	summary, n, err := svc.BuildIndex(context.Background(), doc)
	require.NoError(t, err)
	assert.Equal(t, 3, n)
	assert.NotEmpty(t, summary)
	assert.Equal(t, 3, store.Len())

	// querying with a chunk's own text must rank that chunk first with
	// an exact-match distance of zero
	res, err := svc.Retrieve(context.Background(), doc.Pages[1], 2)
	require.NoError(t, err)
	require.Len(t, res, 2)
	assert.Equal(t, doc.Pages[1], res[0].Chunk.Text)
	assert.Equal(t, 1, res[0].Chunk.Page)
	assert.Zero(t, res[0].Score)
}

func TestBuildIndexSequencesAcrossPages(t *testing.T) {
	svc, store := newTestService(t, 500, 50, Options{})
	page := strings.Repeat("a", 1200)
	doc := domain.Document{ID: "doc-2", Pages: []string{page, page}}
	_, n, err := svc.BuildIndex(context.Background(), doc)
	require.NoError(t, err)
	assert.Equal(t, 6, n)
	assert.Equal(t, 6, store.Len())

	res, err := svc.Retrieve(context.Background(), page, 6)
	require.NoError(t, err)
	require.Len(t, res, 6)
	bySeq := make(map[int]int, 6) // seq -> page
	for _, r := range res {
		bySeq[r.Chunk.Seq] = r.Chunk.Page
	}
	require.Len(t, bySeq, 6)
	for seq := 0; seq < 6; seq++ {
		wantPage := 0
		if seq >= 3 {
			wantPage = 1
		}
		assert.Equal(t, wantPage, bySeq[seq], "seq %d", seq)
	}
}

func TestBuildIndexEmptyDocument(t *testing.T) {
	svc, store := newTestService(t, 500, 50, Options{})
	summary, n, err := svc.BuildIndex(context.Background(), domain.Document{ID: "empty", Pages: []string{"", ""}})
	require.NoError(t, err)
	assert.Zero(t, n)
	assert.Empty(t, summary)
	assert.Equal(t, 0, store.Len())
}

type failingEmbedder struct{}

func (failingEmbedder) Name() string    { return "failing" }
func (failingEmbedder) Dimension() int  { return 8 }
func (failingEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	return nil, domain.ErrEmbeddingUnavailable
}
func (failingEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	return nil, domain.ErrEmbeddingUnavailable
}

func TestBuildIndexEmbedderFailureLeavesStoreEmpty(t *testing.T) {
	ch, err := chunker.New(100, 10)
	require.NoError(t, err)
	store := memory.NewStorage(vectorstore.MetricEuclidean)
	svc, err := NewRAGService(ch, failingEmbedder{}, store, summarizer.NewFrequencySummarizer(), nil, Options{})
	require.NoError(t, err)
	_, _, err = svc.BuildIndex(context.Background(), domain.Document{Pages: []string{"some content"}})
	require.ErrorIs(t, err, domain.ErrEmbeddingUnavailable)
	assert.Equal(t, 0, store.Len())
}

// driftingEmbedder returns a wider vector for texts containing "x",
// simulating a backend that silently switches models mid-build.
type driftingEmbedder struct{}

func (driftingEmbedder) Name() string   { return "drifting" }
func (driftingEmbedder) Dimension() int { return 0 }
func (driftingEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	if strings.Contains(text, "x") {
		return []float32{1, 2, 3}, nil
	}
	return []float32{1, 2}, nil
}
func (d driftingEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i, text := range texts {
		out[i], _ = d.Embed(ctx, text)
	}
	return out, nil
}

func TestBuildIndexRejectsDimensionDrift(t *testing.T) {
	ch, err := chunker.New(100, 10)
	require.NoError(t, err)
	store := memory.NewStorage(vectorstore.MetricEuclidean)
	svc, err := NewRAGService(ch, driftingEmbedder{}, store, summarizer.NewFrequencySummarizer(), nil, Options{BatchSize: 1})
	require.NoError(t, err)
	doc := domain.Document{Pages: []string{"aaaa", "xxxx"}}
	_, _, err = svc.BuildIndex(context.Background(), doc)
	var dim *domain.DimensionMismatchError
	require.ErrorAs(t, err, &dim)
	assert.Equal(t, 0, store.Len())
}

func TestRetrieveInvalidK(t *testing.T) {
	svc, _ := newTestService(t, 500, 50, Options{})
	_, err := svc.Retrieve(context.Background(), "query", 0)
	require.ErrorIs(t, err, domain.ErrInvalidConfiguration)
}

type recordingAnswerer struct {
	contexts []string
}

func (a *recordingAnswerer) Answer(ctx context.Context, question string, contexts []string) (string, error) {
	a.contexts = contexts
	return "the answer", nil
}

func TestAskWithoutAnswerer(t *testing.T) {
	svc, _ := newTestService(t, 500, 50, Options{})
	assert.False(t, svc.CanAnswer())
	_, _, err := svc.Ask(context.Background(), "anything")
	require.ErrorIs(t, err, domain.ErrInvalidConfiguration)
}

func TestAskPassesRetrievedContext(t *testing.T) {
	ch, err := chunker.New(500, 50)
	require.NoError(t, err)
	emb, err := hash.NewEmbedder(64)
	require.NoError(t, err)
	store := memory.NewStorage(vectorstore.MetricEuclidean)
	ans := &recordingAnswerer{}
	svc, err := NewRAGService(ch, emb, store, summarizer.NewFrequencySummarizer(), ans, Options{TopK: 2})
	require.NoError(t, err)
	assert.True(t, svc.CanAnswer())

	doc := domain.Document{Pages: []string{
		"cats sleep most of the day.",
		"dogs enjoy long walks outside.",
		"fish live entirely underwater.",
	}}
	_, _, err = svc.BuildIndex(context.Background(), doc)
	require.NoError(t, err)

	answer, results, err := svc.Ask(context.Background(), "dogs enjoy long walks outside.")
	require.NoError(t, err)
	assert.Equal(t, "the answer", answer)
	require.Len(t, results, 2)
	require.Len(t, ans.contexts, 2)
	for i, r := range results {
		assert.Equal(t, r.Chunk.Text, ans.contexts[i])
	}
}
