package openai

import (
	"context"
	"encoding/json"
	"math"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	goopenai "github.com/sashabaranov/go-openai"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"docrag/internal/domain"
)

const testKeyEnv = "DOCRAG_TEST_OPENAI_KEY"

type embeddingDatum struct {
	Object    string    `json:"object"`
	Index     int       `json:"index"`
	Embedding []float32 `json:"embedding"`
}

type embeddingResponse struct {
	Object string           `json:"object"`
	Data   []embeddingDatum `json:"data"`
	Model  string           `json:"model"`
}

func newTestClient(t *testing.T, handler http.HandlerFunc, maxRetries int) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	t.Setenv(testKeyEnv, "test-key")
	c, err := NewClient(Config{
		BaseURL:    srv.URL,
		APIKeyEnv:  testKeyEnv,
		Model:      "test-model",
		Timeout:    5 * time.Second,
		MaxRetries: maxRetries,
	})
	require.NoError(t, err)
	return c
}

func writeEmbeddings(w http.ResponseWriter, data []embeddingDatum) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(embeddingResponse{Object: "list", Data: data, Model: "test-model"})
}

func TestNewClientMissingKey(t *testing.T) {
	t.Setenv(testKeyEnv, "")
	_, err := NewClient(Config{APIKeyEnv: testKeyEnv})
	require.ErrorIs(t, err, domain.ErrInvalidConfiguration)
}

func TestEmbedBatchReordersByIndex(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		// deliberately out of order
		writeEmbeddings(w, []embeddingDatum{
			{Object: "embedding", Index: 1, Embedding: []float32{0, 1}},
			{Object: "embedding", Index: 0, Embedding: []float32{1, 0}},
		})
	}, 1)
	vecs, err := c.EmbedBatch(context.Background(), []string{"a", "b"})
	require.NoError(t, err)
	require.Len(t, vecs, 2)
	assert.Equal(t, []float32{1, 0}, vecs[0])
	assert.Equal(t, []float32{0, 1}, vecs[1])
	assert.Equal(t, 2, c.Dimension())
}

func TestEmbedBatchEmptyInput(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		t.Error("no request expected for empty input")
	}, 1)
	vecs, err := c.EmbedBatch(context.Background(), nil)
	require.NoError(t, err)
	assert.Nil(t, vecs)
}

func TestEmbedBatchCountMismatch(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		writeEmbeddings(w, []embeddingDatum{
			{Object: "embedding", Index: 0, Embedding: []float32{1, 0}},
		})
	}, 1)
	_, err := c.EmbedBatch(context.Background(), []string{"a", "b"})
	require.ErrorIs(t, err, domain.ErrEmbeddingUnavailable)
}

func TestEmbedBatchDimensionDrift(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		writeEmbeddings(w, []embeddingDatum{
			{Object: "embedding", Index: 0, Embedding: []float32{1, 0}},
			{Object: "embedding", Index: 1, Embedding: []float32{1, 0, 0}},
		})
	}, 1)
	_, err := c.EmbedBatch(context.Background(), []string{"a", "b"})
	var dim *domain.DimensionMismatchError
	require.ErrorAs(t, err, &dim)
	assert.Equal(t, 2, dim.Expected)
	assert.Equal(t, 3, dim.Actual)
}

func TestEmbedBatchRetriesServerErrors(t *testing.T) {
	calls := 0
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		calls++
		if calls == 1 {
			http.Error(w, `{"error":{"message":"overloaded"}}`, http.StatusInternalServerError)
			return
		}
		writeEmbeddings(w, []embeddingDatum{
			{Object: "embedding", Index: 0, Embedding: []float32{1, 2}},
		})
	}, 2)
	vecs, err := c.EmbedBatch(context.Background(), []string{"a"})
	require.NoError(t, err)
	assert.Equal(t, [][]float32{{1, 2}}, vecs)
	assert.Equal(t, 2, calls)
}

func TestEmbedBatchGivesUpAfterMaxRetries(t *testing.T) {
	calls := 0
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		calls++
		http.Error(w, `{"error":{"message":"overloaded"}}`, http.StatusServiceUnavailable)
	}, 2)
	_, err := c.EmbedBatch(context.Background(), []string{"a"})
	require.ErrorIs(t, err, domain.ErrEmbeddingUnavailable)
	assert.Equal(t, 3, calls)
}

func TestCollectRejectsNonFiniteValues(t *testing.T) {
	c := &Client{}
	resp := goopenai.EmbeddingResponse{
		Data: []goopenai.Embedding{
			{Index: 0, Embedding: []float32{float32(math.NaN()), 0}},
		},
	}
	_, err := c.collect(resp, 1)
	require.ErrorIs(t, err, domain.ErrEmbeddingUnavailable)
}

func TestCollectRejectsDuplicateIndex(t *testing.T) {
	c := &Client{}
	resp := goopenai.EmbeddingResponse{
		Data: []goopenai.Embedding{
			{Index: 0, Embedding: []float32{1, 0}},
			{Index: 0, Embedding: []float32{0, 1}},
		},
	}
	_, err := c.collect(resp, 2)
	require.ErrorIs(t, err, domain.ErrEmbeddingUnavailable)
}

func TestRetryDelayCaps(t *testing.T) {
	assert.Equal(t, 200*time.Millisecond, retryDelay(0))
	assert.Equal(t, 400*time.Millisecond, retryDelay(1))
	assert.Equal(t, 5*time.Second, retryDelay(10))
	assert.Equal(t, 200*time.Millisecond, retryDelay(-1))
}
