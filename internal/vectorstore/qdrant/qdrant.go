// Package qdrant is a minimal REST adapter exposing a Qdrant
// collection through the vector store port.
package qdrant

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"docrag/internal/domain"
	"docrag/internal/vectorstore"
)

var _ vectorstore.Storage = (*Storage)(nil)

// Config contains connection details for a Qdrant collection.
type Config struct {
	URL        string
	APIKey     string
	Collection string
	Metric     vectorstore.Metric
	Timeout    time.Duration
}

// Storage talks to Qdrant over its REST API. The collection is created
// on Init with the configured metric.
type Storage struct {
	url        string
	apiKey     string
	collection string
	metric     vectorstore.Metric
	dimension  int
	client     *http.Client
}

// NewStorage creates a Qdrant-backed store.
func NewStorage(cfg Config) *Storage {
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 15 * time.Second
	}
	return &Storage{
		url:        cfg.URL,
		apiKey:     cfg.APIKey,
		collection: cfg.Collection,
		metric:     cfg.Metric,
		client:     &http.Client{Timeout: timeout},
	}
}

func (s *Storage) distanceName() string {
	if s.metric == vectorstore.MetricCosine {
		return "Cosine"
	}
	return "Euclid"
}

// Init creates the collection if missing and fixes the dimensionality.
func (s *Storage) Init(dimension int) error {
	if dimension <= 0 {
		return fmt.Errorf("%w: dimension must be positive, got %d", domain.ErrInvalidConfiguration, dimension)
	}
	s.dimension = dimension
	body := map[string]any{
		"vectors": map[string]any{
			"size":     dimension,
			"distance": s.distanceName(),
		},
	}
	return s.putJSON(fmt.Sprintf("%s/collections/%s", s.url, s.collection), body)
}

// Add upserts all entries in one request; Qdrant applies the batch
// atomically with wait=true.
func (s *Storage) Add(chunks []domain.Chunk, vectors [][]float32) error {
	if len(chunks) != len(vectors) {
		return fmt.Errorf("%w: %d chunks but %d vectors", domain.ErrInvalidConfiguration, len(chunks), len(vectors))
	}
	if s.dimension == 0 {
		return fmt.Errorf("%w: store not initialized", domain.ErrInvalidConfiguration)
	}
	for _, v := range vectors {
		if len(v) != s.dimension {
			return &domain.DimensionMismatchError{Expected: s.dimension, Actual: len(v)}
		}
	}
	points := make([]map[string]any, len(chunks))
	for i, ch := range chunks {
		points[i] = map[string]any{
			"id":     ch.Seq,
			"vector": vectors[i],
			"payload": map[string]any{
				"seq":          ch.Seq,
				"page":         ch.Page,
				"start_offset": ch.StartOffset,
				"end_offset":   ch.EndOffset,
				"text":         ch.Text,
			},
		}
	}
	body := map[string]any{"points": points}
	return s.putJSON(fmt.Sprintf("%s/collections/%s/points?wait=true", s.url, s.collection), body)
}

// Search queries the collection. Qdrant already orders results by the
// collection's metric; equal scores are reordered by ascending
// sequence number to keep results deterministic.
func (s *Storage) Search(vector []float32, k int) ([]domain.ScoredChunk, error) {
	if k <= 0 {
		return nil, fmt.Errorf("%w: k must be positive, got %d", domain.ErrInvalidConfiguration, k)
	}
	if s.dimension != 0 && len(vector) != s.dimension {
		return nil, &domain.DimensionMismatchError{Expected: s.dimension, Actual: len(vector)}
	}
	req := map[string]any{
		"vector":       vector,
		"limit":        k,
		"with_payload": true,
	}
	var resp struct {
		Result []struct {
			Score   float64        `json:"score"`
			Payload map[string]any `json:"payload"`
		} `json:"result"`
	}
	if err := s.postJSON(fmt.Sprintf("%s/collections/%s/points/search", s.url, s.collection), req, &resp); err != nil {
		return nil, err
	}
	results := make([]domain.ScoredChunk, 0, len(resp.Result))
	for _, r := range resp.Result {
		chunk := domain.Chunk{}
		if v, ok := r.Payload["text"].(string); ok {
			chunk.Text = v
		}
		chunk.Seq = payloadInt(r.Payload, "seq")
		chunk.Page = payloadInt(r.Payload, "page")
		chunk.StartOffset = payloadInt(r.Payload, "start_offset")
		chunk.EndOffset = payloadInt(r.Payload, "end_offset")
		results = append(results, domain.ScoredChunk{Chunk: chunk, Score: float32(r.Score)})
	}
	for i := 1; i < len(results); i++ {
		j := i
		for j > 0 && results[j-1].Score == results[j].Score && results[j].Chunk.Seq < results[j-1].Chunk.Seq {
			results[j-1], results[j] = results[j], results[j-1]
			j--
		}
	}
	return results, nil
}

// Clear drops the collection; Init recreates it.
func (s *Storage) Clear() error {
	req, err := http.NewRequest(http.MethodDelete, fmt.Sprintf("%s/collections/%s", s.url, s.collection), nil)
	if err != nil {
		return err
	}
	if s.apiKey != "" {
		req.Header.Set("api-key", s.apiKey)
	}
	resp, err := s.client.Do(req)
	if err != nil {
		return err
	}
	resp.Body.Close()
	return nil
}

func payloadInt(payload map[string]any, key string) int {
	if v, ok := payload[key].(float64); ok {
		return int(v)
	}
	return 0
}

func (s *Storage) putJSON(url string, body any) error {
	data, err := json.Marshal(body)
	if err != nil {
		return err
	}
	req, err := http.NewRequest(http.MethodPut, url, bytes.NewReader(data))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	if s.apiKey != "" {
		req.Header.Set("api-key", s.apiKey)
	}
	resp, err := s.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		return fmt.Errorf("qdrant PUT %s failed: %s", url, resp.Status)
	}
	return nil
}

func (s *Storage) postJSON(url string, body, out any) error {
	data, err := json.Marshal(body)
	if err != nil {
		return err
	}
	req, err := http.NewRequest(http.MethodPost, url, bytes.NewReader(data))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	if s.apiKey != "" {
		req.Header.Set("api-key", s.apiKey)
	}
	resp, err := s.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		return fmt.Errorf("qdrant POST %s failed: %s", url, resp.Status)
	}
	if out != nil {
		return json.NewDecoder(resp.Body).Decode(out)
	}
	return nil
}
