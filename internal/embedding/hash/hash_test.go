package hash

import (
	"context"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"docrag/internal/domain"
)

func TestNewEmbedderRejectsInvalidDimension(t *testing.T) {
	_, err := NewEmbedder(0)
	require.ErrorIs(t, err, domain.ErrInvalidConfiguration)
	_, err = NewEmbedder(-5)
	require.ErrorIs(t, err, domain.ErrInvalidConfiguration)
}

func TestEmbedDimension(t *testing.T) {
	e, err := NewEmbedder(64)
	require.NoError(t, err)
	assert.Equal(t, 64, e.Dimension())
	vec, err := e.Embed(context.Background(), "some text to embed")
	require.NoError(t, err)
	assert.Len(t, vec, 64)
}

func TestEmbedDeterministic(t *testing.T) {
	e, err := NewEmbedder(DefaultDimension)
	require.NoError(t, err)
	a, err := e.Embed(context.Background(), "the same input text")
	require.NoError(t, err)
	b, err := e.Embed(context.Background(), "the same input text")
	require.NoError(t, err)
	assert.Equal(t, a, b)
}

func TestEmbedUnitNorm(t *testing.T) {
	e, err := NewEmbedder(128)
	require.NoError(t, err)
	vec, err := e.Embed(context.Background(), "normalized vectors have unit length")
	require.NoError(t, err)
	var norm float64
	for _, v := range vec {
		norm += float64(v) * float64(v)
	}
	assert.InDelta(t, 1.0, math.Sqrt(norm), 1e-5)
}

func TestEmbedTokenlessTextIsZeroVector(t *testing.T) {
	e, err := NewEmbedder(32)
	require.NoError(t, err)
	vec, err := e.Embed(context.Background(), "12345 !!! ...")
	require.NoError(t, err)
	for _, v := range vec {
		assert.Zero(t, v)
	}
}

func TestEmbedBatchOrder(t *testing.T) {
	e, err := NewEmbedder(DefaultDimension)
	require.NoError(t, err)
	texts := []string{"first text", "second text", "third text"}
	batch, err := e.EmbedBatch(context.Background(), texts)
	require.NoError(t, err)
	require.Len(t, batch, 3)
	for i, text := range texts {
		single, err := e.Embed(context.Background(), text)
		require.NoError(t, err)
		assert.Equal(t, single, batch[i], "batch vector %d", i)
	}
}

func TestEmbedCancelledContext(t *testing.T) {
	e, err := NewEmbedder(DefaultDimension)
	require.NoError(t, err)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = e.Embed(ctx, "anything")
	require.ErrorIs(t, err, context.Canceled)
}
