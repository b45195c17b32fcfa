package summarizer

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSummarizeEmpty(t *testing.T) {
	s := NewFrequencySummarizer()
	out, err := s.Summarize("", 3)
	require.NoError(t, err)
	assert.Empty(t, out)
}

func TestSummarizeNoSentenceTerminators(t *testing.T) {
	s := NewFrequencySummarizer()
	out, err := s.Summarize("  just a fragment without punctuation  ", 3)
	require.NoError(t, err)
	assert.Equal(t, "just a fragment without punctuation", out)
}

func TestSummarizeLimitsSentenceCount(t *testing.T) {
	s := NewFrequencySummarizer()
	text := "One sentence here. Another sentence follows. A third one arrives. The fourth closes it."
	out, err := s.Summarize(text, 2)
	require.NoError(t, err)
	assert.Equal(t, 2, strings.Count(out, "."))
}

func TestSummarizePreservesOriginalOrder(t *testing.T) {
	s := NewFrequencySummarizer()
	text := "Solar power grows quickly. Irrelevant filler sentence here. Solar panels make solar power cheap."
	out, err := s.Summarize(text, 2)
	require.NoError(t, err)
	first := strings.Index(out, "Solar power grows")
	second := strings.Index(out, "Solar panels make")
	require.GreaterOrEqual(t, first, 0)
	require.Greater(t, second, first)
}

func TestSummarizeRanksFrequentTopics(t *testing.T) {
	s := NewFrequencySummarizer()
	text := "Turbines spin in wind farms. Turbines need regular turbine maintenance. Cats nap quietly."
	out, err := s.Summarize(text, 1)
	require.NoError(t, err)
	assert.Contains(t, out, "Turbines")
	assert.NotContains(t, out, "Cats")
}

func TestSummarizeNonPositiveLimitDefaultsToFive(t *testing.T) {
	s := NewFrequencySummarizer()
	var b strings.Builder
	for i := 0; i < 10; i++ {
		b.WriteString("Sentence number " + strings.Repeat("x", i+1) + " ends. ")
	}
	out, err := s.Summarize(b.String(), 0)
	require.NoError(t, err)
	assert.Equal(t, 5, strings.Count(out, "."))
}
