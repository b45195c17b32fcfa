package domain

// Document is a source document as produced by the external loader:
// an ordered sequence of page texts. Immutable once loaded.
type Document struct {
	ID    string
	Path  string
	Pages []string
}

// Chunk is a contiguous segment of one normalized page. Offsets refer
// to the normalized page text, not the raw input.
type Chunk struct {
	Text        string
	Page        int // index of the source page within the document
	StartOffset int // start of the segment within the normalized page
	EndOffset   int // end of the segment (exclusive)
	Seq         int // insertion position among all chunks of the document
}

// ScoredChunk is a retrieval hit: a chunk together with its score under
// the index's distance metric.
type ScoredChunk struct {
	Chunk Chunk
	Score float32
}

// Summarizer produces a brief digest of the provided text.
type Summarizer interface {
	Summarize(text string, maxSentences int) (string, error)
}
