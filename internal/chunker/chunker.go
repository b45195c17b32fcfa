// Package chunker splits normalized text into overlapping, size-bounded
// segments for retrieval indexing.
package chunker

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"docrag/internal/domain"
)

// DefaultChunkSize is the default number of characters per chunk.
const DefaultChunkSize = 1000

// DefaultChunkOverlap is the default number of overlapping characters.
const DefaultChunkOverlap = 200

// Chunker splits text on a prioritized list of separators so that each
// chunk is as large as possible without exceeding the configured size.
// Consecutive chunks share roughly chunkOverlap trailing characters.
type Chunker struct {
	chunkSize    int
	chunkOverlap int
	separators   []string
}

// New validates the size parameters and returns a chunker. chunkSize
// must be positive and chunkOverlap must be in [0, chunkSize).
func New(chunkSize, chunkOverlap int) (*Chunker, error) {
	if chunkSize <= 0 {
		return nil, fmt.Errorf("%w: chunk size must be positive, got %d", domain.ErrInvalidConfiguration, chunkSize)
	}
	if chunkOverlap < 0 || chunkOverlap >= chunkSize {
		return nil, fmt.Errorf("%w: chunk overlap %d must be in [0, %d)", domain.ErrInvalidConfiguration, chunkOverlap, chunkSize)
	}
	return &Chunker{
		chunkSize:    chunkSize,
		chunkOverlap: chunkOverlap,
		separators:   []string{"\n\n", "\n", " "},
	}, nil
}

// ChunkSize returns the configured maximum chunk length.
func (c *Chunker) ChunkSize() int { return c.chunkSize }

// ChunkOverlap returns the configured overlap length.
func (c *Chunker) ChunkOverlap() int { return c.chunkOverlap }

// Split chunks one normalized page. Chunks carry offsets into the page
// text, the given page index, and sequence numbers starting at
// startSeq. Deterministic: identical input and parameters produce
// identical output. An empty page yields no chunks; a page shorter
// than the chunk size yields exactly one chunk spanning the page.
func (c *Chunker) Split(text string, page, startSeq int) []domain.Chunk {
	if text == "" {
		return nil
	}
	if len(text) <= c.chunkSize {
		return []domain.Chunk{{
			Text:        text,
			Page:        page,
			StartOffset: 0,
			EndOffset:   len(text),
			Seq:         startSeq,
		}}
	}
	var chunks []domain.Chunk
	start := 0
	seq := startSeq
	for {
		end := start + c.chunkSize
		if end >= len(text) {
			end = len(text)
		} else {
			end = c.cutPoint(text, start, end)
		}
		chunks = append(chunks, domain.Chunk{
			Text:        text[start:end],
			Page:        page,
			StartOffset: start,
			EndOffset:   end,
			Seq:         seq,
		})
		seq++
		if end == len(text) {
			return chunks
		}
		start = c.overlapStart(text, start, end)
	}
}

// cutPoint returns the end of the chunk starting at start: one past the
// last occurrence of the highest-priority separator within the size
// window. The separator stays with the chunk it terminates. A cut must
// clear the overlap region, otherwise the next chunk would start at or
// before this one; such cuts fall through to the next separator or the
// hard limit. Hard cuts never split a rune: the limit snaps back to the
// nearest rune boundary, or forward when that would empty the chunk.
func (c *Chunker) cutPoint(text string, start, limit int) int {
	window := text[start:limit]
	for _, sep := range c.separators {
		if i := strings.LastIndex(window, sep); i > 0 && i+len(sep) > c.chunkOverlap {
			return start + i + len(sep)
		}
	}
	if p := runeFloor(text, limit); p > start {
		return p
	}
	return runeCeil(text, limit)
}

// overlapStart returns where the next chunk begins: chunkOverlap
// characters before end, snapped backward to the nearest separator
// boundary within at most chunkOverlap further characters. The result
// always lies strictly after prevStart, on a rune boundary, so
// splitting terminates and never starts a chunk mid-rune.
func (c *Chunker) overlapStart(text string, prevStart, end int) int {
	desired := end - c.chunkOverlap
	floor := desired - c.chunkOverlap
	if floor < prevStart+1 {
		floor = prevStart + 1
	}
	if desired <= floor {
		return snapStart(text, floor, prevStart)
	}
	window := text[floor:desired]
	for _, sep := range c.separators {
		if i := strings.LastIndex(window, sep); i >= 0 {
			return floor + i + len(sep)
		}
	}
	return snapStart(text, desired, prevStart)
}

// snapStart moves pos back to a rune boundary, or forward past
// prevStart when snapping back would stall the walk.
func snapStart(text string, pos, prevStart int) int {
	if p := runeFloor(text, pos); p > prevStart {
		return p
	}
	return runeCeil(text, prevStart+1)
}

func runeFloor(text string, i int) int {
	for i > 0 && !utf8.RuneStart(text[i]) {
		i--
	}
	return i
}

func runeCeil(text string, i int) int {
	for i < len(text) && !utf8.RuneStart(text[i]) {
		i++
	}
	return i
}
