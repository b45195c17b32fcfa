package memory

import (
	"encoding/gob"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"docrag/internal/domain"
	"docrag/internal/vectorstore"
)

// snapshot is the on-disk layout: one record per chunk with its
// sequence number, page, offsets, text and vector values — enough to
// rebuild the index without re-embedding.
type snapshot struct {
	Metric    int
	Dimension int
	Chunks    []domain.Chunk
	Vectors   [][]float32
}

// Save writes the store contents as a gob stream.
func (s *Storage) Save(w io.Writer) error {
	s.mu.RLock()
	snap := snapshot{
		Metric:    int(s.metric),
		Dimension: s.dimension,
		Chunks:    s.chunks,
		Vectors:   s.vectors,
	}
	s.mu.RUnlock()
	return gob.NewEncoder(w).Encode(snap)
}

// Load replaces the store contents from a gob stream written by Save.
// The snapshot must have been taken with the same metric; vectors are
// only comparable under the metric they were indexed with.
func (s *Storage) Load(r io.Reader) error {
	var snap snapshot
	if err := gob.NewDecoder(r).Decode(&snap); err != nil {
		return fmt.Errorf("decode snapshot: %w", err)
	}
	if vectorstore.Metric(snap.Metric) != s.metric {
		return fmt.Errorf("%w: snapshot metric %s, store metric %s",
			domain.ErrInvalidConfiguration, vectorstore.Metric(snap.Metric), s.metric)
	}
	if snap.Dimension <= 0 {
		return fmt.Errorf("%w: snapshot dimension %d", domain.ErrInvalidConfiguration, snap.Dimension)
	}
	for _, v := range snap.Vectors {
		if len(v) != snap.Dimension {
			return &domain.DimensionMismatchError{Expected: snap.Dimension, Actual: len(v)}
		}
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.dimension = snap.Dimension
	s.chunks = snap.Chunks
	s.vectors = snap.Vectors
	return nil
}

// SaveFile writes a snapshot to path via a temp file and atomic rename.
func (s *Storage) SaveFile(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	tmp := path + ".tmp"
	f, err := os.Create(tmp)
	if err != nil {
		return err
	}
	if err := s.Save(f); err != nil {
		f.Close()
		os.Remove(tmp)
		return err
	}
	if err := f.Close(); err != nil {
		os.Remove(tmp)
		return err
	}
	return os.Rename(tmp, path)
}

// LoadFile reads a snapshot written by SaveFile.
func (s *Storage) LoadFile(path string) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()
	return s.Load(f)
}
