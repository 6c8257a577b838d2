package store

import (
	"errors"
	"fmt"
	"math"
	"sort"
	"sync"

	"github.com/dshills/semindex-mcp/pkg/types"
)

// Sentinel errors
var (
	ErrDimensionMismatch = errors.New("vector dimension mismatch")
	ErrCountMismatch     = errors.New("chunk and vector counts differ")
)

// entry pairs a chunk with its embedding vector
type entry struct {
	Chunk  types.Chunk `json:"chunk"`
	Vector []float32   `json:"vector"`
}

// Store holds indexed chunks and their vectors in memory. All reads go
// through an RWMutex so searches proceed concurrently while writes
// replace whole files atomically.
type Store struct {
	mu    sync.RWMutex
	files map[string][]entry
	dim   int
}

// New creates an empty store
func New() *Store {
	return &Store{
		files: make(map[string][]entry),
	}
}

// ReplaceFile atomically swaps all chunks for a single file. Readers
// never observe a file half-indexed. An empty chunk slice removes the
// file entirely.
func (s *Store) ReplaceFile(path string, chunks []types.Chunk, vectors [][]float32) error {
	if len(chunks) != len(vectors) {
		return fmt.Errorf("%w: %d chunks, %d vectors", ErrCountMismatch, len(chunks), len(vectors))
	}

	entries := make([]entry, len(chunks))
	for i, c := range chunks {
		if c.FilePath != path {
			return fmt.Errorf("chunk %s does not belong to file %s", c.Key(), path)
		}
		entries[i] = entry{Chunk: c, Vector: vectors[i]}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	// Validate the whole batch before committing anything, including
	// the store dimension
	dim := s.dim
	for _, e := range entries {
		if dim == 0 {
			dim = len(e.Vector)
		} else if len(e.Vector) != dim {
			return fmt.Errorf("%w: got %d, store has %d", ErrDimensionMismatch, len(e.Vector), dim)
		}
	}

	if len(entries) == 0 {
		delete(s.files, path)
		return nil
	}
	s.dim = dim
	s.files[path] = entries
	return nil
}

// AddChunks groups chunks by file and replaces each file's set. Vectors
// must align positionally with chunks.
func (s *Store) AddChunks(chunks []types.Chunk, vectors [][]float32) error {
	if len(chunks) != len(vectors) {
		return fmt.Errorf("%w: %d chunks, %d vectors", ErrCountMismatch, len(chunks), len(vectors))
	}

	byFile := make(map[string][]int)
	for i, c := range chunks {
		byFile[c.FilePath] = append(byFile[c.FilePath], i)
	}

	for path, idxs := range byFile {
		fileChunks := make([]types.Chunk, len(idxs))
		fileVectors := make([][]float32, len(idxs))
		for j, i := range idxs {
			fileChunks[j] = chunks[i]
			fileVectors[j] = vectors[i]
		}
		if err := s.ReplaceFile(path, fileChunks, fileVectors); err != nil {
			return err
		}
	}
	return nil
}

// RemoveFile deletes every chunk belonging to a file. Removing an
// unknown file is a no-op.
func (s *Store) RemoveFile(path string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.files, path)
}

// Search returns up to limit chunks ranked by cosine similarity to the
// query vector. Results below threshold are dropped. Ties break by file
// path, then start line, so ordering is deterministic.
func (s *Store) Search(query []float32, limit int, threshold float64) []types.SearchResult {
	if limit <= 0 {
		return nil
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	type scored struct {
		chunk types.Chunk
		score float64
	}
	var hits []scored

	for _, entries := range s.files {
		for _, e := range entries {
			score := cosineSimilarity(query, e.Vector)
			if score < threshold {
				continue
			}
			hits = append(hits, scored{chunk: e.Chunk, score: score})
		}
	}

	sort.Slice(hits, func(i, j int) bool {
		if hits[i].score != hits[j].score {
			return hits[i].score > hits[j].score
		}
		if hits[i].chunk.FilePath != hits[j].chunk.FilePath {
			return hits[i].chunk.FilePath < hits[j].chunk.FilePath
		}
		return hits[i].chunk.StartLine < hits[j].chunk.StartLine
	})

	if len(hits) > limit {
		hits = hits[:limit]
	}

	results := make([]types.SearchResult, len(hits))
	for i, h := range hits {
		results[i] = types.SearchResult{
			Chunk: h.chunk,
			Rank:  i + 1,
			Score: h.score,
		}
	}
	return results
}

// ChunkCount returns the total number of indexed chunks
func (s *Store) ChunkCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	n := 0
	for _, entries := range s.files {
		n += len(entries)
	}
	return n
}

// FileCount returns the number of files with at least one chunk
func (s *Store) FileCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.files)
}

// Files returns the sorted list of indexed file paths
func (s *Store) Files() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	paths := make([]string, 0, len(s.files))
	for p := range s.files {
		paths = append(paths, p)
	}
	sort.Strings(paths)
	return paths
}

// HasFile reports whether a file is indexed
func (s *Store) HasFile(path string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.files[path]
	return ok
}

func cosineSimilarity(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}
