package memory

import (
	"errors"
	"fmt"
	"math"
	"sort"
	"sync"

	"localrag/internal/domain"
	"localrag/internal/similarity"
)

// Storage is a non-persistent, in-process vector store ranked by brute-force
// cosine similarity.
type Storage struct {
	mu        sync.RWMutex
	dimension int
	vectors   [][]float64
	chunks    []domain.Chunk
}

// NewStorage creates an empty store; call Init before use.
func NewStorage() *Storage { return &Storage{} }

// Init sets the vector dimension and drops any stored entries.
func (s *Storage) Init(dimension int) error {
	if dimension <= 0 {
		return errors.New("invalid dimension")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.dimension = dimension
	s.vectors = nil
	s.chunks = nil
	return nil
}

// Upsert appends chunks with their vectors.
func (s *Storage) Upsert(chunks []domain.Chunk, vectors [][]float64) error {
	if len(chunks) != len(vectors) {
		return errors.New("chunks and vectors length mismatch")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, v := range vectors {
		if len(v) != s.dimension {
			return fmt.Errorf("chunk %s: %w: %d != %d", chunks[i].ChunkID, similarity.ErrDimensionMismatch, len(v), s.dimension)
		}
	}
	s.chunks = append(s.chunks, chunks...)
	s.vectors = append(s.vectors, vectors...)
	return nil
}

// Search returns the topK chunks most similar to vector, best first. Scores
// that are not a number (zero vectors) rank as 0.
func (s *Storage) Search(vector []float64, topK int) ([]domain.SearchResult, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if topK <= 0 {
		topK = 5
	}
	results := make([]domain.SearchResult, 0, len(s.vectors))
	for i := range s.vectors {
		score, err := similarity.CosineSimilarity(vector, s.vectors[i])
		if err != nil {
			return nil, err
		}
		if math.IsNaN(score) {
			score = 0
		}
		results = append(results, domain.SearchResult{Chunk: s.chunks[i], Score: score})
	}
	sort.SliceStable(results, func(i, j int) bool { return results[i].Score > results[j].Score })
	if topK < len(results) {
		results = results[:topK]
	}
	return results, nil
}

// Clear drops all stored entries but keeps the dimension.
func (s *Storage) Clear() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.vectors = nil
	s.chunks = nil
	return nil
}

// Len returns the number of stored vectors.
func (s *Storage) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.vectors)
}
