package integration

import (
	"context"
	"crypto/sha256"
	"encoding/binary"
	"fmt"
	"math"
	"sync"
	"sync/atomic"

	"github.com/dshills/semindex-mcp/internal/embedder"
)

// MockEmbedder provides a fake embedder for testing.
// It generates deterministic vectors based on text hash, so two
// identical texts always land on the same point and identical queries
// retrieve them.
type MockEmbedder struct {
	dimension int
	calls     atomic.Int64

	mu      sync.Mutex
	failing bool
}

// NewMockEmbedder creates a new mock embedder
func NewMockEmbedder(dimension int) *MockEmbedder {
	return &MockEmbedder{dimension: dimension}
}

// SetFailing toggles hard failure; while failing every Embed call
// returns ErrUnavailable.
func (m *MockEmbedder) SetFailing(failing bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failing = failing
}

// Calls returns the number of Embed invocations so far
func (m *MockEmbedder) Calls() int64 {
	return m.calls.Load()
}

// Embed generates deterministic unit vectors from text hashes
func (m *MockEmbedder) Embed(_ context.Context, texts []string) ([][]float32, error) {
	m.calls.Add(1)

	m.mu.Lock()
	failing := m.failing
	m.mu.Unlock()
	if failing {
		return nil, fmt.Errorf("%w: mock embedder offline", embedder.ErrUnavailable)
	}
	if len(texts) == 0 {
		return nil, embedder.ErrInvalidInput
	}

	out := make([][]float32, len(texts))
	for i, text := range texts {
		if text == "" {
			return nil, embedder.ErrEmptyText
		}
		out[i] = m.vectorFor(text)
	}
	return out, nil
}

func (m *MockEmbedder) vectorFor(text string) []float32 {
	hash := sha256.Sum256([]byte(text))
	vector := make([]float32, m.dimension)
	for i := 0; i < m.dimension; i++ {
		idx := (i * 4) % 28
		val := binary.BigEndian.Uint32(hash[idx : idx+4])
		vector[i] = (float32(val)/float32(1<<32))*2 - 1
	}

	var sum float32
	for _, v := range vector {
		sum += v * v
	}
	if sum > 0 {
		inv := float32(1.0 / math.Sqrt(float64(sum)))
		for i := range vector {
			vector[i] *= inv
		}
	}
	return vector
}

// Dimension returns the embedding dimension
func (m *MockEmbedder) Dimension() int {
	return m.dimension
}

// Provider returns the provider name
func (m *MockEmbedder) Provider() string {
	return "mock"
}

// Close releases resources (no-op for mock)
func (m *MockEmbedder) Close() error {
	return nil
}
