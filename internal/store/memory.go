package store

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/hyperjump/kotae/internal/errs"
	"github.com/hyperjump/kotae/internal/models"
	"github.com/hyperjump/kotae/pkg/utils"
)

// MemoryStore is an in-memory VectorStore using brute-force cosine distance.
// Suitable for tests and for running without a database.
type MemoryStore struct {
	dimensions int
	mu         sync.RWMutex
	docs       map[string]*DocumentInfo
	chunks     map[string][]models.Chunk
}

// NewMemoryStore creates an in-memory store with the given vector dimension.
func NewMemoryStore(dimensions int) (*MemoryStore, error) {
	if dimensions <= 0 {
		return nil, fmt.Errorf("store: dimensions must be positive")
	}
	return &MemoryStore{
		dimensions: dimensions,
		docs:       make(map[string]*DocumentInfo),
		chunks:     make(map[string][]models.Chunk),
	}, nil
}

// InsertChunks stores all chunks for doc, or none on a dimension mismatch.
func (m *MemoryStore) InsertChunks(ctx context.Context, doc *models.Document, chunks []models.Chunk) error {
	if len(chunks) == 0 {
		return errs.ClientInput("document has no chunks to persist")
	}
	for i := range chunks {
		if len(chunks[i].Embedding) != m.dimensions {
			return errs.Storage(fmt.Sprintf(
				"chunk %d dimension mismatch (got %d, want %d)", i, len(chunks[i].Embedding), m.dimensions), nil)
		}
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	stored := make([]models.Chunk, len(chunks))
	for i, ch := range chunks {
		vec := make([]float32, m.dimensions)
		copy(vec, ch.Embedding)
		stored[i] = models.Chunk{
			DocID:      doc.ID,
			ChunkIndex: i,
			Content:    ch.Content,
			Embedding:  vec,
		}
	}
	// Re-ingesting a document replaces its chunks.
	m.chunks[doc.ID] = stored
	if _, ok := m.docs[doc.ID]; !ok {
		info := &DocumentInfo{Document: *doc}
		info.CreatedAt = time.Now()
		m.docs[doc.ID] = info
	}
	m.docs[doc.ID].ChunkCount = len(m.chunks[doc.ID])
	return nil
}

// SimilaritySearch returns the topK chunks of docID closest to query by
// cosine distance. Other documents' chunks are never considered.
func (m *MemoryStore) SimilaritySearch(ctx context.Context, docID string, query []float32, topK int) ([]models.ScoredChunk, error) {
	if len(query) != m.dimensions {
		return nil, errs.Storage(fmt.Sprintf(
			"query dimension mismatch (got %d, want %d)", len(query), m.dimensions), nil)
	}
	if topK <= 0 {
		topK = 5
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	stored := m.chunks[docID]
	scored := make([]models.ScoredChunk, 0, len(stored))
	for i := range stored {
		scored = append(scored, models.ScoredChunk{
			Chunk:    stored[i],
			Distance: utils.CosineDistance(query, stored[i].Embedding),
		})
	}
	sort.Slice(scored, func(i, j int) bool {
		if scored[i].Distance != scored[j].Distance {
			return scored[i].Distance < scored[j].Distance
		}
		return scored[i].ChunkIndex < scored[j].ChunkIndex
	})
	if topK > len(scored) {
		topK = len(scored)
	}
	return scored[:topK], nil
}

// GetDocument returns metadata for a stored document.
func (m *MemoryStore) GetDocument(ctx context.Context, docID string) (*DocumentInfo, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	info, ok := m.docs[docID]
	if !ok {
		return nil, errs.NotFound(fmt.Sprintf("document not found: %s", docID))
	}
	copied := *info
	return &copied, nil
}

// CountDocuments returns the number of stored documents.
func (m *MemoryStore) CountDocuments(ctx context.Context) (int64, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return int64(len(m.docs)), nil
}

// CountChunks returns the total number of stored chunks.
func (m *MemoryStore) CountChunks(ctx context.Context) (int64, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var n int64
	for _, chunks := range m.chunks {
		n += int64(len(chunks))
	}
	return n, nil
}

// Close is a no-op for MemoryStore.
func (m *MemoryStore) Close() error {
	return nil
}
