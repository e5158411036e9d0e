// Package store defines the persistence interface for embedded document chunks.
package store

import (
	"context"

	"github.com/hyperjump/kotae/internal/models"
)

// DocumentInfo is a stored document plus its chunk count.
type DocumentInfo struct {
	models.Document
	ChunkCount int `json:"chunks"`
}

// VectorStore persists chunk rows with their embedding vectors and serves
// nearest-neighbor queries scoped to one document. The distance metric is
// cosine, matching the geometry of the embedding model.
type VectorStore interface {
	// InsertChunks persists the full ordered chunk set for one document in a
	// single transaction: either every chunk is stored or none is. The
	// chunk's index within the slice is its order key. Fails fast on a
	// vector dimension mismatch before touching the table.
	InsertChunks(ctx context.Context, doc *models.Document, chunks []models.Chunk) error

	// SimilaritySearch returns up to topK chunks belonging to docID, ordered
	// by ascending cosine distance to the query vector. Chunks of other
	// documents are never returned.
	SimilaritySearch(ctx context.Context, docID string, query []float32, topK int) ([]models.ScoredChunk, error)

	// GetDocument returns metadata for a stored document.
	GetDocument(ctx context.Context, docID string) (*DocumentInfo, error)

	// Stats
	CountDocuments(ctx context.Context) (int64, error)
	CountChunks(ctx context.Context) (int64, error)

	Close() error
}
