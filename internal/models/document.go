// Package models defines core data structures for documents, chunks, and API payloads.
package models

import "time"

// Document represents one ingested document. Created once per ingestion
// request and immutable thereafter.
type Document struct {
	ID        string    `json:"id" db:"doc_id"`
	Filename  string    `json:"filename" db:"filename"`
	SourceURL string    `json:"source_url,omitempty" db:"-"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

// Chunk is a contiguous span of a document's extracted text together with
// its embedding vector. ChunkIndex defines retrieval and display order
// within the document.
type Chunk struct {
	DocID      string    `json:"doc_id" db:"doc_id"`
	ChunkIndex int       `json:"chunk_index" db:"chunk_index"`
	Content    string    `json:"content" db:"content"`
	Embedding  []float32 `json:"-" db:"embedding"`
}

// ScoredChunk is a similarity-search hit: a stored chunk plus its distance
// to the query vector (cosine distance, smaller is closer).
type ScoredChunk struct {
	Chunk
	Distance float64 `json:"distance"`
}
