// Package embedding provides text embedding via the Gemini embedding API.
package embedding

import "context"

// Embedder produces vector embeddings for text.
type Embedder interface {
	// Embed returns the embedding vector for a single text.
	Embed(ctx context.Context, text string) ([]float32, error)
	// EmbedBatch returns one vector per input text, positionally aligned
	// with the input regardless of the order the underlying calls complete.
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)
	// Dimensions returns the fixed output dimension of this embedder.
	Dimensions() int
}
