// Package ingest provides document chunking and the ingestion pipeline.
package ingest

// DefaultChunkSize bounds chunk length to stay inside the embedding
// service's input limits.
const DefaultChunkSize = 3000

// Chunker splits text into fixed-size, non-overlapping character chunks.
// The split deliberately ignores sentence and paragraph boundaries; the
// guarantee is that concatenating the chunks in order reproduces the
// input exactly.
type Chunker struct {
	chunkSize int
}

// NewChunker creates a chunker with the given size in characters (runes).
// Non-positive sizes fall back to DefaultChunkSize.
func NewChunker(chunkSize int) *Chunker {
	if chunkSize <= 0 {
		chunkSize = DefaultChunkSize
	}
	return &Chunker{chunkSize: chunkSize}
}

// Split returns the ordered chunks of text. Chunk i covers character
// offsets [i*size, (i+1)*size); the final chunk holds whatever remains.
// Empty input yields no chunks.
func (c *Chunker) Split(text string) []string {
	if text == "" {
		return nil
	}
	runes := []rune(text)
	chunks := make([]string, 0, (len(runes)+c.chunkSize-1)/c.chunkSize)
	for start := 0; start < len(runes); start += c.chunkSize {
		end := start + c.chunkSize
		if end > len(runes) {
			end = len(runes)
		}
		chunks = append(chunks, string(runes[start:end]))
	}
	return chunks
}

// Size returns the configured chunk size in characters.
func (c *Chunker) Size() int {
	return c.chunkSize
}
