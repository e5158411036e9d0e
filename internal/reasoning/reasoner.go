// Package reasoning provides answer generation via the Gemini generation API.
package reasoning

import "context"

// Reasoner produces a natural-language answer for a question given
// retrieved context. Each call is independent: no conversation memory.
type Reasoner interface {
	Answer(ctx context.Context, question string, contextChunks []string) (string, error)
}
