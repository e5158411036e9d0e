package reasoning

import (
	"context"
	"fmt"
)

// MockReasoner is a canned reasoner for tests. It records the last question
// and context it received.
type MockReasoner struct {
	Response     string
	Err          error
	LastQuestion string
	LastContext  []string
}

// Answer returns the canned response, or a summary of the inputs when no
// response is configured.
func (m *MockReasoner) Answer(ctx context.Context, question string, contextChunks []string) (string, error) {
	m.LastQuestion = question
	m.LastContext = contextChunks
	if m.Err != nil {
		return "", m.Err
	}
	if m.Response != "" {
		return m.Response, nil
	}
	return fmt.Sprintf("answer(%s, %d chunks)", question, len(contextChunks)), nil
}
