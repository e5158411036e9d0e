// Package answer composes retrieval and reasoning into the query pipeline.
package answer

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"github.com/hyperjump/kotae/internal/embedding"
	"github.com/hyperjump/kotae/internal/errs"
	"github.com/hyperjump/kotae/internal/reasoning"
	"github.com/hyperjump/kotae/internal/store"
)

// Service answers questions about an ingested document: embed the question,
// retrieve the most similar stored chunks, and hand both to the reasoner.
// Each question is answered independently; there is no conversation memory.
type Service struct {
	embedder embedding.Embedder
	store    store.VectorStore
	reasoner reasoning.Reasoner
	topK     int
	logger   *zap.Logger
}

// ServiceOption configures a Service.
type ServiceOption func(*Service)

// WithLogger sets a logger for debug events.
func WithLogger(l *zap.Logger) ServiceOption {
	return func(s *Service) { s.logger = l }
}

// NewService creates a query service. topK bounds how many chunks are
// retrieved as context per question.
func NewService(
	embedder embedding.Embedder,
	vectorStore store.VectorStore,
	reasoner reasoning.Reasoner,
	topK int,
	opts ...ServiceOption,
) (*Service, error) {
	if embedder == nil {
		return nil, errors.New("answer: embedder is required")
	}
	if vectorStore == nil {
		return nil, errors.New("answer: vector store is required")
	}
	if reasoner == nil {
		return nil, errors.New("answer: reasoner is required")
	}
	if topK <= 0 {
		topK = 5
	}
	s := &Service{
		embedder: embedder,
		store:    vectorStore,
		reasoner: reasoner,
		topK:     topK,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Answer answers one question against docID. A document with no stored
// chunks yields an empty retrieved context; the reasoning call still
// proceeds and returns whatever the service produces.
func (s *Service) Answer(ctx context.Context, docID, question string) (string, error) {
	return s.answerOne(ctx, docID, question, s.topK)
}

func (s *Service) answerOne(ctx context.Context, docID, question string, topK int) (string, error) {
	if question == "" {
		return "", errs.ClientInput("question must not be empty")
	}
	if docID == "" {
		return "", errs.ClientInput("doc_id must not be empty")
	}
	vector, err := s.embedder.Embed(ctx, question)
	if err != nil {
		return "", errs.Wrap("embed question", err)
	}
	hits, err := s.store.SimilaritySearch(ctx, docID, vector, topK)
	if err != nil {
		return "", errs.Wrap("retrieve context", err)
	}
	contextChunks := make([]string, len(hits))
	for i, hit := range hits {
		contextChunks[i] = hit.Content
	}
	if s.logger != nil {
		s.logger.Debug("retrieved context",
			zap.String("doc_id", docID),
			zap.Int("chunks", len(contextChunks)),
		)
	}
	text, err := s.reasoner.Answer(ctx, question, contextChunks)
	if err != nil {
		return "", errs.Wrap("generate answer", err)
	}
	return text, nil
}

// AnswerAll answers each question in order and returns one answer per
// question, positionally aligned with the input.
func (s *Service) AnswerAll(ctx context.Context, docID string, questions []string) ([]string, error) {
	return s.AnswerAllTopK(ctx, docID, questions, s.topK)
}

// AnswerAllTopK is AnswerAll with a per-call retrieval depth. topK values
// of zero or less fall back to the service default.
func (s *Service) AnswerAllTopK(ctx context.Context, docID string, questions []string, topK int) ([]string, error) {
	if len(questions) == 0 {
		return nil, errs.ClientInput("at least one question is required")
	}
	if topK <= 0 {
		topK = s.topK
	}
	answers := make([]string, len(questions))
	for i, q := range questions {
		text, err := s.answerOne(ctx, docID, q, topK)
		if err != nil {
			return nil, err
		}
		answers[i] = text
	}
	return answers, nil
}
