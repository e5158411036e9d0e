package embedding

import (
	"context"
	"fmt"
	"time"

	"github.com/go-resty/resty/v2"
	"golang.org/x/sync/errgroup"

	"github.com/hyperjump/kotae/internal/errs"
)

// GeminiConfig configures the Gemini embedding client.
type GeminiConfig struct {
	APIKey      string
	BaseURL     string
	Model       string
	Dimensions  int
	Concurrency int
	Timeout     time.Duration
}

// GeminiEmbedder calls the Gemini embedContent endpoint. One request per
// text; batch requests fan out concurrently and are collated back into
// input order.
type GeminiEmbedder struct {
	client      *resty.Client
	model       string
	dimensions  int
	concurrency int
}

type embedRequest struct {
	Model   string       `json:"model"`
	Content embedContent `json:"content"`
}

type embedContent struct {
	Parts []embedPart `json:"parts"`
}

type embedPart struct {
	Text string `json:"text"`
}

type embedResponse struct {
	Embedding struct {
		Values []float32 `json:"values"`
	} `json:"embedding"`
}

// NewGeminiEmbedder creates an embedding client for the given config.
func NewGeminiEmbedder(cfg GeminiConfig) (*GeminiEmbedder, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("embedding: api key is required")
	}
	if cfg.Dimensions <= 0 {
		return nil, fmt.Errorf("embedding: dimensions must be positive")
	}
	if cfg.Model == "" {
		cfg.Model = "text-embedding-004"
	}
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = 8
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 30 * time.Second
	}
	client := resty.New().
		SetBaseURL(cfg.BaseURL).
		SetTimeout(cfg.Timeout).
		SetHeader("Content-Type", "application/json").
		SetQueryParam("key", cfg.APIKey)
	return &GeminiEmbedder{
		client:      client,
		model:       cfg.Model,
		dimensions:  cfg.Dimensions,
		concurrency: cfg.Concurrency,
	}, nil
}

// Embed returns the embedding vector for text. A non-success status is an
// upstream error; a success response without the vector field, or with the
// wrong dimensionality, is a malformed-response error.
func (e *GeminiEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	var out embedResponse
	resp, err := e.client.R().
		SetContext(ctx).
		SetBody(embedRequest{
			Model:   "models/" + e.model,
			Content: embedContent{Parts: []embedPart{{Text: text}}},
		}).
		SetResult(&out).
		Post(fmt.Sprintf("/models/%s:embedContent", e.model))
	if err != nil {
		return nil, errs.Upstream("embedding request failed", err)
	}
	if resp.IsError() {
		return nil, errs.Upstreamf("embedding", resp.StatusCode())
	}
	values := out.Embedding.Values
	if len(values) == 0 {
		return nil, errs.Malformed("embedding response missing embedding.values")
	}
	if len(values) != e.dimensions {
		return nil, errs.Malformed(fmt.Sprintf(
			"embedding dimension mismatch: got %d, expected %d", len(values), e.dimensions))
	}
	return values, nil
}

// EmbedBatch embeds each text with an independent call, at most concurrency
// in flight, and collates the results positionally. The first failure
// cancels the remaining calls and fails the whole batch.
func (e *GeminiEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	embeddings := make([][]float32, len(texts))
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(e.concurrency)
	for i, text := range texts {
		g.Go(func() error {
			vec, err := e.Embed(ctx, text)
			if err != nil {
				return err
			}
			embeddings[i] = vec
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return embeddings, nil
}

// Dimensions returns the configured embedding dimension.
func (e *GeminiEmbedder) Dimensions() int {
	return e.dimensions
}
