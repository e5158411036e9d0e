package reasoning

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/hyperjump/kotae/internal/errs"
)

// GeminiConfig configures the Gemini generation client.
type GeminiConfig struct {
	APIKey          string
	BaseURL         string
	Model           string
	Timeout         time.Duration
	MaxOutputTokens int
}

// GeminiReasoner calls the Gemini generateContent endpoint, one call per
// question, and extracts the first candidate's text.
type GeminiReasoner struct {
	client          *resty.Client
	model           string
	maxOutputTokens int
}

type generateRequest struct {
	Contents         []generateContent `json:"contents"`
	GenerationConfig generationConfig  `json:"generationConfig"`
}

type generateContent struct {
	Parts []generatePart `json:"parts"`
}

type generatePart struct {
	Text string `json:"text"`
}

type generationConfig struct {
	Temperature     float64 `json:"temperature"`
	MaxOutputTokens int     `json:"maxOutputTokens"`
}

type generateResponse struct {
	Candidates []struct {
		Content generateContent `json:"content"`
	} `json:"candidates"`
}

// NewGeminiReasoner creates a generation client for the given config.
func NewGeminiReasoner(cfg GeminiConfig) (*GeminiReasoner, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("reasoning: api key is required")
	}
	if cfg.Model == "" {
		cfg.Model = "gemini-pro"
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 60 * time.Second
	}
	if cfg.MaxOutputTokens == 0 {
		cfg.MaxOutputTokens = 512
	}
	client := resty.New().
		SetBaseURL(cfg.BaseURL).
		SetTimeout(cfg.Timeout).
		SetHeader("Content-Type", "application/json").
		SetQueryParam("key", cfg.APIKey)
	return &GeminiReasoner{
		client:          client,
		model:           cfg.Model,
		maxOutputTokens: cfg.MaxOutputTokens,
	}, nil
}

// Answer builds one prompt from the retrieved context and the question,
// makes a single generation call, and returns the first candidate's text.
// An empty candidate list yields an empty answer, not an error.
func (r *GeminiReasoner) Answer(ctx context.Context, question string, contextChunks []string) (string, error) {
	prompt := BuildPrompt(question, contextChunks)
	var out generateResponse
	resp, err := r.client.R().
		SetContext(ctx).
		SetBody(generateRequest{
			Contents: []generateContent{{Parts: []generatePart{{Text: prompt}}}},
			GenerationConfig: generationConfig{
				Temperature:     0,
				MaxOutputTokens: r.maxOutputTokens,
			},
		}).
		SetResult(&out).
		Post(fmt.Sprintf("/models/%s:generateContent", r.model))
	if err != nil {
		return "", errs.Upstream("reasoning request failed", err)
	}
	if resp.IsError() {
		return "", errs.Upstreamf("reasoning", resp.StatusCode())
	}
	return firstCandidateText(&out), nil
}

// firstCandidateText joins the text parts of the first candidate.
// Missing or empty candidates produce an empty string.
func firstCandidateText(out *generateResponse) string {
	if len(out.Candidates) == 0 {
		return ""
	}
	var b strings.Builder
	for _, part := range out.Candidates[0].Content.Parts {
		b.WriteString(part.Text)
	}
	return strings.TrimSpace(b.String())
}

// BuildPrompt combines the retrieved context chunks and the question into a
// single instruction. With no context the model is asked to answer from the
// question alone.
func BuildPrompt(question string, contextChunks []string) string {
	var b strings.Builder
	b.WriteString("You are an expert assistant analyzing a document. ")
	if len(contextChunks) > 0 {
		b.WriteString("Use only the excerpts below to answer the question.\n\n")
		for i, chunk := range contextChunks {
			fmt.Fprintf(&b, "Excerpt %d:\n%s\n\n", i+1, chunk)
		}
	} else {
		b.WriteString("No document excerpts were retrieved for this question.\n\n")
	}
	b.WriteString("Question: ")
	b.WriteString(question)
	return b.String()
}
