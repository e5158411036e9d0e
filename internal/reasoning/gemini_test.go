package reasoning

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/hyperjump/kotae/internal/errs"
)

func newTestReasoner(t *testing.T, handler http.HandlerFunc) *GeminiReasoner {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		handler(w, r)
	}))
	t.Cleanup(srv.Close)
	r, err := NewGeminiReasoner(GeminiConfig{
		APIKey:  "test-key",
		BaseURL: srv.URL,
		Model:   "gemini-pro",
		Timeout: 5 * time.Second,
	})
	if err != nil {
		t.Fatal(err)
	}
	return r
}

func TestGeminiReasoner_Answer(t *testing.T) {
	r := newTestReasoner(t, func(w http.ResponseWriter, req *http.Request) {
		if req.URL.Path != "/models/gemini-pro:generateContent" {
			t.Errorf("unexpected path %s", req.URL.Path)
		}
		var body generateRequest
		if err := json.NewDecoder(req.Body).Decode(&body); err != nil {
			t.Fatalf("decode request: %v", err)
		}
		prompt := body.Contents[0].Parts[0].Text
		if !strings.Contains(prompt, "What is the policy term?") {
			t.Errorf("prompt missing question: %q", prompt)
		}
		if !strings.Contains(prompt, "the term is 12 months") {
			t.Errorf("prompt missing context: %q", prompt)
		}
		_ = json.NewEncoder(w).Encode(map[string]any{
			"candidates": []map[string]any{
				{"content": map[string]any{"parts": []map[string]any{{"text": "12 months."}}}},
			},
		})
	})
	got, err := r.Answer(context.Background(), "What is the policy term?", []string{"the term is 12 months"})
	if err != nil {
		t.Fatalf("Answer: %v", err)
	}
	if got != "12 months." {
		t.Errorf("got %q", got)
	}
}

func TestGeminiReasoner_emptyCandidatesYieldsEmptyAnswer(t *testing.T) {
	r := newTestReasoner(t, func(w http.ResponseWriter, req *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{"candidates": []any{}})
	})
	got, err := r.Answer(context.Background(), "anything", nil)
	if err != nil {
		t.Fatalf("empty candidates should not be an error, got %v", err)
	}
	if got != "" {
		t.Errorf("got %q, want empty answer", got)
	}
}

func TestGeminiReasoner_upstreamError(t *testing.T) {
	r := newTestReasoner(t, func(w http.ResponseWriter, req *http.Request) {
		http.Error(w, "quota exceeded", http.StatusTooManyRequests)
	})
	_, err := r.Answer(context.Background(), "q", nil)
	if errs.KindOf(err) != errs.KindUpstream {
		t.Errorf("got kind %s, want upstream", errs.KindOf(err))
	}
}

func TestBuildPrompt_withContext(t *testing.T) {
	prompt := BuildPrompt("What is covered?", []string{"chunk one", "chunk two"})
	if !strings.Contains(prompt, "Excerpt 1:\nchunk one") {
		t.Errorf("prompt missing first excerpt: %q", prompt)
	}
	if !strings.Contains(prompt, "Excerpt 2:\nchunk two") {
		t.Errorf("prompt missing second excerpt: %q", prompt)
	}
	if !strings.HasSuffix(prompt, "Question: What is covered?") {
		t.Errorf("prompt should end with the question: %q", prompt)
	}
}

func TestBuildPrompt_noContext(t *testing.T) {
	prompt := BuildPrompt("What is covered?", nil)
	if !strings.Contains(prompt, "No document excerpts were retrieved") {
		t.Errorf("prompt should flag missing context: %q", prompt)
	}
}

func TestNewGeminiReasoner_requiresKey(t *testing.T) {
	if _, err := NewGeminiReasoner(GeminiConfig{}); err == nil {
		t.Error("expected error without api key")
	}
}
