package embedding

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/hyperjump/kotae/internal/errs"
)

func geminiStub(t *testing.T, handler http.HandlerFunc) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		handler(w, r)
	}))
	t.Cleanup(srv.Close)
	return srv
}

func newTestEmbedder(t *testing.T, baseURL string, dims int) *GeminiEmbedder {
	t.Helper()
	e, err := NewGeminiEmbedder(GeminiConfig{
		APIKey:     "test-key",
		BaseURL:    baseURL,
		Model:      "text-embedding-004",
		Dimensions: dims,
		Timeout:    5 * time.Second,
	})
	if err != nil {
		t.Fatal(err)
	}
	return e
}

func TestGeminiEmbedder_Embed(t *testing.T) {
	srv := geminiStub(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/models/text-embedding-004:embedContent" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if r.URL.Query().Get("key") != "test-key" {
			t.Error("api key missing from query")
		}
		var req embedRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatalf("decode request: %v", err)
		}
		if len(req.Content.Parts) != 1 || req.Content.Parts[0].Text != "hello" {
			t.Errorf("unexpected request content: %+v", req.Content)
		}
		_ = json.NewEncoder(w).Encode(map[string]any{
			"embedding": map[string]any{"values": []float32{0.1, 0.2, 0.3}},
		})
	})
	e := newTestEmbedder(t, srv.URL, 3)
	vec, err := e.Embed(context.Background(), "hello")
	if err != nil {
		t.Fatalf("Embed: %v", err)
	}
	if len(vec) != 3 || vec[0] != 0.1 {
		t.Errorf("unexpected vector %v", vec)
	}
}

func TestGeminiEmbedder_upstreamError(t *testing.T) {
	srv := geminiStub(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "overloaded", http.StatusInternalServerError)
	})
	e := newTestEmbedder(t, srv.URL, 3)
	_, err := e.Embed(context.Background(), "hello")
	if errs.KindOf(err) != errs.KindUpstream {
		t.Errorf("got kind %s, want upstream", errs.KindOf(err))
	}
}

func TestGeminiEmbedder_missingVectorField(t *testing.T) {
	srv := geminiStub(t, func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{"something": "else"})
	})
	e := newTestEmbedder(t, srv.URL, 3)
	_, err := e.Embed(context.Background(), "hello")
	if errs.KindOf(err) != errs.KindMalformedResponse {
		t.Errorf("got kind %s, want malformed_response", errs.KindOf(err))
	}
}

func TestGeminiEmbedder_dimensionMismatch(t *testing.T) {
	srv := geminiStub(t, func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{
			"embedding": map[string]any{"values": []float32{0.1, 0.2}},
		})
	})
	e := newTestEmbedder(t, srv.URL, 3)
	_, err := e.Embed(context.Background(), "hello")
	if errs.KindOf(err) != errs.KindMalformedResponse {
		t.Errorf("got kind %s, want malformed_response", errs.KindOf(err))
	}
}

// TestGeminiEmbedder_batchPreservesOrder delays earlier requests longer than
// later ones so calls complete out of order; results must still line up
// positionally with the inputs.
func TestGeminiEmbedder_batchPreservesOrder(t *testing.T) {
	var calls atomic.Int32
	srv := geminiStub(t, func(w http.ResponseWriter, r *http.Request) {
		var req embedRequest
		_ = json.NewDecoder(r.Body).Decode(&req)
		text := req.Content.Parts[0].Text
		// c1 sleeps longest, c3 shortest
		switch text {
		case "c1":
			time.Sleep(60 * time.Millisecond)
		case "c2":
			time.Sleep(30 * time.Millisecond)
		}
		calls.Add(1)
		// Encode the input's identity into the vector.
		var marker float32
		fmt.Sscanf(text, "c%f", &marker)
		_ = json.NewEncoder(w).Encode(map[string]any{
			"embedding": map[string]any{"values": []float32{marker, 0, 0}},
		})
	})
	e := newTestEmbedder(t, srv.URL, 3)
	vecs, err := e.EmbedBatch(context.Background(), []string{"c1", "c2", "c3"})
	if err != nil {
		t.Fatalf("EmbedBatch: %v", err)
	}
	if calls.Load() != 3 {
		t.Errorf("expected 3 upstream calls, got %d", calls.Load())
	}
	for i, want := range []float32{1, 2, 3} {
		if vecs[i][0] != want {
			t.Errorf("vecs[%d][0] = %v, want %v", i, vecs[i][0], want)
		}
	}
}

func TestGeminiEmbedder_batchFailureAbortsAll(t *testing.T) {
	srv := geminiStub(t, func(w http.ResponseWriter, r *http.Request) {
		var req embedRequest
		_ = json.NewDecoder(r.Body).Decode(&req)
		if req.Content.Parts[0].Text == "c2" {
			http.Error(w, "boom", http.StatusBadGateway)
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]any{
			"embedding": map[string]any{"values": []float32{1, 2, 3}},
		})
	})
	e := newTestEmbedder(t, srv.URL, 3)
	_, err := e.EmbedBatch(context.Background(), []string{"c1", "c2", "c3"})
	if err == nil {
		t.Fatal("expected batch failure")
	}
	if errs.KindOf(err) != errs.KindUpstream {
		t.Errorf("got kind %s, want upstream", errs.KindOf(err))
	}
}

func TestNewGeminiEmbedder_requiresKey(t *testing.T) {
	_, err := NewGeminiEmbedder(GeminiConfig{Dimensions: 3})
	if err == nil {
		t.Error("expected error without api key")
	}
}

func TestMockEmbedder_deterministic(t *testing.T) {
	e := NewMockEmbedder(16)
	a, _ := e.Embed(context.Background(), "same text")
	b, _ := e.Embed(context.Background(), "same text")
	for i := range a {
		if a[i] != b[i] {
			t.Fatal("mock embedder should be deterministic")
		}
	}
	if e.Dimensions() != 16 {
		t.Errorf("Dimensions() = %d", e.Dimensions())
	}
}
