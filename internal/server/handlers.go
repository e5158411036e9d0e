package server

import (
	"encoding/json"
	"io"
	"mime"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/hyperjump/kotae/internal/errs"
	"github.com/hyperjump/kotae/internal/ingest"
	"github.com/hyperjump/kotae/internal/models"
)

// handleIngestDocument accepts either a multipart upload under the "file"
// field or a JSON body naming a URL to fetch.
func (s *Server) handleIngestDocument(w http.ResponseWriter, r *http.Request) {
	contentType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))

	var input *ingest.Input
	switch {
	case strings.HasPrefix(contentType, "multipart/"):
		in, err := s.readUpload(r)
		if err != nil {
			s.respondError(w, err)
			return
		}
		input = in
	default:
		var req models.IngestURLRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			s.respondError(w, errs.ClientInput("invalid request body"))
			return
		}
		if req.URL == "" {
			s.respondError(w, errs.ClientInput("url is required"))
			return
		}
		in, err := s.fetcher.Fetch(r.Context(), req.URL)
		if err != nil {
			s.respondError(w, err)
			return
		}
		input = in
	}

	s.logger.Debug("ingest request", zap.String("filename", input.Filename), zap.Int("bytes", len(input.Data)))
	result, err := s.pipeline.Ingest(r.Context(), input)
	if err != nil {
		s.logger.Error("ingestion failed", zap.String("filename", input.Filename), zap.Error(err))
		s.respondError(w, err)
		return
	}
	s.respondJSON(w, http.StatusCreated, models.IngestResponse{
		DocID:  result.DocID,
		Chunks: result.Chunks,
	})
}

func (s *Server) readUpload(r *http.Request) (*ingest.Input, error) {
	maxBytes := s.config.Ingest.MaxUploadBytes
	if maxBytes > 0 {
		r.Body = http.MaxBytesReader(nil, r.Body, maxBytes)
	}
	file, header, err := r.FormFile("file")
	if err != nil {
		return nil, errs.ClientInput("multipart form must include a 'file' field")
	}
	defer file.Close()
	data, err := io.ReadAll(file)
	if err != nil {
		return nil, errs.ClientInput("failed to read uploaded file")
	}
	filename := header.Filename
	if filename == "" {
		filename = "document"
	}
	return &ingest.Input{Filename: filename, Data: data}, nil
}

func (s *Server) handleGetDocument(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	info, err := s.store.GetDocument(r.Context(), id)
	if err != nil {
		s.respondError(w, err)
		return
	}
	s.respondJSON(w, http.StatusOK, info)
}

// handleQuery answers questions against a previously ingested document.
func (s *Server) handleQuery(w http.ResponseWriter, r *http.Request) {
	var req models.QueryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondError(w, errs.ClientInput("invalid request body"))
		return
	}
	s.logger.Debug("query request", zap.String("doc_id", req.DocID), zap.Int("questions", len(req.Questions)))
	answers, err := s.answers.AnswerAllTopK(r.Context(), req.DocID, req.Questions, req.TopK)
	if err != nil {
		s.logger.Error("query failed", zap.String("doc_id", req.DocID), zap.Error(err))
		s.respondError(w, err)
		return
	}
	s.respondJSON(w, http.StatusOK, models.QueryResponse{
		DocID:   req.DocID,
		Answers: answers,
	})
}

// handleRun fetches a document by URL, ingests it, and answers the given
// questions in a single request.
func (s *Server) handleRun(w http.ResponseWriter, r *http.Request) {
	var req models.RunRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondError(w, errs.ClientInput("invalid request body"))
		return
	}
	if req.DocumentURL == "" {
		s.respondError(w, errs.ClientInput("document_url is required"))
		return
	}
	if len(req.Questions) == 0 {
		s.respondError(w, errs.ClientInput("at least one question is required"))
		return
	}

	input, err := s.fetcher.Fetch(r.Context(), req.DocumentURL)
	if err != nil {
		s.respondError(w, err)
		return
	}
	result, err := s.pipeline.Ingest(r.Context(), input)
	if err != nil {
		s.logger.Error("run: ingestion failed", zap.String("url", req.DocumentURL), zap.Error(err))
		s.respondError(w, err)
		return
	}
	answers, err := s.answers.AnswerAll(r.Context(), result.DocID, req.Questions)
	if err != nil {
		s.logger.Error("run: query failed", zap.String("doc_id", result.DocID), zap.Error(err))
		s.respondError(w, err)
		return
	}
	s.respondJSON(w, http.StatusOK, models.QueryResponse{
		DocID:   result.DocID,
		Answers: answers,
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	docCount, err := s.store.CountDocuments(ctx)
	if err != nil {
		s.logger.Error("status: count documents failed", zap.Error(err))
		s.respondError(w, err)
		return
	}
	chunkCount, err := s.store.CountChunks(ctx)
	if err != nil {
		s.logger.Error("status: count chunks failed", zap.Error(err))
		s.respondError(w, err)
		return
	}
	s.respondJSON(w, http.StatusOK, map[string]interface{}{
		"documents": docCount,
		"chunks":    chunkCount,
		"config": map[string]interface{}{
			"embedding_model":      s.config.Gemini.EmbeddingModel,
			"generation_model":     s.config.Gemini.GenerationModel,
			"embedding_dimensions": s.config.Embedding.Dimensions,
			"chunk_size":           s.config.Ingest.ChunkSize,
			"top_k":                s.config.Query.TopK,
		},
	})
}

func (s *Server) respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func (s *Server) respondError(w http.ResponseWriter, err error) {
	s.respondJSON(w, errs.HTTPStatus(err), models.ErrorResponse{
		Kind:  string(errs.KindOf(err)),
		Error: err.Error(),
	})
}
