package ingest

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"

	"github.com/hyperjump/kotae/internal/embedding"
	"github.com/hyperjump/kotae/internal/errs"
	"github.com/hyperjump/kotae/internal/extract"
	"github.com/hyperjump/kotae/internal/models"
	"github.com/hyperjump/kotae/internal/store"
	"github.com/hyperjump/kotae/pkg/utils"
)

// Pipeline turns one raw document into a persisted, embedded chunk set:
// extract, validate, chunk, embed, persist. Any gate failure aborts the
// whole document; nothing is persisted partially.
type Pipeline struct {
	extractor  *extract.Extractor
	chunker    *Chunker
	embedder   embedding.Embedder
	store      store.VectorStore
	logger     *zap.Logger
	stagingDir string
}

// Result reports a completed ingestion.
type Result struct {
	DocID  string
	Chunks int
}

// PipelineOption configures a Pipeline.
type PipelineOption func(*Pipeline)

// WithLogger sets a logger for debug events.
func WithLogger(l *zap.Logger) PipelineOption {
	return func(p *Pipeline) { p.logger = l }
}

// WithStagingDir sets the parent directory for per-request scratch space.
// Defaults to the system temp directory.
func WithStagingDir(dir string) PipelineOption {
	return func(p *Pipeline) { p.stagingDir = dir }
}

// NewPipeline creates an ingestion pipeline with the given collaborators.
func NewPipeline(
	embedder embedding.Embedder,
	vectorStore store.VectorStore,
	chunkSize int,
	opts ...PipelineOption,
) *Pipeline {
	p := &Pipeline{
		extractor: extract.NewExtractor(),
		chunker:   NewChunker(chunkSize),
		embedder:  embedder,
		store:     vectorStore,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Ingest runs the full pipeline for one document. When input.SourceURL is
// set a stable URL-derived document ID is used; uploads get a fresh ID.
// The staged copy of the input is removed on every exit path.
func (p *Pipeline) Ingest(ctx context.Context, input *Input) (*Result, error) {
	docID := NewDocID()
	if input.SourceURL != "" {
		docID = DocIDForURL(input.SourceURL)
	}

	staged, cleanup, err := p.stage(input)
	if err != nil {
		return nil, errs.Internal("stage document", err)
	}
	defer cleanup()

	content, err := os.ReadFile(staged)
	if err != nil {
		return nil, errs.Internal("read staged document", err)
	}
	text, err := p.extractor.ExtractText(content, input.Filename)
	if err != nil {
		return nil, errs.Wrap("extract text", err)
	}
	if p.logger != nil {
		p.logger.Debug("text extracted",
			zap.String("filename", input.Filename),
			zap.Int("characters", len(text)),
			zap.String("preview", utils.Truncate(text, 120)),
		)
	}

	parts := p.chunker.Split(text)
	texts := make([]string, 0, len(parts))
	for _, part := range parts {
		if strings.TrimSpace(part) != "" {
			texts = append(texts, part)
		}
	}
	if len(texts) == 0 {
		return nil, errs.ClientInput("No readable text found in file.")
	}

	vectors, err := p.embedder.EmbedBatch(ctx, texts)
	if err != nil {
		return nil, errs.Wrap("embed chunks", err)
	}
	chunks := make([]models.Chunk, len(texts))
	for i := range texts {
		chunks[i] = models.Chunk{Content: texts[i], Embedding: vectors[i]}
	}

	doc := &models.Document{ID: docID, Filename: input.Filename, SourceURL: input.SourceURL}
	if err := p.store.InsertChunks(ctx, doc, chunks); err != nil {
		return nil, errs.Wrap("persist chunks", err)
	}
	if p.logger != nil {
		p.logger.Debug("document ingested",
			zap.String("doc_id", docID),
			zap.String("filename", input.Filename),
			zap.Int("chunks", len(chunks)),
		)
	}
	return &Result{DocID: docID, Chunks: len(chunks)}, nil
}

// stage writes the input bytes to a request-scoped scratch directory and
// returns the staged path plus a cleanup that removes the whole directory.
func (p *Pipeline) stage(input *Input) (string, func(), error) {
	dir, err := os.MkdirTemp(p.stagingDir, "kotae-ingest-*")
	if err != nil {
		return "", nil, fmt.Errorf("create staging dir: %w", err)
	}
	cleanup := func() { _ = os.RemoveAll(dir) }
	name := filepath.Base(input.Filename)
	if name == "." || name == string(filepath.Separator) || name == "" {
		name = "document"
	}
	staged := filepath.Join(dir, name)
	if err := os.WriteFile(staged, input.Data, 0600); err != nil {
		cleanup()
		return "", nil, fmt.Errorf("write staged file: %w", err)
	}
	return staged, cleanup, nil
}
