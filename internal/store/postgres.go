package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	pgvector "github.com/pgvector/pgvector-go"

	"github.com/hyperjump/kotae/internal/errs"
	"github.com/hyperjump/kotae/internal/models"
)

const chunkTable = "document_embeddings"

// DB is the subset of pgxpool.Pool the store uses. pgxmock satisfies it in tests.
type DB interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Begin(ctx context.Context) (pgx.Tx, error)
	Close()
}

// PostgresStore implements VectorStore on Postgres with the pgvector extension.
type PostgresStore struct {
	db         DB
	dimensions int
}

// NewPostgresStore connects to databaseURL, ensures the schema, and returns
// the store. dimensions is the fixed vector size of the embedding column.
func NewPostgresStore(ctx context.Context, databaseURL string, dimensions int) (*PostgresStore, error) {
	if dimensions <= 0 {
		return nil, fmt.Errorf("store: dimensions must be positive")
	}
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, fmt.Errorf("store: connect to postgres: %w", err)
	}
	s := &PostgresStore{db: pool, dimensions: dimensions}
	if err := s.ensureSchema(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	return s, nil
}

// NewPostgresStoreWithDB wraps an existing connection without touching the
// schema. Used by tests with a mock pool.
func NewPostgresStoreWithDB(db DB, dimensions int) *PostgresStore {
	return &PostgresStore{db: db, dimensions: dimensions}
}

func (s *PostgresStore) ensureSchema(ctx context.Context) error {
	if _, err := s.db.Exec(ctx, "CREATE EXTENSION IF NOT EXISTS vector"); err != nil {
		return fmt.Errorf("store: enable pgvector extension: %w", err)
	}
	createTable := fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
		id BIGSERIAL PRIMARY KEY,
		doc_id TEXT NOT NULL,
		filename TEXT NOT NULL,
		chunk_index INTEGER NOT NULL,
		content TEXT NOT NULL,
		embedding vector(%d) NOT NULL,
		created_at TIMESTAMP WITH TIME ZONE DEFAULT NOW(),
		UNIQUE (doc_id, chunk_index)
	)`, chunkTable, s.dimensions)
	if _, err := s.db.Exec(ctx, createTable); err != nil {
		return fmt.Errorf("store: create table: %w", err)
	}
	if _, err := s.db.Exec(ctx, fmt.Sprintf(
		"CREATE INDEX IF NOT EXISTS %s_doc_id_idx ON %s (doc_id)", chunkTable, chunkTable)); err != nil {
		return fmt.Errorf("store: create doc_id index: %w", err)
	}
	if _, err := s.db.Exec(ctx, fmt.Sprintf(
		"CREATE INDEX IF NOT EXISTS %s_embedding_idx ON %s USING ivfflat (embedding vector_cosine_ops)",
		chunkTable, chunkTable)); err != nil {
		return fmt.Errorf("store: create embedding index: %w", err)
	}
	return nil
}

// InsertChunks persists all chunks for doc in one transaction.
func (s *PostgresStore) InsertChunks(ctx context.Context, doc *models.Document, chunks []models.Chunk) (err error) {
	if len(chunks) == 0 {
		return errs.ClientInput("document has no chunks to persist")
	}
	for i := range chunks {
		if len(chunks[i].Embedding) != s.dimensions {
			return errs.Storage(fmt.Sprintf(
				"chunk %d dimension mismatch (got %d, want %d)", i, len(chunks[i].Embedding), s.dimensions), nil)
		}
	}
	tx, txErr := s.db.Begin(ctx)
	if txErr != nil {
		return errs.Storage("begin transaction", txErr)
	}
	defer func() {
		if err != nil {
			if rbErr := tx.Rollback(ctx); rbErr != nil && !errors.Is(rbErr, pgx.ErrTxClosed) {
				err = errs.Storage(fmt.Sprintf("rollback failed after: %v", err), rbErr)
			}
		} else {
			if commitErr := tx.Commit(ctx); commitErr != nil {
				err = errs.Storage("commit chunk insert", commitErr)
			}
		}
	}()
	// Re-ingesting a document replaces its chunks.
	if _, execErr := tx.Exec(ctx, fmt.Sprintf("DELETE FROM %s WHERE doc_id = $1", chunkTable), doc.ID); execErr != nil {
		err = errs.Storage("delete existing chunks", execErr)
		return err
	}
	stmt := fmt.Sprintf(`INSERT INTO %s (doc_id, filename, chunk_index, content, embedding, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)`, chunkTable)
	now := time.Now().UTC()
	for i := range chunks {
		ch := &chunks[i]
		if _, execErr := tx.Exec(ctx, stmt,
			doc.ID, doc.Filename, i, ch.Content, pgvector.NewVector(ch.Embedding), now); execErr != nil {
			err = errs.Storage(fmt.Sprintf("insert chunk %d", i), execErr)
			return err
		}
	}
	return nil
}

// SimilaritySearch returns the topK nearest chunks of docID by cosine distance.
func (s *PostgresStore) SimilaritySearch(ctx context.Context, docID string, query []float32, topK int) ([]models.ScoredChunk, error) {
	if len(query) != s.dimensions {
		return nil, errs.Storage(fmt.Sprintf(
			"query dimension mismatch (got %d, want %d)", len(query), s.dimensions), nil)
	}
	if topK <= 0 {
		topK = 5
	}
	sql := fmt.Sprintf(`SELECT doc_id, chunk_index, content, embedding <=> $2 AS distance
		FROM %s WHERE doc_id = $1 ORDER BY embedding <=> $2 ASC, chunk_index ASC LIMIT $3`, chunkTable)
	rows, err := s.db.Query(ctx, sql, docID, pgvector.NewVector(query), topK)
	if err != nil {
		return nil, errs.Storage("similarity search", err)
	}
	defer rows.Close()
	results := make([]models.ScoredChunk, 0, topK)
	for rows.Next() {
		var sc models.ScoredChunk
		if err := rows.Scan(&sc.DocID, &sc.ChunkIndex, &sc.Content, &sc.Distance); err != nil {
			return nil, errs.Storage("scan search row", err)
		}
		results = append(results, sc)
	}
	if err := rows.Err(); err != nil {
		return nil, errs.Storage("iterate search rows", err)
	}
	return results, nil
}

// GetDocument returns metadata and chunk count for a stored document.
func (s *PostgresStore) GetDocument(ctx context.Context, docID string) (*DocumentInfo, error) {
	sql := fmt.Sprintf(`SELECT doc_id, MIN(filename), MIN(created_at), COUNT(*)
		FROM %s WHERE doc_id = $1 GROUP BY doc_id`, chunkTable)
	var info DocumentInfo
	err := s.db.QueryRow(ctx, sql, docID).Scan(&info.ID, &info.Filename, &info.CreatedAt, &info.ChunkCount)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, errs.NotFound(fmt.Sprintf("document not found: %s", docID))
	}
	if err != nil {
		return nil, errs.Storage("get document", err)
	}
	return &info, nil
}

// CountDocuments returns the number of distinct stored documents.
func (s *PostgresStore) CountDocuments(ctx context.Context) (int64, error) {
	var n int64
	err := s.db.QueryRow(ctx, fmt.Sprintf("SELECT COUNT(DISTINCT doc_id) FROM %s", chunkTable)).Scan(&n)
	if err != nil {
		return 0, errs.Storage("count documents", err)
	}
	return n, nil
}

// CountChunks returns the total number of stored chunks.
func (s *PostgresStore) CountChunks(ctx context.Context) (int64, error) {
	var n int64
	err := s.db.QueryRow(ctx, fmt.Sprintf("SELECT COUNT(*) FROM %s", chunkTable)).Scan(&n)
	if err != nil {
		return 0, errs.Storage("count chunks", err)
	}
	return n, nil
}

// Close releases the connection pool.
func (s *PostgresStore) Close() error {
	s.db.Close()
	return nil
}
