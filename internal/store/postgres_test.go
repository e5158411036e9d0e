package store_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hyperjump/kotae/internal/errs"
	"github.com/hyperjump/kotae/internal/models"
	"github.com/hyperjump/kotae/internal/store"
)

func testDoc() *models.Document {
	return &models.Document{ID: "doc-1", Filename: "policy.pdf"}
}

func testChunks(dims, n int) []models.Chunk {
	chunks := make([]models.Chunk, n)
	for i := range chunks {
		chunks[i] = models.Chunk{Content: "chunk", Embedding: make([]float32, dims)}
	}
	return chunks
}

func TestPostgresStore_InsertChunks(t *testing.T) {
	t.Run("Should insert all chunks in one transaction", func(t *testing.T) {
		mockPool, err := pgxmock.NewPool()
		require.NoError(t, err)
		defer mockPool.Close()
		s := store.NewPostgresStoreWithDB(mockPool, 3)
		mockPool.ExpectBegin()
		mockPool.ExpectExec("DELETE FROM document_embeddings").
			WithArgs("doc-1").
			WillReturnResult(pgxmock.NewResult("DELETE", 0))
		for i := 0; i < 3; i++ {
			mockPool.ExpectExec("INSERT INTO document_embeddings").
				WithArgs("doc-1", "policy.pdf", i, "chunk", pgxmock.AnyArg(), pgxmock.AnyArg()).
				WillReturnResult(pgxmock.NewResult("INSERT", 1))
		}
		mockPool.ExpectCommit()
		err = s.InsertChunks(context.Background(), testDoc(), testChunks(3, 3))
		assert.NoError(t, err)
		assert.NoError(t, mockPool.ExpectationsWereMet())
	})
	t.Run("Should roll back when a mid-batch insert fails", func(t *testing.T) {
		mockPool, err := pgxmock.NewPool()
		require.NoError(t, err)
		defer mockPool.Close()
		s := store.NewPostgresStoreWithDB(mockPool, 3)
		mockPool.ExpectBegin()
		mockPool.ExpectExec("DELETE FROM document_embeddings").
			WithArgs("doc-1").
			WillReturnResult(pgxmock.NewResult("DELETE", 0))
		mockPool.ExpectExec("INSERT INTO document_embeddings").
			WithArgs("doc-1", "policy.pdf", 0, "chunk", pgxmock.AnyArg(), pgxmock.AnyArg()).
			WillReturnResult(pgxmock.NewResult("INSERT", 1))
		mockPool.ExpectExec("INSERT INTO document_embeddings").
			WithArgs("doc-1", "policy.pdf", 1, "chunk", pgxmock.AnyArg(), pgxmock.AnyArg()).
			WillReturnError(errors.New("disk full"))
		mockPool.ExpectRollback()
		err = s.InsertChunks(context.Background(), testDoc(), testChunks(3, 3))
		assert.Error(t, err)
		assert.Equal(t, errs.KindStorage, errs.KindOf(err))
		assert.NoError(t, mockPool.ExpectationsWereMet())
	})
	t.Run("Should fail fast on dimension mismatch without touching the table", func(t *testing.T) {
		mockPool, err := pgxmock.NewPool()
		require.NoError(t, err)
		defer mockPool.Close()
		s := store.NewPostgresStoreWithDB(mockPool, 3)
		chunks := testChunks(3, 2)
		chunks[1].Embedding = make([]float32, 5)
		err = s.InsertChunks(context.Background(), testDoc(), chunks)
		assert.Equal(t, errs.KindStorage, errs.KindOf(err))
		assert.NoError(t, mockPool.ExpectationsWereMet(), "no SQL should have been issued")
	})
	t.Run("Should reject an empty chunk set", func(t *testing.T) {
		mockPool, err := pgxmock.NewPool()
		require.NoError(t, err)
		defer mockPool.Close()
		s := store.NewPostgresStoreWithDB(mockPool, 3)
		err = s.InsertChunks(context.Background(), testDoc(), nil)
		assert.Equal(t, errs.KindClientInput, errs.KindOf(err))
	})
}

func TestPostgresStore_SimilaritySearch(t *testing.T) {
	t.Run("Should return rows ordered by distance", func(t *testing.T) {
		mockPool, err := pgxmock.NewPool()
		require.NoError(t, err)
		defer mockPool.Close()
		s := store.NewPostgresStoreWithDB(mockPool, 3)
		rows := mockPool.NewRows([]string{"doc_id", "chunk_index", "content", "distance"}).
			AddRow("doc-1", 2, "closest", 0.05).
			AddRow("doc-1", 0, "farther", 0.4)
		mockPool.ExpectQuery("SELECT doc_id, chunk_index, content, embedding <=> ").
			WithArgs("doc-1", pgxmock.AnyArg(), 2).
			WillReturnRows(rows)
		got, err := s.SimilaritySearch(context.Background(), "doc-1", []float32{1, 0, 0}, 2)
		require.NoError(t, err)
		require.Len(t, got, 2)
		assert.Equal(t, "closest", got[0].Content)
		assert.Equal(t, 2, got[0].ChunkIndex)
		assert.InDelta(t, 0.05, got[0].Distance, 1e-9)
		assert.Equal(t, "farther", got[1].Content)
		assert.NoError(t, mockPool.ExpectationsWereMet())
	})
	t.Run("Should reject a query vector of the wrong dimension", func(t *testing.T) {
		mockPool, err := pgxmock.NewPool()
		require.NoError(t, err)
		defer mockPool.Close()
		s := store.NewPostgresStoreWithDB(mockPool, 3)
		_, err = s.SimilaritySearch(context.Background(), "doc-1", []float32{1, 0}, 2)
		assert.Equal(t, errs.KindStorage, errs.KindOf(err))
	})
}

func TestPostgresStore_GetDocument(t *testing.T) {
	t.Run("Should return document info", func(t *testing.T) {
		mockPool, err := pgxmock.NewPool()
		require.NoError(t, err)
		defer mockPool.Close()
		s := store.NewPostgresStoreWithDB(mockPool, 3)
		now := time.Now()
		rows := mockPool.NewRows([]string{"doc_id", "filename", "created_at", "count"}).
			AddRow("doc-1", "policy.pdf", now, 7)
		mockPool.ExpectQuery("SELECT doc_id, MIN\\(filename\\)").
			WithArgs("doc-1").
			WillReturnRows(rows)
		info, err := s.GetDocument(context.Background(), "doc-1")
		require.NoError(t, err)
		assert.Equal(t, "doc-1", info.ID)
		assert.Equal(t, "policy.pdf", info.Filename)
		assert.Equal(t, 7, info.ChunkCount)
	})
	t.Run("Should return not_found for an unknown document", func(t *testing.T) {
		mockPool, err := pgxmock.NewPool()
		require.NoError(t, err)
		defer mockPool.Close()
		s := store.NewPostgresStoreWithDB(mockPool, 3)
		mockPool.ExpectQuery("SELECT doc_id, MIN\\(filename\\)").
			WithArgs("missing").
			WillReturnRows(mockPool.NewRows([]string{"doc_id", "filename", "created_at", "count"}))
		_, err = s.GetDocument(context.Background(), "missing")
		assert.Equal(t, errs.KindNotFound, errs.KindOf(err))
	})
}

func TestPostgresStore_Counts(t *testing.T) {
	mockPool, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mockPool.Close()
	s := store.NewPostgresStoreWithDB(mockPool, 3)
	mockPool.ExpectQuery("SELECT COUNT\\(DISTINCT doc_id\\)").
		WillReturnRows(mockPool.NewRows([]string{"count"}).AddRow(int64(2)))
	mockPool.ExpectQuery("SELECT COUNT\\(\\*\\)").
		WillReturnRows(mockPool.NewRows([]string{"count"}).AddRow(int64(9)))
	docs, err := s.CountDocuments(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(2), docs)
	chunks, err := s.CountChunks(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(9), chunks)
}
