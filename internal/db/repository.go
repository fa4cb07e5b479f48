package db

import (
	"context"
	"errors"
	"fmt"

	"github.com/lib/pq"
	"github.com/pgvector/pgvector-go"
	"github.com/rs/zerolog/log"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/driver/pgdriver"

	"pdf-rag/internal/helper"
	"pdf-rag/internal/models"
)

// SQLSTATE codes that mean init-db has not been run.
var schemaMissingCodes = map[string]bool{
	"42P01": true, // undefined_table
	"42883": true, // undefined_function
	"42704": true, // undefined_object, e.g. type vector
}

// Repository stores chunks in Postgres and searches them through match_documents.
type Repository struct {
	db        *bun.DB
	batchSize int
}

func NewRepository(db *bun.DB, batchSize int) *Repository {
	return &Repository{db: db, batchSize: batchSize}
}

// Store inserts every chunk in a single transaction, batchSize rows per statement.
func (r *Repository) Store(ctx context.Context, chunks []models.Chunk, vectors [][]float32) (int, error) {
	if len(chunks) != len(vectors) {
		return 0, fmt.Errorf("%d chunks but %d embeddings", len(chunks), len(vectors))
	}
	docs := toDocuments(chunks, vectors)
	if len(docs) == 0 {
		return 0, nil
	}

	err := r.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		for _, batch := range helper.Batch(docs, r.batchSize) {
			if _, err := tx.NewInsert().Model(&batch).Exec(ctx); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return 0, classifyError(err)
	}

	log.Debug().Int("rows", len(docs)).Str("user_id", docs[0].UserID).Msg("Stored documents")
	return len(docs), nil
}

type matchRow struct {
	ID         int64            `bun:"id"`
	Content    string           `bun:"content"`
	Metadata   DocumentMetadata `bun:"metadata,type:jsonb"`
	Similarity float64          `bun:"similarity"`
}

// Search returns up to topK chunks owned by userID, most similar first.
func (r *Repository) Search(ctx context.Context, userID string, embedding []float32, topK int) ([]models.SearchResult, error) {
	var rows []matchRow
	err := r.db.NewRaw(
		"SELECT id, content, metadata, similarity FROM match_documents(?, ?, ?)",
		pgvector.NewVector(embedding), topK, userID,
	).Scan(ctx, &rows)
	if err != nil {
		return nil, classifyError(err)
	}
	return toSearchResults(rows), nil
}

func toDocuments(chunks []models.Chunk, vectors [][]float32) []Document {
	docs := make([]Document, 0, len(chunks))
	for i, c := range chunks {
		docs = append(docs, Document{
			Content:   c.Content,
			Embedding: pgvector.NewVector(vectors[i]),
			UserID:    c.UserID,
			Metadata: DocumentMetadata{
				Source:      c.Source,
				ChunkIndex:  c.Index,
				ChunksTotal: c.Total,
			},
		})
	}
	return docs
}

func toSearchResults(rows []matchRow) []models.SearchResult {
	out := make([]models.SearchResult, 0, len(rows))
	for _, row := range rows {
		out = append(out, models.SearchResult{
			Content:     row.Content,
			Source:      row.Metadata.Source,
			ChunkIndex:  row.Metadata.ChunkIndex,
			ChunksTotal: row.Metadata.ChunksTotal,
			Similarity:  row.Similarity,
		})
	}
	return out
}

// classifyError marks missing-schema failures with models.ErrSchemaMissing.
func classifyError(err error) error {
	if err == nil {
		return nil
	}
	if schemaMissingCodes[sqlState(err)] {
		return fmt.Errorf("%w: %w", models.ErrSchemaMissing, err)
	}
	return err
}

func sqlState(err error) string {
	var pgErr pgdriver.Error
	if errors.As(err, &pgErr) {
		return pgErr.Field('C')
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return string(pqErr.Code)
	}
	return ""
}
