package db

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/lib/pq"
	"github.com/pgvector/pgvector-go"
	"github.com/rs/zerolog/log"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/driver/pgdriver"
	"github.com/uptrace/bun/extra/bundebug"

	"pdf-rag/internal/config"
	"pdf-rag/internal/models"
)

// Document is one stored chunk. Rows are only ever added.
type Document struct {
	bun.BaseModel `bun:"table:documents,alias:d"`
	ID            int64            `bun:"id,pk,autoincrement"`
	Content       string           `bun:"content,notnull"`
	Embedding     pgvector.Vector  `bun:"embedding,notnull,type:vector"`
	UserID        string           `bun:"user_id,notnull"`
	Metadata      DocumentMetadata `bun:"metadata,type:jsonb"`
	CreatedAt     time.Time        `bun:"created_at,nullzero,notnull,default:current_timestamp"`
}

type DocumentMetadata struct {
	Source      string `json:"source"`
	ChunkIndex  int    `json:"chunk_index"`
	ChunksTotal int    `json:"chunks_total"`
}

func NewDB(sqldb *sql.DB, debug bool) *bun.DB {
	db := bun.NewDB(sqldb, pgdialect.New())
	if debug {
		db.AddQueryHook(bundebug.NewQueryHook(bundebug.WithVerbose(true)))
	}
	return db
}

// ConnectDB opens the pool with the configured driver. No connection is made until first use.
func ConnectDB(cfg *config.DatabaseConfig) (*sql.DB, error) {
	if cfg.DSN == "" {
		return nil, fmt.Errorf("%w: database dsn is empty", models.ErrConfigInvalid)
	}
	dsn := cfg.DSN
	if !strings.Contains(dsn, "sslmode=") {
		sep := "?"
		if strings.Contains(dsn, "?") {
			sep = "&"
		}
		dsn += sep + "sslmode=disable"
	}

	switch cfg.Driver {
	case config.DriverPq:
		connector, err := pq.NewConnector(dsn)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", models.ErrConfigInvalid, err)
		}
		return sql.OpenDB(connector), nil
	default:
		opts := []pgdriver.Option{pgdriver.WithDSN(dsn)}
		if cfg.Password != "" {
			opts = append(opts, pgdriver.WithPassword(cfg.Password))
		}
		return sql.OpenDB(pgdriver.NewConnector(opts...)), nil
	}
}

// Open connects and wraps the pool in bun.
func Open(cfg *config.DatabaseConfig) (*bun.DB, error) {
	sqldb, err := ConnectDB(cfg)
	if err != nil {
		return nil, err
	}
	return NewDB(sqldb, cfg.Debug), nil
}

// SchemaStatements returns the DDL for the documents table and the match_documents function.
func SchemaStatements(vectorSize int) []string {
	return []string{
		`CREATE EXTENSION IF NOT EXISTS vector`,
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS documents (
	id bigserial PRIMARY KEY,
	content text NOT NULL,
	embedding vector(%d) NOT NULL,
	user_id text NOT NULL,
	metadata jsonb NOT NULL DEFAULT '{}'::jsonb,
	created_at timestamptz NOT NULL DEFAULT now()
)`, vectorSize),
		`CREATE INDEX IF NOT EXISTS documents_user_id_idx ON documents (user_id)`,
		fmt.Sprintf(`CREATE OR REPLACE FUNCTION match_documents(query_embedding vector(%d), match_count int, filter_user_id text)
RETURNS TABLE (id bigint, content text, metadata jsonb, similarity float)
LANGUAGE sql STABLE AS $$
	SELECT d.id, d.content, d.metadata, 1 - (d.embedding <=> query_embedding) AS similarity
	FROM documents d
	WHERE d.user_id = filter_user_id
	ORDER BY d.embedding <=> query_embedding
	LIMIT match_count
$$`, vectorSize),
	}
}

// InitDB creates the schema. It is safe to run repeatedly.
func InitDB(ctx context.Context, db *bun.DB, vectorSize int) error {
	for _, stmt := range SchemaStatements(vectorSize) {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return classifyError(err)
		}
	}
	log.Info().Int("vector_size", vectorSize).Msg("Database schema ready")
	return nil
}

// DropDocuments removes the documents table and its search function.
func DropDocuments(ctx context.Context, db *bun.DB) error {
	if _, err := db.ExecContext(ctx, `DROP FUNCTION IF EXISTS match_documents`); err != nil {
		return err
	}
	_, err := db.NewDropTable().Model((*Document)(nil)).IfExists().Exec(ctx)
	return err
}
