package main

import (
	"fmt"

	"github.com/rs/zerolog/log"

	"pdf-rag/internal/chromemdb"
	"pdf-rag/internal/config"
	"pdf-rag/internal/db"
	"pdf-rag/internal/embedding"
	"pdf-rag/internal/llmservice"
	"pdf-rag/internal/parser"
	"pdf-rag/internal/rag"
)

// newVectorStore opens the configured store. The returned func releases it.
func newVectorStore(cfg *config.Config) (rag.VectorStore, func(), error) {
	switch cfg.VectorStore.Type {
	case config.StoreChromem:
		c := cfg.VectorStore.Chromem
		store, err := chromemdb.NewVectorDBManager(c.Path, c.Collection, c.InMemory, c.EncryptionKey)
		if err != nil {
			return nil, nil, err
		}
		log.Info().Str("path", c.Path).Bool("in_memory", c.InMemory).Int("documents", store.Count()).Msg("Using chromem vector store")
		return store, func() {}, nil
	default:
		bunDB, err := db.Open(&cfg.Database)
		if err != nil {
			return nil, nil, fmt.Errorf("error connecting to database: %w", err)
		}
		closeDB := func() {
			if err := bunDB.Close(); err != nil {
				log.Warn().Err(err).Msg("Error closing database")
			}
		}
		return db.NewRepository(bunDB, cfg.Database.BatchSize), closeDB, nil
	}
}

// newPipeline wires every collaborator from cfg.
func newPipeline(cfg *config.Config) (*rag.RAG, func(), error) {
	embedder, err := embedding.New(&cfg.EmbedLLM)
	if err != nil {
		return nil, nil, err
	}
	generator, err := llmservice.New(&cfg.ChatLLM)
	if err != nil {
		return nil, nil, err
	}
	store, closeStore, err := newVectorStore(cfg)
	if err != nil {
		return nil, nil, err
	}

	r, err := rag.NewRAG(cfg.RAG, parser.New(), embedder, store, generator)
	if err != nil {
		closeStore()
		return nil, nil, err
	}
	return r, closeStore, nil
}
