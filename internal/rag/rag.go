// Package rag coordinates ingestion and question answering over a user's documents.
package rag

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/rs/zerolog/log"

	"pdf-rag/internal/chunker"
	"pdf-rag/internal/config"
	"pdf-rag/internal/models"
)

type Extractor interface {
	ExtractText(fileName string, data []byte) (string, error)
}

type Embedder interface {
	EmbedDocuments(ctx context.Context, texts []string) ([][]float32, error)
	EmbedQuery(ctx context.Context, text string) ([]float32, error)
}

// VectorStore persists chunks and returns the ones owned by a user, best match first.
type VectorStore interface {
	Store(ctx context.Context, chunks []models.Chunk, vectors [][]float32) (int, error)
	Search(ctx context.Context, userID string, embedding []float32, topK int) ([]models.SearchResult, error)
}

type Generator interface {
	Generate(ctx context.Context, question string, contexts []string) (string, error)
}

// Retrieval is the ranked context set for one question.
type Retrieval struct {
	Chunks      []models.SearchResult
	ResultCount int
}

type RAG struct {
	chunker   *chunker.Chunker
	topK      int
	extractor Extractor
	embedder  Embedder
	store     VectorStore
	generator Generator
}

// NewRAG validates cfg and wires the collaborators.
func NewRAG(cfg config.RAGConfig, extractor Extractor, embedder Embedder, store VectorStore, generator Generator) (*RAG, error) {
	c, err := chunker.New(cfg.ChunkSize, cfg.ChunkOverlap)
	if err != nil {
		return nil, err
	}
	if cfg.SearchTopK <= 0 {
		return nil, fmt.Errorf("%w: search_top_k must be > 0, got %d", models.ErrConfigInvalid, cfg.SearchTopK)
	}
	return &RAG{
		chunker:   c,
		topK:      cfg.SearchTopK,
		extractor: extractor,
		embedder:  embedder,
		store:     store,
		generator: generator,
	}, nil
}

// IngestDocument extracts, chunks, embeds and stores one file for userID.
// A failure anywhere rejects the whole document.
func (r *RAG) IngestDocument(ctx context.Context, userID, fileName string, data []byte) (*models.IngestResult, error) {
	if strings.TrimSpace(userID) == "" {
		return nil, fmt.Errorf("%w: user_id is required", models.ErrInvalidInput)
	}

	text, err := r.extractor.ExtractText(fileName, data)
	if err != nil {
		if errors.Is(err, models.ErrInvalidInput) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %s: %w", models.ErrExtraction, fileName, err)
	}
	if utf8.RuneCountInString(strings.TrimSpace(text)) < models.MinExtractedLength {
		return nil, fmt.Errorf("%w: %s", models.ErrExtraction, fileName)
	}

	return r.IngestText(ctx, userID, fileName, text)
}

// IngestText runs the pipeline on text that is already extracted.
func (r *RAG) IngestText(ctx context.Context, userID, source, text string) (*models.IngestResult, error) {
	if strings.TrimSpace(userID) == "" {
		return nil, fmt.Errorf("%w: user_id is required", models.ErrInvalidInput)
	}

	chunks := r.Chunk(userID, source, text)
	if len(chunks) == 0 {
		return nil, fmt.Errorf("%w: %s", models.ErrChunking, source)
	}

	contents := make([]string, len(chunks))
	for i, c := range chunks {
		contents[i] = c.Content
	}

	vectors, err := r.embedder.EmbedDocuments(ctx, contents)
	if err != nil {
		return nil, models.Upstream("embed", err)
	}
	if len(vectors) != len(chunks) {
		return nil, fmt.Errorf("embed: %w: got %d embeddings for %d chunks", models.ErrUpstream, len(vectors), len(chunks))
	}

	stored, err := r.store.Store(ctx, chunks, vectors)
	if err != nil {
		return nil, models.Upstream("store", err)
	}

	log.Info().Str("user_id", userID).Str("source", source).Int("chunks", stored).Msg("Document ingested")
	return &models.IngestResult{
		Success:     true,
		ChunksCount: stored,
		UserID:      userID,
		FileName:    source,
	}, nil
}

// Chunk normalizes text and splits it into indexed chunks without touching any collaborator.
func (r *RAG) Chunk(userID, source, text string) []models.Chunk {
	parts := r.chunker.Split(chunker.Normalize(text))
	chunks := make([]models.Chunk, len(parts))
	for i, p := range parts {
		chunks[i] = models.Chunk{
			Content: p,
			Index:   i,
			Total:   len(parts),
			Source:  source,
			UserID:  userID,
		}
	}
	return chunks
}

// Retrieve searches userID's chunks. A non positive topK uses the configured default.
// Results keep the store's order.
func (r *RAG) Retrieve(ctx context.Context, userID string, embedding []float32, topK int) (*Retrieval, error) {
	if topK <= 0 {
		topK = r.topK
	}

	results, err := r.store.Search(ctx, userID, embedding, topK)
	if err != nil {
		return nil, models.Upstream("search", err)
	}
	if results == nil {
		results = []models.SearchResult{}
	}
	return &Retrieval{Chunks: results, ResultCount: len(results)}, nil
}

// Ask answers question from userID's documents with the configured top-K.
func (r *RAG) Ask(ctx context.Context, userID, question string) (*models.Answer, error) {
	return r.AskTopK(ctx, userID, question, 0)
}

// AskTopK is Ask with an explicit result ceiling.
func (r *RAG) AskTopK(ctx context.Context, userID, question string, topK int) (*models.Answer, error) {
	if strings.TrimSpace(userID) == "" {
		return nil, fmt.Errorf("%w: user_id is required", models.ErrInvalidInput)
	}
	if strings.TrimSpace(question) == "" {
		return nil, fmt.Errorf("%w: question is required", models.ErrInvalidInput)
	}

	embedding, err := r.embedder.EmbedQuery(ctx, question)
	if err != nil {
		return nil, models.Upstream("embed question", err)
	}

	retrieval, err := r.Retrieve(ctx, userID, embedding, topK)
	if err != nil {
		return nil, err
	}

	log.Debug().Str("user_id", userID).Int("results", retrieval.ResultCount).Msg("Retrieved context")
	if retrieval.ResultCount == 0 {
		return &models.Answer{Question: question, Text: models.NoRelevantInformation}, nil
	}

	contexts := make([]string, len(retrieval.Chunks))
	for i, c := range retrieval.Chunks {
		contexts[i] = c.Content
	}

	text, err := r.generator.Generate(ctx, question, contexts)
	if err != nil {
		return nil, models.Upstream("generate", err)
	}

	return &models.Answer{
		Question:    question,
		Text:        text,
		SourcesUsed: len(contexts),
		Sources:     distinctSources(retrieval.Chunks),
	}, nil
}

func distinctSources(results []models.SearchResult) []string {
	seen := make(map[string]bool, len(results))
	var out []string
	for _, r := range results {
		if r.Source == "" || seen[r.Source] {
			continue
		}
		seen[r.Source] = true
		out = append(out, r.Source)
	}
	return out
}
