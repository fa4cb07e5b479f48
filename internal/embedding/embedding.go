package embedding

import (
	"context"
	"fmt"
	"strings"

	"github.com/rs/zerolog/log"
	"github.com/tmc/langchaingo/embeddings"
	"github.com/tmc/langchaingo/llms/ollama"
	"github.com/tmc/langchaingo/llms/openai"
	"golang.org/x/time/rate"

	"pdf-rag/internal/config"
	"pdf-rag/internal/helper"
	"pdf-rag/internal/models"
)

// Service embeds texts in sequential batches. Output order matches input order.
type Service struct {
	client    embeddings.EmbedderClient
	batchSize int
	limiter   *rate.Limiter
}

// New builds the embedding client for the configured provider and wraps it in a Service
func New(cfg *config.LLMConfig) (*Service, error) {
	client, err := NewClient(cfg)
	if err != nil {
		return nil, err
	}
	return NewService(client, cfg.BatchSize, cfg.RequestsPerSecond), nil
}

// NewClient creates the provider client. Every provider satisfies langchaingo's EmbedderClient.
func NewClient(cfg *config.LLMConfig) (embeddings.EmbedderClient, error) {
	log.Debug().Interface("config", map[string]string{
		"provider":        cfg.Provider,
		"base_url":        cfg.BaseURL,
		"embedding_model": cfg.Model,
	}).Msg("Creating embedder")

	switch cfg.Provider {
	case config.ProviderOllama:
		llm, err := ollama.New(
			ollama.WithServerURL(cfg.BaseURL),
			ollama.WithModel(cfg.Model),
		)
		if err != nil {
			return nil, fmt.Errorf("failed to create ollama embedder: %w", err)
		}
		return llm, nil
	case config.ProviderOpenAISDK:
		return newOpenAIClient(cfg), nil
	default:
		opts := []openai.Option{
			openai.WithToken(strings.TrimPrefix(cfg.Key, "Bearer ")),
			openai.WithModel(cfg.Model),
			openai.WithEmbeddingModel(cfg.Model),
		}
		if cfg.BaseURL != "" {
			opts = append(opts, openai.WithBaseURL(cfg.BaseURL))
		}
		llm, err := openai.New(opts...)
		if err != nil {
			return nil, fmt.Errorf("failed to create openai embedder: %w", err)
		}
		return llm, nil
	}
}

// NewService wraps client. A non positive requestsPerSecond disables rate limiting.
func NewService(client embeddings.EmbedderClient, batchSize int, requestsPerSecond float64) *Service {
	s := &Service{client: client, batchSize: batchSize}
	if requestsPerSecond > 0 {
		s.limiter = rate.NewLimiter(rate.Limit(requestsPerSecond), 1)
	}
	return s
}

// EmbedDocuments returns one vector per text. Batches are sent one after another.
func (s *Service) EmbedDocuments(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	vectors := make([][]float32, 0, len(texts))
	for i, batch := range helper.Batch(texts, s.batchSize) {
		if s.limiter != nil {
			if err := s.limiter.Wait(ctx); err != nil {
				return nil, err
			}
		}
		out, err := s.client.CreateEmbedding(ctx, batch)
		if err != nil {
			return nil, fmt.Errorf("failed to embed batch %d: %w", i, err)
		}
		if len(out) != len(batch) {
			return nil, fmt.Errorf("%w: batch %d returned %d embeddings for %d texts", models.ErrUpstream, i, len(out), len(batch))
		}
		vectors = append(vectors, out...)
		log.Debug().Int("batch", i).Int("size", len(batch)).Msg("Embedded batch")
	}
	return vectors, nil
}

// EmbedQuery embeds a single question.
func (s *Service) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	vectors, err := s.EmbedDocuments(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	if len(vectors[0]) == 0 {
		return nil, fmt.Errorf("%w: empty query embedding", models.ErrUpstream)
	}
	return vectors[0], nil
}
